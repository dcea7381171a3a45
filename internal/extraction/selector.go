package extraction

import (
	"strings"

	pkgerrors "github.com/angelmondragon/auction-archive/pkg/errors"
)

// DefaultPreference is tried in order when no preference is configured.
var DefaultPreference = []string{"flash", "pro"}

var nonVisionMarkers = []string{"embedding", "tts", "aqa", "image-generation", "imagen"}

// ChooseModel picks the first generateContent-capable vision model that
// matches the earliest preference token. Provider ordering breaks ties.
func ChooseModel(models []ModelInfo, preference []string) (string, error) {
	if len(preference) == 0 {
		preference = DefaultPreference
	}

	usable := make([]ModelInfo, 0, len(models))
	for _, m := range models {
		if supports(m, ActionGenerateContent) && !isNonVision(m.Name) {
			usable = append(usable, m)
		}
	}

	for _, token := range preference {
		token = strings.ToLower(strings.TrimSpace(token))
		if token == "" {
			continue
		}
		for _, m := range usable {
			if strings.Contains(strings.ToLower(m.Name), token) {
				return m.Name, nil
			}
		}
	}

	return "", pkgerrors.New(pkgerrors.CodeNoCompatibleModel, "no vision model available for credential")
}

func supports(m ModelInfo, action string) bool {
	for _, a := range m.Actions {
		if a == action {
			return true
		}
	}
	return false
}

func isNonVision(name string) bool {
	lower := strings.ToLower(name)
	for _, marker := range nonVisionMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
