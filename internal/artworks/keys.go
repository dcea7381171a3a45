package artworks

import (
	"fmt"
	"path"
	"strings"
	"unicode"

	"github.com/angelmondragon/auction-archive/internal/extraction"
	"github.com/google/uuid"
)

const (
	KindArtwork   = "artwork"
	KindDatasheet = "datasheet"
)

// Namespace derives the per-author storage prefix from a normalized author.
func Namespace(author string) string {
	normalized := extraction.NormalizeAuthor(author)

	var b strings.Builder
	b.Grow(len(normalized))
	for _, r := range normalized {
		switch {
		case r == ' ':
			b.WriteRune('_')
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' || r == '.':
			b.WriteRune(r)
		}
	}
	ns := strings.Trim(b.String(), "._-")
	if ns == "" {
		return extraction.UnknownAuthor
	}
	return ns
}

// ObjectKey is {namespace}/{kind}_{id}_{file}; the id keeps identical file
// names from colliding.
func ObjectKey(namespace, kind string, id uuid.UUID, fileName string) string {
	name := sanitizeFileName(fileName)
	if name == "" {
		name = "image"
	}
	return fmt.Sprintf("%s/%s_%s_%s", namespace, kind, id.String(), name)
}

func sanitizeFileName(name string) string {
	if name == "" {
		return ""
	}
	clean := path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if clean == "." || clean == "/" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(clean))
	for _, r := range clean {
		switch {
		case r == '/' || unicode.IsControl(r):
			continue
		case unicode.IsSpace(r):
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-_.")
}
