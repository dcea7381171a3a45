package extraction

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	pkgerrors "github.com/angelmondragon/auction-archive/pkg/errors"
	"github.com/shopspring/decimal"
)

// Candidate is the unconfirmed result of reading a datasheet.
type Candidate struct {
	Author      string          `json:"author"`
	Technique   string          `json:"technique"`
	HammerPrice decimal.Decimal `json:"hammer_price"`
	HeightCM    decimal.Decimal `json:"height_cm"`
	WidthCM     decimal.Decimal `json:"width_cm"`
}

const (
	keyAuthor    = "autor"
	keyTechnique = "tecnica"
	keyPrice     = "precio_martillo"
	keyHeight    = "alto_cm"
	keyWidth     = "ancho_cm"
)

var requiredKeys = []string{keyAuthor, keyPrice, keyHeight, keyWidth}

// Parse turns a raw model reply into a normalized Candidate. Replies that are
// neither a JSON object with the expected keys nor a 4/5 field pipe tuple
// fail with CodeMalformedResponse carrying the raw text.
func Parse(raw string) (Candidate, error) {
	text := stripFences(raw)

	if start, end := strings.Index(text, "{"), strings.LastIndex(text, "}"); start >= 0 && end > start {
		c, err := parseObject(text[start : end+1])
		if err != nil {
			return Candidate{}, malformed(raw, err.Error())
		}
		return c, nil
	}

	if strings.Contains(text, "|") {
		c, err := parseTuple(text)
		if err != nil {
			return Candidate{}, malformed(raw, err.Error())
		}
		return c, nil
	}

	return Candidate{}, malformed(raw, "no json object found")
}

func malformed(raw, reason string) error {
	return pkgerrors.New(pkgerrors.CodeMalformedResponse, "unparseable model reply: "+reason).
		WithDetails(map[string]any{"raw": raw})
}

func stripFences(raw string) string {
	text := strings.ReplaceAll(raw, "```json", "")
	text = strings.ReplaceAll(text, "```JSON", "")
	text = strings.ReplaceAll(text, "```", "")
	return strings.TrimSpace(text)
}

func parseObject(body string) (Candidate, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return Candidate{}, fmt.Errorf("invalid json: %w", err)
	}
	for _, key := range requiredKeys {
		if _, ok := fields[key]; !ok {
			return Candidate{}, fmt.Errorf("missing key %q", key)
		}
	}

	author, err := textField(fields, keyAuthor)
	if err != nil {
		return Candidate{}, err
	}
	technique, err := textField(fields, keyTechnique)
	if err != nil {
		return Candidate{}, err
	}
	price, err := numberField(fields, keyPrice)
	if err != nil {
		return Candidate{}, err
	}
	height, err := numberField(fields, keyHeight)
	if err != nil {
		return Candidate{}, err
	}
	width, err := numberField(fields, keyWidth)
	if err != nil {
		return Candidate{}, err
	}

	return newCandidate(author, technique, price, height, width), nil
}

func textField(fields map[string]any, key string) (string, error) {
	switch v := fields[key].(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	default:
		return "", fmt.Errorf("key %q must be text", key)
	}
}

func numberField(fields map[string]any, key string) (decimal.Decimal, error) {
	switch v := fields[key].(type) {
	case nil:
		return decimal.Zero, nil
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return decimal.Zero, fmt.Errorf("key %q: %w", key, err)
		}
		return d, nil
	case string:
		return NormalizeNumber(v), nil
	default:
		return decimal.Zero, fmt.Errorf("key %q must be numeric", key)
	}
}

// parseTuple accepts autor|precio|alto|ancho with an optional |tecnica.
func parseTuple(text string) (Candidate, error) {
	parts := strings.Split(text, "|")
	if len(parts) != 4 && len(parts) != 5 {
		return Candidate{}, fmt.Errorf("tuple has %d fields", len(parts))
	}
	technique := ""
	if len(parts) == 5 {
		technique = parts[4]
	}
	return newCandidate(
		parts[0],
		technique,
		NormalizeNumber(parts[1]),
		NormalizeNumber(parts[2]),
		NormalizeNumber(parts[3]),
	), nil
}

func newCandidate(author, technique string, price, height, width decimal.Decimal) Candidate {
	return Candidate{
		Author:      NormalizeAuthor(author),
		Technique:   NormalizeTechnique(technique),
		HammerPrice: nonNegative(price),
		HeightCM:    nonNegative(height),
		WidthCM:     nonNegative(width),
	}
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
