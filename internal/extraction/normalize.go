package extraction

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	UnknownAuthor    = "DESCONOCIDO"
	UnknownTechnique = "Desconocida"
)

// numericToken matches, in order of preference: space-grouped thousands
// ("1 234,56"), a bare fraction with a leading separator (".5"), or a run of
// digits and separators.
var numericToken = regexp.MustCompile(`\d{1,3}(?:[ \x{00A0}\x{202F}]\d{3})+(?:[.,]\d+)?|(?:^|\s)[.,]\d+|\d[\d.,]*`)

// NormalizeNumber reads the first numeric token of s, accepting either
// European ("1.234,56" or "1 234,56") or Anglo ("1,234.56") separators. It
// returns zero when no number is present.
func NormalizeNumber(s string) decimal.Decimal {
	token := strings.Join(strings.Fields(numericToken.FindString(s)), "")
	token = strings.TrimRight(token, ".,")
	if token == "" {
		return decimal.Zero
	}

	dots := strings.Count(token, ".")
	commas := strings.Count(token, ",")

	var intPart, fracPart string
	switch {
	case dots > 0 && commas > 0:
		// the separator that appears last is the decimal one
		idx := strings.LastIndexAny(token, ".,")
		intPart, fracPart = token[:idx], token[idx+1:]
	case dots+commas > 1:
		intPart = token
	case dots+commas == 1:
		idx := strings.IndexAny(token, ".,")
		intPart, fracPart = token[:idx], token[idx+1:]
		if len(fracPart) == 3 && strings.TrimLeft(intPart, "0") != "" {
			intPart, fracPart = intPart+fracPart, ""
		}
	default:
		intPart = token
	}

	intPart = stripSeparators(intPart)
	fracPart = stripSeparators(fracPart)
	if intPart == "" {
		intPart = "0"
	}
	value := intPart
	if fracPart != "" {
		value += "." + fracPart
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func stripSeparators(s string) string {
	return strings.NewReplacer(".", "", ",", "").Replace(s)
}

// NormalizeAuthor trims, collapses inner whitespace and upper-cases the
// name. An empty name becomes UnknownAuthor.
func NormalizeAuthor(name string) string {
	clean := strings.ToUpper(collapseSpaces(name))
	if clean == "" {
		return UnknownAuthor
	}
	return clean
}

// NormalizeTechnique capitalizes the first letter and lower-cases the rest.
// Empty or "unknown" values become UnknownTechnique.
func NormalizeTechnique(technique string) string {
	clean := collapseSpaces(technique)
	if clean == "" || strings.EqualFold(clean, "desconocido") || strings.EqualFold(clean, UnknownTechnique) {
		return UnknownTechnique
	}
	return capitalize(clean)
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func capitalize(s string) string {
	first, size := utf8.DecodeRuneInString(s)
	if first == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(first)) + strings.ToLower(s[size:])
}
