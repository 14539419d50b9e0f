package fuzzy

import (
	"strings"
	"unicode"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Abbreviations expanded token by token before comparing addresses.
var addressAbbreviations = map[string]string{
	"st":    "street",
	"str":   "street",
	"ave":   "avenue",
	"av":    "avenue",
	"rd":    "road",
	"blvd":  "boulevard",
	"sq":    "square",
	"ln":    "lane",
	"ქ":     "ქუჩა",
	"ქუჩ":   "ქუჩა",
	"გამზ":  "გამზირი",
	"გზატკ": "გზატკეცილი",
}

// Normalize lowercases s, strips diacritics and punctuation and collapses
// whitespace.
func Normalize(s string) string {
	s = norm.NFKC.String(s)
	s = strings.ToLower(s)

	t := transform.Chain(norm.NFD, transform.RemoveFunc(isMn), norm.NFC)
	result, _, err := transform.String(t, s)
	if err != nil {
		result = s
	}

	result = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, result)

	return strings.Join(strings.Fields(result), " ")
}

// NormalizeAddress is Normalize plus abbreviation expansion.
func NormalizeAddress(s string) string {
	words := strings.Fields(Normalize(s))
	for i, w := range words {
		if full, ok := addressAbbreviations[w]; ok {
			words[i] = full
		}
	}
	return strings.Join(words, " ")
}

func isMn(r rune) bool {
	return unicode.Is(unicode.Mn, r)
}
