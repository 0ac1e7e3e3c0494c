package slug

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonAlnum   = regexp.MustCompile(`[^a-z0-9]+`)
	apostrophe = strings.NewReplacer("'", "", "’", "", "&", " and ")
)

// Generate creates a URL-friendly slug from name. Diacritics are stripped,
// apostrophes dropped and ampersands spelled out.
//
//	"Charlie's"        -> "charlies"
//	"Craft & Co"       -> "craft-and-co"
//	"Café  Crème!"     -> "cafe-creme"
func Generate(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}

	s := strings.ToLower(strings.TrimSpace(apostrophe.Replace(folded)))
	s = nonAlnum.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Unique returns Generate(name), suffixed with -2, -3, ... until taken reports
// the candidate free.
func Unique(name string, taken func(string) bool) string {
	base := Generate(name)
	if base == "" {
		base = "business"
	}
	candidate := base
	for n := 2; taken(candidate); n++ {
		candidate = base + "-" + strconv.Itoa(n)
	}
	return candidate
}
