// package matching implements the cross-catalog track resolution engine:
// string normalization, similarity scoring, the ordered search strategy
// cascade, and the resolver that drives them against a target catalog.
package matching

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonWordRe       = regexp.MustCompile(`[^\w\s]`)
	apostropheRe    = regexp.MustCompile("[''`]")
	parentheticalRe = regexp.MustCompile(`\s*[(\[][^)\]]*[)\]]\s*`)
	trailingEditionRe = regexp.MustCompile(`(?i)\s*-\s*(remaster|deluxe|extended|bonus|anniversary|edition).*$`)
	yearRemasterRe    = regexp.MustCompile(`(?i)\s*\d{4}\s*(remaster|version).*$`)

	versionParenRe = regexp.MustCompile(`(?i)\s*[(\[][^)\]]*(remix|mix|edit|version|radio|extended|instrumental|acoustic|live|demo)[^)\]]*[)\]]\s*`)
	versionDashRe  = regexp.MustCompile(`(?i)\s*-\s*(?:[^-]*\s)?(remix|mix|edit|version|radio|extended|instrumental|acoustic|live|demo)\b.*$`)

	// Artist separators. Word separators require surrounding whitespace so a
	// lone "x" or "and" inside a name never splits it.
	artistSepRe   = regexp.MustCompile(`(?i)\s+(?:feat\.?|ft\.?|featuring|with|and|vs\.?|versus|x)\s+|\s*(?:&|,|\+)\s*`)
	featClauseRe  = regexp.MustCompile(`(?i)\s+(?:feat\.?|ft\.?|featuring|with|vs\.?|versus|x)\s+`)
	featuredRe    = regexp.MustCompile(`(?i)(?:feat\.?|ft\.?|featuring|with)\s+(.+)$`)
	featuredSepRe = regexp.MustCompile(`(?i)\s*(?:&|,|\+)\s*|\s+and\s+`)

	dashSepRe = regexp.MustCompile(`\s*[-–—]\s*`)
)

// foldTransformer decomposes unicode and drops combining marks (é → e, ñ → n).
var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

var ligatureReplacer = strings.NewReplacer(
	"ß", "ss", "æ", "ae", "œ", "oe", "Æ", "Ae", "Œ", "Oe",
	"’", "'", "‘", "'", "“", `"`, "”", `"`,
)

// Fold lower-cases s, strips diacritics and unicode variants to ASCII-ish
// equivalents, and collapses whitespace.
func Fold(s string) string {
	s = ligatureReplacer.Replace(s)
	if folded, _, err := transform.String(foldTransformer, s); err == nil {
		s = folded
	}
	return collapse(strings.ToLower(s))
}

// StripPunctuation replaces non-word characters with a single space and
// collapses whitespace.
func StripPunctuation(s string) string {
	return collapse(nonWordRe.ReplaceAllString(s, " "))
}

// Normalize prepares a string for similarity comparison: fold, drop
// apostrophes, replace remaining punctuation with spaces, collapse whitespace.
func Normalize(s string) string {
	s = Fold(s)
	s = apostropheRe.ReplaceAllString(s, "")
	return StripPunctuation(s)
}

// CleanAnnotations removes parenthetical or bracketed qualifiers and trailing
// "remastered/deluxe/edition" style suffixes.
func CleanAnnotations(s string) string {
	s = parentheticalRe.ReplaceAllString(s, " ")
	s = trailingEditionRe.ReplaceAllString(s, "")
	s = yearRemasterRe.ReplaceAllString(s, "")
	return collapse(s)
}

// RemoveVersionIndicators strips remix/edit/version/live/acoustic/demo
// qualifiers, both parenthesized and dash-suffixed.
func RemoveVersionIndicators(s string) string {
	s = versionParenRe.ReplaceAllString(s, " ")
	s = versionDashRe.ReplaceAllString(s, "")
	return collapse(s)
}

// PrimaryArtist returns the first artist segment of a joined artist field.
func PrimaryArtist(s string) string {
	parts := splitArtists(s)
	if len(parts) == 0 {
		return collapse(s)
	}
	return parts[0]
}

// AllArtists returns every non-empty artist segment of a joined artist field.
func AllArtists(s string) []string {
	return splitArtists(s)
}

// FeaturedArtists returns the artists following a featuring keyword, if any.
func FeaturedArtists(s string) []string {
	m := featuredRe.FindStringSubmatch(s)
	if m == nil {
		return nil
	}

	var featured []string
	for _, part := range featuredSepRe.Split(m[1], -1) {
		if part = collapse(part); part != "" {
			featured = append(featured, part)
		}
	}
	return featured
}

// CleanArtist removes a trailing featuring clause from an artist field.
func CleanArtist(s string) string {
	parts := featClauseRe.Split(s, 2)
	if len(parts) == 0 {
		return collapse(s)
	}
	return collapse(parts[0])
}

// SimplifyTitle returns the text before the first dash-like separator.
func SimplifyTitle(s string) string {
	parts := dashSepRe.Split(s, 2)
	if len(parts) == 0 {
		return collapse(s)
	}
	return collapse(parts[0])
}

// WordsOnly keeps letters, digits, and spaces only.
func WordsOnly(s string) string {
	return collapse(nonWordRe.ReplaceAllString(s, ""))
}

func splitArtists(s string) []string {
	var out []string
	for _, part := range artistSepRe.Split(s, -1) {
		if part = collapse(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
