package matching

import (
	"strings"

	"github.com/desertthunder/crosstune/internal/services"
)

// Acceptance thresholds. Policy constants tuned for recall, not derived.
const (
	// MatchThreshold accepts a candidate from the generic strategy cascade.
	MatchThreshold = 0.5
	// AlbumMatchThreshold accepts an album during album-assisted lookup.
	AlbumMatchThreshold = 0.6
	// AlbumTrackThreshold accepts a track within a resolved album.
	AlbumTrackThreshold = 0.7

	artistMatchThreshold = 0.85
	artistMatchBonus     = 0.15
	exactTitleBonus      = 0.15
	albumBonusThreshold  = 0.7
	albumBonusWeight     = 0.1
	containmentWeight    = 0.9
)

// Similarity computes edit-distance similarity between two raw strings:
// 1 - levenshtein/max(len). Returns 1.0 for equal strings and 0.0 when
// either is empty.
func Similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}

	ra, rb := []rune(a), []rune(b)
	longer := len(ra)
	if len(rb) > longer {
		longer = len(rb)
	}
	return float64(longer-levenshtein(ra, rb)) / float64(longer)
}

// levenshtein computes edit distance with a two-row DP table.
func levenshtein(a, b []rune) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)

	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min3(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}

	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

// BestSimilarity normalizes both inputs and returns the best of edit
// similarity, substring containment, and Jaccard word overlap. Symmetric in
// its arguments.
func BestSimilarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)

	if na == nb {
		return 1.0
	}
	if na == "" || nb == "" {
		return 0.0
	}

	best := Similarity(na, nb)

	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		shorter, longer := len(na), len(nb)
		if shorter > longer {
			shorter, longer = longer, shorter
		}
		if contains := float64(shorter) / float64(longer) * containmentWeight; contains > best {
			best = contains
		}
	}

	if overlap := jaccard(na, nb); overlap > best {
		best = overlap
	}

	return best
}

func jaccard(a, b string) float64 {
	wa, wb := strings.Fields(a), strings.Fields(b)
	if len(wa) == 0 || len(wb) == 0 {
		return 0.0
	}

	seen := make(map[string]struct{}, len(wa))
	for _, w := range wa {
		seen[w] = struct{}{}
	}

	union := make(map[string]struct{}, len(wa)+len(wb))
	for _, w := range wa {
		union[w] = struct{}{}
	}

	shared := 0
	counted := make(map[string]struct{}, len(wb))
	for _, w := range wb {
		union[w] = struct{}{}
		if _, ok := seen[w]; ok {
			if _, dup := counted[w]; !dup {
				shared++
				counted[w] = struct{}{}
			}
		}
	}

	return float64(shared) / float64(len(union))
}

// ScoreTrack computes the weighted match score of a candidate against a
// source track descriptor. Deterministic and pure.
//
// title similarity x 0.6 + artist similarity x 0.3, plus a flat bonus when
// any source artist matches any candidate artist above 0.85, an album bonus
// when albums agree above 0.7, and an exact-title bonus capped at 1.0.
func ScoreTrack(candidate services.CatalogMatch, title, artist, album string) float64 {
	score := BestSimilarity(title, candidate.Title)*0.6 + BestSimilarity(artist, candidate.Artist())*0.3

	if anyArtistMatches(AllArtists(artist), candidateArtists(candidate)) {
		score += artistMatchBonus
	}

	if album != "" && candidate.AlbumTitle != "" {
		if albumScore := Similarity(Normalize(album), Normalize(candidate.AlbumTitle)); albumScore > albumBonusThreshold {
			score += albumScore * albumBonusWeight
		}
	}

	if Normalize(title) == Normalize(candidate.Title) {
		score += exactTitleBonus
		if score > 1.0 {
			score = 1.0
		}
	}

	return score
}

func candidateArtists(candidate services.CatalogMatch) []string {
	if len(candidate.ArtistNames) > 0 {
		return candidate.ArtistNames
	}
	return AllArtists(candidate.Artist())
}

func anyArtistMatches(source, target []string) bool {
	for _, sa := range source {
		for _, ta := range target {
			if Similarity(Normalize(sa), Normalize(ta)) > artistMatchThreshold {
				return true
			}
		}
	}
	return false
}

// BestAlbumMatch scores album search results against the wanted album title
// and artist (0.7 title / 0.3 artist) and returns the best result at or above
// [AlbumMatchThreshold], or nil.
func BestAlbumMatch(albums []services.AlbumSummary, album, artist string) *services.AlbumSummary {
	var best *services.AlbumSummary
	bestScore := 0.0

	for i := range albums {
		score := BestSimilarity(album, albums[i].Title)*0.7 + BestSimilarity(artist, albums[i].Artist())*0.3
		if score > bestScore {
			best = &albums[i]
			bestScore = score
		}
	}

	if best == nil || bestScore < AlbumMatchThreshold {
		return nil
	}
	return best
}

// BestTrackInAlbum finds the album track whose title best matches the wanted
// title, comparing the plain and annotation-cleaned forms and substring
// containment. Returns nil when the best score is below [AlbumTrackThreshold].
func BestTrackInAlbum(tracks []services.CatalogMatch, title string) *services.CatalogMatch {
	wanted := Normalize(title)
	cleaned := Normalize(CleanAnnotations(title))

	var best *services.CatalogMatch
	bestScore := 0.0

	for i := range tracks {
		candidate := Normalize(tracks[i].Title)

		score := Similarity(wanted, candidate)
		if clean := Similarity(cleaned, candidate); clean > score {
			score = clean
		}
		if wanted != "" && candidate != "" &&
			(strings.Contains(candidate, wanted) || strings.Contains(wanted, candidate)) && score < 0.85 {
			score = 0.85
		}

		if score > bestScore {
			best = &tracks[i]
			bestScore = score
		}
	}

	if best == nil || bestScore < AlbumTrackThreshold {
		return nil
	}
	return best
}
