package matching

import "strings"

// StrategyType names one query-construction heuristic in the fallback cascade.
//
// The set is closed: each type has exactly one query builder in [Plan], and
// the cascade iterates a fixed ordered list rather than dispatching by name.
type StrategyType string

const (
	StrategyISRC        StrategyType = "isrc"
	StrategyAlbumLookup StrategyType = "album_lookup"

	StrategyExact             StrategyType = "exact"
	StrategyArtistFirst       StrategyType = "artist_first"
	StrategyWithAlbum         StrategyType = "with_album"
	StrategyArtistAlbum       StrategyType = "artist_album"
	StrategyCleaned           StrategyType = "cleaned"
	StrategyNoRemix           StrategyType = "no_remix"
	StrategyPrimaryArtist     StrategyType = "primary_artist"
	StrategyPrimaryArtistClean StrategyType = "primary_artist_clean"
	StrategyTrackOnly         StrategyType = "track_only"
	StrategyTrackOnlyClean    StrategyType = "track_only_clean"
	StrategyWithoutThe        StrategyType = "without_the"
	StrategyWithThe           StrategyType = "with_the"
	StrategyUnicodeFolded     StrategyType = "unicode_folded"
	StrategyFeaturedArtist    StrategyType = "featured_artist"
	StrategySimplified        StrategyType = "simplified"
	StrategyWordsOnly         StrategyType = "words_only"
)

// Strategy is one entry of the fallback cascade: a type tag and the query it
// should issue.
type Strategy struct {
	Type  StrategyType
	Query string
}

// Plan builds the ordered text-search cascade for a source track, most
// precise first. No two entries share the same case-folded,
// whitespace-collapsed query. ISRC and album-assisted lookups are exact-match
// paths handled by the resolver before this cascade.
func Plan(title, artist, album string) []Strategy {
	var strategies []Strategy
	add := func(t StrategyType, parts ...string) {
		query := collapse(strings.Join(parts, " "))
		if query != "" {
			strategies = append(strategies, Strategy{Type: t, Query: query})
		}
	}

	add(StrategyExact, title, artist)
	add(StrategyArtistFirst, artist, title)

	if album != "" {
		add(StrategyWithAlbum, title, album)
		add(StrategyArtistAlbum, artist, album)
	}

	cleanTitle := CleanAnnotations(title)
	cleanArtist := CleanArtist(artist)
	if cleanTitle != title || cleanArtist != artist {
		add(StrategyCleaned, cleanTitle, cleanArtist)
	}

	noRemix := RemoveVersionIndicators(title)
	if noRemix != title && noRemix != cleanTitle {
		add(StrategyNoRemix, noRemix, cleanArtist)
	}

	primary := PrimaryArtist(artist)
	if primary != "" && primary != artist && primary != cleanArtist {
		add(StrategyPrimaryArtist, title, primary)
		add(StrategyPrimaryArtistClean, cleanTitle, primary)
	}

	add(StrategyTrackOnly, title)
	if cleanTitle != title {
		add(StrategyTrackOnlyClean, cleanTitle)
	}

	if len(artist) > 4 && strings.EqualFold(artist[:4], "the ") {
		add(StrategyWithoutThe, title, artist[4:])
	} else if artist != "" {
		add(StrategyWithThe, title, "The "+artist)
	}

	foldedTitle, foldedArtist := Fold(title), Fold(artist)
	if foldedTitle != strings.ToLower(title) || foldedArtist != strings.ToLower(artist) {
		add(StrategyUnicodeFolded, foldedTitle, foldedArtist)
	}

	for _, featured := range FeaturedArtists(artist) {
		add(StrategyFeaturedArtist, title, featured)
	}

	simplified := SimplifyTitle(title)
	if simplified != title && simplified != cleanTitle {
		add(StrategySimplified, simplified, artist)
	}

	wordsTitle := WordsOnly(title)
	if len(wordsTitle) >= 3 {
		add(StrategyWordsOnly, wordsTitle, WordsOnly(artist))
	}

	return dedupe(strategies)
}

// dedupe drops later strategies whose normalized query was already planned,
// preserving order.
func dedupe(strategies []Strategy) []Strategy {
	seen := make(map[string]struct{}, len(strategies))
	out := strategies[:0]
	for _, s := range strategies {
		key := collapse(strings.ToLower(s.Query))
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}
