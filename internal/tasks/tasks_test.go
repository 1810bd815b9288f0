package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/desertthunder/crosstune/internal/matching"
	"github.com/desertthunder/crosstune/internal/models"
	"github.com/desertthunder/crosstune/internal/repositories"
	"github.com/desertthunder/crosstune/internal/services"
	"github.com/desertthunder/crosstune/internal/shared"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

type testRepos struct {
	playlists *repositories.PlaylistRepository
	songs     *repositories.SongRepository
	artists   *repositories.ArtistRepository
	albums    *repositories.AlbumRepository
}

func newTestRepos(db *sql.DB) testRepos {
	return testRepos{
		playlists: repositories.NewPlaylistRepository(db),
		songs:     repositories.NewSongRepository(db),
		artists:   repositories.NewArtistRepository(db),
		albums:    repositories.NewAlbumRepository(db),
	}
}

// stubSource serves scripted playlist metadata and tracks.
type stubSource struct {
	playlists map[string]services.PlaylistInfo
	tracks    map[string][]services.SourceTrack
	tracksErr error
}

func (s *stubSource) Name() string { return "Spotify" }

func (s *stubSource) Playlists(context.Context) ([]services.PlaylistInfo, error) {
	var out []services.PlaylistInfo
	for _, info := range s.playlists {
		out = append(out, info)
	}
	return out, nil
}

func (s *stubSource) Playlist(_ context.Context, id string) (*services.PlaylistInfo, error) {
	info, ok := s.playlists[id]
	if !ok {
		return nil, fmt.Errorf("%w: playlist %s", shared.ErrPlaylistNotFound, id)
	}
	return &info, nil
}

func (s *stubSource) PlaylistTracks(_ context.Context, id string) ([]services.SourceTrack, error) {
	if s.tracksErr != nil {
		return nil, s.tracksErr
	}
	return s.tracks[id], nil
}

// stubResolver resolves by source track id from a scripted table.
type stubResolver struct {
	matches map[string]*services.CatalogMatch
}

func (s *stubResolver) Resolve(_ context.Context, track services.SourceTrack) matching.Resolution {
	attempt := matching.Attempt{Strategy: matching.StrategyExact, Query: track.Title, Outcome: matching.OutcomeNoMatch}
	if match := s.matches[track.ID]; match != nil {
		attempt.Outcome = matching.OutcomeMatch
		return matching.Resolution{Match: match, Attempts: []matching.Attempt{attempt}}
	}
	return matching.Resolution{Attempts: []matching.Attempt{attempt}}
}

// stubTarget records playlist creation and track additions.
type stubTarget struct {
	created   []string
	added     map[string][]string
	createErr error
	failName  string // when set, createErr only fires for this playlist name
	addErr    error
	nextID    int
}

func (s *stubTarget) CreatePlaylist(_ context.Context, name, _ string) (*services.CreatedPlaylist, error) {
	if s.createErr != nil && (s.failName == "" || name == s.failName) {
		return nil, s.createErr
	}
	s.nextID++
	id := fmt.Sprintf("tp-%d", s.nextID)
	s.created = append(s.created, name)
	return &services.CreatedPlaylist{ID: id}, nil
}

func (s *stubTarget) AddTracks(_ context.Context, playlistID string, trackIDs []string) error {
	if s.addErr != nil {
		return s.addErr
	}
	if s.added == nil {
		s.added = make(map[string][]string)
	}
	s.added[playlistID] = append(s.added[playlistID], trackIDs...)
	return nil
}

func roadTripSource() *stubSource {
	return &stubSource{
		playlists: map[string]services.PlaylistInfo{
			"sp-p-1": {ID: "sp-p-1", Name: "Road Trip", Owner: "alice", TrackCount: 2},
		},
		tracks: map[string][]services.SourceTrack{
			"sp-p-1": {
				{ID: "sp-t-1", Title: "Karma Police", ArtistNames: []string{"Radiohead"}, ArtistID: "sp-a-1", AlbumID: "sp-al-1", AlbumTitle: "OK Computer", ISRC: "GBAYE9700123"},
				{ID: "sp-t-2", Title: "Glory Box", ArtistNames: []string{"Portishead"}, ArtistID: "sp-a-2", AlbumID: "sp-al-2", AlbumTitle: "Dummy"},
			},
		},
	}
}

func TestImportCoordinator(t *testing.T) {
	t.Run("imports playlist and tracks", func(t *testing.T) {
		db := setupTestDB(t)
		repos := newTestRepos(db)
		coord := NewImportCoordinator(roadTripSource(), repos.playlists, repos.songs, repos.artists, repos.albums, nil)

		result, err := coord.Import(context.Background(), "sp-p-1", nil)
		if err != nil {
			t.Fatalf("import failed: %v", err)
		}
		if result.TracksStored != 2 || result.TracksTotal != 2 {
			t.Errorf("result = %+v", result)
		}

		playlist, err := repos.playlists.GetBySpotifyID("sp-p-1")
		if err != nil {
			t.Fatalf("playlist not persisted: %v", err)
		}
		if playlist.ImportStatus() != models.ImportCompleted {
			t.Errorf("status = %s, want completed", playlist.ImportStatus())
		}
		if playlist.Owner() != "alice" || playlist.TracksTotal() != 2 {
			t.Errorf("metadata lost: %s/%d", playlist.Owner(), playlist.TracksTotal())
		}

		songs, err := repos.songs.ListByPlaylist(playlist.ID())
		if err != nil {
			t.Fatalf("failed to list songs: %v", err)
		}
		if len(songs) != 2 {
			t.Fatalf("got %d songs, want 2", len(songs))
		}
		if songs[0].ISRC() != "GBAYE9700123" {
			t.Errorf("isrc lost: %q", songs[0].ISRC())
		}

		if _, err := repos.artists.GetBySpotifyID("sp-a-1"); err != nil {
			t.Errorf("artist not persisted: %v", err)
		}
		if _, err := repos.albums.GetBySpotifyID("sp-al-1"); err != nil {
			t.Errorf("album not persisted: %v", err)
		}
	})

	t.Run("collapses duplicate editions within one fetch", func(t *testing.T) {
		db := setupTestDB(t)
		repos := newTestRepos(db)
		source := roadTripSource()
		source.tracks["sp-p-1"] = []services.SourceTrack{
			{ID: "sp-t-1", Title: "Karma Police", ArtistNames: []string{"Radiohead"}, ArtistID: "sp-a-1"},
			{ID: "sp-t-1b", Title: "Karma  Police", ArtistNames: []string{"Radiohead"}, ArtistID: "sp-a-1"},
		}
		coord := NewImportCoordinator(source, repos.playlists, repos.songs, repos.artists, repos.albums, nil)

		result, err := coord.Import(context.Background(), "sp-p-1", nil)
		if err != nil {
			t.Fatalf("import failed: %v", err)
		}
		if result.TracksStored != 1 {
			t.Errorf("stored %d tracks, want duplicate edition collapsed to 1", result.TracksStored)
		}

		playlist, _ := repos.playlists.GetBySpotifyID("sp-p-1")
		songs, err := repos.songs.ListByPlaylist(playlist.ID())
		if err != nil {
			t.Fatalf("failed to list songs: %v", err)
		}
		if len(songs) != 1 {
			t.Errorf("got %d songs, want 1", len(songs))
		}
	})

	t.Run("failure lands on failed with recorded error", func(t *testing.T) {
		db := setupTestDB(t)
		repos := newTestRepos(db)
		source := roadTripSource()
		source.tracksErr = errors.New("spotify 500")
		coord := NewImportCoordinator(source, repos.playlists, repos.songs, repos.artists, repos.albums, nil)

		if _, err := coord.Import(context.Background(), "sp-p-1", nil); err == nil {
			t.Fatal("import succeeded on track fetch failure")
		}

		playlist, err := repos.playlists.GetBySpotifyID("sp-p-1")
		if err != nil {
			t.Fatalf("playlist not persisted: %v", err)
		}
		if playlist.ImportStatus() != models.ImportFailed {
			t.Errorf("status = %s, want failed", playlist.ImportStatus())
		}
		if playlist.LastImportError() == "" {
			t.Error("failure reason not recorded")
		}
	})

	t.Run("retry re-queues a failed import", func(t *testing.T) {
		db := setupTestDB(t)
		repos := newTestRepos(db)
		source := roadTripSource()
		source.tracksErr = errors.New("spotify 500")
		coord := NewImportCoordinator(source, repos.playlists, repos.songs, repos.artists, repos.albums, nil)

		if _, err := coord.Import(context.Background(), "sp-p-1", nil); err == nil {
			t.Fatal("seed failure did not fail")
		}

		source.tracksErr = nil
		result, err := coord.Retry(context.Background(), "sp-p-1", nil)
		if err != nil {
			t.Fatalf("retry failed: %v", err)
		}
		if result.TracksStored != 2 {
			t.Errorf("result = %+v", result)
		}

		playlist, _ := repos.playlists.GetBySpotifyID("sp-p-1")
		if playlist.ImportStatus() != models.ImportCompleted {
			t.Errorf("status = %s, want completed", playlist.ImportStatus())
		}
		if playlist.LastImportError() != "" {
			t.Errorf("stale error survived retry: %q", playlist.LastImportError())
		}
	})

	t.Run("retry re-queues an interrupted import", func(t *testing.T) {
		db := setupTestDB(t)
		repos := newTestRepos(db)
		coord := NewImportCoordinator(roadTripSource(), repos.playlists, repos.songs, repos.artists, repos.albums, nil)

		// A run killed mid-import leaves in_progress persisted.
		playlist := models.NewPlaylist("sp-p-1", "Road Trip")
		if err := repos.playlists.Create(playlist); err != nil {
			t.Fatalf("seed: %v", err)
		}
		playlist.Restore(models.ImportInProgress, "", "")
		if err := repos.playlists.Update(playlist); err != nil {
			t.Fatalf("seed update: %v", err)
		}

		result, err := coord.Retry(context.Background(), "sp-p-1", nil)
		if err != nil {
			t.Fatalf("retry of interrupted import failed: %v", err)
		}
		if result.TracksStored != 2 {
			t.Errorf("result = %+v", result)
		}

		stored, _ := repos.playlists.GetBySpotifyID("sp-p-1")
		if stored.ImportStatus() != models.ImportCompleted {
			t.Errorf("status = %s, want completed", stored.ImportStatus())
		}
	})

	t.Run("retry of a completed playlist refreshes", func(t *testing.T) {
		db := setupTestDB(t)
		repos := newTestRepos(db)
		coord := NewImportCoordinator(roadTripSource(), repos.playlists, repos.songs, repos.artists, repos.albums, nil)

		if _, err := coord.Import(context.Background(), "sp-p-1", nil); err != nil {
			t.Fatalf("import failed: %v", err)
		}

		result, err := coord.Retry(context.Background(), "sp-p-1", nil)
		if err != nil {
			t.Fatalf("retry failed: %v", err)
		}
		if !result.Refreshed {
			t.Error("retry of a completed playlist should refresh, not re-run the lifecycle")
		}
	})

	t.Run("refuses concurrent import", func(t *testing.T) {
		db := setupTestDB(t)
		repos := newTestRepos(db)
		coord := NewImportCoordinator(roadTripSource(), repos.playlists, repos.songs, repos.artists, repos.albums, nil)

		playlist := models.NewPlaylist("sp-p-1", "Road Trip")
		if err := repos.playlists.Create(playlist); err != nil {
			t.Fatalf("seed: %v", err)
		}
		if err := playlist.TransitionImport(models.ImportInProgress, ""); err != nil {
			t.Fatalf("seed transition: %v", err)
		}
		if err := repos.playlists.Update(playlist); err != nil {
			t.Fatalf("seed update: %v", err)
		}

		_, err := coord.Import(context.Background(), "sp-p-1", nil)
		if !errors.Is(err, shared.ErrImportInProgress) {
			t.Errorf("err = %v, want ErrImportInProgress", err)
		}
	})

	t.Run("re-import converges and patches isrc", func(t *testing.T) {
		db := setupTestDB(t)
		repos := newTestRepos(db)
		source := roadTripSource()
		coord := NewImportCoordinator(source, repos.playlists, repos.songs, repos.artists, repos.albums, nil)

		if _, err := coord.Import(context.Background(), "sp-p-1", nil); err != nil {
			t.Fatalf("first import: %v", err)
		}

		// The source learned an ISRC for the second track since the last run.
		tracks := source.tracks["sp-p-1"]
		tracks[1].ISRC = "GBAAA9400100"

		result, err := coord.Import(context.Background(), "sp-p-1", nil)
		if err != nil {
			t.Fatalf("re-import: %v", err)
		}
		if !result.Refreshed {
			t.Error("re-import not flagged as refresh")
		}

		playlist, _ := repos.playlists.GetBySpotifyID("sp-p-1")
		count, err := repos.playlists.SongCount(playlist.ID())
		if err != nil {
			t.Fatalf("count: %v", err)
		}
		if count != 2 {
			t.Errorf("membership diverged: %d rows", count)
		}

		song, err := repos.songs.GetBySpotifyID("sp-t-2")
		if err != nil {
			t.Fatalf("song: %v", err)
		}
		if song.ISRC() != "GBAAA9400100" {
			t.Errorf("isrc not patched: %q", song.ISRC())
		}
	})
}

func TestLookupCoordinator(t *testing.T) {
	importRoadTrip := func(t *testing.T, repos testRepos) {
		t.Helper()
		coord := NewImportCoordinator(roadTripSource(), repos.playlists, repos.songs, repos.artists, repos.albums, nil)
		if _, err := coord.Import(context.Background(), "sp-p-1", nil); err != nil {
			t.Fatalf("seed import: %v", err)
		}
	}

	t.Run("resolves pending songs", func(t *testing.T) {
		db := setupTestDB(t)
		repos := newTestRepos(db)
		importRoadTrip(t, repos)

		resolver := &stubResolver{matches: map[string]*services.CatalogMatch{
			"sp-t-1": {TargetID: "td-1", Title: "Karma Police", ArtistNames: []string{"Radiohead"}},
		}}
		coord := NewLookupCoordinator(resolver, repos.playlists, repos.songs, repos.artists, repos.albums, nil)

		result, err := coord.Lookup(context.Background(), "sp-p-1", LookupOpts{}, nil)
		if err != nil {
			t.Fatalf("lookup failed: %v", err)
		}
		if result.Total != 2 || result.Matched != 1 || result.Unmatched != 1 || result.Failed != 0 {
			t.Errorf("result = %+v", result)
		}

		song, err := repos.songs.GetBySpotifyID("sp-t-1")
		if err != nil {
			t.Fatalf("song: %v", err)
		}
		if song.TidalID() != "td-1" {
			t.Errorf("match not persisted: %q", song.TidalID())
		}
		if len(song.LookupLog()) != 1 || song.LookupLog()[0].Outcome != models.LookupMatch {
			t.Errorf("lookup log = %+v", song.LookupLog())
		}
		trail := song.LookupTrail()
		if trail == nil {
			t.Fatal("no lookup trail recorded")
		}
		if trail.SearchedTitle != "Karma Police" || trail.SearchedArtist != "Radiohead" {
			t.Errorf("trail header = %q / %q", trail.SearchedTitle, trail.SearchedArtist)
		}
		if trail.Timestamp.IsZero() {
			t.Error("trail timestamp not set")
		}

		miss, _ := repos.songs.GetBySpotifyID("sp-t-2")
		if miss.Matched() {
			t.Error("unmatched song got a target id")
		}
		if len(miss.LookupLog()) != 1 || miss.LookupLog()[0].Outcome != models.LookupNoMatch {
			t.Errorf("miss log = %+v", miss.LookupLog())
		}
	})

	t.Run("second run only sees remaining songs", func(t *testing.T) {
		db := setupTestDB(t)
		repos := newTestRepos(db)
		importRoadTrip(t, repos)

		resolver := &stubResolver{matches: map[string]*services.CatalogMatch{
			"sp-t-1": {TargetID: "td-1", Title: "Karma Police"},
		}}
		coord := NewLookupCoordinator(resolver, repos.playlists, repos.songs, repos.artists, repos.albums, nil)

		if _, err := coord.Lookup(context.Background(), "sp-p-1", LookupOpts{}, nil); err != nil {
			t.Fatalf("first lookup: %v", err)
		}

		resolver.matches["sp-t-2"] = &services.CatalogMatch{TargetID: "td-2", Title: "Glory Box"}
		result, err := coord.Lookup(context.Background(), "sp-p-1", LookupOpts{}, nil)
		if err != nil {
			t.Fatalf("second lookup: %v", err)
		}
		if result.Total != 1 || result.Matched != 1 {
			t.Errorf("result = %+v, want only the remaining song", result)
		}
	})

	t.Run("requires completed import", func(t *testing.T) {
		db := setupTestDB(t)
		repos := newTestRepos(db)

		playlist := models.NewPlaylist("sp-p-9", "Queued")
		if err := repos.playlists.Create(playlist); err != nil {
			t.Fatalf("seed: %v", err)
		}

		coord := NewLookupCoordinator(&stubResolver{}, repos.playlists, repos.songs, repos.artists, repos.albums, nil)
		if _, err := coord.Lookup(context.Background(), "sp-p-9", LookupOpts{}, nil); err == nil {
			t.Error("lookup of a pending playlist allowed")
		}
	})
}

func TestSyncCoordinator(t *testing.T) {
	seed := func(t *testing.T, repos testRepos, matchBoth bool) {
		t.Helper()
		coord := NewImportCoordinator(roadTripSource(), repos.playlists, repos.songs, repos.artists, repos.albums, nil)
		if _, err := coord.Import(context.Background(), "sp-p-1", nil); err != nil {
			t.Fatalf("seed import: %v", err)
		}

		matches := map[string]*services.CatalogMatch{
			"sp-t-1": {TargetID: "td-1", Title: "Karma Police"},
		}
		if matchBoth {
			matches["sp-t-2"] = &services.CatalogMatch{TargetID: "td-2", Title: "Glory Box"}
		}
		lookup := NewLookupCoordinator(&stubResolver{matches: matches}, repos.playlists, repos.songs, repos.artists, repos.albums, nil)
		if _, err := lookup.Lookup(context.Background(), "sp-p-1", LookupOpts{}, nil); err != nil {
			t.Fatalf("seed lookup: %v", err)
		}
	}

	t.Run("creates playlist once and adds resolved tracks", func(t *testing.T) {
		db := setupTestDB(t)
		repos := newTestRepos(db)
		seed(t, repos, false)

		target := &stubTarget{}
		coord := NewSyncCoordinator(target, repos.playlists, repos.songs, nil)

		result, err := coord.Sync(context.Background(), "sp-p-1", nil)
		if err != nil {
			t.Fatalf("sync failed: %v", err)
		}
		if result.TracksAdded != 1 || result.TracksMissing != 1 || result.Skipped {
			t.Errorf("result = %+v", result)
		}
		if len(target.created) != 1 || len(target.added[result.TidalPlaylistID]) != 1 {
			t.Errorf("target calls: created=%v added=%v", target.created, target.added)
		}

		playlist, _ := repos.playlists.GetBySpotifyID("sp-p-1")
		if playlist.TidalPlaylistID() != result.TidalPlaylistID {
			t.Errorf("playlist link not persisted: %q", playlist.TidalPlaylistID())
		}

		// Second sync reuses the recorded playlist.
		again, err := coord.Sync(context.Background(), "sp-p-1", nil)
		if err != nil {
			t.Fatalf("second sync: %v", err)
		}
		if !again.Skipped || len(target.created) != 1 {
			t.Errorf("second sync created another playlist: %+v / %v", again, target.created)
		}
	})

	t.Run("creates empty playlist when nothing resolved", func(t *testing.T) {
		db := setupTestDB(t)
		repos := newTestRepos(db)
		importCoord := NewImportCoordinator(roadTripSource(), repos.playlists, repos.songs, repos.artists, repos.albums, nil)
		if _, err := importCoord.Import(context.Background(), "sp-p-1", nil); err != nil {
			t.Fatalf("seed import: %v", err)
		}

		target := &stubTarget{}
		coord := NewSyncCoordinator(target, repos.playlists, repos.songs, nil)

		result, err := coord.Sync(context.Background(), "sp-p-1", nil)
		if err != nil {
			t.Fatalf("sync of an unresolved playlist failed: %v", err)
		}
		if result.TracksAdded != 0 || result.TracksMissing != 2 || result.Skipped {
			t.Errorf("result = %+v", result)
		}
		if len(target.created) != 1 {
			t.Errorf("target playlist not created: %v", target.created)
		}
		if len(target.added) != 0 {
			t.Errorf("batch insert should be skipped for empty track list: %v", target.added)
		}

		playlist, _ := repos.playlists.GetBySpotifyID("sp-p-1")
		if playlist.TidalPlaylistID() != result.TidalPlaylistID {
			t.Errorf("playlist link not persisted: %q", playlist.TidalPlaylistID())
		}
	})

	t.Run("add failure keeps the playlist link for resume", func(t *testing.T) {
		db := setupTestDB(t)
		repos := newTestRepos(db)
		seed(t, repos, true)

		target := &stubTarget{addErr: errors.New("tidal 500")}
		coord := NewSyncCoordinator(target, repos.playlists, repos.songs, nil)

		if _, err := coord.Sync(context.Background(), "sp-p-1", nil); err == nil {
			t.Fatal("sync succeeded despite add failure")
		}

		playlist, _ := repos.playlists.GetBySpotifyID("sp-p-1")
		if !playlist.Synced() {
			t.Error("playlist link lost after add failure")
		}
	})

	t.Run("SyncAll aggregates outcomes", func(t *testing.T) {
		db := setupTestDB(t)
		repos := newTestRepos(db)
		seed(t, repos, true)

		// A second playlist whose target creation keeps failing.
		source := roadTripSource()
		source.playlists["sp-p-2"] = services.PlaylistInfo{ID: "sp-p-2", Name: "Empty", TrackCount: 1}
		source.tracks["sp-p-2"] = []services.SourceTrack{
			{ID: "sp-t-9", Title: "Obscurity", ArtistNames: []string{"Nobody"}, ArtistID: "sp-a-9"},
		}
		importCoord := NewImportCoordinator(source, repos.playlists, repos.songs, repos.artists, repos.albums, nil)
		if _, err := importCoord.Import(context.Background(), "sp-p-2", nil); err != nil {
			t.Fatalf("seed import: %v", err)
		}

		target := &stubTarget{createErr: errors.New("tidal 500"), failName: "Empty"}
		coord := NewSyncCoordinator(target, repos.playlists, repos.songs, nil)

		result, err := coord.SyncAll(context.Background(), nil)
		if err != nil {
			t.Fatalf("sync all: %v", err)
		}
		if result.Synced != 1 || result.Failed != 1 || result.Skipped != 0 {
			t.Errorf("result = %+v", result)
		}

		// Re-running skips the synced playlist and still fails the other.
		again, err := coord.SyncAll(context.Background(), nil)
		if err != nil {
			t.Fatalf("sync all again: %v", err)
		}
		if again.Skipped != 1 || again.Synced != 0 || again.Failed != 1 {
			t.Errorf("again = %+v", again)
		}
	})
}
