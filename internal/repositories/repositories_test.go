package repositories

import (
	"database/sql"
	"testing"
	"time"

	"github.com/desertthunder/crosstune/internal/models"
	"github.com/desertthunder/crosstune/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		t.Fatalf("failed to enable foreign keys: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

// seedArtist creates an artist and returns it
func seedArtist(t *testing.T, db *sql.DB, spotifyID, name string) *models.Artist {
	t.Helper()

	artist, err := NewArtistRepository(db).FindOrCreate(spotifyID, name)
	if err != nil {
		t.Fatalf("failed to seed artist: %v", err)
	}
	return artist
}

func TestArtistRepository(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewArtistRepository(db)
		artist := models.NewArtist("sp-art-1", "Radiohead")

		if err := repo.Create(artist); err != nil {
			t.Fatalf("failed to create artist: %v", err)
		}

		if artist.ID() == "" {
			t.Error("artist ID should be set after creation")
		}
		if artist.Sequence() != 1 {
			t.Errorf("expected sequence 1, got %d", artist.Sequence())
		}
	})

	t.Run("FindOrCreate returns existing", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewArtistRepository(db)

		first, err := repo.FindOrCreate("sp-art-1", "Radiohead")
		if err != nil {
			t.Fatalf("failed to create artist: %v", err)
		}

		second, err := repo.FindOrCreate("sp-art-1", "Radiohead")
		if err != nil {
			t.Fatalf("failed to find artist: %v", err)
		}

		if first.ID() != second.ID() {
			t.Errorf("FindOrCreate created a duplicate: %s vs %s", first.ID(), second.ID())
		}
	})

	t.Run("Delete hides artist", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewArtistRepository(db)
		artist := models.NewArtist("sp-art-1", "Radiohead")
		if err := repo.Create(artist); err != nil {
			t.Fatalf("failed to create artist: %v", err)
		}

		if err := repo.Delete(artist.ID()); err != nil {
			t.Fatalf("failed to delete artist: %v", err)
		}

		if _, err := repo.Get(artist.ID()); err == nil {
			t.Error("soft-deleted artist still retrievable")
		}
	})
}

func TestAlbumRepository(t *testing.T) {
	t.Run("Create and Get", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		artist := seedArtist(t, db, "sp-art-1", "Radiohead")

		repo := NewAlbumRepository(db)
		album := models.NewAlbum("sp-alb-1", "OK Computer", artist.ID())
		album.SetImageURL("https://img.example/ok.jpg")

		if err := repo.Create(album); err != nil {
			t.Fatalf("failed to create album: %v", err)
		}

		retrieved, err := repo.Get(album.ID())
		if err != nil {
			t.Fatalf("failed to get album: %v", err)
		}
		if retrieved.Name() != "OK Computer" || retrieved.ArtistID() != artist.ID() {
			t.Errorf("retrieved = %s/%s", retrieved.Name(), retrieved.ArtistID())
		}
		if retrieved.ImageURL() != "https://img.example/ok.jpg" {
			t.Errorf("image url = %q", retrieved.ImageURL())
		}
	})

	t.Run("List by artist", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		artist := seedArtist(t, db, "sp-art-1", "Radiohead")
		other := seedArtist(t, db, "sp-art-2", "Portishead")

		repo := NewAlbumRepository(db)
		for i, spec := range []struct{ id, name, artist string }{
			{"sp-alb-1", "OK Computer", artist.ID()},
			{"sp-alb-2", "Kid A", artist.ID()},
			{"sp-alb-3", "Dummy", other.ID()},
		} {
			if err := repo.Create(models.NewAlbum(spec.id, spec.name, spec.artist)); err != nil {
				t.Fatalf("failed to create album %d: %v", i, err)
			}
		}

		albums, err := repo.List(map[string]any{"artist_id": artist.ID()})
		if err != nil {
			t.Fatalf("failed to list albums: %v", err)
		}
		if len(albums) != 2 {
			t.Errorf("got %d albums, want 2", len(albums))
		}
	})
}

func TestSongRepository(t *testing.T) {
	t.Run("Create round trips resolution state", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		artist := seedArtist(t, db, "sp-art-1", "Radiohead")

		repo := NewSongRepository(db)
		song := models.NewSong("sp-t-1", "Karma Police", artist.ID())
		song.SetISRC("GBAYE9700123")
		song.ApplyMatch("td-9", "Karma Police", "Radiohead")
		song.SetLookupTrail(&models.LookupTrail{
			Timestamp:      time.Now().UTC(),
			SearchedTitle:  "Karma Police",
			SearchedArtist: "Radiohead",
			Strategies: []models.LookupRecord{
				{Timestamp: time.Now().UTC(), Strategy: "isrc", Query: "GBAYE9700123", Outcome: models.LookupMatch},
			},
		})

		if err := repo.Create(song); err != nil {
			t.Fatalf("failed to create song: %v", err)
		}

		retrieved, err := repo.GetBySpotifyID("sp-t-1")
		if err != nil {
			t.Fatalf("failed to get song: %v", err)
		}
		if !retrieved.Matched() || retrieved.TidalID() != "td-9" {
			t.Errorf("resolution state lost: %+v", retrieved)
		}
		if retrieved.ISRC() != "GBAYE9700123" {
			t.Errorf("isrc = %q", retrieved.ISRC())
		}

		trail := retrieved.LookupTrail()
		if trail == nil {
			t.Fatal("lookup trail lost")
		}
		if trail.SearchedTitle != "Karma Police" || trail.SearchedArtist != "Radiohead" {
			t.Errorf("trail header = %q / %q", trail.SearchedTitle, trail.SearchedArtist)
		}
		if trail.Timestamp.IsZero() {
			t.Error("trail timestamp lost")
		}
		if len(trail.Strategies) != 1 || trail.Strategies[0].Strategy != "isrc" || trail.Strategies[0].Outcome != models.LookupMatch {
			t.Errorf("trail strategies = %+v", trail.Strategies)
		}
	})

	t.Run("FindOrCreate patches missing isrc", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		artist := seedArtist(t, db, "sp-art-1", "Radiohead")
		repo := NewSongRepository(db)

		first := models.NewSong("sp-t-1", "Karma Police", artist.ID())
		if _, err := repo.FindOrCreate(first); err != nil {
			t.Fatalf("failed to create song: %v", err)
		}

		second := models.NewSong("sp-t-1", "Karma Police", artist.ID())
		second.SetISRC("GBAYE9700123")
		patched, err := repo.FindOrCreate(second)
		if err != nil {
			t.Fatalf("failed to find song: %v", err)
		}
		if patched.ISRC() != "GBAYE9700123" {
			t.Errorf("isrc not patched: %q", patched.ISRC())
		}

		retrieved, err := repo.GetBySpotifyID("sp-t-1")
		if err != nil {
			t.Fatalf("failed to re-read song: %v", err)
		}
		if retrieved.ISRC() != "GBAYE9700123" {
			t.Errorf("isrc patch not persisted: %q", retrieved.ISRC())
		}
	})

	t.Run("FindOrCreate never overwrites a known isrc", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		artist := seedArtist(t, db, "sp-art-1", "Radiohead")
		repo := NewSongRepository(db)

		first := models.NewSong("sp-t-1", "Karma Police", artist.ID())
		first.SetISRC("ORIGINAL")
		if _, err := repo.FindOrCreate(first); err != nil {
			t.Fatalf("failed to create song: %v", err)
		}

		second := models.NewSong("sp-t-1", "Karma Police", artist.ID())
		second.SetISRC("DIFFERENT")
		kept, err := repo.FindOrCreate(second)
		if err != nil {
			t.Fatalf("failed to find song: %v", err)
		}
		if kept.ISRC() != "ORIGINAL" {
			t.Errorf("isrc overwritten: %q", kept.ISRC())
		}
	})

	t.Run("Update replaces lookup trail", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		artist := seedArtist(t, db, "sp-art-1", "Radiohead")
		repo := NewSongRepository(db)

		song := models.NewSong("sp-t-1", "Karma Police", artist.ID())
		song.SetLookupTrail(&models.LookupTrail{
			Timestamp:      time.Now().UTC(),
			SearchedTitle:  "Karma Police",
			SearchedArtist: "Radiohead",
			Strategies: []models.LookupRecord{
				{Strategy: "exact", Query: "old run", Outcome: models.LookupNoMatch},
				{Strategy: "track_only", Query: "old run 2", Outcome: models.LookupNoMatch},
			},
		})
		if err := repo.Create(song); err != nil {
			t.Fatalf("failed to create song: %v", err)
		}

		song.SetLookupTrail(&models.LookupTrail{
			Timestamp:      time.Now().UTC(),
			SearchedTitle:  "Karma Police",
			SearchedArtist: "Radiohead",
			Strategies: []models.LookupRecord{
				{Strategy: "isrc", Query: "new run", Outcome: models.LookupMatch},
			},
		})
		if err := repo.Update(song); err != nil {
			t.Fatalf("failed to update song: %v", err)
		}

		retrieved, err := repo.Get(song.ID())
		if err != nil {
			t.Fatalf("failed to get song: %v", err)
		}
		log := retrieved.LookupLog()
		if len(log) != 1 || log[0].Query != "new run" {
			t.Errorf("old run survived: %+v", log)
		}
	})
}

func TestPlaylistRepository(t *testing.T) {
	t.Run("Create defaults to pending import", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewPlaylistRepository(db)
		playlist := models.NewPlaylist("sp-p-1", "Road Trip")

		if err := repo.Create(playlist); err != nil {
			t.Fatalf("failed to create playlist: %v", err)
		}

		retrieved, err := repo.GetBySpotifyID("sp-p-1")
		if err != nil {
			t.Fatalf("failed to get playlist: %v", err)
		}
		if retrieved.ImportStatus() != models.ImportPending {
			t.Errorf("status = %s, want pending", retrieved.ImportStatus())
		}
	})

	t.Run("Update persists lifecycle and sync link", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewPlaylistRepository(db)
		playlist := models.NewPlaylist("sp-p-1", "Road Trip")
		if err := repo.Create(playlist); err != nil {
			t.Fatalf("failed to create playlist: %v", err)
		}

		if err := playlist.TransitionImport(models.ImportInProgress, ""); err != nil {
			t.Fatalf("transition: %v", err)
		}
		if err := playlist.TransitionImport(models.ImportFailed, "spotify 500"); err != nil {
			t.Fatalf("transition: %v", err)
		}
		if err := playlist.SetTidalPlaylistID("tp-1"); err != nil {
			t.Fatalf("set target playlist: %v", err)
		}
		if err := repo.Update(playlist); err != nil {
			t.Fatalf("failed to update playlist: %v", err)
		}

		retrieved, err := repo.Get(playlist.ID())
		if err != nil {
			t.Fatalf("failed to get playlist: %v", err)
		}
		if retrieved.ImportStatus() != models.ImportFailed || retrieved.LastImportError() != "spotify 500" {
			t.Errorf("lifecycle lost: %s/%q", retrieved.ImportStatus(), retrieved.LastImportError())
		}
		if retrieved.TidalPlaylistID() != "tp-1" || !retrieved.Synced() {
			t.Errorf("sync link lost: %q", retrieved.TidalPlaylistID())
		}
	})

	t.Run("List filters by status", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewPlaylistRepository(db)
		for _, id := range []string{"sp-p-1", "sp-p-2"} {
			if err := repo.Create(models.NewPlaylist(id, "List "+id)); err != nil {
				t.Fatalf("failed to create playlist: %v", err)
			}
		}

		done := models.NewPlaylist("sp-p-3", "Done")
		if err := repo.Create(done); err != nil {
			t.Fatalf("failed to create playlist: %v", err)
		}
		done.Restore(models.ImportCompleted, "", "")
		if err := repo.Update(done); err != nil {
			t.Fatalf("failed to update playlist: %v", err)
		}

		pending, err := repo.List(map[string]any{"import_status": string(models.ImportPending)})
		if err != nil {
			t.Fatalf("failed to list playlists: %v", err)
		}
		if len(pending) != 2 {
			t.Errorf("got %d pending playlists, want 2", len(pending))
		}
	})

	t.Run("AttachSongs has set semantics", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		artist := seedArtist(t, db, "sp-art-1", "Radiohead")
		songs := NewSongRepository(db)

		var ids []string
		for _, spotifyID := range []string{"sp-t-1", "sp-t-2"} {
			song := models.NewSong(spotifyID, "Track "+spotifyID, artist.ID())
			if err := songs.Create(song); err != nil {
				t.Fatalf("failed to create song: %v", err)
			}
			ids = append(ids, song.ID())
		}

		repo := NewPlaylistRepository(db)
		playlist := models.NewPlaylist("sp-p-1", "Road Trip")
		if err := repo.Create(playlist); err != nil {
			t.Fatalf("failed to create playlist: %v", err)
		}

		if err := repo.AttachSongs(playlist.ID(), ids); err != nil {
			t.Fatalf("failed to attach songs: %v", err)
		}
		// Re-importing the same tracks converges.
		if err := repo.AttachSongs(playlist.ID(), ids); err != nil {
			t.Fatalf("failed to re-attach songs: %v", err)
		}

		count, err := repo.SongCount(playlist.ID())
		if err != nil {
			t.Fatalf("failed to count songs: %v", err)
		}
		if count != 2 {
			t.Errorf("song count = %d, want 2", count)
		}
	})

	t.Run("MatchedCount tracks resolution progress", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		artist := seedArtist(t, db, "sp-art-1", "Radiohead")
		songs := NewSongRepository(db)

		matched := models.NewSong("sp-t-1", "Karma Police", artist.ID())
		matched.ApplyMatch("td-1", "Karma Police", "Radiohead")
		unmatched := models.NewSong("sp-t-2", "Obscure B-Side", artist.ID())
		for _, song := range []*models.Song{matched, unmatched} {
			if err := songs.Create(song); err != nil {
				t.Fatalf("failed to create song: %v", err)
			}
		}

		repo := NewPlaylistRepository(db)
		playlist := models.NewPlaylist("sp-p-1", "Road Trip")
		if err := repo.Create(playlist); err != nil {
			t.Fatalf("failed to create playlist: %v", err)
		}
		if err := repo.AttachSongs(playlist.ID(), []string{matched.ID(), unmatched.ID()}); err != nil {
			t.Fatalf("failed to attach songs: %v", err)
		}

		count, err := repo.MatchedCount(playlist.ID())
		if err != nil {
			t.Fatalf("failed to count matched: %v", err)
		}
		if count != 1 {
			t.Errorf("matched count = %d, want 1", count)
		}

		pending, err := songs.ListPendingLookup(playlist.ID())
		if err != nil {
			t.Fatalf("failed to list pending: %v", err)
		}
		if len(pending) != 1 || pending[0].SpotifyID() != "sp-t-2" {
			t.Errorf("pending = %+v", pending)
		}
	})
}

func TestNextSequenceIncrements(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	for want := 1; want <= 3; want++ {
		got, err := NextSequence(db, "songs")
		if err != nil {
			t.Fatalf("failed to get sequence: %v", err)
		}
		if got != want {
			t.Errorf("sequence = %d, want %d", got, want)
		}
	}
}
