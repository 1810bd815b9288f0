package models

import (
	"testing"
)

func TestImportStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to ImportStatus
		want     bool
	}{
		{ImportPending, ImportInProgress, true},
		{ImportInProgress, ImportCompleted, true},
		{ImportInProgress, ImportFailed, true},
		{ImportFailed, ImportPending, true},
		{ImportPending, ImportCompleted, false},
		{ImportPending, ImportFailed, false},
		{ImportCompleted, ImportInProgress, false},
		{ImportCompleted, ImportPending, false},
		{ImportFailed, ImportInProgress, false},
		{ImportInProgress, ImportPending, false},
	}

	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.want {
			t.Errorf("CanTransition(%s -> %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestPlaylistTransitionImport(t *testing.T) {
	p := NewPlaylist("sp-1", "Road Trip")

	if p.ImportStatus() != ImportPending {
		t.Fatalf("new playlist status = %s, want pending", p.ImportStatus())
	}

	if err := p.TransitionImport(ImportInProgress, ""); err != nil {
		t.Fatalf("pending -> in_progress: %v", err)
	}
	if err := p.TransitionImport(ImportFailed, "upstream 500"); err != nil {
		t.Fatalf("in_progress -> failed: %v", err)
	}
	if p.LastImportError() != "upstream 500" {
		t.Errorf("error not recorded: %q", p.LastImportError())
	}

	// Retry path clears the recorded error.
	if err := p.TransitionImport(ImportPending, ""); err != nil {
		t.Fatalf("failed -> pending: %v", err)
	}
	if p.LastImportError() != "" {
		t.Errorf("error survived retry reset: %q", p.LastImportError())
	}

	if err := p.TransitionImport(ImportCompleted, ""); err == nil {
		t.Error("pending -> completed allowed")
	}
}

func TestPlaylistTidalIDSetOnce(t *testing.T) {
	p := NewPlaylist("sp-1", "Road Trip")

	if p.Synced() {
		t.Fatal("new playlist reports synced")
	}
	if err := p.SetTidalPlaylistID("tp-1"); err != nil {
		t.Fatalf("first set: %v", err)
	}
	if !p.Synced() {
		t.Error("linked playlist not synced")
	}
	if err := p.SetTidalPlaylistID("tp-1"); err != nil {
		t.Errorf("idempotent set: %v", err)
	}
	if err := p.SetTidalPlaylistID("tp-2"); err == nil {
		t.Error("relink to a different playlist allowed")
	}
}

func TestSongPatchISRC(t *testing.T) {
	s := NewSong("sp-t1", "Karma Police", "art-1")

	if !s.PatchISRC("GBAYE9700123") {
		t.Error("patch of empty isrc rejected")
	}
	if s.PatchISRC("OTHER") {
		t.Error("existing isrc overwritten")
	}
	if s.ISRC() != "GBAYE9700123" {
		t.Errorf("isrc = %q", s.ISRC())
	}
	if s.PatchISRC("") {
		t.Error("empty patch accepted")
	}
}

func TestSongApplyMatch(t *testing.T) {
	s := NewSong("sp-t1", "Karma Police", "art-1")

	if s.Matched() {
		t.Fatal("new song reports matched")
	}
	s.ApplyMatch("td-9", "Karma Police", "Radiohead")
	if !s.Matched() || s.TidalID() != "td-9" {
		t.Errorf("match not applied: %+v", s)
	}
}

func TestValidate(t *testing.T) {
	t.Run("artist", func(t *testing.T) {
		if err := NewArtist("sp-a", "Radiohead").Validate(); err != nil {
			t.Errorf("valid artist: %v", err)
		}
		if err := NewArtist("", "Radiohead").Validate(); err == nil {
			t.Error("missing spotify id accepted")
		}
	})

	t.Run("album", func(t *testing.T) {
		if err := NewAlbum("sp-al", "OK Computer", "art-1").Validate(); err != nil {
			t.Errorf("valid album: %v", err)
		}
		if err := NewAlbum("sp-al", "OK Computer", "").Validate(); err == nil {
			t.Error("missing artist id accepted")
		}
	})

	t.Run("song", func(t *testing.T) {
		if err := NewSong("sp-t", "Airbag", "art-1").Validate(); err != nil {
			t.Errorf("valid song: %v", err)
		}
		if err := NewSong("sp-t", "", "art-1").Validate(); err == nil {
			t.Error("missing name accepted")
		}
	})

	t.Run("playlist", func(t *testing.T) {
		if err := NewPlaylist("sp-p", "Mix").Validate(); err != nil {
			t.Errorf("valid playlist: %v", err)
		}
		p := NewPlaylist("sp-p", "Mix")
		p.Restore("bogus", "", "")
		if err := p.Validate(); err == nil {
			t.Error("unknown status accepted")
		}
	})
}
