package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/crosstune/internal/ratelimit"
	"github.com/desertthunder/crosstune/internal/shared"
)

func testBudget() shared.RateLimitConfig {
	return shared.RateLimitConfig{Limit: 100, Period: 60}
}

func newTestTidal(t *testing.T, handler http.HandlerFunc) (*TidalService, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	svc := NewTidalService(StaticToken("test-token"), ratelimit.NewLimiter(nil), testBudget(), shared.NewLogger(nil))
	svc.SetBaseURL(server.URL)
	return svc, server
}

func trackJSON(id, title, artist, album, isrc string) map[string]any {
	track := map[string]any{
		"id": id,
		"attributes": map[string]any{
			"title":    title,
			"isrc":     isrc,
			"duration": 180,
		},
		"relationships": map[string]any{
			"artists": map[string]any{
				"data": []map[string]any{
					{"attributes": map[string]any{"name": artist}},
				},
			},
		},
	}
	if album != "" {
		track["relationships"].(map[string]any)["album"] = map[string]any{
			"data": map[string]any{"attributes": map[string]any{"title": album}},
		}
	}
	return track
}

func TestTidalSearchByCode(t *testing.T) {
	t.Run("hit", func(t *testing.T) {
		svc, _ := newTestTidal(t, func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
				t.Errorf("authorization header = %q", got)
			}
			if !strings.Contains(r.URL.RawQuery, "filter%5Bisrc%5D=GBAYE6500521") &&
				r.URL.Query().Get("filter[isrc]") != "GBAYE6500521" {
				t.Errorf("unexpected query: %s", r.URL.RawQuery)
			}
			json.NewEncoder(w).Encode(map[string]any{
				"data": []map[string]any{trackJSON("75623", "Yesterday", "The Beatles", "Help!", "GBAYE6500521")},
			})
		})

		match, err := svc.SearchByCode(context.Background(), "GBAYE6500521")
		if err != nil {
			t.Fatalf("SearchByCode failed: %v", err)
		}
		if match == nil {
			t.Fatal("expected a match")
		}
		if match.TargetID != "75623" || match.Title != "Yesterday" || match.ISRC != "GBAYE6500521" {
			t.Errorf("unexpected match: %+v", match)
		}
		if match.Artist() != "The Beatles" {
			t.Errorf("artist = %q", match.Artist())
		}
	})

	t.Run("no hit returns nil without error", func(t *testing.T) {
		svc, _ := newTestTidal(t, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
		})

		match, err := svc.SearchByCode(context.Background(), "NOPE")
		if err != nil {
			t.Fatalf("SearchByCode failed: %v", err)
		}
		if match != nil {
			t.Errorf("expected nil match, got %+v", match)
		}
	})
}

func TestTidalSearchTracks(t *testing.T) {
	svc, _ := newTestTidal(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("type"); got != "tracks" {
			t.Errorf("type = %q, want tracks", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"tracks": []map[string]any{
					trackJSON("1", "Yesterday", "The Beatles", "Help!", ""),
					trackJSON("2", "Yesterday Once More", "Carpenters", "", ""),
				},
			},
		})
	})

	matches, err := svc.SearchTracks(context.Background(), "yesterday beatles", 20)
	if err != nil {
		t.Fatalf("SearchTracks failed: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2", len(matches))
	}
	if matches[0].AlbumTitle != "Help!" {
		t.Errorf("album = %q, want Help!", matches[0].AlbumTitle)
	}
	if matches[1].AlbumTitle != "" {
		t.Errorf("expected empty album for second match, got %q", matches[1].AlbumTitle)
	}
}

func TestTidalSearchAlbums(t *testing.T) {
	svc, _ := newTestTidal(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"albums": []map[string]any{
					{
						"id":         "al-1",
						"attributes": map[string]any{"title": "Help!"},
						"relationships": map[string]any{
							"artists": map[string]any{
								"data": []map[string]any{{"attributes": map[string]any{"name": "The Beatles"}}},
							},
						},
					},
				},
			},
		})
	})

	albums, err := svc.SearchAlbums(context.Background(), "help beatles", 10)
	if err != nil {
		t.Fatalf("SearchAlbums failed: %v", err)
	}
	if len(albums) != 1 || albums[0].ID != "al-1" || albums[0].Artist() != "The Beatles" {
		t.Errorf("unexpected albums: %+v", albums)
	}
}

func TestTidalCreatePlaylist(t *testing.T) {
	svc, _ := newTestTidal(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != tidalJSONAPI {
			t.Errorf("content type = %q", ct)
		}

		var payload struct {
			Data struct {
				Type       string `json:"type"`
				Attributes struct {
					Title  string `json:"title"`
					Public bool   `json:"public"`
				} `json:"attributes"`
			} `json:"data"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("failed to decode payload: %v", err)
		}
		if payload.Data.Type != "playlists" || payload.Data.Attributes.Title != "Road Trip" {
			t.Errorf("unexpected payload: %+v", payload)
		}
		if payload.Data.Attributes.Public {
			t.Error("created playlists should be private")
		}

		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"id": "pl-uuid", "attributes": map[string]any{"title": "Road Trip"}},
		})
	})

	created, err := svc.CreatePlaylist(context.Background(), "Road Trip", "Synced from Spotify")
	if err != nil {
		t.Fatalf("CreatePlaylist failed: %v", err)
	}
	if created.ID != "pl-uuid" {
		t.Errorf("id = %q, want pl-uuid", created.ID)
	}
}

func TestTidalAddTracks(t *testing.T) {
	t.Run("batches requests", func(t *testing.T) {
		var batches [][]string
		svc, _ := newTestTidal(t, func(w http.ResponseWriter, r *http.Request) {
			var payload struct {
				Data []struct {
					ID string `json:"id"`
				} `json:"data"`
			}
			json.NewDecoder(r.Body).Decode(&payload)
			ids := make([]string, 0, len(payload.Data))
			for _, item := range payload.Data {
				ids = append(ids, item.ID)
			}
			batches = append(batches, ids)
			w.WriteHeader(http.StatusCreated)
		})
		svc.SetBatchSize(2)

		err := svc.AddTracks(context.Background(), "pl-uuid", []string{"1", "2", "3", "4", "5"})
		if err != nil {
			t.Fatalf("AddTracks failed: %v", err)
		}
		if len(batches) != 3 {
			t.Fatalf("got %d batches, want 3", len(batches))
		}
		if len(batches[0]) != 2 || len(batches[2]) != 1 {
			t.Errorf("unexpected batch sizes: %v", batches)
		}
	})

	t.Run("empty input is a no-op", func(t *testing.T) {
		svc, _ := newTestTidal(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("no request expected")
		})
		if err := svc.AddTracks(context.Background(), "pl-uuid", nil); err != nil {
			t.Fatalf("AddTracks failed: %v", err)
		}
	})

	t.Run("batch failure aborts remaining batches", func(t *testing.T) {
		calls := 0
		svc, _ := newTestTidal(t, func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusBadRequest)
		})
		svc.SetBatchSize(1)

		err := svc.AddTracks(context.Background(), "pl-uuid", []string{"1", "2", "3"})
		if err == nil {
			t.Fatal("expected error")
		}
		if calls != 1 {
			t.Errorf("calls = %d, want 1 (remaining batches aborted)", calls)
		}
	})
}

func TestTidalErrorClassification(t *testing.T) {
	svc, _ := newTestTidal(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := svc.SearchTracks(context.Background(), "anything", 10)
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsAuthentication(err) {
		t.Errorf("expected authentication error, got %v", err)
	}
}

func TestClientCredentials(t *testing.T) {
	t.Run("fetches and caches token", func(t *testing.T) {
		requests := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests++
			if err := r.ParseForm(); err != nil {
				t.Fatalf("failed to parse form: %v", err)
			}
			if got := r.Form.Get("grant_type"); got != "client_credentials" {
				t.Errorf("grant_type = %q", got)
			}
			json.NewEncoder(w).Encode(map[string]any{"access_token": "cc-token", "expires_in": 3600})
		}))
		defer server.Close()

		provider := NewClientCredentials(shared.TidalConfig{ClientID: "id", ClientSecret: "secret"})
		provider.SetTokenURL(server.URL)

		for i := 0; i < 3; i++ {
			token, err := provider.CurrentToken(context.Background(), TidalKey)
			if err != nil {
				t.Fatalf("CurrentToken failed: %v", err)
			}
			if token != "cc-token" {
				t.Errorf("token = %q", token)
			}
		}
		if requests != 1 {
			t.Errorf("token endpoint hit %d times, want 1 (cached)", requests)
		}
	})

	t.Run("missing credentials", func(t *testing.T) {
		provider := NewClientCredentials(shared.TidalConfig{})
		if _, err := provider.CurrentToken(context.Background(), TidalKey); err == nil {
			t.Error("expected error for missing credentials")
		}
	})
}
