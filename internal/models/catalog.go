package models

import "fmt"

// Artist is a source-catalog artist cached locally during playlist import.
type Artist struct {
	entity
	spotifyID string
	name      string
}

// NewArtist creates an Artist from source-catalog metadata.
func NewArtist(spotifyID, name string) *Artist {
	return &Artist{entity: newEntity(), spotifyID: spotifyID, name: name}
}

func (a *Artist) SpotifyID() string { return a.spotifyID }
func (a *Artist) Name() string      { return a.name }

func (a *Artist) SetName(name string) { a.name = name }

// Validate checks required fields.
func (a *Artist) Validate() error {
	if a.spotifyID == "" {
		return fmt.Errorf("artist missing spotify id")
	}
	if a.name == "" {
		return fmt.Errorf("artist missing name")
	}
	return nil
}

// Album is a source-catalog album cached locally during playlist import.
type Album struct {
	entity
	spotifyID string
	name      string
	artistID  string
	imageURL  string
}

// NewAlbum creates an Album linked to a persisted artist.
func NewAlbum(spotifyID, name, artistID string) *Album {
	return &Album{entity: newEntity(), spotifyID: spotifyID, name: name, artistID: artistID}
}

func (a *Album) SpotifyID() string { return a.spotifyID }
func (a *Album) Name() string      { return a.name }
func (a *Album) ArtistID() string  { return a.artistID }
func (a *Album) ImageURL() string  { return a.imageURL }

func (a *Album) SetName(name string)     { a.name = name }
func (a *Album) SetImageURL(url string)  { a.imageURL = url }

// Validate checks required fields.
func (a *Album) Validate() error {
	if a.spotifyID == "" {
		return fmt.Errorf("album missing spotify id")
	}
	if a.name == "" {
		return fmt.Errorf("album missing name")
	}
	if a.artistID == "" {
		return fmt.Errorf("album missing artist id")
	}
	return nil
}
