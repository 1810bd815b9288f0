// package formatter renders playlist sync reports to various formats (CSV, Markdown, plain text, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/desertthunder/crosstune/internal/models"
)

// Report is a flattened view of one playlist's sync state, ready to render.
type Report struct {
	Playlist *models.Playlist
	Rows     []Row
}

// Row is one track of a report with its resolution outcome.
type Row struct {
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	Album      string `json:"album,omitempty"`
	ISRC       string `json:"isrc,omitempty"`
	TidalID    string `json:"tidal_id,omitempty"`
	TidalTitle string `json:"tidal_title,omitempty"`
	Matched    bool   `json:"matched"`
	Attempts   int    `json:"attempts"`
}

// MatchedCount returns how many rows resolved to a target track.
func (r *Report) MatchedCount() int {
	count := 0
	for _, row := range r.Rows {
		if row.Matched {
			count++
		}
	}
	return count
}

// BuildRow flattens a song and its artist/album names into a report row.
func BuildRow(song *models.Song, artist, album string) Row {
	return Row{
		Title:      song.Name(),
		Artist:     artist,
		Album:      album,
		ISRC:       song.ISRC(),
		TidalID:    song.TidalID(),
		TidalTitle: song.TidalTrackName(),
		Matched:    song.Matched(),
		Attempts:   len(song.LookupLog()),
	}
}

// ToCSV renders the report as CSV with columns: Title, Artist, Album, ISRC, Matched, TidalID, TidalTitle, Attempts
func ToCSV(report *Report) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Title", "Artist", "Album", "ISRC", "Matched", "TidalID", "TidalTitle", "Attempts"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, row := range report.Rows {
		record := []string{
			row.Title,
			row.Artist,
			row.Album,
			row.ISRC,
			strconv.FormatBool(row.Matched),
			row.TidalID,
			row.TidalTitle,
			strconv.Itoa(row.Attempts),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ToMarkdown renders the report as a Markdown document with a summary header
// and one list entry per track.
func ToMarkdown(report *Report) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", report.Playlist.Name()))

	if report.Playlist.Owner() != "" {
		buf.WriteString(fmt.Sprintf("**Owner**: %s\n\n", report.Playlist.Owner()))
	}

	matched := report.MatchedCount()
	buf.WriteString(fmt.Sprintf("**Tracks**: %d\n", len(report.Rows)))
	buf.WriteString(fmt.Sprintf("**Matched**: %d/%d\n", matched, len(report.Rows)))
	buf.WriteString(fmt.Sprintf("**Import**: %s\n", report.Playlist.ImportStatus()))
	if report.Playlist.Synced() {
		buf.WriteString(fmt.Sprintf("**Tidal playlist**: %s\n", report.Playlist.TidalPlaylistID()))
	}
	buf.WriteString("\n## Tracks\n\n")

	for i, row := range report.Rows {
		marker := "✗"
		if row.Matched {
			marker = "✓"
		}
		albumPart := ""
		if row.Album != "" {
			albumPart = fmt.Sprintf(" (%s)", row.Album)
		}
		buf.WriteString(fmt.Sprintf("%d. %s %s - %s%s\n", i+1, marker, row.Artist, row.Title, albumPart))
	}

	return buf.Bytes(), nil
}

// ToText renders the report as plain text.
func ToText(report *Report) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Playlist: %s\n", report.Playlist.Name()))
	buf.WriteString(fmt.Sprintf("Matched: %d/%d\n\n", report.MatchedCount(), len(report.Rows)))

	for i, row := range report.Rows {
		buf.WriteString(fmt.Sprintf("%d. %s - %s", i+1, row.Artist, row.Title))
		if row.Matched {
			buf.WriteString(fmt.Sprintf(" -> %s", row.TidalTitle))
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// ToJSON renders the report rows plus a small summary as indented JSON.
func ToJSON(report *Report) ([]byte, error) {
	payload := struct {
		Playlist string `json:"playlist"`
		Status   string `json:"import_status"`
		TidalID  string `json:"tidal_playlist_id,omitempty"`
		Matched  int    `json:"matched"`
		Total    int    `json:"total"`
		Tracks   []Row  `json:"tracks"`
	}{
		Playlist: report.Playlist.Name(),
		Status:   string(report.Playlist.ImportStatus()),
		TidalID:  report.Playlist.TidalPlaylistID(),
		Matched:  report.MatchedCount(),
		Total:    len(report.Rows),
		Tracks:   report.Rows,
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	return data, nil
}

// WriteReport renders the report in the given format (csv, markdown, txt, or
// json) and writes it to path. Unknown formats fall back to JSON.
func WriteReport(report *Report, format, path string) error {
	var (
		data []byte
		err  error
	)

	switch format {
	case "csv":
		data, err = ToCSV(report)
	case "markdown", "md":
		data, err = ToMarkdown(report)
	case "txt", "text":
		data, err = ToText(report)
	default:
		data, err = ToJSON(report)
	}
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	return nil
}
