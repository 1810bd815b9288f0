// package shared defines helpers used across the application
package shared

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// NewLogger builds a [log.Logger] writing to w with timestamps and caller
// reporting. A nil writer falls back to [os.Stderr].
func NewLogger(w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	return log.NewWithOptions(w, log.Options{ReportTimestamp: true, ReportCaller: true})
}

// GenerateID returns a new v4 [uuid.UUID] as a string.
func GenerateID() string {
	return uuid.New().String()
}

// NormalizeTrackKey builds a case-folded, whitespace-collapsed "title|artist" key
// used to de-duplicate tracks across catalogs.
func NormalizeTrackKey(title, artist string) string {
	return collapseSpaces(strings.ToLower(title)) + "|" + collapseSpaces(strings.ToLower(artist))
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
