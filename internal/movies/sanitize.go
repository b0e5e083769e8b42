// Package movies implements the collection use cases: listing an account's
// movies and adding one looked up from the catalog.
package movies

import (
	"encoding/json"
	"time"

	"moviesvc/internal/external"
	"moviesvc/internal/types"
)

// notAvailable is the catalog's placeholder for an unknown value.
const notAvailable = "N/A"

// releasedLayouts are tried in order when parsing the catalog's Released
// field. The catalog normally sends "02 Jan 2006".
var releasedLayouts = []string{
	"02 Jan 2006",
	"2 Jan 2006",
	"2006-01-02",
	time.RFC3339,
	"Jan 2, 2006",
	"January 2, 2006",
	"2006-01",
	"2006",
}

// Sanitize turns a raw catalog record into a Movie, dropping any field that
// is not a usable value. It never fails; an empty Movie is a valid result.
func Sanitize(raw external.RawRecord) types.Movie {
	return types.Movie{
		Title:    textField(raw.Title),
		Genre:    textField(raw.Genre),
		Director: textField(raw.Director),
		Released: dateField(raw.Released),
	}
}

// textField keeps non-empty JSON strings other than "N/A".
func textField(raw json.RawMessage) *string {
	s, ok := jsonString(raw)
	if !ok || s == "" || s == notAvailable {
		return nil
	}
	return &s
}

func dateField(raw json.RawMessage) *time.Time {
	s, ok := jsonString(raw)
	if !ok || s == "" {
		return nil
	}
	for _, layout := range releasedLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

func jsonString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}
