package repository

import "time"

// Layouts accepted when reading timestamps back. Rows written by the
// repository use the first; the second matches sqlite's CURRENT_TIMESTAMP for
// rows inserted by hand.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	var err error
	for _, layout := range timeLayouts {
		var t time.Time
		t, err = time.Parse(layout, raw)
		if err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, err
}
