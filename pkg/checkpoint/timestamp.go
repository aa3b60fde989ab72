package checkpoint

import (
	"math"
	"strings"
	"time"
)

// Layouts carrying their own UTC offset
var offsetLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04Z07:00",
}

// Layouts without an offset, interpreted in the caller's location.
// Fractional seconds are accepted after any seconds field.
var naiveLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 timestamp. Values without an offset are
// taken to be in loc. The second result is false when s matches no
// supported layout.
func ParseTimestamp(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}

	for _, layout := range offsetLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// nearest returns the entry whose CreatedAt is closest to t. Equidistant
// entries resolve to the earlier CreatedAt, then to the higher (Epoch, Batch).
func nearest(mds []Metadata, t time.Time) *Metadata {
	var pick *Metadata
	var pickDist time.Duration

	for i := range mds {
		md := mds[i]
		dist := absDuration(md.CreatedAt.Sub(t))
		if pick == nil || dist < pickDist {
			pick, pickDist = &mds[i], dist
			continue
		}
		if dist > pickDist {
			continue
		}
		switch {
		case md.CreatedAt.Before(pick.CreatedAt):
			pick = &mds[i]
		case md.CreatedAt.Equal(pick.CreatedAt) && Compare(md, *pick) > 0:
			pick = &mds[i]
		}
	}
	return pick
}

// absDuration saturates instead of overflowing for the most negative duration
func absDuration(d time.Duration) time.Duration {
	if d == math.MinInt64 {
		return math.MaxInt64
	}
	if d < 0 {
		return -d
	}
	return d
}
