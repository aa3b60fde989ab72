package checkpoint

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	berlin := time.FixedZone("CEST", 2*60*60)

	tests := []struct {
		input string
		want  time.Time
	}{
		{"2026-10-17T09:00:00Z", time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)},
		{"2026-10-17T09:00:00.250Z", time.Date(2026, 10, 17, 9, 0, 0, 250e6, time.UTC)},
		{"2026-10-17T11:00:00+02:00", time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)},
		{"2026-10-17 11:00:00+02:00", time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)},
		{"2026-10-17T11:00+02:00", time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)},
		{"2026-10-17T11:00:00", time.Date(2026, 10, 17, 11, 0, 0, 0, berlin)},
		{"2026-10-17T11:00:00.5", time.Date(2026, 10, 17, 11, 0, 0, 5e8, berlin)},
		{"2026-10-17 11:00:00", time.Date(2026, 10, 17, 11, 0, 0, 0, berlin)},
		{"2026-10-17T11:00", time.Date(2026, 10, 17, 11, 0, 0, 0, berlin)},
		{"2026-10-17", time.Date(2026, 10, 17, 0, 0, 0, 0, berlin)},
		{"  2026-10-17T09:00:00Z  ", time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			got, ok := ParseTimestamp(test.input, berlin)
			require.True(t, ok)
			assert.True(t, test.want.Equal(got), "want %v, got %v", test.want, got)
		})
	}
}

func TestParseTimestampRejects(t *testing.T) {
	for _, input := range []string{
		"",
		"yesterday",
		"2026-13-01",
		"2026-10-17T25:00:00Z",
		"17/10/2026",
		"1760691600",
	} {
		_, ok := ParseTimestamp(input, time.UTC)
		assert.False(t, ok, "input %q", input)
	}
}

func TestParseTimestampNilLocation(t *testing.T) {
	got, ok := ParseTimestamp("2026-10-17T09:00:00", nil)
	require.True(t, ok)
	assert.True(t, time.Date(2026, 10, 17, 9, 0, 0, 0, time.Local).Equal(got))
}

func TestNearest(t *testing.T) {
	base := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	mds := []Metadata{
		meta(1, 0, base),
		meta(2, 0, base.Add(10*time.Minute)),
		meta(3, 0, base.Add(20*time.Minute)),
	}

	tests := []struct {
		name  string
		at    time.Time
		epoch int
	}{
		{"before all", base.Add(-time.Hour), 1},
		{"after all", base.Add(time.Hour), 3},
		{"exact", base.Add(10 * time.Minute), 2},
		{"closer to second", base.Add(6 * time.Minute), 2},
		{"closer to first", base.Add(4 * time.Minute), 1},
		{"equidistant prefers earlier", base.Add(15 * time.Minute), 2},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			pick := nearest(mds, test.at)
			require.NotNil(t, pick)
			assert.Equal(t, test.epoch, pick.Epoch)
		})
	}
}

func TestNearestSameCreatedAtPrefersHigherProgress(t *testing.T) {
	base := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	mds := []Metadata{meta(1, 7, base), meta(1, 9, base), meta(1, 8, base)}

	pick := nearest(mds, base.Add(time.Minute))
	require.NotNil(t, pick)
	assert.Equal(t, 9, pick.Batch)
}

func TestNearestEmpty(t *testing.T) {
	assert.Nil(t, nearest(nil, time.Now()))
}

func TestNearestExtremeTimes(t *testing.T) {
	mds := []Metadata{meta(0, 0, time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC))}

	pick := nearest(mds, time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NotNil(t, pick)
	assert.Equal(t, 0, pick.Epoch)
}
