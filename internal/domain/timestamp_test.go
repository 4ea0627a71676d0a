package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/K11E3R/moroccan-education-API/internal/domain"
)

func TestTimestamp_AcceptsLegacyFormats(t *testing.T) {
	t.Parallel()

	want := time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)
	for _, raw := range []string{
		`"2025-01-15T10:30:00Z"`,
		`"2025-01-15T11:30:00+01:00"`,
		`"2025-01-15T10:30:00.123456"`,
		`"2025-01-15 10:30:00"`,
	} {
		var ts domain.Timestamp
		require.NoError(t, json.Unmarshal([]byte(raw), &ts), raw)
		assert.True(t, want.Equal(ts.Time), "%s decoded as %s", raw, ts)
	}
}

func TestTimestamp_MarshalsRFC3339(t *testing.T) {
	t.Parallel()

	ts := domain.NewTimestamp(time.Date(2025, 1, 15, 10, 30, 0, 999, time.UTC))
	out, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.JSONEq(t, `"2025-01-15T10:30:00Z"`, string(out))

	out, err = json.Marshal(domain.Timestamp{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(out))
}

func TestTimestamp_RejectsGarbage(t *testing.T) {
	t.Parallel()

	var ts domain.Timestamp
	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &ts))
}
