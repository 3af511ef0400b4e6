package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestValidateInterval(t *testing.T) {
	p := DefaultPolicy()
	now := at("2025-06-01 10:00:00")

	tests := []struct {
		name     string
		checkIn  time.Time
		checkOut time.Time
		code     DateErrorCode
	}{
		{"today midnight is allowed", at("2025-06-01 00:00:00"), at("2025-06-01 23:59:59"), ""},
		{"exactly minimum stay", at("2025-06-02 10:00:00"), at("2025-06-02 22:00:00"), ""},
		{"multi-day stay", at("2025-06-02 14:00:00"), at("2025-06-05 11:00:00"), ""},
		{"check-in yesterday", at("2025-05-31 23:00:00"), at("2025-06-02 11:00:00"), DateErrorPastCheckIn},
		{"same instant", at("2025-06-02 10:00:00"), at("2025-06-02 10:00:00"), DateErrorInvertedRange},
		{"inverted", at("2025-06-03 10:00:00"), at("2025-06-02 10:00:00"), DateErrorInvertedRange},
		{"below minimum stay", at("2025-06-02 10:00:00"), at("2025-06-02 21:00:00"), DateErrorBelowMinimumStay},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.ValidateInterval(tt.checkIn, tt.checkOut, now)
			if tt.code == "" {
				assert.NoError(t, err)
				return
			}
			var dateErr *DateError
			require.True(t, errors.As(err, &dateErr))
			assert.Equal(t, tt.code, dateErr.Code)
		})
	}
}

func TestValidateInterval_MinimumStayFromPolicy(t *testing.T) {
	p := DefaultPolicy()
	p.MinimumStay = 2 * time.Hour
	now := at("2025-06-01 10:00:00")

	assert.NoError(t, p.ValidateInterval(at("2025-06-01 12:00:00"), at("2025-06-01 14:00:00"), now))

	err := p.ValidateInterval(at("2025-06-01 12:00:00"), at("2025-06-01 13:00:00"), now)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "minimum stay is 2 hours")
}

func TestNormalizeBoundary(t *testing.T) {
	p := DefaultPolicy()

	t.Run("Date-only check-in pins to midnight", func(t *testing.T) {
		got, dateOnly, err := p.NormalizeBoundary("2025-06-01", false)
		require.NoError(t, err)
		assert.True(t, dateOnly)
		assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), got)
	})

	t.Run("Date-only check-out pins to end of day", func(t *testing.T) {
		got, dateOnly, err := p.NormalizeBoundary("2025-06-03", true)
		require.NoError(t, err)
		assert.True(t, dateOnly)
		assert.Equal(t, time.Date(2025, 6, 3, 23, 59, 59, 999000000, time.UTC), got)
	})

	t.Run("Instant is kept", func(t *testing.T) {
		got, dateOnly, err := p.NormalizeBoundary("2025-06-03T11:30:00", true)
		require.NoError(t, err)
		assert.False(t, dateOnly)
		assert.Equal(t, time.Date(2025, 6, 3, 11, 30, 0, 0, time.UTC), got)
	})

	t.Run("RFC3339 with offset is converted", func(t *testing.T) {
		got, _, err := p.NormalizeBoundary("2025-06-03T11:30:00+02:00", false)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, 6, 3, 9, 30, 0, 0, time.UTC), got)
	})

	t.Run("Malformed", func(t *testing.T) {
		for _, raw := range []string{"2025/06/03", "", "tomorrow", "2025-13-01"} {
			_, _, err := p.NormalizeBoundary(raw, false)
			var dateErr *DateError
			require.True(t, errors.As(err, &dateErr), raw)
			assert.Equal(t, DateErrorMalformed, dateErr.Code)
		}
	})
}

func TestBillableDays(t *testing.T) {
	tests := []struct {
		from, to string
		expected int64
	}{
		{"2025-06-01 14:00:00", "2025-06-01 14:00:00", 1},
		{"2025-06-01 14:00:00", "2025-06-01 15:00:00", 1},
		{"2025-06-01 00:00:00", "2025-06-03 00:00:00", 2},
		{"2025-06-01 14:00:00", "2025-06-02 15:00:00", 2},
		{"2025-06-01 00:00:00", "2025-06-03 23:59:59", 3},
	}

	for _, tt := range tests {
		t.Run(tt.from+"→"+tt.to, func(t *testing.T) {
			assert.Equal(t, tt.expected, BillableDays(at(tt.from), at(tt.to)))
		})
	}
}

func TestTruncateToDay(t *testing.T) {
	assert.Equal(t, at("2025-01-03 00:00:00"), TruncateToDay(at("2025-01-03 11:00:00")))
	assert.Equal(t, at("2025-01-03 00:00:00"), TruncateToDay(at("2025-01-03 00:00:00")))
}

func TestCalendarDay_IgnoresLocation(t *testing.T) {
	kolkata := time.FixedZone("IST", 5*3600+1800)
	local := time.Date(2025, 6, 3, 1, 0, 0, 0, kolkata)
	assert.Equal(t, at("2025-06-03 00:00:00"), CalendarDay(local))
}

func TestBillableEnd(t *testing.T) {
	out := at("2025-06-03 23:59:59").Add(999 * time.Millisecond)
	assert.Equal(t, at("2025-06-03 00:00:00"), BillableEnd(out, true))
	assert.Equal(t, out, BillableEnd(out, false))
	assert.Equal(t, int64(2), BillableDays(at("2025-06-01 00:00:00"), BillableEnd(out, true)))
}
