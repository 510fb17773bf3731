package slots

import (
	"testing"

	"besedka/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartTimes(t *testing.T) {
	s := DefaultSchedule()
	times := s.StartTimes()

	require.Len(t, times, 26) // 13 hours * 2
	assert.Equal(t, models.Clock(8, 0), times[0])
	assert.Equal(t, models.Clock(8, 30), times[1])
	assert.Equal(t, models.Clock(20, 30), times[len(times)-1])

	hourly := Schedule{WorkStart: 8, WorkEnd: 21, StepMinutes: 60}
	assert.Len(t, hourly.StartTimes(), 13)
}

func TestEndTimes(t *testing.T) {
	s := DefaultSchedule()

	tests := []struct {
		name  string
		start models.TimeOfDay
		first models.TimeOfDay
		count int
	}{
		{"opening", models.Clock(8, 0), models.Clock(10, 0), 23},
		{"afternoon", models.Clock(13, 0), models.Clock(15, 0), 13},
		{"last possible start", models.Clock(19, 0), models.Clock(21, 0), 1},
		{"off grid start", models.Clock(9, 15), models.Clock(11, 30), 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ends := s.EndTimes(tt.start)
			require.Len(t, ends, tt.count)
			assert.Equal(t, tt.first, ends[0])
			assert.Equal(t, models.Clock(21, 0), ends[len(ends)-1])
			for _, e := range ends {
				assert.GreaterOrEqual(t, int(e-tt.start), 120)
			}
		})
	}
}

func TestEndTimes_TooLate(t *testing.T) {
	s := DefaultSchedule()
	assert.Empty(t, s.EndTimes(models.Clock(19, 30)))
	assert.Empty(t, s.EndTimes(models.Clock(20, 30)))
}

func TestParseStart(t *testing.T) {
	s := DefaultSchedule()
	tests := []struct {
		input string
		ok    bool
	}{
		{"08:00", true},
		{"20:59", true},
		{"07:59", false},
		{"21:00", false},
		{"8:00", false},
		{"abc", false},
		{" 10:00 ", true},
	}
	for _, tt := range tests {
		_, err := s.ParseStart(tt.input)
		assert.Equal(t, tt.ok, err == nil, "input: %q", tt.input)
	}

	_, err := s.ParseStart("21:00")
	assert.ErrorIs(t, err, ErrOutsideWorkingHours)
	_, err = s.ParseStart("25:00")
	assert.ErrorIs(t, err, models.ErrInvalidTime)
}

func TestParseEnd(t *testing.T) {
	s := DefaultSchedule()
	tests := []struct {
		input string
		ok    bool
	}{
		{"21:00", true},
		{"21:30", false},
		{"09:00", true},
		{"08:30", false},
		{"08:00", false},
		{"20:59", true},
	}
	for _, tt := range tests {
		_, err := s.ParseEnd(tt.input)
		assert.Equal(t, tt.ok, err == nil, "input: %q", tt.input)
	}
}

func TestOnGrid(t *testing.T) {
	s := DefaultSchedule()
	assert.True(t, s.OnGrid(models.Clock(8, 0)))
	assert.True(t, s.OnGrid(models.Clock(21, 0)))
	assert.False(t, s.OnGrid(models.Clock(9, 15)))
	assert.False(t, s.OnGrid(models.Clock(7, 30)))
	assert.False(t, s.OnGrid(models.Clock(21, 30)))
}
