package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPeriodCoversWholeDays(t *testing.T) {
	start := time.Date(2025, time.March, 1, 15, 30, 0, 0, time.UTC)
	end := time.Date(2025, time.March, 31, 8, 0, 0, 0, time.UTC)

	p, err := NewPeriod(start, end)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC), p.Start)
	assert.True(t, p.Contains(time.Date(2025, time.March, 31, 23, 59, 59, 0, time.UTC)))
	assert.True(t, p.Contains(p.Start))
	assert.False(t, p.Contains(time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)))
	assert.False(t, p.Contains(time.Date(2025, time.February, 28, 23, 59, 59, 0, time.UTC)))
}

func TestNewPeriodSingleDay(t *testing.T) {
	day := time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC)
	p, err := NewPeriod(day, day)
	require.NoError(t, err)
	assert.True(t, p.Contains(day.Add(12*time.Hour)))
}

func TestNewPeriodRejectsInvalidRange(t *testing.T) {
	_, err := NewPeriod(time.Date(2025, 2, 2, 0, 0, 0, 0, time.UTC), time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)

	_, err = NewPeriod(time.Time{}, time.Now())
	require.Error(t, err)
}
