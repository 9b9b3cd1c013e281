package syncer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSyncWindowStartsAtMonthStart(t *testing.T) {
	now := time.Date(2026, 8, 17, 14, 30, 0, 0, time.UTC)
	start, end := SyncWindow(now, 3)

	assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC), end)
}

func TestSyncWindowCrossesYearBoundary(t *testing.T) {
	now := time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC)
	start, end := SyncWindow(now, 3)

	assert.Equal(t, time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2027, 3, 1, 0, 0, 0, 0, time.UTC), end)
}

func TestSyncWindowZeroMonthsAhead(t *testing.T) {
	now := time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC)
	start, end := SyncWindow(now, 0)

	// Zero ahead still covers the whole current month.
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), end)
}

func TestSyncWindowNegativeFallsBackToDefault(t *testing.T) {
	now := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	start, end := SyncWindow(now, -1)

	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), end)
}
