package orchestrator_test

import (
	"testing"
	"time"

	"github.com/couchcryptid/biodiversity-map/internal/domain"
	"github.com/couchcryptid/biodiversity-map/internal/observability"
	"github.com/couchcryptid/biodiversity-map/internal/orchestrator"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_GetCreatesSession(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	store := orchestrator.NewStore(metrics)

	id, st := store.Get("")
	require.NotEmpty(t, id)
	require.NotNil(t, st)
	assert.Equal(t, 1, store.Len())
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ActiveSessions), 0)

	again, same := store.Get(id)
	assert.Equal(t, id, again)
	assert.Same(t, st, same)
	assert.Equal(t, 1, store.Len())
}

func TestStore_UnknownIDGetsFreshSession(t *testing.T) {
	store := orchestrator.NewStore(observability.NewMetricsForTesting())

	id, _ := store.Get("not-a-session")

	assert.NotEqual(t, "not-a-session", id)
	assert.Equal(t, 1, store.Len())
}

func TestStore_Delete(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	store := orchestrator.NewStore(metrics)

	id, _ := store.Get("")
	store.Delete(id)

	assert.Zero(t, store.Len())
	assert.Zero(t, testutil.ToFloat64(metrics.ActiveSessions))
}

func TestStore_SweepDropsIdleSessions(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	domain.SetClock(clock)
	t.Cleanup(func() { domain.SetClock(nil) })

	store := orchestrator.NewStore(observability.NewMetricsForTesting())
	stale, _ := store.Get("")

	clock.Advance(45 * time.Minute)
	fresh, _ := store.Get("")

	clock.Advance(20 * time.Minute)
	removed := store.Sweep(time.Hour)

	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, store.Len())

	id, _ := store.Get(fresh)
	assert.Equal(t, fresh, id)
	id, _ = store.Get(stale)
	assert.NotEqual(t, stale, id)
}

func TestStore_GetRefreshesIdleTimer(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	domain.SetClock(clock)
	t.Cleanup(func() { domain.SetClock(nil) })

	store := orchestrator.NewStore(observability.NewMetricsForTesting())
	id, _ := store.Get("")

	clock.Advance(50 * time.Minute)
	store.Get(id)
	clock.Advance(50 * time.Minute)

	assert.Zero(t, store.Sweep(time.Hour))
	assert.Equal(t, 1, store.Len())
}
