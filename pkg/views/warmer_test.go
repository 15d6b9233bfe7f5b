package views

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightflow/insightflow-bff/pkg/adapter"
	"github.com/insightflow/insightflow-bff/pkg/cache"
	"github.com/insightflow/insightflow-bff/pkg/models"
)

func TestNewWarmer_InvalidSchedule(t *testing.T) {
	f := newFixture(t, mobileSource())

	_, err := NewWarmer(f.resolver, "", time.Second, nil)
	assert.Error(t, err)

	_, err = NewWarmer(f.resolver, "not a schedule", time.Second, nil)
	assert.Error(t, err)
}

func TestWarmAll_FillsEveryClientType(t *testing.T) {
	f := newFixture(t, mobileSource())
	ctx := context.Background()

	w, err := NewWarmer(f.resolver, "@every 1h", time.Second, nil)
	require.NoError(t, err)
	require.NoError(t, w.WarmAll(ctx))

	for _, ct := range adapter.ClientTypes {
		var view models.DashboardView
		assert.True(t, f.store.Get(ctx, cache.DashboardKey(ct.String()), &view), ct)
		assert.Equal(t, int64(7), view.OnlineUsers)
	}
}

func TestWarmer_StartStop(t *testing.T) {
	f := newFixture(t, mobileSource())

	w, err := NewWarmer(f.resolver, "@every 1h", time.Second, nil)
	require.NoError(t, err)

	w.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, w.Stop(ctx))
}
