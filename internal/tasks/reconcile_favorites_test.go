package tasks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecounter struct {
	repaired int64
	err      error
	calls    int
}

func (r *fakeRecounter) RecountFavorites(ctx context.Context) (int64, error) {
	r.calls++
	return r.repaired, r.err
}

func TestReconcileFavoritesProcessor(t *testing.T) {
	recounter := &fakeRecounter{repaired: 3}
	processor := ReconcileFavoritesProcessor(recounter)

	err := processor(context.Background(), ReconcileFavoritesTask{})
	require.NoError(t, err)
	assert.Equal(t, 1, recounter.calls)
}

func TestReconcileFavoritesProcessor_RecountFails(t *testing.T) {
	recounter := &fakeRecounter{err: errors.New("database locked")}
	processor := ReconcileFavoritesProcessor(recounter)

	err := processor(context.Background(), ReconcileFavoritesTask{})
	assert.Error(t, err)
}

func TestReconcileFavoritesProcessor_NilRecounter(t *testing.T) {
	processor := ReconcileFavoritesProcessor(nil)

	err := processor(context.Background(), ReconcileFavoritesTask{})
	assert.Error(t, err)
}

func TestReconcileFavoritesTask_Config(t *testing.T) {
	cfg := ReconcileFavoritesTask{}.Config()
	assert.Equal(t, "reconcile_favorites", cfg.Name)
	assert.Equal(t, 1, cfg.MaxAttempts)
}
