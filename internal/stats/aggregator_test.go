package stats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chicoferreira/contratopublico-go/internal/models"
)

type fakeStatsStore struct {
	rollup      models.StatisticsRollup
	refreshErr  error
	windowErr   error
	refreshCalls int
}

func (f *fakeStatsStore) RefreshDailyAggregates(ctx context.Context) error {
	f.refreshCalls++
	return f.refreshErr
}

func (f *fakeStatsStore) WindowStats(ctx context.Context, today time.Time) (models.StatisticsRollup, error) {
	return f.rollup, f.windowErr
}

func TestRunPublishesFirstRollupImmediately(t *testing.T) {
	fs := &fakeStatsStore{rollup: models.StatisticsRollup{ContractsLast7Days: 1, TotalSpentLast7Days: 1000}}
	agg := New(fs)

	ctx, cancel := context.WithCancel(context.Background())
	go agg.Run(ctx)
	defer cancel()

	require.Eventually(t, func() bool {
		return agg.Rollup().ContractsLast7Days == 1
	}, time.Second, time.Millisecond)
}

func TestRefreshFailureKeepsLastGoodRollup(t *testing.T) {
	fs := &fakeStatsStore{rollup: models.StatisticsRollup{ContractsLast7Days: 5}}
	agg := New(fs)
	agg.refresh(context.Background())
	require.Equal(t, int64(5), agg.Rollup().ContractsLast7Days)

	fs.refreshErr = errors.New("boom")
	fs.rollup = models.StatisticsRollup{ContractsLast7Days: 999}
	agg.refresh(context.Background())

	require.Equal(t, int64(5), agg.Rollup().ContractsLast7Days)
}

func TestOnRefreshCallbackReceivesPublishedRollup(t *testing.T) {
	fs := &fakeStatsStore{rollup: models.StatisticsRollup{ContractsLast7Days: 7}}
	agg := New(fs)

	var got models.StatisticsRollup
	calls := 0
	agg.OnRefresh(func(r models.StatisticsRollup) {
		calls++
		got = r
	})

	agg.refresh(context.Background())
	require.Equal(t, 1, calls)
	require.Equal(t, int64(7), got.ContractsLast7Days)
}

func TestOnRefreshNotCalledOnFailure(t *testing.T) {
	fs := &fakeStatsStore{refreshErr: errors.New("boom")}
	agg := New(fs)

	calls := 0
	agg.OnRefresh(func(r models.StatisticsRollup) { calls++ })

	agg.refresh(context.Background())
	require.Equal(t, 0, calls)
}

func TestWindowStatsFailureKeepsLastGoodRollup(t *testing.T) {
	fs := &fakeStatsStore{rollup: models.StatisticsRollup{ContractsLast365Days: 3}}
	agg := New(fs)
	agg.refresh(context.Background())
	require.Equal(t, int64(3), agg.Rollup().ContractsLast365Days)

	fs.windowErr = errors.New("boom")
	agg.refresh(context.Background())
	require.Equal(t, int64(3), agg.Rollup().ContractsLast365Days)
}
