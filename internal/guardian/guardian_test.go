package guardian

import (
	"context"
	"signalcrawler/internal/dto"
	"signalcrawler/internal/instrument"
	"signalcrawler/internal/model"
	"signalcrawler/internal/session"
	"signalcrawler/pkg/logger"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

type memoryStore struct {
	mu    sync.Mutex
	state *model.AccountState
	saves int
}

func (m *memoryStore) Load(_ context.Context, accountID string) (*model.AccountState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil || m.state.AccountID != accountID {
		return nil, nil
	}
	return m.state.Clone(), nil
}

func (m *memoryStore) Save(_ context.Context, state *model.AccountState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
	m.saves++
	return nil
}

var newYork, _ = time.LoadLocation("America/New_York")

func setup(t *testing.T, limits Limits, store *memoryStore) (Guardian, *session.FixedClock) {
	t.Helper()
	clock := session.NewFixedClock(time.Date(2025, 12, 2, 11, 0, 0, 0, newYork))
	g := NewGuardian(
		logger.NewNop(),
		clock,
		newYork,
		store,
		instrument.NewRegistry(instrument.DefaultConfigs()...),
		limits,
	)
	require.NoError(t, g.Init(context.Background()))
	return g, clock
}

func alertTypes(alerts []dto.RiskAlert) []dto.AlertType {
	out := make([]dto.AlertType, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, a.Type)
	}
	return out
}

func TestRecheck_DrawdownWarningWithoutBreach(t *testing.T) {
	persisted := freshState(DefaultLimits())
	persisted.HighWaterMark = 52000
	persisted.CurrentBalance = 49600
	store := &memoryStore{state: persisted}
	g, _ := setup(t, DefaultLimits(), store)

	alerts, err := g.Recheck(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, dto.AlertDrawdownWarning, alerts[0].Type)
	assert.Equal(t, dto.SeverityWarning, alerts[0].Severity)
	assert.InDelta(t, 2400.0, alerts[0].Value, 1e-9)
	assert.InDelta(t, 96.0, alerts[0].Percent, 1e-9)

	blocked, _ := g.ShouldBlockTrading()
	assert.False(t, blocked)

	again, err := g.Recheck(context.Background())
	require.NoError(t, err)
	assert.Empty(t, again)

	status := g.Status()
	assert.Equal(t, dto.HealthWarning, status.Status)
	assert.InDelta(t, 49500.0, status.Floor, 1e-9)
	assert.InDelta(t, 100.0, status.DistanceToFloor, 1e-9)
	assert.Equal(t, []dto.AlertType{dto.AlertDrawdownWarning}, status.AlertsToday)
}

func TestRecordTradeResult_DailyLoss(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxTrailingDrawdown = 10000

	tests := []struct {
		name    string
		trades  []float64
		want    [][]dto.AlertType
		blocked bool
	}{
		{
			name:   "warning then block",
			trades: []float64{-100, -100},
			want: [][]dto.AlertType{
				{dto.AlertDailyLossWarning},
				{dto.AlertDailyLossBlock},
			},
			blocked: true,
		},
		{
			name:    "block supersedes warning in one step",
			trades:  []float64{-130},
			want:    [][]dto.AlertType{{dto.AlertDailyLossBlock}},
			blocked: true,
		},
		{
			name:   "warning is sent once per day",
			trades: []float64{-100, -5, -5},
			want: [][]dto.AlertType{
				{dto.AlertDailyLossWarning},
				{},
				{},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, _ := setup(t, limits, &memoryStore{})
			for i, points := range tt.trades {
				// MES is $5 per point per contract, four contracts.
				alerts, err := g.RecordTradeResult(context.Background(), "MES", points, 4)
				require.NoError(t, err)
				assert.Equal(t, tt.want[i], alertTypes(alerts), "trade %d", i)
			}
			blocked, reason := g.ShouldBlockTrading()
			assert.Equal(t, tt.blocked, blocked)
			if tt.blocked {
				assert.Contains(t, reason, "Daily loss limit")
				assert.Equal(t, dto.HealthBlocked, g.Status().Status)
			}
		})
	}
}

func TestRecordTradeResult_DrawdownBreachBlocks(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxDailyLoss = 100000
	g, clock := setup(t, limits, &memoryStore{})
	ctx := context.Background()

	// +$1000 lifts the high water mark to 51000.
	_, err := g.RecordTradeResult(ctx, "MES", 50, 4)
	require.NoError(t, err)

	clock.Advance(24 * time.Hour)
	alerts, err := g.RecordTradeResult(ctx, "MES", -175, 4)
	require.NoError(t, err)
	assert.Contains(t, alertTypes(alerts), dto.AlertDrawdownBreach)
	assert.NotContains(t, alertTypes(alerts), dto.AlertDrawdownWarning)

	blocked, reason := g.ShouldBlockTrading()
	assert.True(t, blocked)
	assert.Contains(t, reason, "Trailing drawdown")
}

func TestRecordTradeResult_TickValueConversion(t *testing.T) {
	store := &memoryStore{}
	g, _ := setup(t, DefaultLimits(), store)

	_, err := g.RecordTradeResult(context.Background(), "MNQ", 15, 8)
	require.NoError(t, err)

	status := g.Status()
	assert.InDelta(t, 240.0, status.TodayPnL, 1e-9)
	assert.InDelta(t, 50240.0, status.CurrentBalance, 1e-9)
	assert.InDelta(t, 50240.0, status.HighWaterMark, 1e-9)
	assert.InDelta(t, 50240.0, store.state.CurrentBalance, 1e-9)
	assert.InDelta(t, 240.0, store.state.DailyPnL.Data()["2025-12-02"], 1e-9)

	_, err = g.RecordTradeResult(context.Background(), "ZZZ", 1, 1)
	assert.Error(t, err)
}

func TestConsistencyRule(t *testing.T) {
	g, clock := setup(t, DefaultLimits(), &memoryStore{})
	ctx := context.Background()

	alerts, err := g.RecordTradeResult(ctx, "MES", 40, 1)
	require.NoError(t, err)
	require.Equal(t, []dto.AlertType{dto.AlertConsistencyWarning}, alertTypes(alerts))
	assert.Contains(t, alerts[0].Message, "2025-12-02")

	alerts, err = g.RecordTradeResult(ctx, "MES", 10, 1)
	require.NoError(t, err)
	assert.Empty(t, alerts)

	clock.Advance(24 * time.Hour)
	alerts, err = g.RecordTradeResult(ctx, "MES", 5, 1)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	// $250 of $275 total came on the first day.
	assert.InDelta(t, 250.0/275*100, alerts[0].Percent, 1e-9)
}

func TestConsistencyRule_NoProfitIsGuarded(t *testing.T) {
	s := freshState(DefaultLimits())
	s.DailyPnL = datatypes.NewJSONType(map[string]float64{"2025-12-01": -200, "2025-12-02": 0})
	assert.Empty(t, checkConsistency(s, "2025-12-02"))
}

func TestReset(t *testing.T) {
	store := &memoryStore{}
	g, _ := setup(t, DefaultLimits(), store)
	ctx := context.Background()

	_, err := g.RecordTradeResult(ctx, "MES", -130, 4)
	require.NoError(t, err)
	blocked, _ := g.ShouldBlockTrading()
	require.True(t, blocked)

	require.NoError(t, g.Reset(ctx))
	blocked, _ = g.ShouldBlockTrading()
	assert.False(t, blocked)

	status := g.Status()
	assert.Equal(t, dto.HealthOK, status.Status)
	assert.Equal(t, 50000.0, status.CurrentBalance)
	assert.Empty(t, status.AlertsToday)
	assert.Equal(t, 50000.0, store.state.CurrentBalance)
}

func TestInit_KeepsPersistedBalanceAndConfiguredLimits(t *testing.T) {
	persisted := freshState(DefaultLimits())
	persisted.CurrentBalance = 51000
	persisted.HighWaterMark = 51500
	persisted.MaxDailyLoss = 1
	store := &memoryStore{state: persisted}

	g, _ := setup(t, DefaultLimits(), store)
	status := g.Status()
	assert.Equal(t, 51000.0, status.CurrentBalance)
	assert.Equal(t, 2500.0, status.RemainingDailyLoss)
	assert.Equal(t, 2500.0, store.state.MaxDailyLoss)
}
