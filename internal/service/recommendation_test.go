package service

import (
	"context"
	"errors"
	"signalcrawler/internal/dto"
	"signalcrawler/internal/model"
	"signalcrawler/internal/session"
	"signalcrawler/pkg/utils"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecommendationRepo struct {
	recs []model.Recommendation
	err  error
}

func (f *fakeRecommendationRepo) Create(_ context.Context, rec *model.Recommendation) error {
	f.recs = append(f.recs, *rec)
	return nil
}

func (f *fakeRecommendationRepo) FindPending(context.Context, string) ([]model.Recommendation, error) {
	return nil, nil
}

func (f *fakeRecommendationRepo) Resolve(context.Context, dto.Resolution) (bool, error) {
	return false, nil
}

func (f *fakeRecommendationRepo) FindByID(context.Context, string) (*model.Recommendation, error) {
	return nil, nil
}

func (f *fakeRecommendationRepo) Get(context.Context, dto.GetRecommendationsParam, ...utils.DBOption) ([]model.Recommendation, error) {
	return f.recs, nil
}

func (f *fakeRecommendationRepo) DeleteResolvedOlderThan(context.Context, time.Time, ...utils.DBOption) (int64, error) {
	return 0, nil
}

func (f *fakeRecommendationRepo) StatusTotals(_ context.Context, since time.Time, _ ...utils.DBOption) ([]dto.RecommendationStatusTotal, error) {
	if f.err != nil {
		return nil, f.err
	}
	type key struct {
		instrument string
		status     dto.RecommendationStatus
	}
	groups := make(map[key]*dto.RecommendationStatusTotal)
	var order []key
	for _, r := range f.recs {
		if !since.IsZero() && r.CreatedAt.Before(since) {
			continue
		}
		k := key{r.Instrument, r.Status}
		g, ok := groups[k]
		if !ok {
			g = &dto.RecommendationStatusTotal{Instrument: r.Instrument, Status: r.Status}
			groups[k] = g
			order = append(order, k)
		}
		g.Count++
		if r.PnLPoints != nil {
			g.PnLPoints += *r.PnLPoints
		}
		if r.PnLDollars != nil {
			g.PnLDollars += *r.PnLDollars
		}
	}
	out := make([]dto.RecommendationStatusTotal, 0, len(order))
	for _, k := range order {
		out = append(out, *groups[k])
	}
	return out, nil
}

func resolvedRec(symbol string, status dto.RecommendationStatus, at time.Time, points, dollars float64) model.Recommendation {
	rec := model.Recommendation{Instrument: symbol, Status: status, CreatedAt: at}
	if status == dto.StatusWin || status == dto.StatusLoss {
		rec.PnLPoints = &points
		rec.PnLDollars = &dollars
	}
	return rec
}

func TestRecommendationService_Stats(t *testing.T) {
	loc := newYork(t)
	now := time.Date(2025, 12, 2, 14, 0, 0, 0, loc)
	yesterday := time.Date(2025, 12, 1, 10, 0, 0, 0, loc)
	morning := time.Date(2025, 12, 2, 10, 0, 0, 0, loc)

	mixed := []model.Recommendation{
		resolvedRec("MNQ", dto.StatusWin, yesterday, 20, 40),
		resolvedRec("MNQ", dto.StatusWin, yesterday, 15, 30),
		resolvedRec("MES", dto.StatusLoss, yesterday, -5, -25),
		resolvedRec("MES", dto.StatusDiscarded, yesterday, 0, 0),
		resolvedRec("MNQ", dto.StatusLoss, morning, -10, -20),
		resolvedRec("MES", dto.StatusWin, morning, 8, 40),
		resolvedRec("MES", dto.StatusPending, morning, 0, 0),
		resolvedRec("MNQ", dto.StatusDiscarded, morning, 0, 0),
	}

	tests := []struct {
		name      string
		recs      []model.Recommendation
		err       error
		wantErr   bool
		wantAll   dto.PerformanceSummary
		wantToday dto.PerformanceSummary
		wantBest  *dto.InstrumentPerformance
	}{
		{
			name: "mixed outcomes",
			recs: mixed,
			wantAll: dto.PerformanceSummary{
				Total: 8, Wins: 3, Losses: 2, Discarded: 2, Pending: 1,
				WinRate: 60, TotalPnLPoints: 28, TotalPnLDollars: 65, AvgPnLPoints: 5.6,
			},
			wantToday: dto.PerformanceSummary{
				Total: 4, Wins: 1, Losses: 1, Discarded: 1, Pending: 1,
				WinRate: 50, TotalPnLPoints: -2, TotalPnLDollars: 20, AvgPnLPoints: -1,
			},
			wantBest: &dto.InstrumentPerformance{Instrument: "MNQ", Wins: 2, Resolved: 3, WinRate: 66.7},
		},
		{
			name: "only discarded and pending",
			recs: []model.Recommendation{
				resolvedRec("MNQ", dto.StatusDiscarded, yesterday, 0, 0),
				resolvedRec("MES", dto.StatusPending, morning, 0, 0),
			},
			wantAll:   dto.PerformanceSummary{Total: 2, Discarded: 1, Pending: 1},
			wantToday: dto.PerformanceSummary{Total: 1, Pending: 1},
		},
		{
			name: "empty table",
		},
		{
			name:    "repository failure",
			recs:    mixed,
			err:     errors.New("db down"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeRecommendationRepo{recs: tt.recs, err: tt.err}
			svc := NewRecommendationService(session.NewFixedClock(now), loc, repo)

			got, err := svc.Stats(context.Background())
			if tt.wantErr {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "2025-12-02", got.Date)
			assertSummary(t, tt.wantAll, got.PerformanceSummary)
			assertSummary(t, tt.wantToday, got.Today)
			if tt.wantBest == nil {
				assert.Nil(t, got.BestInstrument)
				return
			}
			require.NotNil(t, got.BestInstrument)
			assert.Equal(t, tt.wantBest.Instrument, got.BestInstrument.Instrument)
			assert.Equal(t, tt.wantBest.Wins, got.BestInstrument.Wins)
			assert.Equal(t, tt.wantBest.Resolved, got.BestInstrument.Resolved)
			assert.InDelta(t, tt.wantBest.WinRate, got.BestInstrument.WinRate, 1e-9)
		})
	}
}

func assertSummary(t *testing.T, want, got dto.PerformanceSummary) {
	t.Helper()
	assert.Equal(t, want.Total, got.Total)
	assert.Equal(t, want.Wins, got.Wins)
	assert.Equal(t, want.Losses, got.Losses)
	assert.Equal(t, want.Discarded, got.Discarded)
	assert.Equal(t, want.Pending, got.Pending)
	assert.InDelta(t, want.WinRate, got.WinRate, 1e-9)
	assert.InDelta(t, want.TotalPnLPoints, got.TotalPnLPoints, 1e-9)
	assert.InDelta(t, want.TotalPnLDollars, got.TotalPnLDollars, 1e-9)
	assert.InDelta(t, want.AvgPnLPoints, got.AvgPnLPoints, 1e-9)
}
