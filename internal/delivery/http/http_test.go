package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"signalcrawler/config"
	"signalcrawler/internal/aggregator"
	"signalcrawler/internal/dto"
	"signalcrawler/internal/model"
	"signalcrawler/internal/service"
	"signalcrawler/pkg/logger"
	"signalcrawler/pkg/metrics"
	"strings"
	"testing"
	"time"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePipeline struct {
	events []dto.CandleEvent
	result dto.IngestResult
	err    error
}

func (f *fakePipeline) Ingest(_ context.Context, event dto.CandleEvent) (dto.IngestResult, error) {
	f.events = append(f.events, event)
	return f.result, f.err
}

func (f *fakePipeline) Warmup(context.Context) (int, error) { return 0, nil }

type fakeRecommendations struct {
	recs     map[string]*model.Recommendation
	param    dto.GetRecommendationsParam
	stats    dto.PerformanceStats
	statsErr error
	err      error
}

func (f *fakeRecommendations) List(_ context.Context, param dto.GetRecommendationsParam) ([]model.Recommendation, error) {
	f.param = param
	var out []model.Recommendation
	for _, r := range f.recs {
		out = append(out, *r)
	}
	return out, f.err
}

func (f *fakeRecommendations) Get(_ context.Context, id string) (*model.Recommendation, error) {
	return f.recs[id], f.err
}

func (f *fakeRecommendations) Stats(context.Context) (dto.PerformanceStats, error) {
	return f.stats, f.statsErr
}

type fakeGuardian struct {
	status dto.AccountStatus
	resets int
}

func (f *fakeGuardian) Init(context.Context) error { return nil }

func (f *fakeGuardian) RecordTradeResult(context.Context, string, float64, int) ([]dto.RiskAlert, error) {
	return nil, nil
}

func (f *fakeGuardian) ShouldBlockTrading() (bool, string) { return false, "" }

func (f *fakeGuardian) Status() dto.AccountStatus { return f.status }

func (f *fakeGuardian) Recheck(context.Context) ([]dto.RiskAlert, error) { return nil, nil }

func (f *fakeGuardian) Reset(context.Context) error {
	f.resets++
	f.status.Status = dto.HealthOK
	return nil
}

type fakeMarket struct{}

func (fakeMarket) CurrentTier() dto.TierStatus {
	return dto.TierStatus{Tier: dto.SessionTier{Name: dto.TierPrime, DisplayName: "PRIME TIME"}, Window: "9:30 AM - 11:30 AM ET"}
}

func (fakeMarket) LevelsStatus(_ context.Context, instrumentSymbol string) (dto.LevelsStatus, error) {
	if instrumentSymbol != "MNQ" {
		return dto.LevelsStatus{}, fmt.Errorf("unknown instrument %q", instrumentSymbol)
	}
	return dto.LevelsStatus{
		Levels: dto.DailyLevels{Instrument: "MNQ", Date: "2025-12-02", ORBHigh: 21020, ORBLow: 21000, ORBSet: true},
		Bias:   dto.BiasResult{Bias: dto.BiasLong, CanTrade: true},
	}, nil
}

func (fakeMarket) SnapshotLevels(context.Context) (int, error) { return 0, nil }

func (fakeMarket) RestoreLevels(context.Context) (int, error) { return 0, nil }

type fakeScheduler struct {
	ran     []uint
	execErr error
	jobs    []model.Job
	param   model.GetJobParam
}

func (f *fakeScheduler) Start(context.Context) {}

func (f *fakeScheduler) Stop() {}

func (f *fakeScheduler) Execute(context.Context) error { return f.execErr }

func (f *fakeScheduler) GetJobSchedule(_ context.Context, param model.GetJobParam) ([]model.Job, error) {
	f.param = param
	return f.jobs, nil
}

func (f *fakeScheduler) RunJobTask(_ context.Context, jobID uint) error {
	if jobID != 1 {
		return fmt.Errorf("%w: %d", service.ErrJobNotFound, jobID)
	}
	f.ran = append(f.ran, jobID)
	return nil
}

type handlerFixture struct {
	echo      *echo.Echo
	pipeline  *fakePipeline
	recs      *fakeRecommendations
	guardian  *fakeGuardian
	scheduler *fakeScheduler
	recorder  *metrics.Recorder
}

func newHandlerFixture(t *testing.T, secret string) *handlerFixture {
	t.Helper()
	cfg := &config.Config{}
	cfg.Webhook.Secret = secret
	cfg.Webhook.RatePerSecond = 1000
	cfg.Webhook.RateBurst = 1000
	cfg.Metrics.Enabled = true

	f := &handlerFixture{
		echo:      echo.New(),
		pipeline:  &fakePipeline{},
		recs:      &fakeRecommendations{recs: make(map[string]*model.Recommendation)},
		guardian:  &fakeGuardian{status: dto.AccountStatus{AccountID: "default", Status: dto.HealthBlocked}},
		scheduler: &fakeScheduler{},
		recorder:  metrics.New(),
	}
	svc := &service.Service{
		PipelineService:       f.pipeline,
		RecommendationService: f.recs,
		Guardian:              f.guardian,
		MarketService:         fakeMarket{},
		SchedulerService:      f.scheduler,
	}
	NewHttpAPIHandler(cfg, logger.NewNop(), f.echo, goValidator.New(), svc, f.recorder).SetupRoutes()
	return f
}

func (f *handlerFixture) do(method, target, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	f.echo.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) dto.BaseResponse {
	t.Helper()
	var resp dto.BaseResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestIngestCandle(t *testing.T) {
	const valid = `{"secret":"s3cret","ticker":"CME_MINI:MNQZ2025","timeframe":"1","open":21000,"high":21004,"low":20998,"close":21002.5,"volume":1200,"time":"1764689460000"}`

	tests := []struct {
		name       string
		body       string
		headers    []string
		ingestErr  error
		wantStatus int
		wantEvents int
	}{
		{name: "accepted", body: valid, wantStatus: http.StatusOK, wantEvents: 1},
		{
			name:       "secret from header",
			body:       strings.Replace(valid, `"secret":"s3cret",`, "", 1),
			headers:    []string{"X-Webhook-Secret", "s3cret"},
			wantStatus: http.StatusOK,
			wantEvents: 1,
		},
		{name: "wrong secret", body: strings.Replace(valid, "s3cret", "guess", 1), wantStatus: http.StatusUnauthorized},
		{name: "malformed json", body: `{"ticker":`, wantStatus: http.StatusBadRequest},
		{name: "missing close", body: strings.Replace(valid, `"close":21002.5,`, "", 1), wantStatus: http.StatusBadRequest},
		{name: "unsupported timeframe", body: strings.Replace(valid, `"timeframe":"1"`, `"timeframe":"5"`, 1), wantStatus: http.StatusBadRequest},
		{name: "bad time", body: strings.Replace(valid, "1764689460000", "soon", 1), wantStatus: http.StatusBadRequest},
		{
			name:       "unknown instrument",
			body:       valid,
			ingestErr:  fmt.Errorf("%w: %q", service.ErrUnknownInstrument, "ZZZ"),
			wantStatus: http.StatusBadRequest,
			wantEvents: 1,
		},
		{
			name:       "out of order bar",
			body:       valid,
			ingestErr:  fmt.Errorf("%w: 2025-12-02T15:31:00Z", aggregator.ErrOutOfOrder),
			wantStatus: http.StatusBadRequest,
			wantEvents: 1,
		},
		{
			name:       "store failure",
			body:       valid,
			ingestErr:  errors.New("insert failed"),
			wantStatus: http.StatusInternalServerError,
			wantEvents: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newHandlerFixture(t, "s3cret")
			f.pipeline.err = tt.ingestErr
			f.pipeline.result = dto.IngestResult{Instrument: "MNQ", Evaluated: true, Verdict: dto.VerdictNoTrade}

			rec := f.do(http.MethodPost, "/api/v1/candles", tt.body, tt.headers...)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantStatus, decode(t, rec).Code)
			require.Len(t, f.pipeline.events, tt.wantEvents)
			if tt.wantEvents == 0 {
				return
			}
			ev := f.pipeline.events[0]
			assert.Equal(t, "CME_MINI:MNQZ2025", ev.Instrument)
			assert.Equal(t, dto.Timeframe1m, ev.Timeframe)
			assert.Equal(t, 21002.5, ev.Candle.Close)
			assert.Equal(t, 1200.0, ev.Candle.Volume)
			assert.True(t, time.Date(2025, 12, 2, 15, 31, 0, 0, time.UTC).Equal(ev.Candle.Timestamp))
		})
	}
}

func TestIngestCandle_NoSecretConfigured(t *testing.T) {
	f := newHandlerFixture(t, "")
	body := `{"ticker":"MES1!","open":6000,"high":6001,"low":5999,"close":6000.5,"time":"2025-12-02T15:31:00Z"}`

	rec := f.do(http.MethodPost, "/api/v1/candles", body)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, f.pipeline.events, 1)
}

func TestRecommendations(t *testing.T) {
	f := newHandlerFixture(t, "")
	f.recs.recs["abc"] = &model.Recommendation{ID: "abc", Instrument: "MNQ", Direction: dto.DirectionShort, Status: dto.StatusPending}

	rec := f.do(http.MethodGet, "/api/v1/recommendations?instrument=mnq&status=PENDING&status=WIN&limit=10", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "mnq", f.recs.param.Instrument)
	assert.Equal(t, []dto.RecommendationStatus{dto.StatusPending, dto.StatusWin}, f.recs.param.Statuses)
	assert.Equal(t, 10, f.recs.param.Limit)

	rec = f.do(http.MethodGet, "/api/v1/recommendations?limit=5000", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodGet, "/api/v1/recommendations/abc", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"abc"`)

	rec = f.do(http.MethodGet, "/api/v1/recommendations/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecommendationStats(t *testing.T) {
	tests := []struct {
		name       string
		stats      dto.PerformanceStats
		err        error
		wantStatus int
		wantBody   []string
	}{
		{
			name: "summary with best instrument",
			stats: dto.PerformanceStats{
				PerformanceSummary: dto.PerformanceSummary{Total: 5, Wins: 3, Losses: 1, Discarded: 1, WinRate: 75, TotalPnLDollars: 120},
				BestInstrument:     &dto.InstrumentPerformance{Instrument: "MNQ", Wins: 2, Resolved: 2, WinRate: 100},
				Today:              dto.PerformanceSummary{Total: 1, Wins: 1, WinRate: 100},
				Date:               "2025-12-02",
			},
			wantStatus: http.StatusOK,
			wantBody: []string{
				`"wins":3`, `"win_rate":75`, `"total_pnl_dollars":120`,
				`"best_instrument":{"instrument":"MNQ"`, `"today":{"total":1`, `"success":true`,
			},
		},
		{
			name:       "aggregate failure",
			err:        errors.New("db down"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   []string{`"success":false`, "failed to load stats"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newHandlerFixture(t, "")
			f.recs.stats = tt.stats
			f.recs.statsErr = tt.err

			rec := f.do(http.MethodGet, "/api/v1/recommendations/stats", "")
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantStatus, decode(t, rec).Code)
			for _, want := range tt.wantBody {
				assert.Contains(t, rec.Body.String(), want)
			}
		})
	}
}

func TestAccount(t *testing.T) {
	f := newHandlerFixture(t, "")

	rec := f.do(http.MethodGet, "/api/v1/account/status", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"blocked"`)

	rec = f.do(http.MethodPost, "/api/v1/account/reset", `{"confirm":false}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, f.guardian.resets)

	rec = f.do(http.MethodPost, "/api/v1/account/reset", `{"confirm":true}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, f.guardian.resets)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestMarket(t *testing.T) {
	f := newHandlerFixture(t, "")

	rec := f.do(http.MethodGet, "/api/v1/session/tier", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"PRIME"`)

	rec = f.do(http.MethodGet, "/api/v1/levels/MNQ", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"orb_high":21020`)

	rec = f.do(http.MethodGet, "/api/v1/levels/ES", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestJobs(t *testing.T) {
	f := newHandlerFixture(t, "")
	f.scheduler.jobs = []model.Job{{ID: 1, Name: "outcome check", Type: "outcome_check"}}

	rec := f.do(http.MethodGet, "/api/v1/jobs?type=outcome_check&history=5", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"outcome_check"}, f.scheduler.param.Types)
	require.NotNil(t, f.scheduler.param.WithTaskHistory)
	assert.Equal(t, 5, *f.scheduler.param.WithTaskHistory.Limit)

	rec = f.do(http.MethodPost, "/api/v1/jobs/run", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	f.scheduler.execErr = errors.New("failed to find jobs to schedule")
	rec = f.do(http.MethodPost, "/api/v1/jobs/run", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = f.do(http.MethodPost, "/api/v1/jobs/1/run", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []uint{1}, f.scheduler.ran)

	rec = f.do(http.MethodPost, "/api/v1/jobs/2/run", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodPost, "/api/v1/jobs/abc/run", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newHandlerFixture(t, "")
	f.do(http.MethodGet, "/api/v1/session/tier", "")

	rec := f.do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `signalcrawler_http_requests_total{method="GET",route="/api/v1/session/tier",status="200"} 1`)
	assert.NotContains(t, rec.Body.String(), `route="/metrics"`)
}
