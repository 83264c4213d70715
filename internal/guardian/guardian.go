package guardian

import (
	"context"
	"fmt"
	"math"
	"signalcrawler/internal/dto"
	"signalcrawler/internal/instrument"
	"signalcrawler/internal/model"
	"signalcrawler/internal/session"
	"signalcrawler/pkg/logger"
	"signalcrawler/pkg/utils"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// Store persists the account state. Load returns nil when the account has
// never been saved.
type Store interface {
	Load(ctx context.Context, accountID string) (*model.AccountState, error)
	Save(ctx context.Context, state *model.AccountState) error
}

type Limits struct {
	AccountID           string
	InitialBalance      float64
	MaxDailyLoss        float64
	MaxTrailingDrawdown float64
	DailyLossWarningPct float64
	DailyLossBlockPct   float64
	DrawdownWarningPct  float64
	MaxDayProfitPct     float64
}

func DefaultLimits() Limits {
	return Limits{
		AccountID:           "default",
		InitialBalance:      50000,
		MaxDailyLoss:        2500,
		MaxTrailingDrawdown: 2500,
		DailyLossWarningPct: 80,
		DailyLossBlockPct:   100,
		DrawdownWarningPct:  80,
		MaxDayProfitPct:     30,
	}
}

type Guardian interface {
	Init(ctx context.Context) error
	RecordTradeResult(ctx context.Context, instrumentSymbol string, pnlPoints float64, contracts int) ([]dto.RiskAlert, error)
	ShouldBlockTrading() (bool, string)
	Status() dto.AccountStatus
	Recheck(ctx context.Context) ([]dto.RiskAlert, error)
	Reset(ctx context.Context) error
}

type guardian struct {
	mu          sync.RWMutex
	log         *logger.Logger
	clock       session.Clock
	loc         *time.Location
	store       Store
	instruments *instrument.Registry
	limits      Limits
	state       *model.AccountState
}

func NewGuardian(
	log *logger.Logger,
	clock session.Clock,
	loc *time.Location,
	store Store,
	instruments *instrument.Registry,
	limits Limits,
) Guardian {
	return &guardian{
		log:         log,
		clock:       clock,
		loc:         loc,
		store:       store,
		instruments: instruments,
		limits:      limits,
		state:       freshState(limits),
	}
}

func freshState(l Limits) *model.AccountState {
	s := &model.AccountState{
		AccountID:      l.AccountID,
		InitialBalance: l.InitialBalance,
		HighWaterMark:  l.InitialBalance,
		CurrentBalance: l.InitialBalance,
		DailyPnL:       datatypes.NewJSONType(map[string]float64{}),
		AlertsSent:     datatypes.NewJSONType(map[string][]dto.AlertType{}),
	}
	applyLimits(s, l)
	return s
}

func applyLimits(s *model.AccountState, l Limits) {
	s.MaxDailyLoss = l.MaxDailyLoss
	s.MaxTrailingDrawdown = l.MaxTrailingDrawdown
	s.DailyLossWarningPct = l.DailyLossWarningPct
	s.DailyLossBlockPct = l.DailyLossBlockPct
	s.DrawdownWarningPct = l.DrawdownWarningPct
	s.MaxDayProfitPct = l.MaxDayProfitPct
}

// Init loads the persisted account, creating it on first run. Configured
// limits always win over persisted ones.
func (g *guardian) Init(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	state, err := g.store.Load(ctx, g.limits.AccountID)
	if err != nil {
		return fmt.Errorf("failed to load account state: %w", err)
	}
	if state == nil {
		state = freshState(g.limits)
		g.log.InfoContext(ctx, "Creating account state",
			logger.StringField("account_id", g.limits.AccountID),
			logger.FloatField("initial_balance", g.limits.InitialBalance),
		)
	} else {
		state = state.Clone()
		applyLimits(state, g.limits)
	}
	g.state = state
	return g.save(ctx)
}

func (g *guardian) today() string {
	return utils.SessionDate(g.clock.Now(), g.loc)
}

func (g *guardian) save(ctx context.Context) error {
	if err := g.store.Save(ctx, g.state.Clone()); err != nil {
		return fmt.Errorf("failed to save account state: %w", err)
	}
	return nil
}

// RecordTradeResult books a closed trade. Points convert to dollars through
// the instrument's tick size and tick value.
func (g *guardian) RecordTradeResult(ctx context.Context, instrumentSymbol string, pnlPoints float64, contracts int) ([]dto.RiskAlert, error) {
	cfg, err := g.instruments.MustGet(instrumentSymbol)
	if err != nil {
		return nil, err
	}
	if contracts < 1 {
		contracts = 1
	}
	dollars := pnlPoints / cfg.TickSize * cfg.TickValue * float64(contracts)

	g.mu.Lock()
	defer g.mu.Unlock()

	date := g.today()
	daily := dailyPnL(g.state)
	daily[date] += dollars
	g.state.CurrentBalance += dollars
	if g.state.CurrentBalance > g.state.HighWaterMark {
		g.state.HighWaterMark = g.state.CurrentBalance
	}

	g.log.InfoContext(ctx, "Trade result recorded",
		logger.StringField("instrument", cfg.Symbol),
		logger.FloatField("pnl_points", pnlPoints),
		logger.FloatField("pnl_dollars", dollars),
		logger.IntField("contracts", contracts),
		logger.FloatField("daily_pnl", daily[date]),
		logger.FloatField("balance", g.state.CurrentBalance),
	)

	alerts := g.checkRules(ctx, date)
	return alerts, g.save(ctx)
}

// Recheck re-runs the rules against the current state.
func (g *guardian) Recheck(ctx context.Context) ([]dto.RiskAlert, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	alerts := g.checkRules(ctx, g.today())
	if len(alerts) == 0 {
		return nil, nil
	}
	return alerts, g.save(ctx)
}

func (g *guardian) checkRules(ctx context.Context, date string) []dto.RiskAlert {
	var alerts []dto.RiskAlert
	for _, rule := range []func(*model.AccountState, string) []dto.RiskAlert{
		checkDailyLoss,
		checkTrailingDrawdown,
		checkConsistency,
	} {
		alerts = append(alerts, rule(g.state, date)...)
	}

	for _, a := range alerts {
		fields := []zap.Field{
			logger.StringField("alert_type", string(a.Type)),
			logger.StringField("date", a.Date),
			logger.FloatField("value", a.Value),
			logger.FloatField("limit", a.Limit),
			logger.FloatField("percent", a.Percent),
		}
		if a.Severity == dto.SeverityCritical {
			g.log.ErrorContextWithAlert(ctx, a.Message, fields...)
		} else {
			g.log.WarnContext(ctx, a.Message, fields...)
		}
	}
	return alerts
}

func (g *guardian) ShouldBlockTrading() (bool, string) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return shouldBlock(g.state, g.today())
}

func shouldBlock(s *model.AccountState, date string) (bool, string) {
	if pct := dailyLossPct(s, date); pct > 0 && pct >= s.DailyLossBlockPct {
		return true, fmt.Sprintf("Daily loss limit reached (%.1f%% of $%.2f)", pct, s.MaxDailyLoss)
	}
	if s.MaxTrailingDrawdown > 0 && s.HighWaterMark-s.CurrentBalance >= s.MaxTrailingDrawdown {
		return true, fmt.Sprintf("Trailing drawdown breached ($%.2f from high water mark)", s.HighWaterMark-s.CurrentBalance)
	}
	return false, ""
}

func (g *guardian) Status() dto.AccountStatus {
	g.mu.RLock()
	defer g.mu.RUnlock()

	s := g.state
	date := g.today()
	today := s.DailyPnL.Data()[date]
	drawdown := s.HighWaterMark - s.CurrentBalance
	floor := s.HighWaterMark - s.MaxTrailingDrawdown

	status := dto.AccountStatus{
		AccountID:          s.AccountID,
		Date:               date,
		CurrentBalance:     s.CurrentBalance,
		HighWaterMark:      s.HighWaterMark,
		Drawdown:           drawdown,
		DrawdownPct:        percentOf(drawdown, s.MaxTrailingDrawdown),
		Floor:              floor,
		DistanceToFloor:    s.CurrentBalance - floor,
		TodayPnL:           today,
		DailyLossPct:       dailyLossPct(s, date),
		RemainingDailyLoss: s.MaxDailyLoss - math.Abs(math.Min(today, 0)),
		Status:             dto.HealthOK,
		AlertsToday:        append([]dto.AlertType{}, s.AlertsSent.Data()[date]...),
	}

	_, worstPct := worstProfitDay(s)
	if blocked, reason := shouldBlock(s, date); blocked {
		status.Status = dto.HealthBlocked
		status.BlockReason = reason
	} else if status.DailyLossPct >= s.DailyLossWarningPct && status.DailyLossPct > 0 ||
		status.DrawdownPct >= s.DrawdownWarningPct && status.DrawdownPct > 0 ||
		worstPct > s.MaxDayProfitPct {
		status.Status = dto.HealthWarning
	}
	return status
}

// Reset returns the account to its initial balance and clears history.
func (g *guardian) Reset(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.state = freshState(g.limits)
	g.log.WarnContext(ctx, "Account state reset",
		logger.StringField("account_id", g.limits.AccountID),
		logger.FloatField("initial_balance", g.limits.InitialBalance),
	)
	return g.save(ctx)
}

func dailyPnL(s *model.AccountState) map[string]float64 {
	m := s.DailyPnL.Data()
	if m == nil {
		m = make(map[string]float64)
		s.DailyPnL = datatypes.NewJSONType(m)
	}
	return m
}

func alertSent(s *model.AccountState, date string, t dto.AlertType) bool {
	for _, sent := range s.AlertsSent.Data()[date] {
		if sent == t {
			return true
		}
	}
	return false
}

func markSent(s *model.AccountState, date string, t dto.AlertType) {
	m := s.AlertsSent.Data()
	if m == nil {
		m = make(map[string][]dto.AlertType)
		s.AlertsSent = datatypes.NewJSONType(m)
	}
	m[date] = append(m[date], t)
}

func percentOf(value, limit float64) float64 {
	if limit <= 0 {
		return 0
	}
	return value / limit * 100
}

func dailyLossPct(s *model.AccountState, date string) float64 {
	pnl := s.DailyPnL.Data()[date]
	if pnl >= 0 {
		return 0
	}
	return percentOf(-pnl, s.MaxDailyLoss)
}

// worstProfitDay is the profitable day holding the largest share of total
// profit across profitable days.
func worstProfitDay(s *model.AccountState) (string, float64) {
	daily := s.DailyPnL.Data()
	var total float64
	dates := make([]string, 0, len(daily))
	for date, pnl := range daily {
		if pnl > 0 {
			total += pnl
		}
		dates = append(dates, date)
	}
	if total <= 0 {
		return "", 0
	}
	sort.Strings(dates)

	var worst string
	var worstPct float64
	for _, date := range dates {
		pnl := daily[date]
		if pnl <= 0 {
			continue
		}
		if pct := pnl / total * 100; pct > worstPct {
			worst, worstPct = date, pct
		}
	}
	return worst, worstPct
}
