package service

import (
	"context"
	"fmt"
	"signalcrawler/internal/dto"
	"signalcrawler/internal/instrument"
	"signalcrawler/internal/model"
	"signalcrawler/internal/repository"
	"signalcrawler/internal/session"
	"signalcrawler/pkg/utils"
	"time"

	"golang.org/x/sync/errgroup"
)

type RecommendationService interface {
	List(ctx context.Context, param dto.GetRecommendationsParam) ([]model.Recommendation, error)
	Get(ctx context.Context, id string) (*model.Recommendation, error)
	Stats(ctx context.Context) (dto.PerformanceStats, error)
}

type recommendationService struct {
	clock              session.Clock
	loc                *time.Location
	recommendationRepo repository.RecommendationRepository
}

func NewRecommendationService(clock session.Clock, loc *time.Location, recommendationRepo repository.RecommendationRepository) RecommendationService {
	return &recommendationService{clock: clock, loc: loc, recommendationRepo: recommendationRepo}
}

func (s *recommendationService) List(ctx context.Context, param dto.GetRecommendationsParam) ([]model.Recommendation, error) {
	if param.Instrument != "" {
		param.Instrument = instrument.Normalize(param.Instrument)
	}
	return s.recommendationRepo.Get(ctx, param)
}

func (s *recommendationService) Get(ctx context.Context, id string) (*model.Recommendation, error) {
	return s.recommendationRepo.FindByID(ctx, id)
}

// Stats summarizes every recommendation plus the ones created since midnight
// of the current session date.
func (s *recommendationService) Stats(ctx context.Context) (dto.PerformanceStats, error) {
	now := s.clock.Now()
	date := utils.SessionDate(now, s.loc)
	midnight, err := utils.ParseSessionDate(date, s.loc)
	if err != nil {
		return dto.PerformanceStats{}, err
	}

	var all, today []dto.RecommendationStatusTotal
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		all, err = s.recommendationRepo.StatusTotals(gctx, time.Time{})
		return err
	})
	g.Go(func() error {
		var err error
		today, err = s.recommendationRepo.StatusTotals(gctx, midnight)
		return err
	})
	if err := g.Wait(); err != nil {
		return dto.PerformanceStats{}, fmt.Errorf("failed to aggregate recommendations: %w", err)
	}

	return dto.PerformanceStats{
		PerformanceSummary: dto.NewPerformanceSummary(all),
		BestInstrument:     dto.BestInstrumentOf(all),
		Today:              dto.NewPerformanceSummary(today),
		Date:               date,
	}, nil
}
