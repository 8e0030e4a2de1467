package service

import (
	"context"

	"trends-go/pkg/logger"
	"trends-go/pkg/trends"
)

// TrendsService is what the HTTP layer needs from the client.
type TrendsService interface {
	FetchTrends(ctx context.Context, keywords []string, opts trends.Options) (*trends.TrendResult, error)
}

// SerialTrendsService lets concurrent callers share one client while only
// one fetch pipeline talks to the provider at a time.
type SerialTrendsService struct {
	client   TrendsService
	executor *SequentialExecutor
	log      *logger.Logger
}

func NewSerialTrendsService(client TrendsService, log *logger.Logger) *SerialTrendsService {
	if log == nil {
		log = logger.GetLogger()
	}
	return &SerialTrendsService{
		client:   client,
		executor: NewSequentialExecutor(),
		log:      log.WithField("component", "trends_service"),
	}
}

func (s *SerialTrendsService) FetchTrends(ctx context.Context, keywords []string, opts trends.Options) (*trends.TrendResult, error) {
	var result *trends.TrendResult
	err := s.executor.Execute(ctx, func(ctx context.Context) error {
		var err error
		result, err = s.client.FetchTrends(ctx, keywords, opts)
		return err
	})
	if err != nil {
		s.log.WithError(err).WithField("severity", trends.ClassifyError(err).String()).Debug("Fetch did not complete")
		return nil, err
	}
	return result, nil
}
