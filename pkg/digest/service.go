// Package digest posts a daily appointment summary to Slack on a cron
// schedule.
package digest

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/harun/assigny/pkg/scheduling"
	"github.com/harun/assigny/pkg/toolbackend"
)

// Options configures the digest service.
type Options struct {
	Schedule string // cron expression, e.g. "0 18 * * *"
	Channel  string // Slack channel override; "" uses the notifier default
}

// Service runs the scheduled digest. It drives the same stats tool the agent
// uses, so the Slack side effect and the summary text stay in one place.
type Service struct {
	connector toolbackend.Connector
	options   Options
	cron      *cron.Cron
	logger    zerolog.Logger
	now       func() time.Time
}

// NewService creates a digest service. The schedule must be a valid five
// field cron expression.
func NewService(connector toolbackend.Connector, options Options, logger zerolog.Logger) (*Service, error) {
	if connector == nil {
		return nil, fmt.Errorf("tool backend connector is required")
	}
	if options.Schedule == "" {
		options.Schedule = "0 18 * * *"
	}
	if _, err := cron.ParseStandard(options.Schedule); err != nil {
		return nil, fmt.Errorf("invalid digest schedule %q: %w", options.Schedule, err)
	}
	return &Service{
		connector: connector,
		options:   options,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Start begins running the digest on its schedule.
func (s *Service) Start() error {
	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.options.Schedule, func() {
		if err := s.Run(context.Background()); err != nil {
			s.logger.Error().Err(err).Msg("Daily digest failed")
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule digest: %w", err)
	}
	s.cron.Start()

	s.logger.Info().Str("schedule", s.options.Schedule).Msg("Daily digest scheduled")
	return nil
}

// Stop stops the schedule and waits for a running digest to finish.
func (s *Service) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

// Run posts one digest for the current day.
func (s *Service) Run(ctx context.Context) error {
	client, err := s.connector.Open(ctx)
	if err != nil {
		return fmt.Errorf("failed to open tool backend: %w", err)
	}
	defer client.Close()

	query := map[string]any{
		"for_date": s.now().UTC().Format(scheduling.DateLayout),
		"notify":   true,
	}
	if s.options.Channel != "" {
		query["notify_channel"] = s.options.Channel
	}

	result, err := client.CallTool(ctx, scheduling.ToolAppointmentStats, map[string]any{"query": query})
	if err != nil {
		return fmt.Errorf("digest stats call failed: %w", err)
	}

	s.logger.Info().Str("result", result.Content).Msg("Daily digest posted")
	return nil
}
