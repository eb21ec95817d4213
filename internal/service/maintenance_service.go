package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/gin-admin-kit/internal/bus"
)

const defaultPurgeSchedule = "@every 1h"

// SessionPurger removes expired admin sessions.
type SessionPurger interface {
	Purge(ctx context.Context) (int, error)
}

// PurgeResult reports one maintenance run.
type PurgeResult struct {
	Tokens   int64
	Sessions int
}

// MaintenanceService periodically purges expired refresh tokens and
// sessions on a cron schedule.
type MaintenanceService struct {
	commands *CommandBus
	deps     CommandDeps
	sessions SessionPurger
	schedule string
	logger   *zap.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	timeout time.Duration
}

// NewMaintenanceService constructs a MaintenanceService. sessions may be nil.
func NewMaintenanceService(commands *CommandBus, deps CommandDeps, sessions SessionPurger, schedule string, logger *zap.Logger) *MaintenanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if schedule == "" {
		schedule = defaultPurgeSchedule
	}
	return &MaintenanceService{
		commands: commands,
		deps:     deps,
		sessions: sessions,
		schedule: schedule,
		logger:   logger,
		timeout:  time.Minute,
	}
}

// Start schedules the purge job. It fails on an invalid schedule.
func (s *MaintenanceService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(s.schedule, s.runScheduled); err != nil {
		return fmt.Errorf("invalid purge schedule %q: %w", s.schedule, err)
	}
	c.Start()
	s.cron = c
	s.logger.Info("maintenance scheduled", zap.String("schedule", s.schedule))
	return nil
}

// Stop waits for a running purge to finish.
func (s *MaintenanceService) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	<-c.Stop().Done()
}

// RunOnce purges expired refresh tokens and sessions.
func (s *MaintenanceService) RunOnce(ctx context.Context) (PurgeResult, error) {
	var result PurgeResult

	tokens, err := bus.DispatchAs[int64](ctx, s.commands, PurgeTokens{}, s.deps)
	if err != nil {
		return result, fmt.Errorf("purge refresh tokens: %w", err)
	}
	result.Tokens = tokens

	if s.sessions != nil {
		n, err := s.sessions.Purge(ctx)
		if err != nil {
			return result, fmt.Errorf("purge sessions: %w", err)
		}
		result.Sessions = n
	}
	return result, nil
}

func (s *MaintenanceService) runScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	result, err := s.RunOnce(ctx)
	if err != nil {
		s.logger.Error("maintenance run failed", zap.Error(err))
		return
	}
	s.logger.Info("maintenance run completed",
		zap.Int64("refresh_tokens", result.Tokens),
		zap.Int("sessions", result.Sessions),
	)
}
