package syncer

import (
	"context"
	"errors"
	"sync"
	"time"
	"tlsync/internal/models"
	"tlsync/internal/providers"
	"tlsync/internal/structures"
	"tlsync/internal/syncer/interfaces"

	"github.com/roylee0704/gron"
)

// Scheduler triggers incremental syncs and export housekeeping on fixed
// intervals.
type Scheduler struct {
	config  *structures.Config
	logger  providers.Logger
	engine  interfaces.EngineInterface
	exports *ExportManager
	state   *SyncState
	cron    *gron.Cron
	opsMu   sync.Mutex
}

func (s *Scheduler) Init() {
	s.cron = gron.New()
	syncInterval := s.config.Sync.Interval
	sweepInterval := s.config.Export.SweepInterval

	s.cron.AddFunc(gron.Every(syncInterval), func() {
		s.opsMu.Lock()
		defer s.opsMu.Unlock()

		s.logger.Infof(providers.TypeSync, "Scheduled sync starting...")
		ctx, cancel := context.WithTimeout(context.Background(), syncInterval)
		defer cancel()

		summary, err := s.engine.Run(ctx, models.ModeIncremental)
		if err != nil {
			if errors.Is(err, models.ErrSyncAlreadyRunning) {
				s.logger.Warnf(providers.TypeSync, "Scheduled sync skipped: %s", err)
				return
			}
			s.logger.Errorf(providers.TypeSync, "Scheduled sync failed: %s", err)
			return
		}
		s.logger.Infof(providers.TypeSync, "Scheduled sync done: %d records", summary.Count)
	})

	s.cron.AddFunc(gron.Every(sweepInterval), func() {
		s.opsMu.Lock()
		defer s.opsMu.Unlock()

		if err := s.exports.Sweep(); err != nil {
			s.logger.Errorf(providers.TypeApp, "Export retention sweep failed: %s", err)
		}
	})

	s.cron.Start()
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// Restore logs the resume point at boot. A missing watermark is fine — the
// first run will fetch full history.
func (s *Scheduler) Restore() error {
	wm, err := s.state.Watermark()
	if err != nil {
		return err
	}
	if wm.IsZero() {
		s.logger.Infof(providers.TypeSync, "No previous sync found, first run will be full")
		return nil
	}
	s.logger.Infof(providers.TypeSync, "Resuming from watermark %s", wm.Format(time.RFC3339))
	return nil
}

// Persist runs a final retention sweep on shutdown.
func (s *Scheduler) Persist() error {
	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	if err := s.exports.Sweep(); err != nil {
		s.logger.Errorf(providers.TypeApp, "Error while sweeping exports: %s", err)
		return err
	}
	return nil
}

func NewScheduler(config *structures.Config, logger providers.Logger, engine interfaces.EngineInterface, exports *ExportManager, state *SyncState) interfaces.SchedulerInterface {
	return &Scheduler{
		config:  config,
		logger:  logger,
		engine:  engine,
		exports: exports,
		state:   state,
	}
}
