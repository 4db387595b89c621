package syncer

import (
	"context"
	"sync"
	"time"
	"tlsync/internal/models"
	"tlsync/internal/providers"
	"tlsync/internal/structures"
	"tlsync/internal/syncer/interfaces"

	"go.uber.org/atomic"
)

// CredentialSource is satisfied by *trakt.TokenStore.
type CredentialSource interface {
	Credential(ctx context.Context) (models.Credential, error)
}

// Source is satisfied by *trakt.Client.
type Source interface {
	FetchWatched(ctx context.Context, since *time.Time) ([]models.WatchedRecord, error)
	FetchRatings(ctx context.Context) (*models.RatingIndex, error)
}

type phase string

const (
	phaseIdle               phase = "idle"
	phaseFetchingCredential phase = "fetching_credential"
	phaseFetchingRecords    phase = "fetching_records"
	phaseReconciling        phase = "reconciling"
	phaseWriting            phase = "writing"
	phaseCompleted          phase = "completed"
	phaseErrored            phase = "errored"
)

// Engine drives one sync run end to end. Exactly one run may be in flight:
// a second invocation fails fast with ErrSyncAlreadyRunning before any
// network or state I/O. The watermark is advanced only after the export
// file has been committed, so any failure leaves the next run a clean
// retry (at-least-once semantics).
type Engine struct {
	conf    *structures.Config
	tokens  CredentialSource
	source  Source
	writer  ExportWriterInterface
	state   *SyncState
	logger  providers.Logger
	metrics providers.MetricsProviderInterface

	running atomic.Bool

	mu      sync.Mutex
	phase   phase
	lastRun *models.SyncSummary
	lastErr string
}

func NewEngine(
	conf *structures.Config,
	tokens CredentialSource,
	source Source,
	writer ExportWriterInterface,
	state *SyncState,
	logger providers.Logger,
	metrics providers.MetricsProviderInterface,
) interfaces.EngineInterface {
	return &Engine{
		conf:    conf,
		tokens:  tokens,
		source:  source,
		writer:  writer,
		state:   state,
		logger:  logger,
		metrics: metrics,
		phase:   phaseIdle,
	}
}

func (e *Engine) Run(ctx context.Context, mode models.SyncMode) (*models.SyncSummary, error) {
	if !e.running.CompareAndSwap(false, true) {
		return nil, models.ErrSyncAlreadyRunning
	}
	defer e.running.Store(false)

	start := time.Now()
	summary, err := e.run(ctx, mode)
	e.metrics.ObserveSyncDuration(time.Since(start))

	e.mu.Lock()
	if err != nil {
		e.phase = phaseErrored
		e.lastErr = err.Error()
		e.metrics.IncSyncRuns(string(mode), "error")
		e.logger.Errorf(providers.TypeSync, "Sync run failed: %s", err)
	} else {
		e.phase = phaseCompleted
		e.lastErr = ""
		e.lastRun = summary
		e.metrics.IncSyncRuns(string(summary.Scope), "success")
		e.logger.Infof(providers.TypeSync, "Sync run completed: %d records (%s)", summary.Count, summary.Scope)
	}
	e.mu.Unlock()

	return summary, err
}

func (e *Engine) run(ctx context.Context, mode models.SyncMode) (*models.SyncSummary, error) {
	scope := mode
	var since *time.Time

	if mode == models.ModeIncremental {
		wm, err := e.state.Watermark()
		if err != nil {
			return nil, err
		}
		switch {
		case !wm.IsZero():
			since = &wm
		case e.conf.Sync.StartDate != "":
			t, err := parseStartDate(e.conf.Sync.StartDate)
			if err != nil {
				return nil, err
			}
			since = &t
		default:
			// no watermark and no configured start date: full history
			scope = models.ModeFull
			e.logger.Infof(providers.TypeSync, "No watermark found, promoting to full sync")
		}
	}

	e.setPhase(phaseFetchingCredential)
	if _, err := e.tokens.Credential(ctx); err != nil {
		return nil, err
	}

	e.setPhase(phaseFetchingRecords)
	watched, err := e.source.FetchWatched(ctx, since)
	if err != nil {
		return nil, err
	}
	ratings, err := e.source.FetchRatings(ctx)
	if err != nil {
		return nil, err
	}

	e.setPhase(phaseReconciling)
	records := Reconcile(watched, ratings)

	summary := &models.SyncSummary{
		Count:       len(records),
		Scope:       scope,
		GeneratedAt: time.Now().UTC(),
	}

	if len(records) == 0 {
		// a legitimate outcome: nothing to export, nothing to mark as
		// synced, so the watermark stays put
		e.logger.Infof(providers.TypeSync, "No records to export (%s)", scope)
		return summary, nil
	}

	e.setPhase(phaseWriting)
	batch := &models.ExportBatch{
		Records:     records,
		GeneratedAt: summary.GeneratedAt,
		Scope:       scope,
	}
	path, size, err := e.writer.Write(batch)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// back off the watermark by the skew margin so a record whose write
	// lands just after the newest watched_at is not missed next run
	watermark := maxWatchedAt(watched).Add(-e.conf.Sync.SkewMargin)
	if err := e.state.Advance(watermark); err != nil {
		return nil, err
	}

	summary.OutputPath = path
	summary.SizeBytes = size
	summary.OversizeWarning = size > e.conf.Export.MaxFileBytes
	if summary.OversizeWarning {
		e.logger.Warnf(providers.TypeSync, "Export %s is %d bytes, above the importer ceiling of %d",
			path, size, e.conf.Export.MaxFileBytes)
	}

	e.metrics.AddRecordsExported(len(records))
	return summary, nil
}

func (e *Engine) Status() models.EngineStatus {
	wm, err := e.state.Watermark()
	if err != nil {
		e.logger.Warnf(providers.TypeSync, "Could not read watermark for status: %s", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return models.EngineStatus{
		Running:   e.running.Load(),
		Phase:     string(e.phase),
		Watermark: wm,
		LastRun:   e.lastRun,
		LastError: e.lastErr,
	}
}

func (e *Engine) setPhase(p phase) {
	e.mu.Lock()
	e.phase = p
	e.mu.Unlock()
	e.logger.Debugf(providers.TypeSync, "Sync phase: %s", p)
}

// maxWatchedAt finds the newest usable watch event in the fetched set.
func maxWatchedAt(watched []models.WatchedRecord) time.Time {
	var newest time.Time
	for _, w := range watched {
		if w.Usable() && w.WatchedAt.After(newest) {
			newest = w.WatchedAt
		}
	}
	return newest
}

func parseStartDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
