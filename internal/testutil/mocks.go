package testutil

import (
	"context"
	"sync"
	"time"
	"tlsync/internal/models"
	"tlsync/internal/providers"
)

// MockLogger implements providers.Logger and records calls.
type MockLogger struct {
	mu   sync.Mutex
	Logs []LogEntry
}

type LogEntry struct {
	Level  string
	Type   providers.TypeEnum
	Format string
	Args   []interface{}
}

func (m *MockLogger) record(level string, t providers.TypeEnum, format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, LogEntry{Level: level, Type: t, Format: format, Args: args})
}

func (m *MockLogger) Errorf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("error", t, format, args...)
}
func (m *MockLogger) Warnf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("warn", t, format, args...)
}
func (m *MockLogger) Debugf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("debug", t, format, args...)
}
func (m *MockLogger) Infof(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("info", t, format, args...)
}
func (m *MockLogger) Fatalf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("fatal", t, format, args...)
}
func (m *MockLogger) Close() {}

// MockCache implements providers.CacheProviderInterface.
type MockCache struct {
	mu   sync.Mutex
	Data map[string][]byte
}

func NewMockCache() *MockCache {
	return &MockCache{Data: make(map[string][]byte)}
}

func (m *MockCache) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.Data[key]
	return val, ok
}

func (m *MockCache) Set(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Data[key] = value
}

func (m *MockCache) Del(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Data, key)
}

// MockCompressor implements interfaces.CompressorInterface with injectable behavior.
type MockCompressor struct {
	CompressFn   func([]byte) ([]byte, error)
	DecompressFn func([]byte) ([]byte, error)
}

func (m *MockCompressor) Compress(val []byte) ([]byte, error) {
	if m.CompressFn != nil {
		return m.CompressFn(val)
	}
	// Default: return as-is (identity)
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) Decompress(val []byte) ([]byte, error) {
	if m.DecompressFn != nil {
		return m.DecompressFn(val)
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) Close() {}

// MockMetrics implements providers.MetricsProviderInterface and counts calls.
type MockMetrics struct {
	mu              sync.Mutex
	RequestsTotal   int
	CacheHits       int
	CacheMisses     int
	SyncRuns        map[string]int // key: "scope:result"
	RecordsExported int
	SourceRequests  int
	SourceRetries   int
}

func (m *MockMetrics) IncRequestsTotal(endpoint string, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestsTotal++
}

func (m *MockMetrics) ObserveRequestDuration(endpoint string, duration time.Duration) {}

func (m *MockMetrics) IncCacheHits() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheHits++
}

func (m *MockMetrics) IncCacheMisses() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheMisses++
}

func (m *MockMetrics) IncSyncRuns(scope, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SyncRuns == nil {
		m.SyncRuns = make(map[string]int)
	}
	m.SyncRuns[scope+":"+result]++
}

func (m *MockMetrics) ObserveSyncDuration(duration time.Duration) {}

func (m *MockMetrics) AddRecordsExported(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RecordsExported += count
}

func (m *MockMetrics) IncSourceRequests(endpoint string, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SourceRequests++
}

func (m *MockMetrics) IncSourceRetries() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SourceRetries++
}

// MockCredentials implements the engine's and client's credential source.
type MockCredentials struct {
	mu    sync.Mutex
	Cred  models.Credential
	Err   error
	Calls int
}

func (m *MockCredentials) Credential(ctx context.Context) (models.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if m.Err != nil {
		return models.Credential{}, m.Err
	}
	return m.Cred, nil
}

// MockSource implements syncer.Source with injectable results.
type MockSource struct {
	mu          sync.Mutex
	Watched     []models.WatchedRecord
	WatchedErr  error
	Ratings     *models.RatingIndex
	RatingsErr  error
	SinceCalls  []*time.Time
	FetchCalled int
}

func (m *MockSource) FetchWatched(ctx context.Context, since *time.Time) ([]models.WatchedRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FetchCalled++
	m.SinceCalls = append(m.SinceCalls, since)
	if m.WatchedErr != nil {
		return nil, m.WatchedErr
	}
	return m.Watched, nil
}

func (m *MockSource) FetchRatings(ctx context.Context) (*models.RatingIndex, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RatingsErr != nil {
		return nil, m.RatingsErr
	}
	if m.Ratings == nil {
		return models.NewRatingIndex(), nil
	}
	return m.Ratings, nil
}

// MockWriter implements syncer.ExportWriterInterface.
type MockWriter struct {
	mu      sync.Mutex
	Batches []*models.ExportBatch
	Path    string
	Size    int64
	Err     error
}

func (m *MockWriter) Write(batch *models.ExportBatch) (string, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", 0, m.Err
	}
	m.Batches = append(m.Batches, batch)
	path := m.Path
	if path == "" {
		path = "/tmp/mock_export.csv"
	}
	return path, m.Size, nil
}

// MockEngine implements interfaces.EngineInterface.
type MockEngine struct {
	mu          sync.Mutex
	RunFn       func(ctx context.Context, mode models.SyncMode) (*models.SyncSummary, error)
	StatusValue models.EngineStatus
	RunCalls    []models.SyncMode
}

func (m *MockEngine) Run(ctx context.Context, mode models.SyncMode) (*models.SyncSummary, error) {
	m.mu.Lock()
	m.RunCalls = append(m.RunCalls, mode)
	fn := m.RunFn
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, mode)
	}
	return &models.SyncSummary{Scope: mode}, nil
}

func (m *MockEngine) Status() models.EngineStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.StatusValue
}

// MockExports implements syncer.ExportsInterface.
type MockExports struct {
	Exports    []models.ExportInfo
	RecentErr  error
	ResolveFn  func(name string) (string, error)
	ResolveArg string
}

func (m *MockExports) Recent(limit int) ([]models.ExportInfo, error) {
	if m.RecentErr != nil {
		return nil, m.RecentErr
	}
	if limit > 0 && len(m.Exports) > limit {
		return m.Exports[:limit], nil
	}
	return m.Exports, nil
}

func (m *MockExports) Resolve(name string) (string, error) {
	m.ResolveArg = name
	if m.ResolveFn != nil {
		return m.ResolveFn(name)
	}
	return "/tmp/" + name, nil
}
