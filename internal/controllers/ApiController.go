package controllers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"tlsync/internal/models"
	"tlsync/internal/providers"
	"tlsync/internal/structures"
	"tlsync/internal/syncer"
	"tlsync/internal/syncer/interfaces"
	"tlsync/internal/trakt"

	json "github.com/goccy/go-json"
)

const maxRequestBodySize = 1 << 20 // 1 MB

const recentExportsLimit = 20

// SourceChecker is satisfied by *trakt.Client.
type SourceChecker interface {
	Ping(ctx context.Context) error
}

type ApiController struct {
	logger  providers.Logger
	engine  interfaces.EngineInterface
	exports syncer.ExportsInterface
	auth    trakt.AuthFlowInterface
	source  SourceChecker
	cache   providers.CacheProviderInterface
	metrics providers.MetricsProviderInterface
	conf    *structures.Config

	flowMu      sync.Mutex
	pendingFlow *trakt.DeviceCode
}

func NewApiController(
	logger providers.Logger,
	engine interfaces.EngineInterface,
	exports syncer.ExportsInterface,
	auth trakt.AuthFlowInterface,
	source SourceChecker,
	cache providers.CacheProviderInterface,
	metrics providers.MetricsProviderInterface,
	conf *structures.Config,
) *ApiController {
	return &ApiController{
		logger:  logger,
		engine:  engine,
		exports: exports,
		auth:    auth,
		source:  source,
		cache:   cache,
		metrics: metrics,
		conf:    conf,
	}
}

func (ac *ApiController) serveFromCacheOrCompute(w http.ResponseWriter, cacheKey string, compute func() (any, error)) {
	if data, ok := ac.cache.Get(cacheKey); ok {
		ac.metrics.IncCacheHits()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return
	}
	ac.metrics.IncCacheMisses()

	result, err := compute()
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	gson, err := json.Marshal(result)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	ac.cache.Set(cacheKey, gson)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(gson)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	gson, err := json.Marshal(body)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(gson)
}

type errorResponse struct {
	Error string `json:"error"`
}

// syncErrorStatus maps the failure taxonomy onto HTTP statuses so the
// caller can tell "re-authenticate" from "retry later".
func syncErrorStatus(err error) int {
	switch {
	case errors.Is(err, models.ErrSyncAlreadyRunning):
		return http.StatusConflict
	case errors.Is(err, models.ErrUnauthenticated),
		errors.Is(err, models.ErrAuthRefreshFailed),
		errors.Is(err, models.ErrAuthExpired),
		errors.Is(err, models.ErrAuthDenied):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrSourceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (ac *ApiController) TriggerSync(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var payload struct {
		Full bool `json:"full"`
	}
	// an empty body means an incremental run
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	mode := models.ModeIncremental
	if payload.Full {
		mode = models.ModeFull
	}

	summary, err := ac.engine.Run(r.Context(), mode)
	if err != nil {
		writeJSON(w, syncErrorStatus(err), errorResponse{Error: err.Error()})
		return
	}

	ac.cache.Del("status")
	ac.cache.Del("exports")
	writeJSON(w, http.StatusOK, summary)
}

func (ac *ApiController) Status(w http.ResponseWriter, r *http.Request) {
	ac.serveFromCacheOrCompute(w, "status", func() (any, error) {
		return ac.engine.Status(), nil
	})
}

func (ac *ApiController) ListExports(w http.ResponseWriter, r *http.Request) {
	ac.serveFromCacheOrCompute(w, "exports", func() (any, error) {
		exports, err := ac.exports.Recent(recentExportsLimit)
		if err != nil {
			return nil, err
		}
		if exports == nil {
			exports = []models.ExportInfo{}
		}
		return exports, nil
	})
}

func (ac *ApiController) DownloadExport(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("file")
	path, err := ac.exports.Resolve(name)
	if err != nil {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Disposition", "attachment; filename=\""+name+"\"")
	http.ServeFile(w, r, path)
}

// CheckSource performs a live request against the source service so the
// caller can distinguish "token works" from "service reachable" without
// starting a sync run.
func (ac *ApiController) CheckSource(w http.ResponseWriter, r *http.Request) {
	if err := ac.source.Ping(r.Context()); err != nil {
		writeJSON(w, syncErrorStatus(err), errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"source": "ok"})
}

type authStartResponse struct {
	UserCode        string `json:"user_code"`
	VerificationURL string `json:"verification_url"`
	ExpiresIn       int    `json:"expires_in"`
}

func (ac *ApiController) StartAuth(w http.ResponseWriter, r *http.Request) {
	dc, err := ac.auth.Start(r.Context())
	if err != nil {
		writeJSON(w, syncErrorStatus(err), errorResponse{Error: err.Error()})
		return
	}

	ac.flowMu.Lock()
	ac.pendingFlow = dc
	ac.flowMu.Unlock()

	writeJSON(w, http.StatusOK, authStartResponse{
		UserCode:        dc.UserCode,
		VerificationURL: dc.VerificationURL,
		ExpiresIn:       dc.ExpiresIn,
	})
}

func (ac *ApiController) CompleteAuth(w http.ResponseWriter, r *http.Request) {
	ac.flowMu.Lock()
	dc := ac.pendingFlow
	ac.flowMu.Unlock()

	if dc == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no device flow in progress"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), ac.conf.Trakt.AuthTimeout)
	defer cancel()

	if err := ac.auth.Complete(ctx, dc); err != nil {
		writeJSON(w, syncErrorStatus(err), errorResponse{Error: err.Error()})
		return
	}

	ac.flowMu.Lock()
	ac.pendingFlow = nil
	ac.flowMu.Unlock()

	ac.cache.Del("status")
	writeJSON(w, http.StatusOK, map[string]string{"state": string(trakt.FlowAuthorized)})
}
