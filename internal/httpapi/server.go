package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"llmctl/internal/config"
	"llmctl/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
// *manager.Manager implements it.
type Service interface {
	Generate(ctx context.Context, req types.GenerateRequest) (types.GenerateResponse, error)
	ModelLoaded() bool
	Ready() bool
	Status() types.StatusResponse
	Config() config.Config
}

type api struct {
	svc      Service
	opts     Options
	defLevel LogLevel
}

// NewMux builds the HTTP handler served by the manager's serving unit.
func NewMux(svc Service, opts Options) http.Handler {
	opts = opts.withDefaults()
	a := &api{svc: svc, opts: opts, defLevel: parseLevel(strings.ToLower(opts.LogLevel))}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/health", a.health)
	r.Get("/status", a.status)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("model not loaded"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(requireAPIKey(func() config.ServerConfig { return svc.Config().Server }))
		r.Post("/generate", a.generate)
	})

	MountSwagger(r)
	return r
}

// health godoc
//
//	@Summary	Liveness and model state
//	@Tags		health
//	@Produce	json
//	@Success	200	{object}	types.HealthResponse
//	@Router		/health [get]
func (a *api) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.HealthResponse{Status: "ok", ModelLoaded: a.svc.ModelLoaded()})
}

// status godoc
//
//	@Summary	Controller status
//	@Tags		health
//	@Produce	json
//	@Success	200	{object}	types.StatusResponse
//	@Router		/status [get]
func (a *api) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.svc.Status())
}

// generate godoc
//
//	@Summary	Synchronous text completion
//	@Tags		generate
//	@Accept		json
//	@Produce	json
//	@Param		request	body		types.GenerateRequest	true	"Generation request"
//	@Success	200		{object}	types.GenerateResponse
//	@Failure	400		{object}	types.ErrorResponse
//	@Failure	401		{object}	types.ErrorResponse
//	@Failure	415		{object}	types.ErrorResponse
//	@Failure	429		{object}	types.ErrorResponse
//	@Failure	500		{object}	types.ErrorResponse
//	@Failure	503		{object}	types.ErrorResponse
//	@Security	ApiKeyAuth
//	@Router		/api/v1/generate [post]
func (a *api) generate(w http.ResponseWriter, r *http.Request) {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, a.opts.MaxBodyBytes)
	var req types.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	lg := a.requestLogger(r)
	lg.begin(r.URL.Path, len(req.Prompt))
	ctx := r.Context()
	if a.opts.GenerateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.GenerateTimeout)
		defer cancel()
	}
	resp, err := a.svc.Generate(ctx, req)
	if err != nil {
		// Client went away; nobody is listening for the error.
		if r.Context().Err() != nil {
			lg.end(499, err)
			return
		}
		status, msg := statusFor(err)
		if errors.Is(err, context.DeadlineExceeded) {
			status, msg = http.StatusGatewayTimeout, "generation timed out"
		}
		if status == http.StatusTooManyRequests {
			IncrementBackpressure("admission")
		}
		generateErrorsTotal.WithLabelValues(itoa(status)).Inc()
		writeJSONError(w, status, msg)
		lg.end(status, err)
		return
	}
	lg.debug("generate usage", map[string]any{
		"prompt_tokens":     resp.Usage.PromptTokens,
		"completion_tokens": resp.Usage.CompletionTokens,
	})
	writeJSON(w, http.StatusOK, resp)
	lg.end(http.StatusOK, nil)
}
