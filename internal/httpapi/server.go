package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hamed0406/tlscheck/internal/domain"
	apimw "github.com/hamed0406/tlscheck/internal/httpapi/middleware"
	"github.com/hamed0406/tlscheck/internal/probe"
	"github.com/hamed0406/tlscheck/internal/repo"
)

type BatchChecker interface {
	CheckMany(ctx context.Context, hosts []string) domain.BatchResult
}

type WatchRunner interface {
	RunOnce(ctx context.Context) (domain.BatchResult, error)
}

type Server struct {
	Logger  *zap.Logger
	Checker probe.Checker
	Batch   BatchChecker
	Watcher WatchRunner
	Targets repo.TargetStore
	Results repo.ResultStore
	// Gatherer backs /metrics; nil disables the route.
	Gatherer prometheus.Gatherer

	MaxBatchSize int
	DefaultPort  int
}

func NewServer(l *zap.Logger, chk probe.Checker, batch BatchChecker, ts repo.TargetStore, rs repo.ResultStore) *Server {
	if l == nil {
		l = zap.NewNop()
	}
	return &Server{
		Logger:       l,
		Checker:      chk,
		Batch:        batch,
		Targets:      ts,
		Results:      rs,
		MaxBatchSize: 100,
		DefaultPort:  probe.DefaultPort,
	}
}

// Router builds the HTTP surface. With no origins configured CORS allows all.
func (s *Server) Router(keys apimw.Keys, origins []string, publicRPM, publicBurst int) http.Handler {
	r := chi.NewRouter()
	r.Use(apimw.RequestID)
	r.Use(apimw.AccessLog(s.Logger))
	if len(origins) == 0 {
		r.Use(cors.AllowAll().Handler)
	} else {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", "Authorization", "X-API-Key", apimw.HeaderRequestID},
			ExposedHeaders: []string{apimw.HeaderRequestID},
			MaxAge:         300,
		}))
	}

	r.Get("/health", s.handleHealth)
	r.Get("/openapi", s.handleOpenapi)
	if s.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(apimw.RateLimit(publicRPM, publicBurst))
		r.Get("/check", s.handleCheck)
		r.Post("/check-multiple", s.handleCheckMultiple)
	})

	r.Route("/api/watch", func(r chi.Router) {
		r.Use(apimw.RateLimit(publicRPM, publicBurst))
		r.With(apimw.RequireAny(keys)).Get("/targets", s.handleListTargets)
		r.With(apimw.RequireAny(keys)).Get("/latest", s.handleLatest)
		r.With(apimw.RequireAdmin(keys)).Post("/targets", s.handleAddTarget)
		r.With(apimw.RequireAdmin(keys)).Post("/run", s.handleRunWatch)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	host := q.Get("domain")
	if errs := validateSingle(host, q.Has("domain"), s.DefaultPort); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, validationResponse{Errors: errs})
		return
	}

	out := s.Checker.Check(r.Context(), host)
	s.Logger.Info("check",
		zap.String("host", host),
		zap.String("status", out.Status()),
		zap.String("request_id", apimw.RequestIDFrom(r.Context())),
	)
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCheckMultiple(w http.ResponseWriter, r *http.Request) {
	hosts, errs := decodeDomains(http.MaxBytesReader(w, r.Body, 1<<20), s.MaxBatchSize, s.DefaultPort)
	if len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, validationResponse{Errors: errs})
		return
	}

	out := s.Batch.CheckMany(r.Context(), hosts)
	s.Logger.Info("check_multiple",
		zap.Int("hosts", len(hosts)),
		zap.String("request_id", apimw.RequestIDFrom(r.Context())),
	)
	writeJSON(w, http.StatusOK, out)
}

type addPayload struct {
	Host string `json:"host"`
}

func (s *Server) handleAddTarget(w http.ResponseWriter, r *http.Request) {
	if s.Watcher == nil {
		writeError(w, http.StatusServiceUnavailable, "watcher disabled")
		return
	}
	var p addPayload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "bad payload")
		return
	}
	p.Host = strings.TrimSpace(p.Host)
	if _, err := probe.ParseTarget(p.Host, s.DefaultPort); err != nil {
		writeJSON(w, http.StatusBadRequest, validationResponse{Errors: []fieldError{
			{Type: "field", Value: p.Host, Msg: msgInvalidHost, Path: "host", Location: "body"},
		}})
		return
	}

	t := domain.WatchTarget{Host: p.Host, CreatedAt: time.Now().UTC()}
	if err := s.Targets.Add(r.Context(), t); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			writeError(w, http.StatusConflict, "already watched")
			return
		}
		writeError(w, http.StatusInternalServerError, "could not add")
		return
	}

	// Run a single check synchronously for immediate feedback
	out := s.Checker.Check(r.Context(), p.Host)
	_ = s.Results.Append(r.Context(), out)

	s.Logger.Info("added_target",
		zap.String("host", p.Host),
		zap.String("status", out.Status()),
	)
	writeJSON(w, http.StatusCreated, map[string]any{
		"target": t, "result": out,
	})
}

func (s *Server) handleListTargets(w http.ResponseWriter, r *http.Request) {
	ts, err := s.Targets.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list error")
		return
	}
	writeJSON(w, http.StatusOK, ts)
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	rows, err := s.Results.Latest(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "latest error")
		return
	}
	writeJSON(w, http.StatusOK, domain.BatchResult(rows))
}

func (s *Server) handleRunWatch(w http.ResponseWriter, r *http.Request) {
	if s.Watcher == nil {
		writeError(w, http.StatusServiceUnavailable, "watcher disabled")
		return
	}
	out, err := s.Watcher.RunOnce(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "watch run failed")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{
		"error":     msg,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
