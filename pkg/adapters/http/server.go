// Package http exposes scenes over a JSON API routed with chi.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/aretw0/espalier"
	"github.com/aretw0/espalier/internal/logging"
	"github.com/aretw0/espalier/internal/presentation/graph"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/models"
	"github.com/aretw0/espalier/pkg/scene"
	"github.com/aretw0/espalier/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ErrNotNumberSource is returned when a value update targets a node that does not hold a number.
var ErrNotNumberSource = errors.New("node is not a number source")

// Server serves the scene API on top of a session.Manager.
type Server struct {
	Sessions *session.Manager
	Streams  *StreamManager

	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger configures the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics exposes g on GET /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// NewHandler creates the HTTP handler for the scenes held by sessions.
func NewHandler(sessions *session.Manager, opts ...Option) http.Handler {
	s := &Server{
		Sessions: sessions,
		Streams:  NewStreamManager(),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams.logger = s.logger

	r := chi.NewRouter()
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/scenes", func(r chi.Router) {
		r.Get("/", s.ListScenes)
		r.Route("/{sceneID}", func(r chi.Router) {
			r.Get("/", s.GetScene)
			r.Put("/", s.PutScene)
			r.Delete("/", s.DeleteScene)
			r.Get("/mermaid", s.GetMermaid)
			r.Get("/validate", s.ValidateScene)
			r.Get("/events", s.SubscribeEvents)

			r.Post("/nodes", s.CreateNode)
			r.Delete("/nodes/{nodeID}", s.DeleteNode)
			r.Put("/nodes/{nodeID}/value", s.SetValue)
			r.Post("/nodes/{nodeID}/ports", s.InsertPort)
			r.Post("/nodes/{nodeID}/ports/move", s.MovePort)
			r.Delete("/nodes/{nodeID}/ports/{portType}/{index}", s.RemovePort)

			r.Post("/connections", s.CreateConnection)
			r.Delete("/connections/{connectionID}", s.DeleteConnection)
		})
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"app":     "espalier-http",
		"version": strings.TrimSpace(espalier.Version),
		"models":  s.Sessions.Registry().Names(),
	})
}

// ListScenes handles GET /scenes.
func (s *Server) ListScenes(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Sessions.List(r.Context())
	if err != nil {
		s.fail(w, "list scenes", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"scenes": ids})
}

// GetScene handles GET /scenes/{sceneID}.
func (s *Server) GetScene(w http.ResponseWriter, r *http.Request) {
	rec, err := s.Sessions.Store().Load(r.Context(), chi.URLParam(r, "sceneID"))
	if err != nil {
		s.fail(w, "load scene", err)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

// PutScene handles PUT /scenes/{sceneID}. The body is restored into a scene
// first, so records that do not load are rejected before they are stored.
func (s *Server) PutScene(w http.ResponseWriter, r *http.Request) {
	var rec domain.SceneRecord
	if !s.decode(w, r, &rec) {
		return
	}
	s.update(w, r, http.StatusOK, func(sc *scene.Scene) (any, error) {
		if err := sc.Restore(&rec); err != nil {
			return nil, badRequest(err)
		}
		return nil, nil
	})
}

// DeleteScene handles DELETE /scenes/{sceneID}.
func (s *Server) DeleteScene(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.Delete(r.Context(), chi.URLParam(r, "sceneID")); err != nil {
		s.fail(w, "delete scene", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetMermaid handles GET /scenes/{sceneID}/mermaid.
func (s *Server) GetMermaid(w http.ResponseWriter, r *http.Request) {
	rec, err := s.Sessions.Store().Load(r.Context(), chi.URLParam(r, "sceneID"))
	if err != nil {
		s.fail(w, "load scene", err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(graph.GenerateMermaid(rec, nil)))
}

// ValidationResult reports whether a stored scene satisfies the port and connection invariants.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// ValidateScene handles GET /scenes/{sceneID}/validate.
func (s *Server) ValidateScene(w http.ResponseWriter, r *http.Request) {
	sc, err := s.Sessions.Open(r.Context(), chi.URLParam(r, "sceneID"))
	if err != nil {
		s.fail(w, "open scene", err)
		return
	}
	result := ValidationResult{Valid: true}
	if err := sc.Validate(); err != nil {
		result.Valid = false
		result.Errors = splitJoined(err)
	}
	s.writeJSON(w, http.StatusOK, result)
}

// CreateNode handles POST /scenes/{sceneID}/nodes with a node record body.
func (s *Server) CreateNode(w http.ResponseWriter, r *http.Request) {
	var rec domain.NodeRecord
	if !s.decode(w, r, &rec) {
		return
	}
	s.update(w, r, http.StatusCreated, func(sc *scene.Scene) (any, error) {
		n, err := sc.AddNode(rec)
		if err != nil {
			return nil, badRequest(err)
		}
		return n.Save(), nil
	})
}

// DeleteNode handles DELETE /scenes/{sceneID}/nodes/{nodeID}.
func (s *Server) DeleteNode(w http.ResponseWriter, r *http.Request) {
	id := domain.NodeID(chi.URLParam(r, "nodeID"))
	s.update(w, r, http.StatusOK, func(sc *scene.Scene) (any, error) {
		return nil, sc.RemoveNode(id)
	})
}

// SetValue handles PUT /scenes/{sceneID}/nodes/{nodeID}/value on number sources.
func (s *Server) SetValue(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Value float64 `json:"value"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	id := domain.NodeID(chi.URLParam(r, "nodeID"))
	s.update(w, r, http.StatusOK, func(sc *scene.Scene) (any, error) {
		n, err := sc.Node(id)
		if err != nil {
			return nil, err
		}
		src, ok := n.Model().(*models.NumberSource)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotNumberSource, id)
		}
		src.SetValue(body.Value)
		return nil, nil
	})
}

// PortRequest is the body of the port mutation endpoints.
type PortRequest struct {
	PortType domain.PortType  `json:"port_type"`
	Index    domain.PortIndex `json:"index"`
	To       domain.PortIndex `json:"to,omitempty"`
}

// InsertPort handles POST /scenes/{sceneID}/nodes/{nodeID}/ports.
func (s *Server) InsertPort(w http.ResponseWriter, r *http.Request) {
	var req PortRequest
	if !s.decode(w, r, &req) {
		return
	}
	id := domain.NodeID(chi.URLParam(r, "nodeID"))
	s.update(w, r, http.StatusOK, func(sc *scene.Scene) (any, error) {
		return nil, sc.InsertPort(id, req.PortType, req.Index)
	})
}

// MovePort handles POST /scenes/{sceneID}/nodes/{nodeID}/ports/move.
func (s *Server) MovePort(w http.ResponseWriter, r *http.Request) {
	var req PortRequest
	if !s.decode(w, r, &req) {
		return
	}
	id := domain.NodeID(chi.URLParam(r, "nodeID"))
	s.update(w, r, http.StatusOK, func(sc *scene.Scene) (any, error) {
		return nil, sc.MovePort(id, req.PortType, req.Index, req.To)
	})
}

// RemovePort handles DELETE /scenes/{sceneID}/nodes/{nodeID}/ports/{portType}/{index}.
func (s *Server) RemovePort(w http.ResponseWriter, r *http.Request) {
	portType, err := domain.ParsePortType(chi.URLParam(r, "portType"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid port index: %v", err), http.StatusBadRequest)
		return
	}
	id := domain.NodeID(chi.URLParam(r, "nodeID"))
	s.update(w, r, http.StatusOK, func(sc *scene.Scene) (any, error) {
		return nil, sc.RemovePort(id, portType, domain.PortIndex(index))
	})
}

// CreateConnection handles POST /scenes/{sceneID}/connections with a connection record body.
func (s *Server) CreateConnection(w http.ResponseWriter, r *http.Request) {
	var rec domain.ConnectionRecord
	if !s.decode(w, r, &rec) {
		return
	}
	s.update(w, r, http.StatusCreated, func(sc *scene.Scene) (any, error) {
		c, err := sc.CreateConnection(domain.NodeID(rec.OutID), rec.OutIndex, domain.NodeID(rec.InID), rec.InIndex)
		if err != nil {
			return nil, err
		}
		return c.Record(), nil
	})
}

// DeleteConnection handles DELETE /scenes/{sceneID}/connections/{connectionID}.
func (s *Server) DeleteConnection(w http.ResponseWriter, r *http.Request) {
	id := domain.ConnectionID(chi.URLParam(r, "connectionID"))
	s.update(w, r, http.StatusOK, func(sc *scene.Scene) (any, error) {
		return nil, sc.DeleteConnection(id)
	})
}

// SubscribeEvents handles GET /scenes/{sceneID}/events (SSE). Every committed
// change to the scene is sent as a SceneDiff.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	sceneID := chi.URLParam(r, "sceneID")
	ch, cancel := s.Streams.Subscribe(sceneID)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()
	s.logger.Info("SSE: client subscribed", "scene_id", sceneID)

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE: client disconnected", "scene_id", sceneID)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// update runs fn through the session manager, broadcasts the committed diff
// and writes fn's result, or the diff when fn returns none.
func (s *Server) update(w http.ResponseWriter, r *http.Request, status int, fn func(*scene.Scene) (any, error)) {
	sceneID := chi.URLParam(r, "sceneID")
	var result any
	diff, err := s.Sessions.Update(r.Context(), sceneID, func(sc *scene.Scene) error {
		var err error
		result, err = fn(sc)
		return err
	})
	if err != nil {
		s.fail(w, "update scene", err)
		return
	}

	if diff != nil {
		if payload, err := json.Marshal(diff); err == nil {
			s.Streams.Broadcast(sceneID, string(payload))
		}
	}
	if result == nil {
		if diff == nil {
			diff = &domain.SceneDiff{SceneID: sceneID}
		}
		result = diff
	}
	s.writeJSON(w, status, result)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("invalid request body", "path", r.URL.Path, "error", err)
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", "error", err)
	} else {
		s.logger.Debug(op+" rejected", "error", err)
	}
	http.Error(w, fmt.Sprintf("%s: %v", op, err), status)
}

type badRequestError struct{ err error }

func (e badRequestError) Error() string { return e.err.Error() }
func (e badRequestError) Unwrap() error { return e.err }

func badRequest(err error) error {
	if err == nil {
		return nil
	}
	return badRequestError{err}
}

func statusFor(err error) int {
	var bad badRequestError
	switch {
	case errors.Is(err, domain.ErrSceneNotFound),
		errors.Is(err, domain.ErrNodeNotFound),
		errors.Is(err, domain.ErrConnectionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrIncompatibleDataType),
		errors.Is(err, domain.ErrCycleDetected),
		errors.Is(err, domain.ErrPortsNotDynamic),
		errors.Is(err, ErrNotNumberSource):
		return http.StatusConflict
	case errors.Is(err, domain.ErrPortIndexOutOfRange),
		errors.Is(err, domain.ErrInvalidPortType),
		errors.Is(err, domain.ErrModelNotRegistered),
		errors.As(err, &bad):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// splitJoined flattens an errors.Join result into one message per error.
func splitJoined(err error) []string {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []string
		for _, e := range joined.Unwrap() {
			out = append(out, splitJoined(e)...)
		}
		return out
	}
	return []string{err.Error()}
}
