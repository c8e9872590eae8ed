package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/idilsaglam/issuestash/internal/logging"
	"github.com/idilsaglam/issuestash/internal/messenger"
)

// ShutdownTimeout bounds how long Run waits for in-flight calls on exit.
const ShutdownTimeout = 5 * time.Second

// Server exposes a messenger.Bus over HTTP.
type Server struct {
	bus   *messenger.Bus
	token string
	log   *zap.Logger
}

// NewServer returns a Server for bus. A non-empty token is required as a
// bearer token on every request.
func NewServer(bus *messenger.Bus, token string, log *zap.Logger) *Server {
	return &Server{bus: bus, token: token, log: logging.OrNop(log)}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+pathMessages, s.handleMessage)
	mux.HandleFunc("GET "+pathActive, s.handleActive)
	mux.HandleFunc("GET "+pathInstances, s.handleInstances)
	return requireToken(s.token, mux)
}

// Run serves on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ErrorLog:          zap.NewStdLog(s.log),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("agent listening", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	target := messenger.InstanceID(r.PathValue("instance"))
	log := s.log.With(zap.String("instance", string(target)), zap.String("request_id", r.Header.Get(headerRequestID)))

	var req messenger.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest)
		return
	}
	if !req.Kind.Valid() {
		writeError(w, http.StatusBadRequest, codeBadRequest)
		return
	}

	resp, err := s.bus.Send(r.Context(), target, req)
	switch {
	case err == nil:
		log.Debug("message delivered", zap.String("kind", string(req.Kind)))
		writeJSON(w, http.StatusOK, resp)
	case errors.Is(err, messenger.ErrNoListener):
		writeError(w, http.StatusNotFound, codeNoListener)
	default:
		log.Warn("message failed", zap.String("kind", string(req.Kind)), zap.Error(err))
		writeError(w, http.StatusBadGateway, agentFailure(err))
	}
}

func (s *Server) handleActive(w http.ResponseWriter, r *http.Request) {
	id, ok := s.bus.Resolve(r.Context())
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, activeBody{Instance: id})
}

func (s *Server) handleInstances(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, instancesBody{Instances: s.bus.Instances()})
}

// agentFailure is the message sent back for a failed call, preferring the
// handler's own error.
func agentFailure(err error) string {
	if errors.Is(err, messenger.ErrDisconnected) {
		return codeDisconnected
	}
	var de *messenger.DeliveryError
	if errors.As(err, &de) && de.Err != nil {
		return de.Err.Error()
	}
	return err.Error()
}
