package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"FxSentinel/internal/model"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SnapshotSource is the read side of the state table.
type SnapshotSource interface {
	Snapshot(instrument string) (model.SignalState, bool)
	Snapshots() []model.SignalState
}

// Server exposes read-only views of the signal state over HTTP.
type Server struct {
	echo   *echo.Echo
	source SnapshotSource
	addr   string
	logger zerolog.Logger
}

// NewServer creates the HTTP server and registers its routes.
func NewServer(addr string, source SnapshotSource) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:   e,
		source: source,
		addr:   addr,
		logger: log.With().Str("component", "dashboard").Logger(),
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			s.logger.Debug().Str("method", v.Method).Str("uri", v.URI).Int("status", v.Status).Msg("request")
			return nil
		},
	}))

	e.GET("/healthz", s.health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	api := e.Group("/api")
	api.GET("/signals", s.listSignals)
	api.GET("/signals/:instrument", s.getSignal)
	api.GET("/vocabulary", s.vocabulary)
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.echo }

// Start listens in the background.
func (s *Server) Start() {
	go func() {
		s.logger.Info().Str("addr", s.addr).Msg("http server listening")
		if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("http server error")
		}
	}()
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	s.logger.Info().Msg("http server stopped")
	return nil
}

type errorResponse struct {
	Error string `json:"error"`
}

type signalsResponse struct {
	Count   int                 `json:"count"`
	Active  int                 `json:"active"`
	Signals []model.SignalState `json:"signals"`
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

// listSignals returns all snapshots; ?active=true keeps only labelled instruments.
func (s *Server) listSignals(c echo.Context) error {
	states := s.source.Snapshots()
	onlyActive := c.QueryParam("active") == "true"

	resp := signalsResponse{Signals: make([]model.SignalState, 0, len(states))}
	for _, st := range states {
		if st.Active() {
			resp.Active++
		} else if onlyActive {
			continue
		}
		resp.Signals = append(resp.Signals, st)
	}
	resp.Count = len(resp.Signals)
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) getSignal(c echo.Context) error {
	id := strings.ToUpper(c.Param("instrument"))
	st, ok := s.source.Snapshot(id)
	if !ok {
		return c.JSON(http.StatusNotFound, errorResponse{Error: fmt.Sprintf("instrument %s is not tracked", id)})
	}
	return c.JSON(http.StatusOK, st)
}

func (s *Server) vocabulary(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"signs":             model.Signs,
		"volatility_levels": model.VolatilityClasses,
	})
}
