// Package httpapi serves the node's read-mostly status API: health,
// connectivity state, queue depth and the resolved-alert archive, plus a
// detection ingest endpoint for the camera process.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/trailsentry/trailsentry-go/internal/alert"
	"github.com/trailsentry/trailsentry-go/internal/archive"
	"github.com/trailsentry/trailsentry-go/internal/connectivity"
	"github.com/trailsentry/trailsentry-go/internal/logging"
)

// StatusSource provides the current connectivity state.
type StatusSource interface {
	Snapshot() connectivity.State
}

// QueueDepther exposes the dispatcher's pending record count.
type QueueDepther interface {
	QueueDepth() int
}

// AlertSource reads the resolved-alert archive.
type AlertSource interface {
	Recent(limit int) ([]archive.Entry, error)
	CountSince(since time.Time) (map[string]int64, error)
}

// DetectionReporter ingests a detection into the pipeline.
type DetectionReporter interface {
	ReportDetection(species string, confidence float64, now time.Time) *alert.Record
}

// Server is the node status HTTP API.
type Server struct {
	echo    *echo.Echo
	listen  string
	status  StatusSource
	queue   QueueDepther
	alerts  AlertSource
	ingest  DetectionReporter
	version string
	logger  *slog.Logger
}

// New creates the API server. alerts may be nil when the archive is
// disabled; the alerts endpoint then returns an empty list.
func New(listen, version string, status StatusSource, queue QueueDepther, alerts AlertSource, ingest DetectionReporter) *Server {
	logger := logging.ForService("httpapi")
	if logger == nil {
		logger = slog.Default().With("service", "httpapi")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:    e,
		listen:  listen,
		status:  status,
		queue:   queue,
		alerts:  alerts,
		ingest:  ingest,
		version: version,
		logger:  logger,
	}

	e.GET("/healthz", s.handleHealth)
	e.GET("/api/v1/status", s.handleStatus)
	e.GET("/api/v1/alerts", s.handleAlerts)
	e.POST("/api/v1/detections", s.handleDetection)

	return s
}

// Start runs the server in a background goroutine.
func (s *Server) Start() {
	go func() {
		if err := s.echo.Start(s.listen); err != nil && err != http.ErrServerClosed {
			s.logger.Error("status API server stopped", "error", err)
		}
	}()
	s.logger.Info("status API listening", "address", s.listen)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.version,
	})
}

// statusResponse is the status endpoint payload.
type statusResponse struct {
	Version      string             `json:"version"`
	Connectivity connectivity.State `json:"connectivity"`
	QueueDepth   int                `json:"queue_depth"`
	Resolved24h  map[string]int64   `json:"resolved_24h,omitempty"`
}

func (s *Server) handleStatus(c echo.Context) error {
	resp := statusResponse{
		Version:      s.version,
		Connectivity: s.status.Snapshot(),
		QueueDepth:   s.queue.QueueDepth(),
	}

	if s.alerts != nil {
		counts, err := s.alerts.CountSince(time.Now().Add(-24 * time.Hour))
		if err != nil {
			s.logger.Error("failed to read archive counts", "error", err)
		} else {
			resp.Resolved24h = counts
		}
	}

	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleAlerts(c echo.Context) error {
	if s.alerts == nil {
		return c.JSON(http.StatusOK, []archive.Entry{})
	}

	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		if err := echo.QueryParamsBinder(c).Int("limit", &limit).BindError(); err != nil || limit <= 0 || limit > 500 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be between 1 and 500")
		}
	}

	entries, err := s.alerts.Recent(limit)
	if err != nil {
		s.logger.Error("failed to read archive", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "archive read failed")
	}
	return c.JSON(http.StatusOK, entries)
}

// detectionRequest is the ingest payload from the camera process.
type detectionRequest struct {
	Species    string  `json:"species"`
	Confidence float64 `json:"confidence"`
}

// detectionResponse reports what the pipeline did with the detection.
type detectionResponse struct {
	Alerted bool   `json:"alerted"`
	AlertID string `json:"alert_id,omitempty"`
}

func (s *Server) handleDetection(c echo.Context) error {
	if s.ingest == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "detection ingest not configured")
	}

	var req detectionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if req.Species == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "species is required")
	}
	if req.Confidence < 0 || req.Confidence > 1 {
		return echo.NewHTTPError(http.StatusBadRequest, "confidence must be within [0, 1]")
	}

	rec := s.ingest.ReportDetection(req.Species, req.Confidence, time.Now())
	resp := detectionResponse{}
	if rec != nil {
		resp.Alerted = true
		resp.AlertID = rec.ID
	}
	return c.JSON(http.StatusAccepted, resp)
}
