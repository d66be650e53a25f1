// Package server serves badges and the badge sheet over HTTP.
//
// Endpoints:
//   - GET /badge.png      one badge built from query parameters
//   - GET /sheet.png      the configured sheet, redrawn when items change
//   - GET /items          current sheet items
//   - PUT /items/:index   change the count or tag of one item
//   - GET /events         websocket stream of redraw events
//   - GET /stats          cache and process statistics
package server

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"tagbadge/internal/badge"
	"tagbadge/internal/config"
	"tagbadge/internal/logging"
	"tagbadge/internal/output"
	"tagbadge/internal/sheet"
	"tagbadge/internal/stats"
)

const (
	defaultBadgeWidth  = 80
	defaultBadgeHeight = 20
	maxBadgeSide       = 1024
)

type Options struct {
	Config   *config.SheetConfig
	Sheet    *sheet.Sheet
	Renderer *badge.Renderer
	// Outputs receives every new sheet frame in addition to the server's
	// own in-memory copy. Optional.
	Outputs *output.OutputManager
}

type Server struct {
	echo     *echo.Echo
	cfg      *config.SheetConfig
	sheet    *sheet.Sheet
	renderer *badge.Renderer
	frames   *output.MemoryOutputHandler
	outputs  *output.OutputManager
	hub      *Hub
	stats    *stats.Collector
	upgrader websocket.Upgrader
	log      *logrus.Entry

	renderMu sync.Mutex
}

func New(opts Options) *Server {
	s := &Server{
		echo:     echo.New(),
		cfg:      opts.Config,
		sheet:    opts.Sheet,
		renderer: opts.Renderer,
		frames:   output.NewMemoryOutputHandler(),
		outputs:  opts.Outputs,
		hub:      NewHub(),
		stats:    stats.NewCollector(opts.Renderer.Cache()),
		log:      logging.Module("server"),
	}
	if s.outputs == nil {
		s.outputs = output.NewOutputManager()
	}
	s.outputs.AddHandler(s.frames)

	s.sheet.OnDirty = func(index int) {
		s.hub.Broadcast(Event{Type: "dirty", Index: index})
	}

	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			s.log.Debugf("%s %s %d %v", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))
	s.echo.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(s.cfg.GetRateLimit()))))

	s.echo.GET("/badge.png", s.handleBadge)
	s.echo.GET("/sheet.png", s.handleSheet)
	s.echo.GET("/items", s.handleItems)
	s.echo.PUT("/items/:index", s.handleUpdateItem)
	s.echo.GET("/events", s.handleEvents)
	s.echo.GET("/stats", s.handleStats)
	return s
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Hub() *Hub {
	return s.hub
}

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	addr := s.cfg.GetServerAddr()
	s.log.Infof("Listening on %s", addr)
	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleBadge(c echo.Context) error {
	width, err := intParam(c, "width", defaultBadgeWidth)
	if err != nil {
		return err
	}
	height, err := intParam(c, "height", defaultBadgeHeight)
	if err != nil {
		return err
	}
	count, err := intParam(c, "count", 1)
	if err != nil {
		return err
	}
	dark := c.QueryParam("dark") == "1" || c.QueryParam("dark") == "true"

	node := badge.NewNode(s.renderer, badge.Size{W: float64(width), H: float64(height)})
	if name := c.QueryParam("tag"); name != "" {
		tag, ok := s.cfg.Tag(name)
		if !ok {
			return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("unknown tag %q", name))
		}
		node.UpdateTag(tag, count, dark)
	} else {
		node.Update(c.QueryParam("title"), count, c.QueryParam("color"), c.QueryParam("text_color"), dark)
	}

	state, _ := node.State()
	etag := fmt.Sprintf(`"%016x-%d"`, state.Hash(), height)
	c.Response().Header().Set("ETag", etag)
	if c.Request().Header.Get("If-None-Match") == etag {
		return c.NoContent(http.StatusNotModified)
	}

	canvas := badge.NewGGCanvas(width, height, s.renderer.Source())
	defer canvas.Close()
	node.Display(canvas)

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas.Image()); err != nil {
		return fmt.Errorf("encode badge: %w", err)
	}
	return c.Blob(http.StatusOK, "image/png", buf.Bytes())
}

func intParam(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid %s %q", name, raw))
	}
	if (name == "width" || name == "height") && (v <= 0 || v > maxBadgeSide) {
		return 0, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("%s out of range: %d", name, v))
	}
	return v, nil
}

// RenderSheet redraws the dirty tiles and hands a new frame to the outputs
// when anything changed. It returns the current frame version.
func (s *Server) RenderSheet(ctx context.Context) (uint64, error) {
	s.renderMu.Lock()
	defer s.renderMu.Unlock()

	frame, err := s.sheet.Render(ctx)
	if err != nil {
		return 0, err
	}
	_, version := s.frames.Latest()
	if frame.Redrawn == 0 && version > 0 {
		return version, nil
	}
	if err := s.outputs.Output(frame.Image); err != nil {
		return 0, fmt.Errorf("output frame: %w", err)
	}
	_, version = s.frames.Latest()
	s.hub.Broadcast(Event{Type: "frame", Index: -1, Version: version})
	return version, nil
}

func (s *Server) handleSheet(c echo.Context) error {
	if _, err := s.RenderSheet(c.Request().Context()); err != nil {
		return err
	}
	data, version := s.frames.Latest()

	etag := fmt.Sprintf(`"v%d"`, version)
	c.Response().Header().Set("ETag", etag)
	if c.Request().Header.Get("If-None-Match") == etag {
		return c.NoContent(http.StatusNotModified)
	}
	return c.Blob(http.StatusOK, "image/png", data)
}

func (s *Server) handleItems(c echo.Context) error {
	return c.JSON(http.StatusOK, s.sheet.Items())
}

type itemUpdate struct {
	Count *int    `json:"count"`
	Tag   *string `json:"tag"`
}

func (s *Server) handleUpdateItem(c echo.Context) error {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid item index")
	}
	var req itemUpdate
	if err := c.Bind(&req); err != nil {
		return err
	}
	if req.Count == nil && req.Tag == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "nothing to update")
	}

	changed, err := s.sheet.Update(index, req.Tag, req.Count)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]any{
		"changed": changed,
		"item":    s.sheet.Items()[index],
	})
}

func (s *Server) handleEvents(c echo.Context) error {
	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already answered
		return nil
	}
	id := s.hub.Register(conn)
	defer s.hub.Unregister(id)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return nil
		}
	}
}

func (s *Server) handleStats(c echo.Context) error {
	return c.JSON(http.StatusOK, s.stats.Collect())
}
