package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"tagbadge/internal/badge"
	"tagbadge/internal/config"
	"tagbadge/internal/logging"
	"tagbadge/internal/output"
	"tagbadge/internal/server"
	"tagbadge/internal/sheet"
	"tagbadge/internal/stats"
	"tagbadge/internal/text"
	"tagbadge/internal/watch"
)

var (
	Version   = "unknown"
	BuildTime = "unknown"
)

var stdout io.Writer = os.Stdout

type CLI struct {
	Version kong.VersionFlag `help:"Show version." short:"V"`
	Render  RenderCmd        `cmd:"" default:"withargs" help:"Render a sheet to a PNG file."`
	List    ListCmd          `cmd:"" help:"List available sheet configs."`
	Serve   ServeCmd         `cmd:"" help:"Serve badges and the sheet over HTTP."`
	Watch   WatchCmd         `cmd:"" help:"Re-render the sheet whenever its config changes."`
}

type SheetFlags struct {
	ConfigDir string `help:"Directory holding sheet configs." default:"config" type:"path"`
	Config    string `help:"Sheet config name, without extension." short:"c" default:"default"`
}

type app struct {
	configs  *config.ConfigManager
	cfg      *config.SheetConfig
	renderer *badge.Renderer
}

func (f *SheetFlags) open() (*app, error) {
	cm := config.NewConfigManager(f.ConfigDir)
	cfg, err := cm.LoadConfig(f.Config)
	if err != nil {
		return nil, err
	}

	if err := logging.Init(logging.Options{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	}); err != nil {
		return nil, err
	}
	if !badge.SetSharedCapacity(cfg.CacheCapacity) {
		logging.Module("main").Warn("Render cache already in use, cache_capacity ignored")
	}

	src, err := text.ResolveSource(cfg.FontFile)
	if err != nil {
		return nil, fmt.Errorf("load font: %w", err)
	}
	return &app{configs: cm, cfg: cfg, renderer: badge.NewRenderer(src, nil)}, nil
}

func (a *app) sheet() (*sheet.Sheet, error) {
	sh := sheet.New(a.renderer)
	if _, err := sh.Apply(a.cfg); err != nil {
		return nil, err
	}
	return sh, nil
}

func fileOutputs(path string) *output.OutputManager {
	om := output.NewOutputManager()
	if path != "" {
		om.AddHandler(output.NewFileOutputHandler(path))
	}
	return om
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

type RenderCmd struct {
	SheetFlags `embed:""`
	Output     string `help:"PNG path, overrides output_file." short:"o" type:"path"`
	Stats      bool   `help:"Print cache and process statistics as JSON."`
}

func (c *RenderCmd) Run() error {
	a, err := c.open()
	if err != nil {
		return err
	}
	sh, err := a.sheet()
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	start := time.Now()
	frame, err := sh.Render(ctx)
	if err != nil {
		return err
	}

	path := c.Output
	if path == "" {
		path = a.cfg.GetOutputFile()
	}
	om := fileOutputs(path)
	defer om.Close()
	if err := om.Output(frame.Image); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	logging.Module("main").Infof("Rendered %d badges to %s in %v", frame.Redrawn, path, time.Since(start))

	cache := a.renderer.Cache()
	cache.Wait()
	if c.Stats {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stats.NewCollector(cache).Collect())
	}
	return nil
}

type ListCmd struct {
	ConfigDir string `help:"Directory holding sheet configs." default:"config" type:"path"`
}

func (c *ListCmd) Run() error {
	names, err := config.NewConfigManager(c.ConfigDir).ListConfigs()
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Fprintln(stdout, name)
	}
	return nil
}

type ServeCmd struct {
	SheetFlags `embed:""`
	Addr       string `help:"Listen address, overrides server.addr."`
	Output     string `help:"Also write every new sheet frame to this PNG." short:"o" type:"path"`
}

func (c *ServeCmd) Run() error {
	a, err := c.open()
	if err != nil {
		return err
	}
	if c.Addr != "" {
		a.cfg.Server.Addr = c.Addr
	}
	sh, err := a.sheet()
	if err != nil {
		return err
	}

	om := fileOutputs(c.Output)
	defer om.Close()
	srv := server.New(server.Options{Config: a.cfg, Sheet: sh, Renderer: a.renderer, Outputs: om})

	ctx, stop := signalContext()
	defer stop()

	log := logging.Module("main")
	log.Infof("started, pid is %d", os.Getpid())
	log.Infof("tagbadge v%s (%s)", Version, BuildTime)
	if _, err := srv.RenderSheet(ctx); err != nil {
		log.Warnf("Initial render failed: %v", err)
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		log.Info("Shutdown initiated")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type WatchCmd struct {
	SheetFlags `embed:""`
	Output     string        `help:"PNG path, overrides output_file." short:"o" type:"path"`
	Debounce   time.Duration `help:"Quiet period before reloading a changed config." default:"250ms"`
}

func (c *WatchCmd) Run() error {
	a, err := c.open()
	if err != nil {
		return err
	}

	path := c.Output
	if path == "" {
		path = a.cfg.GetOutputFile()
	}
	om := fileOutputs(path)
	defer om.Close()

	w, err := watch.New(a.configs, c.Config, sheet.New(a.renderer), om, c.Debounce)
	if err != nil {
		return err
	}
	defer w.Close()

	ctx, stop := signalContext()
	defer stop()

	logging.Module("main").Infof("tagbadge v%s (%s)", Version, BuildTime)
	return w.Run(ctx)
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("tagbadge"),
		kong.Description("Render tag badges: titles fitted into colored pills with an optional ×N count."),
		kong.UsageOnError(),
		kong.Vars{"version": Version + " " + BuildTime},
	)
	ctx.FatalIfErrorf(ctx.Run())
}
