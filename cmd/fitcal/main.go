package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"fitcal/internal/config"
	"fitcal/internal/export"
	appLog "fitcal/internal/log"
	"fitcal/internal/pipeline"
	"fitcal/internal/web"
)

// flagConfig holds CLI flag values before config loading.
type flagConfig struct {
	configPath string
	listen     string
	once       bool
	debug      bool
}

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	flags := parseFlags()
	if flags.debug {
		appLog.SetLevel(appLog.LevelDebug)
	}
	appLog.Info("fitcal starting", "version", "0.1.0")

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// Precedence: flag, then FITCAL_LISTEN, then config file.
	if v := os.Getenv("FITCAL_LISTEN"); v != "" {
		conf.Listen = v
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"refresh", conf.RefreshCron,
		"top_n", conf.TopN,
		"calendar", conf.Inputs.Calendar,
		"listings", conf.Inputs.Listings,
		"classes", conf.Inputs.Classes,
		"once", flags.once,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	run := newRunner(conf)

	if flags.once {
		if err := runOnce(ctx, conf, run); err != nil {
			appLog.Error("single run failed", err)
			os.Exit(1)
		}
		return
	}

	if err := serve(ctx, conf, run, flags.debug); err != nil {
		appLog.Error("server exited with error", err)
		os.Exit(1)
	}
	appLog.Info("fitcal exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	defConfig := os.Getenv("FITCAL_CONFIG")
	if defConfig == "" {
		defConfig = "config.yaml"
	}

	flag.StringVar(&cfg.configPath, "config", defConfig, "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Run the pipeline once, write exports and exit")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	flag.Parse()

	return cfg
}

// newRunner binds config to a web.RunFunc that reloads every input file on
// each call.
func newRunner(conf *config.Config) web.RunFunc {
	loc := conf.Location()
	prefs := conf.RecommendPreferences()
	horizon := time.Duration(conf.CalendarHorizonDays) * 24 * time.Hour
	paths := pipeline.Paths{
		Calendar: conf.Inputs.Calendar,
		Listings: conf.Inputs.Listings,
		Classes:  conf.Inputs.Classes,
	}

	return func(_ context.Context) pipeline.Result {
		now := time.Now()
		in := pipeline.LoadInputs(paths, now, horizon)
		return pipeline.Run(in, pipeline.Options{
			Location:    loc,
			Now:         now,
			Preferences: prefs,
			TopN:        conf.TopN,
		})
	}
}

func runOnce(ctx context.Context, conf *config.Config, run web.RunFunc) error {
	res := run(ctx)

	var errs []error
	writeOutput := func(path string, write func(io.Writer) error) {
		if path == "" {
			return
		}
		if err := writeFileAtomic(path, write); err != nil {
			errs = append(errs, fmt.Errorf("write %s: %w", path, err))
			return
		}
		appLog.Info("output written", "path", path)
	}

	writeOutput(conf.Outputs.CSV, func(w io.Writer) error {
		return export.WriteCSV(w, res.Timeline)
	})
	writeOutput(conf.Outputs.ICS, func(w io.Writer) error {
		return export.WriteICS(w, res.Timeline, res.GeneratedAt)
	})
	writeOutput(conf.Outputs.Recommendations, func(w io.Writer) error {
		return export.WriteScoredCSV(w, res.Recommendations)
	})
	writeOutput(conf.Outputs.Schedule, func(w io.Writer) error {
		return export.WriteScoredCSV(w, res.Schedule)
	})

	for _, line := range res.Insights.Recommendations {
		appLog.Info("insight", "text", line)
	}
	return errors.Join(errs...)
}

func serve(ctx context.Context, conf *config.Config, run web.RunFunc, debug bool) error {
	srv := web.NewServer(conf, run, debug)
	srv.Refresh(ctx)

	c := cron.New(
		cron.WithLocation(conf.Location()),
		cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
	)
	if _, err := c.AddFunc(conf.RefreshCron, func() {
		appLog.Debug("scheduled refresh")
		srv.Refresh(ctx)
	}); err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", conf.RefreshCron, err)
	}
	c.Start()
	defer func() {
		<-c.Stop().Done()
	}()

	httpSrv := &http.Server{
		Addr:              conf.Listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+conf.Listen, "debug", debug)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		appLog.Info("signal received, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// writeFileAtomic writes via a temp file in the target directory and
// renames it into place.
func writeFileAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".fitcal-out-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
