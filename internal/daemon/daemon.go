// Package daemon runs the horoscope API as a long-lived process and manages
// its PID file and launchd service.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/danrleybayoshi/horoscopo/internal/api"
	"github.com/danrleybayoshi/horoscopo/internal/cache"
	"github.com/danrleybayoshi/horoscopo/internal/config"
	"github.com/danrleybayoshi/horoscopo/internal/favorites"
	"github.com/danrleybayoshi/horoscopo/internal/horoscope"
	"github.com/danrleybayoshi/horoscopo/internal/metrics"
	"github.com/danrleybayoshi/horoscopo/internal/store"
	"github.com/danrleybayoshi/horoscopo/internal/tracing"
	"github.com/danrleybayoshi/horoscopo/internal/vault"
	"github.com/danrleybayoshi/horoscopo/internal/version"
)

// Run starts every subsystem and the HTTP API, then blocks until SIGINT or
// SIGTERM.
func Run(cfg *config.Config, foreground bool) error {
	dataDir := expandHome(cfg.Server.DataDir)
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data directory %s: %w", dataDir, err)
	}

	zerolog.SetGlobalLevel(parseLogLevel(cfg.Server.LogLevel))

	logPath := filepath.Join(dataDir, "horoscopo.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file %s: %w", logPath, err)
	}
	defer logFile.Close()

	writers := []io.Writer{logFile}
	if foreground {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"})
	}
	log.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Str("service", "horoscopo").Logger()

	log.Info().
		Str("version", version.Version).
		Str("data_dir", dataDir).
		Bool("foreground", foreground).
		Msg("horoscopo starting")

	if err := ClaimPID(dataDir); err != nil {
		return err
	}
	defer func() {
		if err := RemovePID(dataDir); err != nil {
			log.Error().Err(err).Msg("failed to remove PID file")
		}
	}()

	dbPath := filepath.Join(dataDir, "horoscopo.db")
	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()
	log.Info().Str("db_path", dbPath).Msg("store opened")

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	var shutdownTracing func(context.Context) error
	if cfg.Tracing.Enabled {
		shutdownTracing, err = tracing.Init(bgCtx, tracing.Options{
			ServiceName: cfg.Tracing.ServiceName,
			Version:     version.Version,
			Exporter:    cfg.Tracing.Exporter,
			Endpoint:    cfg.Tracing.Endpoint,
			SampleRate:  cfg.Tracing.SampleRate,
			Insecure:    cfg.Tracing.Insecure,
		})
		if err != nil {
			return fmt.Errorf("initializing tracing: %w", err)
		}
		log.Info().Str("exporter", cfg.Tracing.Exporter).Str("endpoint", cfg.Tracing.Endpoint).Msg("tracing enabled")
	}

	v := vault.New()
	rtr, err := BuildRouter(cfg.Providers, v, log.Logger)
	if err != nil {
		return fmt.Errorf("building provider router: %w", err)
	}
	if rtr.Len() == 0 {
		log.Warn().Msg("no providers configured; every lookup will report the service unavailable")
	}

	collector := metrics.NewCollector()
	if err := collector.WatchProviders(rtr); err != nil {
		return fmt.Errorf("registering provider metrics: %w", err)
	}

	rewriteCache, err := cache.New(store.NewCacheAdapter(st), time.Duration(cfg.Cache.TTLSeconds)*time.Second, cfg.Cache.MaxMemoryEntries)
	if err != nil {
		return fmt.Errorf("creating rewrite cache: %w", err)
	}
	purgeInterval := time.Duration(cfg.Cache.PurgeIntervalSeconds) * time.Second
	if purgeInterval <= 0 {
		purgeInterval = 5 * time.Minute
	}
	purgerDone := rewriteCache.StartPurger(bgCtx, purgeInterval)

	favs, err := favorites.Load(store.NewFavoritesAdapter(st))
	if err != nil {
		return fmt.Errorf("loading favorites: %w", err)
	}

	client := horoscope.NewFailoverClient(rtr, nil, log.Logger, collector)
	rewriter := BuildRewriter(cfg.Rewrite, v, rewriteCache, log.Logger)

	handler := api.NewHandler(api.Deps{
		Client:        client,
		Favorites:     favs,
		Rewriter:      rewriter,
		Cache:         rewriteCache,
		Store:         st,
		Collector:     collector,
		Logger:        log.Logger,
		MaxBodySize:   cfg.Server.MaxBodySize,
		ExposeMetrics: cfg.Metrics.Prometheus,
	})

	addr := net.JoinHostPort(cfg.Server.BindAddress, strconv.Itoa(cfg.Server.Port))
	server := api.NewServer(handler, api.ServerOptions{
		Addr:           addr,
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:    time.Duration(cfg.Server.IdleTimeout) * time.Second,
		TracingEnabled: cfg.Tracing.Enabled,
		AuthToken:      cfg.Server.AuthToken,
	})

	configFile := config.ConfigFilePath()
	if configFile == "" {
		configFile = filepath.Join(dataDir, config.DefaultConfigFilename)
	}
	if _, statErr := os.Stat(configFile); statErr == nil {
		watcher, watchErr := config.Watch(configFile, log.Logger)
		if watchErr != nil {
			log.Warn().Err(watchErr).Msg("failed to start config watcher; continuing without hot-reload")
		} else {
			defer watcher.Close()
			watcher.OnChange(func(old, newCfg *config.Config) {
				zerolog.SetGlobalLevel(parseLogLevel(newCfg.Server.LogLevel))
				log.Info().Str("log_level", newCfg.Server.LogLevel).Msg("configuration reloaded")
				if providersChanged(old.Providers, newCfg.Providers) {
					log.Warn().Msg("provider list changed; restart horoscopo to apply it")
				}
			})
			log.Info().Str("file", configFile).Msg("config watcher started")
		}
	}

	prunerDone := make(chan struct{})
	go func() {
		defer close(prunerDone)
		runPruner(bgCtx, st, cfg.Metrics.RetentionDays)
	}()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("api server starting")
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("api server: %w", err)
		}
	}()

	log.Info().Int("providers", rtr.Len()).Int("available", rtr.Available()).Msg("horoscopo is ready")
	if foreground {
		fmt.Printf("\n  horoscopo is running!\n")
		fmt.Printf("  API: http://%s/v1\n\n", addr)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("fatal server error")
		return err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	log.Info().Msg("shutting down api server...")
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("api server shutdown error")
	}

	// Background goroutines touch the store; wait for them before it closes.
	bgCancel()
	<-purgerDone
	<-prunerDone

	if shutdownTracing != nil {
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("tracing shutdown error")
		}
	}

	log.Info().Msg("horoscopo stopped")
	return nil
}

// Stop sends SIGTERM to the running daemon and waits briefly for it to exit.
func Stop() error {
	dataDir := expandHome(config.Get().Server.DataDir)

	pid, err := ReadPID(dataDir)
	if err != nil {
		return fmt.Errorf("horoscopo does not appear to be running: %w", err)
	}

	if !processAlive(pid) {
		if rmErr := RemovePID(dataDir); rmErr != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to remove stale PID file: %v\n", rmErr)
		}
		return fmt.Errorf("horoscopo is not running (stale PID file removed)")
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("finding process %d: %w", pid, err)
	}
	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("sending SIGTERM to process %d: %w", pid, err)
	}

	fmt.Printf("Sent SIGTERM to horoscopo (PID %d)\n", pid)

	for i := 0; i < 30; i++ {
		time.Sleep(100 * time.Millisecond)
		if !processAlive(pid) {
			return nil
		}
	}
	return nil
}

// Status reports whether the daemon is running and prints its live counters.
func Status() error {
	cfg := config.Get()
	dataDir := expandHome(cfg.Server.DataDir)

	if !IsRunning(dataDir) {
		fmt.Println("horoscopo is not running")
		return nil
	}

	pid, _ := ReadPID(dataDir)
	fmt.Printf("horoscopo is running (PID %d)\n", pid)

	stats, err := fetchStats(cfg.Server)
	if err != nil {
		fmt.Printf("  (api unreachable: %v)\n", err)
		return nil
	}
	printStats(os.Stdout, stats)
	return nil
}

type statsResponse struct {
	Live metrics.Stats `json:"live"`
}

func fetchStats(sc config.ServerConfig) (*metrics.Stats, error) {
	host := sc.BindAddress
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	statsURL := "http://" + net.JoinHostPort(host, strconv.Itoa(sc.Port)) + "/v1/stats"

	req, err := http.NewRequest(http.MethodGet, statsURL, nil)
	if err != nil {
		return nil, err
	}
	if sc.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+sc.AuthToken)
	}

	client := &http.Client{Timeout: 3 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var sr statsResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decoding stats: %w", err)
	}
	return &sr.Live, nil
}

func printStats(w io.Writer, s *metrics.Stats) {
	fmt.Fprintf(w, "\n  Uptime:          %s\n", s.Uptime)
	fmt.Fprintf(w, "  Lookups:         %d (%d served, %d exhausted, %d failed, %d cancelled)\n", s.Lookups, s.Served, s.Exhausted, s.Failed, s.Cancelled)
	fmt.Fprintf(w, "  Success Rate:    %.1f%%\n", s.SuccessRate)
	fmt.Fprintf(w, "  Avg Latency:     %.0f ms\n", s.AvgServedLatencyMs)
	fmt.Fprintf(w, "  Attempts:        %d (%d skipped, %d transient, %d rejected, %d http errors)\n",
		s.Attempts, s.Skipped, s.TransientFailures, s.CredentialRejects, s.HTTPErrors)
	fmt.Fprintf(w, "  Rewrites:        %d (%.1f%% cached, %d failed)\n", s.Rewrites, s.RewriteCacheHitRate, s.RewriteFailures)
	fmt.Fprintf(w, "  Active:          %d\n", s.ActiveRequests)
}

// providersChanged reports whether a reload altered the provider list. The
// router is fixed at startup, so such changes only take effect on restart.
func providersChanged(old, updated []config.ProviderConfig) bool {
	if len(old) != len(updated) {
		return true
	}
	for i := range old {
		if !old[i].Equal(updated[i]) {
			return true
		}
	}
	return false
}

// runPruner deletes lookup history older than retentionDays every hour.
func runPruner(ctx context.Context, st *store.Store, retentionDays int) {
	if retentionDays <= 0 {
		return
	}

	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			func() {
				defer func() {
					if r := recover(); r != nil {
						log.Error().Interface("panic", r).Msg("data pruner: recovered from panic")
					}
				}()
				n, err := st.Prune(retentionDays)
				if err != nil {
					log.Error().Err(err).Msg("data pruning failed")
				} else if n > 0 {
					log.Info().Int64("rows", n).Int("retention_days", retentionDays).Msg("pruned old lookups")
				}
			}()
		}
	}
}

func parseLogLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
