// Command tibackend runs the altmetrics ingestion Backend Supervisor: one
// AliasThread pool and, per metrics-capable provider, a dedicated
// MetricsThread pool, until SIGINT/SIGTERM.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"totalimpact-backend/internal/core/fetch"
	"totalimpact-backend/internal/core/provider"
	"totalimpact-backend/internal/platform/config"
	"totalimpact-backend/internal/platform/logger"
	"totalimpact-backend/internal/platform/store"
	"totalimpact-backend/internal/services/ingest/domain"
	"totalimpact-backend/internal/services/ingest/repo"
	"totalimpact-backend/internal/services/ingest/supervisor"

	_ "totalimpact-backend/internal/adapters/providers/github"
	_ "totalimpact-backend/internal/adapters/providers/plos"
)

func main() {
	var (
		fPID       = flag.String("p", "", "PID-file path for daemon mode")
		fStart     = flag.String("s", "", "startup log path")
		fLog       = flag.String("l", "logs/backend.log", "runtime log path")
		fDaemon    = flag.Bool("d", false, "detach and run as daemon; working directory becomes repository root")
		fProviders = flag.String("providers", "providers.yaml", "path to the PROVIDERS/ALIASES/cache config file (§6)")
	)
	flag.Parse()

	if *fDaemon {
		if err := daemonize(*fPID, *fStart, *fLog); err != nil {
			fmt.Fprintf(os.Stderr, "tibackend: daemonize: %v\n", err)
			os.Exit(1)
		}
		return
	}

	os.Exit(run(*fPID, *fLog, *fProviders))
}

// run wires every collaborator and blocks until SIGINT/SIGTERM, returning
// the process exit code (0 on orderly shutdown, non-zero on a
// configuration error before worker spawn, per §6).
func run(pidPath, logPath, providersPath string) int {
	logFile, err := openLogFile(logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tibackend: open runtime log: %v\n", err)
		return 1
	}
	defer logFile.Close()

	logger.Init(logger.Options{
		Level:   "info",
		Format:  "json",
		Service: "tibackend",
		Writer:  logFile,
	})
	l := logger.Get()

	if pidPath != "" {
		if err := writePIDFile(pidPath); err != nil {
			l.Error().Err(err).Msg("failed to write pid file")
			return 1
		}
		defer os.Remove(pidPath)
	}

	providersCfg, err := config.LoadProviders(providersPath)
	if err != nil {
		l.Error().Err(err).Msg("failed to load providers config")
		return 1
	}

	root := config.New()
	pgCfg := root.Prefix("SERVICE_PGSQL_")
	chCfg := root.Prefix("SERVICE_CLICKHOUSE_")

	st, err := store.Open(context.Background(), store.Config{
		PG: store.PGConfig{
			Enabled:     true,
			URL:         pgCfg.MustString("DBURL"),
			MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 4)),
			SlowQueryMs: pgCfg.MayInt("SLOW_MS", 500),
			LogSQL:      pgCfg.MayBool("LOG_SQL", false),
		},
		CH: store.CHConfig{
			Enabled: true,
			URL:     chCfg.MustString("DBURL"),
		},
	}, store.WithLogger(*l))
	if err != nil {
		l.Error().Err(err).Msg("store.Open failed")
		return 1
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	cache, err := fetch.NewLRUCache(4096, time.Duration(providersCfg.Cache.MaxCacheDurationSec)*time.Second)
	if err != nil {
		l.Error().Err(err).Msg("failed to build shared fetch cache")
		return 1
	}
	provider.SetSharedFetcher(fetch.New(cache))

	var providers []*provider.Provider
	metricsQueues := map[string]domain.Queue{}
	metricsWorkers := map[string]int{}

	for name, pc := range providersCfg.Providers {
		p, err := provider.Build(name, pc.ToProviderConfig(name))
		if err != nil {
			l.Error().Err(err).Str("provider", name).Msg("no adapter registered for configured provider")
			return 1
		}
		providers = append(providers, p)

		if p.ProvidesMetrics() {
			metricsQueues[name] = repo.NewMetricsQueue(st.PG, "", name)
			metricsWorkers[name] = pc.Workers
		}
	}

	sup := supervisor.New(supervisor.Config{
		Providers:      providers,
		AliasWorkers:   providersCfg.Aliases.Workers,
		AliasQueue:     repo.NewAliasQueue(st.PG, ""),
		DAO:            repo.NewItemDAO(st.PG),
		MetricsQueues:  metricsQueues,
		MetricsWorkers: metricsWorkers,
		MetricsWriter:  repo.NewChMetrics(st.CH, ""),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sup.Run(ctx); err != nil {
		l.Error().Err(err).Msg("supervisor exited with error")
		return 1
	}
	return 0
}

func openLogFile(path string) (*os.File, error) {
	if path == "" {
		return os.Stderr, nil
	}
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}

func writePIDFile(path string) error {
	return writePID(path, os.Getpid())
}

func writePID(path string, pid int) error {
	return os.WriteFile(path, []byte(strconv.Itoa(pid)+"\n"), 0o644)
}

// daemonize re-execs the current binary with -d stripped, detached into
// its own session, and returns once the child has started. The repo
// root, per §6, is whatever directory the parent was launched from.
func daemonize(pidPath, startPath, logPath string) error {
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getwd: %w", err)
	}

	startLog, err := openLogFile(startPath)
	if err != nil {
		return fmt.Errorf("open startup log: %w", err)
	}
	defer startLog.Close()

	args := make([]string, 0, len(os.Args))
	for _, a := range os.Args[1:] {
		if a == "-d" || a == "--d" {
			continue
		}
		args = append(args, a)
	}

	cmd := exec.Command(os.Args[0], args...)
	cmd.Dir = wd
	cmd.Stdout = startLog
	cmd.Stderr = startLog
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start detached process: %w", err)
	}

	if pidPath != "" {
		if err := writePID(pidPath, cmd.Process.Pid); err != nil {
			return fmt.Errorf("write pid file: %w", err)
		}
	}

	fmt.Fprintf(startLog, "tibackend: daemonized as pid %d, runtime log %s\n", cmd.Process.Pid, logPath)
	return nil
}
