package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "time/tzdata"

	"go.uber.org/zap"

	"GoldSentinel/internal/calendar"
	"GoldSentinel/internal/collector"
	"GoldSentinel/internal/config"
	"GoldSentinel/internal/feed"
	"GoldSentinel/internal/llm"
	"GoldSentinel/internal/logger"
	"GoldSentinel/internal/metrics"
	"GoldSentinel/internal/notifier"
	"GoldSentinel/internal/recorder"
	"GoldSentinel/internal/scheduler"
	"GoldSentinel/internal/transcript"
)

func main() {
	var (
		cfgPath = flag.String("config", envOr("CONFIG_PATH", "configs/config.yaml"), "path to the YAML config")
		job     = flag.String("job", "", "run one job and exit: technical, news, youtube, plan or all")
		daemon  = flag.Bool("daemon", false, "run jobs on their schedules and answer chat commands")
	)
	flag.Parse()

	if err := run(*cfgPath, *job, *daemon); err != nil {
		fmt.Fprintf(os.Stderr, "goldsentinel: %v\n", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func run(cfgPath, job string, daemon bool) error {
	if job == "" && !daemon {
		return errors.New("one of -job or -daemon is required")
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logger.Init(logger.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Tracing: cfg.Log.Tracing,
		Service: "goldsentinel",
	}); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = logger.Shutdown(ctx)
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	logger.Info(ctx, "GoldSentinel starting", zap.String("job", job), zap.Bool("daemon", daemon))

	m := metrics.New()
	tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)

	journal, err := openJournal(ctx, cfg.Database.SQLitePath)
	if err != nil {
		return err
	}
	defer journal.Close()

	summarizer, err := llm.New(llm.Options{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
		Proxy:    cfg.Proxy,
		Timeout:  cfg.LLM.Timeout,
	})
	if err != nil {
		return fmt.Errorf("init llm: %w", err)
	}

	var fetcher collector.Fetcher
	if cfg.DataSource.BaseURL != "" {
		fetcher = collector.NewRESTFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy, cfg.DataSource.Timeout)
	} else {
		fetcher = collector.NewYahooFetcher(cfg.Proxy, cfg.DataSource.Timeout)
	}
	logger.Info(ctx, "data source selected", zap.String("source", fetcher.Name()), zap.String("llm", summarizer.Name()))

	sched := scheduler.NewScheduler(cfg, scheduler.Deps{
		Bars: collector.NewCollector(fetcher, cfg.DataSource.Symbol, cfg.DataSource.Period,
			cfg.DataSource.Interval, cfg.DataSource.Timeout, m),
		Feeds:       feed.NewReader(cfg.Proxy, cfg.DataSource.Timeout),
		Calendar:    calendar.NewClient(cfg.Plan.CalendarURL, cfg.Proxy, cfg.DataSource.Timeout),
		Transcripts: transcript.NewFetcher(cfg.YouTube.Languages, cfg.Proxy, cfg.DataSource.Timeout),
		LLM:         llm.Observe(summarizer, m),
		Sender:      tn,
		Journal:     journal,
		Metrics:     m,
	})

	if !daemon {
		err := sched.RunOnce(ctx, job)
		pushCtx, pushCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer pushCancel()
		if pushErr := m.Push(pushCtx, cfg.Metrics.Pushgateway, "goldsentinel"); pushErr != nil {
			logger.Warn(ctx, "metrics push failed", zap.Error(pushErr))
		}
		return err
	}

	srv := metrics.NewServer(cfg.Metrics.Addr, m)
	srv.Start(ctx)

	if err := sched.RegisterAll(ctx); err != nil {
		return fmt.Errorf("register cron tasks: %w", err)
	}
	sched.Start()

	go tn.StartPolling(ctx, sched.HandleCommand)
	logger.Info(ctx, "telegram polling started")

	if job != "" {
		go func() { _ = sched.RunOnce(ctx, job) }()
	}

	logger.Info(ctx, "GoldSentinel is running, press Ctrl+C to stop")
	<-ctx.Done()

	logger.Info(context.Background(), "shutdown signal received, stopping")
	sched.Stop()
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	if err := srv.Stop(stopCtx); err != nil {
		logger.Warn(stopCtx, "metrics server shutdown", zap.Error(err))
	}
	logger.Info(stopCtx, "GoldSentinel stopped")
	return nil
}

// openJournal returns the SQLite journal when a path is configured. A
// journal that cannot be opened degrades to the no-op one.
func openJournal(ctx context.Context, path string) (recorder.Journal, error) {
	if path == "" {
		return recorder.NewNoopJournal(), nil
	}
	j, err := recorder.NewSQLiteJournal(path)
	if err != nil {
		logger.Warn(ctx, "init sqlite journal failed, using noop", zap.Error(err))
		return recorder.NewNoopJournal(), nil
	}
	return j, nil
}
