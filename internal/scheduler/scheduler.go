package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"GoldSentinel/internal/config"
	"GoldSentinel/internal/llm"
	"GoldSentinel/internal/logger"
	"GoldSentinel/internal/metrics"
	"GoldSentinel/internal/model"
	"GoldSentinel/internal/notifier"
	"GoldSentinel/internal/recorder"
)

// Job names accepted by RunOnce, in the order "all" runs them.
const (
	JobTechnical = "technical"
	JobNews      = "news"
	JobYouTube   = "youtube"
	JobPlan      = "plan"
	JobAll       = "all"
)

var jobOrder = []string{JobTechnical, JobNews, JobYouTube, JobPlan}

// pruneSchedule is when journal entries past the retention are removed.
const pruneSchedule = "@daily"

// ErrUnknownJob is returned by RunOnce for a name outside jobOrder.
var ErrUnknownJob = errors.New("unknown job")

// BarLoader provides the OHLC series for the technical job.
type BarLoader interface {
	Load(ctx context.Context) (model.BarSeries, error)
}

// FeedFetcher reads an RSS or Atom feed.
type FeedFetcher interface {
	Fetch(ctx context.Context, url string) ([]model.FeedItem, error)
}

// CalendarFetcher reads the economic calendar.
type CalendarFetcher interface {
	Fetch(ctx context.Context) ([]model.CalendarEvent, error)
}

// TranscriptFetcher returns the caption text of a video.
type TranscriptFetcher interface {
	Fetch(ctx context.Context, videoID string) (string, error)
}

// Deps are the collaborators the jobs run against.
type Deps struct {
	Bars        BarLoader
	Feeds       FeedFetcher
	Calendar    CalendarFetcher
	Transcripts TranscriptFetcher
	LLM         llm.Summarizer
	Sender      notifier.Sender
	Journal     recorder.Journal
	Metrics     *metrics.Metrics
}

// Scheduler runs the jobs once or on their cron schedules.
type Scheduler struct {
	Cron *cron.Cron
	Cfg  *config.Config
	Deps

	now   func() time.Time
	jobs  map[string]func(context.Context) error
	locks map[string]*sync.Mutex // one run per job at a time, cron or chat
}

// NewScheduler creates a new Scheduler. A nil Journal or LLM is replaced by
// its no-op implementation.
func NewScheduler(cfg *config.Config, deps Deps) *Scheduler {
	if deps.Journal == nil {
		deps.Journal = recorder.NewNoopJournal()
	}
	if deps.LLM == nil {
		deps.LLM = llm.Noop{}
	}
	s := &Scheduler{
		Cron: cron.New(
			cron.WithParser(config.CronParser),
			cron.WithChain(cron.Recover(cronLogger{}), cron.SkipIfStillRunning(cronLogger{})),
			cron.WithLogger(cronLogger{}),
		),
		Cfg:  cfg,
		Deps: deps,
		now:  time.Now,
	}
	s.jobs = map[string]func(context.Context) error{
		JobTechnical: s.technicalJob,
		JobNews:      s.newsJob,
		JobYouTube:   s.youtubeJob,
		JobPlan:      s.planJob,
	}
	s.locks = make(map[string]*sync.Mutex, len(s.jobs))
	for name := range s.jobs {
		s.locks[name] = &sync.Mutex{}
	}
	return s
}

// RegisterAll adds every job with a non-empty schedule. Cron runs derive
// their context from ctx.
func (s *Scheduler) RegisterAll(ctx context.Context) error {
	schedules := s.Cfg.Schedules()
	for _, name := range jobOrder {
		spec := schedules[name]
		if spec == "" {
			logger.Info(ctx, "job has no schedule, skipping", zap.String("job", name))
			continue
		}
		if _, err := s.Cron.AddFunc(spec, func() { _ = s.run(ctx, name) }); err != nil {
			return fmt.Errorf("register %s task: %w", name, err)
		}
		logger.Info(ctx, "job registered", zap.String("job", name), zap.String("schedule", spec))
	}
	if _, ok := s.Journal.(pruner); ok {
		if _, err := s.Cron.AddFunc(pruneSchedule, func() { _ = s.PruneJournal(ctx) }); err != nil {
			return fmt.Errorf("register prune task: %w", err)
		}
		logger.Info(ctx, "journal pruning registered",
			zap.String("schedule", pruneSchedule), zap.Duration("retention", s.Cfg.Database.Retention))
	}
	return nil
}

// pruner is implemented by journals that can drop old entries.
type pruner interface {
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// PruneJournal removes journal entries older than database.retention. It is
// a no-op for journals that keep nothing.
func (s *Scheduler) PruneJournal(ctx context.Context) error {
	p, ok := s.Journal.(pruner)
	if !ok || s.Cfg.Database.Retention <= 0 {
		return nil
	}
	removed, err := p.Prune(ctx, s.now().Add(-s.Cfg.Database.Retention))
	if err != nil {
		logger.ErrorWithErr(ctx, "journal prune failed", err)
		return err
	}
	logger.Info(ctx, "journal pruned", zap.Int64("removed", removed))
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	logger.Info(context.Background(), "scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	logger.Info(context.Background(), "scheduler stopped")
}

// RunOnce executes the named job, or all of them for "all", and returns
// the combined error.
func (s *Scheduler) RunOnce(ctx context.Context, name string) error {
	if name == JobAll {
		var errs []error
		for _, n := range jobOrder {
			errs = append(errs, s.run(ctx, n))
		}
		return errors.Join(errs...)
	}
	if _, ok := s.jobs[name]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownJob, name)
	}
	return s.run(ctx, name)
}

func (s *Scheduler) run(ctx context.Context, name string) error {
	mu := s.locks[name]
	mu.Lock()
	defer mu.Unlock()

	ctx = logger.WithRunID(ctx, uuid.NewString())
	ctx, span := logger.StartSpan(ctx, "job."+name)
	defer span.End()

	start := time.Now()
	logger.Info(ctx, "job started", zap.String("job", name))
	err := s.jobs[name](ctx)

	status := "ok"
	if err != nil {
		status = "error"
		logger.ErrorWithErr(ctx, "job failed", err, zap.String("job", name), zap.Duration("took", time.Since(start)))
	} else {
		logger.Info(ctx, "job finished", zap.String("job", name), zap.Duration("took", time.Since(start)))
	}
	if s.Metrics != nil {
		s.Metrics.JobRuns.WithLabelValues(name, status).Inc()
	}
	return err
}

// HandleCommand processes a chat command and returns a reply. Job commands
// deliver their own messages; the reply is only used for errors and help.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	cmd, _, _ := strings.Cut(strings.ToLower(fields[0]), "@")
	name := strings.TrimPrefix(cmd, "/")
	if _, ok := s.jobs[name]; !ok || !strings.HasPrefix(cmd, "/") {
		return notifier.FormatHelp()
	}
	if err := s.run(ctx, name); err != nil {
		return notifier.FormatSystemError(name, err)
	}
	return ""
}

type retrier interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// send delivers text, retrying when the sender supports it, and counts it
// under kind.
func (s *Scheduler) send(ctx context.Context, kind, text string) error {
	var err error
	if r, ok := s.Sender.(retrier); ok {
		err = r.SendWithRetry(ctx, text, 3)
	} else {
		err = s.Sender.Send(ctx, text)
	}
	if err != nil {
		return fmt.Errorf("send %s message: %w", kind, err)
	}
	if s.Metrics != nil {
		s.Metrics.MessagesSent.WithLabelValues(kind).Inc()
	}
	return nil
}

// ask returns the model's answer, or "" with the error logged.
func (s *Scheduler) ask(ctx context.Context, prompt string) (string, error) {
	out, err := s.LLM.Generate(ctx, prompt)
	if err != nil {
		if !errors.Is(err, llm.ErrDisabled) {
			logger.Warn(ctx, "llm unavailable, continuing without it", zap.Error(err))
		}
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (s *Scheduler) countItem(source, outcome string, n int) {
	if s.Metrics != nil && n > 0 {
		s.Metrics.FeedItems.WithLabelValues(source, outcome).Add(float64(n))
	}
}

// cronLogger routes cron's own messages to the structured logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.L().Sugar().Debugw("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.L().Sugar().Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
