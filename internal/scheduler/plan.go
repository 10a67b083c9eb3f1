package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"GoldSentinel/internal/calendar"
	"GoldSentinel/internal/llm"
	"GoldSentinel/internal/logger"
	"GoldSentinel/internal/model"
	"GoldSentinel/internal/notifier"
)

// planJob combines today's calendar with the latest headlines into a daily
// plan. A calendar or headline failure degrades the prompt; a model
// failure sends a system error message instead of the plan.
func (s *Scheduler) planJob(ctx context.Context) error {
	cfg := s.Cfg.Plan
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("plan: timezone %q: %w", cfg.Timezone, err)
	}
	now := s.now().In(loc)

	var today []model.CalendarEvent
	events, err := s.Calendar.Fetch(ctx)
	if err != nil {
		logger.ErrorWithErr(ctx, "calendar fetch failed, planning without it", err)
	} else {
		today = calendar.ForDay(events, cfg.Country, now, loc)
	}

	var headlines []string
	for _, url := range cfg.HeadlineFeeds {
		items, err := s.Feeds.Fetch(ctx, url)
		if err != nil {
			s.countItem(url, "failed", 1)
			logger.ErrorWithErr(ctx, "headline feed fetch failed", err, zap.String("feed", url))
			continue
		}
		for i, it := range items {
			if cfg.HeadlinesPerFeed > 0 && i >= cfg.HeadlinesPerFeed {
				break
			}
			headlines = append(headlines, it.Title)
		}
	}
	logger.Info(ctx, "plan inputs ready", zap.Int("events", len(today)), zap.Int("headlines", len(headlines)))

	aiText, err := s.ask(ctx, llm.PlanPrompt(now, today, headlines))
	if err != nil || aiText == "" {
		if err == nil {
			err = errors.New("empty model reply")
		}
		if sendErr := s.send(ctx, "system_error", notifier.FormatSystemError(JobPlan, err)); sendErr != nil {
			logger.ErrorWithErr(ctx, "system error message not delivered", sendErr)
		}
		return fmt.Errorf("plan: %w", err)
	}
	return s.send(ctx, JobPlan, notifier.FormatPlan(aiText))
}
