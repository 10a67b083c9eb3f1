package scheduler

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"GoldSentinel/internal/feed"
	"GoldSentinel/internal/llm"
	"GoldSentinel/internal/logger"
	"GoldSentinel/internal/model"
	"GoldSentinel/internal/notifier"
	"GoldSentinel/internal/recorder"
)

// newsJob sends one alert per fresh headline across the configured feeds.
// It fails only when every feed failed or a delivery failed.
func (s *Scheduler) newsJob(ctx context.Context) error {
	cfg := s.Cfg.News
	now := s.now()

	var (
		errs   []error
		failed int
		sent   int
	)
	for _, url := range cfg.Feeds {
		items, err := s.Feeds.Fetch(ctx, url)
		if err != nil {
			failed++
			s.countItem(url, "failed", 1)
			logger.ErrorWithErr(ctx, "news feed fetch failed", err, zap.String("feed", url))
			errs = append(errs, err)
			continue
		}

		examined := len(items)
		if cfg.MaxItems > 0 && examined > cfg.MaxItems {
			examined = cfg.MaxItems
		}
		fresh := feed.Recent(items, now, cfg.Lookback, cfg.MaxItems)
		s.countItem(url, "stale", examined-len(fresh))
		if len(fresh) == 0 {
			logger.Info(ctx, "no new news items", zap.String("feed", url), zap.Int("examined", examined))
			continue
		}

		for _, item := range fresh {
			ok, err := s.deliverNews(ctx, url, item)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if ok {
				sent++
			}
		}
	}

	logger.Info(ctx, "news run summary", zap.Int("feeds", len(cfg.Feeds)), zap.Int("failed", failed), zap.Int("sent", sent))
	if len(cfg.Feeds) > 0 && failed == len(cfg.Feeds) {
		return fmt.Errorf("news: all %d feeds failed: %w", failed, errors.Join(errs...))
	}
	if len(errs) > failed {
		return fmt.Errorf("news: %w", errors.Join(errs...))
	}
	return nil
}

// deliverNews reports false when the item was already delivered.
func (s *Scheduler) deliverNews(ctx context.Context, source string, item model.FeedItem) (bool, error) {
	key := item.Key()
	if dup, err := s.Journal.WasSent(ctx, key); err != nil {
		logger.Warn(ctx, "journal lookup failed", zap.String("key", key), zap.Error(err))
	} else if dup {
		s.countItem(source, "duplicate", 1)
		return false, nil
	}

	aiText, _ := s.ask(ctx, llm.NewsPrompt(item.Title, notifier.StripHTML(item.Description)))
	if err := s.send(ctx, JobNews, notifier.FormatNewsAlert(item, aiText)); err != nil {
		return false, err
	}
	s.countItem(source, "new", 1)
	if err := s.Journal.MarkSent(ctx, key, recorder.KindNews); err != nil {
		logger.Warn(ctx, "journal write failed", zap.String("key", key), zap.Error(err))
	}
	return true, nil
}
