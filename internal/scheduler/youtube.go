package scheduler

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"GoldSentinel/internal/config"
	"GoldSentinel/internal/feed"
	"GoldSentinel/internal/llm"
	"GoldSentinel/internal/logger"
	"GoldSentinel/internal/notifier"
	"GoldSentinel/internal/recorder"
	"GoldSentinel/internal/transcript"
)

const (
	reasonNoSubtitles = "ไม่มีซับไตเติ้ล"
	reasonNoFetch     = "ดึงซับไตเติ้ลไม่ได้"
	reasonNoAI        = "AI สรุปไม่ได้"
)

// youtubeJob looks at the newest upload of each channel and summarizes it
// when it was published within the lookback window.
func (s *Scheduler) youtubeJob(ctx context.Context) error {
	var errs []error
	for _, ch := range s.Cfg.YouTube.Channels {
		if err := s.checkChannel(ctx, ch); err != nil {
			logger.ErrorWithErr(ctx, "channel check failed", err, zap.String("channel", ch.Name))
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("youtube: %w", errors.Join(errs...))
	}
	return nil
}

func (s *Scheduler) checkChannel(ctx context.Context, ch config.Channel) error {
	source := "youtube:" + ch.Name
	items, err := s.Feeds.Fetch(ctx, feed.YouTubeFeedURL(ch.ID))
	if err != nil {
		s.countItem(source, "failed", 1)
		return err
	}
	latest := feed.Recent(items, s.now(), s.Cfg.YouTube.Lookback, 1)
	if len(latest) == 0 {
		if len(items) > 0 {
			s.countItem(source, "stale", 1)
		}
		logger.Info(ctx, "no new video", zap.String("channel", ch.Name))
		return nil
	}
	video := latest[0]

	key := video.Key()
	if dup, err := s.Journal.WasSent(ctx, key); err != nil {
		logger.Warn(ctx, "journal lookup failed", zap.String("key", key), zap.Error(err))
	} else if dup {
		s.countItem(source, "duplicate", 1)
		return nil
	}

	text, err := s.Transcripts.Fetch(ctx, video.VideoID)
	var msg string
	switch {
	case errors.Is(err, transcript.ErrNoTranscript):
		msg = notifier.FormatVideoNotice(ch.Name, video, reasonNoSubtitles)
	case err != nil:
		logger.Warn(ctx, "transcript fetch failed", zap.String("video", video.VideoID), zap.Error(err))
		msg = notifier.FormatVideoNotice(ch.Name, video, reasonNoFetch)
	default:
		text = transcript.Truncate(text, s.Cfg.LLM.MaxTranscriptChars)
		summary, aiErr := s.ask(ctx, llm.VideoPrompt(ch.Name, video.Title, text))
		if aiErr != nil || summary == "" {
			msg = notifier.FormatVideoNotice(ch.Name, video, reasonNoAI)
		} else {
			msg = notifier.FormatVideoReport(ch.Name, video, summary)
		}
	}

	if err := s.send(ctx, JobYouTube, msg); err != nil {
		return err
	}
	s.countItem(source, "new", 1)
	if err := s.Journal.MarkSent(ctx, key, recorder.KindVideo); err != nil {
		logger.Warn(ctx, "journal write failed", zap.String("key", key), zap.Error(err))
	}
	return nil
}
