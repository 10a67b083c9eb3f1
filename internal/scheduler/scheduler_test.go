package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"GoldSentinel/internal/collector"
	"GoldSentinel/internal/config"
	"GoldSentinel/internal/metrics"
	"GoldSentinel/internal/model"
	"GoldSentinel/internal/recorder"
	"GoldSentinel/internal/transcript"
)

var fixedNow = time.Date(2024, 5, 8, 1, 0, 0, 0, time.UTC) // 08:00 in Bangkok

type fakeSender struct {
	mu   sync.Mutex
	msgs []string
	err  error
}

func (f *fakeSender) Send(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, text)
	return nil
}

type slowSender struct {
	fakeSender
	delay time.Duration
}

func (s *slowSender) Send(ctx context.Context, text string) error {
	time.Sleep(s.delay)
	return s.fakeSender.Send(ctx, text)
}

// memJournal is an in-memory journal that also records prune cutoffs.
type memJournal struct {
	mu      sync.Mutex
	sent    map[string]time.Time
	cutoffs []time.Time
}

func newMemJournal() *memJournal { return &memJournal{sent: map[string]time.Time{}} }

func (j *memJournal) WasSent(_ context.Context, key string) (bool, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	_, ok := j.sent[key]
	return ok, nil
}

func (j *memJournal) MarkSent(_ context.Context, key, _ string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.sent[key] = fixedNow
	return nil
}

func (j *memJournal) Prune(_ context.Context, cutoff time.Time) (int64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.cutoffs = append(j.cutoffs, cutoff)
	var n int64
	for k, at := range j.sent {
		if at.Before(cutoff) {
			delete(j.sent, k)
			n++
		}
	}
	return n, nil
}

func (j *memJournal) Close() error { return nil }

type fakeFeeds struct {
	items map[string][]model.FeedItem
	errs  map[string]error
}

func (f *fakeFeeds) Fetch(_ context.Context, url string) ([]model.FeedItem, error) {
	if err := f.errs[url]; err != nil {
		return nil, err
	}
	return f.items[url], nil
}

type fakeCalendar struct {
	events []model.CalendarEvent
	err    error
}

func (f *fakeCalendar) Fetch(context.Context) ([]model.CalendarEvent, error) { return f.events, f.err }

type fakeTranscripts map[string]string

func (f fakeTranscripts) Fetch(_ context.Context, id string) (string, error) {
	text, ok := f[id]
	if !ok {
		return "", transcript.ErrNoTranscript
	}
	return text, nil
}

type stubLLM struct {
	mu      sync.Mutex
	out     string
	err     error
	prompts []string
}

func (s *stubLLM) Name() string { return "stub" }

func (s *stubLLM) Generate(_ context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	return s.out, s.err
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	return cfg
}

type harness struct {
	s       *Scheduler
	sender  *fakeSender
	feeds   *fakeFeeds
	llm     *stubLLM
	metrics *metrics.Metrics
}

func newHarness(t *testing.T, cfg *config.Config) *harness {
	t.Helper()
	h := &harness{
		sender:  &fakeSender{},
		feeds:   &fakeFeeds{items: map[string][]model.FeedItem{}, errs: map[string]error{}},
		llm:     &stubLLM{out: "<b>ok</b>"},
		metrics: metrics.New(),
	}
	h.s = NewScheduler(cfg, Deps{
		Bars:        collector.NewCollector(&collector.MockFetcher{Price: 2400, Count: 240}, "XAUUSD=X", "7d", "1h", time.Second, h.metrics),
		Feeds:       h.feeds,
		Calendar:    &fakeCalendar{},
		Transcripts: fakeTranscripts{},
		LLM:         h.llm,
		Sender:      h.sender,
		Metrics:     h.metrics,
	})
	h.s.now = func() time.Time { return fixedNow }
	return h
}

func TestTechnicalJob_SendsReport(t *testing.T) {
	h := newHarness(t, testConfig(t))
	if err := h.s.RunOnce(context.Background(), JobTechnical); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(h.sender.msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(h.sender.msgs))
	}
	msg := h.sender.msgs[0]
	if !strings.Contains(msg, "Technical Analyst (1H)") || !strings.Contains(msg, "<b>ok</b>") {
		t.Errorf("unexpected report:\n%s", msg)
	}
	if len(h.llm.prompts) != 1 || !strings.Contains(h.llm.prompts[0], "RSI") {
		t.Errorf("technical prompt not built: %v", h.llm.prompts)
	}
	if got := testutil.ToFloat64(h.metrics.JobRuns.WithLabelValues(JobTechnical, "ok")); got != 1 {
		t.Errorf("job_runs ok = %v", got)
	}
	if got := testutil.ToFloat64(h.metrics.MessagesSent.WithLabelValues(JobTechnical)); got != 1 {
		t.Errorf("messages_sent = %v", got)
	}
}

func TestTechnicalJob_ReportSurvivesLLMFailure(t *testing.T) {
	h := newHarness(t, testConfig(t))
	h.llm.err = errors.New("quota exceeded")
	if err := h.s.RunOnce(context.Background(), JobTechnical); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(h.sender.msgs) != 1 || strings.Contains(h.sender.msgs[0], "AI Strategy") {
		t.Errorf("report should be sent without the AI section: %v", h.sender.msgs)
	}
}

func TestTechnicalJob_LoadFailure(t *testing.T) {
	h := newHarness(t, testConfig(t))
	h.s.Bars = collector.NewCollector(&collector.MockFetcher{Err: collector.ErrDataUnavailable}, "XAUUSD=X", "7d", "1h", time.Second, nil)
	err := h.s.RunOnce(context.Background(), JobTechnical)
	if !errors.Is(err, collector.ErrDataUnavailable) {
		t.Fatalf("expected ErrDataUnavailable, got %v", err)
	}
	if len(h.sender.msgs) != 0 {
		t.Error("nothing should be sent when bars are unavailable")
	}
	if got := testutil.ToFloat64(h.metrics.JobRuns.WithLabelValues(JobTechnical, "error")); got != 1 {
		t.Errorf("job_runs error = %v", got)
	}
}

func newsItem(guid string, age time.Duration) model.FeedItem {
	return model.FeedItem{
		GUID:        guid,
		Title:       "Gold " + guid,
		Link:        "https://news.test/" + guid,
		Description: "<p>Spot gold <b>rises</b></p>",
		Published:   fixedNow.Add(-age),
	}
}

func TestNewsJob_AlertsFreshItemsOnce(t *testing.T) {
	cfg := testConfig(t)
	cfg.News.Feeds = []string{"https://feed.test/gold", "https://feed.test/broken"}
	h := newHarness(t, cfg)
	journal, err := recorder.NewSQLiteJournal(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer journal.Close()
	h.s.Journal = journal

	h.feeds.items["https://feed.test/gold"] = []model.FeedItem{
		newsItem("a", time.Minute),
		newsItem("b", 2*time.Minute),
		newsItem("c", 10*time.Minute),
		newsItem("d", time.Minute), // beyond max_items
	}
	h.feeds.errs["https://feed.test/broken"] = errors.New("503")

	ctx := context.Background()
	if err := h.s.RunOnce(ctx, JobNews); err != nil {
		t.Fatalf("one failing feed should not fail the job: %v", err)
	}
	if len(h.sender.msgs) != 2 {
		t.Fatalf("expected 2 alerts, got %d", len(h.sender.msgs))
	}
	if !strings.Contains(h.llm.prompts[0], "Spot gold rises") || strings.Contains(h.llm.prompts[0], "<p>") {
		t.Errorf("description should be stripped before prompting: %q", h.llm.prompts[0])
	}

	if err := h.s.RunOnce(ctx, JobNews); err != nil {
		t.Fatal(err)
	}
	if len(h.sender.msgs) != 2 {
		t.Errorf("journal should suppress repeats, got %d messages", len(h.sender.msgs))
	}

	src := "https://feed.test/gold"
	if got := testutil.ToFloat64(h.metrics.FeedItems.WithLabelValues(src, "new")); got != 2 {
		t.Errorf("new = %v", got)
	}
	if got := testutil.ToFloat64(h.metrics.FeedItems.WithLabelValues(src, "duplicate")); got != 2 {
		t.Errorf("duplicate = %v", got)
	}
	if got := testutil.ToFloat64(h.metrics.FeedItems.WithLabelValues(src, "stale")); got != 2 {
		t.Errorf("stale = %v", got)
	}
	if got := testutil.ToFloat64(h.metrics.FeedItems.WithLabelValues("https://feed.test/broken", "failed")); got != 2 {
		t.Errorf("failed = %v", got)
	}
}

func TestNewsJob_AllFeedsFailed(t *testing.T) {
	cfg := testConfig(t)
	cfg.News.Feeds = []string{"https://feed.test/broken"}
	h := newHarness(t, cfg)
	h.feeds.errs["https://feed.test/broken"] = errors.New("timeout")
	if err := h.s.RunOnce(context.Background(), JobNews); err == nil {
		t.Fatal("expected an error when every feed fails")
	}
}

func TestNewsJob_NoNewItems(t *testing.T) {
	cfg := testConfig(t)
	cfg.News.Feeds = []string{"https://feed.test/gold"}
	h := newHarness(t, cfg)
	h.feeds.items["https://feed.test/gold"] = []model.FeedItem{newsItem("old", time.Hour)}
	if err := h.s.RunOnce(context.Background(), JobNews); err != nil {
		t.Fatalf("no new items is not a failure: %v", err)
	}
	if len(h.sender.msgs) != 0 || len(h.llm.prompts) != 0 {
		t.Error("stale items must not be alerted")
	}
}

func TestYouTubeJob(t *testing.T) {
	cfg := testConfig(t)
	cfg.LLM.MaxTranscriptChars = 10
	cfg.YouTube.Channels = []config.Channel{
		{Name: "Summarized", ID: "UC1"},
		{Name: "Silent", ID: "UC2"},
		{Name: "Quiet", ID: "UC3"},
	}
	h := newHarness(t, cfg)
	video := func(id string, age time.Duration) model.FeedItem {
		return model.FeedItem{VideoID: id, Title: "Video " + id, Link: "https://youtu.be/" + id, Published: fixedNow.Add(-age)}
	}
	h.feeds.items["https://www.youtube.com/feeds/videos.xml?channel_id=UC1"] = []model.FeedItem{video("v1", time.Hour), video("v0", 2*time.Hour)}
	h.feeds.items["https://www.youtube.com/feeds/videos.xml?channel_id=UC2"] = []model.FeedItem{video("v2", time.Hour)}
	h.feeds.items["https://www.youtube.com/feeds/videos.xml?channel_id=UC3"] = []model.FeedItem{video("v3", 48*time.Hour)}
	h.s.Transcripts = fakeTranscripts{"v1": "support 2300 resistance 2400", "v0": "older"}

	if err := h.s.RunOnce(context.Background(), JobYouTube); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(h.sender.msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d: %v", len(h.sender.msgs), h.sender.msgs)
	}
	if !strings.Contains(h.sender.msgs[0], "Spy Report: Summarized") {
		t.Errorf("first message should be a report: %s", h.sender.msgs[0])
	}
	if !strings.Contains(h.sender.msgs[1], "ไม่มีซับไตเติ้ล") || !strings.Contains(h.sender.msgs[1], "https://youtu.be/v2") {
		t.Errorf("second message should be a no-subtitle notice: %s", h.sender.msgs[1])
	}
	if len(h.llm.prompts) != 1 {
		t.Fatalf("expected one summary prompt, got %d", len(h.llm.prompts))
	}
	if !strings.Contains(h.llm.prompts[0], "support 23\n") || strings.Contains(h.llm.prompts[0], "2400") {
		t.Errorf("transcript should be truncated to 10 runes: %q", h.llm.prompts[0])
	}
}

func TestYouTubeJob_SummaryFailureSendsNotice(t *testing.T) {
	cfg := testConfig(t)
	cfg.YouTube.Channels = []config.Channel{{Name: "Ch", ID: "UC1"}}
	h := newHarness(t, cfg)
	h.llm.err = errors.New("boom")
	h.feeds.items["https://www.youtube.com/feeds/videos.xml?channel_id=UC1"] = []model.FeedItem{
		{VideoID: "v1", Title: "T", Link: "https://youtu.be/v1", Published: fixedNow.Add(-time.Hour)},
	}
	h.s.Transcripts = fakeTranscripts{"v1": "text"}
	if err := h.s.RunOnce(context.Background(), JobYouTube); err != nil {
		t.Fatal(err)
	}
	if len(h.sender.msgs) != 1 || !strings.Contains(h.sender.msgs[0], "AI สรุปไม่ได้") {
		t.Errorf("unexpected messages: %v", h.sender.msgs)
	}
}

func planHarness(t *testing.T) *harness {
	cfg := testConfig(t)
	cfg.Plan.HeadlineFeeds = []string{"https://feed.test/headlines"}
	cfg.Plan.HeadlinesPerFeed = 1
	h := newHarness(t, cfg)
	h.s.Calendar = &fakeCalendar{events: []model.CalendarEvent{
		{Title: "CPI m/m", Country: "USD", Impact: "High", Time: time.Date(2024, 5, 8, 12, 30, 0, 0, time.UTC)},
		{Title: "German ZEW", Country: "EUR", Impact: "High", Time: time.Date(2024, 5, 8, 9, 0, 0, 0, time.UTC)},
		{Title: "Fed Chair Speaks", Country: "USD", Impact: "High", Time: time.Date(2024, 5, 8, 18, 0, 0, 0, time.UTC)},
	}}
	h.feeds.items["https://feed.test/headlines"] = []model.FeedItem{{Title: "Dollar slips"}, {Title: "Second headline"}}
	return h
}

func TestPlanJob(t *testing.T) {
	h := planHarness(t)
	if err := h.s.RunOnce(context.Background(), JobPlan); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(h.sender.msgs) != 1 || h.sender.msgs[0] != "<b>ok</b>" {
		t.Errorf("unexpected plan message: %v", h.sender.msgs)
	}
	prompt := h.llm.prompts[0]
	for _, want := range []string{"08/05/2024", "19:30", "CPI m/m", "Dollar slips"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	for _, unwanted := range []string{"German ZEW", "Fed Chair Speaks", "Second headline"} {
		if strings.Contains(prompt, unwanted) {
			t.Errorf("prompt should not contain %q", unwanted)
		}
	}
}

func TestPlanJob_LLMFailureSendsSystemError(t *testing.T) {
	h := planHarness(t)
	h.llm.err = errors.New("503 overloaded")
	if err := h.s.RunOnce(context.Background(), JobPlan); err == nil {
		t.Fatal("expected an error")
	}
	if len(h.sender.msgs) != 1 || !strings.Contains(h.sender.msgs[0], "ระบบขัดข้อง") {
		t.Errorf("expected a system error message, got %v", h.sender.msgs)
	}
}

func TestPlanJob_CalendarFailureStillPlans(t *testing.T) {
	h := planHarness(t)
	h.s.Calendar = &fakeCalendar{err: errors.New("403")}
	if err := h.s.RunOnce(context.Background(), JobPlan); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if !strings.Contains(h.llm.prompts[0], "ไม่มี Event ในตารางวันนี้") {
		t.Error("prompt should state that the calendar is empty")
	}
}

func TestRunOnce_UnknownJob(t *testing.T) {
	h := newHarness(t, testConfig(t))
	if err := h.s.RunOnce(context.Background(), "weekly"); !errors.Is(err, ErrUnknownJob) {
		t.Fatalf("expected ErrUnknownJob, got %v", err)
	}
}

func TestRunOnce_AllJoinsErrors(t *testing.T) {
	cfg := testConfig(t)
	cfg.News.Feeds = nil
	cfg.YouTube.Channels = nil
	h := newHarness(t, cfg)
	h.llm.err = errors.New("down")
	err := h.s.RunOnce(context.Background(), JobAll)
	if err == nil || !strings.Contains(err.Error(), "plan") {
		t.Fatalf("expected the plan failure to surface, got %v", err)
	}
	if got := testutil.ToFloat64(h.metrics.JobRuns.WithLabelValues(JobTechnical, "ok")); got != 1 {
		t.Errorf("technical should still succeed, got %v", got)
	}
}

func TestHandleCommand(t *testing.T) {
	h := newHarness(t, testConfig(t))
	ctx := context.Background()

	if reply := h.s.HandleCommand(ctx, "/help"); !strings.Contains(reply, "/technical") {
		t.Errorf("help reply = %q", reply)
	}
	if reply := h.s.HandleCommand(ctx, "hello"); !strings.Contains(reply, "/plan") {
		t.Errorf("free text should get help, got %q", reply)
	}
	if reply := h.s.HandleCommand(ctx, "/Technical@GoldSentinelBot now"); reply != "" {
		t.Errorf("successful job should not reply, got %q", reply)
	}
	if len(h.sender.msgs) != 1 {
		t.Errorf("technical command should send a report, got %d", len(h.sender.msgs))
	}

	h.s.Bars = collector.NewCollector(&collector.MockFetcher{Err: collector.ErrDataUnavailable}, "XAUUSD=X", "7d", "1h", time.Second, nil)
	if reply := h.s.HandleCommand(ctx, "/technical"); !strings.Contains(reply, "ระบบขัดข้อง") {
		t.Errorf("failed job should reply with an error, got %q", reply)
	}
}

func TestRegisterAll(t *testing.T) {
	cfg := testConfig(t)
	cfg.Schedule.YouTube = ""
	h := newHarness(t, cfg)
	if err := h.s.RegisterAll(context.Background()); err != nil {
		t.Fatalf("RegisterAll: %v", err)
	}
	if n := len(h.s.Cron.Entries()); n != 3 {
		t.Errorf("expected 3 entries, got %d", n)
	}

	cfg = testConfig(t)
	h = newHarness(t, cfg)
	h.s.Journal = newMemJournal()
	if err := h.s.RegisterAll(context.Background()); err != nil {
		t.Fatalf("RegisterAll: %v", err)
	}
	if n := len(h.s.Cron.Entries()); n != 5 {
		t.Errorf("a prunable journal should add the prune entry, got %d entries", n)
	}

	cfg = testConfig(t)
	cfg.Schedule.News = "every now and then"
	h = newHarness(t, cfg)
	if err := h.s.RegisterAll(context.Background()); err == nil {
		t.Error("invalid spec should fail registration")
	}
}

func TestPruneJournal(t *testing.T) {
	h := newHarness(t, testConfig(t))
	ctx := context.Background()
	if err := h.s.PruneJournal(ctx); err != nil {
		t.Errorf("noop journal should prune nothing: %v", err)
	}

	j := newMemJournal()
	j.sent["old"] = fixedNow.Add(-8 * 24 * time.Hour)
	j.sent["recent"] = fixedNow.Add(-time.Hour)
	h.s.Journal = j
	if err := h.s.PruneJournal(ctx); err != nil {
		t.Fatalf("PruneJournal: %v", err)
	}
	if want := fixedNow.Add(-7 * 24 * time.Hour); len(j.cutoffs) != 1 || !j.cutoffs[0].Equal(want) {
		t.Errorf("cutoffs = %v, want [%v]", j.cutoffs, want)
	}
	if _, ok := j.sent["old"]; ok {
		t.Error("entry past retention should be pruned")
	}
	if _, ok := j.sent["recent"]; !ok {
		t.Error("recent entry should be kept")
	}
}

func TestConcurrentRunsOfSameJobDeliverOnce(t *testing.T) {
	cfg := testConfig(t)
	cfg.News.Feeds = []string{"https://feed.test/gold"}
	h := newHarness(t, cfg)
	sender := &slowSender{delay: 20 * time.Millisecond}
	h.s.Sender = sender
	h.s.Journal = newMemJournal()
	h.feeds.items["https://feed.test/gold"] = []model.FeedItem{
		newsItem("a", time.Minute),
		newsItem("b", 2*time.Minute),
	}

	ctx := context.Background()
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if reply := h.s.HandleCommand(ctx, "/news"); reply != "" {
			t.Errorf("unexpected reply: %q", reply)
		}
	}()
	go func() {
		defer wg.Done()
		if err := h.s.RunOnce(ctx, JobNews); err != nil {
			t.Errorf("RunOnce: %v", err)
		}
	}()
	wg.Wait()

	sender.mu.Lock()
	defer sender.mu.Unlock()
	if len(sender.msgs) != 2 {
		t.Errorf("each headline should be alerted once, got %d alerts", len(sender.msgs))
	}
}
