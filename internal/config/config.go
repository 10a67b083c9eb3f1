package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"GoldSentinel/internal/strategy"
)

// ErrMissingSetting is wrapped by Validate when a required value is absent.
var ErrMissingSetting = errors.New("missing required setting")

// CronParser accepts 5-field specs, 6-field specs with seconds, descriptors
// such as @hourly, and a leading CRON_TZ=Area/City.
var CronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Channel is a YouTube channel to watch.
type Channel struct {
	Name string `yaml:"name"`
	ID   string `yaml:"id"`
}

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	DataSource struct {
		BaseURL  string        `yaml:"base_url"`
		APIKey   string        `yaml:"api_key"`
		Symbol   string        `yaml:"symbol"`
		Period   string        `yaml:"period"`
		Interval string        `yaml:"interval"`
		Timeout  time.Duration `yaml:"timeout"`
	} `yaml:"data_source"`
	Technical struct {
		RSIPeriod     int     `yaml:"rsi_period"`
		MACDFast      int     `yaml:"macd_fast"`
		MACDSlow      int     `yaml:"macd_slow"`
		MACDSignal    int     `yaml:"macd_signal"`
		EMAPeriod     int     `yaml:"ema_period"`
		ATRPeriod     int     `yaml:"atr_period"`
		SwingWindow   int     `yaml:"swing_window"`
		Overbought    float64 `yaml:"overbought"`
		Oversold      float64 `yaml:"oversold"`
		ATRStopMult   float64 `yaml:"atr_stop_mult"`
		ATRTargetMult float64 `yaml:"atr_target_mult"`
		RewardRisk    float64 `yaml:"reward_risk"`
	} `yaml:"technical"`
	LLM struct {
		Provider           string        `yaml:"provider"` // gemini, openai or none
		Model              string        `yaml:"model"`
		APIKey             string        `yaml:"api_key"`
		BaseURL            string        `yaml:"base_url"`
		Timeout            time.Duration `yaml:"timeout"`
		MaxTranscriptChars int           `yaml:"max_transcript_chars"`
	} `yaml:"llm"`
	News struct {
		Feeds    []string      `yaml:"feeds"`
		Lookback time.Duration `yaml:"lookback"`
		MaxItems int           `yaml:"max_items"`
	} `yaml:"news"`
	Plan struct {
		CalendarURL      string   `yaml:"calendar_url"`
		Country          string   `yaml:"country"`
		Timezone         string   `yaml:"timezone"`
		HeadlineFeeds    []string `yaml:"headline_feeds"`
		HeadlinesPerFeed int      `yaml:"headlines_per_feed"`
	} `yaml:"plan"`
	YouTube struct {
		Channels  []Channel     `yaml:"channels"`
		Lookback  time.Duration `yaml:"lookback"`
		Languages []string      `yaml:"languages"`
	} `yaml:"youtube"`
	Schedule struct {
		Technical string `yaml:"technical"`
		News      string `yaml:"news"`
		YouTube   string `yaml:"youtube"`
		Plan      string `yaml:"plan"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string        `yaml:"sqlite_path"` // empty disables the delivery journal
		Retention  time.Duration `yaml:"retention"`   // journal entries older than this are pruned daily
	} `yaml:"database"`
	Metrics struct {
		Addr        string `yaml:"addr"`
		Pushgateway string `yaml:"pushgateway"`
	} `yaml:"metrics"`
	Log struct {
		Level   string `yaml:"level"`
		Format  string `yaml:"format"`
		Tracing bool   `yaml:"tracing"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, loads .env, applies environment
// variable overrides and finally fills defaults. A missing file is not an
// error; the run is then driven by the environment alone.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		// Existing process variables win over .env entries.
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func (c *Config) applyEnv() {
	if v := firstEnv("TELEGRAM_TOKEN", "TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := firstEnv("CHAT_ID", "TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("BARS_BASE_URL"); v != "" {
		c.DataSource.BaseURL = v
	}
	if v := os.Getenv("BARS_API_KEY"); v != "" {
		c.DataSource.APIKey = v
	}
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		c.LLM.Provider = strings.ToLower(v)
	}
	switch c.LLM.Provider {
	case "", "gemini":
		if v := os.Getenv("GEMINI_API_KEY"); v != "" {
			c.LLM.APIKey = v
		}
	case "openai":
		if v := os.Getenv("OPENAI_API_KEY"); v != "" {
			c.LLM.APIKey = v
		}
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
	}
	if v := os.Getenv("PUSHGATEWAY_URL"); v != "" {
		c.Metrics.Pushgateway = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if os.Getenv("LOG_TRACING_ENABLED") == "true" {
		c.Log.Tracing = true
	}
}

func (c *Config) applyDefaults() {
	ds := &c.DataSource
	if ds.Symbol == "" {
		ds.Symbol = "XAUUSD=X"
	}
	if ds.Period == "" {
		ds.Period = "1mo"
	}
	if ds.Interval == "" {
		ds.Interval = "1h"
	}
	if ds.Timeout <= 0 {
		ds.Timeout = 30 * time.Second
	}

	def := strategy.DefaultConfig()
	t := &c.Technical
	setInt(&t.RSIPeriod, def.RSIPeriod)
	setInt(&t.MACDFast, def.MACDFast)
	setInt(&t.MACDSlow, def.MACDSlow)
	setInt(&t.MACDSignal, def.MACDSignal)
	setInt(&t.EMAPeriod, def.EMAPeriod)
	setInt(&t.ATRPeriod, def.ATRPeriod)
	setInt(&t.SwingWindow, def.SwingWindow)
	setFloat(&t.Overbought, def.Overbought)
	setFloat(&t.Oversold, def.Oversold)
	setFloat(&t.ATRStopMult, def.ATRStopMult)
	setFloat(&t.ATRTargetMult, def.ATRTargetMult)
	setFloat(&t.RewardRisk, def.RewardRisk)

	if c.LLM.Provider == "" {
		c.LLM.Provider = "gemini"
	}
	if c.LLM.Model == "" {
		switch c.LLM.Provider {
		case "openai":
			c.LLM.Model = "gpt-4o-mini"
		default:
			c.LLM.Model = "gemini-1.5-flash"
		}
	}
	if c.LLM.Timeout <= 0 {
		c.LLM.Timeout = 60 * time.Second
	}
	setInt(&c.LLM.MaxTranscriptChars, 12000)

	if len(c.News.Feeds) == 0 {
		c.News.Feeds = []string{"https://www.fxstreet.com/rss/news/assets/gold"}
	}
	if c.News.Lookback <= 0 {
		c.News.Lookback = 6 * time.Minute
	}
	setInt(&c.News.MaxItems, 3)

	if c.Plan.CalendarURL == "" {
		c.Plan.CalendarURL = "https://nfs.faireconomy.media/ff_calendar_thisweek.xml"
	}
	if c.Plan.Country == "" {
		c.Plan.Country = "USD"
	}
	if c.Plan.Timezone == "" {
		c.Plan.Timezone = "Asia/Bangkok"
	}
	if len(c.Plan.HeadlineFeeds) == 0 {
		c.Plan.HeadlineFeeds = []string{
			"https://www.forexlive.com/feed/news",
			"https://www.fxstreet.com/rss/news/assets/gold",
			"https://www.investing.com/rss/news_1.rss",
		}
	}
	setInt(&c.Plan.HeadlinesPerFeed, 3)

	if len(c.YouTube.Channels) == 0 {
		c.YouTube.Channels = []Channel{
			{Name: "Kitco News", ID: "UCN9N8i1A15_XhQ6F-0WJc9w"},
			{Name: "Bloomberg Television", ID: "UCIALMKvObZNtJ6AmdCLP7Lg"},
			{Name: "Rayner Teo", ID: "UCFSn-h8wTnhpKJMteN76Abg"},
			{Name: "The Secret Sauce", ID: "UC9WlLtavtOylaWHDl6Uk00Q"},
		}
	}
	if c.YouTube.Lookback <= 0 {
		c.YouTube.Lookback = 24 * time.Hour
	}
	if len(c.YouTube.Languages) == 0 {
		c.YouTube.Languages = []string{"th", "en"}
	}

	s := &c.Schedule
	if s.Technical == "" {
		s.Technical = "0 5 * * * *"
	}
	if s.News == "" {
		s.News = "0 */5 * * * *"
	}
	if s.YouTube == "" {
		s.YouTube = "0 0 */4 * * *"
	}
	if s.Plan == "" {
		s.Plan = "CRON_TZ=Asia/Bangkok 0 30 6 * * 1-5"
	}

	if c.Database.Retention <= 0 {
		c.Database.Retention = 7 * 24 * time.Hour
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9090"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

func setInt(p *int, def int) {
	if *p <= 0 {
		*p = def
	}
}

func setFloat(p *float64, def float64) {
	if *p <= 0 {
		*p = def
	}
}

func missing(key string) error {
	return fmt.Errorf("%w: %s", ErrMissingSetting, key)
}

// Validate checks that all required fields are set and well formed.
func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return missing("telegram.bot_token (TELEGRAM_TOKEN)")
	}
	if c.Telegram.ChatID == "" {
		return missing("telegram.chat_id (CHAT_ID)")
	}
	switch c.LLM.Provider {
	case "gemini", "openai":
		if c.LLM.APIKey == "" {
			return missing("llm.api_key (GEMINI_API_KEY / OPENAI_API_KEY, or set llm.provider: none)")
		}
	case "none":
	default:
		return fmt.Errorf("llm.provider: unknown provider %q", c.LLM.Provider)
	}
	if c.Technical.MACDFast >= c.Technical.MACDSlow {
		return fmt.Errorf("technical: macd_fast (%d) must be below macd_slow (%d)", c.Technical.MACDFast, c.Technical.MACDSlow)
	}
	if c.Technical.Oversold >= c.Technical.Overbought {
		return fmt.Errorf("technical: oversold (%.1f) must be below overbought (%.1f)", c.Technical.Oversold, c.Technical.Overbought)
	}
	if _, err := time.LoadLocation(c.Plan.Timezone); err != nil {
		return fmt.Errorf("plan.timezone: %w", err)
	}
	for _, ch := range c.YouTube.Channels {
		if ch.ID == "" {
			return missing(fmt.Sprintf("youtube.channels[%s].id", ch.Name))
		}
	}
	for name, spec := range c.Schedules() {
		if _, err := CronParser.Parse(spec); err != nil {
			return fmt.Errorf("schedule.%s %q: %w", name, spec, err)
		}
	}
	return nil
}

// Schedules maps job name to cron spec.
func (c *Config) Schedules() map[string]string {
	return map[string]string{
		"technical": c.Schedule.Technical,
		"news":      c.Schedule.News,
		"youtube":   c.Schedule.YouTube,
		"plan":      c.Schedule.Plan,
	}
}

// StrategyConfig converts the technical section into engine parameters.
func (c *Config) StrategyConfig() strategy.Config {
	t := c.Technical
	return strategy.Config{
		RSIPeriod:     t.RSIPeriod,
		MACDFast:      t.MACDFast,
		MACDSlow:      t.MACDSlow,
		MACDSignal:    t.MACDSignal,
		EMAPeriod:     t.EMAPeriod,
		ATRPeriod:     t.ATRPeriod,
		SwingWindow:   t.SwingWindow,
		Overbought:    t.Overbought,
		Oversold:      t.Oversold,
		ATRStopMult:   t.ATRStopMult,
		ATRTargetMult: t.ATRTargetMult,
		RewardRisk:    t.RewardRisk,
	}
}
