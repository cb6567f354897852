package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const (
	defaultServiceName       = "roadwatch"
	defaultHTTPListen        = ":8080"
	defaultHealthPath        = "/healthz"
	defaultReadyPath         = "/readyz"
	defaultMetricsPath       = "/metrics"
	defaultAPIPrefix         = "/api"
	defaultMaxBodyBytes      = 1 << 20
	defaultSourceTimeoutSec  = 10
	defaultSourcePollSec     = 60
	defaultMonitorInterval   = 300
	defaultNATSURL           = "nats://127.0.0.1:4222"
	defaultIssueSubject      = "roadwatch.issues"
	defaultQueueStream       = "ROADWATCH_OUTBOX"
	defaultQueueSubject      = "roadwatch.outbox"
	defaultQueueConsumer     = "roadwatch-outbox"
	defaultQueueGroup        = "roadwatch-senders"
	defaultQueueAckWaitSec   = 30
	defaultQueueNackDelayMS  = 1000
	defaultQueueMaxDeliver   = 5
	defaultQueueMaxAck       = 256
	defaultPersistBucket     = "roadwatch_notifications"
	defaultPersistKey        = "inbox"
	defaultDeliveryWorkers   = 2
	defaultDeliveryBuffer    = 128
	defaultEmailDomain       = "brampton.ca"
	defaultSMTPPort          = 587
	defaultHTTPNotifyTimeout = 10
	defaultBreakerTimeoutSec = 30

	// ServiceModeSingle keeps everything in process memory.
	ServiceModeSingle = "single"
	// ServiceModeNATS enables NATS ingest, KV persistence, and the outbound queue.
	ServiceModeNATS = "nats"

	// SourceKindDemo serves the bundled demo dataset.
	SourceKindDemo = "demo"
	// SourceKindHTTP polls the pothole REST API.
	SourceKindHTTP = "http"
	// SourceKindPush accepts issues only through the HTTP API or NATS.
	SourceKindPush = "push"
)

// Config holds service runtime settings and the escalation rule table.
// Params: TOML sections from file or merged directory snapshot.
// Returns: validated runtime configuration.
type Config struct {
	Service ServiceConfig         `toml:"service"`
	Log     LogConfig             `toml:"log"`
	HTTP    HTTPConfig            `toml:"http"`
	Source  SourceConfig          `toml:"source"`
	Monitor MonitorConfig         `toml:"monitor"`
	Store   StoreConfig           `toml:"store"`
	NATS    NATSConfig            `toml:"nats"`
	Notify  NotifyConfig          `toml:"notify"`
	Rule    map[string]RuleConfig `toml:"rule"`
}

// ServiceConfig contains process-level settings.
type ServiceConfig struct {
	Name string `toml:"name"`
	Mode string `toml:"mode"`
}

// HTTPConfig configures API, health, and metrics endpoints.
type HTTPConfig struct {
	Listen       string `toml:"listen"`
	HealthPath   string `toml:"health_path"`
	ReadyPath    string `toml:"ready_path"`
	MetricsPath  string `toml:"metrics_path"`
	APIPrefix    string `toml:"api_prefix"`
	MaxBodyBytes int64  `toml:"max_body_bytes"`
}

// SourceConfig selects where the issue collection comes from.
// Params: source kind, REST endpoint, polling and fallback controls.
// Returns: issue source behavior.
type SourceConfig struct {
	Kind                string `toml:"kind"`
	URL                 string `toml:"url"`
	TimeoutSec          int    `toml:"timeout_sec"`
	PollIntervalSec     int    `toml:"poll_interval_sec"`
	DisableDemoFallback bool   `toml:"disable_demo_fallback"`
}

// MonitorConfig controls periodic escalation checks.
type MonitorConfig struct {
	IntervalSec int   `toml:"interval_sec"`
	Dedup       *bool `toml:"dedup"`
}

// DedupEnabled reports whether repeated alerts for unchanged records are suppressed.
// Params: none.
// Returns: configured flag, true when omitted.
func (m MonitorConfig) DedupEnabled() bool {
	return m.Dedup == nil || *m.Dedup
}

// StoreConfig controls notification store bounds and persistence.
type StoreConfig struct {
	MaxNotifications int    `toml:"max_notifications"`
	Persist          bool   `toml:"persist"`
	Bucket           string `toml:"bucket"`
	Key              string `toml:"key"`
}

// NATSConfig holds shared NATS connection and subject settings.
type NATSConfig struct {
	URL          []string `toml:"url"`
	IssueSubject string   `toml:"issue_subject"`
}

// RuleConfig overrides one escalation rule keyed by priority.
type RuleConfig struct {
	DeadlineDays      int      `toml:"deadline_days"`
	EscalateAfterDays int      `toml:"escalate_after_days"`
	NotifyRoles       []string `toml:"notify_roles"`
}

// NotifyConfig defines outbound message delivery.
// Params: async worker sizing, queue settings, breaker, and per-channel senders.
// Returns: delivery controls.
type NotifyConfig struct {
	Workers  int              `toml:"workers"`
	Buffer   int              `toml:"buffer"`
	Queue    NotifyQueue      `toml:"queue"`
	Breaker  BreakerConfig    `toml:"breaker"`
	Email    EmailNotifier    `toml:"email"`
	Telegram TelegramNotifier `toml:"telegram"`
	HTTP     HTTPNotifier     `toml:"http"`
	Log      LogNotifier      `toml:"log"`
}

// NotifyQueue defines JetStream work-queue delivery settings.
type NotifyQueue struct {
	Enabled       bool     `toml:"enabled"`
	URL           []string `toml:"-"`
	Stream        string   `toml:"stream"`
	Subject       string   `toml:"subject"`
	ConsumerName  string   `toml:"consumer_name"`
	DeliverGroup  string   `toml:"deliver_group"`
	AckWaitSec    int      `toml:"ack_wait_sec"`
	NackDelayMS   int      `toml:"nack_delay_ms"`
	MaxDeliver    int      `toml:"max_deliver"`
	MaxAckPending int      `toml:"max_ack_pending"`
}

// NotifyRetry configures outbound delivery retries.
type NotifyRetry struct {
	Enabled        bool   `toml:"enabled"`
	Backoff        string `toml:"backoff"`
	InitialMS      int    `toml:"initial_ms"`
	MaxMS          int    `toml:"max_ms"`
	MaxAttempts    int    `toml:"max_attempts"`
	LogEachAttempt bool   `toml:"log_each_attempt"`
}

// BreakerConfig configures per-sender circuit breakers.
type BreakerConfig struct {
	Enabled      bool    `toml:"enabled"`
	MaxRequests  uint32  `toml:"max_requests"`
	IntervalSec  int     `toml:"interval_sec"`
	TimeoutSec   int     `toml:"timeout_sec"`
	MinRequests  uint32  `toml:"min_requests"`
	FailureRatio float64 `toml:"failure_ratio"`
}

// EmailNotifier defines SMTP delivery and role-to-address resolution.
type EmailNotifier struct {
	Enabled     bool              `toml:"enabled"`
	SMTPHost    string            `toml:"smtp_host"`
	SMTPPort    int               `toml:"smtp_port"`
	Username    string            `toml:"username"`
	Password    string            `toml:"password"`
	From        string            `toml:"from"`
	Domain      string            `toml:"domain"`
	RoleAddress map[string]string `toml:"role_address"`
	Retry       NotifyRetry       `toml:"retry"`
}

// TelegramNotifier defines Telegram bot delivery settings.
type TelegramNotifier struct {
	Enabled    bool        `toml:"enabled"`
	BotToken   string      `toml:"bot_token"`
	ChatID     string      `toml:"chat_id"`
	APIBase    string      `toml:"api_base"`
	Categories []string    `toml:"categories"`
	Retry      NotifyRetry `toml:"retry"`
}

// HTTPNotifier defines generic outbound webhook delivery.
type HTTPNotifier struct {
	Enabled    bool              `toml:"enabled"`
	URL        string            `toml:"url"`
	Method     string            `toml:"method"`
	TimeoutSec int               `toml:"timeout_sec"`
	Headers    map[string]string `toml:"headers"`
	Categories []string          `toml:"categories"`
	Retry      NotifyRetry       `toml:"retry"`
}

// LogNotifier writes outbound messages to the service log.
type LogNotifier struct {
	Enabled bool `toml:"enabled"`
}

// LogConfig contains console/file logging sinks.
type LogConfig struct {
	Console LogSinkConfig `toml:"console"`
	File    LogSinkConfig `toml:"file"`
}

// LogSinkConfig defines one logging sink.
type LogSinkConfig struct {
	Enabled bool   `toml:"enabled"`
	Level   string `toml:"level"`
	Format  string `toml:"format"`
	Path    string `toml:"path"`
}

// ConfigSource describes file or directory config source.
// Params: exactly one of file path or directory path.
// Returns: normalized source descriptor.
type ConfigSource struct {
	File string
	Dir  string
}

// FromCLI builds normalized source configuration from input paths.
// Params: optional file and directory arguments.
// Returns: source descriptor or validation error.
func FromCLI(filePath, dirPath string) (ConfigSource, error) {
	filePath = strings.TrimSpace(filePath)
	dirPath = strings.TrimSpace(dirPath)

	if filePath == "" && dirPath == "" {
		return ConfigSource{}, errors.New("either --config-file or --config-dir must be provided")
	}
	if filePath != "" && dirPath != "" {
		return ConfigSource{}, errors.New("config source must be either file or dir")
	}
	if filePath != "" {
		return ConfigSource{File: filePath}, nil
	}
	return ConfigSource{Dir: dirPath}, nil
}

// LoadSnapshot loads and validates configuration from one source.
// Params: source selects file or directory mode.
// Returns: validated config or load/validation error.
func LoadSnapshot(src ConfigSource) (Config, error) {
	var (
		cfg Config
		err error
	)
	if src.File != "" {
		cfg, err = loadFile(src.File)
	} else {
		cfg, err = loadDir(src.Dir)
	}
	if err != nil {
		return Config{}, err
	}
	ApplyDefaults(&cfg)
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes one TOML document, applies defaults, and validates it.
// Params: TOML body.
// Returns: validated config or decode/validation error.
func Parse(body []byte) (Config, error) {
	var cfg Config
	if err := toml.Unmarshal(body, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	ApplyDefaults(&cfg)
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// loadFile reads one TOML configuration file.
func loadFile(path string) (Config, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file %q: %w", path, err)
	}
	var cfg Config
	if err := toml.Unmarshal(body, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config file %q: %w", path, err)
	}
	return cfg, nil
}

// loadDir reads TOML fragments in name order and deep-merges them.
// Params: directory containing config fragments.
// Returns: merged config snapshot or load/decode error.
func loadDir(dir string) (Config, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Config{}, fmt.Errorf("read config dir %q: %w", dir, err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.ToLower(filepath.Ext(entry.Name())) != ".toml" {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	if len(files) == 0 {
		return Config{}, fmt.Errorf("no .toml files found in %q", dir)
	}
	sort.Strings(files)

	merged := make(map[string]any)
	for _, file := range files {
		body, err := os.ReadFile(file)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %q: %w", file, err)
		}
		var fragment map[string]any
		if err := toml.Unmarshal(body, &fragment); err != nil {
			return Config{}, fmt.Errorf("decode config file %q: %w", file, err)
		}
		mergeTables(merged, fragment)
	}

	body, err := toml.Marshal(merged)
	if err != nil {
		return Config{}, fmt.Errorf("encode merged config: %w", err)
	}
	var cfg Config
	if err := toml.Unmarshal(body, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode merged config: %w", err)
	}
	return cfg, nil
}

// mergeTables overlays src onto dst; nested tables merge, other values replace.
func mergeTables(dst, src map[string]any) {
	for key, value := range src {
		srcTable, srcIsTable := value.(map[string]any)
		dstTable, dstIsTable := dst[key].(map[string]any)
		if srcIsTable && dstIsTable {
			mergeTables(dstTable, srcTable)
			continue
		}
		dst[key] = value
	}
}

// ApplyDefaults fills omitted config fields with safe defaults.
// Params: cfg pointer to decoded snapshot.
// Returns: defaults applied in place.
func ApplyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Service.Name) == "" {
		cfg.Service.Name = defaultServiceName
	}
	cfg.Service.Mode = NormalizeServiceMode(cfg.Service.Mode)

	if cfg.Log.Console.Level == "" {
		cfg.Log.Console.Level = "info"
	}
	if cfg.Log.Console.Format == "" {
		cfg.Log.Console.Format = "line"
	}
	if cfg.Log.File.Level == "" {
		cfg.Log.File.Level = "info"
	}
	if cfg.Log.File.Format == "" {
		cfg.Log.File.Format = "json"
	}
	if !cfg.Log.Console.Enabled && !cfg.Log.File.Enabled {
		cfg.Log.Console.Enabled = true
	}

	if strings.TrimSpace(cfg.HTTP.Listen) == "" {
		cfg.HTTP.Listen = defaultHTTPListen
	}
	if strings.TrimSpace(cfg.HTTP.HealthPath) == "" {
		cfg.HTTP.HealthPath = defaultHealthPath
	}
	if strings.TrimSpace(cfg.HTTP.ReadyPath) == "" {
		cfg.HTTP.ReadyPath = defaultReadyPath
	}
	if strings.TrimSpace(cfg.HTTP.MetricsPath) == "" {
		cfg.HTTP.MetricsPath = defaultMetricsPath
	}
	if strings.TrimSpace(cfg.HTTP.APIPrefix) == "" {
		cfg.HTTP.APIPrefix = defaultAPIPrefix
	}
	cfg.HTTP.APIPrefix = "/" + strings.Trim(cfg.HTTP.APIPrefix, "/")
	if cfg.HTTP.MaxBodyBytes <= 0 {
		cfg.HTTP.MaxBodyBytes = defaultMaxBodyBytes
	}

	cfg.Source.Kind = strings.ToLower(strings.TrimSpace(cfg.Source.Kind))
	if cfg.Source.Kind == "" {
		if strings.TrimSpace(cfg.Source.URL) != "" {
			cfg.Source.Kind = SourceKindHTTP
		} else {
			cfg.Source.Kind = SourceKindDemo
		}
	}
	if cfg.Source.TimeoutSec <= 0 {
		cfg.Source.TimeoutSec = defaultSourceTimeoutSec
	}
	if cfg.Source.PollIntervalSec <= 0 {
		cfg.Source.PollIntervalSec = defaultSourcePollSec
	}

	if cfg.Monitor.IntervalSec <= 0 {
		cfg.Monitor.IntervalSec = defaultMonitorInterval
	}

	if strings.TrimSpace(cfg.Store.Bucket) == "" {
		cfg.Store.Bucket = defaultPersistBucket
	}
	if strings.TrimSpace(cfg.Store.Key) == "" {
		cfg.Store.Key = defaultPersistKey
	}

	cfg.NATS.URL = normalizeNATSURLs(cfg.NATS.URL)
	if len(cfg.NATS.URL) == 0 {
		cfg.NATS.URL = []string{defaultNATSURL}
	}
	if strings.TrimSpace(cfg.NATS.IssueSubject) == "" {
		cfg.NATS.IssueSubject = defaultIssueSubject
	}

	if cfg.Notify.Workers <= 0 {
		cfg.Notify.Workers = defaultDeliveryWorkers
	}
	if cfg.Notify.Buffer <= 0 {
		cfg.Notify.Buffer = defaultDeliveryBuffer
	}
	fillQueueDefaults(&cfg.Notify.Queue, cfg.NATS.URL)
	fillBreakerDefaults(&cfg.Notify.Breaker)
	if cfg.Notify.Email.SMTPPort == 0 {
		cfg.Notify.Email.SMTPPort = defaultSMTPPort
	}
	if strings.TrimSpace(cfg.Notify.Email.Domain) == "" {
		cfg.Notify.Email.Domain = defaultEmailDomain
	}
	if cfg.Notify.HTTP.TimeoutSec <= 0 {
		cfg.Notify.HTTP.TimeoutSec = defaultHTTPNotifyTimeout
	}
	if strings.TrimSpace(cfg.Notify.HTTP.Method) == "" {
		cfg.Notify.HTTP.Method = "POST"
	}
	if strings.TrimSpace(cfg.Notify.Telegram.APIBase) == "" {
		cfg.Notify.Telegram.APIBase = "https://api.telegram.org"
	}
	fillNotifyRetryDefaults(&cfg.Notify.Email.Retry)
	fillNotifyRetryDefaults(&cfg.Notify.Telegram.Retry)
	fillNotifyRetryDefaults(&cfg.Notify.HTTP.Retry)

	if cfg.Service.Mode == ServiceModeSingle {
		// Single mode never touches NATS regardless of user flags.
		cfg.Notify.Queue.Enabled = false
		cfg.Store.Persist = false
	}
}

func fillQueueDefaults(queue *NotifyQueue, urls []string) {
	queue.URL = append([]string(nil), urls...)
	if strings.TrimSpace(queue.Stream) == "" {
		queue.Stream = defaultQueueStream
	}
	if strings.TrimSpace(queue.Subject) == "" {
		queue.Subject = defaultQueueSubject
	}
	if strings.TrimSpace(queue.ConsumerName) == "" {
		queue.ConsumerName = defaultQueueConsumer
	}
	if strings.TrimSpace(queue.DeliverGroup) == "" {
		queue.DeliverGroup = defaultQueueGroup
	}
	if queue.AckWaitSec <= 0 {
		queue.AckWaitSec = defaultQueueAckWaitSec
	}
	if queue.NackDelayMS <= 0 {
		queue.NackDelayMS = defaultQueueNackDelayMS
	}
	if queue.MaxDeliver == 0 {
		queue.MaxDeliver = defaultQueueMaxDeliver
	}
	if queue.MaxAckPending <= 0 {
		queue.MaxAckPending = defaultQueueMaxAck
	}
}

func fillBreakerDefaults(breaker *BreakerConfig) {
	if breaker.MaxRequests == 0 {
		breaker.MaxRequests = 1
	}
	if breaker.IntervalSec <= 0 {
		breaker.IntervalSec = 60
	}
	if breaker.TimeoutSec <= 0 {
		breaker.TimeoutSec = defaultBreakerTimeoutSec
	}
	if breaker.MinRequests == 0 {
		breaker.MinRequests = 3
	}
	if breaker.FailureRatio <= 0 {
		breaker.FailureRatio = 0.6
	}
}

// fillNotifyRetryDefaults applies retry defaults only when retry is enabled.
func fillNotifyRetryDefaults(retry *NotifyRetry) {
	if !retry.Enabled {
		return
	}
	if strings.TrimSpace(retry.Backoff) == "" {
		retry.Backoff = "exponential"
	}
	if retry.InitialMS <= 0 {
		retry.InitialMS = 500
	}
	if retry.MaxMS <= 0 {
		retry.MaxMS = 10000
	}
	if retry.MaxAttempts <= 0 {
		retry.MaxAttempts = 5
	}
}

// Validate checks configuration invariants.
// Params: config snapshot with defaults applied.
// Returns: first validation error.
func Validate(cfg Config) error {
	if !IsSupportedServiceMode(cfg.Service.Mode) {
		return fmt.Errorf("service.mode has unsupported value %q", cfg.Service.Mode)
	}
	if err := validateLogSink("log.console", cfg.Log.Console, false); err != nil {
		return err
	}
	if err := validateLogSink("log.file", cfg.Log.File, true); err != nil {
		return err
	}

	switch cfg.Source.Kind {
	case SourceKindDemo, SourceKindPush:
	case SourceKindHTTP:
		if strings.TrimSpace(cfg.Source.URL) == "" {
			return errors.New("source.url is required when source.kind=http")
		}
	default:
		return fmt.Errorf("source.kind has unsupported value %q", cfg.Source.Kind)
	}

	if cfg.Store.MaxNotifications < 0 {
		return errors.New("store.max_notifications must be >=0")
	}

	for name, rule := range cfg.Rule {
		if !isKnownPriority(name) {
			return fmt.Errorf("rule.%s: unknown priority; expected one of low, medium, high, critical", name)
		}
		if rule.DeadlineDays <= 0 {
			return fmt.Errorf("rule.%s.deadline_days must be >0", name)
		}
		if rule.EscalateAfterDays <= 0 {
			return fmt.Errorf("rule.%s.escalate_after_days must be >0", name)
		}
		if len(rule.NotifyRoles) == 0 {
			return fmt.Errorf("rule.%s.notify_roles must not be empty", name)
		}
		for i, role := range rule.NotifyRoles {
			if strings.TrimSpace(role) == "" {
				return fmt.Errorf("rule.%s.notify_roles[%d] is empty", name, i)
			}
		}
	}

	if cfg.Notify.Email.Enabled {
		if strings.TrimSpace(cfg.Notify.Email.SMTPHost) == "" {
			return errors.New("notify.email.smtp_host is required when notify.email.enabled=true")
		}
		if strings.TrimSpace(cfg.Notify.Email.From) == "" {
			return errors.New("notify.email.from is required when notify.email.enabled=true")
		}
	}
	if cfg.Notify.Telegram.Enabled {
		if strings.TrimSpace(cfg.Notify.Telegram.BotToken) == "" {
			return errors.New("notify.telegram.bot_token is required when notify.telegram.enabled=true")
		}
		if strings.TrimSpace(cfg.Notify.Telegram.ChatID) == "" {
			return errors.New("notify.telegram.chat_id is required when notify.telegram.enabled=true")
		}
	}
	if cfg.Notify.HTTP.Enabled && strings.TrimSpace(cfg.Notify.HTTP.URL) == "" {
		return errors.New("notify.http.url is required when notify.http.enabled=true")
	}
	if err := validateCategories("notify.telegram.categories", cfg.Notify.Telegram.Categories); err != nil {
		return err
	}
	if err := validateCategories("notify.http.categories", cfg.Notify.HTTP.Categories); err != nil {
		return err
	}
	if cfg.Notify.Queue.Enabled {
		if cfg.Notify.Queue.MaxDeliver < -1 || cfg.Notify.Queue.MaxDeliver == 0 {
			return errors.New("notify.queue.max_deliver must be -1 or >0")
		}
	}
	if cfg.Notify.Breaker.FailureRatio > 1 {
		return errors.New("notify.breaker.failure_ratio must be <=1")
	}
	return nil
}

// NormalizeServiceMode lower-cases mode and defaults to single.
func NormalizeServiceMode(value string) string {
	mode := strings.ToLower(strings.TrimSpace(value))
	if mode == "" {
		return ServiceModeSingle
	}
	return mode
}

// IsSupportedServiceMode reports whether mode is recognized.
func IsSupportedServiceMode(mode string) bool {
	switch mode {
	case ServiceModeSingle, ServiceModeNATS:
		return true
	default:
		return false
	}
}

func isKnownPriority(name string) bool {
	switch name {
	case "low", "medium", "high", "critical":
		return true
	default:
		return false
	}
}

func validateCategories(name string, categories []string) error {
	for i, category := range categories {
		switch strings.TrimSpace(category) {
		case "submission_confirmation", "status_update", "escalation":
		default:
			return fmt.Errorf("%s[%d] has unsupported value %q", name, i, category)
		}
	}
	return nil
}

func normalizeNATSURLs(urls []string) []string {
	out := make([]string, 0, len(urls))
	for _, url := range urls {
		if trimmed := strings.TrimSpace(url); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func validateLogSink(name string, sink LogSinkConfig, requirePath bool) error {
	if !sink.Enabled {
		return nil
	}
	switch strings.ToLower(strings.TrimSpace(sink.Level)) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%s.level has unsupported value %q", name, sink.Level)
	}
	switch sink.Format {
	case "line", "json":
	default:
		return fmt.Errorf("%s.format has unsupported value %q", name, sink.Format)
	}
	if requirePath && strings.TrimSpace(sink.Path) == "" {
		return fmt.Errorf("%s.path is required when %s.enabled=true", name, name)
	}
	return nil
}
