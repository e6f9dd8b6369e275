package config

// Config represents the full application configuration for the
// prreview service: the gateway, the worker, and the admin surface all
// load the same Config and select the fields relevant to them.
type Config struct {
	GitHubApp     GitHubAppConfig     `yaml:"githubApp"`
	HTTP          HTTPConfig          `yaml:"http"`
	Gateway       GatewayConfig       `yaml:"gateway"`
	Admin         AdminConfig         `yaml:"admin"`
	Redis         RedisConfig         `yaml:"redis"`
	Store         StoreConfig         `yaml:"store"`
	Queue         QueueConfig         `yaml:"queue"`
	Gatekeeper    GatekeeperConfig    `yaml:"gatekeeper"`
	Budget        BudgetConfig        `yaml:"budget"`
	Redaction     RedactionConfig     `yaml:"redaction"`
	Review        ReviewConfig        `yaml:"review"`
	Observability ObservabilityConfig `yaml:"observability"`
	Models        map[string]ModelConfig `yaml:"models"`
}

// ModelConfig configures one named model collaborator slot (e.g. "cheap"
// or "capable" per spec's two-tier model usage). The orchestrator and
// conversation tracker each resolve their ModelClient from this map at
// startup; which provider backs a given entry is an operational choice,
// not something the review pipeline branches on.
type ModelConfig struct {
	Provider       string `yaml:"provider"` // "openai" or "static" (offline/dev)
	APIKey         string `yaml:"apiKey"`
	Model          string `yaml:"model"`
	BaseURL        string `yaml:"baseURL"`
	Timeout        string `yaml:"timeout"`
	MaxRetries     int    `yaml:"maxRetries"`
	InitialBackoff string `yaml:"initialBackoff"`
	MaxBackoff     string `yaml:"maxBackoff"`
}

// GitHubAppConfig holds the credentials identifying this service to
// GitHub as an installed App.
type GitHubAppConfig struct {
	AppID         int64  `yaml:"appID"`
	PrivateKeyPEM string `yaml:"privateKeyPEM"`
	WebhookSecret string `yaml:"webhookSecret"`
	APIBaseURL    string `yaml:"apiBaseURL"` // override for GitHub Enterprise
}

// HTTPConfig holds global HTTP client settings for the forge client.
type HTTPConfig struct {
	Timeout           string  `yaml:"timeout"`
	MaxRetries        int     `yaml:"maxRetries"`
	InitialBackoff    string  `yaml:"initialBackoff"`
	MaxBackoff        string  `yaml:"maxBackoff"`
	BackoffMultiplier float64 `yaml:"backoffMultiplier"`
}

// GatewayConfig configures the public webhook-receiving HTTP surface (C6).
type GatewayConfig struct {
	ListenAddr        string `yaml:"listenAddr"`
	MaxBodyBytes      int64  `yaml:"maxBodyBytes"`
	ResponseDeadline  string `yaml:"responseDeadline"`
}

// AdminConfig configures the operator-facing HTTP surface (separate
// router/port from the public webhook gateway).
type AdminConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listenAddr"`
	Token      string `yaml:"token"`
}

// RedisConfig configures the queue and credential-cache backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// StoreConfig configures the persistence layer. Driver is "sqlite" or
// "postgres"; DSN is interpreted accordingly.
type StoreConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// QueueConfig configures the multi-lane scheduler.
type QueueConfig struct {
	FastLaneConcurrency  int    `yaml:"fastLaneConcurrency"`
	SlowLaneConcurrency  int    `yaml:"slowLaneConcurrency"`
	IndexLaneConcurrency int    `yaml:"indexLaneConcurrency"`
	MaxAttempts          int    `yaml:"maxAttempts"`
	BaseBackoff          string `yaml:"baseBackoff"`
	MaxBackoff           string `yaml:"maxBackoff"`
	VisibilityTimeout    string `yaml:"visibilityTimeout"`
}

// GatekeeperConfig configures the admission rule chain (C5).
type GatekeeperConfig struct {
	BotLoginSuffixes  []string `yaml:"botLoginSuffixes"`
	SkipLabels        []string `yaml:"skipLabels"`
	SkipDraftPRs      bool     `yaml:"skipDraftPRs"`
	LargePRFileLimit  int      `yaml:"largePRFileLimit"`
	LargePRLineLimit  int      `yaml:"largePRLineLimit"`
	IgnoredPathGlobs  []string `yaml:"ignoredPathGlobs"`
}

// BudgetConfig configures the per-review cost ceiling (§4.9).
type BudgetConfig struct {
	HardCapUSD        float64  `yaml:"hardCapUSD"`
	DegradationPolicy []string `yaml:"degradationPolicy"`
}

// RedactionConfig configures secret-scrubbing before any diff content
// is sent to a model collaborator.
type RedactionConfig struct {
	Enabled    bool     `yaml:"enabled"`
	DenyGlobs  []string `yaml:"denyGlobs"`
	AllowGlobs []string `yaml:"allowGlobs"`
}

// ObservabilityConfig configures logging and metrics.
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// MetricsConfig configures the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listenAddr"`
}

// ReviewConfig configures the orchestrator's default review behavior,
// overridable per-repository by RepoConfig (see repoconfig.go).
type ReviewConfig struct {
	Instructions string        `yaml:"instructions"`
	Actions      ReviewActions `yaml:"actions"`
	BotUsername  string        `yaml:"botUsername"`
}

// ReviewActions maps finding severities to a GitHub review event.
// Valid action values (case-insensitive): approve, comment, request_changes.
type ReviewActions struct {
	OnCritical    string `yaml:"onCritical"`
	OnHigh        string `yaml:"onHigh"`
	OnMedium      string `yaml:"onMedium"`
	OnLow         string `yaml:"onLow"`
	OnClean       string `yaml:"onClean"`
	OnNonBlocking string `yaml:"onNonBlocking"`
}

func (a ReviewActions) hasAny() bool {
	return a.OnCritical != "" || a.OnHigh != "" || a.OnMedium != "" || a.OnLow != "" || a.OnClean != "" || a.OnNonBlocking != ""
}

// Merge combines multiple configuration instances, prioritising the
// latter ones. Each field-level chooseX helper treats "overlay has any
// non-zero field" as "overlay wins entirely for that section", which
// matches the layering model in spec.md (file defaults < env overrides
// < per-repo config doc).
func Merge(configs ...Config) Config {
	result := Config{}
	for _, cfg := range configs {
		result = merge(result, cfg)
	}
	return result
}

func merge(base, overlay Config) Config {
	result := base

	result.GitHubApp = chooseGitHubApp(base.GitHubApp, overlay.GitHubApp)
	result.HTTP = chooseHTTP(base.HTTP, overlay.HTTP)
	result.Gateway = chooseGateway(base.Gateway, overlay.Gateway)
	result.Admin = chooseAdmin(base.Admin, overlay.Admin)
	result.Redis = chooseRedis(base.Redis, overlay.Redis)
	result.Store = chooseStore(base.Store, overlay.Store)
	result.Queue = chooseQueue(base.Queue, overlay.Queue)
	result.Gatekeeper = chooseGatekeeper(base.Gatekeeper, overlay.Gatekeeper)
	result.Budget = chooseBudget(base.Budget, overlay.Budget)
	result.Redaction = chooseRedaction(base.Redaction, overlay.Redaction)
	result.Review = chooseReview(base.Review, overlay.Review)
	result.Observability = chooseObservability(base.Observability, overlay.Observability)
	result.Models = chooseModels(base.Models, overlay.Models)

	return result
}

// chooseModels merges by key: an overlay entry replaces the base entry
// for that name entirely, but names absent from the overlay are kept
// from base — a per-repo overlay commonly only wants to swap "capable".
func chooseModels(base, overlay map[string]ModelConfig) map[string]ModelConfig {
	if len(overlay) == 0 {
		return base
	}
	result := make(map[string]ModelConfig, len(base)+len(overlay))
	for k, v := range base {
		result[k] = v
	}
	for k, v := range overlay {
		result[k] = v
	}
	return result
}

func chooseGitHubApp(base, overlay GitHubAppConfig) GitHubAppConfig {
	if overlay.AppID != 0 || overlay.PrivateKeyPEM != "" || overlay.WebhookSecret != "" || overlay.APIBaseURL != "" {
		return overlay
	}
	return base
}

func chooseHTTP(base, overlay HTTPConfig) HTTPConfig {
	if overlay.Timeout != "" || overlay.MaxRetries != 0 || overlay.InitialBackoff != "" || overlay.MaxBackoff != "" || overlay.BackoffMultiplier != 0 {
		return overlay
	}
	return base
}

func chooseGateway(base, overlay GatewayConfig) GatewayConfig {
	if overlay.ListenAddr != "" || overlay.MaxBodyBytes != 0 || overlay.ResponseDeadline != "" {
		return overlay
	}
	return base
}

func chooseAdmin(base, overlay AdminConfig) AdminConfig {
	if overlay.Enabled || overlay.ListenAddr != "" || overlay.Token != "" {
		return overlay
	}
	return base
}

func chooseRedis(base, overlay RedisConfig) RedisConfig {
	if overlay.Addr != "" || overlay.Password != "" || overlay.DB != 0 {
		return overlay
	}
	return base
}

func chooseStore(base, overlay StoreConfig) StoreConfig {
	if overlay.Driver != "" || overlay.DSN != "" {
		return overlay
	}
	return base
}

// chooseQueue merges field-by-field: lane tuning knobs are independent
// settings a layer may adjust one at a time, unlike HTTPConfig's fields
// which are only ever set together.
func chooseQueue(base, overlay QueueConfig) QueueConfig {
	result := base
	if overlay.FastLaneConcurrency != 0 {
		result.FastLaneConcurrency = overlay.FastLaneConcurrency
	}
	if overlay.SlowLaneConcurrency != 0 {
		result.SlowLaneConcurrency = overlay.SlowLaneConcurrency
	}
	if overlay.IndexLaneConcurrency != 0 {
		result.IndexLaneConcurrency = overlay.IndexLaneConcurrency
	}
	if overlay.MaxAttempts != 0 {
		result.MaxAttempts = overlay.MaxAttempts
	}
	if overlay.BaseBackoff != "" {
		result.BaseBackoff = overlay.BaseBackoff
	}
	if overlay.MaxBackoff != "" {
		result.MaxBackoff = overlay.MaxBackoff
	}
	if overlay.VisibilityTimeout != "" {
		result.VisibilityTimeout = overlay.VisibilityTimeout
	}
	return result
}

// chooseGatekeeper merges field-by-field for the same reason as
// chooseQueue: a per-repo overlay commonly sets IgnoredPathGlobs
// without meaning to reset LargePRFileLimit back to zero.
func chooseGatekeeper(base, overlay GatekeeperConfig) GatekeeperConfig {
	result := base
	if len(overlay.BotLoginSuffixes) > 0 {
		result.BotLoginSuffixes = overlay.BotLoginSuffixes
	}
	if len(overlay.SkipLabels) > 0 {
		result.SkipLabels = overlay.SkipLabels
	}
	if overlay.SkipDraftPRs {
		result.SkipDraftPRs = overlay.SkipDraftPRs
	}
	if overlay.LargePRFileLimit != 0 {
		result.LargePRFileLimit = overlay.LargePRFileLimit
	}
	if overlay.LargePRLineLimit != 0 {
		result.LargePRLineLimit = overlay.LargePRLineLimit
	}
	if len(overlay.IgnoredPathGlobs) > 0 {
		result.IgnoredPathGlobs = overlay.IgnoredPathGlobs
	}
	return result
}

func chooseBudget(base, overlay BudgetConfig) BudgetConfig {
	if overlay.HardCapUSD != 0 || len(overlay.DegradationPolicy) > 0 {
		return overlay
	}
	return base
}

func chooseRedaction(base, overlay RedactionConfig) RedactionConfig {
	if overlay.Enabled || len(overlay.DenyGlobs) > 0 || len(overlay.AllowGlobs) > 0 {
		return overlay
	}
	return base
}

func chooseObservability(base, overlay ObservabilityConfig) ObservabilityConfig {
	result := base
	if overlay.Logging.Level != "" || overlay.Logging.Format != "" {
		result.Logging = overlay.Logging
	}
	if overlay.Metrics.Enabled || overlay.Metrics.ListenAddr != "" {
		result.Metrics = overlay.Metrics
	}
	return result
}

func chooseReview(base, overlay ReviewConfig) ReviewConfig {
	result := base

	if overlay.Instructions != "" {
		result.Instructions = overlay.Instructions
	}
	if overlay.Actions.hasAny() {
		result.Actions = mergeReviewActions(base.Actions, overlay.Actions)
	}
	if overlay.BotUsername != "" {
		result.BotUsername = overlay.BotUsername
	}

	return result
}

func mergeReviewActions(base, overlay ReviewActions) ReviewActions {
	result := base
	if overlay.OnCritical != "" {
		result.OnCritical = overlay.OnCritical
	}
	if overlay.OnHigh != "" {
		result.OnHigh = overlay.OnHigh
	}
	if overlay.OnMedium != "" {
		result.OnMedium = overlay.OnMedium
	}
	if overlay.OnLow != "" {
		result.OnLow = overlay.OnLow
	}
	if overlay.OnClean != "" {
		result.OnClean = overlay.OnClean
	}
	if overlay.OnNonBlocking != "" {
		result.OnNonBlocking = overlay.OnNonBlocking
	}
	return result
}
