package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// LoaderOptions describes how configuration should be discovered.
type LoaderOptions struct {
	ConfigPaths []string
	FileName    string
	EnvPrefix   string
}

// Load returns the merged configuration from files and environment
// variables. File values are the base layer; environment variables
// (PRREVIEW_SECTION_FIELD, e.g. PRREVIEW_REDIS_ADDR) override them.
// Per-repository overlays are applied separately, after Load, via
// Merge with a RepoConfig converted to Config.
func Load(opts LoaderOptions) (Config, error) {
	v := viper.New()

	name := opts.FileName
	if name == "" {
		name = "prreview"
	}

	configFile := locateConfigFile(name, opts.ConfigPaths)
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(name)
	}

	prefix := opts.EnvPrefix
	if prefix == "" {
		prefix = "PRREVIEW"
	}
	v.SetEnvPrefix(prefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AllowEmptyEnv(true)

	setDefaults(v)

	if configFile != "" {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg = expandEnvVars(cfg)

	return cfg, nil
}

// expandEnvVars expands ${VAR} and $VAR syntax in configuration fields
// that commonly hold secrets, so a config file can reference an
// environment-provided value (e.g. in a container) instead of carrying
// the secret in plaintext on disk.
func expandEnvVars(cfg Config) Config {
	cfg.GitHubApp.PrivateKeyPEM = expandEnvString(cfg.GitHubApp.PrivateKeyPEM)
	cfg.GitHubApp.WebhookSecret = expandEnvString(cfg.GitHubApp.WebhookSecret)
	cfg.Redis.Password = expandEnvString(cfg.Redis.Password)
	cfg.Store.DSN = expandEnvString(cfg.Store.DSN)
	cfg.Admin.Token = expandEnvString(cfg.Admin.Token)
	return cfg
}

var (
	envBraced   = regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*)\}`)
	envUnbraced = regexp.MustCompile(`\$([A-Z_][A-Z0-9_]*)`)
)

// expandEnvString replaces ${VAR} or $VAR with environment variable
// values, leaving the reference untouched if the variable isn't set.
func expandEnvString(s string) string {
	if s == "" {
		return s
	}
	s = envBraced.ReplaceAllStringFunc(s, func(match string) string {
		name := match[2 : len(match)-1]
		if val := os.Getenv(name); val != "" {
			return val
		}
		return match
	})
	s = envUnbraced.ReplaceAllStringFunc(s, func(match string) string {
		name := match[1:]
		if val := os.Getenv(name); val != "" {
			return val
		}
		return match
	})
	return s
}

func locateConfigFile(name string, paths []string) string {
	searchPaths := append([]string{}, paths...)
	searchPaths = append(searchPaths, ".")
	for _, dir := range searchPaths {
		if dir == "" {
			continue
		}
		for _, ext := range []string{".yaml", ".yml"} {
			candidate := filepath.Join(dir, name+ext)
			info, err := os.Stat(candidate)
			if err == nil && !info.IsDir() {
				return candidate
			}
		}
	}
	return ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.timeout", "30s")
	v.SetDefault("http.maxRetries", 4)
	v.SetDefault("http.initialBackoff", "250ms")
	v.SetDefault("http.maxBackoff", "10s")
	v.SetDefault("http.backoffMultiplier", 2.0)

	v.SetDefault("gateway.listenAddr", ":8080")
	v.SetDefault("gateway.maxBodyBytes", 5<<20)
	v.SetDefault("gateway.responseDeadline", "100ms")

	v.SetDefault("admin.enabled", true)
	v.SetDefault("admin.listenAddr", ":9090")

	v.SetDefault("redis.addr", "127.0.0.1:6379")

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", defaultSQLitePath())

	v.SetDefault("queue.fastLaneConcurrency", 4)
	v.SetDefault("queue.slowLaneConcurrency", 2)
	v.SetDefault("queue.indexLaneConcurrency", 1)
	v.SetDefault("queue.maxAttempts", 5)
	v.SetDefault("queue.baseBackoff", "1s")
	v.SetDefault("queue.maxBackoff", "5m")
	v.SetDefault("queue.visibilityTimeout", "10m")

	v.SetDefault("gatekeeper.botLoginSuffixes", []string{"[bot]"})
	v.SetDefault("gatekeeper.skipDraftPRs", true)
	v.SetDefault("gatekeeper.largePRFileLimit", 200)
	v.SetDefault("gatekeeper.largePRLineLimit", 5000)

	v.SetDefault("budget.hardCapUSD", 2.0)

	v.SetDefault("redaction.enabled", true)
	v.SetDefault("redaction.denyGlobs", []string{
		"**/*.pem", "**/*.key", "**/.env", "**/.env.*", "**/secrets/**",
	})

	v.SetDefault("review.botUsername", "prreview[bot]")
	v.SetDefault("review.actions.onCritical", "request_changes")
	v.SetDefault("review.actions.onHigh", "request_changes")
	v.SetDefault("review.actions.onMedium", "comment")
	v.SetDefault("review.actions.onLow", "comment")
	v.SetDefault("review.actions.onClean", "approve")
	v.SetDefault("review.actions.onNonBlocking", "comment")

	v.SetDefault("observability.logging.level", "info")
	v.SetDefault("observability.logging.format", "json")
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.listenAddr", ":9091")
}

func defaultSQLitePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./prreview.db"
	}
	return filepath.Join(home, ".config", "prreview", "prreview.db")
}
