// Package config loads xsssanitize settings from a YAML file, the
// environment (XSSSANITIZE_*) and command line flags, in increasing order
// of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/njchilds90/xsssanitizer"
	"github.com/njchilds90/xsssanitizer/internal/allowlist"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable, e.g.
// XSSSANITIZE_POLICY_KEEP_INNER_HTML.
const EnvPrefix = "XSSSANITIZE"

const (
	keyElements   = "policy.elements_to_remove"
	keyAttributes = "policy.attributes_to_remove"
	keyKeepInner  = "policy.keep_inner_html"
)

// ErrInvalidJobs is returned when jobs is below one.
var ErrInvalidJobs = errors.New("jobs must be at least 1")

// Config holds all xsssanitize settings.
type Config struct {
	Policy    PolicyConfig `mapstructure:"policy"`
	Allowlist string       `mapstructure:"allowlist"`
	Jobs      int          `mapstructure:"jobs"`
	Write     bool         `mapstructure:"write"`
	Page      bool         `mapstructure:"page"`
	Log       LogConfig    `mapstructure:"log"`
}

// PolicyConfig overrides parts of the default policy. The *Set fields
// record whether a key was given at all, so that an explicit empty list
// ("remove nothing") can be told apart from an absent one.
type PolicyConfig struct {
	ElementsToRemove   []string `mapstructure:"elements_to_remove"`
	AttributesToRemove []string `mapstructure:"attributes_to_remove"`
	KeepInnerHTML      bool     `mapstructure:"keep_inner_html"`

	ElementsSet   bool `mapstructure:"-"`
	AttributesSet bool `mapstructure:"-"`
	KeepInnerSet  bool `mapstructure:"-"`
}

// LogConfig configures the CLI logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// flagKeys maps CLI flag names to config keys.
var flagKeys = map[string]string{
	"remove-elements":   keyElements,
	"remove-attributes": keyAttributes,
	"keep-inner-html":   keyKeepInner,
	"allowlist":         "allowlist",
	"jobs":              "jobs",
	"write":             "write",
	"page":              "page",
	"log-level":         "log.level",
	"log-format":        "log.format",
}

// Load reads the config file at path (skipped when empty), then applies
// environment variables and any changed flags in flags (may be nil).
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetDefault("allowlist", allowlist.None)
	v.SetDefault("jobs", 4)
	v.SetDefault("write", false)
	v.SetDefault("page", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range []string{keyElements, keyAttributes, keyKeepInner} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.Policy.ElementsSet = v.IsSet(keyElements)
	cfg.Policy.AttributesSet = v.IsSet(keyAttributes)
	cfg.Policy.KeepInnerSet = v.IsSet(keyKeepInner)
	cfg.Policy.ElementsToRemove = splitList(cfg.Policy.ElementsToRemove)
	cfg.Policy.AttributesToRemove = splitList(cfg.Policy.AttributesToRemove)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that viper cannot type-check.
func (c *Config) Validate() error {
	if c.Jobs < 1 {
		return fmt.Errorf("%w, got %d", ErrInvalidJobs, c.Jobs)
	}
	if _, err := allowlist.Lookup(c.Allowlist); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Sanitizer builds a sanitizer with the configured policy overrides.
func (c *Config) Sanitizer(logger *zap.Logger) *xsssanitizer.Sanitizer {
	return xsssanitizer.New(
		xsssanitizer.WithLogger(logger),
		xsssanitizer.WithPolicy(c.Policy.Apply(xsssanitizer.DefaultPolicy())),
	)
}

// Apply returns base with every configured override applied.
func (pc PolicyConfig) Apply(base *xsssanitizer.Policy) *xsssanitizer.Policy {
	p := base
	if pc.ElementsSet {
		p = p.WithElementsToRemove(pc.ElementsToRemove)
	}
	if pc.AttributesSet {
		p = p.WithAttributesToRemove(pc.AttributesToRemove)
	}
	if pc.KeepInnerSet {
		p = p.WithKeepInnerHTML(pc.KeepInnerHTML)
	}
	return p
}

// PolicyView is the YAML form of an effective policy.
type PolicyView struct {
	ElementsToRemove   []string `yaml:"elements_to_remove"`
	AttributesToRemove []string `yaml:"attributes_to_remove"`
	KeepInnerHTML      bool     `yaml:"keep_inner_html"`
}

// DumpPolicy writes p as YAML under a top-level "policy" key, in the same
// shape Load accepts.
func DumpPolicy(w io.Writer, p *xsssanitizer.Policy) error {
	doc := struct {
		Policy PolicyView `yaml:"policy"`
	}{
		Policy: PolicyView{
			ElementsToRemove:   p.ElementsToRemove(),
			AttributesToRemove: p.AttributesToRemove(),
			KeepInnerHTML:      p.KeepInnerHTML(),
		},
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode policy: %w", err)
	}
	return enc.Close()
}

// splitList flattens comma separated entries, which is how list values
// arrive from environment variables.
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
