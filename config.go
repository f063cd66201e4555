package repl

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nao1215/repl/observability"
)

// Default prompt strings. Existing terminal sessions depend on these exact
// values.
const (
	DefaultPrompt             = "> "
	DefaultContinuationPrompt = ": "
	DefaultErrorPrefix        = "error: "
)

// PendingPolicy decides what happens to keys that arrive while a submission
// is still waiting for its evaluator.
type PendingPolicy string

const (
	// PendingQueue holds keys and replays them once the submission resolves.
	PendingQueue PendingPolicy = "queue"
	// PendingReject drops keys and reports ErrSubmissionPending.
	PendingReject PendingPolicy = "reject"
)

// Config holds the configuration for a session. Fields tagged "-" can only be
// set through options.
type Config struct {
	Prompt             string         `yaml:"prompt"`              // Primary prompt (default "> ")
	ContinuationPrompt string         `yaml:"continuation_prompt"` // Continuation prompt (default ": ")
	ErrorPrefix        string         `yaml:"error_prefix"`        // Prefix of error lines (default "error: ")
	LineEnding         string         `yaml:"line_ending"`         // "lf", "crlf" or a literal ending; empty picks by terminal
	Theme              string         `yaml:"theme"`               // Built-in theme name; empty disables colors
	PendingPolicy      PendingPolicy  `yaml:"pending_policy"`      // "queue" (default) or "reject"
	HistoryConfig      *HistoryConfig `yaml:"history"`             // History configuration (nil for default)

	ColorScheme *ColorScheme           `yaml:"-"` // Overrides Theme
	KeyMap      *KeyMap                `yaml:"-"` // Key bindings (nil for default)
	Observer    observability.Observer `yaml:"-"` // Event sink (nil discards)
	Context     context.Context        `yaml:"-"` // Context passed to Evaluator.Submit
	Input       io.Reader              `yaml:"-"` // Key source for NewSession; nil means keys come only from HandleKey

	fromFile *Config // values set by the file LoadConfig read
}

// DefaultConfig returns a Config with the default prompts and a memory-only
// history.
func DefaultConfig() Config {
	return Config{
		Prompt:             DefaultPrompt,
		ContinuationPrompt: DefaultContinuationPrompt,
		ErrorPrefix:        DefaultErrorPrefix,
		PendingPolicy:      PendingQueue,
		HistoryConfig:      DefaultHistoryConfig(),
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Prompt != "" {
		c.Prompt = source.Prompt
	}
	if source.ContinuationPrompt != "" {
		c.ContinuationPrompt = source.ContinuationPrompt
	}
	if source.ErrorPrefix != "" {
		c.ErrorPrefix = source.ErrorPrefix
	}
	if source.LineEnding != "" {
		c.LineEnding = source.LineEnding
	}
	if source.Theme != "" {
		c.Theme = source.Theme
	}
	if source.PendingPolicy != "" {
		c.PendingPolicy = source.PendingPolicy
	}
	if source.HistoryConfig != nil {
		h := *source.HistoryConfig
		c.HistoryConfig = &h
	}
	if source.ColorScheme != nil {
		c.ColorScheme = source.ColorScheme
	}
	if source.KeyMap != nil {
		c.KeyMap = source.KeyMap
	}
	if source.Observer != nil {
		c.Observer = source.Observer
	}
	if source.Context != nil {
		c.Context = source.Context
	}
	if source.Input != nil {
		c.Input = source.Input
	}
}

// LoadConfig reads a YAML config file, merges it with defaults, and returns
// the resulting Config.
//
// Example file:
//
//	prompt: "> "
//	theme: dracula
//	pending_policy: queue
//	history:
//	  enabled: true
//	  file: ~/.config/repl/history.db
//	  backend: bolt
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded Config
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Merge(&loaded)
	cfg.fromFile = &loaded
	return &cfg, nil
}

// Options returns c as a single Option, so a loaded file can be combined
// with further options. Fields still holding their default value are left
// out unless the file set them, so options given before Options keep their
// effect.
func (c *Config) Options() Option {
	src := *c
	src.fromFile = nil

	set := Config{}
	if c.fromFile != nil {
		set = *c.fromFile
	}
	defaults := DefaultConfig()
	if set.Prompt == "" && src.Prompt == defaults.Prompt {
		src.Prompt = ""
	}
	if set.ContinuationPrompt == "" && src.ContinuationPrompt == defaults.ContinuationPrompt {
		src.ContinuationPrompt = ""
	}
	if set.ErrorPrefix == "" && src.ErrorPrefix == defaults.ErrorPrefix {
		src.ErrorPrefix = ""
	}
	if set.PendingPolicy == "" && src.PendingPolicy == defaults.PendingPolicy {
		src.PendingPolicy = ""
	}
	if set.HistoryConfig == nil && src.HistoryConfig != nil && *src.HistoryConfig == *defaults.HistoryConfig {
		src.HistoryConfig = nil
	}

	return func(dst *Config) {
		dst.Merge(&src)
	}
}

// validate fills in derived defaults and rejects unknown values.
func (c *Config) validate() error {
	switch c.PendingPolicy {
	case "":
		c.PendingPolicy = PendingQueue
	case PendingQueue, PendingReject:
	default:
		return fmt.Errorf("unknown pending policy: %s", c.PendingPolicy)
	}

	c.LineEnding = normalizeLineEnding(c.LineEnding)

	if c.ColorScheme == nil {
		theme, err := ThemeByName(c.Theme)
		if err != nil {
			return err
		}
		c.ColorScheme = theme
	}
	if c.HistoryConfig == nil {
		c.HistoryConfig = DefaultHistoryConfig()
	}
	if c.KeyMap == nil {
		c.KeyMap = NewDefaultKeyMap()
	}
	if c.Observer == nil {
		c.Observer = observability.Discard
	}
	if c.Context == nil {
		c.Context = context.Background()
	}
	return nil
}

func normalizeLineEnding(s string) string {
	switch strings.ToLower(s) {
	case "", "lf":
		return "\n"
	case "crlf":
		return "\r\n"
	default:
		return s
	}
}

// Option represents a configuration option for a session
type Option func(*Config)

// WithPrompt sets the primary prompt
func WithPrompt(prompt string) Option {
	return func(c *Config) {
		c.Prompt = prompt
	}
}

// WithContinuationPrompt sets the prompt written when the evaluator asks for
// more input
func WithContinuationPrompt(prompt string) Option {
	return func(c *Config) {
		c.ContinuationPrompt = prompt
	}
}

// WithErrorPrefix sets the prefix of evaluation error lines
func WithErrorPrefix(prefix string) Option {
	return func(c *Config) {
		c.ErrorPrefix = prefix
	}
}

// WithLineEnding sets the line ending written after each line ("lf", "crlf"
// or a literal string)
func WithLineEnding(ending string) Option {
	return func(c *Config) {
		c.LineEnding = ending
	}
}

// WithColorScheme sets the color scheme
func WithColorScheme(colorScheme *ColorScheme) Option {
	return func(c *Config) {
		c.ColorScheme = colorScheme
	}
}

// WithTheme selects a built-in color scheme by name
func WithTheme(name string) Option {
	return func(c *Config) {
		c.Theme = name
	}
}

// WithHistory configures history settings with the provided configuration.
//
// Example:
//
//	repl.New(ev, repl.WithHistory(&repl.HistoryConfig{
//		Enabled:    true,
//		MaxEntries: 100,
//		File:       "~/.myapp_history",
//	}))
func WithHistory(historyConfig *HistoryConfig) Option {
	return func(c *Config) {
		c.HistoryConfig = historyConfig
	}
}

// WithMemoryHistory is a convenience function for memory-only history setup.
func WithMemoryHistory(maxEntries int) Option {
	return func(c *Config) {
		if maxEntries <= 0 {
			maxEntries = 1000
		}
		c.HistoryConfig = &HistoryConfig{
			Enabled:    true,
			MaxEntries: maxEntries,
		}
	}
}

// WithFileHistory is a convenience function for history persisted to a plain
// text file.
func WithFileHistory(file string, maxEntries int) Option {
	return func(c *Config) {
		if maxEntries <= 0 {
			maxEntries = 1000
		}
		c.HistoryConfig = &HistoryConfig{
			Enabled:     true,
			MaxEntries:  maxEntries,
			File:        file,
			Backend:     HistoryBackendFile,
			MaxFileSize: 1024 * 1024, // 1MB default
			MaxBackups:  3,
		}
	}
}

// WithBoltHistory is a convenience function for history persisted to a
// bbolt database.
func WithBoltHistory(file string, maxEntries int) Option {
	return func(c *Config) {
		if maxEntries <= 0 {
			maxEntries = 1000
		}
		c.HistoryConfig = &HistoryConfig{
			Enabled:    true,
			MaxEntries: maxEntries,
			File:       file,
			Backend:    HistoryBackendBolt,
		}
	}
}

// WithKeyMap sets the key bindings
func WithKeyMap(keyMap *KeyMap) Option {
	return func(c *Config) {
		c.KeyMap = keyMap
	}
}

// WithPendingPolicy sets how keys are handled while a submission is pending
func WithPendingPolicy(policy PendingPolicy) Option {
	return func(c *Config) {
		c.PendingPolicy = policy
	}
}

// WithObserver sets the observer that receives session events
func WithObserver(observer observability.Observer) Option {
	return func(c *Config) {
		c.Observer = observer
	}
}

// WithContext sets the context passed to every Evaluator.Submit call
func WithContext(ctx context.Context) Option {
	return func(c *Config) {
		c.Context = ctx
	}
}

// WithInput makes NewSession read keys from r, so Run can drive the session
// from a pipe, a file or a test script. Input is decoded in line mode.
func WithInput(r io.Reader) Option {
	return func(c *Config) {
		c.Input = r
	}
}
