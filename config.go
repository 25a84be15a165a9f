package xtlog

import (
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"
)

// Config is the complete configuration of a Logger. It is treated as an
// immutable value: reconfiguration builds a modified copy, compares it with
// the current value and rebuilds the sinks only when something actually
// changed.
type Config struct {
	// Level is the minimum severity emitted.
	Level Level `validate:"gt=0"`
	// Serialize renders records as JSON lines with the fixed keys
	// time, level, message, path, process, thread.
	Serialize bool
	// RotationSize is the size spec ("16 MB") that starts a new file segment.
	RotationSize string `validate:"required"`
	// RetentionDays is the age spec ("30 days") that prunes old segments.
	RetentionDays string `validate:"required"`
	// Format names the console layout: default, simple, detailed or json.
	// Unknown names fall back to default.
	Format string `validate:"required"`
	// LogDir and LogFileName locate the log file.
	LogDir      string `validate:"required"`
	LogFileName string `validate:"required"`
	// EnableFile and EnableConsole toggle the two sinks independently. When
	// both are off the file sink is forced on: output is never silently
	// dropped.
	EnableFile    bool
	EnableConsole bool

	// MaxBackups bounds how many rotated segments are kept; zero keeps all
	// segments within the retention age.
	MaxBackups int `validate:"gte=0"`
	// Compress gzips rotated segments.
	Compress bool

	// ConsoleOutput overrides the console sink's stream; nil means stderr.
	ConsoleOutput io.Writer
	// ConsoleNoColor disables ANSI styling on the console sink.
	ConsoleNoColor bool
	// ConsoleTimeFormat overrides the active layout's timestamp format.
	ConsoleTimeFormat string

	// SkipFrameCount skips additional stack frames during call-site
	// detection, for callers that wrap the logger in their own helpers.
	SkipFrameCount int `validate:"gte=0"`

	// Enqueue moves file writes onto a background worker so emission never
	// blocks on disk I/O; QueueSize bounds the queue.
	Enqueue   bool
	QueueSize int `validate:"gte=0"`

	// ShutdownTimeoutMS bounds how long Close and rebuilds wait for
	// in-flight writes to finish.
	ShutdownTimeoutMS int `validate:"gte=0"`
}

// defaultConfig builds the starting configuration: documented defaults with
// environment overrides applied on top. Construction options are applied
// over the result, so explicit options always win.
func defaultConfig() Config {
	now := time.Now()
	cfg := Config{
		Level:             DefaultLevel,
		RotationSize:      DefaultRotationSize,
		RetentionDays:     DefaultRetentionDays,
		Format:            FormatDefault,
		LogDir:            filepath.Join(os.TempDir(), "logs"),
		LogFileName:       expandFileTemplate(DefaultFileTemplate, now),
		EnableFile:        true,
		EnableConsole:     devMode(),
		Enqueue:           true,
		QueueSize:         defaultQueueSize,
		ShutdownTimeoutMS: defaultShutdownTimeoutMS,
	}

	if v := os.Getenv(EnvLevel); v != emptyString {
		cfg.Level = ParseLevel(v)
	}
	if v := os.Getenv(EnvLogDir); v != emptyString {
		cfg.LogDir = v
	}
	if v := os.Getenv(EnvFileTemplate); v != emptyString {
		cfg.LogFileName = expandFileTemplate(v, now)
	}
	if v := os.Getenv(EnvRotationSize); v != emptyString {
		cfg.RotationSize = v
	}
	if v := os.Getenv(EnvRetentionDays); v != emptyString {
		cfg.RetentionDays = v
	}
	return cfg
}

// devMode reports whether this is a development run: the ENV variable is
// unset or equals "dev". Development runs enable the console sink by
// default.
func devMode() bool {
	v, ok := os.LookupEnv(EnvDevFlag)
	if !ok {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(v), "dev")
}

// expandFileTemplate substitutes {date} (YYYYMMDD) in a file name template.
func expandFileTemplate(template string, now time.Time) string {
	return strings.ReplaceAll(template, "{date}", now.Format("20060102"))
}

// with returns a copy of the configuration with the options applied.
func (c Config) with(opts ...Option) Config {
	for _, opt := range opts {
		if opt != nil {
			opt(&c)
		}
	}
	return c
}

// equal reports whether two configurations carry the same values. The
// console writer is compared by identity, guarded so that writers of an
// uncomparable dynamic type never panic the comparison.
func (c Config) equal(o Config) bool {
	cw, ow := c.ConsoleOutput, o.ConsoleOutput
	c.ConsoleOutput, o.ConsoleOutput = nil, nil
	return c == o && sameWriter(cw, ow)
}

func sameWriter(a, b io.Writer) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if !ta.Comparable() {
		return false
	}
	return a == b
}

// Option mutates a configuration copy during construction or Update.
type Option func(*Config)

// WithLevel sets the minimum emitted severity.
func WithLevel(level Level) Option {
	return func(c *Config) { c.Level = level }
}

// WithLevelName resolves a level name through the canonical table; unknown
// names fall back to DefaultLevel.
func WithLevelName(name string) Option {
	return func(c *Config) { c.Level = ParseLevel(name) }
}

// WithSerialize toggles JSON-line output.
func WithSerialize(serialize bool) Option {
	return func(c *Config) { c.Serialize = serialize }
}

// WithRotationSize sets the size spec that starts a new file segment.
func WithRotationSize(spec string) Option {
	return func(c *Config) { c.RotationSize = spec }
}

// WithRetentionDays sets the age spec that prunes old segments.
func WithRetentionDays(spec string) Option {
	return func(c *Config) { c.RetentionDays = spec }
}

// WithFormat selects a named console layout.
func WithFormat(name string) Option {
	return func(c *Config) { c.Format = name }
}

// WithLogDir overrides the log directory.
func WithLogDir(dir string) Option {
	return func(c *Config) { c.LogDir = dir }
}

// WithLogFileName overrides the log file name.
func WithLogFileName(name string) Option {
	return func(c *Config) { c.LogFileName = name }
}

// WithFileLogging toggles the file sink.
func WithFileLogging(enabled bool) Option {
	return func(c *Config) { c.EnableFile = enabled }
}

// WithConsoleLogging toggles the console sink.
func WithConsoleLogging(enabled bool) Option {
	return func(c *Config) { c.EnableConsole = enabled }
}

// WithMaxBackups bounds the number of rotated segments kept.
func WithMaxBackups(n int) Option {
	return func(c *Config) { c.MaxBackups = n }
}

// WithCompress gzips rotated segments.
func WithCompress(enabled bool) Option {
	return func(c *Config) { c.Compress = enabled }
}

// WithConsoleOutput redirects the console sink.
func WithConsoleOutput(w io.Writer) Option {
	return func(c *Config) { c.ConsoleOutput = w }
}

// WithConsoleNoColor disables ANSI styling on the console sink.
func WithConsoleNoColor(noColor bool) Option {
	return func(c *Config) { c.ConsoleNoColor = noColor }
}

// WithConsoleTimeFormat overrides the console timestamp layout.
func WithConsoleTimeFormat(layout string) Option {
	return func(c *Config) { c.ConsoleTimeFormat = layout }
}

// WithSkipFrameCount skips additional stack frames during call-site
// detection.
func WithSkipFrameCount(n int) Option {
	return func(c *Config) { c.SkipFrameCount = n }
}

// WithEnqueue toggles the background file-write queue.
func WithEnqueue(enabled bool) Option {
	return func(c *Config) { c.Enqueue = enabled }
}

// WithQueueSize bounds the background write queue.
func WithQueueSize(n int) Option {
	return func(c *Config) { c.QueueSize = n }
}

// WithShutdownTimeout bounds, in milliseconds, how long Close and rebuilds
// wait for in-flight writes.
func WithShutdownTimeout(ms int) Option {
	return func(c *Config) { c.ShutdownTimeoutMS = ms }
}
