package xtlog

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/atomic"
)

// engine owns the backend logger, the sinks feeding it, and the lifecycle
// state shared by every Logger view bound to it. Sink mutation happens only
// under the write lock; emission takes the read lock just long enough to
// snapshot state and register itself in flight. Reconfiguration and close
// serialize on updMu in addition, so concurrent updates merge from each
// other's result and a late rebuild cannot undo a teardown.
type engine struct {
	cfg  atomic.Pointer[Config]
	zlog atomic.Pointer[zerolog.Logger]

	sinks sinkManager

	isInitialized atomic.Bool
	degraded      atomic.Bool
	emitThread    atomic.Bool
	rebuilds      atomic.Int32
	activeOps     atomic.Int32

	wg    sync.WaitGroup
	mu    sync.RWMutex
	updMu sync.Mutex
}

// Logger is the front of the facade. It is a cheap view over a shared
// engine plus optional bound metadata; Bind derives further views without
// duplicating sinks.
type Logger struct {
	eng  *engine
	base Meta
}

// New builds an independent Logger from defaults, environment overrides and
// the given options. File-sink trouble does not fail construction: the
// logger comes up degraded with console output forced on instead.
func New(opts ...Option) (*Logger, error) {
	const op = "xtlog.New"

	cfg := defaultConfig().with(opts...)
	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	eng := &engine{}
	if err := eng.rebuild(cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	eng.isInitialized.Store(true)
	return &Logger{eng: eng}, nil
}

// rebuild replaces the whole sink set and the backend logger. Sinks are
// torn down and re-added, never patched in place. The rotation and
// retention specs are parsed before anything is touched, so a bad update
// leaves the previous state fully intact.
func (e *engine) rebuild(cfg Config) error {
	lay := layoutFor(cfg.Format)
	sizeMB, err := parseRotationSize(cfg.RotationSize)
	if err != nil {
		return err
	}
	ageDays, err := parseRetentionDays(cfg.RetentionDays)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	timeout := cfg.ShutdownTimeoutMS
	if prev := e.cfg.Load(); prev != nil {
		timeout = prev.ShutdownTimeoutMS
	}
	e.drainLocked(timeout)
	e.sinks.removeAll()

	sinkErr := e.sinks.apply(cfg, lay, sizeMB, ageDays)
	e.degraded.Store(e.sinks.degraded)

	logger := zerolog.New(zerolog.MultiLevelWriter(e.sinks.writers()...)).
		With().
		Timestamp().
		Int(FieldProcess, os.Getpid()).
		Logger()
	e.zlog.Store(&logger)
	e.cfg.Store(&cfg)
	e.emitThread.Store(cfg.Serialize || lay.serialize || lay.withThread)
	e.rebuilds.Add(1)

	if sinkErr != nil {
		site := callerSite(0)
		ev := logger.WithLevel(zerologLevel(WarningLevel)).
			Str(FieldPath, Simplify(site.File, site.Line, site.Function)).
			Err(sinkErr)
		if e.emitThread.Load() {
			ev = ev.Int(FieldThread, goroutineID())
		}
		ev.Msg("file logging degraded; console fallback enabled")
	}
	return nil
}

// drainLocked waits for in-flight emissions, bounded by the shutdown
// timeout. The caller holds the write lock, which already keeps new
// emissions from starting.
func (e *engine) drainLocked(timeoutMS int) {
	if timeoutMS <= 0 {
		timeoutMS = defaultShutdownTimeoutMS
	}
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Duration(timeoutMS) * time.Millisecond):
	}
}

// logTo is the single funnel under every public emission method. Those
// methods call it directly, exactly one frame deep, which is what the
// caller-site skip arithmetic below relies on.
func (l *Logger) logTo(level Level, template string, args []any, meta Meta, err error) {
	if l == nil || l.eng == nil || !l.eng.isInitialized.Load() {
		return
	}
	cfg := l.eng.cfg.Load()
	if cfg == nil || level < cfg.Level {
		return
	}

	positional, extracted := splitArgs(args)
	rec := record{
		level: level,
		msg:   renderMessage(template, positional),
		meta:  mergeMeta(l.base, extracted, meta),
		err:   err,
	}
	if _, ok := rec.meta[MetaCallFrom]; !ok {
		// Frames: logTo, the public method, then the caller.
		rec.site = callerSite(2 + cfg.SkipFrameCount)
	}
	l.eng.emit(&rec)
}

// mergeMeta overlays metadata maps left to right, later layers winning.
// Returns nil when every layer is empty so the common no-metadata call
// stays allocation-free.
func mergeMeta(layers ...Meta) map[string]any {
	size := 0
	for _, m := range layers {
		size += len(m)
	}
	if size == 0 {
		return nil
	}
	out := make(map[string]any, size)
	for _, m := range layers {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}

// emit writes one record through the backend. In-flight registration
// happens under the read lock, after the initialized re-check, so a
// rebuild holding the write lock only ever waits on emissions that truly
// started. The write itself runs outside the lock; the wait group covers
// it until Msg returns.
func (e *engine) emit(rec *record) {
	e.mu.RLock()
	if !e.isInitialized.Load() {
		e.mu.RUnlock()
		return
	}
	zl := e.zlog.Load()
	if zl == nil {
		e.mu.RUnlock()
		return
	}
	e.activeOps.Add(1)
	e.wg.Add(1)
	withThread := e.emitThread.Load()
	ev := zl.WithLevel(zerologLevel(rec.level))
	e.mu.RUnlock()

	defer func() {
		e.activeOps.Add(-1)
		e.wg.Done()
	}()

	normalizeRecord(rec)

	if withThread {
		ev = ev.Int(FieldThread, goroutineID())
	}
	if tag, ok := rec.meta[MetaSimplifiedPath].(string); ok {
		ev = ev.Str(FieldPath, tag)
	}
	if rec.err != nil {
		chain, root := buildErrorChain(rec.err)
		ev = ev.Err(rec.err)
		if len(chain) > 1 {
			ev = ev.Strs(fieldErrorChain, chain).
				Str(fieldErrorHistory, joinChain(chain)).
				Str(fieldErrorRoot, root)
		}
	}
	if len(rec.meta) > 1 {
		extra := make(map[string]any, len(rec.meta)-1)
		for k, v := range rec.meta {
			if k == MetaSimplifiedPath {
				continue
			}
			extra[k] = v
		}
		ev = ev.Fields(extra)
	}
	ev.Msg(rec.msg)
}

// Trace logs at TRACE level. The template is passed through fmt.Sprintf
// when positional arguments are present; Meta values anywhere in args are
// pulled out and attached as structured fields instead.
func (l *Logger) Trace(template string, args ...any) {
	l.logTo(TraceLevel, template, args, nil, nil)
}

// Debug logs at DEBUG level.
func (l *Logger) Debug(template string, args ...any) {
	l.logTo(DebugLevel, template, args, nil, nil)
}

// Info logs at INFO level.
func (l *Logger) Info(template string, args ...any) {
	l.logTo(InfoLevel, template, args, nil, nil)
}

// Success logs at SUCCESS level.
func (l *Logger) Success(template string, args ...any) {
	l.logTo(SuccessLevel, template, args, nil, nil)
}

// Warning logs at WARNING level.
func (l *Logger) Warning(template string, args ...any) {
	l.logTo(WarningLevel, template, args, nil, nil)
}

// Error logs at ERROR level.
func (l *Logger) Error(template string, args ...any) {
	l.logTo(ErrorLevel, template, args, nil, nil)
}

// Critical logs at CRITICAL level.
func (l *Logger) Critical(template string, args ...any) {
	l.logTo(CriticalLevel, template, args, nil, nil)
}

// Exception logs err at ERROR level together with its unwrap chain. A nil
// err still logs the message, without error fields.
func (l *Logger) Exception(err error, template string, args ...any) {
	l.logTo(ErrorLevel, template, args, nil, err)
}

// Log emits at an arbitrary level, including custom positive levels that
// are not predeclared. Metadata passed explicitly and Meta values inside
// args are merged, the explicit map winning on key conflicts.
func (l *Logger) Log(level Level, template string, args []any, meta Meta) {
	l.logTo(level, template, args, meta, nil)
}

// Print logs each argument as its own INFO record, mirroring print-style
// call sites.
func (l *Logger) Print(args ...any) {
	for _, arg := range args {
		l.logTo(InfoLevel, fmt.Sprint(arg), nil, nil, nil)
	}
}

// Bind returns a view that attaches meta to every record it emits. Views
// share the engine: level changes, rebuilds and Close apply to all of
// them. Bind on an empty map returns the receiver.
func (l *Logger) Bind(meta Meta) *Logger {
	if l == nil || len(meta) == 0 {
		return l
	}
	merged := mergeMeta(l.base, meta)
	return &Logger{eng: l.eng, base: merged}
}

// SetLevel changes the severity floor. Same-value calls return without
// touching the sinks.
func (l *Logger) SetLevel(level Level) error {
	return l.Update(WithLevel(level))
}

// SetLevelName changes the severity floor by name; unknown names fall back
// to the default level.
func (l *Logger) SetLevelName(name string) error {
	return l.Update(WithLevel(ParseLevel(name)))
}

// Update applies options on top of the current configuration and rebuilds
// the sinks. When the options change nothing, the running state is left
// untouched. Concurrent calls are serialized; each one merges its options
// into the configuration the previous one applied.
func (l *Logger) Update(opts ...Option) error {
	const op = "xtlog.Update"

	if l == nil || l.eng == nil {
		return fmt.Errorf("%s: %s", op, errMsgNotRunning)
	}

	l.eng.updMu.Lock()
	defer l.eng.updMu.Unlock()

	if !l.eng.isInitialized.Load() {
		return fmt.Errorf("%s: %s", op, errMsgNotRunning)
	}
	cur := l.eng.cfg.Load()
	if cur == nil {
		return fmt.Errorf("%s: %s", op, errMsgNotRunning)
	}

	next := cur.with(opts...)
	if next.equal(*cur) {
		return nil
	}
	if err := validateConfig(&next); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := l.eng.rebuild(next); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Config returns the effective configuration. In degraded mode the file
// flag reads false and the console flag true, reflecting what is actually
// running rather than what was asked for.
func (l *Logger) Config() Config {
	if l == nil || l.eng == nil {
		return Config{}
	}
	p := l.eng.cfg.Load()
	if p == nil {
		return Config{}
	}
	cfg := *p
	if l.eng.degraded.Load() {
		cfg.EnableFile = false
		cfg.EnableConsole = true
	}
	return cfg
}

// Degraded reports whether the last rebuild lost the file sink and fell
// back to console output.
func (l *Logger) Degraded() bool {
	return l != nil && l.eng != nil && l.eng.degraded.Load()
}

// Close drains in-flight emissions within the shutdown timeout, flushes
// the queue and releases the sinks. Records arriving after Close are
// dropped. Safe to call more than once.
func (l *Logger) Close() error {
	if l == nil || l.eng == nil {
		return nil
	}
	e := l.eng
	if !e.isInitialized.CompareAndSwap(true, false) {
		return nil
	}

	// An Update already past its initialized check finishes its rebuild
	// before this teardown starts.
	e.updMu.Lock()
	defer e.updMu.Unlock()

	timeout := defaultShutdownTimeoutMS
	if cfg := e.cfg.Load(); cfg != nil {
		timeout = cfg.ShutdownTimeoutMS
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.drainLocked(timeout)
	if n := e.activeOps.Load(); n > 0 {
		fmt.Fprintf(os.Stderr, "xtlog: close timed out with %d active operations\n", n)
	}
	e.sinks.removeAll()
	e.zlog.Store(nil)
	return nil
}

// Sync blocks until every record accepted so far has been written through
// the file queue. A no-op when the logger is not running or the queue is
// disabled.
func (l *Logger) Sync() {
	if l == nil || l.eng == nil || !l.eng.isInitialized.Load() {
		return
	}
	l.eng.mu.RLock()
	defer l.eng.mu.RUnlock()
	l.eng.sinks.flush()
}

// ActiveOperations reports how many emissions are currently in flight.
func (l *Logger) ActiveOperations() int32 {
	if l == nil || l.eng == nil {
		return 0
	}
	return l.eng.activeOps.Load()
}
