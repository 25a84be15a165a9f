package xtlog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

func init() {
	// The backend carries this facade's severity space and wire format.
	zerolog.TimeFieldFormat = timeFieldLayout
	zerolog.LevelFieldMarshalFunc = marshalLevel
}

// sinkHandle identifies a registered sink for later removal.
type sinkHandle uint64

// sink couples one output's writer chain with the resources behind it and
// its own severity floor.
type sink struct {
	handle  sinkHandle
	writer  io.Writer
	level   Level
	closers []io.Closer
}

// sinkManager owns at most one file sink and at most one console sink. All
// mutation funnels through apply/removeAll during a rebuild: sinks are torn
// down and re-added, never patched in place. The manager carries no lock of
// its own; the engine serializes access around it.
type sinkManager struct {
	nextHandle sinkHandle
	file       *sink
	console    *sink
	degraded   bool
}

// addFile registers the rolling file sink. lumberjack surfaces problems
// only on the first write, so the destination is probed here; a probe
// failure reports the degraded condition through the returned error instead
// of crashing construction.
func (m *sinkManager) addFile(cfg Config, lay layout, sizeMB, ageDays int) (sinkHandle, error) {
	if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
		return 0, fmt.Errorf("create log directory: %w", err)
	}
	path := filepath.Join(cfg.LogDir, cfg.LogFileName)

	probe, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open log file: %w", err)
	}
	_ = probe.Close()

	roller := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    sizeMB,
		MaxAge:     ageDays,
		MaxBackups: cfg.MaxBackups,
		Compress:   cfg.Compress,
	}

	var w io.Writer = roller
	closers := []io.Closer{roller}
	if !cfg.Serialize && !lay.serialize {
		w = newConsoleWriter(roller, lay, true, cfg.ConsoleTimeFormat)
	}
	if cfg.Enqueue {
		aw := newAsyncWriter(w, cfg.QueueSize)
		w = aw
		closers = append([]io.Closer{aw}, closers...)
	}

	m.nextHandle++
	m.file = &sink{handle: m.nextHandle, writer: w, level: cfg.Level, closers: closers}
	return m.file.handle, nil
}

// addConsole registers the console sink on the given stream (stderr when
// nil). Console writes stay synchronous: they are the fallback channel and
// must not depend on the file queue.
func (m *sinkManager) addConsole(stream io.Writer, cfg Config, lay layout) sinkHandle {
	if stream == nil {
		stream = os.Stderr
	}
	var w io.Writer = stream
	if !cfg.Serialize && !lay.serialize {
		w = newConsoleWriter(stream, lay, cfg.ConsoleNoColor, cfg.ConsoleTimeFormat)
	}

	m.nextHandle++
	m.console = &sink{handle: m.nextHandle, writer: w, level: cfg.Level}
	return m.console.handle
}

// remove tears down the sink with the given handle. Idempotent: unknown and
// already-removed handles are no-ops.
func (m *sinkManager) remove(h sinkHandle) {
	if m.file != nil && m.file.handle == h {
		closeSink(m.file)
		m.file = nil
	}
	if m.console != nil && m.console.handle == h {
		m.console = nil
	}
}

// removeAll tears down both sinks. Queued writes drain through the old file
// sink before it closes.
func (m *sinkManager) removeAll() {
	if m.file != nil {
		m.remove(m.file.handle)
	}
	if m.console != nil {
		m.remove(m.console.handle)
	}
}

// apply adds sinks per the configuration. Degraded-mode policy: when the
// file sink cannot be created, the console sink is force-enabled even
// outside development mode, so output is never silently lost, and file
// logging stays off in the effective configuration until the next rebuild
// retries it. The file-sink error is returned for reporting; it is not a
// failure of apply.
func (m *sinkManager) apply(cfg Config, lay layout, sizeMB, ageDays int) error {
	m.degraded = false

	enableFile := cfg.EnableFile
	enableConsole := cfg.EnableConsole
	if !enableFile && !enableConsole {
		enableFile = true
	}

	var sinkErr error
	if enableFile {
		if _, err := m.addFile(cfg, lay, sizeMB, ageDays); err != nil {
			m.degraded = true
			enableConsole = true
			sinkErr = err
		}
	}
	if enableConsole {
		m.addConsole(cfg.ConsoleOutput, cfg, lay)
	}
	return sinkErr
}

// writers returns the live writer chain, each sink behind its own level
// filter.
func (m *sinkManager) writers() []io.Writer {
	var ws []io.Writer
	if m.file != nil {
		ws = append(ws, leveled(m.file))
	}
	if m.console != nil {
		ws = append(ws, leveled(m.console))
	}
	return ws
}

// flush blocks until every record queued for the file sink so far has been
// written through.
func (m *sinkManager) flush() {
	if m.file == nil {
		return
	}
	for _, c := range m.file.closers {
		if aw, ok := c.(*asyncWriter); ok {
			aw.Flush()
		}
	}
}

func closeSink(s *sink) {
	for _, c := range s.closers {
		_ = c.Close()
	}
}

func leveled(s *sink) io.Writer {
	return &zerolog.FilteredLevelWriter{
		Writer: zerolog.LevelWriterAdapter{Writer: s.writer},
		Level:  zerologLevel(s.level),
	}
}

// asyncWriter moves writes onto a background worker through a bounded
// queue. Write blocks only when the queue is full, so records queue up
// rather than drop. Close drains everything queued, then stops the worker;
// writes arriving after Close fall through synchronously.
type asyncWriter struct {
	out  io.Writer
	jobs chan asyncJob
	done chan struct{}

	mu     sync.RWMutex
	closed bool
}

type asyncJob struct {
	p   []byte
	ack chan<- struct{}
}

func newAsyncWriter(out io.Writer, queueSize int) *asyncWriter {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	w := &asyncWriter{
		out:  out,
		jobs: make(chan asyncJob, queueSize),
		done: make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *asyncWriter) run() {
	defer close(w.done)
	for job := range w.jobs {
		if job.p != nil {
			_, _ = w.out.Write(job.p)
		}
		if job.ack != nil {
			close(job.ack)
		}
	}
}

// Write enqueues a copy of p; the backend reuses its buffers, so the copy
// is mandatory.
func (w *asyncWriter) Write(p []byte) (int, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return w.out.Write(p)
	}
	cp := make([]byte, len(p))
	copy(cp, p)
	w.jobs <- asyncJob{p: cp}
	return len(p), nil
}

// Flush blocks until everything queued before the call has been written.
func (w *asyncWriter) Flush() {
	w.mu.RLock()
	if w.closed {
		w.mu.RUnlock()
		return
	}
	ack := make(chan struct{})
	w.jobs <- asyncJob{ack: ack}
	w.mu.RUnlock()
	<-ack
}

// Close drains the queue and stops the worker. Safe to call repeatedly.
func (w *asyncWriter) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	close(w.jobs)
	<-w.done
	return nil
}
