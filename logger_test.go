package xtlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newFileLogger builds a file-only logger that writes JSON lines into a
// temp dir and returns it together with the log file path.
func newFileLogger(tb testing.TB, opts ...Option) (*Logger, string) {
	tb.Helper()
	neutralEnv(tb)
	dir := tb.TempDir()
	base := []Option{
		WithLevel(DebugLevel),
		WithLogDir(dir),
		WithLogFileName("test.log"),
		WithConsoleLogging(false),
		WithFileLogging(true),
		WithSerialize(true),
	}
	l, err := New(append(base, opts...)...)
	require.NoError(tb, err)
	return l, filepath.Join(dir, "test.log")
}

// decodeLines parses every JSON line the logger wrote.
func decodeLines(tb testing.TB, path string) []map[string]any {
	tb.Helper()
	data, err := os.ReadFile(path)
	require.NoError(tb, err)

	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(tb, json.Unmarshal([]byte(line), &entry), "line: %s", line)
		entries = append(entries, entry)
	}
	return entries
}

func findMessage(entries []map[string]any, msg string) map[string]any {
	for _, e := range entries {
		if e["message"] == msg {
			return e
		}
	}
	return nil
}

func TestFileLoggingCreatesAndWrites(t *testing.T) {
	l, logPath := newFileLogger(t)
	t.Cleanup(func() { _ = l.Close() })

	l.Info("hello %s", "world")
	l.Warning("be careful")
	l.Sync()

	_, err := os.Stat(logPath)
	require.NoError(t, err)

	entries := decodeLines(t, logPath)
	require.Len(t, entries, 2)

	hello := findMessage(entries, "hello world")
	require.NotNil(t, hello)
	assert.Equal(t, "INFO", hello["level"])

	warn := findMessage(entries, "be careful")
	require.NotNil(t, warn)
	assert.Equal(t, "WARNING", warn["level"])
}

func TestSerializedRecordCarriesFixedKeys(t *testing.T) {
	l, logPath := newFileLogger(t)
	t.Cleanup(func() { _ = l.Close() })

	l.Success("deployed")
	l.Sync()

	entries := decodeLines(t, logPath)
	require.Len(t, entries, 1)
	entry := entries[0]

	for _, key := range []string{"time", "level", "message", "path", "process", "thread"} {
		assert.Contains(t, entry, key)
	}
	assert.Equal(t, "SUCCESS", entry["level"])
	assert.Equal(t, "deployed", entry["message"])
	assert.Equal(t, os.Getpid(), int(entry["process"].(float64)))
	assert.Greater(t, entry["thread"].(float64), 0.0)

	_, err := time.Parse(timeFieldLayout, entry["time"].(string))
	assert.NoError(t, err, "timestamp must use the canonical layout")
}

func TestLevelFiltering(t *testing.T) {
	l, logPath := newFileLogger(t, WithLevel(WarningLevel))
	t.Cleanup(func() { _ = l.Close() })

	l.Debug("debug msg")
	l.Info("info msg")
	l.Warning("warn msg")
	l.Error("error msg")
	l.Log(Level(35), "custom above", nil, nil)
	l.Log(Level(15), "custom below", nil, nil)
	l.Sync()

	entries := decodeLines(t, logPath)
	assert.Nil(t, findMessage(entries, "debug msg"))
	assert.Nil(t, findMessage(entries, "info msg"))
	assert.Nil(t, findMessage(entries, "custom below"))
	assert.NotNil(t, findMessage(entries, "warn msg"))
	assert.NotNil(t, findMessage(entries, "error msg"))

	custom := findMessage(entries, "custom above")
	require.NotNil(t, custom)
	assert.Equal(t, "35", custom["level"], "custom levels render their numeric label")
}

func TestMessageFormatting(t *testing.T) {
	l, logPath := newFileLogger(t)
	t.Cleanup(func() { _ = l.Close() })

	l.Info("n=%d s=%s", 7, "x")
	l.Info("just literal")
	l.Info("100% literal stays")
	l.Sync()

	entries := decodeLines(t, logPath)
	assert.NotNil(t, findMessage(entries, "n=7 s=x"))
	assert.NotNil(t, findMessage(entries, "just literal"))
	// Without positional args the template is not run through the formatter.
	assert.NotNil(t, findMessage(entries, "100% literal stays"))
}

func TestMetadataFields(t *testing.T) {
	l, logPath := newFileLogger(t)
	t.Cleanup(func() { _ = l.Close() })

	l.Info("with meta", Meta{"user": "ada", "count": 3})
	l.Info("merged %s", "meta", Meta{"a": 1}, Meta{"a": 2, "b": 3})
	l.Sync()

	entries := decodeLines(t, logPath)

	first := findMessage(entries, "with meta")
	require.NotNil(t, first)
	assert.Equal(t, "ada", first["user"])
	assert.Equal(t, 3.0, first["count"])

	second := findMessage(entries, "merged meta")
	require.NotNil(t, second)
	assert.Equal(t, 2.0, second["a"], "later metadata wins on key conflict")
	assert.Equal(t, 3.0, second["b"])
}

func TestBindViews(t *testing.T) {
	l, logPath := newFileLogger(t)
	t.Cleanup(func() { _ = l.Close() })

	req := l.Bind(Meta{"request_id": "r1"})
	req.Info("bound")
	req.Info("overridden", Meta{"request_id": "r2"})

	nested := req.Bind(Meta{"user": "ada"})
	nested.Info("nested")

	l.Info("unbound")
	l.Sync()

	entries := decodeLines(t, logPath)

	bound := findMessage(entries, "bound")
	require.NotNil(t, bound)
	assert.Equal(t, "r1", bound["request_id"])

	overridden := findMessage(entries, "overridden")
	require.NotNil(t, overridden)
	assert.Equal(t, "r2", overridden["request_id"], "per-call metadata wins over bound metadata")

	n := findMessage(entries, "nested")
	require.NotNil(t, n)
	assert.Equal(t, "r1", n["request_id"])
	assert.Equal(t, "ada", n["user"])

	unbound := findMessage(entries, "unbound")
	require.NotNil(t, unbound)
	assert.NotContains(t, unbound, "request_id")
}

func TestBindSharesEngine(t *testing.T) {
	l, _ := newFileLogger(t)
	t.Cleanup(func() { _ = l.Close() })

	view := l.Bind(Meta{"k": "v"})
	assert.Same(t, l.eng, view.eng)

	assert.Same(t, l, l.Bind(nil), "empty bind returns the receiver")
	assert.Same(t, l, l.Bind(Meta{}))

	// A level change through one view is visible through the other.
	require.NoError(t, view.SetLevel(ErrorLevel))
	assert.Equal(t, ErrorLevel, l.Config().Level)
}

func callFromTarget() {}

func TestExplicitCallFrom(t *testing.T) {
	l, logPath := newFileLogger(t)
	t.Cleanup(func() { _ = l.Close() })

	site := resolveCallSite(callFromTarget)
	want := Simplify(site.File, site.Line, site.Function)

	l.Info("explicit origin", CallFrom(callFromTarget))
	l.Info("bad callfrom", Meta{MetaCallFrom: 42})
	l.Sync()

	entries := decodeLines(t, logPath)

	explicit := findMessage(entries, "explicit origin")
	require.NotNil(t, explicit)
	assert.Equal(t, want, explicit["path"])
	assert.NotContains(t, explicit, MetaCallFrom, "callfrom must never reach a sink")

	bad := findMessage(entries, "bad callfrom")
	require.NotNil(t, bad)
	assert.Equal(t, unknownOriginTag, bad["path"])
	assert.NotContains(t, bad, MetaCallFrom)
}

func TestNaturalCallSite(t *testing.T) {
	l, logPath := newFileLogger(t)
	t.Cleanup(func() { _ = l.Close() })

	l.Info("natural")
	l.Sync()

	entries := decodeLines(t, logPath)
	entry := findMessage(entries, "natural")
	require.NotNil(t, entry)

	path, ok := entry["path"].(string)
	require.True(t, ok)
	assert.Contains(t, path, "logger_test:")
	assert.True(t, strings.HasSuffix(path, "@TestNaturalCallSite"), "got path %q", path)
}

func TestSkipFrameCount(t *testing.T) {
	l, logPath := newFileLogger(t, WithSkipFrameCount(1))
	t.Cleanup(func() { _ = l.Close() })

	// The extra frame skips past this helper to its caller.
	helper := func() { l.Info("wrapped") }
	helper()
	l.Sync()

	entries := decodeLines(t, logPath)
	entry := findMessage(entries, "wrapped")
	require.NotNil(t, entry)
	path := entry["path"].(string)
	assert.True(t, strings.HasSuffix(path, "@TestSkipFrameCount"), "got path %q", path)
}

func TestPrintLogsEachArgument(t *testing.T) {
	l, logPath := newFileLogger(t)
	t.Cleanup(func() { _ = l.Close() })

	l.Print("alpha", 42, true)
	l.Sync()

	entries := decodeLines(t, logPath)
	require.Len(t, entries, 3)
	assert.NotNil(t, findMessage(entries, "alpha"))
	assert.NotNil(t, findMessage(entries, "42"))
	assert.NotNil(t, findMessage(entries, "true"))
	for _, e := range entries {
		assert.Equal(t, "INFO", e["level"])
	}
}

func TestDumpOutputs(t *testing.T) {
	type person struct {
		Name string
		Age  int
	}

	l, logPath := newFileLogger(t)
	t.Cleanup(func() { _ = l.Close() })

	l.Dump(nil)
	l.Dump(person{Name: "Ada", Age: 37})
	l.Dump(map[string]int{"a": 1})
	l.Dump([]int{1, 2, 3})
	l.Sync()

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	text := string(data)

	assert.Contains(t, text, "<nil>")
	assert.Contains(t, text, "Ada")
	assert.Contains(t, text, "37")
	assert.Contains(t, text, "[a]")
	assert.Contains(t, text, "[2]")

	// Every dump line points at the Dump call, not at the walk.
	entries := decodeLines(t, logPath)
	for _, e := range entries {
		path := e["path"].(string)
		assert.True(t, strings.HasSuffix(path, "@TestDumpOutputs"), "got path %q", path)
	}
}

func TestDumpCircularReference(t *testing.T) {
	type node struct {
		Value int
		Next  *node
	}
	n1 := &node{Value: 1}
	n2 := &node{Value: 2, Next: n1}
	n1.Next = n2

	l, logPath := newFileLogger(t)
	t.Cleanup(func() { _ = l.Close() })

	l.Dump(n1)
	l.Sync()

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<circular reference>")
}

func TestUninitializedLoggerDoesNotPanic(t *testing.T) {
	var nilLogger *Logger
	nilLogger.Info("test")
	nilLogger.Error("test %d", 1)
	nilLogger.Exception(fmt.Errorf("x"), "test")
	nilLogger.Print("a", "b")
	nilLogger.Dump(struct{ A int }{1})
	nilLogger.Sync()
	assert.Nil(t, nilLogger.Bind(Meta{"k": "v"}))
	assert.NoError(t, nilLogger.Close())
	assert.Error(t, nilLogger.SetLevel(InfoLevel))
	assert.Equal(t, int32(0), nilLogger.ActiveOperations())
	assert.Equal(t, Config{}, nilLogger.Config())
	assert.False(t, nilLogger.Degraded())

	empty := &Logger{}
	empty.Info("test")
	empty.Dump(42)
	empty.Sync()
	assert.NoError(t, empty.Close())
	assert.Error(t, empty.Update(WithLevel(InfoLevel)))
}

func TestLoggingAfterCloseIsDropped(t *testing.T) {
	l, logPath := newFileLogger(t)

	l.Info("before close")
	require.NoError(t, l.Close())
	l.Info("after close")

	entries := decodeLines(t, logPath)
	assert.NotNil(t, findMessage(entries, "before close"))
	assert.Nil(t, findMessage(entries, "after close"))
}

func TestSyncFlushesQueue(t *testing.T) {
	l, logPath := newFileLogger(t, WithQueueSize(256))
	t.Cleanup(func() { _ = l.Close() })

	for i := 0; i < 50; i++ {
		l.Info("queued %d", i)
	}
	l.Sync()

	entries := decodeLines(t, logPath)
	assert.Len(t, entries, 50)

	// The logger keeps working after a flush.
	l.Info("after sync")
	l.Sync()
	assert.NotNil(t, findMessage(decodeLines(t, logPath), "after sync"))
}

func TestConcurrentLogging(t *testing.T) {
	l, logPath := newFileLogger(t)

	const goroutines = 50
	const iterations = 40

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				l.Info("plain %d:%d", id, j)
				l.Debug("debug", Meta{"goroutine": id, "iteration": j})
				l.Warning("warn %d", id)
				l.Error("error %d", id)
			}
		}(i)
	}
	wg.Wait()
	require.NoError(t, l.Close())

	// The queue applies backpressure instead of dropping, so every record
	// must reach the file.
	entries := decodeLines(t, logPath)
	assert.Len(t, entries, goroutines*iterations*4)
}
