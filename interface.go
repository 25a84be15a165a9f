package xtlog

// Emitter is the emission surface of Logger, for callers that take the
// logging capability as a dependency. Every named severity is its own
// method; there is no string-keyed dispatch, so a misspelled level cannot
// reach a running logger. Custom numeric levels go through Log.
type Emitter interface {
	Trace(template string, args ...any)
	Debug(template string, args ...any)
	Info(template string, args ...any)
	Success(template string, args ...any)
	Warning(template string, args ...any)
	Error(template string, args ...any)
	Critical(template string, args ...any)
	Exception(err error, template string, args ...any)
	Log(level Level, template string, args []any, meta Meta)
	Print(args ...any)
	Dump(v any)
}

var _ Emitter = (*Logger)(nil)
