package xtlog

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// Meta carries per-call metadata. Values of this type found among a call's
// variadic arguments merge into the record's metadata instead of being
// formatted into the message.
type Meta map[string]any

// CallFrom wraps a function value as callfrom metadata: the function's
// declaration site becomes the record's origin tag instead of the call
// stack.
func CallFrom(fn any) Meta {
	return Meta{MetaCallFrom: fn}
}

// Err wraps an error as metadata so any severity method can attach it with
// the same chain enrichment Exception applies.
func Err(err error) Meta {
	return Meta{MetaErr: err}
}

// record is the mutable pre-render state of one log event.
type record struct {
	level Level
	msg   string
	meta  map[string]any
	err   error
	site  CallSite
}

// splitArgs partitions a call's variadic arguments into positional
// formatting args and merged metadata. The input is never mutated.
func splitArgs(args []any) ([]any, Meta) {
	hasMeta := false
	for _, a := range args {
		if _, ok := a.(Meta); ok {
			hasMeta = true
			break
		}
	}
	if !hasMeta {
		return args, nil
	}

	pos := make([]any, 0, len(args))
	var meta Meta
	for _, a := range args {
		if m, ok := a.(Meta); ok {
			if meta == nil {
				meta = make(Meta, len(m))
			}
			for k, v := range m {
				meta[k] = v
			}
			continue
		}
		pos = append(pos, a)
	}
	return pos, meta
}

// renderMessage formats the template with positional args, printf style.
func renderMessage(template string, args []any) string {
	if len(args) == 0 {
		return template
	}
	return fmt.Sprintf(template, args...)
}

// normalizeRecord resolves the record's origin tag exactly once, before any
// sink sees it: an explicit callfrom override wins and is stripped; the
// captured natural call site is the fallback. An error value under the err
// metadata key is promoted onto the record when no error is attached yet,
// and only then is the key consumed; any other value under it stays
// ordinary metadata and passes through verbatim. Runs on the hot path of
// every emission and must never escape: recovered failures degrade to the
// unknown tag.
func normalizeRecord(rec *record) {
	defer func() {
		if r := recover(); r != nil {
			if rec.meta == nil {
				rec.meta = make(map[string]any, 1)
			}
			delete(rec.meta, MetaCallFrom)
			rec.meta[MetaSimplifiedPath] = unknownOriginTag
		}
	}()

	if rec.meta == nil {
		rec.meta = make(map[string]any, 1)
	}

	if e, ok := rec.meta[MetaErr].(error); ok && rec.err == nil {
		rec.err = e
		delete(rec.meta, MetaErr)
	}

	if raw, ok := rec.meta[MetaCallFrom]; ok {
		site := resolveCallSite(raw)
		delete(rec.meta, MetaCallFrom)
		rec.meta[MetaSimplifiedPath] = Simplify(site.File, site.Line, site.Function)
		return
	}
	rec.meta[MetaSimplifiedPath] = Simplify(rec.site.File, rec.site.Line, rec.site.Function)
}

// layout describes one named console format as pure data.
type layout struct {
	parts      []string
	timeFormat string
	withIcon   bool
	withThread bool
	padPath    int
	serialize  bool
}

var layouts = map[string]layout{
	FormatDefault: {
		parts: []string{
			zerolog.TimestampFieldName, zerolog.LevelFieldName,
			FieldProcess, FieldThread, FieldPath, zerolog.MessageFieldName,
		},
		timeFormat: timeFieldLayout,
		withIcon:   true,
		withThread: true,
		padPath:    35,
	},
	FormatSimple: {
		parts: []string{
			zerolog.TimestampFieldName, zerolog.LevelFieldName,
			FieldPath, zerolog.MessageFieldName,
		},
		timeFormat: "2006-01-02 15:04:05",
	},
	FormatDetailed: {
		parts: []string{
			zerolog.TimestampFieldName, zerolog.LevelFieldName,
			FieldProcess, FieldThread, FieldPath, zerolog.MessageFieldName,
		},
		timeFormat: timeFieldLayout,
		withIcon:   true,
		withThread: true,
	},
	FormatJSON: {
		withThread: true,
		serialize:  true,
	},
}

// layoutFor resolves a layout name; unknown names fall back to the default
// layout.
func layoutFor(name string) layout {
	if lay, ok := layouts[strings.ToLower(strings.TrimSpace(name))]; ok {
		return lay
	}
	return layouts[FormatDefault]
}

// newConsoleWriter configures the backend's styled writer for one sink.
func newConsoleWriter(out io.Writer, lay layout, noColor bool, timeOverride string) zerolog.ConsoleWriter {
	tf := lay.timeFormat
	if timeOverride != emptyString {
		tf = timeOverride
	}
	return zerolog.ConsoleWriter{
		Out:                   out,
		NoColor:               noColor,
		TimeFormat:            tf,
		PartsOrder:            lay.parts,
		FieldsExclude:         []string{FieldProcess, FieldThread, FieldPath},
		FormatLevel:           formatLevel(lay.withIcon, noColor),
		FormatPartValueByName: formatPart(lay),
	}
}

// formatLevel renders the padded level label, optionally styled and
// followed by the level icon.
func formatLevel(withIcon bool, noColor bool) func(any) string {
	return func(i any) string {
		name, _ := i.(string)
		if name == emptyString {
			name = "???"
		}
		out := fmt.Sprintf("%-8s", name)
		lvl, known := levelNames[strings.ToUpper(name)]
		if withIcon && known {
			out += " " + lvl.Icon()
		}
		if noColor || !known {
			return out
		}
		return colorize(out, levelColors[lvl])
	}
}

// formatPart renders the promoted record fields (process, thread, origin
// tag) inside the line prefix. Absent fields render empty and vanish from
// the line.
func formatPart(lay layout) func(any, string) string {
	return func(i any, name string) string {
		if i == nil {
			return emptyString
		}
		switch name {
		case FieldProcess:
			return fmt.Sprintf("%6v", i)
		case FieldThread:
			return fmt.Sprintf("%-6v", i)
		case FieldPath:
			if lay.padPath > 0 {
				return fmt.Sprintf("%-*v", lay.padPath, i)
			}
		}
		return fmt.Sprintf("%v", i)
	}
}

func colorize(s string, code int) string {
	if code == 0 {
		return s
	}
	return "\x1b[" + strconv.Itoa(code) + "m" + s + "\x1b[0m"
}
