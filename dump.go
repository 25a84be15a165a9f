package xtlog

import (
	"fmt"
	"reflect"
)

const (
	// maxDumpDepth bounds recursion through nested values.
	maxDumpDepth = 10
	// maxDumpElements caps how many elements of one slice or array are shown.
	maxDumpElements = 10
)

// Dump walks v and logs one DEBUG record per node. Struct fields, map
// entries and slice elements each get their own line, prefixed with the
// access path that reaches them. Pointer cycles and depth are bounded, so
// self-referential values are safe to dump. Every line carries the origin
// tag of the Dump call site, not of the walk itself.
func (l *Logger) Dump(v any) {
	if l == nil || l.eng == nil || !l.eng.isInitialized.Load() {
		return
	}
	cfg := l.eng.cfg.Load()
	if cfg == nil || DebugLevel < cfg.Level {
		return
	}

	site := callerSite(1 + cfg.SkipFrameCount)
	if v == nil {
		l.dumpLine(site, "dump: <nil>")
		return
	}
	l.dumpValue(site, v, "dump", make(map[uintptr]bool), 0)
}

func (l *Logger) dumpLine(site CallSite, format string, args ...any) {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	rec := record{level: DebugLevel, msg: msg, meta: mergeMeta(l.base), site: site}
	l.eng.emit(&rec)
}

func (l *Logger) dumpValue(site CallSite, v any, prefix string, visited map[uintptr]bool, depth int) {
	if depth > maxDumpDepth {
		l.dumpLine(site, "%s: <max depth reached>", prefix)
		return
	}
	if v == nil {
		l.dumpLine(site, "%s: <nil>", prefix)
		return
	}

	val := reflect.ValueOf(v)
	for val.Kind() == reflect.Interface || val.Kind() == reflect.Ptr {
		if val.IsNil() {
			l.dumpLine(site, "%s: <nil>", prefix)
			return
		}
		if val.Kind() == reflect.Ptr {
			ptr := val.Pointer()
			if visited[ptr] {
				l.dumpLine(site, "%s: <circular reference>", prefix)
				return
			}
			visited[ptr] = true
		}
		val = val.Elem()
	}

	typ := val.Type()
	switch val.Kind() {
	case reflect.Struct:
		l.dumpLine(site, "%s: %s {", prefix, typ.Name())
		for i := 0; i < val.NumField(); i++ {
			field := val.Field(i)
			if !field.CanInterface() {
				continue
			}
			l.dumpValue(site, field.Interface(), prefix+"."+typ.Field(i).Name, visited, depth+1)
		}
		l.dumpLine(site, "%s: }", prefix)

	case reflect.Map:
		l.dumpLine(site, "%s: %s (len: %d) {", prefix, typ.String(), val.Len())
		iter := val.MapRange()
		for iter.Next() {
			key := fmt.Sprintf("%v", iter.Key().Interface())
			l.dumpValue(site, iter.Value().Interface(), prefix+"["+key+"]", visited, depth+1)
		}
		l.dumpLine(site, "%s: }", prefix)

	case reflect.Slice, reflect.Array:
		l.dumpLine(site, "%s: %s (len: %d) {", prefix, typ.String(), val.Len())
		n := val.Len()
		if n > maxDumpElements {
			n = maxDumpElements
		}
		for i := 0; i < n; i++ {
			l.dumpValue(site, val.Index(i).Interface(), fmt.Sprintf("%s[%d]", prefix, i), visited, depth+1)
		}
		if val.Len() > maxDumpElements {
			l.dumpLine(site, "%s: ... (%d more elements)", prefix, val.Len()-maxDumpElements)
		}
		l.dumpLine(site, "%s: }", prefix)

	default:
		if val.CanInterface() {
			l.dumpLine(site, "%s: %v", prefix, val.Interface())
		} else {
			l.dumpLine(site, "%s: %v", prefix, v)
		}
	}
}
