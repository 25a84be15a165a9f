package xtlog

import (
	"reflect"
	"runtime"
	"strings"
)

// CallSite is a resolved code location: the defining file, line, and
// declared name of a function, or the unknown sentinels when resolution
// fails.
type CallSite struct {
	File     string
	Line     int
	Function string
}

var unknownCallSite = CallSite{File: unknownPart, Line: 0, Function: unknownPart}

// resolveCallSite maps a function value to its declaration site. Total:
// nil, non-function and unresolvable inputs yield the unknown site, a
// recoverable default, never an error. The preferred path reads the
// compiled symbol table; when the runtime has no record of the pointer the
// reflected type string still names the function's shape, with line 0.
func resolveCallSite(fn any) CallSite {
	if fn == nil {
		return unknownCallSite
	}
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return unknownCallSite
	}

	rf := runtime.FuncForPC(v.Pointer())
	if rf == nil {
		return CallSite{File: unknownPart, Line: 0, Function: v.Type().String()}
	}
	file, line := rf.FileLine(rf.Entry())
	return CallSite{File: file, Line: line, Function: baseFuncName(rf.Name())}
}

// callerSite captures a stack frame as a CallSite. Skip counts frames above
// the caller: callerSite(0) reports the immediate caller of callerSite.
func callerSite(skip int) CallSite {
	pc, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return unknownCallSite
	}
	site := CallSite{File: file, Line: line, Function: unknownPart}
	if rf := runtime.FuncForPC(pc); rf != nil {
		site.Function = baseFuncName(rf.Name())
	}
	return site
}

// baseFuncName reduces a runtime symbol ("pkg/path.(*T).Method-fm") to its
// declared name: the package path and qualifier are cut, and the synthetic
// suffix the compiler appends to method values is trimmed.
func baseFuncName(qualified string) string {
	name := qualified
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.IndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSuffix(name, "-fm")
	if name == emptyString {
		return unknownPart
	}
	return name
}
