package xtlog

import (
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

// projectRoot is two directory levels above this package's compiled
// location. Files under it render root-relative; everything else keeps its
// absolute path and contributes at most its two innermost directories to
// the origin tag.
var projectRoot = computeProjectRoot()

func computeProjectRoot() string {
	if _, file, _, ok := runtime.Caller(0); ok {
		return filepath.Dir(filepath.Dir(file))
	}
	return emptyString
}

// Simplify builds the compact origin tag for a resolved call site:
// "<module>.<file>:<line>@<function>" when the file has parent directories,
// "<file>:<line>@<function>" when it has none, "unknown:<line>@<function>"
// when the file is not known. Pure and total: every input yields a
// non-empty tag and nothing escapes.
func Simplify(file string, line int, function string) string {
	return simplifyAgainst(projectRoot, file, line, function)
}

func simplifyAgainst(root string, file string, line int, function string) string {
	suffix := ":" + strconv.Itoa(line) + "@" + function

	if file == emptyString || file == unknownPart {
		return unknownPart + suffix
	}

	p := filepath.ToSlash(filepath.Clean(file))
	if root != emptyString {
		if r := filepath.ToSlash(filepath.Clean(root)); r != "." {
			if prefix := strings.TrimSuffix(r, "/") + "/"; strings.HasPrefix(p, prefix) {
				p = strings.TrimPrefix(p, prefix)
			}
		}
	}

	segs := strings.Split(p, "/")
	name := stem(segs[len(segs)-1])
	if name == emptyString || name == "." {
		return unknownPart + suffix
	}

	dirs := segs[:len(segs)-1]
	if len(dirs) > 2 {
		dirs = dirs[len(dirs)-2:]
	}
	parts := make([]string, 0, 3)
	for _, d := range dirs {
		if d != emptyString && d != "." {
			parts = append(parts, d)
		}
	}
	if len(parts) == 0 {
		return name + suffix
	}
	parts = append(parts, name)
	return strings.Join(parts, ".") + suffix
}

// stem strips the extension from a file name. Names that are nothing but
// extension (".bashrc") keep their name.
func stem(base string) string {
	if ext := filepath.Ext(base); ext != emptyString && ext != base {
		return strings.TrimSuffix(base, ext)
	}
	return base
}
