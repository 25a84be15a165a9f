package xtlog

import (
	"errors"
	"runtime"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// ParseLevel resolves a level name through the canonical table,
// case-insensitively. Unknown names return DefaultLevel; a bad name
// degrades, it does not fail.
func ParseLevel(name string) Level {
	if lvl, ok := levelNames[strings.ToUpper(strings.TrimSpace(name))]; ok {
		return lvl
	}
	return DefaultLevel
}

// Label returns the rendered name for a level: the canonical label when one
// exists, the numeric value otherwise.
func (l Level) Label() string {
	if s, ok := levelLabels[l]; ok {
		return s
	}
	return strconv.Itoa(int(l))
}

// Icon returns the console glyph for a canonical level, empty otherwise.
func (l Level) Icon() string {
	return levelIcons[l]
}

func (l Level) String() string {
	return l.Label()
}

// zerologLevel clamps a Level into zerolog's int8 severity space. The
// backend logger is left wide open; gating happens against Config.Level
// before an event is built, so the clamp only affects the rendered label of
// extreme custom levels.
func zerologLevel(l Level) zerolog.Level {
	if l > 127 {
		return zerolog.Level(127)
	}
	if l < 1 {
		return zerolog.Level(1)
	}
	return zerolog.Level(l)
}

// marshalLevel is installed as zerolog's level field marshaller so rendered
// records carry canonical labels ("SUCCESS", not a bare number) across the
// custom severity space.
func marshalLevel(l zerolog.Level) string {
	return Level(l).Label()
}

// parseRotationSize parses a human size spec ("16 MB", "512 KB", "1 GB",
// bare megabyte count) into whole megabytes for the rolling file writer.
// Kilobyte specs round up to at least one megabyte.
func parseRotationSize(spec string) (int, error) {
	s := strings.TrimSpace(spec)
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, errors.New(errMsgBadRotation)
	}
	n, err := strconv.Atoi(s[:i])
	if err != nil || n <= 0 {
		return 0, errors.New(errMsgBadRotation)
	}

	switch strings.ToUpper(strings.TrimSpace(s[i:])) {
	case "KB", "K":
		mb := (n + 1023) / 1024
		if mb < 1 {
			mb = 1
		}
		return mb, nil
	case "MB", "M", emptyString:
		return n, nil
	case "GB", "G":
		return n * 1024, nil
	}
	return 0, errors.New(errMsgBadRotation)
}

// parseRetentionDays parses a human duration spec ("30 days", "2 weeks",
// bare day count) into whole days for the rolling file writer.
func parseRetentionDays(spec string) (int, error) {
	fields := strings.Fields(strings.ToLower(spec))
	if len(fields) == 0 || len(fields) > 2 {
		return 0, errors.New(errMsgBadRetention)
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil || n <= 0 {
		return 0, errors.New(errMsgBadRetention)
	}
	if len(fields) == 1 {
		return n, nil
	}

	switch fields[1] {
	case "day", "days", "d":
		return n, nil
	case "week", "weeks", "w":
		return n * 7, nil
	case "month", "months":
		return n * 30, nil
	}
	return 0, errors.New(errMsgBadRetention)
}

// goroutineID parses the numeric goroutine id out of the runtime stack
// header ("goroutine 12 [running]:"). Go exposes no cheaper facility; the
// id only feeds the thread field of rendered records and is skipped when the
// active layout does not include one.
func goroutineID() int {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	s := strings.TrimPrefix(string(buf[:n]), "goroutine ")
	if i := strings.IndexByte(s, ' '); i > 0 {
		if id, err := strconv.Atoi(s[:i]); err == nil {
			return id
		}
	}
	return 0
}

// buildErrorChain walks an error's unwrap chain and returns the
// outermost -> innermost messages plus the innermost (root) message. It
// guards against excessive depth and repeated messages to avoid cycles.
// Joined errors continue down their first branch; the joined message itself
// already carries every branch's text.
func buildErrorChain(err error) (chain []string, root string) {
	const maxDepth = 50
	seen := map[string]bool{}

	for err != nil && len(chain) < maxDepth {
		msg := err.Error()
		if seen[msg] {
			break
		}
		seen[msg] = true
		chain = append(chain, msg)

		switch e := err.(type) {
		case interface{ Unwrap() []error }:
			if subs := e.Unwrap(); len(subs) > 0 {
				err = subs[0]
			} else {
				err = nil
			}
		default:
			err = errors.Unwrap(err)
		}
	}

	if len(chain) > 0 {
		root = chain[len(chain)-1]
	}
	return
}

// joinChain returns a single string for the error chain separated by " -> ".
func joinChain(chain []string) string {
	if len(chain) == 0 {
		return emptyString
	}
	return strings.Join(chain, " -> ")
}
