// Package xtlog provides a concurrency-safe application logging facade over
// rs/zerolog with origin tags, a shared process-wide instance, and rotating
// file output.
//
// Key features
//   - Origin tags: every record carries a "pkg.file:line@function" path built
//     from the caller, or from an explicit function value via CallFrom
//   - Seven named levels (TRACE through CRITICAL) plus arbitrary custom
//     positive levels through Log
//   - One rolling file sink (lumberjack, size/age rotation, optional async
//     queue) and one styled console sink; console falls back on automatically
//     when the file sink cannot be created
//   - Shared instance via GetOrCreate, independent instances via New, derived
//     views with bound metadata via Bind
//   - Graceful shutdown that drains in-flight records (bounded timeout)
//   - Error chain enrichment: Exception logs the full unwrap chain and the
//     root cause alongside the message
//
// Typical usage
//
//	log, err := xtlog.GetOrCreate(xtlog.WithLevelName("info"))
//	if err != nil { panic(err) }
//	defer log.Close()
//
//	log.Info("server started on port %d", 8080)
//	log.Warning("cache miss", xtlog.Meta{"key": key})
//	log.Exception(err, "request failed")
package xtlog
