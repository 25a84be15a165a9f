package xtlog

// Level is a numeric log severity. The canonical values below mirror the
// table used for name resolution; any other positive value is accepted as a
// custom level and compared numerically.
type Level int

// Canonical severity levels.
const (
	TraceLevel    Level = 5
	DebugLevel    Level = 10
	InfoLevel     Level = 20
	SuccessLevel  Level = 25
	WarningLevel  Level = 30
	ErrorLevel    Level = 40
	CriticalLevel Level = 50
)

// DefaultLevel is the fallback severity used when a level name cannot be
// resolved and the default for a fresh configuration.
const DefaultLevel = DebugLevel

// levelNames is the closed lookup table behind ParseLevel. Pure data; keys
// are upper-case.
var levelNames = map[string]Level{
	"TRACE":    TraceLevel,
	"DEBUG":    DebugLevel,
	"INFO":     InfoLevel,
	"SUCCESS":  SuccessLevel,
	"WARNING":  WarningLevel,
	"ERROR":    ErrorLevel,
	"CRITICAL": CriticalLevel,
}

// levelLabels maps canonical levels to the labels written into rendered
// records (console and serialized output alike).
var levelLabels = map[Level]string{
	TraceLevel:    "TRACE",
	DebugLevel:    "DEBUG",
	InfoLevel:     "INFO",
	SuccessLevel:  "SUCCESS",
	WarningLevel:  "WARNING",
	ErrorLevel:    "ERROR",
	CriticalLevel: "CRITICAL",
}

// levelColors maps canonical levels to the ANSI SGR code used for the
// console level label; zero means unstyled.
var levelColors = map[Level]int{
	TraceLevel:    36, // cyan
	DebugLevel:    34, // blue
	InfoLevel:     0,
	SuccessLevel:  32, // green
	WarningLevel:  33, // yellow
	ErrorLevel:    31, // red
	CriticalLevel: 91, // bright red
}

// levelIcons maps canonical levels to the glyph shown next to the console
// level label.
var levelIcons = map[Level]string{
	TraceLevel:    "✏️", // pencil
	DebugLevel:    "\U0001f41e",   // lady beetle
	InfoLevel:     "ℹ️", // information
	SuccessLevel:  "✅️", // check mark
	WarningLevel:  "⚠️", // warning sign
	ErrorLevel:    "❌️", // cross mark
	CriticalLevel: "☠️", // skull and crossbones
}

// Metadata keys consumed by the record formatter.
const (
	// MetaCallFrom optionally holds a function value whose declaration site
	// overrides automatic call-site detection. Stripped before rendering.
	MetaCallFrom = "callfrom"
	// MetaErr optionally holds an error to attach with chain enrichment,
	// for severity methods without an error parameter. Stripped only when
	// the value promotes onto the record; any other value stays ordinary
	// metadata.
	MetaErr = "err"
	// MetaSimplifiedPath receives the resolved origin tag.
	MetaSimplifiedPath = "simplified_path"
)

// Field names used in rendered records.
const (
	FieldPath    = "path"
	FieldProcess = "process"
	FieldThread  = "thread"

	fieldErrorChain   = "error_chain"
	fieldErrorHistory = "error_history"
	fieldErrorRoot    = "error_root"
)

// Environment variables recognized at construction time.
const (
	EnvDevFlag       = "ENV"
	EnvLevel         = "LOG_LEVEL"
	EnvLogDir        = "LOG_DIR"
	EnvFileTemplate  = "LOG_FILE_TEMPLATE"
	EnvRotationSize  = "LOG_ROTATION_SIZE"
	EnvRetentionDays = "LOG_RETENTION_DAYS"
)

// Named console layouts accepted by Config.Format. Unknown names fall back
// to FormatDefault.
const (
	FormatDefault  = "default"
	FormatSimple   = "simple"
	FormatDetailed = "detailed"
	FormatJSON     = "json"
)

// Configuration defaults.
const (
	DefaultRotationSize  = "16 MB"
	DefaultRetentionDays = "30 days"
	DefaultFileTemplate  = "xt_{date}.log"

	defaultQueueSize         = 1024
	defaultShutdownTimeoutMS = 1000
)

// timeFieldLayout is the wire format of record timestamps, serialized and
// rendered alike.
const timeFieldLayout = "2006-01-02 15:04:05.000"

const (
	emptyString = ""

	// unknownPart is the sentinel for unresolvable files and functions;
	// unknownOriginTag is the fully-degraded origin tag.
	unknownPart      = "unknown"
	unknownOriginTag = "unknown:0@unknown"
)

const (
	errMsgNilConfig     = "Logger configuration is nil."
	errMsgConfigInvalid = "Logger configuration is invalid."
	errMsgBadRotation   = "Rotation size is not a recognized size spec."
	errMsgBadRetention  = "Retention period is not a recognized duration spec."
	errMsgNotRunning    = "Logger is not running."
)
