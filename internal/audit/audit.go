package audit

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is the severity of an audit entry.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Logger receives fire-and-forget audit entries. Implementations never block
// the caller on persistence and never report failures.
type Logger interface {
	Log(level Level, msg string, fields map[string]any)
}

// Zap writes audit entries to a named zap logger.
type Zap struct {
	logger *zap.Logger
}

// NewZap returns an audit logger writing through base under the "audit" name.
func NewZap(base *zap.Logger) *Zap {
	if base == nil {
		base = zap.NewNop()
	}
	return &Zap{logger: base.Named("audit")}
}

// NewZapWithFile tees audit entries into a JSON file at path in addition to base.
func NewZapWithFile(base *zap.Logger, path string) (*Zap, func() error, error) {
	if path == "" {
		return NewZap(base), func() error { return nil }, nil
	}

	sink, closeSink, err := zap.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open audit log %s: %w", path, err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), sink, zapcore.DebugLevel)

	if base == nil {
		base = zap.NewNop()
	}
	teed := base.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, fileCore)
	}))

	closer := func() error {
		_ = sink.Sync()
		closeSink()
		return nil
	}
	return &Zap{logger: teed.Named("audit")}, closer, nil
}

// Log implements Logger.
func (z *Zap) Log(level Level, msg string, fields map[string]any) {
	zf := toFields(fields)
	switch level {
	case LevelDebug:
		z.logger.Debug(msg, zf...)
	case LevelWarn:
		z.logger.Warn(msg, zf...)
	case LevelError:
		z.logger.Error(msg, zf...)
	default:
		z.logger.Info(msg, zf...)
	}
}

// toFields converts the context map into zap fields with a stable key order.
func toFields(fields map[string]any) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		out = append(out, zap.Any(k, fields[k]))
	}
	return out
}

type nop struct{}

func (nop) Log(Level, string, map[string]any) {}

// Nop discards every entry.
var Nop Logger = nop{}

// Entry is one captured audit call.
type Entry struct {
	Level  Level
	Msg    string
	Fields map[string]any
	Time   time.Time
}

// Recorder keeps entries in memory.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Log implements Logger.
func (r *Recorder) Log(level Level, msg string, fields map[string]any) {
	copied := make(map[string]any, len(fields))
	for k, v := range fields {
		copied[k] = v
	}

	r.mu.Lock()
	r.entries = append(r.entries, Entry{Level: level, Msg: msg, Fields: copied, Time: time.Now()})
	r.mu.Unlock()
}

// Entries returns a copy of everything recorded so far.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Find returns recorded entries with the given message.
func (r *Recorder) Find(msg string) []Entry {
	var out []Entry
	for _, e := range r.Entries() {
		if e.Msg == msg {
			out = append(out, e)
		}
	}
	return out
}
