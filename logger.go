package kvstore

// Fields is a minimal structured field map for logs.
type Fields map[string]any

// Logger is a tiny leveled logger. Provide an adapter around logging stack.
// If Logger is nil in Options, logging is disabled.
type Logger interface {
	Debug(msg string, f Fields)
	Info(msg string, f Fields)
	Warn(msg string, f Fields)
	Error(msg string, f Fields)
}

type NopLogger struct{}

func (NopLogger) Debug(string, Fields) {}
func (NopLogger) Info(string, Fields)  {}
func (NopLogger) Warn(string, Fields)  {}
func (NopLogger) Error(string, Fields) {}

// WithFields returns a Logger that adds base to every entry.
// Per-call fields win on key collisions.
func WithFields(l Logger, base Fields) Logger {
	if _, nop := l.(NopLogger); nop || len(base) == 0 {
		return l
	}
	return fieldLogger{l: l, base: base}
}

type fieldLogger struct {
	l    Logger
	base Fields
}

func (f fieldLogger) Debug(msg string, fs Fields) { f.l.Debug(msg, f.merge(fs)) }
func (f fieldLogger) Info(msg string, fs Fields)  { f.l.Info(msg, f.merge(fs)) }
func (f fieldLogger) Warn(msg string, fs Fields)  { f.l.Warn(msg, f.merge(fs)) }
func (f fieldLogger) Error(msg string, fs Fields) { f.l.Error(msg, f.merge(fs)) }

func (f fieldLogger) merge(fs Fields) Fields {
	out := make(Fields, len(f.base)+len(fs))
	for k, v := range f.base {
		out[k] = v
	}
	for k, v := range fs {
		out[k] = v
	}
	return out
}
