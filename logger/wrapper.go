package logger

// LevelWrapper lifts a Base into a Logger and carries any key/value pairs
// bound via With.
type LevelWrapper struct {
	base Base
	kv   []any
}

func WrapLogger(l Base) Logger {
	return &LevelWrapper{base: l}
}

func (w *LevelWrapper) Level() LogLevel {
	return w.base.Level()
}

func (w *LevelWrapper) Log(level LogLevel, msg string, kv ...any) {
	if len(w.kv) > 0 {
		merged := make([]any, 0, len(w.kv)+len(kv))
		merged = append(merged, w.kv...)
		merged = append(merged, kv...)
		kv = merged
	}
	w.base.Log(level, msg, kv...)
}

func (w *LevelWrapper) With(kv ...any) Logger {
	if len(kv) == 0 {
		return w
	}
	merged := make([]any, 0, len(w.kv)+len(kv))
	merged = append(merged, w.kv...)
	merged = append(merged, kv...)
	return &LevelWrapper{base: w.base, kv: merged}
}

func (w *LevelWrapper) Debug(msg string, kv ...any) {
	w.Log(DebugLevel, msg, kv...)
}

func (w *LevelWrapper) Info(msg string, kv ...any) {
	w.Log(InfoLevel, msg, kv...)
}

func (w *LevelWrapper) Warn(msg string, kv ...any) {
	w.Log(WarnLevel, msg, kv...)
}

func (w *LevelWrapper) Error(msg string, kv ...any) {
	w.Log(ErrorLevel, msg, kv...)
}
