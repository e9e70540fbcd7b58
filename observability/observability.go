package observability

import (
	"fmt"
	"io"
	"sync"
	"time"
)

type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
}

type Field interface {
	Key() string
	Value() interface{}
}

type stringField struct{ key, val string }

func (f stringField) Key() string        { return f.key }
func (f stringField) Value() interface{} { return f.val }

type intField struct {
	key string
	val int
}

func (f intField) Key() string        { return f.key }
func (f intField) Value() interface{} { return f.val }

type float64Field struct {
	key string
	val float64
}

func (f float64Field) Key() string        { return f.key }
func (f float64Field) Value() interface{} { return f.val }

type durationField struct {
	key string
	val time.Duration
}

func (f durationField) Key() string        { return f.key }
func (f durationField) Value() interface{} { return f.val }

type errorField struct {
	key string
	err error
}

func (f errorField) Key() string        { return f.key }
func (f errorField) Value() interface{} { return f.err }

func String(key, value string) Field             { return stringField{key, value} }
func Int(key string, value int) Field            { return intField{key, value} }
func Float64(key string, value float64) Field    { return float64Field{key, value} }
func Duration(key string, v time.Duration) Field { return durationField{key, v} }
func Error(key string, err error) Field          { return errorField{key, err} }

type NopLogger struct{}

func (NopLogger) Debug(string, ...Field) {}
func (NopLogger) Info(string, ...Field)  {}
func (NopLogger) Warn(string, ...Field)  {}
func (NopLogger) Error(string, ...Field) {}
func (NopLogger) With(...Field) Logger   { return NopLogger{} }

// Level controls the minimum severity a WriterLogger emits.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	}
	return "UNKNOWN"
}

// WriterLogger writes leveled, timestamped lines to an io.Writer. Safe for
// concurrent use; the acquisition goroutine and the consumer share one.
type WriterLogger struct {
	mu    *sync.Mutex
	w     io.Writer
	min   Level
	bound []Field
}

// NewWriterLogger returns a Logger emitting records at or above min to w.
func NewWriterLogger(w io.Writer, min Level) *WriterLogger {
	return &WriterLogger{mu: &sync.Mutex{}, w: w, min: min}
}

func (l *WriterLogger) Debug(msg string, fields ...Field) { l.log(LevelDebug, msg, fields) }
func (l *WriterLogger) Info(msg string, fields ...Field)  { l.log(LevelInfo, msg, fields) }
func (l *WriterLogger) Warn(msg string, fields ...Field)  { l.log(LevelWarn, msg, fields) }
func (l *WriterLogger) Error(msg string, fields ...Field) { l.log(LevelError, msg, fields) }

func (l *WriterLogger) With(fields ...Field) Logger {
	bound := make([]Field, 0, len(l.bound)+len(fields))
	bound = append(bound, l.bound...)
	bound = append(bound, fields...)
	return &WriterLogger{mu: l.mu, w: l.w, min: l.min, bound: bound}
}

func (l *WriterLogger) log(lvl Level, msg string, fields []Field) {
	if lvl < l.min {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, "%s [%s] %s", time.Now().UTC().Format(time.RFC3339), lvl, msg)
	for _, f := range l.bound {
		fmt.Fprintf(l.w, " %s=%v", f.Key(), f.Value())
	}
	for _, f := range fields {
		fmt.Fprintf(l.w, " %s=%v", f.Key(), f.Value())
	}
	fmt.Fprintln(l.w)
}

// Standard metric names emitted by the pipeline.
const (
	MetricAcquireTime  = "scan.acquire.duration"
	MetricPageCount    = "scan.pages.count"
	MetricKeptCount    = "scan.pages.kept"
	MetricGeometryTime = "scan.geometry.duration"
	MetricOCRTime      = "scan.ocr.duration"
	MetricRenderTime   = "scan.render.duration"
)
