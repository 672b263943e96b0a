package logx

import (
	"context"
	"log/slog"

	"github.com/rs/zerolog"
)

// Slog exposes the logger through the stdlib log/slog API. Services that
// take an injected *slog.Logger write to the same sinks as everything
// else; records produced here and Fields produced by Logger end up in
// the same zerolog root.
func (l Logger) Slog() *slog.Logger {
	return slog.New(slogHandler{l: l})
}

// Slog returns a *slog.Logger backed by the service's live root, so it
// follows Apply() level and sink changes like any Service-derived Logger.
func (s *Service) Slog() *slog.Logger { return s.Logger().Slog() }

// slogHandler adapts the zerolog root to slog.Handler. Groups are
// flattened into dotted keys; zerolog has no native group nesting.
type slogHandler struct {
	l      Logger
	fields []Field
	group  string
}

func slogToZerolog(level slog.Level) zerolog.Level {
	switch {
	case level < slog.LevelDebug:
		return zerolog.TraceLevel
	case level < slog.LevelInfo:
		return zerolog.DebugLevel
	case level < slog.LevelWarn:
		return zerolog.InfoLevel
	case level < slog.LevelError:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

func (h slogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.l.Enabled(slogToZerolog(level))
}

func (h slogHandler) Handle(_ context.Context, r slog.Record) error {
	zl := h.l.root()
	e := zl.WithLevel(slogToZerolog(r.Level))
	if e == nil {
		return nil
	}
	for _, f := range h.l.fields {
		if f != nil {
			f(e)
		}
	}
	for _, f := range h.fields {
		f(e)
	}
	r.Attrs(func(a slog.Attr) bool {
		attrField(h.group, a)(e)
		return true
	})
	e.Msg(r.Message)
	return nil
}

func (h slogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	cp := h
	cp.fields = append([]Field(nil), h.fields...)
	for _, a := range attrs {
		cp.fields = append(cp.fields, attrField(h.group, a))
	}
	return cp
}

func (h slogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	cp := h
	cp.group = joinGroup(h.group, name)
	return cp
}

func joinGroup(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

// attrField converts one slog attr to a Field under the group prefix.
func attrField(prefix string, a slog.Attr) Field {
	a.Value = a.Value.Resolve()

	if a.Value.Kind() == slog.KindGroup {
		sub := prefix
		if a.Key != "" {
			sub = joinGroup(prefix, a.Key)
		}
		attrs := a.Value.Group()
		return func(e *zerolog.Event) {
			for _, ga := range attrs {
				attrField(sub, ga)(e)
			}
		}
	}

	if a.Key == "" {
		return func(*zerolog.Event) {}
	}
	key := a.Key
	if prefix != "" {
		key = joinGroup(prefix, a.Key)
	}

	switch a.Value.Kind() {
	case slog.KindString:
		return String(key, a.Value.String())
	case slog.KindInt64:
		return Int64(key, a.Value.Int64())
	case slog.KindUint64:
		return Uint64(key, a.Value.Uint64())
	case slog.KindBool:
		return Bool(key, a.Value.Bool())
	case slog.KindFloat64:
		return Float64(key, a.Value.Float64())
	case slog.KindDuration:
		return Duration(key, a.Value.Duration())
	case slog.KindTime:
		return Time(key, a.Value.Time())
	default:
		return Any(key, a.Value.Any())
	}
}
