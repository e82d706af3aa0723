package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// LogLevel controls per-request logging behavior.
type LogLevel int

const (
	LevelOff LogLevel = iota
	LevelError
	LevelInfo
	LevelDebug
)

func parseLevel(s string) LogLevel {
	switch s {
	case "off", "":
		return LevelOff
	case "error":
		return LevelError
	case "info":
		return LevelInfo
	case "debug":
		return LevelDebug
	default:
		return LevelInfo
	}
}

func requestLogLevel(r *http.Request, def LogLevel) LogLevel {
	if v := r.URL.Query().Get("log"); v != "" {
		if v == "1" {
			return LevelDebug
		}
		return parseLevel(v)
	}
	if v := r.Header.Get("X-Log-Level"); v != "" {
		return parseLevel(v)
	}
	return def
}

// reqLogger scopes request logs to one request id and level.
type reqLogger struct {
	z     *zerolog.Logger
	lvl   LogLevel
	rid   string
	start time.Time
}

func (a *api) requestLogger(r *http.Request) reqLogger {
	return reqLogger{
		z:     a.opts.Logger,
		lvl:   requestLogLevel(r, a.defLevel),
		rid:   middleware.GetReqID(r.Context()),
		start: time.Now(),
	}
}

func (l reqLogger) begin(path string, promptLen int) {
	if l.z == nil || l.lvl < LevelInfo {
		return
	}
	ev := l.z.Info().Str("path", path).Int("prompt_len", promptLen)
	if l.rid != "" {
		ev = ev.Str("request_id", l.rid)
	}
	ev.Msg("generate start")
}

func (l reqLogger) end(status int, err error) {
	if l.z == nil || l.lvl == LevelOff || (err == nil && l.lvl < LevelInfo) {
		return
	}
	ev := l.z.Info()
	if err != nil && status >= 500 {
		ev = l.z.Error()
	}
	ev = ev.Int("status", status).Dur("dur", time.Since(l.start))
	if l.rid != "" {
		ev = ev.Str("request_id", l.rid)
	}
	if err != nil {
		ev = ev.Err(err)
	}
	ev.Msg("generate end")
}

func (l reqLogger) debug(msg string, kv map[string]any) {
	if l.z == nil || l.lvl < LevelDebug {
		return
	}
	l.z.Debug().Fields(kv).Str("request_id", l.rid).Msg(msg)
}
