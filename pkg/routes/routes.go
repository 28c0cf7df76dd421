// Package routes holds the bridge's fixed route table.
package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

const (
	HealthPath = "/health"
	FixedPath  = "/fn"
	StatsPath  = "/stats"
)

// Mode selects how the invocation route is bound.
type Mode int

const (
	// ModeFixed binds the module to /fn only.
	ModeFixed Mode = iota
	// ModeWildcard binds the module to every path not claimed by a bridge route.
	ModeWildcard
)

func (m Mode) String() string {
	if m == ModeWildcard {
		return "wildcard"
	}
	return "fixed"
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fixed", "fn":
		return ModeFixed, nil
	case "wildcard", "*", "/*":
		return ModeWildcard, nil
	default:
		return ModeFixed, fmt.Errorf("unknown route mode %q", s)
	}
}

type Table struct {
	Mode   Mode
	Invoke http.Handler
	// Stats is optional; the route is only bound when it is set.
	Stats  http.Handler
	Logger *slog.Logger
}

// Handler builds the dispatcher. Patterns carry no method, so every method is accepted.
// /health is more specific than the wildcard pattern "/", so the mux always picks it first.
func (t *Table) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(HealthPath, Health)
	if t.Stats != nil {
		mux.Handle(StatsPath, t.Stats)
	}
	switch t.Mode {
	case ModeWildcard:
		mux.Handle("/", t.Invoke)
	default:
		mux.Handle(FixedPath, t.Invoke)
	}
	if t.Logger != nil {
		t.Logger.Debug("Route table ready", "mode", t.Mode, "stats", t.Stats != nil)
	}
	return mux
}

// Health reports bridge liveness. It never touches the function module.
func Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
