// Package telemetry writes opt-in JSONL events about agent activity. Events
// carry ids and counts, never message text.
package telemetry

import (
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/petasbytes/toolbridge/internal/jsonx"
)

var appendMu sync.Mutex

// Emit appends one line to EventsPath when ObserveEnabled. The line holds
// fields plus "time" (UTC, RFC3339Nano) and "event". Failures are logged and
// dropped; fields is never modified.
func Emit(name string, fields map[string]any) {
	if !ObserveEnabled() {
		return
	}
	line, err := encode(name, fields, time.Now())
	if err != nil {
		slog.Warn("telemetry: encode event", "event", name, "err", err)
		return
	}
	path := EventsPath()
	if err := appendLine(path, line); err != nil {
		slog.Warn("telemetry: append event", "event", name, "path", path, "err", err)
	}
}

func encode(name string, fields map[string]any, now time.Time) ([]byte, error) {
	rec := maps.Clone(fields)
	if rec == nil {
		rec = make(map[string]any, 2)
	}
	rec["time"] = now.UTC().Format(time.RFC3339Nano)
	rec["event"] = name
	b, err := jsonx.Marshal(rec)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// appendLine serializes writers in this process so lines never interleave.
func appendLine(path string, line []byte) error {
	appendMu.Lock()
	defer appendMu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	_, err = f.Write(line)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}
