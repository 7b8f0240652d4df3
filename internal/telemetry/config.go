package telemetry

import (
	"os"
	"path/filepath"

	"github.com/spf13/cast"
)

// DefaultArtifactsDir holds events.jsonl when AGT_ARTIFACTS_DIR is unset.
const DefaultArtifactsDir = ".agent"

// EventsFile is the JSONL file name inside the artifacts directory.
const EventsFile = "events.jsonl"

// ObserveEnabled reports whether JSONL emission is on (AGT_OBSERVE_JSON).
// The variable is read on every call so tests and the config loader can toggle it.
func ObserveEnabled() bool {
	v, ok := os.LookupEnv("AGT_OBSERVE_JSON")
	if !ok {
		return false
	}
	return cast.ToBool(v)
}

// ArtifactsDir returns the directory that receives telemetry files.
func ArtifactsDir() string {
	if d := os.Getenv("AGT_ARTIFACTS_DIR"); d != "" {
		return d
	}
	return DefaultArtifactsDir
}

// EventsPath is the full path of the events file.
func EventsPath() string {
	return filepath.Join(ArtifactsDir(), EventsFile)
}
