package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"gdfplan/internal/driver"
)

// PlanExt is the extension of exported plan files.
const PlanExt = ".plan.mp"

// PlanFileName maps a program path to its plan file name:
// "dir/kmeans.gdf.toml" becomes "kmeans.plan.mp".
func PlanFileName(program string) string {
	base := filepath.Base(program)
	for _, ext := range []string{".gdf.toml", ".toml"} {
		if trimmed, ok := strings.CutSuffix(base, ext); ok && trimmed != "" {
			base = trimmed
			break
		}
	}
	return base + PlanExt
}

// ExportPlan writes payload into dir as msgpack and returns the file path.
// The file is replaced atomically.
func ExportPlan(dir string, payload *driver.PlanPayload) (path string, err error) {
	if payload == nil {
		return "", fmt.Errorf("export: no plan")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path = filepath.Join(dir, PlanFileName(payload.Path))

	f, err := os.CreateTemp(dir, "tmp-*")
	if err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
		}
	}()

	enc := msgpack.NewEncoder(f)
	if err := enc.Encode(payload); err != nil {
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(f.Name(), path); err != nil {
		return "", err
	}
	return path, nil
}

// ReadPlan decodes a plan file written by ExportPlan.
func ReadPlan(path string) (*driver.PlanPayload, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var payload driver.PlanPayload
	if err := msgpack.NewDecoder(f).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &payload, nil
}
