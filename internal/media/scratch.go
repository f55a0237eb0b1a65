package media

import (
	"errors"
	"fmt"
	"os"
)

// ErrNoScratchDir means none of the configured scratch candidates
// accepted a real write.
var ErrNoScratchDir = errors.New("no writable scratch dir available")

// writableScratchDir probes the candidate directories in order and
// returns the first one that accepts a real file write. A permission
// bit check alone is not trusted; the probe creates and removes an
// actual file.
func writableScratchDir(candidates []string) (string, error) {
	for _, dir := range candidates {
		if dir == "" {
			continue
		}

		if _, err := os.Stat(dir); err != nil {
			_ = os.MkdirAll(dir, 0o777)
		}

		probe, err := os.CreateTemp(dir, "probe_")
		if err != nil {
			continue
		}
		probe.Close()
		os.Remove(probe.Name())
		return dir, nil
	}

	return "", ErrNoScratchDir
}

// writeScratchFile persists body to a uniquely named file in dir.
// On any failure no file is left behind.
func writeScratchFile(dir string, body []byte) (string, error) {
	f, err := os.CreateTemp(dir, "venue_img_")
	if err != nil {
		return "", fmt.Errorf("create scratch file in %s: %w", dir, err)
	}

	if _, err := f.Write(body); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write scratch file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("close scratch file: %w", err)
	}

	return f.Name(), nil
}
