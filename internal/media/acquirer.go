package media

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/unichat/venue-ingest/internal/domain"
	"github.com/unichat/venue-ingest/internal/normalize"
	"github.com/unichat/venue-ingest/internal/pkg/logger"
)

// Slot positions map to stable storage role names.
var slotRoles = map[int]string{
	1: "logo",
	2: "cover",
}

func roleForSlot(slot int) string {
	if role, ok := slotRoles[slot]; ok {
		return role
	}
	return fmt.Sprintf("photo_%d", slot)
}

// Acquirer downloads a row's photos to scratch storage. Slot failures
// are isolated: each slot yields either a MediaItem or an issue string,
// and the batch never aborts.
type Acquirer struct {
	transports  []Transport
	scratchDirs []string
}

// NewAcquirer builds an Acquirer over the given transport strategies,
// tried in order. scratchDirs are probed per acquisition.
func NewAcquirer(transports []Transport, scratchDirs []string) *Acquirer {
	return &Acquirer{transports: transports, scratchDirs: scratchDirs}
}

// Acquire downloads each non-nil photo URL. Nil slots are skipped
// without an issue. The caller owns the returned scratch files and must
// release them with Cleanup.
func (a *Acquirer) Acquire(ctx context.Context, photoURLs []*string) ([]domain.MediaItem, []string) {
	var items []domain.MediaItem
	var issues []string

	for i, u := range photoURLs {
		slot := i + 1
		if u == nil {
			continue
		}

		body, err := a.fetch(ctx, *u)
		if err != nil {
			issues = append(issues, fmt.Sprintf("photo_%d download failed: %v", slot, err))
			continue
		}

		dir, err := writableScratchDir(a.scratchDirs)
		if err != nil {
			issues = append(issues, fmt.Sprintf("photo_%d download failed: %v", slot, err))
			continue
		}

		localPath, err := writeScratchFile(dir, body)
		if err != nil {
			issues = append(issues, fmt.Sprintf("photo_%d download failed: %v", slot, err))
			continue
		}

		items = append(items, domain.MediaItem{
			LocalPath:  localPath,
			RemoteName: roleForSlot(slot),
			Extension:  normalize.ExtensionFromURL(*u),
		})
	}

	return items, issues
}

// fetch tries each transport in order and returns the first non-empty
// body. All transport errors are folded into the returned error.
func (a *Acquirer) fetch(ctx context.Context, url string) ([]byte, error) {
	var failures []string

	for _, t := range a.transports {
		body, err := t.Fetch(ctx, url)
		if err == nil {
			return body, nil
		}
		logger.Debug("photo fetch attempt failed", "transport", t.Name(), "url", url, "error", err.Error())
		failures = append(failures, fmt.Sprintf("%s: %v", t.Name(), err))
	}

	if len(failures) == 0 {
		return nil, fmt.Errorf("no transports configured")
	}
	return nil, fmt.Errorf("%s", strings.Join(failures, "; "))
}

// Release deletes the scratch files behind previously acquired items.
func (a *Acquirer) Release(items []domain.MediaItem) {
	Cleanup(items)
}

// Cleanup removes the scratch files behind the given items. Missing
// files are ignored.
func Cleanup(items []domain.MediaItem) {
	for _, item := range items {
		if item.LocalPath == "" {
			continue
		}
		if err := os.Remove(item.LocalPath); err != nil && !os.IsNotExist(err) {
			logger.Warn("scratch file cleanup failed", "path", item.LocalPath, "error", err.Error())
		}
	}
}
