package pipeline

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unichat/venue-ingest/internal/domain"
	"github.com/unichat/venue-ingest/internal/media"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var csvHeader = []string{
	"name", "website", "location", "area", "langlat", "opening_times",
	"rating", "description", "student_discount_present", "student_discount",
	"photo_1", "photo_2",
}

func writeCSV(t *testing.T, rows ...[]string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "pubs.csv")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := csv.NewWriter(f)
	require.NoError(t, w.Write(csvHeader))
	for _, row := range rows {
		require.NoError(t, w.Write(row))
	}
	w.Flush()
	require.NoError(t, w.Error())
	return path
}

func venueRow(name string) []string {
	return []string{
		name, "https://example.com", "12 High St", "Leith", "55.95,-3.18",
		"Mon-Fri 9-5", "4.7", "A fine pub", "true", "10% off",
		"https://photos.example/logo.png", "https://photos.example/cover.jpg",
	}
}

type fakeAcquirer struct {
	items        []domain.MediaItem
	issues       []string
	acquireCalls int
	released     [][]domain.MediaItem
}

func (f *fakeAcquirer) Acquire(ctx context.Context, photoURLs []*string) ([]domain.MediaItem, []string) {
	f.acquireCalls++
	return f.items, f.issues
}

func (f *fakeAcquirer) Release(items []domain.MediaItem) {
	f.released = append(f.released, items)
}

type fakeStore struct {
	uploadResult  domain.UploadResult
	listResult    domain.ListResult
	uploadFolders []string
	listFolders   []string
}

func (f *fakeStore) UploadBatch(ctx context.Context, items []domain.MediaItem, folder string) domain.UploadResult {
	f.uploadFolders = append(f.uploadFolders, folder)
	return f.uploadResult
}

func (f *fakeStore) ListFolder(ctx context.Context, folder string) domain.ListResult {
	f.listFolders = append(f.listFolders, folder)
	return f.listResult
}

func (f *fakeStore) Bucket() string { return "media.uni-chat.co.uk" }

type fakeRepo struct {
	err     error
	inserts []*domain.Venue
}

func (f *fakeRepo) Insert(ctx context.Context, v *domain.Venue) error {
	if f.err != nil {
		return f.err
	}
	f.inserts = append(f.inserts, v)
	return nil
}

type fixedPicker struct{ value int }

func (f fixedPicker) Pick(studentDiscountPresent bool, area *string) int { return f.value }

func setupPipelineTest(t *testing.T, csvPath string, rowLimit int) (*Service, *fakeRepo, *fakeAcquirer, *fakeStore) {
	t.Helper()

	repo := &fakeRepo{}
	acquirer := &fakeAcquirer{}
	store := &fakeStore{
		uploadResult: domain.UploadResult{OK: true},
		listResult:   domain.ListResult{OK: true},
	}

	svc := NewService(Params{
		Repo:     repo,
		Media:    acquirer,
		Store:    store,
		Picker:   fixedPicker{value: 20},
		CSVPath:  csvPath,
		RowLimit: rowLimit,
	})
	return svc, repo, acquirer, store
}

func mediaItems(t *testing.T, roles ...string) []domain.MediaItem {
	t.Helper()
	dir := t.TempDir()
	var items []domain.MediaItem
	for _, role := range roles {
		path := filepath.Join(dir, role+".jpg")
		require.NoError(t, os.WriteFile(path, []byte("img"), 0o644))
		items = append(items, domain.MediaItem{LocalPath: path, RemoteName: role, Extension: "jpg"})
	}
	return items
}

// =============================================================================
// RUN-LEVEL BEHAVIOR
// =============================================================================

func TestRunHappyPath(t *testing.T) {
	path := writeCSV(t, venueRow("The Bell"), venueRow("The Anchor"))
	svc, repo, acquirer, store := setupPipelineTest(t, path, 5)

	acquirer.items = mediaItems(t, "logo", "cover")
	store.listResult = domain.ListResult{OK: true, Objects: []string{"a", "b"}}

	report, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "success", report.Result)
	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, 2, report.Inserted)
	assert.Equal(t, "media.uni-chat.co.uk", report.Bucket)
	assert.Empty(t, report.Unsuccessful)
	assert.Empty(t, report.DBFailed)
	assert.Equal(t, 0, report.DBFailedCount)

	// One storage check per row, folder partitioned by venue id.
	require.Len(t, report.StorageChecks, 2)
	require.Len(t, repo.inserts, 2)
	for i, check := range report.StorageChecks {
		assert.Equal(t, repo.inserts[i].ID, check.ID)
		assert.Equal(t, "venues/"+repo.inserts[i].ID, check.Folder)
		assert.Equal(t, 2, check.Expected)
		assert.Equal(t, 2, check.Actual)
	}

	// Venue ids are unique across the run.
	assert.NotEqual(t, repo.inserts[0].ID, repo.inserts[1].ID)

	// Normalized fields made it through.
	v := repo.inserts[0]
	assert.Equal(t, "The Bell", v.Name)
	require.NotNil(t, v.Latitude)
	require.NotNil(t, v.Longitude)
	assert.InDelta(t, 55.95, *v.Latitude, 1e-9)
	assert.InDelta(t, -3.18, *v.Longitude, 1e-9)
	require.NotNil(t, v.Rating)
	assert.Equal(t, "4.7", *v.Rating)
	assert.True(t, v.StudentDiscountPresent)
	assert.Equal(t, 20, v.Points)

	// Scratch files released once per row.
	assert.Len(t, acquirer.released, 2)
}

func TestRunMissingNameRejectsBeforeMedia(t *testing.T) {
	row := venueRow("")
	path := writeCSV(t, row)
	svc, repo, acquirer, store := setupPipelineTest(t, path, 5)

	report, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 0, report.Inserted)
	require.Len(t, report.DBFailed, 1)
	assert.Equal(t, "Missing name", report.DBFailed[0].Error)
	assert.NotEmpty(t, report.DBFailed[0].ID)
	assert.Equal(t, 1, report.DBFailedCount)

	// No media, storage, or persistence activity for a rejected row.
	assert.Zero(t, acquirer.acquireCalls)
	assert.Empty(t, store.uploadFolders)
	assert.Empty(t, repo.inserts)
	assert.Empty(t, report.Unsuccessful)
}

func TestRunMediaFailureStillPersists(t *testing.T) {
	path := writeCSV(t, venueRow("The Bell"))
	svc, repo, acquirer, store := setupPipelineTest(t, path, 5)

	acquirer.items = nil
	acquirer.issues = []string{
		"photo_1 download failed: fetch failed (http=0, err=connection refused)",
		"photo_2 download failed: fetch failed (http=0, err=connection refused)",
	}

	report, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Inserted)
	require.Len(t, repo.inserts, 1)

	require.Len(t, report.Unsuccessful, 1)
	assert.Equal(t, repo.inserts[0].ID, report.Unsuccessful[0])
	require.Len(t, report.UnsuccessfulDetails, 1)
	assert.Len(t, report.UnsuccessfulDetails[0].Errors, 2)

	// Empty batch: upload stage is a no-op.
	assert.Empty(t, store.uploadFolders)
	assert.Empty(t, report.StorageChecks)
}

func TestRunUploadFailureRecorded(t *testing.T) {
	path := writeCSV(t, venueRow("The Bell"))
	svc, _, acquirer, store := setupPipelineTest(t, path, 5)

	acquirer.items = mediaItems(t, "logo")
	store.uploadResult = domain.UploadResult{Err: "AccessDenied", File: "logo.jpg"}

	report, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Inserted)
	require.Len(t, report.UnsuccessfulDetails, 1)
	assert.Equal(t, "S3 upload failed for file logo.jpg: AccessDenied", report.UnsuccessfulDetails[0].Errors[0])

	// Upload failed, so no verification listing ran.
	assert.Empty(t, store.listFolders)
	assert.Empty(t, report.StorageChecks)
}

func TestRunVerificationListError(t *testing.T) {
	path := writeCSV(t, venueRow("The Bell"))
	svc, _, acquirer, store := setupPipelineTest(t, path, 5)

	acquirer.items = mediaItems(t, "logo")
	store.listResult = domain.ListResult{Err: "NoSuchBucket"}

	report, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Inserted)
	require.Len(t, report.UnsuccessfulDetails, 1)
	assert.Equal(t, "S3 verification failed: NoSuchBucket", report.UnsuccessfulDetails[0].Errors[0])
	assert.Empty(t, report.StorageChecks)
}

func TestRunVerificationCountMismatch(t *testing.T) {
	path := writeCSV(t, venueRow("The Bell"))
	svc, _, acquirer, store := setupPipelineTest(t, path, 5)

	acquirer.items = mediaItems(t, "logo", "cover")
	store.listResult = domain.ListResult{OK: true, Objects: []string{"only-one"}}

	report, err := svc.Run(context.Background())
	require.NoError(t, err)

	// The check is recorded for audit AND the under-delivery is flagged.
	require.Len(t, report.StorageChecks, 1)
	assert.Equal(t, 2, report.StorageChecks[0].Expected)
	assert.Equal(t, 1, report.StorageChecks[0].Actual)

	require.Len(t, report.UnsuccessfulDetails, 1)
	assert.Equal(t, "S3 verification mismatch: expected 2, found 1", report.UnsuccessfulDetails[0].Errors[0])
}

func TestRunOverDeliveryNotFlagged(t *testing.T) {
	path := writeCSV(t, venueRow("The Bell"))
	svc, _, acquirer, store := setupPipelineTest(t, path, 5)

	acquirer.items = mediaItems(t, "logo")
	store.listResult = domain.ListResult{OK: true, Objects: []string{"a", "b", "c"}}

	report, err := svc.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, report.StorageChecks, 1)
	assert.Equal(t, 3, report.StorageChecks[0].Actual)
	assert.Empty(t, report.Unsuccessful)
}

func TestRunPersistenceFailure(t *testing.T) {
	path := writeCSV(t, venueRow("The Bell"))
	svc, repo, acquirer, _ := setupPipelineTest(t, path, 5)

	repo.err = errors.New("insert venue: pq: duplicate key value")
	diag := "code=23505"
	svc.diagnose = func(err error) *string { return &diag }

	acquirer.items = nil
	acquirer.issues = []string{"photo_1 download failed: fetch failed (http=403)"}

	report, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 0, report.Inserted)
	require.Len(t, report.DBFailed, 1)
	assert.Contains(t, report.DBFailed[0].Error, "duplicate key")
	require.NotNil(t, report.DBFailed[0].Diag)
	assert.Equal(t, "code=23505", *report.DBFailed[0].Diag)

	// Media issues are still reported for the failed row.
	require.Len(t, report.UnsuccessfulDetails, 1)
}

func TestRunCeiling(t *testing.T) {
	path := writeCSV(t,
		venueRow("One"), venueRow("Two"), venueRow("Three"), venueRow("Four"))
	svc, repo, _, _ := setupPipelineTest(t, path, 2)

	report, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, 2, report.Inserted)
	require.Len(t, repo.inserts, 2)
	assert.Equal(t, "One", repo.inserts[0].Name)
	assert.Equal(t, "Two", repo.inserts[1].Name)
}

func TestRunBlankLinePadding(t *testing.T) {
	// Hand-built file: blank lines collapse to single empty cells and
	// must not count toward the ceiling.
	path := filepath.Join(t.TempDir(), "pubs.csv")
	content := strings.Join(csvHeader, ",") + "\n" +
		strings.Join(venueRow("The Bell"), ",") + "\n" +
		"\"\"\n" +
		strings.Join(venueRow("The Anchor"), ",") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	svc, _, _, _ := setupPipelineTest(t, path, 2)

	report, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, 2, report.Inserted)
}

func TestRunMissingFileIsFatal(t *testing.T) {
	svc, _, acquirer, _ := setupPipelineTest(t, "/nonexistent/pubs.csv", 5)

	report, err := svc.Run(context.Background())
	assert.Nil(t, report)
	require.Error(t, err)
	assert.Zero(t, acquirer.acquireCalls)
}

func TestRunNoHeaderIsFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	svc, _, _, _ := setupPipelineTest(t, path, 5)

	_, err := svc.Run(context.Background())
	assert.ErrorIs(t, err, ErrNoHeader)
}

// =============================================================================
// PROGRESS TRACKING
// =============================================================================

func TestRunProgressTracking(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	path := writeCSV(t, venueRow("The Bell"), venueRow("The Anchor"))
	svc, _, _, _ := setupPipelineTest(t, path, 5)
	svc.progress = NewRunProgress(rdb)

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Processed)

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.True(t, strings.HasPrefix(keys[0], "ingest:run:"))
	assert.Equal(t, "success", mr.HGet(keys[0], "state"))
	assert.Equal(t, "2", mr.HGet(keys[0], "processed"))
	assert.Equal(t, "2", mr.HGet(keys[0], "inserted"))
}

func TestRunProgressNilTrackerIsNoop(t *testing.T) {
	path := writeCSV(t, venueRow("The Bell"))
	svc, _, _, _ := setupPipelineTest(t, path, 5)
	svc.progress = NewRunProgress(nil)

	_, err := svc.Run(context.Background())
	require.NoError(t, err)
}

// =============================================================================
// SCRATCH LIFECYCLE (real acquirer, stubbed transport)
// =============================================================================

type canned struct{ body []byte }

func (c canned) Name() string { return "primary" }

func (c canned) Fetch(ctx context.Context, url string) ([]byte, error) {
	return c.body, nil
}

func TestRunScratchFilesReleased(t *testing.T) {
	scratch := t.TempDir()
	acquirer := media.NewAcquirer([]media.Transport{canned{body: []byte("img")}}, []string{scratch})

	path := writeCSV(t, venueRow("The Bell"))
	repo := &fakeRepo{err: errors.New("insert venue: connection refused")}
	store := &fakeStore{
		uploadResult: domain.UploadResult{OK: true},
		listResult:   domain.ListResult{OK: true, Objects: []string{"a", "b"}},
	}

	svc := NewService(Params{
		Repo:     repo,
		Media:    acquirer,
		Store:    store,
		Picker:   fixedPicker{},
		CSVPath:  path,
		RowLimit: 5,
	})

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Inserted)

	// Even with the DB failing after upload, no scratch files survive.
	entries, err := os.ReadDir(scratch)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
