// Package pipeline drives venue rows from the source CSV through
// normalization, media acquisition, object-storage upload, and
// persistence, accumulating a per-run report.
//
// Rows are processed one at a time, end to end. A row's failure never
// aborts the run; only an unreadable source does, before any row is
// touched. Collaborators are consumed through interfaces defined here.
package pipeline

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/unichat/venue-ingest/internal/domain"
	"github.com/unichat/venue-ingest/internal/normalize"
	"github.com/unichat/venue-ingest/internal/pkg/logger"
)

// ErrNoHeader means the source CSV is empty or has no header row.
var ErrNoHeader = errors.New("csv has no header row")

// MediaAcquirer downloads a row's photos to scratch storage. Release
// must delete the scratch files behind previously acquired items.
type MediaAcquirer interface {
	Acquire(ctx context.Context, photoURLs []*string) ([]domain.MediaItem, []string)
	Release(items []domain.MediaItem)
}

// MediaStore is the object-storage boundary: push a named batch into a
// folder, then re-list the folder to verify it.
type MediaStore interface {
	UploadBatch(ctx context.Context, items []domain.MediaItem, folder string) domain.UploadResult
	ListFolder(ctx context.Context, folder string) domain.ListResult
	Bucket() string
}

// VenueRepo persists one normalized venue per call.
type VenueRepo interface {
	Insert(ctx context.Context, v *domain.Venue) error
}

// PointsPicker assigns the loyalty-points value for a venue.
type PointsPicker interface {
	Pick(studentDiscountPresent bool, area *string) int
}

// Params wires a Service. Progress and Diagnose are optional.
type Params struct {
	Repo     VenueRepo
	Media    MediaAcquirer
	Store    MediaStore
	Picker   PointsPicker
	Progress *RunProgress
	// Diagnose extracts driver-level detail from a persistence error.
	Diagnose func(error) *string
	CSVPath  string
	RowLimit int
}

// Service is the row pipeline controller.
type Service struct {
	repo     VenueRepo
	media    MediaAcquirer
	store    MediaStore
	picker   PointsPicker
	progress *RunProgress
	diagnose func(error) *string
	csvPath  string
	rowLimit int
}

// NewService builds the controller from its collaborators.
func NewService(p Params) *Service {
	return &Service{
		repo:     p.Repo,
		media:    p.Media,
		store:    p.Store,
		picker:   p.Picker,
		progress: p.Progress,
		diagnose: p.Diagnose,
		csvPath:  p.CSVPath,
		rowLimit: p.RowLimit,
	}
}

// Run ingests up to the configured row ceiling from the source CSV and
// returns the aggregated report. The only error returns are fatal input
// problems (missing/unreadable file, no header); everything row-level
// lands in the report.
func (s *Service) Run(ctx context.Context) (*domain.Report, error) {
	f, err := os.Open(s.csvPath)
	if err != nil {
		return nil, fmt.Errorf("open source csv: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err == io.EOF {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	runID := uuid.New().String()
	report := domain.NewReport(s.store.Bucket())

	s.progress.Start(ctx, runID)
	logger.Info("ingestion run started", "run_id", runID, "csv", s.csvPath, "row_limit", s.rowLimit)

	for {
		// Ceiling check happens before the read: rows past the limit
		// are abandoned, not buffered.
		if report.Processed >= s.rowLimit {
			break
		}

		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.Warn("csv read aborted mid-run", "run_id", runID, "error", err.Error())
			break
		}

		// A single empty cell is blank-line padding, not a row.
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}

		row := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(record) {
				row[h] = record[i]
			}
		}

		report.Processed++
		s.processRow(ctx, row, report)
		s.progress.Update(ctx, runID, report.Processed, report.Inserted)
	}

	report.DBFailedCount = len(report.DBFailed)
	s.progress.Finish(ctx, runID, report)
	logger.Info("ingestion run finished",
		"run_id", runID,
		"processed", report.Processed,
		"inserted", report.Inserted,
		"media_issues", len(report.Unsuccessful),
		"db_failed", report.DBFailedCount)

	return report, nil
}

// processRow takes one header-keyed row through the full state machine.
// The venue id is generated up front and stays stable for the row's
// lifetime.
func (s *Service) processRow(ctx context.Context, row map[string]string, report *domain.Report) {
	venueID := uuid.New().String()

	name := strings.TrimSpace(row["name"])
	if name == "" {
		report.DBFailed = append(report.DBFailed, domain.RowFailure{ID: venueID, Error: "Missing name"})
		return
	}

	area := normalize.NullableString(row["area"])
	lat, lon := normalize.LatLon(row["langlat"])
	discountPresent := normalize.Boolean(row["student_discount_present"])

	venue := &domain.Venue{
		ID:                     venueID,
		Name:                   name,
		Website:                normalize.NullableString(row["website"]),
		Location:               normalize.NullableString(row["location"]),
		Area:                   area,
		Latitude:               lat,
		Longitude:              lon,
		OpeningTimes:           normalize.NullableString(row["opening_times"]),
		Rating:                 normalize.Rating(row["rating"]),
		Description:            normalize.NullableString(row["description"]),
		StudentDiscountPresent: discountPresent,
		StudentDiscount:        normalize.NullableString(row["student_discount"]),
		Points:                 s.picker.Pick(discountPresent, area),
	}

	photoURLs := []*string{
		normalize.NullableString(row["photo_1"]),
		normalize.NullableString(row["photo_2"]),
	}

	items, mediaIssues := s.media.Acquire(ctx, photoURLs)
	if len(items) > 0 {
		folder := "venues/" + venueID
		mediaIssues = append(mediaIssues, s.uploadAndVerify(ctx, venueID, folder, items, report)...)
	}

	// Scratch files are released before persistence so a DB failure
	// never leaks temp files.
	s.media.Release(items)

	if err := s.repo.Insert(ctx, venue); err != nil {
		failure := domain.RowFailure{ID: venueID, Error: err.Error()}
		if s.diagnose != nil {
			failure.Diag = s.diagnose(err)
		}
		report.DBFailed = append(report.DBFailed, failure)
	} else {
		report.Inserted++
	}

	if len(mediaIssues) > 0 {
		report.Unsuccessful = append(report.Unsuccessful, venueID)
		report.UnsuccessfulDetails = append(report.UnsuccessfulDetails, domain.MediaIssueDetail{
			ID:     venueID,
			Errors: mediaIssues,
		})
	}
}

// uploadAndVerify pushes the batch and re-lists the destination folder.
// Every listing attempt is recorded in the report's storage checks;
// only under-delivery raises an issue. Folders are keyed by a per-run
// unique id, so leftovers from earlier runs cannot inflate the count.
func (s *Service) uploadAndVerify(ctx context.Context, venueID, folder string, items []domain.MediaItem, report *domain.Report) []string {
	var issues []string

	up := s.store.UploadBatch(ctx, items, folder)
	if !up.OK {
		msg := "S3 upload failed"
		if up.File != "" {
			msg += " for file " + up.File
		}
		errText := up.Err
		if errText == "" {
			errText = "Unknown S3 upload error"
		}
		return append(issues, msg+": "+errText)
	}

	list := s.store.ListFolder(ctx, folder)
	if !list.OK {
		return append(issues, "S3 verification failed: "+list.Err)
	}

	expected := len(items)
	actual := len(list.Objects)
	report.StorageChecks = append(report.StorageChecks, domain.StorageCheck{
		ID:       venueID,
		Bucket:   s.store.Bucket(),
		Folder:   folder,
		Expected: expected,
		Actual:   actual,
	})
	if actual < expected {
		issues = append(issues, fmt.Sprintf("S3 verification mismatch: expected %d, found %d", expected, actual))
	}

	return issues
}
