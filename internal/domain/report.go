package domain

// Report is the aggregated outcome of one ingestion run. Field names
// match the JSON contract consumed by the admin frontend.
type Report struct {
	Result              string             `json:"result"`
	Processed           int                `json:"processed"`
	Inserted            int                `json:"inserted"`
	Bucket              string             `json:"bucket"`
	Unsuccessful        []string           `json:"unsuccessful"`
	UnsuccessfulDetails []MediaIssueDetail `json:"unsuccessful_details"`
	StorageChecks       []StorageCheck     `json:"s3_checks"`
	DBFailedCount       int                `json:"db_failed_count"`
	DBFailed            []RowFailure       `json:"db_failed"`
}

// NewReport returns an empty success-shaped report for the given
// bucket. Slices are non-nil so the JSON output always carries arrays.
func NewReport(bucket string) *Report {
	return &Report{
		Result:              "success",
		Bucket:              bucket,
		Unsuccessful:        []string{},
		UnsuccessfulDetails: []MediaIssueDetail{},
		StorageChecks:       []StorageCheck{},
		DBFailed:            []RowFailure{},
	}
}

// MediaIssueDetail lists the non-fatal media problems for one venue.
type MediaIssueDetail struct {
	ID     string   `json:"id"`
	Errors []string `json:"errors"`
}

// StorageCheck is one post-upload verification record. Every listing
// attempt is recorded here, whether or not it raised an issue.
type StorageCheck struct {
	ID       string `json:"id"`
	Bucket   string `json:"bucket"`
	Folder   string `json:"folder"`
	Expected int    `json:"expected"`
	Actual   int    `json:"actual"`
}

// RowFailure is a row that was rejected or failed persistence.
type RowFailure struct {
	ID    string  `json:"id"`
	Error string  `json:"error"`
	Diag  *string `json:"diag,omitempty"`
}

// FailureResponse is the top-level failure shape returned when the run
// aborts before any row is processed (missing or unreadable source).
type FailureResponse struct {
	Result  string `json:"result"`
	Message string `json:"message"`
}
