package domain

// Venue is a single normalized row from the source CSV, ready for
// persistence. Optional fields are nil when the source cell was empty
// or failed validation.
type Venue struct {
	ID                     string   `json:"id"`
	Name                   string   `json:"name"`
	Website                *string  `json:"website"`
	Location               *string  `json:"location"`
	Area                   *string  `json:"area"`
	Latitude               *float64 `json:"latitude"`
	Longitude              *float64 `json:"longitude"`
	OpeningTimes           *string  `json:"opening_times"`
	Rating                 *string  `json:"rating"`
	Description            *string  `json:"description"`
	StudentDiscountPresent bool     `json:"student_discount_present"`
	StudentDiscount        *string  `json:"student_discount"`
	Points                 int      `json:"points"`
}

// MediaItem is a downloaded photo staged on local disk, waiting to be
// pushed to object storage. The pipeline owns LocalPath exclusively
// until it releases the file.
type MediaItem struct {
	LocalPath  string `json:"local_path"`
	RemoteName string `json:"remote_name"` // "logo", "cover", "photo_3", ...
	Extension  string `json:"extension"`   // lower-case, without dot
}

// ObjectName returns the storage object name for the item,
// e.g. "logo.jpg".
func (m MediaItem) ObjectName() string {
	return m.RemoteName + "." + m.Extension
}

// UploadResult is the tagged outcome of a batch upload to object
// storage. File names the object that failed when identifiable.
type UploadResult struct {
	OK   bool
	Err  string
	File string
}

// ListResult is the tagged outcome of listing a storage folder.
type ListResult struct {
	OK      bool
	Err     string
	Objects []string
}

// RowOutcome records what happened to one normalized row.
type RowOutcome struct {
	VenueID          string   `json:"venue_id"`
	Persisted        bool     `json:"persisted"`
	MediaIssues      []string `json:"media_issues"`
	PersistenceError *string  `json:"persistence_error"`
}
