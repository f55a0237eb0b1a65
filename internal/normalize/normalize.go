// Package normalize converts raw CSV cells into typed, validated
// values. Every function is total: bad input yields an absent value,
// never an error.
package normalize

import (
	"math"
	"net/url"
	"path"
	"strconv"
	"strings"
)

// NullableString trims the cell and returns nil for empty input.
func NullableString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// Boolean reports whether the cell is an affirmative token. Anything
// unrecognized, including garbage, is false.
func Boolean(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "t", "yes", "y":
		return true
	}
	return false
}

// Rating parses a rating cell into a string with exactly one fractional
// digit. Non-numeric input or values outside [0, 5] are discarded.
func Rating(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}

	rating, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsNaN(rating) || math.IsInf(rating, 0) {
		return nil
	}
	if rating < 0 || rating > 5 {
		return nil
	}

	formatted := strconv.FormatFloat(rating, 'f', 1, 64)
	return &formatted
}

// LatLon parses a combined "lat,lon" cell. Both coordinates are
// returned or neither: wrong token count or a non-numeric token yields
// (nil, nil), never a partial pair.
func LatLon(v string) (*float64, *float64) {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil, nil
	}

	parts := strings.Split(trimmed, ",")
	if len(parts) != 2 {
		return nil, nil
	}

	lat, latErr := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lon, lonErr := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if latErr != nil || lonErr != nil {
		return nil, nil
	}

	return &lat, &lon
}

// ExtensionFromURL returns the lower-cased file extension of the URL
// path, defaulting to "jpg" when the URL is unparseable or has none.
func ExtensionFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" {
		return "jpg"
	}

	ext := strings.ToLower(strings.TrimPrefix(path.Ext(u.Path), "."))
	if ext == "" {
		return "jpg"
	}
	return ext
}
