package media

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// MediaType identifies which fulfillment backend owns an item
type MediaType string

const (
	TypeMovie MediaType = "movie"
	TypeShow  MediaType = "show"
)

// ParseMediaType converts user input to a MediaType. "tv" and "series" are
// accepted as aliases for shows.
func ParseMediaType(s string) (MediaType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "movie", "movies":
		return TypeMovie, nil
	case "show", "shows", "tv", "series":
		return TypeShow, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMediaType, s)
}

// Valid reports whether t is a known media type
func (t MediaType) Valid() bool {
	return t == TypeMovie || t == TypeShow
}

// Key is the natural identity of a watchlist entry
type Key struct {
	ExternalID int64
	MediaType  MediaType
}

// String returns the key as "<type>:<id>"
func (k Key) String() string {
	return string(k.MediaType) + ":" + strconv.FormatInt(k.ExternalID, 10)
}

// LibraryState is the derived acquisition state of an entry
type LibraryState string

const (
	StateUnknown      LibraryState = "unknown"
	StateNotInLibrary LibraryState = "not-in-library"
	StateInLibrary    LibraryState = "in-library"
)

// LibraryStatus is the last known backend state of an entry
type LibraryStatus struct {
	State     LibraryState
	BackendID *int64
	// Complete is set when the backend has every file for the item.
	Complete  bool
	CheckedAt *time.Time
}

// InLibrary reports whether the backend tracks the entry
func (s LibraryStatus) InLibrary() bool {
	return s.State == StateInLibrary
}

// Entry is a single watchlist entry
type Entry struct {
	ID              uint
	ExternalID      int64
	MediaType       MediaType
	Notes           *string
	SelectedSeasons []int
	Status          LibraryStatus
	AddedAt         time.Time
}

// Key returns the natural identity of the entry
func (e Entry) Key() Key {
	return Key{ExternalID: e.ExternalID, MediaType: e.MediaType}
}

// IsShow reports whether the entry is fulfilled by the show backend
func (e Entry) IsShow() bool {
	return e.MediaType == TypeShow
}

// Season describes one season as known by the show backend
type Season struct {
	Number           int
	Monitored        bool
	Downloaded       bool
	EpisodeCount     int
	EpisodeFileCount int
}

// BackendStatus is the result of a single status lookup
type BackendStatus struct {
	ExternalID int64
	MediaType  MediaType
	InLibrary  bool
	BackendID  *int64
	Complete   bool
	Seasons    []Season
}

// Key returns the identity the status belongs to
func (s BackendStatus) Key() Key {
	return Key{ExternalID: s.ExternalID, MediaType: s.MediaType}
}

// LibraryStatus converts a backend answer into the entry's library status
func (s BackendStatus) LibraryStatus(checkedAt time.Time) LibraryStatus {
	status := LibraryStatus{
		State:     StateNotInLibrary,
		CheckedAt: &checkedAt,
	}
	if s.InLibrary {
		status.State = StateInLibrary
		status.BackendID = s.BackendID
		status.Complete = s.Complete
	}
	return status
}

// NormalizeSeasons returns the season numbers deduplicated and sorted ascending
func NormalizeSeasons(seasons []int) []int {
	if len(seasons) == 0 {
		return []int{}
	}
	out := slices.Clone(seasons)
	slices.Sort(out)
	return slices.Compact(out)
}

// ParseSeasons parses a comma separated season list such as "1,2,5"
func ParseSeasons(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return []int{}, nil
	}

	var seasons []int
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a season number", ErrInvalidSeason, part)
		}
		seasons = append(seasons, n)
	}
	return seasons, nil
}
