package watchlist

import (
	"slices"
	"time"

	"github.com/s0up4200/watcharr/media"
)

// entryRecord is the persisted form of a watchlist entry
type entryRecord struct {
	ID              uint    `gorm:"primaryKey"`
	ExternalID      int64   `gorm:"not null;uniqueIndex:idx_watchlist_key"`
	MediaType       string  `gorm:"type:varchar(10);not null;uniqueIndex:idx_watchlist_key"`
	Notes           *string `gorm:"type:text"`
	SelectedSeasons []int   `gorm:"serializer:json"`

	// Last known backend state
	LibraryState string `gorm:"type:varchar(20);not null;default:'unknown'"`
	BackendID    *int64
	Complete     bool
	CheckedAt    *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (entryRecord) TableName() string {
	return "watchlist_entries"
}

func (r *entryRecord) key() media.Key {
	return media.Key{ExternalID: r.ExternalID, MediaType: media.MediaType(r.MediaType)}
}

func (r *entryRecord) toEntry() *media.Entry {
	seasons := slices.Clone(r.SelectedSeasons)
	if seasons == nil {
		seasons = []int{}
	}

	state := media.LibraryState(r.LibraryState)
	if state == "" {
		state = media.StateUnknown
	}

	return &media.Entry{
		ID:              r.ID,
		ExternalID:      r.ExternalID,
		MediaType:       media.MediaType(r.MediaType),
		Notes:           r.Notes,
		SelectedSeasons: seasons,
		Status: media.LibraryStatus{
			State:     state,
			BackendID: r.BackendID,
			Complete:  r.Complete,
			CheckedAt: r.CheckedAt,
		},
		AddedAt: r.CreatedAt,
	}
}

func (r *entryRecord) applyStatus(status media.LibraryStatus) {
	r.LibraryState = string(status.State)
	r.BackendID = status.BackendID
	r.Complete = status.Complete
	r.CheckedAt = status.CheckedAt
}
