package overseerr

import (
	"time"
)

// RequestStatus represents the status of a media request
type RequestStatus int

const (
	RequestStatusUnknown RequestStatus = iota
	RequestStatusPending
	RequestStatusApproved
	RequestStatusDeclined
	RequestStatusProcessing
	RequestStatusPartiallyAvailable
	RequestStatusAvailable
	RequestStatusFailed
)

// String returns the string representation of a RequestStatus
func (rs RequestStatus) String() string {
	switch rs {
	case RequestStatusPending:
		return "PENDING"
	case RequestStatusApproved:
		return "APPROVED"
	case RequestStatusDeclined:
		return "DECLINED"
	case RequestStatusProcessing:
		return "PROCESSING"
	case RequestStatusPartiallyAvailable:
		return "PARTIALLY_AVAILABLE"
	case RequestStatusAvailable:
		return "AVAILABLE"
	case RequestStatusFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Open reports whether the request still wants the media. Declined and
// failed requests are closed.
func (rs RequestStatus) Open() bool {
	return rs != RequestStatusDeclined && rs != RequestStatusFailed
}

// MediaType represents the type of media
type MediaType string

const (
	MediaTypeMovie MediaType = "movie"
	MediaTypeTV    MediaType = "tv"
)

// User represents an Overseerr user
type User struct {
	ID           int    `json:"id"`
	Email        string `json:"email"`
	Username     string `json:"username,omitempty"`
	PlexUsername string `json:"plexUsername,omitempty"`
	DisplayName  string `json:"displayName"`
}

// GetDisplayName returns the best available display name for the user
func (u *User) GetDisplayName() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	if u.Username != "" {
		return u.Username
	}
	if u.PlexUsername != "" {
		return u.PlexUsername
	}
	return u.Email
}

// Media represents media information in Overseerr
type Media struct {
	ID        int       `json:"id"`
	TmdbID    int64     `json:"tmdbId"`
	TvdbID    int64     `json:"tvdbId,omitempty"`
	MediaType MediaType `json:"mediaType"`
}

// Season represents a requested season of a show
type Season struct {
	ID           int           `json:"id"`
	SeasonNumber int           `json:"seasonNumber"`
	Status       RequestStatus `json:"status"`
}

// MediaRequest represents a media request in Overseerr
type MediaRequest struct {
	ID          int           `json:"id"`
	Status      RequestStatus `json:"status"`
	CreatedAt   time.Time     `json:"createdAt"`
	Type        MediaType     `json:"type"`
	Is4k        bool          `json:"is4k"`
	RequestedBy User          `json:"requestedBy"`
	Media       Media         `json:"media"`
	Seasons     []Season      `json:"seasons,omitempty"`
}

// RequestsResponse represents the paginated response from the requests endpoint
type RequestsResponse struct {
	PageInfo PageInfo       `json:"pageInfo"`
	Results  []MediaRequest `json:"results"`
}

// PageInfo contains pagination information
type PageInfo struct {
	Pages    int `json:"pages"`
	PageSize int `json:"pageSize"`
	Results  int `json:"results"`
	Page     int `json:"page"`
}
