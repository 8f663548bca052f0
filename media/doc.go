// Package media holds the domain types shared by the watchlist engine.
//
// A watchlist entry is identified by its catalog (TMDB) id together with its
// media type. Movies are fulfilled by Radarr and shows by Sonarr, so the media
// type decides which backend an entry is ever sent to:
//
//	key := media.Key{ExternalID: 1399, MediaType: media.TypeShow}
//	fmt.Println(key) // show:1399
//
// # Error Handling
//
// The package defines the error kinds surfaced by every component:
//
//   - ErrNotFound: entry or backend item absent
//   - ErrDuplicate: add conflicts with an existing entry
//   - ErrInvalidSeason: season not known to the backend
//   - ErrBackendUnavailable: transport failure or timeout
//   - ErrBackendRejected: backend refused the request (see RejectedError)
//
// Callers classify with errors.Is.
package media
