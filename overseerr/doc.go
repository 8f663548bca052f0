// Package overseerr imports media requests from Overseerr into the watchlist.
//
// Overseerr is a request management tool for Plex, Jellyfin and Emby. Users
// request movies and shows there; this package pages through those requests
// and turns every open one into a watchlist entry so it is reconciled and
// fulfilled like any other.
//
// # Usage
//
//	client, err := overseerr.NewClient(cfg.Overseerr, logger)
//	if err != nil {
//		return err
//	}
//
//	importer := overseerr.NewImporter(client, repo, logger)
//	result, err := importer.Import(ctx)
//
// Requests are fetched with a client side rate limit (overseerr.rate_limit
// requests per second). Declined and failed requests are skipped. Show
// requests keep their requested seasons as the season selection.
package overseerr
