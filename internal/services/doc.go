// Package services implements the typed HTTP client for the encore backend.
//
// # Backend API
//
// The backend proxies a third-party music service (Spotify) and owns all
// provider credentials; the client only ever holds the backend's own bearer
// token pair. Endpoints in use:
//
//   - GET  /auth/user/               validate token, fetch [UserProfile]
//   - GET  /auth/spotify/login/      browser redirect target for login
//   - GET  /user/now-playing/        playback state, [NowPlayingData]
//   - GET  /user/recently-played/    play history, [RecentlyPlayedItem]
//   - GET  /discover/search/music/   catalog search, [SearchResults]
//   - GET  /ratings/item/            [RatingLookup] for one item
//   - GET  /reviews/item/            [ReviewLookup] for one item
//   - POST /ratings/                 [SaveRatingRequest]
//   - POST /reviews/                 [SaveReviewRequest]
//
// # Error Handling
//
// [APIService.doRequest] separates the two failure classes the rest of the
// app cares about: non-2xx responses become [*StatusError] (carrying the
// HTTP status and, for rating/review calls, the sub-resource name), while
// transport failures are returned wrapped. The reconciler leans on this
// distinction to degrade a single sub-resource instead of failing a whole
// fetch.
//
// # Rate Limiting
//
// A token-bucket limiter ([rate.Limiter]) is shared by all calls from one
// client so background polling plus manual refetches stay within a sane
// request budget.
package services
