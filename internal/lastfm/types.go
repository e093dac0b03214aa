package lastfm

import "time"

// ScrobbleTrack contains track metadata for scrobbling.
type ScrobbleTrack struct {
	Artist    string
	Track     string
	Album     string
	Duration  time.Duration
	Timestamp time.Time // When playback started
}

// TrackInfo is the metadata returned by a track lookup.
type TrackInfo struct {
	Artist   string
	Title    string
	Album    string
	Duration time.Duration // zero when Last.fm does not know it
	Tags     []string
}
