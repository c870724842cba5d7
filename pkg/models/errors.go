package models

import "errors"

// Failure classes surfaced by the engine. Probe-level errors inside the
// resolver and fetcher are swallowed; only chain exhaustion maps to one
// of these.
var (
	// ErrResolutionFailed means no identifier or inline playlist could be
	// produced from the input.
	ErrResolutionFailed = errors.New("unable to resolve video: not logged in, not entitled, or unsupported URL")

	// ErrPlaylistUnavailable means the identifier resolved but no endpoint
	// returned a usable playlist. The cause is ambiguous: expired cookies,
	// missing purchase, or an invalid identifier.
	ErrPlaylistUnavailable = errors.New("no endpoint returned a playlist: cookies expired, video not purchased, or invalid id")

	// ErrNoUsableQuality means a playlist exists but no entry carries a
	// playable URL.
	ErrNoUsableQuality = errors.New("playlist has no usable quality")

	// ErrMuxerMissing means ffmpeg is not installed. Fatal precondition,
	// never retried.
	ErrMuxerMissing = errors.New("ffmpeg not found in PATH")

	// Transport failures detected from the muxer diagnostics.
	ErrAccessDenied   = errors.New("stream access denied")
	ErrStreamNotFound = errors.New("stream not found or removed")
)
