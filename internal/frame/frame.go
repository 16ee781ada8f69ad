// Package frame provides video frame sources for emotion detection.
package frame

import (
	"errors"
	"image"
)

// ReadyState mirrors the media element readiness levels.
type ReadyState int

const (
	HaveNothing ReadyState = iota
	HaveMetadata
	HaveCurrentData
	HaveFutureData
	HaveEnoughData
)

func (r ReadyState) String() string {
	switch r {
	case HaveNothing:
		return "nothing"
	case HaveMetadata:
		return "metadata"
	case HaveCurrentData:
		return "current_data"
	case HaveFutureData:
		return "future_data"
	case HaveEnoughData:
		return "enough_data"
	default:
		return "unknown"
	}
}

// ErrNotReady is returned by Frame when the source has no current frame.
var ErrNotReady = errors.New("frame not ready")

// Source yields frames from a live video feed.
type Source interface {
	// ReadyState reports how much data is buffered.
	ReadyState() ReadyState
	// Frame returns the current frame.
	Frame() (image.Image, error)
	// Dimensions returns the raw pixel size of frames, before any display scaling.
	Dimensions() (width, height int)
}

// Ready reports whether src has at least the current frame decoded.
func Ready(src Source) bool {
	return src != nil && src.ReadyState() >= HaveCurrentData
}
