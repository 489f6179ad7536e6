package hlsstream

import (
	"context"
	"io"
	"net/http"
)

type Config struct {
	// Length of a single segment in seconds. Segment URIs and transcode
	// windows are both derived from it, changing it invalidates clients
	// holding old playlists.
	SegmentLength float64

	FFmpegBinary string
}

func (c Config) withDefaultValues() Config {
	if c.SegmentLength == 0 {
		c.SegmentLength = 10
	}
	if c.FFmpegBinary == "" {
		c.FFmpegBinary = "ffmpeg"
	}
	return c
}

type Manager interface {
	ServeMasterPlaylist(w http.ResponseWriter, r *http.Request, videoID string) error
	ServeMediaPlaylist(w http.ResponseWriter, r *http.Request, videoID string, quality string) error
	ServeAudioPlaylist(w http.ResponseWriter, r *http.Request, videoID string) error
	ServeSegment(w http.ResponseWriter, r *http.Request, videoID string, quality string, index int) error
	ServeAudioSegment(w http.ResponseWriter, r *http.Request, videoID string, index int) error
}

// TranscodeRequest is a single bounded time window of a remote input,
// remuxed or transcoded to a streamable container.
type TranscodeRequest struct {
	InputURL  string
	StartTime float64
	Duration  float64
	AudioOnly bool
}

// Transcoder runs the external media tool. It is an interface so tests can
// substitute the subprocess with in-memory streams.
type Transcoder interface {
	Transcode(ctx context.Context, req TranscodeRequest) (io.ReadCloser, error)
}
