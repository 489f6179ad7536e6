package hlsstream

import (
	"net/http"
	"regexp"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/SpaceXe-tech/hls/internal/errdefs"
	"github.com/SpaceXe-tech/hls/internal/utils"
	"github.com/SpaceXe-tech/hls/resolver"
)

var segmentIndexRegex = regexp.MustCompile(`^[0-9]+$`)

// ParseSegmentIndex validates the numeric part of a segment URI. Negative
// values cannot pass the regex, anything non-numeric is rejected before it
// reaches offset arithmetic.
func ParseSegmentIndex(raw string) (int, error) {
	if !segmentIndexRegex.MatchString(raw) {
		return 0, errdefs.InvalidSegmentIndex(raw)
	}

	index, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errdefs.InvalidSegmentIndex(raw)
	}

	return index, nil
}

type ManagerCtx struct {
	logger     zerolog.Logger
	config     Config
	resolver   resolver.Resolver
	transcoder Transcoder
}

func New(res resolver.Resolver, transcoder Transcoder, config Config) *ManagerCtx {
	return &ManagerCtx{
		logger:     log.With().Str("module", "hlsstream").Str("submodule", "manager").Logger(),
		config:     config.withDefaultValues(),
		resolver:   res,
		transcoder: transcoder,
	}
}

func (m *ManagerCtx) ServeMasterPlaylist(w http.ResponseWriter, r *http.Request, videoID string) error {
	media, err := m.resolver.Resolve(r.Context(), videoID, false)
	if err != nil {
		return err
	}

	qualities := resolver.Qualities(media.Formats)
	if len(qualities) == 0 {
		return errdefs.NoSuitableFormat("any")
	}

	writePlaylist(w, MasterPlaylist(qualities))
	return nil
}

func (m *ManagerCtx) ServeMediaPlaylist(w http.ResponseWriter, r *http.Request, videoID string, quality string) error {
	media, err := m.resolver.Resolve(r.Context(), videoID, false)
	if err != nil {
		return err
	}

	// playlist for an unavailable quality would only produce dead segment URIs
	if _, err := resolver.SelectFormat(media.Formats, quality); err != nil {
		return err
	}

	writePlaylist(w, MediaPlaylist(media.Duration, m.config.SegmentLength, quality))
	return nil
}

func (m *ManagerCtx) ServeAudioPlaylist(w http.ResponseWriter, r *http.Request, videoID string) error {
	media, err := m.resolver.Resolve(r.Context(), videoID, false)
	if err != nil {
		return err
	}

	if _, err := resolver.SelectAudio(media.Formats); err != nil {
		return err
	}

	writePlaylist(w, AudioPlaylist(media.Duration, m.config.SegmentLength))
	return nil
}

func (m *ManagerCtx) ServeSegment(w http.ResponseWriter, r *http.Request, videoID string, quality string, index int) error {
	format, err := m.selectFresh(r, videoID, func(formats []resolver.MediaFormat) (resolver.MediaFormat, error) {
		return resolver.SelectFormat(formats, quality)
	})
	if err != nil {
		return err
	}

	return m.streamSegment(w, r, format, index, false, "video/mp2t")
}

func (m *ManagerCtx) ServeAudioSegment(w http.ResponseWriter, r *http.Request, videoID string, index int) error {
	format, err := m.selectFresh(r, videoID, resolver.SelectAudio)
	if err != nil {
		return err
	}

	return m.streamSegment(w, r, format, index, true, "audio/aac")
}

// selectFresh resolves formats and applies the selection policy, forcing one
// refresh when the selected direct URL is expired. An expired URL is never
// handed to the transcoder.
func (m *ManagerCtx) selectFresh(r *http.Request, videoID string, selectFn func([]resolver.MediaFormat) (resolver.MediaFormat, error)) (resolver.MediaFormat, error) {
	media, err := m.resolver.Resolve(r.Context(), videoID, false)
	if err != nil {
		return resolver.MediaFormat{}, err
	}

	format, err := selectFn(media.Formats)
	if err != nil {
		return resolver.MediaFormat{}, err
	}

	if m.resolver.Expired(format) {
		m.logger.Info().Str("video-id", videoID).Msg("direct url expired, forcing refresh")

		media, err = m.resolver.Resolve(r.Context(), videoID, true)
		if err != nil {
			return resolver.MediaFormat{}, err
		}

		format, err = selectFn(media.Formats)
		if err != nil {
			return resolver.MediaFormat{}, err
		}
	}

	return format, nil
}

func (m *ManagerCtx) streamSegment(w http.ResponseWriter, r *http.Request, format resolver.MediaFormat, index int, audioOnly bool, contentType string) error {
	stream, err := m.transcoder.Transcode(r.Context(), TranscodeRequest{
		InputURL:  format.URL,
		StartTime: float64(index) * m.config.SegmentLength,
		Duration:  m.config.SegmentLength,
		AudioOnly: audioOnly,
	})
	if err != nil {
		return errdefs.Transcode(err)
	}
	defer stream.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-cache")

	written, err := utils.FlushCopy(w, stream)

	logger := m.logger.With().
		Int("index", index).
		Int64("written", written).
		Logger()

	switch {
	case err == nil:
		logger.Debug().Msg("segment completed")
	case written == 0 && r.Context().Err() == nil:
		// nothing flushed yet, the error can still reach the client
		return errdefs.Transcode(err)
	case r.Context().Err() != nil:
		logger.Debug().Msg("segment aborted by client")
	default:
		// response already committed, failure can only be logged
		logger.Warn().Err(err).Msg("segment stream interrupted")
	}

	return nil
}

func writePlaylist(w http.ResponseWriter, playlist string) {
	w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write([]byte(playlist))
}
