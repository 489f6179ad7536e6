package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/SpaceXe-tech/hls/internal/errdefs"
)

var videoIDRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

type ManagerCtx struct {
	logger zerolog.Logger
	config Config
	client *http.Client

	cache   map[string]cacheEntry
	cacheMu sync.RWMutex
}

func New(config Config) *ManagerCtx {
	config = config.withDefaultValues()

	return &ManagerCtx{
		logger: log.With().Str("module", "resolver").Logger(),
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		cache: map[string]cacheEntry{},
	}
}

// Resolve returns format metadata for a video, from cache when a live entry
// exists and forceRefresh is not set. The whole format set is cached under
// the video id, so requesting multiple qualities costs one upstream call.
func (m *ManagerCtx) Resolve(ctx context.Context, videoID string, forceRefresh bool) (*ResolvedMedia, error) {
	if !videoIDRegex.MatchString(videoID) {
		return nil, errdefs.InvalidIdentifier(videoID)
	}

	if !forceRefresh {
		if media, ok := m.getFromCache(videoID); ok {
			m.logger.Debug().Str("video-id", videoID).Msg("cache hit")
			return media, nil
		}
	}

	media, err := m.fetch(ctx, videoID)
	if err != nil {
		return nil, err
	}

	m.saveToCache(videoID, media)

	m.logger.Info().
		Str("video-id", videoID).
		Str("title", media.Title).
		Int("formats", len(media.Formats)).
		Bool("forced", forceRefresh).
		Msg("resolved media")

	return media, nil
}

// Expired reports whether a direct URL is too close to its embedded expiry
// instant to be handed to the transcoder.
func (m *ManagerCtx) Expired(format MediaFormat) bool {
	return format.ExpiredAt(time.Now(), m.config.ExpiryMargin)
}

type apiItem struct {
	Type  string `json:"type"`
	Label string `json:"label"`
	Ext   string `json:"ext"`
	URL   string `json:"url"`
}

type apiResponse struct {
	Title     string    `json:"title"`
	Thumbnail string    `json:"thumbnail"`
	Duration  float64   `json:"duration"`
	Items     []apiItem `json:"items"`
}

func (m *ManagerCtx) fetch(ctx context.Context, videoID string) (*ResolvedMedia, error) {
	watchURL := fmt.Sprintf("https://www.youtube.com/watch?v=%s", videoID)
	reqURL := fmt.Sprintf("%s?url=%s", m.config.APIURL, url.QueryEscape(watchURL))

	var lastErr error
	for attempt := 1; attempt <= m.config.Attempts; attempt++ {
		media, err := m.fetchOnce(ctx, reqURL)
		if err == nil {
			return media, nil
		}
		lastErr = err

		m.logger.Warn().
			Err(err).
			Str("video-id", videoID).
			Int("attempt", attempt).
			Msg("resolution attempt failed")

		if attempt == m.config.Attempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, errdefs.Upstream("resolution cancelled", ctx.Err())
		case <-time.After(m.config.RetryDelay):
		}
	}

	return nil, errdefs.Upstream("resolution api failed", lastErr)
}

func (m *ManagerCtx) fetchOnce(ctx context.Context, reqURL string) (*ResolvedMedia, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	if m.config.APIKey != "" {
		req.Header.Set("X-API-Key", m.config.APIKey)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	var payload apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("malformed response: %w", err)
	}

	return mapResponse(payload)
}

func mapResponse(payload apiResponse) (*ResolvedMedia, error) {
	if payload.Title == "" {
		return nil, fmt.Errorf("response missing title")
	}

	if len(payload.Items) == 0 {
		return nil, fmt.Errorf("response missing items")
	}

	formats := make([]MediaFormat, 0, len(payload.Items))
	for _, item := range payload.Items {
		// items without a direct URL cannot be streamed
		if item.URL == "" {
			continue
		}

		var formatType FormatType
		switch item.Type {
		case "video_with_audio":
			formatType = FormatVideoWithAudio
		case "video":
			formatType = FormatVideoOnly
		case "audio":
			formatType = FormatAudioOnly
		default:
			continue
		}

		formats = append(formats, MediaFormat{
			Type:      formatType,
			Quality:   item.Label,
			Container: item.Ext,
			URL:       item.URL,
		})
	}

	if len(formats) == 0 {
		return nil, fmt.Errorf("response has no usable formats")
	}

	return &ResolvedMedia{
		Title:     payload.Title,
		Thumbnail: payload.Thumbnail,
		Duration:  payload.Duration,
		Formats:   formats,
	}, nil
}
