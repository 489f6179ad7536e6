package resolver

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/SpaceXe-tech/hls/internal/errdefs"
)

type FormatType string

const (
	FormatVideoWithAudio FormatType = "video_with_audio"
	FormatVideoOnly      FormatType = "video"
	FormatAudioOnly      FormatType = "audio"
)

// MediaFormat is a single rendition returned by the resolution API. Formats
// are never mutated, a refresh produces a whole new set.
type MediaFormat struct {
	Type      FormatType
	Quality   string
	Container string
	URL       string
}

// ExpiresAt extracts the expiry instant embedded in the direct URL as the
// expire=<unix seconds> query parameter. Returns false if the parameter is
// absent or unparseable.
func (f MediaFormat) ExpiresAt() (time.Time, bool) {
	u, err := url.Parse(f.URL)
	if err != nil {
		return time.Time{}, false
	}

	raw := u.Query().Get("expire")
	if raw == "" {
		return time.Time{}, false
	}

	unix, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false
	}

	return time.Unix(unix, 0), true
}

// ExpiredAt reports whether the direct URL must not be used at the given
// instant. URLs without a readable expiry are treated as already expired.
func (f MediaFormat) ExpiredAt(now time.Time, margin time.Duration) bool {
	expiresAt, ok := f.ExpiresAt()
	if !ok {
		return true
	}

	return !now.Add(margin).Before(expiresAt)
}

// ResolvedMedia is everything known about a single video. Owned by the cache
// entry and replaced wholesale on refresh, readers never observe a partially
// updated format list.
type ResolvedMedia struct {
	Title     string
	Thumbnail string
	Duration  float64
	Formats   []MediaFormat
}

type Resolver interface {
	Resolve(ctx context.Context, videoID string, forceRefresh bool) (*ResolvedMedia, error)
	Expired(format MediaFormat) bool
}

type Config struct {
	APIURL string
	APIKey string

	Timeout    time.Duration
	Attempts   int
	RetryDelay time.Duration

	CacheTTL     time.Duration
	ExpiryMargin time.Duration
}

func (c Config) withDefaultValues() Config {
	if c.Timeout == 0 {
		c.Timeout = 15 * time.Second
	}
	if c.Attempts == 0 {
		c.Attempts = 3
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = 2 * time.Second
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = 6 * time.Hour
	}
	if c.ExpiryMargin == 0 {
		c.ExpiryMargin = 10 * time.Minute
	}
	return c
}

// SelectFormat picks the combined audio+video rendition whose quality label
// contains the requested token, falling back to the first combined rendition.
func SelectFormat(formats []MediaFormat, quality string) (MediaFormat, error) {
	combined := lo.Filter(formats, func(f MediaFormat, _ int) bool {
		return f.Type == FormatVideoWithAudio
	})

	for _, f := range combined {
		if strings.Contains(f.Quality, quality) {
			return f, nil
		}
	}

	if len(combined) > 0 {
		return combined[0], nil
	}

	return MediaFormat{}, errdefs.NoSuitableFormat(quality)
}

// SelectAudio prefers a pure audio rendition and falls back to a combined
// one, whose video track the transcoder drops.
func SelectAudio(formats []MediaFormat) (MediaFormat, error) {
	for _, f := range formats {
		if f.Type == FormatAudioOnly {
			return f, nil
		}
	}

	for _, f := range formats {
		if f.Type == FormatVideoWithAudio {
			return f, nil
		}
	}

	return MediaFormat{}, errdefs.NoSuitableFormat("audio")
}

// Qualities lists the distinct quality labels of combined renditions, in the
// order the resolution API returned them.
func Qualities(formats []MediaFormat) []string {
	return lo.Uniq(lo.FilterMap(formats, func(f MediaFormat, _ int) (string, bool) {
		return f.Quality, f.Type == FormatVideoWithAudio && f.Quality != ""
	}))
}
