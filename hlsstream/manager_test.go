package hlsstream

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SpaceXe-tech/hls/internal/errdefs"
	"github.com/SpaceXe-tech/hls/resolver"
)

type fakeResolver struct {
	media     *resolver.ResolvedMedia
	refreshed *resolver.ResolvedMedia
	err       error

	expiredURLs map[string]bool

	calls      int
	forceCalls int
}

func (f *fakeResolver) Resolve(ctx context.Context, videoID string, forceRefresh bool) (*resolver.ResolvedMedia, error) {
	f.calls++
	if forceRefresh {
		f.forceCalls++
		if f.refreshed != nil {
			return f.refreshed, nil
		}
	}
	return f.media, f.err
}

func (f *fakeResolver) Expired(format resolver.MediaFormat) bool {
	return f.expiredURLs[format.URL]
}

type fakeStream struct {
	reader io.Reader

	mu       sync.Mutex
	closed   bool
	closedCh chan struct{}
}

func newFakeStream(data string) *fakeStream {
	return &fakeStream{
		reader:   strings.NewReader(data),
		closedCh: make(chan struct{}),
	}
}

// newBlockingStream never delivers data until closed, simulating a stuck
// external process.
func newBlockingStream() *fakeStream {
	s := &fakeStream{closedCh: make(chan struct{})}
	s.reader = readerFunc(func(p []byte) (int, error) {
		<-s.closedCh
		return 0, io.ErrClosedPipe
	})
	return s
}

type readerFunc func(p []byte) (int, error)

func (f readerFunc) Read(p []byte) (int, error) { return f(p) }

func (s *fakeStream) Read(p []byte) (int, error) {
	return s.reader.Read(p)
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.closedCh)
	}
	return nil
}

func (s *fakeStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type fakeTranscoder struct {
	stream   io.ReadCloser
	err      error
	lastReq  TranscodeRequest
	requests int
}

func (f *fakeTranscoder) Transcode(ctx context.Context, req TranscodeRequest) (io.ReadCloser, error) {
	f.lastReq = req
	f.requests++
	if f.err != nil {
		return nil, f.err
	}

	// honor cancellation the way the real subprocess wrapper does
	if s, ok := f.stream.(*fakeStream); ok {
		go func() {
			select {
			case <-ctx.Done():
				_ = s.Close()
			case <-s.closedCh:
			}
		}()
	}

	return f.stream, nil
}

func combinedMedia(url string) *resolver.ResolvedMedia {
	return &resolver.ResolvedMedia{
		Title:    "T",
		Duration: 125,
		Formats: []resolver.MediaFormat{
			{Type: resolver.FormatVideoWithAudio, Quality: "720p", URL: url},
			{Type: resolver.FormatAudioOnly, Quality: "128kbps", URL: url + "&audio"},
		},
	}
}

func TestParseSegmentIndex(t *testing.T) {
	tests := []struct {
		raw     string
		index   int
		invalid bool
	}{
		{"0", 0, false},
		{"12", 12, false},
		{"-1", 0, true},
		{"abc", 0, true},
		{"", 0, true},
		{"1.5", 0, true},
	}

	for _, tt := range tests {
		index, err := ParseSegmentIndex(tt.raw)
		if tt.invalid {
			assert.True(t, errdefs.IsInvalidSegmentIndex(err), "raw %q: got %v", tt.raw, err)
			continue
		}
		require.NoError(t, err, "raw %q", tt.raw)
		assert.Equal(t, tt.index, index)
	}
}

func TestServeSegmentComputesOffset(t *testing.T) {
	res := &fakeResolver{media: combinedMedia("https://x/?expire=9999999999")}
	tr := &fakeTranscoder{stream: newFakeStream("ts bytes")}
	m := New(res, tr, Config{SegmentLength: 10})

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/stream/tTPk-fSx5gc/segment5_720p.ts", nil)

	err := m.ServeSegment(w, r, "tTPk-fSx5gc", "720p", 5)
	require.NoError(t, err)

	assert.Equal(t, float64(50), tr.lastReq.StartTime)
	assert.Equal(t, float64(10), tr.lastReq.Duration)
	assert.False(t, tr.lastReq.AudioOnly)
	assert.Equal(t, "https://x/?expire=9999999999", tr.lastReq.InputURL)

	assert.Equal(t, "video/mp2t", w.Header().Get("Content-Type"))
	assert.Equal(t, "ts bytes", w.Body.String())
	assert.Equal(t, 0, res.forceCalls, "fresh url must not trigger a refresh")
}

func TestServeSegmentRefreshesExpiredURL(t *testing.T) {
	staleURL := "https://x/?expire=1"
	freshURL := "https://x/?expire=9999999999"

	res := &fakeResolver{
		media:       combinedMedia(staleURL),
		refreshed:   combinedMedia(freshURL),
		expiredURLs: map[string]bool{staleURL: true},
	}
	tr := &fakeTranscoder{stream: newFakeStream("ts bytes")}
	m := New(res, tr, Config{SegmentLength: 10})

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/stream/tTPk-fSx5gc/segment0_720p.ts", nil)

	err := m.ServeSegment(w, r, "tTPk-fSx5gc", "720p", 0)
	require.NoError(t, err)

	assert.Equal(t, 1, res.forceCalls, "expired url must force exactly one refresh")
	assert.Equal(t, freshURL, tr.lastReq.InputURL, "refreshed url must reach the transcoder")
}

func TestServeSegmentNoSuitableFormat(t *testing.T) {
	res := &fakeResolver{
		media: &resolver.ResolvedMedia{
			Title:    "T",
			Duration: 125,
			Formats: []resolver.MediaFormat{
				{Type: resolver.FormatVideoOnly, Quality: "1080p", URL: "https://x/v"},
			},
		},
	}
	tr := &fakeTranscoder{stream: newFakeStream("")}
	m := New(res, tr, Config{})

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/stream/tTPk-fSx5gc/segment0_1080p.ts", nil)

	err := m.ServeSegment(w, r, "tTPk-fSx5gc", "1080p", 0)
	assert.True(t, errdefs.IsNoSuitableFormat(err), "got %v", err)
	assert.Equal(t, 0, tr.requests, "no process may be spawned without a format")
}

func TestServeSegmentTranscodeErrorBeforeOutput(t *testing.T) {
	res := &fakeResolver{media: combinedMedia("https://x/?expire=9999999999")}
	tr := &fakeTranscoder{err: io.ErrUnexpectedEOF}
	m := New(res, tr, Config{})

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/stream/tTPk-fSx5gc/segment0_720p.ts", nil)

	err := m.ServeSegment(w, r, "tTPk-fSx5gc", "720p", 0)
	assert.True(t, errdefs.IsTranscode(err), "got %v", err)
}

func TestServeSegmentClientDisconnectKillsStream(t *testing.T) {
	res := &fakeResolver{media: combinedMedia("https://x/?expire=9999999999")}
	stream := newBlockingStream()
	tr := &fakeTranscoder{stream: stream}
	m := New(res, tr, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/stream/tTPk-fSx5gc/segment0_720p.ts", nil).WithContext(ctx)

	served := make(chan error, 1)
	go func() {
		served <- m.ServeSegment(w, r, "tTPk-fSx5gc", "720p", 0)
	}()

	// simulated client disconnect
	cancel()

	select {
	case err := <-served:
		require.NoError(t, err, "aborted request must not produce an error body")
	case <-time.After(5 * time.Second):
		t.Fatal("handler did not return after client disconnect")
	}

	assert.True(t, stream.isClosed(), "stream must be torn down on disconnect")
}

func TestServeAudioSegment(t *testing.T) {
	res := &fakeResolver{media: combinedMedia("https://x/?expire=9999999999")}
	tr := &fakeTranscoder{stream: newFakeStream("aac bytes")}
	m := New(res, tr, Config{SegmentLength: 10})

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/stream/tTPk-fSx5gc/asegment3.aac", nil)

	err := m.ServeAudioSegment(w, r, "tTPk-fSx5gc", 3)
	require.NoError(t, err)

	assert.True(t, tr.lastReq.AudioOnly)
	assert.Equal(t, float64(30), tr.lastReq.StartTime)
	assert.Equal(t, "https://x/?expire=9999999999&audio", tr.lastReq.InputURL)
	assert.Equal(t, "audio/aac", w.Header().Get("Content-Type"))
}

func TestServeMasterPlaylist(t *testing.T) {
	res := &fakeResolver{media: combinedMedia("https://x/?expire=9999999999")}
	m := New(res, &fakeTranscoder{}, Config{})

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/stream/tTPk-fSx5gc/master.m3u8", nil)

	err := m.ServeMasterPlaylist(w, r, "tTPk-fSx5gc")
	require.NoError(t, err)

	assert.Equal(t, "application/vnd.apple.mpegurl", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "720p.m3u8")
	assert.Contains(t, w.Body.String(), `URI="audio.m3u8"`)
}

func TestServeMediaPlaylistSpecScenario(t *testing.T) {
	res := &fakeResolver{media: combinedMedia("https://x/?expire=9999999999")}
	m := New(res, &fakeTranscoder{}, Config{SegmentLength: 10})

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/stream/tTPk-fSx5gc/720p.m3u8", nil)

	err := m.ServeMediaPlaylist(w, r, "tTPk-fSx5gc", "720p")
	require.NoError(t, err)

	body := w.Body.String()
	assert.Equal(t, 13, strings.Count(body, "#EXTINF:"), "ceil(125/10) segments")
	assert.Contains(t, body, "#EXTINF:5.000,\nsegment12_720p.ts")
	assert.Contains(t, body, "#EXT-X-ENDLIST")
}

func TestServeMediaPlaylistUnavailableQuality(t *testing.T) {
	res := &fakeResolver{
		media: &resolver.ResolvedMedia{
			Title:    "T",
			Duration: 125,
			Formats: []resolver.MediaFormat{
				{Type: resolver.FormatVideoOnly, Quality: "1080p", URL: "https://x/v"},
			},
		},
	}
	m := New(res, &fakeTranscoder{}, Config{})

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/stream/tTPk-fSx5gc/1080p.m3u8", nil)

	err := m.ServeMediaPlaylist(w, r, "tTPk-fSx5gc", "1080p")
	assert.True(t, errdefs.IsNoSuitableFormat(err), "got %v", err)
}
