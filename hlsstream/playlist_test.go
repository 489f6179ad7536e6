package hlsstream

import (
	"fmt"
	"strings"
	"testing"

	"github.com/grafov/m3u8"
)

func TestMediaPlaylistSegmentation(t *testing.T) {
	tests := []struct {
		name          string
		duration      float64
		segmentLength float64
		count         int
		lastDuration  string
	}{
		{"spec scenario 125s", 125, 10, 13, "#EXTINF:5.000,"},
		{"exact multiple", 120, 10, 12, "#EXTINF:10.000,"},
		{"shorter than one segment", 4.5, 10, 1, "#EXTINF:4.500,"},
		{"six second segments", 125, 6, 21, "#EXTINF:5.000,"},
		{"zero duration", 0, 10, 0, ""},
		{"negative duration", -5, 10, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			playlist := MediaPlaylist(tt.duration, tt.segmentLength, "720p")

			count := strings.Count(playlist, "#EXTINF:")
			if count != tt.count {
				t.Fatalf("segment count = %d, want %d\n%s", count, tt.count, playlist)
			}

			if !strings.Contains(playlist, "#EXT-X-ENDLIST") {
				t.Errorf("playlist must be VOD-complete\n%s", playlist)
			}

			if tt.count == 0 {
				return
			}

			lines := strings.Split(strings.TrimSpace(playlist), "\n")
			// last three lines: EXTINF, segment uri, endlist
			if got := lines[len(lines)-3]; got != tt.lastDuration {
				t.Errorf("last segment duration = %q, want %q", got, tt.lastDuration)
			}

			lastURI := fmt.Sprintf("segment%d_720p.ts", tt.count-1)
			if got := lines[len(lines)-2]; got != lastURI {
				t.Errorf("last segment uri = %q, want %q", got, lastURI)
			}
		})
	}
}

func TestMediaPlaylistDeterministic(t *testing.T) {
	first := MediaPlaylist(125, 10, "720p")
	second := MediaPlaylist(125, 10, "720p")

	if first != second {
		t.Error("two builds of the same playlist must be byte-identical")
	}
}

func TestAudioPlaylistURIs(t *testing.T) {
	playlist := AudioPlaylist(25, 10)

	for _, uri := range []string{"asegment0.aac", "asegment1.aac", "asegment2.aac"} {
		if !strings.Contains(playlist, uri) {
			t.Errorf("playlist missing %q\n%s", uri, playlist)
		}
	}

	if strings.Contains(playlist, "asegment3.aac") {
		t.Errorf("playlist has more segments than ceil(25/10)\n%s", playlist)
	}
}

func TestMasterPlaylistVariants(t *testing.T) {
	playlist := MasterPlaylist([]string{"360p", "720p", "1080p"})

	tests := []string{
		`#EXT-X-MEDIA:TYPE=AUDIO,GROUP-ID="audio",NAME="Audio",DEFAULT=YES,AUTOSELECT=YES,URI="audio.m3u8"`,
		`#EXT-X-STREAM-INF:BANDWIDTH=800000,RESOLUTION=640x360,AUDIO="audio"`,
		"360p.m3u8",
		`#EXT-X-STREAM-INF:BANDWIDTH=2800000,RESOLUTION=1280x720,AUDIO="audio"`,
		"720p.m3u8",
		`#EXT-X-STREAM-INF:BANDWIDTH=5000000,RESOLUTION=1920x1080,AUDIO="audio"`,
		"1080p.m3u8",
	}

	for _, want := range tests {
		if !strings.Contains(playlist, want) {
			t.Errorf("master playlist missing %q\n%s", want, playlist)
		}
	}
}

func TestBandwidthForQuality(t *testing.T) {
	tests := []struct {
		quality string
		want    int
	}{
		{"360p", 800_000},
		{"480p", 1_400_000},
		{"720p", 2_800_000},
		{"720p60", 2_800_000},
		{"1080p", 5_000_000},
		{"4320p", 1_000_000},
		{"", 1_000_000},
	}

	for _, tt := range tests {
		if got := bandwidthForQuality(tt.quality); got != tt.want {
			t.Errorf("bandwidthForQuality(%q) = %d, want %d", tt.quality, got, tt.want)
		}
	}
}

func TestResolutionForQuality(t *testing.T) {
	tests := []struct {
		quality string
		want    string
	}{
		{"360p", "640x360"},
		{"480p", "854x480"},
		{"720p", "1280x720"},
		{"720p60", "1280x720"},
		{"1080p", "1920x1080"},
		{"unknown", "640x360"},
		{"", "640x360"},
	}

	for _, tt := range tests {
		if got := resolutionForQuality(tt.quality); got != tt.want {
			t.Errorf("resolutionForQuality(%q) = %q, want %q", tt.quality, got, tt.want)
		}
	}
}

// generated playlists must round-trip through a real HLS parser
func TestPlaylistsParse(t *testing.T) {
	t.Run("media", func(t *testing.T) {
		playlist := MediaPlaylist(125, 10, "720p")

		p, listType, err := m3u8.DecodeFrom(strings.NewReader(playlist), false)
		if err != nil {
			t.Fatalf("decode failed: %v\n%s", err, playlist)
		}
		if listType != m3u8.MEDIA {
			t.Fatalf("decoded list type = %v, want MEDIA", listType)
		}

		media := p.(*m3u8.MediaPlaylist)
		if !media.Closed {
			t.Error("media playlist must be closed (VOD)")
		}
		if media.Count() != 13 {
			t.Errorf("parsed segment count = %d, want 13", media.Count())
		}
	})

	t.Run("master", func(t *testing.T) {
		playlist := MasterPlaylist([]string{"360p", "720p"})

		p, listType, err := m3u8.DecodeFrom(strings.NewReader(playlist), false)
		if err != nil {
			t.Fatalf("decode failed: %v\n%s", err, playlist)
		}
		if listType != m3u8.MASTER {
			t.Fatalf("decoded list type = %v, want MASTER", listType)
		}

		master := p.(*m3u8.MasterPlaylist)
		if len(master.Variants) != 2 {
			t.Errorf("parsed variant count = %d, want 2", len(master.Variants))
		}
	})
}
