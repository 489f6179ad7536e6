package hlsstream

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// fixed bandwidth estimates per quality label, no probing is done
var qualityBandwidths = map[string]int{
	"360p":  800_000,
	"480p":  1_400_000,
	"720p":  2_800_000,
	"1080p": 5_000_000,
}

const defaultBandwidth = 1_000_000

func bandwidthForQuality(quality string) int {
	for token, bandwidth := range qualityBandwidths {
		if strings.Contains(quality, token) {
			return bandwidth
		}
	}
	return defaultBandwidth
}

// resolutionForQuality derives a 16:9 RESOLUTION tag from the numeric height
// prefix of the quality label ("720p60" -> 1280x720).
func resolutionForQuality(quality string) string {
	digits := quality
	if i := strings.IndexFunc(quality, func(r rune) bool {
		return r < '0' || r > '9'
	}); i >= 0 {
		digits = quality[:i]
	}

	height, err := strconv.Atoi(digits)
	if err != nil || height <= 0 {
		return "640x360"
	}

	width := height * 16 / 9
	if width%2 == 1 {
		width++
	}

	return fmt.Sprintf("%dx%d", width, height)
}

// MasterPlaylist lists one variant stream per quality plus a single audio
// rendition group. Output depends only on the input slice, repeated builds
// are byte-identical.
func MasterPlaylist(qualities []string) string {
	playlist := []string{
		"#EXTM3U",
		"#EXT-X-VERSION:3",
		`#EXT-X-MEDIA:TYPE=AUDIO,GROUP-ID="audio",NAME="Audio",DEFAULT=YES,AUTOSELECT=YES,URI="audio.m3u8"`,
	}

	for _, quality := range qualities {
		playlist = append(playlist,
			fmt.Sprintf(`#EXT-X-STREAM-INF:BANDWIDTH=%d,RESOLUTION=%s,AUDIO="audio"`,
				bandwidthForQuality(quality), resolutionForQuality(quality)),
			fmt.Sprintf("%s.m3u8", quality),
		)
	}

	return strings.Join(playlist, "\n") + "\n"
}

// MediaPlaylist builds the variant playlist for one quality with fixed
// segment length, closed with an endlist tag since total duration is known.
func MediaPlaylist(duration float64, segmentLength float64, quality string) string {
	return segmentedPlaylist(duration, segmentLength, func(index int) string {
		return fmt.Sprintf("segment%d_%s.ts", index, quality)
	})
}

// AudioPlaylist is the audio-only rendition playlist.
func AudioPlaylist(duration float64, segmentLength float64) string {
	return segmentedPlaylist(duration, segmentLength, func(index int) string {
		return fmt.Sprintf("asegment%d.aac", index)
	})
}

func segmentedPlaylist(duration float64, segmentLength float64, segmentName func(index int) string) string {
	playlist := []string{
		"#EXTM3U",
		"#EXT-X-VERSION:3",
		fmt.Sprintf("#EXT-X-TARGETDURATION:%d", int(math.Ceil(segmentLength))),
		"#EXT-X-MEDIA-SEQUENCE:0",
		"#EXT-X-PLAYLIST-TYPE:VOD",
	}

	// non-positive duration yields an empty but well-formed playlist
	count := 0
	if duration > 0 {
		count = int(math.Ceil(duration / segmentLength))
	}

	for i := 0; i < count; i++ {
		segmentDuration := segmentLength
		if remaining := duration - float64(i)*segmentLength; remaining < segmentLength {
			segmentDuration = remaining
		}

		playlist = append(playlist,
			fmt.Sprintf("#EXTINF:%.3f,", segmentDuration),
			segmentName(i),
		)
	}

	playlist = append(playlist, "#EXT-X-ENDLIST")

	return strings.Join(playlist, "\n") + "\n"
}
