package api

import (
	"encoding/json"
	"net/http"
	"regexp"

	"github.com/go-chi/chi"

	"github.com/SpaceXe-tech/hls/hlsstream"
	"github.com/SpaceXe-tech/hls/internal/errdefs"
)

var (
	segmentRegex       = regexp.MustCompile(`^segment([^_]*)_(.+)\.ts$`)
	audioSegmentRegex  = regexp.MustCompile(`^asegment(.*)\.aac$`)
	mediaPlaylistRegex = regexp.MustCompile(`^(.+)\.m3u8$`)
)

// streamResource dispatches everything under /stream/{videoId}/ by the shape
// of the last path element.
func (a *ApiManagerCtx) streamResource(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoId")
	resource := chi.URLParam(r, "resource")

	// media players run on foreign origins
	w.Header().Set("Access-Control-Allow-Origin", "*")

	var err error
	switch {
	case resource == "master.m3u8":
		err = a.streams.ServeMasterPlaylist(w, r, videoID)

	case resource == "audio.m3u8":
		err = a.streams.ServeAudioPlaylist(w, r, videoID)

	case segmentRegex.MatchString(resource):
		matches := segmentRegex.FindStringSubmatch(resource)

		var index int
		index, err = hlsstream.ParseSegmentIndex(matches[1])
		if err == nil {
			err = a.streams.ServeSegment(w, r, videoID, matches[2], index)
		}

	case audioSegmentRegex.MatchString(resource):
		matches := audioSegmentRegex.FindStringSubmatch(resource)

		var index int
		index, err = hlsstream.ParseSegmentIndex(matches[1])
		if err == nil {
			err = a.streams.ServeAudioSegment(w, r, videoID, index)
		}

	case mediaPlaylistRegex.MatchString(resource):
		matches := mediaPlaylistRegex.FindStringSubmatch(resource)
		err = a.streams.ServeMediaPlaylist(w, r, videoID, matches[1])

	default:
		err = errdefs.NoSuitableFormat(resource)
	}

	if err != nil {
		a.writeError(w, r, err)
	}
}

func (a *ApiManagerCtx) info(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoId")

	w.Header().Set("Access-Control-Allow-Origin", "*")

	media, err := a.resolver.Resolve(r.Context(), videoID, false)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"title":     media.Title,
		"thumbnail": media.Thumbnail,
		"duration":  media.Duration,
	})
}
