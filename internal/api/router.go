package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/SpaceXe-tech/hls/hlsstream"
	"github.com/SpaceXe-tech/hls/internal/errdefs"
	"github.com/SpaceXe-tech/hls/resolver"
)

type ApiManagerCtx struct {
	logger   zerolog.Logger
	resolver resolver.Resolver
	streams  hlsstream.Manager
}

func New(res resolver.Resolver, streams hlsstream.Manager) *ApiManagerCtx {
	return &ApiManagerCtx{
		logger:   log.With().Str("module", "api").Logger(),
		resolver: res,
		streams:  streams,
	}
}

func (a *ApiManagerCtx) Mount(r *chi.Mux) {
	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		//nolint
		w.Write([]byte("pong"))
	})

	r.Get("/stream/{videoId}/{resource}", a.streamResource)
	r.Get("/api/info/{videoId}", a.info)
}

// writeError turns a component error into the JSON error body. Must not be
// called once response bytes are flushed.
func (a *ApiManagerCtx) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errdefs.HTTPStatus(err)

	if status >= http.StatusInternalServerError {
		a.logger.Warn().Err(err).Str("path", r.URL.Path).Msg("request failed")
	} else {
		a.logger.Debug().Err(err).Str("path", r.URL.Path).Msg("request rejected")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": err.Error(),
	})
}
