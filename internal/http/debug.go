package http

import (
	"net/http"
	"net/http/pprof"

	"github.com/go-chi/chi"
)

func (s *HttpManagerCtx) WithDebugPProf(pathPrefix string) {
	s.router.Route(pathPrefix, func(r chi.Router) {
		r.Get("/", pprof.Index)
		r.Get("/cmdline", pprof.Cmdline)
		r.Get("/profile", pprof.Profile)
		r.Get("/symbol", pprof.Symbol)
		r.Get("/trace", pprof.Trace)

		r.Get("/{action}", func(w http.ResponseWriter, r *http.Request) {
			pprof.Handler(chi.URLParam(r, "action")).ServeHTTP(w, r)
		})
	})
}
