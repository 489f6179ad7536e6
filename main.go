package hls

import (
	"os"
	"os/signal"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/SpaceXe-tech/hls/hlsstream"
	"github.com/SpaceXe-tech/hls/internal/api"
	"github.com/SpaceXe-tech/hls/internal/config"
	"github.com/SpaceXe-tech/hls/internal/http"
	"github.com/SpaceXe-tech/hls/resolver"
)

var Service *Main

func init() {
	Service = &Main{
		ServerConfig: &config.Server{},
	}
}

type Main struct {
	ServerConfig *config.Server

	logger     zerolog.Logger
	apiManager *api.ApiManagerCtx
	server     *http.HttpManagerCtx
}

func (main *Main) Preflight() {
	main.logger = log.With().Str("service", "main").Logger()
}

func (main *Main) Start() {
	cfg := main.ServerConfig

	res := resolver.New(resolver.Config{
		APIURL: cfg.Resolver.ApiURL,
		APIKey: cfg.Resolver.ApiKey,

		Timeout:    cfg.Resolver.Timeout,
		Attempts:   cfg.Resolver.Attempts,
		RetryDelay: cfg.Resolver.RetryDelay,

		CacheTTL:     cfg.Resolver.CacheTTL,
		ExpiryMargin: cfg.Resolver.ExpiryMargin,
	})

	streams := hlsstream.New(res, hlsstream.NewFFmpeg(cfg.Stream.FFmpegBinary), hlsstream.Config{
		SegmentLength: cfg.Stream.SegmentLength,
		FFmpegBinary:  cfg.Stream.FFmpegBinary,
	})

	main.apiManager = api.New(res, streams)

	main.server = http.New(cfg)
	main.server.Mount(main.apiManager.Mount)
	main.server.Start()
}

func (main *Main) Shutdown() {
	if err := main.server.Shutdown(); err != nil {
		main.logger.Err(err).Msg("server shutdown with an error")
	} else {
		main.logger.Debug().Msg("server shutdown")
	}
}

func (main *Main) ServeCommand(cmd *cobra.Command, args []string) {
	main.logger.Info().Msg("starting hls server")
	main.Start()
	main.logger.Info().Msg("hls server ready")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	sig := <-quit

	main.logger.Warn().Msgf("received %s, attempting graceful shutdown", sig)
	main.Shutdown()
	main.logger.Info().Msg("shutdown complete")
}
