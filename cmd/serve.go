package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	hls "github.com/SpaceXe-tech/hls"
	"github.com/SpaceXe-tech/hls/internal/config"
)

func init() {
	command := &cobra.Command{
		Use:   "serve",
		Short: "serve hls streaming server",
		Long:  `serve hls streaming server`,
		Run:   hls.Service.ServeCommand,
	}

	configs := []config.Config{
		hls.Service.ServerConfig,
	}

	onConfigLoad = append(onConfigLoad, func() {
		for _, cfg := range configs {
			cfg.Set()
		}
		hls.Service.Preflight()
	})

	for _, cfg := range configs {
		if err := cfg.Init(command); err != nil {
			log.Panic().Err(err).Msg("unable to run serve command")
		}
	}

	rootCmd.AddCommand(command)
}
