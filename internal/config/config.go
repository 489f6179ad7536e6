package config

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type Config interface {
	Init(cmd *cobra.Command) error
	Set()
}

type Resolver struct {
	ApiURL string `mapstructure:"api-url"`
	ApiKey string `mapstructure:"api-key"`

	Timeout    time.Duration `mapstructure:"timeout"`
	Attempts   int           `mapstructure:"attempts"`
	RetryDelay time.Duration `mapstructure:"retry-delay"`

	CacheTTL     time.Duration `mapstructure:"cache-ttl"`
	ExpiryMargin time.Duration `mapstructure:"expiry-margin"`
}

type Stream struct {
	SegmentLength float64 `mapstructure:"segment-length"`
	FFmpegBinary  string  `mapstructure:"ffmpeg-binary"`
}

type Server struct {
	PProf bool

	Cert   string
	Key    string
	Bind   string
	Static string
	Proxy  bool

	Resolver Resolver
	Stream   Stream
}

func (Server) Init(cmd *cobra.Command) error {
	cmd.PersistentFlags().Bool("pprof", false, "enable pprof endpoint available at /debug/pprof")
	if err := viper.BindPFlag("pprof", cmd.PersistentFlags().Lookup("pprof")); err != nil {
		return err
	}

	cmd.PersistentFlags().String("bind", "127.0.0.1:8080", "address/port/socket to serve on")
	if err := viper.BindPFlag("bind", cmd.PersistentFlags().Lookup("bind")); err != nil {
		return err
	}

	cmd.PersistentFlags().String("cert", "", "path to the SSL cert used to secure the server")
	if err := viper.BindPFlag("cert", cmd.PersistentFlags().Lookup("cert")); err != nil {
		return err
	}

	cmd.PersistentFlags().String("key", "", "path to the SSL key used to secure the server")
	if err := viper.BindPFlag("key", cmd.PersistentFlags().Lookup("key")); err != nil {
		return err
	}

	cmd.PersistentFlags().String("static", "", "path to the static demo player files to serve")
	if err := viper.BindPFlag("static", cmd.PersistentFlags().Lookup("static")); err != nil {
		return err
	}

	cmd.PersistentFlags().Bool("proxy", false, "allow reverse proxies")
	if err := viper.BindPFlag("proxy", cmd.PersistentFlags().Lookup("proxy")); err != nil {
		return err
	}

	cmd.PersistentFlags().String("resolver.api-url", "", "resolution api endpoint")
	if err := viper.BindPFlag("resolver.api-url", cmd.PersistentFlags().Lookup("resolver.api-url")); err != nil {
		return err
	}

	cmd.PersistentFlags().String("resolver.api-key", "", "resolution api key")
	if err := viper.BindPFlag("resolver.api-key", cmd.PersistentFlags().Lookup("resolver.api-key")); err != nil {
		return err
	}

	return nil
}

func (s *Server) Set() {
	s.PProf = viper.GetBool("pprof")

	s.Cert = viper.GetString("cert")
	s.Key = viper.GetString("key")
	s.Bind = viper.GetString("bind")
	s.Static = viper.GetString("static")
	s.Proxy = viper.GetBool("proxy")

	if err := viper.UnmarshalKey("resolver", &s.Resolver); err != nil {
		panic(err)
	}

	if err := viper.UnmarshalKey("stream", &s.Stream); err != nil {
		panic(err)
	}

	// flag/env values take precedence over the config file section
	if v := viper.GetString("resolver.api-url"); v != "" {
		s.Resolver.ApiURL = v
	}
	if v := viper.GetString("resolver.api-key"); v != "" {
		s.Resolver.ApiKey = v
	}

	if s.Resolver.ApiURL == "" {
		panic("specify the resolution api url")
	}

	if s.Stream.FFmpegBinary == "" {
		s.Stream.FFmpegBinary = "ffmpeg"
	}
}
