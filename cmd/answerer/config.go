// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package main

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Log sinks selectable through log.sink.
const (
	sinkStderr     = "stderr"
	sinkFile       = "file"
	sinkLumberjack = "lumberjack"
)

type logConfig struct {
	Level    string `mapstructure:"level" validate:"oneof=trace debug info warn error"`
	Sink     string `mapstructure:"sink" validate:"oneof=stderr file lumberjack"`
	FileDir  string `mapstructure:"file_dir" validate:"required_unless=Sink stderr"`
	MaxFiles uint64 `mapstructure:"max_files" validate:"min=1,max=10240"`
	BufferKB int    `mapstructure:"buffer_kb" validate:"min=10,max=1024"`
	RotateMB int    `mapstructure:"rotate_mb" validate:"min=1"`
	Echo     bool   `mapstructure:"echo"`
}

type hostConfig struct {
	Address string `mapstructure:"address" validate:"required,ip4_addr"`
	Port    int    `mapstructure:"port" validate:"min=0,max=65535"`
}

// signalingConfig selects the websocket signaling channel. Without a URL the
// offer is read from the offer file and the answer only printed.
type signalingConfig struct {
	URL       string        `mapstructure:"url" validate:"omitempty,url,startswith=wss://"`
	Region    string        `mapstructure:"region" validate:"required_with=URL"`
	UserAgent string        `mapstructure:"user_agent" validate:"required"`
	Timeout   time.Duration `mapstructure:"timeout" validate:"min=1ms"`
	CAFile    string        `mapstructure:"ca_file" validate:"omitempty,file"`
}

type config struct {
	Offer  string        `mapstructure:"offer" validate:"required"`
	Tracks []string      `mapstructure:"tracks" validate:"min=1,dive,oneof=video audio"`
	Wait   time.Duration `mapstructure:"wait"`
	Log    logConfig     `mapstructure:"log"`
	Host   hostConfig    `mapstructure:"host"`

	Signaling signalingConfig `mapstructure:"signaling"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("offer", "-")
	v.SetDefault("tracks", []string{"video", "audio"})
	v.SetDefault("wait", time.Duration(0))

	v.SetDefault("log__level", "info")
	v.SetDefault("log__sink", sinkStderr)
	v.SetDefault("log__file_dir", "")
	v.SetDefault("log__max_files", 5)
	v.SetDefault("log__buffer_kb", 100)
	v.SetDefault("log__rotate_mb", 10)
	v.SetDefault("log__echo", false)

	v.SetDefault("host__address", "127.0.0.1")
	v.SetDefault("host__port", 0)

	v.SetDefault("signaling__url", "")
	v.SetDefault("signaling__region", "")
	v.SetDefault("signaling__user_agent", "embedded-webrtc-answerer")
	v.SetDefault("signaling__timeout", 10*time.Second)
	v.SetDefault("signaling__ca_file", "")
}

// loadConfig reads flags and WEBRTC_* environment variables, flags taking
// precedence. Nested keys use "__", so log.level is WEBRTC_LOG__LEVEL.
func loadConfig(args []string) (*config, error) {
	v := viper.NewWithOptions(viper.KeyDelimiter("__"))
	v.SetEnvPrefix("WEBRTC")
	v.AutomaticEnv()
	setDefaults(v)

	flags := pflag.NewFlagSet("answerer", pflag.ContinueOnError)
	flags.String("offer", "-", "file holding the offer envelope, - for stdin")
	flags.StringSlice("tracks", []string{"video", "audio"}, "tracks to answer with")
	flags.Duration("wait", 0, "how long to keep the connection after answering")
	flags.String("log.level", "info", "trace, debug, info, warn or error")
	flags.String("log.sink", sinkStderr, "stderr, file or lumberjack")
	flags.String("log.file_dir", "", "directory for file and lumberjack sinks")
	flags.Uint64("log.max_files", 5, "log files kept on disk")
	flags.Int("log.rotate_mb", 10, "lumberjack rotation size")
	flags.String("host.address", "127.0.0.1", "IPv4 address of the host candidate")
	flags.Int("host.port", 0, "UDP port of the host candidate")
	flags.String("signaling.url", "", "wss url of the signaling channel, replaces --offer")
	flags.String("signaling.region", "", "region of the signaling channel")
	flags.String("signaling.user_agent", "embedded-webrtc-answerer", "user agent of the signaling request")
	flags.Duration("signaling.timeout", 10*time.Second, "signaling connect and exchange timeout")
	flags.String("signaling.ca_file", "", "PEM bundle trusted for the signaling channel")
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	var bindErr error
	flags.VisitAll(func(f *pflag.Flag) {
		if !f.Changed || bindErr != nil {
			return
		}
		bindErr = v.BindPFlag(strings.ReplaceAll(f.Name, ".", "__"), f)
	})
	if bindErr != nil {
		return nil, bindErr
	}

	cfg := &config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
