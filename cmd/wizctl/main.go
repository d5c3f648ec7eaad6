// Package main implements wizctl, a command-line client for WiZ-family
// smart lighting devices.
package main

import (
	"log/slog"
	"os"

	"github.com/MatusOllah/slogcolor"
	"github.com/spf13/cobra"
)

var isVerbose bool

var conf = &config{}

func main() {
	rootCmd.PersistentFlags().BoolVarP(&isVerbose, "verbose", "v", false, "enable debug log messages")

	cobra.OnInitialize(func() {
		opts := slogcolor.DefaultOptions
		if isVerbose {
			opts.Level = slog.LevelDebug
		} else {
			opts.Level = slog.LevelInfo
		}
		slog.SetDefault(slog.New(slogcolor.NewHandler(os.Stderr, opts)))

		if err := conf.load(configFile); err != nil {
			switch {
			case os.IsNotExist(err):
				slog.Debug("no config file found", "fn", configFile)
			default:
				slog.Warn("unable to load config file", "fn", configFile, "err", err)
			}
		}
	})

	err := rootCmd.Execute()

	if writeErr := conf.write(configFile); writeErr != nil {
		slog.Error("error writing out config file", "fn", configFile, "err", writeErr)
	}

	if err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}
