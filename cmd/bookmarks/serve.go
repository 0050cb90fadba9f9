package main

import (
	"github.com/spf13/cobra"

	"github.com/patric-chuzhbe/bkmrk/internal/app"
	"github.com/patric-chuzhbe/bkmrk/internal/config"
)

// serve hands its arguments to the config package, which owns the flag set.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:                "serve [flags]",
		Short:              "Start the HTTP and gRPC servers",
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			theApp, err := app.New(config.WithArgs(args))
			if err != nil {
				return err
			}
			defer theApp.Close()

			return theApp.Run()
		},
	}
}
