// Package servecmder provides the serve command for running the web
// dashboard API.
package servecmder

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hookline/crmq/cmd/crmq/boot"
	"github.com/hookline/crmq/pkg/server"
)

const serveLongDesc string = `Start the HTTP API used by the web dashboard.

Endpoints:
  POST /api/query         Run a query, results as JSON
  POST /api/query/export  Run a query, workbook as an xlsx download
  POST /api/discover      Enumerate object types with counts
  GET  /healthz           Liveness check

The server holds no session state; every request names its own secret
path and is authenticated from scratch.`

const serveShortDesc string = "Start the web dashboard API"

func NewServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			verbose, _ := cmd.Flags().GetBool("verbose")
			sessionJSON, _ := cmd.Flags().GetString("session-json")

			deps, err := boot.Up(boot.Options{Verbose: verbose, SessionJSON: sessionJSON})
			if err != nil {
				return err
			}
			defer deps.Down()

			srv := server.New(deps.Runner, deps.Logger)

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			go func() {
				<-stop
				deps.Logger.Info("Shutting down")
				if err := srv.Shutdown(); err != nil {
					deps.Logger.Error("Shutdown failed", zap.Error(err))
				}
			}()

			return srv.Listen(addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")

	return cmd
}
