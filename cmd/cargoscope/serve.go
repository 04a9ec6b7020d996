// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cargoscope/cargoscope/internal/config"
	"github.com/cargoscope/cargoscope/internal/eventserver"
	"github.com/cargoscope/cargoscope/internal/events"
	"github.com/cargoscope/cargoscope/internal/issue"
)

func newServeCommand(app *App) *cobra.Command {
	var (
		addr  string
		token string
		echo  bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the cargo event stream over WebSocket",
		Long: `Start a local HTTP server that runs cargo commands on request and
broadcasts their output and completion events to WebSocket clients.

Endpoints (all but /health need the bearer token):
  GET  /health         liveness probe
  GET  /events         WebSocket event stream
  POST /api/run        {"path": "...", "command": "build", "args": []}
  GET  /api/projects   discovery of ?root=<dir>`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			if addr == "" {
				addr = app.cfg.Server.Addr
			}

			hub := events.NewHub()
			var sink events.Sink = hub
			if echo {
				sink = events.Multi{hub, events.NewWriterSink(app.stdout, app.stderr, terminalFormatter{})}
			}

			opts := []eventserver.Option{
				eventserver.WithAddr(addr),
				eventserver.WithLogger(app.logger),
			}
			if token != "" {
				opts = append(opts, eventserver.WithToken(token))
			}
			srv, err := eventserver.New(hub, app.manager(sink), opts...)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if err := srv.Start(ctx); err != nil {
				renderIssue(app.stderr, issue.EventServerStartFailedId)
				return silenced(cmd, issue.NewErrorContext().
					WithOperation("start event server").
					WithResource(addr).
					WithSuggestion("Pick a free address with --addr").
					Wrap(err).
					BuildError())
			}
			defer func() { err = errors.Join(err, srv.Stop()) }()

			fmt.Fprintf(app.stdout, "%s listening on %s\n", TitleStyle.Render(config.AppName), CmdStyle.Render(srv.URL()))
			fmt.Fprintf(app.stdout, "%s %s\n", SubtitleStyle.Render("token:"), srv.Token())
			fmt.Fprintln(app.stdout, SubtitleStyle.Render("Press Ctrl+C to stop."))

			select {
			case <-ctx.Done():
				app.logger.Info("shutting down event server")
				return nil
			case err := <-srv.Err():
				return err
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from server.addr)")
	cmd.Flags().StringVar(&token, "token", "", "bearer token (default: random)")
	cmd.Flags().BoolVar(&echo, "echo", false, "also print streamed output to the terminal")
	return cmd
}
