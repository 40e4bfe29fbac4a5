package main

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"retailbot/internal/app"
	"retailbot/internal/server"
)

func newServeCmd(e *env) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web chat API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := app.New(e.cfg, e.log)
			if err != nil {
				return err
			}
			defer a.Close()

			if addr == "" {
				addr = e.cfg.Server.Addr
			}
			if e.cfg.Log.Production {
				gin.SetMode(gin.ReleaseMode)
			}
			// warm the index so the first customer does not wait for it
			if report, err := a.Engine.ProcessDocuments(cmd.Context(), false); err != nil {
				e.log.Warn("documents not processed at startup", zap.Error(err))
			} else {
				e.log.Info("index ready", zap.Int("chunks", report.Chunks), zap.Bool("from_cache", report.LoadedFromCache))
			}

			srv := server.New(server.Config{
				Addr:           addr,
				SessionTTL:     time.Duration(e.cfg.Server.SessionTTLMinutes) * time.Minute,
				AllowedOrigins: e.cfg.Server.AllowedOrigins,
				BotName:        e.cfg.Bot.Name,
				AdminToken:     e.cfg.Server.AdminToken,
			}, a.Controller, a.Engine, a.Users, e.log.Named("http"))
			return srv.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}
