package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"taengine/internal/analysis/engine"
	"taengine/internal/metrics"
	"taengine/internal/store"
	"taengine/internal/transport/http/analysis"
)

func newServeCmd(ro *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analysis HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ro.load(cmd)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.HTTP.Addr = addr
			}
			reg := metrics.New()
			srv, err := analysis.NewServer(analysis.ServerConfig{
				Addr:       cfg.HTTP.Addr,
				Engine:     engine.New(engine.Options{Params: cfg.EngineParams(), Metrics: reg}),
				Store:      store.NewMemoryKlineStore(),
				Metrics:    reg,
				MaxCandles: cfg.HTTP.MaxCandles,
			})
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return srv.Start(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Override http.addr")
	return cmd
}
