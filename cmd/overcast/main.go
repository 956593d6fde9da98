package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mistakeknot/overcast/internal/broker"
	"github.com/mistakeknot/overcast/internal/bus"
	"github.com/mistakeknot/overcast/internal/config"
	"github.com/mistakeknot/overcast/internal/httpapi"
	"github.com/mistakeknot/overcast/internal/server"
	"github.com/mistakeknot/overcast/internal/ws"
)

func main() {
	root := rootCmd()
	root.AddCommand(serveCmd(), initCmd())
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "overcast",
		Short: "Realtime broadcast overlay controller",
	}
}

func serveCmd() *cobra.Command {
	var (
		cfgPath string
		addr    string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the overlay broker",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			log := newLogger(cfg.LogLevel)

			eventBus := bus.New(log)
			brk := broker.New(eventBus, log)
			hub := ws.NewHub(brk, log)
			static := httpapi.NewMounts()
			brk.WithBroadcaster(hub).WithStaticExposer(static)

			if res := brk.Add(nil, cfg.Overlays...); len(res.Rejected) > 0 {
				for _, rej := range res.Rejected {
					log.Warn().Str("overlay", rej.Name).Str("error", rej.Err).Msg("config overlay skipped")
				}
			}

			router := httpapi.NewRouter(httpapi.NewService(brk), hub.Handler(), static)
			srv, err := server.New(server.Config{
				Addr:       cfg.Addr,
				SocketPath: cfg.SocketPath,
				Handler:    router,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			log.Info().Str("addr", cfg.Addr).Msg("overcast listening")
			return srv.Run(ctx, 5*time.Second)
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "overcast.yaml", "path to config file")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}

func initCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter overcast.yaml",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Scaffold(cfgPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", cfgPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "overcast.yaml", "path to config file")
	return cmd
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}
