package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/deliveryfeed/internal/auth"
	"github.com/rickgao/deliveryfeed/internal/config"
	"github.com/rickgao/deliveryfeed/internal/connection"
	"github.com/rickgao/deliveryfeed/internal/feed"
	"github.com/rickgao/deliveryfeed/internal/router"
	"github.com/rickgao/deliveryfeed/internal/version"
)

const statsInterval = 10 * time.Second

type options struct {
	configPath string
	envFile    string
	channels   []string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:           "feedtail",
		Short:         "Tail the realtime delivery-status feed",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", "configs/feedtail.example.yaml", "path to config file")
	f.StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before the config (ignored if missing)")
	f.StringSliceVar(&opts.channels, "channel", nil, "channel to open (repeatable, overrides feed.channels)")
	f.BoolVar(&opts.verbose, "verbose", false, "print full message JSON")

	return cmd
}

func run(parent context.Context, opts options) error {
	if opts.envFile != "" {
		if err := godotenv.Load(opts.envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load env file: %w", err)
		}
	}

	cfg, err := config.LoadAndValidate(opts.configPath)
	if err != nil {
		return err
	}
	if len(opts.channels) > 0 {
		cfg.Feed.Channels = opts.channels
	}

	logger, err := newLogger(cfg.Log, os.Stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := feed.NewRegistry(feed.Config{
		WSURL: cfg.Feed.WSURL,
		Client: connection.ClientConfig{
			HandshakeTimeout: cfg.Transport.HandshakeTimeout,
			PingInterval:     cfg.Transport.PingInterval,
			PingTimeout:      cfg.Transport.PingTimeout,
			WriteTimeout:     cfg.Transport.WriteTimeout,
			BufferSize:       cfg.Transport.BufferSize,
		},
	}, tokenSource(cfg.Session), logger,
		feed.WithPolicy(feed.FixedPolicy{
			MaxAttempts: cfg.Reconnect.MaxAttempts,
			Delay:       cfg.Reconnect.Delay,
		}),
	)
	defer reg.DisconnectAll()

	logger.Info("starting feed",
		"version", version.String(),
		"ws_url", cfg.Feed.WSURL,
		"channels", cfg.Feed.Channels,
	)

	g, gctx := errgroup.WithContext(ctx)
	streams := make(map[string]*feed.MessageStream, len(cfg.Feed.Channels))

	for _, name := range cfg.Feed.Channels {
		// Subscribe to state first so the Connecting transition is printed
		states := reg.StateOf(name).Subscribe(gctx)
		g.Go(func() error {
			for st := range states.C() {
				fmt.Printf("[STATE] channel=%s state=%s\n", name, st)
			}
			return nil
		})

		stream := reg.Connect(name)
		streams[name] = stream
		sub := stream.Subscribe(gctx)
		g.Go(func() error {
			for {
				for msg := range sub.Receive(gctx) {
					printEnvelope(os.Stdout, msg.Data, opts.verbose)
				}
				if gctx.Err() != nil {
					return nil
				}
				// Dropped for falling behind
				logger.Warn("subscriber fell behind, resubscribing", "channel", name)
				sub = stream.Subscribe(gctx)
			}
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(statsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				stats := reg.Stats()
				logger.Info("stats",
					"channels", stats.Channels,
					"connected", stats.Connected,
					"connecting", stats.Connecting,
					"router_received", stats.Router.Received,
					"router_routed", stats.Router.Routed,
					"parse_errors", stats.Router.ParseErrors,
					"unroutable", stats.Router.Unroutable,
				)
				for _, name := range reg.Channels() {
					if stream, ok := streams[name]; ok {
						logger.Debug("channel stats",
							"channel", name,
							"state", reg.StateOf(name).Get(),
							"published", stream.Published(),
						)
					}
				}
			}
		}
	})

	logger.Info("streaming started - press Ctrl+C to stop")
	<-gctx.Done()

	logger.Info("shutting down...")
	reg.DisconnectAll()
	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}

// tokenSource prefers static config credentials, then the token file, then
// the environment.
func tokenSource(sc config.SessionConfig) auth.TokenSource {
	var chain auth.Chain

	if creds, err := auth.LoadCredentials(sc.UserID, sc.AccessToken); err == nil {
		session := auth.NewSession()
		session.Set(creds)
		chain = append(chain, session)
	}
	if sc.TokenFile != "" {
		chain = append(chain, auth.FileSource{UserID: sc.UserID, TokenPath: sc.TokenFile})
	}
	return append(chain, auth.EnvSource{})
}

func printEnvelope(w io.Writer, env router.Envelope, verbose bool) {
	if verbose {
		var data bytes.Buffer
		if err := json.Indent(&data, env.Raw(), "", "  "); err == nil {
			fmt.Fprintf(w, "[%s] channel=%s id=%s\n%s\n", env.Type, env.Channel, env.ID, data.Bytes())
			return
		}
	}

	switch env.Type {
	case router.TypeNotificationStatus:
		if n, err := env.Notification(); err == nil {
			fmt.Fprintf(w, "[NOTIFICATION] channel=%s id=%s status=%s via=%s\n",
				env.Channel, n.NotificationID, n.Status, n.Channel)
			return
		}
	case router.TypeCampaignStatus:
		if c, err := env.Campaign(); err == nil {
			fmt.Fprintf(w, "[CAMPAIGN] channel=%s id=%s status=%s sent=%d delivered=%d success=%.1f%%\n",
				env.Channel, c.CampaignID, c.Status, c.TotalSent, c.TotalDelivered, c.SuccessRate())
			return
		}
	case router.TypeDashboardStats:
		if d, err := env.Dashboard(); err == nil {
			fmt.Fprintf(w, "[DASHBOARD] channel=%s total=%d today=%d delivered=%d failed=%d\n",
				env.Channel, d.TotalNotifications, d.TodayNotifications,
				d.SuccessRate.Delivered, d.SuccessRate.Failed)
			return
		}
	}
	fmt.Fprintf(w, "[%s] channel=%s %s\n", env.Type, env.Channel, env.Raw())
}
