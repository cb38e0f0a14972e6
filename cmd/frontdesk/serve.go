package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/slack-go/slack"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gosuda/frontdesk/internal/auth"
	"github.com/gosuda/frontdesk/internal/catalog"
	"github.com/gosuda/frontdesk/internal/changefeed"
	"github.com/gosuda/frontdesk/internal/config"
	"github.com/gosuda/frontdesk/internal/escalation"
	"github.com/gosuda/frontdesk/internal/resolution"
	"github.com/gosuda/frontdesk/internal/server"
	"github.com/gosuda/frontdesk/internal/speech"
)

func init() { //nolint:gochecknoinits // cobra registration
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{ //nolint:gochecknoglobals // cobra command
	Use:   "serve",
	Short: "Run the HTTP API, change streams, and the optional sweep scheduler",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	caps := cfg.Capabilities()

	// Graceful shutdown on SIGINT / SIGTERM.
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	transport, closeTransport, err := openTransport(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeTransport()
	feed := changefeed.NewFeed(transport)

	var synth speech.Synthesizer = speech.Disabled{}
	if caps.SpeechEnabled {
		synth = speech.WithTimeout(speech.NewOpenAI(speech.OpenAIConfig{
			APIKey:  cfg.Speech.APIKey,
			BaseURL: cfg.Speech.BaseURL,
			Model:   cfg.Speech.Model,
			Voice:   cfg.Speech.Voice,
		}), cfg.Speech.Timeout)
	}
	engine := resolution.New(store.HelpRequests(), store.Knowledge(), synth, feed)
	catalogSvc := catalog.New(store.Rooms(), store.Bookings())

	// Answers 501 from the token route unless key, secret and URL are all set.
	roomTokens := auth.NewRoomTokens(cfg.Room.APIKey, cfg.Room.APISecret, cfg.Room.URL, cfg.Room.TokenTTL)

	log.Info().
		Bool("speech", caps.SpeechEnabled).
		Bool("room_transport", caps.RoomTransportEnabled).
		Bool("slack", cfg.Slack.Enabled()).
		Msg("capabilities resolved")

	srv := server.New(ctx, cfg, engine, catalogSvc, store.HelpRequests(), transport, roomTokens)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", cfg.Server.Addr).Msg("starting server")
		return srv.Start(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.Sweep.Schedule != "" {
		scheduler, schedErr := escalation.NewScheduler(newSweeper(cfg, store, feed), cfg.Sweep.Schedule, cfg.Sweep.Threshold)
		if schedErr != nil {
			return schedErr
		}
		g.Go(func() error { return scheduler.Run(gctx) })
	}

	if err = g.Wait(); err != nil {
		return err
	}

	log.Info().Msg("stopped")
	return nil
}

func newSweeper(cfg *config.Config, store requestStore, emitter escalation.Emitter) *escalation.Sweeper {
	opts := []escalation.Option{escalation.WithBatchSize(cfg.Sweep.BatchSize)}
	if cfg.Slack.Enabled() {
		opts = append(opts, escalation.WithNotifier(
			escalation.NewSlackNotifier(slack.New(cfg.Slack.BotToken), cfg.Slack.Channel),
		))
	}
	return escalation.NewSweeper(store.HelpRequests(), emitter, opts...)
}
