package main

import (
	"bufio"
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gosuda/frontdesk/internal/notify"
)

var ( //nolint:gochecknoglobals // cobra flags
	listenServer   string
	listenID       string
	listenOut      string
	listenAutoplay bool
)

func init() { //nolint:gochecknoinits // cobra registration
	listenCmd.Flags().StringVar(&listenServer, "server", "http://localhost:8080", "frontdesk server base URL")
	listenCmd.Flags().StringVar(&listenID, "id", "", "help request id to watch")
	listenCmd.Flags().StringVar(&listenOut, "out", ".", "directory answers are written to")
	listenCmd.Flags().BoolVar(&listenAutoplay, "autoplay", false, "play without waiting for Enter")
	_ = listenCmd.MarkFlagRequired("id")
	rootCmd.AddCommand(listenCmd)
}

var listenCmd = &cobra.Command{ //nolint:gochecknoglobals // cobra command
	Use:   "listen",
	Short: "Follow one help request and play its answer when it arrives",
	RunE:  runListen,
}

func runListen(cmd *cobra.Command, _ []string) error {
	id, err := uuid.Parse(listenID)
	if err != nil {
		return fmt.Errorf("--id: %w", err)
	}
	wsURL, err := requestStreamURL(listenServer, id)
	if err != nil {
		return err
	}

	seen, err := notify.NewLRU(notify.DefaultDedupeCapacity)
	if err != nil {
		return err
	}
	player, err := notify.NewFilePlayer(listenOut)
	if err != nil {
		return err
	}
	listener := notify.NewListener(seen, player, notify.NewHTTPSpeechFetcher(listenServer, 15*time.Second))

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return notify.Watch(gctx, wsURL, listener, notify.WatchOptions{})
	})

	if listenAutoplay {
		if err = listener.Unlock(ctx); err != nil {
			log.Warn().Err(err).Msg("unlock")
		}
	} else {
		fmt.Fprintln(cmd.ErrOrStderr(), "press Enter to enable playback")
		g.Go(func() error { return unlockOnEnter(gctx, listener) })
	}

	return g.Wait()
}

// unlockOnEnter stands in for the user gesture a browser requires before audio.
func unlockOnEnter(ctx context.Context, l *notify.Listener) error {
	lines := make(chan struct{})
	go func() {
		_, _ = bufio.NewReader(os.Stdin).ReadString('\n')
		close(lines)
	}()

	select {
	case <-ctx.Done():
		return nil
	case <-lines:
	}

	log.Info().Int("queued", l.Pending()).Msg("playback enabled")
	if err := l.Unlock(ctx); err != nil {
		log.Warn().Err(err).Msg("unlock")
	}
	return nil
}

// requestStreamURL maps http(s)://host to ws(s)://host/ws/requests/{id}.
func requestStreamURL(server string, id uuid.UUID) (string, error) {
	u, err := url.Parse(server)
	if err != nil {
		return "", fmt.Errorf("--server: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("--server: unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/requests/" + id.String()
	return u.String(), nil
}
