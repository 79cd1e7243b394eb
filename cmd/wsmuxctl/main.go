// wsmuxctl is a terminal client for the channel-multiplexed chat protocol:
// it connects to a server, negotiates one channel, optionally sends a
// message, and tails inbound traffic until interrupted. Reconnect policy
// lives here, not in the dispatcher.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jpillora/backoff"
	"github.com/rs/zerolog"

	"github.com/danmuck/wsmux/internal/dispatch"
	"github.com/danmuck/wsmux/internal/handoff"
	"github.com/danmuck/wsmux/internal/logging"
	"github.com/danmuck/wsmux/internal/transport"
	"github.com/danmuck/wsmux/internal/wire"
)

func main() {
	logging.ConfigureRuntime()
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "wsmuxctl: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to a wsmuxctl.toml config file")
	server := flag.String("server", "", "server websocket URL (overrides config)")
	domain := flag.String("domain", "", "channel domain to request (overrides config)")
	nick := flag.String("nick", "", "sender name for outbound messages (overrides config)")
	say := flag.String("say", "", "message to send once the channel is established")
	flag.Parse()

	cfg := defaultClientConfig()
	if *configPath != "" {
		loaded, err := loadClientConfig(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if v := strings.TrimSpace(*server); v != "" {
		cfg.ServerURL = v
	}
	if v := strings.TrimSpace(*domain); v != "" {
		cfg.Domain = v
	}
	if v := strings.TrimSpace(*nick); v != "" {
		cfg.Nick = v
	}

	log := logging.Component("wsmuxctl")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dial, err := transport.Dial(cfg.ServerURL)
	if err != nil {
		return err
	}

	bo := &backoff.Backoff{
		Min:    250 * time.Millisecond,
		Max:    5 * time.Second,
		Factor: 2,
		Jitter: true,
	}
	for attempt := 1; ; attempt++ {
		err := session(ctx, log, cfg, dial, *say)
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			// Clean stream end; start the retry budget over.
			bo.Reset()
			attempt = 0
			log.Info().Msg("connection ended, reconnecting")
		} else {
			log.Warn().Err(err).Int("attempt", attempt).Msg("session failed")
			if attempt >= cfg.MaxConnectAttempts {
				return fmt.Errorf("giving up after %d attempts: %w", attempt, err)
			}
		}
		delay := bo.Duration()
		log.Info().Dur("delay", delay).Msg("waiting before reconnect")
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil
		}
	}
}

// session runs one dispatcher lifetime: connect, negotiate a channel, send
// and tail until the stream ends or ctx is canceled.
func session(ctx context.Context, log zerolog.Logger, cfg clientConfig, dial transport.DialFunc, say string) error {
	cell := handoff.NewCell[*dispatch.Dispatcher]()
	runDone := make(chan error, 1)
	go func() {
		runDone <- dispatch.Run(ctx, cell, dial, dispatch.WithQueueDepth(cfg.QueueDepth))
	}()

	d, ok := cell.Wait(cfg.ConnectTimeout)
	if !ok {
		// The deadline has passed; surface the dial error if Run already
		// failed instead of waiting any longer.
		select {
		case err := <-runDone:
			if err != nil {
				return err
			}
			return errors.New("dispatcher ended before publishing")
		default:
			return fmt.Errorf("no dispatcher within %v", cfg.ConnectTimeout)
		}
	}
	log.Info().Str("client_id", d.ClientID()).Msg("connected")

	ch := d.ConnectChannel(cfg.Domain)
	established := make(chan struct{}, 1)
	refused := make(chan struct{}, 1)
	closed := make(chan struct{}, 1)
	ch.OnEstablished(func() { established <- struct{}{} })
	ch.OnRefused(func() { refused <- struct{}{} })
	ch.OnClosed(func() { closed <- struct{}{} })
	ch.OnMessage(func(msg wire.Message) {
		switch m := msg.(type) {
		case wire.RoomMessage:
			fmt.Printf("<%s> %s\n", m.Sender, m.Body)
		case wire.UserJoined:
			fmt.Printf("* %s joined\n", m.User)
		case wire.UserLeft:
			fmt.Printf("* %s left\n", m.User)
		default:
			log.Debug().Str("type", msg.Type()).Msg("unhandled message")
		}
	})

	// The protocol has no negotiation timeout; the owner enforces one here.
	select {
	case <-established:
		log.Info().Str("channel", ch.ID()).Str("domain", cfg.Domain).Msg("channel established")
	case <-refused:
		return fmt.Errorf("server refused channel for domain %q", cfg.Domain)
	case <-time.After(cfg.EstablishTimeout):
		return fmt.Errorf("channel not established within %v", cfg.EstablishTimeout)
	case err := <-runDone:
		if err != nil {
			return err
		}
		return errors.New("connection ended during negotiation")
	case <-ctx.Done():
		return nil
	}

	if say != "" {
		if err := ch.RequestSend(wire.RoomMessage{Sender: cfg.Nick, Body: say}); err != nil {
			return fmt.Errorf("send message: %w", err)
		}
	}

	for {
		select {
		case <-closed:
			log.Info().Msg("channel closed by peer")
		case err := <-runDone:
			return err
		case <-ctx.Done():
			ch.Close()
			select {
			case err := <-runDone:
				return err
			case <-time.After(2 * time.Second):
				return nil
			}
		}
	}
}
