// Package bot announces new findings and answers chat commands.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/starford/pfnbot/internal/apperr"
	"github.com/starford/pfnbot/internal/findingservice"
	"github.com/starford/pfnbot/internal/models"
	"github.com/starford/pfnbot/internal/scanner"
	"github.com/starford/pfnbot/internal/storage"
)

// Reply texts.
const (
	foundOneFmt  = "Znalazłem!\nData: %s\nGodzina: %s\nRef: %s"
	foundMany    = "Znalazłem trochę więcej meteorów...\n"
	foundManyRef = "Ref: %s\n"
	notFound     = "Nie znalazłem detekcji o podanym refie"
	ambiguous    = "Ochuj :o"
	status       = "No żyję, spokojnie. Nic nie wrzucam bo nic nie spada, może chmury?"
)

// Message is an inbound chat message.
type Message struct {
	AuthorID  string
	ChannelID string
	Content   string
}

// Outgoing is a chat message with an optional attached file.
type Outgoing struct {
	Content string
	File    string
}

// Client is the chat transport.
type Client interface {
	// Send posts msg to channelID.
	Send(ctx context.Context, channelID string, msg Outgoing) error
	// SelfID returns the user ID the bot is logged in as.
	SelfID() string
}

// Config holds the bot settings.
type Config struct {
	ChannelID string
	WatchDir  string
	// Interval is the wait between polls.
	Interval time.Duration
	// Settle is the wait after a watcher nudge before polling, letting the
	// camera finish writing.
	Settle time.Duration
}

// Bot polls the watch directory and handles commands. Both paths share the
// store, which serialises its own mutations.
type Bot struct {
	cfg       Config
	store     storage.Store
	conv      findingservice.Converter
	svc       *findingservice.Service
	client    Client
	logger    *slog.Logger
	onFinding func(models.Finding)
}

// Option configures a Bot.
type Option func(*Bot)

// WithFindingCallback registers cb to be called for every appended finding.
func WithFindingCallback(cb func(models.Finding)) Option {
	return func(b *Bot) {
		b.onFinding = cb
	}
}

// New creates a Bot.
func New(cfg Config, store storage.Store, conv findingservice.Converter, client Client, logger *slog.Logger, opts ...Option) *Bot {
	if cfg.Interval <= 0 {
		cfg.Interval = 60 * time.Second
	}
	if cfg.Settle <= 0 {
		cfg.Settle = 2 * time.Second
	}
	b := &Bot{
		cfg:    cfg,
		store:  store,
		conv:   conv,
		svc:    findingservice.NewService(store, conv),
		client: client,
		logger: logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run polls every Interval until ctx is cancelled. A value on nudge
// schedules a poll after Settle instead; nudge may be nil.
//
// Any poll error ends the loop and is returned.
func (b *Bot) Run(ctx context.Context, nudge <-chan struct{}) error {
	timer := time.NewTimer(b.cfg.Interval)
	defer timer.Stop()

	b.logger.Info("poller: started",
		slog.String("watch_dir", b.cfg.WatchDir),
		slog.Duration("interval", b.cfg.Interval))

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("poller: stopped")
			return nil
		case <-nudge:
			timer.Reset(b.cfg.Settle)
			continue
		case <-timer.C:
		}

		if err := b.Poll(ctx); err != nil {
			return fmt.Errorf("poller: %w", err)
		}
		timer.Reset(b.cfg.Interval)
	}
}

// Poll runs one scan and announces what is new. A single new finding is
// announced with its image; several are summarised by ref without images.
func (b *Bot) Poll(ctx context.Context) error {
	paths, err := scanner.FilterNew(b.store, b.cfg.WatchDir)
	if err != nil {
		return err
	}

	switch len(paths) {
	case 0:
		b.logger.Debug("poller: nothing new")
		return nil

	case 1:
		f, err := b.record(paths[0])
		if err != nil {
			return err
		}
		photo, err := b.conv.Convert(f.Path)
		if err != nil {
			return err
		}
		return b.client.Send(ctx, b.cfg.ChannelID, Outgoing{
			Content: fmt.Sprintf(foundOneFmt, f.Date, f.Time, f.Ref),
			File:    photo,
		})

	default:
		var sb strings.Builder
		sb.WriteString(foundMany)
		for _, p := range paths {
			f, err := b.record(p)
			if err != nil {
				return err
			}
			fmt.Fprintf(&sb, foundManyRef, f.Ref)
		}
		return b.client.Send(ctx, b.cfg.ChannelID, Outgoing{Content: sb.String()})
	}
}

func (b *Bot) record(path string) (models.Finding, error) {
	f, err := b.store.Append(path)
	if err != nil {
		return models.Finding{}, err
	}
	b.logger.Info("poller: new finding",
		slog.String("path", f.Path),
		slog.String("ref", f.Ref))
	if b.onFinding != nil {
		b.onFinding(f)
	}
	return f, nil
}

// HandleMessage reacts to one inbound message. Messages from the bot itself
// are ignored.
func (b *Bot) HandleMessage(ctx context.Context, m Message) error {
	if m.AuthorID == b.client.SelfID() {
		return nil
	}

	cmd := ParseCommand(m.Content)
	switch cmd.Kind {
	case CommandRef:
		return b.lookup(ctx, cmd.Ref)
	case CommandStatus:
		return b.client.Send(ctx, m.ChannelID, Outgoing{Content: status})
	default:
		return nil
	}
}

// lookup answers a ref query on the configured channel.
func (b *Bot) lookup(ctx context.Context, ref string) error {
	f, err := b.svc.Resolve(ctx, ref)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return b.client.Send(ctx, b.cfg.ChannelID, Outgoing{Content: notFound})
	case errors.Is(err, apperr.ErrAmbiguous):
		b.logger.Warn("command: ref collision", slog.String("ref", ref))
		return b.client.Send(ctx, b.cfg.ChannelID, Outgoing{Content: ambiguous})
	case err != nil:
		return err
	}

	photo, err := b.conv.Convert(f.Path)
	if err != nil {
		return err
	}
	return b.client.Send(ctx, b.cfg.ChannelID, Outgoing{File: photo})
}
