// Package discord connects the bot to a Discord channel through discordgo.
package discord

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"

	"github.com/starford/pfnbot/internal/bot"
)

// Handler processes one inbound message.
type Handler func(ctx context.Context, m bot.Message) error

// Client is a discordgo gateway session implementing bot.Client.
type Client struct {
	session *discordgo.Session
	logger  *slog.Logger
	selfID  atomic.Value // string
}

var _ bot.Client = (*Client)(nil)

// New creates a client for the given bot token. The session is not opened.
func New(token string, logger *slog.Logger) (*Client, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord: new session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentMessageContent

	c := &Client{session: s, logger: logger}
	c.selfID.Store("")
	return c, nil
}

// Open connects to the gateway and dispatches every created message to
// handle until the session is closed. Handler errors are logged.
func (c *Client) Open(ctx context.Context, handle Handler) error {
	c.session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		c.selfID.Store(r.User.ID)
		c.logger.Info("discord: logged in",
			slog.String("user", r.User.Username),
			slog.String("user_id", r.User.ID))
	})
	c.session.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		msg, ok := toMessage(m)
		if !ok {
			return
		}
		if err := handle(ctx, msg); err != nil {
			c.logger.Error("discord: handle message failed",
				slog.String("channel_id", msg.ChannelID),
				slog.String("error", err.Error()))
		}
	})

	if err := c.session.Open(); err != nil {
		return fmt.Errorf("discord: open: %w", err)
	}
	if u := c.session.State.User; u != nil {
		c.selfID.Store(u.ID)
	}
	return nil
}

// Close closes the gateway connection.
func (c *Client) Close() error {
	return c.session.Close()
}

// SelfID returns the bot's own user ID, or "" before login.
func (c *Client) SelfID() string {
	return c.selfID.Load().(string)
}

// Send posts msg to channelID, attaching msg.File when set.
func (c *Client) Send(ctx context.Context, channelID string, msg bot.Outgoing) error {
	data, closer, err := toMessageSend(msg)
	if err != nil {
		return err
	}
	defer closer.Close()

	if _, err := c.session.ChannelMessageSendComplex(channelID, data, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord: send to %s: %w", channelID, err)
	}
	c.logger.Debug("discord: sent",
		slog.String("channel_id", channelID),
		slog.Bool("attachment", msg.File != ""))
	return nil
}

func toMessage(m *discordgo.MessageCreate) (bot.Message, bool) {
	if m == nil || m.Message == nil || m.Author == nil {
		return bot.Message{}, false
	}
	return bot.Message{
		AuthorID:  m.Author.ID,
		ChannelID: m.ChannelID,
		Content:   m.Content,
	}, true
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// toMessageSend builds the discordgo payload. The returned closer releases
// the attachment file.
func toMessageSend(msg bot.Outgoing) (*discordgo.MessageSend, io.Closer, error) {
	data := &discordgo.MessageSend{Content: msg.Content}
	if msg.File == "" {
		return data, nopCloser{}, nil
	}
	f, err := os.Open(msg.File)
	if err != nil {
		return nil, nil, fmt.Errorf("discord: open attachment: %w", err)
	}
	data.Files = []*discordgo.File{{
		Name:        filepath.Base(msg.File),
		ContentType: "image/png",
		Reader:      f,
	}}
	return data, f, nil
}
