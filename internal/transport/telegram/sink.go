// Package telegram is a send-only Telegram transport for alert
// escalation. There is no poller and no inbound handling; the bot only
// pushes messages into one configured chat.
package telegram

import (
	"context"
	"errors"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"fieldops/pkg/logx"
)

type Config struct {
	Token  string
	ChatID int64
}

type Sink struct {
	bot    *tele.Bot
	chatID int64
	log    logx.Logger
}

func New(cfg Config, log logx.Logger) (*Sink, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram chat_id is required")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	b, err := tele.NewBot(tele.Settings{Token: cfg.Token})
	if err != nil {
		return nil, err
	}
	return &Sink{bot: b, chatID: cfg.ChatID, log: log}, nil
}

// Send pushes one text message. telebot has no context plumbing, so the
// call runs in a goroutine and the context only bounds the wait.
func (s *Sink) Send(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}
	done := make(chan error, 1)
	go func() {
		_, err := s.bot.Send(tele.ChatID(s.chatID), text)
		done <- err
	}()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
