package logship

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"time"

	tele "gopkg.in/telebot.v4"
)

const telegramTimeout = 30 * time.Second

// TelegramTransport delivers to a single chat (and optional forum topic)
// through the Bot API. Token validity is checked up front: telebot performs a
// getMe call during construction.
type TelegramTransport struct {
	bot     *tele.Bot
	chat    *tele.Chat
	topicID int
}

func NewTelegramTransport(token string, chatID int64, topicID int) (*TelegramTransport, error) {
	b, err := tele.NewBot(tele.Settings{
		Token:  token,
		Client: &http.Client{Timeout: telegramTimeout},
	})
	if err != nil {
		return nil, classify(err)
	}
	return &TelegramTransport{bot: b, chat: &tele.Chat{ID: chatID}, topicID: topicID}, nil
}

func (t *TelegramTransport) SendMessage(ctx context.Context, text string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	opt := &tele.SendOptions{
		ParseMode:             tele.ModeMarkdown,
		DisableWebPagePreview: true,
		ThreadID:              t.topicID,
	}
	msg, err := t.bot.Send(t.chat, text, opt)
	if err != nil {
		return 0, classify(err)
	}
	return msg.ID, nil
}

func (t *TelegramTransport) EditMessage(ctx context.Context, messageID int, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m := &tele.Message{ID: messageID, Chat: t.chat}
	opt := &tele.SendOptions{
		ParseMode:             tele.ModeMarkdown,
		DisableWebPagePreview: true,
	}
	if _, err := t.bot.Edit(m, text, opt); err != nil {
		return classify(err)
	}
	return nil
}

func (t *TelegramTransport) SendDocument(ctx context.Context, name string, content []byte, caption string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	doc := &tele.Document{
		File:     tele.FromReader(bytes.NewReader(content)),
		FileName: name,
		Caption:  caption,
	}
	msg, err := t.bot.Send(t.chat, doc, &tele.SendOptions{ThreadID: t.topicID})
	if err != nil {
		return 0, classify(err)
	}
	return msg.ID, nil
}

// classify maps telebot errors onto the engine's taxonomy. Flood control is
// checked first: telebot's FloodError embeds its generic Error.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var fe tele.FloodError
	if errors.As(err, &fe) {
		return &FloodError{Wait: time.Duration(fe.RetryAfter) * time.Second}
	}
	var te *tele.Error
	if errors.As(err, &te) {
		return &TransportError{Code: te.Code, Description: te.Description}
	}
	// Network-level failure; leave it as-is for the generic retry path.
	return err
}
