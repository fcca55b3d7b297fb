// Package line wraps the LINE Messaging API client used for both
// conversational replies and reminder pushes.
package line

import (
	"context"
	"fmt"
	"net/http"

	"github.com/line/line-bot-sdk-go/v7/linebot"
)

type Client struct {
	bot *linebot.Client
}

func New(channelSecret, channelAccessToken string) (*Client, error) {
	bot, err := linebot.New(channelSecret, channelAccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create LINE client: %w", err)
	}
	return &Client{bot: bot}, nil
}

// ParseRequest validates the webhook signature and decodes the events.
// Returns linebot.ErrInvalidSignature on a bad signature.
func (c *Client) ParseRequest(r *http.Request) ([]*linebot.Event, error) {
	return c.bot.ParseRequest(r)
}

func (c *Client) Reply(ctx context.Context, replyToken, text string) error {
	_, err := c.bot.ReplyMessage(replyToken, linebot.NewTextMessage(text)).WithContext(ctx).Do()
	return err
}

func (c *Client) Push(ctx context.Context, userID, text string) error {
	_, err := c.bot.PushMessage(userID, linebot.NewTextMessage(text)).WithContext(ctx).Do()
	return err
}
