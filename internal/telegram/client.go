// Package telegram sends a short dashboard digest via the Telegram Bot API.
// It formats signup totals and platform activity into a MarkdownV2 message
// and delivers it with retry logic.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rewired-gh/signuptrends/internal/models"
)

// sender is the part of tgbotapi.BotAPI the client uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Client handles Telegram notifications
type Client struct {
	bot            sender
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a new Telegram client
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	return newClient(bot, chatID, maxRetries, retryDelayBase)
}

func newClient(bot sender, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Client{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}, nil
}

// SendDigest sends a summary of the dashboard
func (c *Client) SendDigest(ctx context.Context, d *models.Dashboard) error {
	msg := tgbotapi.NewMessage(c.chatID, formatDigest(d))
	msg.ParseMode = "MarkdownV2"

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryDelayBase * time.Duration(i)):
			}
		}
		if _, err := c.bot.Send(msg); err != nil {
			lastErr = err
			continue
		}
		return nil
	}

	return fmt.Errorf("failed to send message after %d retries: %w", c.maxRetries, lastErr)
}

// formatDigest formats the dashboard into a Telegram message
func formatDigest(d *models.Dashboard) string {
	var b strings.Builder

	b.WriteString("📊 *Signup Trends*\n")
	b.WriteString(fmt.Sprintf("📅 %s\n", escapeMarkdownV2(d.GeneratedAt.Format("2006-01-02 15:04"))))
	if d.Status != models.StatusComplete {
		b.WriteString(fmt.Sprintf("⚠️ Status: %s\n", escapeMarkdownV2(string(d.Status))))
		for _, s := range d.Sources {
			if s.Status != models.SourceOK {
				b.WriteString(fmt.Sprintf("   • %s unavailable\n", escapeMarkdownV2(s.Name)))
			}
		}
	}
	b.WriteString("\n")

	b.WriteString("*Signups*\n")
	if len(d.Cohorts) == 0 {
		b.WriteString("   no data\n")
	}
	for _, c := range d.Cohorts {
		line := fmt.Sprintf("%d: %s", c.Year, humanize.Comma(int64(c.Total)))
		if sum, ok := d.Summary(c.Year); ok && sum.PeakMonth != "" {
			line += fmt.Sprintf(" (best month %s, %s; avg %s/month)", sum.PeakMonth,
				humanize.Comma(int64(sum.PeakSignups)), humanize.Comma(int64(sum.AverageMonthly)))
		}
		b.WriteString("   " + escapeMarkdownV2(line) + "\n")
	}
	b.WriteString("\n")

	a := d.Activity
	b.WriteString(fmt.Sprintf("*Platform users*: %s\n", escapeMarkdownV2(humanize.Comma(int64(a.TotalUsers)))))
	for _, label := range models.RecencyBuckets {
		n := a.BucketCounts[label]
		line := fmt.Sprintf("%s: %s", label, humanize.Comma(int64(n)))
		if a.TotalUsers > 0 {
			line += fmt.Sprintf(" (%.1f%%)", float64(n)*100/float64(a.TotalUsers))
		}
		b.WriteString("   " + escapeMarkdownV2(line) + "\n")
	}
	if len(a.DailyActiveSeries) > 0 {
		today := a.DailyActiveSeries[len(a.DailyActiveSeries)-1]
		b.WriteString(escapeMarkdownV2(fmt.Sprintf("Active today: %s", humanize.Comma(int64(today.Count)))) + "\n")
	}

	return b.String()
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2
func escapeMarkdownV2(text string) string {
	// Characters that need escaping in MarkdownV2:
	// _ * [ ] ( ) ~ ` > # + - = | { } . !
	var b strings.Builder
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteRune('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
