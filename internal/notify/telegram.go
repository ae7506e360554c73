// Package notify sends run summaries to a Telegram chat.
package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"jobharvest/internal/background"
	"jobharvest/internal/config"
	"jobharvest/internal/logging"
	"jobharvest/pkg/utils"
)

// topSkills is how many skills the summary lists
const topSkills = 5

// Sender is the part of the bot API used to deliver messages
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts a summary of every finished harvest
type Telegram struct {
	bot    Sender
	chatID int64
	logger logging.Logger
}

// NewTelegram connects to the bot API with the configured token
func NewTelegram(cfg *config.Config, logger logging.Logger) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram bot: %w", err)
	}
	return NewTelegramWithSender(bot, cfg.Telegram.ChatID, logger), nil
}

// NewTelegramWithSender creates a notifier on an existing sender
func NewTelegramWithSender(bot Sender, chatID int64, logger logging.Logger) *Telegram {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Telegram{bot: bot, chatID: chatID, logger: logger}
}

// NotifyCompletion sends the summary for result
func (t *Telegram) NotifyCompletion(ctx context.Context, result *background.TaskResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(t.chatID, FormatSummary(result))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}

	t.logger.Debug("Run summary sent to Telegram", map[string]interface{}{
		"process_id": result.ProcessID,
		"chat_id":    t.chatID,
	})
	return nil
}

// FormatSummary renders result as a Telegram HTML message
func FormatSummary(result *background.TaskResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "<b>Harvest %s</b> (%s)\n", result.Status, html.EscapeString(string(result.Type)))
	if result.ProcessingTime != nil {
		fmt.Fprintf(&b, "Duration: %s\n", utils.FormatDuration(*result.ProcessingTime))
	}
	if result.Error != "" {
		fmt.Fprintf(&b, "Error: %s\n", html.EscapeString(result.Error))
	}

	data := result.Data
	if data == nil {
		return strings.TrimRight(b.String(), "\n")
	}

	fmt.Fprintf(&b, "Jobs: <b>%d</b> (duplicates %d, filtered %d, seen before %d)\n",
		data.Records, data.Duplicates, data.Filtered, data.SeenBefore)

	if data.Summary.WithSalary > 0 {
		fmt.Fprintf(&b, "With salary: %d, average %.0f\n", data.Summary.WithSalary, data.Summary.AverageSalary)
	}

	if len(data.Sources) > 0 {
		b.WriteString("\n<b>Sources</b>\n")
		for _, s := range data.Sources {
			if s.Error != "" {
				fmt.Fprintf(&b, "• %s: failed (%s)\n", html.EscapeString(s.Name), html.EscapeString(s.Error))
				continue
			}
			fmt.Fprintf(&b, "• %s: %d jobs from %d pages\n", html.EscapeString(s.Name), s.Records, s.Pages)
		}
	}

	if skills := data.Summary.TopSkills; len(skills) > 0 {
		if len(skills) > topSkills {
			skills = skills[:topSkills]
		}
		names := make([]string, len(skills))
		for i, s := range skills {
			names[i] = fmt.Sprintf("%s (%d)", html.EscapeString(s.Key), s.Count)
		}
		fmt.Fprintf(&b, "\n<b>Top skills</b>\n%s\n", strings.Join(names, ", "))
	}

	for _, e := range data.Exports {
		if e.Error != "" {
			fmt.Fprintf(&b, "\nExport %s failed: %s", html.EscapeString(e.Sink), html.EscapeString(e.Error))
		}
	}

	return strings.TrimRight(b.String(), "\n")
}
