package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const telegramAPIBase = "https://api.telegram.org"

// TelegramProvider delivers messages through the Telegram Bot API. The
// conversational front-end shares its bot token, so messages land in
// the user's existing chat.
type TelegramProvider struct {
	botToken string
	baseURL  string
	client   *http.Client
}

func NewTelegramProvider(botToken string, timeout time.Duration) *TelegramProvider {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &TelegramProvider{
		botToken: strings.TrimSpace(botToken),
		baseURL:  telegramAPIBase,
		client:   &http.Client{Timeout: timeout},
	}
}

// WithBaseURL points the provider at a different API host, used by tests.
func (p *TelegramProvider) WithBaseURL(baseURL string) *TelegramProvider {
	p.baseURL = strings.TrimRight(baseURL, "/")
	return p
}

func (p *TelegramProvider) SendMessage(ctx context.Context, userID int64, message string) error {
	if p.botToken == "" {
		return fmt.Errorf("telegram bot token is not configured")
	}

	body, err := json.Marshal(map[string]any{
		"chat_id": userID,
		"text":    message,
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", p.baseURL, p.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram sendMessage returned status %d", resp.StatusCode)
	}
	return nil
}
