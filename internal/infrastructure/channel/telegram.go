package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"job-match/internal/config"
)

type TelegramBot struct {
	token   string
	baseURL string
	client  *http.Client
}

func NewTelegramBot(cfg config.TelegramConfig, client *http.Client) *TelegramBot {
	if client == nil {
		client = http.DefaultClient
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = "https://api.telegram.org"
	}
	return &TelegramBot{token: strings.TrimSpace(cfg.BotToken), baseURL: base, client: client}
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (t *TelegramBot) SendTelegram(ctx context.Context, chatID, message string) error {
	if t == nil || t.token == "" {
		return ErrChannelNotConfigured
	}

	payload, err := json.Marshal(map[string]string{"chat_id": chatID, "text": message})
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return requestError("telegram request", err)
	}
	defer resp.Body.Close()

	var out telegramResponse
	_ = json.NewDecoder(resp.Body).Decode(&out)
	if resp.StatusCode >= 300 || !out.OK {
		return statusError("telegram", resp.StatusCode, out.Description)
	}
	return nil
}
