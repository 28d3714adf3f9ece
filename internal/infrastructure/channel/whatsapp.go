package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"job-match/internal/config"
)

// TwilioWhatsApp sends WhatsApp messages through the Twilio Messages API.
type TwilioWhatsApp struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string
	client     *http.Client
}

func NewTwilioWhatsApp(cfg config.TwilioConfig, client *http.Client) *TwilioWhatsApp {
	if client == nil {
		client = http.DefaultClient
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = "https://api.twilio.com"
	}
	return &TwilioWhatsApp{
		accountSID: strings.TrimSpace(cfg.AccountSID),
		authToken:  cfg.AuthToken,
		from:       strings.TrimSpace(cfg.WhatsAppFrom),
		baseURL:    base,
		client:     client,
	}
}

type twilioError struct {
	Message string `json:"message"`
}

func (w *TwilioWhatsApp) SendWhatsApp(ctx context.Context, to, message string) error {
	if w == nil || w.accountSID == "" || w.authToken == "" || w.from == "" {
		return ErrChannelNotConfigured
	}

	form := url.Values{}
	form.Set("From", whatsappAddress(w.from))
	form.Set("To", whatsappAddress(to))
	form.Set("Body", message)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", w.baseURL, url.PathEscape(w.accountSID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(w.accountSID, w.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := w.client.Do(req)
	if err != nil {
		return requestError("twilio request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var out twilioError
		_ = json.NewDecoder(resp.Body).Decode(&out)
		return statusError("twilio", resp.StatusCode, out.Message)
	}
	return nil
}

func whatsappAddress(number string) string {
	number = strings.TrimSpace(number)
	if strings.HasPrefix(number, "whatsapp:") {
		return number
	}
	return "whatsapp:" + number
}
