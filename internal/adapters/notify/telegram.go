package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultTelegramBaseURL = "https://api.telegram.org"

// TelegramNotifier delivers team-lead routes through the Telegram Bot API.
type TelegramNotifier struct {
	session *http.Client
	token   string
	baseURL string
}

func NewTelegramNotifier(token, baseURL string) (*TelegramNotifier, error) {
	if token == "" {
		return nil, errors.New("telegram bot token is empty")
	}
	if baseURL == "" {
		baseURL = defaultTelegramBaseURL
	}
	return &TelegramNotifier{
		session: &http.Client{Timeout: 15 * time.Second},
		token:   token,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Result      struct {
		MessageID int64 `json:"message_id"`
	} `json:"result"`
}

// SendToTeamLead posts text to chatID and returns Telegram's message id.
func (n *TelegramNotifier) SendToTeamLead(ctx context.Context, chatID, text string) (string, error) {
	if strings.TrimSpace(chatID) == "" {
		return "", errors.New("telegram: empty chat id")
	}

	payload, err := json.Marshal(sendMessageRequest{ChatID: chatID, Text: text})
	if err != nil {
		return "", fmt.Errorf("telegram: marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("telegram: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.session.Do(req)
	if err != nil {
		// The URL carries the bot token; keep it out of reports.
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		return "", fmt.Errorf("telegram: send to %s: %w", chatID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("telegram: read response: %w", err)
	}

	var out sendMessageResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("telegram: status %d: decode response: %w", resp.StatusCode, err)
	}
	if resp.StatusCode >= 400 || !out.OK {
		return "", fmt.Errorf("telegram: status %d: %s", resp.StatusCode, out.Description)
	}

	return strconv.FormatInt(out.Result.MessageID, 10), nil
}
