package dialogue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/formfill/chatbot/backend/internal/model/chat"
)

// QABackend speaks the plain question-answer protocol of the single-turn
// bots: POST {text_question} and {success, bot_answer} back.
type QABackend struct {
	url    string
	client *http.Client
}

// NewQABackend builds a driver for a question-answer endpoint.
func NewQABackend(url string, client *http.Client) *QABackend {
	if client == nil {
		client = http.DefaultClient
	}
	return &QABackend{url: url, client: client}
}

// Send relays the question and wraps the answer as one text reply element.
func (b *QABackend) Send(ctx context.Context, _, message string, _ []chat.Turn) ([]chat.ReplyElement, error) {
	body, err := json.Marshal(map[string]string{"text_question": message})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("qa backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("qa backend returned status %d", resp.StatusCode)
	}

	var payload struct {
		Success   bool   `json:"success"`
		BotAnswer string `json:"bot_answer"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode qa reply: %w", err)
	}
	if !payload.Success {
		return nil, fmt.Errorf("qa backend reported failure")
	}
	return chat.TextElement(payload.BotAnswer), nil
}
