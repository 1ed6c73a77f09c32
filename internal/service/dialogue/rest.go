package dialogue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/formfill/chatbot/backend/internal/model/chat"
)

// RESTBackend speaks the Rasa REST webhook protocol: POST {sender, message}
// and an ordered array of reply elements back.
type RESTBackend struct {
	url    string
	client *http.Client
}

// NewRESTBackend builds a webhook driver for the given endpoint URL. The
// supplied client controls transport-level timeouts; nil means defaults.
func NewRESTBackend(url string, client *http.Client) *RESTBackend {
	if client == nil {
		client = http.DefaultClient
	}
	return &RESTBackend{url: url, client: client}
}

// Send relays one user utterance and decodes the structured reply array.
func (b *RESTBackend) Send(ctx context.Context, sender, message string, _ []chat.Turn) ([]chat.ReplyElement, error) {
	body, err := json.Marshal(map[string]string{
		"sender":  sender,
		"message": message,
	})
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
		return nil, fmt.Errorf("dialogue webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("dialogue webhook returned status %d", resp.StatusCode)
	}

	var elements []chat.ReplyElement
	if err := json.NewDecoder(resp.Body).Decode(&elements); err != nil {
		return nil, fmt.Errorf("decode dialogue reply: %w", err)
	}
	return elements, nil
}
