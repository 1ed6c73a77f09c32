package dialogue

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/formfill/chatbot/backend/internal/model/chat"
)

// historyLimit caps how many prior turns are replayed to the model.
const historyLimit = 10

// LLMBackend drives a chat model directly through an eino chain instead of a
// remote dialogue engine. Replies are always a single text element.
type LLMBackend struct {
	systemPrompt string
	chain        compose.Runnable[map[string]any, *schema.Message]
}

// NewLLMBackend compiles the prompt/model chain for the given system prompt.
func NewLLMBackend(ctx context.Context, chatModel model.ChatModel, systemPrompt string) (*LLMBackend, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile chat chain: %w", err)
	}

	return &LLMBackend{systemPrompt: systemPrompt, chain: runnable}, nil
}

// Send invokes the chain with the recent transcript as model history.
func (b *LLMBackend) Send(ctx context.Context, _, message string, history []chat.Turn) ([]chat.ReplyElement, error) {
	response, err := b.chain.Invoke(ctx, map[string]any{
		"system":  b.systemPrompt,
		"history": buildHistoryMessages(history),
		"query":   message,
	})
	if err != nil {
		return nil, fmt.Errorf("run chat chain: %w", err)
	}
	return chat.TextElement(response.Content), nil
}

// buildHistoryMessages converts transcript turns into model messages; only
// plain-text bot turns are replayable.
func buildHistoryMessages(turns []chat.Turn) []*schema.Message {
	if len(turns) == 0 {
		return nil
	}

	start := 0
	if len(turns) > historyLimit {
		start = len(turns) - historyLimit
	}

	history := make([]*schema.Message, 0, len(turns)-start)
	for _, turn := range turns[start:] {
		switch turn.Speaker {
		case chat.SpeakerUser:
			history = append(history, schema.UserMessage(turn.Text))
		case chat.SpeakerBot:
			if turn.Payload != nil && turn.Payload.Kind == chat.PayloadText {
				history = append(history, schema.AssistantMessage(turn.Payload.Text, nil))
			}
		}
	}
	return history
}
