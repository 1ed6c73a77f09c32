package bot

// BackendKind selects which dialogue driver serves a bot.
type BackendKind string

const (
	// KindRest is the Rasa-style REST webhook returning structured reply arrays.
	KindRest BackendKind = "rest"
	// KindQA is a plain question-answer HTTP endpoint returning a single answer.
	KindQA BackendKind = "qa"
	// KindLLM drives a chat model directly through eino.
	KindLLM BackendKind = "llm"
)

// Bot describes one conversational agent offered to authenticated users.
type Bot struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Description    string      `json:"description,omitempty"`
	Kind           BackendKind `json:"-"`
	SystemPrompt   string      `json:"-"`
	RequiredGroups []string    `json:"-"`
}

// Seed provides the default bot lineup. Group gating and backend wiring are
// layered on from configuration at startup.
func Seed() []Bot {
	return []Bot{
		{
			ID:          "formbot",
			Name:        "Form Filling Chatbot",
			Description: "Guides you through selecting and filling official forms.",
			Kind:        KindRest,
		},
		{
			ID:          "estates-qa",
			Name:        "Real Estate Q&A",
			Description: "Answers free-form questions about listings and inspections.",
			Kind:        KindQA,
		},
		{
			ID:           "assistant",
			Name:         "General Assistant",
			Description:  "Open-ended assistant backed by a chat model.",
			Kind:         KindLLM,
			SystemPrompt: "You are a concise, helpful assistant for a form-filling portal. Answer plainly and keep replies short.",
		},
	}
}
