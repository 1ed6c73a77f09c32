package chat

import "time"

// Speaker identifies who authored a turn.
type Speaker string

const (
	SpeakerUser Speaker = "user"
	SpeakerBot  Speaker = "bot"
)

// Turn is one immutable entry of a transcript. User turns carry Text only;
// bot turns carry a classified Payload.
type Turn struct {
	ID        string        `json:"id"`
	Speaker   Speaker       `json:"speaker"`
	Text      string        `json:"text,omitempty"`
	Payload   *ReplyPayload `json:"payload,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
}

// UserTurn builds a user-authored turn without an ID; the transcript store
// assigns IDs on append.
func UserTurn(text string) Turn {
	return Turn{Speaker: SpeakerUser, Text: text}
}

// BotTurn builds a bot-authored turn from a classified payload.
func BotTurn(payload ReplyPayload) Turn {
	return Turn{Speaker: SpeakerBot, Payload: &payload}
}

// ExpectsDate reports whether the turn is a bot prompt that constrains the
// next user turn to a valid calendar date.
func (t Turn) ExpectsDate() bool {
	return t.Speaker == SpeakerBot && t.Payload != nil &&
		t.Payload.Kind == PayloadPrompt && t.Payload.Expected == InputDate
}
