package chat

// ReplyElement is one entry of a dialogue backend's reply array, as it comes
// off the wire. The Rasa REST webhook emits a bare text or image field for
// simple replies and a custom object for everything else.
type ReplyElement struct {
	Text   string       `json:"text,omitempty"`
	Image  string       `json:"image,omitempty"`
	Custom *CustomReply `json:"custom,omitempty"`
}

// CustomReply is the structured payload of a custom reply element. Type is
// set for download_file and select_options replies; DataType marks prompts
// that expect a typed user answer.
type CustomReply struct {
	Type     string   `json:"type,omitempty"`
	DataType string   `json:"data_type,omitempty"`
	Text     string   `json:"text,omitempty"`
	Href     string   `json:"href,omitempty"`
	Payload  []Option `json:"payload,omitempty"`
}

// Option is one choice of a select_options reply.
type Option struct {
	Title string `json:"title"`
	Value string `json:"value,omitempty"`
}

// PayloadKind tags the classified variant of a bot reply.
type PayloadKind string

const (
	PayloadText     PayloadKind = "text"
	PayloadImage    PayloadKind = "image"
	PayloadDownload PayloadKind = "download"
	PayloadOptions  PayloadKind = "options"
	PayloadPrompt   PayloadKind = "prompt"
	PayloadUnknown  PayloadKind = "unknown"
)

// InputKind is the answer type a prompt expects from the user.
type InputKind string

const (
	InputFreeText InputKind = "char"
	InputDate     InputKind = "date"
)

// ReplyPayload is the classified form of a ReplyElement. Exactly one variant
// applies; the fields beyond Kind are populated per variant.
type ReplyPayload struct {
	Kind     PayloadKind `json:"kind"`
	Text     string      `json:"text,omitempty"`
	URL      string      `json:"url,omitempty"`
	Href     string      `json:"href,omitempty"`
	Options  []Option    `json:"options,omitempty"`
	Expected InputKind   `json:"expected,omitempty"`
}

// Classify maps a raw reply element to exactly one payload variant. The
// precedence mirrors the rendering dispatch of the web client: plain text
// wins, then image, then the custom object's type and data_type. Elements
// matching nothing classify to PayloadUnknown and are not rendered.
func Classify(el ReplyElement) ReplyPayload {
	if el.Text != "" {
		return ReplyPayload{Kind: PayloadText, Text: el.Text}
	}
	if el.Image != "" {
		return ReplyPayload{Kind: PayloadImage, URL: el.Image}
	}
	if el.Custom != nil {
		switch el.Custom.Type {
		case "download_file":
			return ReplyPayload{Kind: PayloadDownload, Href: el.Custom.Href}
		case "select_options":
			options := append([]Option(nil), el.Custom.Payload...)
			return ReplyPayload{Kind: PayloadOptions, Options: options}
		}
		switch el.Custom.DataType {
		case "date":
			return ReplyPayload{Kind: PayloadPrompt, Text: el.Custom.Text, Expected: InputDate}
		case "char":
			return ReplyPayload{Kind: PayloadPrompt, Text: el.Custom.Text, Expected: InputFreeText}
		}
	}
	return ReplyPayload{Kind: PayloadUnknown}
}

// TextElement wraps a plain string as a reply array of one text element,
// used by backends that answer with a single utterance.
func TextElement(text string) []ReplyElement {
	return []ReplyElement{{Text: text}}
}
