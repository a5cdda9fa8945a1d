package webhook

// Event type discriminators sent by the channel provider.
const (
	TypeMessageReceived = "message.received"
	TypeMessageSent     = "message.sent"
)

// Event is the raw webhook payload: a tagged union over inbound customer
// messages and outbound business messages.
type Event struct {
	Type    string        `json:"type"`
	EventID string        `json:"event_id"`
	Message *EventMessage `json:"message,omitempty"`
}

// EventMessage carries one message of any kind. Exactly one of the content
// fields matching Kind is set.
type EventMessage struct {
	ID       string        `json:"id"` // wamid, used for reply threading
	From     string        `json:"from,omitempty"`
	To       string        `json:"to,omitempty"` // destination phone on outbound events
	PushName string        `json:"push_name,omitempty"`
	Kind     string        `json:"kind"` // text, image, audio, video, document
	Text     *TextContent  `json:"text,omitempty"`
	Image    *MediaContent `json:"image,omitempty"`
	Audio    *MediaContent `json:"audio,omitempty"`
	Video    *MediaContent `json:"video,omitempty"`
	Document *MediaContent `json:"document,omitempty"`
}

type TextContent struct {
	Body string `json:"body"`
}

type MediaContent struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type,omitempty"`
	Caption  string `json:"caption,omitempty"`
	Filename string `json:"filename,omitempty"`
}

// DisplayText derives the text shown and stored for the message: the body
// for text, the caption (or a placeholder) for media.
func (m *EventMessage) DisplayText() string {
	switch m.Kind {
	case "text":
		if m.Text != nil {
			return m.Text.Body
		}
	case "image":
		if m.Image != nil && m.Image.Caption != "" {
			return m.Image.Caption
		}
		return "[Imagen]"
	case "audio":
		return "[Audio]"
	case "video":
		if m.Video != nil && m.Video.Caption != "" {
			return m.Video.Caption
		}
		return "[Video]"
	case "document":
		if m.Document != nil && m.Document.Filename != "" {
			return "[Documento] " + m.Document.Filename
		}
		return "[Documento]"
	}
	return ""
}

// MediaRef returns the media id carried by the message, if any.
func (m *EventMessage) MediaRef() string {
	switch {
	case m.Image != nil:
		return m.Image.ID
	case m.Audio != nil:
		return m.Audio.ID
	case m.Video != nil:
		return m.Video.ID
	case m.Document != nil:
		return m.Document.ID
	}
	return ""
}

// Empty reports whether the message has neither text content nor a media
// reference; such events are silently ignored.
func (m *EventMessage) Empty() bool {
	if m.Kind == "text" {
		return m.Text == nil || m.Text.Body == ""
	}
	return m.MediaRef() == ""
}
