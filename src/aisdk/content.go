package aisdk

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// ContentType identifies the kind of a content part.
type ContentType string

const (
	ContentTypeText  ContentType = "text"
	ContentTypeImage ContentType = "image_url"
)

// ContentPart is one block of a multimodal message.
type ContentPart struct {
	Type     ContentType `json:"type"`
	Text     string      `json:"text,omitempty"`
	ImageURL *ImageURL   `json:"image_url,omitempty"`
}

// ImageURL points at an image, usually an inline data URL.
type ImageURL struct {
	URL string `json:"url"`
}

// TextPart creates a text content part.
func TextPart(text string) ContentPart {
	return ContentPart{Type: ContentTypeText, Text: text}
}

// ImagePart creates an image content part holding the raw bytes as a base64 data URL.
func ImagePart(mimeType string, data []byte) ContentPart {
	url := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
	return ContentPart{Type: ContentTypeImage, ImageURL: &ImageURL{URL: url}}
}

// DecodeDataURL splits a base64 data URL into its mime type and bytes.
func DecodeDataURL(url string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(url, "data:")
	if !ok {
		return "", nil, fmt.Errorf("not a data url")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("malformed data url")
	}
	mimeType, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return mimeType, []byte(payload), nil
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("failed to decode data url: %w", err)
	}
	return mimeType, data, nil
}

// TextContent returns the plain text of the message, joining text parts.
func (m *Message) TextContent() string {
	if len(m.Parts) == 0 {
		return m.Content
	}
	var sb strings.Builder
	for _, p := range m.Parts {
		if p.Type != ContentTypeText {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(p.Text)
	}
	return sb.String()
}

// HasImages reports whether any part of the message is an image.
func (m *Message) HasImages() bool {
	for _, p := range m.Parts {
		if p.Type == ContentTypeImage {
			return true
		}
	}
	return false
}

type messageAlias Message

type messageWire struct {
	*messageAlias
	Content json.RawMessage `json:"content"`
}

// MarshalJSON writes content as a string, or as an array of parts when the
// message is multimodal.
func (m Message) MarshalJSON() ([]byte, error) {
	var (
		content []byte
		err     error
	)
	if len(m.Parts) > 0 {
		content, err = json.Marshal(m.Parts)
	} else {
		content, err = json.Marshal(m.Content)
	}
	if err != nil {
		return nil, err
	}
	alias := messageAlias(m)
	return json.Marshal(messageWire{messageAlias: &alias, Content: content})
}

// UnmarshalJSON accepts content as a string, null, or an array of parts.
func (m *Message) UnmarshalJSON(data []byte) error {
	wire := messageWire{messageAlias: (*messageAlias)(m)}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	m.Content = ""
	m.Parts = nil
	raw := wire.Content
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if raw[0] == '[' {
		return json.Unmarshal(raw, &m.Parts)
	}
	return json.Unmarshal(raw, &m.Content)
}

func jsonUnmarshalString(raw []byte, s *string) error {
	return json.Unmarshal(raw, s)
}
