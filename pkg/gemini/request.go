package gemini

import "github.com/AlxManAi/literary-sommelier/pkg/audio"

// Wire types for the generateContent endpoint.
// Note: the Gemini API uses camelCase for JSON field names.

// generateRequest is the generateContent request body.
type generateRequest struct {
	Contents          []Content  `json:"contents"`
	SystemInstruction *Content   `json:"systemInstruction,omitempty"`
	GenerationConfig  *genConfig `json:"generationConfig,omitempty"`
}

// Content is one conversational turn: a role and its parts.
type Content struct {
	Role  string `json:"role,omitempty"` // "user" or "model"
	Parts []Part `json:"parts"`
}

// Part is a single piece of turn content, either text or inline binary data.
type Part struct {
	Text       string `json:"text,omitempty"`
	InlineData *Blob  `json:"inlineData,omitempty"`
}

// Blob is inline base64-encoded binary data.
type Blob struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

// genConfig is the generation configuration.
type genConfig struct {
	ResponseModalities []string      `json:"responseModalities,omitempty"`
	SpeechConfig       *speechConfig `json:"speechConfig,omitempty"`
	ImageConfig        *imageConfig  `json:"imageConfig,omitempty"`
}

type speechConfig struct {
	VoiceConfig voiceConfig `json:"voiceConfig"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig prebuiltVoiceConfig `json:"prebuiltVoiceConfig"`
}

type prebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

type imageConfig struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
}

// TextTurn builds a Content with a single text part.
func TextTurn(role, text string) Content {
	return Content{Role: role, Parts: []Part{{Text: text}}}
}

// TextPart builds a text part.
func TextPart(text string) Part {
	return Part{Text: text}
}

// ImagePart builds an inline-image part from raw bytes.
func ImagePart(mimeType string, data []byte) Part {
	return Part{InlineData: &Blob{MIMEType: mimeType, Data: audio.EncodeBase64(data)}}
}

func systemContent(system string) *Content {
	if system == "" {
		return nil
	}
	return &Content{Parts: []Part{{Text: system}}}
}
