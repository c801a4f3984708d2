package gemini

import (
	"github.com/AlxManAi/literary-sommelier/pkg/audio"
)

// generateResponse is the generateContent response body.
type generateResponse struct {
	Candidates   []candidate `json:"candidates"`
	ModelVersion string      `json:"modelVersion,omitempty"`
}

type candidate struct {
	Content      Content `json:"content"`
	FinishReason string  `json:"finishReason"`
	Index        int     `json:"index"`
}

// text concatenates all text parts of the first candidate.
func (r *generateResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var out string
	for _, part := range r.Candidates[0].Content.Parts {
		out += part.Text
	}
	return out
}

// inlineData returns the decoded bytes of the first inline-data part of the
// first candidate, or nil when the response carries none.
func (r *generateResponse) inlineData() ([]byte, error) {
	if len(r.Candidates) == 0 {
		return nil, nil
	}
	for _, part := range r.Candidates[0].Content.Parts {
		if part.InlineData == nil || part.InlineData.Data == "" {
			continue
		}
		return audio.DecodeBase64(part.InlineData.Data)
	}
	return nil, nil
}
