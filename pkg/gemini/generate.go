package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// FallbackText is returned when the service produces no text for a turn.
const FallbackText = "Не удалось получить ответ."

// imagePromptPrefix frames every mood-image request.
const imagePromptPrefix = "Создай атмосферное, кинематографичное изображение: "

// GenerateText runs a stateless single-shot generation with a system
// instruction. Returns FallbackText when the service yields no text.
func (c *Client) GenerateText(ctx context.Context, system, prompt string) (string, error) {
	req := &generateRequest{
		Contents:          []Content{{Parts: []Part{{Text: prompt}}}},
		SystemInstruction: systemContent(system),
	}

	resp, err := c.doGenerate(ctx, c.textModel, req)
	if err != nil {
		return "", err
	}
	if text := resp.text(); text != "" {
		return text, nil
	}
	return FallbackText, nil
}

// Chat runs multi-turn generation: prior turns are replayed as alternating
// user/model contents and final is sent as the live user message. The final
// parts may mix text and inline image data.
func (c *Client) Chat(ctx context.Context, system string, history []Content, final []Part) (string, error) {
	if len(final) == 0 {
		final = []Part{{Text: ""}}
	}
	contents := make([]Content, 0, len(history)+1)
	contents = append(contents, history...)
	contents = append(contents, Content{Role: "user", Parts: final})

	req := &generateRequest{
		Contents:          contents,
		SystemInstruction: systemContent(system),
	}

	resp, err := c.doGenerate(ctx, c.textModel, req)
	if err != nil {
		return "", err
	}
	if text := resp.text(); text != "" {
		return text, nil
	}
	return FallbackText, nil
}

// GenerateImage renders a single 16:9 image for the given description.
// Returns nil bytes without error when the service yields nothing usable.
func (c *Client) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	req := &generateRequest{
		Contents: []Content{{Parts: []Part{{Text: imagePromptPrefix + prompt}}}},
		GenerationConfig: &genConfig{
			ImageConfig: &imageConfig{AspectRatio: "16:9"},
		},
	}

	resp, err := c.doGenerate(ctx, c.imageModel, req)
	if err != nil {
		return nil, err
	}
	return resp.inlineData()
}

// Synthesize converts text to narration audio in the configured voice.
// The result is 24 kHz mono 16-bit PCM; nil without error when the service
// yields no audio.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	req := &generateRequest{
		Contents: []Content{{Parts: []Part{{Text: text}}}},
		GenerationConfig: &genConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: &speechConfig{
				VoiceConfig: voiceConfig{
					PrebuiltVoiceConfig: prebuiltVoiceConfig{VoiceName: c.voice},
				},
			},
		},
	}

	resp, err := c.doGenerate(ctx, c.ttsModel, req)
	if err != nil {
		return nil, err
	}
	return resp.inlineData()
}

// doGenerate posts a generateContent request and decodes the response.
func (c *Client) doGenerate(ctx context.Context, model string, req *generateRequest) (*generateResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", model, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, parseError(resp)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &out, nil
}
