// Package gemini adapts the hosted Gemini API for the sommelier core.
// It covers the four capabilities the conversation layer consumes: turn-based
// text generation, image generation, speech synthesis, and the bidirectional
// live transcription socket.
package gemini

import (
	"log/slog"
	"net/http"
)

const (
	// DefaultBaseURL is the default Gemini REST endpoint.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// DefaultLiveURL is the default BidiGenerateContent websocket endpoint.
	DefaultLiveURL = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

	// DefaultTextModel handles questionnaire, consultation and open dialog.
	DefaultTextModel = "gemini-3-flash-preview"

	// DefaultImageModel renders the consultation mood image.
	DefaultImageModel = "gemini-2.5-flash-image"

	// DefaultTTSModel synthesizes bot narration.
	DefaultTTSModel = "gemini-2.5-flash-preview-tts"

	// DefaultLiveModel backs the realtime voice-input channel.
	DefaultLiveModel = "gemini-2.5-flash-native-audio-preview-12-2025"

	// DefaultVoice is the prebuilt narration voice.
	DefaultVoice = "Kore"
)

// Client calls the Gemini API.
type Client struct {
	apiKey     string
	baseURL    string
	liveURL    string
	httpClient *http.Client
	logger     *slog.Logger

	textModel  string
	imageModel string
	ttsModel   string
	liveModel  string
	voice      string
}

// Option configures the Client.
type Option func(*Client)

// WithBaseURL sets the base URL for REST requests.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithLiveURL sets the websocket endpoint for live sessions.
func WithLiveURL(url string) Option {
	return func(c *Client) {
		c.liveURL = url
	}
}

// WithHTTPClient sets the HTTP client for REST requests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTextModel overrides the text-generation model.
func WithTextModel(model string) Option {
	return func(c *Client) {
		c.textModel = model
	}
}

// WithImageModel overrides the image-generation model.
func WithImageModel(model string) Option {
	return func(c *Client) {
		c.imageModel = model
	}
}

// WithTTSModel overrides the speech-synthesis model.
func WithTTSModel(model string) Option {
	return func(c *Client) {
		c.ttsModel = model
	}
}

// WithLiveModel overrides the live transcription model.
func WithLiveModel(model string) Option {
	return func(c *Client) {
		c.liveModel = model
	}
}

// WithVoice overrides the narration voice.
func WithVoice(voice string) Option {
	return func(c *Client) {
		c.voice = voice
	}
}

// New creates a new Gemini client.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		liveURL:    DefaultLiveURL,
		httpClient: &http.Client{},
		logger:     slog.Default(),
		textModel:  DefaultTextModel,
		imageModel: DefaultImageModel,
		ttsModel:   DefaultTTSModel,
		liveModel:  DefaultLiveModel,
		voice:      DefaultVoice,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
