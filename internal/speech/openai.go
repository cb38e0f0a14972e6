package speech

import (
	"context"
	"fmt"
	"io"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/gosuda/frontdesk/internal/domain"
)

const (
	DefaultModel = "tts-1"
	DefaultVoice = "alloy"

	// maxClipBytes caps how much audio is read from one response.
	maxClipBytes = 8 << 20
)

// OpenAI synthesizes MP3 audio through an OpenAI-compatible /audio/speech endpoint.
type OpenAI struct {
	client openai.Client
	model  string
	voice  string
}

type OpenAIConfig struct {
	APIKey  string
	BaseURL string // empty uses the SDK default
	Model   string
	Voice   string
}

func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(1),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	voice := cfg.Voice
	if voice == "" {
		voice = DefaultVoice
	}

	return &OpenAI{
		client: openai.NewClient(opts...),
		model:  model,
		voice:  voice,
	}
}

func (o *OpenAI) Synthesize(ctx context.Context, text string) (*Clip, error) {
	resp, err := o.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model:          o.model,
		Input:          text,
		Voice:          openai.AudioSpeechNewParamsVoice(o.voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("speech.OpenAI.Synthesize: %w", ctx.Err())
		}
		return nil, fmt.Errorf("speech.OpenAI.Synthesize: %w: %w", domain.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxClipBytes))
	if err != nil {
		return nil, fmt.Errorf("speech.OpenAI.Synthesize: read body: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("speech.OpenAI.Synthesize: %w: empty audio", domain.ErrUnavailable)
	}

	mime := resp.Header.Get("Content-Type")
	if mime == "" || mime == "application/octet-stream" {
		mime = MIMEMPEG
	}

	return &Clip{Data: data, MIME: mime}, nil
}
