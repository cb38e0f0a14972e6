package notify

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// FilePlayer is the CLI Player. Audio is written to dir as <request-id>.<ext>
// and local speech as <request-id>.txt; each playback is logged.
type FilePlayer struct {
	dir    string
	client *http.Client
}

func NewFilePlayer(dir string) (*FilePlayer, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("notify.NewFilePlayer: %w", err)
	}
	return &FilePlayer{dir: dir, client: http.DefaultClient}, nil
}

func (p *FilePlayer) PlayAudio(_ context.Context, requestID uuid.UUID, data []byte, mimeType string) error {
	path := filepath.Join(p.dir, requestID.String()+extensionFor(mimeType))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("notify.FilePlayer.PlayAudio: %w", err)
	}
	log.Info().Str("request_id", requestID.String()).Str("file", path).Msg("answer audio ready")
	return nil
}

func (p *FilePlayer) PlayURL(ctx context.Context, requestID uuid.UUID, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("notify.FilePlayer.PlayURL: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("notify.FilePlayer.PlayURL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("notify.FilePlayer.PlayURL: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSpeechBytes))
	if err != nil {
		return fmt.Errorf("notify.FilePlayer.PlayURL: read: %w", err)
	}
	return p.PlayAudio(ctx, requestID, data, resp.Header.Get("Content-Type"))
}

func (p *FilePlayer) SpeakLocal(_ context.Context, requestID uuid.UUID, text string) error {
	path := filepath.Join(p.dir, requestID.String()+".txt")
	if err := os.WriteFile(path, []byte(text+"\n"), 0o600); err != nil {
		return fmt.Errorf("notify.FilePlayer.SpeakLocal: %w", err)
	}
	log.Info().Str("request_id", requestID.String()).Str("answer", text).Msg("answer (local speech)")
	return nil
}

func extensionFor(mimeType string) string {
	if mimeType == "audio/mpeg" {
		return ".mp3"
	}
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".audio"
}
