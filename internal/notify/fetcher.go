package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gosuda/frontdesk/internal/domain"
)

const maxSpeechBytes = 8 << 20

// HTTPSpeechFetcher calls GET /api/v1/requests/{id}/speech. Redirects to a
// stored audio URL are followed.
type HTTPSpeechFetcher struct {
	baseURL string
	client  *http.Client
}

// NewHTTPSpeechFetcher targets the server at baseURL (scheme://host[:port]).
func NewHTTPSpeechFetcher(baseURL string, timeout time.Duration) *HTTPSpeechFetcher {
	return &HTTPSpeechFetcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (f *HTTPSpeechFetcher) FetchSpeech(ctx context.Context, requestID uuid.UUID) (*domain.AudioArtifact, error) {
	url := fmt.Sprintf("%s/api/v1/requests/%s/speech", f.baseURL, requestID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("notify.HTTPSpeechFetcher.FetchSpeech: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("notify.HTTPSpeechFetcher.FetchSpeech: %w: %w", domain.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("notify.HTTPSpeechFetcher.FetchSpeech: %w", domain.ErrNotFound)
	case http.StatusConflict:
		return nil, fmt.Errorf("notify.HTTPSpeechFetcher.FetchSpeech: %w", domain.ErrInvalidState)
	default:
		return nil, fmt.Errorf("notify.HTTPSpeechFetcher.FetchSpeech: %w: status %d", domain.ErrUnavailable, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSpeechBytes))
	if err != nil {
		return nil, fmt.Errorf("notify.HTTPSpeechFetcher.FetchSpeech: read: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("notify.HTTPSpeechFetcher.FetchSpeech: %w: empty body", domain.ErrUnavailable)
	}

	return &domain.AudioArtifact{
		Data:      data,
		MIME:      resp.Header.Get("Content-Type"),
		CreatedAt: time.Now().UTC(),
	}, nil
}
