package migration

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"
)

const maxLegacyAssetBytes = 64 << 20

// HTTPLegacyFetcher pulls legacy assets from the old hosting origin over
// plain HTTP before they are re-hosted.
type HTTPLegacyFetcher struct {
	baseURL string
	client  *http.Client
}

func NewHTTPLegacyFetcher(baseURL string, timeout time.Duration) *HTTPLegacyFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPLegacyFetcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (f *HTTPLegacyFetcher) Fetch(ctx context.Context, ref string) ([]byte, string, string, error) {
	url := f.baseURL + ref
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", "", fmt.Errorf("fetch legacy asset %s: %w", ref, err)
	}

	res, err := f.client.Do(req)
	if err != nil {
		return nil, "", "", fmt.Errorf("fetch legacy asset %s: %w", ref, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, "", "", fmt.Errorf("fetch legacy asset %s: unexpected status %d", ref, res.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(res.Body, maxLegacyAssetBytes))
	if err != nil {
		return nil, "", "", fmt.Errorf("fetch legacy asset %s: %w", ref, err)
	}

	return data, path.Base(ref), res.Header.Get("Content-Type"), nil
}
