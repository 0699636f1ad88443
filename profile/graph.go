package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/hashicorp/go-cleanhttp"
	apperrors "github.com/jrsteele09/go-landing-page/internal/errors"
)

// maxProfileBytes bounds how much of a profile response is read.
const maxProfileBytes = 1 << 20

// GraphClient reads the signed-in user's profile from a Microsoft Graph style
// REST endpoint.
type GraphClient struct {
	endpoint   string
	httpClient *http.Client
}

// NewGraphClient creates a client for endpoint. A nil httpClient uses a pooled
// go-cleanhttp client.
func NewGraphClient(endpoint string, httpClient *http.Client) *GraphClient {
	if httpClient == nil {
		httpClient = cleanhttp.DefaultPooledClient()
	}
	return &GraphClient{endpoint: endpoint, httpClient: httpClient}
}

// Me issues a single authenticated GET and returns the decoded JSON body.
func (g *GraphClient) Me(ctx context.Context, accessToken string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("[profile Me] %w: %v", apperrors.ErrProfileFetch, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("[profile Me] %w: %v", apperrors.ErrProfileFetch, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProfileBytes))
	if err != nil {
		return nil, fmt.Errorf("[profile Me] %w: %v", apperrors.ErrProfileFetch, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("[profile Me] %w: status %d: %s", apperrors.ErrProfileFetch, resp.StatusCode, body)
	}

	var profile map[string]any
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("[profile Me] %w: %v", apperrors.ErrProfileFetch, err)
	}
	return profile, nil
}
