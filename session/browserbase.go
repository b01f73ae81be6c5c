package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog/log"
)

// BrowserbaseProvider creates and releases sessions against the Browserbase
// REST API, using a retrying HTTP client the way
// GriffinCanCode-ArtificialOS wraps its outbound calls.
type BrowserbaseProvider struct {
	BaseURL   string
	APIKey    string
	ProjectID string
	client    *retryablehttp.Client

	// connectURLFmt and extraHeaders come from a ConnectionTemplate when the
	// provider is built via NewBrowserbaseProviderFromTemplate; both are zero
	// values otherwise.
	connectURLFmt string
	extraHeaders  map[string]string
}

// NewBrowserbaseProvider builds a provider pointed at baseURL, authenticating
// with apiKey and scoping session creation to projectID.
func NewBrowserbaseProvider(baseURL, apiKey, projectID string) *BrowserbaseProvider {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.Logger = nil
	client.HTTPClient.Timeout = 30 * time.Second

	return &BrowserbaseProvider{
		BaseURL:   baseURL,
		APIKey:    apiKey,
		ProjectID: projectID,
		client:    client,
	}
}

// NewBrowserbaseProviderFromTemplate loads {templateDir}/{kind}.yaml and
// builds a provider from its baseUrl/connectUrlFormat/defaultHeaders,
// instead of hardcoding them, the way the teacher's docker.Manager resolved
// its per-language build settings from a YAML template rather than inline
// constants.
func NewBrowserbaseProviderFromTemplate(templateDir, kind, apiKey, projectID string) (*BrowserbaseProvider, error) {
	tmpl, err := LoadTemplate(templateDir, kind)
	if err != nil {
		return nil, err
	}

	p := NewBrowserbaseProvider(tmpl.BaseURL, apiKey, projectID)
	p.connectURLFmt = tmpl.ConnectURLFmt
	p.extraHeaders = tmpl.DefaultHeaders
	return p, nil
}

type createSessionRequest struct {
	ProjectID string                 `json:"projectId"`
	Config    map[string]interface{} `json:"browserSettings,omitempty"`
}

type createSessionResponse struct {
	ID         string `json:"id"`
	ConnectURL string `json:"connectUrl"`
}

// Create acquires a new browser session, injecting ProjectID out-of-band
// the way spec §4.7 describes ("whatever identifier the provider needs
// out-of-band"); config is otherwise forwarded verbatim.
func (p *BrowserbaseProvider) Create(ctx context.Context, config map[string]interface{}) (Session, error) {
	body, err := json.Marshal(createSessionRequest{ProjectID: p.ProjectID, Config: config})
	if err != nil {
		return Session{}, fmt.Errorf("marshal session request: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, "POST", p.BaseURL+"/v1/sessions", bytes.NewReader(body))
	if err != nil {
		return Session{}, fmt.Errorf("build session request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-BB-API-Key", p.APIKey)
	for k, v := range p.extraHeaders {
		req.Header.Set(k, v)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		log.Error().Err(err).Msg("failed to create browser session")
		return Session{}, fmt.Errorf("create browser session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return Session{}, fmt.Errorf("create browser session: upstream status %d", resp.StatusCode)
	}

	var out createSessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Session{}, fmt.Errorf("decode session response: %w", err)
	}

	connectURL := out.ConnectURL
	if connectURL == "" && p.connectURLFmt != "" {
		connectURL = fmt.Sprintf(p.connectURLFmt, out.ID)
	}

	return Session{ID: out.ID, ConnectURL: connectURL}, nil
}

// Release terminates a previously created session. Failures are logged and
// swallowed, per spec §4.7.
func (p *BrowserbaseProvider) Release(ctx context.Context, id string) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, "DELETE", p.BaseURL+"/v1/sessions/"+id, nil)
	if err != nil {
		log.Warn().Str("session_id", id).Err(err).Msg("failed to build session release request")
		return nil
	}
	req.Header.Set("X-BB-API-Key", p.APIKey)
	for k, v := range p.extraHeaders {
		req.Header.Set(k, v)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		log.Warn().Str("session_id", id).Err(err).Msg("failed to release browser session")
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		log.Warn().Str("session_id", id).Int("status", resp.StatusCode).Msg("non-2xx releasing browser session")
	}

	return nil
}

var _ Provider = (*BrowserbaseProvider)(nil)
