package luis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"homebot/internal/domain"
	"homebot/internal/integrations/paramstore"
)

// predictionResponse is the subset of the LUIS v2 prediction response we use.
type predictionResponse struct {
	Query            string `json:"query"`
	TopScoringIntent *struct {
		Intent string  `json:"intent"`
		Score  float64 `json:"score"`
	} `json:"topScoringIntent"`
	Intents []struct {
		Intent string  `json:"intent"`
		Score  float64 `json:"score"`
	} `json:"intents"`
	Entities []struct {
		Entity string `json:"entity"`
		Type   string `json:"type"`
	} `json:"entities"`
}

// HTTPStatusError captures non-2xx upstream responses.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("luis: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client queries one LUIS application.
type Client struct {
	endpoint   string
	appID      string
	keys       paramstore.KeySource
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a client for appID on the given regional endpoint,
// e.g. https://westus.api.cognitive.microsoft.com.
func NewClient(endpoint, appID string, keys paramstore.KeySource, opts ...Option) (*Client, error) {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		return nil, errors.New("luis: endpoint must not be empty")
	}
	if strings.TrimSpace(appID) == "" {
		return nil, errors.New("luis: app id must not be empty")
	}
	if keys == nil {
		return nil, errors.New("luis: key source must not be nil")
	}
	c := &Client{
		endpoint:   endpoint,
		appID:      strings.TrimSpace(appID),
		keys:       keys,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) predictionURL(key, text string) string {
	q := url.Values{}
	q.Set("subscription-key", key)
	q.Set("verbose", "true")
	q.Set("q", text)
	return c.endpoint + "/luis/v2.0/apps/" + url.PathEscape(c.appID) + "?" + q.Encode()
}

// Recognize classifies text. Intents are sorted by descending score and
// entities are grouped by type in the order LUIS returned them.
func (c *Client) Recognize(ctx context.Context, text string) (*domain.IntentResult, error) {
	key, err := c.keys.Key(ctx)
	if err != nil {
		return nil, fmt.Errorf("luis: resolve key: %w", err)
	}

	u := c.predictionURL(key, text)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("luis: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	// the key is a query parameter, so errors report the path only
	raw, err := c.doJSONRequest(req, c.endpoint+"/luis/v2.0/apps/"+c.appID)
	if err != nil {
		return nil, fmt.Errorf("luis: request failed: %w", err)
	}

	var payload predictionResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("luis: decode response: %w", err)
	}
	return toIntentResult(text, payload), nil
}

func toIntentResult(text string, p predictionResponse) *domain.IntentResult {
	res := &domain.IntentResult{Text: text, Entities: map[string][]string{}}
	seen := map[string]bool{}
	for _, in := range p.Intents {
		if in.Intent == "" || seen[in.Intent] {
			continue
		}
		seen[in.Intent] = true
		res.Intents = append(res.Intents, domain.Intent{Label: in.Intent, Score: in.Score})
	}
	if top := p.TopScoringIntent; top != nil && top.Intent != "" && !seen[top.Intent] {
		res.Intents = append(res.Intents, domain.Intent{Label: top.Intent, Score: top.Score})
	}
	domain.SortIntents(res.Intents)

	for _, e := range p.Entities {
		if e.Type == "" {
			continue
		}
		res.Entities[e.Type] = append(res.Entities[e.Type], e.Entity)
	}
	return res
}

func (c *Client) doJSONRequest(req *http.Request, display string) ([]byte, error) {
	hc := c.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	res, err := hc.Do(req)
	if err != nil {
		var uerr *url.Error
		if errors.As(err, &uerr) {
			uerr.URL = display
		}
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{StatusCode: res.StatusCode, URL: display, Body: string(buf)}
	}
	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return buf, nil
}
