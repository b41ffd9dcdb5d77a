package qnamaker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"homebot/internal/integrations/paramstore"
)

// noMatchAnswer is what QnA Maker returns when nothing in the KB matched.
const noMatchAnswer = "No good match found in KB."

type generateAnswerRequest struct {
	Question string `json:"question"`
	Top      int    `json:"top"`
}

type generateAnswerResponse struct {
	Answers []struct {
		Answer string  `json:"answer"`
		Score  float64 `json:"score"`
		ID     int     `json:"id"`
	} `json:"answers"`
}

// HTTPStatusError captures non-2xx upstream responses.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("qnamaker: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client asks one QnA Maker knowledge base.
type Client struct {
	host       string
	kbID       string
	keys       paramstore.KeySource
	minScore   float64
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithMinScore drops answers scoring below min (QnA Maker scores run 0-100).
func WithMinScore(min float64) Option {
	return func(c *Client) {
		c.minScore = min
	}
}

// NewClient creates a client for knowledge base kbID served from host,
// e.g. https://homebotqna.azurewebsites.net/qnamaker.
func NewClient(host, kbID string, keys paramstore.KeySource, opts ...Option) (*Client, error) {
	host = strings.TrimRight(strings.TrimSpace(host), "/")
	if host == "" {
		return nil, errors.New("qnamaker: host must not be empty")
	}
	if strings.TrimSpace(kbID) == "" {
		return nil, errors.New("qnamaker: knowledge base id must not be empty")
	}
	if keys == nil {
		return nil, errors.New("qnamaker: key source must not be nil")
	}
	c := &Client{
		host:       host,
		kbID:       strings.TrimSpace(kbID),
		keys:       keys,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Answer returns the best answer for question. found is false when the KB has
// no match or the best match scores below the configured minimum.
func (c *Client) Answer(ctx context.Context, question string) (answer string, found bool, err error) {
	key, err := c.keys.Key(ctx)
	if err != nil {
		return "", false, fmt.Errorf("qnamaker: resolve key: %w", err)
	}

	body, err := json.Marshal(generateAnswerRequest{Question: question, Top: 1})
	if err != nil {
		return "", false, fmt.Errorf("qnamaker: marshal request: %w", err)
	}

	url := c.host + "/knowledgebases/" + c.kbID + "/generateAnswer"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", false, fmt.Errorf("qnamaker: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "EndpointKey "+key)

	raw, err := c.doJSONRequest(req, url)
	if err != nil {
		return "", false, fmt.Errorf("qnamaker: request failed: %w", err)
	}

	var payload generateAnswerResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", false, fmt.Errorf("qnamaker: decode response: %w", err)
	}
	if len(payload.Answers) == 0 {
		return "", false, nil
	}
	best := payload.Answers[0]
	for _, a := range payload.Answers[1:] {
		if a.Score > best.Score {
			best = a
		}
	}
	if best.Answer == "" || best.Answer == noMatchAnswer || best.Score < c.minScore {
		return "", false, nil
	}
	return best.Answer, true, nil
}

func (c *Client) doJSONRequest(req *http.Request, url string) ([]byte, error) {
	hc := c.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	res, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{StatusCode: res.StatusCode, URL: url, Body: string(buf)}
	}
	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return buf, nil
}
