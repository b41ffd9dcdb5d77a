package paramstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// ssmAPI is the minimal AWS SSM interface required by Client.
// *ssm.Client from aws-sdk-go-v2 satisfies this interface.
type ssmAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Getter is the interface that wraps GetParameter.
type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// Client reads decrypted SSM parameters.
type Client struct {
	api ssmAPI
}

func New(api ssmAPI) (*Client, error) {
	if api == nil {
		return nil, errors.New("paramstore: api must not be nil")
	}
	return &Client{api: api}, nil
}

func (c *Client) GetParameter(ctx context.Context, name string) (string, error) {
	if c.api == nil {
		return "", errors.New("paramstore: client not initialized")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("paramstore: name is required")
	}

	withDecryption := true
	out, err := c.api.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &name,
		WithDecryption: &withDecryption,
	})
	if err != nil {
		return "", fmt.Errorf("paramstore: get parameter %q: %w", name, err)
	}
	if out == nil || out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("paramstore: parameter %q missing value", name)
	}
	return *out.Parameter.Value, nil
}

// KeySource yields the subscription key of an upstream service.
type KeySource interface {
	Key(ctx context.Context) (string, error)
}

// StaticKey is a key supplied directly, e.g. from the environment.
type StaticKey string

func (k StaticKey) Key(context.Context) (string, error) {
	if strings.TrimSpace(string(k)) == "" {
		return "", errors.New("paramstore: static key is empty")
	}
	return string(k), nil
}

// tokenPayload is the JSON shape stored in SSM for service keys.
type tokenPayload struct {
	Token string `json:"token"`
}

// SecretKey reads a {"token": "..."} parameter on first use and caches it for
// the life of the process. Failed reads are not cached.
type SecretKey struct {
	getter Getter
	name   string

	mu  sync.Mutex
	key string
}

func NewSecretKey(getter Getter, name string) (*SecretKey, error) {
	if getter == nil {
		return nil, errors.New("paramstore: getter must not be nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("paramstore: parameter name must not be empty")
	}
	return &SecretKey{getter: getter, name: name}, nil
}

func (s *SecretKey) Key(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key != "" {
		return s.key, nil
	}

	raw, err := s.getter.GetParameter(ctx, s.name)
	if err != nil {
		return "", fmt.Errorf("paramstore: fetch key: %w", err)
	}
	var tp tokenPayload
	if err := json.Unmarshal([]byte(raw), &tp); err != nil {
		return "", fmt.Errorf("paramstore: unmarshal %q as JSON: %w", s.name, err)
	}
	if tp.Token == "" {
		return "", fmt.Errorf("paramstore: token in %q is empty", s.name)
	}
	s.key = tp.Token
	return s.key, nil
}
