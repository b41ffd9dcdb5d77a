// Package config reads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"homebot/internal/dialogs"
)

// State backends.
const (
	BackendMemory   = "memory"
	BackendDynamoDB = "dynamodb"
	BackendRedis    = "redis"
)

type Config struct {
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
	LogOutput string `envconfig:"LOG_OUTPUT" default:"stdout"`

	StateBackend string        `envconfig:"STATE_BACKEND" default:"dynamodb"`
	StateTable   string        `envconfig:"STATE_TABLE"`
	RedisURL     string        `envconfig:"REDIS_URL"`
	StateTTL     time.Duration `envconfig:"STATE_TTL" default:"720h"`

	// ParamPrefix locates {"token": ...} SSM parameters for keys not set directly.
	ParamPrefix string `envconfig:"PARAM_PREFIX"`

	LuisEndpoint      string `envconfig:"LUIS_ENDPOINT" required:"true"`
	LuisDispatchAppID string `envconfig:"LUIS_DISPATCH_APP_ID" required:"true"`
	LuisHomebotAppID  string `envconfig:"LUIS_HOMEBOT_APP_ID" required:"true"`
	LuisKey           string `envconfig:"LUIS_SUBSCRIPTION_KEY"`

	QnAHost            string `envconfig:"QNA_HOST" required:"true"`
	QnAKnowledgeBaseID string `envconfig:"QNA_KNOWLEDGE_BASE_ID" required:"true"`
	QnAEndpointKey     string `envconfig:"QNA_ENDPOINT_KEY"`

	IntentMinScore    float64       `envconfig:"INTENT_MIN_SCORE" default:"0"`
	QnAMinScore       float64       `envconfig:"QNA_MIN_SCORE" default:"0"`
	FeedbackEntityKey string        `envconfig:"FEEDBACK_ENTITY_KEY" default:"appliance"`
	DialogIdleTimeout time.Duration `envconfig:"DIALOG_IDLE_TIMEOUT" default:"30m"`
	MessagesFile      string        `envconfig:"MESSAGES_FILE"`

	HTTPAddr string `envconfig:"HTTP_ADDR" default:":3978"`
}

// Load reads the given .env files when they exist, then the environment.
// Variables already set in the environment win over .env entries.
func Load(envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: process environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.StateBackend {
	case BackendMemory:
	case BackendDynamoDB:
		if strings.TrimSpace(c.StateTable) == "" {
			return errors.New("config: STATE_TABLE is required for the dynamodb backend")
		}
	case BackendRedis:
		if strings.TrimSpace(c.RedisURL) == "" {
			return errors.New("config: REDIS_URL is required for the redis backend")
		}
	default:
		return fmt.Errorf("config: unknown STATE_BACKEND %q", c.StateBackend)
	}
	if c.StateTTL < 0 {
		return errors.New("config: STATE_TTL must not be negative")
	}
	if c.DialogIdleTimeout < 0 {
		return errors.New("config: DIALOG_IDLE_TIMEOUT must not be negative")
	}
	if c.IntentMinScore < 0 || c.IntentMinScore > 1 {
		return errors.New("config: INTENT_MIN_SCORE must be between 0 and 1")
	}
	if c.QnAMinScore < 0 || c.QnAMinScore > 100 {
		return errors.New("config: QNA_MIN_SCORE must be between 0 and 100")
	}
	if c.NeedsParamStore() && strings.TrimSpace(c.ParamPrefix) == "" {
		return errors.New("config: PARAM_PREFIX is required unless LUIS_SUBSCRIPTION_KEY and QNA_ENDPOINT_KEY are set")
	}
	return nil
}

// NeedsParamStore reports whether any service key must come from SSM.
func (c *Config) NeedsParamStore() bool {
	return strings.TrimSpace(c.LuisKey) == "" || strings.TrimSpace(c.QnAEndpointKey) == ""
}

// NeedsAWS reports whether an AWS SDK config must be loaded.
func (c *Config) NeedsAWS() bool {
	return c.StateBackend == BackendDynamoDB || c.NeedsParamStore()
}

// LuisKeyParameter and QnAKeyParameter name the SSM parameters holding the keys.
func (c *Config) LuisKeyParameter() string {
	return strings.TrimRight(c.ParamPrefix, "/") + "/luis-subscription-key"
}

func (c *Config) QnAKeyParameter() string {
	return strings.TrimRight(c.ParamPrefix, "/") + "/qna-endpoint-key"
}

// LoadMessages reads a YAML message catalog. An empty path yields an empty
// catalog; missing entries fall back to the built-in texts.
func LoadMessages(path string) (dialogs.Messages, error) {
	if strings.TrimSpace(path) == "" {
		return dialogs.Messages{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return dialogs.Messages{}, fmt.Errorf("config: read messages: %w", err)
	}
	var m dialogs.Messages
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return dialogs.Messages{}, fmt.Errorf("config: parse messages %s: %w", path, err)
	}
	if err := checkVerbs(m); err != nil {
		return dialogs.Messages{}, fmt.Errorf("config: messages %s: %w", path, err)
	}
	return m, nil
}

// checkVerbs rejects overrides whose format verbs do not match the built-in text.
func checkVerbs(m dialogs.Messages) error {
	def := dialogs.DefaultMessages()
	for _, f := range []struct {
		name         string
		got, builtin string
	}{
		{"nice_to_meet", m.NiceToMeet, def.NiceToMeet},
		{"maintenance_detail", m.MaintenanceDetail, def.MaintenanceDetail},
		{"maintenance_ack", m.MaintenanceAck, def.MaintenanceAck},
		{"maintenance_logged", m.MaintenanceLogged, def.MaintenanceLogged},
		{"feedback_reached", m.FeedbackReached, def.FeedbackReached},
		{"feedback_entities", m.FeedbackEntities, def.FeedbackEntities},
		{"none_reached", m.NoneReached, def.NoneReached},
		{"welcome_back", m.WelcomeBack, def.WelcomeBack},
	} {
		if f.got == "" {
			continue
		}
		if want, got := verbs(f.builtin), verbs(f.got); want != got {
			return fmt.Errorf("%s needs %d format verbs, has %d", f.name, want, got)
		}
	}
	return nil
}

func verbs(s string) int {
	s = strings.ReplaceAll(s, "%%", "")
	return strings.Count(s, "%")
}
