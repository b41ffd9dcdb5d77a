// Package app assembles the bot from configuration. Both entry points build
// exactly one App at startup.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"homebot/handler"
	"homebot/internal/config"
	"homebot/internal/dialog"
	"homebot/internal/dialogs"
	"homebot/internal/integrations/luis"
	"homebot/internal/integrations/paramstore"
	"homebot/internal/integrations/qnamaker"
	"homebot/internal/repository"
	"homebot/internal/usecase"
)

type App struct {
	Log     zerolog.Logger
	Turns   *usecase.TurnService
	Handler *handler.Handler

	closers []func() error
}

var loadAWSConfig = func(ctx context.Context) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx)
}

// Build wires every dependency named by cfg. Call Close when done.
func Build(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: config must not be nil")
	}
	a := &App{Log: log}

	var awsCfg aws.Config
	if cfg.NeedsAWS() {
		var err error
		if awsCfg, err = loadAWSConfig(ctx); err != nil {
			return nil, fmt.Errorf("app: load AWS config: %w", err)
		}
	}

	kv, err := a.buildKV(ctx, cfg, awsCfg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	store, err := repository.NewStateStore(kv)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	luisKey, qnaKey, err := buildKeys(cfg, awsCfg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	dispatcher, err := luis.NewClient(cfg.LuisEndpoint, cfg.LuisDispatchAppID, luisKey)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("app: dispatch classifier: %w", err)
	}
	homebot, err := luis.NewClient(cfg.LuisEndpoint, cfg.LuisHomebotAppID, luisKey)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("app: homebot classifier: %w", err)
	}
	qna, err := qnamaker.NewClient(cfg.QnAHost, cfg.QnAKnowledgeBaseID, qnaKey, qnamaker.WithMinScore(cfg.QnAMinScore))
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("app: qna client: %w", err)
	}

	msgs, err := config.LoadMessages(cfg.MessagesFile)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	set := dialog.NewSet()
	if err := dialogs.Register(set, dialogs.Options{Messages: msgs, FeedbackEntityKey: cfg.FeedbackEntityKey}); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("app: register dialogs: %w", err)
	}

	a.Turns, err = usecase.NewTurnService(dispatcher, homebot, qna, store, set, log, usecase.Options{
		Messages:       msgs,
		IntentMinScore: cfg.IntentMinScore,
		IdleTimeout:    cfg.DialogIdleTimeout,
	})
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("app: turn service: %w", err)
	}
	a.Handler, err = handler.NewHandler(a.Turns, log)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	log.Info().
		Str("state_backend", cfg.StateBackend).
		Bool("param_store", cfg.NeedsParamStore()).
		Dur("dialog_idle_timeout", cfg.DialogIdleTimeout).
		Msg("app ready")
	return a, nil
}

func (a *App) buildKV(ctx context.Context, cfg *config.Config, awsCfg aws.Config) (repository.KV, error) {
	switch cfg.StateBackend {
	case config.BackendMemory:
		return repository.NewMemoryClient(), nil
	case config.BackendDynamoDB:
		kv, err := repository.NewDynamoClient(awsdynamodb.NewFromConfig(awsCfg), cfg.StateTable, cfg.StateTTL)
		if err != nil {
			return nil, fmt.Errorf("app: dynamodb state: %w", err)
		}
		return kv, nil
	case config.BackendRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("app: parse REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opts)
		a.closers = append(a.closers, rdb.Close)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			return nil, fmt.Errorf("app: connect to redis: %w", err)
		}
		kv, err := repository.NewRedisClient(rdb, cfg.StateTTL)
		if err != nil {
			return nil, fmt.Errorf("app: redis state: %w", err)
		}
		return kv, nil
	default:
		return nil, fmt.Errorf("app: unknown state backend %q", cfg.StateBackend)
	}
}

// buildKeys prefers keys set in the environment and falls back to SSM.
func buildKeys(cfg *config.Config, awsCfg aws.Config) (luisKey, qnaKey paramstore.KeySource, err error) {
	if cfg.LuisKey != "" {
		luisKey = paramstore.StaticKey(cfg.LuisKey)
	}
	if cfg.QnAEndpointKey != "" {
		qnaKey = paramstore.StaticKey(cfg.QnAEndpointKey)
	}
	if luisKey != nil && qnaKey != nil {
		return luisKey, qnaKey, nil
	}

	ps, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
	if err != nil {
		return nil, nil, fmt.Errorf("app: param store: %w", err)
	}
	if luisKey == nil {
		if luisKey, err = paramstore.NewSecretKey(ps, cfg.LuisKeyParameter()); err != nil {
			return nil, nil, fmt.Errorf("app: luis key: %w", err)
		}
	}
	if qnaKey == nil {
		if qnaKey, err = paramstore.NewSecretKey(ps, cfg.QnAKeyParameter()); err != nil {
			return nil, nil, fmt.Errorf("app: qna key: %w", err)
		}
	}
	return luisKey, qnaKey, nil
}

// Close releases connections opened by Build.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
