package conf

import (
	"context"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/pkg/errors"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewStatsd returns a no-op client unless a DataDog agent is configured.
func NewStatsd(lc fx.Lifecycle, env *Env, logger *zap.SugaredLogger) (statsd.ClientInterface, error) {
	if env.AgentHost == "" {
		logger.Debug("Statsd is not configured")
		return &statsd.NoOpClient{}, nil
	}

	addr := env.AgentHost + ":8125"
	client, err := statsd.New(addr,
		statsd.WithNamespace(env.ServiceName+"."),
		statsd.WithTags([]string{"application:" + env.ServiceName}))
	if err != nil {
		return nil, errors.Wrap(err, "creating statsd client")
	}
	logger.Infof("Statsd is configured on: %s", addr)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}
