package scheduler

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"realty_crm_backend/platform/config"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// runClientUniqueTTL keeps a client from being queued twice while a run is
// still pending.
const runClientUniqueTTL = 30 * time.Minute

type Client struct {
	client *asynq.Client
	queue  string
}

// MatchingEnqueuer queues matching work for the worker.
type MatchingEnqueuer interface {
	EnqueueRunClient(ctx context.Context, clientID string) error
	EnqueueNewProperty(ctx context.Context, clientID, propertyID string) error
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queueName(cfg),
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Client) EnqueueRunClient(ctx context.Context, clientID string) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewRunClientTask(RunClientPayload{ClientID: clientID})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue), asynq.Unique(runClientUniqueTTL), asynq.MaxRetry(3))
	// A run already pending for the client covers this request.
	if err != nil && !errors.Is(err, asynq.ErrDuplicateTask) {
		return err
	}
	return nil
}

func (c *Client) EnqueueNewProperty(ctx context.Context, clientID, propertyID string) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewNewPropertyTask(NewPropertyPayload{ClientID: clientID, PropertyID: propertyID})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue), asynq.MaxRetry(5))
	return err
}

func queueName(cfg config.SchedulerConfig) string {
	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}
	return queue
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig(opt, tlsInsecure),
	}, nil
}

func tlsConfig(opt *redis.Options, tlsInsecure bool) *tls.Config {
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		return clone
	}
	if tlsInsecure {
		return &tls.Config{InsecureSkipVerify: true}
	}
	return nil
}

// NewRedisClient opens a plain go-redis client with the same URL and TLS
// handling as the asynq connection.
func NewRedisClient(cfg config.SchedulerConfig) (*redis.Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	opt.TLSConfig = tlsConfig(opt, cfg.GetRedisTLSInsecure())
	return redis.NewClient(opt), nil
}
