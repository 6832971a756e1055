package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/go-redis/redis/v8"
	"github.com/kelseyhightower/envconfig"
)

type DB int
type ReleaseLock func() error

type Client struct {
	client         redis.UniversalClient
	lockExpiration time.Duration
}

var ctx = context.Background()

type Config struct {
	LockExpirationSeconds   int     `envconfig:"TAGGER_COMN_REDIS_LOCK_EXPIRATION" default:"3"`
	Host                    string  `envconfig:"TAGGER_COMN_REDIS_HOST" required:"true"`
	Port                    string  `envconfig:"TAGGER_COMN_REDIS_PORT" required:"true"`
	HASentinelPort          string  `envconfig:"TAGGER_COMN_REDIS_HA_SENTINEL_PORT" default:"26379"`
	HASentinelMasterName    string  `envconfig:"TAGGER_COMN_REDIS_HA_MASTER_NAME" default:"mymaster"`
	Password                string  `envconfig:"TAGGER_COMN_REDIS_AUTH_PASSWORD" default:"0"`
	AuthRequired            bool    `envconfig:"TAGGER_COMN_REDIS_AUTH_REQUIRED" default:"false"`
	HAMode                  bool    `envconfig:"TAGGER_COMN_REDIS_HA_MODE" default:"false"`
	HASentinelSocketTimeout float32 `envconfig:"TAGGER_COMN_REDIS_SOCKET_TIMEOUT" default:"0.5"`
}

func NewClient(db DB) (Client, error) {
	cfg, err := readEnvironment()
	if err != nil {
		return Client{}, err
	}
	var client redis.UniversalClient
	if cfg.HAMode {
		client = CreateClusterClient(cfg, db)
	} else {
		client = CreateClient(cfg, db)
	}
	return Client{
		client:         client,
		lockExpiration: time.Duration(cfg.LockExpirationSeconds) * time.Second,
	}, nil
}

func CreateClusterClient(cfg *Config, db DB) *redis.ClusterClient {
	addr := fmt.Sprintf("%s:%s", cfg.Host, cfg.HASentinelPort)
	timeout := time.Duration(cfg.HASentinelSocketTimeout) * time.Second
	options := redis.FailoverOptions{
		SentinelAddrs: []string{addr},
		ReadTimeout:   timeout,
		WriteTimeout:  timeout,
		MaxRetries:    6,
		DB:            int(db),
		MasterName:    cfg.HASentinelMasterName,
	}
	if cfg.AuthRequired {
		options.Password = cfg.Password
	}
	return redis.NewFailoverClusterClient(&options)
}

func CreateClient(cfg *Config, db DB) *redis.Client {
	addr := fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)
	options := redis.Options{
		Addr:       addr,
		MaxRetries: 6,
		DB:         int(db),
	}
	if cfg.AuthRequired {
		options.Password = cfg.Password
	}
	return redis.NewClient(&options)
}

// GetJSON unmarshals the document stored under redisKey into doc.
// A missing key is reported as redis.Nil so callers can distinguish
// a fresh document from a transport error.
func (client *Client) GetJSON(redisKey string, doc interface{}) error {
	response := client.client.Get(ctx, redisKey)
	if response.Err() != nil {
		return response.Err()
	}
	b, err := response.Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(b, doc)
}

func (client *Client) SetJSON(redisKey string, doc interface{}) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return client.client.Set(ctx, redisKey, b, 0).Err()
}

// UpdateJSON runs a get-modify-set cycle under a distributed lock so
// concurrent workers never clobber each other's status updates. A key
// that does not exist yet is treated as a zero document.
func (client *Client) UpdateJSON(redisKey string, doc interface{}, update func()) (err error) {
	releaseLock, err := client.Lock(redisKey)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = releaseLock()
			return
		}
		err = releaseLock()
	}()
	if err = client.GetJSON(redisKey, doc); err != nil && err != redis.Nil {
		return err
	}
	update()
	return client.SetJSON(redisKey, doc)
}

func (client *Client) Lock(redisKey string) (ReleaseLock, error) {
	lockCl := redislock.New(client.client)
	str := redislock.LimitRetry(redislock.LinearBackoff(time.Second), 20)
	lockKey := fmt.Sprintf("lock:%s", redisKey)
	lock, err := lockCl.Obtain(ctx, lockKey, client.lockExpiration, &redislock.Options{RetryStrategy: str})
	if err != nil {
		return nil, err
	}
	return func() error {
		return lock.Release(ctx)
	}, nil
}

func (client *Client) Close() error {
	return client.client.Close()
}

func readEnvironment() (*Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}
