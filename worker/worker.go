package worker

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"

	"taglab.io/tagger/logger"
	"taglab.io/tagger/modelstore"
	"taglab.io/tagger/rmq"
	"taglab.io/tagger/tasks"
)

type Config struct {
	TaskMaxRetries int `envconfig:"TAGGER_COMN_RETRY_TASK_COUNT_MAX" default:"3"`
}

// TagText turns request text into the serialized tagging result. The
// loaded models sit behind this function so the worker never touches
// them directly.
type TagText func(text string) (string, error)

type Worker struct {
	config       Config
	redis        redisTransactions
	store        storeTransactions
	rmq          rmqTransactions
	workerLogger *zerolog.Logger
	tag          TagText
}

func New(tag TagText) (*Worker, error) {
	workerLogger := logger.NewLogger("Worker")

	var config Config
	if err := envconfig.Process("", &config); err != nil {
		workerLogger.Error().Err(err).Msg("Could not read config")
		return nil, err
	}

	worker := Worker{
		config:       config,
		workerLogger: &workerLogger,
		tag:          tag,
	}
	if err := worker.refreshRMQClient(); err != nil {
		workerLogger.Error().Err(err).Msg("Could not create RMQ client")
		return nil, err
	}
	if err := worker.refreshStoreClient(); err != nil {
		workerLogger.Error().Err(err).Msg("Could not create model store client")
		return nil, err
	}
	if err := worker.refreshRedisClients(); err != nil {
		workerLogger.Error().Err(err).Msg("Could not create Redis client")
		return nil, err
	}
	return &worker, nil
}

func (worker *Worker) StartWorker() error {
	defer worker.Close()
	for {
		select {
		case delivery, ok := <-worker.rmq.getDeliveriesCh():
			if ok {
				go worker.processMessage(&delivery)
				continue
			}
			worker.workerLogger.Error().Msg("Deliveries channel closed, trying to refresh RMQ client")
			if err := worker.refreshRMQClient(); err != nil {
				return fmt.Errorf(
					"rmq deliveries channel has been closed and refresh returned error: %w",
					err,
				)
			}
		case rmqErr := <-worker.rmq.getRespChanErrorsCh():
			if rmqErr == nil {
				continue
			}
			worker.workerLogger.Err(rmqErr).Msg("Response connection received error, trying to refresh RMQ client")
			if err := worker.refreshRMQClient(); err != nil {
				return fmt.Errorf(
					"response connection received error and refresh failed with: %w",
					err,
				)
			}
		case rmqErr := <-worker.rmq.getReqChanErrorsCh():
			if rmqErr == nil {
				continue
			}
			worker.workerLogger.Err(rmqErr).Msg("Request connection received error, trying to refresh RMQ client")
			if err := worker.refreshRMQClient(); err != nil {
				return fmt.Errorf(
					"request connection received error and refresh failed with: %w",
					err,
				)
			}
		}
	}
}

func (worker *Worker) Close() {
	worker.redis.close()
	worker.store.close()
	worker.rmq.close()
}

func (worker *Worker) refreshRedisClients() error {
	worker.workerLogger.Info().Msg("Refreshing Redis client")
	if oldClient := worker.redis; oldClient != nil {
		defer oldClient.close()
	}
	tasksClient, err := tasks.NewClient()
	if err != nil {
		worker.workerLogger.Err(err).Msg("Failed to refresh Redis client")
		return err
	}
	worker.redis = &redisClientWrapper{&tasksClient}
	worker.workerLogger.Info().Msg("Refreshed Redis client")
	return nil
}

func (worker *Worker) refreshRMQClient() error {
	worker.workerLogger.Info().Msg("Refreshing RMQ client")
	if oldClient := worker.rmq; oldClient != nil {
		defer oldClient.close()
	}
	rmqClient, err := rmq.NewClient()
	if err != nil {
		worker.workerLogger.Err(err).Msg("Failed to refresh RMQ client")
		return err
	}
	worker.rmq = &rmqClientWrapper{rmqClient}
	worker.workerLogger.Info().Msg("Refreshed RMQ client")
	return nil
}

func (worker *Worker) refreshStoreClient() error {
	worker.workerLogger.Info().Msg("Refreshing model store client")
	if oldClient := worker.store; oldClient != nil {
		defer oldClient.close()
	}
	storeClient, err := modelstore.New()
	if err != nil {
		worker.workerLogger.Err(err).Msg("Failed to refresh model store client")
		return err
	}
	worker.store = &storeClientWrapper{storeClient}
	worker.workerLogger.Info().Msg("Refreshed model store client")
	return nil
}
