package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"

	"taglab.io/tagger/api"
	"taglab.io/tagger/chunker"
	"taglab.io/tagger/conll"
	"taglab.io/tagger/logger"
	"taglab.io/tagger/modelstore"
	"taglab.io/tagger/types"
	"taglab.io/tagger/worker"
)

type Config struct {
	ConfigPath    string `envconfig:"TAGGER_CONFIG_PATH" required:"true"`
	RestAPIActive bool   `envconfig:"TAGGER_REST_API_ACTIVE" default:"false"`
	RestAPIPort   string `envconfig:"TAGGER_REST_API_PORT" default:"10000"`
}

const modelLoadMaxRetries = 5

func main() {
	logger.SetupLogging()
	mainLogger := logger.NewLogger("Main")
	fatalErrLogger := mainLogger.Fatal().Caller()
	trainModels := flag.Bool("train", false, "train models from the configured corpora and upload them")
	flag.Parse()
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		fatalErrLogger.Err(err).Msg("Failed to read environment")
		os.Exit(1)
	}

	cfgs, err := types.LoadConfigurations(config.ConfigPath)
	if err != nil {
		fatalErrLogger.Err(err).Msg("Failed to load configurations")
		os.Exit(1)
	}
	mainLogger.Info().Msgf("Loaded %d configurations", len(cfgs))

	store, err := modelstore.New()
	if err != nil {
		fatalErrLogger.Err(err).Msg("Failed to create model store client")
		os.Exit(1)
	}

	if *trainModels {
		if err := train(cfgs, store); err != nil {
			fatalErrLogger.Err(err).Msg("Training failed")
			os.Exit(1)
		}
		mainLogger.Info().Msg("Models trained and uploaded. Exit...")
		return
	}

	// Load models, retrying since the store may still be warming up.
	var tagger *chunker.ChunkTagger
	for retry := 0; ; retry++ {
		tagger, err = loadTagger(cfgs, store)
		if err == nil {
			break
		}
		if retry >= modelLoadMaxRetries {
			fatalErrLogger.Err(err).Msg("Could not load models, exiting")
			os.Exit(1)
		}
		mainLogger.Err(err).Msg("Failed to load models. Retrying in 5 sec")
		time.Sleep(5 * time.Second)
	}
	mainLogger.Info().Msg("Models loaded")

	if config.RestAPIActive {
		go func() {
			mainLogger.Info().Msg("Starting API service")
			apiRequest := &api.Request{
				Tag: tagger.TagText,
			}
			http.HandleFunc("/", apiRequest.ProcessData)
			host := fmt.Sprintf(":%s", config.RestAPIPort)
			mainLogger.Info().Msgf("REST API on %s", host)
			err := http.ListenAndServe(host, nil)
			fatalErrLogger.Err(err).Msg("REST API stopped with error")
		}()
	}

	mainLogger.Info().Msg("Start tagger worker")
	for {
		rmqWorker, err := worker.New(tagger.TagText)
		if err != nil {
			mainLogger.Fatal().Err(err).Msg("Could not initialize RMQ worker")
			os.Exit(1)
		}
		err = rmqWorker.StartWorker()
		if err != nil {
			mainLogger.Err(err).Msg("Worker returned with error. Launching new in 5 seconds")
			time.Sleep(5 * time.Second)
		}
	}
}

// train builds the model each configuration describes from its corpus
// and uploads the serialized bundle under the configured key.
func train(cfgs []types.Configuration, store *modelstore.Client) error {
	trainLogger := logger.NewLogger("Train")
	for _, cfg := range cfgs {
		corpus, err := readCorpus(cfg.Tagger.CorpusPath)
		if err != nil {
			return fmt.Errorf("configuration %q: %w", cfg.Name, err)
		}
		var model *chunker.TaggerModel
		var key string
		switch cfg.Mode {
		case types.ModePOS:
			model, err = chunker.TrainPOS(corpus)
			key = cfg.Tagger.POSModelKey
		case types.ModeChunk:
			model, err = chunker.TrainChunk(corpus)
			key = cfg.Tagger.ChunkModelKey
		}
		if err != nil {
			return fmt.Errorf("configuration %q: %w", cfg.Name, err)
		}
		data, err := json.Marshal(model)
		if err != nil {
			return fmt.Errorf("configuration %q: %w", cfg.Name, err)
		}
		if _, err := store.Upload(data, key); err != nil {
			return fmt.Errorf("configuration %q: %w", cfg.Name, err)
		}
		trainLogger.Info().
			Str("configuration", cfg.Name).
			Str("key", key).
			Int("sentences", len(corpus)).
			Msg("Trained and uploaded model")
	}
	return nil
}

func readCorpus(corpusPath string) ([][]conll.Entry, error) {
	file, err := os.Open(corpusPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return conll.ReadCorpus(file)
}

// loadTagger picks the POS and chunk configurations and assembles the
// two stage pipeline from their stored models.
func loadTagger(cfgs []types.Configuration, store *modelstore.Client) (*chunker.ChunkTagger, error) {
	var posKey, chunkKey string
	for _, cfg := range cfgs {
		switch cfg.Mode {
		case types.ModePOS:
			posKey = cfg.Tagger.POSModelKey
		case types.ModeChunk:
			chunkKey = cfg.Tagger.ChunkModelKey
		}
	}
	if posKey == "" || chunkKey == "" {
		return nil, fmt.Errorf("need one %q and one %q configuration", types.ModePOS, types.ModeChunk)
	}
	pos, err := downloadModel(store, posKey)
	if err != nil {
		return nil, err
	}
	chunk, err := downloadModel(store, chunkKey)
	if err != nil {
		return nil, err
	}
	return chunker.NewChunkTagger(pos, chunk), nil
}

func downloadModel(store *modelstore.Client, key string) (*chunker.TaggerModel, error) {
	data, err := store.Download(key)
	if err != nil {
		return nil, fmt.Errorf("download %q: %w", key, err)
	}
	var model chunker.TaggerModel
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, fmt.Errorf("load %q: %w", key, err)
	}
	return &model, nil
}
