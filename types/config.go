package types

import (
	"encoding/json"
	"errors"
	"io/ioutil"
	"os"
	"path"
	"strings"
	"sync"

	jsonpatch "github.com/evanphx/json-patch"
	"gopkg.in/yaml.v3"

	"taglab.io/tagger/logger"
)

const (
	// model modes
	ModePOS   = "pos"
	ModeChunk = "chunk"

	overrideSuffix = ".override.yaml"
)

// TaggerConfig names the persisted artifacts one tagger deployment
// uses and where its training data lives.
type TaggerConfig struct {
	POSModelKey   string `yaml:"pos_model_key" json:"pos_model_key"`
	ChunkModelKey string `yaml:"chunk_model_key" json:"chunk_model_key"`
	CorpusPath    string `yaml:"corpus_path" json:"corpus_path"`
}

type Configuration struct {
	Name     string       `json:"name"`
	FilePath string       `json:"file_path"`
	Mode     string       `yaml:"mode" json:"mode"`
	Tagger   TaggerConfig `yaml:"tagger" json:"tagger"`
}

// LoadConfigurations reads every *.yaml in dirPath into a
// Configuration. A sibling <name>.override.yaml is merge-patched over
// its base document before decoding, so deployments can override
// single fields without copying whole files. Broken files are logged
// and skipped.
func LoadConfigurations(dirPath string) ([]Configuration, error) {
	cfgLogger := logger.NewLogger("LoadConfigurations")

	files, err := ioutil.ReadDir(dirPath)
	if err != nil {
		return nil, err
	}

	var wg sync.WaitGroup
	configChan := make(chan Configuration, len(files))
	for _, f := range files {
		// Skip dirs, non-yaml files and the override files themselves
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".yaml") || strings.HasSuffix(f.Name(), overrideSuffix) {
			continue
		}

		wg.Add(1)
		go func(file os.FileInfo) {
			defer wg.Done()
			cfg := Configuration{
				Name:     strings.Split(file.Name(), ".yaml")[0],
				FilePath: path.Join(dirPath, file.Name()),
			}
			buf, err := ioutil.ReadFile(cfg.FilePath)
			if err != nil {
				cfgLogger.Err(err).Str("file", cfg.FilePath).Msg("Could not read configuration")
				return
			}
			overridePath := path.Join(dirPath, cfg.Name+overrideSuffix)
			buf, err = applyOverride(buf, overridePath)
			if err != nil {
				cfgLogger.Err(err).Str("file", overridePath).Msg("Could not apply override")
				return
			}
			if err := yaml.Unmarshal(buf, &cfg); err != nil {
				cfgLogger.Err(err).Str("file", cfg.FilePath).Msg("Could not parse configuration")
				return
			}

			if cfg.Mode != ModePOS && cfg.Mode != ModeChunk {
				cfgLogger.Err(errors.New("wrong tagger mode")).
					Str("file", cfg.FilePath).Str("mode", cfg.Mode).Msg("Skipping configuration")
				return
			}

			configChan <- cfg
		}(f)
	}

	go func() {
		wg.Wait()
		close(configChan)
	}()

	configs := make([]Configuration, 0, len(configChan))
	for cfg := range configChan {
		configs = append(configs, cfg)
	}
	return configs, nil
}

// applyOverride merge-patches the override document, if present, over
// the base one. Both travel through JSON since merge patch is a JSON
// operation.
func applyOverride(base []byte, overridePath string) ([]byte, error) {
	overrideBuf, err := ioutil.ReadFile(overridePath)
	if err != nil {
		if os.IsNotExist(err) {
			return base, nil
		}
		return nil, err
	}
	baseJSON, err := yamlToJSON(base)
	if err != nil {
		return nil, err
	}
	overrideJSON, err := yamlToJSON(overrideBuf)
	if err != nil {
		return nil, err
	}
	return jsonpatch.MergePatch(baseJSON, overrideJSON)
}

func yamlToJSON(buf []byte) ([]byte, error) {
	var doc map[string]interface{}
	if err := yaml.Unmarshal(buf, &doc); err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}
