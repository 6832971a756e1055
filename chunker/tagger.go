package chunker

import (
	"encoding/json"
	"fmt"

	"taglab.io/tagger/conll"
	"taglab.io/tagger/converter"
	"taglab.io/tagger/hmm"
	"taglab.io/tagger/logger"
)

// Reserved symbols shared by all tagger models. The boundary symbol
// always takes label ID 0 and the OOV sentinel token ID 0, so a
// model's Vocab is fully determined by its tables.
const (
	BoundarySymbol = "<s>"
	OOVSymbol      = "<unk>"
)

var chunkerLogger = logger.NewLogger("Chunker")

// TaggerModel couples a trained HMM with the symbol tables that
// translate between surface strings and the model's integer IDs. It
// is immutable once built and safe for concurrent Tag calls.
type TaggerModel struct {
	model   *hmm.Model
	decoder *hmm.Decoder
	tokens  *converter.Table
	labels  *converter.Table
}

// TrainPOS builds a part-of-speech model: emissions are word forms,
// labels POS tags.
func TrainPOS(corpus [][]conll.Entry) (*TaggerModel, error) {
	return train(corpus, func(entry conll.Entry) (string, string) {
		return entry.Token, entry.POS
	})
}

// TrainChunk builds a chunk model over POS tag sequences: emissions
// are POS tags, labels the IOB2 chunk tags derived from each
// sentence's dependency tree. Sentences whose trees do not check out
// are skipped, matching how treebank noise is handled upstream.
func TrainChunk(corpus [][]conll.Entry) (*TaggerModel, error) {
	skipped := 0
	sequences := make([][]symbolPair, 0, len(corpus))
	for _, sentence := range corpus {
		tree, err := conll.TreeFromSentence(sentence)
		if err != nil {
			skipped++
			continue
		}
		chunks, err := TranslateTree(tree)
		if err != nil {
			skipped++
			continue
		}
		pairs := make([]symbolPair, len(sentence))
		for i, entry := range sentence {
			pairs[i] = symbolPair{token: entry.POS, label: chunks[i]}
		}
		sequences = append(sequences, pairs)
	}
	if skipped > 0 {
		chunkerLogger.Warn().Int("skipped", skipped).Msg("Dropped sentences with corrupt dependency trees")
	}
	return trainPairs(sequences)
}

type symbolPair struct {
	token string
	label string
}

func train(corpus [][]conll.Entry, view func(conll.Entry) (string, string)) (*TaggerModel, error) {
	sequences := make([][]symbolPair, 0, len(corpus))
	for _, sentence := range corpus {
		pairs := make([]symbolPair, 0, len(sentence))
		for _, entry := range sentence {
			token, label := view(entry)
			pairs = append(pairs, symbolPair{token: token, label: label})
		}
		sequences = append(sequences, pairs)
	}
	return trainPairs(sequences)
}

func trainPairs(sequences [][]symbolPair) (*TaggerModel, error) {
	tokens := converter.NewTable()
	labels := converter.NewTable()
	oovToken := tokens.ID(OOVSymbol)
	boundary := labels.ID(BoundarySymbol)

	tagged := make([][]hmm.TaggedToken, len(sequences))
	for i, pairs := range sequences {
		seq := make([]hmm.TaggedToken, len(pairs))
		for j, pair := range pairs {
			seq[j] = hmm.TaggedToken{Token: tokens.ID(pair.token), Label: labels.ID(pair.label)}
		}
		tagged[i] = seq
	}
	if err := tokens.Freeze(OOVSymbol); err != nil {
		return nil, err
	}
	if err := labels.Freeze(""); err != nil {
		return nil, err
	}

	model, err := hmm.NewModel(hmm.Vocab{
		NumLabels: labels.Len(),
		NumTokens: tokens.Len(),
		Boundary:  boundary,
		OOVToken:  oovToken,
	})
	if err != nil {
		return nil, err
	}
	if err := model.Train(tagged); err != nil {
		return nil, err
	}
	return newTaggerModel(model, tokens, labels)
}

func newTaggerModel(model *hmm.Model, tokens, labels *converter.Table) (*TaggerModel, error) {
	decoder, err := hmm.NewDecoder(model)
	if err != nil {
		return nil, err
	}
	return &TaggerModel{
		model:   model,
		decoder: decoder,
		tokens:  tokens,
		labels:  labels,
	}, nil
}

// Tag labels a sequence of surface symbols. Unknown symbols decode
// through the OOV sentinel; an empty input yields an empty output.
func (tm *TaggerModel) Tag(symbols []string) ([]string, error) {
	ids, _, err := tm.decoder.Decode(tm.tokens.Convert(symbols))
	if err != nil {
		return nil, err
	}
	return tm.labels.Decode(ids)
}

func (tm *TaggerModel) Vocab() hmm.Vocab {
	return tm.model.Vocab()
}

type taggerModelData struct {
	Model  json.RawMessage  `json:"model"`
	Tokens *converter.Table `json:"tokens"`
	Labels *converter.Table `json:"labels"`
}

// MarshalJSON bundles the serialized HMM with both symbol tables so a
// model file is loadable with no access to the training corpus.
func (tm *TaggerModel) MarshalJSON() ([]byte, error) {
	modelData, err := tm.model.Serialize()
	if err != nil {
		return nil, err
	}
	return json.Marshal(taggerModelData{
		Model:  modelData,
		Tokens: tm.tokens,
		Labels: tm.labels,
	})
}

func (tm *TaggerModel) UnmarshalJSON(data []byte) error {
	var bundle taggerModelData
	if err := json.Unmarshal(data, &bundle); err != nil {
		return fmt.Errorf("tagger model bundle: %v: %w", err, hmm.ErrCorruptModel)
	}
	if bundle.Tokens == nil || bundle.Labels == nil {
		return fmt.Errorf("tagger model bundle missing symbol tables: %w", hmm.ErrCorruptModel)
	}
	model, err := hmm.Deserialize(bundle.Model)
	if err != nil {
		return err
	}
	vocab := model.Vocab()
	if bundle.Tokens.Len() != vocab.NumTokens {
		return fmt.Errorf("token table has %d symbols, model expects %d: %w",
			bundle.Tokens.Len(), vocab.NumTokens, hmm.ErrCorruptModel)
	}
	if bundle.Labels.Len() != vocab.NumLabels {
		return fmt.Errorf("label table has %d symbols, model expects %d: %w",
			bundle.Labels.Len(), vocab.NumLabels, hmm.ErrCorruptModel)
	}
	loaded, err := newTaggerModel(model, bundle.Tokens, bundle.Labels)
	if err != nil {
		return err
	}
	*tm = *loaded
	return nil
}

// ChunkTagger runs the original two-stage pipeline: a POS model tags
// the words, then a chunk model labels the resulting POS sequence.
type ChunkTagger struct {
	pos   *TaggerModel
	chunk *TaggerModel
}

func NewChunkTagger(pos, chunk *TaggerModel) *ChunkTagger {
	return &ChunkTagger{pos: pos, chunk: chunk}
}

func (ct *ChunkTagger) POSTags(tokens []string) ([]string, error) {
	return ct.pos.Tag(tokens)
}

func (ct *ChunkTagger) ChunkTags(tokens []string) ([]string, error) {
	posTags, err := ct.pos.Tag(tokens)
	if err != nil {
		return nil, fmt.Errorf("pos stage: %w", err)
	}
	chunks, err := ct.chunk.Tag(posTags)
	if err != nil {
		return nil, fmt.Errorf("chunk stage: %w", err)
	}
	return chunks, nil
}
