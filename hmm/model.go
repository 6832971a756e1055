package hmm

import (
	"encoding/json"
	"fmt"

	"taglab.io/tagger/utils"
)

const modelFormatVersion = 1

// TaggedToken is one training observation: a token and the label
// annotated for it. Both are integer IDs under the model's Vocab.
type TaggedToken struct {
	Token int `json:"token"`
	Label int `json:"label"`
}

// Model owns one transition and one emission estimator over a fixed
// vocabulary. A model is mutated by exactly one Train call (or built
// finalized by Deserialize) and is read-only afterwards, so one
// instance may serve any number of concurrent decodes.
type Model struct {
	vocab       Vocab
	transitions *TransitionEstimator
	emissions   *EmissionEstimator
	trained     bool
}

func NewModel(vocab Vocab) (*Model, error) {
	if err := vocab.Validate(); err != nil {
		return nil, err
	}
	return &Model{
		vocab:       vocab,
		transitions: NewTransitionEstimator(vocab),
		emissions:   NewEmissionEstimator(vocab),
	}, nil
}

func (m *Model) Vocab() Vocab {
	return m.vocab
}

func (m *Model) Trained() bool {
	return m.trained
}

// Train runs one full pass over the labeled corpus and finalizes both
// estimators. The pass is all-or-nothing: the corpus is validated in
// full before any count lands, so a malformed sentence leaves the
// model untrained rather than half-finalized.
func (m *Model) Train(sequences [][]TaggedToken) error {
	if m.trained {
		return fmt.Errorf("model: %w", ErrAlreadyFinalized)
	}
	for si, seq := range sequences {
		for ti, tt := range seq {
			if !m.vocab.ValidToken(tt.Token) {
				return fmt.Errorf("sequence %d position %d: token %d outside range [0, %d): %w",
					si, ti, tt.Token, m.vocab.NumTokens, ErrTrainingIncomplete)
			}
			if !m.vocab.ValidLabel(tt.Label) {
				return fmt.Errorf("sequence %d position %d: label %d outside range [0, %d): %w",
					si, ti, tt.Label, m.vocab.NumLabels, ErrTrainingIncomplete)
			}
			if tt.Label == m.vocab.Boundary {
				return fmt.Errorf("sequence %d position %d: boundary label %d used as annotation: %w",
					si, ti, tt.Label, ErrTrainingIncomplete)
			}
		}
	}
	for _, seq := range sequences {
		if len(seq) == 0 {
			continue
		}
		prev := m.vocab.Boundary
		for _, tt := range seq {
			m.transitions.Observe(prev, tt.Label)
			m.emissions.Observe(tt.Label, tt.Token)
			prev = tt.Label
		}
		m.transitions.Observe(prev, m.vocab.Boundary)
	}
	if err := m.transitions.Finalize(); err != nil {
		return err
	}
	if err := m.emissions.Finalize(); err != nil {
		return err
	}
	m.trained = true
	return nil
}

func (m *Model) TransitionProb(prev, label int) (float64, error) {
	return m.transitions.Probability(prev, label)
}

func (m *Model) EmissionProb(label, token int) (float64, error) {
	return m.emissions.Probability(label, token)
}

type modelPayload struct {
	Vocab       Vocab          `json:"vocab"`
	Transitions transitionData `json:"transitions"`
	Emissions   emissionData   `json:"emissions"`
}

type modelEnvelope struct {
	Version  int             `json:"version"`
	Checksum uint64          `json:"checksum"`
	Payload  json.RawMessage `json:"payload"`
}

// Serialize writes both finalized tables, the smoothing parameters
// needed to reconstruct the unseen-pair fallbacks, and a checksum over
// the payload. The output is deterministic for a given model.
func (m *Model) Serialize() ([]byte, error) {
	if !m.trained {
		return nil, fmt.Errorf("serialize: %w", ErrNotTrained)
	}
	payload, err := json.Marshal(modelPayload{
		Vocab:       m.vocab,
		Transitions: m.transitions.export(),
		Emissions:   m.emissions.export(),
	})
	if err != nil {
		return nil, fmt.Errorf("serialize model payload: %w", err)
	}
	return json.Marshal(modelEnvelope{
		Version:  modelFormatVersion,
		Checksum: utils.HashBytes(payload),
		Payload:  payload,
	})
}

// Deserialize rebuilds a trained model from Serialize output. Any
// checksum mismatch, malformed payload or table entry inconsistent
// with the stored vocabulary sizes fails with ErrCorruptModel.
func Deserialize(data []byte) (*Model, error) {
	var envelope modelEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("model envelope: %v: %w", err, ErrCorruptModel)
	}
	if envelope.Version != modelFormatVersion {
		return nil, fmt.Errorf("model format version %d, want %d: %w",
			envelope.Version, modelFormatVersion, ErrCorruptModel)
	}
	if checksum := utils.HashBytes(envelope.Payload); checksum != envelope.Checksum {
		return nil, fmt.Errorf("model checksum %x does not match stored %x: %w",
			checksum, envelope.Checksum, ErrCorruptModel)
	}
	var payload modelPayload
	if err := json.Unmarshal(envelope.Payload, &payload); err != nil {
		return nil, fmt.Errorf("model payload: %v: %w", err, ErrCorruptModel)
	}
	if err := payload.Vocab.Validate(); err != nil {
		return nil, fmt.Errorf("model vocab: %v: %w", err, ErrCorruptModel)
	}
	transitions, err := importTransitions(payload.Vocab, payload.Transitions)
	if err != nil {
		return nil, err
	}
	emissions, err := importEmissions(payload.Vocab, payload.Emissions)
	if err != nil {
		return nil, err
	}
	return &Model{
		vocab:       payload.Vocab,
		transitions: transitions,
		emissions:   emissions,
		trained:     true,
	}, nil
}
