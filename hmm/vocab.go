package hmm

import "fmt"

// Vocab fixes the integer ID spaces a model operates on. The mapping
// between IDs and surface strings is owned by the caller (see the
// converter package); the model only ever sees integers.
//
// Labels occupy [0, NumLabels) and include one reserved boundary label
// that marks sequence start and end. Tokens occupy [0, NumTokens).
// OOVToken, when >= 0, names the sentinel token unknown words are
// mapped to before decoding; it is an ordinary token to the model.
type Vocab struct {
	NumLabels int `json:"num_labels"`
	NumTokens int `json:"num_tokens"`
	Boundary  int `json:"boundary"`
	OOVToken  int `json:"oov_token"`
}

func (v Vocab) Validate() error {
	if v.NumLabels < 2 {
		return fmt.Errorf("vocab needs the boundary label and at least one real label, got %d", v.NumLabels)
	}
	if v.NumTokens < 1 {
		return fmt.Errorf("vocab needs at least one token, got %d", v.NumTokens)
	}
	if v.Boundary < 0 || v.Boundary >= v.NumLabels {
		return fmt.Errorf("boundary label %d outside label range [0, %d)", v.Boundary, v.NumLabels)
	}
	if v.OOVToken != -1 && (v.OOVToken < 0 || v.OOVToken >= v.NumTokens) {
		return fmt.Errorf("oov token %d outside token range [0, %d)", v.OOVToken, v.NumTokens)
	}
	return nil
}

func (v Vocab) ValidLabel(label int) bool {
	return label >= 0 && label < v.NumLabels
}

func (v Vocab) ValidToken(token int) bool {
	return token >= 0 && token < v.NumTokens
}
