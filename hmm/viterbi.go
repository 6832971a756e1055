package hmm

import (
	"fmt"
	"math"
)

// Decoder finds the single most probable label sequence for a token
// sequence with exact first-order Viterbi dynamic programming. All
// scores are kept in log space; linear-space products underflow well
// before sequences reach a few hundred tokens.
//
// The trellis costs O(N * |labels|^2) time and O(N * |labels|) space
// and is owned by one Decode call, so a single Decoder may be used
// from many goroutines at once.
type Decoder struct {
	model *Model
	vocab Vocab
}

func NewDecoder(model *Model) (*Decoder, error) {
	if !model.Trained() {
		return nil, fmt.Errorf("decoder: %w", ErrNotTrained)
	}
	return &Decoder{model: model, vocab: model.Vocab()}, nil
}

// Decode returns the most probable label sequence for tokens, with
// its log-probability. An empty input decodes to an empty sequence.
// Tokens unseen during training decode through the emission floor;
// only IDs outside the declared vocabulary range are an error.
func (d *Decoder) Decode(tokens []int) ([]int, float64, error) {
	if len(tokens) == 0 {
		return []int{}, 0, nil
	}
	for i, token := range tokens {
		if !d.vocab.ValidToken(token) {
			return nil, 0, fmt.Errorf("position %d: token %d outside range [0, %d): %w",
				i, token, d.vocab.NumTokens, ErrInvalidSequence)
		}
	}

	numLabels := d.vocab.NumLabels
	boundary := d.vocab.Boundary
	transitions := d.model.transitions
	emissions := d.model.emissions

	scores := make([]float64, numLabels)
	next := make([]float64, numLabels)
	backs := make([][]int, len(tokens))

	for label := 0; label < numLabels; label++ {
		if label == boundary {
			scores[label] = math.Inf(-1)
			continue
		}
		scores[label] = math.Log(transitions.prob(boundary, label)) +
			math.Log(emissions.prob(label, tokens[0]))
	}

	for i := 1; i < len(tokens); i++ {
		backs[i] = make([]int, numLabels)
		for label := 0; label < numLabels; label++ {
			if label == boundary {
				next[label] = math.Inf(-1)
				continue
			}
			best := math.Inf(-1)
			bestPrev := -1
			// Ascending scan keeps ties on the lowest label ID, which
			// makes decoding reproducible.
			for prev := 0; prev < numLabels; prev++ {
				if prev == boundary {
					continue
				}
				score := scores[prev] + math.Log(transitions.prob(prev, label))
				if score > best || bestPrev == -1 {
					best = score
					bestPrev = prev
				}
			}
			next[label] = best + math.Log(emissions.prob(label, tokens[i]))
			backs[i][label] = bestPrev
		}
		scores, next = next, scores
	}

	bestScore := math.Inf(-1)
	bestLabel := -1
	for label := 0; label < numLabels; label++ {
		if label == boundary {
			continue
		}
		score := scores[label] + math.Log(transitions.prob(label, boundary))
		if score > bestScore || bestLabel == -1 {
			bestScore = score
			bestLabel = label
		}
	}

	path := make([]int, len(tokens))
	path[len(tokens)-1] = bestLabel
	for i := len(tokens) - 1; i > 0; i-- {
		path[i-1] = backs[i][path[i]]
	}
	return path, bestScore, nil
}
