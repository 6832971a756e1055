package hmm

import (
	"fmt"
	"sort"
)

type emissionKey struct {
	Label int
	Token int
}

// EmissionEstimator accumulates (label, token) counts and, once
// finalized, answers smoothed emission probabilities.
//
// Smoothing policy: Witten-Bell per label. With N the label's total
// token count and T its distinct-token count, a seen pair gets
// c/(N+T) and the reserved mass T/(N+T) is spread uniformly over the
// label's unseen slice of the vocabulary. Every in-vocabulary token
// therefore keeps probability > 0 for every observed label, which is
// what makes out-of-vocabulary words decodable. A label never observed
// at all emits uniformly over the token vocabulary, and a label that
// has emitted the whole vocabulary keeps its maximum-likelihood
// estimates since there is no unseen slice to reserve mass for.
type EmissionEstimator struct {
	vocab     Vocab
	counts    map[emissionKey]float64
	totals    []float64 // N per label
	kinds     []float64 // T per label
	finalized bool

	probs map[emissionKey]float64
	floor []float64 // unseen-token probability per label
}

func NewEmissionEstimator(vocab Vocab) *EmissionEstimator {
	return &EmissionEstimator{
		vocab:  vocab,
		counts: make(map[emissionKey]float64),
		totals: make([]float64, vocab.NumLabels),
		kinds:  make([]float64, vocab.NumLabels),
	}
}

func (e *EmissionEstimator) Observe(label, token int) {
	key := emissionKey{Label: label, Token: token}
	if e.counts[key] == 0 {
		e.kinds[label]++
	}
	e.counts[key]++
	e.totals[label]++
}

// Finalize converts raw counts into the smoothed emission table. A
// second call fails with ErrAlreadyFinalized.
func (e *EmissionEstimator) Finalize() error {
	if e.finalized {
		return fmt.Errorf("emission estimator: %w", ErrAlreadyFinalized)
	}

	unseen := make([]float64, e.vocab.NumLabels)
	for l := 0; l < e.vocab.NumLabels; l++ {
		unseen[l] = float64(e.vocab.NumTokens) - e.kinds[l]
	}

	e.probs = make(map[emissionKey]float64, len(e.counts))
	for key, c := range e.counts {
		if unseen[key.Label] == 0 {
			e.probs[key] = c / e.totals[key.Label]
			continue
		}
		e.probs[key] = c / (e.totals[key.Label] + e.kinds[key.Label])
	}

	e.floor = make([]float64, e.vocab.NumLabels)
	for l := 0; l < e.vocab.NumLabels; l++ {
		if e.totals[l] > 0 && unseen[l] > 0 {
			e.floor[l] = e.kinds[l] / ((e.totals[l] + e.kinds[l]) * unseen[l])
		}
	}
	e.finalized = true
	return nil
}

// Probability returns the smoothed P(token | label).
func (e *EmissionEstimator) Probability(label, token int) (float64, error) {
	if !e.finalized {
		return 0, fmt.Errorf("emission probability: %w", ErrNotTrained)
	}
	if !e.vocab.ValidLabel(label) {
		return 0, fmt.Errorf("label %d outside label range [0, %d): %w",
			label, e.vocab.NumLabels, ErrInvalidSequence)
	}
	if !e.vocab.ValidToken(token) {
		return 0, fmt.Errorf("token %d outside token range [0, %d): %w",
			token, e.vocab.NumTokens, ErrInvalidSequence)
	}
	return e.prob(label, token), nil
}

// prob assumes a finalized estimator and in-range arguments.
func (e *EmissionEstimator) prob(label, token int) float64 {
	if e.totals[label] == 0 {
		return 1 / float64(e.vocab.NumTokens)
	}
	if p, ok := e.probs[emissionKey{Label: label, Token: token}]; ok {
		return p
	}
	return e.floor[label]
}

type emissionEntry struct {
	Label int     `json:"label"`
	Token int     `json:"token"`
	P     float64 `json:"p"`
}

type emissionData struct {
	Totals  []float64       `json:"totals"`
	Floor   []float64       `json:"floor"`
	Entries []emissionEntry `json:"entries"`
}

func (e *EmissionEstimator) export() emissionData {
	entries := make([]emissionEntry, 0, len(e.probs))
	for key, prob := range e.probs {
		entries = append(entries, emissionEntry{Label: key.Label, Token: key.Token, P: prob})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Label != entries[j].Label {
			return entries[i].Label < entries[j].Label
		}
		return entries[i].Token < entries[j].Token
	})
	return emissionData{
		Totals:  e.totals,
		Floor:   e.floor,
		Entries: entries,
	}
}

func importEmissions(vocab Vocab, data emissionData) (*EmissionEstimator, error) {
	if len(data.Totals) != vocab.NumLabels || len(data.Floor) != vocab.NumLabels {
		return nil, fmt.Errorf("emission tables sized for %d/%d labels, vocab has %d: %w",
			len(data.Totals), len(data.Floor), vocab.NumLabels, ErrCorruptModel)
	}
	probs := make(map[emissionKey]float64, len(data.Entries))
	for _, entry := range data.Entries {
		if !vocab.ValidLabel(entry.Label) {
			return nil, fmt.Errorf("emission entry label %d outside label range [0, %d): %w",
				entry.Label, vocab.NumLabels, ErrCorruptModel)
		}
		if !vocab.ValidToken(entry.Token) {
			return nil, fmt.Errorf("emission entry token %d outside token range [0, %d): %w",
				entry.Token, vocab.NumTokens, ErrCorruptModel)
		}
		if entry.P <= 0 || entry.P > 1 {
			return nil, fmt.Errorf("emission entry (%d, %d) has probability %g: %w",
				entry.Label, entry.Token, entry.P, ErrCorruptModel)
		}
		probs[emissionKey{Label: entry.Label, Token: entry.Token}] = entry.P
	}
	return &EmissionEstimator{
		vocab:     vocab,
		totals:    data.Totals,
		finalized: true,
		probs:     probs,
		floor:     data.Floor,
	}, nil
}
