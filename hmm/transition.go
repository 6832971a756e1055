package hmm

import (
	"fmt"
	"sort"
)

type labelPair struct {
	Prev  int
	Label int
}

// TransitionEstimator accumulates (previous label, label) counts and,
// once finalized, answers smoothed first-order transition
// probabilities.
//
// Smoothing policy: Witten-Bell interpolation against an add-one
// smoothed unigram backbone P1,
//
//	P(l | prev) = (C(prev,l) + T(prev) * P1(l)) / (C(prev) + T(prev))
//
// where C(prev) is how often prev was seen as a context and T(prev)
// how many distinct successors it had. For every previous label with
// at least one observed successor the probabilities over the full
// label set sum to exactly 1, and the reserved mass
// T(prev)/(C(prev)+T(prev)) is reallocated to unseen successors in
// proportion to their unigram frequency, never as a hard zero. A
// previous label never observed at all yields the uniform
// distribution over the label set.
type TransitionEstimator struct {
	vocab     Vocab
	bigrams   map[labelPair]float64
	occ       []float64 // label occurrences as a successor
	ctx       []float64 // label occurrences as a context
	kinds     []float64 // distinct successors per context
	total     float64
	finalized bool

	probs    map[labelPair]float64
	backbone []float64
}

func NewTransitionEstimator(vocab Vocab) *TransitionEstimator {
	return &TransitionEstimator{
		vocab:   vocab,
		bigrams: make(map[labelPair]float64),
		occ:     make([]float64, vocab.NumLabels),
		ctx:     make([]float64, vocab.NumLabels),
		kinds:   make([]float64, vocab.NumLabels),
	}
}

// Observe records one adjacent label pair. Callers observe the
// boundary label before the first and after the last real label of
// every sequence.
func (e *TransitionEstimator) Observe(prev, label int) {
	key := labelPair{Prev: prev, Label: label}
	if e.bigrams[key] == 0 {
		e.kinds[prev]++
	}
	e.bigrams[key]++
	e.occ[label]++
	e.ctx[prev]++
	e.total++
}

// Finalize converts raw counts into the smoothed transition table. A
// second call fails with ErrAlreadyFinalized.
func (e *TransitionEstimator) Finalize() error {
	if e.finalized {
		return fmt.Errorf("transition estimator: %w", ErrAlreadyFinalized)
	}

	e.backbone = make([]float64, e.vocab.NumLabels)
	for l := 0; l < e.vocab.NumLabels; l++ {
		e.backbone[l] = (e.occ[l] + 1) / (e.total + float64(e.vocab.NumLabels))
	}

	e.probs = make(map[labelPair]float64, len(e.bigrams))
	for key, c := range e.bigrams {
		e.probs[key] = (c + e.kinds[key.Prev]*e.backbone[key.Label]) /
			(e.ctx[key.Prev] + e.kinds[key.Prev])
	}
	e.finalized = true
	return nil
}

// Probability returns the smoothed P(label | prev).
func (e *TransitionEstimator) Probability(prev, label int) (float64, error) {
	if !e.finalized {
		return 0, fmt.Errorf("transition probability: %w", ErrNotTrained)
	}
	if !e.vocab.ValidLabel(prev) || !e.vocab.ValidLabel(label) {
		return 0, fmt.Errorf("transition (%d, %d) outside label range [0, %d): %w",
			prev, label, e.vocab.NumLabels, ErrInvalidSequence)
	}
	return e.prob(prev, label), nil
}

// prob assumes a finalized estimator and in-range arguments.
func (e *TransitionEstimator) prob(prev, label int) float64 {
	if e.ctx[prev] == 0 {
		return 1 / float64(e.vocab.NumLabels)
	}
	if p, ok := e.probs[labelPair{Prev: prev, Label: label}]; ok {
		return p
	}
	return e.kinds[prev] * e.backbone[label] / (e.ctx[prev] + e.kinds[prev])
}

type transitionEntry struct {
	Prev  int     `json:"prev"`
	Label int     `json:"label"`
	P     float64 `json:"p"`
}

type transitionData struct {
	Backbone []float64         `json:"backbone"`
	Context  []float64         `json:"context"`
	Kinds    []float64         `json:"kinds"`
	Entries  []transitionEntry `json:"entries"`
}

func (e *TransitionEstimator) export() transitionData {
	entries := make([]transitionEntry, 0, len(e.probs))
	for key, prob := range e.probs {
		entries = append(entries, transitionEntry{Prev: key.Prev, Label: key.Label, P: prob})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Prev != entries[j].Prev {
			return entries[i].Prev < entries[j].Prev
		}
		return entries[i].Label < entries[j].Label
	})
	return transitionData{
		Backbone: e.backbone,
		Context:  e.ctx,
		Kinds:    e.kinds,
		Entries:  entries,
	}
}

func importTransitions(vocab Vocab, data transitionData) (*TransitionEstimator, error) {
	if len(data.Backbone) != vocab.NumLabels ||
		len(data.Context) != vocab.NumLabels ||
		len(data.Kinds) != vocab.NumLabels {
		return nil, fmt.Errorf("transition tables sized for %d/%d/%d labels, vocab has %d: %w",
			len(data.Backbone), len(data.Context), len(data.Kinds), vocab.NumLabels, ErrCorruptModel)
	}
	probs := make(map[labelPair]float64, len(data.Entries))
	for _, entry := range data.Entries {
		if !vocab.ValidLabel(entry.Prev) || !vocab.ValidLabel(entry.Label) {
			return nil, fmt.Errorf("transition entry (%d, %d) outside label range [0, %d): %w",
				entry.Prev, entry.Label, vocab.NumLabels, ErrCorruptModel)
		}
		if entry.P <= 0 || entry.P > 1 {
			return nil, fmt.Errorf("transition entry (%d, %d) has probability %g: %w",
				entry.Prev, entry.Label, entry.P, ErrCorruptModel)
		}
		probs[labelPair{Prev: entry.Prev, Label: entry.Label}] = entry.P
	}
	return &TransitionEstimator{
		vocab:     vocab,
		ctx:       data.Context,
		kinds:     data.Kinds,
		finalized: true,
		probs:     probs,
		backbone:  data.Backbone,
	}, nil
}
