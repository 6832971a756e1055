package hmm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmissionProbabilityBeforeFinalize(t *testing.T) {
	e := NewEmissionEstimator(testVocab())
	e.Observe(1, 0)
	_, err := e.Probability(1, 0)
	assert.True(t, errors.Is(err, ErrNotTrained))
}

func TestEmissionFinalizeTwice(t *testing.T) {
	e := NewEmissionEstimator(testVocab())
	e.Observe(1, 0)
	require.NoError(t, e.Finalize())
	err := e.Finalize()
	assert.True(t, errors.Is(err, ErrAlreadyFinalized))
}

func TestEmissionDistributionSumsToOne(t *testing.T) {
	vocab := testVocab()
	e := NewEmissionEstimator(vocab)
	for _, obs := range [][2]int{
		{1, 0}, {1, 0}, {1, 1}, {2, 2}, {2, 3}, {2, 3}, {3, 4},
	} {
		e.Observe(obs[0], obs[1])
	}
	require.NoError(t, e.Finalize())

	for label := 1; label < vocab.NumLabels; label++ {
		sum := 0.0
		for token := 0; token < vocab.NumTokens; token++ {
			p, err := e.Probability(label, token)
			require.NoError(t, err)
			sum += p
		}
		assert.InDelta(t, 1.0, sum, 1e-12, "label %d", label)
	}
}

func TestEmissionUnseenTokenHasPositiveProbability(t *testing.T) {
	vocab := testVocab()
	e := NewEmissionEstimator(vocab)
	e.Observe(1, 0)
	e.Observe(1, 0)
	e.Observe(1, 1)
	require.NoError(t, e.Finalize())

	for token := 0; token < vocab.NumTokens; token++ {
		p, err := e.Probability(1, token)
		require.NoError(t, err)
		assert.Greater(t, p, 0.0, "token %d", token)
	}

	// The OOV sentinel is a token like any other.
	oov, err := e.Probability(1, vocab.OOVToken)
	require.NoError(t, err)
	seen, err := e.Probability(1, 0)
	require.NoError(t, err)
	assert.Greater(t, seen, oov)
}

func TestEmissionWittenBellHandComputation(t *testing.T) {
	vocab := Vocab{NumLabels: 3, NumTokens: 4, Boundary: 0, OOVToken: 3}
	e := NewEmissionEstimator(vocab)
	e.Observe(1, 0)
	e.Observe(1, 0)
	require.NoError(t, e.Finalize())

	// N=2, T=1: seen pair 2/(2+1) = 2/3, reserved mass 1/3 spread
	// over the 3 unseen tokens.
	p, err := e.Probability(1, 0)
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3.0, p, 1e-12)

	for token := 1; token < vocab.NumTokens; token++ {
		p, err := e.Probability(1, token)
		require.NoError(t, err)
		assert.InDelta(t, 1.0/9.0, p, 1e-12)
	}
}

func TestEmissionFullVocabularyLabelSumsToOne(t *testing.T) {
	vocab := Vocab{NumLabels: 2, NumTokens: 3, Boundary: 0, OOVToken: -1}
	e := NewEmissionEstimator(vocab)
	e.Observe(1, 0)
	e.Observe(1, 0)
	e.Observe(1, 1)
	e.Observe(1, 2)
	require.NoError(t, e.Finalize())

	// No unseen slice remains, so the label keeps its ML estimates.
	p, err := e.Probability(1, 0)
	require.NoError(t, err)
	assert.InDelta(t, 2.0/4.0, p, 1e-12)

	sum := 0.0
	for token := 0; token < vocab.NumTokens; token++ {
		p, err := e.Probability(1, token)
		require.NoError(t, err)
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-12)
}

func TestEmissionUnseenLabelIsUniform(t *testing.T) {
	vocab := testVocab()
	e := NewEmissionEstimator(vocab)
	e.Observe(1, 0)
	require.NoError(t, e.Finalize())

	p, err := e.Probability(3, 2)
	require.NoError(t, err)
	assert.InDelta(t, 1.0/float64(vocab.NumTokens), p, 1e-12)
}

func TestEmissionOutOfRange(t *testing.T) {
	e := NewEmissionEstimator(testVocab())
	e.Observe(1, 0)
	require.NoError(t, e.Finalize())

	_, err := e.Probability(1, 99)
	assert.True(t, errors.Is(err, ErrInvalidSequence))
	_, err = e.Probability(99, 0)
	assert.True(t, errors.Is(err, ErrInvalidSequence))
}
