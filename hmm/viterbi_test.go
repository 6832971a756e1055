package hmm

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDecoderRequiresTrainedModel(t *testing.T) {
	model, err := NewModel(Vocab{NumLabels: 3, NumTokens: 4, Boundary: 0, OOVToken: -1})
	require.NoError(t, err)
	_, err = NewDecoder(model)
	assert.True(t, errors.Is(err, ErrNotTrained))
}

func TestDecodeEmptySequence(t *testing.T) {
	decoder, err := NewDecoder(dogRunsModel(t))
	require.NoError(t, err)

	labels, logProb, err := decoder.Decode(nil)
	require.NoError(t, err)
	assert.Empty(t, labels)
	assert.Zero(t, logProb)
}

func TestDecodeRejectsOutOfRangeToken(t *testing.T) {
	decoder, err := NewDecoder(dogRunsModel(t))
	require.NoError(t, err)

	_, _, err = decoder.Decode([]int{testDog, 17})
	assert.True(t, errors.Is(err, ErrInvalidSequence))
	_, _, err = decoder.Decode([]int{-1})
	assert.True(t, errors.Is(err, ErrInvalidSequence))
}

// "cat runs" with cat mapped to the OOV sentinel: the unseen word must
// decode through the emission floor and "runs", seen only after VERB,
// must pull position 1 to VERB.
func TestDecodeOOVSentence(t *testing.T) {
	decoder, err := NewDecoder(dogRunsModel(t))
	require.NoError(t, err)

	labels, logProb, err := decoder.Decode([]int{testOOV, testRuns})
	require.NoError(t, err)
	assert.Equal(t, []int{testNoun, testVerb}, labels)
	assert.False(t, math.IsInf(logProb, -1))
}

func TestDecodeDeterminism(t *testing.T) {
	decoder, err := NewDecoder(dogRunsModel(t))
	require.NoError(t, err)

	tokens := []int{testDog, testRuns, testOOV, testBarks, testDog}
	first, firstProb, err := decoder.Decode(tokens)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		labels, logProb, err := decoder.Decode(tokens)
		require.NoError(t, err)
		assert.Equal(t, first, labels)
		assert.Equal(t, firstProb, logProb)
	}
}

func TestDecodeLongSequenceStaysFinite(t *testing.T) {
	decoder, err := NewDecoder(dogRunsModel(t))
	require.NoError(t, err)

	// Long enough that linear-space products would underflow to zero.
	tokens := make([]int, 500)
	for i := range tokens {
		tokens[i] = i % 4
	}
	labels, logProb, err := decoder.Decode(tokens)
	require.NoError(t, err)
	assert.Len(t, labels, len(tokens))
	assert.False(t, math.IsInf(logProb, -1))
	assert.Less(t, logProb, 0.0)
}

func TestDecodeConcurrentSharedModel(t *testing.T) {
	decoder, err := NewDecoder(dogRunsModel(t))
	require.NoError(t, err)

	tokens := []int{testDog, testBarks, testOOV, testRuns}
	want, wantProb, err := decoder.Decode(tokens)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				labels, logProb, err := decoder.Decode(tokens)
				assert.NoError(t, err)
				assert.Equal(t, want, labels)
				assert.Equal(t, wantProb, logProb)
			}
		}()
	}
	wg.Wait()
}

// pathScore scores one full label path including both boundary terms,
// using only the public probability API.
func pathScore(t *testing.T, model *Model, tokens, labels []int) float64 {
	t.Helper()
	vocab := model.Vocab()
	score := 0.0
	prev := vocab.Boundary
	for i, label := range labels {
		tp, err := model.TransitionProb(prev, label)
		require.NoError(t, err)
		ep, err := model.EmissionProb(label, tokens[i])
		require.NoError(t, err)
		score += math.Log(tp) + math.Log(ep)
		prev = label
	}
	tp, err := model.TransitionProb(prev, vocab.Boundary)
	require.NoError(t, err)
	return score + math.Log(tp)
}

func TestViterbiMatchesExhaustiveSearch(t *testing.T) {
	// 3 real labels, 5 positions: 243 candidate paths.
	vocab := Vocab{NumLabels: 4, NumTokens: 5, Boundary: 0, OOVToken: 4}
	model, err := NewModel(vocab)
	require.NoError(t, err)
	require.NoError(t, model.Train([][]TaggedToken{
		{{Token: 0, Label: 1}, {Token: 1, Label: 2}, {Token: 2, Label: 3}},
		{{Token: 0, Label: 1}, {Token: 3, Label: 2}},
		{{Token: 1, Label: 2}, {Token: 2, Label: 3}, {Token: 3, Label: 2}},
		{{Token: 2, Label: 1}, {Token: 0, Label: 3}},
	}))
	decoder, err := NewDecoder(model)
	require.NoError(t, err)

	tokens := []int{0, 1, 4, 2, 3}
	got, gotProb, err := decoder.Decode(tokens)
	require.NoError(t, err)

	best := math.Inf(-1)
	labels := []int{1, 2, 3}
	path := make([]int, len(tokens))
	var walk func(pos int)
	walk = func(pos int) {
		if pos == len(tokens) {
			if score := pathScore(t, model, tokens, path); score > best {
				best = score
			}
			return
		}
		for _, label := range labels {
			path[pos] = label
			walk(pos + 1)
		}
	}
	walk(0)

	assert.InDelta(t, best, gotProb, 1e-9)
	assert.InDelta(t, pathScore(t, model, tokens, got), gotProb, 1e-9)
}
