package chunker

import (
	"encoding/json"
	"strings"
)

// SentenceResult is one tagged sentence of a text processing request.
type SentenceResult struct {
	Tokens    []string `json:"tokens"`
	POSTags   []string `json:"pos_tags"`
	ChunkTags []string `json:"chunk_tags"`
}

// TagText runs the full pipeline over plain text: one sentence per
// line, tokens separated by whitespace. Blank lines are skipped. The
// result is the JSON document stored and returned for the request.
func (ct *ChunkTagger) TagText(text string) (string, error) {
	var results []SentenceResult
	for _, line := range strings.Split(text, "\n") {
		tokens := strings.Fields(line)
		if len(tokens) == 0 {
			continue
		}
		posTags, err := ct.pos.Tag(tokens)
		if err != nil {
			return "", err
		}
		chunkTags, err := ct.chunk.Tag(posTags)
		if err != nil {
			return "", err
		}
		results = append(results, SentenceResult{
			Tokens:    tokens,
			POSTags:   posTags,
			ChunkTags: chunkTags,
		})
	}
	if results == nil {
		results = []SentenceResult{}
	}
	b, err := json.Marshal(results)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
