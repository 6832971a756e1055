package conll

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"taglab.io/tagger/logger"
)

var conllLogger = logger.NewLogger("CoNLL")

// Column offsets of a universal-treebank CoNLL line after splitting
// on tabs.
const (
	colToken  = 1
	colPOS    = 3
	colChunk  = 5
	colHead   = 6
	colDeprel = 7

	minColumns = 8
)

// Entry is one token row of a CoNLL sentence.
type Entry struct {
	Token  string
	POS    string
	Chunk  string
	Head   int
	Deprel string
}

func parseLine(line string) (Entry, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < minColumns {
		return Entry{}, fmt.Errorf("line has %d columns, want at least %d", len(fields), minColumns)
	}
	head, err := strconv.Atoi(fields[colHead])
	if err != nil {
		return Entry{}, fmt.Errorf("head column %q: %w", fields[colHead], err)
	}
	return Entry{
		Token:  fields[colToken],
		POS:    fields[colPOS],
		Chunk:  fields[colChunk],
		Head:   head,
		Deprel: fields[colDeprel],
	}, nil
}

// Scanner yields sentences (blank-line delimited entry blocks) from a
// CoNLL stream. Treebank dumps carry the occasional broken row, so a
// sentence with a malformed line is dropped, not fatal.
type Scanner struct {
	scanner  *bufio.Scanner
	sentence []Entry
	err      error
	line     int
	skipped  int
}

func NewScanner(r io.Reader) *Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Scanner{scanner: scanner}
}

// Scan advances to the next non-empty well-formed sentence. A
// sentence containing a malformed line is skipped with a logged
// warning. Err reports stream errors only.
func (sc *Scanner) Scan() bool {
	if sc.err != nil {
		return false
	}
	sc.sentence = sc.sentence[:0]
	bad := false
	for sc.scanner.Scan() {
		sc.line++
		line := sc.scanner.Text()
		if strings.TrimSpace(line) == "" {
			if bad {
				bad = false
				sc.sentence = sc.sentence[:0]
				continue
			}
			if len(sc.sentence) > 0 {
				return true
			}
			continue
		}
		if bad {
			continue
		}
		entry, err := parseLine(line)
		if err != nil {
			conllLogger.Warn().Int("line", sc.line).Err(err).Msg("Skipping malformed sentence")
			sc.skipped++
			bad = true
			continue
		}
		sc.sentence = append(sc.sentence, entry)
	}
	sc.err = sc.scanner.Err()
	if bad {
		sc.sentence = sc.sentence[:0]
	}
	return len(sc.sentence) > 0
}

// Sentence returns the entries of the last successful Scan. The slice
// is reused by the next Scan call.
func (sc *Scanner) Sentence() []Entry {
	return sc.sentence
}

func (sc *Scanner) Err() error {
	return sc.err
}

// Skipped reports how many malformed sentences have been dropped so
// far.
func (sc *Scanner) Skipped() int {
	return sc.skipped
}

// ReadCorpus drains a CoNLL stream into one sentence slice per
// sentence.
func ReadCorpus(r io.Reader) ([][]Entry, error) {
	scanner := NewScanner(r)
	var corpus [][]Entry
	for scanner.Scan() {
		sentence := make([]Entry, len(scanner.Sentence()))
		copy(sentence, scanner.Sentence())
		corpus = append(corpus, sentence)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return corpus, nil
}
