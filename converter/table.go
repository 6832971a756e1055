package converter

import (
	"encoding/json"
	"fmt"
)

// Table maps surface symbols (word forms, tag names) to the dense
// integer IDs the hmm package computes with. A table grows while
// training data is read and is frozen before the first decode; frozen
// tables resolve unknown symbols to a designated fallback (the OOV
// sentinel for token tables) instead of growing.
type Table struct {
	index    map[string]int
	symbols  []string
	fallback int
	frozen   bool
}

func NewTable() *Table {
	return &Table{
		index:    make(map[string]int),
		fallback: -1,
	}
}

// ID returns the integer for symbol, assigning the next free ID when
// the symbol is new and the table is still growing. On a frozen table
// unknown symbols resolve to the fallback ID.
func (t *Table) ID(symbol string) int {
	if id, ok := t.index[symbol]; ok {
		return id
	}
	if t.frozen {
		return t.fallback
	}
	id := len(t.symbols)
	t.index[symbol] = id
	t.symbols = append(t.symbols, symbol)
	return id
}

func (t *Table) Lookup(symbol string) (int, bool) {
	id, ok := t.index[symbol]
	return id, ok
}

func (t *Table) Symbol(id int) (string, error) {
	if id < 0 || id >= len(t.symbols) {
		return "", fmt.Errorf("symbol id %d outside table of size %d", id, len(t.symbols))
	}
	return t.symbols[id], nil
}

func (t *Table) Len() int {
	return len(t.symbols)
}

func (t *Table) Frozen() bool {
	return t.frozen
}

func (t *Table) Fallback() int {
	return t.fallback
}

// Freeze stops the table from growing. fallback must already be in
// the table; pass the OOV sentinel for token tables. An empty
// fallback freezes without one, so unknown symbols resolve to -1.
func (t *Table) Freeze(fallback string) error {
	if t.frozen {
		return fmt.Errorf("table already frozen")
	}
	if fallback != "" {
		id, ok := t.index[fallback]
		if !ok {
			return fmt.Errorf("fallback symbol %q not in table", fallback)
		}
		t.fallback = id
	}
	t.frozen = true
	return nil
}

// Convert maps a slice of symbols through ID.
func (t *Table) Convert(symbols []string) []int {
	ids := make([]int, len(symbols))
	for i, s := range symbols {
		ids[i] = t.ID(s)
	}
	return ids
}

// Decode maps IDs back to symbols.
func (t *Table) Decode(ids []int) ([]string, error) {
	symbols := make([]string, len(ids))
	for i, id := range ids {
		s, err := t.Symbol(id)
		if err != nil {
			return nil, err
		}
		symbols[i] = s
	}
	return symbols, nil
}

type tableData struct {
	Symbols  []string `json:"symbols"`
	Fallback int      `json:"fallback"`
}

// MarshalJSON persists the symbol list and fallback; tables always
// load frozen since they only travel alongside trained models.
func (t *Table) MarshalJSON() ([]byte, error) {
	return json.Marshal(tableData{Symbols: t.symbols, Fallback: t.fallback})
}

func (t *Table) UnmarshalJSON(data []byte) error {
	var d tableData
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}
	if d.Fallback < -1 || d.Fallback >= len(d.Symbols) {
		return fmt.Errorf("fallback id %d outside table of size %d", d.Fallback, len(d.Symbols))
	}
	index := make(map[string]int, len(d.Symbols))
	for id, s := range d.Symbols {
		if _, ok := index[s]; ok {
			return fmt.Errorf("duplicate symbol %q in table", s)
		}
		index[s] = id
	}
	t.index = index
	t.symbols = d.Symbols
	t.fallback = d.Fallback
	t.frozen = true
	return nil
}
