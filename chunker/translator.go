package chunker

import (
	"fmt"
	"sort"

	"taglab.io/tagger/conll"
)

// Dependency classes that open a new phrase of the given chunk type.
var (
	npHeads = stringSet("nsubj", "nsubjpass", "iobj", "dobj", "nmod", "rel",
		"expl", "attr", "appos", "adpobj")
	vcHeads = stringSet("parataxis", "csubj", "csubjpass", "advcl", "rcmod",
		"ccomp", "adpcomp", "vmod", "cop", "partmod")
	infpHeads = stringSet("infmod", "xcomp")
	ppHeads   = stringSet("adpmod")
	apHeads   = stringSet("acomp", "amod")
	advpHeads = stringSet("advmod")
	ccHeads   = stringSet("cc")
)

// Chunk types a root node opens, by its POS tag. DET and '.' roots
// cover partitives ("some of ...") and '$ 100 million'; X roots are
// mostly interjections.
var rootPhraseTypes = map[string]string{
	"VERB": "VC",
	"NOUN": "NP",
	"ADP":  "PP",
	"PRON": "NP",
	"ADJ":  "AP",
	"ADV":  "ADVP",
	"NUM":  "ADVP",
	"PRT":  "VC",
	"CONJ": "CONJ",
	"DET":  "NP",
	".":    "NP",
	"X":    "ADVP",
}

func stringSet(items ...string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}

type phrase struct {
	typ     string
	members []int
}

// TranslateTree converts a dependency tree into one IOB2 chunk tag
// per token. Phrases are found breadth-first: a node whose dependency
// type heads a phrase class opens a new phrase, everything else joins
// its parent's. Discontinuous phrases become separate chunks, except
// that a single punctuation token does not split a phrase.
func TranslateTree(tree conll.Tree) ([]string, error) {
	size := tree.Len()
	deprel := make([]string, size+1)
	for i := 1; i <= size; i++ {
		deprel[i] = tree.Nodes[i].Deprel
	}
	phraseOf := make([]int, size+1)
	for i := range phraseOf {
		phraseOf[i] = -1
	}
	phrases := []*phrase{{typ: "O"}}

	open := func(node int, typ string) {
		phraseOf[node] = len(phrases)
		phrases = append(phrases, &phrase{typ: typ, members: []int{node}})
	}
	join := func(node, phraseIdx int) {
		phraseOf[node] = phraseIdx
		phrases[phraseIdx].members = append(phrases[phraseIdx].members, node)
	}

	queue := []int{tree.Root}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		parent := tree.Nodes[node].Parent
		dep := deprel[node]

		parentPhraseType := "ROOT"
		if node != tree.Root && phraseOf[parent] >= 0 {
			parentPhraseType = phrases[phraseOf[parent]].typ
		}

		switch {
		case npHeads[dep]:
			open(node, "NP")
		case vcHeads[dep]:
			open(node, "VC")
		case infpHeads[dep]:
			open(node, "INFP")
		case ppHeads[dep]:
			open(node, "PP")
		case ccHeads[dep]:
			open(node, "CONJ")
		case advpHeads[dep]:
			switch parentPhraseType {
			case "NP", "AP", "PP", "ADVP":
				join(node, phraseOf[parent])
			default:
				open(node, "ADVP")
			}
		case apHeads[dep]:
			switch parentPhraseType {
			case "NP", "AP", "PP":
				join(node, phraseOf[parent])
			default:
				open(node, "AP")
			}
		case dep == "p":
			join(node, 0)
		case dep == "conj":
			// A conjunct continues its parent's role, both for its own
			// phrase and for how its children classify it.
			deprel[node] = deprel[parent]
			join(node, phraseOf[parent])
		case dep == "mark":
			if deprel[parent] == "advcl" {
				open(node, "ADVP")
			} else {
				open(node, "SUBJ")
			}
		case dep == "ROOT":
			typ, ok := rootPhraseTypes[tree.Nodes[node].POS]
			if !ok {
				return nil, fmt.Errorf("no phrase type for root POS %q", tree.Nodes[node].POS)
			}
			open(node, typ)
		default:
			if phraseOf[parent] < 0 {
				return nil, fmt.Errorf("node %d processed before its parent %d", node, parent)
			}
			join(node, phraseOf[parent])
		}
		queue = append(queue, tree.Nodes[node].Children...)
	}

	tags := make([]string, size+1)
	for _, ph := range phrases {
		if ph.typ == "O" {
			for _, idx := range ph.members {
				tags[idx] = "O"
			}
			continue
		}
		members := append([]int(nil), ph.members...)
		sort.Ints(members)
		for i, idx := range members {
			switch {
			case i == 0:
				tags[idx] = "B-" + ph.typ
			case members[i-1] == idx-1:
				tags[idx] = "I-" + ph.typ
			case phraseOf[idx-1] == 0 && members[i-1] == idx-2:
				// Punctuation does not split a phrase.
				tags[idx-1] = "I-" + ph.typ
				tags[idx] = "I-" + ph.typ
			default:
				tags[idx] = "B-" + ph.typ
			}
		}
	}
	return tags[1:], nil
}
