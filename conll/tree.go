package conll

import "fmt"

// Node is one token of a dependency tree. Nodes reference each other
// by index into the owning Tree's arena, never by pointer.
type Node struct {
	Parent   int
	Deprel   string
	POS      string
	Children []int
}

// Tree is a dependency tree stored as an arena of nodes. Index 0 is a
// placeholder so node indexes match the 1-based CoNLL token numbers;
// Root holds the index of the head of the sentence.
type Tree struct {
	Nodes []Node
	Root  int
}

func (t Tree) Len() int {
	return len(t.Nodes) - 1
}

// TreeFromSentence builds the dependency tree of one sentence and
// verifies that every node is reachable from the root. Disconnected
// or multi-rooted sentences are reported as errors so callers can
// skip them.
func TreeFromSentence(sentence []Entry) (Tree, error) {
	tree := Tree{Nodes: make([]Node, len(sentence)+1)}
	for i, entry := range sentence {
		if entry.Head < 0 || entry.Head > len(sentence) {
			return Tree{}, fmt.Errorf("node %d: head %d outside sentence of %d tokens", i+1, entry.Head, len(sentence))
		}
		tree.Nodes[i+1] = Node{
			Parent: entry.Head,
			Deprel: entry.Deprel,
			POS:    entry.POS,
		}
	}
	for i := 1; i < len(tree.Nodes); i++ {
		parent := tree.Nodes[i].Parent
		if parent == 0 {
			if tree.Root != 0 {
				return Tree{}, fmt.Errorf("nodes %d and %d both claim the root", tree.Root, i)
			}
			tree.Root = i
			continue
		}
		tree.Nodes[parent].Children = append(tree.Nodes[parent].Children, i)
	}
	if tree.Root == 0 {
		return Tree{}, fmt.Errorf("sentence has no root node")
	}

	reached := 0
	queue := []int{tree.Root}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		reached++
		queue = append(queue, tree.Nodes[node].Children...)
	}
	if reached != tree.Len() {
		return Tree{}, fmt.Errorf("tree reaches %d of %d nodes", reached, tree.Len())
	}
	return tree, nil
}
