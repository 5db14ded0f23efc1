/*******************************************************************************
 * Copyright (c) 2025 Genome Research Ltd.
 *
 * Authors:
 *	- Sendu Bala <sb10@sanger.ac.uk>
 *
 * Permission is hereby granted, free of charge, to any person obtaining
 * a copy of this software and associated documentation files (the
 * "Software"), to deal in the Software without restriction, including
 * without limitation the rights to use, copy, modify, merge, publish,
 * distribute, sublicense, and/or sell copies of the Software, and to
 * permit persons to whom the Software is furnished to do so, subject to
 * the following conditions:
 *
 * The above copyright notice and this permission notice shall be included
 * in all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
 * EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
 * MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.
 * IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY
 * CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION OF CONTRACT,
 * TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION WITH THE
 * SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
 ******************************************************************************/

package diversity

import (
	"strconv"
	"strings"

	"github.com/wtsi-hgi/amplicon-automation/otu"
)

const ErrBadNewick = Error("malformed newick tree")

// TreeNode is one node of a rooted phylogenetic tree. Leaves are named by OTU
// id; Length is the length of the branch leading to the node.
type TreeNode struct {
	Name     string
	Length   float64
	Children []*TreeNode
}

// IsLeaf reports whether the node has no children.
func (n *TreeNode) IsLeaf() bool {
	return len(n.Children) == 0
}

// Tree is a rooted phylogenetic tree over OTU centroids, as produced by a
// tree-building tool run on the centroid alignment.
type Tree struct {
	Root *TreeNode
}

// ParseNewick parses a tree in newick format, eg. "((a:0.1,b:0.2):0.3,c:0.4);".
// Branch lengths default to zero when absent.
func ParseNewick(s string) (*Tree, error) {
	p := &newickParser{input: strings.TrimSpace(s)}

	root, err := p.parseNode()
	if err != nil {
		return nil, err
	}

	if !p.consume(';') || p.pos != len(p.input) {
		return nil, ErrBadNewick
	}

	return &Tree{Root: root}, nil
}

type newickParser struct {
	input string
	pos   int
}

func (p *newickParser) peek() byte {
	if p.pos >= len(p.input) {
		return 0
	}

	return p.input[p.pos]
}

func (p *newickParser) consume(c byte) bool {
	if p.peek() != c {
		return false
	}

	p.pos++

	return true
}

func (p *newickParser) parseNode() (*TreeNode, error) {
	node := &TreeNode{}

	if p.consume('(') {
		for {
			child, err := p.parseNode()
			if err != nil {
				return nil, err
			}

			node.Children = append(node.Children, child)

			if p.consume(',') {
				continue
			}

			break
		}

		if !p.consume(')') {
			return nil, ErrBadNewick
		}
	}

	node.Name = p.parseLabel()

	if p.consume(':') {
		length, err := p.parseLength()
		if err != nil {
			return nil, err
		}

		node.Length = length
	}

	if node.IsLeaf() && node.Name == "" {
		return nil, ErrBadNewick
	}

	return node, nil
}

func (p *newickParser) parseLabel() string {
	start := p.pos

	for p.pos < len(p.input) && !strings.ContainsRune("(),:;", rune(p.input[p.pos])) {
		p.pos++
	}

	return p.input[start:p.pos]
}

func (p *newickParser) parseLength() (float64, error) {
	start := p.pos

	for p.pos < len(p.input) && !strings.ContainsRune("(),:;", rune(p.input[p.pos])) {
		p.pos++
	}

	length, err := strconv.ParseFloat(p.input[start:p.pos], 64)
	if err != nil {
		return 0, ErrBadNewick
	}

	return length, nil
}

// UniFrac returns the unweighted UniFrac distance matrix over the table's
// samples: for each pair, the fraction of branch length in the tree leading
// only to OTUs found in one of the two samples. OTUs absent from the tree
// simply contribute no branch length. A nil tree is an error, since the
// metric is meaningless without one.
func UniFrac(t *otu.Table, tree *Tree) (*Matrix, error) {
	if tree == nil || tree.Root == nil {
		return nil, ErrMissingTree
	}

	samples := t.Samples()
	m := newMatrix(samples)

	present := make([]map[string]bool, len(samples))

	for i, sample := range samples {
		present[i] = make(map[string]bool)

		for _, otuID := range t.OTUs() {
			if t.Count(otuID, sample) > 0 {
				present[i][otuID] = true
			}
		}
	}

	for i := range samples {
		for j := i + 1; j < len(samples); j++ {
			m.set(i, j, unifracPair(tree.Root, present[i], present[j]))
		}
	}

	return m, nil
}

func unifracPair(root *TreeNode, inA, inB map[string]bool) float64 {
	var unique, total float64

	walkBranches(root, inA, inB, &unique, &total)

	if total == 0 {
		return maxDistance
	}

	return unique / total
}

// walkBranches accumulates the branch lengths under node that lead to OTUs
// from either sample (total) and to OTUs of exactly one sample (unique),
// returning which samples the subtree contains.
func walkBranches(node *TreeNode, inA, inB map[string]bool, unique, total *float64) (bool, bool) {
	hasA, hasB := false, false

	if node.IsLeaf() {
		hasA, hasB = inA[node.Name], inB[node.Name]
	}

	for _, child := range node.Children {
		childA, childB := walkBranches(child, inA, inB, unique, total)
		hasA = hasA || childA
		hasB = hasB || childB
	}

	if hasA || hasB {
		*total += node.Length

		if hasA != hasB {
			*unique += node.Length
		}
	}

	return hasA, hasB
}
