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

// package taxonomy assigns taxonomic labels to OTUs and aggregates their
// abundances per taxonomic rank.

package taxonomy

import (
	"strings"

	"github.com/wtsi-hgi/amplicon-automation/types"
)

type Error string

func (e Error) Error() string { return string(e) }

const ErrUnknownRank = Error("unknown taxonomic rank")

// Unassigned is the pooled label for OTUs without a confident classification
// at a given rank.
const Unassigned = "Unassigned"

// Rank is one level of the taxonomic hierarchy, from Domain down to Species.
type Rank int

const (
	Domain Rank = iota
	Phylum
	Class
	Order
	Family
	Genus
	Species
)

var rankNames = []string{"Domain", "Phylum", "Class", "Order", "Family", "Genus", "Species"}

func (r Rank) String() string {
	if r < Domain || r > Species {
		return "unknown"
	}

	return rankNames[r]
}

// Ranks returns all ranks from Domain down to Species.
func Ranks() []Rank {
	return []Rank{Domain, Phylum, Class, Order, Family, Genus, Species}
}

// Assignment is the classification of one OTU: a label and a percent
// confidence per rank, from Domain downwards. Classifications can stop early
// when the classifier runs out of confidence; ranks beyond the end are
// unassigned.
type Assignment struct {
	Labels      []string
	Confidences []float64
}

// At returns the label and confidence at the given rank. Missing, empty and
// "unclassified" labels come back as Unassigned with zero confidence.
func (a Assignment) At(rank Rank) (string, float64) {
	i := int(rank)
	if i < 0 || i >= len(a.Labels) {
		return Unassigned, 0
	}

	label := a.Labels[i]
	if label == "" || strings.HasPrefix(strings.ToLower(label), "unclassified") {
		return Unassigned, 0
	}

	return label, a.Confidences[i]
}

// Depth returns how many ranks the assignment reaches.
func (a Assignment) Depth() int {
	return len(a.Labels)
}

// Classifier assigns taxonomy to OTU centroid sequences. The returned map is
// keyed by centroid id; centroids the classifier could place nowhere at all
// may be absent.
type Classifier interface {
	Classify(centroids types.Collection) (map[string]Assignment, error)
}
