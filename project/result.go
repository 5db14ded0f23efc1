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

package project

import (
	"github.com/wtsi-hgi/amplicon-automation/diversity"
	"github.com/wtsi-hgi/amplicon-automation/filter"
	"github.com/wtsi-hgi/amplicon-automation/otu"
	"github.com/wtsi-hgi/amplicon-automation/taxonomy"
	"github.com/wtsi-hgi/amplicon-automation/types"
)

const ErrUnknownSample = Error("no such sample in this project")

// compositionMinConfidence is the percent confidence below which an OTU's
// classification at a rank pools under Unassigned; the classifier has already
// truncated assignments at its own bootstrap cutoff, so everything it kept is
// trusted.
const compositionMinConfidence = 0

// Result is the read-only outcome of one project run: everything reporting
// needs, and nothing that can re-trigger computation. The aggregator hands
// ownership over once Run completes, so a Result never changes underneath a
// report.
type Result struct {
	runID   string
	project *types.Project
	samples []*filter.Result

	table       *otu.Table
	assignments map[string]taxonomy.Assignment

	compositions map[taxonomy.Rank]*taxonomy.Composition

	tree       *diversity.Tree
	brayCurtis *diversity.Matrix
	jaccard    *diversity.Matrix
	horn       *diversity.Matrix
	unifrac    *diversity.Matrix
	ordination *diversity.Ordination
}

func (r *Result) computeCompositions() error {
	r.compositions = make(map[taxonomy.Rank]*taxonomy.Composition)

	for _, rank := range taxonomy.Ranks() {
		r.compositions[rank] = taxonomy.Compose(r.table, r.assignments, rank,
			compositionMinConfidence)
	}

	return nil
}

func (r *Result) computeDiversity() {
	if len(r.table.Samples()) < minComparableSamples {
		return
	}

	r.brayCurtis = diversity.BrayCurtis(r.table)
	r.jaccard = diversity.Jaccard(r.table)
	r.horn = diversity.Horn(r.table)

	if r.tree != nil {
		if m, err := diversity.UniFrac(r.table, r.tree); err == nil {
			r.unifrac = m
		}
	}

	if o, err := diversity.PCoA(r.brayCurtis, 0); err == nil {
		r.ordination = o
	}
}

// RunID returns the unique id of the run that produced this result.
func (r *Result) RunID() string {
	return r.runID
}

// ProjectName returns the short name of the project.
func (r *Result) ProjectName() string {
	return r.project.ShortName
}

// SampleNames returns the project's sample names in input order, whether or
// not any reads survived for them.
func (r *Result) SampleNames() []string {
	return r.project.SampleNames()
}

// Sample returns the filtering result for the named sample.
func (r *Result) Sample(name string) (*filter.Result, error) {
	for _, s := range r.samples {
		if s.Sample == name {
			return s, nil
		}
	}

	return nil, ErrUnknownSample
}

// Samples returns every sample's filtering result, in project order.
func (r *Result) Samples() []*filter.Result {
	samples := make([]*filter.Result, len(r.samples))
	copy(samples, r.samples)

	return samples
}

// Table returns the OTU abundance table, after the minimum cluster size
// cutoff. Samples with no surviving reads have no column in it.
func (r *Result) Table() *otu.Table {
	return r.table
}

// Assignments returns the taxonomy assignment per OTU centroid id.
func (r *Result) Assignments() map[string]taxonomy.Assignment {
	assignments := make(map[string]taxonomy.Assignment, len(r.assignments))
	for id, a := range r.assignments {
		assignments[id] = a
	}

	return assignments
}

// Composition returns the taxon abundances aggregated at the given rank.
func (r *Result) Composition(rank taxonomy.Rank) (*taxonomy.Composition, error) {
	c, ok := r.compositions[rank]
	if !ok {
		return nil, taxonomy.ErrUnknownRank
	}

	return c, nil
}

// BrayCurtis returns the Bray-Curtis distance matrix over samples with
// reads, or an error when fewer than two samples had any.
func (r *Result) BrayCurtis() (*diversity.Matrix, error) {
	if r.brayCurtis == nil {
		return nil, ErrNoDistanceData
	}

	return r.brayCurtis, nil
}

// Jaccard returns the Jaccard distance matrix, or an error when fewer than
// two samples had reads.
func (r *Result) Jaccard() (*diversity.Matrix, error) {
	if r.jaccard == nil {
		return nil, ErrNoDistanceData
	}

	return r.jaccard, nil
}

// Horn returns the Horn distance matrix, or an error when fewer than two
// samples had reads.
func (r *Result) Horn() (*diversity.Matrix, error) {
	if r.horn == nil {
		return nil, ErrNoDistanceData
	}

	return r.horn, nil
}

// UniFrac returns the UniFrac distance matrix. Without a tree supplied to
// the run there is nothing to return, and the error says so.
func (r *Result) UniFrac() (*diversity.Matrix, error) {
	if r.tree == nil {
		return nil, diversity.ErrMissingTree
	}

	if r.unifrac == nil {
		return nil, ErrNoDistanceData
	}

	return r.unifrac, nil
}

// Ordination returns the PCoA ordination of the Bray-Curtis matrix, or an
// error when there was too little data to ordinate.
func (r *Result) Ordination() (*diversity.Ordination, error) {
	if r.ordination == nil {
		return nil, ErrNoDistanceData
	}

	return r.ordination, nil
}
