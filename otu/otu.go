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

// package otu pools filtered per-sample reads and holds the operational
// taxonomic unit abundance table that clustering produces from them.

package otu

import (
	"github.com/wtsi-hgi/amplicon-automation/types"
)

type Error string

func (e Error) Error() string { return string(e) }

const (
	ErrCombineCountMismatch = Error("combined read count does not match the sum of the inputs")
	ErrUntaggedSequence     = Error("sequence has no sample name")
)

// Clusterer groups the pooled reads of a whole project into clusters of
// sequences at least `threshold` similar to their centroid, returning the
// per-sample abundance of each cluster.
type Clusterer interface {
	Cluster(pooled types.Collection, threshold float64) (*Table, error)
}

// Pool combines the filtered collections of every sample into one collection
// ready for clustering. Reads are renumbered "sampleName:N" so each read
// carries its sample of origin in its id, which is how the abundance table
// gets its sample columns.
//
// The combined count is checked against the sum of the inputs; a mismatch
// means reads were lost or duplicated on the way in.
func Pool(collections []types.Collection) (types.Collection, error) {
	want := 0
	for _, c := range collections {
		want += c.Count()
	}

	pooled := make(types.Collection, 0, want)

	for _, c := range collections {
		if c.Count() == 0 {
			continue
		}

		if c[0].Sample == "" {
			return nil, ErrUntaggedSequence
		}

		pooled = append(pooled, c.Renumber(c[0].Sample)...)
	}

	if pooled.Count() != want {
		return nil, ErrCombineCountMismatch
	}

	return pooled, nil
}
