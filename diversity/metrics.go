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

// package diversity computes between-sample (beta diversity) distance
// matrices from an OTU abundance table, and ordinations of those matrices.

package diversity

import (
	"math"

	"github.com/wtsi-hgi/amplicon-automation/otu"
)

type Error string

func (e Error) Error() string { return string(e) }

const (
	ErrMissingTree   = Error("a phylogenetic tree is required for UniFrac distances")
	ErrUnknownSample = Error("sample not present in distance matrix")

	// maxDistance is the sentinel for sample pairs with nothing in common,
	// including degenerate pairs where a sample has no reads at all.
	maxDistance = 1.0
)

// Matrix is a symmetric distance matrix over samples, zero on the diagonal.
type Matrix struct {
	labels []string
	index  map[string]int
	values [][]float64
}

func newMatrix(labels []string) *Matrix {
	m := &Matrix{
		labels: labels,
		index:  make(map[string]int, len(labels)),
		values: make([][]float64, len(labels)),
	}

	for i, label := range labels {
		m.index[label] = i
		m.values[i] = make([]float64, len(labels))
	}

	return m
}

func (m *Matrix) set(i, j int, d float64) {
	m.values[i][j] = d
	m.values[j][i] = d
}

// Labels returns the sample names in matrix order.
func (m *Matrix) Labels() []string {
	labels := make([]string, len(m.labels))
	copy(labels, m.labels)

	return labels
}

// At returns the distance between samples i and j of Labels().
func (m *Matrix) At(i, j int) float64 {
	return m.values[i][j]
}

// Distance returns the distance between two samples by name.
func (m *Matrix) Distance(sampleA, sampleB string) (float64, error) {
	a, okA := m.index[sampleA]
	b, okB := m.index[sampleB]

	if !okA || !okB {
		return 0, ErrUnknownSample
	}

	return m.values[a][b], nil
}

// Size returns the number of samples the matrix covers.
func (m *Matrix) Size() int {
	return len(m.labels)
}

// pairwise builds a matrix by applying the given distance function to every
// pair of sample abundance vectors.
func pairwise(t *otu.Table, distance func(x, y []float64) float64) *Matrix {
	samples := t.Samples()
	m := newMatrix(samples)

	vectors := make([][]float64, len(samples))
	for i, sample := range samples {
		vectors[i] = t.Vector(sample)
	}

	for i := range samples {
		for j := i + 1; j < len(samples); j++ {
			m.set(i, j, distance(vectors[i], vectors[j]))
		}
	}

	return m
}

// BrayCurtis returns the Bray-Curtis dissimilarity matrix: one minus twice
// the shared abundance over the total abundance of each pair. Pairs with no
// shared OTUs are at the maximum distance of 1.
func BrayCurtis(t *otu.Table) *Matrix {
	return pairwise(t, func(x, y []float64) float64 {
		var shared, total float64

		for i := range x {
			shared += math.Min(x[i], y[i])
			total += x[i] + y[i]
		}

		if total == 0 {
			return maxDistance
		}

		return 1 - 2*shared/total
	})
}

// Jaccard returns the binary Jaccard distance matrix: one minus the fraction
// of OTUs present in both samples out of those present in either.
func Jaccard(t *otu.Table) *Matrix {
	return pairwise(t, func(x, y []float64) float64 {
		var shared, union float64

		for i := range x {
			inX, inY := x[i] > 0, y[i] > 0

			if inX || inY {
				union++
			}

			if inX && inY {
				shared++
			}
		}

		if union == 0 {
			return maxDistance
		}

		return 1 - shared/union
	})
}

// Horn returns the Horn (Morisita-Horn) distance matrix, an abundance-based
// overlap measure insensitive to sample size. Pairs with no shared OTUs are
// at the maximum distance of 1.
func Horn(t *otu.Table) *Matrix {
	return pairwise(t, hornDistance)
}

func hornDistance(x, y []float64) float64 {
	var sumX, sumY, sumXY, sumX2, sumY2 float64

	for i := range x {
		sumX += x[i]
		sumY += y[i]
		sumXY += x[i] * y[i]
		sumX2 += x[i] * x[i]
		sumY2 += y[i] * y[i]
	}

	if sumX == 0 || sumY == 0 {
		return maxDistance
	}

	denominator := (sumX2/(sumX*sumX) + sumY2/(sumY*sumY)) * sumX * sumY
	if denominator == 0 {
		return maxDistance
	}

	return 1 - 2*sumXY/denominator
}
