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
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

const (
	ErrTooFewSamples       = Error("ordination needs at least two samples")
	ErrDecompositionFailed = Error("eigendecomposition of the distance matrix failed")

	defaultDimensions = 2
)

// Ordination places each sample at a point in a low-dimensional space such
// that between-point distances approximate the distance matrix, for plotting
// community differences.
type Ordination struct {
	Labels      []string
	Coordinates [][]float64
	Eigenvalues []float64
}

// Dimensions returns how many axes the ordination has.
func (o *Ordination) Dimensions() int {
	if len(o.Coordinates) == 0 {
		return 0
	}

	return len(o.Coordinates[0])
}

// PCoA computes a principal coordinates analysis of the distance matrix:
// the matrix is double-centred and eigendecomposed, and each sample's
// coordinates are the leading eigenvectors scaled by the square roots of
// their eigenvalues. Axes with non-positive eigenvalues carry no signal and
// come out as zeroes. Dimensions of zero means the usual two.
func PCoA(m *Matrix, dimensions int) (*Ordination, error) {
	n := m.Size()
	if n < 2 {
		return nil, ErrTooFewSamples
	}

	if dimensions <= 0 {
		dimensions = defaultDimensions
	}

	if dimensions > n {
		dimensions = n
	}

	var eig mat.EigenSym
	if !eig.Factorize(doubleCentred(m), true) {
		return nil, ErrDecompositionFailed
	}

	values := eig.Values(nil)

	var vectors mat.Dense

	eig.VectorsTo(&vectors)

	// eigenvalues come out ascending; we want the largest first
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}

	sort.Slice(order, func(i, j int) bool {
		return values[order[i]] > values[order[j]]
	})

	o := &Ordination{
		Labels:      m.Labels(),
		Coordinates: make([][]float64, n),
		Eigenvalues: make([]float64, dimensions),
	}

	for axis := 0; axis < dimensions; axis++ {
		o.Eigenvalues[axis] = values[order[axis]]
	}

	for i := 0; i < n; i++ {
		o.Coordinates[i] = make([]float64, dimensions)

		for axis := 0; axis < dimensions; axis++ {
			if lambda := values[order[axis]]; lambda > 0 {
				o.Coordinates[i][axis] = vectors.At(i, order[axis]) * math.Sqrt(lambda)
			}
		}
	}

	return o, nil
}

// doubleCentred converts squared distances into the Gower-centred inner
// product matrix whose eigenvectors are the principal coordinates.
func doubleCentred(m *Matrix) *mat.SymDense {
	n := m.Size()

	sq := make([][]float64, n)
	rowMeans := make([]float64, n)
	grand := 0.0

	for i := range sq {
		sq[i] = make([]float64, n)

		for j := 0; j < n; j++ {
			d := m.At(i, j)
			sq[i][j] = d * d
			rowMeans[i] += sq[i][j]
		}

		rowMeans[i] /= float64(n)
		grand += rowMeans[i]
	}

	grand /= float64(n)

	b := mat.NewSymDense(n, nil)

	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			b.SetSym(i, j, -0.5*(sq[i][j]-rowMeans[i]-rowMeans[j]+grand))
		}
	}

	return b
}
