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

package fastq

import (
	"github.com/wtsi-hgi/amplicon-automation/types"
)

// Stats summarises a collection for quality reporting: how many reads and
// bases it holds, the mean PHRED score over all bases, the read length range,
// and the mean PHRED score at each base position across reads (reads shorter
// than a position simply don't contribute to it).
type Stats struct {
	Reads       int
	Bases       int
	MinLength   int
	MaxLength   int
	MeanPhred   float64
	PerPosition []float64
}

// Summarise computes Stats for the given collection.
func Summarise(c types.Collection) Stats {
	var st Stats

	st.Reads = c.Count()

	var (
		qualSum  int
		posSums  []int
		posReads []int
	)

	for _, s := range c {
		n := s.Len()
		st.Bases += n

		if st.MinLength == 0 || n < st.MinLength {
			st.MinLength = n
		}

		if n > st.MaxLength {
			st.MaxLength = n
		}

		for len(posSums) < len(s.Qual) {
			posSums = append(posSums, 0)
			posReads = append(posReads, 0)
		}

		for i, q := range s.Qual {
			qualSum += q
			posSums[i] += q
			posReads[i]++
		}
	}

	if st.Bases > 0 {
		st.MeanPhred = float64(qualSum) / float64(st.Bases)
	}

	st.PerPosition = make([]float64, len(posSums))
	for i := range posSums {
		st.PerPosition[i] = float64(posSums[i]) / float64(posReads[i])
	}

	return st
}
