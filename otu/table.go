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

package otu

import (
	"github.com/willf/bitset"
)

// Table is a sparse OTU x sample abundance table. OTUs and samples are
// interned to small integer handles on first encounter, and counts are stored
// per OTU as a sparse map over sample handles, so a table of thousands of
// OTUs over many samples stays cheap when most cells are zero.
//
// Iteration orders are first-encounter orders, which for clustering output
// means descending cluster size.
type Table struct {
	otuIndex    map[string]int
	otuIDs      []string
	sampleIndex map[string]int
	samples     []string

	counts   []map[int]int
	presence []*bitset.BitSet
	rowSums  []int
}

// NewTable returns an empty abundance table.
func NewTable() *Table {
	return &Table{
		otuIndex:    make(map[string]int),
		sampleIndex: make(map[string]int),
	}
}

func (t *Table) otuHandle(id string) int {
	if h, ok := t.otuIndex[id]; ok {
		return h
	}

	h := len(t.otuIDs)
	t.otuIndex[id] = h
	t.otuIDs = append(t.otuIDs, id)
	t.counts = append(t.counts, make(map[int]int))
	t.presence = append(t.presence, bitset.New(uint(len(t.samples)+1)))
	t.rowSums = append(t.rowSums, 0)

	return h
}

func (t *Table) sampleHandle(name string) int {
	if h, ok := t.sampleIndex[name]; ok {
		return h
	}

	h := len(t.samples)
	t.sampleIndex[name] = h
	t.samples = append(t.samples, name)

	return h
}

// Add adds count reads of the given OTU for the given sample, creating the
// row and column on first sight. Zero or negative counts are ignored, so
// sparse input never creates explicit zero cells.
func (t *Table) Add(otuID, sample string, count int) {
	if count <= 0 {
		return
	}

	o := t.otuHandle(otuID)
	s := t.sampleHandle(sample)

	t.counts[o][s] += count
	t.presence[o].Set(uint(s))
	t.rowSums[o] += count
}

// Count returns the abundance of the given OTU in the given sample, zero when
// either is unknown.
func (t *Table) Count(otuID, sample string) int {
	o, ok := t.otuIndex[otuID]
	if !ok {
		return 0
	}

	s, ok := t.sampleIndex[sample]
	if !ok {
		return 0
	}

	return t.counts[o][s]
}

// OTUs returns the OTU ids in first-encounter order.
func (t *Table) OTUs() []string {
	ids := make([]string, len(t.otuIDs))
	copy(ids, t.otuIDs)

	return ids
}

// Samples returns the sample names in first-encounter order.
func (t *Table) Samples() []string {
	samples := make([]string, len(t.samples))
	copy(samples, t.samples)

	return samples
}

// Abundance returns the total count of the given OTU across all samples.
func (t *Table) Abundance(otuID string) int {
	o, ok := t.otuIndex[otuID]
	if !ok {
		return 0
	}

	return t.rowSums[o]
}

// SampleTotal returns the total count of all OTUs in the given sample.
func (t *Table) SampleTotal(sample string) int {
	s, ok := t.sampleIndex[sample]
	if !ok {
		return 0
	}

	total := 0
	for _, row := range t.counts {
		total += row[s]
	}

	return total
}

// SampleCount returns how many samples the given OTU appears in with a
// non-zero count.
func (t *Table) SampleCount(otuID string) int {
	o, ok := t.otuIndex[otuID]
	if !ok {
		return 0
	}

	return int(t.presence[o].Count())
}

// SharedOTUs returns how many OTUs have non-zero counts in both given
// samples.
func (t *Table) SharedOTUs(sampleA, sampleB string) int {
	a, okA := t.sampleIndex[sampleA]
	b, okB := t.sampleIndex[sampleB]

	if !okA || !okB {
		return 0
	}

	shared := 0

	for _, p := range t.presence {
		if p.Test(uint(a)) && p.Test(uint(b)) {
			shared++
		}
	}

	return shared
}

// Vector returns the given sample's abundances over the table's OTU order,
// with explicit zeroes for absent OTUs. This is the per-sample view the
// diversity metrics consume.
func (t *Table) Vector(sample string) []float64 {
	v := make([]float64, len(t.otuIDs))

	s, ok := t.sampleIndex[sample]
	if !ok {
		return v
	}

	for o, row := range t.counts {
		v[o] = float64(row[s])
	}

	return v
}

// ApplyMinSize returns a new table containing only the OTUs whose total
// abundance is at least min, preserving OTU order. Sample columns are kept
// even when every surviving count for them is zero, so sample sets stay
// comparable before and after the cutoff.
func (t *Table) ApplyMinSize(min int) *Table {
	out := NewTable()

	for _, sample := range t.samples {
		out.sampleHandle(sample)
	}

	for o, id := range t.otuIDs {
		if t.rowSums[o] < min {
			continue
		}

		for s, count := range t.counts[o] {
			out.Add(id, t.samples[s], count)
		}
	}

	return out
}

// NumOTUs returns how many OTUs the table holds.
func (t *Table) NumOTUs() int {
	return len(t.otuIDs)
}

// Total returns the grand total of all counts in the table.
func (t *Table) Total() int {
	total := 0
	for _, sum := range t.rowSums {
		total += sum
	}

	return total
}
