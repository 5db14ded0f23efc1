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

package taxonomy

import (
	"sort"

	"github.com/wtsi-hgi/amplicon-automation/otu"
)

// Composition is a taxon x sample abundance table at one rank: every OTU's
// counts pooled under its taxon at that rank, with unconfident and missing
// classifications pooled under Unassigned.
type Composition struct {
	rank    Rank
	samples []string
	taxa    []string
	counts  map[string]map[string]int

	classifiedOTUs int
	totalOTUs      int
}

// Compose aggregates the abundance table to the given rank. An OTU counts as
// classified when it has an assignment whose confidence at the rank is at
// least minConfidence percent; everything else pools under Unassigned.
//
// Taxa are ordered by descending total abundance, with Unassigned always
// last.
func Compose(table *otu.Table, assignments map[string]Assignment, rank Rank, minConfidence float64) *Composition {
	c := &Composition{
		rank:    rank,
		samples: table.Samples(),
		counts:  make(map[string]map[string]int),
	}

	for _, otuID := range table.OTUs() {
		c.totalOTUs++

		taxon := Unassigned

		if a, ok := assignments[otuID]; ok {
			if label, confidence := a.At(rank); label != Unassigned && confidence >= minConfidence {
				taxon = label
				c.classifiedOTUs++
			}
		}

		row := c.counts[taxon]
		if row == nil {
			row = make(map[string]int)
			c.counts[taxon] = row
		}

		for _, sample := range c.samples {
			row[sample] += table.Count(otuID, sample)
		}
	}

	c.sortTaxa()

	return c
}

func (c *Composition) sortTaxa() {
	c.taxa = c.taxa[:0]

	for taxon := range c.counts {
		if taxon != Unassigned {
			c.taxa = append(c.taxa, taxon)
		}
	}

	sort.Slice(c.taxa, func(i, j int) bool {
		ti, tj := c.Total(c.taxa[i]), c.Total(c.taxa[j])
		if ti != tj {
			return ti > tj
		}

		return c.taxa[i] < c.taxa[j]
	})

	if _, ok := c.counts[Unassigned]; ok {
		c.taxa = append(c.taxa, Unassigned)
	}
}

// Rank returns the rank the composition was aggregated at.
func (c *Composition) Rank() Rank {
	return c.rank
}

// Samples returns the sample names, in abundance table order.
func (c *Composition) Samples() []string {
	samples := make([]string, len(c.samples))
	copy(samples, c.samples)

	return samples
}

// Taxa returns the taxon labels by descending total abundance, Unassigned
// last when present.
func (c *Composition) Taxa() []string {
	taxa := make([]string, len(c.taxa))
	copy(taxa, c.taxa)

	return taxa
}

// Count returns the pooled abundance of the given taxon in the given sample.
func (c *Composition) Count(taxon, sample string) int {
	return c.counts[taxon][sample]
}

// Total returns the pooled abundance of the given taxon over all samples.
func (c *Composition) Total(taxon string) int {
	total := 0
	for _, count := range c.counts[taxon] {
		total += count
	}

	return total
}

// ClassifiedOTUs returns how many OTUs were confidently classified at this
// rank, alongside the total number of OTUs.
func (c *Composition) ClassifiedOTUs() (int, int) {
	return c.classifiedOTUs, c.totalOTUs
}
