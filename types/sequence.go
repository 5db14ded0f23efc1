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

package types

import (
	"strconv"
	"strings"
)

type Error string

func (e Error) Error() string { return string(e) }

const ErrQualLengthMismatch = Error("sequence and quality score lengths differ")

// Sequence is a single long read with its per-base PHRED quality scores and a
// record of which sample it came from. Sequences are never mutated by the
// pipeline; filtering stages replace them with new (possibly shorter) values.
type Sequence struct {
	ID     string
	Sample string
	Seq    string
	Qual   []int
}

// Len returns the number of bases in the sequence.
func (s Sequence) Len() int {
	return len(s.Seq)
}

// Validate checks that the quality scores line up with the bases.
func (s Sequence) Validate() error {
	if len(s.Qual) != len(s.Seq) {
		return ErrQualLengthMismatch
	}

	return nil
}

// HasN reports whether the sequence contains at least one undetermined base.
func (s Sequence) HasN() bool {
	return strings.ContainsAny(s.Seq, "Nn")
}

// MeanQuality returns the mean PHRED score over all bases, or 0 for an empty
// sequence.
func (s Sequence) MeanQuality() float64 {
	if len(s.Qual) == 0 {
		return 0
	}

	total := 0
	for _, q := range s.Qual {
		total += q
	}

	return float64(total) / float64(len(s.Qual))
}

// Subsequence returns a copy of the sequence covering bases [start, end),
// with the matching quality scores. Out of range positions are clamped.
func (s Sequence) Subsequence(start, end int) Sequence {
	if start < 0 {
		start = 0
	}

	if end > len(s.Seq) {
		end = len(s.Seq)
	}

	if start > end {
		start = end
	}

	sub := s
	sub.Seq = s.Seq[start:end]

	if s.Qual != nil {
		qual := make([]int, end-start)
		copy(qual, s.Qual[start:end])
		sub.Qual = qual
	}

	return sub
}

// Collection is an ordered set of sequences. Within one sample pipeline its
// count only ever decreases: stages remove sequences or replace them with
// trimmed versions, they never invent new ones.
type Collection []Sequence

// Count returns the number of sequences in the collection.
func (c Collection) Count() int {
	return len(c)
}

// IDs returns the sequence ids in collection order.
func (c Collection) IDs() []string {
	ids := make([]string, len(c))

	for i, s := range c {
		ids[i] = s.ID
	}

	return ids
}

// Filter returns a new collection containing only the sequences for which
// keep returns true, preserving order.
func (c Collection) Filter(keep func(Sequence) bool) Collection {
	result := make(Collection, 0, len(c))

	for _, s := range c {
		if keep(s) {
			result = append(result, s)
		}
	}

	return result
}

// Replace returns a new collection where each sequence is replaced by the
// value f returns for it, or dropped when f's second return is false. Order
// is preserved, so the result is never longer than the input.
func (c Collection) Replace(f func(Sequence) (Sequence, bool)) Collection {
	result := make(Collection, 0, len(c))

	for _, s := range c {
		if replacement, ok := f(s); ok {
			result = append(result, replacement)
		}
	}

	return result
}

// Renumber returns a copy of the collection with sequence ids replaced by
// "prefix:N" for N starting at 1, so that provenance survives pooling with
// other samples.
func (c Collection) Renumber(prefix string) Collection {
	result := make(Collection, len(c))

	for i, s := range c {
		s.ID = prefix + ":" + strconv.Itoa(i+1)
		result[i] = s
	}

	return result
}
