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

package filter

import (
	"github.com/wtsi-hgi/amplicon-automation/types"
)

// primerFilter retains a read only when both primers are found: the first
// within maxDist bases (inclusive) of one end and the second within maxDist
// bases of the other, each with at most maxMM mismatching bases. Reads on the
// opposite strand are recognised via the primers' reverse complements and
// reoriented. The retained read is trimmed to the material between the two
// primers; reads where nothing remains are discarded.
func primerFilter(c types.Collection, fwd, rev string, maxMM, maxDist int) types.Collection {
	revRC := reverseComplement(rev)
	fwdRC := reverseComplement(fwd)

	return c.Replace(func(s types.Sequence) (types.Sequence, bool) {
		// Forward orientation: fwd primer near the start, reverse
		// complement of the rev primer near the end.
		if start, end, ok := primerSpan(s.Seq, fwd, revRC, maxMM, maxDist); ok {
			out := s.Subsequence(start, end)

			return out, out.Len() > 0
		}

		// Opposite strand: rev primer near the start, reverse complement
		// of the fwd primer near the end.
		if start, end, ok := primerSpan(s.Seq, rev, fwdRC, maxMM, maxDist); ok {
			out := reverseComplementSeq(s.Subsequence(start, end))

			return out, out.Len() > 0
		}

		return types.Sequence{}, false
	})
}

// primerSpan looks for head starting within maxDist of the sequence start
// and tail ending within maxDist of the sequence end. It returns the region
// strictly between the two primers.
func primerSpan(seq, head, tail string, maxMM, maxDist int) (int, int, bool) {
	headStart := matchNearStart(seq, head, maxMM, maxDist)
	if headStart < 0 {
		return 0, 0, false
	}

	tailStart := matchNearEnd(seq, tail, maxMM, maxDist)
	if tailStart < 0 || tailStart < headStart+len(head) {
		return 0, 0, false
	}

	return headStart + len(head), tailStart, true
}

// matchNearStart returns the first offset in [0, maxDist] at which primer
// matches seq with at most maxMM mismatches, or -1. The boundary offset is
// inclusive: a primer starting exactly maxDist bases in still counts.
func matchNearStart(seq, primer string, maxMM, maxDist int) int {
	for offset := 0; offset <= maxDist; offset++ {
		if matchesAt(seq, primer, offset, maxMM) {
			return offset
		}
	}

	return -1
}

// matchNearEnd returns the offset of a primer match whose end falls within
// maxDist bases (inclusive) of the end of seq, or -1. Offsets closest to the
// end are preferred.
func matchNearEnd(seq, primer string, maxMM, maxDist int) int {
	last := len(seq) - len(primer)

	for offset := last; offset >= last-maxDist; offset-- {
		if matchesAt(seq, primer, offset, maxMM) {
			return offset
		}
	}

	return -1
}

func matchesAt(seq, primer string, offset, maxMM int) bool {
	if offset < 0 || offset+len(primer) > len(seq) {
		return false
	}

	mm := 0

	for i := 0; i < len(primer); i++ {
		if seq[offset+i] != primer[i] {
			mm++
			if mm > maxMM {
				return false
			}
		}
	}

	return true
}

func reverseComplement(seq string) string {
	result := make([]byte, len(seq))

	for i, j := 0, len(seq)-1; j >= 0; i, j = i+1, j-1 {
		switch seq[j] {
		case 'A':
			result[i] = 'T'
		case 'T':
			result[i] = 'A'
		case 'G':
			result[i] = 'C'
		case 'C':
			result[i] = 'G'
		default:
			result[i] = seq[j]
		}
	}

	return string(result)
}

// reverseComplementSeq reorients a whole sequence, reversing its quality
// scores to keep them aligned with the bases.
func reverseComplementSeq(s types.Sequence) types.Sequence {
	s.Seq = reverseComplement(s.Seq)

	if s.Qual != nil {
		qual := make([]int, len(s.Qual))

		for i, j := 0, len(s.Qual)-1; j >= 0; i, j = i+1, j-1 {
			qual[i] = s.Qual[j]
		}

		s.Qual = qual
	}

	return s
}

// nBaseFilter discards any read containing at least one undetermined base.
// There is no partial trimming.
func nBaseFilter(c types.Collection) types.Collection {
	return c.Filter(func(s types.Sequence) bool {
		return !s.HasN()
	})
}

// lengthFilter retains reads within the inclusive [min, max] length bounds.
// A zero bound is unlimited.
func lengthFilter(c types.Collection, min, max int) types.Collection {
	return c.Filter(func(s types.Sequence) bool {
		if min > 0 && s.Len() < min {
			return false
		}

		if max > 0 && s.Len() > max {
			return false
		}

		return true
	})
}

// phredFilter discards a read if the mean quality of any rolling window
// falls below threshold. The window slides by one base; partial windows at
// both edges of the read are averaged over only the bases available. A read
// shorter than the window is judged on a single whole-read window.
func phredFilter(c types.Collection, window int, threshold float64) types.Collection {
	return c.Filter(func(s types.Sequence) bool {
		return !anyWindowBelow(s.Qual, window, threshold)
	})
}

func anyWindowBelow(qual []int, window int, threshold float64) bool {
	n := len(qual)
	if n == 0 {
		return false
	}

	prefix := make([]int, n+1)
	for i, q := range qual {
		prefix[i+1] = prefix[i] + q
	}

	mean := func(lo, hi int) float64 {
		return float64(prefix[hi]-prefix[lo]) / float64(hi-lo)
	}

	if n <= window {
		return mean(0, n) < threshold
	}

	// Leading partial windows.
	for hi := 1; hi < window; hi++ {
		if mean(0, hi) < threshold {
			return true
		}
	}

	// Full windows.
	for lo := 0; lo+window <= n; lo++ {
		if mean(lo, lo+window) < threshold {
			return true
		}
	}

	// Trailing partial windows.
	for lo := n - window + 1; lo < n; lo++ {
		if mean(lo, n) < threshold {
			return true
		}
	}

	return false
}
