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
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/wtsi-hgi/amplicon-automation/types"
)

func TestPrimerFilter(t *testing.T) {
	fwd := "AGAGTTTGAT"
	rev := "CGGTTACCTT"
	insert := "CACACACACACACACACACA"

	one := func(seq string) types.Collection {
		return types.Collection{mkRead("r1", seq, 30)}
	}

	Convey("primerFilter trims a forward-orientation read to its insert", t, func() {
		out := primerFilter(one(fwd+insert+reverseComplement(rev)), fwd, rev, 0, 2)
		So(out.Count(), ShouldEqual, 1)
		So(out[0].Seq, ShouldEqual, insert)
		So(len(out[0].Qual), ShouldEqual, len(insert))
	})

	Convey("A read on the opposite strand is reoriented before trimming", t, func() {
		forward := fwd + insert + reverseComplement(rev)
		out := primerFilter(one(reverseComplement(forward)), fwd, rev, 0, 2)
		So(out.Count(), ShouldEqual, 1)
		So(out[0].Seq, ShouldEqual, insert)
	})

	Convey("A primer starting exactly maxDist bases in still matches", t, func() {
		out := primerFilter(one("GG"+fwd+insert+reverseComplement(rev)), fwd, rev, 0, 2)
		So(out.Count(), ShouldEqual, 1)
		So(out[0].Seq, ShouldEqual, insert)

		Convey("But one base further out does not", func() {
			out := primerFilter(one("GGG"+fwd+insert+reverseComplement(rev)), fwd, rev, 0, 2)
			So(out.Count(), ShouldEqual, 0)
		})
	})

	Convey("Mismatches up to the limit are tolerated", t, func() {
		mutated := "TGAGTTTGAT" // one mismatch against fwd

		out := primerFilter(one(mutated+insert+reverseComplement(rev)), fwd, rev, 1, 2)
		So(out.Count(), ShouldEqual, 1)

		Convey("But one mismatch over the limit is not", func() {
			out := primerFilter(one(mutated+insert+reverseComplement(rev)), fwd, rev, 0, 2)
			So(out.Count(), ShouldEqual, 0)
		})
	})

	Convey("A read missing its tail primer is discarded", t, func() {
		out := primerFilter(one(fwd+insert+strings.Repeat("G", 10)), fwd, rev, 0, 2)
		So(out.Count(), ShouldEqual, 0)
	})

	Convey("Back to back primers leave nothing and discard the read", t, func() {
		out := primerFilter(one(fwd+reverseComplement(rev)), fwd, rev, 0, 2)
		So(out.Count(), ShouldEqual, 0)
	})
}

func TestLengthFilter(t *testing.T) {
	Convey("lengthFilter bounds are inclusive and zero means unlimited", t, func() {
		c := types.Collection{
			mkRead("len5", strings.Repeat("A", 5), 30),
			mkRead("len10", strings.Repeat("A", 10), 30),
			mkRead("len20", strings.Repeat("A", 20), 30),
		}

		So(lengthFilter(c, 10, 20).IDs(), ShouldResemble, []string{"len10", "len20"})
		So(lengthFilter(c, 0, 10).IDs(), ShouldResemble, []string{"len5", "len10"})
		So(lengthFilter(c, 0, 0).Count(), ShouldEqual, 3)
		So(lengthFilter(c, 21, 0).Count(), ShouldEqual, 0)
	})
}

func TestPhredWindows(t *testing.T) {
	Convey("anyWindowBelow slides one base at a time", t, func() {
		good := []int{30, 30, 30, 30, 30, 30}
		So(anyWindowBelow(good, 3, 20), ShouldBeFalse)

		// the low run only drags a window mean under 20 once two low
		// scores fall in the same window
		dipped := []int{30, 30, 10, 10, 30, 30}
		So(anyWindowBelow(dipped, 3, 20), ShouldBeTrue)
		So(anyWindowBelow(dipped, 3, 16), ShouldBeFalse)
	})

	Convey("Partial windows at the read edges are judged on fewer bases", t, func() {
		leading := []int{5, 30, 30, 30, 30, 30}
		So(anyWindowBelow(leading, 3, 20), ShouldBeTrue)

		trailing := []int{30, 30, 30, 30, 30, 5}
		So(anyWindowBelow(trailing, 3, 20), ShouldBeTrue)
	})

	Convey("A read shorter than the window is judged as one whole window", t, func() {
		So(anyWindowBelow([]int{10, 30}, 5, 20), ShouldBeFalse)
		So(anyWindowBelow([]int{10, 10}, 5, 20), ShouldBeTrue)
		So(anyWindowBelow(nil, 5, 20), ShouldBeFalse)
	})
}

func TestReverseComplement(t *testing.T) {
	Convey("reverseComplement complements and reverses, passing N through", t, func() {
		So(reverseComplement("ACGT"), ShouldEqual, "ACGT")
		So(reverseComplement("AACN"), ShouldEqual, "NGTT")
	})

	Convey("reverseComplementSeq keeps qualities aligned with their bases", t, func() {
		s := types.Sequence{Seq: "AACG", Qual: []int{10, 20, 30, 40}}
		out := reverseComplementSeq(s)
		So(out.Seq, ShouldEqual, "CGTT")
		So(out.Qual, ShouldResemble, []int{40, 30, 20, 10})
	})
}
