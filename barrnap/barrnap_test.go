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

package barrnap

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/wtsi-hgi/amplicon-automation/filter"
	"github.com/wtsi-hgi/amplicon-automation/types"
)

const exampleGFF = `##gff-version 3
read1	barrnap:0.9	rRNA	101	1600	0	+	.	Name=16S_rRNA;product=16S ribosomal RNA
read1	barrnap:0.9	rRNA	1701	4500	0	+	.	Name=23S_rRNA;product=23S ribosomal RNA
read2	barrnap:0.9	rRNA	1	1500	1.2e-100	-	.	Name=16S_rRNA;product=16S ribosomal RNA
read3	barrnap:0.9	rRNA	10	120	0	+	.	Name=5S_rRNA;product=5S ribosomal RNA
`

func TestCommand(t *testing.T) {
	Convey("Command builds the expected command line", t, func() {
		So(Command("in.fasta", "out.gff", 0), ShouldEqual,
			"barrnap --kingdom bac in.fasta > out.gff")
		So(Command("in.fasta", "out.gff", 8), ShouldEqual,
			"barrnap --kingdom bac --threads 8 in.fasta > out.gff")
	})
}

func TestParseGFF(t *testing.T) {
	Convey("ParseGFF converts 1-based hits to half-open spans per read", t, func() {
		hits, err := ParseGFF(strings.NewReader(exampleGFF))
		So(err, ShouldBeNil)
		So(hits, ShouldHaveLength, 2)

		So(hits["read1"].RRNA16S, ShouldResemble, &filter.Span{Start: 100, End: 1600})
		So(hits["read1"].RRNA23S, ShouldResemble, &filter.Span{Start: 1700, End: 4500})

		So(hits["read2"].RRNA16S, ShouldResemble, &filter.Span{Start: 0, End: 1500})
		So(hits["read2"].RRNA23S, ShouldBeNil)

		// read3 only had a 5S hit, which we don't care about
		_, found := hits["read3"]
		So(found, ShouldBeFalse)
	})

	Convey("The first hit wins when a read has several for the same gene", t, func() {
		gff := "read1\tbarrnap:0.9\trRNA\t11\t20\t0\t+\t.\tName=16S_rRNA\n" +
			"read1\tbarrnap:0.9\trRNA\t31\t40\t0\t+\t.\tName=16S_rRNA\n"

		hits, err := ParseGFF(strings.NewReader(gff))
		So(err, ShouldBeNil)
		So(hits["read1"].RRNA16S, ShouldResemble, &filter.Span{Start: 10, End: 20})
	})

	Convey("Malformed lines are rejected", t, func() {
		for _, bad := range []string{
			"read1\tonly\tthree",
			"read1\tx\trRNA\tten\t20\t0\t+\t.\tName=16S_rRNA",
			"read1\tx\trRNA\t0\t20\t0\t+\t.\tName=16S_rRNA",
			"read1\tx\trRNA\t30\t20\t0\t+\t.\tName=16S_rRNA",
		} {
			_, err := ParseGFF(strings.NewReader(bad + "\n"))
			So(err, ShouldEqual, ErrBadGFF)
		}
	})
}

func TestLocator(t *testing.T) {
	Convey("Locate stages input, runs the tool and parses its GFF", t, func() {
		dir := t.TempDir()
		gffPath := filepath.Join(dir, gffName)

		runner := runnerFunc(func(cmdline string) error {
			So(cmdline, ShouldContainSubstring, "--kingdom bac")

			return os.WriteFile(gffPath, []byte(exampleGFF), 0600)
		})

		seqs := types.Collection{
			{ID: "read1", Seq: strings.Repeat("A", 50)},
			{ID: "read2", Seq: strings.Repeat("C", 50)},
		}

		hits, err := NewLocator(dir, runner, 2).Locate(seqs)
		So(err, ShouldBeNil)
		So(hits, ShouldHaveLength, 2)

		data, err := os.ReadFile(filepath.Join(dir, inputFastaName))
		So(err, ShouldBeNil)
		So(strings.Count(string(data), ">"), ShouldEqual, 2)
	})
}

type runnerFunc func(string) error

func (f runnerFunc) Run(cmdline string) error {
	return f(cmdline)
}
