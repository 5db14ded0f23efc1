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

package vsearch

import (
	"os"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/wtsi-hgi/amplicon-automation/types"
)

// fileRunner pretends to be the external tool by writing canned output files
// instead of executing anything.
type fileRunner struct {
	files    map[string]string
	cmdlines []string
}

func (f *fileRunner) Run(cmdline string) error {
	f.cmdlines = append(f.cmdlines, cmdline)

	for path, content := range f.files {
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			return err
		}
	}

	return nil
}

func pooledReads() types.Collection {
	return types.Collection{
		{ID: "sample_a:1", Sample: "sample_a", Seq: "ACGTACGT"},
		{ID: "sample_a:2", Sample: "sample_a", Seq: "ACGTACGA"},
		{ID: "sample_b:1", Sample: "sample_b", Seq: "TTGGCCAA"},
	}
}

func TestCommands(t *testing.T) {
	Convey("UchimeCommand builds the expected command line", t, func() {
		cmdline := UchimeCommand("in.fasta", "chim.fasta", "good.fasta")
		So(cmdline, ShouldEqual,
			"vsearch --uchime3_denovo in.fasta --chimeras chim.fasta --nonchimeras good.fasta")
	})

	Convey("ClusterCommand includes the identity threshold and optional threads", t, func() {
		cmdline := ClusterCommand("in.fasta", "cent.fasta", "otus.tsv", 0.97, 0)
		So(cmdline, ShouldEqual,
			"vsearch --cluster_size in.fasta --id 0.97 --centroids cent.fasta --otutabout otus.tsv --sizeout")

		cmdline = ClusterCommand("in.fasta", "cent.fasta", "otus.tsv", 0.97, 8)
		So(cmdline, ShouldEndWith, " --threads 8")
	})
}

func TestDetector(t *testing.T) {
	Convey("Given a detector backed by a fake tool", t, func() {
		dir := t.TempDir()
		paths := workPaths{dir: dir}

		Convey("Flagged reads come from the chimeras output", func() {
			runner := &fileRunner{files: map[string]string{
				paths.chimeras():    ">sample_a:2\nACGTACGA\n",
				paths.nonChimeras(): ">sample_a:1\nACGTACGT\n>sample_b:1\nTTGGCCAA\n",
			}}

			flagged, err := NewDetector(dir, runner).Detect(pooledReads())
			So(err, ShouldBeNil)
			So(flagged, ShouldResemble, map[string]bool{"sample_a:2": true})
			So(runner.cmdlines, ShouldHaveLength, 1)
			So(runner.cmdlines[0], ShouldContainSubstring, "--uchime3_denovo")

			Convey("And the staged input FASTA held every read", func() {
				data, err := os.ReadFile(paths.input())
				So(err, ShouldBeNil)
				So(strings.Count(string(data), ">"), ShouldEqual, 3)
			})
		})

		Convey("Reads going missing between the two outputs is an error", func() {
			runner := &fileRunner{files: map[string]string{
				paths.chimeras():    ">sample_a:2\nACGTACGA\n",
				paths.nonChimeras(): ">sample_a:1\nACGTACGT\n",
			}}

			_, err := NewDetector(dir, runner).Detect(pooledReads())
			So(err, ShouldEqual, ErrChimeraCountMismatch)
		})
	})
}

func TestClusterer(t *testing.T) {
	Convey("Given a clusterer backed by a fake tool", t, func() {
		dir := t.TempDir()
		paths := workPaths{dir: dir}

		// sizeout annotates the centroid FASTA headers, but the abundance
		// table rows carry the plain read id
		runner := &fileRunner{files: map[string]string{
			paths.centroids(): ">sample_a:1;size=2\nACGTACGT\n" +
				">sample_b:1;size=1\nTTGGCCAA\n",
			paths.otuTable(): "#OTU ID\tsample_a\tsample_b\n" +
				"sample_a:1\t2\t0\n" +
				"sample_b:1\t0\t1\n",
		}}

		clusterer := NewClusterer(dir, runner, 4)

		table, err := clusterer.Cluster(pooledReads(), 0.97)
		So(err, ShouldBeNil)

		Convey("The abundance table reflects the tool's output", func() {
			So(table.NumOTUs(), ShouldEqual, 2)
			So(table.Samples(), ShouldResemble, []string{"sample_a", "sample_b"})
			So(table.Count("sample_a:1", "sample_a"), ShouldEqual, 2)
			So(table.Count("sample_a:1", "sample_b"), ShouldEqual, 0)
			So(table.Total(), ShouldEqual, 3)
		})

		Convey("Centroid ids are stripped of size annotations to match the table", func() {
			centroids := clusterer.Centroids()
			So(centroids.IDs(), ShouldResemble, []string{"sample_a:1", "sample_b:1"})
			So(centroids.IDs(), ShouldResemble, table.OTUs())
			So(centroids[0].Seq, ShouldEqual, "ACGTACGT")
		})

		Convey("The threshold and thread count made it onto the command line", func() {
			So(runner.cmdlines[0], ShouldContainSubstring, "--id 0.97")
			So(runner.cmdlines[0], ShouldContainSubstring, "--threads 4")
		})
	})
}

func TestParseOTUTable(t *testing.T) {
	Convey("ParseOTUTable strips centroid annotations from row ids", t, func() {
		table, err := ParseOTUTable(strings.NewReader(
			"#OTU ID\tsample_a\n" +
				"centroid=sample_a:1;seqs=2\t2\n"))
		So(err, ShouldBeNil)
		So(table.OTUs(), ShouldResemble, []string{"sample_a:1"})
	})

	Convey("ParseOTUTable rejects malformed tables", t, func() {
		for _, bad := range []string{
			"",
			"#OTU ID\n",
			"#OTU ID\tsample_a\notu1\t1\t2\n",
			"#OTU ID\tsample_a\notu1\tmany\n",
		} {
			_, err := ParseOTUTable(strings.NewReader(bad))
			So(err, ShouldEqual, ErrBadOTUTable)
		}
	})
}

func TestParseCentroidLabel(t *testing.T) {
	Convey("ParseCentroidLabel decodes annotated and plain labels", t, func() {
		read, size := ParseCentroidLabel("centroid=sample_a:12;seqs=34")
		So(read, ShouldEqual, "sample_a:12")
		So(size, ShouldEqual, 34)

		read, size = ParseCentroidLabel("sample_b:1;size=9")
		So(read, ShouldEqual, "sample_b:1")
		So(size, ShouldEqual, 9)

		read, size = ParseCentroidLabel("plain")
		So(read, ShouldEqual, "plain")
		So(size, ShouldEqual, 1)
	})
}
