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
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/bio/seqio/fastx"
	"github.com/wtsi-hgi/amplicon-automation/fastq"
	"github.com/wtsi-hgi/amplicon-automation/otu"
	"github.com/wtsi-hgi/amplicon-automation/types"
)

// Clusterer clusters pooled reads into OTUs by running vsearch's cluster_size
// algorithm in a working directory. It satisfies the project's clustering
// interface.
type Clusterer struct {
	workDir   string
	runner    Runner
	threads   int
	centroids types.Collection
}

// NewClusterer returns a Clusterer that stages its input and output files
// under workDir. Pass a nil runner to shell out for real. Threads of zero
// lets the tool pick.
func NewClusterer(workDir string, runner Runner, threads int) *Clusterer {
	if runner == nil {
		runner = ExecRunner{}
	}

	return &Clusterer{workDir: workDir, runner: runner, threads: threads}
}

// Cluster writes the pooled collection to FASTA, clusters it at the given
// identity threshold, and parses the resulting abundance table. The cluster
// centroid sequences are retained for Centroids().
//
// Reads must be named "sampleName:N" (see the pooling step), which is how the
// tool knows which sample each read belongs to when tabulating.
func (c *Clusterer) Cluster(pooled types.Collection, threshold float64) (*otu.Table, error) {
	paths := workPaths{dir: c.workDir}

	if err := fastq.WriteFASTA(paths.input(), pooled); err != nil {
		return nil, err
	}

	cmdline := ClusterCommand(paths.input(), paths.centroids(), paths.otuTable(), threshold, c.threads)
	if err := c.runner.Run(cmdline); err != nil {
		return nil, err
	}

	centroids, err := loadFasta(paths.centroids())
	if err != nil {
		return nil, err
	}

	// sizeout annotates centroid headers ("sample_a:1;size=3") but not the
	// abundance table rows; strip the annotations so the ids join up.
	for i := range centroids {
		centroids[i].ID, _ = ParseCentroidLabel(centroids[i].ID)
	}

	c.centroids = centroids

	f, err := os.Open(paths.otuTable())
	if err != nil {
		return nil, err
	}

	defer f.Close()

	return ParseOTUTable(f)
}

// Centroids returns the centroid sequence of each OTU from the last Cluster
// call, in the tool's output order. Centroid ids match the row ids of the
// abundance table.
func (c *Clusterer) Centroids() types.Collection {
	return c.centroids
}

// ParseOTUTable parses the tab-separated abundance table the clustering tool
// writes: a header line of sample names and one row per OTU, cells holding
// read counts. Zero cells are skipped, keeping the table sparse. Row ids are
// stripped of any centroid/size annotations, matching Centroids().
func ParseOTUTable(r io.Reader) (*otu.Table, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)

	if !scanner.Scan() {
		return nil, ErrBadOTUTable
	}

	header := strings.Split(scanner.Text(), "\t")
	if len(header) < 2 {
		return nil, ErrBadOTUTable
	}

	samples := header[1:]
	table := otu.NewTable()

	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), "\t")
		if len(fields) != len(header) {
			return nil, ErrBadOTUTable
		}

		id, _ := ParseCentroidLabel(fields[0])

		for i, cell := range fields[1:] {
			count, err := strconv.Atoi(cell)
			if err != nil {
				return nil, ErrBadOTUTable
			}

			table.Add(id, samples[i], count)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return table, nil
}

// ParseCentroidLabel decodes an OTU id of the form
// "centroid=sample_a:12;seqs=34" into the originating read id and the
// cluster size. Labels without annotations come back unchanged with size 1.
func ParseCentroidLabel(label string) (string, int) {
	parts := strings.Split(label, ";")
	readID := parts[0]
	size := 1

	for _, part := range parts {
		switch {
		case strings.HasPrefix(part, "centroid="):
			readID = strings.TrimPrefix(part, "centroid=")
		case strings.HasPrefix(part, "seqs="):
			if n, err := strconv.Atoi(strings.TrimPrefix(part, "seqs=")); err == nil {
				size = n
			}
		case strings.HasPrefix(part, "size="):
			if n, err := strconv.Atoi(strings.TrimPrefix(part, "size=")); err == nil {
				size = n
			}
		}
	}

	return readID, size
}

// loadFasta reads a FASTA file into a collection with no quality scores.
func loadFasta(path string) (types.Collection, error) {
	reader, err := fastx.NewReader(seq.DNAredundant, path, fastx.DefaultIDRegexp)
	if err != nil {
		return nil, err
	}

	defer reader.Close()

	var c types.Collection

	for {
		record, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}

			return nil, err
		}

		c = append(c, types.Sequence{
			ID:  string(record.ID),
			Seq: string(record.Seq.Seq),
		})
	}

	return c, nil
}
