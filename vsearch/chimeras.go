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
	"io"

	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/bio/seqio/fastx"
	"github.com/wtsi-hgi/amplicon-automation/fastq"
	"github.com/wtsi-hgi/amplicon-automation/types"
)

// Detector flags chimeric reads by running vsearch's uchime3 de-novo
// algorithm in a working directory.
type Detector struct {
	workDir string
	runner  Runner
}

// NewDetector returns a Detector that stages its input and output files under
// workDir. Pass a nil runner to shell out for real.
func NewDetector(workDir string, runner Runner) *Detector {
	if runner == nil {
		runner = ExecRunner{}
	}

	return &Detector{workDir: workDir, runner: runner}
}

// Detect writes the collection to FASTA, runs chimera detection on it, and
// returns the set of flagged read ids. Every input read must come back as
// either a chimera or a non-chimera; anything else means the tool mangled the
// input and is an error.
func (d *Detector) Detect(seqs types.Collection) (map[string]bool, error) {
	paths := workPaths{dir: d.workDir}

	if err := fastq.WriteFASTA(paths.input(), seqs); err != nil {
		return nil, err
	}

	if err := d.runner.Run(UchimeCommand(paths.input(), paths.chimeras(), paths.nonChimeras())); err != nil {
		return nil, err
	}

	flagged, err := readFastaIDs(paths.chimeras())
	if err != nil {
		return nil, err
	}

	kept, err := readFastaIDs(paths.nonChimeras())
	if err != nil {
		return nil, err
	}

	if len(flagged)+len(kept) != seqs.Count() {
		return nil, ErrChimeraCountMismatch
	}

	result := make(map[string]bool, len(flagged))
	for _, id := range flagged {
		result[id] = true
	}

	return result, nil
}

// readFastaIDs returns the sequence ids of a FASTA file in file order.
func readFastaIDs(path string) ([]string, error) {
	reader, err := fastx.NewReader(seq.DNAredundant, path, fastx.DefaultIDRegexp)
	if err != nil {
		return nil, err
	}

	defer reader.Close()

	var ids []string

	for {
		record, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}

			return nil, err
		}

		ids = append(ids, string(record.ID))
	}

	return ids, nil
}
