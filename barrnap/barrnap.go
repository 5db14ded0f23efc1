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

// package barrnap lets you use the barrnap tool to locate ribosomal RNA
// genes within reads, for the gene extraction filtering stage.

package barrnap

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/wtsi-hgi/amplicon-automation/fastq"
	"github.com/wtsi-hgi/amplicon-automation/filter"
	"github.com/wtsi-hgi/amplicon-automation/types"
)

type Error string

func (e Error) Error() string { return string(e) }

const (
	ErrBadGFF = Error("malformed GFF3 line")

	barrnapExe = "barrnap"

	inputFastaName = "genes_input.fasta"
	gffName        = "genes.gff"

	gffColumns  = 9
	name16S     = "16S_rRNA"
	name23S     = "23S_rRNA"
	commentChar = "#"
)

// Runner executes a prepared command line. The default implementation shells
// out; tests substitute one that fabricates the tool's output files.
type Runner interface {
	Run(cmdline string) error
}

// ExecRunner runs command lines via the shell.
type ExecRunner struct{}

// Run executes the given command line, returning any error along with the
// tool's combined output.
func (ExecRunner) Run(cmdline string) error {
	cmd := exec.Command("sh", "-c", cmdline)

	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", cmdline, err, out)
	}

	return nil
}

// Command returns a command line for barrnap that will scan the input FASTA
// for bacterial ribosomal RNA genes, writing GFF3 to the given path. Threads
// of zero lets the tool pick.
func Command(inputFasta, gffPath string, threads int) string {
	cmdline := fmt.Sprintf("%s --kingdom bac", barrnapExe)

	if threads > 0 {
		cmdline += fmt.Sprintf(" --threads %d", threads)
	}

	return fmt.Sprintf("%s %s > %s", cmdline, inputFasta, gffPath)
}

// Locator locates ribosomal RNA genes in reads by running barrnap in a
// working directory.
type Locator struct {
	workDir string
	runner  Runner
	threads int
}

// NewLocator returns a Locator that stages its input and output files under
// workDir. Pass a nil runner to shell out for real.
func NewLocator(workDir string, runner Runner, threads int) *Locator {
	if runner == nil {
		runner = ExecRunner{}
	}

	return &Locator{workDir: workDir, runner: runner, threads: threads}
}

// Locate writes the collection to FASTA, scans it for ribosomal RNA genes,
// and returns the located gene spans per read id. Reads with no hits are
// absent from the result.
func (l *Locator) Locate(seqs types.Collection) (map[string]filter.GeneHits, error) {
	input := filepath.Join(l.workDir, inputFastaName)
	gff := filepath.Join(l.workDir, gffName)

	if err := fastq.WriteFASTA(input, seqs); err != nil {
		return nil, err
	}

	if err := l.runner.Run(Command(input, gff, l.threads)); err != nil {
		return nil, err
	}

	f, err := os.Open(gff)
	if err != nil {
		return nil, err
	}

	defer f.Close()

	return ParseGFF(f)
}

// ParseGFF parses barrnap's GFF3 output into gene hits per read id. GFF
// coordinates are 1-based inclusive; spans come back 0-based half-open. When
// a read has several hits for the same gene, the first one wins.
func ParseGFF(r io.Reader) (map[string]filter.GeneHits, error) {
	hits := make(map[string]filter.GeneHits)

	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, commentChar) {
			continue
		}

		readID, gene, span, err := parseGFFLine(line)
		if err != nil {
			return nil, err
		}

		hit := hits[readID]

		switch gene {
		case name16S:
			if hit.RRNA16S == nil {
				hit.RRNA16S = span
			}
		case name23S:
			if hit.RRNA23S == nil {
				hit.RRNA23S = span
			}
		default:
			continue
		}

		hits[readID] = hit
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return hits, nil
}

func parseGFFLine(line string) (string, string, *filter.Span, error) {
	fields := strings.Split(line, "\t")
	if len(fields) != gffColumns {
		return "", "", nil, ErrBadGFF
	}

	start, err := strconv.Atoi(fields[3])
	if err != nil {
		return "", "", nil, ErrBadGFF
	}

	end, err := strconv.Atoi(fields[4])
	if err != nil || start < 1 || end < start {
		return "", "", nil, ErrBadGFF
	}

	return fields[0], nameAttribute(fields[8]), &filter.Span{Start: start - 1, End: end}, nil
}

// nameAttribute pulls the Name attribute out of a GFF3 attributes column.
func nameAttribute(attributes string) string {
	for _, attr := range strings.Split(attributes, ";") {
		if strings.HasPrefix(attr, "Name=") {
			return strings.TrimPrefix(attr, "Name=")
		}
	}

	return ""
}
