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

// package mothur lets you use mothur's naive bayesian classifier to assign
// taxonomy to OTU centroid sequences against a reference training set.

package mothur

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
	"github.com/wtsi-hgi/amplicon-automation/taxonomy"
	"github.com/wtsi-hgi/amplicon-automation/types"
)

type Error string

func (e Error) Error() string { return string(e) }

const (
	ErrBadTaxonomyLine = Error("malformed taxonomy line")
	ErrNoReference     = Error("reference training set not specified")

	mothurExe = "mothur"

	inputFastaName = "centroids.fasta"

	// mothur rewrites ':' to '_' in sequence names, so ids are sanitised on
	// the way in and mapped back on the way out.
	idUnsafe = ":"
	idSafe   = "_"
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

// Reference is a classification training set: aligned reference sequences and
// their known taxonomy.
type Reference struct {
	FastaPath    string
	TaxonomyPath string
}

// Command returns a command line for mothur that will classify the input
// FASTA against the reference, with the given bootstrap confidence cutoff.
// Processors of zero lets the tool pick.
func Command(inputFasta string, ref Reference, cutoff, processors int) string {
	args := fmt.Sprintf("fasta=%s, reference=%s, taxonomy=%s, cutoff=%d",
		inputFasta, ref.FastaPath, ref.TaxonomyPath, cutoff)

	if processors > 0 {
		args += fmt.Sprintf(", processors=%d", processors)
	}

	return fmt.Sprintf(`%s "#classify.seqs(%s)"`, mothurExe, args)
}

// TaxonomyOutputPath returns where mothur will write its classifications for
// the given input FASTA and reference.
func TaxonomyOutputPath(inputFasta string, ref Reference) string {
	base := strings.TrimSuffix(inputFasta, filepath.Ext(inputFasta))
	refName := strings.TrimSuffix(filepath.Base(ref.TaxonomyPath), filepath.Ext(ref.TaxonomyPath))

	return fmt.Sprintf("%s.%s.wang.taxonomy", base, refName)
}

// Classifier assigns taxonomy to centroid sequences by running mothur in a
// working directory.
type Classifier struct {
	workDir    string
	ref        Reference
	runner     Runner
	cutoff     int
	processors int
}

// NewClassifier returns a Classifier using the given reference training set.
// Pass a nil runner to shell out for real. Cutoff is the bootstrap confidence
// below which mothur truncates an assignment; processors of zero lets the
// tool pick.
func NewClassifier(workDir string, ref Reference, runner Runner, cutoff, processors int) (*Classifier, error) {
	if ref.FastaPath == "" || ref.TaxonomyPath == "" {
		return nil, ErrNoReference
	}

	if runner == nil {
		runner = ExecRunner{}
	}

	return &Classifier{
		workDir:    workDir,
		ref:        ref,
		runner:     runner,
		cutoff:     cutoff,
		processors: processors,
	}, nil
}

// Classify writes the centroids to FASTA with tool-safe ids, runs the
// classifier, and parses the resulting taxonomy keyed by the original
// centroid ids.
func (c *Classifier) Classify(centroids types.Collection) (map[string]taxonomy.Assignment, error) {
	input := filepath.Join(c.workDir, inputFastaName)

	safeToOriginal := make(map[string]string, centroids.Count())

	staged := centroids.Replace(func(s types.Sequence) (types.Sequence, bool) {
		safe := strings.ReplaceAll(s.ID, idUnsafe, idSafe)
		safeToOriginal[safe] = s.ID
		s.ID = safe

		return s, true
	})

	if err := fastq.WriteFASTA(input, staged); err != nil {
		return nil, err
	}

	if err := c.runner.Run(Command(input, c.ref, c.cutoff, c.processors)); err != nil {
		return nil, err
	}

	f, err := os.Open(TaxonomyOutputPath(input, c.ref))
	if err != nil {
		return nil, err
	}

	defer f.Close()

	parsed, err := ParseTaxonomy(f)
	if err != nil {
		return nil, err
	}

	assignments := make(map[string]taxonomy.Assignment, len(parsed))

	for safe, a := range parsed {
		original, ok := safeToOriginal[safe]
		if !ok {
			original = safe
		}

		assignments[original] = a
	}

	return assignments, nil
}

// ParseTaxonomy parses mothur's .wang.taxonomy output: one line per sequence,
// id and a semicolon-separated lineage whose labels carry a percent
// confidence in parentheses, eg.
//
//	seq1	Bacteria(100);Firmicutes(98);Bacilli(95);
func ParseTaxonomy(r io.Reader) (map[string]taxonomy.Assignment, error) {
	assignments := make(map[string]taxonomy.Assignment)

	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		id, a, err := parseTaxonomyLine(line)
		if err != nil {
			return nil, err
		}

		assignments[id] = a
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return assignments, nil
}

func parseTaxonomyLine(line string) (string, taxonomy.Assignment, error) {
	var a taxonomy.Assignment

	fields := strings.Fields(line)
	if len(fields) != 2 {
		return "", a, ErrBadTaxonomyLine
	}

	for _, taxon := range strings.Split(strings.TrimSuffix(fields[1], ";"), ";") {
		label, confidence, err := parseTaxon(taxon)
		if err != nil {
			return "", a, err
		}

		a.Labels = append(a.Labels, label)
		a.Confidences = append(a.Confidences, confidence)
	}

	return fields[0], a, nil
}

// parseTaxon splits "Firmicutes(98)" into its label and confidence. Labels
// without a confidence annotation get 100.
func parseTaxon(taxon string) (string, float64, error) {
	open := strings.LastIndex(taxon, "(")
	if open < 0 {
		return taxon, 100, nil
	}

	if !strings.HasSuffix(taxon, ")") {
		return "", 0, ErrBadTaxonomyLine
	}

	confidence, err := strconv.ParseFloat(taxon[open+1:len(taxon)-1], 64)
	if err != nil {
		return "", 0, ErrBadTaxonomyLine
	}

	return taxon[:open], confidence, nil
}
