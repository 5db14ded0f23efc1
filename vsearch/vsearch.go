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

// package vsearch lets you use the vsearch tool for de-novo chimera detection
// and OTU clustering. Command lines are built as plain strings so they can be
// inspected and tested without the tool installed.

package vsearch

import (
	"fmt"
	"os/exec"
	"path/filepath"
)

type Error string

func (e Error) Error() string { return string(e) }

const (
	ErrChimeraCountMismatch = Error("chimera and non-chimera counts do not sum to the input count")
	ErrBadOTUTable          = Error("malformed OTU table")

	vsearchExe = "vsearch"

	inputFastaName       = "input.fasta"
	chimerasFastaName    = "chimeras.fasta"
	nonChimerasFastaName = "nonchimeras.fasta"
	centroidsFastaName   = "centroids.fasta"
	otuTableName         = "otus.tsv"
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

// UchimeCommand returns a command line for vsearch that will split the input
// FASTA into chimeric and non-chimeric sequences using the uchime3 de-novo
// algorithm.
func UchimeCommand(inputFasta, chimerasFasta, nonChimerasFasta string) string {
	return fmt.Sprintf(
		"%s --uchime3_denovo %s --chimeras %s --nonchimeras %s",
		vsearchExe, inputFasta, chimerasFasta, nonChimerasFasta,
	)
}

// ClusterCommand returns a command line for vsearch that will cluster the
// input FASTA at the given identity threshold, writing the cluster centroid
// sequences and an OTU x sample abundance table. Threads of zero lets the
// tool pick.
func ClusterCommand(inputFasta, centroidsFasta, otuTable string, threshold float64, threads int) string {
	cmdline := fmt.Sprintf(
		"%s --cluster_size %s --id %g --centroids %s --otutabout %s --sizeout",
		vsearchExe, inputFasta, threshold, centroidsFasta, otuTable,
	)

	if threads > 0 {
		cmdline += fmt.Sprintf(" --threads %d", threads)
	}

	return cmdline
}

type workPaths struct {
	dir string
}

func (w workPaths) input() string {
	return filepath.Join(w.dir, inputFastaName)
}

func (w workPaths) chimeras() string {
	return filepath.Join(w.dir, chimerasFastaName)
}

func (w workPaths) nonChimeras() string {
	return filepath.Join(w.dir, nonChimerasFastaName)
}

func (w workPaths) centroids() string {
	return filepath.Join(w.dir, centroidsFastaName)
}

func (w workPaths) otuTable() string {
	return filepath.Join(w.dir, otuTableName)
}
