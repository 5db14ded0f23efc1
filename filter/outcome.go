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

type Error string

func (e Error) Error() string { return string(e) }

const ErrUnknownStage = Error("unknown stage name")

// Stage names, in the order the pipeline applies them.
const (
	StageValidate   = "validate"
	StagePrimers    = "primers"
	StageNBase      = "n_base"
	StageLength     = "length"
	StagePhred      = "phred_window"
	StageChimeras   = "chimeras"
	StageExtraction = "gene_extraction"
)

// StageNames returns all stage names in pipeline order.
func StageNames() []string {
	return []string{
		StageValidate,
		StagePrimers,
		StageNBase,
		StageLength,
		StagePhred,
		StageChimeras,
		StageExtraction,
	}
}

// Outcome records what one stage did to one sample's sequences. An Outcome
// starts off with HasRun false when its pipeline is constructed, and is
// populated (overwritten, not accumulated) when the stage executes. Counts
// are always relative to the stage's immediate input, not the original raw
// read count.
type Outcome struct {
	Stage     string
	HasRun    bool
	Discarded int
	Retained  int

	// Enabled is false for stages switched off by sample metadata, eg. gene
	// extraction mode "off". A disabled stage never runs.
	Enabled bool

	// Params holds the threshold values the stage ran with, for reports.
	Params map[string]string
}

// Input returns the size of the collection the stage received.
func (o Outcome) Input() int {
	return o.Discarded + o.Retained
}

// Ledger is the ordered list of stage outcomes for one sample, one entry per
// pipeline stage whether run or not.
type Ledger []Outcome

// Get returns the outcome for the named stage.
func (l Ledger) Get(stage string) (Outcome, error) {
	for _, o := range l {
		if o.Stage == stage {
			return o, nil
		}
	}

	return Outcome{}, ErrUnknownStage
}

// Complete reports whether every enabled stage in the ledger has run.
// Disabled stages never block completion.
func (l Ledger) Complete() bool {
	for _, o := range l {
		if o.Enabled && !o.HasRun {
			return false
		}
	}

	return true
}
