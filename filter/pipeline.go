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
	"fmt"
	"strconv"

	"github.com/wtsi-hgi/amplicon-automation/fastq"
	"github.com/wtsi-hgi/amplicon-automation/types"
)

// ChimeraDetector flags reads that look like artificial joins of two
// distinct templates. Detect returns the ids of flagged reads; it must not
// report ids that were not in its input.
type ChimeraDetector interface {
	Detect(seqs types.Collection) (map[string]bool, error)
}

// Span is a located gene region within a read, as base offsets [Start, End).
type Span struct {
	Start int
	End   int
}

// GeneHits records where the ribosomal genes were found within one read. A
// nil span means the gene was not detected.
type GeneHits struct {
	RRNA16S *Span
	RRNA23S *Span
}

// GeneLocator locates ribosomal RNA gene regions within reads. Locate
// returns an entry per read id that had at least one hit; reads without hits
// are simply absent from the result.
type GeneLocator interface {
	Locate(seqs types.Collection) (map[string]GeneHits, error)
}

// StageError is a fatal pipeline error, identifying the sample and stage
// that failed.
type StageError struct {
	Sample string
	Stage  string
	Err    error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("sample %s: stage %s: %s", e.Sample, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

type stage struct {
	name    string
	enabled bool
	params  map[string]string
	apply   func(types.Collection) (types.Collection, error)
}

// Pipeline applies the filtering stage chain to one sample's raw reads:
// validate, primers, N bases, length, PHRED window, chimeras and gene
// extraction, strictly in that order. Each stage consumes the output of the
// previous stage, so discard counts are always relative to the immediately
// preceding collection.
//
// A Pipeline is re-entrant: intermediate collections and outcomes are
// retained, so Resume() after a partial run carries on from the first stage
// that has not yet run.
type Pipeline struct {
	sample   *types.Sample
	stages   []stage
	outcomes Ledger
	outputs  []types.Collection
	raw      types.Collection
	haveRaw  bool
}

// New returns a Pipeline for the given sample. The chimera detector and gene
// locator are the external tools the chimera and gene extraction stages
// delegate to.
func New(sample *types.Sample, chimeras ChimeraDetector, genes GeneLocator) *Pipeline {
	p := &Pipeline{sample: sample}
	p.stages = p.buildStages(chimeras, genes)
	p.reset()

	return p
}

func (p *Pipeline) buildStages(chimeras ChimeraDetector, genes GeneLocator) []stage {
	fp := p.sample.Filter

	return []stage{
		{
			name:    StageValidate,
			enabled: true,
			apply:   p.validate,
		},
		{
			name:    StagePrimers,
			enabled: true,
			params: map[string]string{
				"primer_mismatches": strconv.Itoa(fp.PrimerMismatches),
				"primer_max_dist":   strconv.Itoa(fp.PrimerMaxDist),
			},
			apply: func(in types.Collection) (types.Collection, error) {
				return primerFilter(in, p.sample.FwdPrimer, p.sample.RevPrimer,
					fp.PrimerMismatches, fp.PrimerMaxDist), nil
			},
		},
		{
			name:    StageNBase,
			enabled: true,
			apply: func(in types.Collection) (types.Collection, error) {
				return nBaseFilter(in), nil
			},
		},
		{
			name:    StageLength,
			enabled: true,
			params: map[string]string{
				"min_read_length": strconv.Itoa(fp.MinReadLength),
				"max_read_length": strconv.Itoa(fp.MaxReadLength),
			},
			apply: func(in types.Collection) (types.Collection, error) {
				return lengthFilter(in, fp.MinReadLength, fp.MaxReadLength), nil
			},
		},
		{
			name:    StagePhred,
			enabled: fp.PhredWindowSize > 0,
			params: map[string]string{
				"phred_window_size": strconv.Itoa(fp.PhredWindowSize),
				"phred_threshold":   strconv.FormatFloat(fp.PhredThreshold, 'f', -1, 64),
			},
			apply: func(in types.Collection) (types.Collection, error) {
				return phredFilter(in, fp.PhredWindowSize, fp.PhredThreshold), nil
			},
		},
		{
			name:    StageChimeras,
			enabled: true,
			apply: func(in types.Collection) (types.Collection, error) {
				return p.dropChimeras(chimeras, in)
			},
		},
		{
			name:    StageExtraction,
			enabled: p.sample.Extraction != types.ExtractionOff,
			params: map[string]string{
				"mode": string(p.sample.Extraction),
			},
			apply: func(in types.Collection) (types.Collection, error) {
				return p.extractGenes(genes, in)
			},
		},
	}
}

func (p *Pipeline) reset() {
	p.outcomes = make(Ledger, len(p.stages))
	p.outputs = make([]types.Collection, len(p.stages))

	for i, st := range p.stages {
		p.outcomes[i] = Outcome{Stage: st.name, Enabled: st.enabled}
	}
}

func (p *Pipeline) validate(in types.Collection) (types.Collection, error) {
	for _, s := range in {
		if err := s.Validate(); err != nil {
			return nil, err
		}
	}

	return in, nil
}

func (p *Pipeline) dropChimeras(detector ChimeraDetector, in types.Collection) (types.Collection, error) {
	flagged, err := detector.Detect(in)
	if err != nil {
		return nil, err
	}

	return in.Filter(func(s types.Sequence) bool {
		return !flagged[s.ID]
	}), nil
}

func (p *Pipeline) extractGenes(locator GeneLocator, in types.Collection) (types.Collection, error) {
	hits, err := locator.Locate(in)
	if err != nil {
		return nil, err
	}

	mode := p.sample.Extraction

	return in.Replace(func(s types.Sequence) (types.Sequence, bool) {
		hit, found := hits[s.ID]
		if !found || hit.RRNA16S == nil {
			return types.Sequence{}, false
		}

		switch mode {
		case types.ExtractionFilter:
			return s, hit.RRNA23S != nil
		case types.ExtractionConcat:
			out := s.Subsequence(hit.RRNA16S.Start, hit.RRNA16S.End)
			if hit.RRNA23S != nil {
				out = concat(out, s.Subsequence(hit.RRNA23S.Start, hit.RRNA23S.End))
			}

			return out, out.Len() > 0
		case types.ExtractionTrim:
			out := s.Subsequence(hit.RRNA16S.Start, hit.RRNA16S.End)

			return out, out.Len() > 0
		default:
			return s, true
		}
	}), nil
}

func concat(a, b types.Sequence) types.Sequence {
	a.Seq += b.Seq
	a.Qual = append(a.Qual, b.Qual...)

	return a
}

// Run executes the full stage chain on the given raw reads, overwriting any
// outcomes from previous runs. A stage that leaves no sequences is not an
// error: the remaining stages run against the empty collection and record
// zero retained.
func (p *Pipeline) Run(raw types.Collection) (*Result, error) {
	p.reset()
	p.raw = raw
	p.haveRaw = true

	return p.resume()
}

// Resume executes only the stages that have not already run, feeding each
// one the retained output of its predecessor. Call this after Run() has been
// interrupted, or instead of Run() when outcomes have been pre-populated.
func (p *Pipeline) Resume(raw types.Collection) (*Result, error) {
	if !p.haveRaw {
		p.raw = raw
		p.haveRaw = true
	}

	return p.resume()
}

func (p *Pipeline) resume() (*Result, error) {
	input := p.raw

	for i, st := range p.stages {
		switch {
		case !st.enabled:
			// pass-through, outcome stays NotRun
			p.outputs[i] = input
		case p.outcomes[i].HasRun:
			// already ran, reuse the stored output
		default:
			if err := p.runStage(i, st, input); err != nil {
				return nil, err
			}
		}

		input = p.outputs[i]
	}

	return p.result(), nil
}

func (p *Pipeline) runStage(i int, st stage, input types.Collection) error {
	output := input

	if len(input) > 0 {
		var err error

		output, err = st.apply(input)
		if err != nil {
			return &StageError{Sample: p.sample.Name, Stage: st.name, Err: err}
		}
	}

	p.outcomes[i] = Outcome{
		Stage:     st.name,
		HasRun:    true,
		Enabled:   true,
		Discarded: len(input) - len(output),
		Retained:  len(output),
		Params:    st.params,
	}
	p.outputs[i] = output

	return nil
}

func (p *Pipeline) result() *Result {
	outcomes := make(Ledger, len(p.outcomes))
	copy(outcomes, p.outcomes)

	return &Result{
		Sample:   p.sample.Name,
		RawCount: len(p.raw),
		RawStats: fastq.Summarise(p.raw),
		Filtered: p.outputs[len(p.outputs)-1],
		Outcomes: outcomes,
	}
}

// Outcomes returns a copy of the current stage outcome ledger, including
// NotRun entries for stages that have not executed yet.
func (p *Pipeline) Outcomes() Ledger {
	outcomes := make(Ledger, len(p.outcomes))
	copy(outcomes, p.outcomes)

	return outcomes
}

// Complete reports whether every enabled stage has run.
func (p *Pipeline) Complete() bool {
	return p.outcomes.Complete()
}

// Result is the outcome of running one sample through the pipeline. RawStats
// summarises the quality of the raw reads before any filtering, for reports.
type Result struct {
	Sample   string
	RawCount int
	RawStats fastq.Stats
	Filtered types.Collection
	Outcomes Ledger
}

// Exhausted reports whether filtering left no sequences at all for this
// sample. An exhausted sample is reported as such, but does not abort the
// project.
func (r *Result) Exhausted() bool {
	return len(r.Filtered) == 0
}

// PercentRemaining returns how much of the raw read count survived the full
// chain, as a percentage.
func (r *Result) PercentRemaining() float64 {
	if r.RawCount == 0 {
		return 0
	}

	return float64(len(r.Filtered)) / float64(r.RawCount) * 100
}
