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

// package project runs the whole analysis for a project: every sample's
// filtering pipeline, pooling, clustering, taxonomy and diversity, producing
// one result for reporting.

package project

import (
	"github.com/exascience/pargo/parallel"
	"github.com/google/uuid"
	"github.com/inconshreveable/log15"
	"github.com/wtsi-hgi/amplicon-automation/diversity"
	"github.com/wtsi-hgi/amplicon-automation/fastq"
	"github.com/wtsi-hgi/amplicon-automation/filter"
	"github.com/wtsi-hgi/amplicon-automation/otu"
	"github.com/wtsi-hgi/amplicon-automation/taxonomy"
	"github.com/wtsi-hgi/amplicon-automation/types"
)

type Error string

func (e Error) Error() string { return string(e) }

const (
	ErrNotReady       = Error("project has not been run yet")
	ErrMissingTool    = Error("a required tool adapter was not supplied")
	ErrNoDistanceData = Error("not enough samples with reads to compare")

	minComparableSamples = 2
)

// Clusterer is an OTU clusterer that also exposes the centroid sequence of
// each cluster, which taxonomy classification needs.
type Clusterer interface {
	otu.Clusterer
	Centroids() types.Collection
}

// Tools bundles the external tool adapters an Aggregator drives. Chimeras
// and Genes are factories because samples run concurrently and each pipeline
// needs its own working files.
type Tools struct {
	Chimeras   func(sample *types.Sample) filter.ChimeraDetector
	Genes      func(sample *types.Sample) filter.GeneLocator
	Clusterer  Clusterer
	Classifier taxonomy.Classifier

	// Tree is the phylogenetic tree over OTU centroids for UniFrac
	// distances; leave nil when none was built and UniFrac will report
	// its absence.
	Tree *diversity.Tree

	// Load overrides how raw reads are fetched for a sample; nil means
	// read the sample's FASTQ file.
	Load func(sample *types.Sample) (types.Collection, error)
}

func (t Tools) validate() error {
	if t.Chimeras == nil || t.Genes == nil || t.Clusterer == nil || t.Classifier == nil {
		return ErrMissingTool
	}

	return nil
}

func (t Tools) load(sample *types.Sample) (types.Collection, error) {
	if t.Load != nil {
		return t.Load(sample)
	}

	return fastq.Load(sample.FastqPath, sample.Name)
}

// Aggregator runs a project end to end. Each run gets a fresh id so its
// outputs can be told apart from previous runs of the same project.
type Aggregator struct {
	project *types.Project
	tools   Tools
	logger  log15.Logger
	runID   string
	result  *Result
}

// New returns an Aggregator for the given validated project. The logger may
// be nil for silence.
func New(p *types.Project, tools Tools, logger log15.Logger) (*Aggregator, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	if err := tools.validate(); err != nil {
		return nil, err
	}

	if logger == nil {
		logger = log15.New()
		logger.SetHandler(log15.DiscardHandler())
	}

	return &Aggregator{
		project: p,
		tools:   tools,
		logger:  logger,
		runID:   uuid.New().String(),
	}, nil
}

// RunID returns the unique id of this run.
func (a *Aggregator) RunID() string {
	return a.runID
}

// Run takes every sample through the filtering pipeline concurrently, then
// pools the survivors, clusters them into OTUs, classifies the centroids and
// computes the diversity matrices. The first sample whose pipeline fails
// aborts the run.
//
// Samples left with no reads at all still complete their pipelines and
// appear in the per-sample results, but contribute nothing downstream.
func (a *Aggregator) Run() (*Result, error) {
	a.result = nil

	sampleResults, err := a.runPipelines()
	if err != nil {
		return nil, err
	}

	table, assignments, err := a.clusterAndClassify(sampleResults)
	if err != nil {
		return nil, err
	}

	result := &Result{
		runID:       a.runID,
		project:     a.project,
		samples:     sampleResults,
		table:       table,
		assignments: assignments,
		tree:        a.tools.Tree,
	}

	if err := result.computeCompositions(); err != nil {
		return nil, err
	}

	result.computeDiversity()

	a.result = result

	return result, nil
}

// Result returns the outcome of the last Run, or ErrNotReady before the
// first successful one. Reports must only ever be built from this.
func (a *Aggregator) Result() (*Result, error) {
	if a.result == nil {
		return nil, ErrNotReady
	}

	return a.result, nil
}

func (a *Aggregator) runPipelines() ([]*filter.Result, error) {
	samples := a.project.Samples
	results := make([]*filter.Result, len(samples))
	errs := make([]error, len(samples))

	parallel.Range(0, len(samples), 0, func(low, high int) {
		for i := low; i < high; i++ {
			results[i], errs[i] = a.runPipeline(samples[i])
		}
	})

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return results, nil
}

func (a *Aggregator) runPipeline(sample *types.Sample) (*filter.Result, error) {
	raw, err := a.tools.load(sample)
	if err != nil {
		return nil, &filter.StageError{Sample: sample.Name, Stage: filter.StageValidate, Err: err}
	}

	a.logger.Info("filtering sample", "sample", sample.Name, "reads", raw.Count())

	result, err := filter.New(sample, a.tools.Chimeras(sample), a.tools.Genes(sample)).Run(raw)
	if err != nil {
		return nil, err
	}

	if result.Exhausted() {
		a.logger.Warn("sample exhausted by filtering", "sample", sample.Name)
	} else {
		a.logger.Info("sample filtered", "sample", sample.Name,
			"retained", result.Filtered.Count(), "percent", result.PercentRemaining())
	}

	return result, nil
}

func (a *Aggregator) clusterAndClassify(sampleResults []*filter.Result) (*otu.Table,
	map[string]taxonomy.Assignment, error) {
	collections := make([]types.Collection, len(sampleResults))
	for i, r := range sampleResults {
		collections[i] = r.Filtered
	}

	pooled, err := otu.Pool(collections)
	if err != nil {
		return nil, nil, err
	}

	a.logger.Info("clustering pooled reads", "reads", pooled.Count(),
		"threshold", a.project.OTUThreshold)

	table, err := a.tools.Clusterer.Cluster(pooled, a.project.OTUThreshold)
	if err != nil {
		return nil, nil, err
	}

	if a.project.OTUMinSize > 1 {
		before := table.NumOTUs()
		table = table.ApplyMinSize(a.project.OTUMinSize)
		a.logger.Info("applied cluster size cutoff", "min_size", a.project.OTUMinSize,
			"before", before, "after", table.NumOTUs())
	}

	assignments, err := a.tools.Classifier.Classify(a.tools.Clusterer.Centroids())
	if err != nil {
		return nil, nil, err
	}

	return table, assignments, nil
}
