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

package report

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/wtsi-hgi/amplicon-automation/fastq"
	"github.com/wtsi-hgi/amplicon-automation/filter"
	"github.com/wtsi-hgi/amplicon-automation/types"
)

func sampleResult() *filter.Result {
	return &filter.Result{
		Sample:   "sample_a",
		RawCount: 100,
		RawStats: fastq.Stats{
			Reads:     100,
			Bases:     150000,
			MinLength: 1200,
			MaxLength: 1900,
			MeanPhred: 28.4,
		},
		Filtered: make(types.Collection, 83),
		Outcomes: filter.Ledger{
			{Stage: filter.StageValidate, HasRun: true, Enabled: true, Retained: 100},
			{Stage: filter.StagePrimers, HasRun: true, Enabled: true, Discarded: 10, Retained: 90,
				Params: map[string]string{"primer_mismatches": "1", "primer_max_dist": "2"}},
			{Stage: filter.StageNBase, HasRun: true, Enabled: true, Discarded: 5, Retained: 85},
			{Stage: filter.StageLength, HasRun: true, Enabled: true, Discarded: 2, Retained: 83},
			{Stage: filter.StagePhred, HasRun: true, Enabled: true, Retained: 83},
			{Stage: filter.StageChimeras, HasRun: true, Enabled: true, Retained: 83},
			{Stage: filter.StageExtraction, Enabled: false},
		},
	}
}

func TestStageLine(t *testing.T) {
	Convey("StageLine renders exact counts for stages that ran", t, func() {
		line := StageLine(filter.Outcome{
			Stage: filter.StagePrimers, HasRun: true, Discarded: 10, Retained: 90,
		})
		So(line, ShouldEqual, "primers: 10 discarded, 90 left")
	})

	Convey("StageLine renders an explicit marker for stages that have not", t, func() {
		line := StageLine(filter.Outcome{Stage: filter.StageExtraction})
		So(line, ShouldEqual, "gene_extraction: This step has not been run yet.")
	})
}

func TestSampleReport(t *testing.T) {
	Convey("Given a renderer with a configured header", t, func() {
		r := New(Config{HeaderText: "Produced by the sequencing facility"})

		Convey("Sample reports show headers, counts, params and survival", func() {
			text := r.Sample(sampleResult())

			So(text, ShouldStartWith, "Produced by the sequencing facility\n")
			So(text, ShouldContainSubstring, "Sample 'sample_a'")
			So(text, ShouldContainSubstring, "Raw reads: 100")
			So(text, ShouldContainSubstring,
				"Mean quality: 28.4 PHRED over 150000 bases, read lengths 1200-1900")
			So(text, ShouldContainSubstring, "primers: 10 discarded, 90 left")
			So(text, ShouldContainSubstring, "(primer_max_dist=2, primer_mismatches=1)")
			So(text, ShouldContainSubstring, "gene_extraction: This step has not been run yet.")
			So(text, ShouldContainSubstring, "Remaining: 83 of 100 reads (83.0%)")
			So(text, ShouldNotContainSubstring, "No sequences remain")
		})

		Convey("Exhausted samples are marked as such", func() {
			result := sampleResult()
			result.Filtered = nil

			text := r.Sample(result)
			So(text, ShouldContainSubstring, "No sequences remain for this sample.")
		})
	})

	Convey("Without a header configured, none is rendered", t, func() {
		text := New(Config{}).Sample(sampleResult())
		So(text, ShouldStartWith, "Sample 'sample_a'")
	})

	Convey("A result with no quality summary omits the quality line", t, func() {
		result := sampleResult()
		result.RawStats = fastq.Stats{}

		text := New(Config{}).Sample(result)
		So(text, ShouldNotContainSubstring, "Mean quality")
	})
}
