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

// package report renders per-sample and project summaries as plain text from
// completed pipeline results. It only ever reads results, never recomputes.

package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wtsi-hgi/amplicon-automation/filter"
	"github.com/wtsi-hgi/amplicon-automation/project"
	"github.com/wtsi-hgi/amplicon-automation/taxonomy"
)

const notRunText = "This step has not been run yet."

// Config carries the presentation settings reports are rendered with, so the
// rendering code never reads ambient state like environment variables itself.
type Config struct {
	// HeaderText is printed at the top of every report, eg. a lab or
	// facility attribution line.
	HeaderText string
}

// Renderer renders results as text reports.
type Renderer struct {
	cfg Config
}

// New returns a Renderer using the given presentation settings.
func New(cfg Config) *Renderer {
	return &Renderer{cfg: cfg}
}

func (r *Renderer) header(b *strings.Builder, title string) {
	if r.cfg.HeaderText != "" {
		fmt.Fprintf(b, "%s\n\n", r.cfg.HeaderText)
	}

	fmt.Fprintf(b, "%s\n%s\n\n", title, strings.Repeat("=", len(title)))
}

// StageLine renders one stage outcome: its exact discard counts when it has
// run, or an explicit not-run marker, never a blank.
func StageLine(o filter.Outcome) string {
	if !o.HasRun {
		return fmt.Sprintf("%s: %s", o.Stage, notRunText)
	}

	return fmt.Sprintf("%s: %d discarded, %d left", o.Stage, o.Discarded, o.Retained)
}

// Sample renders the filtering report for one sample: what each stage did,
// in pipeline order, and how much of the raw input survived overall.
func (r *Renderer) Sample(result *filter.Result) string {
	var b strings.Builder

	r.header(&b, fmt.Sprintf("Sample '%s'", result.Sample))

	fmt.Fprintf(&b, "Raw reads: %d\n", result.RawCount)

	if st := result.RawStats; st.Reads > 0 {
		fmt.Fprintf(&b, "Mean quality: %.1f PHRED over %d bases, read lengths %d-%d\n",
			st.MeanPhred, st.Bases, st.MinLength, st.MaxLength)
	}

	b.WriteString("\n")

	for _, o := range result.Outcomes {
		fmt.Fprintf(&b, "- %s\n", StageLine(o))

		if o.HasRun && len(o.Params) > 0 {
			fmt.Fprintf(&b, "  (%s)\n", formatParams(o.Params))
		}
	}

	fmt.Fprintf(&b, "\nRemaining: %d of %d reads (%.1f%%)\n",
		result.Filtered.Count(), result.RawCount, result.PercentRemaining())

	if result.Exhausted() {
		b.WriteString("No sequences remain for this sample.\n")
	}

	return b.String()
}

func formatParams(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + params[k]
	}

	return strings.Join(pairs, ", ")
}

// Project renders the project-level report: per-sample survival, the OTU
// table shape, classification success per rank, and which distance matrices
// are available.
func (r *Renderer) Project(result *project.Result) string {
	var b strings.Builder

	r.header(&b, fmt.Sprintf("Project '%s'", result.ProjectName()))

	fmt.Fprintf(&b, "Run: %s\n\n", result.RunID())

	b.WriteString("Samples:\n")
	r.projectSamples(&b, result)

	table := result.Table()
	fmt.Fprintf(&b, "\nOTUs: %d over %d samples, %d reads total\n",
		table.NumOTUs(), len(table.Samples()), table.Total())

	b.WriteString("\nClassification:\n")
	r.projectTaxonomy(&b, result)

	b.WriteString("\nDistances:\n")
	r.projectDistances(&b, result)

	return b.String()
}

func (r *Renderer) projectSamples(b *strings.Builder, result *project.Result) {
	for _, sr := range result.Samples() {
		switch {
		case sr.Exhausted():
			fmt.Fprintf(b, "- %s: no sequences remain, absent from the OTU table\n", sr.Sample)
		default:
			fmt.Fprintf(b, "- %s: %d of %d reads retained (%.1f%%)\n",
				sr.Sample, sr.Filtered.Count(), sr.RawCount, sr.PercentRemaining())
		}
	}
}

func (r *Renderer) projectTaxonomy(b *strings.Builder, result *project.Result) {
	for _, rank := range taxonomy.Ranks() {
		c, err := result.Composition(rank)
		if err != nil {
			continue
		}

		classified, total := c.ClassifiedOTUs()
		fmt.Fprintf(b, "- %s: %d of %d OTUs classified\n", rank, classified, total)
	}
}

func (r *Renderer) projectDistances(b *strings.Builder, result *project.Result) {
	render := func(name string, err error) {
		if err != nil {
			fmt.Fprintf(b, "- %s: %s\n", name, err)
		} else {
			fmt.Fprintf(b, "- %s: computed\n", name)
		}
	}

	_, err := result.BrayCurtis()
	render("Bray-Curtis", err)

	_, err = result.Jaccard()
	render("Jaccard", err)

	_, err = result.Horn()
	render("Horn", err)

	_, err = result.UniFrac()
	render("UniFrac", err)
}
