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

package types

const (
	ErrInvalidProjectName = Error("project names may only contain lower case alphanumerics and underscores")
	ErrNoSamples          = Error("project has no samples")
	ErrDuplicateSample    = Error("project contains duplicate sample names")
	ErrInvalidThreshold   = Error("clustering threshold must be between 0 and 1")
)

// Project groups the samples that are processed and reported on together,
// along with the project-wide clustering parameters.
type Project struct {
	ShortName string
	LongName  string

	// OTUThreshold is the similarity threshold for clustering, eg. 0.97.
	OTUThreshold float64

	// OTUMinSize drops clusters with fewer members than this.
	OTUMinSize int

	Samples []*Sample
}

// Validate checks the project metadata and every sample within it. It
// guarantees sample names are unique, since they become column identifiers in
// the OTU table.
func (p *Project) Validate() error {
	if !validIdentifier(p.ShortName) {
		return ErrInvalidProjectName
	}

	if len(p.Samples) == 0 {
		return ErrNoSamples
	}

	if p.OTUThreshold <= 0 || p.OTUThreshold > 1 {
		return ErrInvalidThreshold
	}

	seen := make(map[string]bool, len(p.Samples))

	for _, sample := range p.Samples {
		if err := sample.Validate(); err != nil {
			return err
		}

		if seen[sample.Name] {
			return ErrDuplicateSample
		}

		seen[sample.Name] = true
	}

	return nil
}

// SampleNames returns the names of all samples in project order.
func (p *Project) SampleNames() []string {
	names := make([]string, len(p.Samples))

	for i, sample := range p.Samples {
		names[i] = sample.Name
	}

	return names
}
