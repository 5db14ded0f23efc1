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
	ErrInvalidExtractionMode = Error("invalid gene extraction mode")
	ErrInvalidSampleName     = Error("sample names may only contain lower case alphanumerics and underscores")
	ErrNoRawFile             = Error("sample has no raw reads file")
	ErrNoPrimers             = Error("sample has no primer sequences")
)

// ExtractionMode says what to do with the rRNA gene regions located within
// each read after filtering.
type ExtractionMode string

const (
	// ExtractionOff disables the gene extraction step entirely.
	ExtractionOff ExtractionMode = "off"

	// ExtractionFilter keeps whole reads, but only those in which both
	// target genes were detected.
	ExtractionFilter ExtractionMode = "filter"

	// ExtractionConcat replaces each read with its detected gene regions
	// concatenated together, discarding the material between them.
	ExtractionConcat ExtractionMode = "concat"

	// ExtractionTrim replaces each read with only its primary gene region.
	ExtractionTrim ExtractionMode = "trim"
)

// StringToExtractionMode converts a string to an ExtractionMode.
func StringToExtractionMode(s string) (ExtractionMode, error) {
	switch ExtractionMode(s) {
	case ExtractionOff, ExtractionFilter, ExtractionConcat, ExtractionTrim:
		return ExtractionMode(s), nil
	default:
		return "", ErrInvalidExtractionMode
	}
}

// FilterParams are the per-sample thresholds applied by the filtering stages.
type FilterParams struct {
	// PrimerMismatches is the number of mismatching bases tolerated when
	// searching for a primer.
	PrimerMismatches int

	// PrimerMaxDist is how far (in bases, inclusive) from the relevant end
	// of a read a primer may start and still count as found.
	PrimerMaxDist int

	// MinReadLength and MaxReadLength are inclusive length bounds. Zero
	// disables the corresponding bound.
	MinReadLength int
	MaxReadLength int

	// PhredWindowSize is the size of the rolling window over which quality
	// scores are averaged.
	PhredWindowSize int

	// PhredThreshold discards a read if any window's average falls below it.
	PhredThreshold float64
}

// Sample is one sequenced sample: a raw reads file plus the metadata that
// controls how it is filtered.
type Sample struct {
	Name      string
	RunID     string
	LongName  string
	FastqPath string

	FwdPrimer string
	RevPrimer string

	Filter FilterParams

	Extraction ExtractionMode
}

// Key returns a unique key for this sample, which is the Name and RunID
// concatenated with a period.
func (s *Sample) Key() string {
	return s.Name + "." + s.RunID
}

// Validate checks the sample metadata is usable by the pipeline.
func (s *Sample) Validate() error {
	if !validIdentifier(s.Name) {
		return ErrInvalidSampleName
	}

	if s.FastqPath == "" {
		return ErrNoRawFile
	}

	if s.FwdPrimer == "" || s.RevPrimer == "" {
		return ErrNoPrimers
	}

	return nil
}

func validIdentifier(name string) bool {
	if name == "" {
		return false
	}

	for i, r := range name {
		switch {
		case r == '_':
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}

	return true
}
