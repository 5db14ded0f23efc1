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

package sheets

import "github.com/wtsi-hgi/amplicon-automation/types"

const (
	ErrNoData         = Error("no data found in sheet")
	ErrMissingProject = Error("sample's project not found in projects sheet")

	projectsSheetName = "projects"
	samplesSheetName  = "samples"
)

// ProjectMetaData is the project-wide part of our google sheet's metadata,
// shared by every sample in the same project.
type ProjectMetaData struct {
	ProjectID    string
	ProjectName  string
	OTUThreshold float64
	OTUMinSize   int
}

// MetaData is the per-sample metadata from our google sheet that the filtering
// pipeline needs, along with the metadata of the project the sample belongs
// to.
type MetaData struct {
	FwdPrimer  string
	RevPrimer  string
	Filter     types.FilterParams
	Extraction types.ExtractionMode

	ProjectMetaData
}

// AmpliconMetaData reads sheets "projects" and "samples" from the sheet with
// the given id and merges the results for the columns our pipeline needs,
// returning a map where keys are mlwh sample names.
func (s *Sheets) AmpliconMetaData(sheetID string) (map[string]MetaData, error) {
	projSheet, err := s.Read(sheetID, projectsSheetName)
	if err != nil {
		return nil, err
	}

	sampleSheet, err := s.Read(sheetID, samplesSheetName)
	if err != nil {
		return nil, err
	}

	return mergeMetaData(projSheet, sampleSheet)
}

func mergeMetaData(projSheet, sampleSheet *Sheet) (map[string]MetaData, error) {
	projects, err := projectMetaData(projSheet)
	if err != nil {
		return nil, err
	}

	return sampleMetaData(sampleSheet, projects)
}

func projectMetaData(sheet *Sheet) (map[string]ProjectMetaData, error) {
	if sheet == nil || len(sheet.Rows) == 0 {
		return nil, ErrNoData
	}

	projRows, err := sheet.Columns(
		"project_id",
		"project_name",
		"otu_identity",
		"otu_min_size",
	)
	if err != nil {
		return nil, err
	}

	projects := make(map[string]ProjectMetaData, len(projRows))

	c := converter{}

	for _, row := range projRows {
		projects[row[0]] = ProjectMetaData{
			ProjectID:    row[0],
			ProjectName:  row[1],
			OTUThreshold: c.ToFloat(row[2]),
			OTUMinSize:   c.ToInt(row[3]),
		}
	}

	return projects, c.Err
}

func sampleMetaData(sheet *Sheet, projects map[string]ProjectMetaData) (map[string]MetaData, error) {
	if sheet == nil || len(sheet.Rows) == 0 {
		return nil, ErrNoData
	}

	sampleRows, err := sheet.Columns(
		"project_id",
		"mlwh_sample_name",
		"fwd_primer",
		"rev_primer",
		"primer_mismatches",
		"primer_max_dist",
		"min_read_length",
		"max_read_length",
		"phred_window_size",
		"phred_threshold",
		"gene_extraction",
	)
	if err != nil {
		return nil, err
	}

	metadata := make(map[string]MetaData, len(sampleRows))

	c := converter{}

	for _, row := range sampleRows {
		proj, ok := projects[row[0]]
		if !ok {
			return nil, ErrMissingProject
		}

		metadata[row[1]] = MetaData{
			FwdPrimer: row[2],
			RevPrimer: row[3],
			Filter: types.FilterParams{
				PrimerMismatches: c.ToInt(row[4]),
				PrimerMaxDist:    c.ToInt(row[5]),
				MinReadLength:    c.ToInt(row[6]),
				MaxReadLength:    c.ToInt(row[7]),
				PhredWindowSize:  c.ToInt(row[8]),
				PhredThreshold:   c.ToFloat(row[9]),
			},
			Extraction:      c.ToExtractionMode(row[10]),
			ProjectMetaData: proj,
		}
	}

	return metadata, c.Err
}
