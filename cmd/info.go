/*******************************************************************************
 * Copyright (c) 2025 Genome Research Ltd.
 *
 * Author: Sendu Bala <sb10@sanger.ac.uk>
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

package cmd

import (
	"sort"

	"github.com/spf13/cobra"
	"github.com/wtsi-hgi/amplicon-automation/config"
	"github.com/wtsi-hgi/amplicon-automation/samples"
)

// infoCmd represents the info command.
var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Get sample info.",
	Long: `Get sample info from MLWH and our amplicon Google sheet.

This shows you every qc-passed PacBio sample of the sponsor that also has
filtering metadata in the Google sheet, grouped by project.

You can then use the sampleName:runID pairs shown as input to the run
sub-command.
`,
	Run: func(_ *cobra.Command, _ []string) {
		err := sampleInfo()
		if err != nil {
			die("%s", err.Error())
		}
	},
}

func init() {
	RootCmd.AddCommand(infoCmd)
}

func sampleInfo() error {
	c, err := config.FromEnv()
	if err != nil {
		return err
	}

	client, err := newSamplesClient(c)
	if err != nil {
		return err
	}

	defer client.Close()

	merged, err := client.ForSponsor(sponsor)
	if err != nil {
		return err
	}

	byProject := make(map[string]samples.Samples)

	for _, sample := range merged {
		byProject[sample.ProjectID] = append(byProject[sample.ProjectID], sample)
	}

	projectIDs := make([]string, 0, len(byProject))
	for projectID := range byProject {
		projectIDs = append(projectIDs, projectID)
	}

	sort.Strings(projectIDs)

	for _, projectID := range projectIDs {
		psamples := byProject[projectID]

		cliPrint("%s (%s): %d samples\n", projectID, psamples[0].ProjectName, len(psamples))

		for _, sample := range psamples {
			cliPrint("  %s:%s [study %s, extraction %s]\n",
				sample.SampleName, sample.RunID, sample.StudyName, sample.Extraction)
		}

		cliPrintRaw("\n")
	}

	return nil
}
