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
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/wtsi-hgi/amplicon-automation/barrnap"
	"github.com/wtsi-hgi/amplicon-automation/config"
	"github.com/wtsi-hgi/amplicon-automation/diversity"
	"github.com/wtsi-hgi/amplicon-automation/fastq"
	"github.com/wtsi-hgi/amplicon-automation/filter"
	"github.com/wtsi-hgi/amplicon-automation/mlwh"
	"github.com/wtsi-hgi/amplicon-automation/mothur"
	"github.com/wtsi-hgi/amplicon-automation/project"
	"github.com/wtsi-hgi/amplicon-automation/report"
	"github.com/wtsi-hgi/amplicon-automation/samples"
	"github.com/wtsi-hgi/amplicon-automation/sheets"
	"github.com/wtsi-hgi/amplicon-automation/types"
	"github.com/wtsi-hgi/amplicon-automation/vsearch"
)

const (
	ErrBadOutputDir    = Error("output directory must not be a sub-directory of the current working directory")
	ErrSamplesRequired = Error("at least one sampleName:runID pair is required")

	dirPerm        = 0755
	filePerm       = 0644
	filteredSuffix = ".filtered.fastq.gz"

	outputFlag = "output"
	fastqsFlag = "fastqs"
	refFlag    = "reference-fasta"
	taxFlag    = "reference-taxonomy"

	defaultClassificationCutoff = 80
)

// options for this cmd.
var (
	runOutput      string
	runFastqDir    string
	runRefFasta    string
	runRefTaxonomy string
	runTreePath    string
	runThreads     int
	runCutoff      int
)

// runCmd represents the run command.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the amplicon pipeline.",
	Long: `Run the amplicon pipeline.

vsearch, barrnap and mothur must be in your PATH before calling this command.

Given desired samples, their FASTQ files (named sampleName.runID.fastq.gz in
the -f directory) are taken through read filtering, pooled and clustered in to
OTUs, classified against the given reference, and compared with diversity
metrics. The samples must all belong to the same project in our Google sheet,
otherwise an error will be raised.

You must specify an output directory with the -o option, which will be created
if it doesn't exist. In this output directory, a unique sub-directory will be
created per run, holding the per-sample filtering reports, each sample's
filtered reads as gzipped FASTQ, and the project report.

Samples should be supplied as a series of sampleName:runID pairs. An example
command line could look like this:
$ amplicon-automation run -o /output/dir -f /fastqs/dir \
    --reference-fasta silva.fasta --reference-taxonomy silva.tax \
    soil_a:1234 soil_b:5678

Supply a newick tree over OTU centroid ids with --tree to additionally get
UniFrac distances; without one, the report notes that the tree input was
missing.

Note that the current working directory will be used for various working files
and it is expected that you delete this directory afterwards, ie. that you run
this command via wr without --cwd_matters. -o must therefore not be a sub
directory of the current working directory, or the working directory itself.
`,
	Run: func(_ *cobra.Command, nameRunStrs []string) {
		c, err := config.FromEnv()
		if err != nil {
			die("%s", err.Error())
		}

		proj := desiredProject(c, nameRunStrs)

		if err := validateOutputDir(runOutput); err != nil {
			die("%s", err.Error())
		}

		tools, err := buildTools(proj)
		if err != nil {
			die("%s", err.Error())
		}

		agg, err := project.New(proj, tools, appLogger)
		if err != nil {
			die("%s", err.Error())
		}

		info("running project %s with %d samples", proj.ShortName, len(proj.Samples))

		result, err := agg.Run()
		if err != nil {
			var serr *filter.StageError
			if errors.As(err, &serr) {
				die("sample %s failed at the %s stage: %s", serr.Sample, serr.Stage, serr.Err)
			}

			die("%s", err.Error())
		}

		runDir, err := makeRunOutputDir(runOutput, proj.ShortName, result.RunID())
		if err != nil {
			die("%s", err.Error())
		}

		renderer := report.New(report.Config{HeaderText: c.ReportHeader})

		if err := writeReports(renderer, result, runDir); err != nil {
			die("%s", err.Error())
		}

		info("reports written to %s", runDir)
	},
}

func desiredProject(c *config.Config, nameRunStrs []string) *types.Project {
	nameRuns := nameRunStrsToNameRuns(nameRunStrs)

	client, err := newSamplesClient(c)
	if err != nil {
		die("%s", err.Error())
	}

	defer client.Close()

	merged, err := client.ForSponsor(sponsor)
	if err != nil {
		die("%s", err.Error())
	}

	desired, err := merged.Filter(nameRuns)
	if err != nil {
		die("%s", err.Error())
	}

	proj, err := desired.Project(runFastqDir)
	if err != nil {
		die("%s", err.Error())
	}

	return proj
}

func newSamplesClient(c *config.Config) (*samples.Client, error) {
	sc, err := sheets.ServiceCredentialsFromConfig(c)
	if err != nil {
		return nil, err
	}

	s, err := sheets.New(sc)
	if err != nil {
		return nil, err
	}

	db, err := mlwh.New(mlwh.MySQLConfigFromConfig(c))
	if err != nil {
		return nil, err
	}

	return samples.New(db, s, samples.ClientOptions{SheetID: c.SheetID}), nil
}

func nameRunStrsToNameRuns(nameRunStrs []string) []samples.NameRun {
	result := make([]samples.NameRun, 0, len(nameRunStrs))
	done := make(map[string]bool)

	for _, nameRunStr := range nameRunStrs {
		if done[nameRunStr] {
			continue
		}

		parts := strings.Split(nameRunStr, ":")
		if len(parts) != 2 {
			die("invalid sampleName:runID pair: %s", nameRunStr)
		}

		result = append(result, samples.NameRun{Name: parts[0], Run: parts[1]})

		done[nameRunStr] = true
	}

	if len(result) == 0 {
		die("%s", ErrSamplesRequired.Error())
	}

	return result
}

func validateOutputDir(outputDir string) error {
	absOut, err := filepath.Abs(outputDir)
	if err != nil {
		return err
	}

	wd, err := os.Getwd()
	if err != nil {
		return err
	}

	if absOut == wd || strings.HasPrefix(absOut, wd) {
		return ErrBadOutputDir
	}

	if _, err := os.Stat(outputDir); err != nil {
		err = createDirIfNotExist(outputDir, err)
		if err != nil {
			return err
		}
	}

	return nil
}

func createDirIfNotExist(dir string, statErr error) error {
	if !os.IsNotExist(statErr) {
		return statErr
	}

	return os.MkdirAll(dir, dirPerm)
}

// buildTools makes the external tool adapters the aggregator drives, giving
// each its own working directory under the current working directory.
func buildTools(proj *types.Project) (project.Tools, error) {
	tools := project.Tools{}

	chimeraDirs := make(map[string]string, len(proj.Samples))
	geneDirs := make(map[string]string, len(proj.Samples))

	for _, sample := range proj.Samples {
		chimeraDirs[sample.Name] = "chimeras_" + sample.Key()
		geneDirs[sample.Name] = "genes_" + sample.Key()

		for _, dir := range []string{chimeraDirs[sample.Name], geneDirs[sample.Name]} {
			if err := os.MkdirAll(dir, dirPerm); err != nil {
				return tools, err
			}
		}
	}

	for _, dir := range []string{"clustering", "classification"} {
		if err := os.MkdirAll(dir, dirPerm); err != nil {
			return tools, err
		}
	}

	classifier, err := mothur.NewClassifier("classification", mothur.Reference{
		FastaPath:    runRefFasta,
		TaxonomyPath: runRefTaxonomy,
	}, nil, runCutoff, runThreads)
	if err != nil {
		return tools, err
	}

	tools.Chimeras = func(sample *types.Sample) filter.ChimeraDetector {
		return vsearch.NewDetector(chimeraDirs[sample.Name], nil)
	}
	tools.Genes = func(sample *types.Sample) filter.GeneLocator {
		return barrnap.NewLocator(geneDirs[sample.Name], nil, runThreads)
	}
	tools.Clusterer = vsearch.NewClusterer("clustering", nil, runThreads)
	tools.Classifier = classifier

	if runTreePath != "" {
		tree, err := loadTree(runTreePath)
		if err != nil {
			return tools, err
		}

		tools.Tree = tree
	}

	return tools, nil
}

func loadTree(path string) (*diversity.Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return diversity.ParseNewick(strings.TrimSpace(string(data)))
}

func makeRunOutputDir(outputDir, projectName, runID string) (string, error) {
	runDir := filepath.Join(outputDir, projectName+"_"+runID)

	return runDir, os.MkdirAll(runDir, dirPerm)
}

func writeReports(renderer *report.Renderer, result *project.Result, runDir string) error {
	for _, sr := range result.Samples() {
		if err := writeSampleOutputs(renderer, sr, runDir); err != nil {
			return err
		}
	}

	text := renderer.Project(result)

	cliPrintRaw(text)

	return os.WriteFile(filepath.Join(runDir, "project.txt"), []byte(text), filePerm)
}

// writeSampleOutputs writes one sample's filtering report, and its filtered
// reads as gzipped FASTQ unless nothing survived.
func writeSampleOutputs(renderer *report.Renderer, sr *filter.Result, runDir string) error {
	path := filepath.Join(runDir, sr.Sample+".txt")

	if err := os.WriteFile(path, []byte(renderer.Sample(sr)), filePerm); err != nil {
		return err
	}

	if sr.Exhausted() {
		return nil
	}

	return fastq.Write(filepath.Join(runDir, sr.Sample+filteredSuffix), sr.Filtered)
}

func init() {
	RootCmd.AddCommand(runCmd)

	// flags specific to this sub-command
	runCmd.Flags().StringVarP(&runOutput, outputFlag, "o", "",
		"output directory for reports")
	markFlagRequired(runCmd, outputFlag)
	runCmd.Flags().StringVarP(&runFastqDir, fastqsFlag, "f", "",
		"directory containing FASTQ files")
	markFlagRequired(runCmd, fastqsFlag)
	runCmd.Flags().StringVar(&runRefFasta, refFlag, "",
		"path to the taxonomy reference alignment FASTA")
	markFlagRequired(runCmd, refFlag)
	runCmd.Flags().StringVar(&runRefTaxonomy, taxFlag, "",
		"path to the taxonomy reference lineage file")
	markFlagRequired(runCmd, taxFlag)

	runCmd.Flags().StringVar(&runTreePath, "tree", "",
		"path to a newick tree over OTU centroid ids, for UniFrac")
	runCmd.Flags().IntVar(&runThreads, "threads", 0,
		"threads for the external tools; 0 means their defaults")
	runCmd.Flags().IntVar(&runCutoff, "classification-cutoff", defaultClassificationCutoff,
		"bootstrap confidence cutoff passed to the classifier")
}

func markFlagRequired(cmd *cobra.Command, flagName string) {
	err := cmd.MarkFlagRequired(flagName)
	if err != nil {
		die("%s", err.Error())
	}
}
