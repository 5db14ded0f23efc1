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

package samples

import (
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/wtsi-hgi/amplicon-automation/config"
	"github.com/wtsi-hgi/amplicon-automation/mlwh"
	"github.com/wtsi-hgi/amplicon-automation/sheets"
	"github.com/wtsi-hgi/amplicon-automation/types"
)

const (
	sponsor = "Microbial Ecology"
	errMock = Error("mock error")
)

type mockMLWH struct {
	msamples  []mlwh.Sample
	queryTime time.Duration
	err       error
	mu        sync.RWMutex
}

func (m *mockMLWH) SamplesForSponsor(sponsor string) ([]mlwh.Sample, error) {
	time.Sleep(m.queryTime)

	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.msamples, m.err
}

func (m *mockMLWH) setSamples(samples []mlwh.Sample) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.msamples = samples
}

func (m *mockMLWH) setError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.err = err
}

func (m *mockMLWH) Close() error {
	return nil
}

type mockSheets struct{ smeta map[string]sheets.MetaData }

func (m *mockSheets) AmpliconMetaData(sheetID string) (map[string]sheets.MetaData, error) {
	return m.smeta, nil
}

func testMetaData(projectID string) sheets.MetaData {
	return sheets.MetaData{
		FwdPrimer: "AGAGTTTGAT",
		RevPrimer: "CGGTTACCTT",
		Filter: types.FilterParams{
			PrimerMismatches: 1,
			PrimerMaxDist:    2,
			MinReadLength:    1000,
			MaxReadLength:    2000,
			PhredWindowSize:  10,
			PhredThreshold:   20,
		},
		Extraction: types.ExtractionOff,
		ProjectMetaData: sheets.ProjectMetaData{
			ProjectID:    projectID,
			ProjectName:  "The " + projectID + " project",
			OTUThreshold: 0.97,
			OTUMinSize:   2,
		},
	}
}

func TestSamplesMock(t *testing.T) {
	Convey("Given mock mlwh and sheets connections", t, func() {
		msamples := []mlwh.Sample{
			{
				SampleID:   "sampleID1",
				SampleName: "sample1",
				RunID:      "run1",
				StudyID:    "studyID1",
				StudyName:  "study1",
				QCPass:     true,
			},
			{
				SampleID:   "sampleID2",
				SampleName: "sample2",
				RunID:      "run2",
				StudyID:    "studyID1",
				StudyName:  "study1",
			},
			{
				SampleID:   "sampleID3",
				SampleName: "sample3",
				RunID:      "run3",
				StudyID:    "studyID1",
				StudyName:  "study1",
				QCPass:     true,
			},
			{
				SampleID:   "sampleID4",
				SampleName: "sample4",
				RunID:      "run4",
				StudyID:    "studyID2",
				StudyName:  "study2",
				QCPass:     true,
			},
		}
		mlwhQueryTime := 100 * time.Millisecond
		mclient := &mockMLWH{msamples: msamples, queryTime: mlwhQueryTime}

		smeta := map[string]sheets.MetaData{
			"sample1": testMetaData("soil_survey"),
			"sample2": testMetaData("soil_survey"),
			"sample3": testMetaData("soil_survey"),
			"sample4": testMetaData("gut_flora"),
			"sample5": testMetaData("gut_flora"),
		}

		sclient := &mockSheets{smeta: smeta}

		allowedAge := 2 * mlwhQueryTime
		c := New(mclient, sclient, ClientOptions{
			SheetID:       "sheetID",
			CacheLifetime: allowedAge,
			Prefetch:      []string{sponsor},
		})
		createTime := time.Now()

		defer c.Close()

		So(c.LastPrefetchSuccess(), ShouldHappenBefore, createTime)

		Convey("You can get info about samples belonging to a given sponsor", func() {
			start := time.Now()
			merged, err := c.ForSponsor(sponsor)
			So(err, ShouldBeNil)

			// sample2 failed qc, and sample5 is not in mlwh
			So(len(merged), ShouldEqual, 3)
			So(merged[0].SampleName, ShouldEqual, "sample1")
			So(merged[0].FwdPrimer, ShouldEqual, "AGAGTTTGAT")
			So(merged[0].ProjectID, ShouldEqual, "soil_survey")
			So(merged[2].ProjectID, ShouldEqual, "gut_flora")

			So(time.Since(start), ShouldBeLessThan, mlwhQueryTime)
			So(c.LastPrefetchSuccess(), ShouldHappenBefore, createTime)

			Convey("Queries to mlwh and sheets are cached", func() {
				mclient.setSamples(msamples[0:1])

				time.Sleep(mlwhQueryTime / 2)

				start = time.Now()
				cached, err := c.ForSponsor(sponsor)
				So(err, ShouldBeNil)
				So(cached, ShouldResemble, merged)
				So(time.Since(start), ShouldBeLessThan, mlwhQueryTime)

				Convey("And the cache expires and auto-renews", func() {
					time.Sleep(allowedAge * 2)

					start = time.Now()
					fresh, err := c.ForSponsor(sponsor)
					So(err, ShouldBeNil)
					So(len(fresh), ShouldEqual, 1)
					So(fresh[0].SampleName, ShouldEqual, "sample1")

					So(time.Since(start), ShouldBeLessThan, mlwhQueryTime)
					So(c.LastPrefetchSuccess(), ShouldHappenAfter, createTime)
				})

				Convey("Prefetch errors are captured", func() {
					mclient.setError(errMock)
					So(c.Err(), ShouldBeNil)

					time.Sleep(allowedAge * 2)

					So(c.Err(), ShouldEqual, errMock)

					stale, err := c.ForSponsor(sponsor)
					So(err, ShouldBeNil)
					So(len(stale), ShouldEqual, 3)
					So(c.LastPrefetchSuccess(), ShouldHappenBefore, createTime)
				})
			})

			Convey("You can filter those for desired samples", func() {
				subset, err := merged.Filter([]NameRun{
					{Name: "sample1", Run: "run1"},
					{Name: "sample3", Run: "run3"},
				})
				So(err, ShouldBeNil)
				So(len(subset), ShouldEqual, 2)
				So(subset[0].SampleName, ShouldEqual, "sample1")
				So(subset[1].SampleName, ShouldEqual, "sample3")

				_, err = merged.Filter([]NameRun{{Name: "sample1"}})
				So(err, ShouldEqual, ErrInvalidNameRun)

				_, err = merged.Filter(nil)
				So(err, ShouldEqual, ErrNoNameRun)

				_, err = merged.Filter([]NameRun{{Name: "nonesuch", Run: "run9"}})
				So(err, ShouldEqual, ErrNameRunsNotFound)

				Convey("And convert a subset in to a runnable project", func() {
					p, err := subset.Project("/fastqs")
					So(err, ShouldBeNil)
					So(p.ShortName, ShouldEqual, "soil_survey")
					So(p.LongName, ShouldEqual, "The soil_survey project")
					So(p.OTUThreshold, ShouldEqual, 0.97)
					So(p.OTUMinSize, ShouldEqual, 2)
					So(p.SampleNames(), ShouldResemble, []string{"sample1", "sample3"})
					So(p.Samples[0].FastqPath, ShouldEqual, "/fastqs/sample1.run1.fastq.gz")
					So(p.Samples[0].FwdPrimer, ShouldEqual, "AGAGTTTGAT")
					So(p.Samples[0].Filter.PhredWindowSize, ShouldEqual, 10)
				})

				Convey("But not a project from samples of different projects", func() {
					mixed, err := merged.Filter([]NameRun{
						{Name: "sample1", Run: "run1"},
						{Name: "sample4", Run: "run4"},
					})
					So(err, ShouldBeNil)

					_, err = mixed.Project("/fastqs")
					So(err, ShouldEqual, ErrMultipleProjects)
				})

				Convey("Nor a project from no samples", func() {
					_, err := Samples{}.Project("/fastqs")
					So(err, ShouldEqual, ErrNameRunsNotFound)
				})
			})
		})
	})
}

func TestSamplesReal(t *testing.T) {
	c, err := config.FromEnv("..")
	if err != nil {
		SkipConvey("skipping real samples tests without AMPLICON_AUTOMATION_* set", t, func() {})

		return
	}

	Convey("Given mlwh and sheets connections", t, func() {
		db, err := mlwh.New(mlwh.MySQLConfigFromConfig(c))
		So(err, ShouldBeNil)

		sc, err := sheets.ServiceCredentialsFromConfig(c)
		So(err, ShouldBeNil)

		s, err := sheets.New(sc)
		So(err, ShouldBeNil)

		client := New(db, s, ClientOptions{
			SheetID:       c.SheetID,
			CacheLifetime: 1 * time.Minute,
		})

		defer client.Close()

		Convey("You can get un-cached, un-prefetched info about samples belonging to a given sponsor", func() {
			start := time.Now()
			merged, err := client.ForSponsor(sponsor)
			So(err, ShouldBeNil)
			So(len(merged), ShouldBeGreaterThan, 0)

			sample := merged[0]
			So(sample.SampleName, ShouldNotBeBlank)
			So(sample.RunID, ShouldNotBeBlank)
			So(sample.StudyID, ShouldNotBeBlank)
			So(sample.ProjectID, ShouldNotBeBlank)
			So(sample.FwdPrimer, ShouldNotBeBlank)
			So(sample.RevPrimer, ShouldNotBeBlank)

			Convey("Which is then cached", func() {
				cachedStart := time.Now()
				cached, err := client.ForSponsor(sponsor)
				So(err, ShouldBeNil)
				So(cached, ShouldResemble, merged)
				So(time.Since(cachedStart), ShouldBeLessThan, time.Since(start))
			})
		})
	})
}
