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

// package fastq moves sequence collections in and out of FASTQ and FASTA
// files, transparently handling gzipped paths.

package fastq

import (
	"fmt"
	"io"

	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/bio/seqio/fastx"
	"github.com/shenwei356/xopen"
	"github.com/wtsi-hgi/amplicon-automation/types"
)

type Error string

func (e Error) Error() string { return string(e) }

const (
	ErrNoQuality = Error("record has no quality scores; input is not FASTQ")

	phredOffset = 33
)

// Load reads every record of the FASTQ file at path into a Collection,
// tagging each sequence with the given sample name. The file may be gzipped.
// Structural problems in the file (truncated records, length mismatches) are
// fatal.
func Load(path, sample string) (types.Collection, error) {
	reader, err := fastx.NewReader(seq.DNAredundant, path, fastx.DefaultIDRegexp)
	if err != nil {
		return nil, err
	}

	defer reader.Close()

	var c types.Collection

	for {
		record, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}

			return nil, err
		}

		s, err := toSequence(record, sample)
		if err != nil {
			return nil, err
		}

		c = append(c, s)
	}

	return c, nil
}

// toSequence copies a parsed record into our own representation; the reader
// reuses record buffers between calls, so nothing may be retained by
// reference.
func toSequence(record *fastx.Record, sample string) (types.Sequence, error) {
	if len(record.Seq.Qual) == 0 {
		return types.Sequence{}, ErrNoQuality
	}

	qual := make([]int, len(record.Seq.Qual))
	for i, q := range record.Seq.Qual {
		qual[i] = int(q) - phredOffset
	}

	return types.Sequence{
		ID:     string(record.ID),
		Sample: sample,
		Seq:    string(record.Seq.Seq),
		Qual:   qual,
	}, nil
}

// Write stores the collection as a FASTQ file at path, gzipped if the path
// ends in .gz.
func Write(path string, c types.Collection) error {
	outfh, err := xopen.Wopen(path)
	if err != nil {
		return err
	}

	for _, s := range c {
		qual := make([]byte, len(s.Qual))
		for i, q := range s.Qual {
			qual[i] = byte(q + phredOffset)
		}

		if _, err := fmt.Fprintf(outfh, "@%s\n%s\n+\n%s\n", s.ID, s.Seq, qual); err != nil {
			outfh.Close()

			return err
		}
	}

	return outfh.Close()
}

// WriteFASTA stores the collection as a FASTA file at path, dropping quality
// scores. Clustering and classification tools take their input in this form.
func WriteFASTA(path string, c types.Collection) error {
	outfh, err := xopen.Wopen(path)
	if err != nil {
		return err
	}

	for _, s := range c {
		if _, err := fmt.Fprintf(outfh, ">%s\n%s\n", s.ID, s.Seq); err != nil {
			outfh.Close()

			return err
		}
	}

	return outfh.Close()
}
