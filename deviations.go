// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package chromvar

import (
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

const DefaultChunkSize = 10000

// Options control a deviation run. The zero value is usable.
type Options struct {
	// Rows of the count matrix processed together (default
	// DefaultChunkSize).
	ChunkSize int
	// Execution device (default host).
	Device Device
	// Background samples computed concurrently within a chunk
	// (default 1).
	Threads int
	// Default: discard.
	Logger logrus.FieldLogger
	// If not nil, called after each background sample and after
	// each chunk. Calls are serialized.
	Progress func(Progress)
}

// Progress describes how far a run has gotten. Sample is -1 when a
// whole chunk has finished.
type Progress struct {
	Chunk, Chunks int
	Start, End    int
	Sample        int
	Samples       int
}

// Deviations is the result of a run: cells x features matrices of
// z-scores and bias-corrected deviations.
type Deviations struct {
	Cells    []string
	Features []string
	// row-major, cells x features
	Z []float32
	// observed deviation minus mean background deviation
	Bias []float32
}

// Dims returns (cells, features).
func (dev *Deviations) Dims() (int, int) { return len(dev.Cells), len(dev.Features) }

// At returns the z-score for the given cell and feature.
func (dev *Deviations) At(cell, feature int) float32 {
	return dev.Z[cell*len(dev.Features)+feature]
}

// ZMatrix returns the z-scores as a float64 gonum matrix.
func (dev *Deviations) ZMatrix() *mat.Dense {
	rows, cols := dev.Dims()
	data := make([]float64, len(dev.Z))
	for i, v := range dev.Z {
		data[i] = float64(v)
	}
	return mat.NewDense(rows, cols, data)
}

// ComputeDeviations computes bias-corrected deviation z-scores for
// every (cell, feature) pair in ds.
func ComputeDeviations(ds *Dataset, opts Options) (*Deviations, error) {
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.Device == nil {
		opts.Device = hostDevice{}
	}
	log := opts.Logger
	if log == nil {
		l := logrus.New()
		l.Out = io.Discard
		log = l
	}

	cells, regions := ds.Counts.Dims()
	_, features := ds.MotifMatch.Dims()
	_, samples := ds.Background.Dims()
	log = log.WithField("device", opts.Device.Name())
	log.WithFields(logrus.Fields{
		"cells":     cells,
		"regions":   regions,
		"features":  features,
		"samples":   samples,
		"chunkSize": opts.ChunkSize,
		"threads":   opts.Threads,
	}).Info("computing expectation")
	expect := computeExpectation(ds.Counts)

	run := &deviationRun{
		ds:       ds,
		opts:     opts,
		expect:   expect,
		cells:    cells,
		features: features,
		samples:  samples,
		obs:      make([]float32, cells*features),
		bg:       make([]float32, samples*cells*features),
	}
	log.Info("computing observed and background deviations")
	t0 := time.Now()
	ranges := chunkRanges(cells, opts.ChunkSize)
	for chunk, r := range ranges {
		err := run.chunk(chunk, len(ranges), r[0], r[1])
		if err != nil {
			return nil, err
		}
		log.Debugf("chunk %d/%d rows %d-%d done", chunk+1, len(ranges), r[0], r[1])
	}
	log.WithField("elapsed", time.Since(t0)).Info("normalizing")
	bias, z := normalize(run.obs, run.bg, samples, cells, features)
	return &Deviations{
		Cells:    labelsOrDefault(ds.Cells, cells, "cell"),
		Features: labelsOrDefault(ds.Features, features, "feature"),
		Z:        z,
		Bias:     bias,
	}, nil
}

type deviationRun struct {
	ds       *Dataset
	opts     Options
	expect   Expectation
	cells    int
	features int
	samples  int
	// cells x features
	obs []float32
	// samples x cells x features
	bg []float32
}

// chunk fills obs and every sample's bg slice for rows [start, end).
func (run *deviationRun) chunk(chunk, chunks, start, end int) (err error) {
	defer func() {
		// gonum/blas panic on shape mismatches that Validate did
		// not anticipate
		if e := recover(); e != nil {
			err = fmt.Errorf("chunk %d (rows %d-%d): %v", chunk, start, end, e)
		}
	}()
	counts := run.ds.Counts.Chunk(start, end)
	eCell := run.expect.Cell[start:end]
	f := run.features
	run.opts.Device.Deviations(run.obs[start*f:end*f], run.ds.MotifMatch, counts, eCell, run.expect.Region)

	progress := make(chan Progress)
	progressDone := make(chan struct{})
	go func() {
		defer close(progressDone)
		for p := range progress {
			if run.opts.Progress != nil {
				run.opts.Progress(p)
			}
		}
	}()

	thr := throttle{Max: run.opts.Threads}
	for i := 0; i < run.samples; i++ {
		i := i
		thr.Go(func() (err error) {
			defer func() {
				if e := recover(); e != nil {
					err = fmt.Errorf("background sample %d, rows %d-%d: %v", i, start, end, e)
				}
			}()
			match := backgroundMatch(run.ds.MotifMatch, run.ds.Background, i)
			offset := i * run.cells * f
			run.opts.Device.Deviations(run.bg[offset+start*f:offset+end*f], match, counts, eCell, run.expect.Region)
			progress <- Progress{Chunk: chunk, Chunks: chunks, Start: start, End: end, Sample: i, Samples: run.samples}
			return nil
		})
	}
	err = thr.Wait()
	progress <- Progress{Chunk: chunk, Chunks: chunks, Start: start, End: end, Sample: -1, Samples: run.samples}
	close(progress)
	<-progressDone
	return err
}

func labelsOrDefault(labels []string, n int, prefix string) []string {
	if labels != nil {
		return labels
	}
	labels = make([]string, n)
	for i := range labels {
		labels[i] = fmt.Sprintf("%s%d", prefix, i)
	}
	return labels
}
