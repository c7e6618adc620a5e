// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package chromvar

import (
	"errors"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrNoCounts     = errors.New("dataset has no count matrix")
	ErrNoMotifMatch = errors.New("dataset has no motif match matrix")
	ErrNoBackground = errors.New("dataset has no background peaks, generate them before computing deviations")
)

// BackgroundPeaks is a regions x samples matrix of region indices.
// Column i lists, for each region j, the region whose match row
// replaces region j's in background sample i.
type BackgroundPeaks struct {
	regions, samples int
	// row-major, regions x samples
	idx []int
}

// NewBackgroundPeaks returns a BackgroundPeaks backed by idx, a
// row-major regions x samples array.
func NewBackgroundPeaks(regions, samples int, idx []int) (*BackgroundPeaks, error) {
	if regions*samples != len(idx) {
		return nil, fmt.Errorf("background peaks: %d values do not fill %d x %d", len(idx), regions, samples)
	}
	for k, v := range idx {
		if v < 0 || v >= regions {
			return nil, fmt.Errorf("background peaks: region index %d at row %d, sample %d is out of range [0, %d)", v, k/samples, k%samples, regions)
		}
	}
	return &BackgroundPeaks{regions: regions, samples: samples, idx: idx}, nil
}

// Dims returns (regions, samples).
func (bp *BackgroundPeaks) Dims() (int, int) { return bp.regions, bp.samples }

// Column returns the region indices for background sample i.
func (bp *BackgroundPeaks) Column(i int) []int {
	col := make([]int, bp.regions)
	for j := range col {
		col[j] = bp.idx[j*bp.samples+i]
	}
	return col
}

// Dataset holds the inputs of a deviation run. None of them are
// modified.
type Dataset struct {
	// cells x regions
	Counts CountMatrix
	// regions x features
	MotifMatch *mat.Dense
	// regions x background samples
	Background *BackgroundPeaks
	Cells      []string
	Features   []string
}

// Validate checks that all required inputs are present and have
// consistent shapes.
func (ds *Dataset) Validate() error {
	if ds.Counts == nil {
		return ErrNoCounts
	}
	if ds.MotifMatch == nil {
		return ErrNoMotifMatch
	}
	if ds.Background == nil {
		return ErrNoBackground
	}
	cells, regions := ds.Counts.Dims()
	if cells == 0 || regions == 0 {
		return fmt.Errorf("count matrix is empty (%d cells x %d regions)", cells, regions)
	}
	matchRegions, features := ds.MotifMatch.Dims()
	if matchRegions != regions {
		return fmt.Errorf("motif match matrix has %d rows, count matrix has %d regions", matchRegions, regions)
	}
	bgRegions, samples := ds.Background.Dims()
	if bgRegions != regions {
		return fmt.Errorf("background peaks have %d rows, count matrix has %d regions", bgRegions, regions)
	}
	if samples == 0 {
		return fmt.Errorf("background peaks: no samples: %w", ErrNoBackground)
	}
	if ds.Cells != nil && len(ds.Cells) != cells {
		return fmt.Errorf("%d cell names for %d cells", len(ds.Cells), cells)
	}
	if ds.Features != nil && len(ds.Features) != features {
		return fmt.Errorf("%d feature names for %d features", len(ds.Features), features)
	}
	for _, labels := range []struct {
		what  string
		names []string
	}{{"cell", ds.Cells}, {"feature", ds.Features}} {
		for i, name := range labels.names {
			if strings.ContainsAny(name, "\r\n") {
				return fmt.Errorf("%s name %d (%q) contains a line break", labels.what, i, name)
			}
		}
	}
	return nil
}

// backgroundMatch returns the match matrix for background sample i:
// row j is row bp.Column(i)[j] of match.
func backgroundMatch(match *mat.Dense, bp *BackgroundPeaks, i int) *mat.Dense {
	regions, features := match.Dims()
	bg := mat.NewDense(regions, features, nil)
	for j, src := range bp.Column(i) {
		bg.SetRow(j, match.RawRowView(src))
	}
	return bg
}
