// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package chromvar

import "gonum.org/v1/gonum/floats"

// Expectation is the rank-1 null model of accessibility: the expected
// count for cell i in region j is Cell[i] * Region[j].
//
// Values are rounded to single precision, matching the precision of
// the deviation accumulators.
type Expectation struct {
	// Total count per cell.
	Cell []float64
	// Fraction of all counts falling in each region. Sums to 1
	// unless the count matrix is empty.
	Region []float64
}

func computeExpectation(counts CountMatrix) Expectation {
	colsums := counts.ColSums()
	total := floats.Sum(colsums)
	region := make([]float64, len(colsums))
	if total > 0 {
		for j, v := range colsums {
			region[j] = float64(float32(v / total))
		}
	}
	cell := counts.RowSums()
	for i, v := range cell {
		cell[i] = float64(float32(v))
	}
	return Expectation{Cell: cell, Region: region}
}
