// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package chromvar

import (
	"fmt"
	"sort"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"
)

// CountMatrix is a read-only cells x regions count matrix.
type CountMatrix interface {
	// Dims returns (cells, regions).
	Dims() (int, int)
	// Chunk returns rows [start, end) as a matrix with end-start
	// rows. The returned matrix must not be modified.
	Chunk(start, end int) mat.Matrix
	RowSums() []float64
	ColSums() []float64
}

// DenseCounts is a CountMatrix backed by a gonum dense matrix.
type DenseCounts struct {
	*mat.Dense
}

func (dc DenseCounts) Chunk(start, end int) mat.Matrix {
	_, cols := dc.Dense.Dims()
	return dc.Dense.Slice(start, end, 0, cols)
}

func (dc DenseCounts) RowSums() []float64 {
	rows, _ := dc.Dense.Dims()
	sums := make([]float64, rows)
	for i := range sums {
		sums[i] = mat.Sum(dc.Dense.RowView(i))
	}
	return sums
}

func (dc DenseCounts) ColSums() []float64 {
	_, cols := dc.Dense.Dims()
	sums := make([]float64, cols)
	for j := range sums {
		sums[j] = mat.Sum(dc.Dense.ColView(j))
	}
	return sums
}

// SparseCounts is a CountMatrix in compressed sparse row form. Chunks
// are *sparse.CSR values sharing the underlying index and data
// arrays.
type SparseCounts struct {
	rows, cols int
	indptr     []int
	ind        []int
	data       []float64
}

// Triplet is one non-zero entry of a count matrix, 0-based.
type Triplet struct {
	Row, Col int
	Value    float64
}

// NewSparseCounts builds a CSR count matrix from triplets in any
// order. Duplicate (row, col) entries are summed and explicit zeros
// are dropped.
func NewSparseCounts(rows, cols int, triplets []Triplet) (*SparseCounts, error) {
	for _, t := range triplets {
		if t.Row < 0 || t.Row >= rows || t.Col < 0 || t.Col >= cols {
			return nil, fmt.Errorf("entry (%d, %d) out of range for %d x %d matrix", t.Row, t.Col, rows, cols)
		}
	}
	sorted := append([]Triplet(nil), triplets...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Row != sorted[j].Row {
			return sorted[i].Row < sorted[j].Row
		}
		return sorted[i].Col < sorted[j].Col
	})
	sc := &SparseCounts{
		rows:   rows,
		cols:   cols,
		indptr: make([]int, rows+1),
	}
	for i, t := range sorted {
		if i > 0 && sorted[i-1].Row == t.Row && sorted[i-1].Col == t.Col {
			sc.data[len(sc.data)-1] += t.Value
			continue
		}
		sc.ind = append(sc.ind, t.Col)
		sc.data = append(sc.data, t.Value)
		sc.indptr[t.Row+1]++
	}
	for i := 0; i < rows; i++ {
		sc.indptr[i+1] += sc.indptr[i]
	}
	sc.dropZeros()
	return sc, nil
}

func (sc *SparseCounts) dropZeros() {
	out := 0
	rowStart := 0
	for i := 0; i < sc.rows; i++ {
		for k := rowStart; k < sc.indptr[i+1]; k++ {
			if sc.data[k] == 0 {
				continue
			}
			sc.ind[out] = sc.ind[k]
			sc.data[out] = sc.data[k]
			out++
		}
		rowStart = sc.indptr[i+1]
		sc.indptr[i+1] = out
	}
	sc.ind = sc.ind[:out]
	sc.data = sc.data[:out]
}

func (sc *SparseCounts) Dims() (int, int) { return sc.rows, sc.cols }

// NNZ returns the number of stored non-zero entries.
func (sc *SparseCounts) NNZ() int { return len(sc.data) }

func (sc *SparseCounts) Chunk(start, end int) mat.Matrix {
	lo, hi := sc.indptr[start], sc.indptr[end]
	indptr := make([]int, end-start+1)
	for i := range indptr {
		indptr[i] = sc.indptr[start+i] - lo
	}
	return sparse.NewCSR(end-start, sc.cols, indptr, sc.ind[lo:hi:hi], sc.data[lo:hi:hi])
}

func (sc *SparseCounts) RowSums() []float64 {
	sums := make([]float64, sc.rows)
	for i := range sums {
		for k := sc.indptr[i]; k < sc.indptr[i+1]; k++ {
			sums[i] += sc.data[k]
		}
	}
	return sums
}

func (sc *SparseCounts) ColSums() []float64 {
	sums := make([]float64, sc.cols)
	for k, j := range sc.ind {
		sums[j] += sc.data[k]
	}
	return sums
}

// Dense returns a dense copy.
func (sc *SparseCounts) Dense() *mat.Dense {
	d := mat.NewDense(sc.rows, sc.cols, nil)
	for i := 0; i < sc.rows; i++ {
		for k := sc.indptr[i]; k < sc.indptr[i+1]; k++ {
			d.Set(i, sc.ind[k], sc.data[k])
		}
	}
	return d
}

// chunkRanges returns the [start, end) row ranges of size at most
// size that cover [0, n) in increasing order.
func chunkRanges(n, size int) [][2]int {
	if size < 1 {
		size = 1
	}
	var ranges [][2]int
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		ranges = append(ranges, [2]int{start, end})
	}
	return ranges
}
