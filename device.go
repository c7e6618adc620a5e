// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package chromvar

import (
	"errors"
	"fmt"
	"math"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
	"gonum.org/v1/gonum/mat"
)

var ErrDeviceUnavailable = errors.New("execution device unavailable")

// A Device computes observed-vs-expected deviations for one chunk of
// cells against one (regions x features) match matrix:
//
//	observed = counts * match
//	expected = eCell * (eRegion * match)
//	dst      = (observed - expected) / expected, or 0 where expected == 0
//	           or the float32 result would be infinite
//
// dst is row-major, rows x features. Implementations must be safe
// for concurrent use.
type Device interface {
	Name() string
	Deviations(dst []float32, match *mat.Dense, counts mat.Matrix, eCell, eRegion []float64)
}

// NewDevice returns the named execution device. "host" (or "") does
// float64 arithmetic in host memory and keeps sparse counts sparse;
// "dense32" does single-precision dense arithmetic through the blas32
// implementation registered with blas32.Use.
func NewDevice(name string) (Device, error) {
	switch name {
	case "", "host":
		return hostDevice{}, nil
	case "dense32":
		return denseDevice{}, nil
	}
	return nil, fmt.Errorf("%q: %w", name, ErrDeviceUnavailable)
}

// guardedDeviation returns (observed-expected)/expected, or 0 where
// expected is 0 or the quotient does not fit in a float32.
func guardedDeviation(observed, expected float64) float32 {
	if expected == 0 {
		return 0
	}
	d := float32((observed - expected) / expected)
	if math.IsInf(float64(d), 0) || math.IsNaN(float64(d)) {
		return 0
	}
	return d
}

// hostDevice computes in float64 and rounds each deviation to float32
// only when storing it in dst.
type hostDevice struct{}

func (hostDevice) Name() string { return "host" }

func (hostDevice) Deviations(dst []float32, match *mat.Dense, counts mat.Matrix, eCell, eRegion []float64) {
	rows, regions := counts.Dims()
	_, features := match.Dims()
	observed := mat.NewDense(rows, features, nil)
	if csr, ok := counts.(*sparse.CSR); ok {
		obs := observed.RawMatrix()
		csr.DoNonZero(func(i, j int, v float64) {
			out := obs.Data[i*obs.Stride : i*obs.Stride+features]
			for f, m := range match.RawRowView(j) {
				out[f] += v * m
			}
		})
	} else {
		observed.Mul(counts, match)
	}

	// Multiply the region expectation into match first, so the
	// rows x regions expectation matrix is never built.
	regionMatch := mat.NewVecDense(features, nil)
	regionMatch.MulVec(match.T(), mat.NewVecDense(regions, eRegion))

	for i := 0; i < rows; i++ {
		for f := 0; f < features; f++ {
			dst[i*features+f] = guardedDeviation(observed.At(i, f), eCell[i]*regionMatch.AtVec(f))
		}
	}
}

type denseDevice struct{}

func (denseDevice) Name() string { return "dense32" }

func (denseDevice) Deviations(dst []float32, match *mat.Dense, counts mat.Matrix, eCell, eRegion []float64) {
	c := general32(counts)
	m := general32(match)
	rows, features := c.Rows, m.Cols

	observed := newGeneral32(rows, features)
	blas32.Gemm(blas.NoTrans, blas.NoTrans, 1, c, m, 0, observed)

	er := blas32.General{Rows: 1, Cols: len(eRegion), Stride: len(eRegion), Data: float32s(eRegion)}
	regionMatch := newGeneral32(1, features)
	blas32.Gemm(blas.NoTrans, blas.NoTrans, 1, er, m, 0, regionMatch)

	ec := blas32.General{Rows: rows, Cols: 1, Stride: 1, Data: float32s(eCell)}
	expected := newGeneral32(rows, features)
	blas32.Gemm(blas.NoTrans, blas.NoTrans, 1, ec, regionMatch, 0, expected)

	for k, exp := range expected.Data {
		dst[k] = 0
		if exp == 0 {
			continue
		}
		d := (observed.Data[k] - exp) / exp
		if !math.IsInf(float64(d), 0) && !math.IsNaN(float64(d)) {
			dst[k] = d
		}
	}
}

func newGeneral32(rows, cols int) blas32.General {
	return blas32.General{Rows: rows, Cols: cols, Stride: cols, Data: make([]float32, rows*cols)}
}

// general32 copies m into a dense single-precision matrix. Sparse
// inputs are materialized.
func general32(m mat.Matrix) blas32.General {
	rows, cols := m.Dims()
	g := newGeneral32(rows, cols)
	switch m := m.(type) {
	case *sparse.CSR:
		m.DoNonZero(func(i, j int, v float64) {
			g.Data[i*cols+j] = float32(v)
		})
	case *mat.Dense:
		raw := m.RawMatrix()
		for i := 0; i < rows; i++ {
			for j, v := range raw.Data[i*raw.Stride : i*raw.Stride+cols] {
				g.Data[i*cols+j] = float32(v)
			}
		}
	default:
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				g.Data[i*cols+j] = float32(m.At(i, j))
			}
		}
	}
	return g
}

func float32s(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}
