// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package chromvar

import (
	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/check.v1"
)

type countsSuite struct{}

var _ = check.Suite(&countsSuite{})

func (s *countsSuite) TestChunkRanges(c *check.C) {
	for _, trial := range []struct {
		n, size int
		out     [][2]int
	}{
		{10, 3, [][2]int{{0, 3}, {3, 6}, {6, 9}, {9, 10}}},
		{10, 5, [][2]int{{0, 5}, {5, 10}}},
		{10, 10, [][2]int{{0, 10}}},
		{10, 10000, [][2]int{{0, 10}}},
		{1, 1, [][2]int{{0, 1}}},
		{0, 5, nil},
	} {
		c.Check(chunkRanges(trial.n, trial.size), check.DeepEquals, trial.out, check.Commentf("n=%d size=%d", trial.n, trial.size))
	}
}

func (s *countsSuite) TestSparseCounts(c *check.C) {
	sc, err := NewSparseCounts(3, 4, []Triplet{
		{2, 3, 5},
		{0, 1, 1},
		{0, 1, 2},
		{1, 0, 0},
		{2, 0, 7},
	})
	c.Assert(err, check.IsNil)
	c.Check(sc.NNZ(), check.Equals, 3)
	c.Check(mat.Equal(sc.Dense(), mat.NewDense(3, 4, []float64{
		0, 3, 0, 0,
		0, 0, 0, 0,
		7, 0, 0, 5,
	})), check.Equals, true)
	c.Check(sc.RowSums(), check.DeepEquals, []float64{3, 0, 12})
	c.Check(sc.ColSums(), check.DeepEquals, []float64{7, 3, 0, 5})

	chunk := sc.Chunk(1, 3)
	csr, ok := chunk.(*sparse.CSR)
	c.Assert(ok, check.Equals, true)
	rows, cols := csr.Dims()
	c.Check(rows, check.Equals, 2)
	c.Check(cols, check.Equals, 4)
	c.Check(csr.At(0, 0), check.Equals, 0.0)
	c.Check(csr.At(1, 0), check.Equals, 7.0)
	c.Check(csr.At(1, 3), check.Equals, 5.0)
}

func (s *countsSuite) TestSparseCountsOutOfRange(c *check.C) {
	_, err := NewSparseCounts(2, 2, []Triplet{{2, 0, 1}})
	c.Check(err, check.ErrorMatches, `entry \(2, 0\) out of range.*`)
}

func (s *countsSuite) TestDenseCounts(c *check.C) {
	dc := DenseCounts{mat.NewDense(3, 2, []float64{
		1, 2,
		3, 4,
		5, 6,
	})}
	c.Check(dc.RowSums(), check.DeepEquals, []float64{3, 7, 11})
	c.Check(dc.ColSums(), check.DeepEquals, []float64{9, 12})
	chunk := dc.Chunk(1, 3)
	rows, cols := chunk.Dims()
	c.Check(rows, check.Equals, 2)
	c.Check(cols, check.Equals, 2)
	c.Check(chunk.At(0, 0), check.Equals, 3.0)
	c.Check(chunk.At(1, 1), check.Equals, 6.0)
}
