// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package chromvar

import (
	"fmt"
	"math"

	"gopkg.in/check.v1"
)

type pcaSuite struct{}

var _ = check.Suite(&pcaSuite{})

func (s *pcaSuite) TestPCA(c *check.C) {
	cells := 10
	dev := &Deviations{Features: []string{"a", "b", "c"}, Z: make([]float32, cells*3)}
	for i := 0; i < cells; i++ {
		dev.Cells = append(dev.Cells, fmt.Sprintf("cell%d", i))
		// all variance along a single direction
		x := float32(i - cells/2)
		dev.Z[i*3] = x
		dev.Z[i*3+1] = 2 * x
		dev.Z[i*3+2] = 0
	}
	pca, err := deviationsPCA(dev, 2)
	c.Assert(err, check.IsNil)
	rows, cols := pca.Dims()
	c.Check(rows, check.Equals, cells)
	c.Check(cols, check.Equals, 2)
	for i := 0; i < cells; i++ {
		c.Check(math.Abs(pca.At(i, 1)) < 1e-6, check.Equals, true, check.Commentf("row %d: %v", i, pca.RawRowView(i)))
		if i > 0 {
			// neighbouring cells are one step along (1, 2, 0) apart
			step := math.Abs(pca.At(i, 0) - pca.At(i-1, 0))
			c.Check(math.Abs(step-math.Sqrt(5)) < 1e-6, check.Equals, true, check.Commentf("row %d: step %v", i, step))
		}
	}
}

func (s *pcaSuite) TestTooManyComponents(c *check.C) {
	dev := &Deviations{Cells: []string{"a", "b"}, Features: []string{"f"}, Z: []float32{1, 2}}
	_, err := deviationsPCA(dev, 2)
	c.Check(err, check.ErrorMatches, `cannot compute 2 components from 2 cells x 1 features`)
}
