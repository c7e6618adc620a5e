// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package chromvar

import (
	"bytes"
	"fmt"
	"math/rand"
	"strings"

	"gopkg.in/check.v1"
)

type differentialSuite struct{}

var _ = check.Suite(&differentialSuite{})

func (s *differentialSuite) TestDifferential(c *check.C) {
	rnd := rand.New(rand.NewSource(2))
	cells := 60
	dev := &Deviations{
		Features: []string{"erythroid", "shared"},
		Z:        make([]float32, cells*2),
	}
	var groups []string
	for i := 0; i < cells; i++ {
		dev.Cells = append(dev.Cells, fmt.Sprintf("cell%d", i))
		group := "B"
		shift := -2.0
		if i%2 == 0 {
			group = "A"
			shift = 2
		}
		groups = append(groups, group)
		dev.Z[i*2] = float32(shift + 0.5*rnd.NormFloat64())
		// same values in both groups
		dev.Z[i*2+1] = float32((i/2)%5 - 2)
	}
	labels, diffs, err := differentialDeviations(dev, groups)
	c.Assert(err, check.IsNil)
	c.Check(labels, check.DeepEquals, []string{"A", "B"})
	c.Assert(diffs, check.HasLen, 2)

	c.Check(diffs[0].Feature, check.Equals, "erythroid")
	c.Check(diffs[0].Means[0] > 1.5, check.Equals, true, check.Commentf("%v", diffs[0]))
	c.Check(diffs[0].Means[1] < -1.5, check.Equals, true, check.Commentf("%v", diffs[0]))
	c.Check(diffs[0].PValue < 1e-10, check.Equals, true, check.Commentf("%v", diffs[0]))

	c.Check(diffs[1].Means[0], check.Equals, diffs[1].Means[1])
	c.Check(diffs[1].PValue > 0.9, check.Equals, true, check.Commentf("%v", diffs[1]))

	var buf bytes.Buffer
	c.Assert(writeDifferentialTSV(&buf, labels, diffs), check.IsNil)
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	c.Check(lines, check.HasLen, 3)
	c.Check(lines[0], check.Equals, "feature\tmean:A\tmean:B\tF\tp_value\tp_value_adj")
	c.Check(lines[2], check.Matches, `shared\t0\t0\t.*`)
}

func (s *differentialSuite) TestThreeGroups(c *check.C) {
	dev := &Deviations{
		Cells:    []string{"a1", "a2", "b1", "b2", "c1", "c2"},
		Features: []string{"f"},
		Z:        []float32{1, 1.2, 5, 5.2, 9, 9.2},
	}
	labels, diffs, err := differentialDeviations(dev, []string{"x", "x", "y", "y", "z", "z"})
	c.Assert(err, check.IsNil)
	c.Check(labels, check.DeepEquals, []string{"x", "y", "z"})
	c.Check(diffs[0].PValue < 1e-4, check.Equals, true, check.Commentf("%v", diffs[0]))
	c.Check(fmt.Sprintf("%.2f %.2f %.2f", diffs[0].Means[0], diffs[0].Means[1], diffs[0].Means[2]), check.Equals, "1.10 5.10 9.10")
}

func (s *differentialSuite) TestErrors(c *check.C) {
	dev := &Deviations{
		Cells:    []string{"a", "b", "c"},
		Features: []string{"f"},
		Z:        []float32{1, 2, 3},
	}
	_, _, err := differentialDeviations(dev, []string{"x", "y"})
	c.Check(err, check.ErrorMatches, `2 group labels for 3 cells`)
	_, _, err = differentialDeviations(dev, []string{"x", "x", "x"})
	c.Check(err, check.ErrorMatches, `need at least 2 groups, have 1`)
	_, _, err = differentialDeviations(dev, []string{"x", "y", "z"})
	c.Check(err, check.ErrorMatches, `need more cells \(3\) than groups \(3\)`)
}
