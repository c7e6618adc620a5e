// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package chromvar

import (
	"strings"

	"gonum.org/v1/gonum/mat"
	"gopkg.in/check.v1"
)

type mtxSuite struct{}

var _ = check.Suite(&mtxSuite{})

func (s *mtxSuite) TestParse(c *check.C) {
	sc, err := parseMatrixMarket(strings.NewReader(`%%MatrixMarket matrix coordinate integer general
% cells x peaks
3 4 5
1 2 3
3 1 7
3 4 5
1 2 1

2 3 0
`))
	c.Assert(err, check.IsNil)
	c.Check(mat.Equal(sc.Dense(), mat.NewDense(3, 4, []float64{
		0, 4, 0, 0,
		0, 0, 0, 0,
		7, 0, 0, 5,
	})), check.Equals, true)
}

func (s *mtxSuite) TestErrors(c *check.C) {
	for _, trial := range []struct {
		in  string
		err string
	}{
		{"", `missing size line`},
		{"%%MatrixMarket matrix array real general\n2 2\n", `line 1: not a coordinate Matrix Market header.*`},
		{"%%MatrixMarket matrix coordinate complex general\n", `line 1: unsupported field type "complex"`},
		{"%%MatrixMarket matrix coordinate real symmetric\n", `line 1: unsupported symmetry "symmetric"`},
		{"%%MatrixMarket matrix coordinate real general\n2 2 2\n1 1 1\n", `read 1 entries, size line says 2`},
		{"%%MatrixMarket matrix coordinate real general\n2 2 1\n1 1 -1\n", `line 3: negative count -1`},
		{"%%MatrixMarket matrix coordinate real general\n2 2 1\n3 1 1\n", `entry \(2, 0\) out of range for 2 x 2 matrix`},
		{"%%MatrixMarket matrix coordinate real general\n2 2 1\n1 x 1\n", `line 3: col: .*`},
	} {
		_, err := parseMatrixMarket(strings.NewReader(trial.in))
		c.Check(err, check.ErrorMatches, trial.err, check.Commentf("%q", trial.in))
	}
}
