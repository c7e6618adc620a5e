// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package chromvar

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// normalize compares observed deviations (cells x features) with the
// background ensemble (samples x cells x features). It returns the
// bias-corrected deviations obs-mean and the z-scores
// (obs-mean)/std, where std is the population standard deviation over
// samples. Non-finite deviations and z-scores are replaced with 0.
func normalize(obs, bg []float32, samples, cells, features int) (bias, z []float32) {
	n := cells * features
	bias = make([]float32, n)
	z = make([]float32, n)
	ensemble := make([]float64, samples)
	for k := 0; k < n; k++ {
		constant := true
		for i := range ensemble {
			ensemble[i] = float64(bg[i*n+k])
			constant = constant && ensemble[i] == ensemble[0]
		}
		mean := stat.Mean(ensemble, nil)
		var std float64
		if constant {
			// avoid a tiny non-zero std from rounding in the mean
			mean = ensemble[0]
		} else {
			std = math.Sqrt(stat.MomentAbout(2, ensemble, mean, nil))
		}
		d := float64(obs[k]) - mean
		if math.IsInf(d, 0) || math.IsNaN(d) {
			d = 0
		}
		bias[k] = float32(d)
		zk := float32(d / std)
		if math.IsNaN(float64(zk)) || math.IsInf(float64(zk), 0) {
			zk = 0
		}
		z[k] = zk
	}
	return bias, z
}
