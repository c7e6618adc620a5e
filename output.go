// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package chromvar

import (
	"fmt"
	"os"
)

// WriteDir writes z.npy, deviations.npy, cells.txt and features.txt
// to dir, creating it if needed.
func (dev *Deviations) WriteDir(dir string) error {
	err := os.MkdirAll(dir, 0777)
	if err != nil {
		return err
	}
	rows, cols := dev.Dims()
	err = writeNumpyFloat32(dir+"/z.npy", dev.Z, rows, cols)
	if err != nil {
		return err
	}
	err = writeNumpyFloat32(dir+"/deviations.npy", dev.Bias, rows, cols)
	if err != nil {
		return err
	}
	err = writeNames(dir+"/cells.txt", dev.Cells)
	if err != nil {
		return err
	}
	return writeNames(dir+"/features.txt", dev.Features)
}

// ReadDeviationsDir reads a directory written by WriteDir.
func ReadDeviationsDir(dir string) (*Deviations, error) {
	cells, err := readLabels(dir + "/cells.txt")
	if err != nil {
		return nil, err
	}
	features, err := readLabels(dir + "/features.txt")
	if err != nil {
		return nil, err
	}
	dev := &Deviations{Cells: cells, Features: features}
	for _, x := range []struct {
		fnm string
		dst *[]float32
	}{
		{dir + "/z.npy", &dev.Z},
		{dir + "/deviations.npy", &dev.Bias},
	} {
		data, rows, cols, err := readNumpy(x.fnm)
		if err != nil {
			return nil, err
		}
		if rows != len(cells) || cols != len(features) {
			return nil, fmt.Errorf("%s: shape %d x %d does not match %d cells x %d features", x.fnm, rows, cols, len(cells), len(features))
		}
		*x.dst = make([]float32, len(data))
		for i, v := range data {
			(*x.dst)[i] = float32(v)
		}
	}
	return dev, nil
}
