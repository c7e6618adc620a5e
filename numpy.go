// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package chromvar

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kshedden/gonpy"
	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

// readNumpy reads a 1- or 2-dimensional numeric .npy array (or
// .npy.gz) and returns its values in row-major order.
func readNumpy(fnm string) (data []float64, rows, cols int, err error) {
	f, err := zopen(fnm)
	if err != nil {
		return
	}
	defer f.Close()
	npy, err := gonpy.NewReader(bufio.NewReaderSize(f, 1<<20))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%s: %w", fnm, err)
	}
	switch len(npy.Shape) {
	case 1:
		rows, cols = npy.Shape[0], 1
	case 2:
		rows, cols = npy.Shape[0], npy.Shape[1]
	default:
		return nil, 0, 0, fmt.Errorf("%s: cannot use %d-dimensional array", fnm, len(npy.Shape))
	}
	data, err = npyFloat64(npy)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%s: %w", fnm, err)
	}
	if len(data) != rows*cols {
		return nil, 0, 0, fmt.Errorf("%s: read %d values, expected %d x %d", fnm, len(data), rows, cols)
	}
	if npy.ColumnMajor && rows > 1 && cols > 1 {
		t := make([]float64, len(data))
		for j := 0; j < cols; j++ {
			for i := 0; i < rows; i++ {
				t[i*cols+j] = data[j*rows+i]
			}
		}
		data = t
	}
	return data, rows, cols, nil
}

func npyFloat64(npy *gonpy.NpyReader) ([]float64, error) {
	var out []float64
	switch strings.TrimLeft(npy.Dtype, "<>|=") {
	case "f8":
		return npy.GetFloat64()
	case "f4":
		in, err := npy.GetFloat32()
		if err != nil {
			return nil, err
		}
		out = make([]float64, len(in))
		for i, v := range in {
			out[i] = float64(v)
		}
	case "i8":
		in, err := npy.GetInt64()
		if err != nil {
			return nil, err
		}
		out = make([]float64, len(in))
		for i, v := range in {
			out[i] = float64(v)
		}
	case "i4":
		in, err := npy.GetInt32()
		if err != nil {
			return nil, err
		}
		out = make([]float64, len(in))
		for i, v := range in {
			out[i] = float64(v)
		}
	case "i2":
		in, err := npy.GetInt16()
		if err != nil {
			return nil, err
		}
		out = make([]float64, len(in))
		for i, v := range in {
			out[i] = float64(v)
		}
	case "i1":
		in, err := npy.GetInt8()
		if err != nil {
			return nil, err
		}
		out = make([]float64, len(in))
		for i, v := range in {
			out[i] = float64(v)
		}
	case "u1":
		in, err := npy.GetUint8()
		if err != nil {
			return nil, err
		}
		out = make([]float64, len(in))
		for i, v := range in {
			out[i] = float64(v)
		}
	default:
		return nil, fmt.Errorf("unsupported dtype %q (convert boolean arrays to uint8)", npy.Dtype)
	}
	return out, nil
}

func readNumpyMatrix(fnm string) (*mat.Dense, error) {
	data, rows, cols, err := readNumpy(fnm)
	if err != nil {
		return nil, err
	}
	if rows == 0 || cols == 0 {
		return nil, fmt.Errorf("%s: empty matrix (%d x %d)", fnm, rows, cols)
	}
	return mat.NewDense(rows, cols, data), nil
}

func readBackgroundPeaks(fnm string) (*BackgroundPeaks, error) {
	data, rows, cols, err := readNumpy(fnm)
	if err != nil {
		return nil, err
	}
	idx := make([]int, len(data))
	for i, v := range data {
		idx[i] = int(v)
		if float64(idx[i]) != v {
			return nil, fmt.Errorf("%s: non-integer region index %v", fnm, v)
		}
	}
	bp, err := NewBackgroundPeaks(rows, cols, idx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fnm, err)
	}
	return bp, nil
}

func writeNumpyFloat32(fnm string, out []float32, rows, cols int) error {
	output, err := os.Create(fnm)
	if err != nil {
		return err
	}
	defer output.Close()
	bufw := bufio.NewWriterSize(output, 1<<26)
	npw, err := gonpy.NewWriter(nopCloser{bufw})
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"filename": fnm,
		"rows":     rows,
		"cols":     cols,
		"bytes":    rows * cols * 4,
	}).Infof("writing numpy: %s", fnm)
	npw.Shape = []int{rows, cols}
	err = npw.WriteFloat32(out)
	if err != nil {
		return fmt.Errorf("%s: WriteFloat32: %w", fnm, err)
	}
	err = bufw.Flush()
	if err != nil {
		return err
	}
	return output.Close()
}

func writeNumpyFloat64(fnm string, out []float64, rows, cols int) error {
	output, err := os.Create(fnm)
	if err != nil {
		return err
	}
	defer output.Close()
	bufw := bufio.NewWriter(output)
	npw, err := gonpy.NewWriter(nopCloser{bufw})
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"filename": fnm,
		"rows":     rows,
		"cols":     cols,
	}).Infof("writing numpy: %s", fnm)
	npw.Shape = []int{rows, cols}
	err = npw.WriteFloat64(out)
	if err != nil {
		return fmt.Errorf("%s: WriteFloat64: %w", fnm, err)
	}
	err = bufw.Flush()
	if err != nil {
		return err
	}
	return output.Close()
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
