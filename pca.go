// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package chromvar

import (
	"flag"
	"fmt"
	"io"

	"github.com/james-bowman/nlp"
	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

// deviationsPCA projects each cell's z-scores onto the first
// components principal components. The result is cells x components.
func deviationsPCA(dev *Deviations, components int) (*mat.Dense, error) {
	cells, features := dev.Dims()
	if components < 1 || components > features || components > cells {
		return nil, fmt.Errorf("cannot compute %d components from %d cells x %d features", components, cells, features)
	}
	// nlp expects one column per observation
	mtx := dev.ZMatrix().T()
	transformer := nlp.NewPCA(components)
	transformer.Fit(mtx)
	pca, err := transformer.Transform(mtx)
	if err != nil {
		return nil, err
	}
	out := mat.DenseCopyOf(pca.T())
	return out, nil
}

type pcacmd struct{}

func (cmd *pcacmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	inputDir := flags.String("input-dir", "./out", "deviations `directory` written by the deviations command")
	outputFilename := flags.String("o", "", "output `file` (default: pca.npy in input directory)")
	components := flags.Int("components", 4, "number of components")
	err = flags.Parse(args)
	if err == flag.ErrHelp {
		err = nil
		return 0
	} else if err != nil {
		return 2
	} else if flags.NArg() > 0 {
		err = fmt.Errorf("errant command line arguments after parsed flags: %v", flags.Args())
		return 2
	}
	if *outputFilename == "" {
		*outputFilename = *inputDir + "/pca.npy"
	}

	log.Print("reading")
	dev, err := ReadDeviationsDir(*inputDir)
	if err != nil {
		return 1
	}
	log.Printf("fitting %d components", *components)
	pca, err := deviationsPCA(dev, *components)
	if err != nil {
		return 1
	}
	rows, cols := pca.Dims()
	err = writeNumpyFloat64(*outputFilename, pca.RawMatrix().Data, rows, cols)
	if err != nil {
		return 1
	}
	fmt.Fprintln(stdout, *outputFilename)
	log.Print("done")
	return 0
}
