// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package chromvar

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"math"
	"sort"

	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

type VariabilityOptions struct {
	// Bootstrap draws per feature. 0 disables the bootstrap
	// interval.
	Bootstrap int
	// Quantiles of the bootstrap distribution to report
	// (default 0.025 and 0.975).
	Lower, Upper float64
	Seed         uint64
}

// Variability summarizes how much a feature's z-scores vary across
// cells.
type Variability struct {
	Feature string
	// sample standard deviation of the feature's z-scores
	Variability    float64
	BootstrapLower float64
	BootstrapUpper float64
	// P(chi2(n-1) > (n-1)*variance)
	PValue float64
	// Benjamini-Hochberg adjusted
	PValueAdj float64
}

func computeVariability(dev *Deviations, opts VariabilityOptions) []Variability {
	if opts.Lower == 0 && opts.Upper == 0 {
		opts.Lower, opts.Upper = 0.025, 0.975
	}
	cells, features := dev.Dims()
	rng := rand.New(rand.NewSource(opts.Seed))
	chisq := distuv.ChiSquared{K: float64(cells - 1)}
	out := make([]Variability, features)
	col := make([]float64, cells)
	resample := make([]float64, cells)
	boot := make([]float64, opts.Bootstrap)
	pvalues := make([]float64, features)
	for f := range out {
		for i := range col {
			col[i] = float64(dev.Z[i*features+f])
		}
		v := Variability{Feature: dev.Features[f], BootstrapLower: math.NaN(), BootstrapUpper: math.NaN()}
		if cells > 1 {
			sd := stat.StdDev(col, nil)
			v.Variability = sd
			v.PValue = chisq.Survival(float64(cells-1) * sd * sd)
		} else {
			v.PValue = 1
		}
		if opts.Bootstrap > 0 && cells > 1 {
			for b := range boot {
				for i := range resample {
					resample[i] = col[rng.Intn(cells)]
				}
				boot[b] = stat.StdDev(resample, nil)
			}
			sort.Float64s(boot)
			v.BootstrapLower = stat.Quantile(opts.Lower, stat.Empirical, boot, nil)
			v.BootstrapUpper = stat.Quantile(opts.Upper, stat.Empirical, boot, nil)
		}
		out[f] = v
		pvalues[f] = v.PValue
	}
	for f, p := range adjustBH(pvalues) {
		out[f].PValueAdj = p
	}
	return out
}

// adjustBH returns Benjamini-Hochberg adjusted p-values, in the same
// order as p.
func adjustBH(p []float64) []float64 {
	n := len(p)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool { return p[order[i]] < p[order[j]] })
	adj := make([]float64, n)
	running := 1.0
	for rank := n; rank >= 1; rank-- {
		i := order[rank-1]
		q := p[i] * float64(n) / float64(rank)
		if q < running {
			running = q
		}
		adj[i] = running
	}
	return adj
}

func writeVariabilityTSV(w io.Writer, vs []Variability) error {
	bufw := bufio.NewWriter(w)
	fmt.Fprintln(bufw, "feature\tvariability\tbootstrap_lower_bound\tbootstrap_upper_bound\tp_value\tp_value_adj")
	for _, v := range vs {
		fmt.Fprintf(bufw, "%s\t%g\t%g\t%g\t%g\t%g\n", v.Feature, v.Variability, v.BootstrapLower, v.BootstrapUpper, v.PValue, v.PValueAdj)
	}
	return bufw.Flush()
}

type variabilitycmd struct{}

func (cmd *variabilitycmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	inputDir := flags.String("input-dir", "./out", "deviations `directory` written by the deviations command")
	outputFilename := flags.String("o", "-", "output tsv `file`")
	var opts VariabilityOptions
	flags.IntVar(&opts.Bootstrap, "bootstrap", 1000, "bootstrap draws per feature (0 to skip)")
	flags.Float64Var(&opts.Lower, "lower-quantile", 0.025, "lower bootstrap quantile")
	flags.Float64Var(&opts.Upper, "upper-quantile", 0.975, "upper bootstrap quantile")
	flags.Uint64Var(&opts.Seed, "seed", 1, "bootstrap random seed")
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
	if opts.Lower < 0 || opts.Upper > 1 || opts.Lower >= opts.Upper {
		err = fmt.Errorf("invalid bootstrap quantiles %v, %v", opts.Lower, opts.Upper)
		return 2
	}

	dev, err := ReadDeviationsDir(*inputDir)
	if err != nil {
		return 1
	}
	log.Printf("computing variability of %d features over %d cells", len(dev.Features), len(dev.Cells))
	vs := computeVariability(dev, opts)

	output, err := createOutput(*outputFilename, stdout)
	if err != nil {
		return 1
	}
	defer output.Close()
	err = writeVariabilityTSV(output, vs)
	if err != nil {
		return 1
	}
	err = output.Close()
	if err != nil {
		return 1
	}
	return 0
}
