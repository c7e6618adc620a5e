// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package chromvar

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"sort"

	"github.com/kshedden/statmodel/glm"
	"github.com/kshedden/statmodel/statmodel"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

var gaussianConfig = &glm.Config{
	Family:    glm.NewFamily(glm.GaussianFamily),
	FitMethod: "IRLS",
	Log:       log.New(io.Discard, "", 0),
}

// Differential is the result of testing whether a feature's
// z-scores differ between groups of cells.
type Differential struct {
	Feature string
	// mean z-score per group, in the order of the group labels
	// returned by differentialDeviations
	Means     []float64
	F         float64
	PValue    float64
	PValueAdj float64
}

// differentialDeviations fits, for each feature, a linear model of
// the z-scores on group indicators and compares it with the
// intercept-only model (one-way analysis of variance). groups has one
// label per cell.
func differentialDeviations(dev *Deviations, groups []string) (labels []string, out []Differential, err error) {
	cells, features := dev.Dims()
	if len(groups) != cells {
		return nil, nil, fmt.Errorf("%d group labels for %d cells", len(groups), cells)
	}
	groupIdx := map[string]int{}
	for _, g := range groups {
		if _, ok := groupIdx[g]; !ok {
			groupIdx[g] = 0
			labels = append(labels, g)
		}
	}
	sort.Strings(labels)
	for i, g := range labels {
		groupIdx[g] = i
	}
	k := len(labels)
	if k < 2 {
		return nil, nil, fmt.Errorf("need at least 2 groups, have %d", k)
	}
	if cells <= k {
		return nil, nil, fmt.Errorf("need more cells (%d) than groups (%d)", cells, k)
	}
	member := make([]int, cells)
	for i, g := range groups {
		member[i] = groupIdx[g]
	}

	// intercept plus one indicator per non-reference group
	names := []string{"z", "intercept"}
	design := [][]statmodel.Dtype{nil, make([]statmodel.Dtype, cells)}
	for i := range design[1] {
		design[1][i] = 1
	}
	for g := 1; g < k; g++ {
		ind := make([]statmodel.Dtype, cells)
		for i, m := range member {
			if m == g {
				ind[i] = 1
			}
		}
		names = append(names, "group:"+labels[g])
		design = append(design, ind)
	}

	fdist := distuv.F{D1: float64(k - 1), D2: float64(cells - k)}
	out = make([]Differential, features)
	pvalues := make([]float64, features)
	for f := range out {
		z := make([]statmodel.Dtype, cells)
		for i := range z {
			z[i] = float64(dev.Z[i*features+f])
		}
		design[0] = z
		d := Differential{Feature: dev.Features[f], Means: groupMeans(z, member, k)}
		d.F, d.PValue = anovaGLM(design, names, member, fdist)
		out[f] = d
		pvalues[f] = d.PValue
	}
	for f, p := range adjustBH(pvalues) {
		out[f].PValueAdj = p
	}
	return labels, out, nil
}

func groupMeans(z []float64, member []int, k int) []float64 {
	means := make([]float64, k)
	for g := range means {
		var vals []float64
		for i, m := range member {
			if m == g {
				vals = append(vals, z[i])
			}
		}
		means[g] = stat.Mean(vals, nil)
	}
	return means
}

// anovaGLM returns the F statistic and p-value comparing the fitted
// group model with the grand mean.
func anovaGLM(design [][]statmodel.Dtype, names []string, member []int, fdist distuv.F) (F, p float64) {
	defer func() {
		if recover() != nil {
			// typically "matrix singular or near-singular with condition number +Inf"
			F, p = math.NaN(), 1
		}
	}()
	z := design[0]
	model, err := glm.NewGLM(statmodel.NewDataset(design, names), "z", names[1:], gaussianConfig)
	if err != nil {
		return math.NaN(), 1
	}
	params := model.Fit().Params()
	mean := stat.Mean(z, nil)
	var rss0, rss1 float64
	for i, y := range z {
		fitted := params[0]
		if member[i] > 0 {
			fitted += params[member[i]]
		}
		rss0 += (y - mean) * (y - mean)
		rss1 += (y - fitted) * (y - fitted)
	}
	if rss0 == 0 || rss1 >= rss0 {
		return 0, 1
	}
	if rss1 == 0 {
		return math.Inf(1), 0
	}
	F = ((rss0 - rss1) / fdist.D1) / (rss1 / fdist.D2)
	return F, fdist.Survival(F)
}

func writeDifferentialTSV(w io.Writer, labels []string, ds []Differential) error {
	bufw := bufio.NewWriter(w)
	fmt.Fprint(bufw, "feature")
	for _, l := range labels {
		fmt.Fprintf(bufw, "\tmean:%s", l)
	}
	fmt.Fprintln(bufw, "\tF\tp_value\tp_value_adj")
	for _, d := range ds {
		fmt.Fprint(bufw, d.Feature)
		for _, m := range d.Means {
			fmt.Fprintf(bufw, "\t%g", m)
		}
		fmt.Fprintf(bufw, "\t%g\t%g\t%g\n", d.F, d.PValue, d.PValueAdj)
	}
	return bufw.Flush()
}

type differentialcmd struct{}

func (cmd *differentialcmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	inputDir := flags.String("input-dir", "./out", "deviations `directory` written by the deviations command")
	groupsFilename := flags.String("groups", "", "group labels `file`, one per cell, in cell order")
	outputFilename := flags.String("o", "-", "output tsv `file`")
	err = flags.Parse(args)
	if err == flag.ErrHelp {
		err = nil
		return 0
	} else if err != nil {
		return 2
	} else if flags.NArg() > 0 {
		err = fmt.Errorf("errant command line arguments after parsed flags: %v", flags.Args())
		return 2
	} else if *groupsFilename == "" {
		err = fmt.Errorf("missing required flag -groups")
		return 2
	}

	dev, err := ReadDeviationsDir(*inputDir)
	if err != nil {
		return 1
	}
	groups, err := readNames(*groupsFilename)
	if err != nil {
		return 1
	}
	logrus.Printf("testing %d features for differences between groups", len(dev.Features))
	labels, diffs, err := differentialDeviations(dev, groups)
	if err != nil {
		return 1
	}

	output, err := createOutput(*outputFilename, stdout)
	if err != nil {
		return 1
	}
	defer output.Close()
	err = writeDifferentialTSV(output, labels, diffs)
	if err != nil {
		return 1
	}
	err = output.Close()
	if err != nil {
		return 1
	}
	return 0
}
