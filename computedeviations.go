// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package chromvar

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof"
	"runtime"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

type computeDeviations struct{}

func (cmd *computeDeviations) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	err := cmd.run(prog, args, stdin, stdout, stderr)
	if err == errUsage {
		return 2
	} else if err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return 1
	}
	return 0
}

var errUsage = errors.New("usage error")

func (cmd *computeDeviations) run(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	pprof := flags.String("pprof", "", "serve Go profile data at http://`[addr]:port`")
	countsFilename := flags.String("counts", "", "cells x regions count matrix `file` (.npy, .mtx, .mtx.gz)")
	matchFilename := flags.String("motif-match", "", "regions x features match matrix `file` (.npy)")
	bgFilename := flags.String("bg-peaks", "", "regions x samples background peak index `file` (.npy)")
	cellsFilename := flags.String("cells", "", "cell names `file`, one per line (default: cell0, cell1, ...)")
	featuresFilename := flags.String("features", "", "feature names `file`, one per line (default: feature0, feature1, ...)")
	outputDir := flags.String("output-dir", "./out", "output `directory`")
	chunkSize := flags.Int("chunk-size", DefaultChunkSize, "number of cells (rows) per chunk")
	deviceName := flags.String("device", "host", "execution device: host or dense32")
	threads := flags.Int("threads", runtime.GOMAXPROCS(0), "number of background samples to compute concurrently")
	err := flags.Parse(args)
	if err == flag.ErrHelp {
		return nil
	} else if err != nil {
		return errUsage
	} else if flags.NArg() > 0 {
		return fmt.Errorf("errant command line arguments after parsed flags: %v", flags.Args())
	}
	if *chunkSize < 1 {
		return fmt.Errorf("invalid -chunk-size %d: must be positive", *chunkSize)
	}
	for _, required := range []struct {
		flag, value string
	}{
		{"counts", *countsFilename},
		{"motif-match", *matchFilename},
		{"bg-peaks", *bgFilename},
	} {
		if required.value == "" {
			return fmt.Errorf("missing required flag -%s", required.flag)
		}
	}
	device, err := NewDevice(*deviceName)
	if err != nil {
		return err
	}

	if *pprof != "" {
		go func() {
			log.Println(http.ListenAndServe(*pprof, nil))
		}()
	}

	t0 := time.Now()
	ds := &Dataset{}
	log.Printf("reading counts from %s", *countsFilename)
	ds.Counts, err = loadCounts(*countsFilename)
	if err != nil {
		return err
	}
	log.Printf("reading motif matches from %s", *matchFilename)
	ds.MotifMatch, err = readNumpyMatrix(*matchFilename)
	if err != nil {
		return err
	}
	log.Printf("reading background peaks from %s", *bgFilename)
	ds.Background, err = readBackgroundPeaks(*bgFilename)
	if err != nil {
		return err
	}
	if *cellsFilename != "" {
		ds.Cells, err = readNames(*cellsFilename)
		if err != nil {
			return err
		}
	}
	if *featuresFilename != "" {
		ds.Features, err = readNames(*featuresFilename)
		if err != nil {
			return err
		}
	}

	manifest := &runManifest{ChunkSize: *chunkSize, Device: device.Name(), Threads: *threads}
	for _, in := range [][2]string{
		{"counts", *countsFilename},
		{"motif_match", *matchFilename},
		{"bg_peaks", *bgFilename},
		{"cells", *cellsFilename},
		{"features", *featuresFilename},
	} {
		err = manifest.addInput(in[0], in[1])
		if err != nil {
			return err
		}
	}

	dev, err := ComputeDeviations(ds, Options{
		ChunkSize: *chunkSize,
		Device:    device,
		Threads:   *threads,
		Logger:    log.StandardLogger(),
		Progress:  logProgress(log.StandardLogger()),
	})
	if err != nil {
		return err
	}
	manifest.Cells, manifest.Regions = ds.Counts.Dims()
	_, manifest.Features = ds.MotifMatch.Dims()
	_, manifest.Samples = ds.Background.Dims()

	err = dev.WriteDir(*outputDir)
	if err != nil {
		return err
	}
	err = manifest.write(*outputDir+"/manifest.json", time.Since(t0))
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, *outputDir)
	log.Print("done")
	return nil
}

func loadCounts(fnm string) (CountMatrix, error) {
	if strings.HasSuffix(fnm, ".mtx") || strings.HasSuffix(fnm, ".mtx.gz") {
		return readMatrixMarket(fnm)
	}
	m, err := readNumpyMatrix(fnm)
	if err != nil {
		return nil, err
	}
	return DenseCounts{m}, nil
}

// logProgress returns a progress observer that logs each finished
// chunk, with an estimate of the remaining time.
func logProgress(logger log.FieldLogger) func(Progress) {
	t0 := time.Now()
	return func(p Progress) {
		if p.Sample >= 0 {
			return
		}
		done := p.Chunk + 1
		elapsed := time.Since(t0)
		remaining := elapsed / time.Duration(done) * time.Duration(p.Chunks-done)
		logger.WithFields(log.Fields{
			"chunk":     done,
			"chunks":    p.Chunks,
			"remaining": remaining.Round(time.Second),
		}).Infof("rows %d-%d done", p.Start, p.End)
	}
}
