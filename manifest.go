// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package chromvar

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/crypto/blake2b"
)

// runManifest records what a deviations run was computed from.
type runManifest struct {
	Inputs    []manifestInput `json:"inputs"`
	Cells     int             `json:"cells"`
	Regions   int             `json:"regions"`
	Features  int             `json:"features"`
	Samples   int             `json:"background_samples"`
	ChunkSize int             `json:"chunk_size"`
	Device    string          `json:"device"`
	Threads   int             `json:"threads"`
	Elapsed   string          `json:"elapsed"`
}

type manifestInput struct {
	Role     string `json:"role"`
	Filename string `json:"filename"`
	Blake2b  string `json:"blake2b"`
	Size     int64  `json:"size"`
}

func digestFile(role, fnm string) (manifestInput, error) {
	f, err := os.Open(fnm)
	if err != nil {
		return manifestInput{}, err
	}
	defer f.Close()
	h, err := blake2b.New256(nil)
	if err != nil {
		return manifestInput{}, err
	}
	n, err := io.Copy(h, f)
	if err != nil {
		return manifestInput{}, fmt.Errorf("%s: %w", fnm, err)
	}
	return manifestInput{Role: role, Filename: fnm, Blake2b: fmt.Sprintf("%x", h.Sum(nil)), Size: n}, nil
}

func (m *runManifest) addInput(role, fnm string) error {
	if fnm == "" {
		return nil
	}
	in, err := digestFile(role, fnm)
	if err != nil {
		return err
	}
	m.Inputs = append(m.Inputs, in)
	return nil
}

func (m *runManifest) write(fnm string, elapsed time.Duration) error {
	m.Elapsed = elapsed.String()
	buf, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(fnm, append(buf, '\n'), 0666)
}
