// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package chromvar

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// readMatrixMarket reads a real/integer coordinate Matrix Market
// file (optionally gzipped) with cells as rows and regions as
// columns.
func readMatrixMarket(fnm string) (*SparseCounts, error) {
	f, err := zopen(fnm)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	sc, err := parseMatrixMarket(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fnm, err)
	}
	return sc, nil
}

func parseMatrixMarket(r io.Reader) (*SparseCounts, error) {
	scanner := bufio.NewScanner(bufio.NewReaderSize(r, 1<<20))
	lineNum := 0
	var (
		rows, cols, nnz int
		haveSize        bool
		triplets        []Triplet
	)
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if lineNum == 1 {
			header := strings.Fields(strings.ToLower(line))
			if len(header) < 4 || header[0] != "%%matrixmarket" || header[1] != "matrix" || header[2] != "coordinate" {
				return nil, fmt.Errorf("line 1: not a coordinate Matrix Market header: %q", line)
			}
			if header[3] != "real" && header[3] != "integer" {
				return nil, fmt.Errorf("line 1: unsupported field type %q", header[3])
			}
			if len(header) > 4 && header[4] != "general" {
				return nil, fmt.Errorf("line 1: unsupported symmetry %q", header[4])
			}
			continue
		}
		if line == "" || line[0] == '%' {
			continue
		}
		fields := strings.Fields(line)
		if !haveSize {
			if len(fields) != 3 {
				return nil, fmt.Errorf("line %d: size line has %d fields, expected 3", lineNum, len(fields))
			}
			var err error
			if rows, err = strconv.Atoi(fields[0]); err != nil {
				return nil, fmt.Errorf("line %d: rows: %w", lineNum, err)
			}
			if cols, err = strconv.Atoi(fields[1]); err != nil {
				return nil, fmt.Errorf("line %d: cols: %w", lineNum, err)
			}
			if nnz, err = strconv.Atoi(fields[2]); err != nil {
				return nil, fmt.Errorf("line %d: entries: %w", lineNum, err)
			}
			triplets = make([]Triplet, 0, nnz)
			haveSize = true
			continue
		}
		if len(fields) != 3 {
			return nil, fmt.Errorf("line %d: %d fields, expected 3", lineNum, len(fields))
		}
		i, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: row: %w", lineNum, err)
		}
		j, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: col: %w", lineNum, err)
		}
		v, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: value: %w", lineNum, err)
		}
		if v < 0 {
			return nil, fmt.Errorf("line %d: negative count %v", lineNum, v)
		}
		triplets = append(triplets, Triplet{Row: i - 1, Col: j - 1, Value: v})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if !haveSize {
		return nil, fmt.Errorf("missing size line")
	}
	if len(triplets) != nnz {
		return nil, fmt.Errorf("read %d entries, size line says %d", len(triplets), nnz)
	}
	return NewSparseCounts(rows, cols, triplets)
}
