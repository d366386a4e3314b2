package ml

import (
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

const (
	weightsFormat  = "hotseats-weights"
	weightsVersion = 1
)

type param struct {
	name string
	m    *Matrix
}

type weightRecord struct {
	Name  string
	Value *Matrix
}

type weightsFile struct {
	Format  string
	Version int
	Records []weightRecord
}

func saveParams(filename string, params []param) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := writeParams(file, params); err != nil {
		return err
	}
	return file.Close()
}

func writeParams(w io.Writer, params []param) error {
	wf := weightsFile{Format: weightsFormat, Version: weightsVersion}
	for _, p := range params {
		wf.Records = append(wf.Records, weightRecord{Name: p.name, Value: p.m})
	}
	return gob.NewEncoder(w).Encode(wf)
}

func loadParams(filename string, params []param) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrModelLoad, err)
	}
	defer file.Close()
	return readParams(file, params)
}

// readParams validates the whole file against params before copying, so a
// failed load leaves the current weights untouched.
func readParams(r io.Reader, params []param) error {
	var wf weightsFile
	if err := gob.NewDecoder(r).Decode(&wf); err != nil {
		return fmt.Errorf("%w: decode weights: %w", ErrModelLoad, err)
	}

	// --- VALIDATION STEP ---
	if wf.Format != weightsFormat {
		return fmt.Errorf("%w: unknown weights format %q", ErrModelLoad, wf.Format)
	}
	if wf.Version != weightsVersion {
		return fmt.Errorf("%w: unsupported weights version %d", ErrModelLoad, wf.Version)
	}

	loaded := make(map[string]*Matrix, len(wf.Records))
	for _, rec := range wf.Records {
		if rec.Value == nil {
			return fmt.Errorf("%w: tensor %q has no data", ErrModelLoad, rec.Name)
		}
		if _, dup := loaded[rec.Name]; dup {
			return fmt.Errorf("%w: duplicate tensor %q", ErrModelLoad, rec.Name)
		}
		loaded[rec.Name] = rec.Value
	}

	expected := make(map[string]bool, len(params))
	for _, p := range params {
		expected[p.name] = true
		got, ok := loaded[p.name]
		if !ok {
			return fmt.Errorf("%w: missing tensor %q", ErrModelLoad, p.name)
		}
		if got.rows != p.m.rows || got.cols != p.m.cols {
			return fmt.Errorf("%w: tensor %q shape mismatch: expected [%d, %d], got [%d, %d]",
				ErrModelLoad, p.name, p.m.rows, p.m.cols, got.rows, got.cols)
		}
	}

	var extra []string
	for name := range loaded {
		if !expected[name] {
			extra = append(extra, name)
		}
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		return fmt.Errorf("%w: unexpected tensors %s", ErrModelLoad, strings.Join(extra, ", "))
	}

	// --- APPLICATION STEP ---
	for _, p := range params {
		copy(p.m.data, loaded[p.name].data)
	}
	return nil
}
