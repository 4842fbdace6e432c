// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Camoto-Go contributors
// Source: github.com/camoto-go/gamearchive

package gamearchive

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
)

// ExtractOptions configures ExtractAll.
type ExtractOptions struct {
	// OnEntryDone is called after one entry is fully written to disk.
	OnEntryDone func(info FileInfo, written int64, outputPath string) `json:"-" yaml:"-"`
	// MaxWorkers is the number of extraction workers; zero means GOMAXPROCS.
	MaxWorkers int `json:"max_workers,omitempty" yaml:"max_workers,omitempty"`
	// UseFilter decodes each entry through its registered filter, if any.
	UseFilter bool `json:"use_filter,omitempty" yaml:"use_filter,omitempty"`
}

// ExtractAll writes every live entry to destDir, one file per entry named
// after its logical name, using a small worker pool. It is a convenience
// wrapper over ReadEntry; it has no bearing on the archive's on-disk
// layout and never mutates the Archive. Workers read through ReadEntry
// rather than Open/Read directly so concurrent extraction can't race on
// the archive's shared stream cursor.
func (a *Archive) ExtractAll(ctx context.Context, destDir string, opts ExtractOptions) error {
	workers := opts.MaxWorkers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	entries := a.Files()
	jobs := make(chan FileInfo)
	errs := make(chan error, workers)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for info := range jobs {
				if err := a.extractOne(info, destDir, opts); err != nil {
					select {
					case errs <- err:
					default:
					}
					return
				}
			}
		}()
	}

	for _, info := range entries {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return ctx.Err()
		case jobs <- info:
		case err := <-errs:
			close(jobs)
			wg.Wait()
			return err
		}
	}
	close(jobs)
	wg.Wait()

	select {
	case err := <-errs:
		return err
	default:
		return nil
	}
}

func (a *Archive) extractOne(info FileInfo, destDir string, opts ExtractOptions) error {
	// ReadEntry serializes its own access to the shared stream cursor, so
	// this is safe to run concurrently from every worker; only the disk
	// I/O below actually runs in parallel.
	data, err := a.ReadEntry(info.Handle, opts.UseFilter)
	if err != nil {
		return err
	}

	outPath := filepath.Join(destDir, info.Name)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	written, err := f.Write(data)
	if err != nil {
		return err
	}
	if opts.OnEntryDone != nil {
		opts.OnEntryDone(info, int64(written), outPath)
	}
	return nil
}
