package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/kozaktomas/face-matcher/internal/facematch"
	"github.com/kozaktomas/face-matcher/internal/imageutil"
	"github.com/kozaktomas/face-matcher/internal/logging"
)

// LoadEntry is the result for one file of a directory load.
type LoadEntry struct {
	File     string            `json:"file"`
	Identity string            `json:"identity"`
	Outcome  facematch.Outcome `json:"outcome,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// LoadReport summarizes a directory load.
type LoadReport struct {
	Total      int         `json:"total"`
	Registered int         `json:"registered"`
	Entries    []LoadEntry `json:"entries"`
}

// ProgressFunc is called after each processed file.
type ProgressFunc func(done, total int)

// IdentityFromFile derives the identity label from a file name.
func IdentityFromFile(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

type extracted struct {
	face  Face
	count int
	err   error
}

// LoadDirectory registers every image in dir under its file name. Images are
// analyzed concurrently and registered in file name order, so the first of
// two look-alike files wins.
func (p *Pipeline) LoadDirectory(ctx context.Context, dir string, progress ProgressFunc) (LoadReport, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return LoadReport{}, fmt.Errorf("reading %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !imageutil.IsImageFile(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)

	report := LoadReport{Total: len(files), Entries: make([]LoadEntry, len(files))}
	results := make([]extracted, len(files))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		done int
	)
	sem := make(chan struct{}, p.opts.Concurrency)
	for i, path := range files {
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[i] = p.analyzeFile(ctx, path)

			if progress != nil {
				mu.Lock()
				done++
				progress(done, len(files))
				mu.Unlock()
			}
		}(i, path)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return report, err
	}

	for i, path := range files {
		entry := LoadEntry{File: filepath.Base(path), Identity: IdentityFromFile(path)}
		res := results[i]
		if res.err != nil {
			entry.Error = res.err.Error()
			report.Entries[i] = entry
			continue
		}

		reg := facematch.Registration{
			Identity:  entry.Identity,
			Embedding: res.face.Embedding,
			FaceCount: res.count,
			Source:    entry.File,
		}
		result, err := p.register(ctx, reg, res.face)
		entry.Outcome = result.Outcome
		if err != nil {
			entry.Error = err.Error()
		} else {
			report.Registered++
		}
		report.Entries[i] = entry
	}

	logging.Info(logging.Fields{
		"dir":        dir,
		"total":      report.Total,
		"registered": report.Registered,
	}, "loaded face directory")
	return report, nil
}

// analyzeFile decodes path and extracts its face when it has exactly one.
func (p *Pipeline) analyzeFile(ctx context.Context, path string) extracted {
	if err := ctx.Err(); err != nil {
		return extracted{err: err}
	}
	img, err := imageutil.DecodeFile(path)
	if err != nil {
		return extracted{err: err}
	}
	dets, err := p.Detect(ctx, img)
	if err != nil {
		return extracted{err: err}
	}
	if len(dets) != 1 {
		return extracted{count: len(dets)}
	}
	face, err := p.Extract(ctx, img, dets[0])
	if err != nil {
		return extracted{err: err}
	}
	return extracted{face: face, count: 1}
}
