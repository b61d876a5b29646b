// Package batch runs one conversion pass: walk the source tree, convert
// every eligible document through the invoker, mirror the directory layout
// under the destination root, and aggregate per-file results. Per-file
// failures are data in the summary, never errors; only an unusable source
// root fails a pass wholesale.
package batch

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"officeconv/internal/formats"
)

// Converter produces dst from src. Implemented by *soffice.Runner; tests
// inject fakes.
type Converter interface {
	Convert(ctx context.Context, src, dst string) error
}

// Options configure an Orchestrator.
type Options struct {
	SourceRoot      string
	DestRoot        string
	Workers         int  // concurrent conversions, clamped to >= 1
	CopyPassthrough bool // copy files already in the target format instead of skipping them
	FailOnEmpty     bool // treat a tree without eligible files as an error
}

// Orchestrator plans and executes batch passes. Safe for reuse; each Run is
// independent.
type Orchestrator struct {
	opts Options
	reg  *formats.Registry
	conv Converter
	log  *slog.Logger
}

func New(opts Options, reg *formats.Registry, conv Converter, log *slog.Logger) *Orchestrator {
	if opts.Workers < 1 {
		opts.Workers = 1
	}

	if log == nil {
		log = slog.Default()
	}

	return &Orchestrator{opts: opts, reg: reg, conv: conv, log: log.With("component", "batch")}
}

// planItem occupies one discovery slot: either a result decided during
// planning (skips, collisions) or a job for the worker pool.
type planItem struct {
	result *Result
	job    *Job
}

// Run executes one full pass and returns its summary. The error return is
// reserved for input faults: missing or unreadable source root, unusable
// destination root, or an empty tree when FailOnEmpty is set.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()

	info, err := os.Stat(o.opts.SourceRoot)
	if err != nil {
		return nil, fmt.Errorf("source root: %w", err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("source root %s: not a directory", o.opts.SourceRoot)
	}

	if err := os.MkdirAll(o.opts.DestRoot, 0o755); err != nil {
		return nil, fmt.Errorf("destination root: %w", err)
	}

	items, eligible, err := o.plan()
	if err != nil {
		return nil, err
	}

	if eligible == 0 && o.opts.FailOnEmpty {
		return nil, fmt.Errorf("no convertible files under %s", o.opts.SourceRoot)
	}

	o.log.Info("scan complete", "scanned", len(items), "eligible", eligible)

	results := make([]Result, len(items))
	pending := make(chan int, len(items))

	for i, it := range items {
		if it.result != nil {
			results[i] = *it.result
			continue
		}

		pending <- i
	}
	close(pending)

	if eligible > 0 {
		workers := o.opts.Workers
		if workers > eligible {
			workers = eligible
		}

		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()

				// Workers write to disjoint slots, so the results
				// slice needs no locking and keeps discovery order.
				for i := range pending {
					results[i] = o.execute(ctx, items[i].job)
				}
			}()
		}
		wg.Wait()
	}

	summary := &Summary{Results: make([]Result, 0, len(results))}
	for _, r := range results {
		summary.add(r)
	}
	summary.Elapsed = time.Since(start)

	o.log.Info("batch finished",
		"total", summary.Total,
		"converted", summary.Converted,
		"copied", summary.Copied,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"elapsed", summary.Elapsed)

	return summary, nil
}

// plan walks the source tree in lexicographic order and decides what to do
// with every regular file. Directories, symlinks and special files are not
// scanned.
func (o *Orchestrator) plan() ([]planItem, int, error) {
	var items []planItem
	eligible := 0
	planned := make(map[string]string) // destination rel path -> source rel path

	err := filepath.WalkDir(o.opts.SourceRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			rel, relErr := filepath.Rel(o.opts.SourceRoot, path)
			if relErr != nil || rel == "." {
				return err
			}

			// An unreadable subtree fails its own entry; the rest of the
			// pass still runs.
			o.log.Error("scan failed", "path", filepath.ToSlash(rel), "error", err)
			items = append(items, planItem{result: &Result{
				Path:    filepath.ToSlash(rel),
				Outcome: OutcomeFailed,
				Reason:  fmt.Sprintf("scanning: %v", err),
			}})

			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(o.opts.SourceRoot, path)
		if err != nil {
			return err
		}
		relSlash := filepath.ToSlash(rel)

		f, ok := o.reg.Lookup(filepath.Ext(path))
		if !ok || (f.Passthrough && !o.opts.CopyPassthrough) {
			o.log.Debug("skipping", "file", relSlash, "reason", "unsupported extension")
			items = append(items, planItem{result: &Result{
				Path:    relSlash,
				Outcome: OutcomeSkipped,
				Reason:  "unsupported extension",
			}})

			return nil
		}

		outRel := rel[:len(rel)-len(filepath.Ext(rel))] + "." + f.Target
		outRelSlash := filepath.ToSlash(outRel)

		// Two sources may map onto one destination (a.doc and a.docx both
		// become a.docx when passthrough is on). The first mapping wins so
		// workers never write the same path.
		if prev, dup := planned[outRelSlash]; dup {
			items = append(items, planItem{result: &Result{
				Path:    relSlash,
				Outcome: OutcomeFailed,
				Reason:  fmt.Sprintf("destination %s already produced by %s", outRelSlash, prev),
			}})

			return nil
		}
		planned[outRelSlash] = relSlash

		eligible++
		items = append(items, planItem{job: &Job{
			SourcePath:   path,
			DestPath:     filepath.Join(o.opts.DestRoot, outRel),
			RelPath:      relSlash,
			OutputRel:    outRelSlash,
			SourceFormat: formats.NormalizeExt(filepath.Ext(path)),
			TargetFormat: f.Target,
			Passthrough:  f.Passthrough,
		}})

		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("scanning %s: %w", o.opts.SourceRoot, err)
	}

	return items, eligible, nil
}

// execute runs one job on the calling worker and never returns an error:
// whatever happens becomes the file's Result.
func (o *Orchestrator) execute(ctx context.Context, job *Job) Result {
	res := Result{
		Path:         job.RelPath,
		SourceFormat: job.SourceFormat,
		TargetFormat: job.TargetFormat,
	}

	if ctx.Err() != nil {
		res.Outcome = OutcomeFailed
		res.Reason = "canceled"

		return res
	}

	if err := os.MkdirAll(filepath.Dir(job.DestPath), 0o755); err != nil {
		res.Outcome = OutcomeFailed
		res.Reason = fmt.Sprintf("creating destination directory: %v", err)
		o.log.Error("conversion failed", "file", job.RelPath, "reason", res.Reason)

		return res
	}

	start := time.Now()

	var err error
	if job.Passthrough {
		err = copyFile(job.SourcePath, job.DestPath)
	} else {
		err = o.conv.Convert(ctx, job.SourcePath, job.DestPath)
	}
	res.Duration = time.Since(start)

	if err != nil {
		res.Outcome = OutcomeFailed
		res.Reason = err.Error()
		o.log.Error("conversion failed", "file", job.RelPath, "reason", res.Reason, "duration", res.Duration)

		return res
	}

	res.Output = job.OutputRel
	if job.Passthrough {
		res.Outcome = OutcomeCopied
		o.log.Info("copied", "file", job.RelPath, "output", res.Output)
	} else {
		res.Outcome = OutcomeConverted
		o.log.Info("converted", "file", job.RelPath, "output", res.Output, "duration", res.Duration)
	}

	return res
}

// copyFile copies src onto dst byte-for-byte and carries the source's
// modification time over. Partial destinations are removed on error.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = os.Remove(dst)

		return err
	}

	if err := out.Sync(); err != nil {
		out.Close()
		_ = os.Remove(dst)

		return err
	}

	if err := out.Close(); err != nil {
		_ = os.Remove(dst)

		return err
	}

	return os.Chtimes(dst, time.Now(), info.ModTime())
}
