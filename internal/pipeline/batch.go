package pipeline

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/decred/dcrd/lru"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"example.com/maskgate/internal/common"
	"example.com/maskgate/internal/report"
)

const (
	outputSuffix  = ".out.txt"
	summarySuffix = ".summary.json"
)

// BatchResult is one input of a batch. Summary is the path of the JSON
// summary written next to the report.
type BatchResult struct {
	Result
	Summary string
}

type batchJob struct {
	index int
	res   Result
}

// Batch runs every *.txt container under inDir and writes
// <outDir>/<name>.out.txt plus <outDir>/<name>.summary.json for each. Inputs
// whose content was already seen in this batch are reported as duplicates
// and not processed again. Results follow the sorted input order.
func (p *Processor) Batch(ctx context.Context, inDir, outDir string) ([]BatchResult, error) {
	inputs, err := CollectInputs(inDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	if p.opts.Metrics != nil {
		var total int64
		for _, in := range inputs {
			if info, err := os.Stat(in); err == nil {
				total += info.Size()
			}
		}
		p.opts.Metrics.SetTotalBytes(total)
	}
	p.log.WithFields(logrus.Fields{"inputs": len(inputs), "workers": p.opts.Concurrency}).Info("batch started")

	results := make([]BatchResult, len(inputs))
	jobs := make(chan batchJob)
	var wg sync.WaitGroup
	for w := 0; w < p.opts.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				log := p.log.WithFields(logrus.Fields{"run": job.res.RunID, "input": job.res.Input})
				res := p.finish(log, job.res)
				results[job.index] = p.saveSummary(log, res)
			}
		}()
	}

	// The duplicate set is only touched by this goroutine.
	seen := lru.NewCache(uint(p.opts.CacheSize))
	var cancelled error
	for i, in := range inputs {
		if err := ctx.Err(); err != nil {
			cancelled = err
			break
		}
		res := Result{
			RunID:  uuid.NewString(),
			Input:  in,
			Output: filepath.Join(outDir, OutputName(inDir, in)+outputSuffix),
			Ts:     time.Now().UTC(),
		}
		sum, size, err := common.Sha256OfFile(in)
		if err == nil {
			res.InputSha256 = sum
			if seen.Contains(sum) {
				res.Duplicate = true
				if p.opts.Metrics != nil {
					p.opts.Metrics.IncDuplicate()
				}
				p.log.WithField("input", in).Info("duplicate input skipped")
				results[i] = p.saveSummary(p.log, res)
				continue
			}
			seen.Add(sum)
			if p.opts.Metrics != nil {
				p.opts.Metrics.AddMessage(size)
			}
		}
		jobs <- batchJob{index: i, res: res}
	}
	close(jobs)
	wg.Wait()

	if cancelled != nil {
		var done []BatchResult
		for _, r := range results {
			if r.RunID != "" {
				done = append(done, r)
			}
		}
		return done, cancelled
	}
	return results, nil
}

func (p *Processor) saveSummary(log logrus.FieldLogger, res Result) BatchResult {
	br := BatchResult{Result: res, Summary: strings.TrimSuffix(res.Output, outputSuffix) + summarySuffix}
	s, err := res.Summary(p.opts.Transform.Padding)
	if err == nil {
		err = report.SaveSummaryJSON(s, br.Summary)
	}
	if err != nil {
		log.Warnf("summary: %v", err)
		br.Summary = ""
	}
	return br
}

// Summaries converts batch results for report.NewBatchSummary.
func (p *Processor) Summaries(results []BatchResult) ([]report.Summary, error) {
	out := make([]report.Summary, 0, len(results))
	for _, r := range results {
		s, err := r.Result.Summary(p.opts.Transform.Padding)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// CollectInputs lists the *.txt files under dir in lexical order, skipping
// reports written by earlier batches.
func CollectInputs(dir string) ([]string, error) {
	var inputs []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := strings.ToLower(d.Name())
		if !strings.HasSuffix(name, ".txt") || strings.HasSuffix(name, outputSuffix) {
			return nil
		}
		inputs = append(inputs, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("collect inputs: %w", err)
	}
	sort.Strings(inputs)
	return inputs, nil
}

// OutputName flattens the path of in relative to root into a file stem.
func OutputName(root, in string) string {
	rel, err := filepath.Rel(root, in)
	if err != nil {
		rel = filepath.Base(in)
	}
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	return strings.ReplaceAll(filepath.ToSlash(rel), "/", "_")
}
