// Package selection picks the best unprocessed photo and records it as suggested.
package selection

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"photocurator/internal/logger"
	"photocurator/internal/repository"
	"photocurator/internal/service/analyzer"
	"photocurator/internal/service/caption"
)

// Scorer computes a ScoreReport from raw image bytes.
type Scorer interface {
	ComputeScore(data []byte, captured time.Time) (*analyzer.ScoreReport, error)
}

// Winner is the photo chosen by a pass, already persisted as suggested.
type Winner struct {
	Filename string
	Data     []byte
	Report   *analyzer.ScoreReport
	Caption  string
}

// Score returns the composite score of the winner.
func (w *Winner) Score() float64 {
	return w.Report.Composite
}

// Options tune a Pipeline.
type Options struct {
	Directory      string
	Limit          int  // max candidates per pass, <= 0 means all
	PreferEXIFDate bool // take the capture month from EXIF DateTimeOriginal when present
	Dedup          bool // collapse perceptual duplicates onto the first-seen candidate
}

// Pipeline runs one selection pass: query, score, pick, persist.
type Pipeline struct {
	scorer   Scorer
	captions *caption.Formatter
	repo     repository.LedgerRepository
	logger   *logger.Logger
	opts     Options
	now      func() time.Time
}

// NewPipeline creates a Pipeline.
func NewPipeline(scorer Scorer, captions *caption.Formatter, repo repository.LedgerRepository, logger *logger.Logger, opts Options) *Pipeline {
	return &Pipeline{
		scorer:   scorer,
		captions: captions,
		repo:     repo,
		logger:   logger,
		opts:     opts,
		now:      time.Now,
	}
}

// candidate is a photo that survived reading and scoring.
type candidate struct {
	filename string
	data     []byte
	report   *analyzer.ScoreReport
}

// Produce queries the ledger for unprocessed photos in the configured
// directory and chooses the best one. Returns nil, nil when there is nothing
// to suggest.
func (p *Pipeline) Produce(ctx context.Context) (*Winner, error) {
	filenames, err := p.repo.QueryUnprocessed(p.opts.Directory, p.opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query unprocessed photos: %w", err)
	}

	if len(filenames) == 0 {
		p.logger.Info("No unprocessed photos in %s", p.opts.Directory)
		return nil, nil
	}

	return p.ChooseBest(ctx, p.opts.Directory, filenames)
}

// ChooseBest scores filenames inside directory and returns the highest
// composite score. Unreadable or undecodable files are skipped. Ties keep the
// first-seen candidate. The winner is upserted as suggested before it is
// returned. A candidate decided in the meantime is passed over for the next
// best; a storage failure aborts the pass.
func (p *Pipeline) ChooseBest(ctx context.Context, directory string, filenames []string) (*Winner, error) {
	candidates := make([]candidate, 0, len(filenames))

	for _, name := range filenames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		c, err := p.score(directory, name)
		if err != nil {
			p.logger.Warning("Skipping %s: %v", name, err)
			continue
		}
		candidates = append(candidates, c)
	}

	if p.opts.Dedup {
		candidates = p.dedup(candidates)
	}

	if len(candidates) == 0 {
		p.logger.Info("No valid candidates among %d photos", len(filenames))
		return nil, nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].report.Composite > candidates[j].report.Composite
	})

	for _, best := range candidates {
		text := p.captions.Generate(best.filename, best.report, p.now())
		err := p.repo.UpsertSuggested(best.filename, best.report.Composite, text)
		if errors.Is(err, repository.ErrAlreadyDecided) {
			p.logger.Warning("Skipping %s: decided during pass", best.filename)
			continue
		}
		if err != nil {
			return nil, err
		}

		p.logger.Info("Suggested %s with score %.3f (%d candidates)", best.filename, best.report.Composite, len(candidates))

		return &Winner{
			Filename: best.filename,
			Data:     best.data,
			Report:   best.report,
			Caption:  text,
		}, nil
	}

	p.logger.Info("All %d candidates were decided during the pass", len(candidates))
	return nil, nil
}

// score reads one file and computes its report.
func (p *Pipeline) score(directory, name string) (candidate, error) {
	path := filepath.Join(directory, name)

	info, err := os.Stat(path)
	if err != nil {
		return candidate{}, fmt.Errorf("failed to stat file: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return candidate{}, fmt.Errorf("failed to read file: %w", err)
	}

	captured := info.ModTime()
	if p.opts.PreferEXIFDate {
		if t, ok := captureTime(data, name); ok {
			captured = t
		}
	}

	report, err := p.scorer.ComputeScore(data, captured)
	if err != nil {
		return candidate{}, err
	}

	return candidate{filename: name, data: data, report: report}, nil
}
