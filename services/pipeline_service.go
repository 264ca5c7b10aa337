package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"mse_backend_project/services/analysis"
	"mse_backend_project/services/archive"
)

// DirectoryResolver resolves the current universe of instrument codes.
type DirectoryResolver interface {
	FetchIssuerCodes() ([]string, error)
}

// Pipeline runs the full acquisition and consolidation sequence: resolve
// the instrument directory, refresh stale archives, recompute indicators
// and rebuild the consolidated files.
type Pipeline struct {
	scraper      DirectoryResolver
	sync         *HistorySyncService
	engine       *analysis.Engine
	consolidator *ConsolidatorService
	store        *archive.Store
}

// NewPipeline wires the pipeline stages together.
func NewPipeline(sc DirectoryResolver, sync *HistorySyncService, engine *analysis.Engine, consolidator *ConsolidatorService, store *archive.Store) *Pipeline {
	return &Pipeline{
		scraper:      sc,
		sync:         sync,
		engine:       engine,
		consolidator: consolidator,
		store:        store,
	}
}

// Run executes one full pipeline pass. A directory-resolution failure
// aborts the run; per-instrument failures in later stages are logged and
// skipped.
func (p *Pipeline) Run(ctx context.Context) error {
	start := time.Now()

	codes, err := p.scraper.FetchIssuerCodes()
	if err != nil {
		return fmt.Errorf("resolve issuer codes: %w", err)
	}
	log.Printf("Resolved %d issuer codes", len(codes))

	if err := p.sync.Refresh(ctx, codes); err != nil {
		return err
	}

	for _, code := range codes {
		if err := p.engine.AnalyzeStock(code); err != nil {
			log.Printf("Warning: analysis for %s failed: %v", code, err)
		}
	}

	for _, code := range codes {
		if err := p.consolidator.Combine(code); err != nil {
			if errors.Is(err, ErrMissingInput) {
				continue
			}
			log.Printf("Warning: consolidation for %s failed: %v", code, err)
		}
	}

	if err := p.store.MergeCombined(codes); err != nil {
		return fmt.Errorf("merge consolidated files: %w", err)
	}

	log.Printf("Pipeline run completed in %s", time.Since(start).Round(time.Second))
	return nil
}
