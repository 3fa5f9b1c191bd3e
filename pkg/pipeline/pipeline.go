// Package pipeline runs the collection end to end: load identifiers and index
// members, join them, resolve one filing document per CIK, then write the
// result. Nothing is written unless every stage succeeds.
package pipeline

import (
	"context"
	"fmt"
	"log"

	"github.com/xhad/filingmap/internal/types"
	"github.com/xhad/filingmap/pkg/processor"
	"github.com/xhad/filingmap/pkg/sources"
	"github.com/xhad/filingmap/pkg/writer"
)

type Stage string

const (
	StageIdentifiers Stage = "identifiers"
	StageMembership  Stage = "membership"
	StageJoin        Stage = "join"
	StageResolve     Stage = "resolve"
	StageWrite       Stage = "write"
)

type PipelineConfig struct {
	TickersURL    string
	MembershipURL string
	OutputPath    string
	Processor     processor.ProcessorConfig
	// OnStage is called after each stage with the number of rows it produced.
	OnStage func(stage Stage, rows int)
}

// Summary describes a finished run.
type Summary struct {
	Identifiers int
	Members     int
	Joined      int
	Resolved    int
	Missing     int
	OutputPath  string
}

type Pipeline struct {
	config    PipelineConfig
	fetcher   types.Fetcher
	resolver  types.Resolver
	processor processor.Processor
	store     types.RecordStore
}

// New builds a pipeline. store may be nil.
func New(fetcher types.Fetcher, resolver types.Resolver, store types.RecordStore, config PipelineConfig) *Pipeline {
	if config.TickersURL == "" {
		config.TickersURL = sources.DefaultTickersURL
	}
	if config.MembershipURL == "" {
		config.MembershipURL = sources.DefaultMembershipURL
	}
	if config.OutputPath == "" {
		config.OutputPath = writer.DefaultOutputPath
	}

	return &Pipeline{
		config:    config,
		fetcher:   fetcher,
		resolver:  resolver,
		processor: processor.NewWithConfig(config.Processor),
		store:     store,
	}
}

func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{OutputPath: p.config.OutputPath}

	ids, err := sources.FetchIdentifiers(ctx, p.fetcher, p.config.TickersURL)
	if err != nil {
		return nil, err
	}
	summary.Identifiers = len(ids)
	p.report(StageIdentifiers, len(ids))

	members, err := sources.FetchMembership(ctx, p.fetcher, p.config.MembershipURL)
	if err != nil {
		return nil, err
	}
	summary.Members = len(members)
	p.report(StageMembership, len(members))

	joined := p.processor.Process(ids, members)
	summary.Joined = len(joined)
	p.report(StageJoin, len(joined))

	ciks := make([]int64, len(joined))
	for i, row := range joined {
		ciks[i] = row.ID
	}

	links, err := p.resolver.ResolveAll(ctx, ciks)
	if err != nil {
		return nil, err
	}

	records := writer.Merge(joined, links)
	for _, r := range records {
		if r.HasURL() {
			summary.Resolved++
		} else {
			summary.Missing++
		}
	}
	p.report(StageResolve, summary.Resolved)

	if err := writer.WriteCSV(p.config.OutputPath, records); err != nil {
		return nil, err
	}
	p.report(StageWrite, len(records))

	if p.store != nil {
		if err := p.store.Store(ctx, records); err != nil {
			return nil, fmt.Errorf("failed to store records: %w", err)
		}
		log.Printf("Stored %d records in database", len(records))
	}

	return summary, nil
}

func (p *Pipeline) report(stage Stage, rows int) {
	if p.config.OnStage != nil {
		p.config.OnStage(stage, rows)
	}
}
