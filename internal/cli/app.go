package cli

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/ppiankov/snapmed/internal/cache"
	"github.com/ppiankov/snapmed/internal/drug"
	"github.com/ppiankov/snapmed/internal/extract"
	"github.com/ppiankov/snapmed/internal/extract/parsers"
	"github.com/ppiankov/snapmed/internal/history"
	"github.com/ppiankov/snapmed/internal/llm"
	"github.com/ppiankov/snapmed/internal/metrics"
	"github.com/ppiankov/snapmed/internal/model"
	"github.com/ppiankov/snapmed/internal/pipeline"
	"github.com/ppiankov/snapmed/internal/worker"
)

// buildPipeline constructs the oracle, the drug client and the pipeline from config
func buildPipeline(cfg *model.Config, logger *logrus.Logger, m *metrics.Metrics) (*pipeline.Pipeline, error) {
	llmConfig := llm.ConfigFromModel(cfg)
	provider, err := llm.NewProvider(llmConfig)
	if err != nil {
		return nil, fmt.Errorf("create LLM provider: %w", err)
	}

	limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)

	extractorOpts := []extract.Option{
		extract.WithParser(parsers.NewRegistry().Find(cfg.Extract.Parser)),
		extract.WithMaxTokens(cfg.LLM.MaxTokens),
		extract.WithLimiter(limiter, llm.Endpoint(llmConfig)),
		extract.WithLogger(logger),
	}
	if cfg.Extract.Prompt != "" {
		extractorOpts = append(extractorOpts, extract.WithPrompt(cfg.Extract.Prompt))
	}
	extractor := extract.NewExtractor(provider, extractorOpts...)

	client, err := drug.NewClient(drug.ConfigFromModel(cfg),
		drug.WithCache(cache.New(cfg.Cache), cfg.Cache.MemoryTTL),
		drug.WithLimiter(limiter),
		drug.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("create drug client: %w", err)
	}

	loader := pipeline.NewImageLoader(0, cfg.HTTP.UserAgent, pipeline.DefaultMaxImageBytes)

	return pipeline.New(extractor, client,
		pipeline.WithLoader(loader),
		pipeline.WithMetrics(m),
		pipeline.WithLogger(logger),
	), nil
}

// openHistory opens the database and builds the store on it
func openHistory(cfg *model.Config, logger *logrus.Logger, m *metrics.Metrics) (*history.Store, *gorm.DB, error) {
	db, err := history.Open(cfg.Store, logger)
	if err != nil {
		return nil, nil, err
	}

	query, err := history.NewOwnerQuery(cfg.History.Query, db)
	if err != nil {
		closeDB(db)
		return nil, nil, err
	}

	store := history.NewStore(db,
		history.WithQuery(query),
		history.WithLogger(logger),
		history.WithMetrics(m),
	)
	return store, db, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
