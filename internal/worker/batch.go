package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ppiankov/snapmed/internal/model"
)

// imageExtensions are the files picked up when a batch input is a directory
var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".gif": true, ".heic": true,
}

// Analyzer runs the enrichment pipeline on one image file
type Analyzer interface {
	EnrichFile(ctx context.Context, path string) (*model.EnrichmentResult, error)
}

// AnalyzeJob is one image to analyze
type AnalyzeJob struct {
	Index    int
	Path     string
	Analyzer Analyzer
}

// Execute runs the pipeline for the job's image
func (j *AnalyzeJob) Execute(ctx context.Context) Result {
	result, err := j.Analyzer.EnrichFile(ctx, j.Path)
	return &AnalysisResult{
		Index:  j.Index,
		Path:   j.Path,
		Result: result,
		Error:  err,
	}
}

// AnalysisResult is the outcome of one AnalyzeJob
type AnalysisResult struct {
	Index  int
	Path   string
	Result *model.EnrichmentResult
	Error  error
}

// GetError returns the pipeline error, if any
func (r *AnalysisResult) GetError() error {
	return r.Error
}

// BatchProcessor analyzes many images concurrently.
// Each image is an independent pipeline run.
type BatchProcessor struct {
	analyzer    Analyzer
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(analyzer Analyzer, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		analyzer:    analyzer,
		concurrency: concurrency,
	}
}

// ProcessPaths analyzes the images and returns results in input order
func (b *BatchProcessor) ProcessPaths(ctx context.Context, paths []string) []*AnalysisResult {
	if len(paths) == 0 {
		return []*AnalysisResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	go func() {
		for i, path := range paths {
			if !pool.Submit(&AnalyzeJob{Index: i, Path: path, Analyzer: b.analyzer}) {
				break
			}
		}
		pool.Close()
	}()

	var results []*AnalysisResult
	for r := range pool.Results() {
		results = append(results, r.(*AnalysisResult))
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })
	return results
}

// ProcessInput expands a list file or an image directory and analyzes every image
func (b *BatchProcessor) ProcessInput(ctx context.Context, input string) ([]*AnalysisResult, error) {
	paths, err := CollectImagePaths(input)
	if err != nil {
		return nil, err
	}
	return b.ProcessPaths(ctx, paths), nil
}

// CollectImagePaths returns the images in a directory (sorted) or the paths listed in a file
func CollectImagePaths(input string) ([]string, error) {
	info, err := os.Stat(input)
	if err != nil {
		return nil, fmt.Errorf("stat input: %w", err)
	}
	if !info.IsDir() {
		return ReadPathsFromFile(input)
	}

	entries, err := os.ReadDir(input)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if imageExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			paths = append(paths, filepath.Join(input, entry.Name()))
		}
	}
	return paths, nil
}

// ReadPathsFromFile reads image paths from a file (one per line).
// Relative paths resolve against the list file's directory.
func ReadPathsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	base := filepath.Dir(filePath)
	var paths []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !filepath.IsAbs(line) {
			line = filepath.Join(base, line)
		}

		if !seen[line] {
			seen[line] = true
			paths = append(paths, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return paths, nil
}
