package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/bdougie/genvideo/internal/embeddings"
	"github.com/bdougie/genvideo/internal/models"
)

const batchSize = 10 // Number of runs to batch write

// Storage defines the interface for recording generation runs
type Storage interface {
	// AddRun adds a single run record
	AddRun(ctx context.Context, run models.Run) error

	// Flush ensures all pending runs are saved
	Flush() error
}

// Searcher finds earlier runs whose fingerprint resembles the given one
type Searcher interface {
	SearchSimilarRuns(ctx context.Context, fingerprint []float32, limit int) ([]models.RunSearchResult, error)
}

// JSONStorage keeps run history in a single JSON array file
type JSONStorage struct {
	pending []models.Run
	mu      sync.Mutex
	path    string
}

// NewJSONStorage creates a history store backed by the file at path
func NewJSONStorage(path string) *JSONStorage {
	return &JSONStorage{path: path}
}

// AddRun adds a run to the batch and flushes if the batch is full
func (s *JSONStorage) AddRun(ctx context.Context, run models.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, run)

	if len(s.pending) >= batchSize {
		return s.flush()
	}
	return nil
}

// Flush writes all pending runs to disk
func (s *JSONStorage) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flush()
}

func (s *JSONStorage) flush() error {
	if len(s.pending) == 0 {
		return nil
	}

	existing, err := s.read()
	if err != nil {
		return err
	}
	all := append(existing, s.pending...)

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory for history: %v", err)
		}
	}

	// Write to a sibling temp file, then rename over the history
	tmp := s.path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(all); err != nil {
		file.Close()
		return fmt.Errorf("failed to encode history: %w", err)
	}
	if err := file.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace history file: %w", err)
	}

	s.pending = nil
	return nil
}

// Runs returns every flushed run followed by pending ones
func (s *JSONStorage) Runs() ([]models.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	runs, err := s.read()
	if err != nil {
		return nil, err
	}
	return append(runs, s.pending...), nil
}

func (s *JSONStorage) read() ([]models.Run, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history file: %v", err)
	}

	var runs []models.Run
	if err := json.Unmarshal(data, &runs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal existing history: %v", err)
	}
	return runs, nil
}

// SearchSimilarRuns ranks stored runs by cosine similarity of their fingerprints
func (s *JSONStorage) SearchSimilarRuns(ctx context.Context, fingerprint []float32, limit int) ([]models.RunSearchResult, error) {
	runs, err := s.Runs()
	if err != nil {
		return nil, err
	}

	var results []models.RunSearchResult
	for _, run := range runs {
		if len(run.Fingerprint) != len(fingerprint) {
			continue
		}
		results = append(results, models.RunSearchResult{
			RunID:      run.ID,
			Prompt:     run.Prompt,
			OutputPath: run.OutputPath,
			Similarity: embeddings.Similarity(fingerprint, run.Fingerprint),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
