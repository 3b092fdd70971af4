// Package ingest loads content documents into a chunk store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"vrtutor/internal/domain"
	"vrtutor/internal/vectorstore/memory"
)

// File splits the document at path with chunker, embeds every chunk with
// model and appends the results to store. It returns the number of chunks
// added.
//
// An unreadable file yields an error wrapping domain.ErrSourceUnavailable and
// leaves the store untouched. A backend failure stops at the failing chunk;
// chunks embedded before it stay in the store and are counted.
func File(ctx context.Context, store *memory.Storage, backend domain.EmbeddingBackend, model, path string, chunker domain.Chunker) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", domain.ErrSourceUnavailable, path, err)
	}
	added := 0
	for i, text := range chunker.Split(string(data)) {
		vec, err := backend.Embed(ctx, model, text)
		if err != nil {
			return added, fmt.Errorf("embed chunk %d of %s: %w", i, path, err)
		}
		if err := store.Add(text, vec); err != nil {
			return added, fmt.Errorf("store chunk %d of %s: %w", i, path, err)
		}
		added++
	}
	return added, nil
}

// Files ingests every path in order. Unavailable files are logged and
// skipped; the first backend or store failure ends ingestion and is returned
// with the total added so far.
func Files(ctx context.Context, store *memory.Storage, backend domain.EmbeddingBackend, model string, paths []string, chunker domain.Chunker, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}
	total := 0
	for _, p := range paths {
		n, err := File(ctx, store, backend, model, p, chunker)
		total += n
		if errors.Is(err, domain.ErrSourceUnavailable) {
			logger.Warn("skipping content file", "path", p, "err", err)
			continue
		}
		if err != nil {
			return total, err
		}
		logger.Debug("ingested content file", "path", p, "chunks", n, "policy", chunker.Name())
	}
	return total, nil
}
