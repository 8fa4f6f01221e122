// Package export writes every collection to a blob store as JSON Lines, one
// object per collection plus a manifest, under a timestamped prefix.
package export

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"time"

	"golang.org/x/sync/errgroup"

	"longtrees/internal/nursery/models"
	"longtrees/internal/nursery/store"
	"longtrees/internal/platform/blob"
	"longtrees/internal/storage"
	"longtrees/pkg/domain"
)

const (
	contentTypeJSONL = "application/x-ndjson"
	manifestName     = "manifest.json"
	stampLayout      = "20060102T150405Z"
)

// Object is one exported collection.
type Object struct {
	Collection string `json:"collection"`
	Key        string `json:"key"`
	Count      int    `json:"count"`
}

// Manifest lists the objects written by one run.
type Manifest struct {
	ExportedAt  time.Time `json:"exported_at"`
	StoreDriver string    `json:"store_driver"`
	Objects     []Object  `json:"objects"`
}

type Exporter struct {
	stores   *storage.Stores
	blobs    blob.Store
	logger   *slog.Logger
	pageSize int
	now      func() time.Time
}

type Option func(*Exporter)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Exporter) {
		e.logger = logger
	}
}

// WithPageSize sets how many documents each List call fetches.
func WithPageSize(n int) Option {
	return func(e *Exporter) {
		if n > 0 {
			e.pageSize = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Exporter) {
		e.now = now
	}
}

func New(stores *storage.Stores, blobs blob.Store, opts ...Option) *Exporter {
	e := &Exporter{
		stores:   stores,
		blobs:    blobs,
		logger:   slog.Default(),
		pageSize: store.DefaultPageSize,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run exports all collections concurrently and writes the manifest last, so
// a manifest only exists for a complete export.
func (e *Exporter) Run(ctx context.Context, prefix string) (*Manifest, error) {
	exportedAt := e.now().UTC()
	base := path.Join(prefix, exportedAt.Format(stampLayout))

	writers := map[string]func(context.Context, io.Writer) (int, error){
		models.SeedSources: func(ctx context.Context, w io.Writer) (int, error) {
			return writeCollection(ctx, e.stores.SeedSources, w, e.pageSize)
		},
		models.Growers: func(ctx context.Context, w io.Writer) (int, error) {
			return writeCollection(ctx, e.stores.Growers, w, e.pageSize)
		},
		models.SubSuccessions: func(ctx context.Context, w io.Writer) (int, error) {
			return writeCollection(ctx, e.stores.SubSuccessions, w, e.pageSize)
		},
		models.Trees: func(ctx context.Context, w io.Writer) (int, error) {
			return writeCollection(ctx, e.stores.Trees, w, e.pageSize)
		},
	}

	collections := models.Collections()
	objects := make([]Object, len(collections))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range collections {
		key := path.Join(base, name+".jsonl")
		write := writers[name]
		g.Go(func() error {
			start := time.Now()
			count, err := e.exportOne(gctx, key, write)
			if err != nil {
				return fmt.Errorf("export %s: %w", name, err)
			}
			objects[i] = Object{Collection: name, Key: key, Count: count}
			e.logger.InfoContext(gctx, "collection exported",
				"collection", name,
				"key", key,
				"count", count,
				"duration_ms", time.Since(start).Milliseconds(),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	manifest := &Manifest{ExportedAt: exportedAt, StoreDriver: e.stores.Driver, Objects: objects}
	raw, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	if err := e.blobs.Put(ctx, path.Join(base, manifestName), bytes.NewReader(raw), "application/json"); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}
	return manifest, nil
}

// exportOne spools a collection to a temp file so the blob store gets a
// seekable body with a known length.
func (e *Exporter) exportOne(ctx context.Context, key string, write func(context.Context, io.Writer) (int, error)) (int, error) {
	spool, err := os.CreateTemp("", "longtrees-export-*.jsonl")
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = spool.Close()
		_ = os.Remove(spool.Name())
	}()

	buf := bufio.NewWriter(spool)
	count, err := write(ctx, buf)
	if err != nil {
		return 0, err
	}
	if err := buf.Flush(); err != nil {
		return 0, err
	}
	if _, err := spool.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}
	if err := e.blobs.Put(ctx, key, spool, contentTypeJSONL); err != nil {
		return 0, err
	}
	return count, nil
}

// writeCollection pages through repo in identifier order and encodes one
// document per line.
func writeCollection[T models.Document[T]](ctx context.Context, repo store.Repository[T], w io.Writer, pageSize int) (int, error) {
	enc := json.NewEncoder(w)
	var after *domain.ID
	total := 0
	for {
		n := 0
		var last domain.ID
		for doc, err := range repo.List(ctx, store.ListOptions{Limit: pageSize, After: after}) {
			if err != nil {
				return total, err
			}
			if err := enc.Encode(doc); err != nil {
				return total, err
			}
			last = doc.DocumentID()
			n++
		}
		total += n
		if n < pageSize {
			return total, nil
		}
		after = &last
	}
}
