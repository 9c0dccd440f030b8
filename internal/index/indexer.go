// Package index ships completed run directories to object storage.
package index

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"nightrunner/internal/config"
	"nightrunner/internal/logger"
)

// Uploader is the storage the indexer writes through.
type Uploader interface {
	Put(ctx context.Context, prefix, path string, content []byte) error
}

// RunIndexer uploads every regular file of a run directory under
// {date}/{execution}/.
type RunIndexer struct {
	Store Uploader
}

// Ingest reports true only when every file was uploaded.
func (ix RunIndexer) Ingest(ctx context.Context, runDir string) bool {
	prefix := runPrefix(runDir)
	ok := true
	uploaded := 0
	err := filepath.WalkDir(runDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") || !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(runDir, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Log.Printf("[index] read %s: %v", path, err)
			ok = false
			return nil
		}
		if err := ix.Store.Put(ctx, prefix, filepath.ToSlash(rel), data); err != nil {
			logger.Log.Printf("[index] upload %s: %v", rel, err)
			ok = false
			return nil
		}
		uploaded++
		return nil
	})
	if err != nil {
		logger.Log.Printf("[index] walk %s: %v", runDir, err)
		return false
	}
	logger.Log.Printf("[index] uploaded %d files from %s under %s", uploaded, runDir, prefix)
	return ok
}

// runPrefix is the last two path elements, normally runs/<date>/<execution>.
func runPrefix(runDir string) string {
	clean := filepath.Clean(runDir)
	exec := filepath.Base(clean)
	date := filepath.Base(filepath.Dir(clean))
	if date == "." || date == string(filepath.Separator) {
		return exec
	}
	return date + "/" + exec
}

// Noop is used when no storage is configured.
type Noop struct{}

func (Noop) Ingest(ctx context.Context, runDir string) bool {
	logger.Log.Printf("[index] indexing not configured; skipping %s", runDir)
	return false
}

// Indexer is what New returns: either a RunIndexer or a Noop.
type Indexer interface {
	Ingest(ctx context.Context, runDir string) bool
}

// New builds a MinIO-backed indexer, or a Noop when settings are missing or
// the client cannot be built.
func New(cfg config.IndexConfig) Indexer {
	if !cfg.Enabled() {
		return Noop{}
	}
	store, err := NewS3Store(cfg)
	if err != nil {
		logger.Log.Printf("[index] %v; indexing disabled", err)
		return Noop{}
	}
	return RunIndexer{Store: store}
}
