// internal/repositories/json_file_repository.go
package repositories

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ps-vitor/crous-notifier/internal/domain"
	"github.com/ps-vitor/crous-notifier/pkg/logger"
)

// JSONFileRepository stores the Known-Set as one JSON document on disk.
type JSONFileRepository struct {
	path   string
	mirror Mirror
	log    *logger.Logger
	now    func() time.Time

	mu sync.Mutex
}

// NewJSONFileRepository opens the state file at path. When the file does not
// exist yet and a mirror is configured, the mirrored copy is restored first.
func NewJSONFileRepository(ctx context.Context, path string, mirror Mirror, log *logger.Logger) *JSONFileRepository {
	r := &JSONFileRepository{
		path:   path,
		mirror: mirror,
		log:    log.Named("state"),
		now:    time.Now,
	}
	r.restore(ctx)
	return r
}

func (r *JSONFileRepository) LoadKnownIDs(_ context.Context) (map[string]struct{}, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set := r.load()
	ids := make(map[string]struct{}, len(set))
	for id := range set {
		ids[id] = struct{}{}
	}
	return ids, nil
}

// LoadListings returns every stored listing, most recently first seen first.
// Records without a first-seen timestamp come last.
func (r *JSONFileRepository) LoadListings(_ context.Context) ([]domain.Listing, error) {
	r.mu.Lock()
	set := r.load()
	r.mu.Unlock()

	listings := make([]domain.Listing, 0, len(set))
	for _, l := range set {
		listings = append(listings, l)
	}
	sort.Slice(listings, func(i, j int) bool {
		if listings[i].FirstSeen != listings[j].FirstSeen {
			return listings[i].FirstSeen > listings[j].FirstSeen
		}
		return listings[i].ID < listings[j].ID
	})
	return listings, nil
}

// Save merges current into the stored set for every ID in knownIDs:
// listings present in current are upserted keeping their original first-seen,
// IDs absent from current keep their record or get a placeholder. Nothing is removed.
func (r *JSONFileRepository) Save(ctx context.Context, knownIDs []string, current []domain.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing := r.load()
	byID := make(map[string]domain.Listing, len(current))
	for _, l := range current {
		byID[l.ID] = l
	}
	stamp := domain.StampNow(r.now())

	for _, id := range knownIDs {
		fresh, ok := byID[id]
		if !ok {
			if _, stored := existing[id]; !stored {
				existing[id] = domain.Placeholder(id)
			}
			continue
		}
		fresh.ID = id
		if prev, stored := existing[id]; stored && prev.FirstSeen != "" {
			fresh.FirstSeen = prev.FirstSeen
		} else {
			fresh.FirstSeen = stamp
		}
		existing[id] = fresh
	}

	return r.write(ctx, existing)
}

// Delete removes one listing from the Known-Set.
func (r *JSONFileRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing := r.load()
	if _, ok := existing[id]; !ok {
		return fmt.Errorf("delete %q: %w", id, ErrListingNotFound)
	}
	delete(existing, id)
	return r.write(ctx, existing)
}

// load reads the state file. A missing, unreadable or corrupt file is an empty set.
func (r *JSONFileRepository) load() knownSet {
	raw, err := os.ReadFile(r.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			r.log.Warn("State file unreadable, treating as empty", zap.String("path", r.path), zap.Error(err))
		}
		return knownSet{}
	}

	set, format, err := decodeState(raw)
	if err != nil {
		r.log.Warn("State file corrupt, treating as empty", zap.String("path", r.path), zap.Error(err))
		return knownSet{}
	}
	if format == formatLegacyList {
		r.log.Info("Upgraded legacy state layout", zap.Int("ids", len(set)))
	}
	return set
}

func (r *JSONFileRepository) write(ctx context.Context, set knownSet) error {
	payload, err := encodeState(set)
	if err != nil {
		return &domain.PersistError{Path: r.path, Op: "encode", Err: err}
	}
	if err := writeFileAtomic(r.path, payload); err != nil {
		return err
	}
	r.log.Debug("State saved", zap.Int("listings", len(set)))

	if r.mirror != nil {
		if err := r.mirror.Push(ctx, payload); err != nil {
			r.log.Warn("Could not push state to mirror", zap.Error(err))
		}
	}
	return nil
}

func (r *JSONFileRepository) restore(ctx context.Context) {
	if r.mirror == nil {
		return
	}
	if _, err := os.Stat(r.path); err == nil {
		return
	}
	payload, err := r.mirror.Pull(ctx)
	if err != nil {
		r.log.Warn("Could not pull state from mirror", zap.Error(err))
		return
	}
	if len(payload) == 0 {
		return
	}
	if err := writeFileAtomic(r.path, payload); err != nil {
		r.log.Warn("Could not restore state from mirror", zap.Error(err))
		return
	}
	r.log.Info("State restored from mirror", zap.Int("bytes", len(payload)))
}

// writeFileAtomic replaces path with data via a temp file in the same
// directory, so a failed write leaves the previous content intact.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return &domain.PersistError{Path: path, Op: "create temp", Err: err}
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return &domain.PersistError{Path: path, Op: "write", Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return &domain.PersistError{Path: path, Op: "sync", Err: err}
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return &domain.PersistError{Path: path, Op: "close", Err: err}
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return &domain.PersistError{Path: path, Op: "chmod", Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return &domain.PersistError{Path: path, Op: "rename", Err: err}
	}
	return nil
}
