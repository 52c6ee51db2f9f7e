package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"fingerprint.gateman.io/entities"
	"fingerprint.gateman.io/infrastructure/biometric/config"
	"fingerprint.gateman.io/infrastructure/biometric/types"
	"fingerprint.gateman.io/infrastructure/logger"
	"github.com/RoaringBitmap/roaring/v2"
)

var ErrNoRemote = errors.New("no remote template store configured")

type record struct {
	entity entities.FingerprintTemplate
	file   string
}

// FingerprintStore keeps every template in memory and in one local file per
// template. Writes are acknowledged once the local file exists; the remote
// copy catches up through Sync.
type FingerprintStore struct {
	cfg            config.StoreConfig
	maxEnrollments int
	remote         Remote
	counts         CountCache

	mu      sync.RWMutex
	seq     uint32
	records map[uint32]*record
	byStaff map[string][]uint32
	byID    map[string]uint32
	pending *roaring.Bitmap
	// deletes maps staff ids to tombstone files for remote deletes still owed.
	deletes map[string]string
	// version changes on every write so Count can tell a stale read.
	version uint64

	syncMu sync.Mutex
}

type Option func(*FingerprintStore)

func WithRemote(r Remote) Option {
	return func(s *FingerprintStore) { s.remote = r }
}

func WithCountCache(c CountCache) Option {
	return func(s *FingerprintStore) { s.counts = c }
}

func New(cfg config.StoreConfig, maxEnrollments int, opts ...Option) (*FingerprintStore, error) {
	if err := os.MkdirAll(cfg.LocalDataPath, 0o755); err != nil {
		return nil, fmt.Errorf("creating local data path: %w", err)
	}
	s := &FingerprintStore{
		cfg:            cfg,
		maxEnrollments: maxEnrollments,
		records:        map[uint32]*record{},
		byStaff:        map[string][]uint32{},
		byID:           map[string]uint32{},
		pending:        roaring.New(),
		deletes:        map[string]string{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// add registers a record in memory. Callers hold mu.
func (s *FingerprintStore) add(rec entities.FingerprintTemplate, file string) uint32 {
	s.seq++
	s.records[s.seq] = &record{entity: rec, file: file}
	s.byStaff[rec.StaffID] = append(s.byStaff[rec.StaffID], s.seq)
	s.byID[rec.ID] = s.seq
	s.version++
	if !rec.Synced {
		s.pending.Add(s.seq)
	}
	return s.seq
}

// Load reads the local data directory and then merges in remote records the
// directory does not know about yet.
func (s *FingerprintStore) Load(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(s.cfg.LocalDataPath)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	loaded := 0
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, tombstonePrefix) && strings.HasSuffix(name, tombstoneSuffix) {
			path := filepath.Join(s.cfg.LocalDataPath, name)
			staffID, err := os.ReadFile(path)
			if err != nil || len(staffID) == 0 {
				logger.Warning("skipping unreadable tombstone", logger.LoggerOptions{Key: "file", Data: name})
				continue
			}
			s.deletes[string(staffID)] = path
			continue
		}
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		path := filepath.Join(s.cfg.LocalDataPath, name)
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warning("skipping unreadable template file", logger.LoggerOptions{Key: "file", Data: name})
			continue
		}
		rec, err := decodeRecord(data)
		if err != nil || rec.ID == "" {
			logger.Warning("skipping corrupt template file", logger.LoggerOptions{Key: "file", Data: name})
			continue
		}
		if _, ok := s.byID[rec.ID]; ok {
			continue
		}
		s.add(rec, path)
		loaded++
	}
	s.sortLocked()

	if s.remote == nil {
		logger.Info("fingerprint templates loaded", logger.LoggerOptions{Key: "local", Data: loaded})
		return loaded, nil
	}
	remote, err := s.remote.FindAll(ctx)
	if err != nil {
		logger.Warning("could not read remote templates, serving local copy only", logger.LoggerOptions{Key: "error", Data: err.Error()})
		return loaded, nil
	}
	pulled := 0
	for _, rec := range remote {
		if _, ok := s.byID[rec.ID]; ok {
			continue
		}
		// remote copies of a deleted subject are stale until Sync retires them
		if _, ok := s.deletes[rec.StaffID]; ok {
			continue
		}
		rec.Synced = true
		path := filepath.Join(s.cfg.LocalDataPath, fileName(rec.StaffID, rec.CreatedAt.Unix(), len(s.byStaff[rec.StaffID])+1))
		if err := writeFile(path, rec); err != nil {
			logger.Warning("could not cache remote template locally", logger.LoggerOptions{Key: "error", Data: err.Error()})
			path = ""
		}
		s.add(rec, path)
		pulled++
	}
	s.sortLocked()
	logger.Info("fingerprint templates loaded", logger.LoggerOptions{Key: "local", Data: loaded}, logger.LoggerOptions{Key: "remote", Data: pulled})
	return loaded + pulled, nil
}

// sortLocked orders each subject's templates by enrollment time.
func (s *FingerprintStore) sortLocked() {
	for _, seqs := range s.byStaff {
		sort.SliceStable(seqs, func(i, j int) bool {
			return s.records[seqs[i]].entity.CreatedAt.Before(s.records[seqs[j]].entity.CreatedAt)
		})
	}
}

func (s *FingerprintStore) StoreTemplate(ctx context.Context, staffID string, tpl *types.Template) (bool, int, error) {
	return s.Save(ctx, entities.FingerprintTemplate{StaffID: staffID, Template: *tpl})
}

// Save persists a record locally and queues it for the remote. It refuses
// once the subject holds maxEnrollments templates.
func (s *FingerprintStore) Save(_ context.Context, rec entities.FingerprintTemplate) (bool, int, error) {
	s.mu.Lock()
	count := len(s.byStaff[rec.StaffID])
	if s.maxEnrollments > 0 && count >= s.maxEnrollments {
		s.mu.Unlock()
		return false, count, types.ErrEnrollmentLimit
	}
	rec.Synced = false
	rec = *rec.ParseModel().(*entities.FingerprintTemplate)
	path := filepath.Join(s.cfg.LocalDataPath, fileName(rec.StaffID, rec.CreatedAt.Unix(), count+1))
	if err := writeFile(path, rec); err != nil {
		s.mu.Unlock()
		return false, count, fmt.Errorf("writing template file: %w", err)
	}
	s.add(rec, path)
	s.mu.Unlock()

	if s.counts != nil {
		s.counts.Delete(rec.StaffID)
	}
	logger.Info("fingerprint template stored", logger.LoggerOptions{Key: "staffId", Data: rec.StaffID}, logger.LoggerOptions{Key: "count", Data: count + 1})
	return true, count + 1, nil
}

func (s *FingerprintStore) ListTemplates(_ context.Context, staffID string) ([]*types.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seqs := s.byStaff[staffID]
	out := make([]*types.Template, 0, len(seqs))
	for _, seq := range seqs {
		out = append(out, &s.records[seq].entity.Template)
	}
	return out, nil
}

// Records returns copies of a subject's stored records, oldest first.
func (s *FingerprintStore) Records(staffID string) []entities.FingerprintTemplate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []entities.FingerprintTemplate{}
	for _, seq := range s.byStaff[staffID] {
		out = append(out, s.records[seq].entity)
	}
	return out
}

func (s *FingerprintStore) ListAll(_ context.Context) ([]types.SubjectTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	staff := make([]string, 0, len(s.byStaff))
	for id := range s.byStaff {
		staff = append(staff, id)
	}
	sort.Strings(staff)
	out := make([]types.SubjectTemplate, 0, len(s.records))
	for _, id := range staff {
		for _, seq := range s.byStaff[id] {
			out = append(out, types.SubjectTemplate{StaffID: id, Template: &s.records[seq].entity.Template})
		}
	}
	return out, nil
}

func (s *FingerprintStore) Count(_ context.Context, staffID string) (int, error) {
	if s.counts != nil {
		if n, ok := s.counts.Get(staffID); ok {
			return n, nil
		}
	}
	s.mu.RLock()
	n := len(s.byStaff[staffID])
	version := s.version
	s.mu.RUnlock()
	if s.counts == nil {
		return n, nil
	}
	s.counts.Set(staffID, n)
	// a write that landed after the read may have invalidated before our Set
	s.mu.RLock()
	stale := s.version != version
	s.mu.RUnlock()
	if stale {
		s.counts.Delete(staffID)
	}
	return n, nil
}

// DeleteAll drops a subject locally and remotely. Local deletion stands even
// when the remote call fails; a tombstone keeps the remote delete owed until
// Sync completes it.
func (s *FingerprintStore) DeleteAll(ctx context.Context, staffID string) (int, error) {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	s.mu.Lock()
	seqs := s.byStaff[staffID]
	for _, seq := range seqs {
		rec := s.records[seq]
		if rec.file != "" {
			if err := os.Remove(rec.file); err != nil && !errors.Is(err, os.ErrNotExist) {
				logger.Warning("could not remove template file", logger.LoggerOptions{Key: "file", Data: rec.file})
			}
		}
		delete(s.byID, rec.entity.ID)
		delete(s.records, seq)
		s.pending.Remove(seq)
	}
	delete(s.byStaff, staffID)
	s.version++
	var tombstone string
	if s.remote != nil {
		tombstone = filepath.Join(s.cfg.LocalDataPath, tombstoneName(staffID))
		if err := writeBytes(tombstone, []byte(staffID)); err != nil {
			s.mu.Unlock()
			return len(seqs), fmt.Errorf("recording delete of %s: %w", staffID, err)
		}
		s.deletes[staffID] = tombstone
	}
	s.mu.Unlock()

	if s.counts != nil {
		s.counts.Delete(staffID)
	}
	if s.remote == nil {
		return len(seqs), nil
	}
	if err := s.retireRemote(ctx, staffID, tombstone); err != nil {
		return len(seqs), fmt.Errorf("deleting remote templates for %s: %w", staffID, err)
	}
	return len(seqs), nil
}

// retireRemote deletes a subject's remote copies and clears its tombstone.
// Callers hold syncMu.
func (s *FingerprintStore) retireRemote(ctx context.Context, staffID, tombstone string) error {
	if _, err := s.remote.DeleteByStaff(ctx, staffID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deletes[staffID] == tombstone {
		delete(s.deletes, staffID)
		if err := os.Remove(tombstone); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warning("could not remove tombstone", logger.LoggerOptions{Key: "file", Data: tombstone})
		}
	}
	return nil
}

func (s *FingerprintStore) PendingCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int(s.pending.GetCardinality())
}

// PendingDeletes is the number of subjects whose remote delete is still owed.
func (s *FingerprintStore) PendingDeletes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.deletes)
}

// Sync first retires owed remote deletes, then pushes every unsynced record
// to the remote. It stops at the first failure, leaving the rest queued.
func (s *FingerprintStore) Sync(ctx context.Context) (int, error) {
	if s.remote == nil {
		return 0, ErrNoRemote
	}
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	s.mu.RLock()
	owed := make(map[string]string, len(s.deletes))
	for staffID, tombstone := range s.deletes {
		owed[staffID] = tombstone
	}
	queued := s.pending.ToArray()
	s.mu.RUnlock()

	for staffID, tombstone := range owed {
		if err := s.retireRemote(ctx, staffID, tombstone); err != nil {
			logger.Warning("remote delete retry failed", logger.LoggerOptions{Key: "staffId", Data: staffID}, logger.LoggerOptions{Key: "error", Data: err.Error()})
			return 0, err
		}
	}

	synced := 0
	for _, seq := range queued {
		if err := ctx.Err(); err != nil {
			return synced, err
		}
		s.mu.RLock()
		rec, ok := s.records[seq]
		var entity entities.FingerprintTemplate
		if ok {
			entity = rec.entity
		}
		s.mu.RUnlock()
		if !ok {
			continue
		}

		entity.Synced = true
		if err := s.remote.Upsert(ctx, entity); err != nil {
			logger.Warning("template sync failed", logger.LoggerOptions{Key: "id", Data: entity.ID}, logger.LoggerOptions{Key: "error", Data: err.Error()})
			return synced, err
		}

		s.mu.Lock()
		if rec, ok := s.records[seq]; ok {
			rec.entity.Synced = true
			if rec.file != "" {
				if err := writeFile(rec.file, rec.entity); err != nil {
					logger.Warning("could not mark template file synced", logger.LoggerOptions{Key: "file", Data: rec.file})
				}
			}
			s.pending.Remove(seq)
		}
		s.mu.Unlock()
		synced++
	}
	if synced > 0 {
		logger.Info("fingerprint templates synced", logger.LoggerOptions{Key: "count", Data: synced})
	}
	return synced, nil
}

// StartBackgroundSync runs Sync every SyncInterval until ctx is done.
func (s *FingerprintStore) StartBackgroundSync(ctx context.Context) {
	if s.remote == nil {
		return
	}
	interval := max(s.cfg.SyncInterval, s.cfg.MinSyncInterval)
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sync(ctx)
			}
		}
	}()
	logger.Info("background template sync started", logger.LoggerOptions{Key: "interval", Data: interval.String()})
}
