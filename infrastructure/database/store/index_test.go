package store

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"fingerprint.gateman.io/entities"
	"fingerprint.gateman.io/infrastructure/biometric/config"
	"fingerprint.gateman.io/infrastructure/biometric/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRemote struct {
	mu      sync.Mutex
	records    map[string]entities.FingerprintTemplate
	fail       bool
	failDelete bool
}

func newMemoryRemote() *memoryRemote {
	return &memoryRemote{records: map[string]entities.FingerprintTemplate{}}
}

func (r *memoryRemote) Upsert(_ context.Context, rec entities.FingerprintTemplate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("remote down")
	}
	r.records[rec.ID] = rec
	return nil
}

func (r *memoryRemote) FindAll(context.Context) ([]entities.FingerprintTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []entities.FingerprintTemplate{}
	for _, rec := range r.records {
		out = append(out, rec)
	}
	return out, nil
}

func (r *memoryRemote) DeleteByStaff(_ context.Context, staffID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failDelete {
		return 0, errors.New("remote delete refused")
	}
	var n int64
	for id, rec := range r.records {
		if rec.StaffID == staffID {
			delete(r.records, id)
			n++
		}
	}
	return n, nil
}

type memoryCounts struct {
	values map[string]int
	hits   int
	// beforeSet runs ahead of each Set, standing in for a concurrent writer.
	beforeSet func()
}

func (c *memoryCounts) Get(staffID string) (int, bool) {
	n, ok := c.values[staffID]
	if ok {
		c.hits++
	}
	return n, ok
}
func (c *memoryCounts) Set(staffID string, n int) {
	if c.beforeSet != nil {
		hook := c.beforeSet
		c.beforeSet = nil
		hook()
	}
	c.values[staffID] = n
}
func (c *memoryCounts) Delete(staffID string) { delete(c.values, staffID) }

func storeConfig(t *testing.T) config.StoreConfig {
	cfg := config.Default().Store
	cfg.LocalDataPath = t.TempDir()
	return cfg
}

func template(n int) *types.Template {
	tpl := &types.Template{Hash: types.NewBitString(64), Width: 500, Height: 500, Strategy: "otsu"}
	for i := 0; i < n; i++ {
		tpl.Minutiae = append(tpl.Minutiae, types.Minutia{X: 20 + i, Y: 40, Type: types.Ending, Direction: 90})
		tpl.Keypoints = append(tpl.Keypoints, types.Keypoint{X: float64(i), Y: 3, Strength: 0.5})
		tpl.Descriptors = append(tpl.Descriptors, make(types.Descriptor, types.DescriptorSize))
	}
	tpl.Texture = &types.TextureGrid{}
	tpl.Texture[1][2] = types.TextureCell{Mean: 120, StdDev: 30}
	return tpl
}

func TestStoreIsVisibleImmediatelyAndPersists(t *testing.T) {
	cfg := storeConfig(t)
	ctx := context.Background()
	s, err := New(cfg, 5)
	require.NoError(t, err)

	ok, count, err := s.StoreTemplate(ctx, "STAFF001", template(3))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, count)
	_, count, err = s.StoreTemplate(ctx, "STAFF001", template(4))
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	listed, err := s.ListTemplates(ctx, "STAFF001")
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Len(t, listed[1].Minutiae, 4)
	assert.Equal(t, 2, s.PendingCount())

	files, err := os.ReadDir(cfg.LocalDataPath)
	require.NoError(t, err)
	assert.Len(t, files, 2)

	reopened, err := New(cfg, 5)
	require.NoError(t, err)
	n, err := reopened.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	again, err := reopened.ListTemplates(ctx, "STAFF001")
	require.NoError(t, err)
	require.Len(t, again, 2)
	assert.Equal(t, listed[0].Minutiae, again[0].Minutiae)
	assert.Equal(t, 120.0, again[0].Texture[1][2].Mean)
	assert.Equal(t, 2, reopened.PendingCount())
}

func TestStoreEnforcesEnrollmentLimit(t *testing.T) {
	s, err := New(storeConfig(t), 2)
	require.NoError(t, err)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, _, err := s.StoreTemplate(ctx, "S1", template(2))
		require.NoError(t, err)
	}
	ok, count, err := s.StoreTemplate(ctx, "S1", template(2))
	assert.ErrorIs(t, err, types.ErrEnrollmentLimit)
	assert.False(t, ok)
	assert.Equal(t, 2, count)
}

func TestDeleteAllRemovesFilesAndRemote(t *testing.T) {
	cfg := storeConfig(t)
	remote := newMemoryRemote()
	s, err := New(cfg, 5, WithRemote(remote))
	require.NoError(t, err)
	ctx := context.Background()
	s.StoreTemplate(ctx, "A", template(2))
	s.StoreTemplate(ctx, "A", template(2))
	s.StoreTemplate(ctx, "B", template(2))
	_, err = s.Sync(ctx)
	require.NoError(t, err)

	deleted, err := s.DeleteAll(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "B", all[0].StaffID)
	files, _ := os.ReadDir(cfg.LocalDataPath)
	assert.Len(t, files, 1)
	assert.Len(t, remote.records, 1)

	deleted, err = s.DeleteAll(ctx, "missing")
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)
}

func TestSyncPushesPendingRecords(t *testing.T) {
	cfg := storeConfig(t)
	remote := newMemoryRemote()
	s, err := New(cfg, 5, WithRemote(remote))
	require.NoError(t, err)
	ctx := context.Background()
	s.StoreTemplate(ctx, "A", template(2))
	s.StoreTemplate(ctx, "B", template(2))

	remote.fail = true
	synced, err := s.Sync(ctx)
	assert.Error(t, err)
	assert.Equal(t, 0, synced)
	assert.Equal(t, 2, s.PendingCount())

	remote.fail = false
	synced, err = s.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, synced)
	assert.Equal(t, 0, s.PendingCount())
	assert.Len(t, remote.records, 2)
	for _, rec := range remote.records {
		assert.True(t, rec.Synced)
	}

	// synced flags survive a restart
	reopened, err := New(cfg, 5)
	require.NoError(t, err)
	_, err = reopened.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, reopened.PendingCount())
}

func TestSyncWithoutRemote(t *testing.T) {
	s, err := New(storeConfig(t), 5)
	require.NoError(t, err)
	_, err = s.Sync(context.Background())
	assert.ErrorIs(t, err, ErrNoRemote)
}

func TestLoadPullsRemoteOnlyRecords(t *testing.T) {
	remote := newMemoryRemote()
	remote.records["01REMOTE"] = entities.FingerprintTemplate{
		ID:        "01REMOTE",
		StaffID:   "R1",
		Template:  *template(2),
		CreatedAt: time.Now().Add(-time.Hour),
	}
	cfg := storeConfig(t)
	s, err := New(cfg, 5, WithRemote(remote))
	require.NoError(t, err)

	n, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	count, _ := s.Count(context.Background(), "R1")
	assert.Equal(t, 1, count)
	assert.Equal(t, 0, s.PendingCount())
	files, _ := os.ReadDir(cfg.LocalDataPath)
	assert.Len(t, files, 1)
}

func TestCountUsesCacheAndInvalidatesOnChange(t *testing.T) {
	counts := &memoryCounts{values: map[string]int{}}
	s, err := New(storeConfig(t), 5, WithCountCache(counts))
	require.NoError(t, err)
	ctx := context.Background()

	n, _ := s.Count(ctx, "A")
	assert.Equal(t, 0, n)
	n, _ = s.Count(ctx, "A")
	assert.Equal(t, 0, n)
	assert.Equal(t, 1, counts.hits)

	s.StoreTemplate(ctx, "A", template(1))
	n, _ = s.Count(ctx, "A")
	assert.Equal(t, 1, n)

	s.DeleteAll(ctx, "A")
	_, cached := counts.values["A"]
	assert.False(t, cached)
}

func (r *memoryRemote) countFor(staffID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, rec := range r.records {
		if rec.StaffID == staffID {
			n++
		}
	}
	return n
}

func TestDeletedSubjectStaysDeletedAfterRestart(t *testing.T) {
	cfg := storeConfig(t)
	remote := newMemoryRemote()
	ctx := context.Background()
	s, err := New(cfg, 5, WithRemote(remote))
	require.NoError(t, err)
	_, _, err = s.StoreTemplate(ctx, "A", template(2))
	require.NoError(t, err)
	_, err = s.Sync(ctx)
	require.NoError(t, err)

	remote.failDelete = true
	deleted, err := s.DeleteAll(ctx, "A")
	assert.Error(t, err)
	assert.Equal(t, 1, deleted)
	assert.Equal(t, 1, s.PendingDeletes())
	n, _ := s.Count(ctx, "A")
	assert.Equal(t, 0, n)

	reopened, err := New(cfg, 5, WithRemote(remote))
	require.NoError(t, err)
	_, err = reopened.Load(ctx)
	require.NoError(t, err)
	n, _ = reopened.Count(ctx, "A")
	assert.Equal(t, 0, n, "deleted subject served again after restart")
	assert.Equal(t, 1, reopened.PendingDeletes())

	// a fresh enrollment after the delete must survive the retried delete
	_, _, err = reopened.StoreTemplate(ctx, "A", template(3))
	require.NoError(t, err)
	_, err = reopened.Sync(ctx)
	assert.Error(t, err)
	assert.Equal(t, 1, remote.countFor("A"), "nothing is pushed while the delete is owed")

	remote.failDelete = false
	synced, err := reopened.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, synced)
	assert.Equal(t, 0, reopened.PendingDeletes())
	assert.Equal(t, 1, remote.countFor("A"))
	for _, rec := range remote.records {
		assert.Len(t, rec.Template.Minutiae, 3)
	}

	files, _ := os.ReadDir(cfg.LocalDataPath)
	assert.Len(t, files, 1)

	again, err := New(cfg, 5, WithRemote(remote))
	require.NoError(t, err)
	_, err = again.Load(ctx)
	require.NoError(t, err)
	n, _ = again.Count(ctx, "A")
	assert.Equal(t, 1, n)
}

func TestDeleteWithoutRemoteLeavesNoTombstone(t *testing.T) {
	cfg := storeConfig(t)
	s, err := New(cfg, 5)
	require.NoError(t, err)
	ctx := context.Background()
	s.StoreTemplate(ctx, "A", template(2))
	_, err = s.DeleteAll(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, 0, s.PendingDeletes())
	files, _ := os.ReadDir(cfg.LocalDataPath)
	assert.Empty(t, files)
}

func TestCountDoesNotCacheValueOvertakenByWrite(t *testing.T) {
	counts := &memoryCounts{values: map[string]int{}}
	s, err := New(storeConfig(t), 5, WithCountCache(counts))
	require.NoError(t, err)
	ctx := context.Background()

	counts.beforeSet = func() {
		_, _, err := s.StoreTemplate(ctx, "A", template(1))
		require.NoError(t, err)
	}
	n, _ := s.Count(ctx, "A")
	assert.Equal(t, 0, n)
	_, cached := counts.values["A"]
	assert.False(t, cached, "stale count left in cache")

	n, _ = s.Count(ctx, "A")
	assert.Equal(t, 1, n)
}
