package store

import (
	"context"
	"strconv"
	"time"

	"fingerprint.gateman.io/entities"
	"fingerprint.gateman.io/infrastructure/database/repository/cache"
	"fingerprint.gateman.io/infrastructure/database/repository/mongo"
)

// Remote is the durable copy the local files are mirrored to.
type Remote interface {
	Upsert(ctx context.Context, rec entities.FingerprintTemplate) error
	FindAll(ctx context.Context) ([]entities.FingerprintTemplate, error)
	DeleteByStaff(ctx context.Context, staffID string) (int64, error)
}

type MongoRemote struct {
	Repo *mongo.MongoRepository[entities.FingerprintTemplate]
}

func (r MongoRemote) Upsert(ctx context.Context, rec entities.FingerprintTemplate) error {
	return r.Repo.UpsertByID(ctx, rec.ID, rec)
}

func (r MongoRemote) FindAll(ctx context.Context) ([]entities.FingerprintTemplate, error) {
	found, err := r.Repo.FindMany(map[string]interface{}{})
	if err != nil {
		return nil, err
	}
	return *found, nil
}

func (r MongoRemote) DeleteByStaff(ctx context.Context, staffID string) (int64, error) {
	return r.Repo.RemoveFromDatabase(ctx, map[string]interface{}{"staffId": staffID})
}

// CountCache holds recent per-staff enrollment counts.
type CountCache interface {
	Get(staffID string) (int, bool)
	Set(staffID string, count int)
	Delete(staffID string)
}

type RedisCountCache struct {
	Repo *cache.RedisRepository
	TTL  time.Duration
}

func countKey(staffID string) string {
	return "fingerprint:enroll_count:" + staffID
}

func (c RedisCountCache) Get(staffID string) (int, bool) {
	raw := c.Repo.FindOne(countKey(staffID))
	if raw == nil {
		return 0, false
	}
	n, err := strconv.Atoi(*raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

func (c RedisCountCache) Set(staffID string, count int) {
	c.Repo.CreateEntry(countKey(staffID), count, c.TTL)
}

func (c RedisCountCache) Delete(staffID string) {
	c.Repo.DeleteOne(countKey(staffID))
}
