package mongo

import (
	"context"
	"errors"
	"time"

	"fingerprint.gateman.io/infrastructure/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (repo *MongoRepository[T]) timeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 15*time.Second)
}

func (repo *MongoRepository[T]) CreateOne(ctx context.Context, payload T) (*T, error) {
	parsed := payload.ParseModel().(*T)
	_, err := repo.Model.InsertOne(ctx, parsed)
	if err != nil {
		logger.Error("mongo error occured while running CreateOne", logger.LoggerOptions{Key: "error", Data: err.Error()})
		return nil, err
	}
	return parsed, nil
}

// UpsertByID replaces the document with the given id, inserting it when it
// does not exist yet.
func (repo *MongoRepository[T]) UpsertByID(ctx context.Context, id string, payload T) error {
	parsed := payload.ParseModel().(*T)
	_, err := repo.Model.ReplaceOne(ctx, bson.M{"_id": id}, parsed, options.Replace().SetUpsert(true))
	if err != nil {
		logger.Error("mongo error occured while running UpsertByID", logger.LoggerOptions{Key: "error", Data: err.Error()}, logger.LoggerOptions{Key: "id", Data: id})
	}
	return err
}

func (repo *MongoRepository[T]) FindByID(id string, opts ...*options.FindOneOptions) (*T, error) {
	return repo.FindOneByFilter(map[string]interface{}{"_id": id}, opts...)
}

func (repo *MongoRepository[T]) FindOneByFilter(filter map[string]interface{}, opts ...*options.FindOneOptions) (*T, error) {
	ctx, cancel := repo.timeout()
	defer cancel()
	var result T
	err := repo.Model.FindOne(ctx, withoutDeleted(filter), opts...).Decode(&result)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		logger.Error("mongo error occured while running FindOneByFilter", logger.LoggerOptions{Key: "error", Data: err.Error()})
		return nil, err
	}
	return &result, nil
}

func (repo *MongoRepository[T]) FindMany(filter map[string]interface{}, opts ...*options.FindOptions) (*[]T, error) {
	ctx, cancel := repo.timeout()
	defer cancel()
	cursor, err := repo.Model.Find(ctx, withoutDeleted(filter), opts...)
	if err != nil {
		logger.Error("mongo error occured while running FindMany", logger.LoggerOptions{Key: "error", Data: err.Error()})
		return nil, err
	}
	result := []T{}
	if err := cursor.All(ctx, &result); err != nil {
		logger.Error("mongo error occured while decoding FindMany", logger.LoggerOptions{Key: "error", Data: err.Error()})
		return nil, err
	}
	return &result, nil
}

func (repo *MongoRepository[T]) CountDocs(filter map[string]interface{}) (int64, error) {
	ctx, cancel := repo.timeout()
	defer cancel()
	return repo.Model.CountDocuments(ctx, withoutDeleted(filter))
}

// RemoveFromDatabase hard deletes every matching document.
func (repo *MongoRepository[T]) RemoveFromDatabase(ctx context.Context, filter map[string]interface{}) (int64, error) {
	result, err := repo.Model.DeleteMany(ctx, filter)
	if err != nil {
		logger.Error("mongo error occured while running RemoveFromDatabase", logger.LoggerOptions{Key: "error", Data: err.Error()})
		return 0, err
	}
	return result.DeletedCount, nil
}

func withoutDeleted(filter map[string]interface{}) bson.M {
	out := bson.M{"deletedAt": nil}
	for k, v := range filter {
		out[k] = v
	}
	return out
}
