package datastore

import (
	"context"
	"os"
	"time"

	"fingerprint.gateman.io/infrastructure/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	FingerprintModel *mongo.Collection
	client           *mongo.Client
)

func ConnectToDatabase(ctx context.Context) {
	url := os.Getenv("DB_URL")
	if url == "" {
		logger.Warning("mongo url missing, fingerprint templates will only be kept locally")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	clientOpts := options.Client().ApplyURI(url)
	clientOpts.SetMinPoolSize(5)
	clientOpts.SetMaxPoolSize(10)

	conn, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		logger.Warning("an error occured while starting the database", logger.LoggerOptions{Key: "error", Data: err.Error()})
		return
	}
	if err := conn.Ping(ctx, nil); err != nil {
		logger.Warning("mongodb is unreachable", logger.LoggerOptions{Key: "error", Data: err.Error()})
		conn.Disconnect(context.Background())
		return
	}
	client = conn

	name := os.Getenv("DB_NAME")
	if name == "" {
		name = "fingerprint_service"
	}
	setUpIndexes(ctx, client.Database(name))
	logger.Info("connected to mongodb successfully")
}

func CleanUp() {
	if client == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		logger.Error("error disconnecting from mongodb", logger.LoggerOptions{Key: "error", Data: err.Error()})
	}
}

// Set up the indexes for the database
func setUpIndexes(ctx context.Context, db *mongo.Database) {
	FingerprintModel = db.Collection("fingerprints")
	_, err := FingerprintModel.Indexes().CreateMany(ctx, []mongo.IndexModel{{
		Keys:    bson.D{{Key: "staffId", Value: 1}},
		Options: options.Index(),
	}, {
		Keys:    bson.D{{Key: "staffId", Value: 1}, {Key: "createdAt", Value: 1}},
		Options: options.Index(),
	}})
	if err != nil {
		logger.Warning("could not create fingerprint indexes", logger.LoggerOptions{Key: "error", Data: err.Error()})
		return
	}
	logger.Info("mongodb indexes set up successfully")
}
