package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	mongoAppName        = "peak-mode-storefront"
	mongoPingTimeout    = 5 * time.Second
	mongoDisconnectWait = 5 * time.Second
)

// ConnectMongoDB opens a client for the cart database and checks the primary
// is reachable before returning.
func ConnectMongoDB(ctx context.Context, uri, database string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetAppName(mongoAppName).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(mongoPingTimeout).
		SetRetryWrites(true).
		SetMaxPoolSize(20)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, mongoPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		DisconnectMongoDB(client.Database(database))
		return nil, fmt.Errorf("ping mongo primary: %w", err)
	}

	return client.Database(database), nil
}

// DisconnectMongoDB closes the client behind db, waiting a bounded time for
// in-flight operations.
func DisconnectMongoDB(db *mongo.Database) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoDisconnectWait)
	defer cancel()
	if err := db.Client().Disconnect(ctx); err != nil {
		slog.Warn("mongo disconnect failed", "db", db.Name(), "error", err)
	}
}
