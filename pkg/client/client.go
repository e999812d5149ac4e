package client

import (
	"context"
	"database/sql"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"studiobook/pkg/db/sqldb"
	"studiobook/pkg/logger"
)

// Client holds the store connection selected at startup. Exactly one of
// Mongo or SQL is set.
type Client struct {
	Mongo         *mongo.Client
	MongoDatabase string
	SQL           *sql.DB
	Dialect       sqldb.Dialect
}

func NewClient() *Client {
	return &Client{}
}

func (c *Client) SetMongo(log *logger.Logger, mongoURI, database string, mongoConnTimeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoConnTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		log.Fatal("Failed to connect to MongoDB", "error", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		log.Fatal("Failed to ping MongoDB", "error", err)
	}

	log.Info("Successfully connected to MongoDB", "database", database)
	c.Mongo = client
	c.MongoDatabase = database
}

func (c *Client) SetSQL(log *logger.Logger, dialect, dsn string, maxOpenConns int, connTimeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), connTimeout)
	defer cancel()

	db, d, err := sqldb.Open(ctx, dialect, dsn, maxOpenConns)
	if err != nil {
		log.Fatal("Failed to connect to SQL store", "dialect", dialect, "error", err)
	}

	log.Info("Successfully connected to SQL store", "dialect", d.Name)
	c.SQL = db
	c.Dialect = d
}

// Ping checks the configured store.
func (c *Client) Ping(ctx context.Context) error {
	if c.Mongo != nil {
		return c.Mongo.Ping(ctx, nil)
	}
	if c.SQL != nil {
		return c.SQL.PingContext(ctx)
	}
	return nil
}

func (c *Client) GracefulShutdown(log *logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if c.Mongo != nil {
		if err := c.Mongo.Disconnect(ctx); err != nil {
			log.Error("Failed to disconnect from MongoDB", "error", err)
		}
	}
	if c.SQL != nil {
		if err := c.SQL.Close(); err != nil {
			log.Error("Failed to close SQL store", "error", err)
		}
	}
}
