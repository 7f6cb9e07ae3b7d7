package main

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	_ "modernc.org/sqlite"

	"github.com/petrijr/stepgraph"
)

const connectTimeout = 10 * time.Second

// openEngine builds an engine whose run history goes to the backend named by
// spec. The returned cleanup closes the backend connection.
func openEngine(ctx context.Context, spec string, opts ...stepgraph.Option) (stepgraph.Engine, func(), error) {
	kind, target, _ := strings.Cut(spec, ":")
	noop := func() {}

	switch kind {
	case "", "memory":
		return stepgraph.NewInMemoryEngine(opts...), noop, nil

	case "none":
		return stepgraph.NewEngine(opts...), noop, nil

	case "sqlite":
		if target == "" {
			return nil, nil, fmt.Errorf("history %q: missing database path", spec)
		}
		db, err := sql.Open("sqlite", target)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		eng, err := stepgraph.NewSQLiteEngine(db, opts...)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return eng, func() { _ = db.Close() }, nil

	case "postgres", "postgresql":
		if target == "" {
			return nil, nil, fmt.Errorf("history %q: missing dsn", spec)
		}
		// Full URLs keep their scheme.
		dsn := target
		if strings.HasPrefix(target, "//") {
			dsn = kind + ":" + target
		}
		db, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("ping postgres: %w", err)
		}
		eng, err := stepgraph.NewPostgresEngine(db, opts...)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return eng, func() { _ = db.Close() }, nil

	case "redis":
		if target == "" {
			return nil, nil, fmt.Errorf("history %q: missing address", spec)
		}
		ropts := &redis.Options{Addr: target}
		if strings.HasPrefix(target, "//") {
			var err error
			if ropts, err = redis.ParseURL("redis:" + target); err != nil {
				return nil, nil, fmt.Errorf("history %q: %w", spec, err)
			}
		}
		client := redis.NewClient(ropts)
		pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		return stepgraph.NewRedisEngine(client, opts...), func() { _ = client.Close() }, nil

	case "mongo", "mongodb":
		if target == "" {
			return nil, nil, fmt.Errorf("history %q: missing uri", spec)
		}
		uri := target
		if strings.HasPrefix(target, "//") {
			uri = "mongodb:" + target
		}
		connCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		client, err := mongo.Connect(connCtx, options.Client().ApplyURI(uri))
		if err != nil {
			return nil, nil, fmt.Errorf("connect mongo: %w", err)
		}
		if err := client.Ping(connCtx, nil); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, fmt.Errorf("ping mongo: %w", err)
		}
		cleanup := func() { _ = client.Disconnect(context.Background()) }
		return stepgraph.NewMongoEngine(client, opts...), cleanup, nil
	}
	return nil, nil, fmt.Errorf("unknown history backend %q", kind)
}
