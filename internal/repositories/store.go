package repositories

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"time-nest/backend/internal/config"
	"time-nest/backend/internal/database"
)

// Store は選択されたバックエンドのリポジトリと接続ハンドルをまとめます。
type Store struct {
	Driver string
	Tasks  TaskRepository
	Users  UserRepository

	ping    func(ctx context.Context) error
	migrate func(ctx context.Context) error
	close   func(ctx context.Context) error
}

// Open は設定されたドライバーで接続を開き、Storeを返します。
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	switch cfg.Driver {
	case "mongo":
		client, err := database.OpenMongo(ctx, cfg.URI, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		return NewMongoStore(client, cfg.Name), nil
	case "mysql":
		db, err := database.OpenMySQL(ctx, cfg.MySQL.DSN(), cfg.Timeout)
		if err != nil {
			return nil, err
		}
		return &Store{
			Driver:  "mysql",
			Tasks:   NewMySQLTaskRepository(db),
			Users:   NewMySQLUserRepository(db),
			ping:    db.PingContext,
			migrate: func(ctx context.Context) error { return database.MigrateMySQL(ctx, db) },
			close:   func(context.Context) error { return db.Close() },
		}, nil
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// NewMongoStore は接続済みクライアントからStoreを作成します。
func NewMongoStore(client *mongo.Client, dbName string) *Store {
	db := client.Database(dbName)
	return &Store{
		Driver:  "mongo",
		Tasks:   NewMongoTaskRepository(db),
		Users:   NewMongoUserRepository(db),
		ping:    func(ctx context.Context) error { return client.Ping(ctx, nil) },
		migrate: func(ctx context.Context) error { return database.EnsureMongoIndexes(ctx, db) },
		close:   client.Disconnect,
	}
}

// NewMemoryStore はメモリ上のStoreを作成します。
func NewMemoryStore() *Store {
	noop := func(context.Context) error { return nil }
	return &Store{
		Driver:  "memory",
		Tasks:   NewMemoryTaskRepository(),
		Users:   NewMemoryUserRepository(),
		ping:    noop,
		migrate: noop,
		close:   noop,
	}
}

// Ping はデータベースの疎通を確認します。
func (s *Store) Ping(ctx context.Context) error {
	return s.ping(ctx)
}

// Migrate はインデックスまたはテーブルを作成します。
func (s *Store) Migrate(ctx context.Context) error {
	return s.migrate(ctx)
}

// Close は接続を閉じます。
func (s *Store) Close(ctx context.Context) error {
	return s.close(ctx)
}
