package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"time-nest/backend/internal/logging"
)

// コレクション名
const (
	UsersCollection = "users"
	TasksCollection = "tasks"
)

// OpenMongo はMongoDBに接続し、pingで疎通を確認します。
func OpenMongo(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(timeout).
		SetConnectTimeout(timeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	logging.Info().Msg("Successfully connected to MongoDB")
	return client, nil
}

// EnsureMongoIndexes はユーザーのemail一意インデックスと
// タスク一覧用の複合インデックスを作成します。
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(UsersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_email"),
	})
	if err != nil {
		return fmt.Errorf("failed to create users index: %w", err)
	}

	_, err = db.Collection(TasksCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
		Options: options.Index().SetName("user_created"),
	})
	if err != nil {
		return fmt.Errorf("failed to create tasks index: %w", err)
	}
	return nil
}

// ObjectIDFromHex は文字列IDをObjectIDに変換します。
// 不正な形式の場合は ok=false を返し、呼び出し側は「見つからない」として扱います。
func ObjectIDFromHex(id string) (oid primitive.ObjectID, ok bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return oid, true
}
