package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"time-nest/backend/internal/database"
	"time-nest/backend/internal/models"
)

type taskDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Title       string             `bson:"title"`
	Description *string            `bson:"description"`
	Priority    *string            `bson:"priority"`
	DueDate     *time.Time         `bson:"due_date"`
	DueTime     *string            `bson:"due_time"`
	Completed   bool               `bson:"completed"`
	UserID      string             `bson:"user_id"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"`
}

// toModel は _id を文字列の id に変換します。
func (d *taskDocument) toModel() models.Task {
	return models.Task{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Description: d.Description,
		Priority:    d.Priority,
		DueDate:     utcPtr(d.DueDate),
		DueTime:     d.DueTime,
		Completed:   d.Completed,
		UserID:      d.UserID,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}

// MongoTaskRepository はMongoDBのtasksコレクションを操作します。
type MongoTaskRepository struct {
	coll *mongo.Collection
}

// NewMongoTaskRepository は新しいMongoTaskRepositoryを作成します。
func NewMongoTaskRepository(db *mongo.Database) *MongoTaskRepository {
	return &MongoTaskRepository{coll: db.Collection(database.TasksCollection)}
}

func (r *MongoTaskRepository) ListByUser(ctx context.Context, userID string) ([]models.Task, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := r.coll.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("could not query tasks: %w", err)
	}
	var docs []taskDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("could not decode tasks: %w", err)
	}
	tasks := make([]models.Task, 0, len(docs))
	for i := range docs {
		tasks = append(tasks, docs[i].toModel())
	}
	return tasks, nil
}

func (r *MongoTaskRepository) Create(ctx context.Context, task *models.Task) error {
	doc := taskDocument{
		Title:       task.Title,
		Description: task.Description,
		Priority:    task.Priority,
		DueDate:     task.DueDate,
		DueTime:     task.DueTime,
		Completed:   task.Completed,
		UserID:      task.UserID,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("could not insert task: %w", err)
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	task.ID = oid.Hex()
	return nil
}

func (r *MongoTaskRepository) Update(ctx context.Context, id, userID string, ch models.TaskChanges) (*models.Task, error) {
	oid, ok := database.ObjectIDFromHex(id)
	if !ok {
		return nil, ErrTaskNotFound
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc taskDocument
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": oid, "user_id": userID},
		bson.M{"$set": changesToSet(ch)},
		opts,
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("could not update task: %w", err)
	}
	task := doc.toModel()
	return &task, nil
}

func (r *MongoTaskRepository) Delete(ctx context.Context, id, userID string) error {
	oid, ok := database.ObjectIDFromHex(id)
	if !ok {
		return ErrTaskNotFound
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid, "user_id": userID})
	if err != nil {
		return fmt.Errorf("could not delete task: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// changesToSet は変更を $set ドキュメントに変換します。クリアはnullを設定します。
func changesToSet(ch models.TaskChanges) bson.M {
	set := bson.M{"updated_at": ch.UpdatedAt}
	if ch.Title != nil {
		set["title"] = *ch.Title
	}
	if ch.ClearDescription {
		set["description"] = nil
	} else if ch.Description != nil {
		set["description"] = *ch.Description
	}
	if ch.ClearPriority {
		set["priority"] = nil
	} else if ch.Priority != nil {
		set["priority"] = *ch.Priority
	}
	if ch.Completed != nil {
		set["completed"] = *ch.Completed
	}
	if ch.ClearDueDate {
		set["due_date"] = nil
	} else if ch.DueDate != nil {
		set["due_date"] = *ch.DueDate
	}
	if ch.ClearDueTime {
		set["due_time"] = nil
	} else if ch.DueTime != nil {
		set["due_time"] = *ch.DueTime
	}
	return set
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
