package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/task-manager-api/internal/models"
)

func (s *MongoStore) CreateTask(ctx context.Context, t *models.Task) error {
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	res, err := s.tasks.InsertOne(ctx, t)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	t.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

// ListTasks returns the tasks owned by authorID that match q.
func (s *MongoStore) ListTasks(ctx context.Context, authorID string, q models.TaskQuery) ([]models.Task, error) {
	oid, err := objectID(authorID)
	if err != nil {
		return nil, err
	}
	filter := bson.M{"author": oid}
	if q.Completed != nil {
		filter["completed"] = *q.Completed
	}

	opts := options.Find()
	if q.SortField != "" {
		dir := 1
		if q.SortDesc {
			dir = -1
		}
		opts.SetSort(bson.D{{Key: q.SortField, Value: dir}})
	}
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}
	if q.Skip > 0 {
		opts.SetSkip(q.Skip)
	}

	cur, err := s.tasks.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var tasks []models.Task
	if err := cur.All(ctx, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// GetTask returns task id only when it is owned by authorID.
func (s *MongoStore) GetTask(ctx context.Context, id, authorID string) (*models.Task, error) {
	filter, err := ownedBy(id, authorID)
	if err != nil {
		return nil, err
	}
	var t models.Task
	if err := s.tasks.FindOne(ctx, filter).Decode(&t); err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

// UpdateTask writes the mutable fields of t, scoped to its author.
func (s *MongoStore) UpdateTask(ctx context.Context, t *models.Task) error {
	t.UpdatedAt = time.Now().UTC()
	res, err := s.tasks.UpdateOne(ctx,
		bson.M{"_id": t.ID, "author": t.Author},
		bson.M{"$set": bson.M{
			"description": t.Description,
			"completed":   t.Completed,
			"updatedAt":   t.UpdatedAt,
		}},
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) DeleteTask(ctx context.Context, id, authorID string) (*models.Task, error) {
	filter, err := ownedBy(id, authorID)
	if err != nil {
		return nil, err
	}
	var t models.Task
	if err := s.tasks.FindOneAndDelete(ctx, filter).Decode(&t); err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

// DeleteTasksByAuthor removes every task owned by authorID.
func (s *MongoStore) DeleteTasksByAuthor(ctx context.Context, authorID string) (int64, error) {
	oid, err := objectID(authorID)
	if err != nil {
		return 0, err
	}
	res, err := s.tasks.DeleteMany(ctx, bson.M{"author": oid})
	if err != nil {
		return 0, fmt.Errorf("delete tasks: %w", err)
	}
	return res.DeletedCount, nil
}

func ownedBy(id, authorID string) (bson.M, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	author, err := objectID(authorID)
	if err != nil {
		return nil, err
	}
	return bson.M{"_id": oid, "author": author}, nil
}
