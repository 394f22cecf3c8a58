package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Task is a document in the MongoDB tasks collection, owned by Author.
type Task struct {
	ID          primitive.ObjectID `json:"_id"         bson:"_id,omitempty"`
	Description string             `json:"description" bson:"description"`
	Completed   bool               `json:"completed"   bson:"completed"`
	Author      primitive.ObjectID `json:"author"      bson:"author"`
	CreatedAt   time.Time          `json:"createdAt"   bson:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"   bson:"updatedAt"`
}

// CreateTaskRequest is the JSON body for POST /tasks.
type CreateTaskRequest struct {
	Description string `json:"description"`
	Completed   *bool  `json:"completed"`
}

// TaskUpdates lists the keys PATCH /tasks/:id accepts.
var TaskUpdates = []string{"description", "completed"}

// TaskSortFields are the fields GET /tasks may sort by.
var TaskSortFields = []string{"description", "completed", "createdAt", "updatedAt"}

// TaskQuery narrows a task listing. Zero Limit and Skip mean unbounded.
type TaskQuery struct {
	Completed *bool
	SortField string
	SortDesc  bool
	Limit     int64
	Skip      int64
}

// TaskPatch holds the fields a PATCH /tasks/:id request sets; nil means unchanged.
type TaskPatch struct {
	Description *string
	Completed   *bool
}
