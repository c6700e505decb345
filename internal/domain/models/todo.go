// internal/domain/models/todo.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Todo is a task item owned by exactly one user.
//
// WorkgroupID is an optional label pointing at a workgroup. It carries no
// access rights and no cascading-delete obligation: only UserID may read or
// modify the todo.
type Todo struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name         string              `bson:"name" json:"name"`
	Project      string              `bson:"project,omitempty" json:"project,omitempty"`
	Completed    bool                `bson:"completed" json:"completed"`
	CreationDate time.Time           `bson:"creation_date" json:"creationDate"`
	DeadlineDate time.Time           `bson:"deadline_date" json:"deadlineDate"`
	UserID       primitive.ObjectID  `bson:"user_id" json:"userId"`
	WorkgroupID  *primitive.ObjectID `bson:"workgroup_id,omitempty" json:"workgroupId,omitempty"`
}
