package todostore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/todohub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/todohub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrNotFound is returned when the todo does not exist or belongs to
	// another user.
	ErrNotFound = errors.New("todo not found")

	// ErrNameRequired is returned when a name is empty after sanitizing.
	ErrNameRequired = errors.New("todo name is required")

	// ErrDeadlineRequired is returned when no deadline is given.
	ErrDeadlineRequired = errors.New("todo deadline is required")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("todos")}
}

// NewTodo holds the fields a caller supplies on create.
type NewTodo struct {
	Name         string
	Project      string
	DeadlineDate time.Time
	WorkgroupID  *primitive.ObjectID
}

// Patch holds optional fields for Update. Nil fields are left unchanged.
// ClearWorkgroup removes the workgroup label.
type Patch struct {
	Name           *string
	Project        *string
	Completed      *bool
	DeadlineDate   *time.Time
	WorkgroupID    *primitive.ObjectID
	ClearWorkgroup bool
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Name == nil && p.Project == nil && p.Completed == nil &&
		p.DeadlineDate == nil && p.WorkgroupID == nil && !p.ClearWorkgroup
}

// ListByOwner returns userID's todos ordered by deadline.
func (s *Store) ListByOwner(ctx context.Context, userID primitive.ObjectID) ([]models.Todo, error) {
	cur, err := s.c.Find(ctx, bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "deadline_date", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Todo{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetOwned loads a todo if userID owns it.
func (s *Store) GetOwned(ctx context.Context, id, userID primitive.ObjectID) (*models.Todo, error) {
	var td models.Todo
	err := s.c.FindOne(ctx, bson.M{"_id": id, "user_id": userID}).Decode(&td)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &td, nil
}

// Create inserts a todo owned by userID. Name and project are reduced to
// plain text.
func (s *Store) Create(ctx context.Context, userID primitive.ObjectID, in NewTodo) (models.Todo, error) {
	td := models.Todo{
		ID:           primitive.NewObjectID(),
		Name:         htmlsanitize.PlainText(in.Name),
		Project:      htmlsanitize.PlainText(in.Project),
		CreationDate: time.Now().UTC(),
		DeadlineDate: in.DeadlineDate.UTC(),
		UserID:       userID,
		WorkgroupID:  in.WorkgroupID,
	}
	if td.Name == "" {
		return models.Todo{}, ErrNameRequired
	}
	if in.DeadlineDate.IsZero() {
		return models.Todo{}, ErrDeadlineRequired
	}
	if _, err := s.c.InsertOne(ctx, td); err != nil {
		return models.Todo{}, err
	}
	return td, nil
}

// Update applies p to the todo if userID owns it and returns the result.
// Concurrent updates are last-write-wins per field.
func (s *Store) Update(ctx context.Context, id, userID primitive.ObjectID, p Patch) (*models.Todo, error) {
	if p.Empty() {
		return s.GetOwned(ctx, id, userID)
	}

	set := bson.M{}
	unset := bson.M{}
	if p.Name != nil {
		name := htmlsanitize.PlainText(*p.Name)
		if name == "" {
			return nil, ErrNameRequired
		}
		set["name"] = name
	}
	if p.Project != nil {
		if proj := htmlsanitize.PlainText(*p.Project); proj != "" {
			set["project"] = proj
		} else {
			unset["project"] = ""
		}
	}
	if p.Completed != nil {
		set["completed"] = *p.Completed
	}
	if p.DeadlineDate != nil {
		if p.DeadlineDate.IsZero() {
			return nil, ErrDeadlineRequired
		}
		set["deadline_date"] = p.DeadlineDate.UTC()
	}
	switch {
	case p.ClearWorkgroup:
		unset["workgroup_id"] = ""
	case p.WorkgroupID != nil:
		set["workgroup_id"] = *p.WorkgroupID
	}

	upd := bson.M{}
	if len(set) > 0 {
		upd["$set"] = set
	}
	if len(unset) > 0 {
		upd["$unset"] = unset
	}

	var td models.Todo
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "user_id": userID},
		upd,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&td)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &td, nil
}

// DeleteOwned removes the todo if userID owns it.
func (s *Store) DeleteOwned(ctx context.Context, id, userID primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id, "user_id": userID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
