package invitationstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/todohub/internal/app/system/normalize"
	"github.com/dalemusser/todohub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	// ErrNotFound is returned when no invitation matches, including when a
	// conditional status change finds the invitation in another state.
	ErrNotFound = errors.New("invitation not found")

	// ErrDuplicatePending is returned when a pending invitation already
	// exists for the same workgroup and email.
	ErrDuplicatePending = errors.New("a pending invitation already exists for this email")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("invitations")}
}

// Create inserts a pending invitation.
func (s *Store) Create(ctx context.Context, workgroupID primitive.ObjectID, invitedBy, email string) (models.Invitation, error) {
	inv := models.Invitation{
		ID:           primitive.NewObjectID(),
		WorkgroupID:  workgroupID,
		InvitedBy:    normalize.Email(invitedBy),
		InvitedEmail: normalize.Email(email),
		Status:       models.InvitationPending,
		CreatedAt:    time.Now().UTC(),
	}
	if _, err := s.c.InsertOne(ctx, inv); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Invitation{}, ErrDuplicatePending
		}
		return models.Invitation{}, err
	}
	return inv, nil
}

// GetByID loads an invitation in any state.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Invitation, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// FindPending returns the pending invitation for (workgroupID, email).
func (s *Store) FindPending(ctx context.Context, workgroupID primitive.ObjectID, email string) (*models.Invitation, error) {
	return s.findOne(ctx, bson.M{
		"workgroup_id":  workgroupID,
		"invited_email": normalize.Email(email),
		"status":        models.InvitationPending,
	})
}

// MarkAccepted moves a pending invitation to accepted. Only one caller can
// win: a concurrent or repeated call gets ErrNotFound.
func (s *Store) MarkAccepted(ctx context.Context, id, acceptedBy primitive.ObjectID) error {
	now := time.Now().UTC()
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.InvitationPending},
		bson.M{"$set": bson.M{
			"status":      models.InvitationAccepted,
			"accepted_at": now,
			"accepted_by": acceptedBy,
		}})
	if err != nil {
		return err
	}
	if res.ModifiedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// RevertToPending undoes MarkAccepted when the membership change that
// should follow it could not be applied.
func (s *Store) RevertToPending(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.InvitationAccepted},
		bson.M{
			"$set":   bson.M{"status": models.InvitationPending},
			"$unset": bson.M{"accepted_at": "", "accepted_by": ""},
		})
	return err
}

// DeletePending removes a single invitation if it is still pending.
func (s *Store) DeletePending(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id, "status": models.InvitationPending})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeletePendingByWorkgroup removes the pending invitations of a workgroup.
func (s *Store) DeletePendingByWorkgroup(ctx context.Context, workgroupID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{
		"workgroup_id": workgroupID,
		"status":       models.InvitationPending,
	})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (*models.Invitation, error) {
	var inv models.Invitation
	err := s.c.FindOne(ctx, filter).Decode(&inv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}
