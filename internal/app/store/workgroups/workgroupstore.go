package workgroupstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/todohub/internal/app/system/normalize"
	"github.com/dalemusser/todohub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrNotFound is returned when no workgroup matches (including when the
	// caller's filter, such as ownership, excludes it).
	ErrNotFound = errors.New("workgroup not found")

	// ErrAlreadyMember is returned when inviting an email that is already a member.
	ErrAlreadyMember = errors.New("email is already a member of this workgroup")

	errNameNeeded  = errors.New("workgroup name is required")
	errOwnerNeeded = errors.New("workgroup owner is required")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("workgroups")}
}

// Create inserts a workgroup owned by ownerID with ownerEmail as its first member.
func (s *Store) Create(ctx context.Context, name, ownerID, ownerEmail string) (models.Workgroup, error) {
	now := time.Now().UTC()
	wg := models.Workgroup{
		ID:             primitive.NewObjectID(),
		Name:           normalize.Name(name),
		OwnerID:        ownerID,
		Members:        normalize.Emails([]string{ownerEmail}),
		InvitedMembers: []string{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if wg.Name == "" {
		return models.Workgroup{}, errNameNeeded
	}
	if wg.OwnerID == "" || len(wg.Members) == 0 {
		return models.Workgroup{}, errOwnerNeeded
	}
	if _, err := s.c.InsertOne(ctx, wg); err != nil {
		return models.Workgroup{}, err
	}
	return wg, nil
}

// GetByID loads a workgroup.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Workgroup, error) {
	var wg models.Workgroup
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&wg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &wg, nil
}

// ListVisible returns the workgroups userID owns or email belongs to or is
// invited to, oldest first.
func (s *Store) ListVisible(ctx context.Context, userID, email string) ([]models.Workgroup, error) {
	email = normalize.Email(email)
	or := bson.A{bson.M{"owner_id": userID}}
	if email != "" {
		or = append(or, bson.M{"members": email}, bson.M{"invited_members": email})
	}
	cur, err := s.c.Find(ctx, bson.M{"$or": or},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Workgroup{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteOwned removes the workgroup only if ownerID owns it.
func (s *Store) DeleteOwned(ctx context.Context, id primitive.ObjectID, ownerID string) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id, "owner_id": ownerID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AddInvited records email as invited unless it is already a member.
func (s *Store) AddInvited(ctx context.Context, id primitive.ObjectID, email string) error {
	email = normalize.Email(email)
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "members": bson.M{"$ne": email}},
		bson.M{
			"$addToSet": bson.M{"invited_members": email},
			"$set":      bson.M{"updated_at": time.Now().UTC()},
		})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		n, err := s.c.CountDocuments(ctx, bson.M{"_id": id})
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrAlreadyMember
		}
		return ErrNotFound
	}
	return nil
}

// PromoteInvited moves email from invited_members into members.
func (s *Store) PromoteInvited(ctx context.Context, id primitive.ObjectID, email string) error {
	email = normalize.Email(email)
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$addToSet": bson.M{"members": email},
			"$pull":     bson.M{"invited_members": email},
			"$set":      bson.M{"updated_at": time.Now().UTC()},
		})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// RemoveMember drops email from members unless callerID owns the workgroup.
// Owners cannot leave their own workgroup.
func (s *Store) RemoveMember(ctx context.Context, id primitive.ObjectID, email, callerID string) error {
	email = normalize.Email(email)
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "members": email, "owner_id": bson.M{"$ne": callerID}},
		bson.M{
			"$pull": bson.M{"members": email},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
