package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/todohub/internal/app/system/normalize"
	"github.com/dalemusser/todohub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// TestPassword is the plaintext password of every fixture user.
const TestPassword = "pw123456"

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser creates a user whose password is TestPassword.
func (f *Fixtures) CreateUser(ctx context.Context, email, name string) models.User {
	f.t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		f.t.Fatalf("hash password: %v", err)
	}
	now := time.Now().UTC()
	u := models.User{
		ID:           primitive.NewObjectID(),
		Email:        normalize.Email(email),
		PasswordHash: string(hash),
		Name:         name,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

// CreateWorkgroup creates a workgroup owned by owner. The owner's email is
// always a member; extra holds additional member emails.
func (f *Fixtures) CreateWorkgroup(ctx context.Context, name string, owner models.User, extra ...string) models.Workgroup {
	f.t.Helper()

	now := time.Now().UTC()
	wg := models.Workgroup{
		ID:             primitive.NewObjectID(),
		Name:           name,
		OwnerID:        owner.ID.Hex(),
		Members:        normalize.Emails(append([]string{owner.Email}, extra...)),
		InvitedMembers: []string{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if _, err := f.db.Collection("workgroups").InsertOne(ctx, wg); err != nil {
		f.t.Fatalf("failed to create test workgroup: %v", err)
	}
	return wg
}

// CreateInvitation creates a pending invitation for email and records the
// email in the workgroup's invited_members.
func (f *Fixtures) CreateInvitation(ctx context.Context, wg models.Workgroup, invitedBy, email string) models.Invitation {
	f.t.Helper()

	inv := models.Invitation{
		ID:           primitive.NewObjectID(),
		WorkgroupID:  wg.ID,
		InvitedBy:    normalize.Email(invitedBy),
		InvitedEmail: normalize.Email(email),
		Status:       models.InvitationPending,
		CreatedAt:    time.Now().UTC(),
	}
	if _, err := f.db.Collection("invitations").InsertOne(ctx, inv); err != nil {
		f.t.Fatalf("failed to create test invitation: %v", err)
	}
	if _, err := f.db.Collection("workgroups").UpdateByID(ctx, wg.ID, bson.M{
		"$addToSet": bson.M{"invited_members": inv.InvitedEmail},
	}); err != nil {
		f.t.Fatalf("failed to mark invited member: %v", err)
	}
	return inv
}

// CreateTodo creates a todo owned by owner with a deadline one day out.
func (f *Fixtures) CreateTodo(ctx context.Context, owner models.User, name string) models.Todo {
	f.t.Helper()
	return f.CreateTodoDue(ctx, owner, name, time.Now().UTC().Add(24*time.Hour).Truncate(time.Millisecond))
}

// CreateTodoDue creates a todo owned by owner with the given deadline.
func (f *Fixtures) CreateTodoDue(ctx context.Context, owner models.User, name string, deadline time.Time) models.Todo {
	f.t.Helper()

	td := models.Todo{
		ID:           primitive.NewObjectID(),
		Name:         name,
		CreationDate: time.Now().UTC().Truncate(time.Millisecond),
		DeadlineDate: deadline,
		UserID:       owner.ID,
	}
	if _, err := f.db.Collection("todos").InsertOne(ctx, td); err != nil {
		f.t.Fatalf("failed to create test todo: %v", err)
	}
	return td
}
