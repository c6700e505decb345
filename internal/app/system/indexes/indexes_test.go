package indexes_test

import (
	"testing"

	"github.com/dalemusser/todohub/internal/app/system/indexes"
	"github.com/dalemusser/todohub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func indexNames(t *testing.T, db *mongo.Database, coll string) map[string]bool {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cur, err := db.Collection(coll).Indexes().List(ctx)
	if err != nil {
		t.Fatalf("List indexes failed: %v", err)
	}
	defer cur.Close(ctx)

	names := make(map[string]bool)
	for cur.Next(ctx) {
		var idx bson.M
		if err := cur.Decode(&idx); err != nil {
			continue
		}
		if name, ok := idx["name"].(string); ok {
			names[name] = true
		}
	}
	return names
}

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// SetupTestDB already ran EnsureAll once.
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)

	expected := map[string][]string{
		"users":       {"uniq_users_email"},
		"workgroups":  {"idx_workgroups_owner", "idx_workgroups_members", "idx_workgroups_invited"},
		"invitations": {"uniq_invitations_pending_workgroup_email", "idx_invitations_email_status"},
		"todos":       {"idx_todos_user_deadline__id", "idx_todos_workgroup"},
	}

	for coll, want := range expected {
		names := indexNames(t, db, coll)
		for _, name := range want {
			if !names[name] {
				t.Errorf("expected index %q to exist on %s collection", name, coll)
			}
		}
	}
}

func TestPendingInvitationIndex_IsPartial(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	c := db.Collection("invitations")
	wg := primitive.NewObjectID()
	doc := func(status string) bson.M {
		return bson.M{
			"_id":           primitive.NewObjectID(),
			"workgroup_id":  wg,
			"invited_email": "bob@example.com",
			"status":        status,
		}
	}

	if _, err := c.InsertOne(ctx, doc("accepted")); err != nil {
		t.Fatalf("insert accepted: %v", err)
	}
	if _, err := c.InsertOne(ctx, doc("accepted")); err != nil {
		t.Fatalf("second accepted invitation should be allowed: %v", err)
	}
	if _, err := c.InsertOne(ctx, doc("pending")); err != nil {
		t.Fatalf("insert pending: %v", err)
	}
	if _, err := c.InsertOne(ctx, doc("pending")); !mongo.IsDuplicateKeyError(err) {
		t.Errorf("second pending invitation: err = %v, want duplicate key", err)
	}
}
