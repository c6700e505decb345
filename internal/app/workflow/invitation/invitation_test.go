package invitation_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/dalemusser/todohub/internal/app/system/apperr"
	"github.com/dalemusser/todohub/internal/app/system/auth"
	"github.com/dalemusser/todohub/internal/app/system/mailer"
	"github.com/dalemusser/todohub/internal/app/workflow/invitation"
	"github.com/dalemusser/todohub/internal/domain/models"
	"github.com/dalemusser/todohub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// fakeSender records messages and optionally fails.
type fakeSender struct {
	mu   sync.Mutex
	sent []mailer.Email
	err  error
}

func (f *fakeSender) Send(_ context.Context, msg mailer.Email) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func newService(t *testing.T, db *mongo.Database, sender mailer.Sender) *invitation.Service {
	t.Helper()
	return invitation.New(db, sender, "https://todo.example.com", "TodoHub", zap.NewNop())
}

func loadWorkgroup(t *testing.T, db *mongo.Database, id primitive.ObjectID) models.Workgroup {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	var wg models.Workgroup
	if err := db.Collection("workgroups").FindOne(ctx, bson.M{"_id": id}).Decode(&wg); err != nil {
		t.Fatalf("load workgroup: %v", err)
	}
	return wg
}

func loadInvitation(t *testing.T, db *mongo.Database, id primitive.ObjectID) models.Invitation {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	var inv models.Invitation
	if err := db.Collection("invitations").FindOne(ctx, bson.M{"_id": id}).Decode(&inv); err != nil {
		t.Fatalf("load invitation: %v", err)
	}
	return inv
}

func wantKind(t *testing.T, err error, k apperr.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", k)
	}
	ae, ok := apperr.As(err)
	if !ok {
		t.Fatalf("expected %s error, got unclassified %v", k, err)
	}
	if ae.Kind != k {
		t.Fatalf("error kind: got %s, want %s (err: %v)", ae.Kind, k, err)
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Create                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

func TestCreate_Success(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	sender := &fakeSender{}
	svc := newService(t, db, sender)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice := fx.CreateUser(ctx, "alice@example.com", "Alice")
	wg := fx.CreateWorkgroup(ctx, "Launch", alice)

	inv, err := svc.Create(ctx, testutil.SessionFor(alice), wg.ID.Hex(), "  Bob@Example.com ")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if inv.InvitedEmail != "bob@example.com" || inv.Status != models.InvitationPending {
		t.Errorf("invitation = %+v", inv)
	}
	if inv.InvitedBy != "alice@example.com" {
		t.Errorf("InvitedBy = %q", inv.InvitedBy)
	}

	got := loadWorkgroup(t, db, wg.ID)
	if !got.IsInvited("bob@example.com") {
		t.Errorf("invited_members = %v, want bob", got.InvitedMembers)
	}

	if len(sender.sent) != 1 {
		t.Fatalf("sent %d emails, want 1", len(sender.sent))
	}
	msg := sender.sent[0]
	if msg.To != "bob@example.com" {
		t.Errorf("To = %q", msg.To)
	}
	link := "https://todo.example.com/workgroups/accept-invite?id=" + inv.ID.Hex()
	if !strings.Contains(msg.TextBody, link) {
		t.Errorf("text body missing accept link %q", link)
	}
	if !strings.Contains(msg.Subject, "Launch") {
		t.Errorf("subject = %q", msg.Subject)
	}
}

func TestCreate_MemberMayInvite(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	svc := newService(t, db, &fakeSender{})
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice := fx.CreateUser(ctx, "alice@example.com", "")
	carol := fx.CreateUser(ctx, "carol@example.com", "")
	wg := fx.CreateWorkgroup(ctx, "Launch", alice, carol.Email)

	if _, err := svc.Create(ctx, testutil.SessionFor(carol), wg.ID.Hex(), "dave@example.com"); err != nil {
		t.Fatalf("member invite failed: %v", err)
	}
}

func TestCreate_Errors(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	sender := &fakeSender{}
	svc := newService(t, db, sender)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice := fx.CreateUser(ctx, "alice@example.com", "")
	mallory := fx.CreateUser(ctx, "mallory@example.com", "")
	invitee := fx.CreateUser(ctx, "ivy@example.com", "")
	wg := fx.CreateWorkgroup(ctx, "Launch", alice, "carol@example.com")
	fx.CreateInvitation(ctx, wg, alice.Email, invitee.Email)
	fx.CreateInvitation(ctx, wg, alice.Email, "pending@example.com")

	tests := []struct {
		name  string
		user  models.User
		wgID  string
		email string
		want  apperr.Kind
	}{
		{"missing email", alice, wg.ID.Hex(), "", apperr.Validation},
		{"malformed email", alice, wg.ID.Hex(), "not-an-email", apperr.Validation},
		{"malformed workgroup id", alice, "nope", "x@example.com", apperr.NotFound},
		{"unknown workgroup", alice, primitive.NewObjectID().Hex(), "x@example.com", apperr.NotFound},
		{"outsider", mallory, wg.ID.Hex(), "x@example.com", apperr.Unauthorized},
		{"invited but not member", invitee, wg.ID.Hex(), "x@example.com", apperr.Unauthorized},
		{"already member", alice, wg.ID.Hex(), "CAROL@example.com", apperr.Conflict},
		{"owner invites self", alice, wg.ID.Hex(), alice.Email, apperr.Conflict},
		{"pending exists", alice, wg.ID.Hex(), "Pending@Example.com", apperr.Conflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, testutil.SessionFor(tt.user), tt.wgID, tt.email)
			wantKind(t, err, tt.want)
		})
	}

	if len(sender.sent) != 0 {
		t.Errorf("no email should be sent on failure, got %d", len(sender.sent))
	}
	n, _ := db.Collection("invitations").CountDocuments(ctx, bson.M{})
	if n != 2 {
		t.Errorf("invitation count = %d, want 2", n)
	}
}

func TestCreate_SendFailureKeepsInvitation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	svc := newService(t, db, &fakeSender{err: errors.New("smtp: connection refused")})
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice := fx.CreateUser(ctx, "alice@example.com", "")
	wg := fx.CreateWorkgroup(ctx, "Launch", alice)

	inv, err := svc.Create(ctx, testutil.SessionFor(alice), wg.ID.Hex(), "bob@example.com")
	wantKind(t, err, apperr.DependencyFailure)

	ae, _ := apperr.As(err)
	if ae.ResponseCode() != invitation.CodeNotificationFailed {
		t.Errorf("code = %q, want %q", ae.ResponseCode(), invitation.CodeNotificationFailed)
	}
	if ae.Details["invitationId"] != inv.ID.Hex() {
		t.Errorf("invitationId = %q, want %q", ae.Details["invitationId"], inv.ID.Hex())
	}

	stored := loadInvitation(t, db, inv.ID)
	if !stored.IsPending() {
		t.Errorf("invitation status = %q, want pending", stored.Status)
	}
	if got := loadWorkgroup(t, db, wg.ID); !got.IsInvited("bob@example.com") {
		t.Errorf("invited_members = %v, want bob kept", got.InvitedMembers)
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Check                                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

func TestCheck(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	svc := newService(t, db, &fakeSender{})
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice := fx.CreateUser(ctx, "alice@example.com", "")
	wg := fx.CreateWorkgroup(ctx, "Launch", alice)
	inv := fx.CreateInvitation(ctx, wg, alice.Email, "bob@example.com")

	res, err := svc.Check(ctx, inv.ID.Hex())
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	want := invitation.CheckResult{WorkgroupName: "Launch", HasAccount: false, InvitedEmail: "bob@example.com"}
	if res != want {
		t.Errorf("Check = %+v, want %+v", res, want)
	}

	fx.CreateUser(ctx, "bob@example.com", "")
	res, err = svc.Check(ctx, inv.ID.Hex())
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !res.HasAccount {
		t.Error("HasAccount should be true once bob registers")
	}
}

func TestCheck_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	svc := newService(t, db, &fakeSender{})
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice := fx.CreateUser(ctx, "alice@example.com", "")
	wg := fx.CreateWorkgroup(ctx, "Launch", alice)
	accepted := fx.CreateInvitation(ctx, wg, alice.Email, "bob@example.com")
	if _, err := db.Collection("invitations").UpdateByID(ctx, accepted.ID,
		bson.M{"$set": bson.M{"status": models.InvitationAccepted}}); err != nil {
		t.Fatalf("mark accepted: %v", err)
	}

	gone := fx.CreateWorkgroup(ctx, "Gone", alice)
	orphan := fx.CreateInvitation(ctx, gone, alice.Email, "carol@example.com")
	if _, err := db.Collection("workgroups").DeleteOne(ctx, bson.M{"_id": gone.ID}); err != nil {
		t.Fatalf("delete workgroup: %v", err)
	}

	for name, id := range map[string]string{
		"malformed":         "zzz",
		"unknown":           primitive.NewObjectID().Hex(),
		"accepted":          accepted.ID.Hex(),
		"workgroup deleted": orphan.ID.Hex(),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Check(ctx, id)
			wantKind(t, err, apperr.NotFound)
		})
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Accept                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

func TestAccept_Success(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	svc := newService(t, db, &fakeSender{})
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice := fx.CreateUser(ctx, "alice@example.com", "")
	bob := fx.CreateUser(ctx, "bob@example.com", "")
	wg := fx.CreateWorkgroup(ctx, "Launch", alice)
	inv := fx.CreateInvitation(ctx, wg, alice.Email, bob.Email)

	// Session email casing must not matter.
	sess := testutil.SessionFor(bob)
	sess.Email = "BOB@example.com"

	got, err := svc.Accept(ctx, sess, inv.ID.Hex())
	if err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	if !got.HasMember("bob@example.com") || got.IsInvited("bob@example.com") {
		t.Errorf("workgroup after accept: members=%v invited=%v", got.Members, got.InvitedMembers)
	}

	stored := loadInvitation(t, db, inv.ID)
	if stored.Status != models.InvitationAccepted {
		t.Errorf("status = %q, want accepted", stored.Status)
	}
	if stored.AcceptedBy == nil || *stored.AcceptedBy != bob.ID {
		t.Errorf("AcceptedBy = %v, want %v", stored.AcceptedBy, bob.ID)
	}

	_, err = svc.Accept(ctx, sess, inv.ID.Hex())
	wantKind(t, err, apperr.NotFound)
}

func TestAccept_WrongEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	svc := newService(t, db, &fakeSender{})
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice := fx.CreateUser(ctx, "alice@example.com", "")
	mallory := fx.CreateUser(ctx, "mallory@example.com", "")
	wg := fx.CreateWorkgroup(ctx, "Launch", alice)
	inv := fx.CreateInvitation(ctx, wg, alice.Email, "bob@example.com")

	_, err := svc.Accept(ctx, testutil.SessionFor(mallory), inv.ID.Hex())
	wantKind(t, err, apperr.Forbidden)

	if stored := loadInvitation(t, db, inv.ID); !stored.IsPending() {
		t.Errorf("status = %q, want pending", stored.Status)
	}
}

func TestAccept_BadSession(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newService(t, db, &fakeSender{})
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := svc.Accept(ctx, auth.SessionUser{ID: "bogus", Email: "bob@example.com"}, primitive.NewObjectID().Hex())
	wantKind(t, err, apperr.Unauthenticated)
}

func TestAccept_WorkgroupDeleted(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	svc := newService(t, db, &fakeSender{})
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice := fx.CreateUser(ctx, "alice@example.com", "")
	bob := fx.CreateUser(ctx, "bob@example.com", "")
	wg := fx.CreateWorkgroup(ctx, "Launch", alice)
	inv := fx.CreateInvitation(ctx, wg, alice.Email, bob.Email)
	if _, err := db.Collection("workgroups").DeleteOne(ctx, bson.M{"_id": wg.ID}); err != nil {
		t.Fatalf("delete workgroup: %v", err)
	}

	_, err := svc.Accept(ctx, testutil.SessionFor(bob), inv.ID.Hex())
	wantKind(t, err, apperr.NotFound)

	stored := loadInvitation(t, db, inv.ID)
	if !stored.IsPending() || stored.AcceptedAt != nil {
		t.Errorf("invitation should stay pending, got %+v", stored)
	}
}

func TestAccept_Concurrent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	svc := newService(t, db, &fakeSender{})
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice := fx.CreateUser(ctx, "alice@example.com", "")
	bob := fx.CreateUser(ctx, "bob@example.com", "")
	wg := fx.CreateWorkgroup(ctx, "Launch", alice)
	inv := fx.CreateInvitation(ctx, wg, alice.Email, bob.Email)
	before := len(loadWorkgroup(t, db, wg.ID).Members)

	const n = 8
	var wins, notFound atomic.Int32
	var wg2 sync.WaitGroup
	for i := 0; i < n; i++ {
		wg2.Add(1)
		go func() {
			defer wg2.Done()
			_, err := svc.Accept(ctx, testutil.SessionFor(bob), inv.ID.Hex())
			ae, _ := apperr.As(err)
			switch {
			case err == nil:
				wins.Add(1)
			case ae != nil && ae.Kind == apperr.NotFound:
				notFound.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg2.Wait()

	if wins.Load() != 1 {
		t.Errorf("winners = %d, want 1", wins.Load())
	}
	if notFound.Load() != n-1 {
		t.Errorf("NotFound = %d, want %d", notFound.Load(), n-1)
	}
	after := loadWorkgroup(t, db, wg.ID)
	if len(after.Members) != before+1 {
		t.Errorf("members = %v, want exactly one added", after.Members)
	}
	if len(after.InvitedMembers) != 0 {
		t.Errorf("invited_members = %v, want empty", after.InvitedMembers)
	}
}

func TestReinviteAfterAcceptAndLeave(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	svc := newService(t, db, &fakeSender{})
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice := fx.CreateUser(ctx, "alice@example.com", "")
	bob := fx.CreateUser(ctx, "bob@example.com", "")
	wg := fx.CreateWorkgroup(ctx, "Launch", alice)

	inv, err := svc.Create(ctx, testutil.SessionFor(alice), wg.ID.Hex(), bob.Email)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := svc.Accept(ctx, testutil.SessionFor(bob), inv.ID.Hex()); err != nil {
		t.Fatalf("Accept failed: %v", err)
	}

	_, err = svc.Create(ctx, testutil.SessionFor(alice), wg.ID.Hex(), bob.Email)
	wantKind(t, err, apperr.Conflict)

	if _, err := db.Collection("workgroups").UpdateByID(ctx, wg.ID,
		bson.M{"$pull": bson.M{"members": bob.Email}}); err != nil {
		t.Fatalf("remove bob: %v", err)
	}
	again, err := svc.Create(ctx, testutil.SessionFor(alice), wg.ID.Hex(), bob.Email)
	if err != nil {
		t.Fatalf("re-invite after leave failed: %v", err)
	}
	if again.ID == inv.ID {
		t.Error("re-invite should create a new invitation")
	}
}
