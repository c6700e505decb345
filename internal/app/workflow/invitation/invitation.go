// internal/app/workflow/invitation/invitation.go
//
// Package invitation implements the workgroup invitation lifecycle:
// create (and notify), check, and accept. Invitations move from pending to
// accepted exactly once; accepted records are kept.
package invitation

import (
	"context"
	"errors"

	"github.com/dalemusser/todohub/internal/app/policy/workgrouppolicy"
	invitationstore "github.com/dalemusser/todohub/internal/app/store/invitations"
	userstore "github.com/dalemusser/todohub/internal/app/store/users"
	workgroupstore "github.com/dalemusser/todohub/internal/app/store/workgroups"
	"github.com/dalemusser/todohub/internal/app/system/apperr"
	"github.com/dalemusser/todohub/internal/app/system/auth"
	"github.com/dalemusser/todohub/internal/app/system/inputval"
	"github.com/dalemusser/todohub/internal/app/system/mailer"
	"github.com/dalemusser/todohub/internal/app/system/normalize"
	"github.com/dalemusser/todohub/internal/app/system/txn"
	"github.com/dalemusser/todohub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// CodeNotificationFailed is the response code for an invitation that was
// stored but whose email could not be delivered.
const CodeNotificationFailed = "notification_failed"

// Service coordinates the user, workgroup and invitation stores.
type Service struct {
	DB       *mongo.Database
	Log      *zap.Logger
	Mail     mailer.Sender
	BaseURL  string // accept links are built under this URL
	SiteName string

	users       *userstore.Store
	workgroups  *workgroupstore.Store
	invitations *invitationstore.Store

	beforeAddInvited func(ctx context.Context) // test seam
}

// New constructs a Service.
func New(db *mongo.Database, sender mailer.Sender, baseURL, siteName string, logger *zap.Logger) *Service {
	return &Service{
		DB:          db,
		Log:         logger,
		Mail:        sender,
		BaseURL:     baseURL,
		SiteName:    siteName,
		users:       userstore.New(db),
		workgroups:  workgroupstore.New(db),
		invitations: invitationstore.New(db),
	}
}

// CheckResult is what an unauthenticated visitor learns about an invitation.
type CheckResult struct {
	WorkgroupName string `json:"workgroupName"`
	HasAccount    bool   `json:"hasAccount"`
	InvitedEmail  string `json:"invitedEmail"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| Create                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

// Create invites email into the workgroup on behalf of u and emails the
// accept link. If delivery fails the invitation is kept and a
// DependencyFailure carrying its id is returned.
func (s *Service) Create(ctx context.Context, u auth.SessionUser, workgroupID, email string) (models.Invitation, error) {
	email = normalize.Email(email)
	if !inputval.IsValidEmail(email) {
		return models.Invitation{}, apperr.New(apperr.Validation, "A valid email address is required.")
	}

	wg, err := s.loadWorkgroup(ctx, workgroupID)
	if err != nil {
		return models.Invitation{}, err
	}
	if !workgrouppolicy.CanInvite(*wg, u) {
		return models.Invitation{}, apperr.New(apperr.Unauthorized, "Only members of this workgroup can invite others.")
	}
	if wg.HasMember(email) {
		return models.Invitation{}, apperr.New(apperr.Conflict, "This person is already a member of the workgroup.")
	}

	if _, err := s.invitations.FindPending(ctx, wg.ID, email); err == nil {
		return models.Invitation{}, apperr.New(apperr.Conflict, "An invitation has already been sent to this email.")
	} else if !errors.Is(err, invitationstore.ErrNotFound) {
		return models.Invitation{}, apperr.Wrap(apperr.Internal, "look up pending invitation", err)
	}

	inv, err := s.invitations.Create(ctx, wg.ID, u.Email, email)
	if errors.Is(err, invitationstore.ErrDuplicatePending) {
		return models.Invitation{}, apperr.New(apperr.Conflict, "An invitation has already been sent to this email.")
	}
	if err != nil {
		return models.Invitation{}, apperr.Wrap(apperr.Internal, "create invitation", err)
	}

	if s.beforeAddInvited != nil {
		s.beforeAddInvited(ctx)
	}
	switch err := s.workgroups.AddInvited(ctx, wg.ID, email); {
	case errors.Is(err, workgroupstore.ErrAlreadyMember):
		s.discard(ctx, inv)
		return models.Invitation{}, apperr.New(apperr.Conflict, "This person is already a member of the workgroup.")
	case errors.Is(err, workgroupstore.ErrNotFound):
		s.discard(ctx, inv)
		return models.Invitation{}, apperr.New(apperr.NotFound, "Workgroup not found.")
	case err != nil:
		return models.Invitation{}, apperr.Wrap(apperr.Internal, "record invited member", err)
	}

	msg := mailer.BuildInvitationEmail(email, mailer.InvitationEmailData{
		SiteName:      s.SiteName,
		WorkgroupName: wg.Name,
		InvitedBy:     u.Email,
		AcceptLink:    mailer.InvitationLink(s.BaseURL, inv.ID.Hex()),
	})
	if err := s.Mail.Send(ctx, msg); err != nil {
		s.Log.Warn("invitation email failed",
			zap.String("invitation_id", inv.ID.Hex()),
			zap.String("workgroup_id", wg.ID.Hex()),
			zap.String("to", email),
			zap.Error(err))
		return inv, &apperr.Error{
			Kind:    apperr.DependencyFailure,
			Message: "The invitation was created but the email could not be sent.",
			Code:    CodeNotificationFailed,
			Details: map[string]string{"invitationId": inv.ID.Hex()},
			Err:     err,
		}
	}

	s.Log.Info("invitation sent",
		zap.String("invitation_id", inv.ID.Hex()),
		zap.String("workgroup_id", wg.ID.Hex()),
		zap.String("invited_by", u.Email))
	return inv, nil
}

// discard removes an invitation whose workgroup changed underneath Create.
func (s *Service) discard(ctx context.Context, inv models.Invitation) {
	if err := s.invitations.DeletePending(ctx, inv.ID); err != nil && !errors.Is(err, invitationstore.ErrNotFound) {
		s.Log.Error("discard invitation failed",
			zap.String("invitation_id", inv.ID.Hex()), zap.Error(err))
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Check                                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

// Check describes a pending invitation without requiring a session.
func (s *Service) Check(ctx context.Context, invitationID string) (CheckResult, error) {
	inv, err := s.loadPending(ctx, invitationID)
	if err != nil {
		return CheckResult{}, err
	}
	wg, err := s.workgroups.GetByID(ctx, inv.WorkgroupID)
	if errors.Is(err, workgroupstore.ErrNotFound) {
		return CheckResult{}, apperr.New(apperr.NotFound, "Invitation not found.")
	}
	if err != nil {
		return CheckResult{}, apperr.Wrap(apperr.Internal, "load workgroup", err)
	}
	has, err := s.users.ExistsByEmail(ctx, inv.InvitedEmail)
	if err != nil {
		return CheckResult{}, apperr.Wrap(apperr.Internal, "look up invited user", err)
	}
	return CheckResult{
		WorkgroupName: wg.Name,
		HasAccount:    has,
		InvitedEmail:  inv.InvitedEmail,
	}, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Accept                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

// Accept marks the invitation accepted and moves u into the workgroup's
// members. Of several concurrent accepts exactly one succeeds; the rest get
// NotFound.
func (s *Service) Accept(ctx context.Context, u auth.SessionUser, invitationID string) (*models.Workgroup, error) {
	userID, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		return nil, apperr.New(apperr.Unauthenticated, "Sign in to accept this invitation.")
	}
	inv, err := s.loadPending(ctx, invitationID)
	if err != nil {
		return nil, err
	}
	if normalize.Email(u.Email) != inv.InvitedEmail {
		return nil, apperr.New(apperr.Forbidden, "This invitation was sent to a different email address.")
	}

	err = txn.Run(ctx, s.DB, s.Log, func(ctx context.Context) error {
		if err := s.invitations.MarkAccepted(ctx, inv.ID, userID); err != nil {
			if errors.Is(err, invitationstore.ErrNotFound) {
				return apperr.New(apperr.NotFound, "Invitation not found.")
			}
			return apperr.Wrap(apperr.Internal, "mark invitation accepted", err)
		}
		if err := s.workgroups.PromoteInvited(ctx, inv.WorkgroupID, inv.InvitedEmail); err != nil {
			// Without a transaction the status change has already landed.
			if rerr := s.invitations.RevertToPending(ctx, inv.ID); rerr != nil {
				s.Log.Error("revert invitation failed",
					zap.String("invitation_id", inv.ID.Hex()), zap.Error(rerr))
			}
			if errors.Is(err, workgroupstore.ErrNotFound) {
				return apperr.New(apperr.NotFound, "Workgroup not found.")
			}
			return apperr.Wrap(apperr.Internal, "add member", err)
		}
		return nil
	})
	if err != nil {
		if _, ok := apperr.As(err); ok {
			return nil, err
		}
		return nil, apperr.Wrap(apperr.Internal, "accept invitation", err)
	}

	wg, err := s.workgroups.GetByID(ctx, inv.WorkgroupID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "reload workgroup", err)
	}
	s.Log.Info("invitation accepted",
		zap.String("invitation_id", inv.ID.Hex()),
		zap.String("workgroup_id", inv.WorkgroupID.Hex()),
		zap.String("user_id", u.ID))
	return wg, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| helpers                                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

func (s *Service) loadWorkgroup(ctx context.Context, hexID string) (*models.Workgroup, error) {
	id, err := primitive.ObjectIDFromHex(hexID)
	if err != nil {
		return nil, apperr.New(apperr.NotFound, "Workgroup not found.")
	}
	wg, err := s.workgroups.GetByID(ctx, id)
	if errors.Is(err, workgroupstore.ErrNotFound) {
		return nil, apperr.New(apperr.NotFound, "Workgroup not found.")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "load workgroup", err)
	}
	return wg, nil
}

func (s *Service) loadPending(ctx context.Context, hexID string) (*models.Invitation, error) {
	id, err := primitive.ObjectIDFromHex(hexID)
	if err != nil {
		return nil, apperr.New(apperr.NotFound, "Invitation not found.")
	}
	inv, err := s.invitations.GetByID(ctx, id)
	if errors.Is(err, invitationstore.ErrNotFound) {
		return nil, apperr.New(apperr.NotFound, "Invitation not found.")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "load invitation", err)
	}
	if !inv.IsPending() {
		return nil, apperr.New(apperr.NotFound, "Invitation not found.")
	}
	return inv, nil
}
