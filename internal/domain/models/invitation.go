// internal/domain/models/invitation.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Invitation statuses. Accepted is terminal; an invitation never moves back
// to pending once a membership change has been committed for it.
const (
	InvitationPending  = "pending"
	InvitationAccepted = "accepted"
)

// Invitation links a workgroup to an invited email address.
//
// At most one pending invitation exists per (WorkgroupID, InvitedEmail); the
// invitations collection enforces this with a partial unique index.
type Invitation struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	WorkgroupID  primitive.ObjectID `bson:"workgroup_id" json:"workgroupId"`
	InvitedBy    string             `bson:"invited_by" json:"invitedBy"`       // inviter email
	InvitedEmail string             `bson:"invited_email" json:"invitedEmail"` // lowercase
	Status       string             `bson:"status" json:"status"`

	CreatedAt  time.Time           `bson:"created_at" json:"createdAt"`
	AcceptedAt *time.Time          `bson:"accepted_at,omitempty" json:"acceptedAt,omitempty"`
	AcceptedBy *primitive.ObjectID `bson:"accepted_by,omitempty" json:"acceptedBy,omitempty"`
}

// IsPending reports whether the invitation can still be accepted.
func (i Invitation) IsPending() bool {
	return i.Status == InvitationPending
}
