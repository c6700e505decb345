// internal/domain/models/workgroup.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Workgroup is a named collaboration unit with exactly one owner.
//
// Members and InvitedMembers hold lowercase emails. An email is in at most
// one of the two sets at a time. The owner's email is placed in Members when
// the workgroup is created.
type Workgroup struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name           string             `bson:"name" json:"name"`
	OwnerID        string             `bson:"owner_id" json:"ownerId"` // user _id hex, immutable
	Members        []string           `bson:"members" json:"members"`
	InvitedMembers []string           `bson:"invited_members" json:"invitedMembers"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// HasMember reports whether email is in the active membership set.
func (w Workgroup) HasMember(email string) bool {
	return contains(w.Members, email)
}

// IsInvited reports whether email has an outstanding invitation.
func (w Workgroup) IsInvited(email string) bool {
	return contains(w.InvitedMembers, email)
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
