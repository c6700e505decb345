// internal/app/policy/workgrouppolicy/workgrouppolicy.go
package workgrouppolicy

import (
	"github.com/dalemusser/todohub/internal/app/system/auth"
	"github.com/dalemusser/todohub/internal/app/system/normalize"
	"github.com/dalemusser/todohub/internal/domain/models"
)

// IsOwner reports whether u created the workgroup.
func IsOwner(wg models.Workgroup, u auth.SessionUser) bool {
	return u.ID != "" && wg.OwnerID == u.ID
}

// CanView reports whether u may read the workgroup: the owner, any member,
// and anyone with an outstanding invitation.
func CanView(wg models.Workgroup, u auth.SessionUser) bool {
	if IsOwner(wg, u) {
		return true
	}
	email := normalize.Email(u.Email)
	if email == "" {
		return false
	}
	return wg.HasMember(email) || wg.IsInvited(email)
}

// CanInvite reports whether u may invite others: the owner or a member.
// Invited-but-not-accepted users cannot.
func CanInvite(wg models.Workgroup, u auth.SessionUser) bool {
	if IsOwner(wg, u) {
		return true
	}
	email := normalize.Email(u.Email)
	return email != "" && wg.HasMember(email)
}

// CanDelete reports whether u may delete the workgroup. Only the owner can.
func CanDelete(wg models.Workgroup, u auth.SessionUser) bool {
	return IsOwner(wg, u)
}
