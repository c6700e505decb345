// internal/app/features/workgroups/types.go
package workgroups

type createInput struct {
	Name string `json:"name" validate:"required,max=100" label:"Name"`
}

type inviteInput struct {
	WorkgroupID string `json:"workgroupId"`
	Email       string `json:"email"`
}

type acceptInput struct {
	InvitationID string `json:"invitationId"`
}
