package sectionflow

import "context"

// Action identifies one workflow action a user can trigger from the section's action
// bar.
type Action string

const (
	ActionSave      Action = "save"
	ActionSubmit    Action = "submit"
	ActionReview    Action = "review"
	ActionApprove   Action = "approve"
	ActionReject    Action = "reject"
	ActionReopen    Action = "reopen"
	ActionSupersede Action = "supersede"
)

// PermissionProvider is the external collaborator deciding whether the current user may
// perform an action at all. The orchestrator itself is permission-agnostic; only action
// visibility consults this.
type PermissionProvider interface {
	Allowed(ctx context.Context, action Action) bool
}

// transitionAction maps a destination status to the action that moves a section there.
var transitionAction = map[RowStatus]Action{
	RowStatusDraft:      ActionReopen,
	RowStatusComplete:   ActionSubmit,
	RowStatusReviewed:   ActionReview,
	RowStatusApproved:   ActionApprove,
	RowStatusRejected:   ActionReject,
	RowStatusSuperseded: ActionSupersede,
}

// ActionBar computes which workflow actions are visible for a section, from the
// intersection of the lifecycle table and the user's permissions. Adding a new status
// transition automatically surfaces its action here.
type ActionBar struct {
	perms PermissionProvider
}

func NewActionBar(perms PermissionProvider) *ActionBar {
	return &ActionBar{perms: perms}
}

// VisibleActions returns the actions to offer for the section's current status, in a
// fixed display order: save first, then the lifecycle actions by destination code.
func (b *ActionBar) VisibleActions(ctx context.Context, s *Section) []Action {
	if s == nil {
		return nil
	}

	status := s.Status()

	var visible []Action
	if status.Editable() && b.allowed(ctx, ActionSave) {
		visible = append(visible, ActionSave)
	}

	for _, to := range AvailableTransitions(status) {
		action, ok := transitionAction[to]
		if !ok {
			continue
		}

		if b.allowed(ctx, action) {
			visible = append(visible, action)
		}
	}

	return visible
}

func (b *ActionBar) allowed(ctx context.Context, action Action) bool {
	if b.perms == nil {
		return true
	}

	return b.perms.Allowed(ctx, action)
}
