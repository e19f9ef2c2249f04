package auth

import "github.com/evcraddock/visit-hub/internal/account"

// Action is something an actor may be allowed to do.
type Action string

const (
	ActionView           Action = "view"
	ActionEditVisits     Action = "edit_visits"
	ActionManageData     Action = "manage_data"
	ActionManagePurposes Action = "manage_purposes"
	ActionManageAccounts Action = "manage_accounts"
)

// Actions lists every action, in the order capabilities are reported.
var Actions = []Action{ActionView, ActionEditVisits, ActionManageData, ActionManagePurposes, ActionManageAccounts}

// Allowed is the single authorization policy: admins may do everything,
// users may read and write visits, viewers may only read.
func Allowed(role account.Role, action Action) bool {
	switch role {
	case account.RoleAdmin:
		return true
	case account.RoleUser:
		return action == ActionView || action == ActionEditVisits
	case account.RoleViewer:
		return action == ActionView
	default:
		return false
	}
}

// Capabilities reports every action and whether role may perform it.
func Capabilities(role account.Role) map[Action]bool {
	caps := make(map[Action]bool, len(Actions))
	for _, a := range Actions {
		caps[a] = Allowed(role, a)
	}
	return caps
}
