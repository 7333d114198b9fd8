package domain

type UserRole string

const (
	RoleCustomer UserRole = "customer"
	RoleProvider UserRole = "provider"
	RoleAdmin    UserRole = "admin"
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleCustomer, RoleProvider, RoleAdmin:
		return true
	}
	return false
}

// Actor is the authenticated caller as supplied by the auth collaborator.
// ProviderID is set only for provider staff.
type Actor struct {
	UserID     int64
	Role       UserRole
	ProviderID int64
}

// CanManageProvider reports whether the actor may act on the provider's side
// of a booking.
func (a Actor) CanManageProvider(providerID int64) bool {
	switch a.Role {
	case RoleAdmin:
		return true
	case RoleProvider:
		return a.ProviderID != 0 && a.ProviderID == providerID
	}
	return false
}
