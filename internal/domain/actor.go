package domain

// ActorRole is the closed set of actor classes that can touch a ticket.
type ActorRole string

const (
	RoleUser   ActorRole = "USER"
	RoleAdmin  ActorRole = "ADMIN"
	RoleGuest  ActorRole = "GUEST"
	RoleSystem ActorRole = "SYSTEM"
)

// Actor identifies the requesting party for every operation. Identity is
// verified upstream (JWT for USER/ADMIN, per-ticket access token for GUEST);
// services never infer an actor from ambient state.
type Actor struct {
	Role        ActorRole
	SubjectID   *string // user or staff id, nil for guests
	GuestName   string
	GuestEmail  string
	AccessToken string // opaque capability token, guests only
}

// IsStaff reports whether the actor belongs to the operator side.
func (a Actor) IsStaff() bool {
	return a.Role == RoleAdmin
}
