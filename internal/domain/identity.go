package domain

type Role string

const (
	RoleCandidate Role = "candidate"
	RoleAdmin     Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleCandidate || r == RoleAdmin
}

// Identity is attached to a connection once, at handshake, and never changes.
type Identity struct {
	UserID int64
	Name   string
	Email  string
	Role   Role
}

// UserRef - то, что уходит клиентам в joinedUser/leftUser/user.
type UserRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role,omitempty"`
}

func (i Identity) Ref() UserRef {
	return UserRef{ID: i.UserID, Name: i.Name}
}
