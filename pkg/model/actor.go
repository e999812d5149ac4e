package model

type Role string

const (
	RoleMember  Role = "member"
	RoleTrainer Role = "trainer"
	RoleStaff   Role = "staff"
	RoleAdmin   Role = "admin"
)

// SystemActorID is recorded in status history for transitions made by background jobs.
const SystemActorID = "system:sweeper"

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
}

func (a Actor) Elevated() bool {
	return a.Role == RoleStaff || a.Role == RoleAdmin
}

func (a Actor) CanAccessUser(userID string) bool {
	return a.Elevated() || a.UserID == userID
}

func SystemActor() Actor {
	return Actor{UserID: SystemActorID, Role: RoleAdmin}
}
