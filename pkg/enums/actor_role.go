package enums

// ActorRole identifies who is acting against the admin API.
type ActorRole string

const (
	ActorRoleAdmin  ActorRole = "admin"
	ActorRoleWorker ActorRole = "worker"
)

func (r ActorRole) IsValid() bool {
	switch r {
	case ActorRoleAdmin, ActorRoleWorker:
		return true
	default:
		return false
	}
}
