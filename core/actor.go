package core

// Roles
const (
	RoleTeacher    = "teacher"
	RoleGovernment = "government"
)

var AllRoles = []string{RoleTeacher, RoleGovernment}

// Actor identifies the authenticated caller of an operation (carried by the API token).
type Actor struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Role     string `json:"role"`
	SchoolID string `json:"schoolId,omitempty"`
}

func (a Actor) IsTeacher() bool    { return a.Role == RoleTeacher }
func (a Actor) IsGovernment() bool { return a.Role == RoleGovernment }
