package entity

// User is the operator or patron on whose behalf a scan is processed. Users
// are owned by the identity provider; circulation only reads them.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"` // student, staff, admin
}

// DisplayName falls back to the ID when no name is known.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	if u.ID != "" {
		return u.ID
	}
	return "Unknown"
}
