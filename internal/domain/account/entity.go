package account

import "sort"

// User represents a hospital application account.
type User struct {
	ID       string   // ID is the generated identifier, empty until first save
	Username string   // Username is the unique login name
	Password string   // Password is the bcrypt hash, never the plain text
	Email    string   // Email is the contact address of the user
	Roles    []string // Roles holds the assigned role names, sorted and unique
}

// Role represents an authorization role.
type Role struct {
	Name string // Name is the unique role identifier
}

// HasRole reports whether the role is assigned to the user.
func (u *User) HasRole(name string) bool {
	i := sort.SearchStrings(u.Roles, name)
	return i < len(u.Roles) && u.Roles[i] == name
}

// AddRole assigns a role and reports whether the set changed.
func (u *User) AddRole(name string) bool {
	i := sort.SearchStrings(u.Roles, name)
	if i < len(u.Roles) && u.Roles[i] == name {
		return false
	}
	u.Roles = append(u.Roles, "")
	copy(u.Roles[i+1:], u.Roles[i:])
	u.Roles[i] = name
	return true
}

// RemoveRole unassigns a role and reports whether the set changed.
func (u *User) RemoveRole(name string) bool {
	i := sort.SearchStrings(u.Roles, name)
	if i >= len(u.Roles) || u.Roles[i] != name {
		return false
	}
	u.Roles = append(u.Roles[:i], u.Roles[i+1:]...)
	return true
}

// NormalizeRoles sorts the role names and drops duplicates.
func NormalizeRoles(roles []string) []string {
	out := make([]string, 0, len(roles))
	seen := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// Clone returns a deep copy of the user.
func (u *User) Clone() *User {
	c := *u
	c.Roles = append([]string(nil), u.Roles...)
	return &c
}
