package model

import (
	"strings"
)

// A User represents a database record.
// The email is the primary key.
type User struct {
	Timestamps `msgpack:",inline" storm:"inline"`

	Email    string `json:"email"              msgpack:"email"              codec:"email"              storm:"id"`
	Name     string `json:"name"               msgpack:"name"               codec:"name"`
	Password string `json:"-"                  msgpack:"password,omitempty" codec:"-"`
	Avatar   string `json:"avatar,omitempty"   msgpack:"avatar,omitempty"   codec:"avatar,omitempty"`
	Bio      string `json:"bio,omitempty"      msgpack:"bio,omitempty"      codec:"bio,omitempty"`
	Location string `json:"location,omitempty" msgpack:"location,omitempty" codec:"location,omitempty"`
	Website  string `json:"website,omitempty"  msgpack:"website,omitempty"  codec:"website,omitempty"`
}

// A ProfilePatch holds the editable fields of a user.
// Nil fields are left untouched.
type ProfilePatch struct {
	Name     *string `json:"name"     validate:"omitnil,min=1"`
	Avatar   *string `json:"avatar"`
	Bio      *string `json:"bio"`
	Location *string `json:"location"`
	Website  *string `json:"website"`
}

// GetID returns the user's email.
func (m *User) GetID() string {
	return m.Email
}

// SetID defines the user's email.
func (m *User) SetID(email string) {
	m.Email = email
}

// Safe returns a copy of the user without its password.
func (m *User) Safe() *User {
	u := *m
	u.Password = ""
	return &u
}

// Apply updates the user with the given patch.
// It returns true if the denormalized fields (name, avatar) changed.
func (m *User) Apply(p ProfilePatch) (denormalized bool) {
	if p.Name != nil && *p.Name != m.Name {
		m.Name = *p.Name
		denormalized = true
	}
	if p.Avatar != nil && *p.Avatar != m.Avatar {
		m.Avatar = *p.Avatar
		denormalized = true
	}
	if p.Bio != nil {
		m.Bio = *p.Bio
	}
	if p.Location != nil {
		m.Location = *p.Location
	}
	if p.Website != nil {
		m.Website = *p.Website
	}
	return denormalized
}

// Matches returns true if the query is contained in the user's name, bio, email or location (case insensitive).
func (m *User) Matches(query string) bool {
	if query == "" {
		return true
	}

	query = strings.ToLower(query)
	for _, field := range []string{m.Name, m.Bio, m.Email, m.Location} {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}

// DefaultAvatar returns the generated avatar URL for the given display name.
func DefaultAvatar(name string) string {
	return "https://api.dicebear.com/7.x/avataaars/svg?seed=" + strings.Replace(name, " ", "", 1)
}
