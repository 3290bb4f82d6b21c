package users

import "time"

// User represents an application user. PasswordHash never leaves the store
// boundary in serialized form.
type User struct {
	ID             string    `json:"id"`
	FullName       string    `json:"fullName"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	ProfilePicture *string   `json:"profilePicture,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// UpdateUserRequest carries the mutable profile fields.
type UpdateUserRequest struct {
	FullName       *string `json:"fullName,omitempty" validate:"omitempty,min=1,max=255"`
	ProfilePicture *string `json:"profilePicture,omitempty"`
}
