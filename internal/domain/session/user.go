package session

import "time"

// Role is a store staff role.
type Role string

const (
	RoleOwner   Role = "owner"
	RoleManager Role = "manager"
	RoleStaff   Role = "staff"
)

// User is the authenticated account's profile.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone,omitempty"`
	Role         Role      `json:"role,omitempty"`
	StoreID      string    `json:"storeId,omitempty"`
	StoreName    string    `json:"storeName,omitempty"`
	ProfileImage []string  `json:"ProfileImage,omitempty"`
	CreatedAt    time.Time `json:"createdAt,omitzero"`
	UpdatedAt    time.Time `json:"updatedAt,omitzero"`
}

// UserPatch is a partial user update. Nil fields are left unchanged.
type UserPatch struct {
	Name         *string  `json:"name,omitempty"`
	Email        *string  `json:"email,omitempty"`
	Phone        *string  `json:"phone,omitempty"`
	Role         *Role    `json:"role,omitempty"`
	StoreID      *string  `json:"storeId,omitempty"`
	StoreName    *string  `json:"storeName,omitempty"`
	ProfileImage []string `json:"ProfileImage,omitempty"`
}

// Merge returns a copy of u with every non-nil field of p applied.
func (u User) Merge(p UserPatch) User {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.StoreID != nil {
		u.StoreID = *p.StoreID
	}
	if p.StoreName != nil {
		u.StoreName = *p.StoreName
	}
	if p.ProfileImage != nil {
		u.ProfileImage = append([]string(nil), p.ProfileImage...)
	}
	return u
}

// Clone returns a deep copy of u.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.ProfileImage != nil {
		c.ProfileImage = append([]string(nil), u.ProfileImage...)
	}
	return &c
}

// String returns a pointer to s, for building patches.
func String(s string) *string { return &s }

// Patch returns a patch that sets every field of u.
func (u User) Patch() UserPatch {
	role := u.Role
	return UserPatch{
		Name:         String(u.Name),
		Email:        String(u.Email),
		Phone:        String(u.Phone),
		Role:         &role,
		StoreID:      String(u.StoreID),
		StoreName:    String(u.StoreName),
		ProfileImage: u.ProfileImage,
	}
}
