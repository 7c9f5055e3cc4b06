package models

import (
	"github.com/angelmondragon/agristore-backend/pkg/backend"
	"github.com/angelmondragon/agristore-backend/pkg/enums"
)

const UsersCollection = "users"

// UserProfile is stored at users/{uid}.
type UserProfile struct {
	Email string     `json:"email" firestore:"email"`
	Role  enums.Role `json:"role" firestore:"role"`
}

func (u UserProfile) Fields() map[string]any {
	return map[string]any{
		"email": u.Email,
		"role":  u.Role.String(),
	}
}

// UserProfileFromDocument decodes a profile. A missing or unknown role reads
// as customer.
func UserProfileFromDocument(doc backend.Document) (UserProfile, error) {
	var raw struct {
		Email string `firestore:"email"`
		Role  string `firestore:"role"`
	}
	if err := decodeFields(doc.Fields, &raw); err != nil {
		return UserProfile{}, err
	}
	return UserProfile{Email: raw.Email, Role: enums.ParseRole(raw.Role)}, nil
}
