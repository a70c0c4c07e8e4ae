package users

import (
	"github.com/sarana-io/lending-backend/pkg/db/models"
	"github.com/sarana-io/lending-backend/pkg/enums"
)

// Summary is the user shape exposed over the API. The password hash never
// leaves the persistence layer.
type Summary struct {
	ID    int64          `json:"id"`
	Name  string         `json:"name"`
	Email string         `json:"email"`
	Role  enums.UserRole `json:"role"`
}

// FromModel converts a persisted user into its API shape.
func FromModel(user *models.User) Summary {
	if user == nil {
		return Summary{}
	}
	return Summary{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
	}
}
