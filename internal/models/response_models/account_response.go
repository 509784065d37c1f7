package response_models

import "glucoach/internal/models/db_models"

type AuthResponse struct {
	Token string          `json:"token"`
	User  *db_models.User `json:"user"`
}
