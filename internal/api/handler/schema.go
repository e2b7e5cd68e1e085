package handler

import (
	"time"

	"github.com/nicestack/user-service/internal/core/domain"
)

type messageResponse struct {
	Message string `json:"message"`
}

// --- Auth ---

type registerRequest struct {
	Name     string `json:"name"     validate:"required,min=2,max=20"`
	Surname  string `json:"surname"  validate:"required,alphanum,min=2,max=20"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Phone    string `json:"phone"    validate:"required,phone"`
	Age      *int   `json:"age"      validate:"omitempty,gte=5,lte=115"`
	Gender   string `json:"gender"   validate:"omitempty,oneof=male female"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type forgotRequest struct {
	Email string `query:"email" validate:"required,email"`
}

type tokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type loginResponse struct {
	tokenResponse
	User userResponse `json:"user"`
}

// --- Users ---

type listUsersRequest struct {
	Page  int `query:"page"  validate:"omitempty,gte=1"`
	Limit int `query:"limit" validate:"omitempty,gte=1"`
}

type filterUsersRequest struct {
	Name    string `query:"name"    validate:"omitempty,max=50"`
	Surname string `query:"surname" validate:"omitempty,max=50"`
	Email   string `query:"email"   validate:"omitempty,max=100"`
	Role    string `query:"role"    validate:"omitempty,oneof=user admin"`
	Status  string `query:"status"  validate:"omitempty,oneof=pending active inactive banned"`
	Gender  string `query:"gender"  validate:"omitempty,oneof=male female"`
	Page    int    `query:"page"    validate:"omitempty,gte=1"`
	Limit   int    `query:"limit"   validate:"omitempty,gte=1"`
}

type updateUserRequest struct {
	Name    *string `json:"name"    validate:"omitempty,min=2,max=20"`
	Surname *string `json:"surname" validate:"omitempty,alphanum,min=2,max=20"`
	Phone   *string `json:"phone"   validate:"omitempty,phone"`
	Age     *int    `json:"age"     validate:"omitempty,gte=5,lte=115"`
	Gender  *string `json:"gender"  validate:"omitempty,oneof=male female"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

type photoRequest struct {
	Mime string `json:"mime" validate:"required,oneof=image/jpeg image/png image/webp"`
	File string `json:"file" validate:"required,max=512"`
}

type roleRequest struct {
	Role string `json:"role" validate:"required,oneof=user admin"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending active inactive banned"`
}

type userResponse struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Surname   string        `json:"surname"`
	Email     string        `json:"email"`
	Phone     string        `json:"phone"`
	Age       *int          `json:"age,omitempty"`
	Gender    string        `json:"gender,omitempty"`
	Role      string        `json:"role"`
	Status    string        `json:"status"`
	Photo     *domain.Photo `json:"photo,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

type listUsersResponse struct {
	Items      []userResponse `json:"items"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	TotalPages int            `json:"total_pages"`
}
