package handler

import (
	"strings"

	"github.com/nicestack/user-service/internal/core/domain"
	"github.com/nicestack/user-service/internal/core/ports"
)

// --- Request → Service input ---

func toRegisterInput(req registerRequest) ports.RegisterInput {
	return ports.RegisterInput{
		Name:     strings.TrimSpace(req.Name),
		Surname:  strings.TrimSpace(req.Surname),
		Email:    req.Email,
		Password: req.Password,
		Phone:    strings.TrimSpace(req.Phone),
		Age:      req.Age,
		Gender:   domain.Gender(req.Gender),
	}
}

func toProfilePatch(req updateUserRequest) ports.ProfilePatch {
	patch := ports.ProfilePatch{
		Name:    req.Name,
		Surname: req.Surname,
		Phone:   req.Phone,
		Age:     req.Age,
	}
	if req.Gender != nil {
		g := domain.Gender(*req.Gender)
		patch.Gender = &g
	}
	return patch
}

func toUserFilter(req filterUsersRequest) ports.UserFilter {
	return ports.UserFilter{
		Name:    strings.TrimSpace(req.Name),
		Surname: strings.TrimSpace(req.Surname),
		Email:   strings.TrimSpace(req.Email),
		Role:    domain.Role(req.Role),
		Status:  domain.UserStatus(req.Status),
		Gender:  domain.Gender(req.Gender),
		Page:    req.Page,
		Limit:   req.Limit,
	}
}

// --- Domain → Response ---

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Name:      u.Name,
		Surname:   u.Surname,
		Email:     u.Email,
		Phone:     u.Phone,
		Age:       u.Age,
		Gender:    string(u.Gender),
		Role:      string(u.Role),
		Status:    string(u.Status),
		Photo:     u.Photo,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func toListResponse(res *ports.ListUsersResult) listUsersResponse {
	items := make([]userResponse, 0, len(res.Items))
	for _, u := range res.Items {
		items = append(items, toUserResponse(u))
	}
	return listUsersResponse{
		Items:      items,
		Total:      res.Total,
		Page:       res.Page,
		Limit:      res.Limit,
		TotalPages: res.TotalPages,
	}
}

func toTokenResponse(p *domain.TokenPair) tokenResponse {
	return tokenResponse{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		TokenType:    "Bearer",
		ExpiresAt:    p.ExpiresAt,
	}
}
