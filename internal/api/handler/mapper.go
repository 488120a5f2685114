package handler

import "github.com/meterline/subscription-service/internal/core/domain"

func toUserResponse(u *domain.User) *userResponse {
	if u == nil {
		return nil
	}
	return &userResponse{
		ID:                 u.ID,
		Email:              u.Email,
		SubscriptionStatus: string(u.SubscriptionStatus),
		UsageCount:         u.UsageCount,
		ResetDate:          u.ResetDate,
	}
}
