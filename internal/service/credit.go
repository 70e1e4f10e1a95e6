package service

import (
	"context"
	"fmt"

	"emotion-character-demo/backend/internal/repository"
)

// CreditBalance is what the client sees of a user's credits
type CreditBalance struct {
	FreeCredits int `json:"free_credits"`
	TurnCost    int `json:"turn_cost"`
}

type CreditService struct {
	credits  repository.CreditRepository
	turnCost int
}

func NewCreditService(credits repository.CreditRepository, turnCost int) *CreditService {
	return &CreditService{credits: credits, turnCost: turnCost}
}

// Balance returns the user's credits, granting the initial balance on first access
func (s *CreditService) Balance(ctx context.Context, userID uint) (*CreditBalance, error) {
	credit, err := s.credits.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load credits: %w", err)
	}
	return &CreditBalance{FreeCredits: credit.FreeCredits, TurnCost: s.turnCost}, nil
}

// Grant tops up a user's credits and returns the new balance
func (s *CreditService) Grant(ctx context.Context, userID uint, amount int) (*CreditBalance, error) {
	if amount <= 0 {
		return nil, &ValidationError{Reason: "non_positive_amount"}
	}
	balance, err := s.credits.Grant(ctx, userID, amount)
	if err != nil {
		return nil, fmt.Errorf("grant credits: %w", err)
	}
	return &CreditBalance{FreeCredits: balance, TurnCost: s.turnCost}, nil
}
