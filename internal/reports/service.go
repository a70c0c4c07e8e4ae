package reports

import (
	"context"
	"fmt"
	"time"
)

// BorrowAnalysis summarizes how well loans come back.
type BorrowAnalysis struct {
	TotalReturns    int     `json:"total_returns"`
	LateReturns     int     `json:"late_returns"`
	OnTimeReturns   int     `json:"on_time_returns"`
	AverageLoanDays float64 `json:"average_loan_days"`
	ActiveLoans     int     `json:"active_loans"`
	OverdueLoans    int     `json:"overdue_loans"`
}

// Service exposes read-only reporting over items and reservations.
type Service interface {
	Usage(ctx context.Context) ([]UsageRow, error)
	BorrowAnalysis(ctx context.Context, now time.Time) (*BorrowAnalysis, error)
}

type service struct {
	repo Repository
}

// NewService builds the reports service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reports repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Usage(ctx context.Context) ([]UsageRow, error) {
	return s.repo.Usage(ctx)
}

// BorrowAnalysis derives lateness and duration figures from closed
// reservations and counts open loans against now.
func (s *service) BorrowAnalysis(ctx context.Context, now time.Time) (*BorrowAnalysis, error) {
	returned, err := s.repo.ListReturned(ctx)
	if err != nil {
		return nil, err
	}
	pending, err := s.repo.ListPending(ctx)
	if err != nil {
		return nil, err
	}

	analysis := &BorrowAnalysis{
		TotalReturns: len(returned),
		ActiveLoans:  len(pending),
	}

	var totalDays float64
	for _, reservation := range returned {
		if reservation.ActualReturnDate == nil {
			continue
		}
		if reservation.ActualReturnDate.After(reservation.ScheduledReturnDate) {
			analysis.LateReturns++
		}
		totalDays += reservation.ActualReturnDate.Sub(reservation.BorrowDate).Hours() / 24
	}
	analysis.OnTimeReturns = analysis.TotalReturns - analysis.LateReturns
	if analysis.TotalReturns > 0 {
		analysis.AverageLoanDays = totalDays / float64(analysis.TotalReturns)
	}

	for _, reservation := range pending {
		if reservation.ScheduledReturnDate.Before(now) {
			analysis.OverdueLoans++
		}
	}

	return analysis, nil
}
