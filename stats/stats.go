// Package stats computes the platform-wide counters shown on public pages.
package stats

import (
	"context"
	"fmt"
)

// UserCounter counts registered users.
type UserCounter interface {
	Count(ctx context.Context) (int64, error)
}

// ActivityTotals counts activities and sums their emissions.
type ActivityTotals interface {
	Count(ctx context.Context) (int64, error)
	TotalEmissions(ctx context.Context) (float64, error)
}

// Summary is the payload of the public stats endpoint.
type Summary struct {
	Users           int64   `json:"users"`
	Activities      int64   `json:"activities"`
	EmissionsKg     float64 `json:"emissions_kg"`
	UsersLabel      string  `json:"users_label"`
	ActivitiesLabel string  `json:"activities_label"`
	EmissionsLabel  string  `json:"emissions_label"`
}

type Service struct {
	users      UserCounter
	activities ActivityTotals
	formatter  Formatter
}

func NewService(users UserCounter, activities ActivityTotals, formatter Formatter) *Service {
	return &Service{users: users, activities: activities, formatter: formatter}
}

func (s *Service) Summary(ctx context.Context) (Summary, error) {
	users, err := s.users.Count(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("count users: %w", err)
	}
	activities, err := s.activities.Count(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("count activities: %w", err)
	}
	emissions, err := s.activities.TotalEmissions(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("sum emissions: %w", err)
	}
	return Summary{
		Users:           users,
		Activities:      activities,
		EmissionsKg:     emissions,
		UsersLabel:      FormatUsers(users),
		ActivitiesLabel: FormatCount(activities),
		EmissionsLabel:  s.formatter.FormatEmissions(emissions),
	}, nil
}
