package admin

import (
	"context"

	"qbadmin/internal/gateway"
	"qbadmin/internal/listing"
)

const ratingsPath = "/admin/ratings"

type Rating struct {
	ID        string `json:"id"`
	TaskID    string `json:"taskId"`
	RaterID   string `json:"raterId"`
	RateeID   string `json:"rateeId"`
	Stars     int    `json:"stars"`
	Comment   string `json:"comment,omitempty"`
	Hidden    bool   `json:"hidden"`
	CreatedAt string `json:"createdAt,omitempty"`
}

var RatingFilters = listing.Schema{Fields: []listing.Field{
	{Key: "stars", Label: "Stars", Choices: []string{"1", "2", "3", "4", "5"}},
	{Key: "hidden", Label: "Hidden", Choices: []string{"TRUE", "FALSE"}},
	{Key: "taskId", Label: "Task"},
	{Key: "userId", Label: "User"},
}}

func (s *Service) ListRatings(ctx context.Context, q gateway.Query) (Page[Rating], error) {
	var page Page[Rating]
	err := s.list(ctx, ratingsPath, q, &page)
	return page, err
}

func (s *Service) HideRating(ctx context.Context, id, reason string) (Rating, error) {
	var r Rating
	if err := requireID("rating", id); err != nil {
		return r, err
	}
	err := s.post(ctx, resource(ratingsPath, id, "hide"), reasonBody{Reason: reason}, &r)
	return r, err
}

func (s *Service) UnhideRating(ctx context.Context, id string) (Rating, error) {
	var r Rating
	if err := requireID("rating", id); err != nil {
		return r, err
	}
	err := s.post(ctx, resource(ratingsPath, id, "unhide"), struct{}{}, &r)
	return r, err
}
