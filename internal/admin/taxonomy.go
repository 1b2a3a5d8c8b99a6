package admin

import (
	"context"
	"errors"
	"strings"

	"qbadmin/internal/gateway"
	"qbadmin/internal/listing"
)

const categoriesPath = "/admin/taxonomy/categories"

type Category struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	ParentID string `json:"parentId,omitempty"`
	Active   bool   `json:"active"`
}

// CategoryInput is the create/update body. Nil fields are left unchanged on
// update.
type CategoryInput struct {
	Name     *string `json:"name,omitempty"`
	Slug     *string `json:"slug,omitempty"`
	ParentID *string `json:"parentId,omitempty"`
	Active   *bool   `json:"active,omitempty"`
}

var CategoryFilters = listing.Schema{Fields: []listing.Field{
	{Key: "active", Label: "Active", Choices: []string{"TRUE", "FALSE"}},
	{Key: "parentId", Label: "Parent"},
	{Key: "q", Label: "Name"},
}, PageSize: 50}

func (s *Service) ListCategories(ctx context.Context, q gateway.Query) (Page[Category], error) {
	var page Page[Category]
	err := s.list(ctx, categoriesPath, q, &page)
	return page, err
}

func (s *Service) CreateCategory(ctx context.Context, in CategoryInput) (Category, error) {
	var c Category
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return c, errors.New("category name required")
	}
	err := s.post(ctx, categoriesPath, in, &c)
	return c, err
}

func (s *Service) UpdateCategory(ctx context.Context, id string, in CategoryInput) (Category, error) {
	var c Category
	if err := requireID("category", id); err != nil {
		return c, err
	}
	err := s.patch(ctx, resource(categoriesPath, id), in, &c)
	return c, err
}
