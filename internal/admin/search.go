package admin

import (
	"context"
	"errors"
	"net/url"
	"strings"
)

const searchPath = "/admin/search"

// SearchResult is the backend's authoritative resolution of a pasted id.
type SearchResult struct {
	EntityType string `json:"entityType"`
	ID         string `json:"id"`
	Route      string `json:"route"`
}

func (s *Service) SearchByID(ctx context.Context, id string) (SearchResult, error) {
	var r SearchResult
	id = strings.TrimSpace(id)
	if id == "" {
		return r, errors.New("search id required")
	}
	err := s.list(ctx, searchPath, url.Values{"id": {id}}, &r)
	return r, err
}
