package admin

import (
	"context"
	"encoding/json"

	"qbadmin/internal/gateway"
	"qbadmin/internal/listing"
)

const auditPath = "/admin/audit"

// AuditEntry records one admin action taken against the backend.
type AuditEntry struct {
	ID         string          `json:"id"`
	ActorID    string          `json:"actorId"`
	Action     string          `json:"action"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	At         string          `json:"at"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
}

var AuditFilters = listing.Schema{Fields: []listing.Field{
	{Key: "actorId", Label: "Actor"},
	{Key: "action", Label: "Action"},
	{Key: "entityType", Label: "Entity type"},
	{Key: "entityId", Label: "Entity"},
	{Key: "from", Label: "From"},
	{Key: "to", Label: "To"},
}, PageSize: 50}

func (s *Service) ListAudit(ctx context.Context, q gateway.Query) (Page[AuditEntry], error) {
	var page Page[AuditEntry]
	err := s.list(ctx, auditPath, q, &page)
	return page, err
}
