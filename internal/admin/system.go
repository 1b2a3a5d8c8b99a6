package admin

import (
	"context"
	"errors"
	"strings"
)

const (
	healthPath = "/admin/health"
	configPath = "/admin/config"
)

// Health is the backend's self-report.
type Health struct {
	Status     string            `json:"status"`
	Version    string            `json:"version,omitempty"`
	Components map[string]string `json:"components,omitempty"`
}

func (h Health) OK() bool { return strings.EqualFold(h.Status, "ok") }

// ConfigEntry is one runtime setting held by the backend.
type ConfigEntry struct {
	Key       string `json:"key"`
	Value     string `json:"value"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

func (s *Service) Health(ctx context.Context) (Health, error) {
	var h Health
	err := s.get(ctx, healthPath, &h)
	return h, err
}

func (s *Service) ListConfig(ctx context.Context) ([]ConfigEntry, error) {
	var page Page[ConfigEntry]
	err := s.get(ctx, configPath, &page)
	return page.Items, err
}

func (s *Service) SetConfig(ctx context.Context, key, value string) (ConfigEntry, error) {
	var e ConfigEntry
	if strings.TrimSpace(key) == "" {
		return e, errors.New("config key required")
	}
	body := struct {
		Value string `json:"value"`
	}{value}
	err := s.put(ctx, resource(configPath, key), body, &e)
	return e, err
}
