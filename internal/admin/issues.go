package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"qbadmin/internal/gateway"
	"qbadmin/internal/listing"
)

const (
	IssueOpen     = "OPEN"
	IssueInReview = "IN_REVIEW"
	IssueResolved = "RESOLVED"
	IssueClosed   = "CLOSED"

	SeverityLow    = "LOW"
	SeverityMedium = "MEDIUM"
	SeverityHigh   = "HIGH"
)

var IssueCategories = []string{"TASK_DISPUTE", "SAFETY", "PAYMENT", "ACCOUNT", "GENERAL"}

// Outcomes a resolution may record.
var IssueOutcomes = []string{"NO_ACTION", "WARNING_ISSUED", "USER_SUSPENDED", "REFUND_ISSUED", "TASK_CANCELLED"}

const issuesPath = "/admin/issues"

type Issue struct {
	ID             string `json:"id"`
	Status         string `json:"status"`
	Severity       string `json:"severity"`
	Category       string `json:"category"`
	Reason         string `json:"reason"`
	Description    string `json:"description,omitempty"`
	TaskID         string `json:"taskId,omitempty"`
	ReporterID     string `json:"reporterId,omitempty"`
	ReportedUserID string `json:"reportedUserId,omitempty"`
	Outcome        string `json:"outcome,omitempty"`
	ResolutionNote string `json:"resolutionNote,omitempty"`
	CreatedAt      string `json:"createdAt,omitempty"`
	UpdatedAt      string `json:"updatedAt,omitempty"`
}

type IssueComment struct {
	ID        string `json:"id"`
	IssueID   string `json:"issueId"`
	AuthorID  string `json:"authorId"`
	Body      string `json:"body"`
	CreatedAt string `json:"createdAt"`
}

var IssueFilters = listing.Schema{Fields: []listing.Field{
	{Key: "status", Label: "Status", Choices: []string{IssueOpen, IssueInReview, IssueResolved, IssueClosed}},
	{Key: "severity", Label: "Severity", Choices: []string{SeverityLow, SeverityMedium, SeverityHigh}},
	{Key: "category", Label: "Category", Choices: IssueCategories},
	{Key: "taskId", Label: "Task"},
}}

// Resolve and close only move forward: OPEN → IN_REVIEW → RESOLVED → CLOSED.
func (i Issue) CanStartReview() bool { return i.Status == IssueOpen }
func (i Issue) CanResolve() bool     { return i.Status == IssueOpen || i.Status == IssueInReview }
func (i Issue) CanClose() bool       { return i.Status != IssueClosed }

func (s *Service) ListIssues(ctx context.Context, q gateway.Query) (Page[Issue], error) {
	var page Page[Issue]
	err := s.list(ctx, issuesPath, q, &page)
	return page, err
}

func (s *Service) GetIssue(ctx context.Context, id string) (Issue, error) {
	var i Issue
	if err := requireID("issue", id); err != nil {
		return i, err
	}
	err := s.get(ctx, resource(issuesPath, id), &i)
	return i, err
}

func (s *Service) ListIssueComments(ctx context.Context, id string) ([]IssueComment, error) {
	if err := requireID("issue", id); err != nil {
		return nil, err
	}
	var raw json.RawMessage
	if err := s.get(ctx, resource(issuesPath, id, "comments"), &raw); err != nil {
		return nil, err
	}
	return decodeComments(raw)
}

// decodeComments accepts a bare array or a list envelope.
func decodeComments(raw json.RawMessage) ([]IssueComment, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []IssueComment{}, nil
	}
	if trimmed[0] == '[' {
		comments := []IssueComment{}
		if err := json.Unmarshal(trimmed, &comments); err != nil {
			return nil, fmt.Errorf("decode issue comments: %w", err)
		}
		return comments, nil
	}
	var page Page[IssueComment]
	if err := json.Unmarshal(trimmed, &page); err != nil {
		return nil, fmt.Errorf("decode issue comments: %w", err)
	}
	return page.Items, nil
}

// AddIssueComment appends a comment; comments are never edited.
func (s *Service) AddIssueComment(ctx context.Context, id, body string) (IssueComment, error) {
	var c IssueComment
	if err := requireID("issue", id); err != nil {
		return c, err
	}
	if strings.TrimSpace(body) == "" {
		return c, errors.New("comment body required")
	}
	req := struct {
		Body string `json:"body"`
	}{body}
	err := s.post(ctx, resource(issuesPath, id, "comments"), req, &c)
	return c, err
}

func (s *Service) StartIssueReview(ctx context.Context, id string) (Issue, error) {
	var i Issue
	if err := requireID("issue", id); err != nil {
		return i, err
	}
	err := s.post(ctx, resource(issuesPath, id, "review"), struct{}{}, &i)
	return i, err
}

func (s *Service) ResolveIssue(ctx context.Context, id, outcome, note string) (Issue, error) {
	var i Issue
	if err := requireID("issue", id); err != nil {
		return i, err
	}
	if strings.TrimSpace(outcome) == "" {
		return i, errors.New("resolution outcome required")
	}
	body := struct {
		Outcome string `json:"outcome"`
		Note    string `json:"note,omitempty"`
	}{outcome, note}
	err := s.post(ctx, resource(issuesPath, id, "resolve"), body, &i)
	return i, err
}

func (s *Service) CloseIssue(ctx context.Context, id, note string) (Issue, error) {
	var i Issue
	if err := requireID("issue", id); err != nil {
		return i, err
	}
	err := s.post(ctx, resource(issuesPath, id, "close"), noteBody{Note: note}, &i)
	return i, err
}
