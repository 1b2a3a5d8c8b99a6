package admin

import (
	"context"
	"errors"
	"strings"

	"qbadmin/internal/gateway"
	"qbadmin/internal/listing"
)

const (
	JobIdle    = "IDLE"
	JobRunning = "RUNNING"
	JobFailed  = "FAILED"
)

const jobsPath = "/admin/jobs"

type Job struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	Schedule  string `json:"schedule,omitempty"`
	LastRunAt string `json:"lastRunAt,omitempty"`
	LastError string `json:"lastError,omitempty"`
	NextRunAt string `json:"nextRunAt,omitempty"`
}

var JobFilters = listing.Schema{Fields: []listing.Field{
	{Key: "status", Label: "Status", Choices: []string{JobIdle, JobRunning, JobFailed}},
}}

func (s *Service) ListJobs(ctx context.Context, q gateway.Query) (Page[Job], error) {
	var page Page[Job]
	err := s.list(ctx, jobsPath, q, &page)
	return page, err
}

func (s *Service) GetJob(ctx context.Context, id string) (Job, error) {
	var j Job
	if err := requireID("job", id); err != nil {
		return j, err
	}
	err := s.get(ctx, resource(jobsPath, id), &j)
	return j, err
}

// RunJob asks the backend to run the named job now. Execution is
// asynchronous on the backend.
func (s *Service) RunJob(ctx context.Context, name string) (Ack, error) {
	var ack Ack
	if strings.TrimSpace(name) == "" {
		return ack, errors.New("job name required")
	}
	err := s.post(ctx, resource(jobsPath, name, "run"), struct{}{}, &ack)
	return ack, err
}
