package admin

import (
	"context"

	"qbadmin/internal/gateway"
	"qbadmin/internal/listing"
)

const (
	KYCPending    = "PENDING"
	KYCApproved   = "APPROVED"
	KYCRejected   = "REJECTED"
	KYCNotStarted = "NOT_STARTED"
)

const kycPath = "/admin/kyc/submissions"

type KYCSubmission struct {
	ID           string   `json:"id"`
	UserID       string   `json:"userId"`
	UserName     string   `json:"userName,omitempty"`
	Phone        string   `json:"phone,omitempty"`
	Status       string   `json:"status"`
	DocumentType string   `json:"documentType,omitempty"`
	DocumentURLs []string `json:"documentUrls,omitempty"`
	SelfieURL    string   `json:"selfieUrl,omitempty"`
	ReviewedBy   string   `json:"reviewedBy,omitempty"`
	ReviewReason string   `json:"reviewReason,omitempty"`
	SubmittedAt  string   `json:"submittedAt,omitempty"`
	ReviewedAt   string   `json:"reviewedAt,omitempty"`
}

var KYCFilters = listing.Schema{Fields: []listing.Field{
	{Key: "status", Label: "Status", Choices: []string{KYCPending, KYCApproved, KYCRejected, KYCNotStarted}},
	{Key: "q", Label: "User / phone"},
}}

// Reviewable reports whether approve/reject apply.
func (k KYCSubmission) Reviewable() bool { return k.Status == KYCPending }

func (s *Service) ListKYC(ctx context.Context, q gateway.Query) (Page[KYCSubmission], error) {
	var page Page[KYCSubmission]
	err := s.list(ctx, kycPath, q, &page)
	return page, err
}

func (s *Service) GetKYC(ctx context.Context, id string) (KYCSubmission, error) {
	var k KYCSubmission
	if err := requireID("kyc", id); err != nil {
		return k, err
	}
	err := s.get(ctx, resource(kycPath, id), &k)
	return k, err
}

// ApproveKYC issues POST /admin/kyc/submissions/{id}/approve.
func (s *Service) ApproveKYC(ctx context.Context, id, reason string) (KYCSubmission, error) {
	var k KYCSubmission
	if err := requireID("kyc", id); err != nil {
		return k, err
	}
	err := s.post(ctx, resource(kycPath, id, "approve"), reasonBody{Reason: reason}, &k)
	return k, err
}

func (s *Service) RejectKYC(ctx context.Context, id, reason string) (KYCSubmission, error) {
	var k KYCSubmission
	if err := requireID("kyc", id); err != nil {
		return k, err
	}
	err := s.post(ctx, resource(kycPath, id, "reject"), reasonBody{Reason: reason}, &k)
	return k, err
}
