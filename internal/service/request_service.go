package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/Lixing-Zhang/tailortech/internal/measurement"
	"github.com/Lixing-Zhang/tailortech/internal/models"
	"github.com/Lixing-Zhang/tailortech/internal/repository"
)

// RequestService handles custom tailoring requests and their measurements
type RequestService struct {
	requests repository.RequestRepository
	tailors  repository.TailorRepository
	policy   *bluemonday.Policy
}

// NewRequestService creates a new request service
func NewRequestService(requests repository.RequestRepository, tailors repository.TailorRepository) *RequestService {
	return &RequestService{
		requests: requests,
		tailors:  tailors,
		policy:   bluemonday.StrictPolicy(),
	}
}

// Create stores a request and its Pending transaction. The tailor must offer
// the request's category; the stored price is the tailor's base price.
func (s *RequestService) Create(ctx context.Context, req models.CreateRequestRequest) (int64, error) {
	category, err := models.CategoryFromCode(req.RequestType)
	if err != nil {
		return 0, ErrInvalidCategory
	}

	desc := strings.TrimSpace(s.policy.Sanitize(req.Desc))
	if desc == "" {
		return 0, ErrMissingDescription
	}
	if req.TotalPrice.IsNegative() || req.Price.IsNegative() {
		return 0, ErrInvalidAmount
	}

	status := req.Status
	if status == "" {
		status = models.StatusPending
	}
	if status != models.StatusPending {
		return 0, fmt.Errorf("%w: new requests start as %s", ErrInvalidStatus, models.StatusPending)
	}

	tailor, err := s.tailors.GetTailor(ctx, req.TailorID)
	if err != nil {
		return 0, err
	}
	speciality, ok := tailor.SpecialityFor(category)
	if !ok {
		return 0, fmt.Errorf("%w: tailor does not offer %s", ErrInvalidCategory, category)
	}

	name := strings.TrimSpace(s.policy.Sanitize(req.Name))
	if name == "" {
		name = category.String()
	}

	return s.requests.CreateRequest(ctx, models.Request{
		TailorID:    req.TailorID,
		UserID:      req.UserID,
		Name:        name,
		Description: desc,
		Price:       speciality.Price,
		Category:    category,
	}, status, req.TotalPrice)
}

// SaveMeasurement validates and records the measurement body of a request.
// Only the client who placed the request may record it.
func (s *RequestService) SaveMeasurement(ctx context.Context, actor Principal, category models.Category, body map[string]any) error {
	requestID, set, err := measurement.FromPayload(body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if err := measurement.Validate(category, set); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	req, err := s.requests.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if actor.Role != models.RoleUser || actor.ID != req.UserID {
		return ErrForbidden
	}

	err = s.requests.SaveMeasurement(ctx, requestID, category, map[string]any(set))
	if errors.Is(err, repository.ErrCategoryMismatch) {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return err
}

// GetRequest returns one request; callers must own it or be its tailor
func (s *RequestService) GetRequest(ctx context.Context, actor Principal, id int64) (*models.Request, error) {
	req, err := s.requests.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if !owns(actor, req.UserID, req.TailorID) {
		return nil, ErrForbidden
	}
	return req, nil
}

func owns(actor Principal, userID, tailorID int64) bool {
	switch actor.Role {
	case models.RoleUser:
		return actor.ID == userID
	case models.RoleTailor:
		return actor.ID == tailorID
	default:
		return false
	}
}
