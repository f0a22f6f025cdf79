// Package jobs owns per-user job-application records.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"trackApply/internal/database"
	"trackApply/internal/errcode"
)

// Store is the persistence the service needs. Every method is owner-scoped
// and reports a foreign id as gorm.ErrRecordNotFound.
type Store interface {
	Create(ctx context.Context, job *database.Job) error
	ListByOwner(ctx context.Context, ownerID uint) ([]database.Job, error)
	FindForOwner(ctx context.Context, ownerID, id uint) (*database.Job, error)
	Replace(ctx context.Context, job *database.Job) error
	DeleteForOwner(ctx context.Context, ownerID, id uint) (*database.Job, error)
	SetResumeObjectKey(ctx context.Context, ownerID, id uint, key *string) (*string, error)
}

// Record is a stored job application as clients see it.
type Record struct {
	ID     uint `json:"job_id"`
	UserID uint `json:"user_id"`
	Fields
	HasResume bool      `json:"has_resume"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	resumeKey *string
}

// ResumeKey is the object key of the attached resume, if any.
func (r *Record) ResumeKey() *string {
	return r.resumeKey
}

func toRecord(job *database.Job) *Record {
	return &Record{
		ID:        job.ID,
		UserID:    job.UserID,
		Fields:    fieldsFromRow(job),
		HasResume: job.ResumeObjectKey != nil,
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
		resumeKey: job.ResumeObjectKey,
	}
}

var errJobNotFound = errcode.New(errcode.NotFound, "Job application not found.")

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Create validates fields and stores a record owned by ownerID.
func (s *Service) Create(ctx context.Context, ownerID uint, fields Fields) (*Record, error) {
	fields, err := fields.Validate()
	if err != nil {
		return nil, err
	}

	job := &database.Job{UserID: ownerID}
	fields.apply(job)
	if err := s.store.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	return toRecord(job), nil
}

// List returns the owner's records, most recent application first.
func (s *Service) List(ctx context.Context, ownerID uint) ([]*Record, error) {
	rows, err := s.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	records := make([]*Record, 0, len(rows))
	for i := range rows {
		records = append(records, toRecord(&rows[i]))
	}
	return records, nil
}

func (s *Service) Get(ctx context.Context, ownerID, id uint) (*Record, error) {
	job, err := s.store.FindForOwner(ctx, ownerID, id)
	if err != nil {
		return nil, notFoundOr(err, "find job")
	}
	return toRecord(job), nil
}

// Update replaces every mutable field. Owner and id never change.
func (s *Service) Update(ctx context.Context, ownerID, id uint, fields Fields) (*Record, error) {
	fields, err := fields.Validate()
	if err != nil {
		return nil, err
	}

	job := &database.Job{ID: id, UserID: ownerID}
	fields.apply(job)
	if err := s.store.Replace(ctx, job); err != nil {
		return nil, notFoundOr(err, "update job")
	}
	return toRecord(job), nil
}

// Delete removes the record and returns its state before removal.
func (s *Service) Delete(ctx context.Context, ownerID, id uint) (*Record, error) {
	job, err := s.store.DeleteForOwner(ctx, ownerID, id)
	if err != nil {
		return nil, notFoundOr(err, "delete job")
	}
	return toRecord(job), nil
}

// SetResume points the record at a stored attachment and returns the key it
// replaced.
func (s *Service) SetResume(ctx context.Context, ownerID, id uint, key string) (*string, error) {
	previous, err := s.store.SetResumeObjectKey(ctx, ownerID, id, &key)
	if err != nil {
		return nil, notFoundOr(err, "set resume")
	}
	return previous, nil
}

func notFoundOr(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errJobNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
