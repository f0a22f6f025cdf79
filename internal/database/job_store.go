package database

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// JobStore persists job applications. Every lookup is scoped by owner so a
// foreign id behaves exactly like a missing one (gorm.ErrRecordNotFound).
type JobStore struct {
	db *gorm.DB
}

func NewJobStore(db *gorm.DB) *JobStore {
	return &JobStore{db: db}
}

func (s *JobStore) Create(ctx context.Context, job *Job) error {
	return s.db.WithContext(ctx).Create(job).Error
}

// ListByOwner returns the owner's jobs, most recent application first.
func (s *JobStore) ListByOwner(ctx context.Context, ownerID uint) ([]Job, error) {
	jobs := make([]Job, 0)
	err := s.db.WithContext(ctx).
		Where("user_id = ?", ownerID).
		Order("date_applied DESC").
		Order("id DESC").
		Find(&jobs).Error
	return jobs, err
}

func (s *JobStore) FindForOwner(ctx context.Context, ownerID, id uint) (*Job, error) {
	return findForOwner(s.db.WithContext(ctx), ownerID, id)
}

// Replace overwrites every mutable column of job (matched by ID and UserID)
// and reloads it.
func (s *JobStore) Replace(ctx context.Context, job *Job) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := findForOwner(tx, job.UserID, job.ID)
		if err != nil {
			return err
		}

		job.UpdatedAt = time.Now()
		if err := tx.Model(current).Select(mutableJobColumns).Updates(job).Error; err != nil {
			return err
		}

		return tx.Where("id = ?", job.ID).First(job).Error
	})
}

// DeleteForOwner removes the job and returns its state before deletion.
func (s *JobStore) DeleteForOwner(ctx context.Context, ownerID, id uint) (*Job, error) {
	var removed *Job
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := findForOwner(tx, ownerID, id)
		if err != nil {
			return err
		}
		if err := tx.Delete(&Job{}, current.ID).Error; err != nil {
			return err
		}
		removed = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// SetResumeObjectKey points the job at a new attachment and returns the key
// it replaced, if any.
func (s *JobStore) SetResumeObjectKey(ctx context.Context, ownerID, id uint, key *string) (*string, error) {
	var previous *string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := findForOwner(tx, ownerID, id)
		if err != nil {
			return err
		}
		previous = current.ResumeObjectKey
		return tx.Model(current).Update("resume_object_key", key).Error
	})
	if err != nil {
		return nil, err
	}
	return previous, nil
}

func findForOwner(db *gorm.DB, ownerID, id uint) (*Job, error) {
	var job Job
	if err := db.Where("id = ? AND user_id = ?", id, ownerID).First(&job).Error; err != nil {
		return nil, err
	}
	return &job, nil
}
