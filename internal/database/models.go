package database

import (
	"time"

	"gorm.io/datatypes"
)

// User is an account. ResetToken holds the SHA-256 digest of an outstanding
// reset token and is always paired with ResetTokenExpires.
type User struct {
	ID                uint    `gorm:"primaryKey"`
	Username          string  `gorm:"uniqueIndex;size:64;not null"`
	Email             string  `gorm:"uniqueIndex;size:255;not null"`
	PasswordHash      string  `gorm:"size:255;not null"`
	ResetToken        *string `gorm:"size:64;index"`
	ResetTokenExpires *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
	Jobs              []Job `gorm:"constraint:OnDelete:CASCADE"`
}

// Job 表示用户记录的一条求职申请。
type Job struct {
	ID                uint           `gorm:"primaryKey"`
	UserID            uint           `gorm:"index;not null"`
	CompanyName       string         `gorm:"size:100;not null"`
	JobTitle          string         `gorm:"size:100;not null"`
	JobLocation       *string        `gorm:"size:100"`
	DateApplied       datatypes.Date `gorm:"index;not null"`
	SalaryRange       *string        `gorm:"size:50"`
	ApplicationStatus string         `gorm:"size:32;not null"`
	JobDescriptionURL *string        `gorm:"size:2048"`
	ResumeVersion     *string        `gorm:"size:50"`
	CoverLetterSent   bool           `gorm:"not null;default:false"`
	Notes             *string        `gorm:"size:1000"`
	InterviewDate     *datatypes.Date
	OfferDate         *datatypes.Date
	ResponseDeadline  *datatypes.Date
	RejectionDate     *datatypes.Date
	ResumeObjectKey   *string `gorm:"size:255"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// mutableJobColumns lists what an update may replace; id, user_id and
// created_at never change after insert.
var mutableJobColumns = []string{
	"company_name",
	"job_title",
	"job_location",
	"date_applied",
	"salary_range",
	"application_status",
	"job_description_url",
	"resume_version",
	"cover_letter_sent",
	"notes",
	"interview_date",
	"offer_date",
	"response_deadline",
	"rejection_date",
	"updated_at",
}
