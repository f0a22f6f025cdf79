package jobs

import (
	"strings"
	"time"

	"gorm.io/datatypes"

	"trackApply/internal/database"
	"trackApply/internal/validation"
)

// Statuses is the closed set of application states. Any value may follow any
// other; there is no transition graph.
var Statuses = []string{"Wishlist", "Applied", "Shortlisted", "Interviewing", "Offer", "Rejected"}

// Fields is the client-writable part of a job record. Create and Update both
// take the full set; Update replaces every field.
type Fields struct {
	CompanyName       string  `json:"company_name" validate:"required,max=100"`
	JobTitle          string  `json:"job_title" validate:"required,max=100"`
	JobLocation       *string `json:"job_location" validate:"omitempty,max=100"`
	DateApplied       string  `json:"date_applied" validate:"required,isodate"`
	SalaryRange       *string `json:"salary_range" validate:"omitempty,max=50"`
	ApplicationStatus string  `json:"application_status" validate:"required,oneof=Wishlist Applied Shortlisted Interviewing Offer Rejected"`
	JobDescriptionURL *string `json:"job_description_url" validate:"omitempty,max=2048,http_url"`
	ResumeVersion     *string `json:"resume_version" validate:"omitempty,max=50"`
	CoverLetterSent   bool    `json:"cover_letter_sent"`
	Notes             *string `json:"notes" validate:"omitempty,max=1000"`
	InterviewDate     *string `json:"interview_date" validate:"omitempty,isodate"`
	OfferDate         *string `json:"offer_date" validate:"omitempty,isodate"`
	ResponseDeadline  *string `json:"response_deadline" validate:"omitempty,isodate"`
	RejectionDate     *string `json:"rejection_date" validate:"omitempty,isodate"`
}

// normalize trims the required strings and turns blank optional values into
// nil. Non-blank optional values are kept exactly as sent.
func (f Fields) normalize() Fields {
	f.CompanyName = strings.TrimSpace(f.CompanyName)
	f.JobTitle = strings.TrimSpace(f.JobTitle)
	f.DateApplied = strings.TrimSpace(f.DateApplied)
	f.ApplicationStatus = strings.TrimSpace(f.ApplicationStatus)
	for _, p := range []**string{
		&f.JobLocation, &f.SalaryRange, &f.JobDescriptionURL, &f.ResumeVersion,
		&f.Notes, &f.InterviewDate, &f.OfferDate, &f.ResponseDeadline, &f.RejectionDate,
	} {
		*p = optional(*p)
	}
	return f
}

// Validate normalizes f and reports every violated rule.
func (f Fields) Validate() (Fields, error) {
	f = f.normalize()
	if err := validation.Struct(f); err != nil {
		return f, err
	}
	return f, nil
}

func optional(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}

// apply copies validated fields onto the row.
func (f Fields) apply(job *database.Job) {
	job.CompanyName = f.CompanyName
	job.JobTitle = f.JobTitle
	job.JobLocation = f.JobLocation
	job.DateApplied = mustDate(f.DateApplied)
	job.SalaryRange = f.SalaryRange
	job.ApplicationStatus = f.ApplicationStatus
	job.JobDescriptionURL = f.JobDescriptionURL
	job.ResumeVersion = f.ResumeVersion
	job.CoverLetterSent = f.CoverLetterSent
	job.Notes = f.Notes
	job.InterviewDate = optionalDate(f.InterviewDate)
	job.OfferDate = optionalDate(f.OfferDate)
	job.ResponseDeadline = optionalDate(f.ResponseDeadline)
	job.RejectionDate = optionalDate(f.RejectionDate)
}

func fieldsFromRow(job *database.Job) Fields {
	return Fields{
		CompanyName:       job.CompanyName,
		JobTitle:          job.JobTitle,
		JobLocation:       job.JobLocation,
		DateApplied:       formatDate(job.DateApplied),
		SalaryRange:       job.SalaryRange,
		ApplicationStatus: job.ApplicationStatus,
		JobDescriptionURL: job.JobDescriptionURL,
		ResumeVersion:     job.ResumeVersion,
		CoverLetterSent:   job.CoverLetterSent,
		Notes:             job.Notes,
		InterviewDate:     formatOptionalDate(job.InterviewDate),
		OfferDate:         formatOptionalDate(job.OfferDate),
		ResponseDeadline:  formatOptionalDate(job.ResponseDeadline),
		RejectionDate:     formatOptionalDate(job.RejectionDate),
	}
}

// mustDate is only called after isodate validation passed.
func mustDate(s string) datatypes.Date {
	t, _ := time.Parse(validation.DateLayout, s)
	return datatypes.Date(t)
}

func optionalDate(s *string) *datatypes.Date {
	if s == nil {
		return nil
	}
	d := mustDate(*s)
	return &d
}

func formatDate(d datatypes.Date) string {
	return time.Time(d).Format(validation.DateLayout)
}

func formatOptionalDate(d *datatypes.Date) *string {
	if d == nil {
		return nil
	}
	s := formatDate(*d)
	return &s
}
