package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// --- Recruitment Status Enum ---
type RecruitmentStatus string

const (
	RecruitmentOpen   RecruitmentStatus = "OPEN"
	RecruitmentClosed RecruitmentStatus = "CLOSED"
	RecruitmentPaused RecruitmentStatus = "PAUSED"
)

// Scan implements the sql.Scanner interface for RecruitmentStatus
func (rs *RecruitmentStatus) Scan(value interface{}) error {
	strVal, err := scanString(value, "RecruitmentStatus")
	if err != nil {
		return err
	}
	v := RecruitmentStatus(strVal)
	if !v.Valid() {
		return fmt.Errorf("invalid RecruitmentStatus value: %s", strVal)
	}
	*rs = v
	return nil
}

// Value implements the driver.Valuer interface for RecruitmentStatus
func (rs RecruitmentStatus) Value() (driver.Value, error) {
	return string(rs), nil
}

func (rs RecruitmentStatus) Valid() bool {
	switch rs {
	case RecruitmentOpen, RecruitmentClosed, RecruitmentPaused:
		return true
	default:
		return false
	}
}

// --- Role Enum ---
type Role string

const (
	RoleStudent Role = "student"
	RoleTPO     Role = "tpo"
	RoleAdmin   Role = "admin"
)

// Scan implements the sql.Scanner interface for Role
func (r *Role) Scan(value interface{}) error {
	strVal, err := scanString(value, "Role")
	if err != nil {
		return err
	}
	switch v := Role(strVal); v {
	case RoleStudent, RoleTPO, RoleAdmin:
		*r = v
		return nil
	default:
		return fmt.Errorf("invalid Role value: %s", strVal)
	}
}

// Value implements the driver.Valuer interface for Role
func (r Role) Value() (driver.Value, error) {
	return string(r), nil
}

func scanString(value interface{}, typeName string) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", fmt.Errorf("failed to scan %s: value is not string or []byte", typeName)
	}
}

// User is the authentication identity paired with a student profile.
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         Role      `json:"role" db:"role"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// BranchMapping ties an externally sourced branch identifier to a canonical Branch.
type BranchMapping struct {
	ExternalBranchID  string `json:"external_branch_id" db:"external_branch_id"`
	ExternalCollegeID string `json:"external_college_id" db:"external_college_id"`
	Year              int    `json:"year" db:"year"`
}

type Branch struct {
	ID               uuid.UUID       `json:"id" db:"id"`
	Name             string          `json:"name" db:"name"`
	Code             string          `json:"code" db:"code"`
	ExternalMappings []BranchMapping `json:"external_mappings"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
}

// Domain is a hiring track. Name is the join key for bulk reconciliation.
type Domain struct {
	ID        uuid.UUID   `json:"id" db:"id"`
	Name      string      `json:"name" db:"name"`
	Active    bool        `json:"active" db:"active"`
	BranchIDs []uuid.UUID `json:"branch_ids"` // empty means every branch
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
}

// AppliesTo reports whether the domain is offered to students of the branch.
func (d *Domain) AppliesTo(branchID uuid.UUID) bool {
	if len(d.BranchIDs) == 0 {
		return true
	}
	for _, id := range d.BranchIDs {
		if id == branchID {
			return true
		}
	}
	return false
}

// Company holds hiring capacity. 0 <= FilledSeats <= TotalSeats always.
type Company struct {
	ID                uuid.UUID         `json:"id" db:"id"`
	Name              string            `json:"name" db:"name"`
	TotalSeats        int               `json:"total_seats" db:"total_seats"`
	FilledSeats       int               `json:"filled_seats" db:"filled_seats"`
	RecruitmentStatus RecruitmentStatus `json:"recruitment_status" db:"recruitment_status"`
	DomainTags        []uuid.UUID       `json:"domain_tags"`
	AllowedBranches   []uuid.UUID       `json:"allowed_branches"`
	CreatedAt         time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at" db:"updated_at"`
}

func (c *Company) IsOpen() bool { return c.RecruitmentStatus == RecruitmentOpen }

func (c *Company) HasFreeSeat() bool { return c.FilledSeats < c.TotalSeats }

func (c *Company) HasDomain(domainID uuid.UUID) bool {
	for _, id := range c.DomainTags {
		if id == domainID {
			return true
		}
	}
	return false
}

// Student is a student profile with its embedded application.
type Student struct {
	ID               uuid.UUID   `json:"id" db:"id"`
	UserID           uuid.UUID   `json:"user_id" db:"user_id"`
	Name             string      `json:"name" db:"name"`
	Email            string      `json:"email" db:"email"`
	RollNumber       string      `json:"roll_number" db:"roll_number"`
	Phone            string      `json:"phone,omitempty" db:"phone"`
	Gender           string      `json:"gender,omitempty" db:"gender"`
	DateOfBirth      *time.Time  `json:"date_of_birth,omitempty" db:"date_of_birth"`
	BranchID         *uuid.UUID  `json:"branch_id,omitempty" db:"branch_id"`
	Year             int         `json:"year,omitempty" db:"year"`
	Participating    bool        `json:"participating" db:"participating"`
	ExpectedSalary   *float64    `json:"expected_salary,omitempty" db:"expected_salary"`
	PreferredDomains []uuid.UUID `json:"preferred_domains"`
	Application
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// NewStudent returns a student with a NOT_APPLIED application.
func NewStudent() *Student {
	return &Student{ID: uuid.New(), Application: NewApplication()}
}

func (s *Student) PrefersDomain(domainID uuid.UUID) bool {
	for _, id := range s.PreferredDomains {
		if id == domainID {
			return true
		}
	}
	return false
}

// ResetApplication restores application defaults. A full reset also clears preferred domains.
func (s *Student) ResetApplication(full bool) {
	s.Application = NewApplication()
	if full {
		s.PreferredDomains = nil
	}
}

// Settings is the single feature-flag record.
type Settings struct {
	ChoiceSubmissionOpen  bool      `json:"choice_submission_open" db:"choice_submission_open"`
	PreferenceEditingOpen bool      `json:"preference_editing_open" db:"preference_editing_open"`
	UpdatedAt             time.Time `json:"updated_at" db:"updated_at"`
}

// DefaultSettings mirrors the row seeded by the initial migration.
func DefaultSettings() Settings {
	return Settings{ChoiceSubmissionOpen: true, PreferenceEditingOpen: true}
}
