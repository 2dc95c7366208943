package domain

import "strings"

// JobPosting is the canonical extracted record for a single job advertisement
type JobPosting struct {
	CompanyName   string       `json:"company_name"`
	PositionTitle string       `json:"position_title"`
	Description   string       `json:"description"`
	Location      string       `json:"location,omitempty"`
	WorkModel     WorkModel    `json:"work_model,omitempty"`
	Salary        *SalaryRange `json:"salary,omitempty"`
	Skills        []string     `json:"skills"`
	Metadata      *Metadata    `json:"metadata,omitempty"`
	SourceURL     string       `json:"source_url,omitempty"`
	Provider      string       `json:"provider,omitempty"`
}

type WorkModel string

const (
	WorkModelRemote WorkModel = "remote"
	WorkModelHybrid WorkModel = "hybrid"
	WorkModelOnSite WorkModel = "on_site"
)

// NormalizeWorkModel maps free-form provider output onto the WorkModel enum.
// Unrecognized non-empty values fall back to remote.
func NormalizeWorkModel(s string) WorkModel {
	switch strings.ToLower(strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(s, "-", "_"), " ", "_"))) {
	case "":
		return ""
	case "remote", "fully_remote", "work_from_home", "wfh":
		return WorkModelRemote
	case "hybrid", "flexible", "partially_remote":
		return WorkModelHybrid
	case "on_site", "onsite", "in_office", "office", "in_person":
		return WorkModelOnSite
	default:
		return WorkModelRemote
	}
}

// SalaryRange is attached only when at least one bound was extracted
type SalaryRange struct {
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
	Currency string   `json:"currency"`
	Period   string   `json:"period"`
}

const (
	DefaultSalaryCurrency = "USD"
	DefaultSalaryPeriod   = "yearly"
)

type Metadata struct {
	PostedAt       *string `json:"posted_at,omitempty"`
	Deadline       *string `json:"deadline,omitempty"`
	EmploymentType string  `json:"employment_type,omitempty"`
	SeniorityLevel *string `json:"seniority_level,omitempty"`
}

const DefaultEmploymentType = "full_time"

// MissingFields returns the names of required fields that are blank.
// Company name, position title and description must all be present for a
// record to be usable downstream.
func (j *JobPosting) MissingFields() []string {
	var missing []string
	if strings.TrimSpace(j.CompanyName) == "" {
		missing = append(missing, "company_name")
	}
	if strings.TrimSpace(j.PositionTitle) == "" {
		missing = append(missing, "position_title")
	}
	if strings.TrimSpace(j.Description) == "" {
		missing = append(missing, "description")
	}
	return missing
}
