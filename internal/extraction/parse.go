package extraction

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/joblens/extractor/internal/core/domain"
	"github.com/joblens/extractor/internal/extraction/classify"
)

// Provider response layouts differ per backend (key casing, envelope
// nesting). Each shapeMatcher attempts one known layout; parseResponse walks
// them in order and falls through to the next on no-match.
type shapeMatcher struct {
	name  string
	match func(map[string]any) (*domain.JobPosting, bool)
}

var responseShapes = []shapeMatcher{
	{name: "snake_case", match: func(m map[string]any) (*domain.JobPosting, bool) { return matchKeys(m, snakeKeys) }},
	{name: "camelCase", match: func(m map[string]any) (*domain.JobPosting, bool) { return matchKeys(m, camelKeys) }},
	{name: "envelope", match: matchEnvelope},
}

// parseResponse turns raw provider output into a canonical record. It fails
// with invalid_response_format when no shape matches and with
// missing_required_fields when a shape matches but a required field is blank.
func parseResponse(raw string) (*domain.JobPosting, error) {
	cleaned := stripCodeFence(raw)
	if cleaned == "" {
		return nil, classify.New(classify.CategoryInvalidResponseFormat, "provider returned an empty response")
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, classify.Wrap(classify.CategoryInvalidResponseFormat,
			fmt.Errorf("failed to decode provider response: %w", err))
	}

	// The key sets share the description key, so an earlier shape can match
	// a payload that really belongs to a later one. An incomplete match
	// therefore keeps falling through; missing fields are only reported
	// once no shape yields a complete record.
	var missing []string
	for _, shape := range responseShapes {
		record, ok := shape.match(payload)
		if !ok {
			continue
		}
		m := record.MissingFields()
		if len(m) == 0 {
			return record, nil
		}
		if missing == nil || len(m) < len(missing) {
			missing = m
		}
	}

	if missing != nil {
		return nil, classify.Newf(classify.CategoryMissingRequiredFields,
			"extracted record is missing: %s", strings.Join(missing, ", "))
	}
	return nil, classify.New(classify.CategoryInvalidResponseFormat,
		"provider response did not match any known shape")
}

// stripCodeFence removes a surrounding markdown code fence and any prose
// around the JSON object. Model output frequently wraps JSON in ```json
// fences despite instructions not to.
func stripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		} else {
			return ""
		}
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	if !strings.HasPrefix(s, "{") {
		start := strings.Index(s, "{")
		end := strings.LastIndex(s, "}")
		if start >= 0 && end > start {
			s = s[start : end+1]
		}
	}
	return s
}

// keySet names the JSON keys of one response layout.
type keySet struct {
	company        string
	title          string
	description    string
	location       string
	workModel      string
	salary         string
	skills         string
	metadata       string
	postedAt       string
	deadline       string
	employmentType string
	seniorityLevel string
}

var snakeKeys = keySet{
	company: "company_name", title: "position_title", description: "description",
	location: "location", workModel: "work_model",
	salary: "salary", skills: "skills", metadata: "metadata",
	postedAt: "posted_at", deadline: "deadline",
	employmentType: "employment_type", seniorityLevel: "seniority_level",
}

var camelKeys = keySet{
	company: "companyName", title: "positionTitle", description: "description",
	location: "location", workModel: "workModel",
	salary: "salary", skills: "skills", metadata: "metadata",
	postedAt: "postedAt", deadline: "deadline",
	employmentType: "employmentType", seniorityLevel: "seniorityLevel",
}

// envelopeKeys are wrapper keys some backends nest the record under.
var envelopeKeys = []string{"job", "job_posting", "jobPosting", "data", "result"}

func matchEnvelope(m map[string]any) (*domain.JobPosting, bool) {
	var best *domain.JobPosting
	for _, key := range envelopeKeys {
		inner, ok := m[key].(map[string]any)
		if !ok {
			continue
		}
		for _, keys := range []keySet{snakeKeys, camelKeys} {
			record, ok := matchKeys(inner, keys)
			if !ok {
				continue
			}
			if len(record.MissingFields()) == 0 {
				return record, true
			}
			if best == nil || len(record.MissingFields()) < len(best.MissingFields()) {
				best = record
			}
		}
	}
	return best, best != nil
}

// matchKeys matches when at least one of the required-field keys is present,
// so a response with a blank title still matches and fails the required-field
// check instead of being misreported as an unknown shape.
func matchKeys(m map[string]any, keys keySet) (*domain.JobPosting, bool) {
	_, hasCompany := m[keys.company]
	_, hasTitle := m[keys.title]
	_, hasDescription := m[keys.description]
	if !hasCompany && !hasTitle && !hasDescription {
		return nil, false
	}

	record := &domain.JobPosting{
		CompanyName:   strings.TrimSpace(stringField(m, keys.company)),
		PositionTitle: strings.TrimSpace(stringField(m, keys.title)),
		Description:   strings.TrimSpace(stringField(m, keys.description)),
		Location:      strings.TrimSpace(stringField(m, keys.location)),
		WorkModel:     domain.NormalizeWorkModel(stringField(m, keys.workModel)),
		Salary:        parseSalary(m[keys.salary]),
		Skills:        stringList(m[keys.skills]),
		Metadata:      parseMetadata(m[keys.metadata], keys),
	}
	return record, true
}

func parseSalary(v any) *domain.SalaryRange {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}

	min := floatField(m, "min")
	max := floatField(m, "max")
	if min == nil && max == nil {
		return nil
	}

	currency := strings.ToUpper(strings.TrimSpace(stringField(m, "currency")))
	if currency == "" {
		currency = domain.DefaultSalaryCurrency
	}
	period := strings.ToLower(strings.TrimSpace(stringField(m, "period")))
	if period == "" {
		period = domain.DefaultSalaryPeriod
	}

	return &domain.SalaryRange{Min: min, Max: max, Currency: currency, Period: period}
}

func parseMetadata(v any, keys keySet) *domain.Metadata {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}

	meta := &domain.Metadata{
		PostedAt:       optStringField(m, keys.postedAt),
		Deadline:       optStringField(m, keys.deadline),
		EmploymentType: normalizeEmploymentType(stringField(m, keys.employmentType)),
		SeniorityLevel: optStringField(m, keys.seniorityLevel),
	}
	return meta
}

func normalizeEmploymentType(s string) string {
	normalized := strings.ToLower(strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(s, "-", "_"), " ", "_")))
	switch normalized {
	case "full_time", "part_time", "contract", "internship":
		return normalized
	case "fulltime", "permanent":
		return "full_time"
	case "parttime":
		return "part_time"
	case "contractor", "freelance", "temporary":
		return "contract"
	case "intern":
		return "internship"
	default:
		return domain.DefaultEmploymentType
	}
}

func stringField(m map[string]any, key string) string {
	if key == "" {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

func optStringField(m map[string]any, key string) *string {
	s := strings.TrimSpace(stringField(m, key))
	if s == "" {
		return nil
	}
	return &s
}

func floatField(m map[string]any, key string) *float64 {
	switch v := m[key].(type) {
	case float64:
		return &v
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil
		}
		return &parsed
	default:
		return nil
	}
}

// stringList accepts an array of strings or a comma-separated string and
// always returns a non-nil slice.
func stringList(v any) []string {
	out := []string{}
	switch list := v.(type) {
	case []any:
		for _, item := range list {
			if s, ok := item.(string); ok {
				if s = strings.TrimSpace(s); s != "" {
					out = append(out, s)
				}
			}
		}
	case string:
		for _, s := range strings.Split(list, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
