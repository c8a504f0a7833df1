package reconcile

import (
	"math"
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"time"

	"internship-portal/internal/models"
)

// RawRow is one spreadsheet row keyed by its header cell.
type RawRow map[string]string

// get returns the cleaned value of the first header alias present in the row.
// Header matching ignores case, spaces, underscores and dots.
func (r RawRow) get(aliases ...string) string {
	for _, alias := range aliases {
		want := headerKey(alias)
		for key, value := range r {
			if headerKey(key) == want {
				return CleanCell(value)
			}
		}
	}
	return ""
}

func headerKey(h string) string {
	return strings.NewReplacer(" ", "", "_", "", ".", "", "-", "").Replace(strings.ToLower(strings.TrimSpace(h)))
}

var placeholders = map[string]bool{"": true, "--": true, "null": true}

// CleanCell trims a cell, strips spreadsheet formula quoting and maps
// placeholder values ("--", "NULL") to empty.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, `="`) && strings.HasSuffix(s, `"`) && len(s) >= 3 {
		s = s[2 : len(s)-1]
	}
	s = strings.TrimSpace(strings.Trim(s, `"`))
	if placeholders[strings.ToLower(s)] {
		return ""
	}
	return s
}

var (
	numericCell = regexp.MustCompile(`^\d+(\.\d+)?$`)

	// spreadsheet day 0; includes the 1900 leap-year bug offset
	serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

	// day-first layouts are tried before ISO fallbacks
	dateLayouts = []string{
		"2006-01-02",
		"02-01-2006", "2-1-2006",
		"02/01/2006", "2/1/2006",
		"02.01.2006", "2.1.2006",
		"2006/01/02",
		"02-Jan-2006", "2-Jan-2006", "02 Jan 2006", "2 Jan 2006",
		"2 January 2006", "January 2, 2006", "Jan 2, 2006",
		time.RFC3339,
		"2006-01-02 15:04:05",
	}
)

// maxSerial is the serial of 9999-12-31, the last date spreadsheets represent.
const maxSerial = 2958465

// ParseDate accepts a spreadsheet date serial or a formatted date string.
// Unparseable input yields nil rather than an error.
func ParseDate(raw string) *time.Time {
	s := CleanCell(raw)
	if s == "" {
		return nil
	}
	if numericCell.MatchString(s) {
		serial, err := strconv.ParseFloat(s, 64)
		if err != nil || serial < 1 || serial > maxSerial {
			return nil
		}
		t := serialEpoch.AddDate(0, 0, int(math.Floor(serial)))
		return &t
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &d
		}
	}
	return nil
}

// FormatDate renders a date as YYYY-MM-DD, or "" for nil.
func FormatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

// RegistrationRow is a cleaned, typed registration input line.
type RegistrationRow struct {
	Line        int
	Email       string
	RollNumber  string
	Name        string
	Phone       string
	Gender      string
	DateOfBirth *time.Time
	Mapping     models.BranchMapping
}

// ParseRegistrationRow types a raw row. Problems are returned, not raised,
// so the caller can report the row and move on.
func ParseRegistrationRow(line int, raw RawRow) (RegistrationRow, []string) {
	row := RegistrationRow{
		Line:        line,
		Email:       strings.ToLower(raw.get("email", "email id", "email address", "mail")),
		RollNumber:  strings.ToUpper(raw.get("roll number", "roll no", "rollno", "roll", "enrollment number")),
		Name:        raw.get("name", "student name", "full name"),
		Phone:       raw.get("phone", "mobile", "mobile number", "contact"),
		Gender:      raw.get("gender", "sex"),
		DateOfBirth: ParseDate(raw.get("dob", "date of birth", "birth date")),
		Mapping: models.BranchMapping{
			ExternalBranchID:  raw.get("branch id", "branch code", "external branch id"),
			ExternalCollegeID: raw.get("college id", "college code", "external college id"),
		},
	}

	var problems []string
	if row.Email == "" {
		problems = append(problems, "email is required")
	} else if _, err := mail.ParseAddress(row.Email); err != nil {
		problems = append(problems, "email is invalid")
	}
	if row.RollNumber == "" {
		problems = append(problems, "roll number is required")
	}
	if row.Name == "" {
		problems = append(problems, "name is required")
	}
	if year := raw.get("year", "batch", "passing year"); year != "" {
		y, err := strconv.Atoi(year)
		if err != nil {
			problems = append(problems, "year is not a number")
		}
		row.Mapping.Year = y
	}
	return row, problems
}

// DomainRow is a cleaned, typed domain-registration input line.
type DomainRow struct {
	Line           int
	Email          string
	BranchName     string
	DomainNames    []string
	Participating  bool
	ExpectedSalary *float64
}

func ParseDomainRow(line int, raw RawRow) (DomainRow, []string) {
	row := DomainRow{
		Line:           line,
		Email:          strings.ToLower(raw.get("email", "email id", "email address", "mail")),
		BranchName:     raw.get("branch", "branch name", "department"),
		DomainNames:    SplitDomainList(raw.get("domains", "domain", "preferred domains", "interested domains")),
		Participating:  parseParticipating(raw.get("participating", "participation", "interested", "opted in")),
		ExpectedSalary: parseAmount(raw.get("expected salary", "expected ctc", "salary expectation")),
	}

	var problems []string
	if row.Email == "" {
		problems = append(problems, "email is required")
	}
	if len(row.DomainNames) == 0 {
		problems = append(problems, "no domains listed")
	}
	return row, problems
}

// SplitDomainList splits a newline-delimited cell, dropping bullets, blanks
// and repeated names.
func SplitDomainList(cell string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, line := range strings.Split(strings.ReplaceAll(cell, "\r\n", "\n"), "\n") {
		name := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "•*·"))
		if name == "" {
			continue
		}
		key := NormalizeName(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		names = append(names, name)
	}
	return names
}

// parseParticipating treats an empty cell as opting in.
func parseParticipating(s string) bool {
	switch strings.ToLower(s) {
	case "no", "n", "false", "0", "not interested":
		return false
	default:
		return true
	}
}

// amountPattern accepts one number with optional currency prefix, thousands
// separators and unit word. Ranges and lists do not match.
var amountPattern = regexp.MustCompile(`(?i)^(?:₹|rs\.?|inr)?\s*(\d+(?:,\d+)*(?:\.\d+)?)\s*(?:lpa|lakhs?|per annum)?$`)

func parseAmount(s string) *float64 {
	m := amountPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return nil
	}
	return &v
}
