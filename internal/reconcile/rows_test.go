package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanCell(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  Asha  ", "Asha"},
		{"--", ""},
		{"NULL", ""},
		{"null", ""},
		{"", ""},
		{`="00123"`, "00123"},
		{`"quoted"`, "quoted"},
		{"-", "-"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanCell(tt.in))
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"spreadsheet serial", "45000", "2023-03-15"},
		{"serial with fraction", "45000.75", "2023-03-15"},
		{"serial day one", "1", "1899-12-31"},
		{"iso", "2002-07-09", "2002-07-09"},
		{"day first dashes", "09-07-2002", "2002-07-09"},
		{"day first slashes", "9/7/2002", "2002-07-09"},
		{"day first dots", "09.07.2002", "2002-07-09"},
		{"month name", "9 Jul 2002", "2002-07-09"},
		{"unparseable", "sometime in 2002", ""},
		{"placeholder", "--", ""},
		{"empty", "", ""},
		{"serial out of range", "99999999", ""},
		{"zero serial", "0", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseDate(tt.in)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, FormatDate(got))
		})
	}
}

func TestParseRegistrationRow(t *testing.T) {
	row, problems := ParseRegistrationRow(3, RawRow{
		"Email ID":     " Asha@Example.edu ",
		"Roll No":      "21cs001",
		"Student Name": "Asha K",
		"DOB":          "45000",
		"Branch_ID":    "CS",
		"College ID":   "C1",
		"Year":         "2025",
		"Phone":        "NULL",
	})
	require.Empty(t, problems)
	assert.Equal(t, 3, row.Line)
	assert.Equal(t, "asha@example.edu", row.Email)
	assert.Equal(t, "21CS001", row.RollNumber)
	assert.Equal(t, "Asha K", row.Name)
	assert.Equal(t, "", row.Phone)
	assert.Equal(t, "2023-03-15", FormatDate(row.DateOfBirth))
	assert.Equal(t, "CS", row.Mapping.ExternalBranchID)
	assert.Equal(t, "C1", row.Mapping.ExternalCollegeID)
	assert.Equal(t, 2025, row.Mapping.Year)

	_, problems = ParseRegistrationRow(4, RawRow{"email": "not-an-email", "year": "final"})
	assert.ElementsMatch(t, []string{
		"email is invalid", "roll number is required", "name is required", "year is not a number",
	}, problems)
}

func TestParseDomainRow(t *testing.T) {
	row, problems := ParseDomainRow(1, RawRow{
		"Email":           "asha@example.edu",
		"Branch":          "Computer Science",
		"Domains":         "Backend\r\n• Data Science (AI/ML)\n\nbackend\n",
		"Participating":   "No",
		"Expected Salary": "₹ 6,50,000",
	})
	require.Empty(t, problems)
	assert.Equal(t, []string{"Backend", "Data Science (AI/ML)"}, row.DomainNames)
	assert.False(t, row.Participating)
	require.NotNil(t, row.ExpectedSalary)
	assert.InDelta(t, 650000, *row.ExpectedSalary, 0.001)

	row, problems = ParseDomainRow(2, RawRow{"email": "", "domains": "--"})
	assert.ElementsMatch(t, []string{"email is required", "no domains listed"}, problems)
	assert.True(t, row.Participating, "blank participation opts in")
	assert.Nil(t, row.ExpectedSalary)

	salaries := []struct {
		name string
		cell string
		want *float64
	}{
		{name: "plain", cell: "600000", want: ptr(600000)},
		{name: "indian grouping", cell: "6,00,000", want: ptr(600000)},
		{name: "unit word", cell: "4.5 LPA", want: ptr(4.5)},
		{name: "range", cell: "3-4 LPA"},
		{name: "spaced range", cell: "1.5 - 2 lakh"},
		{name: "two numbers", cell: "5 or 6"},
		{name: "free text", cell: "negotiable"},
	}
	for _, tt := range salaries {
		t.Run(tt.name, func(t *testing.T) {
			row, _ := ParseDomainRow(3, RawRow{"email": "a@b.co", "domains": "Backend", "expected salary": tt.cell})
			if tt.want == nil {
				assert.Nil(t, row.ExpectedSalary)
				return
			}
			require.NotNil(t, row.ExpectedSalary)
			assert.InDelta(t, *tt.want, *row.ExpectedSalary, 0.001)
		})
	}
}

func ptr(v float64) *float64 { return &v }
