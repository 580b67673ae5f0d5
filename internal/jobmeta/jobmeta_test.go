package jobmeta

import (
	"strings"
	"testing"
)

func TestInfer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		text    string
		title   string
		company string
	}{
		{
			name:    "empty text uses defaults",
			text:    "",
			title:   DefaultJobTitle,
			company: DefaultCompanyName,
		},
		{
			name:    "blank lines use defaults",
			text:    "\n   \n\t\n",
			title:   DefaultJobTitle,
			company: DefaultCompanyName,
		},
		{
			name:    "heading and bold company",
			text:    "# Senior Go Engineer\n**Acme Corp**\n\n## Overview\nBuild things.",
			title:   "Senior Go Engineer",
			company: "Acme Corp",
		},
		{
			name:    "leading blank lines are skipped",
			text:    "\n\n## Data Engineer\nCome work with us.",
			title:   "Data Engineer",
			company: DefaultCompanyName,
		},
		{
			name:    "company trigger takes up to three words",
			text:    "Backend Developer\nJoin Globex International Holdings Group today.",
			title:   "Backend Developer",
			company: "Globex International Holdings",
		},
		{
			name:    "company label trims punctuation",
			text:    "QA Engineer\nCompany: Initech.",
			title:   "QA Engineer",
			company: "Initech",
		},
		{
			name:    "bold span wins over trigger on the same line",
			text:    "Platform Engineer\nWork at Initech with **Hooli**",
			title:   "Platform Engineer",
			company: "Hooli",
		},
		{
			name:    "section header bold is ignored",
			text:    "ML Engineer\n**Job Description**\nWork at Umbrella.",
			title:   "ML Engineer",
			company: "Umbrella",
		},
		{
			name:    "bold outside first five lines is ignored",
			text:    "Title\n2\n3\n4\n5\n**Late Corp**",
			title:   "Title",
			company: DefaultCompanyName,
		},
		{
			name:    "overlong first line is not a title",
			text:    strings.Repeat("a", 120) + "\nShort Title",
			title:   "Short Title",
			company: DefaultCompanyName,
		},
		{
			name:    "trigger beyond fifteen lines is ignored",
			text:    "Title" + strings.Repeat("\nfiller", 15) + "\nJoin Contoso",
			title:   "Title",
			company: DefaultCompanyName,
		},
		{
			name:    "c sharp heading keeps its hash",
			text:    "## C# Developer",
			title:   "C# Developer",
			company: DefaultCompanyName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			meta := Infer(tt.text)
			if meta.JobTitle != tt.title {
				t.Fatalf("expected title %q, got %q", tt.title, meta.JobTitle)
			}
			if meta.CompanyName != tt.company {
				t.Fatalf("expected company %q, got %q", tt.company, meta.CompanyName)
			}
		})
	}
}
