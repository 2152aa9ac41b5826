package extract

import (
	"reflect"
	"testing"
)

const sampleResume = `Ada Lovelace
Backend Engineer
ada@example.com | +44 20 7946 0958 | London

Summary
Engineer who likes distributed systems.

Work Experience
Acme Corp - Senior Engineer Jan 2021 - Present
• Built the billing pipeline
• Cut p99 latency by 40%
Initech | Engineer 2018 - 2020
- Maintained TPS reports

Education
University of London, BSc Computer Science 2014 - 2017

Skills
Go, PostgreSQL; Kubernetes | go
`

func TestParseForm(t *testing.T) {
	form := ParseForm(sampleResume)

	if form.Profile.FullName != "Ada Lovelace" || form.Title != "Backend Engineer" {
		t.Fatalf("unexpected header: %+v title=%q", form.Profile, form.Title)
	}
	if form.Profile.Email != "ada@example.com" || form.Profile.Phone != "+44 20 7946 0958" {
		t.Fatalf("unexpected contact: %+v", form.Profile)
	}
	if form.Profile.Location != "London" {
		t.Fatalf("unexpected location %q", form.Profile.Location)
	}
	if form.Profile.Summary != "Engineer who likes distributed systems." {
		t.Fatalf("unexpected summary %q", form.Profile.Summary)
	}

	if len(form.Experience) != 2 {
		t.Fatalf("expected 2 experience entries, got %+v", form.Experience)
	}
	acme := form.Experience[0]
	if acme.Company != "Acme Corp" || acme.Role != "Senior Engineer" || acme.StartDate != "Jan 2021" || acme.EndDate != "Present" {
		t.Fatalf("unexpected first entry %+v", acme)
	}
	if !reflect.DeepEqual(acme.Bullets, []string{"Built the billing pipeline", "Cut p99 latency by 40%"}) {
		t.Fatalf("unexpected bullets %v", acme.Bullets)
	}
	if form.Experience[1].Company != "Initech" || form.Experience[1].Role != "Engineer" {
		t.Fatalf("unexpected second entry %+v", form.Experience[1])
	}

	if len(form.Education) != 1 || form.Education[0].Institution != "University of London" || form.Education[0].Degree != "BSc Computer Science" {
		t.Fatalf("unexpected education %+v", form.Education)
	}
	if !reflect.DeepEqual(form.Skills, []string{"Go", "PostgreSQL", "Kubernetes", "go"}) {
		t.Fatalf("unexpected skills %v", form.Skills)
	}
}

func TestParseFormWithoutHeadings(t *testing.T) {
	form := ParseForm("Grace Hopper\nRear Admiral\n")
	if form.Profile.FullName != "Grace Hopper" || form.Title != "Rear Admiral" {
		t.Fatalf("unexpected form %+v", form)
	}
	if len(form.Experience) != 0 || len(form.Skills) != 0 {
		t.Fatalf("expected no sections, got %+v", form)
	}
}
