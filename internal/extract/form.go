package extract

import (
	"regexp"
	"strings"

	"resume-builder/internal/documents"
)

type section int

const (
	sectionHeader section = iota
	sectionSummary
	sectionExperience
	sectionEducation
	sectionSkills
	sectionOther
)

var headings = map[string]section{
	"summary":                 sectionSummary,
	"profile":                 sectionSummary,
	"about":                   sectionSummary,
	"about me":                sectionSummary,
	"experience":              sectionExperience,
	"work experience":         sectionExperience,
	"professional experience": sectionExperience,
	"employment":              sectionExperience,
	"employment history":      sectionExperience,
	"education":               sectionEducation,
	"skills":                  sectionSkills,
	"technical skills":        sectionSkills,
	"core skills":             sectionSkills,
	"projects":                sectionOther,
	"certifications":          sectionOther,
	"interests":               sectionOther,
}

var (
	emailRe = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phoneRe = regexp.MustCompile(`\+?\d[\d\s().\-]{7,}\d`)
	monthRe = `(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+`
	rangeRe = regexp.MustCompile(`(?i)((?:` + monthRe + `)?\d{4})\s*(?:-|–|to)\s*((?:` + monthRe + `)?\d{4}|present|current|now)`)
	splitRe = regexp.MustCompile(`\s+(?:\||—|–|-|@|at)\s+|,\s+`)
)

// ParseForm derives a structured form from extracted resume text by
// recognising section headings. Unrecognised content is dropped.
func ParseForm(text string) documents.Form {
	var form documents.Form
	var summary []string
	var header []string
	current := sectionHeader

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if sec, ok := headingOf(line); ok {
			current = sec
			continue
		}

		switch current {
		case sectionHeader:
			header = append(header, line)
		case sectionSummary:
			summary = append(summary, line)
		case sectionExperience:
			if bullet, ok := bulletText(line); ok {
				if n := len(form.Experience); n > 0 {
					form.Experience[n-1].Bullets = append(form.Experience[n-1].Bullets, bullet)
				}
				continue
			}
			form.Experience = append(form.Experience, experienceFrom(line))
		case sectionEducation:
			if _, ok := bulletText(line); ok {
				continue
			}
			form.Education = append(form.Education, educationFrom(line))
		case sectionSkills:
			form.Skills = append(form.Skills, skillsFrom(line)...)
		}
	}

	applyHeader(&form, header)
	form.Profile.Summary = strings.Join(summary, " ")
	return form
}

func headingOf(line string) (section, bool) {
	key := strings.ToLower(strings.TrimRight(line, ":"))
	key = strings.Join(strings.Fields(key), " ")
	sec, ok := headings[key]
	return sec, ok
}

func bulletText(line string) (string, bool) {
	for _, prefix := range []string{"•", "-", "*", "–", "·"} {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, prefix)), true
		}
	}
	return "", false
}

func applyHeader(form *documents.Form, header []string) {
	for _, line := range header {
		if email := emailRe.FindString(line); email != "" && form.Profile.Email == "" {
			form.Profile.Email = email
			line = strings.TrimSpace(strings.Replace(line, email, "", 1))
		}
		if phone := phoneRe.FindString(line); phone != "" && form.Profile.Phone == "" {
			form.Profile.Phone = strings.TrimSpace(phone)
			line = strings.TrimSpace(strings.Replace(line, phone, "", 1))
		}
		line = strings.Trim(line, " |,·•")
		if line == "" {
			continue
		}
		switch {
		case form.Profile.FullName == "":
			form.Profile.FullName = line
		case form.Title == "":
			form.Title = line
		case form.Profile.Location == "":
			form.Profile.Location = line
		}
	}
}

func experienceFrom(line string) documents.ExperienceEntry {
	var entry documents.ExperienceEntry
	if m := rangeRe.FindStringSubmatchIndex(line); m != nil {
		entry.StartDate = line[m[2]:m[3]]
		entry.EndDate = line[m[4]:m[5]]
		line = strings.TrimSpace(line[:m[0]] + line[m[1]:])
	}
	line = strings.Trim(line, " |,()")
	parts := splitRe.Split(line, 2)
	entry.Company = strings.TrimSpace(parts[0])
	if len(parts) > 1 {
		entry.Role = strings.TrimSpace(parts[1])
	}
	return entry
}

func educationFrom(line string) documents.EducationEntry {
	var entry documents.EducationEntry
	if m := rangeRe.FindStringSubmatchIndex(line); m != nil {
		entry.StartDate = line[m[2]:m[3]]
		entry.EndDate = line[m[4]:m[5]]
		line = strings.TrimSpace(line[:m[0]] + line[m[1]:])
	}
	line = strings.Trim(line, " |,()")
	parts := splitRe.Split(line, 2)
	entry.Institution = strings.TrimSpace(parts[0])
	if len(parts) > 1 {
		entry.Degree = strings.TrimSpace(parts[1])
	}
	return entry
}

func skillsFrom(line string) []string {
	if text, ok := bulletText(line); ok {
		line = text
	}
	if i := strings.Index(line, ":"); i >= 0 && i < len(line)-1 {
		line = line[i+1:]
	}
	fields := strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || r == ';' || r == '|' || r == '•' || r == '·'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
