package documents

import (
	"sort"
	"strings"
)

// Normalize returns a copy with an ordered transcript and a trimmed, de-duplicated skill list.
func (s Session) Normalize() Session {
	out := s
	out.Form = s.Form.normalize()

	out.Transcript = make([]TranscriptEntry, len(s.Transcript))
	copy(out.Transcript, s.Transcript)
	sort.SliceStable(out.Transcript, func(i, j int) bool {
		return out.Transcript[i].CreatedAt.Before(out.Transcript[j].CreatedAt)
	})
	return out
}

func (f Form) normalize() Form {
	out := f
	out.Title = strings.TrimSpace(f.Title)

	seen := make(map[string]struct{}, len(f.Skills))
	out.Skills = make([]string, 0, len(f.Skills))
	for _, skill := range f.Skills {
		skill = strings.TrimSpace(skill)
		if skill == "" {
			continue
		}
		key := strings.ToLower(skill)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out.Skills = append(out.Skills, skill)
	}

	out.Education = append([]EducationEntry(nil), f.Education...)
	out.Experience = make([]ExperienceEntry, len(f.Experience))
	for i, exp := range f.Experience {
		exp.Bullets = append([]string(nil), exp.Bullets...)
		out.Experience[i] = exp
	}
	return out
}
