package documents

import "time"

// Profile holds the contact block of a resume form.
type Profile struct {
	FullName string `json:"fullName"`
	Email    string `json:"email,omitempty" validate:"omitempty,email"`
	Phone    string `json:"phone,omitempty"`
	Location string `json:"location,omitempty"`
	Summary  string `json:"summary,omitempty"`
}

// EducationEntry is one education row.
type EducationEntry struct {
	Institution string `json:"institution" validate:"required"`
	Degree      string `json:"degree,omitempty"`
	Field       string `json:"field,omitempty"`
	StartDate   string `json:"startDate,omitempty"`
	EndDate     string `json:"endDate,omitempty"`
}

// ExperienceEntry is one work experience row.
type ExperienceEntry struct {
	Company   string   `json:"company" validate:"required"`
	Role      string   `json:"role,omitempty"`
	StartDate string   `json:"startDate,omitempty"`
	EndDate   string   `json:"endDate,omitempty"`
	Bullets   []string `json:"bullets,omitempty"`
}

// Form is the editable structured resume. The controller only hands it to
// the caller; edits after hydration belong to the caller.
type Form struct {
	Title      string            `json:"title"`
	Profile    Profile           `json:"profile"`
	Education  []EducationEntry  `json:"education" validate:"dive"`
	Experience []ExperienceEntry `json:"experience" validate:"dive"`
	Skills     []string          `json:"skills"`
}

// Transcript roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// TranscriptEntry is one chat message attached to a document.
type TranscriptEntry struct {
	Role      string    `json:"role" validate:"required,oneof=user assistant system"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Session is the hydration bundle for one document: form fields plus chat transcript.
type Session struct {
	DocumentID string            `json:"documentId" validate:"required"`
	Form       Form              `json:"form"`
	Transcript []TranscriptEntry `json:"transcript" validate:"dive"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}
