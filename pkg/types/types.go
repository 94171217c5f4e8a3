// Package types defines the canonical records the tracker database holds:
// task groups, the people who chair them, standards projects, and the
// timeline events attached to each project. These are explicit typed
// records rather than loose JSON maps; optional fields are pointers or
// zero values marked as such.
package types

// ProjectType classifies what kind of standards project a designation
// names.
type ProjectType string

// Project types recognized by the designation parser.
const (
	NewStandard ProjectType = "NewStandard"
	Amendment   ProjectType = "Amendment"
	Revision    ProjectType = "Revision"
	Corrigendum ProjectType = "Corrigendum"
	Erratum     ProjectType = "Erratum"
)

// TaskGroup is an organizational subgroup owning a set of projects.
type TaskGroup struct {
	ID      int    `json:"id,omitempty"`
	Abbrev  string `json:"abbrev"`
	Name    string `json:"name"`
	ChairID int    `json:"chair_id,omitempty"`
}

// Person is someone referenced by a task group, typically its chair.
// Identity is (role, first name, last name), compared case-insensitively.
type Person struct {
	ID          int    `json:"id,omitempty"`
	Role        string `json:"role"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email,omitempty"`
	Affiliation string `json:"affiliation,omitempty"`
}

// Project is a standards project tracked in the database. The designation
// is the natural key, compared case-insensitively.
type Project struct {
	ID          int         `json:"id,omitempty"`
	Designation string      `json:"designation"`
	ProjectType ProjectType `json:"project_type,omitempty"`
	Base        string      `json:"base,omitempty"`
	ShortTitle  string      `json:"short_title,omitempty"`
	Title       string      `json:"title,omitempty"`
	DraftNo     string      `json:"draft_no,omitempty"`
	DraftURL    string      `json:"draft_url,omitempty"`
	Status      string      `json:"status,omitempty"`
	LastMotion  string      `json:"last_motion,omitempty"`
	NextAction  string      `json:"next_action,omitempty"`
	Award       string      `json:"award,omitempty"`
	PARURL      string      `json:"par_url,omitempty"`
	FilesURL    string      `json:"files_url,omitempty"`
	TaskGroupID int         `json:"task_group_id,omitempty"`
}

// Event is an immutable milestone in a project's lifecycle. Identity is
// (project, name); EndDate and URL are optional.
type Event struct {
	ID          int    `json:"id,omitempty"`
	ProjectID   int    `json:"project_id,omitempty"`
	Date        Date   `json:"date"`
	EndDate     *Date  `json:"end_date,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
}
