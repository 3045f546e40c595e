package directory

import "strconv"

// Theater status values
const (
	StatusOpen        = "open"
	StatusOpeningSoon = "opening-soon"
	StatusClosed      = "closed"
)

// Theater size values
const (
	SizeMajor       = "major"
	SizeMidSize     = "mid-size"
	SizeSmallFringe = "small-fringe"
)

// DeadlineRolling marks a theater that reads submissions year-round
const DeadlineRolling = "rolling"

// Theater is a company listed in the submission directory
type Theater struct {
	ID              string   `yaml:"id" json:"id"`
	Name            string   `yaml:"name" json:"name"`
	Status          string   `yaml:"status" json:"status"`
	Size            string   `yaml:"size" json:"size"`
	Genres          []string `yaml:"genres" json:"genres"`
	SubmissionTypes []string `yaml:"submission_types" json:"submissionTypes"`
	Fee             float64  `yaml:"fee" json:"fee"`
	Deadline        string   `yaml:"deadline" json:"deadline"`
	DeadlineType    string   `yaml:"deadline_type" json:"deadlineType"`
	ResponseTime    string   `yaml:"response_time" json:"responseTime"`
	Website         string   `yaml:"website" json:"website"`
	Description     string   `yaml:"description" json:"description"`
	Contact         string   `yaml:"contact" json:"contact,omitempty"`
	Guidelines      string   `yaml:"guidelines" json:"guidelines,omitempty"`
	Tips            []string `yaml:"tips" json:"tips,omitempty"`
	LastUpdated     string   `yaml:"last_updated" json:"lastUpdated"`
}

func (t Theater) key() string { return t.ID }

// Grant is a funding opportunity
type Grant struct {
	ID                 int      `yaml:"id" json:"id"`
	Name               string   `yaml:"name" json:"name"`
	Organization       string   `yaml:"organization" json:"organization,omitempty"`
	Category           string   `yaml:"category" json:"category"`
	Type               string   `yaml:"type" json:"type"`
	Deadline           string   `yaml:"deadline" json:"deadline"`
	Amount             string   `yaml:"amount" json:"amount"`
	Location           string   `yaml:"location" json:"location"`
	Eligibility        string   `yaml:"eligibility" json:"eligibility"`
	Description        string   `yaml:"description" json:"description"`
	URL                string   `yaml:"url" json:"url"`
	Notes              string   `yaml:"notes" json:"notes,omitempty"`
	Requirements       []string `yaml:"requirements" json:"requirements,omitempty"`
	ApplicationProcess []string `yaml:"application_process" json:"applicationProcess,omitempty"`
	ContactEmail       string   `yaml:"contact_email" json:"contactEmail,omitempty"`
}

func (g Grant) key() string { return strconv.Itoa(g.ID) }
