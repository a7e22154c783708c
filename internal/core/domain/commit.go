package domain

import "time"

// ChangedFile is one staged change: the file path and its serialized diff.
type ChangedFile struct {
	Path string `json:"path"`
	Diff string `json:"diff"`
}

// Suffix returns the file extension of the changed path, dot included.
func (c ChangedFile) Suffix() string {
	for i := len(c.Path) - 1; i >= 0; i-- {
		switch c.Path[i] {
		case '.':
			return c.Path[i:]
		case '/':
			return ""
		}
	}
	return ""
}

// RiskLevel is the reviewer's verdict on a staged change set.
type RiskLevel string

const (
	RiskHigh   RiskLevel = "High"
	RiskMedium RiskLevel = "Medium"
	RiskLow    RiskLevel = "Low"
)

// Suggestion is the analyzer's output for one commit: a risk verdict, a short
// summary and exactly three candidate commit messages.
type Suggestion struct {
	Risk    RiskLevel `json:"risk"`
	Summary string    `json:"summary"`
	Options []string  `json:"options"`
}

// AnalysisReport is the persisted record of one commit analysis.
type AnalysisReport struct {
	ID            string    `json:"id"`
	DeveloperID   string    `json:"developer_id"`
	RepoName      string    `json:"repo_name"`
	CommitMessage string    `json:"commit_message"`
	RiskLevel     RiskLevel `json:"risk_level"`
	Summary       string    `json:"summary"`
	CreatedAt     time.Time `json:"created_at"`
}
