// Package evaluation holds the domain model for website flow evaluations:
// the run configuration, the per-step audit trail, and the lifecycle rules
// that derive a run's final status from what happened during traversal.
package evaluation

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrEvaluationNotFound = errors.New("evaluation not found")
	ErrInvalidStartURL    = errors.New("start_url must be a valid http(s) URL")
	ErrInvalidWebsiteName = errors.New("website_name is required")
	ErrInvalidStatus      = errors.New("invalid evaluation status")
	ErrAlreadyStarted     = errors.New("evaluation already started")
	ErrNotRunning         = errors.New("evaluation is not running")
	ErrAlreadyFinalized   = errors.New("evaluation already finalized")
	ErrNoPendingRuns      = errors.New("no pending evaluations")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusPartial   Status = "partial"
	StatusFailed    Status = "failed"
	StatusBlocked   Status = "blocked"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusCompleted, StatusPartial, StatusFailed, StatusBlocked:
		return true
	}
	return false
}

// IsFinal reports whether the status is terminal.
func (s Status) IsFinal() bool {
	switch s {
	case StatusCompleted, StatusPartial, StatusFailed, StatusBlocked:
		return true
	}
	return false
}

// Termination reasons recorded on finished runs.
const (
	ReasonMaxSteps            = "max_steps"
	ReasonLoopDetected        = "loop_detected"
	ReasonBlocked             = "blocked"
	ReasonEndOfFlow           = "end_of_flow"
	ReasonNoActionableControl = "no_actionable_control"
	ReasonSessionError        = "session_error"
)

const (
	DefaultMaxSteps = 20
	MaxStepsLimit   = 100
)

// Config is the caller-supplied run configuration, stored as a JSON column.
type Config struct {
	StartURL      string            `json:"start_url"`
	WebsiteName   string            `json:"website_name"`
	MaxSteps      int               `json:"max_steps"`
	Viewport      string            `json:"viewport"`
	AutoFillForms bool              `json:"auto_fill_forms"`
	TestData      map[string]string `json:"test_data,omitempty"`
	StepDelayMs   int               `json:"step_delay_ms"`
	RunTimeoutSec int               `json:"run_timeout_sec"`
}

func (c Config) Value() (driver.Value, error) {
	return json.Marshal(c)
}

func (c *Config) Scan(value interface{}) error {
	if value == nil {
		*c = Config{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to scan Config: not a byte slice")
	}
	return json.Unmarshal(bytes, c)
}

// ApplyDefaults fills unset fields and clamps the step budget.
func (c *Config) ApplyDefaults() {
	if c.MaxSteps <= 0 {
		c.MaxSteps = DefaultMaxSteps
	}
	if c.MaxSteps > MaxStepsLimit {
		c.MaxSteps = MaxStepsLimit
	}
	if c.Viewport == "" {
		c.Viewport = "desktop"
	}
}

// FormField is one input observed on a page.
type FormField struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Required    bool   `json:"required"`
	Placeholder string `json:"placeholder,omitempty"`
}

// Step is one entry in the audit trail.
type Step struct {
	StepNumber     int         `json:"step_number"`
	URL            string      `json:"url"`
	PageTitle      string      `json:"page_title"`
	H1             string      `json:"h1,omitempty"`
	FormFields     []FormField `json:"form_fields,omitempty"`
	ButtonLabels   []string    `json:"button_labels,omitempty"`
	ScreenshotPath string      `json:"screenshot_path,omitempty"`
	LoadTimeMs     int64       `json:"load_time_ms"`
	Timestamp      time.Time   `json:"timestamp"`
	SelectedOption string      `json:"selected_option,omitempty"`
	FieldsFilled   int         `json:"fields_filled,omitempty"`
	ClickedControl string      `json:"clicked_control,omitempty"`
	Blocked        bool        `json:"blocked,omitempty"`
	BlockCategory  string      `json:"block_category,omitempty"`
	BlockReason    string      `json:"block_reason,omitempty"`
	Errors         []string    `json:"errors,omitempty"`
}

// Failed reports whether the step recorded any error.
func (s Step) Failed() bool {
	return len(s.Errors) > 0
}

// Steps is the ordered audit trail, stored as a JSON column.
type Steps []Step

func (s Steps) Value() (driver.Value, error) {
	if s == nil {
		return json.Marshal([]Step{})
	}
	return json.Marshal(s)
}

func (s *Steps) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to scan Steps: not a byte slice")
	}
	return json.Unmarshal(bytes, s)
}

type Evaluation struct {
	ID                uuid.UUID  `json:"id" gorm:"type:char(36);primaryKey"`
	WebsiteName       string     `json:"website_name" gorm:"type:varchar(255);not null"`
	StartURL          string     `json:"start_url" gorm:"type:varchar(2048);not null"`
	Status            Status     `json:"status" gorm:"type:varchar(20);not null;default:'pending';index:idx_evaluations_status"`
	Config            Config     `json:"config" gorm:"type:json"`
	Steps             Steps      `json:"steps" gorm:"type:json"`
	CompletedSteps    int        `json:"completed_steps"`
	FailedSteps       int        `json:"failed_steps"`
	TotalDurationMs   int64      `json:"total_duration_ms"`
	Viewport          string     `json:"viewport" gorm:"type:varchar(20)"`
	TerminationReason string     `json:"termination_reason,omitempty" gorm:"type:varchar(50)"`
	StartedAt         *time.Time `json:"started_at,omitempty"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at" gorm:"index:idx_evaluations_created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func (e *Evaluation) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// New builds a pending evaluation from a config, applying defaults.
func New(cfg Config) (*Evaluation, error) {
	cfg.ApplyDefaults()
	e := &Evaluation{
		WebsiteName: cfg.WebsiteName,
		StartURL:    cfg.StartURL,
		Status:      StatusPending,
		Config:      cfg,
		Viewport:    cfg.Viewport,
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Evaluation) Validate() error {
	if e.WebsiteName == "" {
		return ErrInvalidWebsiteName
	}
	u, err := url.Parse(e.StartURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ErrInvalidStartURL
	}
	if !e.Status.IsValid() {
		return ErrInvalidStatus
	}
	return nil
}

// Start marks the evaluation as running.
func (e *Evaluation) Start() error {
	if e.Status != StatusPending {
		return ErrAlreadyStarted
	}
	now := time.Now()
	e.Status = StatusRunning
	e.StartedAt = &now
	return nil
}

// AppendStep adds a step to the audit trail, numbering it sequentially.
func (e *Evaluation) AppendStep(step Step) {
	step.StepNumber = len(e.Steps) + 1
	if step.Timestamp.IsZero() {
		step.Timestamp = time.Now()
	}
	e.Steps = append(e.Steps, step)
}

// Finalize derives the terminal status from the collected steps and stamps
// the termination reason. It can run exactly once per evaluation.
func (e *Evaluation) Finalize(reason string) error {
	if e.Status.IsFinal() {
		return ErrAlreadyFinalized
	}
	if e.Status != StatusRunning {
		return ErrNotRunning
	}

	completed, failed, blocked := 0, 0, false
	for _, step := range e.Steps {
		if step.Blocked {
			blocked = true
		}
		if step.Failed() {
			failed++
		} else {
			completed++
		}
	}
	e.CompletedSteps = completed
	e.FailedSteps = failed

	switch {
	case blocked:
		e.Status = StatusBlocked
	case completed == 0:
		e.Status = StatusFailed
	case failed > 0:
		e.Status = StatusPartial
	default:
		e.Status = StatusCompleted
	}

	now := time.Now()
	e.CompletedAt = &now
	e.TerminationReason = reason
	if e.StartedAt != nil {
		e.TotalDurationMs = now.Sub(*e.StartedAt).Milliseconds()
	}
	return nil
}

// FailInitialization records a run that never reached its first page, for
// example because the browser session could not be created. A synthetic step
// keeps the audit trail non-empty.
func (e *Evaluation) FailInitialization(cause error) error {
	if e.Status.IsFinal() {
		return ErrAlreadyFinalized
	}
	if e.Status == StatusPending {
		if err := e.Start(); err != nil {
			return err
		}
	}
	e.AppendStep(Step{
		URL:    e.StartURL,
		Errors: []string{fmt.Sprintf("initialization failed: %v", cause)},
	})
	return e.Finalize(ReasonSessionError)
}
