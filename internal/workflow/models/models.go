package models

import "math"

type StepID string

const (
	StepProfileCompletion   StepID = "profile_completion"
	StepNINVerification     StepID = "nin_verification"
	StepDocumentUpload      StepID = "document_upload"
	StepPhoneVerification   StepID = "phone_verification"
	StepAddressVerification StepID = "address_verification"
)

type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepInProgress StepStatus = "in_progress"
	StepCompleted  StepStatus = "completed"
	StepFailed     StepStatus = "failed"
)

// Definition is a checklist entry. Completable steps can be driven through
// CompleteStep; the others are sourced from outside the core.
type Definition struct {
	ID          StepID
	Title       string
	Description string
	Required    bool
	Completable bool
}

// Steps is the ordered checklist.
var Steps = []Definition{
	{StepProfileCompletion, "Complete your profile", "Start any verification to establish your profile", true, false},
	{StepNINVerification, "Verify your NIN", "Confirm your National Identification Number", true, true},
	{StepDocumentUpload, "Upload an identity document", "Have at least one identity document approved", true, true},
	{StepPhoneVerification, "Verify your phone number", "Confirm ownership of your phone number", false, false},
	{StepAddressVerification, "Verify your address", "Join at least one neighborhood", false, false},
}

func Lookup(stepID StepID) (Definition, bool) {
	for _, d := range Steps {
		if d.ID == stepID {
			return d, true
		}
	}
	return Definition{}, false
}

type Step struct {
	ID          StepID     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Required    bool       `json:"required"`
	Status      StepStatus `json:"status"`
}

type Status struct {
	Steps          []Step  `json:"steps"`
	CompletedSteps int     `json:"completedSteps"`
	TotalSteps     int     `json:"totalSteps"`
	Progress       int     `json:"progress"`
	NextStep       *StepID `json:"nextStep,omitempty"`
}

// NewStatus derives progress and the next step from the step list.
func NewStatus(steps []Step) *Status {
	st := &Status{Steps: steps, TotalSteps: len(steps)}
	for _, s := range steps {
		if s.Status == StepCompleted {
			st.CompletedSteps++
		}
	}
	if st.TotalSteps > 0 {
		st.Progress = int(math.Round(100 * float64(st.CompletedSteps) / float64(st.TotalSteps)))
	}
	for _, s := range steps {
		if s.Required && (s.Status == StepPending || s.Status == StepFailed) {
			next := s.ID
			st.NextStep = &next
			break
		}
	}
	return st
}
