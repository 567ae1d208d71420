package service

import (
	"strings"

	"vouch/internal/nin/models"
)

// recordView is the audit snapshot of a record. It carries no
// NIN digits, names or date of birth.
type recordView struct {
	Status            models.Status        `json:"status"`
	Method            models.Method        `json:"method,omitempty"`
	FailureReason     models.FailureReason `json:"failureReason,omitempty"`
	RawFailureReason  string               `json:"rawFailureReason,omitempty"`
	ProviderReference string               `json:"providerReference,omitempty"`
	Attempts          int                  `json:"attempts"`
}

func auditView(r *models.Record) any {
	if r == nil {
		return recordView{Status: models.StatusNotStarted}
	}
	return recordView{
		Status:            r.Status,
		Method:            r.Method,
		FailureReason:     r.FailureReason,
		RawFailureReason:  r.RawFailureReason,
		ProviderReference: r.ProviderReference,
		Attempts:          r.Attempts,
	}
}

func normalizeClaim(c models.Claim) models.Claim {
	c.NIN = strings.TrimSpace(c.NIN)
	c.FirstName = strings.TrimSpace(c.FirstName)
	c.MiddleName = strings.TrimSpace(c.MiddleName)
	c.LastName = strings.TrimSpace(c.LastName)
	c.DateOfBirth = strings.TrimSpace(c.DateOfBirth)
	c.Gender = strings.ToLower(strings.TrimSpace(c.Gender))
	c.StateOfOrigin = strings.TrimSpace(c.StateOfOrigin)
	return c
}
