package oracle

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sandbox is a deterministic in-process provider for local runs and tests.
// Outcomes depend only on the NIN:
//
//   - NINs in the not-found list, or starting with "000", are not found
//   - NINs starting with "111" report a data mismatch
//   - NINs starting with "999" return a transport failure (provider unavailable)
//   - everything else verifies and echoes the claim back
type Sandbox struct {
	notFound map[string]struct{}
}

func NewSandbox(notFound []string) *Sandbox {
	m := make(map[string]struct{}, len(notFound))
	for _, n := range notFound {
		m[strings.TrimSpace(n)] = struct{}{}
	}
	return &Sandbox{notFound: m}
}

func (s *Sandbox) Verify(ctx context.Context, claim Claim) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sum := sha256.Sum256([]byte(claim.NIN))
	ref := "sandbox-" + hex.EncodeToString(sum[:6])

	if _, ok := s.notFound[claim.NIN]; ok || strings.HasPrefix(claim.NIN, "000") {
		return &Result{Success: false, Error: "NIN not found", Reference: ref}, nil
	}
	switch {
	case strings.HasPrefix(claim.NIN, "111"):
		return &Result{Success: false, Error: "data mismatch on last_name", Reference: ref}, nil
	case strings.HasPrefix(claim.NIN, "999"):
		return nil, &StatusError{StatusCode: 503}
	}
	return &Result{
		Success: true,
		Data: &Identity{
			FirstName:   claim.FirstName,
			MiddleName:  claim.MiddleName,
			LastName:    claim.LastName,
			DateOfBirth: claim.DateOfBirth,
			Gender:      claim.Gender,
		},
		Reference: ref,
	}, nil
}
