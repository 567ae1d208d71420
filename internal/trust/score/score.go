// Package score computes the trust score. Calculate is pure: the same
// weights and inputs always give the same breakdown.
package score

import (
	"math"
	"time"
)

// ActivityTier awards Points when the user was last active at most MaxDays ago.
type ActivityTier struct {
	MaxDays int     `json:"maxDays"`
	Points  float64 `json:"points"`
}

// Weights is the weighting table. It is served to clients so they can
// reproduce the percentage.
type Weights struct {
	Phone float64 `json:"phone"`

	// Identity is the ceiling for NIN plus documents. NINShare of it is
	// granted for a verified NIN; DocumentShare of it caps the document part.
	Identity      float64 `json:"identity"`
	NINShare      float64 `json:"ninShare"`
	DocumentShare float64 `json:"documentShare"`
	PerDocument   float64 `json:"perDocument"`

	Address float64 `json:"address"`

	PerEndorsement float64 `json:"perEndorsement"`
	EndorsementCap float64 `json:"endorsementCap"`

	PerBadge float64 `json:"perBadge"`
	BadgeCap float64 `json:"badgeCap"`

	PerDayOfAge float64 `json:"perDayOfAge"`
	AgeCap      float64 `json:"ageCap"`

	// ActivityTiers are checked in order; the first match wins.
	ActivityTiers []ActivityTier `json:"activityTiers"`
}

// DefaultWeights returns a fresh copy of the production table.
func DefaultWeights() Weights {
	return Weights{
		Phone:          20,
		Identity:       30,
		NINShare:       0.7,
		DocumentShare:  0.3,
		PerDocument:    5,
		Address:        30,
		PerEndorsement: 2,
		EndorsementCap: 20,
		PerBadge:       1,
		BadgeCap:       10,
		PerDayOfAge:    0.1,
		AgeCap:         30,
		ActivityTiers: []ActivityTier{
			{MaxDays: 1, Points: 20},
			{MaxDays: 7, Points: 16},
			{MaxDays: 30, Points: 12},
			{MaxDays: 90, Points: 6},
		},
	}
}

// MaxScore is the sum of every component ceiling.
func (w Weights) MaxScore() float64 {
	var topTier float64
	for _, t := range w.ActivityTiers {
		topTier = math.Max(topTier, t.Points)
	}
	return w.Phone + w.Identity + w.Address + w.EndorsementCap + w.BadgeCap + w.AgeCap + topTier
}

// Inputs are the facts a score is computed from. Now is explicit so the
// result never depends on the wall clock.
type Inputs struct {
	PhoneVerified     bool
	NINVerified       bool
	VerifiedDocuments int
	Neighborhoods     int
	Endorsements      int
	ActiveBadges      int
	AccountCreatedAt  time.Time
	LastActivityAt    *time.Time
	Now               time.Time
}

type Components struct {
	Phone        float64 `json:"phoneVerification"`
	Identity     float64 `json:"identityVerification"`
	Address      float64 `json:"addressVerification"`
	Endorsements float64 `json:"communityEndorsements"`
	Badges       float64 `json:"badges"`
	AccountAge   float64 `json:"accountAge"`
	Activity     float64 `json:"activityLevel"`
}

func (c Components) sum() float64 {
	return c.Phone + c.Identity + c.Address + c.Endorsements + c.Badges + c.AccountAge + c.Activity
}

type Breakdown struct {
	Components Components `json:"breakdown"`
	Total      float64    `json:"totalScore"`
	MaxScore   float64    `json:"maxScore"`
	Percentage int        `json:"percentage"`
}

func Calculate(w Weights, in Inputs) Breakdown {
	c := Components{
		Phone:        binary(in.PhoneVerified, w.Phone),
		Identity:     identity(w, in),
		Address:      binary(in.Neighborhoods > 0, w.Address),
		Endorsements: capped(float64(nonNegative(in.Endorsements))*w.PerEndorsement, w.EndorsementCap),
		Badges:       capped(float64(nonNegative(in.ActiveBadges))*w.PerBadge, w.BadgeCap),
		AccountAge:   capped(float64(wholeDays(in.AccountCreatedAt, in.Now))*w.PerDayOfAge, w.AgeCap),
		Activity:     activity(w.ActivityTiers, in.LastActivityAt, in.Now),
	}
	maxScore := w.MaxScore()
	total := round1(math.Min(c.sum(), maxScore))
	pct := 0
	if maxScore > 0 {
		pct = int(math.Round(total / maxScore * 100))
	}
	return Breakdown{Components: c, Total: total, MaxScore: maxScore, Percentage: pct}
}

func identity(w Weights, in Inputs) float64 {
	nin := binary(in.NINVerified, w.Identity*w.NINShare)
	docs := capped(float64(nonNegative(in.VerifiedDocuments))*w.PerDocument, w.Identity*w.DocumentShare)
	return capped(nin+docs, w.Identity)
}

func activity(tiers []ActivityTier, last *time.Time, now time.Time) float64 {
	if last == nil {
		return 0
	}
	days := wholeDays(*last, now)
	for _, t := range tiers {
		if days <= t.MaxDays {
			return t.Points
		}
	}
	return 0
}

// wholeDays is the floor of days elapsed since from, never negative.
func wholeDays(from, now time.Time) int {
	if from.IsZero() || !now.After(from) {
		return 0
	}
	return int(now.Sub(from).Hours() / 24)
}

func binary(on bool, points float64) float64 {
	if on {
		return points
	}
	return 0
}

func capped(v, ceiling float64) float64 {
	return round1(math.Min(v, ceiling))
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
