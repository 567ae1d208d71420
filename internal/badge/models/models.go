package models

import (
	"time"

	id "vouch/pkg/domain"
)

// Category groups badge types. Each type belongs to exactly one category.
type Category string

const (
	CategoryVerification Category = "verification"
	CategoryLeadership   Category = "leadership"
	CategoryContribution Category = "contribution"
	CategorySafety       Category = "safety"
	CategoryBusiness     Category = "business"
)

type Type string

const (
	TypeNINVerified      Type = "nin_verified"
	TypePhoneVerified    Type = "phone_verified"
	TypeAddressVerified  Type = "address_verified"
	TypeDocumentVerified Type = "document_verified"

	TypeCommunityLeader          Type = "community_leader"
	TypeEventOrganizer           Type = "event_organizer"
	TypeNeighborhoodWatchCaptain Type = "neighborhood_watch_captain"
	TypeModerator                Type = "moderator"

	TypeTopContributor  Type = "top_contributor"
	TypeHelpfulNeighbor Type = "helpful_neighbor"
	TypeVolunteer       Type = "volunteer"
	TypeEarlyAdopter    Type = "early_adopter"

	TypeSafetyAmbassador   Type = "safety_ambassador"
	TypeFirstAidCertified  Type = "first_aid_certified"
	TypeEmergencyResponder Type = "emergency_responder"

	TypeVerifiedBusiness     Type = "verified_business"
	TypeTrustedSeller        Type = "trusted_seller"
	TypeLocalServiceProvider Type = "local_service_provider"
)

// Vocabulary is the closed set of badge types per category.
var Vocabulary = map[Category][]Type{
	CategoryVerification: {TypeNINVerified, TypePhoneVerified, TypeAddressVerified, TypeDocumentVerified},
	CategoryLeadership:   {TypeCommunityLeader, TypeEventOrganizer, TypeNeighborhoodWatchCaptain, TypeModerator},
	CategoryContribution: {TypeTopContributor, TypeHelpfulNeighbor, TypeVolunteer, TypeEarlyAdopter},
	CategorySafety:       {TypeSafetyAmbassador, TypeFirstAidCertified, TypeEmergencyResponder},
	CategoryBusiness:     {TypeVerifiedBusiness, TypeTrustedSeller, TypeLocalServiceProvider},
}

func (c Category) IsValid() bool {
	_, ok := Vocabulary[c]
	return ok
}

// Allows reports whether t is in c's vocabulary.
func (c Category) Allows(t Type) bool {
	for _, known := range Vocabulary[c] {
		if known == t {
			return true
		}
	}
	return false
}

// RequiresAwarder is true for categories only a human may grant.
func (c Category) RequiresAwarder() bool {
	return c == CategoryLeadership || c == CategoryContribution
}

var verificationBadges = map[id.VerificationType]Type{
	id.VerificationNIN:      TypeNINVerified,
	id.VerificationPhone:    TypePhoneVerified,
	id.VerificationAddress:  TypeAddressVerified,
	id.VerificationDocument: TypeDocumentVerified,
}

// ForVerification maps a completed verification to its badge.
func ForVerification(vt id.VerificationType) (Type, bool) {
	t, ok := verificationBadges[vt]
	return t, ok
}

// Badge is an award. Revocation is a soft transition; a re-award is a new row.
type Badge struct {
	ID               id.BadgeID        `json:"id"`
	UserID           id.UserID         `json:"userId"`
	Type             Type              `json:"badgeType"`
	Category         Category          `json:"category"`
	AwardedBy        *id.UserID        `json:"awardedBy,omitempty"`
	AwardedAt        time.Time         `json:"awardedAt"`
	Active           bool              `json:"isActive"`
	RevokedAt        *time.Time        `json:"revokedAt,omitempty"`
	RevokedBy        *id.UserID        `json:"revokedBy,omitempty"`
	RevocationReason string            `json:"revocationReason,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

// AwardRequest is the input to an award. A nil AwardedBy means the system.
type AwardRequest struct {
	UserID    id.UserID
	Type      Type
	Category  Category
	AwardedBy *id.UserID
	Metadata  map[string]string
}

// Revocation is the soft-delete applied to an active badge.
type Revocation struct {
	RevokedBy id.UserID
	Reason    string
	RevokedAt time.Time
}

type UserBadges struct {
	Active  []*Badge `json:"activeBadges"`
	Revoked []*Badge `json:"revokedBadges"`
}
