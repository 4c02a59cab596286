package service

import "github.com/DillonB07/club-bot/entity"

type DenyReason string

const (
	ReasonNotAuthorized DenyReason = "not-authorized"
	ReasonProtected     DenyReason = "protected-target"
)

// Decision is the outcome of a permission check. A zero Reason means allowed.
type Decision struct {
	Allowed bool       `json:"allowed"`
	Reason  DenyReason `json:"reason,omitempty"`
}

func Allowed() Decision {
	return Decision{Allowed: true}
}

func Denied(reason DenyReason) Decision {
	return Decision{Reason: reason}
}

// Target describes the user a moderation action is aimed at.
// PlatformModerator must be populated by the caller from a platform
// member-roles lookup; the gate itself performs no I/O.
type Target struct {
	ID                int64
	PlatformModerator bool
}

// Authorize decides whether the actor may perform a moderation action in the
// club: allowed for the owner, and for moderators holding the permission in
// the club's granted set.
func Authorize(actorID int64, club *entity.Club, action entity.ModPerm) Decision {
	if actorID == club.OwnerID {
		return Allowed()
	}
	if club.IsMod(actorID) && club.HasModPerm(action) {
		return Allowed()
	}
	return Denied(ReasonNotAuthorized)
}

// AuthorizeTarget applies Authorize and additionally protects privileged
// targets: the club owner, club moderators and platform-wide moderators can
// never be muted or banned, whatever the actor's own standing.
func AuthorizeTarget(actorID int64, club *entity.Club, action entity.ModPerm, target Target) Decision {
	if action == entity.ModPermMute || action == entity.ModPermBan {
		if target.ID == club.OwnerID || club.IsMod(target.ID) || target.PlatformModerator {
			return Denied(ReasonProtected)
		}
	}
	return Authorize(actorID, club, action)
}
