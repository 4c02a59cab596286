package entity

import (
	"go.mongodb.org/mongo-driver/v2/bson"
	"golang.org/x/exp/slices"
)

type Verification string

const (
	VerificationPending  Verification = "pending"
	VerificationVerified Verification = "verified"
	VerificationRejected Verification = "rejected"
)

type ModPerm string

const (
	ModPermDelete ModPerm = "delete"
	ModPermPin    ModPerm = "pin"
	ModPermMute   ModPerm = "mute"
	ModPermBan    ModPerm = "ban"
)

// Valid reports whether p is one of the known permissions. The set is
// closed; anything else must be rejected before it reaches storage.
func (p ModPerm) Valid() bool {
	switch p {
	case ModPermDelete, ModPermPin, ModPermMute, ModPermBan:
		return true
	}
	return false
}

// Club is the authoritative record of a community sub-group. Channel and Role
// are zero until the club is verified. Bubble is zero while the club has no
// live voice room.
type Club struct {
	ID           bson.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	OwnerID      int64         `bson:"owner" json:"owner"`
	Name         string        `bson:"name" json:"name"`
	Topic        string        `bson:"topic" json:"topic"`
	Verification Verification  `bson:"verification" json:"verification"`
	ModIDs       []int64       `bson:"mods" json:"mods"`
	ModPerms     []ModPerm     `bson:"mod_perms" json:"mod_perms"`
	ChannelID    int64         `bson:"channel,omitempty" json:"channel,omitempty"`
	RoleID       int64         `bson:"role,omitempty" json:"role,omitempty"`
	BubbleID     int64         `bson:"bubble,omitempty" json:"bubble,omitempty"`
}

func (c *Club) IsVerified() bool {
	return c.Verification == VerificationVerified
}

func (c *Club) IsMod(userID int64) bool {
	return slices.Contains(c.ModIDs, userID)
}

func (c *Club) HasModPerm(perm ModPerm) bool {
	return slices.Contains(c.ModPerms, perm)
}

// ClubPatch enumerates the editable club fields. Nil fields are left
// untouched.
type ClubPatch struct {
	Name     *string    `json:"name,omitempty"`
	Topic    *string    `json:"topic,omitempty"`
	ModIDs   *[]int64   `json:"mods,omitempty"`
	ModPerms *[]ModPerm `json:"mod_perms,omitempty"`
}

func (p ClubPatch) IsZero() bool {
	return p.Name == nil && p.Topic == nil && p.ModIDs == nil && p.ModPerms == nil
}
