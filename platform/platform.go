// Package platform talks to the chat/voice gateway. The core never reaches
// the chat platform directly; everything goes through the gateway's REST API.
package platform

import "errors"

// ErrNotFound reports that the channel, member or message the call referred
// to no longer exists on the platform.
var ErrNotFound = errors.New("platform: not found")

// PinOutcome distinguishes the expected results of pinning a message.
type PinOutcome string

const (
	// Pinned means the message is now pinned.
	Pinned PinOutcome = "pinned"
	// PinLimitReached means the channel already holds the maximum number of
	// pins. This is a domain outcome, not a transport failure.
	PinLimitReached PinOutcome = "pin_limit_reached"
)

// ChannelRequest describes a club text channel to provision. The gateway
// applies the standard override set: owner gets manage rights, the club role
// gets view/send, the mute role loses send, everyone else loses view.
type ChannelRequest struct {
	Name       string `json:"name"`
	Topic      string `json:"topic"`
	CategoryID int64  `json:"category_id,omitempty"`
	OwnerID    int64  `json:"owner_id"`
	RoleID     int64  `json:"role_id"`
	MuteRoleID int64  `json:"mute_role_id,omitempty"`
}
