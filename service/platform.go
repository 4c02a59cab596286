package service

import (
	"context"

	"github.com/DillonB07/club-bot/platform"
)

// Platform is the chat/voice platform boundary. Implemented by
// platform.Client against the gateway, and by a fake in tests.
type Platform interface {
	CreateRole(ctx context.Context, name string) (int64, error)
	CreateTextChannel(ctx context.Context, req platform.ChannelRequest) (int64, error)
	CreateVoiceChannel(ctx context.Context, name string, categoryID, roleID, muteRoleID int64) (int64, error)
	DeleteChannel(ctx context.Context, channelID int64, reason string) error
	SetMuteOverride(ctx context.Context, channelID, userID int64) error
	RemoveMemberOverride(ctx context.Context, channelID, userID int64) error
	GrantRole(ctx context.Context, userID, roleID int64, reason string) error
	RevokeRole(ctx context.Context, userID, roleID int64, reason string) error
	SendMessage(ctx context.Context, channelID int64, text string) error
	SendDirectMessage(ctx context.Context, userID int64, text string) error
	PinMessage(ctx context.Context, channelID, messageID int64) (platform.PinOutcome, error)
	DeleteMessage(ctx context.Context, channelID, messageID int64) error
	VoiceOccupancy(ctx context.Context, channelID int64) (int, error)
	MemberRoles(ctx context.Context, userID int64) ([]int64, error)
}
