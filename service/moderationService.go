package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DillonB07/club-bot/entity"
	"github.com/DillonB07/club-bot/platform"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// ModerationService owns the mute/ban ledger. Records live on the user
// document; every write is a single conditional update, so two moderators
// acting on the same user resolve last-write-wins.
type ModerationService struct {
	userStore    UserStore
	platform     Platform
	logChannelID int64

	now func() time.Time
}

func NewModerationService(userStore UserStore, platform Platform, logChannelID int64) *ModerationService {
	return &ModerationService{
		userStore:    userStore,
		platform:     platform,
		logChannelID: logChannelID,
		now:          time.Now,
	}
}

// ApplyMute upserts the user's mute for the club and returns the new
// expiration. A non-positive duration lifts the mute instead and returns nil.
func (s *ModerationService) ApplyMute(ctx context.Context, userID int64, club *entity.Club, minutes int) (*time.Time, error) {
	if minutes <= 0 {
		_, err := s.LiftMute(ctx, userID, club)
		return nil, err
	}

	expiration := s.now().Add(time.Duration(minutes) * time.Minute)

	err := s.userStore.UpsertMute(ctx, userID, club.ID, expiration)
	if err != nil {
		return nil, err
	}

	err = s.platform.SetMuteOverride(ctx, club.ChannelID, userID)
	if err != nil && !errors.Is(err, platform.ErrNotFound) {
		return nil, err
	}

	s.notify(ctx, userID, fmt.Sprintf("You have been muted in the %s club for %d minutes.", club.Name, minutes))
	s.audit(ctx, fmt.Sprintf("Muted user %d in `%s` for %d minutes (club %s).", userID, club.Name, minutes, club.ID.Hex()))

	return &expiration, nil
}

// LiftMute removes the user's mute for the club, if any. Calling it twice
// equals calling it once; channel override removal and notification happen
// only when a record was actually removed.
func (s *ModerationService) LiftMute(ctx context.Context, userID int64, club *entity.Club) (bool, error) {
	removed, err := s.userStore.RemoveMute(ctx, userID, club.ID)
	if err != nil {
		return false, err
	}
	if !removed {
		return false, nil
	}

	err = s.platform.RemoveMemberOverride(ctx, club.ChannelID, userID)
	if err != nil && !errors.Is(err, platform.ErrNotFound) {
		log.Error().Err(err).Int64("user", userID).Msg("Failed to remove mute override")
	}

	s.notify(ctx, userID, fmt.Sprintf("You have been unmuted in the %s club.", club.Name))
	s.audit(ctx, fmt.Sprintf("Unmuted user %d in `%s` (club %s).", userID, club.Name, club.ID.Hex()))

	return true, nil
}

// ApplyBan records the ban and revokes the user's membership as one document
// operation. A zero expiration duration with permanent=false is invalid;
// permanent bans carry a nil expiration. An active ban for the same
// (user, club) fails with ErrDuplicateBan and leaves state unchanged.
func (s *ModerationService) ApplyBan(ctx context.Context, userID int64, club *entity.Club, minutes int, permanent bool) (*time.Time, error) {
	var expiration *time.Time
	if !permanent {
		if minutes <= 0 {
			return nil, errors.New("ban duration must be positive")
		}
		t := s.now().Add(time.Duration(minutes) * time.Minute)
		expiration = &t
	}

	applied, err := s.userStore.InsertBan(ctx, userID, club.ID, expiration)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, ErrDuplicateBan
	}

	err = s.platform.RevokeRole(ctx, userID, club.RoleID, "Banned from club")
	if err != nil && !errors.Is(err, platform.ErrNotFound) {
		log.Error().Err(err).Int64("user", userID).Msg("Failed to revoke club role")
	}

	if permanent {
		s.notify(ctx, userID, fmt.Sprintf("You have been permanently banned from the %s club.", club.Name))
		s.audit(ctx, fmt.Sprintf("Permanently banned user %d from `%s` (club %s).", userID, club.Name, club.ID.Hex()))
	} else {
		s.notify(ctx, userID, fmt.Sprintf("You have been banned from the %s club for %d minutes.", club.Name, minutes))
		s.audit(ctx, fmt.Sprintf("Banned user %d from `%s` for %d minutes (club %s).", userID, club.Name, minutes, club.ID.Hex()))
	}

	return expiration, nil
}

// LiftBan removes the user's ban for the club, if any. Membership is not
// restored; the user has to join again.
func (s *ModerationService) LiftBan(ctx context.Context, userID int64, club *entity.Club) (bool, error) {
	removed, err := s.userStore.RemoveBan(ctx, userID, club.ID)
	if err != nil {
		return false, err
	}
	if !removed {
		return false, nil
	}

	s.notify(ctx, userID, fmt.Sprintf("You have been unbanned from the %s club.", club.Name))
	s.audit(ctx, fmt.Sprintf("Unbanned user %d from `%s` (club %s).", userID, club.Name, club.ID.Hex()))

	return true, nil
}

type SanctionKind string

const (
	SanctionMute SanctionKind = "mute"
	SanctionBan  SanctionKind = "ban"
)

type ExpiredSanction struct {
	UserID     int64
	ClubID     bson.ObjectID
	Kind       SanctionKind
	Expiration time.Time
}

// ListExpired returns every mute and ban whose expiration has passed.
// Permanent bans never expire.
func ListExpired(users []*entity.User, now time.Time) []ExpiredSanction {
	var expired []ExpiredSanction
	for _, user := range users {
		for _, mute := range user.Mutes {
			if mute.Expired(now) {
				expired = append(expired, ExpiredSanction{
					UserID:     user.ID,
					ClubID:     mute.ClubID,
					Kind:       SanctionMute,
					Expiration: *mute.Expiration,
				})
			}
		}
		for _, ban := range user.Bans {
			if ban.Expired(now) {
				expired = append(expired, ExpiredSanction{
					UserID:     user.ID,
					ClubID:     ban.ClubID,
					Kind:       SanctionBan,
					Expiration: *ban.Expiration,
				})
			}
		}
	}
	return expired
}

// PinMessage pins a message in the club channel. A full pin list is an
// expected outcome, not a failure.
func (s *ModerationService) PinMessage(ctx context.Context, club *entity.Club, messageID int64) (platform.PinOutcome, error) {
	outcome, err := s.platform.PinMessage(ctx, club.ChannelID, messageID)
	if err != nil {
		return "", err
	}

	s.audit(ctx, fmt.Sprintf("Pinned message %d in `%s` (club %s): %s.", messageID, club.Name, club.ID.Hex(), outcome))
	return outcome, nil
}

func (s *ModerationService) DeleteMessage(ctx context.Context, club *entity.Club, messageID int64) error {
	err := s.platform.DeleteMessage(ctx, club.ChannelID, messageID)
	if err != nil {
		return err
	}

	s.audit(ctx, fmt.Sprintf("Deleted message %d in `%s` (club %s).", messageID, club.Name, club.ID.Hex()))
	return nil
}

func (s *ModerationService) notify(ctx context.Context, userID int64, text string) {
	err := s.platform.SendDirectMessage(ctx, userID, text)
	if err != nil {
		log.Error().Err(err).Int64("user", userID).Msg("Failed to send DM")
	}
}

func (s *ModerationService) audit(ctx context.Context, text string) {
	if s.logChannelID == 0 {
		return
	}
	err := s.platform.SendMessage(ctx, s.logChannelID, text)
	if err != nil {
		log.Error().Err(err).Msg("Failed to write to log channel")
	}
}
