package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DillonB07/club-bot/platform"
	"github.com/DillonB07/club-bot/repository"
	"github.com/rs/zerolog/log"
)

// SweeperService periodically lifts expired mutes and bans. Each pass is
// at-least-once: a record that fails to resolve stays in place and is
// retried on the next tick, and every lift is idempotent so retries are
// harmless.
type SweeperService struct {
	userStore    UserStore
	clubStore    ClubStore
	platform     Platform
	logChannelID int64
	interval     time.Duration

	now func() time.Time
}

func NewSweeperService(userStore UserStore, clubStore ClubStore, platform Platform, logChannelID int64, interval time.Duration) *SweeperService {
	return &SweeperService{
		userStore:    userStore,
		clubStore:    clubStore,
		platform:     platform,
		logChannelID: logChannelID,
		interval:     interval,
		now:          time.Now,
	}
}

func (s *SweeperService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := s.Sweep(ctx, s.now())
			if err != nil {
				log.Error().Err(err).Msg("Sweep failed")
			}
		}
	}
}

// Sweep lifts every mute and ban expired as of now. Per-record failures are
// logged and skipped; one record never blocks the rest of the pass.
func (s *SweeperService) Sweep(ctx context.Context, now time.Time) error {
	users, err := s.userStore.FindAll(ctx)
	if err != nil {
		return err
	}

	for _, record := range ListExpired(users, now) {
		switch record.Kind {
		case SanctionMute:
			s.sweepMute(ctx, record)
		case SanctionBan:
			s.sweepBan(ctx, record)
		}
	}

	return nil
}

func (s *SweeperService) sweepMute(ctx context.Context, record ExpiredSanction) {
	club, err := s.clubStore.FindOneByID(ctx, record.ClubID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		log.Error().Err(err).Int64("user", record.UserID).Msg("Failed to load club for expired mute")
		return
	}

	// Remove the channel override before the record: if the platform call
	// fails the record survives and the whole item is retried next tick.
	if club != nil {
		err = s.platform.RemoveMemberOverride(ctx, club.ChannelID, record.UserID)
		if err != nil && !errors.Is(err, platform.ErrNotFound) {
			log.Error().Err(err).Int64("user", record.UserID).Msg("Failed to remove mute override")
			return
		}
	}

	removed, err := s.userStore.RemoveMute(ctx, record.UserID, record.ClubID)
	if err != nil {
		log.Error().Err(err).Int64("user", record.UserID).Msg("Failed to lift expired mute")
		return
	}
	if !removed {
		// Another writer lifted it first. Nothing left to do.
		return
	}

	if club != nil {
		s.notify(ctx, record.UserID, fmt.Sprintf("Your mute in the %s club has expired.", club.Name))
		s.audit(ctx, fmt.Sprintf("Mute expired: user %d in `%s` (%s).", record.UserID, club.Name, record.ClubID.Hex()))
	}

	log.Info().Int64("user", record.UserID).Str("club", record.ClubID.Hex()).Msg("Lifted expired mute")
}

func (s *SweeperService) sweepBan(ctx context.Context, record ExpiredSanction) {
	removed, err := s.userStore.RemoveBan(ctx, record.UserID, record.ClubID)
	if err != nil {
		log.Error().Err(err).Int64("user", record.UserID).Msg("Failed to lift expired ban")
		return
	}
	if !removed {
		return
	}

	// Membership is not restored; the user may join again on their own.
	club, err := s.clubStore.FindOneByID(ctx, record.ClubID)
	if err == nil {
		s.notify(ctx, record.UserID, fmt.Sprintf("Your ban from the %s club has expired. You are welcome to join again.", club.Name))
		s.audit(ctx, fmt.Sprintf("Ban expired: user %d in `%s` (%s).", record.UserID, club.Name, record.ClubID.Hex()))
	}

	log.Info().Int64("user", record.UserID).Str("club", record.ClubID.Hex()).Msg("Lifted expired ban")
}

func (s *SweeperService) notify(ctx context.Context, userID int64, text string) {
	err := s.platform.SendDirectMessage(ctx, userID, text)
	if err != nil {
		log.Error().Err(err).Int64("user", userID).Msg("Failed to send DM")
	}
}

func (s *SweeperService) audit(ctx context.Context, text string) {
	if s.logChannelID == 0 {
		return
	}
	err := s.platform.SendMessage(ctx, s.logChannelID, text)
	if err != nil {
		log.Error().Err(err).Msg("Failed to write to log channel")
	}
}
