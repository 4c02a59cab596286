package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DillonB07/club-bot/entity"
	"github.com/DillonB07/club-bot/platform"
	"github.com/rs/zerolog/log"
)

type BubbleOutcome string

const (
	BubbleCreated BubbleOutcome = "created"
	BubbleExists  BubbleOutcome = "exists"
)

// BubbleService manages the ephemeral voice rooms. A bubble is created on
// demand and reaped once it sits empty at reap time.
type BubbleService struct {
	clubStore    ClubStore
	platform     Platform
	logChannelID int64

	muteRoleID      int64
	clubsCategoryID int64
	interval        time.Duration
}

func NewBubbleService(clubStore ClubStore, platform Platform, logChannelID, muteRoleID, clubsCategoryID int64, interval time.Duration) *BubbleService {
	return &BubbleService{
		clubStore:       clubStore,
		platform:        platform,
		logChannelID:    logChannelID,
		muteRoleID:      muteRoleID,
		clubsCategoryID: clubsCategoryID,
		interval:        interval,
	}
}

// CreateBubble provisions a voice room for the club unless one already
// exists.
func (s *BubbleService) CreateBubble(ctx context.Context, userID int64, club *entity.Club) (BubbleOutcome, int64, error) {
	if club.BubbleID != 0 {
		return BubbleExists, club.BubbleID, nil
	}

	bubbleID, err := s.platform.CreateVoiceChannel(ctx, club.Name+" Bubble", s.clubsCategoryID, club.RoleID, s.muteRoleID)
	if err != nil {
		return "", 0, err
	}

	applied, err := s.clubStore.SetBubble(ctx, club.ID, bubbleID)
	if err != nil {
		return "", 0, err
	}
	if !applied {
		// A concurrent call stored its room first. Ours would sit
		// orphaned past the reaper, so tear it down and hand back the
		// winner's.
		err = s.platform.DeleteChannel(ctx, bubbleID, "duplicate bubble")
		if err != nil && !errors.Is(err, platform.ErrNotFound) {
			log.Error().Err(err).Str("club", club.ID.Hex()).Msg("Failed to delete duplicate bubble")
		}

		current, err := s.clubStore.FindOneByID(ctx, club.ID)
		if err != nil {
			return "", 0, err
		}
		return BubbleExists, current.BubbleID, nil
	}

	err = s.platform.SendMessage(ctx, club.ChannelID,
		fmt.Sprintf("User %d has created a bubble! Hop in! It will be popped shortly if not in use.", userID))
	if err != nil {
		log.Error().Err(err).Msg("Failed to announce bubble")
	}

	s.audit(ctx, fmt.Sprintf("Bubble created for `%s` (%s) by user %d.", club.Name, club.ID.Hex(), userID))

	return BubbleCreated, bubbleID, nil
}

func (s *BubbleService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := s.Reap(ctx)
			if err != nil {
				log.Error().Err(err).Msg("Bubble reap failed")
			}
		}
	}
}

// Reap destroys every bubble that sits empty and clears stale references to
// rooms that no longer exist. One club's failure never blocks the rest.
func (s *BubbleService) Reap(ctx context.Context) error {
	clubs, err := s.clubStore.FindAll(ctx)
	if err != nil {
		return err
	}

	for _, club := range clubs {
		if club.BubbleID == 0 {
			continue
		}

		occupancy, err := s.platform.VoiceOccupancy(ctx, club.BubbleID)
		if errors.Is(err, platform.ErrNotFound) {
			// The room vanished out from under us: drop the reference.
			err = s.clubStore.ClearBubble(ctx, club.ID)
			if err != nil {
				log.Error().Err(err).Str("club", club.ID.Hex()).Msg("Failed to clear stale bubble")
			}
			continue
		}
		if err != nil {
			log.Error().Err(err).Str("club", club.ID.Hex()).Msg("Failed to query bubble occupancy")
			continue
		}
		if occupancy > 0 {
			continue
		}

		err = s.platform.DeleteChannel(ctx, club.BubbleID, "bubble popped")
		if err != nil && !errors.Is(err, platform.ErrNotFound) {
			log.Error().Err(err).Str("club", club.ID.Hex()).Msg("Failed to delete bubble")
			continue
		}

		err = s.clubStore.ClearBubble(ctx, club.ID)
		if err != nil {
			log.Error().Err(err).Str("club", club.ID.Hex()).Msg("Failed to clear bubble")
			continue
		}

		err = s.platform.SendMessage(ctx, club.ChannelID, fmt.Sprintf("The %s bubble has been popped.", club.Name))
		if err != nil {
			log.Error().Err(err).Msg("Failed to announce popped bubble")
		}

		s.audit(ctx, fmt.Sprintf("Bubble popped for `%s` (%s).", club.Name, club.ID.Hex()))
		log.Info().Str("club", club.ID.Hex()).Msg("Popped empty bubble")
	}

	return nil
}

func (s *BubbleService) audit(ctx context.Context, text string) {
	if s.logChannelID == 0 {
		return
	}
	err := s.platform.SendMessage(ctx, s.logChannelID, text)
	if err != nil {
		log.Error().Err(err).Msg("Failed to write to log channel")
	}
}
