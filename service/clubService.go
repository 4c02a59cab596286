package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DillonB07/club-bot/entity"
	"github.com/DillonB07/club-bot/platform"
	"github.com/DillonB07/club-bot/repository"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"golang.org/x/exp/slices"
)

type JoinOutcome string

const (
	Joined        JoinOutcome = "joined"
	AlreadyMember JoinOutcome = "already_member"
)

type LeaveOutcome string

const (
	Left      LeaveOutcome = "left"
	NotMember LeaveOutcome = "not_member"
)

// ClubService drives the club lifecycle: a club is created pending and
// transitions once, terminally, to verified or rejected (rejection deletes
// the record).
type ClubService struct {
	stores   UserClubStores
	platform Platform

	modRoleID       int64
	muteRoleID      int64
	clubsCategoryID int64
	reviewChannelID int64
	logChannelID    int64

	now func() time.Time
}

// UserClubStores bundles the two storage boundaries the lifecycle engine
// mutates.
type UserClubStores struct {
	Clubs ClubStore
	Users UserStore
}

type ClubServiceConfig struct {
	ModRoleID       int64
	MuteRoleID      int64
	ClubsCategoryID int64
	ReviewChannelID int64
	LogChannelID    int64
}

func NewClubService(stores UserClubStores, platform Platform, cfg ClubServiceConfig) *ClubService {
	return &ClubService{
		stores:          stores,
		platform:        platform,
		modRoleID:       cfg.ModRoleID,
		muteRoleID:      cfg.MuteRoleID,
		clubsCategoryID: cfg.ClubsCategoryID,
		reviewChannelID: cfg.ReviewChannelID,
		logChannelID:    cfg.LogChannelID,
		now:             time.Now,
	}
}

func (s *ClubService) FindOneByID(ctx context.Context, clubID bson.ObjectID) (*entity.Club, error) {
	return s.stores.Clubs.FindOneByID(ctx, clubID)
}

func (s *ClubService) FindOneByChannel(ctx context.Context, channelID int64) (*entity.Club, error) {
	return s.stores.Clubs.FindOneByChannel(ctx, channelID)
}

// CreateClub speculatively reserves ownership on the user and inserts a
// pending club for review.
func (s *ClubService) CreateClub(ctx context.Context, ownerID int64, name, topic, reason string) (*entity.Club, error) {
	won, err := s.stores.Users.ReserveOwnership(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, ErrAlreadyOwnsClub
	}

	club := &entity.Club{
		OwnerID:      ownerID,
		Name:         name,
		Topic:        topic,
		Verification: entity.VerificationPending,
		ModIDs:       []int64{},
		ModPerms:     []entity.ModPerm{},
	}

	_, err = s.stores.Clubs.InsertOne(ctx, club)
	if err != nil {
		// Release the reservation so a retry of the whole call can succeed.
		clearErr := s.stores.Users.ClearOwnership(ctx, ownerID)
		if clearErr != nil {
			log.Error().Err(clearErr).Int64("user", ownerID).Msg("Failed to release ownership reservation")
		}
		return nil, err
	}

	if s.reviewChannelID != 0 {
		text := fmt.Sprintf("Club request: `%s` by user %d.\nTopic: %s\nReason: %s\nClub ID: %s",
			name, ownerID, topic, reason, club.ID.Hex())
		err = s.platform.SendMessage(ctx, s.reviewChannelID, text)
		if err != nil {
			log.Error().Err(err).Msg("Failed to notify reviewers")
		}
	}

	s.notify(ctx, ownerID, fmt.Sprintf("Your club `%s` has been requested. The reviewers will look at it soon.", name))
	s.audit(ctx, fmt.Sprintf("User %d requested club `%s` (%s).", ownerID, name, club.ID.Hex()))

	return club, nil
}

// VerifyClub settles a pending club. Approval provisions the channel and
// role, marks the club verified and auto-joins the owner; rejection deletes
// the record and releases the owner's reservation. The transition is guarded
// by a conditional update, so two racing reviewers settle it exactly once.
func (s *ClubService) VerifyClub(ctx context.Context, reviewerID int64, clubID bson.ObjectID, approve bool) (*entity.Club, error) {
	roles, err := s.platform.MemberRoles(ctx, reviewerID)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(roles, s.modRoleID) {
		return nil, ErrNotReviewer
	}

	club, err := s.stores.Clubs.FindOneByID(ctx, clubID)
	if err != nil {
		return nil, err
	}
	if club.Verification != entity.VerificationPending {
		return nil, ErrAlreadyReviewed
	}

	if !approve {
		deleted, err := s.stores.Clubs.DeleteOnePending(ctx, clubID)
		if err != nil {
			return nil, err
		}
		if !deleted {
			return nil, ErrAlreadyReviewed
		}

		err = s.stores.Users.ClearOwnership(ctx, club.OwnerID)
		if err != nil {
			return nil, err
		}

		s.notify(ctx, club.OwnerID, fmt.Sprintf("Your club `%s` has been rejected. You may submit a new request in the future.", club.Name))
		s.audit(ctx, fmt.Sprintf("Club `%s` (%s) rejected by reviewer %d.", club.Name, clubID.Hex(), reviewerID))

		club.Verification = entity.VerificationRejected
		return club, nil
	}

	roleID, err := s.platform.CreateRole(ctx, club.Name+" Member")
	if err != nil {
		return nil, err
	}

	channelID, err := s.platform.CreateTextChannel(ctx, platform.ChannelRequest{
		Name:       club.Name,
		Topic:      club.Topic,
		CategoryID: s.clubsCategoryID,
		OwnerID:    club.OwnerID,
		RoleID:     roleID,
		MuteRoleID: s.muteRoleID,
	})
	if err != nil {
		return nil, err
	}

	applied, err := s.stores.Clubs.SetVerified(ctx, clubID, channelID, roleID)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, ErrAlreadyReviewed
	}

	_, err = s.stores.Users.AddMembership(ctx, club.OwnerID, clubID)
	if err != nil {
		return nil, err
	}

	err = s.platform.GrantRole(ctx, club.OwnerID, roleID, "Club owner")
	if err != nil {
		log.Error().Err(err).Int64("user", club.OwnerID).Msg("Failed to grant owner role")
	}

	s.notify(ctx, club.OwnerID, fmt.Sprintf("Your club `%s` has been approved. Enjoy your new channel!", club.Name))
	s.audit(ctx, fmt.Sprintf("Club `%s` (%s) approved by reviewer %d.", club.Name, clubID.Hex(), reviewerID))

	club.Verification = entity.VerificationVerified
	club.ChannelID = channelID
	club.RoleID = roleID
	return club, nil
}

// JoinClub adds the user to a verified club. A ban that has already expired
// but not yet been swept does not block the join; only bans still active
// against the clock do.
func (s *ClubService) JoinClub(ctx context.Context, userID int64, clubID bson.ObjectID) (JoinOutcome, error) {
	club, err := s.stores.Clubs.FindOneByID(ctx, clubID)
	if err != nil {
		return "", err
	}
	if !club.IsVerified() {
		return "", ErrClubNotVerified
	}

	user, err := s.stores.Users.FindOneByID(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return "", err
	}
	if user != nil {
		if ban, ok := user.BanFor(clubID); ok && !ban.Expired(s.now()) {
			return "", ErrBanned
		}
	}

	added, err := s.stores.Users.AddMembership(ctx, userID, clubID)
	if err != nil {
		return "", err
	}
	if !added {
		return AlreadyMember, nil
	}

	err = s.platform.GrantRole(ctx, userID, club.RoleID, "Joined club")
	if err != nil {
		log.Error().Err(err).Int64("user", userID).Msg("Failed to grant club role")
	}

	err = s.platform.SendMessage(ctx, club.ChannelID, fmt.Sprintf("User %d has joined the **%s** club!", userID, club.Name))
	if err != nil {
		log.Error().Err(err).Msg("Failed to announce join")
	}

	s.audit(ctx, fmt.Sprintf("User %d joined `%s` (%s).", userID, club.Name, clubID.Hex()))

	return Joined, nil
}

// LeaveClub removes the user's membership. Owners cannot leave their own
// club; there is no ownership-transfer path.
func (s *ClubService) LeaveClub(ctx context.Context, userID int64, clubID bson.ObjectID) (LeaveOutcome, error) {
	club, err := s.stores.Clubs.FindOneByID(ctx, clubID)
	if err != nil {
		return "", err
	}
	if club.OwnerID == userID {
		return "", ErrOwnerCannotLeave
	}

	removed, err := s.stores.Users.RemoveMembership(ctx, userID, clubID)
	if err != nil {
		return "", err
	}
	if !removed {
		return NotMember, nil
	}

	err = s.platform.RevokeRole(ctx, userID, club.RoleID, "Left club")
	if err != nil && !errors.Is(err, platform.ErrNotFound) {
		log.Error().Err(err).Int64("user", userID).Msg("Failed to revoke club role")
	}

	s.audit(ctx, fmt.Sprintf("User %d left `%s` (%s).", userID, club.Name, clubID.Hex()))

	return Left, nil
}

// EditClub applies a closed, typed patch. Only the owner may edit; the
// moderator list never admits the owner, who holds every permission
// implicitly.
func (s *ClubService) EditClub(ctx context.Context, actorID int64, clubID bson.ObjectID, patch entity.ClubPatch) (*entity.Club, error) {
	club, err := s.stores.Clubs.FindOneByID(ctx, clubID)
	if err != nil {
		return nil, err
	}
	if club.OwnerID != actorID {
		return nil, ErrNotClubOwner
	}

	if patch.ModPerms != nil {
		for _, perm := range *patch.ModPerms {
			if !perm.Valid() {
				return nil, ErrUnknownModPerm
			}
		}
	}

	if patch.ModIDs != nil {
		mods := make([]int64, 0, len(*patch.ModIDs))
		for _, id := range *patch.ModIDs {
			if id != club.OwnerID && !slices.Contains(mods, id) {
				mods = append(mods, id)
			}
		}
		patch.ModIDs = &mods
	}

	err = s.stores.Clubs.ApplyPatch(ctx, clubID, patch)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, fmt.Sprintf("Club `%s` (%s) settings updated.", club.Name, clubID.Hex()))

	return s.stores.Clubs.FindOneByID(ctx, clubID)
}

func (s *ClubService) notify(ctx context.Context, userID int64, text string) {
	err := s.platform.SendDirectMessage(ctx, userID, text)
	if err != nil {
		log.Error().Err(err).Int64("user", userID).Msg("Failed to send DM")
	}
}

func (s *ClubService) audit(ctx context.Context, text string) {
	if s.logChannelID == 0 {
		return
	}
	err := s.platform.SendMessage(ctx, s.logChannelID, text)
	if err != nil {
		log.Error().Err(err).Msg("Failed to write to log channel")
	}
}
