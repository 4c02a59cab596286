package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/DillonB07/club-bot/entity"
	"github.com/DillonB07/club-bot/platform"
	"github.com/DillonB07/club-bot/repository"
	"go.mongodb.org/mongo-driver/v2/bson"
	"golang.org/x/exp/slices"
)

// memClubStore mirrors the conditional-update semantics of the mongo club
// repository.
type memClubStore struct {
	mu    sync.Mutex
	clubs map[bson.ObjectID]*entity.Club

	findAllErr error
}

func newMemClubStore() *memClubStore {
	return &memClubStore{clubs: map[bson.ObjectID]*entity.Club{}}
}

func (s *memClubStore) FindAll(ctx context.Context) ([]*entity.Club, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findAllErr != nil {
		return nil, s.findAllErr
	}
	clubs := make([]*entity.Club, 0, len(s.clubs))
	for _, club := range s.clubs {
		c := *club
		clubs = append(clubs, &c)
	}
	return clubs, nil
}

func (s *memClubStore) FindOneByID(ctx context.Context, ID bson.ObjectID) (*entity.Club, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	club, ok := s.clubs[ID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *club
	return &c, nil
}

func (s *memClubStore) FindOneByChannel(ctx context.Context, channelID int64) (*entity.Club, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, club := range s.clubs {
		if club.ChannelID == channelID {
			c := *club
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memClubStore) InsertOne(ctx context.Context, club *entity.Club) (bson.ObjectID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if club.ID.IsZero() {
		club.ID = bson.NewObjectID()
	}
	c := *club
	s.clubs[club.ID] = &c
	return club.ID, nil
}

func (s *memClubStore) DeleteOnePending(ctx context.Context, ID bson.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	club, ok := s.clubs[ID]
	if !ok || club.Verification != entity.VerificationPending {
		return false, nil
	}
	delete(s.clubs, ID)
	return true, nil
}

func (s *memClubStore) SetVerified(ctx context.Context, ID bson.ObjectID, channelID, roleID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	club, ok := s.clubs[ID]
	if !ok || club.Verification != entity.VerificationPending {
		return false, nil
	}
	club.Verification = entity.VerificationVerified
	club.ChannelID = channelID
	club.RoleID = roleID
	return true, nil
}

func (s *memClubStore) SetBubble(ctx context.Context, ID bson.ObjectID, bubbleID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	club, ok := s.clubs[ID]
	if !ok || club.BubbleID != 0 {
		return false, nil
	}
	club.BubbleID = bubbleID
	return true, nil
}

func (s *memClubStore) ClearBubble(ctx context.Context, ID bson.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if club, ok := s.clubs[ID]; ok {
		club.BubbleID = 0
	}
	return nil
}

func (s *memClubStore) ApplyPatch(ctx context.Context, ID bson.ObjectID, patch entity.ClubPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	club, ok := s.clubs[ID]
	if !ok {
		return repository.ErrNotFound
	}
	if patch.Name != nil {
		club.Name = *patch.Name
	}
	if patch.Topic != nil {
		club.Topic = *patch.Topic
	}
	if patch.ModIDs != nil {
		club.ModIDs = *patch.ModIDs
	}
	if patch.ModPerms != nil {
		club.ModPerms = *patch.ModPerms
	}
	return nil
}

// memUserStore mirrors the conditional-update semantics of the mongo user
// repository, including the single-document atomicity of InsertBan.
type memUserStore struct {
	mu    sync.Mutex
	users map[int64]*entity.User

	removeMuteErr error
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: map[int64]*entity.User{}}
}

func (s *memUserStore) get(ID int64) *entity.User {
	user, ok := s.users[ID]
	if !ok {
		user = &entity.User{ID: ID}
		s.users[ID] = user
	}
	return user
}

func (s *memUserStore) FindAll(ctx context.Context) ([]*entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]*entity.User, 0, len(s.users))
	for _, user := range s.users {
		u := *user
		u.Mutes = slices.Clone(user.Mutes)
		u.Bans = slices.Clone(user.Bans)
		u.ClubIDs = slices.Clone(user.ClubIDs)
		users = append(users, &u)
	}
	return users, nil
}

func (s *memUserStore) FindOneByID(ctx context.Context, ID int64) (*entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[ID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u := *user
	u.Mutes = slices.Clone(user.Mutes)
	u.Bans = slices.Clone(user.Bans)
	u.ClubIDs = slices.Clone(user.ClubIDs)
	return &u, nil
}

func (s *memUserStore) ReserveOwnership(ctx context.Context, ID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.get(ID)
	if user.OwnsClub {
		return false, nil
	}
	user.OwnsClub = true
	return true, nil
}

func (s *memUserStore) ClearOwnership(ctx context.Context, ID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(ID).OwnsClub = false
	return nil
}

func (s *memUserStore) AddMembership(ctx context.Context, ID int64, clubID bson.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.get(ID)
	if slices.Contains(user.ClubIDs, clubID) {
		return false, nil
	}
	user.ClubIDs = append(user.ClubIDs, clubID)
	return true, nil
}

func (s *memUserStore) RemoveMembership(ctx context.Context, ID int64, clubID bson.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[ID]
	if !ok {
		return false, nil
	}
	i := slices.Index(user.ClubIDs, clubID)
	if i < 0 {
		return false, nil
	}
	user.ClubIDs = slices.Delete(user.ClubIDs, i, i+1)
	return true, nil
}

func (s *memUserStore) UpsertMute(ctx context.Context, ID int64, clubID bson.ObjectID, expiration time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[ID]
	if !ok {
		return repository.ErrNotFound
	}
	for i := range user.Mutes {
		if user.Mutes[i].ClubID == clubID {
			e := expiration
			user.Mutes[i].Expiration = &e
			return nil
		}
	}
	e := expiration
	user.Mutes = append(user.Mutes, entity.Sanction{ClubID: clubID, Expiration: &e})
	return nil
}

func (s *memUserStore) RemoveMute(ctx context.Context, ID int64, clubID bson.ObjectID) (bool, error) {
	if s.removeMuteErr != nil {
		return false, s.removeMuteErr
	}
	return s.pull(ID, clubID, false)
}

func (s *memUserStore) InsertBan(ctx context.Context, ID int64, clubID bson.ObjectID, expiration *time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[ID]
	if !ok {
		return false, repository.ErrNotFound
	}
	for _, ban := range user.Bans {
		if ban.ClubID == clubID {
			return false, nil
		}
	}
	user.Bans = append(user.Bans, entity.Sanction{ClubID: clubID, Expiration: expiration})
	if i := slices.Index(user.ClubIDs, clubID); i >= 0 {
		user.ClubIDs = slices.Delete(user.ClubIDs, i, i+1)
	}
	return true, nil
}

func (s *memUserStore) RemoveBan(ctx context.Context, ID int64, clubID bson.ObjectID) (bool, error) {
	return s.pull(ID, clubID, true)
}

func (s *memUserStore) pull(ID int64, clubID bson.ObjectID, bans bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[ID]
	if !ok {
		return false, nil
	}
	records := user.Mutes
	if bans {
		records = user.Bans
	}
	for i := range records {
		if records[i].ClubID == clubID {
			records = slices.Delete(records, i, i+1)
			if bans {
				user.Bans = records
			} else {
				user.Mutes = records
			}
			return true, nil
		}
	}
	return false, nil
}

// fakePlatform records every gateway call for assertions.
type fakePlatform struct {
	mu sync.Mutex

	nextID int64

	dms              map[int64][]string
	messages         map[int64][]string
	muteOverrides    map[string]bool
	memberRoles      map[int64][]int64
	occupancy        map[int64]int
	missingChannels  map[int64]bool
	deletedChannels  []int64
	removedOverrides []string
	pinOutcome       platform.PinOutcome

	overrideRemoveErr error
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		nextID:          1000,
		dms:             map[int64][]string{},
		messages:        map[int64][]string{},
		muteOverrides:   map[string]bool{},
		memberRoles:     map[int64][]int64{},
		occupancy:       map[int64]int{},
		missingChannels: map[int64]bool{},
		pinOutcome:      platform.Pinned,
	}
}

func overrideKey(channelID, userID int64) string {
	return fmt.Sprintf("%d:%d", channelID, userID)
}

func (p *fakePlatform) allocID() int64 {
	p.nextID++
	return p.nextID
}

func (p *fakePlatform) CreateRole(ctx context.Context, name string) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.allocID(), nil
}

func (p *fakePlatform) CreateTextChannel(ctx context.Context, req platform.ChannelRequest) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.allocID(), nil
}

func (p *fakePlatform) CreateVoiceChannel(ctx context.Context, name string, categoryID, roleID, muteRoleID int64) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.allocID(), nil
}

func (p *fakePlatform) DeleteChannel(ctx context.Context, channelID int64, reason string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.missingChannels[channelID] {
		return platform.ErrNotFound
	}
	p.deletedChannels = append(p.deletedChannels, channelID)
	return nil
}

func (p *fakePlatform) SetMuteOverride(ctx context.Context, channelID, userID int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.muteOverrides[overrideKey(channelID, userID)] = true
	return nil
}

func (p *fakePlatform) RemoveMemberOverride(ctx context.Context, channelID, userID int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.overrideRemoveErr != nil {
		return p.overrideRemoveErr
	}
	delete(p.muteOverrides, overrideKey(channelID, userID))
	p.removedOverrides = append(p.removedOverrides, overrideKey(channelID, userID))
	return nil
}

func (p *fakePlatform) GrantRole(ctx context.Context, userID, roleID int64, reason string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !slices.Contains(p.memberRoles[userID], roleID) {
		p.memberRoles[userID] = append(p.memberRoles[userID], roleID)
	}
	return nil
}

func (p *fakePlatform) RevokeRole(ctx context.Context, userID, roleID int64, reason string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	roles := p.memberRoles[userID]
	if i := slices.Index(roles, roleID); i >= 0 {
		p.memberRoles[userID] = slices.Delete(roles, i, i+1)
	}
	return nil
}

func (p *fakePlatform) SendMessage(ctx context.Context, channelID int64, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages[channelID] = append(p.messages[channelID], text)
	return nil
}

func (p *fakePlatform) SendDirectMessage(ctx context.Context, userID int64, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dms[userID] = append(p.dms[userID], text)
	return nil
}

func (p *fakePlatform) PinMessage(ctx context.Context, channelID, messageID int64) (platform.PinOutcome, error) {
	return p.pinOutcome, nil
}

func (p *fakePlatform) DeleteMessage(ctx context.Context, channelID, messageID int64) error {
	return nil
}

func (p *fakePlatform) VoiceOccupancy(ctx context.Context, channelID int64) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.missingChannels[channelID] {
		return 0, platform.ErrNotFound
	}
	return p.occupancy[channelID], nil
}

func (p *fakePlatform) MemberRoles(ctx context.Context, userID int64) ([]int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.memberRoles[userID]), nil
}
