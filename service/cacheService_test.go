package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DillonB07/club-bot/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func newCacheFixture(t *testing.T) (*CacheService, *memClubStore, *memUserStore) {
	t.Helper()

	clubs := newMemClubStore()
	users := newMemUserStore()
	svc := NewCacheService(clubs, users, 30*time.Second, 40*time.Second)
	return svc, clubs, users
}

func TestRefreshPopulatesSnapshot(t *testing.T) {
	svc, clubs, users := newCacheFixture(t)

	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	clubID := bson.NewObjectID()
	clubs.clubs[clubID] = &entity.Club{ID: clubID, OwnerID: 1, Name: "Chess"}
	users.users[1] = &entity.User{ID: 1, OwnsClub: true}

	assert.Empty(t, svc.Snapshot().Clubs, "snapshot starts empty")

	require.NoError(t, svc.Refresh(context.Background(), true))

	snapshot := svc.Snapshot()
	assert.Len(t, snapshot.Clubs, 1)
	assert.Len(t, snapshot.Users, 1)
	assert.Equal(t, now, snapshot.RefreshedAt)
}

func TestRefreshHonorsStalenessWindow(t *testing.T) {
	svc, clubs, _ := newCacheFixture(t)

	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	require.NoError(t, svc.Refresh(context.Background(), true))
	first := svc.Snapshot()

	clubID := bson.NewObjectID()
	clubs.clubs[clubID] = &entity.Club{ID: clubID, Name: "Chess"}

	// Inside the window an unforced refresh leaves the snapshot alone.
	now = now.Add(20 * time.Second)
	require.NoError(t, svc.Refresh(context.Background(), false))
	assert.Same(t, first, svc.Snapshot())

	// Forcing bypasses the window.
	require.NoError(t, svc.Refresh(context.Background(), true))
	assert.Len(t, svc.Snapshot().Clubs, 1)
}

func TestRefreshAfterWindowElapses(t *testing.T) {
	svc, clubs, _ := newCacheFixture(t)

	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	require.NoError(t, svc.Refresh(context.Background(), true))

	clubID := bson.NewObjectID()
	clubs.clubs[clubID] = &entity.Club{ID: clubID, Name: "Chess"}

	now = now.Add(31 * time.Second)
	require.NoError(t, svc.Refresh(context.Background(), false))

	snapshot := svc.Snapshot()
	assert.Len(t, snapshot.Clubs, 1)
	assert.Equal(t, now, snapshot.RefreshedAt)
}

func TestRefreshKeepsOldSnapshotOnError(t *testing.T) {
	svc, clubs, _ := newCacheFixture(t)

	clubID := bson.NewObjectID()
	clubs.clubs[clubID] = &entity.Club{ID: clubID, Name: "Chess"}

	require.NoError(t, svc.Refresh(context.Background(), true))
	before := svc.Snapshot()

	clubs.findAllErr = errors.New("connection reset")
	err := svc.Refresh(context.Background(), true)
	assert.Error(t, err)
	assert.Same(t, before, svc.Snapshot(), "readers keep serving the last good snapshot")
}

func TestUnverifiedClubs(t *testing.T) {
	svc, clubs, _ := newCacheFixture(t)

	pendingID := bson.NewObjectID()
	verifiedID := bson.NewObjectID()
	clubs.clubs[pendingID] = &entity.Club{ID: pendingID, Name: "Chess", Verification: entity.VerificationPending}
	clubs.clubs[verifiedID] = &entity.Club{ID: verifiedID, Name: "Cooking", Verification: entity.VerificationVerified}

	require.NoError(t, svc.Refresh(context.Background(), true))

	pending := svc.UnverifiedClubs()
	require.Len(t, pending, 1)
	assert.Equal(t, pendingID, pending[0].ID)
}

func TestJoinableClubs(t *testing.T) {
	svc, clubs, users := newCacheFixture(t)

	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	joinedID := bson.NewObjectID()
	bannedID := bson.NewObjectID()
	openID := bson.NewObjectID()
	pendingID := bson.NewObjectID()
	clubs.clubs[joinedID] = &entity.Club{ID: joinedID, Name: "Chess", Verification: entity.VerificationVerified}
	clubs.clubs[bannedID] = &entity.Club{ID: bannedID, Name: "Cooking", Verification: entity.VerificationVerified}
	clubs.clubs[openID] = &entity.Club{ID: openID, Name: "Cycling", Verification: entity.VerificationVerified}
	clubs.clubs[pendingID] = &entity.Club{ID: pendingID, Name: "Chemistry", Verification: entity.VerificationPending}

	future := now.Add(time.Hour)
	users.users[7] = &entity.User{
		ID:      7,
		ClubIDs: []bson.ObjectID{joinedID},
		Bans:    []entity.Sanction{{ClubID: bannedID, Expiration: &future}},
	}

	require.NoError(t, svc.Refresh(context.Background(), true))

	joinable := svc.JoinableClubs(7)
	require.Len(t, joinable, 1)
	assert.Equal(t, openID, joinable[0].ID)

	// An unknown user may join any verified club.
	assert.Len(t, svc.JoinableClubs(99), 3)
}

func TestJoinableClubsExpiredBan(t *testing.T) {
	svc, clubs, users := newCacheFixture(t)

	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	clubID := bson.NewObjectID()
	clubs.clubs[clubID] = &entity.Club{ID: clubID, Name: "Chess", Verification: entity.VerificationVerified}

	past := now.Add(-time.Minute)
	users.users[7] = &entity.User{
		ID:   7,
		Bans: []entity.Sanction{{ClubID: clubID, Expiration: &past}},
	}

	require.NoError(t, svc.Refresh(context.Background(), true))

	assert.Len(t, svc.JoinableClubs(7), 1, "a ban that has run out no longer hides the club")
}

func TestLeavableClubs(t *testing.T) {
	svc, clubs, users := newCacheFixture(t)

	ownedID := bson.NewObjectID()
	joinedID := bson.NewObjectID()
	clubs.clubs[ownedID] = &entity.Club{ID: ownedID, OwnerID: 7, Name: "Chess", Verification: entity.VerificationVerified}
	clubs.clubs[joinedID] = &entity.Club{ID: joinedID, OwnerID: 1, Name: "Cooking", Verification: entity.VerificationVerified}

	users.users[7] = &entity.User{
		ID:       7,
		OwnsClub: true,
		ClubIDs:  []bson.ObjectID{ownedID, joinedID},
	}

	require.NoError(t, svc.Refresh(context.Background(), true))

	leavable := svc.LeavableClubs(7)
	require.Len(t, leavable, 1)
	assert.Equal(t, joinedID, leavable[0].ID)

	assert.Empty(t, svc.LeavableClubs(99))
}

func TestSearchClubs(t *testing.T) {
	svc, clubs, _ := newCacheFixture(t)

	chessID := bson.NewObjectID()
	chestsID := bson.NewObjectID()
	cookingID := bson.NewObjectID()
	pendingID := bson.NewObjectID()
	clubs.clubs[chessID] = &entity.Club{ID: chessID, Name: "Chess", Verification: entity.VerificationVerified}
	clubs.clubs[chestsID] = &entity.Club{ID: chestsID, Name: "Chests", Verification: entity.VerificationVerified}
	clubs.clubs[cookingID] = &entity.Club{ID: cookingID, Name: "Woodworking", Verification: entity.VerificationVerified}
	clubs.clubs[pendingID] = &entity.Club{ID: pendingID, Name: "Chess Pending", Verification: entity.VerificationPending}

	require.NoError(t, svc.Refresh(context.Background(), true))

	results := svc.SearchClubs("chess")
	require.Len(t, results, 2, "close names match, distant and pending ones do not")
	assert.Equal(t, chessID, results[0].ID, "exact match ranks first")
	assert.Equal(t, chestsID, results[1].ID)
}
