package service

import (
	"context"
	"time"

	"github.com/DillonB07/club-bot/entity"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// ClubStore is the storage boundary for club records. Implemented by
// repository.ClubRepository. Conditional writes report whether they actually
// changed anything so callers can tell an applied transition from a no-op.
type ClubStore interface {
	FindAll(ctx context.Context) ([]*entity.Club, error)
	FindOneByID(ctx context.Context, ID bson.ObjectID) (*entity.Club, error)
	FindOneByChannel(ctx context.Context, channelID int64) (*entity.Club, error)
	InsertOne(ctx context.Context, club *entity.Club) (bson.ObjectID, error)
	DeleteOnePending(ctx context.Context, ID bson.ObjectID) (bool, error)
	SetVerified(ctx context.Context, ID bson.ObjectID, channelID, roleID int64) (bool, error)
	SetBubble(ctx context.Context, ID bson.ObjectID, bubbleID int64) (bool, error)
	ClearBubble(ctx context.Context, ID bson.ObjectID) error
	ApplyPatch(ctx context.Context, ID bson.ObjectID, patch entity.ClubPatch) error
}

// UserStore is the storage boundary for user records. Implemented by
// repository.UserRepository.
type UserStore interface {
	FindAll(ctx context.Context) ([]*entity.User, error)
	FindOneByID(ctx context.Context, ID int64) (*entity.User, error)
	ReserveOwnership(ctx context.Context, ID int64) (bool, error)
	ClearOwnership(ctx context.Context, ID int64) error
	AddMembership(ctx context.Context, ID int64, clubID bson.ObjectID) (bool, error)
	RemoveMembership(ctx context.Context, ID int64, clubID bson.ObjectID) (bool, error)
	UpsertMute(ctx context.Context, ID int64, clubID bson.ObjectID, expiration time.Time) error
	RemoveMute(ctx context.Context, ID int64, clubID bson.ObjectID) (bool, error)
	InsertBan(ctx context.Context, ID int64, clubID bson.ObjectID, expiration *time.Time) (bool, error)
	RemoveBan(ctx context.Context, ID int64, clubID bson.ObjectID) (bool, error)
}
