package repository

import (
	"context"
	"errors"
	"time"

	"github.com/DillonB07/club-bot/entity"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type UserRepository struct {
	mongoClient *mongo.Client
	database    string
}

func NewUserRepository(mongoClient *mongo.Client, database string) *UserRepository {
	return &UserRepository{
		mongoClient: mongoClient,
		database:    database,
	}
}

func (r *UserRepository) collection() *mongo.Collection {
	return r.mongoClient.Database(r.database).Collection("users")
}

func (r *UserRepository) FindAll(ctx context.Context) ([]*entity.User, error) {
	cur, err := r.collection().Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}

	var users []*entity.User
	err = cur.All(ctx, &users)
	if err != nil {
		return nil, err
	}

	return users, nil
}

func (r *UserRepository) FindOneByID(ctx context.Context, ID int64) (*entity.User, error) {
	var user entity.User
	err := r.collection().FindOne(ctx, bson.M{"_id": ID}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// ReserveOwnership sets owns_club on the user, creating the record if needed,
// and reports whether the reservation was won. A false result means the user
// already owned a club.
func (r *UserRepository) ReserveOwnership(ctx context.Context, ID int64) (bool, error) {
	filter := bson.M{"_id": ID}
	update := bson.M{
		"$set": bson.M{
			"owns_club": true,
		},
	}

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.Before)

	var before entity.User
	err := r.collection().FindOneAndUpdate(ctx, filter, update, opts).Decode(&before)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return true, nil
	}
	if err != nil {
		return false, err
	}

	return !before.OwnsClub, nil
}

func (r *UserRepository) ClearOwnership(ctx context.Context, ID int64) error {
	update := bson.M{
		"$set": bson.M{
			"owns_club": false,
		},
	}

	_, err := r.collection().UpdateOne(ctx, bson.M{"_id": ID}, update)
	return err
}

// AddMembership adds the club to the user's joined set, creating the user
// record if needed. It reports whether the membership was new.
func (r *UserRepository) AddMembership(ctx context.Context, ID int64, clubID bson.ObjectID) (bool, error) {
	filter := bson.M{"_id": ID}
	update := bson.M{
		"$addToSet": bson.M{
			"clubs": clubID,
		},
	}

	opts := options.UpdateOne().SetUpsert(true)

	result, err := r.collection().UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return false, err
	}

	return result.ModifiedCount > 0 || result.UpsertedID != nil, nil
}

func (r *UserRepository) RemoveMembership(ctx context.Context, ID int64, clubID bson.ObjectID) (bool, error) {
	filter := bson.M{"_id": ID}
	update := bson.M{
		"$pull": bson.M{
			"clubs": clubID,
		},
	}

	result, err := r.collection().UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}

	return result.ModifiedCount > 0, nil
}

// UpsertMute refreshes the expiration of the user's mute for the club, or
// pushes a new record if none exists. At most one mute per (user, club) ever
// results.
func (r *UserRepository) UpsertMute(ctx context.Context, ID int64, clubID bson.ObjectID, expiration time.Time) error {
	filter := bson.M{
		"_id":           ID,
		"mutes.club_id": clubID,
	}

	update := bson.M{
		"$set": bson.M{
			"mutes.$.expiration": expiration,
		},
	}

	result, err := r.collection().UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount > 0 {
		return nil
	}

	filter = bson.M{
		"_id":           ID,
		"mutes.club_id": bson.M{"$ne": clubID},
	}

	update = bson.M{
		"$push": bson.M{
			"mutes": entity.Sanction{ClubID: clubID, Expiration: &expiration},
		},
	}

	result, err = r.collection().UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *UserRepository) RemoveMute(ctx context.Context, ID int64, clubID bson.ObjectID) (bool, error) {
	return r.pullSanction(ctx, ID, clubID, "mutes")
}

// InsertBan atomically records the ban and revokes the user's membership in
// the club as one document operation. It reports whether the ban was applied;
// a false result means the user already holds a ban for the club.
// ErrNotFound means the user record does not exist.
func (r *UserRepository) InsertBan(ctx context.Context, ID int64, clubID bson.ObjectID, expiration *time.Time) (bool, error) {
	filter := bson.M{
		"_id":          ID,
		"bans.club_id": bson.M{"$ne": clubID},
	}

	update := bson.M{
		"$push": bson.M{
			"bans": entity.Sanction{ClubID: clubID, Expiration: expiration},
		},
		"$pull": bson.M{
			"clubs": clubID,
		},
	}

	result, err := r.collection().UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	if result.MatchedCount > 0 {
		return true, nil
	}

	// No match: the user either holds a ban already or has no record at all.
	count, err := r.collection().CountDocuments(ctx, bson.M{"_id": ID})
	if err != nil {
		return false, err
	}
	if count == 0 {
		return false, ErrNotFound
	}

	return false, nil
}

func (r *UserRepository) RemoveBan(ctx context.Context, ID int64, clubID bson.ObjectID) (bool, error) {
	return r.pullSanction(ctx, ID, clubID, "bans")
}

func (r *UserRepository) pullSanction(ctx context.Context, ID int64, clubID bson.ObjectID, field string) (bool, error) {
	filter := bson.M{"_id": ID}
	update := bson.M{
		"$pull": bson.M{
			field: bson.M{"club_id": clubID},
		},
	}

	result, err := r.collection().UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}

	return result.ModifiedCount > 0, nil
}
