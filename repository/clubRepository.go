package repository

import (
	"context"
	"errors"

	"github.com/DillonB07/club-bot/entity"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

type ClubRepository struct {
	mongoClient *mongo.Client
	database    string
}

func NewClubRepository(mongoClient *mongo.Client, database string) *ClubRepository {
	return &ClubRepository{
		mongoClient: mongoClient,
		database:    database,
	}
}

func (r *ClubRepository) collection() *mongo.Collection {
	return r.mongoClient.Database(r.database).Collection("clubs")
}

func (r *ClubRepository) FindAll(ctx context.Context) ([]*entity.Club, error) {
	cur, err := r.collection().Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}

	var clubs []*entity.Club
	err = cur.All(ctx, &clubs)
	if err != nil {
		return nil, err
	}

	return clubs, nil
}

func (r *ClubRepository) FindOneByID(ctx context.Context, ID bson.ObjectID) (*entity.Club, error) {
	clubs, err := r.find(ctx, bson.M{"_id": ID})
	if err != nil {
		return nil, err
	}

	return clubs[0], nil
}

func (r *ClubRepository) FindOneByChannel(ctx context.Context, channelID int64) (*entity.Club, error) {
	clubs, err := r.find(ctx, bson.M{"channel": channelID})
	if err != nil {
		return nil, err
	}

	return clubs[0], nil
}

func (r *ClubRepository) find(ctx context.Context, m bson.M) ([]*entity.Club, error) {
	cur, err := r.collection().Find(ctx, m)
	if err != nil {
		return nil, err
	}

	var clubs []*entity.Club
	err = cur.All(ctx, &clubs)
	if err != nil {
		return nil, err
	}

	if len(clubs) == 0 {
		return nil, ErrNotFound
	}

	return clubs, nil
}

func (r *ClubRepository) InsertOne(ctx context.Context, club *entity.Club) (bson.ObjectID, error) {
	if club.ID.IsZero() {
		club.ID = bson.NewObjectID()
	}

	_, err := r.collection().InsertOne(ctx, club)
	if err != nil {
		return bson.ObjectID{}, err
	}

	return club.ID, nil
}

// DeleteOnePending removes the club only while it is still pending review.
// It reports whether a record was actually deleted.
func (r *ClubRepository) DeleteOnePending(ctx context.Context, ID bson.ObjectID) (bool, error) {
	filter := bson.M{
		"_id":          ID,
		"verification": entity.VerificationPending,
	}

	result, err := r.collection().DeleteOne(ctx, filter)
	if err != nil {
		return false, err
	}

	return result.DeletedCount > 0, nil
}

// SetVerified marks a pending club verified and records its provisioned
// channel and role. It reports whether the transition was applied; a false
// result means the club was no longer pending (or no longer exists).
func (r *ClubRepository) SetVerified(ctx context.Context, ID bson.ObjectID, channelID, roleID int64) (bool, error) {
	filter := bson.M{
		"_id":          ID,
		"verification": entity.VerificationPending,
	}

	update := bson.M{
		"$set": bson.M{
			"verification": entity.VerificationVerified,
			"channel":      channelID,
			"role":         roleID,
		},
	}

	result, err := r.collection().UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}

	return result.ModifiedCount > 0, nil
}

// SetBubble records the club's voice room. The filter admits only a club
// without a live bubble, so concurrent creations resolve to one winner; a
// false result means another bubble is already stored.
func (r *ClubRepository) SetBubble(ctx context.Context, ID bson.ObjectID, bubbleID int64) (bool, error) {
	filter := bson.M{
		"_id":    ID,
		"bubble": bson.M{"$in": bson.A{nil, int64(0)}},
	}

	update := bson.M{
		"$set": bson.M{
			"bubble": bubbleID,
		},
	}

	result, err := r.collection().UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}

	return result.ModifiedCount > 0, nil
}

func (r *ClubRepository) ClearBubble(ctx context.Context, ID bson.ObjectID) error {
	update := bson.M{
		"$set": bson.M{
			"bubble": int64(0),
		},
	}

	_, err := r.collection().UpdateOne(ctx, bson.M{"_id": ID}, update)
	return err
}

// ApplyPatch sets only the fields present in the patch.
func (r *ClubRepository) ApplyPatch(ctx context.Context, ID bson.ObjectID, patch entity.ClubPatch) error {
	if patch.IsZero() {
		return errors.New("empty patch")
	}

	set := bson.M{}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Topic != nil {
		set["topic"] = *patch.Topic
	}
	if patch.ModIDs != nil {
		set["mods"] = *patch.ModIDs
	}
	if patch.ModPerms != nil {
		set["mod_perms"] = *patch.ModPerms
	}

	result, err := r.collection().UpdateOne(ctx, bson.M{"_id": ID}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}

	return nil
}
