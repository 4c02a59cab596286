package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"golang.org/x/exp/slices"
)

type User struct {
	ID       int64           `bson:"_id" json:"id"`
	ClubIDs  []bson.ObjectID `bson:"clubs,omitempty" json:"clubs,omitempty"`
	OwnsClub bool            `bson:"owns_club,omitempty" json:"owns_club,omitempty"`
	Mutes    []Sanction      `bson:"mutes,omitempty" json:"mutes,omitempty"`
	Bans     []Sanction      `bson:"bans,omitempty" json:"bans,omitempty"`
}

// Sanction is a mute or ban scoped to one club. A nil expiration means the
// sanction never expires (permanent bans only).
type Sanction struct {
	ClubID     bson.ObjectID `bson:"club_id" json:"club_id"`
	Expiration *time.Time    `bson:"expiration" json:"expiration"`
}

func (s Sanction) Expired(now time.Time) bool {
	return s.Expiration != nil && !s.Expiration.After(now)
}

func (u *User) IsMember(clubID bson.ObjectID) bool {
	return slices.Contains(u.ClubIDs, clubID)
}

// BanFor returns the user's ban for the club, if any.
func (u *User) BanFor(clubID bson.ObjectID) (Sanction, bool) {
	for _, ban := range u.Bans {
		if ban.ClubID == clubID {
			return ban, true
		}
	}
	return Sanction{}, false
}

func (u *User) MuteFor(clubID bson.ObjectID) (Sanction, bool) {
	for _, mute := range u.Mutes {
		if mute.ClubID == clubID {
			return mute, true
		}
	}
	return Sanction{}, false
}
