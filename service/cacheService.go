package service

import (
	"context"
	"sort"
	"sync/atomic"
	"time"

	"github.com/DillonB07/club-bot/entity"
	"github.com/hbollon/go-edlib"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Snapshot is an immutable point-in-time copy of the registry. Readers get
// the whole snapshot or none of it; a refresh swaps the pointer in one store.
type Snapshot struct {
	Clubs       []*entity.Club
	Users       []*entity.User
	RefreshedAt time.Time
}

func (s *Snapshot) userByID(userID int64) *entity.User {
	for _, user := range s.Users {
		if user.ID == userID {
			return user
		}
	}
	return nil
}

// CacheService keeps a bounded-staleness read copy of clubs and users for
// low-latency queries. It has no write authority and must never back an
// authorization or write decision; results are stale by up to the staleness
// window plus the refresh interval.
type CacheService struct {
	clubStore ClubStore
	userStore UserStore

	staleAfter time.Duration
	interval   time.Duration

	snapshot atomic.Pointer[Snapshot]

	now func() time.Time
}

func NewCacheService(clubStore ClubStore, userStore UserStore, staleAfter, interval time.Duration) *CacheService {
	s := &CacheService{
		clubStore:  clubStore,
		userStore:  userStore,
		staleAfter: staleAfter,
		interval:   interval,
		now:        time.Now,
	}
	s.snapshot.Store(&Snapshot{})
	return s
}

// Refresh fetches both collections and swaps in a new snapshot. Without
// force it is a no-op while the current snapshot is inside the staleness
// window.
func (s *CacheService) Refresh(ctx context.Context, force bool) error {
	if !force && s.now().Sub(s.Snapshot().RefreshedAt) <= s.staleAfter {
		return nil
	}

	var clubs []*entity.Club
	var users []*entity.User

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		clubs, err = s.clubStore.FindAll(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		users, err = s.userStore.FindAll(ctx)
		return err
	})

	err := g.Wait()
	if err != nil {
		return err
	}

	s.snapshot.Store(&Snapshot{
		Clubs:       clubs,
		Users:       users,
		RefreshedAt: s.now(),
	})

	return nil
}

func (s *CacheService) Snapshot() *Snapshot {
	return s.snapshot.Load()
}

// Run refreshes the cache on a fixed interval until the context is
// cancelled.
func (s *CacheService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := s.Refresh(ctx, false)
			if err != nil {
				log.Error().Err(err).Msg("Failed to refresh cache")
			}
		}
	}
}

// UnverifiedClubs returns the clubs still pending review.
func (s *CacheService) UnverifiedClubs() []*entity.Club {
	var clubs []*entity.Club
	for _, club := range s.Snapshot().Clubs {
		if club.Verification == entity.VerificationPending {
			clubs = append(clubs, club)
		}
	}
	return clubs
}

// JoinableClubs returns the verified clubs the user has not joined and is
// not actively banned from.
func (s *CacheService) JoinableClubs(userID int64) []*entity.Club {
	snapshot := s.Snapshot()
	user := snapshot.userByID(userID)
	now := s.now()

	var clubs []*entity.Club
	for _, club := range snapshot.Clubs {
		if !club.IsVerified() {
			continue
		}
		if user != nil {
			if user.IsMember(club.ID) {
				continue
			}
			if ban, ok := user.BanFor(club.ID); ok && !ban.Expired(now) {
				continue
			}
		}
		clubs = append(clubs, club)
	}
	return clubs
}

// LeavableClubs returns the clubs the user belongs to and may leave, which
// excludes the club they own.
func (s *CacheService) LeavableClubs(userID int64) []*entity.Club {
	snapshot := s.Snapshot()
	user := snapshot.userByID(userID)
	if user == nil {
		return nil
	}

	var clubs []*entity.Club
	for _, club := range snapshot.Clubs {
		if club.OwnerID != userID && user.IsMember(club.ID) {
			clubs = append(clubs, club)
		}
	}
	return clubs
}

// SearchClubs ranks verified clubs by name similarity to the query.
func (s *CacheService) SearchClubs(query string) []*entity.Club {
	type scored struct {
		club       *entity.Club
		similarity float32
	}

	var matches []scored
	for _, club := range s.Snapshot().Clubs {
		if !club.IsVerified() {
			continue
		}
		similarity, err := edlib.StringsSimilarity(query, club.Name, edlib.Levenshtein)
		if err != nil {
			continue
		}
		if similarity > 0.3 {
			matches = append(matches, scored{club: club, similarity: similarity})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].similarity > matches[j].similarity
	})

	clubs := make([]*entity.Club, len(matches))
	for i, match := range matches {
		clubs[i] = match.club
	}
	return clubs
}
