package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"mboa/contexts/lottery-games/challenge-service/domain/entities"
	domainerrors "mboa/contexts/lottery-games/challenge-service/domain/errors"
	"mboa/contexts/lottery-games/challenge-service/ports"

	"github.com/google/uuid"
)

// Store is the in-memory challenge repository used by tests and local mode.
// It also serves as clock and id generator when the module is wired without
// Postgres.
type Store struct {
	mu sync.RWMutex

	challenges    map[string]entities.ImpactChallenge
	entrepreneurs map[string]entities.Entrepreneur
	votes         map[string]entities.ChallengeVote

	nowFunc func() time.Time
}

func NewStore() *Store {
	return &Store{
		challenges:    make(map[string]entities.ImpactChallenge),
		entrepreneurs: make(map[string]entities.Entrepreneur),
		votes:         make(map[string]entities.ChallengeVote),
	}
}

// SetNowFunc pins the store clock so tests can control time.
func (s *Store) SetNowFunc(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nowFunc = now
}

// SetChallenge seeds a challenge directly, bypassing lifecycle rules.
func (s *Store) SetChallenge(challenge entities.ImpactChallenge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.challenges[challenge.ChallengeID] = challenge
}

func (s *Store) CreateChallenge(ctx context.Context, challenge entities.ImpactChallenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.challenges[challenge.ChallengeID]; ok {
		return domainerrors.ErrConflict
	}
	for _, existing := range s.challenges {
		if existing.Month == challenge.Month && existing.Year == challenge.Year {
			return domainerrors.ErrConflict
		}
	}
	s.challenges[challenge.ChallengeID] = challenge
	return nil
}

func (s *Store) GetChallenge(ctx context.Context, challengeID string) (entities.ImpactChallenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	challenge, ok := s.challenges[strings.TrimSpace(challengeID)]
	if !ok {
		return entities.ImpactChallenge{}, domainerrors.ErrChallengeNotFound
	}
	return challenge, nil
}

func (s *Store) FindChallengeByPeriod(ctx context.Context, month int, year int) (entities.ImpactChallenge, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, existing := range s.challenges {
		if existing.Month == month && existing.Year == year {
			return existing, true, nil
		}
	}
	return entities.ImpactChallenge{}, false, nil
}

func (s *Store) CurrentChallenge(ctx context.Context) (entities.ImpactChallenge, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest entities.ImpactChallenge
	found := false
	for _, challenge := range s.challenges {
		if challenge.Status == entities.ChallengeActive {
			return challenge, true, nil
		}
		if challenge.Status == entities.ChallengeCancelled {
			continue
		}
		if !found || challenge.Period() > latest.Period() {
			latest = challenge
			found = true
		}
	}
	return latest, found, nil
}

func (s *Store) ListChallenges(ctx context.Context, offset int, limit int) ([]entities.ImpactChallenge, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	challenges := make([]entities.ImpactChallenge, 0, len(s.challenges))
	for _, challenge := range s.challenges {
		challenges = append(challenges, challenge)
	}
	sort.Slice(challenges, func(i, j int) bool { return challenges[i].Period() > challenges[j].Period() })
	total := len(challenges)
	return paginate(challenges, offset, limit), total, nil
}

func (s *Store) UpdateChallenge(ctx context.Context, challenge entities.ImpactChallenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.challenges[challenge.ChallengeID]; !ok {
		return domainerrors.ErrChallengeNotFound
	}
	s.challenges[challenge.ChallengeID] = challenge
	return nil
}

func (s *Store) DeleteChallenge(ctx context.Context, challengeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.challenges[challengeID]; !ok {
		return domainerrors.ErrChallengeNotFound
	}
	delete(s.challenges, challengeID)
	for id, entrepreneur := range s.entrepreneurs {
		if entrepreneur.ChallengeID == challengeID {
			delete(s.entrepreneurs, id)
		}
	}
	return nil
}

func (s *Store) TransitionStatus(ctx context.Context, challengeID string, from entities.ChallengeStatus, to entities.ChallengeStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	challenge, ok := s.challenges[challengeID]
	if !ok {
		return false, domainerrors.ErrChallengeNotFound
	}
	if challenge.Status != from {
		return false, nil
	}
	challenge.Status = to
	challenge.UpdatedAt = s.now()
	s.challenges[challengeID] = challenge
	return true, nil
}

func (s *Store) ApplyChallengeTotals(ctx context.Context, challengeID string, amount int64, votes int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	challenge, ok := s.challenges[challengeID]
	if !ok {
		return domainerrors.ErrChallengeNotFound
	}
	challenge.TotalCollected += amount
	challenge.TotalVoteCount += votes
	challenge.UpdatedAt = s.now()
	s.challenges[challengeID] = challenge
	return nil
}

func (s *Store) RecordDistribution(ctx context.Context, challengeID string, dist entities.Distribution) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	challenge, ok := s.challenges[challengeID]
	if !ok {
		return false, domainerrors.ErrChallengeNotFound
	}
	if challenge.FundsDistributed {
		return false, nil
	}
	challenge.FundsDistributed = true
	challenge.Distribution = dist
	challenge.Status = entities.ChallengeFundsDistributed
	challenge.UpdatedAt = s.now()
	s.challenges[challengeID] = challenge
	return true, nil
}

func (s *Store) CreateEntrepreneur(ctx context.Context, entrepreneur entities.Entrepreneur) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entrepreneurs[entrepreneur.EntrepreneurID]; ok {
		return domainerrors.ErrConflict
	}
	// A user joins a challenge roster at most once; entries without a linked
	// user account are unconstrained.
	if entrepreneur.UserID != "" {
		for _, existing := range s.entrepreneurs {
			if existing.ChallengeID == entrepreneur.ChallengeID && existing.UserID == entrepreneur.UserID {
				return domainerrors.ErrConflict
			}
		}
	}
	s.entrepreneurs[entrepreneur.EntrepreneurID] = entrepreneur
	return nil
}

func (s *Store) GetEntrepreneur(ctx context.Context, entrepreneurID string) (entities.Entrepreneur, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entrepreneur, ok := s.entrepreneurs[strings.TrimSpace(entrepreneurID)]
	if !ok {
		return entities.Entrepreneur{}, domainerrors.ErrEntrepreneurNotFound
	}
	return entrepreneur, nil
}

func (s *Store) ListEntrepreneurs(ctx context.Context, challengeID string, approvedOnly bool) ([]entities.Entrepreneur, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entrepreneurs := make([]entities.Entrepreneur, 0)
	for _, entrepreneur := range s.entrepreneurs {
		if entrepreneur.ChallengeID != challengeID {
			continue
		}
		if approvedOnly && !entrepreneur.Approved {
			continue
		}
		entrepreneurs = append(entrepreneurs, entrepreneur)
	}
	sortEntrepreneursByStanding(entrepreneurs)
	return entrepreneurs, nil
}

func (s *Store) CountEntrepreneurs(ctx context.Context, challengeID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, entrepreneur := range s.entrepreneurs {
		if entrepreneur.ChallengeID == challengeID {
			count++
		}
	}
	return count, nil
}

func (s *Store) UpdateEntrepreneur(ctx context.Context, entrepreneur entities.Entrepreneur) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entrepreneurs[entrepreneur.EntrepreneurID]; !ok {
		return domainerrors.ErrEntrepreneurNotFound
	}
	s.entrepreneurs[entrepreneur.EntrepreneurID] = entrepreneur
	return nil
}

func (s *Store) ApproveEntrepreneur(ctx context.Context, entrepreneurID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entrepreneur, ok := s.entrepreneurs[entrepreneurID]
	if !ok {
		return domainerrors.ErrEntrepreneurNotFound
	}
	if entrepreneur.Approved {
		return nil
	}
	entrepreneur.Approved = true
	entrepreneur.UpdatedAt = s.now()
	s.entrepreneurs[entrepreneurID] = entrepreneur
	return nil
}

func (s *Store) DeleteEntrepreneur(ctx context.Context, entrepreneurID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entrepreneurs[entrepreneurID]; !ok {
		return domainerrors.ErrEntrepreneurNotFound
	}
	delete(s.entrepreneurs, entrepreneurID)
	return nil
}

func (s *Store) ApplyEntrepreneurVote(ctx context.Context, entrepreneurID string, votes int, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entrepreneur, ok := s.entrepreneurs[entrepreneurID]
	if !ok {
		return domainerrors.ErrEntrepreneurNotFound
	}
	entrepreneur.VoteCount += votes
	entrepreneur.TotalAmount += amount
	entrepreneur.UpdatedAt = s.now()
	s.entrepreneurs[entrepreneurID] = entrepreneur
	return nil
}

func (s *Store) SetRanking(ctx context.Context, challengeID string, ranks []ports.EntrepreneurRank) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rank := range ranks {
		entrepreneur, ok := s.entrepreneurs[rank.EntrepreneurID]
		if !ok {
			return domainerrors.ErrEntrepreneurNotFound
		}
		if entrepreneur.ChallengeID != challengeID {
			return domainerrors.ErrEntrepreneurMismatch
		}
		entrepreneur.Rank = rank.Rank
		entrepreneur.IsWinner = rank.IsWinner
		entrepreneur.UpdatedAt = s.now()
		s.entrepreneurs[rank.EntrepreneurID] = entrepreneur
	}
	return nil
}

func (s *Store) CreateVote(ctx context.Context, vote entities.ChallengeVote) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.votes[vote.VoteID]; ok {
		return domainerrors.ErrConflict
	}
	s.votes[vote.VoteID] = cloneVote(vote)
	return nil
}

func (s *Store) GetVote(ctx context.Context, voteID string) (entities.ChallengeVote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	vote, ok := s.votes[strings.TrimSpace(voteID)]
	if !ok {
		return entities.ChallengeVote{}, domainerrors.ErrVoteNotFound
	}
	return cloneVote(vote), nil
}

func (s *Store) FindVoteByPaymentIntent(ctx context.Context, sessionID string) (entities.ChallengeVote, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, vote := range s.votes {
		if vote.PaymentIntentID != "" && vote.PaymentIntentID == sessionID {
			return cloneVote(vote), true, nil
		}
	}
	return entities.ChallengeVote{}, false, nil
}

func (s *Store) SetVoteSession(ctx context.Context, voteID string, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	vote, ok := s.votes[voteID]
	if !ok {
		return domainerrors.ErrVoteNotFound
	}
	vote.PaymentIntentID = sessionID
	vote.UpdatedAt = s.now()
	s.votes[voteID] = vote
	return nil
}

func (s *Store) CompleteVote(ctx context.Context, voteID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	vote, ok := s.votes[voteID]
	if !ok {
		return false, domainerrors.ErrVoteNotFound
	}
	if vote.PaymentStatus != entities.PaymentPending {
		return false, nil
	}
	vote.PaymentStatus = entities.PaymentCompleted
	vote.UpdatedAt = s.now()
	s.votes[voteID] = vote
	return true, nil
}

func (s *Store) RecordTicketGeneration(ctx context.Context, voteID string, ticketIDs []string, generated bool, genError string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	vote, ok := s.votes[voteID]
	if !ok {
		return domainerrors.ErrVoteNotFound
	}
	vote.TombolaTicketIDs = append([]string(nil), ticketIDs...)
	vote.TicketsGenerated = generated
	vote.TicketGenerationError = genError
	vote.UpdatedAt = s.now()
	s.votes[voteID] = vote
	return nil
}

func (s *Store) ListVotes(ctx context.Context, challengeID string, offset int, limit int) ([]entities.ChallengeVote, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	votes := make([]entities.ChallengeVote, 0)
	for _, vote := range s.votes {
		if vote.ChallengeID == challengeID {
			votes = append(votes, cloneVote(vote))
		}
	}
	sortVotesNewestFirst(votes)
	total := len(votes)
	return paginate(votes, offset, limit), total, nil
}

func (s *Store) VoteStats(ctx context.Context, challengeID string) (ports.VoteStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := ports.VoteStats{}
	participants := make(map[string]struct{})
	for _, vote := range s.votes {
		if vote.ChallengeID != challengeID || vote.PaymentStatus != entities.PaymentCompleted {
			continue
		}
		switch vote.VoteType {
		case entities.VoteTypeSupport:
			stats.CompletedSupports++
			stats.SupportAmount += vote.AmountPaid
		default:
			stats.CompletedVotes++
			stats.VoteAmount += vote.AmountPaid
		}
		stats.TicketsMinted += len(vote.TombolaTicketIDs)
		if vote.UserID != "" {
			participants[vote.UserID] = struct{}{}
		}
	}
	stats.UniqueParticipants = len(participants)
	return stats, nil
}

// Now implements ports.Clock.
func (s *Store) Now() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.now()
}

// NewID implements ports.IDGenerator.
func (s *Store) NewID(ctx context.Context) (string, error) {
	return uuid.NewString(), nil
}

func (s *Store) now() time.Time {
	if s.nowFunc != nil {
		return s.nowFunc()
	}
	return time.Now().UTC()
}

func cloneVote(vote entities.ChallengeVote) entities.ChallengeVote {
	out := vote
	out.TombolaTicketIDs = append([]string(nil), vote.TombolaTicketIDs...)
	return out
}

// sortEntrepreneursByStanding orders by vote count, then amount, then
// creation time so ties resolve deterministically.
func sortEntrepreneursByStanding(entrepreneurs []entities.Entrepreneur) {
	sort.Slice(entrepreneurs, func(i, j int) bool {
		if entrepreneurs[i].VoteCount != entrepreneurs[j].VoteCount {
			return entrepreneurs[i].VoteCount > entrepreneurs[j].VoteCount
		}
		if entrepreneurs[i].TotalAmount != entrepreneurs[j].TotalAmount {
			return entrepreneurs[i].TotalAmount > entrepreneurs[j].TotalAmount
		}
		return entrepreneurs[i].CreatedAt.Before(entrepreneurs[j].CreatedAt)
	})
}

func sortVotesNewestFirst(votes []entities.ChallengeVote) {
	sort.Slice(votes, func(i, j int) bool {
		if votes[i].CreatedAt.Equal(votes[j].CreatedAt) {
			return votes[i].VoteID > votes[j].VoteID
		}
		return votes[i].CreatedAt.After(votes[j].CreatedAt)
	})
}

func paginate[T any](items []T, offset int, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if limit <= 0 || end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

var (
	_ ports.Repository  = (*Store)(nil)
	_ ports.Clock       = (*Store)(nil)
	_ ports.IDGenerator = (*Store)(nil)
)
