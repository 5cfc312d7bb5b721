package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"mboa/contexts/community-experience/status-service/domain/entities"
	domainerrors "mboa/contexts/community-experience/status-service/domain/errors"
	"mboa/contexts/community-experience/status-service/ports"

	"github.com/google/uuid"
)

// Store is the in-memory status repository used by tests and local mode. It
// also serves as clock and id generator when the module is wired without
// Postgres.
type Store struct {
	mu sync.RWMutex

	statuses     map[string]entities.Status
	interactions []entities.Interaction
	unique       map[string]bool

	nowFunc func() time.Time
}

func NewStore() *Store {
	return &Store{
		statuses: make(map[string]entities.Status),
		unique:   make(map[string]bool),
	}
}

// SetNowFunc pins the store clock so tests can control time.
func (s *Store) SetNowFunc(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nowFunc = now
}

func (s *Store) SetStatus(status entities.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[status.StatusID] = cloneStatus(status)
}

func (s *Store) CreateStatus(ctx context.Context, status entities.Status) (entities.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.statuses[status.StatusID]; ok {
		return entities.Status{}, domainerrors.ErrConflict
	}
	s.statuses[status.StatusID] = cloneStatus(status)
	return cloneStatus(status), nil
}

func (s *Store) GetStatus(ctx context.Context, statusID string) (entities.Status, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status, ok := s.statuses[strings.TrimSpace(statusID)]
	if !ok {
		return entities.Status{}, domainerrors.ErrStatusNotFound
	}
	return cloneStatus(status), nil
}

func (s *Store) ListFeed(ctx context.Context, query ports.FeedQuery) ([]entities.Status, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(query.Filters.Search))
	items := make([]entities.Status, 0)
	for _, status := range s.statuses {
		if !status.Visible(query.Now) {
			continue
		}
		if query.Filters.Category != "" && status.Category != query.Filters.Category {
			continue
		}
		if query.Filters.Country != "" && status.Country != query.Filters.Country {
			continue
		}
		if query.Filters.City != "" && status.City != query.Filters.City {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(status.Content), search) {
			continue
		}
		items = append(items, cloneStatus(status))
	}
	sortStatuses(items, query.Filters.SortBy)
	total := len(items)
	return paginate(items, query.Offset, query.Limit), total, nil
}

func (s *Store) ListByAuthor(ctx context.Context, query ports.AuthorQuery) ([]entities.Status, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.Status, 0)
	for _, status := range s.statuses {
		if status.AuthorID != strings.TrimSpace(query.AuthorID) || status.Deleted {
			continue
		}
		if query.VisibleOnly && !status.Visible(query.Now) {
			continue
		}
		items = append(items, cloneStatus(status))
	}
	sortStatuses(items, "")
	total := len(items)
	return paginate(items, query.Offset, query.Limit), total, nil
}

func (s *Store) SoftDeleteStatus(ctx context.Context, statusID string, now time.Time) (entities.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status, ok := s.statuses[strings.TrimSpace(statusID)]
	if !ok {
		return entities.Status{}, domainerrors.ErrStatusNotFound
	}
	ts := now.UTC()
	status.Deleted = true
	status.DeletedAt = &ts
	status.UpdatedAt = ts
	s.statuses[status.StatusID] = status
	return cloneStatus(status), nil
}

func (s *Store) SoftDeleteExpired(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	ts := now.UTC()
	for id, status := range s.statuses {
		if status.Deleted || status.ExpiresAt.After(ts) {
			continue
		}
		status.Deleted = true
		status.DeletedAt = &ts
		status.UpdatedAt = ts
		s.statuses[id] = status
		count++
	}
	return count, nil
}

func (s *Store) AddInteraction(ctx context.Context, interaction entities.Interaction) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if interaction.Type != entities.InteractionView {
		key := uniqueKey(interaction.StatusID, interaction.UserID, interaction.Type)
		if s.unique[key] {
			return false, nil
		}
		s.unique[key] = true
	}
	s.interactions = append(s.interactions, interaction)
	return true, nil
}

func (s *Store) RemoveInteraction(ctx context.Context, statusID string, userID string, interactionType entities.InteractionType) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := uniqueKey(statusID, userID, interactionType)
	if !s.unique[key] {
		return false, nil
	}
	delete(s.unique, key)
	filtered := s.interactions[:0]
	for _, interaction := range s.interactions {
		if interaction.StatusID == statusID && interaction.UserID == userID && interaction.Type == interactionType {
			continue
		}
		filtered = append(filtered, interaction)
	}
	s.interactions = filtered
	return true, nil
}

func (s *Store) LastViewAt(ctx context.Context, statusID string, userID string) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var last time.Time
	found := false
	for _, interaction := range s.interactions {
		if interaction.Type != entities.InteractionView {
			continue
		}
		if interaction.StatusID != statusID || interaction.UserID != userID {
			continue
		}
		if interaction.CreatedAt.After(last) {
			last = interaction.CreatedAt
			found = true
		}
	}
	return last, found, nil
}

func (s *Store) ViewerFlags(ctx context.Context, statusIDs []string, userID string) (map[string]ports.ViewerFlags, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	flags := make(map[string]ports.ViewerFlags, len(statusIDs))
	for _, statusID := range statusIDs {
		flags[statusID] = ports.ViewerFlags{
			IsLiked:    s.unique[uniqueKey(statusID, userID, entities.InteractionLike)],
			IsReposted: s.unique[uniqueKey(statusID, userID, entities.InteractionRepost)],
		}
	}
	return flags, nil
}

func (s *Store) ListInteractions(ctx context.Context, query ports.InteractionQuery) ([]entities.Interaction, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.Interaction, 0)
	for _, interaction := range s.interactions {
		if interaction.StatusID != strings.TrimSpace(query.StatusID) || interaction.Type != query.Type {
			continue
		}
		items = append(items, interaction)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	total := len(items)
	return paginate(items, query.Offset, query.Limit), total, nil
}

func (s *Store) AdjustCounter(ctx context.Context, statusID string, field ports.CounterField, delta int) (entities.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status, ok := s.statuses[strings.TrimSpace(statusID)]
	if !ok {
		return entities.Status{}, domainerrors.ErrStatusNotFound
	}
	switch field {
	case ports.CounterLikes:
		status.LikesCount = floorZero(status.LikesCount + delta)
	case ports.CounterReposts:
		status.RepostsCount = floorZero(status.RepostsCount + delta)
	case ports.CounterReplies:
		status.RepliesCount = floorZero(status.RepliesCount + delta)
	case ports.CounterViews:
		status.ViewsCount = floorZero(status.ViewsCount + delta)
	default:
		return entities.Status{}, domainerrors.ErrInvalidRequest
	}
	s.statuses[status.StatusID] = status
	return cloneStatus(status), nil
}

func (s *Store) NewID(ctx context.Context) (string, error) {
	return uuid.NewString(), nil
}

func (s *Store) Now() time.Time {
	s.mu.RLock()
	nowFunc := s.nowFunc
	s.mu.RUnlock()
	if nowFunc != nil {
		return nowFunc().UTC()
	}
	return time.Now().UTC()
}

func uniqueKey(statusID string, userID string, interactionType entities.InteractionType) string {
	return strings.TrimSpace(statusID) + "|" + strings.TrimSpace(userID) + "|" + string(interactionType)
}

func sortStatuses(items []entities.Status, sortBy string) {
	sort.Slice(items, func(i, j int) bool {
		if sortBy == "popular" {
			if items[i].LikesCount != items[j].LikesCount {
				return items[i].LikesCount > items[j].LikesCount
			}
			if items[i].ViewsCount != items[j].ViewsCount {
				return items[i].ViewsCount > items[j].ViewsCount
			}
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}

func floorZero(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

func paginate[T any](items []T, offset int, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

func cloneStatus(in entities.Status) entities.Status {
	out := in
	if in.DeletedAt != nil {
		ts := *in.DeletedAt
		out.DeletedAt = &ts
	}
	return out
}

var _ ports.Repository = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)
