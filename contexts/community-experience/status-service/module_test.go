package statusservice_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	realtimev1 "mboa/contracts/realtime/v1"
	statusservice "mboa/contexts/community-experience/status-service"
	domainerrors "mboa/contexts/community-experience/status-service/domain/errors"
	"mboa/contexts/community-experience/status-service/ports"
	httptransport "mboa/contexts/community-experience/status-service/transport/http"
)

type fakeDirectory struct{}

func (fakeDirectory) GetUsers(_ context.Context, userIDs []string) (map[string]ports.UserSnapshot, error) {
	out := make(map[string]ports.UserSnapshot, len(userIDs))
	for _, id := range userIDs {
		out[id] = ports.UserSnapshot{UserID: id, Name: "Name " + id}
	}
	return out, nil
}

type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeStorage) Upload(_ context.Context, input ports.UploadInput) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects == nil {
		f.objects = make(map[string][]byte)
	}
	f.objects[input.Filename] = append([]byte(nil), input.Data...)
	return input.Filename, nil
}

func (f *fakeStorage) SignedURL(_ context.Context, path string, _ time.Duration) (string, error) {
	return "https://signed.example/" + path, nil
}

func (f *fakeStorage) SignedURLs(ctx context.Context, paths []string, expiry time.Duration) (map[string]string, error) {
	out := make(map[string]string, len(paths))
	for _, path := range paths {
		url, _ := f.SignedURL(ctx, path, expiry)
		out[path] = url
	}
	return out, nil
}

type fakeModeration struct {
	verdict ports.ModerationResult
	err     error
	calls   int
}

func (f *fakeModeration) Moderate(_ context.Context, _ ports.MediaRef) (ports.ModerationResult, error) {
	f.calls++
	return f.verdict, f.err
}

type fakeBridge struct {
	mu    sync.Mutex
	convs map[string]string
	calls int
}

func (f *fakeBridge) OpenStatusReply(_ context.Context, statusID string, replyerID string, _ string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.convs == nil {
		f.convs = make(map[string]string)
	}
	key := statusID + "|" + replyerID
	if id, ok := f.convs[key]; ok {
		return id, false, nil
	}
	id := "conv_" + key
	f.convs[key] = id
	return id, true, nil
}

type recordedEvent struct {
	Room  string
	Event string
}

type fakeEvents struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakeEvents) Publish(_ context.Context, room string, event string, _ any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{Room: room, Event: event})
}

func (f *fakeEvents) count(room string, event string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, recorded := range f.events {
		if recorded.Room == room && recorded.Event == event {
			n++
		}
	}
	return n
}

func newTestModule(moderation *fakeModeration) (statusservice.Module, *fakeBridge, *fakeEvents) {
	bridge := &fakeBridge{}
	events := &fakeEvents{}
	var moderationClient ports.ModerationClient
	if moderation != nil {
		moderationClient = moderation
	}
	module := statusservice.NewInMemoryModule(
		fakeDirectory{},
		&fakeStorage{},
		moderationClient,
		bridge,
		events,
		nil,
	)
	return module, bridge, events
}

func createTextStatus(t *testing.T, module statusservice.Module, author string, category string) httptransport.StatusDTO {
	t.Helper()
	resp, err := module.Handler.CreateStatusHandler(context.Background(), author, false, httptransport.CreateStatusRequest{
		Category: category,
		Content:  "un statut de test",
	})
	require.NoError(t, err)
	return resp.Data
}

func TestCreateStatusCategoryPolicy(t *testing.T) {
	module, _, _ := newTestModule(nil)
	ctx := context.Background()

	_, err := module.Handler.CreateStatusHandler(ctx, "author_1", false, httptransport.CreateStatusRequest{
		Category: "nonexistent",
		Content:  "hello",
	})
	assert.ErrorIs(t, err, domainerrors.ErrCategoryUnknown)

	_, err = module.Handler.CreateStatusHandler(ctx, "author_1", false, httptransport.CreateStatusRequest{
		Category: "officiel",
		Content:  "annonce officielle",
	})
	assert.ErrorIs(t, err, domainerrors.ErrCategoryRestricted)

	resp, err := module.Handler.CreateStatusHandler(ctx, "admin_1", true, httptransport.CreateStatusRequest{
		Category: "officiel",
		Content:  "annonce officielle",
	})
	require.NoError(t, err)
	assert.Equal(t, "officiel", resp.Data.Category)
}

func TestCreateStatusExpiryAndFeedVisibility(t *testing.T) {
	module, _, events := newTestModule(nil)
	ctx := context.Background()

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	module.Store.SetNowFunc(func() time.Time { return now })

	created := createTextStatus(t, module, "author_1", "business")
	expires, err := time.Parse(time.RFC3339, created.ExpiresAt)
	require.NoError(t, err)
	assert.Equal(t, now.Add(24*time.Hour), expires)

	assert.Equal(t, 1, events.count(realtimev1.RoomStatusFeed, realtimev1.EventStatusNew))
	assert.Equal(t, 1, events.count(realtimev1.StatusCategoryRoom("business"), realtimev1.EventStatusNew))

	feed, err := module.Handler.FeedHandler(ctx, "viewer_1", ports.FeedFilters{}, 1, 20)
	require.NoError(t, err)
	require.Len(t, feed.Data, 1)

	// Past the TTL the reader filter hides the status even before the
	// reaper has swept it.
	module.Store.SetNowFunc(func() time.Time { return now.Add(25 * time.Hour) })
	feed, err = module.Handler.FeedHandler(ctx, "viewer_1", ports.FeedFilters{}, 1, 20)
	require.NoError(t, err)
	assert.Empty(t, feed.Data)

	count, err := module.Statuses.ReapExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = module.Handler.GetStatusHandler(ctx, "viewer_1", created.StatusID)
	assert.ErrorIs(t, err, domainerrors.ErrStatusNotFound)
}

func TestModerationBlockPersistsNothing(t *testing.T) {
	moderation := &fakeModeration{verdict: ports.ModerationResult{
		Action: ports.ModerationBlock,
		Reason: "explicit content",
	}}
	module, _, events := newTestModule(moderation)
	ctx := context.Background()

	_, err := module.Handler.CreateStatusHandler(ctx, "author_1", false, httptransport.CreateStatusRequest{
		Category:      "business",
		Content:       "photo du jour",
		MediaType:     "image",
		MediaFilename: "photo.jpg",
		MediaMimeType: "image/jpeg",
		MediaData:     []byte{0xFF, 0xD8},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrModerationBlocked)
	assert.Contains(t, err.Error(), "explicit content")
	assert.Equal(t, 1, moderation.calls)

	feed, err := module.Handler.FeedHandler(ctx, "viewer_1", ports.FeedFilters{}, 1, 20)
	require.NoError(t, err)
	assert.Empty(t, feed.Data)
	assert.Zero(t, events.count(realtimev1.RoomStatusFeed, realtimev1.EventStatusNew))
}

func TestModerationWarnAndFailOpen(t *testing.T) {
	moderation := &fakeModeration{verdict: ports.ModerationResult{
		Action: ports.ModerationWarn,
		Reason: "suggestive",
	}}
	module, _, _ := newTestModule(moderation)
	ctx := context.Background()

	resp, err := module.Handler.CreateStatusHandler(ctx, "author_1", false, httptransport.CreateStatusRequest{
		Category:      "business",
		MediaType:     "image",
		MediaFilename: "photo.jpg",
		MediaMimeType: "image/jpeg",
		MediaData:     []byte{0xFF, 0xD8},
	})
	require.NoError(t, err)
	assert.True(t, resp.Data.ContentWarned)

	// A moderation transport failure allows the content through.
	moderation.verdict = ports.ModerationResult{}
	moderation.err = errors.New("connection refused")
	resp, err = module.Handler.CreateStatusHandler(ctx, "author_2", false, httptransport.CreateStatusRequest{
		Category:      "business",
		MediaType:     "image",
		MediaFilename: "photo2.jpg",
		MediaMimeType: "image/jpeg",
		MediaData:     []byte{0xFF, 0xD8},
	})
	require.NoError(t, err)
	assert.False(t, resp.Data.ContentWarned)
}

func TestLikeUnlikeRoundTrip(t *testing.T) {
	module, _, events := newTestModule(nil)
	ctx := context.Background()

	created := createTextStatus(t, module, "author_1", "business")

	first, err := module.Handler.LikeStatusHandler(ctx, "user_1", created.StatusID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"likesCount": 1}, first.Data)

	// A second like by the same user is a no-op.
	second, err := module.Handler.LikeStatusHandler(ctx, "user_1", created.StatusID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"likesCount": 1}, second.Data)
	assert.Equal(t, 1, events.count(realtimev1.RoomStatusFeed, realtimev1.EventStatusLiked))
	assert.Equal(t, 1, events.count(realtimev1.UserRoom("author_1"), realtimev1.EventNotificationNew))

	unliked, err := module.Handler.UnlikeStatusHandler(ctx, "user_1", created.StatusID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"likesCount": 0}, unliked.Data)

	// Unliking again never drives the counter negative.
	unliked, err = module.Handler.UnlikeStatusHandler(ctx, "user_1", created.StatusID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"likesCount": 0}, unliked.Data)
}

func TestSelfLikeSkipsNotification(t *testing.T) {
	module, _, events := newTestModule(nil)
	ctx := context.Background()

	created := createTextStatus(t, module, "author_1", "business")
	_, err := module.Handler.LikeStatusHandler(ctx, "author_1", created.StatusID)
	require.NoError(t, err)

	assert.Equal(t, 1, events.count(realtimev1.RoomStatusFeed, realtimev1.EventStatusLiked))
	assert.Zero(t, events.count(realtimev1.UserRoom("author_1"), realtimev1.EventNotificationNew))
}

func TestViewSuppressionWindow(t *testing.T) {
	module, _, _ := newTestModule(nil)
	ctx := context.Background()

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	module.Store.SetNowFunc(func() time.Time { return now })

	created := createTextStatus(t, module, "author_1", "business")

	viewed, err := module.Handler.ViewStatusHandler(ctx, "user_1", created.StatusID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"viewsCount": 1}, viewed.Data)

	// Within the hour the repeat view does not count.
	module.Store.SetNowFunc(func() time.Time { return now.Add(30 * time.Minute) })
	viewed, err = module.Handler.ViewStatusHandler(ctx, "user_1", created.StatusID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"viewsCount": 1}, viewed.Data)

	module.Store.SetNowFunc(func() time.Time { return now.Add(61 * time.Minute) })
	viewed, err = module.Handler.ViewStatusHandler(ctx, "user_1", created.StatusID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"viewsCount": 2}, viewed.Data)

	// A different viewer counts immediately.
	viewed, err = module.Handler.ViewStatusHandler(ctx, "user_2", created.StatusID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"viewsCount": 3}, viewed.Data)
}

func TestReplyBridgesToConversation(t *testing.T) {
	module, bridge, _ := newTestModule(nil)
	ctx := context.Background()

	created := createTextStatus(t, module, "author_1", "business")

	_, err := module.Handler.ReplyToStatusHandler(ctx, "author_1", created.StatusID)
	assert.ErrorIs(t, err, domainerrors.ErrSelfReply)
	assert.Zero(t, bridge.calls)

	first, err := module.Handler.ReplyToStatusHandler(ctx, "user_1", created.StatusID)
	require.NoError(t, err)
	assert.True(t, first.Data.Created)
	require.NotEmpty(t, first.Data.ConversationID)

	// A repeat reply reuses the conversation and leaves the counter alone.
	second, err := module.Handler.ReplyToStatusHandler(ctx, "user_1", created.StatusID)
	require.NoError(t, err)
	assert.False(t, second.Data.Created)
	assert.Equal(t, first.Data.ConversationID, second.Data.ConversationID)

	view, err := module.Handler.GetStatusHandler(ctx, "user_1", created.StatusID)
	require.NoError(t, err)
	assert.Equal(t, 1, view.Data.RepliesCount)
}

func TestFeedFiltersOverlayAndSignedURLs(t *testing.T) {
	module, _, _ := newTestModule(nil)
	ctx := context.Background()

	withMedia, err := module.Handler.CreateStatusHandler(ctx, "author_1", false, httptransport.CreateStatusRequest{
		Category:      "vente",
		Content:       "vélo à vendre",
		MediaType:     "image",
		MediaFilename: "velo.jpg",
		MediaMimeType: "image/jpeg",
		MediaData:     []byte{0xFF, 0xD8},
		Country:       "CM",
		City:          "Douala",
	})
	require.NoError(t, err)
	createTextStatus(t, module, "author_2", "business")

	_, err = module.Handler.LikeStatusHandler(ctx, "viewer_1", withMedia.Data.StatusID)
	require.NoError(t, err)

	feed, err := module.Handler.FeedHandler(ctx, "viewer_1", ports.FeedFilters{Category: "vente", City: "Douala"}, 1, 20)
	require.NoError(t, err)
	require.Len(t, feed.Data, 1)

	row := feed.Data[0]
	assert.True(t, row.IsLiked)
	assert.False(t, row.IsReposted)
	require.NotNil(t, row.Author)
	assert.Equal(t, "Name author_1", row.Author.Name)
	assert.Contains(t, row.MediaURL, "https://signed.example/")
	assert.NotContains(t, row.MediaURL, "storage://")

	search, err := module.Handler.FeedHandler(ctx, "viewer_1", ports.FeedFilters{Search: "vélo"}, 1, 20)
	require.NoError(t, err)
	assert.Len(t, search.Data, 1)

	popular, err := module.Handler.FeedHandler(ctx, "viewer_1", ports.FeedFilters{SortBy: "popular"}, 1, 20)
	require.NoError(t, err)
	require.Len(t, popular.Data, 2)
	assert.Equal(t, withMedia.Data.StatusID, popular.Data[0].StatusID)
}

func TestDeleteStatusAuthorOnly(t *testing.T) {
	module, _, events := newTestModule(nil)
	ctx := context.Background()

	created := createTextStatus(t, module, "author_1", "business")

	_, err := module.Handler.DeleteStatusHandler(ctx, "user_1", created.StatusID)
	assert.ErrorIs(t, err, domainerrors.ErrNotAuthor)

	_, err = module.Handler.DeleteStatusHandler(ctx, "author_1", created.StatusID)
	require.NoError(t, err)
	assert.Equal(t, 1, events.count(realtimev1.RoomStatusFeed, realtimev1.EventStatusDeleted))

	_, err = module.Handler.GetStatusHandler(ctx, "author_1", created.StatusID)
	assert.ErrorIs(t, err, domainerrors.ErrStatusNotFound)
}

func TestRepostIdempotentAndCounted(t *testing.T) {
	module, _, events := newTestModule(nil)
	ctx := context.Background()

	created := createTextStatus(t, module, "author_1", "business")

	first, err := module.Handler.RepostStatusHandler(ctx, "user_1", created.StatusID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"repostsCount": 1}, first.Data)

	second, err := module.Handler.RepostStatusHandler(ctx, "user_1", created.StatusID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"repostsCount": 1}, second.Data)
	assert.Equal(t, 1, events.count(realtimev1.RoomStatusFeed, realtimev1.EventStatusReposted))

	likers, err := module.Handler.InteractionsHandler(ctx, created.StatusID, "repost", 1, 50)
	require.NoError(t, err)
	require.Len(t, likers.Data, 1)
	assert.Equal(t, "user_1", likers.Data[0].UserID)
	assert.Equal(t, "Name user_1", likers.Data[0].Name)
}

func TestMyStatusesIncludeExpiredUserStatusesDoNot(t *testing.T) {
	module, _, _ := newTestModule(nil)
	ctx := context.Background()

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	module.Store.SetNowFunc(func() time.Time { return now })
	createTextStatus(t, module, "author_1", "business")

	module.Store.SetNowFunc(func() time.Time { return now.Add(30 * time.Hour) })
	createTextStatus(t, module, "author_1", "business")

	mine, err := module.Handler.MyStatusesHandler(ctx, "author_1", 1, 20)
	require.NoError(t, err)
	assert.Len(t, mine.Data, 2)

	public, err := module.Handler.UserStatusesHandler(ctx, "viewer_1", "author_1", 1, 20)
	require.NoError(t, err)
	assert.Len(t, public.Data, 1)
}
