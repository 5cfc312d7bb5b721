package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	realtimev1 "mboa/contracts/realtime/v1"

	"mboa/contexts/community-experience/status-service/domain/entities"
	domainerrors "mboa/contexts/community-experience/status-service/domain/errors"
	"mboa/contexts/community-experience/status-service/ports"
)

const (
	defaultInteractionPageSize = 50
	maxInteractionPageSize     = 200
)

type InteractionService struct {
	Repo          ports.Repository
	Directory     ports.DirectoryClient
	Conversations ports.ConversationBridge
	Events        ports.EventPublisher
	Clock         ports.Clock
	IDGen         ports.IDGenerator
	Logger        *slog.Logger
}

// Like records a like once per (status,user) and bumps the counter. Replays
// are no-ops returning the current status.
func (s InteractionService) Like(ctx context.Context, statusID string, userID string) (entities.Status, error) {
	status, userID, err := s.interactable(ctx, statusID, userID)
	if err != nil {
		return entities.Status{}, err
	}
	created, err := s.record(ctx, status.StatusID, userID, entities.InteractionLike)
	if err != nil {
		return entities.Status{}, err
	}
	if !created {
		return status, nil
	}
	updated, err := s.Repo.AdjustCounter(ctx, status.StatusID, ports.CounterLikes, 1)
	if err != nil {
		return entities.Status{}, err
	}
	if s.Events != nil {
		s.Events.Publish(ctx, realtimev1.RoomStatusFeed, realtimev1.EventStatusLiked, map[string]any{
			"statusId":   updated.StatusID,
			"userId":     userID,
			"likesCount": updated.LikesCount,
		})
		if updated.AuthorID != userID {
			s.Events.Publish(ctx, realtimev1.UserRoom(updated.AuthorID), realtimev1.EventNotificationNew, map[string]any{
				"type":     "status_like",
				"statusId": updated.StatusID,
				"userId":   userID,
			})
		}
	}
	return updated, nil
}

// Unlike removes the like when present and decrements the counter.
func (s InteractionService) Unlike(ctx context.Context, statusID string, userID string) (entities.Status, error) {
	status, userID, err := s.interactable(ctx, statusID, userID)
	if err != nil {
		return entities.Status{}, err
	}
	removed, err := s.Repo.RemoveInteraction(ctx, status.StatusID, userID, entities.InteractionLike)
	if err != nil {
		return entities.Status{}, err
	}
	if !removed {
		return status, nil
	}
	updated, err := s.Repo.AdjustCounter(ctx, status.StatusID, ports.CounterLikes, -1)
	if err != nil {
		return entities.Status{}, err
	}
	if s.Events != nil {
		s.Events.Publish(ctx, realtimev1.RoomStatusFeed, realtimev1.EventStatusUnliked, map[string]any{
			"statusId":   updated.StatusID,
			"userId":     userID,
			"likesCount": updated.LikesCount,
		})
	}
	return updated, nil
}

// Repost records a repost once per (status,user) and bumps the counter.
func (s InteractionService) Repost(ctx context.Context, statusID string, userID string) (entities.Status, error) {
	status, userID, err := s.interactable(ctx, statusID, userID)
	if err != nil {
		return entities.Status{}, err
	}
	created, err := s.record(ctx, status.StatusID, userID, entities.InteractionRepost)
	if err != nil {
		return entities.Status{}, err
	}
	if !created {
		return status, nil
	}
	updated, err := s.Repo.AdjustCounter(ctx, status.StatusID, ports.CounterReposts, 1)
	if err != nil {
		return entities.Status{}, err
	}
	if s.Events != nil {
		s.Events.Publish(ctx, realtimev1.RoomStatusFeed, realtimev1.EventStatusReposted, map[string]any{
			"statusId":     updated.StatusID,
			"userId":       userID,
			"repostsCount": updated.RepostsCount,
		})
	}
	return updated, nil
}

// View records a view unless the same user viewed within the suppression
// window. Suppressed views leave the counter untouched.
func (s InteractionService) View(ctx context.Context, statusID string, userID string) (entities.Status, error) {
	status, userID, err := s.interactable(ctx, statusID, userID)
	if err != nil {
		return entities.Status{}, err
	}
	lastView, found, err := s.Repo.LastViewAt(ctx, status.StatusID, userID)
	if err != nil {
		return entities.Status{}, err
	}
	now := s.now()
	if found && now.Sub(lastView) < entities.ViewSuppressionWindow {
		return status, nil
	}
	if _, err := s.record(ctx, status.StatusID, userID, entities.InteractionView); err != nil {
		return entities.Status{}, err
	}
	return s.Repo.AdjustCounter(ctx, status.StatusID, ports.CounterViews, 1)
}

// Reply bridges into the chat service's unique status-reply conversation.
// The reply counter moves only when the conversation is newly created.
func (s InteractionService) Reply(ctx context.Context, statusID string, userID string) (string, bool, error) {
	status, userID, err := s.interactable(ctx, statusID, userID)
	if err != nil {
		return "", false, err
	}
	if status.IsAuthor(userID) {
		return "", false, domainerrors.ErrSelfReply
	}
	if s.Conversations == nil {
		return "", false, domainerrors.ErrInvalidRequest
	}
	conversationID, created, err := s.Conversations.OpenStatusReply(ctx, status.StatusID, userID, status.AuthorID)
	if err != nil {
		return "", false, fmt.Errorf("open status reply conversation: %w", err)
	}
	if created {
		if _, err := s.Repo.AdjustCounter(ctx, status.StatusID, ports.CounterReplies, 1); err != nil {
			return "", false, err
		}
		resolveLogger(s.Logger).Info("status reply opened",
			"event", "status_reply_opened",
			"module", "community-experience/status-service",
			"layer", "application",
			"status_id", status.StatusID,
			"replyer_id", userID,
			"conversation_id", conversationID,
		)
	}
	return conversationID, created, nil
}

// Interactions lists likers or reposters with Directory snapshots.
func (s InteractionService) Interactions(
	ctx context.Context,
	statusID string,
	interactionType entities.InteractionType,
	page int,
	limit int,
) ([]ports.InteractionView, int, error) {
	statusID = strings.TrimSpace(statusID)
	if statusID == "" {
		return nil, 0, domainerrors.ErrInvalidRequest
	}
	if interactionType != entities.InteractionLike && interactionType != entities.InteractionRepost {
		return nil, 0, domainerrors.ErrInvalidRequest
	}
	if _, err := s.Repo.GetStatus(ctx, statusID); err != nil {
		return nil, 0, err
	}
	page, limit = normalizePage(page, limit, defaultInteractionPageSize, maxInteractionPageSize)
	interactions, total, err := s.Repo.ListInteractions(ctx, ports.InteractionQuery{
		StatusID: statusID,
		Type:     interactionType,
		Offset:   (page - 1) * limit,
		Limit:    limit,
	})
	if err != nil {
		return nil, 0, err
	}

	userIDs := make([]string, 0, len(interactions))
	seen := map[string]bool{}
	for _, interaction := range interactions {
		if !seen[interaction.UserID] {
			seen[interaction.UserID] = true
			userIDs = append(userIDs, interaction.UserID)
		}
	}
	snapshots := map[string]ports.UserSnapshot{}
	if len(userIDs) > 0 {
		snapshots, err = s.Directory.GetUsers(ctx, userIDs)
		if err != nil {
			return nil, 0, fmt.Errorf("directory batch lookup: %w", err)
		}
	}

	views := make([]ports.InteractionView, 0, len(interactions))
	for _, interaction := range interactions {
		views = append(views, ports.InteractionView{
			Interaction: interaction,
			User:        snapshots[interaction.UserID],
		})
	}
	return views, total, nil
}

func (s InteractionService) record(ctx context.Context, statusID string, userID string, interactionType entities.InteractionType) (bool, error) {
	id, err := s.IDGen.NewID(ctx)
	if err != nil {
		return false, fmt.Errorf("generate interaction id: %w", err)
	}
	return s.Repo.AddInteraction(ctx, entities.Interaction{
		InteractionID: id,
		StatusID:      statusID,
		UserID:        userID,
		Type:          interactionType,
		CreatedAt:     s.now(),
	})
}

// interactable loads the status and enforces feed visibility for the actor.
func (s InteractionService) interactable(ctx context.Context, statusID string, userID string) (entities.Status, string, error) {
	statusID = strings.TrimSpace(statusID)
	userID = strings.TrimSpace(userID)
	if statusID == "" || userID == "" {
		return entities.Status{}, "", domainerrors.ErrInvalidRequest
	}
	status, err := s.Repo.GetStatus(ctx, statusID)
	if err != nil {
		return entities.Status{}, "", err
	}
	if !status.Visible(s.now()) {
		return entities.Status{}, "", domainerrors.ErrStatusNotFound
	}
	return status, userID, nil
}

func (s InteractionService) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now().UTC()
}
