package bootstrap

import (
	"context"
	"time"

	chatapplication "mboa/contexts/community-experience/chat-service/application"
	chatports "mboa/contexts/community-experience/chat-service/ports"
	statusports "mboa/contexts/community-experience/status-service/ports"
	chalports "mboa/contexts/lottery-games/challenge-service/ports"
	tombapplication "mboa/contexts/lottery-games/tombola-service/application"
	tombports "mboa/contexts/lottery-games/tombola-service/ports"
	"mboa/internal/platform/clients"
)

// Every context declares its own collaborator ports so the modules stay
// decoupled from platform types. The adapters below bridge the shared
// platform clients into those ports; they carry no behavior beyond the
// field mapping.

type chatDirectory struct {
	client *clients.Directory
}

func (a chatDirectory) GetUsers(ctx context.Context, userIDs []string) (map[string]chatports.UserSnapshot, error) {
	users, err := a.client.GetUsers(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	snapshots := make(map[string]chatports.UserSnapshot, len(users))
	for id, user := range users {
		snapshots[id] = chatports.UserSnapshot{
			UserID:    user.UserID,
			Name:      user.Name,
			AvatarURL: user.AvatarURL,
			Role:      user.Role,
		}
	}
	return snapshots, nil
}

func (a chatDirectory) HasReferralRelation(ctx context.Context, userID string, otherID string) (bool, error) {
	return a.client.HasReferralRelation(ctx, userID, otherID)
}

type chatStorage struct {
	client *clients.Storage
}

func (a chatStorage) Upload(ctx context.Context, input chatports.UploadInput) (string, error) {
	return a.client.Upload(ctx, clients.UploadInput{
		Bucket:      input.Bucket,
		Filename:    input.Filename,
		ContentType: input.ContentType,
		Data:        input.Data,
	})
}

func (a chatStorage) SignedURL(ctx context.Context, path string, expiry time.Duration) (string, error) {
	return a.client.SignedURL(ctx, path, expiry)
}

func (a chatStorage) SignedURLs(ctx context.Context, paths []string, expiry time.Duration) (map[string]string, error) {
	return a.client.SignedURLs(ctx, paths, expiry)
}

type statusDirectory struct {
	client *clients.Directory
}

func (a statusDirectory) GetUsers(ctx context.Context, userIDs []string) (map[string]statusports.UserSnapshot, error) {
	users, err := a.client.GetUsers(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	snapshots := make(map[string]statusports.UserSnapshot, len(users))
	for id, user := range users {
		snapshots[id] = statusports.UserSnapshot{
			UserID:    user.UserID,
			Name:      user.Name,
			AvatarURL: user.AvatarURL,
			Role:      user.Role,
		}
	}
	return snapshots, nil
}

type statusStorage struct {
	client *clients.Storage
}

func (a statusStorage) Upload(ctx context.Context, input statusports.UploadInput) (string, error) {
	return a.client.Upload(ctx, clients.UploadInput{
		Bucket:      input.Bucket,
		Filename:    input.Filename,
		ContentType: input.ContentType,
		Data:        input.Data,
	})
}

func (a statusStorage) SignedURL(ctx context.Context, path string, expiry time.Duration) (string, error) {
	return a.client.SignedURL(ctx, path, expiry)
}

func (a statusStorage) SignedURLs(ctx context.Context, paths []string, expiry time.Duration) (map[string]string, error) {
	return a.client.SignedURLs(ctx, paths, expiry)
}

type statusModeration struct {
	client *clients.Moderation
}

func (a statusModeration) Moderate(ctx context.Context, ref statusports.MediaRef) (statusports.ModerationResult, error) {
	verdict, err := a.client.Moderate(ctx, clients.Media{
		MediaType:   string(ref.MediaType),
		StoragePath: ref.StoragePath,
		MimeType:    ref.MimeType,
		Data:        ref.Data,
	})
	if err != nil {
		return statusports.ModerationResult{}, err
	}
	return statusports.ModerationResult{
		Action: statusports.ModerationAction(verdict.Action),
		Reason: verdict.Reason,
		Scores: verdict.Scores,
	}, nil
}

// statusReplyBridge routes status replies into the chat module so the
// reply conversation carries the status context from its first message.
type statusReplyBridge struct {
	conversations chatapplication.ConversationService
}

func (b statusReplyBridge) OpenStatusReply(ctx context.Context, statusID string, replyerID string, authorID string) (string, bool, error) {
	conversation, created, err := b.conversations.GetOrCreateStatusReply(ctx, statusID, replyerID, authorID)
	if err != nil {
		return "", false, err
	}
	return conversation.ConversationID, created, nil
}

type tombolaPayments struct {
	client *clients.Payments
}

func (a tombolaPayments) CreateIntent(ctx context.Context, input tombports.PaymentIntentInput) (tombports.PaymentIntent, error) {
	intent, err := a.client.CreateIntent(ctx, clients.IntentInput{
		UserID:      input.UserID,
		Amount:      input.Amount,
		Currency:    input.Currency,
		PaymentType: input.PaymentType,
		Metadata:    input.Metadata,
	})
	if err != nil {
		return tombports.PaymentIntent{}, err
	}
	return tombports.PaymentIntent{SessionID: intent.SessionID, CheckoutURL: intent.CheckoutURL}, nil
}

type tombolaNotifier struct {
	client *clients.Notifier
}

func (a tombolaNotifier) Send(ctx context.Context, userID string, notification tombports.Notification) error {
	return a.client.Send(ctx, userID, clients.Notification{
		Type:  notification.Type,
		Title: notification.Title,
		Body:  notification.Body,
		Data:  notification.Data,
	})
}

type challengePayments struct {
	client *clients.Payments
}

func (a challengePayments) CreateIntent(ctx context.Context, input chalports.PaymentIntentInput) (chalports.PaymentIntent, error) {
	intent, err := a.client.CreateIntent(ctx, clients.IntentInput{
		UserID:      input.UserID,
		Amount:      input.Amount,
		Currency:    input.Currency,
		PaymentType: input.PaymentType,
		Metadata:    input.Metadata,
	})
	if err != nil {
		return chalports.PaymentIntent{}, err
	}
	return chalports.PaymentIntent{SessionID: intent.SessionID, CheckoutURL: intent.CheckoutURL}, nil
}

func (a challengePayments) InternalDeposit(ctx context.Context, input chalports.DepositInput) (string, error) {
	return a.client.InternalDeposit(ctx, clients.DepositInput{
		AccountID: input.AccountID,
		Amount:    input.Amount,
		Currency:  input.Currency,
		Reference: input.Reference,
	})
}

// tombolaGateway exposes the tombola module to the challenge module:
// month linkage at challenge creation, allowance reads at vote initiation
// and ticket minting at payment confirmation.
type tombolaGateway struct {
	months  tombapplication.MonthService
	tickets tombapplication.TicketService
}

func (g tombolaGateway) FindOrCreateMonth(ctx context.Context, month int, year int) (chalports.TombolaMonthRef, error) {
	found, err := g.months.FindOrCreateMonth(ctx, month, year)
	if err != nil {
		return chalports.TombolaMonthRef{}, err
	}
	return chalports.TombolaMonthRef{MonthID: found.MonthID}, nil
}

func (g tombolaGateway) MintTicket(ctx context.Context, input chalports.VoteTicketInput) (chalports.VoteTicketRef, error) {
	ticket, err := g.tickets.MintVoteTicket(ctx, tombports.MintTicketInput{
		MonthID:         input.MonthID,
		UserID:          input.UserID,
		PaymentIntentID: input.PaymentIntentID,
		ChallengeVoteID: input.ChallengeVoteID,
		UserTicketIndex: input.UserTicketIndex,
	})
	if err != nil {
		return chalports.VoteTicketRef{}, err
	}
	return chalports.VoteTicketRef{
		TicketID:     ticket.TicketID,
		TicketNumber: ticket.TicketNumber,
		Weight:       ticket.Weight,
	}, nil
}

func (g tombolaGateway) UserTicketCount(ctx context.Context, monthID string, userID string) (int, error) {
	return g.tickets.UserTicketCount(ctx, monthID, userID)
}

func (g tombolaGateway) MaxTickets() int { return g.tickets.MaxTickets() }
