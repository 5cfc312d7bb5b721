package v1

import "encoding/json"

// Frame is the canonical JSON frame exchanged on the realtime channel.
// This package is contract-only and must stay backward compatible; client
// teams consume it directly.
type Frame struct {
	Event string          `json:"event"`
	Room  string          `json:"room,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Inbound client events.
const (
	EventConversationJoin  = "conversation:join"
	EventConversationLeave = "conversation:leave"
	EventMessageSend       = "message:send"
	EventMessageMarkRead   = "message:read"
	EventTypingStart       = "typing:start"
	EventTypingStop        = "typing:stop"
	EventPresenceGet       = "presence:get"
	EventPresenceSubscribe = "presence:subscribe"
	EventPresenceUnsub     = "presence:unsubscribe"
	EventPresencePing      = "presence:ping"
	EventPresenceAway      = "presence:away"
	EventPresenceActive    = "presence:active"
	EventStatusSubscribe   = "status:subscribe"
	EventStatusUnsubscribe = "status:unsubscribe"
	EventStatusLike        = "status:like"
	EventStatusUnlike      = "status:unlike"
	EventStatusRepost      = "status:repost"
	EventStatusView        = "status:view"
	EventStatusReply       = "status:reply"
)

// Outbound server events.
const (
	EventMessageNew          = "message:new"
	EventMessageSent         = "message:sent"
	EventMessageNotification = "message:notification"
	EventMessageRead         = "message:read"
	EventMessageError        = "message:error"
	EventPresenceStatus      = "presence:status"
	EventPresencePong        = "presence:pong"
	EventPresenceError       = "presence:error"
	EventStatusNew           = "status:new"
	EventStatusLiked         = "status:liked"
	EventStatusUnliked       = "status:unliked"
	EventStatusReposted      = "status:reposted"
	EventStatusDeleted       = "status:deleted"
	EventStatusError         = "status:error"
	EventStatusReplyOK       = "status:reply:success"
	EventNotificationNew     = "notification:new"
	EventUserOnline          = "user:online"
	EventUserOffline         = "user:offline"
)

// Room name builders. Room ids are part of the wire contract.
const (
	RoomStatusFeed = "status:feed"
	RoomStatusAll  = "status:all"
)

func ConversationRoom(conversationID string) string { return "conversation:" + conversationID }

func UserRoom(userID string) string { return "user:" + userID }

func StatusCategoryRoom(category string) string { return "status:category:" + category }

func PresenceRoom(userID string) string { return "presence:" + userID }
