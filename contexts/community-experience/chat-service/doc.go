// Package chatservice implements direct and status-reply conversations
// inside the community-experience context.
//
// The module owns conversation lifecycle (acceptance gate, archiving, unread
// and per-sender message counters), message creation with delivery/read
// tracking, document attachments behind signed URLs, forwarding, and the
// realtime events emitted on each confirmed write. Business rules live in
// application/domain layers; persistence, Directory, Storage and the room
// bus are reached through ports.
package chatservice
