// Package statusservice owns the ephemeral status feed: 24-hour posts with
// like/repost/view interactions, category policy, moderation gating on media
// and the reply bridge into direct conversations.
package statusservice
