// Package presenceservice tracks ephemeral online, socket and typing state
// behind a TTL keyspace. TTL is the ground truth: readers treat expired
// entries as absent even before the janitor reclaims them.
package presenceservice
