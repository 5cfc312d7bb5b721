// Package challengeservice runs the monthly Impact Challenge: an
// entrepreneur roster voted on with paid votes, wired to the tombola so
// each paid vote can mint weighted lottery tickets, and closed out with a
// 50/30/20 fund distribution to the winner, the lottery pool and the
// commission account.
package challengeservice
