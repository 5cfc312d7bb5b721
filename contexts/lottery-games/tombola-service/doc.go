// Package tombolaservice runs the monthly tombola: month lifecycle with a
// single open month, strictly sequential ticket numbering, direct ticket
// purchases confirmed through payment webhooks, and the weighted winner draw
// with anti-consecutive-win exclusion.
package tombolaservice
