// Package trello is a small client for the Trello REST API covering the calls
// the scanner needs: search, boards, board members, card actions and members.
//
// Every request carries the OAuth key/token header and fixed expansion
// parameters so that a single search returns card summaries with their
// attachments inline. Connection failures are retried with exponential
// backoff; a 429 answer triggers one cooldown followed by a single resend.
package trello
