// Package api defines the request and response messages of the
// receiptsplit.v1 services. Messages travel as JSON; amounts are decimal
// strings in major units ("12.99") so clients never round.
package api
