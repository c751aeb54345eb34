// Package cloudapi is the thin REST client for cloud device discovery.
//
// The cloud exposes an HTTPS JSON API; this client makes the two calls
// the protocol core needs as input:
//   - the user's subscribed device list (id, product_id, name)
//   - per hub-class device, a property record whose bulbsArray lists the
//     mesh bulbs and switches (deviceID, deviceType, displayName)
//
// The device ids from bulbsArray decide which status frames and commands
// the connection session considers "of interest".
//
// # Errors
//
// A 403 response is an authentication error (IsAuthError); any other
// non-200 response is a generic API error (IsAPIError). Discovery calls
// are not retried here; the caller owns that decision.
//
// Credential acquisition (exchanging a stored token for the binary login
// credential and user id) is handled by an external collaborator and is
// out of scope for this package.
package cloudapi
