// Package coordinator ties cloud discovery to the relay session.
//
// Start enumerates the account's devices over the REST API, keeps the
// mesh members of every hub-class device, and opens the persistent relay
// connection allow-listed to exactly those device ids. From then on the
// coordinator caches the latest decoded status per device and exposes
// the command surface (TurnOn, TurnOff) addressed by device id.
//
// Discovery runs once per Start; a discovery failure aborts Start and is
// returned to the caller. Connection failures after Start are handled by
// the session's own reconnect loop and never surface here.
package coordinator
