// Package session owns the persistent connection to the cloud relay.
//
// A Session runs two goroutines for its whole life: a read loop that
// dials, logs in with the raw binary credential, and processes inbound
// frames until the stream dies, and a keepalive loop that writes the
// fixed keepalive frame every ten seconds while connected. Any stream
// failure, including a clean EOF, tears the connection down and the read
// loop reconnects after a fixed two second delay, forever, until Stop.
//
// Lifecycle transitions and decoded status updates are published on the
// session's event bus: "connected" after the first successful login,
// "reconnected" after every later one, and exactly one "disconnected"
// per connection loss. Status updates for allow-listed devices also
// reach the registered callback, each on its own goroutine.
//
// Every transport write goes through a single mutex, so the login
// credential, keepalives, and commands from any goroutine never
// interleave on the wire. Commands issued while disconnected are
// dropped, not queued.
package session
