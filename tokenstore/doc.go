// Package tokenstore holds the client's credentials.
//
// The access token and its decoded claims live in memory only. The refresh token is
// mirrored into a [Persister] under a single key so a restarted client can resume its
// session; absence of that key means the session is anonymous.
//
// # Persisters
//
//   - [MemoryStore]: process-local, lost on exit.
//   - [FileStore]: one JSON document on disk, written atomically with mode 0600.
//   - [RedisStore]: a Redis key under a configurable prefix.
//
// # What this package must NOT do
//
//   - Decode tokens or decide expiry (that is the session package).
//   - Call the remote API.
package tokenstore
