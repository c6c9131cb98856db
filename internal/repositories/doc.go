// Package repositories holds SQLite-backed persistence.
//
// The only durable client-side state is the bearer token pair, owned by
// [TokenRepository]. Reads degrade to "signed out" on any storage failure;
// writes are transactional so the pair is replaced or cleared atomically.
package repositories
