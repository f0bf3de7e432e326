// Package postgres implements the engine's UserStore on PostgreSQL via sqlx.
// Unique indexes on email, username, and old_username are what actually
// enforce exclusivity; the engine treats their violations as conflicts.
package postgres
