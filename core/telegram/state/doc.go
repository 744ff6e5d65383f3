// Package state keeps per-user values in memory for the lifetime of the process.
// Values are keyed by Telegram user id; Lock provides a per-user critical
// section for read-modify-write sequences that span network calls.
package state
