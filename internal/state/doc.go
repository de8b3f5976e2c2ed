// Package state provides JSON-file-backed stores for the daemon's small
// amount of durable data: OAuth tokens per chat and briefing definitions.
// Every write replaces the file atomically through a temp file and rename.
package state
