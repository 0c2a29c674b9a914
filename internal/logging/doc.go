// Package logging configures structured slog output for searchfs.
// JSON records go to ~/.searchfs/logs/searchfs.log through a size-rotated
// writer; --debug lowers the level to debug.
package logging
