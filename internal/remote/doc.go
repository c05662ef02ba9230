// ABOUTME: Remote control of a running player over WebSocket
// ABOUTME: Package documentation
// Package remote exposes player controls over a WebSocket connection.
//
// A client connects to /control, sends client/hello and receives
// server/hello. Every player/command is answered with either a
// player/status or a server/error carrying the command's id. The server
// also pushes player/event messages when the buffer reports a marker or
// the end of the stream.
package remote
