// ABOUTME: Terminal UI for the file player
// ABOUTME: Package documentation
// Package ui renders the player state with bubbletea and turns key presses
// into remote.Command values the player applies.
package ui
