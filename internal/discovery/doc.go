// ABOUTME: mDNS discovery of player remote control endpoints
// ABOUTME: Package documentation
// Package discovery advertises a player's remote control port over mDNS
// and finds advertised players for remote tools.
package discovery
