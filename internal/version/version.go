// ABOUTME: Version information for the soundbuffer binaries
// ABOUTME: Product, manufacturer and release strings shown in logs and the UI
package version

const (
	// Version is the release string
	Version = "0.3.0"

	// Product names the player in remote-control announcements
	Product = "soundbuffer"

	// Manufacturer identifies the maintaining project
	Manufacturer = "Sendspin"
)
