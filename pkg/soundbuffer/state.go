// ABOUTME: Playback state machine values
// ABOUTME: Stopped, Playing, PlayingLooping, Paused and the terminal Disposed
package soundbuffer

// State is the playback state of a Buffer
type State int

const (
	// Stopped is the initial state with the cursor at 0
	Stopped State = iota
	// Playing runs once to the end of the buffer
	Playing
	// PlayingLooping wraps to byte 0 at the end of the buffer
	PlayingLooping
	// Paused keeps the cursor and the mode to resume
	Paused
	// Disposed is terminal
	Disposed
)

var stateNames = [...]string{
	Stopped:        "stopped",
	Playing:        "playing",
	PlayingLooping: "playing-looping",
	Paused:         "paused",
	Disposed:       "disposed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// active reports whether the state asks the device to play
func (s State) active() bool {
	return s == Playing || s == PlayingLooping
}
