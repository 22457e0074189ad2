package session

import (
	"strings"

	"github.com/teslashibe/go-signspeak/pkg/camera"
)

// Display strings.
const (
	Placeholder = "Press 'Record' to start"
	Heading     = "Translation Result"
)

// View is what the transcript panel shows.
type View struct {
	Heading     string        `json:"heading"`
	Text        string        `json:"text"`
	Tokens      []string      `json:"tokens"`
	Placeholder bool          `json:"placeholder"`
	Undoable    bool          `json:"undoable"`
	Active      bool          `json:"active"`
	Facing      camera.Facing `json:"facing"`
}

// Render builds the display model for s.
func Render(s State) View {
	v := View{
		Tokens: append([]string{}, s.Transcript...),
		Active: s.Active,
		Facing: s.Facing,
	}
	if len(s.Transcript) == 0 {
		v.Text = Placeholder
		v.Placeholder = true
		return v
	}
	v.Heading = Heading
	v.Text = strings.Join(s.Transcript, " ")
	v.Undoable = true
	return v
}
