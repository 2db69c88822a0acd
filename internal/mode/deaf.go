package mode

import (
	"AccessAI/pkg/command"
	"AccessAI/pkg/oracle"
	"AccessAI/pkg/turntaking"
)

const lowConfidenceMessage = "Not sure. Please repeat signs clearly."

// deafBoard has no voice commands. It collects signs and speaks the
// reconstructed sentence.
type deafBoard struct {
	signs *SignBuffer
	last  *oracle.Result
}

func (d *deafBoard) intro() string { return "" }
func (d *deafBoard) voice() turntaking.Voice { return turntaking.DefaultVoice }
func (d *deafBoard) vocabulary() string { return "" }
func (d *deafBoard) execute(command.Symbol) (outcome, bool) { return outcome{}, false }

func (d *deafBoard) fill(s *Snapshot) {
	s.Tokens = d.signs.Tokens()
	if d.last != nil {
		r := *d.last
		s.Translation = &r
	}
}
