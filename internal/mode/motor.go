package mode

import (
	"AccessAI/pkg/command"
	"AccessAI/pkg/gesture"
	"AccessAI/pkg/turntaking"
)

const scrollStep = 300

// motorPilot drives the page with short voice commands and the head cursor.
type motorPilot struct {
	detector *gesture.Detector
	section  int
}

func newMotorPilot(detector *gesture.Detector) *motorPilot {
	return &motorPilot{detector: detector}
}

func (m *motorPilot) intro() string {
	return "Motor mode activated. Say Scroll down, Scroll up, Next, Read or Click."
}

func (m *motorPilot) voice() turntaking.Voice {
	return turntaking.Voice{Rate: 1.1, Pitch: 1.0}
}

func (m *motorPilot) vocabulary() string {
	return command.Motor
}

func (m *motorPilot) execute(sym command.Symbol) (outcome, bool) {
	switch sym {
	case command.ScrollDown:
		return outcome{speech: "Scrolling down", effect: &Effect{Action: "scroll", DY: scrollStep}}, true
	case command.ScrollUp:
		return outcome{speech: "Scrolling up", effect: &Effect{Action: "scroll", DY: -scrollStep}}, true
	case command.Next:
		m.section++
		return outcome{speech: "Moving to next section.", effect: &Effect{Action: "navigate", Section: m.section}}, true
	case command.Read:
		return outcome{speech: "Reading content.", effect: &Effect{Action: "read"}}, true
	case command.Click:
		c := m.detector.Cursor()
		return outcome{speech: "Clicking.", effect: &Effect{Action: "click", X: c.X, Y: c.Y}}, true
	case command.Stop:
		return outcome{silence: true}, true
	}
	return outcome{}, false
}

func (m *motorPilot) fill(s *Snapshot) {
	s.Cursor = cursorOf(m.detector.Cursor())
}
