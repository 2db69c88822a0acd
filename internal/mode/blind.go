package mode

import (
	"AccessAI/pkg/command"
	"AccessAI/pkg/turntaking"
)

type Section struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

var DefaultLesson = []Section{
	{Title: "Introduction", Text: "Welcome to Access AI. This is the Blind Mode. Navigation is voice-controlled."},
	{Title: "Chapter 1", Text: "To navigate, say Next to go forward, or Back to go to the previous section."},
	{Title: "Chapter 2", Text: "You can say Read to repeat the current section, or Stop to silence the audio."},
	{Title: "Conclusion", Text: "You have reached the end of the lesson. Good job."},
}

type outcome struct {
	speech  string
	silence bool
	effect  *Effect
}

type behaviour interface {
	intro() string
	voice() turntaking.Voice
	vocabulary() string
	execute(sym command.Symbol) (outcome, bool)
	fill(s *Snapshot)
}

// blindLesson reads a lesson aloud and moves between its sections.
type blindLesson struct {
	lesson  []Section
	current int
}

func newBlindLesson(lesson []Section) *blindLesson {
	if len(lesson) == 0 {
		lesson = DefaultLesson
	}
	return &blindLesson{lesson: lesson}
}

func (b *blindLesson) intro() string {
	return "Blind mode activated. Say Read to begin. " + b.lesson[0].Text
}

func (b *blindLesson) voice() turntaking.Voice {
	return turntaking.Voice{Rate: 0.9, Pitch: 1.0}
}

func (b *blindLesson) vocabulary() string {
	return command.Blind
}

func (b *blindLesson) execute(sym command.Symbol) (outcome, bool) {
	switch sym {
	case command.Read:
		return outcome{speech: "Reading current section. " + b.lesson[b.current].Text}, true
	case command.Next:
		if b.current >= len(b.lesson)-1 {
			return outcome{speech: "No more sections. You are at the end of the lesson."}, true
		}
		b.current++
		return outcome{
			speech: "Moving to next section. " + b.lesson[b.current].Text,
			effect: &Effect{Action: "navigate", Section: b.current},
		}, true
	case command.Back:
		if b.current <= 0 {
			return outcome{speech: "Boundary reached. You are at the start of the lesson."}, true
		}
		b.current--
		return outcome{
			speech: "Moving back. " + b.lesson[b.current].Text,
			effect: &Effect{Action: "navigate", Section: b.current},
		}, true
	case command.Stop:
		return outcome{silence: true}, true
	}
	return outcome{}, false
}

func (b *blindLesson) fill(s *Snapshot) {
	s.Section = &SectionView{
		Index: b.current,
		Total: len(b.lesson),
		Title: b.lesson[b.current].Title,
		Text:  b.lesson[b.current].Text,
	}
}
