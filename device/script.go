package device

// Script is a scripted device for tests: it serves a fixed list of input
// lines and captures everything written.
type Script struct {
	Lines   []string // Input lines served in order.
	Written []string // Captured output lines.

	next int
}

var _ Device = (*Script)(nil)

func (s *Script) ReadLine() (line string, err error) {
	if s.next >= len(s.Lines) {
		err = ErrEndOfInput
		return
	}
	line = s.Lines[s.next]
	s.next++
	return
}

func (s *Script) WriteLine(line string) (err error) {
	s.Written = append(s.Written, line)
	return
}

// Rewind resets the device to its initial state.
func (s *Script) Rewind() {
	s.next = 0
	s.Written = nil
}
