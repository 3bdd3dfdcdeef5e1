// Package device provides the character I/O contract for the COMET
// machine's IN and OUT instructions. The execution engine never touches a
// terminal or file directly; every I/O trap routes through the Device
// interface, making it substitutable for testing.
package device

// Device is a line-oriented I/O peripheral.
type Device interface {
	// ReadLine returns the next input line, without its terminator.
	// It fails with ErrEndOfInput once the input is exhausted.
	ReadLine() (line string, err error)
	// WriteLine emits one output line.
	WriteLine(line string) error
}
