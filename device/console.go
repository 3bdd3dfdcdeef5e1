package device

import (
	"bufio"
	"fmt"
	"io"
)

// Console adapts byte streams to the line-oriented Device contract. It
// wraps an io.Reader for input and an io.Writer for output.
type Console struct {
	Input  io.Reader
	Output io.Writer

	scanner *bufio.Scanner
}

var _ Device = (*Console)(nil)

// ReadLine blocks until a full input line is available.
func (c *Console) ReadLine() (line string, err error) {
	if c.Input == nil {
		err = ErrEndOfInput
		return
	}
	if c.scanner == nil {
		c.scanner = bufio.NewScanner(c.Input)
	}

	if !c.scanner.Scan() {
		err = c.scanner.Err()
		if err == nil {
			err = ErrEndOfInput
		}
		return
	}

	line = c.scanner.Text()
	return
}

// WriteLine writes the line and a trailing newline.
func (c *Console) WriteLine(line string) (err error) {
	if c.Output == nil {
		return ErrNoOutput
	}
	_, err = fmt.Fprintln(c.Output, line)
	return
}
