// Package console reads text commands line by line, one token per line.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"pipelined.dev/synth/command"
	"pipelined.dev/synth/log"
)

// Prompt is printed before every line when input is a terminal.
const Prompt = "> "

// Reader parses lines into commands, see command.Parse. Empty lines
// are ignored, unparsable ones are logged.
type Reader struct {
	in     io.Reader
	out    io.Writer
	log    log.Logger
	prompt bool
}

// New returns a new console reader. Prompt is enabled if in is a
// terminal.
func New(in io.Reader, out io.Writer, l log.Logger) *Reader {
	r := Reader{
		in:  in,
		out: out,
		log: l,
	}
	if f, ok := in.(*os.File); ok {
		r.prompt = term.IsTerminal(int(f.Fd()))
	}
	return &r
}

// Run reads lines until input ends, context is done or the channel is
// disconnected. Context is checked between lines.
func (r *Reader) Run(ctx context.Context, s *command.Sender) error {
	scanner := bufio.NewScanner(r.in)
	for {
		if r.prompt {
			fmt.Fprint(r.out, Prompt)
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		cmd, err := command.Parse(line)
		if err != nil {
			r.log.Warn(err.Error())
			continue
		}
		if err := s.Send(ctx, cmd); err != nil {
			if errors.Is(err, ctx.Err()) {
				return nil
			}
			return err
		}
	}
}
