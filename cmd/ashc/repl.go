package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/chzyer/readline"
)

// repl reads one line at a time and interprets it against a single VM,
// so `have` declarations and `func` definitions persist across lines —
// each line is its own compile, but they all share one set of globals.
func repl(disassembly bool) error {
	rl, err := readline.New(">> ")
	if err != nil {
		return err
	}
	defer rl.Close()

	v := newVM(".")
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if line == "" {
			continue
		}
		if err := compileAndRun(v, line, disassembly); err != nil {
			fmt.Println(err)
		}
	}
}
