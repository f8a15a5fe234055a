package main

import (
	"os"
	"sync/atomic"

	"golang.org/x/term"
)

var (
	stdinIsTerminal  int32 = -1 // -1 = unchecked, 0 = no, 1 = yes
	stdoutIsTerminal int32 = -1
)

func isTerminal(fd int, cached *int32) bool {
	if v := atomic.LoadInt32(cached); v >= 0 {
		return v == 1
	}
	result := term.IsTerminal(fd)
	if result {
		atomic.StoreInt32(cached, 1)
	} else {
		atomic.StoreInt32(cached, 0)
	}
	return result
}

// interactiveCapable reports whether both ends of the session are a
// terminal, which the progress view needs for input and redraws.
func interactiveCapable() bool {
	return isTerminal(int(os.Stdin.Fd()), &stdinIsTerminal) &&
		isTerminal(int(os.Stdout.Fd()), &stdoutIsTerminal)
}

func stdoutTerminal() bool {
	return isTerminal(int(os.Stdout.Fd()), &stdoutIsTerminal)
}
