// Package listener owns the interactive terminal prompt.
package listener

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/chzyer/readline"
)

var rl *readline.Instance
var mu sync.Mutex

func Init() error {
	var err error
	rl, err = readline.NewEx(&readline.Config{
		Prompt:          "> ",
		InterruptPrompt: "",
		EOFPrompt:       "",
	})
	return err
}

func Close() {
	if rl != nil {
		_ = rl.Close()
		rl = nil
	}
}

// PrintAbove writes s above the active prompt, or to stdout without one.
func PrintAbove(s string) {
	mu.Lock()
	defer mu.Unlock()
	if rl == nil {
		fmt.Println(s)
		return
	}
	_, _ = rl.Write([]byte("\r\n" + s + "\r\n"))
	rl.Refresh()
}

func readAnswer(prompt string) (string, error) {
	mu.Lock()
	old := rl.Config.Prompt
	rl.SetPrompt(prompt)
	mu.Unlock()

	line, err := rl.Readline()

	mu.Lock()
	rl.SetPrompt(old)
	mu.Unlock()
	return strings.TrimSpace(strings.ToLower(line)), err
}

// AskYesNo repeats the question until it gets y/yes or n/no. Interrupt or
// EOF counts as no.
func AskYesNo(question string) bool {
	if rl == nil {
		return false
	}
	PrintAbove(question + " [y/n]")
	for {
		ans, err := readAnswer("> ")
		if err == readline.ErrInterrupt || err == io.EOF {
			return false
		}
		if parsed, ok := ParseAnswer(ans); ok {
			return parsed
		}
		PrintAbove("Please answer y/n.")
	}
}

// ParseAnswer maps a typed reply to a decision; ok is false when the reply is
// neither yes nor no.
func ParseAnswer(ans string) (yes bool, ok bool) {
	switch strings.TrimSpace(strings.ToLower(ans)) {
	case "y", "yes":
		return true, true
	case "n", "no":
		return false, true
	}
	return false, false
}
