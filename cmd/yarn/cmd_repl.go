package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/dhamidi/yarn/format"
)

const (
	historyFile = ".yarn_history"
	promptMain  = "yarn> "
	promptCont  = "  ... "
)

var replCommands = []string{":help", ":tree", ":source", ":stats", ":reset", ":quit"}

var replCompletions = []string{
	"<<set ", "<<declare ", "<<jump ", "<<detour ", "<<call ", "<<if ", "<<elseif ",
	"<<else>>", "<<endif>>", "<<once>>", "<<endonce>>", "<<enum ", "<<case ", "<<endenum>>",
	"<<return>>", "-> ", "=> ",
}

func newReplCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Type dialogue lines and see how they parse",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepl(cmd.Context())
		},
	}
}

func runRepl(ctx context.Context) error {
	s, err := newSession(ctx, newParser())
	if err != nil {
		return err
	}

	r := lipgloss.NewRenderer(os.Stdout)
	errStyle := r.NewStyle().Foreground(lipgloss.Color("1"))
	treeStyle := r.NewStyle().Foreground(lipgloss.Color("6"))

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	ln.SetCompleter(func(line string) []string {
		var out []string
		for _, c := range slices.Concat(replCommands, replCompletions) {
			if strings.HasPrefix(c, strings.TrimLeft(line, " ")) {
				out = append(out, line[:len(line)-len(strings.TrimLeft(line, " "))]+c)
			}
		}
		return out
	})

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)
	if f, err := os.Open(histPath); err == nil {
		ln.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			ln.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Println("Type dialogue lines or commands. :help lists the commands.")
	for {
		entry, a, ok := readEntry(ctx, ln, s)
		if !ok {
			fmt.Println()
			return nil
		}

		if cmd := strings.TrimSpace(entry); strings.HasPrefix(cmd, ":") {
			if quit := runReplCommand(ctx, s, cmd); quit {
				return nil
			}
			continue
		}
		if strings.TrimSpace(entry) == "" || a == nil {
			continue
		}
		ln.AppendHistory(entry)

		if errs := a.errors(); len(errs) > 0 {
			for _, n := range errs {
				fmt.Println(errStyle.Render(n.Error().Error()))
			}
			continue
		}
		s.commit(a)
		for _, n := range a.statements() {
			fmt.Println(treeStyle.Render(n.String()))
		}
	}
}

// readEntry reads lines until they parse without errors, a blank line
// ends the entry, or the input is exhausted.
func readEntry(ctx context.Context, ln *liner.State, s *session) (string, *attempt, bool) {
	var b strings.Builder
	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			return "", nil, false
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", nil, true
		}
		if err != nil {
			return "", nil, false
		}

		if b.Len() == 0 && strings.HasPrefix(strings.TrimSpace(line), ":") {
			return line, nil, true
		}
		if b.Len() > 0 && strings.TrimSpace(line) == "" {
			entry := b.String()
			a, err := s.try(ctx, entry)
			if err != nil {
				return entry, nil, true
			}
			return entry, a, true
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		a, err := s.try(ctx, b.String())
		if err != nil {
			return b.String(), nil, true
		}
		if len(a.errors()) == 0 || strings.TrimSpace(line) == "" {
			return b.String(), a, true
		}
	}
}

func runReplCommand(ctx context.Context, s *session, cmd string) (quit bool) {
	switch cmd {
	case ":quit", ":q":
		return true
	case ":tree":
		format.NewSexpEncoder(os.Stdout, true).Encode(s.tree)
	case ":source":
		fmt.Print(string(s.src))
	case ":stats":
		st := s.tree.Stats()
		fmt.Printf("%d bytes, lexed %d tokens, reused %d\n", len(s.src), st.Lexed, st.Reused)
	case ":reset":
		if err := s.reset(ctx); err != nil {
			fmt.Println(err)
		}
	case ":help":
		fmt.Println(strings.Join(replCommands, " "))
	default:
		fmt.Printf("unknown command %s. Type :help for a list.\n", cmd)
	}
	return false
}
