// Package main provides mcdbsh, an interactive query shell for constant
// databases.
//
// The shell keeps a registered reader on the database and refreshes it on
// demand, so a rebuilt file can be inspected without restarting.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/haguenau/mcdb/pkg/mcdb"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: mcdbsh <dbfile>")
		os.Exit(2)
	}

	if err := run(os.Args[1]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(path string) error {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	m, err := mcdb.Open(dir, base)
	if err != nil {
		return err
	}

	r := &repl{m: m, name: base}

	defer func() { _ = r.m.Close() }()

	return r.run()
}

// repl is the interactive command loop.
type repl struct {
	m    *mcdb.Map
	name string
	ln   *liner.State
}

// historyFile returns the path to the history file.
func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".mcdbsh_history")
}

func (r *repl) run() error {
	r.ln = liner.NewLiner()
	defer r.ln.Close()

	r.ln.SetCtrlCAborts(true)

	if f, err := os.Open(historyFile()); err == nil {
		_, _ = r.ln.ReadHistory(f)
		_ = f.Close()
	}

	fmt.Printf("mcdbsh - %s (%d bytes)\n", r.name, r.m.Size())
	fmt.Println("Type 'help' for available commands.")
	fmt.Println()

	for {
		line, err := r.ln.Prompt("mcdb> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Println()

				break
			}

			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		r.ln.AppendHistory(line)

		cmd, rest, _ := strings.Cut(line, " ")

		switch strings.ToLower(cmd) {
		case "exit", "quit", "q":
			r.saveHistory()

			return nil

		case "help", "?":
			r.printHelp()

		case "get":
			r.cmdGet(rest)

		case "keys":
			r.cmdKeys()

		case "check":
			r.cmdCheck()

		case "refresh":
			r.cmdRefresh()

		case "info":
			fmt.Printf("%s: %d bytes mapped\n", r.name, r.m.Size())

		default:
			fmt.Printf("Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}

	r.saveHistory()

	return nil
}

func (r *repl) saveHistory() {
	path := historyFile()
	if path == "" {
		return
	}

	f, err := os.Create(path) //nolint:gosec
	if err != nil {
		return
	}

	_, _ = r.ln.WriteHistory(f)
	_ = f.Close()
}

func (r *repl) printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  get <key>   print every value stored under <key>")
	fmt.Println("  keys        list all keys in file order")
	fmt.Println("  check       verify structural invariants")
	fmt.Println("  refresh     switch to a replaced database file")
	fmt.Println("  info        show mapping info")
	fmt.Println("  exit        leave the shell")
}

func (r *repl) cmdGet(arg string) {
	if arg == "" {
		fmt.Println("usage: get <key>")

		return
	}

	key := []byte(arg)
	c := mcdb.NewCursor(r.m)
	c.FindStart(key)

	n := 0

	for {
		found, err := c.FindNext(key)
		if err != nil {
			fmt.Println("error:", err)

			return
		}

		if !found {
			break
		}

		fmt.Printf("%s\n", c.Value())

		n++
	}

	if n == 0 {
		fmt.Println("not found")
	}
}

func (r *repl) cmdKeys() {
	for key := range r.m.Records() {
		fmt.Printf("%s\n", key)
	}
}

func (r *repl) cmdCheck() {
	if err := r.m.Check(); err != nil {
		fmt.Println("error:", err)

		return
	}

	fmt.Println("ok")
}

func (r *repl) cmdRefresh() {
	if !r.m.RefreshCheck() {
		fmt.Println("up to date")

		return
	}

	if !mcdb.Refresh(&r.m) {
		fmt.Println("replacement detected but could not be mapped; keeping current")

		return
	}

	fmt.Printf("refreshed: %d bytes mapped\n", r.m.Size())
}
