package cli

import (
	"fmt"
	"io"
	"path/filepath"

	flag "github.com/spf13/pflag"

	"github.com/haguenau/mcdb/pkg/mcdb"
)

// openDB splits a database path into (dir, basename) and maps it.
func openDB(path string) (*mcdb.Map, error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	return mcdb.Open(dir, base)
}

func cmdGet() *Command {
	flags := flag.NewFlagSet("get", flag.ContinueOnError)
	all := flags.Bool("all", false, "Print every value stored under the key")
	seq := flags.Uint("seq", 0, "Print only the nth duplicate (0-based)")

	return &Command{
		Flags: flags,
		Usage: "get <dbfile> <key> [flags]",
		Short: "Look up a key and print its value",
		Exec: func(o *IO, _ io.Reader, args []string) error {
			if len(args) != 2 {
				return fmt.Errorf("expected <dbfile> <key>, got %d arguments", len(args))
			}

			m, err := openDB(args[0])
			if err != nil {
				return err
			}

			defer func() { _ = m.Close() }()

			key := []byte(args[1])
			c := mcdb.NewCursor(m)
			c.FindStart(key)

			printed := false

			for n := uint(0); ; n++ {
				found, err := c.FindNext(key)
				if err != nil {
					return err
				}

				if !found {
					break
				}

				switch {
				case *all:
					if err := writeRecord(o, key, c.Value()); err != nil {
						return err
					}

					printed = true
				case n == *seq:
					o.Printf("%s\n", c.Value())

					return nil
				}
			}

			if !printed {
				return fmt.Errorf("key %q not found", args[1])
			}

			return nil
		},
	}
}
