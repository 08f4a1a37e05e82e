package cli

import (
	"fmt"
	"io"

	flag "github.com/spf13/pflag"
)

func cmdCheck() *Command {
	return &Command{
		Flags: flag.NewFlagSet("check", flag.ContinueOnError),
		Usage: "check <dbfile>",
		Short: "Verify the structural invariants of a database",
		Exec: func(o *IO, _ io.Reader, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one <dbfile> argument, got %d", len(args))
			}

			m, err := openDB(args[0])
			if err != nil {
				return err
			}

			defer func() { _ = m.Close() }()

			if err := m.Check(); err != nil {
				return err
			}

			o.Println("ok")

			return nil
		},
	}
}
