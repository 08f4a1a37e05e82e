package cli

import (
	"fmt"
	"io"

	flag "github.com/spf13/pflag"
)

func cmdDump() *Command {
	return &Command{
		Flags: flag.NewFlagSet("dump", flag.ContinueOnError),
		Usage: "dump <dbfile>",
		Short: "Write all records as textual '+klen,vlen:key->value' lines",
		Exec: func(o *IO, _ io.Reader, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one <dbfile> argument, got %d", len(args))
			}

			m, err := openDB(args[0])
			if err != nil {
				return err
			}

			defer func() { _ = m.Close() }()

			for key, value := range m.Records() {
				if err := writeRecord(o, key, value); err != nil {
					return err
				}
			}

			o.Println()

			return nil
		},
	}
}
