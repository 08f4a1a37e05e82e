package cli

import (
	"fmt"
	"io"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/haguenau/mcdb/pkg/mcdbmake"
)

func cmdMake() *Command {
	flags := flag.NewFlagSet("make", flag.ContinueOnError)
	input := flags.StringP("input", "i", "", "Read records from `file` instead of stdin")
	distinct := flags.Bool("distinct", false, "Fail if any key appears more than once")

	return &Command{
		Flags: flags,
		Usage: "make <dbfile> [flags]",
		Short: "Build a database from textual records",
		Long: "Build a database from '+klen,vlen:key->value' records read from\n" +
			"stdin (or --input) and publish it atomically at <dbfile>.\n" +
			"Readers of an existing database at that path are undisturbed.",
		Exec: func(_ *IO, stdin io.Reader, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one <dbfile> argument, got %d", len(args))
			}

			src := stdin

			if *input != "" {
				f, err := os.Open(*input) //nolint:gosec
				if err != nil {
					return err
				}

				defer func() { _ = f.Close() }()

				src = f
			}

			mk := mcdbmake.New(0)

			if err := readRecords(src, mk.Add); err != nil {
				return err
			}

			if *distinct {
				if err := mk.CheckDistinct(); err != nil {
					return err
				}
			}

			return mk.Create(args[0])
		},
	}
}
