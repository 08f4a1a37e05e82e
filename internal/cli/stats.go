package cli

import (
	"fmt"
	"io"

	flag "github.com/spf13/pflag"

	"github.com/haguenau/mcdb/pkg/mcdb"
)

func cmdStats() *Command {
	return &Command{
		Flags: flag.NewFlagSet("stats", flag.ContinueOnError),
		Usage: "stats <dbfile>",
		Short: "Print record and probe-distance statistics",
		Exec: func(o *IO, _ io.Reader, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one <dbfile> argument, got %d", len(args))
			}

			m, err := openDB(args[0])
			if err != nil {
				return err
			}

			defer func() { _ = m.Close() }()

			var (
				records  uint64
				keyBytes uint64
				valBytes uint64
			)

			for key, value := range m.Records() {
				records++
				keyBytes += uint64(len(key))
				valBytes += uint64(len(value))
			}

			// Probe distances: for each record, how many entries a lookup
			// of its key inspects up to and including its first match.
			var dist [11]uint64

			c := mcdb.NewCursor(m)

			for key := range m.Records() {
				probes, err := probeDistance(c, key)
				if err != nil {
					return err
				}

				if probes > 10 {
					probes = 10
				}

				dist[probes]++
			}

			o.Printf("records    %d\n", records)
			o.Printf("key bytes  %d\n", keyBytes)
			o.Printf("data bytes %d\n", valBytes)
			o.Printf("size       %d\n", m.Size())

			o.Printf("probes    ")

			for d := 1; d <= 10; d++ {
				o.Printf(" %d", dist[d])
			}

			o.Println()

			return nil
		},
	}
}

// probeDistance counts entries inspected until key's first match.
func probeDistance(c *mcdb.Cursor, key []byte) (int, error) {
	c.FindStart(key)

	found, err := c.FindNext(key)
	if err != nil {
		return 0, err
	}

	if !found {
		return 0, fmt.Errorf("key %q in record region but not reachable", key)
	}

	return c.Probes(), nil
}
