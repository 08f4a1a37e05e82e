package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/haguenau/mcdb/internal/nssdb"
	"github.com/haguenau/mcdb/pkg/mcdb"
	"github.com/haguenau/mcdb/pkg/mcdbmake"
)

// loadNSSConfig resolves the adapter config: an explicit --config file,
// or the default layout rooted at dir.
func loadNSSConfig(configPath, dir string) (nssdb.Config, error) {
	if configPath != "" {
		return nssdb.LoadConfig(configPath)
	}

	return nssdb.DefaultConfig(dir), nil
}

func datasetDB(cfg nssdb.Config, dataset string) (string, string, error) {
	base, ok := cfg.Databases[dataset]
	if !ok {
		return "", "", fmt.Errorf("dataset %q not configured", dataset)
	}

	dir := cfg.Dir
	if dir == "" {
		dir = "."
	}

	return dir, base, nil
}

func cmdNSSMake() *Command {
	flags := flag.NewFlagSet("nss-make", flag.ContinueOnError)
	configPath := flags.StringP("config", "c", "", "Adapter config `file` (JSONC)")
	dir := flags.StringP("dir", "d", ".", "Database `directory` when no config file is given")
	input := flags.StringP("input", "i", "", "Read source lines from `file` instead of stdin")

	return &Command{
		Flags: flags,
		Usage: "nss-make <dataset> [flags]",
		Short: "Build a dataset database from its flat source format",
		Long: "Parse /etc-style source lines for a dataset (passwd, group,\n" +
			"services), encode them with the dataset's adapter, and publish\n" +
			"the database file named by the adapter config.",
		Exec: func(_ *IO, stdin io.Reader, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one <dataset> argument, got %d", len(args))
			}

			dataset := args[0]

			caps, ok := nssdb.Lookup(dataset)
			if !ok {
				return fmt.Errorf("unknown dataset %q", dataset)
			}

			cfg, err := loadNSSConfig(*configPath, *dir)
			if err != nil {
				return err
			}

			dbDir, base, err := datasetDB(cfg, dataset)
			if err != nil {
				return err
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
			wi := &nssdb.WriteInfo{
				Scratch: make([]byte, 0, 256),
				Insert:  mk.Add,
			}

			scanner := bufio.NewScanner(src)
			for lineNo := 1; scanner.Scan(); lineNo++ {
				line := strings.TrimSpace(scanner.Text())
				if line == "" || strings.HasPrefix(line, "#") {
					continue
				}

				rec, err := nssdb.ParseSourceLine(dataset, line)
				if err != nil {
					return fmt.Errorf("line %d: %w", lineNo, err)
				}

				if err := caps.Encode(wi, rec); err != nil {
					return fmt.Errorf("line %d: %w", lineNo, err)
				}
			}

			if err := scanner.Err(); err != nil {
				return err
			}

			if err := mk.CheckDistinct(); err != nil {
				return err
			}

			return mk.Create(filepath.Join(dbDir, base))
		},
	}
}

func cmdNSSGet() *Command {
	flags := flag.NewFlagSet("nss-get", flag.ContinueOnError)
	configPath := flags.StringP("config", "c", "", "Adapter config `file` (JSONC)")
	dir := flags.StringP("dir", "d", ".", "Database `directory` when no config file is given")
	byID := flags.Bool("id", false, "Look up by numeric id (uid, gid, port) instead of name")
	proto := flags.String("proto", "tcp", "Protocol for services lookups")

	return &Command{
		Flags: flags,
		Usage: "nss-get <dataset> <name-or-id> [flags]",
		Short: "Look up a dataset record and print its parsed form",
		Exec: func(o *IO, _ io.Reader, args []string) error {
			if len(args) != 2 {
				return fmt.Errorf("expected <dataset> <name-or-id>, got %d arguments", len(args))
			}

			dataset := args[0]

			caps, ok := nssdb.Lookup(dataset)
			if !ok {
				return fmt.Errorf("unknown dataset %q", dataset)
			}

			cfg, err := loadNSSConfig(*configPath, *dir)
			if err != nil {
				return err
			}

			dbDir, base, err := datasetDB(cfg, dataset)
			if err != nil {
				return err
			}

			key, err := datasetKey(dataset, args[1], *byID, *proto)
			if err != nil {
				return err
			}

			m, err := mcdb.Open(dbDir, base)
			if err != nil {
				return err
			}

			defer func() { _ = m.Close() }()

			c := mcdb.NewCursor(m)

			found, err := c.Find(key)
			if err != nil {
				return err
			}

			if !found {
				return fmt.Errorf("%s %q not found", dataset, args[1])
			}

			rec, err := caps.Parse(c.Value())
			if err != nil {
				return err
			}

			o.Printf("%+v\n", rec)

			return nil
		},
	}
}

// datasetKey derives the lookup key for a dataset query.
func datasetKey(dataset, arg string, byID bool, proto string) ([]byte, error) {
	if dataset == "services" {
		if byID {
			port, err := strconv.ParseUint(arg, 10, 16)
			if err != nil {
				return nil, fmt.Errorf("port %q: %w", arg, err)
			}

			return nssdb.ServicePortKey(uint16(port), proto), nil
		}

		return nssdb.ServiceNameKey(arg, proto), nil
	}

	if byID {
		id, err := strconv.ParseUint(arg, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("id %q: %w", arg, err)
		}

		return nssdb.IDKey(uint32(id)), nil
	}

	return nssdb.NameKey(arg), nil
}
