// Package cli implements the mcdbctl command set.
package cli

import (
	"fmt"
	"io"
	"strings"

	flag "github.com/spf13/pflag"
)

// Run is the main entry point. Returns exit code.
func Run(stdin io.Reader, out, errOut io.Writer, args []string) int {
	globalFlags := flag.NewFlagSet("mcdbctl", flag.ContinueOnError)
	globalFlags.SetInterspersed(false)
	globalFlags.Usage = func() {}
	globalFlags.SetOutput(&strings.Builder{})
	flagHelp := globalFlags.BoolP("help", "h", false, "Show help")

	o := NewIO(out, errOut)
	commands := allCommands()

	if err := globalFlags.Parse(args[1:]); err != nil {
		o.ErrPrintln("error:", err)
		printUsage(errOut, commands)

		return 1
	}

	commandMap := make(map[string]*Command, len(commands))
	for _, cmd := range commands {
		commandMap[cmd.Name()] = cmd
	}

	commandAndArgs := globalFlags.Args()

	if *flagHelp {
		printUsage(errOut, commands)

		return 0
	}

	if len(commandAndArgs) == 0 {
		o.ErrPrintln("error: no command provided")
		printUsage(errOut, commands)

		return 1
	}

	cmdName := commandAndArgs[0]

	cmd, ok := commandMap[cmdName]
	if !ok {
		o.ErrPrintln("error: unknown command:", cmdName)
		printUsage(errOut, commands)

		return 1
	}

	return cmd.Run(o, stdin, commandAndArgs[1:])
}

func allCommands() []*Command {
	return []*Command{
		cmdMake(),
		cmdGet(),
		cmdDump(),
		cmdStats(),
		cmdCheck(),
		cmdNSSMake(),
		cmdNSSGet(),
	}
}

func printUsage(w io.Writer, commands []*Command) {
	_, _ = fmt.Fprintln(w, "Usage: mcdbctl <command> [flags]")
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "Commands:")

	for _, cmd := range commands {
		_, _ = fmt.Fprintln(w, cmd.HelpLine())
	}
}
