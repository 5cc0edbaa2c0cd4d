// Command neptune-log is a tool for viewing and analyzing protocol
// capture files.
//
// Capture files are created by running neptune-dump with the -capture
// flag.
//
// Usage:
//
//	neptune-log <command> [flags] <file.nlog>
//
// Commands:
//
//	view     View capture in human-readable format
//	export   Export capture to JSON lines
//	stats    Show statistics about the capture
//
// Examples:
//
//	# View all events
//	neptune-log view trace.nlog
//
//	# View only wire-layer events
//	neptune-log view -layer wire trace.nlog
//
//	# View only resynchronization episodes
//	neptune-log view -category resync trace.nlog
//
//	# Export to JSONL
//	neptune-log export trace.nlog
//
//	# Show statistics
//	neptune-log stats trace.nlog
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/alti2-tools/neptune-go/cmd/neptune-log/commands"
)

const usage = `neptune-log - Alti-2 protocol capture analyzer

Usage:
  neptune-log <command> [flags] <file.nlog>

Commands:
  view     View capture in human-readable format
  export   Export capture to JSON lines
  stats    Show statistics about the capture

Use "neptune-log <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "view":
		runView(args)
	case "export":
		runExport(args)
	case "stats":
		runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

func runView(args []string) {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `neptune-log view - View capture in human-readable format

Usage:
  neptune-log view [flags] <file.nlog>

Flags:
`)
		fs.PrintDefaults()
	}

	layer := fs.String("layer", "", "Filter by layer (transport, wire, session)")
	direction := fs.String("direction", "", "Filter by direction (in, out)")
	category := fs.String("category", "", "Filter by category (frame, transaction, state, resync, error)")
	sessionID := fs.String("session", "", "Filter by session ID")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: capture file path required")
		fs.Usage()
		os.Exit(1)
	}

	filter, err := commands.BuildFilter(*sessionID, *layer, *direction, *category)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := commands.RunView(fs.Arg(0), filter, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `neptune-log export - Export capture to JSON lines

Usage:
  neptune-log export [flags] <file.nlog>

Flags:
`)
		fs.PrintDefaults()
	}

	output := fs.String("o", "", "Output file (default: stdout)")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: capture file path required")
		fs.Usage()
		os.Exit(1)
	}

	if err := commands.RunExport(fs.Arg(0), *output); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `neptune-log stats - Show statistics about the capture

Usage:
  neptune-log stats <file.nlog>

`)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: capture file path required")
		fs.Usage()
		os.Exit(1)
	}

	if err := commands.RunStats(fs.Arg(0), os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
