// Package interactive provides the interactive command-line interface
// for neptune-dump.
package interactive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/alti2-tools/neptune-go/pkg/logbook"
	"github.com/alti2-tools/neptune-go/pkg/session"
)

// Shell handles interactive mode for neptune-dump. The session is
// already connected when the shell starts.
type Shell struct {
	sess   *session.Session
	logger *slog.Logger
	rl     *readline.Instance

	// Cached result of the last download, for the records command.
	records []logbook.Record
}

// New creates a shell over a connected session.
func New(sess *session.Session, logger *slog.Logger) (*Shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "neptune> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Shell{sess: sess, logger: logger, rl: rl}, nil
}

// Stdout returns a writer that coordinates with the readline prompt.
func (s *Shell) Stdout() io.Writer {
	return s.rl.Stdout()
}

// Run starts the interactive command loop. It returns on quit, EOF or
// context cancellation.
func (s *Shell) Run(ctx context.Context) {
	defer s.rl.Close()

	s.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := s.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(s.rl.Stdout(), "Exiting...")
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			s.printHelp()

		case "info", "i":
			s.cmdInfo()

		case "caps":
			s.cmdCaps()

		case "state":
			fmt.Fprintln(s.rl.Stdout(), s.sess.State())

		case "download", "dl":
			s.cmdDownload(ctx)

		case "records", "ls":
			s.cmdRecords()

		case "export":
			s.cmdExport(args)

		case "quit", "exit", "q":
			fmt.Fprintln(s.rl.Stdout(), "Exiting...")
			return

		default:
			fmt.Fprintf(s.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.rl.Stdout(), `
Neptune Commands:
  info                - Show device identity
  caps                - Show negotiated capabilities
  state               - Show session state
  download            - Download the logbook from the device
  records             - List downloaded records
  export <file.jsonl> - Write downloaded records as JSON lines
  quit                - Exit`)
}

func (s *Shell) cmdInfo() {
	info := s.sess.DeviceInfo()
	if info == nil {
		fmt.Fprintln(s.rl.Stdout(), "not connected")
		return
	}
	fmt.Fprintln(s.rl.Stdout(), info)
}

func (s *Shell) cmdCaps() {
	caps := s.sess.Capabilities()
	fmt.Fprintf(s.rl.Stdout(), "protocol v%d, %s records, %d byte pages, encrypted=%v\n",
		caps.ProtocolVersion, caps.LogbookFormat, caps.PageSize, caps.EncryptedPages)
}

func (s *Shell) cmdDownload(ctx context.Context) {
	var sink logbook.SliceSink
	start := time.Now()
	decodeErrs, err := s.sess.DownloadLogbook(ctx, &sink)
	for _, de := range decodeErrs {
		fmt.Fprintf(s.rl.Stdout(), "bad record %d: %v (raw %X)\n", de.Index, de.Reason, de.Raw)
	}
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "download failed: %v\n", err)
		return
	}
	s.records = sink.Records
	fmt.Fprintf(s.rl.Stdout(), "%d records (%d bad) in %s\n",
		len(s.records), len(decodeErrs), time.Since(start).Round(time.Millisecond))
}

func (s *Shell) cmdRecords() {
	if len(s.records) == 0 {
		fmt.Fprintln(s.rl.Stdout(), "no records (run 'download' first)")
		return
	}
	for i := range s.records {
		fmt.Fprintln(s.rl.Stdout(), &s.records[i])
	}
}

func (s *Shell) cmdExport(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(s.rl.Stdout(), "usage: export <file.jsonl>")
		return
	}
	if len(s.records) == 0 {
		fmt.Fprintln(s.rl.Stdout(), "no records (run 'download' first)")
		return
	}

	f, err := os.Create(args[0])
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "export failed: %v\n", err)
		return
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, r := range s.records {
		if err := enc.Encode(r); err != nil {
			fmt.Fprintf(s.rl.Stdout(), "export failed: %v\n", err)
			return
		}
	}
	fmt.Fprintf(s.rl.Stdout(), "wrote %d records to %s\n", len(s.records), args[0])
}
