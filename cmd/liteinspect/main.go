package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/RichardKnop/liteinspect"
	"github.com/RichardKnop/liteinspect/internal/pkg/logging"
)

const (
	cliName string = "liteinspect"
)

// CLI runs one command against a database file, or reads commands from
// stdin when no command is given.
type CLI struct {
	Database string `arg:"" help:"Path to the database file." type:"existingfile"`
	Command  string `arg:"" optional:"" help:"Command to run: .dbinfo, .tables or SELECT COUNT(*) FROM <table>. Starts a prompt when omitted."`

	LogLevel       string `name:"log-level" env:"LOG_LEVEL" default:"warn" help:"Log level (debug, info, warn, error)."`
	Mmap           bool   `help:"Memory-map the database file instead of reading it."`
	MaxCachedPages int    `name:"max-cached-pages" default:"0" help:"Number of raw pages to keep in memory."`
	Parallelism    int    `default:"1" help:"Number of subtrees a row count visits concurrently."`
}

func (c *CLI) Run(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	logger, err := logging.New(c.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	defer logger.Sync() // flushes buffer, if any

	config := liteinspect.DefaultConnectionConfig(c.Database)
	config.LogLevel = c.LogLevel
	config.Mmap = c.Mmap
	config.MaxCachedPages = c.MaxCachedPages
	if c.Parallelism > 0 {
		config.Parallelism = c.Parallelism
	}

	db, err := liteinspect.OpenWithLogger(ctx, logger, config)
	if err != nil {
		return err
	}
	defer db.Close()

	if strings.TrimSpace(c.Command) != "" {
		return db.Exec(ctx, stdout, c.Command)
	}

	return repl(ctx, db, stdin, stdout)
}

type metaCommand int

const (
	Unknown metaCommand = iota + 1
	Help
	Exit
)

func doMetaCommand(inputBuffer string) metaCommand {
	switch strings.ToLower(inputBuffer) {
	case ".help":
		return Help
	case ".exit", ".quit":
		return Exit
	default:
		return Unknown
	}
}

// repl reads one command per line until EOF, .exit or cancellation.
// Failed commands are reported and the prompt continues.
func repl(ctx context.Context, db *liteinspect.DB, stdin io.Reader, stdout io.Writer) error {
	printPrompt := func() {
		fmt.Fprint(stdout, cliName, "> ")
	}

	reader := bufio.NewScanner(stdin)
	printPrompt()

	for reader.Scan() {
		if ctx.Err() != nil {
			break
		}

		inputBuffer := strings.TrimSpace(reader.Text())
		switch {
		case inputBuffer == "":
		case doMetaCommand(inputBuffer) == Help:
			fmt.Fprintln(stdout, ".help                          - Show available commands")
			fmt.Fprintln(stdout, ".exit                          - Closes program")
			fmt.Fprintln(stdout, ".dbinfo                        - Show page size and schema counts")
			fmt.Fprintln(stdout, ".tables                        - List all tables in the database")
			fmt.Fprintln(stdout, "SELECT COUNT(*) FROM <table>   - Count rows of a table")
		case doMetaCommand(inputBuffer) == Exit:
			return nil
		default:
			if err := db.Exec(ctx, stdout, inputBuffer); err != nil {
				fmt.Fprintf(stdout, "Error: %s\n", err)
			}
		}
		printPrompt()
	}
	// Print an additional line if we encountered an EOF character
	fmt.Fprintln(stdout)

	return reader.Err()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name(cliName),
		kong.Description("Inspect SQLite database files without an SQL engine."),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	err := cli.Run(ctx, os.Stdin, os.Stdout)
	kctx.FatalIfErrorf(err)
}
