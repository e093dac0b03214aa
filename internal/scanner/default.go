package scanner

import (
	"fmt"
	"log/slog"
	"runtime"
	"time"
)

// Output formats of a configured listing command.
const (
	FormatLines    = "lines"
	FormatTasklist = "tasklist"
	FormatWmctrl   = "wmctrl"
)

// DefaultCommand returns the listing command used when none is configured.
func DefaultCommand() *CommandLister {
	switch runtime.GOOS {
	case "windows":
		return &CommandLister{
			Name:  "tasklist",
			Args:  []string{"/v", "/fo", "CSV"},
			Parse: ParseTasklistCSV,
		}
	default:
		return &CommandLister{
			Name:  "wmctrl",
			Args:  []string{"-lp"},
			Parse: ParseWmctrl(ProcComm),
		}
	}
}

// Options selects where process records come from.
type Options struct {
	Command string // empty uses DefaultCommand
	Args    []string
	Format  string // output format of Command, FormatLines by default
	Timeout time.Duration
	MPRIS   bool
	Logger  *slog.Logger
}

// NewLister builds the lister described by opts. The returned close func
// releases the MPRIS bus connection, if any.
func NewLister(opts Options) (Lister, func() error, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	cmd := DefaultCommand()
	if opts.Command != "" {
		parse, err := parserFor(opts.Format)
		if err != nil {
			return nil, nil, err
		}
		cmd = &CommandLister{Name: opts.Command, Args: opts.Args, Parse: parse}
	}
	cmd.Timeout = opts.Timeout

	noop := func() error { return nil }
	if !opts.MPRIS {
		return cmd, noop, nil
	}

	mpris, err := NewMPRISLister(opts.Timeout)
	if err != nil {
		logger.Warn("mpris unavailable, using window titles only", "error", err)
		return cmd, noop, nil
	}
	// Window titles first: rules that match both keep the window's priority.
	return MultiLister{cmd, mpris}, mpris.Close, nil
}

func parserFor(format string) (Parser, error) {
	switch format {
	case "", FormatLines:
		return ParseLines, nil
	case FormatTasklist:
		return ParseTasklistCSV, nil
	case FormatWmctrl:
		return ParseWmctrl(ProcComm), nil
	default:
		return nil, fmt.Errorf("unknown scanner output format %q", format)
	}
}
