package scanner

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// DefaultCommandTimeout bounds a single listing command.
const DefaultCommandTimeout = 5 * time.Second

// Parser turns a listing command's output into records.
type Parser func(output []byte) ([]Record, error)

// CommandLister runs an external command and parses its output.
type CommandLister struct {
	Name    string
	Args    []string
	Timeout time.Duration
	Parse   Parser
}

// List runs the command under a bounded timeout.
func (c *CommandLister) List(ctx context.Context) ([]Record, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, c.Name, c.Args...).Output()
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", c.Name, err)
	}
	parse := c.Parse
	if parse == nil {
		parse = ParseLines
	}
	return parse(out)
}

// ParseTasklistCSV parses `tasklist /v /fo CSV` output. The first column is
// the image name and the last column the window title.
func ParseTasklistCSV(output []byte) ([]Record, error) {
	r := csv.NewReader(bytes.NewReader(output))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var records []Record
	header := true
	for {
		fields, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse tasklist output: %w", err)
		}
		if header {
			header = false
			continue
		}
		if len(fields) < 2 {
			continue
		}
		records = append(records, Record{
			ProcessName: fields[0],
			WindowTitle: fields[len(fields)-1],
		})
	}
	return records, nil
}

// ParseLines parses one record per line in the form "name<TAB>title".
func ParseLines(output []byte) ([]Record, error) {
	var records []Record
	sc := bufio.NewScanner(bytes.NewReader(output))
	for sc.Scan() {
		name, title, ok := strings.Cut(sc.Text(), "\t")
		if !ok {
			continue
		}
		records = append(records, Record{
			ProcessName: strings.TrimSpace(name),
			WindowTitle: strings.TrimSpace(title),
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("parse lines: %w", err)
	}
	return records, nil
}

// ParseWmctrl returns a parser for `wmctrl -lp` output. Window lines carry
// the owning pid in the third column; resolve maps it to a process name.
func ParseWmctrl(resolve func(pid int) (string, error)) Parser {
	return func(output []byte) ([]Record, error) {
		var records []Record
		sc := bufio.NewScanner(bytes.NewReader(output))
		for sc.Scan() {
			// id desktop pid host title...
			fields := strings.Fields(sc.Text())
			if len(fields) < 5 {
				continue
			}
			pid, err := strconv.Atoi(fields[2])
			if err != nil || pid <= 0 {
				continue
			}
			name, err := resolve(pid)
			if err != nil {
				continue
			}
			records = append(records, Record{
				ProcessName: name,
				WindowTitle: strings.Join(fields[4:], " "),
			})
		}
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("parse wmctrl output: %w", err)
		}
		return records, nil
	}
}
