package host

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// Terminal implements Host on a line-oriented terminal.
type Terminal struct {
	in  *bufio.Reader
	out io.Writer
	mu  sync.Mutex

	// Open launches url; defaults to the platform opener.
	Open func(ctx context.Context, url string) error

	info   *color.Color
	errc   *color.Color
	status *color.Color
	dim    *color.Color
}

func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{
		in:     bufio.NewReader(in),
		out:    out,
		Open:   openWithPlatform,
		info:   color.New(color.FgGreen),
		errc:   color.New(color.FgRed, color.Bold),
		status: color.New(color.FgCyan),
		dim:    color.New(color.Faint),
	}
}

func (t *Terminal) ShowInfo(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.info.Fprintln(t.out, msg)
}

func (t *Terminal) ShowError(ctx context.Context, msg string, actions ...string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.errc.Fprintln(t.out, msg)
	if len(actions) == 0 {
		return "", nil
	}
	for i, a := range actions {
		fmt.Fprintf(t.out, "  [%d] %s\n", i+1, a)
	}
	fmt.Fprint(t.out, "Choose an action (empty to dismiss): ")
	line, err := t.readLine(ctx)
	if err != nil {
		return "", err
	}
	n, convErr := strconv.Atoi(line)
	if convErr != nil || n < 1 || n > len(actions) {
		return "", nil
	}
	return actions[n-1], nil
}

func (t *Terminal) SetStatus(msg string) func() {
	t.mu.Lock()
	t.status.Fprintf(t.out, "… %s\n", msg)
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			t.dim.Fprintln(t.out, "done")
		})
	}
}

// ShowQuickPick lists items and reads a selection: a number picks that row,
// other text narrows the list by fuzzy match, an empty line or EOF dismisses.
func (t *Terminal) ShowQuickPick(ctx context.Context, items []QuickPickItem, opts QuickPickOptions) (*QuickPickItem, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	shown := items
	for {
		if opts.Placeholder != "" {
			t.dim.Fprintln(t.out, opts.Placeholder)
		}
		for i, it := range shown {
			fmt.Fprintf(t.out, "%3d) %s", i+1, it.Label)
			if it.Description != "" {
				fmt.Fprintf(t.out, "  %s", it.Description)
			}
			fmt.Fprintln(t.out)
			if it.Detail != "" {
				t.dim.Fprintf(t.out, "     %s\n", it.Detail)
			}
		}
		fmt.Fprintf(t.out, "Select [1-%d], type to filter, empty to cancel: ", len(shown))

		line, err := t.readLine(ctx)
		if err != nil {
			return nil, err
		}
		if line == "" {
			return nil, nil
		}
		if n, err := strconv.Atoi(line); err == nil {
			if n >= 1 && n <= len(shown) {
				picked := shown[n-1]
				return &picked, nil
			}
			fmt.Fprintf(t.out, "No item %d\n", n)
			continue
		}

		filtered := FilterItems(items, line, opts)
		switch len(filtered) {
		case 0:
			fmt.Fprintf(t.out, "No items match %q\n", line)
		case 1:
			picked := filtered[0]
			return &picked, nil
		default:
			shown = filtered
		}
	}
}

func (t *Terminal) OpenExternal(ctx context.Context, url string) error {
	if t.Open == nil {
		return errors.New("no link opener configured")
	}
	if err := t.Open(ctx, url); err != nil {
		return fmt.Errorf("open %s: %w", url, err)
	}
	return nil
}

// readLine returns the next trimmed input line. EOF with no data is a
// dismissal and yields "".
func (t *Terminal) readLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	line, err := t.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// openWithPlatform starts the OS URL handler. The child is not bound to ctx.
func openWithPlatform(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
