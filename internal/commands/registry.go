// Package commands holds the user-invocable commands and the registry that
// runs them with uniform error reporting.
package commands

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/phuslu/log"

	"github.com/golovatskygroup/atlassian-lens/internal/atlassian"
	"github.com/golovatskygroup/atlassian-lens/internal/config"
	"github.com/golovatskygroup/atlassian-lens/internal/host"
)

// Prefix namespaces every command id.
const Prefix = config.Namespace + "."

const checkDocsAction = "Check Documentation"

// Func is a command body.
type Func func(ctx context.Context) error

type Command struct {
	ID          string
	Title       string
	Description string
	Run         Func
}

// Registry maps command ids to commands.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]Command
	order    []string
	host     host.Host
	logger   *log.Logger
}

func NewRegistry(h host.Host) *Registry {
	return &Registry{
		commands: make(map[string]Command),
		host:     h,
		logger:   &log.DefaultLogger,
	}
}

func (r *Registry) SetLogger(l *log.Logger) {
	if l != nil {
		r.logger = l
	}
}

// Register adds cmd. Ids must be unique.
func (r *Registry) Register(cmd Command) error {
	if strings.TrimSpace(cmd.ID) == "" || cmd.Run == nil {
		return errors.New("command needs an id and a body")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.commands[cmd.ID]; exists {
		return fmt.Errorf("command %s already registered", cmd.ID)
	}
	r.commands[cmd.ID] = cmd
	r.order = append(r.order, cmd.ID)
	return nil
}

// List returns commands in registration order.
func (r *Registry) List() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Command, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.commands[id])
	}
	return out
}

func (r *Registry) Get(id string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[id]
	return cmd, ok
}

type scoredCommand struct {
	cmd   Command
	score int
}

// rank scores commands against query by id, title and description, best first.
func (r *Registry) rank(query string) []scoredCommand {
	query = strings.ToLower(strings.TrimSpace(query))
	var results []scoredCommand
	for _, cmd := range r.List() {
		score := 0
		id := strings.ToLower(strings.TrimPrefix(cmd.ID, Prefix))
		title := strings.ToLower(cmd.Title)

		if strings.Contains(id, query) {
			score += 100
		}
		if fuzzy.Match(query, id) {
			score += 50
		}
		if strings.Contains(title, query) {
			score += 40
		}
		if fuzzy.MatchFold(query, cmd.Description) {
			score += 10
		}
		if score > 0 {
			results = append(results, scoredCommand{cmd, score})
		}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].score > results[j].score })
	return results
}

// Search returns up to limit commands matching query. An empty query lists
// commands in registration order.
func (r *Registry) Search(query string, limit int) []Command {
	if limit <= 0 {
		limit = 10
	}
	if strings.TrimSpace(query) == "" {
		cmds := r.List()
		if len(cmds) > limit {
			cmds = cmds[:limit]
		}
		return cmds
	}
	ranked := r.rank(query)
	out := make([]Command, 0, limit)
	for i := 0; i < len(ranked) && i < limit; i++ {
		out = append(out, ranked[i].cmd)
	}
	return out
}

// Resolve finds the command for a full id, an id without Prefix, or a query
// whose best match outscores every other command.
func (r *Registry) Resolve(query string) (Command, error) {
	query = strings.TrimSpace(query)
	if cmd, ok := r.Get(query); ok {
		return cmd, nil
	}
	if cmd, ok := r.Get(Prefix + query); ok {
		return cmd, nil
	}
	if query == "" {
		return Command{}, errors.New("no command given")
	}
	ranked := r.rank(query)
	switch {
	case len(ranked) == 0:
		return Command{}, fmt.Errorf("no command matches %q", query)
	case len(ranked) == 1 || ranked[0].score > ranked[1].score:
		return ranked[0].cmd, nil
	default:
		var ids []string
		for _, s := range ranked {
			if s.score == ranked[0].score {
				ids = append(ids, s.cmd.ID)
			}
		}
		return Command{}, fmt.Errorf("%q is ambiguous: %s", query, strings.Join(ids, ", "))
	}
}

// Run executes a registered command. Any error or panic is shown to the user
// once and returned.
func (r *Registry) Run(ctx context.Context, id string) error {
	cmd, ok := r.Get(id)
	if !ok {
		return fmt.Errorf("unknown command: %s", id)
	}
	return r.runCommand(cmd.ID, cmd.Run)(ctx)
}

// runCommand wraps body so failures surface through the host notifier.
func (r *Registry) runCommand(id string, body Func) Func {
	return func(ctx context.Context) (err error) {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("panic: %v", p)
				r.logger.Error().Str("command", id).Err(err).Msg("command panicked")
				r.report(ctx, err)
			}
		}()

		r.logger.Debug().Str("command", id).Msg("running command")
		if err = body(ctx); err != nil {
			r.logger.Warn().Str("command", id).Err(err).Msg("command failed")
			r.report(ctx, err)
		}
		return err
	}
}

// report shows err once. Atlassian and configuration errors are already user
// facing; anything else is prefixed. Forbidden errors offer the docs link.
func (r *Registry) report(ctx context.Context, err error) {
	var apiErr *atlassian.APIError
	var cfgErr *config.ConfigError
	switch {
	case errors.As(err, &apiErr) && apiErr.DocsURL != "":
		choice, showErr := r.host.ShowError(ctx, apiErr.Message, checkDocsAction)
		if showErr == nil && choice == checkDocsAction {
			if openErr := r.host.OpenExternal(ctx, apiErr.DocsURL); openErr != nil {
				r.logger.Warn().Err(openErr).Msg("failed to open documentation")
			}
		}
	case errors.As(err, &apiErr):
		_, _ = r.host.ShowError(ctx, apiErr.Message)
	case errors.As(err, &cfgErr):
		_, _ = r.host.ShowError(ctx, cfgErr.Error())
	default:
		_, _ = r.host.ShowError(ctx, "Command error: "+err.Error())
	}
}
