// Package console dispatches parsed commands against a storage backend and
// renders their results. Validation failures never escape Execute; they are
// printed as single "** <message> **" lines.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"hbnb/internal/parser"
	"hbnb/pkg/domain"
)

// Prompt is printed before each line in interactive mode.
const Prompt = "(hbnb) "

// Console executes command lines against one storage instance.
type Console struct {
	storage domain.Storage
	out     io.Writer
	logger  *zap.Logger
	metrics *Metrics
	now     func() time.Time
}

// Option customizes a Console.
type Option func(*Console)

// WithOutput sets where command output is written (default stdout).
func WithOutput(w io.Writer) Option { return func(c *Console) { c.out = w } }

// WithLogger sets the diagnostic logger (default nop).
func WithLogger(l *zap.Logger) Option { return func(c *Console) { c.logger = l } }

// WithMetrics enables command metrics.
func WithMetrics(m *Metrics) Option { return func(c *Console) { c.metrics = m } }

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option { return func(c *Console) { c.now = now } }

// New builds a console over storage. The storage is expected to be reloaded
// already.
func New(storage domain.Storage, opts ...Option) *Console {
	c := &Console{
		storage: storage,
		out:     os.Stdout,
		logger:  zap.NewNop(),
		now:     domain.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run reads lines from in until quit or end of input. A non-empty prompt is
// written before every line.
func (c *Console) Run(ctx context.Context, in io.Reader, prompt string) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		if prompt != "" {
			fmt.Fprint(c.out, prompt)
		}
		if !scanner.Scan() {
			if prompt != "" {
				fmt.Fprintln(c.out)
			}
			return scanner.Err()
		}
		if c.Execute(ctx, scanner.Text()) {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

// Execute runs one line and reports whether the console should stop.
func (c *Console) Execute(ctx context.Context, line string) bool {
	cmd, err := parser.Parse(line)
	if errors.Is(err, parser.ErrUnknownSyntax) {
		fmt.Fprintf(c.out, "*** Unknown syntax: %s\n", cmd.Raw)
		c.metrics.observeCommand("unknown", OutcomeInvalid)
		return false
	}
	switch cmd.Action {
	case parser.ActionNone:
		return false
	case parser.ActionQuit:
		return true
	case parser.ActionHelp:
		c.help(cmd.Args)
		return false
	}

	err = c.dispatch(ctx, cmd)
	action := string(cmd.Action)
	switch {
	case err == nil:
		c.metrics.observeCommand(action, OutcomeOK)
	case isValidation(err):
		fmt.Fprintf(c.out, "** %s **\n", err)
		c.metrics.observeCommand(action, OutcomeInvalid)
	default:
		fmt.Fprintf(c.out, "** storage error: %s **\n", err)
		c.logger.Error("command failed", zap.String("action", action), zap.String("line", cmd.Raw), zap.Error(err))
		c.metrics.observeCommand(action, OutcomeError)
	}
	return false
}

func (c *Console) dispatch(ctx context.Context, cmd parser.Command) error {
	switch cmd.Action {
	case parser.ActionCreate:
		return c.create(ctx, cmd)
	case parser.ActionShow:
		e, err := c.lookup(cmd)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.out, e.String())
		return nil
	case parser.ActionDestroy:
		return c.destroy(ctx, cmd)
	case parser.ActionAll:
		return c.all(cmd)
	case parser.ActionUpdate:
		return c.update(ctx, cmd)
	case parser.ActionCount:
		class, err := resolveClass(cmd.Class)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.out, c.storage.Count(class))
		return nil
	default:
		return fmt.Errorf("unsupported action %q", cmd.Action)
	}
}

func resolveClass(name string) (domain.Class, error) {
	if name == "" {
		return "", ErrMissingClassName
	}
	class, ok := domain.ParseClass(name)
	if !ok {
		return "", ErrUnknownClass
	}
	return class, nil
}

// lookup applies the class and id checks shared by show, destroy and update.
func (c *Console) lookup(cmd parser.Command) (*domain.Entity, error) {
	class, err := resolveClass(cmd.Class)
	if err != nil {
		return nil, err
	}
	if cmd.ID == "" {
		return nil, ErrMissingIdentifier
	}
	e, ok := c.storage.Get(class, cmd.ID)
	if !ok {
		return nil, ErrInstanceNotFound
	}
	return e, nil
}

func (c *Console) create(ctx context.Context, cmd parser.Command) error {
	class, err := resolveClass(cmd.Class)
	if err != nil {
		return err
	}
	e := domain.NewEntity(class, c.now())
	c.apply(e, cmd.Payload)
	if err := c.storage.New(e); err != nil {
		return fmt.Errorf("register %s: %w", e.Key(), err)
	}
	if err := c.storage.Save(ctx); err != nil {
		c.storage.Delete(e)
		return fmt.Errorf("save: %w", err)
	}
	c.logger.Debug("created", zap.String("key", e.Key()))
	fmt.Fprintln(c.out, e.ID)
	return nil
}

func (c *Console) destroy(ctx context.Context, cmd parser.Command) error {
	e, err := c.lookup(cmd)
	if err != nil {
		return err
	}
	c.storage.Delete(e)
	if err := c.storage.Save(ctx); err != nil {
		c.restore(e)
		return fmt.Errorf("save: %w", err)
	}
	c.logger.Debug("destroyed", zap.String("key", e.Key()))
	return nil
}

func (c *Console) all(cmd parser.Command) error {
	var class domain.Class
	if cmd.Class != "" {
		var err error
		if class, err = resolveClass(cmd.Class); err != nil {
			return err
		}
	}
	entities := c.storage.All(class)
	items := make([]string, len(entities))
	for i, e := range entities {
		items[i] = domain.StringValue(e.String()).Repr()
	}
	fmt.Fprintf(c.out, "[%s]\n", strings.Join(items, ", "))
	return nil
}

func (c *Console) update(ctx context.Context, cmd parser.Command) error {
	e, err := c.lookup(cmd)
	if err != nil {
		return err
	}
	if len(cmd.Payload) == 0 {
		if len(cmd.Args) == 0 || cmd.Args[0] == "" {
			return ErrMissingAttributeName
		}
		return ErrMissingAttributeValue
	}
	before := e.Clone()
	c.apply(e, cmd.Payload)
	if err := e.Save(ctx, c.storage, c.now()); err != nil {
		c.restore(before)
		return fmt.Errorf("save: %w", err)
	}
	c.logger.Debug("updated", zap.String("key", e.Key()), zap.Int("attributes", len(cmd.Payload)))
	return nil
}

// restore puts back the cached state a failed save was about to persist.
func (c *Console) restore(e *domain.Entity) {
	if err := c.storage.New(e); err != nil {
		c.logger.Error("restore after failed save", zap.String("key", e.Key()), zap.Error(err))
	}
}

// apply sets every payload pair on e, skipping reserved names.
func (c *Console) apply(e *domain.Entity, payload []parser.Pair) {
	for _, p := range payload {
		if domain.IsReserved(p.Key) {
			c.logger.Debug("skipping reserved attribute", zap.String("key", p.Key))
			continue
		}
		if !e.Set(p.Key, p.Value) {
			c.logger.Debug("skipping attribute", zap.String("key", p.Key))
		}
	}
}
