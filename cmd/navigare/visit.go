package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/vango-dev/navigare/internal/config"
	"github.com/vango-dev/navigare/internal/errors"
	"github.com/vango-dev/navigare/pkg/events"
	"github.com/vango-dev/navigare/pkg/router"
)

type visitFlags struct {
	from       string
	method     string
	data       string
	only       []string
	headers    []string
	replace    bool
	events     bool
	components bool
}

func visitCmd() *cobra.Command {
	var f visitFlags

	cmd := &cobra.Command{
		Use:   "visit [path...]",
		Short: "Boot a router and perform visits",
		Long: `Boot a router on the server's page for --from, visit each path in
order and print the resulting page as JSON.

Examples:
  navigare visit /users
  navigare visit /users --data '{"sort":"name"}' --only users
  navigare visit /users --method post --data '{"name":"Ada"}' --events`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runVisit(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg.Logger(cmd.ErrOrStderr()), cfg, f, args)
		},
	}

	cmd.Flags().StringVar(&f.from, "from", "/", "Path of the first page")
	cmd.Flags().StringVarP(&f.method, "method", "X", "GET", "Request method for every visit")
	cmd.Flags().StringVarP(&f.data, "data", "d", "", "Visit data as JSON")
	cmd.Flags().StringSliceVar(&f.only, "only", nil, "Properties to request as a partial reload")
	cmd.Flags().StringArrayVarP(&f.headers, "header", "H", nil, "Extra request header as key=value")
	cmd.Flags().BoolVar(&f.replace, "replace", false, "Replace the current history entry")
	cmd.Flags().BoolVar(&f.events, "events", false, "Print router events to stderr")
	cmd.Flags().BoolVar(&f.components, "components", false, "Print resolved components to stderr")

	return cmd
}

func (f visitFlags) options() ([]router.VisitOption, error) {
	opts := []router.VisitOption{router.WithMethod(strings.ToUpper(f.method))}
	if f.data != "" {
		var data any
		if err := json.Unmarshal([]byte(f.data), &data); err != nil {
			return nil, errors.Newf(errors.CategoryConfig, "--data is not valid JSON: %v", err)
		}
		opts = append(opts, router.WithData(data))
	}
	if len(f.only) > 0 {
		opts = append(opts, router.Only(f.only...))
	}
	for _, h := range f.headers {
		k, v, ok := strings.Cut(h, "=")
		if !ok {
			return nil, errors.Newf(errors.CategoryConfig, "--header %q is not key=value", h)
		}
		opts = append(opts, router.WithHeader(k, v))
	}
	if f.replace {
		opts = append(opts, router.WithReplace())
	}
	return opts, nil
}

// visitLogger prints events and remembers the first failure. Background
// reloads report from their own goroutine.
type visitLogger struct {
	w       io.Writer
	verbose bool

	mu      sync.Mutex
	failure error
}

func (l *visitLogger) err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.failure
}

func (l *visitLogger) handle(e *events.Event) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.verbose {
		href := ""
		if e.Visit != nil {
			href = e.Visit.Location.Href
		}
		fmt.Fprintf(l.w, "%-9s %s\n", e.Name, href)
	}
	switch e.Name {
	case events.Exception:
		if l.failure == nil {
			l.failure = e.Err
		}
	case events.Invalid:
		if l.failure == nil && e.Response != nil {
			l.failure = errors.New("N010").WithDetail(fmt.Sprintf("unexpected %d response", e.Response.Status))
		}
	}
	return false
}

func runVisit(ctx context.Context, stdout, stderr io.Writer, logger *slog.Logger, cfg *config.Config, f visitFlags, paths []string) error {
	opts, err := f.options()
	if err != nil {
		return err
	}

	vl := &visitLogger{w: stderr, verbose: f.events}
	s, err := openSession(ctx, cfg, logger, f.from)
	if err != nil {
		return err
	}
	defer s.Close()
	defer s.router.OnAny(vl.handle)()

	for _, path := range paths {
		if _, err := s.router.Visit(ctx, path, opts...); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	s.router.Wait()
	if err := vl.err(); err != nil {
		return err
	}

	if f.components {
		ids := make([]string, 0)
		for _, p := range s.router.Pages() {
			for _, name := range p.Fragments.Names() {
				if fr := p.Fragments.Top(name); fr != nil {
					ids = append(ids, fr.Component.ID)
				}
			}
		}
		sort.Strings(ids)
		for i, id := range ids {
			if i > 0 && ids[i-1] == id {
				continue
			}
			if mod, ok := s.components.Lookup(id); ok {
				fmt.Fprintf(stderr, "%s -> %s\n", id, mod)
			}
		}
	}

	out, err := json.MarshalIndent(s.router.Page(), "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, string(out))
	return nil
}
