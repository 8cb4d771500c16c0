package main

import (
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/urfave/cli/v3"

	"github.com/atvirokodosprendimai/storefront/internal/client/api"
	"github.com/atvirokodosprendimai/storefront/internal/client/config"
	"github.com/atvirokodosprendimai/storefront/internal/client/result"
	"github.com/atvirokodosprendimai/storefront/internal/client/session"
	"github.com/atvirokodosprendimai/storefront/internal/client/views"
	"github.com/atvirokodosprendimai/storefront/internal/optimistic"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// runtime is the resolved client for one command invocation.
type runtime struct {
	cfg     config.Config
	store   *session.Store
	session *session.Session
	client  *api.Client
	out     io.Writer
}

func loadRuntime(c *cli.Command) (*runtime, error) {
	path := c.String("config")
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if c.IsSet("api-url") {
		cfg.APIURL = c.String("api-url")
	}
	if c.IsSet("session-file") {
		cfg.SessionFile = c.String("session-file")
	}
	if c.IsSet("timeout") {
		cfg.Timeout = c.Duration("timeout")
	}
	if c.IsSet("serialize") {
		cfg.SerializePerRecord = c.Bool("serialize")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rt := &runtime{cfg: cfg, store: session.NewStore(cfg.SessionFile), out: c.Root().Writer}
	sess, err := rt.store.Load()
	switch {
	case err == nil:
		rt.session = sess
	case errors.Is(err, session.ErrNoSession):
		rt.session = session.New("", api.User{})
	default:
		return nil, err
	}
	rt.client = api.New(cfg.APIURL, cfg.Timeout, rt.session)
	return rt, nil
}

// requireSession fails fast instead of sending an anonymous request.
func (rt *runtime) requireSession() error {
	if !rt.session.Active() {
		return cli.Exit("Not logged in. Run `storefront login` first.", 1)
	}
	return nil
}

func (rt *runtime) env() views.Env {
	return views.Env{
		Client:    rt.client,
		Session:   rt.session,
		Notifier:  optimistic.NotifierFunc(rt.notify),
		Serialize: rt.cfg.SerializePerRecord,
		OnUnauthorized: func() {
			rt.clearSession()
			fmt.Fprintln(rt.out, "Session expired. Run `storefront login` again.")
		},
	}
}

// clearSession drops the stored token after the server refused it. A token
// that stays on disk is only logged; the next command fails the same way.
func (rt *runtime) clearSession() {
	if err := rt.store.Clear(); err != nil {
		log.Printf("clear session %s: %v", rt.store.Path(), err)
	}
}

func (rt *runtime) notify(n optimistic.Notification) {
	if n.Level == optimistic.Failure {
		fmt.Fprintln(rt.out, failureStyle.Render("✗ "+n.Message))
		return
	}
	fmt.Fprintln(rt.out, successStyle.Render("✓ "+n.Message))
}

// settle turns a mutation outcome into the command's exit status. The
// notifier has already printed the message.
func settle(out optimistic.Outcome) error {
	if out.State == optimistic.Confirmed {
		return nil
	}
	return cli.Exit("", 1)
}

// fail reports a non-mutation error and clears the session on 401.
func (rt *runtime) fail(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, &result.Error{Kind: result.Unauthorized}) {
		rt.env().OnUnauthorized()
		return cli.Exit("", 1)
	}
	return cli.Exit(failureStyle.Render("✗ "+result.MessageOf(err)), 1)
}

func (rt *runtime) printTable(headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...)
	fmt.Fprintln(rt.out, t.Render())
}

func requireArgs(c *cli.Command, n int) error {
	if c.NArg() < n {
		return cli.Exit(fmt.Sprintf("usage: %s %s", c.FullName(), c.ArgsUsage), 2)
	}
	return nil
}
