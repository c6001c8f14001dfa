package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"text/tabwriter"

	"github.com/techstore/storefront/pkg/authclient"
)

// session is the part of authclient.Coordinator the CLI drives.
type session interface {
	Principal() *authclient.Principal
	Login(ctx context.Context, identifier, password string) (*authclient.Principal, error)
	ValidateSession(ctx context.Context) (*authclient.Principal, error)
	Do(ctx context.Context, method, path string, in, out interface{}) error
	Logout(ctx context.Context)
}

type App struct {
	session session
	reader  *bufio.Reader
	out     io.Writer
}

// NewApp wires the CLI to c. The user is told when the session ends on its
// own, for example after a failed renewal.
func NewApp(c *authclient.Coordinator, in io.Reader, out io.Writer) *App {
	c.Subscribe(func(ev authclient.Event) {
		if ev.Kind == authclient.EventCleared {
			fmt.Fprintln(out, "Session ended.")
		}
	})
	return &App{session: c, reader: bufio.NewReader(in), out: out}
}

// Run starts the REPL and returns when the user quits or input ends.
func (a *App) Run(ctx context.Context) {
	runREPL(ctx, a, a.status, a.reader)
}

func (a *App) isLoggedIn() bool {
	return a.session.Principal() != nil
}

func (a *App) status() string {
	if p := a.session.Principal(); p != nil {
		return fmt.Sprintf("%s (%s)", p.Username, p.Role)
	}
	return "not logged in"
}

func (a *App) Login(ctx context.Context) error {
	identifier, err := GetSimpleText(a.reader, "Username or email", a.out)
	if err != nil {
		return err
	}
	secret, err := GetPassword(a.out)
	if err != nil {
		return err
	}
	defer wipe(secret)

	p, err := a.session.Login(ctx, identifier, string(secret))
	if err != nil {
		fmt.Fprintf(a.out, "Login failed: %s\n", describe(err))
		return err
	}
	fmt.Fprintf(a.out, "Logged in as %s (%s)\n", p.Username, p.Role)
	return nil
}

// WhoAmI prints the cached principal without asking the server.
func (a *App) WhoAmI(ctx context.Context) error {
	p := a.session.Principal()
	if p == nil {
		fmt.Fprintln(a.out, "Not logged in")
		return authclient.ErrNotAuthenticated
	}
	fmt.Fprintf(a.out, "%s <%s> role=%s id=%s\n", p.Username, p.Email, p.Role, p.ID)
	return nil
}

func (a *App) Validate(ctx context.Context) error {
	p, err := a.session.ValidateSession(ctx)
	if err != nil {
		fmt.Fprintf(a.out, "Session invalid: %s\n", describe(err))
		return err
	}
	fmt.Fprintf(a.out, "Session valid for %s (%s)\n", p.Username, p.Role)
	return nil
}

type userList struct {
	Users []struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Email    string `json:"email"`
		Role     string `json:"role"`
	} `json:"users"`
	Pagination struct {
		Page  int `json:"page"`
		Limit int `json:"limit"`
		Total int `json:"total"`
	} `json:"pagination"`
}

// Users lists accounts. Only admins are allowed by the server.
func (a *App) Users(ctx context.Context) error {
	var list userList
	if err := a.session.Do(ctx, http.MethodGet, "/admin/users?page=1&limit=50", nil, &list); err != nil {
		fmt.Fprintf(a.out, "Cannot list users: %s\n", describe(err))
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUSERNAME\tEMAIL\tROLE")
	for _, u := range list.Users {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", u.ID, u.Username, u.Email, u.Role)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%d of %d users\n", len(list.Users), list.Pagination.Total)
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	a.session.Logout(ctx)
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func describe(err error) string {
	var apiErr *authclient.APIError
	switch {
	case errors.As(err, &apiErr):
		if apiErr.Code == authclient.CodeRoleForbidden {
			return "your role does not allow this"
		}
		return apiErr.Message
	case errors.Is(err, authclient.ErrSessionCleared):
		return "session expired, please log in again"
	}
	return err.Error()
}
