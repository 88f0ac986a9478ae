package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-ems-client/credentials"
	"github.com/jrsteele09/go-ems-client/grades"
	"github.com/jrsteele09/go-ems-client/internal/config"
	apperrors "github.com/jrsteele09/go-ems-client/internal/errors"
	"github.com/jrsteele09/go-ems-client/session"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	version = "dev"

	errNotLoggedIn = errors.Wrap(apperrors.ErrNotLoggedIn, "run `ems login` first")
)

type cli struct {
	config config.Config
	open   workspaceOpener
}

func newRootCmd(c config.Config, open workspaceOpener) *cobra.Command {
	app := &cli{config: c, open: open}
	root := &cobra.Command{
		Use:   "ems",
		Short: "Check your EMS grades from the terminal",
		Long: `ems logs into the student portal through the scraping backend, keeps your
grades in a local cache and shows them grouped by academic year and semester.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		app.loginCmd(),
		app.logoutCmd(),
		app.syncCmd(),
		app.statusCmd(),
		app.gradesCmd(),
		app.gpaCmd(),
		app.versionCmd(),
	)
	return root
}

// withSession restores the saved session, prints status messages while fn runs
// and releases everything afterwards.
func (app *cli) withSession(cmd *cobra.Command, fn func(ctx context.Context, ws *workspace) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ws, err := app.open(ctx, app.config)
	if err != nil {
		return err
	}
	defer ws.close()

	if err := ws.manager.Restore(ctx); err != nil {
		log.Warn().Err(err).Msg("saved session unavailable, continuing logged out")
	}
	unsubscribe := ws.manager.Subscribe(statusPrinter(cmd.ErrOrStderr()))
	defer unsubscribe()

	return fn(ctx, ws)
}

// statusPrinter writes each new loading message once.
func statusPrinter(w io.Writer) func(session.State) {
	var (
		lock sync.Mutex
		last string
	)
	return func(s session.State) {
		lock.Lock()
		defer lock.Unlock()
		if s.LoadingMessage == "" || s.LoadingMessage == last {
			return
		}
		last = s.LoadingMessage
		fmt.Fprintln(w, s.LoadingMessage)
	}
}

func (app *cli) loginCmd() *cobra.Command {
	var (
		username      string
		passwordStdin bool
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and sync your grades",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			if username == "" {
				fmt.Fprint(cmd.ErrOrStderr(), "Username: ")
				line, err := readLine(in)
				if err != nil {
					return err
				}
				username = line
			}
			password, err := readPassword(cmd, in, passwordStdin)
			if err != nil {
				return err
			}
			creds := credentials.Credentials{Username: username, Password: password}
			if err := creds.Validate(); err != nil {
				return err
			}

			return app.withSession(cmd, func(ctx context.Context, ws *workspace) error {
				err := ws.manager.Login(ctx, username, password)
				s := ws.manager.Snapshot()
				if !s.IsLoggedIn {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s.\n", s.User.Username)
				if err != nil {
					return errors.Wrap(err, "sync after login")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d grades synced.\n", len(s.Grades))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "portal username (prompted when empty)")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin instead of prompting")
	return cmd
}

func readPassword(cmd *cobra.Command, in *bufio.Reader, fromStdin bool) (string, error) {
	if fromStdin {
		return readLine(in)
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	pwd, err := readPasswordFunc(int(os.Stdin.Fd()))
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", errors.Wrap(err, "read password")
	}
	return string(pwd), nil
}

func readLine(in *bufio.Reader) (string, error) {
	line, err := in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", errors.Wrap(err, "read input")
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (app *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored credentials and cached grades",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.withSession(cmd, func(ctx context.Context, ws *workspace) error {
				ws.manager.Logout(ctx)
				fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
				return nil
			})
		},
	}
}

func (app *cli) syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Fetch the latest grades from the portal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.withSession(cmd, func(ctx context.Context, ws *workspace) error {
				if err := ws.manager.Sync(ctx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d grades synced.\n", len(ws.manager.Snapshot().Grades))
				return nil
			})
		},
	}
}

// syncTimer is implemented by caches that know when they were last written.
type syncTimer interface {
	UpdatedAt(ctx context.Context) (time.Time, bool, error)
}

func (app *cli) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show who is logged in and what is cached",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.withSession(cmd, func(ctx context.Context, ws *workspace) error {
				s := ws.manager.Snapshot()
				out := cmd.OutOrStdout()
				if !s.IsLoggedIn {
					fmt.Fprintln(out, "Not logged in.")
					return nil
				}
				fmt.Fprintf(out, "Logged in as %s\n", s.User.Username)
				fmt.Fprintf(out, "Cached grades: %d\n", len(s.Grades))
				if gpa, credits := grades.CumulativeGPA(s.Grades); credits > 0 {
					fmt.Fprintf(out, "Cumulative GPA: %.2f over %g credits\n", gpa, credits)
				}
				if timer, ok := ws.cache.(syncTimer); ok {
					if at, ok, err := timer.UpdatedAt(ctx); err == nil && ok {
						fmt.Fprintf(out, "Last synced: %s\n", at.Local().Format(time.RFC1123))
					}
				}
				return nil
			})
		},
	}
}

func (app *cli) gradesCmd() *cobra.Command {
	var (
		year    string
		details bool
	)
	cmd := &cobra.Command{
		Use:   "grades",
		Short: "List cached grades by academic year and semester",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.withSession(cmd, func(_ context.Context, ws *workspace) error {
				s := ws.manager.Snapshot()
				if !s.IsLoggedIn {
					return errNotLoggedIn
				}
				groups := grades.GroupByTerm(s.Grades)
				if year != "" {
					years := grades.AcademicYears(s.Grades)
					if !slices.ContainsFunc(years, func(y string) bool { return strings.EqualFold(y, year) }) {
						return errors.Wrapf(apperrors.ErrValidation, "no grades for academic year %q (have: %s)", year, strings.Join(years, ", "))
					}
					groups = filterYear(groups, year)
				}
				renderGrades(cmd.OutOrStdout(), groups, details)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&year, "year", "", "only show this academic year (e.g. 2023/24)")
	cmd.Flags().BoolVar(&details, "details", false, "include assessment results")
	return cmd
}

func filterYear(groups []grades.YearGroup, year string) []grades.YearGroup {
	var out []grades.YearGroup
	for _, g := range groups {
		if strings.EqualFold(g.AcademicYear, year) {
			out = append(out, g)
		}
	}
	return out
}

func (app *cli) gpaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gpa",
		Short: "Show the yearly GPA trend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.withSession(cmd, func(_ context.Context, ws *workspace) error {
				s := ws.manager.Snapshot()
				if !s.IsLoggedIn {
					return errNotLoggedIn
				}
				renderGPA(cmd.OutOrStdout(), s.Grades)
				return nil
			})
		},
	}
}

func (app *cli) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			banner := figure.NewFigure(app.config.GetAppName(), "cybermedium", true)
			fmt.Fprintln(cmd.OutOrStdout(), banner.String())
			fmt.Fprintf(cmd.OutOrStdout(), "version %s\n", version)
		},
	}
}
