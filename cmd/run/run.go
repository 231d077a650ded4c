// Package run handles the run command: one synchronization from the terminal.
package run

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"fjacquet/budget-sync/cmd/root"
	"fjacquet/budget-sync/internal/cli"
	"fjacquet/budget-sync/internal/fileutils"
	"fjacquet/budget-sync/internal/models"
	"fjacquet/budget-sync/internal/runner"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

// Flags of the run command
type Flags struct {
	Email    string
	Password string
	Budget   string
	Input    string
	NoPrompt bool
}

var flags Flags

// Cmd represents the run command
var Cmd = &cobra.Command{
	Use:   "run",
	Short: "Sync a CSV or Excel file into a YNAB budget",
	Long: `Sync a CSV or Excel file into a YNAB budget.

Missing groups and categories are created and budgeted amounts are set.
Values not given as flags are prompted for; the password is never echoed.`,
	RunE: runFunc,
}

func init() {
	Cmd.Flags().StringVarP(&flags.Email, "email", "e", "", "YNAB account email")
	Cmd.Flags().StringVarP(&flags.Password, "password", "p", "", "YNAB password (prompted when omitted)")
	Cmd.Flags().StringVarP(&flags.Budget, "budget", "b", "", "Budget name")
	Cmd.Flags().StringVarP(&flags.Input, "input", "i", "", "CSV or XLSX file")
	Cmd.Flags().BoolVar(&flags.NoPrompt, "no-prompt", false, "Fail instead of prompting for missing values")
}

// Syncer runs one synchronization. *runner.Runner satisfies it.
type Syncer interface {
	Run(ctx context.Context, in models.RunInput) *runner.Result
}

// Prompter fills missing values of in.
type Prompter func(in *models.RunInput) error

// prompt is replaced in tests.
var prompt Prompter = promptMissing

func runFunc(cmd *cobra.Command, _ []string) error {
	in := models.RunInput{
		Email:      strings.TrimSpace(flags.Email),
		Password:   flags.Password,
		BudgetName: strings.TrimSpace(flags.Budget),
		FilePath:   strings.TrimSpace(flags.Input),
	}
	if len(in.Missing()) > 0 && !flags.NoPrompt {
		if err := prompt(&in); err != nil {
			return err
		}
	}

	c, err := root.NewContainer()
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return Execute(ctx, c.GetRunner(), in, cmd.OutOrStdout())
}

// Execute runs in and prints the log and summary to out. A failed run returns an error.
func Execute(ctx context.Context, s Syncer, in models.RunInput, out io.Writer) error {
	fmt.Fprintln(out, cli.RenderTitle("budget-sync: "+in.BudgetName))

	res := s.Run(ctx, in)
	fmt.Fprint(out, cli.RenderLog(res.Log))
	if res.Normalized != nil {
		fmt.Fprint(out, cli.RenderReport(len(res.Normalized.Records), res.Report))
	}

	if !res.Success {
		fmt.Fprintln(out, cli.RenderStatus(false, "Run "+res.RunID+" failed"))
		return fmt.Errorf("run failed: %w", res.Err)
	}
	msg := "Run " + res.RunID + " finished"
	if res.Report.Failed > 0 {
		msg = fmt.Sprintf("%s with %d failed record(s)", msg, res.Report.Failed)
	}
	fmt.Fprintln(out, cli.RenderStatus(res.Report.Failed == 0, msg))
	return nil
}

func promptMissing(in *models.RunInput) error {
	var fields []huh.Field
	if strings.TrimSpace(in.Email) == "" {
		fields = append(fields, huh.NewInput().
			Title("YNAB email").
			Value(&in.Email).
			Validate(required("email")))
	}
	if in.Password == "" {
		fields = append(fields, huh.NewInput().
			Title("YNAB password").
			EchoMode(huh.EchoModePassword).
			Value(&in.Password).
			Validate(required("password")))
	}
	if strings.TrimSpace(in.BudgetName) == "" {
		fields = append(fields, huh.NewInput().
			Title("Budget name").
			Value(&in.BudgetName).
			Validate(required("budget name")))
	}
	if strings.TrimSpace(in.FilePath) == "" {
		fields = append(fields, huh.NewInput().
			Title("CSV or XLSX file").
			Value(&in.FilePath).
			Validate(func(s string) error {
				if !fileutils.FileExists(strings.TrimSpace(s)) {
					return errors.New("file not found")
				}
				return nil
			}))
	}
	if len(fields) == 0 {
		return nil
	}

	if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return errors.New("aborted")
		}
		return fmt.Errorf("prompt failed: %w", err)
	}
	in.Email = strings.TrimSpace(in.Email)
	in.BudgetName = strings.TrimSpace(in.BudgetName)
	in.FilePath = strings.TrimSpace(in.FilePath)
	return nil
}

func required(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}
