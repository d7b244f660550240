package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"threadterm/internal/util"
	"threadterm/internal/workflow"
)

func newArchiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive <thread> <orders>",
		Short: "Select messages, get a suggestion and confirm the archive",
		Long:  "Orders are a list such as 1,3-5. Without --yes the suggestion is shown and confirmation is read from stdin.",
		Args:  cobra.ExactArgs(2),
		RunE:  runArchiveCmd,
	}
	cmd.Flags().BoolP("yes", "y", false, "confirm without asking")
	cmd.Flags().Bool("no-commit", false, "acknowledge locally without calling the archive endpoint")
	return cmd
}

func runArchiveCmd(cmd *cobra.Command, args []string) error {
	thread := args[0]
	orders, err := util.ParseOrders(args[1])
	if err != nil {
		return err
	}
	yes, _ := cmd.Flags().GetBool("yes")
	noCommit, _ := cmd.Flags().GetBool("no-commit")

	rt, err := loadRuntime(cmd, false)
	if err != nil {
		return err
	}
	svc, err := rt.dialog()
	if err != nil {
		return err
	}
	st, err := rt.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	opts := workflow.Options{Committer: svc, Journal: st, Logger: rt.logger}
	if noCommit {
		opts.Committer = nil
	}
	wf := workflow.New(svc, opts)
	defer wf.Close()

	v, err := wf.Open(thread)
	if err != nil {
		return describe(err)
	}
	if err := v.Reload(); err != nil {
		return describe(err)
	}
	for _, o := range orders {
		if _, err := v.Toggle(o); err != nil {
			return describe(err)
		}
	}

	suggestion, err := v.Suggest()
	if err != nil {
		return describe(err)
	}
	if err := rt.printer.message(suggestion); err != nil {
		return err
	}

	if !yes {
		ok, err := askConfirm(cmd)
		if err != nil {
			return err
		}
		if !ok {
			v.Cancel()
			return rt.printer.line(styleDim.Render("Archive cancelled."))
		}
	}

	ack, err := v.Confirm()
	if err != nil {
		return describe(err)
	}
	if ack.JournalErr != nil {
		rt.logger.Warn().Err(ack.JournalErr).Msg("archive not recorded locally")
	}
	return rt.printer.line(styleSuccess.Render("Archived " + util.FormatOrders(ack.Suggestion.ArchiveFor) + " of " + thread + "."))
}

func askConfirm(cmd *cobra.Command) (bool, error) {
	fmt.Fprint(cmd.ErrOrStderr(), "Confirm archive? [y/N] ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return false, errors.Wrap(err, "read confirmation")
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
