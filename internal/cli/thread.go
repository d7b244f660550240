package cli

import (
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"threadterm/internal/util"
	"threadterm/internal/workflow"
)

func newMessagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "messages <thread>",
		Short: "List the messages of a thread",
		Args:  cobra.ExactArgs(1),
		RunE:  runMessagesCmd,
	}
}

func runMessagesCmd(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime(cmd, false)
	if err != nil {
		return err
	}
	svc, err := rt.dialog()
	if err != nil {
		return err
	}

	msgs, err := svc.ListMessages(cmd.Context(), args[0])
	if err != nil {
		return describe(err)
	}
	return rt.printer.messages(msgs)
}

func newMessageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "message <thread> <order>",
		Short: "Show one message",
		Args:  cobra.ExactArgs(2),
		RunE:  runMessageCmd,
	}
}

func runMessageCmd(cmd *cobra.Command, args []string) error {
	order, err := strconv.Atoi(args[1])
	if err != nil {
		return errors.Errorf("invalid order %q", args[1])
	}

	rt, err := loadRuntime(cmd, false)
	if err != nil {
		return err
	}
	svc, err := rt.dialog()
	if err != nil {
		return err
	}

	m, err := svc.GetMessage(cmd.Context(), args[0], order)
	if err != nil {
		return describe(err)
	}
	return rt.printer.message(m)
}

func newInstructionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "instruction <thread>",
		Short: "Show the archiving instruction of a thread",
		Args:  cobra.ExactArgs(1),
		RunE:  runInstructionCmd,
	}
}

func runInstructionCmd(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime(cmd, false)
	if err != nil {
		return err
	}
	svc, err := rt.dialog()
	if err != nil {
		return err
	}

	m, err := svc.FetchArchivingInstruction(cmd.Context(), args[0])
	if err != nil {
		return describe(err)
	}
	return rt.printer.message(m)
}

func newSuggestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "suggest <thread> <orders>",
		Short: "Ask for an archive suggestion without committing it",
		Long:  "Orders are a list such as 1,3-5.",
		Args:  cobra.ExactArgs(2),
		RunE:  runSuggestCmd,
	}
}

func runSuggestCmd(cmd *cobra.Command, args []string) error {
	orders, err := util.ParseOrders(args[1])
	if err != nil {
		return err
	}

	rt, err := loadRuntime(cmd, false)
	if err != nil {
		return err
	}
	svc, err := rt.dialog()
	if err != nil {
		return err
	}

	m, err := svc.SuggestArchiving(cmd.Context(), args[0], orders)
	if err != nil {
		return describe(err)
	}
	return rt.printer.message(m)
}

// describe turns a lower-layer error into the text the user sees.
func describe(err error) error {
	return errors.New(workflow.Describe(err))
}
