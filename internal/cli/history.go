package cli

import (
	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history [thread]",
		Short: "List archives confirmed from this machine",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runHistoryCmd,
	}
}

func runHistoryCmd(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime(cmd, false)
	if err != nil {
		return err
	}
	st, err := rt.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	thread := ""
	if len(args) > 0 {
		thread = args[0]
	}
	recs, err := st.ListArchives(cmd.Context(), thread)
	if err != nil {
		return err
	}
	return rt.printer.archives(recs)
}
