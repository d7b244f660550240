package cli

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"threadterm/internal/model"
	"threadterm/internal/util"
)

func newPersistCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "persist <thread>",
		Short: "Store new messages in a thread",
		Long: "Either a single message from --order/--role/--text, or a JSON array of " +
			"message payloads from --file (- for stdin).",
		Args: cobra.ExactArgs(1),
		RunE: runPersistCmd,
	}
	cmd.Flags().Int("order", 0, "order of the new message")
	cmd.Flags().String("role", string(model.RoleUser), "assistant, user or system")
	cmd.Flags().String("text", "", "message text")
	cmd.Flags().StringP("file", "f", "", "JSON file with message payloads")
	return cmd
}

func runPersistCmd(cmd *cobra.Command, args []string) error {
	thread := args[0]
	msgs, err := persistInput(cmd, thread)
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

	stored, err := svc.PersistMessages(cmd.Context(), msgs)
	if err != nil {
		return describe(err)
	}
	return rt.printer.messages(stored)
}

func persistInput(cmd *cobra.Command, thread string) ([]model.Message, error) {
	flags := cmd.Flags()

	if file, _ := flags.GetString("file"); file != "" {
		var (
			raw []byte
			err error
		)
		if file == "-" {
			raw, err = io.ReadAll(cmd.InOrStdin())
		} else {
			raw, err = os.ReadFile(file)
		}
		if err != nil {
			return nil, errors.Wrap(err, "read messages")
		}
		msgs, err := model.DecodeMessages(raw)
		if err != nil {
			return nil, err
		}
		for _, m := range msgs {
			if m.ThreadUID != thread {
				return nil, errors.Wrapf(model.ErrCallerContract, "message %d belongs to thread %s, not %s", m.Order, m.ThreadUID, thread)
			}
		}
		return msgs, nil
	}

	order, _ := flags.GetInt("order")
	if order <= 0 {
		return nil, errors.New("--order must be positive")
	}
	roleName, _ := flags.GetString("role")
	role, err := model.ParseRole(roleName)
	if err != nil {
		return nil, err
	}
	text, _ := flags.GetString("text")
	text = util.NormalizeText(text)
	if text == "" {
		return nil, errors.New("--text is required")
	}

	return []model.Message{{ThreadUID: thread, Order: order, Role: role, Text: text}}, nil
}
