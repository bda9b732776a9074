package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nyxmori/warden/guard"
	"github.com/nyxmori/warden/internal/clifmt"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Evaluate a command, path or code snippet against the guard",
}

var checkCmdCmd = &cobra.Command{
	Use:   "cmd <command>",
	Short: "Check a shell command against the blocklist and the code scanner",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCheck(guard.Action{
			Type:    guard.ActionCommandExec,
			Command: strings.Join(args, " "),
		})
	},
}

var checkPathCmd = &cobra.Command{
	Use:   "path <path>",
	Short: "Check a file path against the working-directory guard",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		write, _ := cmd.Flags().GetBool("write")
		t := guard.ActionFileRead
		if write {
			t = guard.ActionFileWrite
		}
		return runCheck(guard.Action{Type: t, Path: args[0]})
	},
}

var checkCodeCmd = &cobra.Command{
	Use:   "code [file]",
	Short: "Scan code text for references to protected paths (stdin when no file)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var code []byte
		var err error
		if len(args) == 1 {
			code, err = os.ReadFile(args[0])
		} else {
			code, err = readAllStdin()
		}
		if err != nil {
			return err
		}
		return runCheck(guard.Action{Type: guard.ActionCodeRun, Code: string(code)})
	},
}

var checkURLCmd = &cobra.Command{
	Use:   "url <url>",
	Short: "Check a fetch target against the network policy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCheck(guard.Action{Type: guard.ActionURLFetch, URL: args[0]})
	},
}

func init() {
	checkPathCmd.Flags().Bool("write", false, "check as a write instead of a read")
	checkCmd.AddCommand(checkCmdCmd, checkPathCmd, checkCodeCmd, checkURLCmd)
	rootCmd.AddCommand(checkCmd)
}

// runCheck prints the decision and exits non-zero for anything but an
// allow, so shell collaborators can gate on the exit code alone.
func runCheck(action guard.Action) error {
	g, _ := guardFromViper(logger())
	res, err := g.Evaluate(context.Background(), guard.Meta{RunID: "cli"}, action)
	if err != nil {
		return err
	}
	switch res.Decision {
	case guard.DecisionAllow:
		fmt.Println(clifmt.Success("allow"))
		return nil
	case guard.DecisionRequireApproval:
		fmt.Println(clifmt.Warn("require_approval"), clifmt.Dim(res.ApprovalRequestID))
	default:
		fmt.Println(clifmt.Deny("deny"))
	}
	for _, r := range res.Reasons {
		fmt.Println("  " + r)
	}
	os.Exit(2)
	return nil
}

func readAllStdin() ([]byte, error) {
	return io.ReadAll(os.Stdin)
}
