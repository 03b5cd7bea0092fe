package handledcmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/quailyquaily/greg/internal/configutil"
	"github.com/quailyquaily/greg/internal/handled"
	"github.com/quailyquaily/greg/internal/statepaths"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "handled",
		Short: "Inspect or reset the set of handled message ids",
	}
	cmd.PersistentFlags().String("handled-backend", handled.BackendFile, "Handled-set backend: file|sqlite.")
	cmd.PersistentFlags().String("handled-path", "", "Handled-set JSON file (file backend).")
	cmd.PersistentFlags().String("handled-dsn", "", "SQLite DSN (sqlite backend).")

	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newCheckCmd())
	cmd.AddCommand(newMarkCmd())
	cmd.AddCommand(newResetCmd())
	return cmd
}

func openStore(cmd *cobra.Command) (handled.Store, error) {
	path := statepaths.HandledPath()
	if f := cmd.Flags().Lookup("handled-path"); f != nil && f.Changed {
		path = statepaths.ExpandHomePath(f.Value.String())
	}
	return handled.OpenStore(handled.StoreConfig{
		Backend:  configutil.FlagOrViperString(cmd, "handled-backend", "handled.backend"),
		Path:     path,
		DSN:      configutil.FlagOrViperString(cmd, "handled-dsn", "handled.dsn"),
		StateDir: statepaths.FileStateDir(),
	})
}

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List handled message ids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()
			set, err := store.Load(cmd.Context())
			if err != nil {
				return err
			}
			asJSON, _ := cmd.Flags().GetBool("json")
			return writeIDs(cmd.OutOrStdout(), set.Sorted(), asJSON || !isTerminal(cmd.OutOrStdout()))
		},
	}
	cmd.Flags().Bool("json", false, "Print a JSON array (default when stdout is not a terminal).")
	return cmd
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <ts>...",
		Short: "Report whether message ids are handled",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()
			tracker := handled.Open(cmd.Context(), store, handled.TrackerOptions{})
			out := cmd.OutOrStdout()
			for _, id := range args {
				id = strings.TrimSpace(id)
				_, _ = fmt.Fprintf(out, "%s\t%t\n", id, tracker.Contains(cmd.Context(), id))
			}
			return nil
		},
	}
}

func newMarkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mark <ts>...",
		Short: "Mark message ids as handled so the relay never answers them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()
			return markIDs(cmd.Context(), store, args, cmd.OutOrStdout())
		},
	}
}

func newResetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Forget every handled id (the relay may answer old triggers again)",
		Long: `Forget every handled id.

Stop the relay first. A running relay keeps the set in memory and writes it
back on its next answer, so the file backend refuses to reset while a relay
holds it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			yes, _ := cmd.Flags().GetBool("yes")
			if !yes {
				return fmt.Errorf("refusing to reset without --yes")
			}
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()
			r, ok := store.(handled.Resetter)
			if !ok {
				return fmt.Errorf("handled backend %q cannot be reset", configutil.FlagOrViperString(cmd, "handled-backend", "handled.backend"))
			}
			if err := r.Reset(cmd.Context()); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "handled set reset")
			return nil
		},
	}
	cmd.Flags().Bool("yes", false, "Confirm the reset.")
	return cmd
}

// markIDs persists every id through a tracker and returns the first
// persistence error.
func markIDs(ctx context.Context, store handled.Store, ids []string, out io.Writer) error {
	var persistErr error
	tracker := handled.Open(ctx, store, handled.TrackerOptions{
		OnPersistError: func(err error) {
			if persistErr == nil {
				persistErr = err
			}
		},
	})
	added := 0
	for _, id := range ids {
		if tracker.MarkHandled(ctx, id) {
			added++
		}
	}
	if persistErr != nil {
		return fmt.Errorf("persist handled ids: %w", persistErr)
	}
	_, _ = fmt.Fprintf(out, "marked %d new id(s), %d total\n", added, tracker.Len())
	return nil
}

func writeIDs(w io.Writer, ids []string, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		if ids == nil {
			ids = []string{}
		}
		return enc.Encode(ids)
	}
	for _, id := range ids {
		if _, err := fmt.Fprintln(w, id); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%d handled\n", len(ids))
	return err
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
