package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/nfrund/roster/internal/userdata"
	"github.com/spf13/cobra"
)

func newCacheCmd() *cobra.Command {
	cache := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the persisted user data cache",
		Long: `Works on the file cache backend. Each entry is one browser session's
user data bundle, stored as <session id>.json in the cache directory.`,
	}
	cache.AddCommand(newCacheListCmd(), newCacheShowCmd(), newCacheClearCmd(), newCachePruneCmd())
	return cache
}

func entryState(e userdata.FileEntry, now time.Time) string {
	switch {
	case e.Err != nil:
		return "corrupt"
	case e.Envelope == nil:
		return "missing"
	case e.Envelope.Expired(now):
		return "expired"
	default:
		return "fresh"
	}
}

func entryUser(e userdata.FileEntry) string {
	if e.Envelope == nil || e.Envelope.Data.User == nil {
		return "-"
	}
	return e.Envelope.Data.User.ID
}

func newCacheListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cached entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := userdata.ListFileEntries(fsys, cacheDir)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No cached entries in %s.\n", cacheDir)
				return nil
			}

			now := time.Now()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SESSION\tUSER\tEXPIRES\tSIZE\tSTATE")
			for _, e := range entries {
				expires := "-"
				if e.Envelope != nil {
					expires = e.Envelope.ExpiresTime().Format(time.RFC3339)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", e.SessionID, entryUser(e), expires, e.Size, entryState(e, now))
			}
			return w.Flush()
		},
	}
}

func newCacheShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Print one cached entry as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := userdata.NewFileStore(fsys, cacheDir, args[0])
			if err != nil {
				return err
			}
			env, err := store.Get(cmd.Context())
			if err != nil {
				return err
			}
			if env == nil {
				return fmt.Errorf("no cached entry for session %s", args[0])
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(env)
		},
	}
}

func newCacheClearCmd() *cobra.Command {
	var all bool
	c := &cobra.Command{
		Use:   "clear [session-id...]",
		Short: "Delete cached entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) > 0) {
				return errors.New("pass session ids or --all, not both")
			}
			ids := args
			if all {
				entries, err := userdata.ListFileEntries(fsys, cacheDir)
				if err != nil {
					return err
				}
				for _, e := range entries {
					ids = append(ids, e.SessionID)
				}
			}
			n, err := clearEntries(cmd, ids)
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d entries.\n", n)
			return err
		},
	}
	c.Flags().BoolVar(&all, "all", false, "delete every entry")
	return c
}

func newCachePruneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Delete expired and unreadable entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := userdata.ListFileEntries(fsys, cacheDir)
			if err != nil {
				return err
			}
			now := time.Now()
			var ids []string
			for _, e := range entries {
				if state := entryState(e, now); state == "expired" || state == "corrupt" {
					ids = append(ids, e.SessionID)
				}
			}
			n, err := clearEntries(cmd, ids)
			fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d of %d entries.\n", n, len(entries))
			return err
		},
	}
}

func clearEntries(cmd *cobra.Command, ids []string) (int, error) {
	var merr *multierror.Error
	n := 0
	for _, id := range ids {
		store, err := userdata.NewFileStore(fsys, cacheDir, id)
		if err != nil {
			merr = multierror.Append(merr, err)
			continue
		}
		if err := store.Clear(cmd.Context()); err != nil {
			merr = multierror.Append(merr, err)
			continue
		}
		n++
	}
	return n, merr.ErrorOrNil()
}
