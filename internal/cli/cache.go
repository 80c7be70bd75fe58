package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/stepwise/internal/stepcache"
)

// CacheOptions holds flags shared by the cache subcommands.
type CacheOptions struct {
	*RootOptions
	Database string
	Folder   string
}

// CacheView is the printable form of a cache entry.
type CacheView struct {
	CaseID    string                  `json:"case_id"`
	Source    string                  `json:"source"`
	WrittenAt string                  `json:"written_at"`
	Digest    string                  `json:"digest"`
	Steps     []stepcache.EntryRecord `json:"steps"`
}

// NewCacheCommand creates the cache command group.
func NewCacheCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CacheOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear step caches",
		Long: `Inspect or clear the step cache of a test case.

A cache lives either in the test case folder (--folder) or in the SQLite
database (--db). Exactly one of the two must be given.`,
	}
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database")
	cmd.PersistentFlags().StringVar(&opts.Folder, "folder", "", "test case folder holding "+stepcache.DirName)

	cmd.AddCommand(&cobra.Command{
		Use:           "show <case-id>",
		Short:         "Print the cached steps of a test case",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheShow(opts, args[0], cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:           "clear <case-id>",
		Short:         "Remove the cached steps of a test case",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheClear(opts, args[0], cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:           "list",
		Short:         "List cached test cases in the database",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheList(opts, cmd)
		},
	})

	return cmd
}

func (o *CacheOptions) checkSource(f *OutputFormatter) error {
	if (o.Database == "") == (o.Folder == "") {
		return f.fail(ExitCommandError, ErrCodeGeneric, "exactly one of --db or --folder is required", nil)
	}
	return nil
}

func runCacheShow(opts *CacheOptions, caseID string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	if err := opts.checkSource(formatter); err != nil {
		return err
	}
	ctx := cmdContext(cmd)

	var entry *stepcache.Entry
	var source string
	var err error
	if opts.Folder != "" {
		fc := stepcache.NewFileCache(opts.Folder, caseID)
		source = fc.Path()
		entry, err = fc.ReadEntry(ctx)
	} else {
		st, openErr := openExistingStore(formatter, opts.Database)
		if openErr != nil {
			return openErr
		}
		defer st.Close()
		source = opts.Database
		entry, err = st.CacheFor(caseID).ReadEntry(ctx)
	}

	switch {
	case errors.Is(err, stepcache.ErrCacheMiss):
		return formatter.fail(ExitFailure, ErrCodeNotFound, fmt.Sprintf("no cache entry for %s", caseID), nil)
	case stepcache.IsCorrupt(err):
		return formatter.fail(ExitFailure, ErrCodeCorruptCache, "cache entry is corrupt", err)
	case err != nil:
		return formatter.fail(ExitCommandError, ErrCodeGeneric, "failed to read cache", err)
	}

	view := CacheView{
		CaseID:    entry.CaseID,
		Source:    source,
		WrittenAt: entry.WrittenAt.UTC().Format(time.RFC3339),
		Digest:    entry.Digest,
		Steps:     entry.Steps,
	}
	if formatter.Format == "json" {
		return formatter.Success(view)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Case %s (%s)\n", view.CaseID, view.Source)
	fmt.Fprintf(w, "Written: %s\n", view.WrittenAt)
	fmt.Fprintf(w, "Digest:  %s\n", view.Digest)
	for i, s := range view.Steps {
		fmt.Fprintf(w, "  %d. %s (warning %dms, critical %dms)\n", i+1, s.ID, s.WarningMs, s.CriticalMs)
	}
	return nil
}

func runCacheClear(opts *CacheOptions, caseID string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	if err := opts.checkSource(formatter); err != nil {
		return err
	}

	if opts.Folder != "" {
		if err := stepcache.NewFileCache(opts.Folder, caseID).Clear(); err != nil {
			return formatter.fail(ExitCommandError, ErrCodeGeneric, "failed to clear cache", err)
		}
	} else {
		st, err := openExistingStore(formatter, opts.Database)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.ClearCache(cmdContext(cmd), caseID); err != nil {
			return formatter.fail(ExitCommandError, ErrCodeStore, "failed to clear cache", err)
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]string{"cleared": caseID})
	}
	fmt.Fprintf(formatter.Writer, "✓ Cache cleared for %s\n", caseID)
	return nil
}

func runCacheList(opts *CacheOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	if opts.Database == "" {
		return formatter.fail(ExitCommandError, ErrCodeGeneric, "--db is required", nil)
	}
	st, err := openExistingStore(formatter, opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	cases, err := st.ListCachedCases(cmdContext(cmd))
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeStore, "failed to list caches", err)
	}
	if formatter.Format == "json" {
		return formatter.Success(cases)
	}
	if len(cases) == 0 {
		fmt.Fprintln(formatter.Writer, "No cached cases.")
		return nil
	}
	for _, c := range cases {
		fmt.Fprintf(formatter.Writer, "%s  %d steps  %s\n", c.CaseID, c.Steps, c.WrittenAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
