package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/roomchat-backend/internal/inbox"
)

type WatchOptions struct {
	*RootOptions
	Query   string
	Refresh time.Duration
}

func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream inbox activity and print the thread list on every change",
		Example: `  inboxctl watch --token $TOKEN
  inboxctl watch --query loft --refresh 30s`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&opts.Query, "query", "q", "", "only show threads matching listing title or counterpart name")
	cmd.Flags().DurationVar(&opts.Refresh, "refresh", time.Minute, "periodic re-fetch interval (negative disables)")
	return cmd
}

func runWatch(ctx context.Context, opts *WatchOptions, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := opts.client()
	if err != nil {
		return err
	}
	viewer, err := opts.viewer()
	if err != nil {
		return err
	}
	log, err := opts.logger()
	if err != nil {
		return err
	}
	defer log.Sync()

	rec := inbox.NewReconciler(viewer, client, inbox.Options{
		Log: log,
		OnChange: func(list []inbox.Thread) {
			render(out, viewer, inbox.Filter(viewer, list, opts.Query))
		},
		OnError: func(err error) {
			fmt.Fprintf(out, "! %v (keeping last list)\n", err)
		},
	})
	session := inbox.NewSession(client, rec, inbox.SessionConfig{
		RefreshInterval: opts.Refresh,
		Log:             log,
	})
	return session.Run(ctx)
}

func NewThreadsCommand(rootOpts *RootOptions) *cobra.Command {
	var query string
	cmd := &cobra.Command{
		Use:   "threads",
		Short: "Fetch and print the thread list once",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := rootOpts.client()
			if err != nil {
				return err
			}
			viewer, err := rootOpts.viewer()
			if err != nil {
				return err
			}
			rec := inbox.NewReconciler(viewer, client, inbox.Options{})
			defer rec.Close()
			list, err := rec.Refresh(cmd.Context())
			if err != nil {
				return err
			}
			render(cmd.OutOrStdout(), viewer, inbox.Filter(viewer, list, query))
			return nil
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "filter by listing title or counterpart name")
	return cmd
}

func render(out io.Writer, viewer uuid.UUID, list []inbox.Thread) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "THREAD\tTITLE\tSUBTITLE\tUNREAD\tLAST\n")
	for _, v := range inbox.Views(viewer, list) {
		last := "-"
		if !v.LastMessageAt.IsZero() {
			last = v.LastMessageAt.Local().Format(time.DateTime)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", v.ID, v.Title, v.Subtitle, v.UnreadCount, last)
	}
	_ = tw.Flush()
	fmt.Fprintln(out)
}
