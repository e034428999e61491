package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/idilsaglam/livetodo/internal/model"
	"github.com/idilsaglam/livetodo/internal/todo"
	"github.com/idilsaglam/livetodo/internal/ui"
)

func newAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "add <title...>",
		Short:   "Add a new item (title can be multiple words)",
		Example: `  todo add "Buy milk"`,
		Args:    usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			it, err := a.svc.Create(cmd.Context(), strings.Join(args, " "))
			if errors.Is(err, todo.ErrEmptyTitle) {
				return usageError{err}
			}
			if err != nil {
				a.logger.Error("adding todo", "err", err)
				return fmt.Errorf("failed to add todo: %w", err)
			}
			a.logger.Info("todo added", "id", it.ID, "title", it.Title)
			ui.OK(cmd.OutOrStdout(), fmt.Sprintf("%s added successfully!", it.Title))
			return nil
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	var group bool
	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "Print the current items once",
		Args:    usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := a.svc.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("load: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderList(items, group))
			return nil
		},
	}
	cmd.Flags().BoolVar(&group, "group", false, "group output by pending/done")
	return cmd
}

func newWatchCmd(a *app) *cobra.Command {
	var (
		group bool
		count int
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print the list every time it changes, until interrupted",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			updates := make(chan []model.Item, 1)
			unsub, err := a.svc.Subscribe(ctx, func(items []model.Item) {
				// keep only the newest list if printing falls behind
				select {
				case <-updates:
				default:
				}
				updates <- items
			})
			if err != nil {
				return err
			}
			defer unsub()

			out := cmd.OutOrStdout()
			for seen := 0; count <= 0 || seen < count; seen++ {
				select {
				case <-ctx.Done():
					return nil
				case items := <-updates:
					fmt.Fprintln(out, ui.Current().Muted.Render(time.Now().Format(time.TimeOnly)))
					fmt.Fprintln(out, renderList(items, group))
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&group, "group", false, "group output by pending/done")
	cmd.Flags().IntVar(&count, "count", 0, "exit after this many updates (0 = run until interrupted)")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  usageArgs(cobra.NoArgs),
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "todo "+Version)
		},
	}
}
