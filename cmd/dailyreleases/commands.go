package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"DailyReleases/internal/domain"
	"DailyReleases/internal/report"
)

func newRunCommand(cc *commandContext) *cobra.Command {
	var post, quiet bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate today's post once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cc.ensureConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("post") {
				cfg.Main.Post = post
			}

			s, err := cc.open(cmd.Context(), cfg, true)
			if err != nil {
				return err
			}
			defer s.Close()

			res, err := s.app.Run(cmd.Context())
			if err != nil {
				s.logger.Error("run failed", "error", err)
				return err
			}

			out := cmd.OutOrStdout()
			if !quiet {
				fmt.Fprintln(out, color.New(color.Bold).Sprint(res.Title))
				fmt.Fprintln(out, res.Post)
				fmt.Fprintln(out)
			}
			fmt.Fprintf(out, "%s %d collected, %d new, %d reported, %d skipped\n",
				color.GreenString("done:"), res.Collected, res.Fresh, res.Classified, res.Skipped)
			if cfg.Main.Post {
				fmt.Fprintln(out, color.CyanString("post published"))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&post, "post", false, "Publish the post and record releases as processed")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not print the generated post")
	return cmd
}

func newDaemonCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the pipeline every day at the configured time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cc.ensureConfig()
			if err != nil {
				return err
			}
			s, err := cc.open(cmd.Context(), cfg, true)
			if err != nil {
				return err
			}
			defer s.Close()
			return s.app.Daemon(cmd.Context())
		},
	}
}

func newCleanCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Drop cached responses and processed releases past retention",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cc.ensureConfig()
			if err != nil {
				return err
			}
			s, err := cc.open(cmd.Context(), cfg, true)
			if err != nil {
				return err
			}
			defer s.Close()

			res, err := s.app.Clean(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d cached responses, %d processed releases\n",
				color.GreenString("removed"), res.Responses, res.Processed)
			return nil
		},
	}
}

func newClassifyCommand(cc *commandContext) *cobra.Command {
	var lookup bool

	cmd := &cobra.Command{
		Use:   "classify <dirname>...",
		Short: "Show how release dirnames are classified",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cc.ensureConfig()
			if err != nil {
				return err
			}
			s, err := cc.open(cmd.Context(), cfg, false)
			if err != nil {
				return err
			}
			defer s.Close()

			rows := make([][]string, 0, len(args))
			for _, dirname := range args {
				release, err := s.app.Classify(cmd.Context(), dirname, lookup)
				if err != nil {
					if domain.IsParseError(err) {
						rows = append(rows, []string{dirname, color.RedString(err.Error()), "", "", "", "", "", ""})
						continue
					}
					return err
				}
				rows = append(rows, classifyRow(release))
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Dirname", "Game", "Group", "Platform", "Category", "Tags", "Highlights", "Score (Reviews)"},
				rows,
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&lookup, "lookup", false, "Look the games up in the configured stores")
	return cmd
}

func classifyRow(r domain.ClassifiedRelease) []string {
	return []string{
		r.Dirname,
		r.GameName,
		r.GroupName,
		string(r.Platform),
		string(r.Category),
		strings.Join(r.Tags, " "),
		strings.Join(r.Highlights, ", "),
		report.Reviews(r.Score, r.ReviewCount),
	}
}

