package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"engram/internal/app"
	"engram/pkg/models"
)

// run opens a service for the duration of one command.
func (o *options) run(fn func(cmd *cobra.Command, svc *app.Service, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		svc, err := o.service()
		if err != nil {
			return err
		}
		defer svc.Close()
		return fn(cmd, svc, args)
	}
}

func branchesCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "branches",
		Short: "List branches",
		Args:  cobra.NoArgs,
		RunE: o.run(func(cmd *cobra.Command, svc *app.Service, _ []string) error {
			items, err := svc.Branches(cmd.Context())
			if err != nil {
				return err
			}
			return o.print(cmd.OutOrStdout(), items, printLines(items))
		}),
	}
}

func semestersCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "semesters BRANCH",
		Short: "List the semesters of a branch",
		Args:  cobra.ExactArgs(1),
		RunE: o.run(func(cmd *cobra.Command, svc *app.Service, args []string) error {
			items, err := svc.Semesters(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return o.print(cmd.OutOrStdout(), items, printLines(items))
		}),
	}
}

func subjectsCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "subjects BRANCH SEMESTER",
		Short: "List the subjects of a semester",
		Args:  cobra.ExactArgs(2),
		RunE: o.run(func(cmd *cobra.Command, svc *app.Service, args []string) error {
			items, err := svc.Subjects(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return o.print(cmd.OutOrStdout(), items, printLines(items))
		}),
	}
}

func materialsCmd(o *options) *cobra.Command {
	var category string
	c := &cobra.Command{
		Use:   "materials BRANCH SEMESTER SUBJECT",
		Short: "Show merged materials of a subject",
		Args:  cobra.ExactArgs(3),
		RunE: o.run(func(cmd *cobra.Command, svc *app.Service, args []string) error {
			set := svc.Materials(cmd.Context(), args[0], args[1], args[2])
			cats := models.Categories
			if category != "" {
				cat, ok := models.ParseCategory(category)
				if !ok {
					return fmt.Errorf("unknown category %q", category)
				}
				cats = []models.Category{cat}
				set = models.MaterialSet{cat: set[cat]}
			}
			return o.print(cmd.OutOrStdout(), set, func(w io.Writer) {
				for _, cat := range cats {
					items := set[cat]
					if len(items) == 0 {
						continue
					}
					fmt.Fprintf(w, "%s (%d)\n", cat.Title(), len(items))
					for _, m := range items {
						src := ""
						if m.Source != "" {
							src = " [" + string(m.Source) + "]"
						}
						fmt.Fprintf(w, "  %s%s\n    %s\n", m.DisplayName(), src, m.DownloadURL)
					}
				}
			})
		}),
	}
	c.Flags().StringVar(&category, "category", "", "only this category (notes, pyqs, books, lab, akash, syllabus, videos)")
	return c
}

func syllabusCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "syllabus BRANCH SEMESTER SUBJECT",
		Short: "Show the syllabus of a subject",
		Args:  cobra.ExactArgs(3),
		RunE: o.run(func(cmd *cobra.Command, svc *app.Service, args []string) error {
			syl, ok := svc.Syllabus(cmd.Context(), args[0], args[1], args[2])
			if !ok {
				return fmt.Errorf("no syllabus for %s", args[2])
			}
			return o.print(cmd.OutOrStdout(), syl, func(w io.Writer) {
				units := make([]string, 0, len(syl))
				for u := range syl {
					units = append(units, u)
				}
				sort.Strings(units)
				for _, u := range units {
					fmt.Fprintf(w, "%s: %s\n", u, syl[u])
				}
			})
		}),
	}
}

func videosCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "videos BRANCH SEMESTER SUBJECT",
		Short: "List lecture videos of a subject",
		Args:  cobra.ExactArgs(3),
		RunE: o.run(func(cmd *cobra.Command, svc *app.Service, args []string) error {
			videos := svc.Videos(cmd.Context(), args[0], args[1], args[2])
			return o.print(cmd.OutOrStdout(), videos, func(w io.Writer) {
				for _, v := range videos {
					by := ""
					if v.Author != "" {
						by = " by " + v.Author
					}
					fmt.Fprintf(w, "%s%s\n  %s\n", v.Title, by, firstNonEmpty(v.EmbedURL, v.PlaylistURL))
				}
			})
		}),
	}
}

func mapCmd(o *options) *cobra.Command {
	var branch, semester string
	c := &cobra.Command{
		Use:   "map SUBJECT...",
		Short: "Show the code a subject name maps to",
		Args:  cobra.MinimumNArgs(1),
		RunE: o.run(func(cmd *cobra.Command, svc *app.Service, args []string) error {
			m := svc.Mapping(strings.Join(args, " "), branch, semester)
			return o.print(cmd.OutOrStdout(), m, func(w io.Writer) {
				if !m.Found() {
					fmt.Fprintf(w, "no match (suggestion %s)\n", m.Suggestion)
					return
				}
				fmt.Fprintf(w, "%s %s %.2f\n", m.Code, m.Method, m.Confidence)
			})
		}),
	}
	c.Flags().StringVar(&branch, "branch", "", "branch context for fuzzy matching")
	c.Flags().StringVar(&semester, "semester", "", "semester context")
	return c
}

func searchCmd(o *options) *cobra.Command {
	var limit, offset int
	c := &cobra.Command{
		Use:   "search QUERY...",
		Short: "Search subjects across every catalog",
		Args:  cobra.MinimumNArgs(1),
		RunE: o.run(func(cmd *cobra.Command, svc *app.Service, args []string) error {
			res, err := svc.Search(cmd.Context(), strings.Join(args, " "), limit, offset)
			if err != nil {
				return err
			}
			return o.print(cmd.OutOrStdout(), res, func(w io.Writer) {
				for _, it := range res.Items {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", it.Branch, it.Semester, it.Subject, it.Source)
				}
				fmt.Fprintf(w, "%d of %d\n", len(res.Items), res.Total)
			})
		}),
	}
	c.Flags().IntVar(&limit, "limit", 20, "page size")
	c.Flags().IntVar(&offset, "offset", 0, "offset")
	return c
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
