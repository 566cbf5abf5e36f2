package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"engram/internal/app"
	"engram/pkg/database"
	"engram/pkg/fetch"
	"engram/pkg/logger"
)

type options struct {
	content string
	jsonOut bool
	timeout time.Duration
	verbose bool
}

func defaultContent() string {
	if v := os.Getenv("ENGRAM_CONTENT"); v != "" {
		return v
	}
	return "http://localhost:9000"
}

// NewRootCmd builds the command tree; each call is independent.
func NewRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "engram",
		Short:         "Browse engineering study materials across catalogs",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&opts.content, "content", defaultContent(), "content origin URL or local directory holding Content-Meta/")
	root.PersistentFlags().BoolVar(&opts.jsonOut, "json", false, "print JSON")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", fetch.DefaultTimeout, "per-document fetch timeout")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log catalog activity to stderr")

	root.AddCommand(
		branchesCmd(opts),
		semestersCmd(opts),
		subjectsCmd(opts),
		materialsCmd(opts),
		syllabusCmd(opts),
		videosCmd(opts),
		mapCmd(opts),
		searchCmd(opts),
		adminCmd(),
		watchCmd(),
	)
	return root
}

func Execute() error {
	return NewRootCmd().Execute()
}

// service builds an in-process service reading from --content.
func (o *options) service() (*app.Service, error) {
	log := logger.Nop()
	if o.verbose {
		l, err := logger.New("dev")
		if err != nil {
			return nil, err
		}
		log = l
	}
	return app.New(app.Options{
		Timeout:  o.timeout,
		Database: database.MemoryConfig("cli-" + uuid.NewString()),
	}, fetch.New(o.content, o.timeout), log)
}

func (o *options) print(w io.Writer, v any, text func(io.Writer)) error {
	if o.jsonOut {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(w)
	return nil
}

func printLines(items []string) func(io.Writer) {
	return func(w io.Writer) {
		for _, it := range items {
			fmt.Fprintln(w, it)
		}
	}
}
