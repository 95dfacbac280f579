package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lanternsearch/lantern/internal/output"
	"github.com/lanternsearch/lantern/internal/query"
	"github.com/lanternsearch/lantern/internal/search"
)

func newSearchCmd() *cobra.Command {
	var (
		title      string
		areaID     string
		from       string
		to         string
		contextIDs []int64
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a search query against the engine",
		Long: `Search the index and print ranked, highlighted results.

Without --context the query runs unrestricted (operator access). With
one or more --context flags, results are confined to those context ids
for the requested area.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			req := &query.Request{
				Text:     strings.Join(args, " "),
				Title:    title,
				AreaID:   areaID,
				Contexts: query.AllContexts(),
			}
			if from != "" {
				ts, err := parseSince(from)
				if err != nil {
					return err
				}
				req.TimeStart = ts
			}
			if to != "" {
				ts, err := parseSince(to)
				if err != nil {
					return err
				}
				req.TimeEnd = ts
			}
			if len(contextIDs) > 0 {
				if areaID == "" {
					return fmt.Errorf("--context requires --area")
				}
				req.Contexts = &query.ContextMap{
					ByArea: map[string][]int64{areaID: contextIDs},
				}
			}

			eng, err := buildEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			builder := query.NewBuilder(cfg.Search.MaxResults, cfg.Search.FileIndexing)
			svc := search.New(eng, areas, builder, log)

			docs, err := svc.Search(ctx, req)
			if err != nil {
				return err
			}

			out := output.New(os.Stdout)
			if len(docs) == 0 {
				out.Muted("no results")
				return nil
			}

			out.Header(fmt.Sprintf("%d results", len(docs)))
			for i, d := range docs {
				out.Printf("%2d. %s %s\n", i+1, out.Highlightf("%s", d.Title), d.ID)
				if d.Content != "" {
					out.Muted(snippet(d.Content, 160))
				}
				for _, f := range d.MatchedFiles {
					out.Muted(fmt.Sprintf("↳ file: %s", f.Filename))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Exact title filter")
	cmd.Flags().StringVar(&areaID, "area", "", "Restrict to one area")
	cmd.Flags().StringVar(&from, "from", "", "Lower bound on modification time")
	cmd.Flags().StringVar(&to, "to", "", "Upper bound on modification time")
	cmd.Flags().Int64SliceVar(&contextIDs, "context", nil, "Accessible context id (repeatable)")

	return cmd
}

// snippet trims s to at most n runes on a word boundary.
func snippet(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	cut := string(runes[:n])
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return cut + "…"
}
