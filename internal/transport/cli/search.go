package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/carekb/internal/domain/chunk"
	"github.com/kailas-cloud/carekb/internal/domain/profile"
	"github.com/kailas-cloud/carekb/internal/domain/search/mode"
	"github.com/kailas-cloud/carekb/internal/domain/search/request"
	"github.com/kailas-cloud/carekb/internal/domain/search/result"
	searchuc "github.com/kailas-cloud/carekb/internal/usecase/search"
)

const snippetRunes = 120

var (
	searchK       int
	searchMode    string
	searchSpecies string
	searchBreed   string
	searchJSON    bool
	searchContext bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the knowledge base",
	Long: `Routes the query to the matching collections and ranks chunks by
fusing semantic (vector) and keyword scores. A pet's species and breed
narrow the results when given.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVar(&searchK, "k", request.DefaultK, "maximum number of results")
	searchCmd.Flags().StringVarP(&searchMode, "mode", "m", string(mode.Hybrid), "search mode: hybrid, vector or keyword")
	searchCmd.Flags().StringVar(&searchSpecies, "species", "", "pet species, e.g. dog or 고양이")
	searchCmd.Flags().StringVar(&searchBreed, "breed", "", "pet breed")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	searchCmd.Flags().BoolVar(&searchContext, "context", false, "output the formatted context block")
	rootCmd.AddCommand(searchCmd)
}

// jsonHit is the JSON output of one result.
type jsonHit struct {
	Content      string         `json:"content"`
	Metadata     chunk.Metadata `json:"metadata"`
	Collection   string         `json:"collection"`
	VectorScore  float64        `json:"vector_score"`
	KeywordScore float64        `json:"keyword_score"`
	Score        float64        `json:"score"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	var p *profile.Profile
	if searchSpecies != "" || searchBreed != "" {
		p = &profile.Profile{Species: searchSpecies, Breed: searchBreed}
	}
	req, err := request.New(args[0], p, mode.Parse(searchMode), searchK)
	if err != nil {
		return fmt.Errorf("invalid query: %w", err)
	}

	ctx := commandContext(cmd)
	rt, err := openRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	ready := false
	for _, c := range rt.Initialize(ctx) {
		ready = ready || c.Ready()
	}
	if !ready {
		return errors.New("no collection is ready, run 'carekb init' for details")
	}

	results, err := rt.Search(ctx, req)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	switch {
	case searchJSON:
		return outputSearchJSON(cmd, results)
	case searchContext:
		cmd.Print(searchuc.FormatContext(results))
		return nil
	default:
		outputSearchTable(cmd, results)
		return nil
	}
}

func outputSearchJSON(cmd *cobra.Command, results []result.Scored) error {
	hits := make([]jsonHit, 0, len(results))
	for _, r := range results {
		hits = append(hits, jsonHit{
			Content:      r.Chunk().Content(),
			Metadata:     r.Chunk().Metadata(),
			Collection:   r.Collection(),
			VectorScore:  r.VectorScore(),
			KeywordScore: r.KeywordScore(),
			Score:        r.FusedScore(),
		})
	}
	data, err := json.MarshalIndent(hits, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, results []result.Scored) {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return
	}

	cmd.Println("Results:")
	cmd.Println()
	for i, r := range results {
		source := r.Chunk().Source()
		if source == "" {
			source = r.Chunk().ID()
		}
		cmd.Printf("  [%d] %s (%.2f)\n", i+1, source, r.FusedScore())
		cmd.Printf("      Collection: %s\n", r.Collection())
		cmd.Printf("      %s\n", snippet(r.Chunk().Content()))
		cmd.Println()
	}
}

func snippet(content string) string {
	runes := []rune(content)
	if len(runes) <= snippetRunes {
		return string(runes)
	}
	return string(runes[:snippetRunes]) + "..."
}
