// Command picta is the reference CLI over the photo search engine:
// corpus lifecycle, batch indexing, natural-language search, and
// visual recommendations.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jiyeon-yoon/picta-prototype/internal/config"
	"github.com/jiyeon-yoon/picta-prototype/internal/logging"
	"github.com/jiyeon-yoon/picta-prototype/pkg/ann"
	"github.com/jiyeon-yoon/picta-prototype/pkg/domain"
	"github.com/jiyeon-yoon/picta-prototype/pkg/geocoder"
	"github.com/jiyeon-yoon/picta-prototype/pkg/indexer"
	"github.com/jiyeon-yoon/picta-prototype/pkg/parser"
	"github.com/jiyeon-yoon/picta-prototype/pkg/recommend"
	"github.com/jiyeon-yoon/picta-prototype/pkg/search"
	"github.com/jiyeon-yoon/picta-prototype/pkg/store"
)

var (
	dbPath     string
	configFile string
	asJSON     bool
)

var rootCmd = &cobra.Command{
	Use:   "picta",
	Short: "Hybrid metadata and visual search over a personal photo corpus",
	Long:  `picta indexes a photo corpus with vision-language embeddings and answers Korean-aware natural-language queries by combining metadata filtering, ANN similarity, and visual recommendation.`,
}

var corpusCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Manage the photo corpus",
}

var corpusInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a new, empty corpus database",
	RunE: func(cmd *cobra.Command, args []string) error {
		dim, _ := cmd.Flags().GetInt("dim")
		st, err := store.New(dbPath, dim)
		if err != nil {
			return fmt.Errorf("corpus init: %w", err)
		}
		defer st.Close()
		fmt.Printf("corpus initialized at %s (dim=%d)\n", dbPath, st.Dim())
		return nil
	},
}

var corpusStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Report corpus size and embedding dimension",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		ctx := context.Background()
		rows, err := st.Scan(ctx)
		if err != nil {
			return fmt.Errorf("corpus stats: %w", err)
		}
		count := 0
		for row := range rows {
			if row.Err == nil {
				count++
			}
		}

		if asJSON {
			data, _ := json.MarshalIndent(map[string]any{"count": count, "dim": st.Dim()}, "", "  ")
			fmt.Println(string(data))
			return nil
		}
		fmt.Printf("photos: %d\ndimensions: %d\n", count, st.Dim())
		return nil
	},
}

// manifestItem is one entry in the JSON manifest consumed by `index`:
// a precomputed embedding plus the metadata the scraper already knows
// about the photo. Running a vision-language model is not this
// binary's job (pkg/embed.Embedder is a contract only), so the ingest
// path takes vectors already computed, supplied by the caller.
type manifestItem struct {
	SourceRef    string           `json:"source_ref"`
	ThumbnailRef string           `json:"thumbnail_ref"`
	TakenAt      *string          `json:"taken_at"`
	GPS          *domain.GPSCoord `json:"gps"`
	LocationName string           `json:"location_name"`
	Vector       []float32        `json:"vector"`
	Metadata     json.RawMessage  `json:"metadata"`
}

// vectorEmbedder adapts a precomputed vector, transported as its own
// JSON encoding in place of raw image bytes, to the embed.Embedder
// contract the indexer depends on.
type vectorEmbedder struct{}

func (vectorEmbedder) EncodeImage(ctx context.Context, data []byte) ([]float32, error) {
	var vec []float32
	if err := json.Unmarshal(data, &vec); err != nil {
		return nil, fmt.Errorf("vectorEmbedder: decode precomputed vector: %w", err)
	}
	return vec, nil
}

func (vectorEmbedder) EncodeText(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("vectorEmbedder: text encoding is not available from the CLI manifest path")
}

var indexCmd = &cobra.Command{
	Use:   "index <manifest.json>",
	Short: "Ingest photos from a JSON manifest of precomputed embeddings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("index: read manifest: %w", err)
		}
		var manifest []manifestItem
		if err := json.Unmarshal(data, &manifest); err != nil {
			return fmt.Errorf("index: parse manifest: %w", err)
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		idx := ann.New(ann.DefaultConfig())
		workers, _ := cmd.Flags().GetInt("workers")

		ix := indexer.New(st, vectorEmbedder{}, workers, func(ctx context.Context) error {
			return idx.Rebuild(ctx, st)
		})

		items := make(chan indexer.Item, len(manifest))
		for _, m := range manifest {
			vecBytes, err := json.Marshal(m.Vector)
			if err != nil {
				return fmt.Errorf("index: encode vector for %s: %w", m.SourceRef, err)
			}
			items <- indexer.Item{
				Bytes:        vecBytes,
				SourceRef:    m.SourceRef,
				ThumbnailRef: m.ThumbnailRef,
				TakenAt:      m.TakenAt,
				GPS:          m.GPS,
				LocationName: m.LocationName,
				Metadata:     m.Metadata,
			}
		}
		close(items)

		ctx := context.Background()
		if err := ix.Run(ctx, items); err != nil {
			return fmt.Errorf("index: %w", err)
		}
		fmt.Printf("indexed %d items\n", len(manifest))
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <utterance>",
	Short: "Answer a natural-language photo search query",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		utterance := args[0]
		k, _ := cmd.Flags().GetInt("top-k")

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		if configFile != "" {
			// main already loaded the default configuration; drop that
			// cached copy so the --config file is actually read.
			config.Reset()
		}
		cfg, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("search: %w", err)
		}

		geo, err := geocoder.New(cfg.GeocoderURL)
		if err != nil {
			return fmt.Errorf("search: geocoder: %w", err)
		}
		p, err := parser.NewFromDefault(geo)
		if err != nil {
			return fmt.Errorf("search: parser: %w", err)
		}

		ctx := context.Background()
		plan := p.Parse(ctx, utterance)

		idx := ann.New(ann.DefaultConfig())
		if err := idx.Rebuild(ctx, st); err != nil {
			return fmt.Errorf("search: rebuild index: %w", err)
		}

		eng := search.New(st, idx, vectorEmbedder{})
		results, err := eng.Search(ctx, plan, k)
		if err != nil {
			return fmt.Errorf("search: %w", err)
		}

		if history, merr := json.Marshal(results); merr == nil {
			// Fire and forget: a history write failure never fails the query.
			_ = st.RecordSearch(ctx, utterance, history)
		}

		if asJSON {
			data, _ := json.MarshalIndent(results, "", "  ")
			fmt.Println(string(data))
			return nil
		}
		for i, r := range results {
			fmt.Printf("%d. photo %d  similarity=%.3f  %s\n", i+1, r.ID, r.Similarity, r.LocationName)
		}
		return nil
	},
}

var recommendCmd = &cobra.Command{
	Use:   "recommend <photo-id>",
	Short: "Find visually, spatially, and temporally related photos",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var id int64
		if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil {
			return fmt.Errorf("recommend: invalid photo id %q", args[0])
		}
		k, _ := cmd.Flags().GetInt("top-k")

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		ctx := context.Background()
		idx := ann.New(ann.DefaultConfig())
		if err := idx.Rebuild(ctx, st); err != nil {
			return fmt.Errorf("recommend: rebuild index: %w", err)
		}

		rec := recommend.New(st, idx)
		out, err := rec.Recommendations(ctx, domain.PhotoId(id), k)
		if err != nil {
			return fmt.Errorf("recommend: %w", err)
		}

		data, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(data))
		return nil
	},
}

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Partition the corpus into visual auto-albums via K-means",
	RunE: func(cmd *cobra.Command, args []string) error {
		n, _ := cmd.Flags().GetInt("groups")

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		ctx := context.Background()
		idx := ann.New(ann.DefaultConfig())
		if err := idx.Rebuild(ctx, st); err != nil {
			return fmt.Errorf("cluster: rebuild index: %w", err)
		}

		rec := recommend.New(st, idx)
		groups := rec.Cluster(n)

		data, _ := json.MarshalIndent(groups, "", "  ")
		fmt.Println(string(data))
		return nil
	},
}

func openStore() (*store.Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("corpus path not specified")
	}
	return store.New(dbPath, 0)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "picta.db", "Corpus database path")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().BoolVar(&asJSON, "json", false, "Output as JSON")

	corpusInitCmd.Flags().Int("dim", 0, "Embedding dimension (0 to auto-detect on first insert)")
	corpusCmd.AddCommand(corpusInitCmd, corpusStatsCmd)

	indexCmd.Flags().Int("workers", 4, "Bounded worker pool size for concurrent encode_image calls")

	searchCmd.Flags().Int("top-k", 20, "Maximum number of results")
	recommendCmd.Flags().Int("top-k", 10, "Maximum neighbors per category")
	clusterCmd.Flags().Int("groups", 8, "Number of K-means clusters")

	rootCmd.AddCommand(corpusCmd, indexCmd, searchCmd, recommendCmd, clusterCmd)
}

func main() {
	cfg, err := config.Load("")
	if err == nil {
		logging.Init(cfg.LogLevel)
	} else {
		logging.Init("info")
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
