package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/pep299/article-feed-api/internal/application"
	"github.com/pep299/article-feed-api/internal/config"
	"github.com/pep299/article-feed-api/internal/export"
	"github.com/pep299/article-feed-api/internal/logger"
	"github.com/pep299/article-feed-api/internal/rss"
	"github.com/pep299/article-feed-api/internal/seed"
	"github.com/pep299/article-feed-api/internal/store"
)

// loadConfig is replaced in tests.
var loadConfig = config.Load

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "newsctl",
		Short:         "Operate the article feed database",
		Long:          "newsctl manages the schema, fixtures and snapshots behind the article feed API.",
		SilenceUsage:  true,
	}

	root.AddCommand(
		newMigrateCmd(),
		newSeedCmd(),
		newImportCmd(),
		newExportCmd(),
		newStatsCmd(),
		newVersionCmd(),
	)
	return root
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema if it does not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, cfg *config.Config, st *store.Store) error {
				if err := st.Migrate(ctx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Schema ready (%s).\n", cfg.DBDriver)
				return nil
			})
		},
	}
}

func newSeedCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load categories and articles from a YAML fixture file",
		Long: `Load categories and articles from a YAML fixture file.

Rows keep their id when one is given; others get the next free id.
Existing rows with the same id are replaced.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fixtures, err := seed.LoadFile(file)
			if err != nil {
				return err
			}
			return withStore(cmd.Context(), func(ctx context.Context, cfg *config.Config, st *store.Store) error {
				if err := st.Migrate(ctx); err != nil {
					return err
				}
				nCat, nArt, err := seed.Apply(ctx, st, fixtures)
				if err != nil {
					return fmt.Errorf("seeding: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d categories and %d articles.\n", nCat, nArt)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "path to the fixture YAML file")
	cmd.MarkFlagRequired("file")
	return cmd
}

func newImportCmd() *cobra.Command {
	var (
		feeds    []string
		opts     rss.ImportOptions
		filter   rss.FilterOptions
		maxAge   time.Duration
		parallel int
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import articles from RSS or Atom feeds",
		Long: `Import articles from RSS or Atom feeds.

Items whose link is already stored are skipped, so a feed can be
imported repeatedly.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter.MaxAge = maxAge
			return withStore(cmd.Context(), func(ctx context.Context, cfg *config.Config, st *store.Store) error {
				if err := st.Migrate(ctx); err != nil {
					return err
				}

				fetched, failed := rss.NewClient().FetchFeeds(ctx, feeds, parallel)
				for url, err := range failed {
					fmt.Fprintf(cmd.ErrOrStderr(), "Skipping %s: %v\n", url, err)
				}
				if len(fetched) == 0 {
					return fmt.Errorf("no feeds could be fetched")
				}

				urls := make([]string, 0, len(fetched))
				for url := range fetched {
					urls = append(urls, url)
				}
				sort.Strings(urls)

				out := cmd.OutOrStdout()
				for _, url := range urls {
					stored, err := storedLinks(ctx, st)
					if err != nil {
						return err
					}
					filter.ExcludeLinks = stored

					feed := fetched[url]
					items := rss.FilterItems(rss.GetUniqueItems(feed.Items), filter)
					if len(items) == 0 {
						fmt.Fprintf(out, "%s: nothing new.\n", url)
						continue
					}

					_, nArt, err := seed.Apply(ctx, st, rss.ToFixtures(feed, items, opts))
					if err != nil {
						return fmt.Errorf("importing %s: %w", url, err)
					}
					fmt.Fprintf(out, "%s: imported %d articles.\n", url, nArt)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&feeds, "feed", nil, "feed URL (repeatable)")
	cmd.Flags().StringVar(&opts.Source, "source", "", "source name (defaults to the feed title)")
	cmd.Flags().StringVar(&opts.Category, "category", "", "category for imported articles")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum items per feed (0 for all)")
	cmd.Flags().DurationVar(&maxAge, "max-age", 0, "skip items older than this")
	cmd.Flags().IntVar(&filter.MinTitleLength, "min-title-length", 0, "skip items with shorter titles")
	cmd.Flags().StringSliceVar(&filter.ExcludeCategories, "exclude-category", nil, "skip items tagged with this feed category")
	cmd.Flags().StringSliceVar(&filter.ExcludeKeywords, "exclude-keyword", nil, "skip items mentioning this keyword")
	cmd.Flags().IntVar(&parallel, "parallel", 4, "feeds fetched concurrently")
	cmd.MarkFlagRequired("feed")
	return cmd
}

// storedLinks returns the URLs of every stored article.
func storedLinks(ctx context.Context, st *store.Store) (map[string]bool, error) {
	articles, err := st.ListArticles(ctx)
	if err != nil {
		return nil, err
	}
	links := make(map[string]bool, len(articles))
	for _, a := range articles {
		if a.URL != "" {
			links[a.URL] = true
		}
	}
	return links, nil
}

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Write one JSON snapshot to the configured bucket",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, cfg *config.Config, st *store.Store) error {
				sink, err := export.NewSinkFromConfig(ctx, cfg)
				if err != nil {
					return err
				}
				defer sink.Close()

				result, err := export.NewExporter(st, sink, cfg.ExportPrefix, cfg.ExportRetention()).Run(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d articles and %d categories to %s (%d pruned).\n",
					result.Articles, result.Categories, result.Key, result.Pruned)
				return nil
			})
		},
	}
}

func newStatsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show article and category counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, cfg *config.Config, st *store.Store) error {
				counts, err := st.Counts(ctx)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if asJSON {
					return json.NewEncoder(out).Encode(counts)
				}
				fmt.Fprintf(out, "Database: %s\n", cfg.DBDriver)
				fmt.Fprintf(out, "Articles: %d\n", counts.Articles)
				fmt.Fprintf(out, "Categories: %d\n", counts.Categories)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print counts as JSON")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "newsctl %s\n", application.Version)
		},
	}
}

// withStore loads configuration, opens the store and runs fn.
func withStore(ctx context.Context, fn func(context.Context, *config.Config, *store.Store) error) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	st, err := store.Open(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer st.Close()

	return fn(ctx, cfg, st)
}
