// Command mood-recommender serves the emotion-based music recommendation API
// and runs face expression detection against a directory of frames.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/justestif/go-mood-recommender/internal/apiclient"
	"github.com/justestif/go-mood-recommender/internal/auth"
	"github.com/justestif/go-mood-recommender/internal/config"
	"github.com/justestif/go-mood-recommender/internal/db"
	"github.com/justestif/go-mood-recommender/internal/detection"
	"github.com/justestif/go-mood-recommender/internal/emotion"
	"github.com/justestif/go-mood-recommender/internal/frame"
	"github.com/justestif/go-mood-recommender/internal/genre"
	"github.com/justestif/go-mood-recommender/internal/inference"
	"github.com/justestif/go-mood-recommender/internal/logging"
	"github.com/justestif/go-mood-recommender/internal/recommend"
	"github.com/justestif/go-mood-recommender/internal/spotify"
	"github.com/justestif/go-mood-recommender/internal/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	rootCmd := &cobra.Command{
		Use:           "mood-recommender",
		Short:         "Recommend music for a detected facial expression",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(detectCmd())

	return rootCmd.Execute()
}

// loadConfig loads configuration and initializes logging from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	return cfg, nil
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, closeStore, err := openStore(ctx, cfg.Storage)
			if err != nil {
				return err
			}
			defer closeStore()

			if !cfg.Spotify.HasCredentials() {
				logging.Warn().Msg("Spotify credentials not configured; recommendation requests will fail")
			}

			provider := spotify.NewProvider(cfg.Spotify, nil)
			svc := recommend.New(provider, store, genre.NewVocabulary(), nil)

			// The handlers need a nil interface, not a typed nil, when auth is unconfigured.
			var authenticator web.Authenticator
			a, err := auth.New(cfg.Spotify)
			switch {
			case errors.Is(err, auth.ErrMissingCredentials):
				logging.Warn().Msg("Spotify client id not configured; user authorization disabled")
			case err != nil:
				return fmt.Errorf("creating authenticator: %w", err)
			default:
				authenticator = a
			}

			server := web.NewServer(cfg.Server, web.NewHandlers(authenticator, svc, store))
			return server.Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (overrides HTTP_ADDR)")
	return cmd
}

// openStore returns the configured record store and a func that releases it.
func openStore(ctx context.Context, cfg config.StorageConfig) (db.Store, func(), error) {
	switch cfg.Driver {
	case config.StoragePostgres:
		pg, err := db.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to database: %w", err)
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, nil, fmt.Errorf("migrating database: %w", err)
		}
		logging.Info().Msg("using postgres storage")
		return pg, pg.Close, nil
	default:
		logging.Info().Msg("using in-memory storage")
		return db.NewMemoryStore(), func() {}, nil
	}
}

func detectCmd() *cobra.Command {
	var (
		framesDir string
		serverURL string
		timeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Detect the dominant expression in a directory of frames",
		Long: `Detect polls the frames in --frames through the expression model until a
face is found, prints the result as JSON and, with --server, requests
recommendations for it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			src, err := frame.OpenDir(framesDir)
			if err != nil {
				return err
			}
			w, h := src.Dimensions()
			logging.Info().
				Str("dir", framesDir).
				Int("frames", src.Len()).
				Int("width", w).
				Int("height", h).
				Msg("frames loaded")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			adapter := inference.NewAdapter(
				inference.NewRemoteModel(cfg.Inference.ModelURL, nil),
				inference.Options{
					Timeout:  cfg.Inference.Timeout,
					Degraded: cfg.Inference.DegradedMode,
				},
			)

			ctrl := detection.New(adapter, src, detection.Options{Interval: cfg.Inference.Interval})
			ctrl.Start(ctx)
			defer ctrl.Stop()

			sample, err := ctrl.Wait(ctx)
			if err != nil {
				return fmt.Errorf("detecting expression: %w", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(newDetectOutput(sample, src)); err != nil {
				return err
			}

			if serverURL == "" {
				return nil
			}

			res, err := apiclient.New(serverURL, nil).Recommend(ctx, string(sample.Emotion), sample.Confidence)
			if err != nil {
				return fmt.Errorf("requesting recommendations: %w", err)
			}
			return enc.Encode(res)
		},
	}

	cmd.Flags().StringVarP(&framesDir, "frames", "f", "", "directory of JPEG or PNG frames")
	cmd.Flags().StringVarP(&serverURL, "server", "s", "", "API base URL to request recommendations from")
	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "give up after this long (0 waits forever)")
	_ = cmd.MarkFlagRequired("frames")
	return cmd
}

// detectOutput is the sample printed by detect, with its box also given as
// percentages of the frame so it can be drawn over a scaled video element.
type detectOutput struct {
	emotion.Sample
	RelativeBox *emotion.Box `json:"relativeBox,omitempty"`
}

func newDetectOutput(sample emotion.Sample, src frame.Source) detectOutput {
	out := detectOutput{Sample: sample}
	if sample.BoundingBox != nil {
		w, h := src.Dimensions()
		rel := sample.BoundingBox.Relative(w, h)
		out.RelativeBox = &rel
	}
	return out
}
