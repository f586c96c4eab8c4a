package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/danrleybayoshi/horoscopo/internal/cache"
	"github.com/danrleybayoshi/horoscopo/internal/catalog"
	"github.com/danrleybayoshi/horoscopo/internal/config"
	"github.com/danrleybayoshi/horoscopo/internal/daemon"
	"github.com/danrleybayoshi/horoscopo/internal/favorites"
	"github.com/danrleybayoshi/horoscopo/internal/horoscope"
	"github.com/danrleybayoshi/horoscopo/internal/rewrite"
	"github.com/danrleybayoshi/horoscopo/internal/store"
	"github.com/danrleybayoshi/horoscopo/internal/vault"
)

func newFetchCmd(opts *rootOptions) *cobra.Command {
	var (
		provider  string
		timeframe string
		language  string
		doRewrite bool
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "fetch <sign|date>",
		Short: "Fetch a reading, failing over across the configured providers",
		Long: `Fetch resolves the argument against the sign catalog (name, English
name, ID or a date such as "21 de marzo"). Anything that does not resolve is
sent to the providers as typed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch timeframe {
			case horoscope.TimeframeDaily, horoscope.TimeframeWeekly, horoscope.TimeframeMonthly:
			default:
				return fmt.Errorf("invalid timeframe %q (daily, weekly or monthly)", timeframe)
			}

			cfg, err := opts.load()
			if err != nil {
				return err
			}
			logger := cliLogger(cmd.ErrOrStderr(), opts.verbose)
			v := vault.New()

			rtr, err := daemon.BuildRouter(cfg.Providers, v, logger)
			if err != nil {
				return err
			}
			client := horoscope.NewFailoverClient(rtr, nil, logger, nil)

			q := horoscope.Query{
				Sign:      resolveSign(strings.Join(args, " ")),
				Timeframe: timeframe,
				Language:  language,
			}

			var reading *horoscope.Reading
			if provider != "" {
				reading, err = client.FetchFrom(cmd.Context(), provider, q)
			} else {
				reading, err = client.FetchQuery(cmd.Context(), q)
			}
			if err != nil {
				if horoscope.IsExhausted(err) {
					return fmt.Errorf("horoscope service unavailable: %w", err)
				}
				return err
			}

			var rw *rewrite.Result
			if doRewrite {
				rw, err = daemon.BuildRewriter(cfg.Rewrite, v, nil, logger).Rewrite(cmd.Context(), reading.Text, language)
				if err != nil {
					return fmt.Errorf("rewriting reading: %w", err)
				}
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, struct {
					Reading *horoscope.Reading `json:"reading"`
					Rewrite *rewrite.Result    `json:"rewrite,omitempty"`
				}{reading, rw})
			}
			title := reading.Sign
			if sg, ok := catalog.ByToken(reading.Sign); ok {
				title = sg.Name + " (" + sg.Label() + ")"
			}
			fmt.Fprintf(out, "%s · %s · via %s\n\n%s\n", title, reading.Timeframe, reading.Provider, reading.Text)
			if rw != nil {
				fmt.Fprintf(out, "\n[%s]\n%s\n", rw.Language, rw.Rewrite)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&provider, "provider", "p", "", "query only this provider, without failover")
	cmd.Flags().StringVarP(&timeframe, "timeframe", "t", horoscope.TimeframeDaily, "daily, weekly or monthly")
	cmd.Flags().StringVarP(&language, "lang", "l", "", "reading language passed to providers")
	cmd.Flags().BoolVar(&doRewrite, "rewrite", false, "also rewrite the reading through the rewrite API")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of text")
	return cmd
}

func newSignsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "signs [query]",
		Short: "List the zodiac signs, favorites first, or find one by name or date",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			st, favs, err := openFavorites(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			out := cmd.OutOrStdout()
			ordered := favs.Sorted(catalog.All())
			if len(args) > 0 {
				q := strings.Join(args, " ")
				sg, ok := catalog.SearchIn(ordered, q)
				if !ok {
					return fmt.Errorf("no sign matches %q", q)
				}
				printSign(out, sg, favs.IsFavorite(sg.ID))
				return nil
			}
			for _, sg := range ordered {
				printSign(out, sg, favs.IsFavorite(sg.ID))
			}
			return nil
		},
	}
}

func newFavoritesCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "favorites",
		Short: "Mark signs as favorites",
	}

	update := func(use, short string, op func(*favorites.Set, int) (bool, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <sign>",
			Short: short,
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := opts.load()
				if err != nil {
					return err
				}
				sg, ok := lookupSign(strings.Join(args, " "))
				if !ok {
					return fmt.Errorf("unknown sign %q", strings.Join(args, " "))
				}
				st, favs, err := openFavorites(cfg)
				if err != nil {
					return err
				}
				defer st.Close()

				fav, err := op(favs, sg.ID)
				if err != nil {
					return err
				}
				state := "removed from"
				if fav {
					state = "added to"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s favorites\n", sg.Name, state)
				return nil
			},
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List favorite signs",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := opts.load()
				if err != nil {
					return err
				}
				st, favs, err := openFavorites(cfg)
				if err != nil {
					return err
				}
				defer st.Close()

				ids := favs.List()
				if len(ids) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No favorites yet")
					return nil
				}
				for _, id := range ids {
					sg, _ := catalog.ByID(id)
					printSign(cmd.OutOrStdout(), sg, true)
				}
				return nil
			},
		},
		update("add", "Mark a sign as favorite", func(s *favorites.Set, id int) (bool, error) {
			return true, s.Add(id)
		}),
		update("remove", "Unmark a favorite sign", func(s *favorites.Set, id int) (bool, error) {
			return false, s.Remove(id)
		}),
		update("toggle", "Flip a sign's favorite mark", func(s *favorites.Set, id int) (bool, error) {
			return s.Toggle(id)
		}),
	)
	return cmd
}

func newRewriteCmd(opts *rootOptions) *cobra.Command {
	var language string
	cmd := &cobra.Command{
		Use:   "rewrite <text>",
		Short: "Rewrite text through the rewrite API",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			logger := cliLogger(cmd.ErrOrStderr(), opts.verbose)

			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			c, err := cache.New(store.NewCacheAdapter(st), time.Duration(cfg.Cache.TTLSeconds)*time.Second, cfg.Cache.MaxMemoryEntries)
			if err != nil {
				return err
			}

			res, err := daemon.BuildRewriter(cfg.Rewrite, vault.New(), c, logger).
				Rewrite(cmd.Context(), strings.Join(args, " "), language)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Rewrite)
			return nil
		},
	}
	cmd.Flags().StringVarP(&language, "lang", "l", "", "target language (default from config)")
	return cmd
}

// resolveSign maps user input to the token sent to providers. Input that
// matches no catalog entry passes through lowercased.
func resolveSign(input string) string {
	if sg, ok := lookupSign(input); ok {
		return sg.Token
	}
	return strings.ToLower(strings.TrimSpace(input))
}

func lookupSign(input string) (catalog.Sign, bool) {
	if sg, ok := catalog.ByToken(input); ok {
		return sg, true
	}
	if id, err := strconv.Atoi(strings.TrimSpace(input)); err == nil {
		return catalog.ByID(id)
	}
	return catalog.Search(input)
}

func openStore(cfg *config.Config) (*store.Store, error) {
	st, err := store.Open(filepath.Join(cfg.Server.DataDir, "horoscopo.db"))
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	return st, nil
}

func openFavorites(cfg *config.Config) (*store.Store, *favorites.Set, error) {
	st, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	favs, err := favorites.Load(store.NewFavoritesAdapter(st))
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	return st, favs, nil
}

func printSign(w io.Writer, sg catalog.Sign, favorite bool) {
	mark := " "
	if favorite {
		mark = "*"
	}
	fmt.Fprintf(w, "%s %2d  %-12s %-12s %s\n", mark, sg.ID, sg.Name, sg.English, sg.Label())
}

// cliLogger writes warnings to w, or every attempt when verbose.
func cliLogger(w io.Writer, verbose bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05", NoColor: w != os.Stderr}).
		Level(level).With().Timestamp().Logger()
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
