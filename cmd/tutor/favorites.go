package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tutor "github.com/asofia888/russian-talk-tutor"
	"github.com/spf13/cobra"
)

var (
	favTopic         string
	favJapanese      string
	favPronunciation string
	favExportFormat  string
	favImportFormat  string
	favOutput        string
	favStrategy      string
	favDryRun        bool
)

var favoritesCmd = &cobra.Command{
	Use:     "favorites",
	Aliases: []string{"fav"},
	Short:   "Manage saved words",
}

var favoritesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved words",
	RunE:  runFavoritesList,
}

var favoritesAddCmd = &cobra.Command{
	Use:   "add <word>",
	Short: "Save a word for review",
	Long: `Save a word for spaced repetition review.

The word is a reference (W1, W2, ...) from a topic's conversation when
--topic is given, or the Russian word itself with --japanese.

Example:
  tutor favorites add W3 --topic b-ordering-food
  tutor favorites add молоко --japanese 牛乳 --pronunciation マラコー`,
	Args: cobra.ExactArgs(1),
	RunE: runFavoritesAdd,
}

var favoritesRemoveCmd = &cobra.Command{
	Use:   "remove <russian>",
	Short: "Remove a saved word",
	Args:  cobra.ExactArgs(1),
	RunE:  runFavoritesRemove,
}

var favoritesExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export saved words as JSON or XLSX",
	Long: `Export saved words with their review schedules.

Example:
  tutor favorites export --output words.json
  tutor favorites export --format xlsx --output words.xlsx`,
	RunE: runFavoritesExport,
}

var favoritesDrillCmd = &cobra.Command{
	Use:   "drill <word>",
	Short: "Show the case declension table for a word",
	Long: `Show why a word takes its case in the conversation and the full
six-case table of its base form, singular and plural. The word's own case
is marked with an arrow.

The word is a reference (W1, W2, ...) from a topic's conversation when
--topic is given, or a saved favorite.

Example:
  tutor favorites drill W2 --topic b-ordering-food
  tutor favorites drill книгу --json`,
	Args: cobra.ExactArgs(1),
	RunE: runFavoritesDrill,
}

var favoritesImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import saved words from JSON or XLSX",
	Long: `Import saved words. The format follows the file extension unless
--format is given. Existing words are skipped unless --on-conflict replace.

Example:
  tutor favorites import words.json
  tutor favorites import words.xlsx --on-conflict replace --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: runFavoritesImport,
}

func init() {
	favoritesAddCmd.Flags().StringVar(&favTopic, "topic", "", "Topic whose conversation defines the W-references")
	favoritesAddCmd.Flags().StringVar(&favJapanese, "japanese", "", "Translation for a word given in Russian")
	favoritesAddCmd.Flags().StringVar(&favPronunciation, "pronunciation", "", "Pronunciation in katakana")

	favoritesDrillCmd.Flags().StringVar(&favTopic, "topic", "", "Topic whose conversation defines the W-references")

	favoritesExportCmd.Flags().StringVar(&favExportFormat, "format", "json", "Export format: json or xlsx")
	favoritesExportCmd.Flags().StringVarP(&favOutput, "output", "o", "", "Output file (default: stdout for json)")

	favoritesImportCmd.Flags().StringVar(&favImportFormat, "format", "", "Import format: json or xlsx (default: from extension)")
	favoritesImportCmd.Flags().StringVar(&favStrategy, "on-conflict", "skip", "Conflict handling: skip or replace")
	favoritesImportCmd.Flags().BoolVar(&favDryRun, "dry-run", false, "Report what would be imported without saving")

	favoritesCmd.AddCommand(favoritesListCmd, favoritesAddCmd, favoritesRemoveCmd, favoritesDrillCmd, favoritesExportCmd, favoritesImportCmd)
	rootCmd.AddCommand(favoritesCmd)
}

func runFavoritesList(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	favs := a.client.Favorites().List()
	if outputJSON {
		return outputAsJSON(cmd, favs)
	}
	printFavorites(cmd.OutOrStdout(), favs, a.client.Session())
	return nil
}

func runFavoritesAdd(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	word, err := lookupWord(cmd.Context(), a.client, args[0])
	if err != nil {
		return err
	}
	added, err := a.client.AddFavorite(word)
	if err != nil {
		return err
	}

	if outputJSON {
		return outputAsJSON(cmd, map[string]any{"russian": word.Russian, "added": added})
	}
	if !added {
		printInfo(cmd.OutOrStdout(), "%s is already saved", word.Russian)
		return nil
	}
	printSuccess(cmd.OutOrStdout(), "Saved %s (%s)", word.Russian, word.Translation)
	return nil
}

// lookupWord resolves ref against the cached conversation of --topic, or
// builds a word from the --japanese and --pronunciation flags.
func lookupWord(ctx context.Context, c *tutor.Client, ref string) (tutor.Word, error) {
	if favTopic != "" {
		if ctx == nil {
			ctx = context.Background()
		}
		topic, err := c.Topic(favTopic)
		if err != nil {
			return tutor.Word{}, err
		}
		if _, err := c.Conversation(ctx, topic, tutor.LoadOptions{PreferCache: true}); err != nil {
			return tutor.Word{}, err
		}
		if w, ok := c.Session().Lookup(ref); ok {
			return w, nil
		}
		return tutor.Word{}, fmt.Errorf("%q is not a word of topic %s", ref, favTopic)
	}

	if favJapanese == "" {
		return tutor.Word{}, fmt.Errorf("--japanese is required unless --topic is given")
	}
	return tutor.Word{Russian: strings.TrimSpace(ref), Translation: favJapanese, Pronunciation: favPronunciation}, nil
}

func runFavoritesDrill(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	var word tutor.Word
	if favTopic != "" {
		if word, err = lookupWord(cmd.Context(), a.client, args[0]); err != nil {
			return err
		}
	} else {
		fw, ok := a.client.Favorites().Get(strings.TrimSpace(args[0]))
		if !ok {
			return fmt.Errorf("%w: %s (use --topic for a conversation word)", tutor.ErrNotFavorite, args[0])
		}
		word = fw.Word
	}

	drill, ok := word.Drill()
	if !ok {
		return fmt.Errorf("no case information for %s", word.Russian)
	}
	if outputJSON {
		return outputAsJSON(cmd, drill)
	}
	printCaseDrill(cmd.OutOrStdout(), drill)
	return nil
}

func runFavoritesRemove(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	removed, err := a.client.RemoveFavorite(args[0])
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("%w: %s", tutor.ErrNotFavorite, args[0])
	}
	if outputJSON {
		return outputAsJSON(cmd, map[string]any{"russian": args[0], "removed": true})
	}
	printSuccess(cmd.OutOrStdout(), "Removed %s", args[0])
	return nil
}

func runFavoritesExport(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	format := strings.ToLower(favExportFormat)
	if format == "xlsx" && favOutput == "" {
		return fmt.Errorf("--output is required for xlsx export")
	}

	if favOutput == "" {
		return a.client.ExportFavorites(cmd.OutOrStdout(), format)
	}

	var buf bytes.Buffer
	if err := a.client.ExportFavorites(&buf, format); err != nil {
		return err
	}
	if err := os.WriteFile(favOutput, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	printSuccess(cmd.ErrOrStderr(), "Exported %d word(s) to %s", a.client.Favorites().Len(), favOutput)
	return nil
}

func runFavoritesImport(cmd *cobra.Command, args []string) error {
	strategy, err := tutor.ParseMergeStrategy(favStrategy)
	if err != nil {
		return err
	}
	format := strings.ToLower(favImportFormat)
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(args[0])), ".")
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open import file: %w", err)
	}
	defer func() { _ = f.Close() }()

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if favDryRun {
		// Import into a scratch copy so nothing is written.
		scratch := tutor.LoadFavorites(tutor.NewMemoryDocuments())
		if err := scratch.Replace(a.client.Favorites().List()); err != nil {
			return err
		}
		result, err := importInto(scratch, f, format, strategy)
		if err != nil {
			return err
		}
		return outputImportResult(cmd, result, true)
	}

	result, err := a.client.ImportFavorites(f, format, strategy)
	if err != nil {
		return err
	}
	return outputImportResult(cmd, result, false)
}

func importInto(favs *tutor.Favorites, f *os.File, format string, strategy tutor.MergeStrategy) (*tutor.ImportResult, error) {
	switch format {
	case "xlsx":
		return favs.ImportXLSX(f, strategy)
	case "json", "":
		return favs.ImportJSON(f, strategy)
	default:
		return nil, fmt.Errorf("unsupported import format %q", format)
	}
}

func outputImportResult(cmd *cobra.Command, result *tutor.ImportResult, dryRun bool) error {
	if outputJSON {
		return outputAsJSON(cmd, map[string]any{"dry_run": dryRun, "result": result})
	}
	out := cmd.OutOrStdout()
	prefix := "Imported"
	if dryRun {
		prefix = "Would import"
	}
	printSuccess(out, "%s %d of %d word(s), %d skipped", prefix, result.Created, result.Total, result.Skipped)
	for _, problem := range result.Errors {
		printWarning(out, "%s", problem)
	}
	return nil
}
