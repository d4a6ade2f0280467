// poeditor-connector uploads a translation file to a POEditor project and
// downloads every exported language of it into a local directory.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/samber/lo"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Societec/poeditor-connector/config"
	"github.com/Societec/poeditor-connector/exporter"
	"github.com/Societec/poeditor-connector/i18n"
	"github.com/Societec/poeditor-connector/importer"
	"github.com/Societec/poeditor-connector/poeditor"
	"github.com/Societec/poeditor-connector/settings"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	infoPrefix    = color.New(color.FgBlue).Sprint("[INFO]")
	successPrefix = color.New(color.FgGreen).Sprint("[OK]")
	warnPrefix    = color.New(color.FgYellow, color.Bold).Sprint("[WARN]")
	errorPrefix   = color.New(color.FgRed).Sprint("[ERROR]")

	highlight = color.New(color.FgBlue).SprintFunc()
	good      = color.New(color.FgGreen).SprintFunc()
	bad       = color.New(color.FgRed).SprintFunc()
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s %s\n", infoPrefix, fmt.Sprintf(format, args...))
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s %s\n", successPrefix, fmt.Sprintf(format, args...))
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s %s\n", warnPrefix, fmt.Sprintf(format, args...))
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s %s\n", errorPrefix, fmt.Sprintf(format, args...))
}

// ---------------------------------------------------------------------------
// Flags
// ---------------------------------------------------------------------------

// netOptions are the flags shared by every command that talks to POEditor.
type netOptions struct {
	verbose bool
	timeout time.Duration
	proxy   string
}

func addNetFlags(fs *pflag.FlagSet, o *netOptions) {
	fs.BoolVar(&o.verbose, "verbose", false, i18n.T("Trace HTTP requests and log every step"))
	fs.DurationVar(&o.timeout, "timeout", 0, i18n.T("Timeout per HTTP request (0 = none)"))
	fs.StringVar(&o.proxy, "proxy", "", i18n.T("HTTP(S) proxy URL (default: HTTP_PROXY/HTTPS_PROXY)"))
}

func addConfigFlag(fs *pflag.FlagSet, path *string) {
	fs.StringVarP(path, "config", "c", "", i18n.T("Path to the JSON or YAML config file"))
}

// newClient builds an API client honouring the network flags.
func newClient(o *netOptions) (*poeditor.Client, error) {
	hc, err := poeditor.NewHTTPClient(o.proxy, o.timeout)
	if err != nil {
		return nil, err
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	if o.verbose {
		logger.SetOutput(os.Stderr)
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetOutput(io.Discard)
	}

	return poeditor.NewClient(poeditor.WithHTTPClient(hc), poeditor.WithLogger(logger)), nil
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Config{}, errors.New(i18n.T("missing --config: path to the config file is required"))
	}
	return config.Load(path)
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

// taskError marks the failure of an export or upload run.
type taskError struct {
	task string
	err  error
}

func (e *taskError) Error() string { return e.err.Error() }
func (e *taskError) Unwrap() error { return e.err }

// reportError logs err one line at a time; joined errors span lines.
func reportError(err error) {
	for _, line := range errorLines(err) {
		logError("%s", line)
	}
	var te *taskError
	if errors.As(err, &te) {
		logError(i18n.T("Error happened during POEditor %s task!"), te.task)
	}
}

func errorLines(err error) []string {
	return lo.Filter(strings.Split(err.Error(), "\n"), func(s string, _ int) bool {
		return strings.TrimSpace(s) != ""
	})
}

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

type rootOptions struct {
	net           netOptions
	configPath    string
	upload        bool
	maxConcurrent int
}

func newRootCmd() *cobra.Command {
	o := &rootOptions{}

	root := &cobra.Command{
		Use:   "poeditor-connector",
		Short: "Upload translations to POEditor and download exported languages",
		Long: `poeditor-connector: POEditor export/import helper.

Without --upload, every language of the project is exported and downloaded
into exportDir, which is emptied first. With --upload, importFile is sent to
the project and the term and translation counts are printed.

The API token is read from POEDITOR_API_TOKEN, then from the config file,
then from the token store managed by 'poeditor-connector auth'.

Examples:
  poeditor-connector --config=poeditor.json             Export all languages
  poeditor-connector -c poeditor.yaml --upload          Upload importFile
  poeditor-connector languages -c poeditor.json         Show project languages`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.upload {
				if err := runUpload(o); err != nil {
					return &taskError{task: "upload", err: err}
				}
				return nil
			}
			if err := runExport(o); err != nil {
				return &taskError{task: "export", err: err}
			}
			return nil
		},
	}

	addNetFlags(root.PersistentFlags(), &o.net)
	addConfigFlag(root.Flags(), &o.configPath)
	root.Flags().BoolVarP(&o.upload, "upload", "u", false, i18n.T("Upload importFile instead of exporting"))
	root.Flags().IntVar(&o.maxConcurrent, "max-concurrent", 0, i18n.T("Maximum parallel language downloads (default: exportConcurrency)"))

	root.AddCommand(
		newLanguagesCmd(&o.net),
		newAuthCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	i18n.Init("")
	if err := newRootCmd().Execute(); err != nil {
		reportError(err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// export / upload
// ---------------------------------------------------------------------------

func runExport(o *rootOptions) error {
	cfg, err := loadConfig(o.configPath)
	if err != nil {
		return err
	}
	client, err := newClient(&o.net)
	if err != nil {
		return err
	}

	logInfo(i18n.T("Exporting project %s into %s"), cfg.ProjectID, highlight(cfg.ExportDir))

	opts := exporter.Options{MaxConcurrent: o.maxConcurrent}
	var bar *progressbar.ProgressBar
	if o.net.verbose {
		opts.OnLog = logInfo
	} else {
		var mu sync.Mutex
		opts.OnProgress = func(lang string, done, total int) {
			mu.Lock()
			defer mu.Unlock()
			if bar == nil {
				bar = newProgressBar(total, i18n.T("Downloading"))
			}
			_ = bar.Set(done)
		}
	}

	results, err := exporter.Run(context.Background(), cfg, client, opts)
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		return err
	}

	for _, r := range results {
		logSuccess("%-8s %s (%d bytes)", r.Language, r.Path, r.Bytes)
	}
	logSuccess(i18n.N("Exported %d language", "Exported %d languages", len(results)), len(results))
	return nil
}

func newProgressBar(total int, desc string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(desc),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionClearOnFinish(),
	)
}

func runUpload(o *rootOptions) error {
	cfg, err := loadConfig(o.configPath)
	if err != nil {
		return err
	}
	client, err := newClient(&o.net)
	if err != nil {
		return err
	}

	logInfo(i18n.T("Uploading %s to project %s (language %s)"), highlight(cfg.ImportFile), cfg.ProjectID, cfg.ImportLanguage)
	if _, err := importer.UploadAndReport(context.Background(), cfg, client, os.Stdout); err != nil {
		return err
	}
	logSuccess(i18n.T("Upload finished"))
	return nil
}

// ---------------------------------------------------------------------------
// languages
// ---------------------------------------------------------------------------

func newLanguagesCmd(net *netOptions) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "languages",
		Short: "List project languages and their export files",
		Long: `List the languages of the configured POEditor project with their
translation progress and the exportFiles entry each one is written to.

Languages without an exportFiles entry would make an export fail.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			client, err := newClient(net)
			if err != nil {
				return err
			}

			langs, err := client.ProjectLanguages(context.Background(), cfg)
			if err != nil {
				return err
			}
			if len(langs) == 0 {
				logWarning(i18n.T("Project %s has no languages"), cfg.ProjectID)
				return nil
			}

			if err := printLanguages(cmd.OutOrStdout(), cfg, langs); err != nil {
				return err
			}

			unmapped := lo.Filter(langs, func(l poeditor.Language, _ int) bool {
				_, ok := cfg.ExportFile(l.Code)
				return !ok
			})
			if n := len(unmapped); n > 0 {
				logWarning(i18n.N("%d language has no exportFiles entry", "%d languages have no exportFiles entry", n), n)
			}
			return nil
		},
	}

	addConfigFlag(cmd.Flags(), &configPath)
	return cmd
}

func printLanguages(w io.Writer, cfg config.Config, langs []poeditor.Language) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tNAME\tTRANSLATIONS\tDONE\tFILE")
	for _, l := range langs {
		file, ok := cfg.ExportFile(l.Code)
		if !ok {
			file = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.1f%%\t%s\n", l.Code, l.Name, l.Translations, l.Percentage, file)
	}
	return tw.Flush()
}

// ---------------------------------------------------------------------------
// auth
// ---------------------------------------------------------------------------

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage stored POEditor API tokens",
		Long: `Manage API tokens kept in the local token store, so config files do not
have to carry them. Tokens are stored per project ID; the "default" entry
is used for projects without their own token.

Examples:
  poeditor-connector auth login                     Store the default token
  poeditor-connector auth login --project 12345     Store a token for one project
  poeditor-connector auth logout --project 12345    Remove one project's token
  poeditor-connector auth logout                    Remove all tokens
  poeditor-connector auth status                    Show stored tokens`,
	}

	cmd.AddCommand(
		newAuthLoginCmd(),
		newAuthLogoutCmd(),
		newAuthStatusCmd(),
	)

	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	var project, token string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store an API token",
		Long: `Store a POEditor API token. Without --token, the token is read from
standard input. Tokens are listed at https://poeditor.com/account/api.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				existing := settings.Token(project)
				if existing != "" {
					fmt.Fprintf(os.Stderr, i18n.T("  Current token: %s\n"), settings.MaskKey(existing))
					fmt.Fprint(os.Stderr, i18n.T("  Enter new token to replace, or press Enter to keep: "))
				} else {
					fmt.Fprint(os.Stderr, i18n.T("  Enter API token: "))
				}

				scanner := bufio.NewScanner(cmd.InOrStdin())
				if !scanner.Scan() {
					return errors.New(i18n.T("no input received"))
				}
				token = strings.TrimSpace(scanner.Text())

				if token == "" {
					if existing != "" {
						logInfo(i18n.T("Keeping existing token"))
						return nil
					}
					return errors.New(i18n.T("no API token provided"))
				}
			}

			if err := settings.SetToken(project, token); err != nil {
				return fmt.Errorf("saving token: %w", err)
			}
			logSuccess(i18n.T("Token saved for %s"), storeKey(project))
			return nil
		},
	}

	cmd.Flags().StringVar(&project, "project", "", i18n.T("Project ID the token belongs to (default: all projects)"))
	cmd.Flags().StringVar(&token, "token", "", i18n.T("API token (default: read from stdin)"))
	return cmd
}

func newAuthLogoutCmd() *cobra.Command {
	var project string

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Remove stored tokens",
		Long: `Remove the token of one project, or every stored token when --project
is not given. Use --project default to remove only the default token.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if project == "" {
				if err := settings.RemoveAll(); err != nil {
					return err
				}
				logSuccess(i18n.T("All stored tokens removed"))
				return nil
			}
			if err := settings.Remove(project); err != nil {
				return err
			}
			logSuccess(i18n.T("Token for %s removed"), project)
			return nil
		},
	}

	cmd.Flags().StringVar(&project, "project", "", i18n.T("Project ID to log out (default: all)"))
	return cmd
}

func newAuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		Aliases: []string{"list", "ls"},
		Short:   "Show stored tokens",
		Args:    cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			printTokenStatus(cmd.OutOrStdout(), settings.Load(), os.Getenv(config.EnvAPIToken))
		},
	}
}

func printTokenStatus(w io.Writer, store settings.Store, envToken string) {
	fmt.Fprintf(w, "%s %s\n", i18n.T("Token store:"), settings.FilePath())

	keys := lo.Keys(store)
	sort.Strings(keys)
	if len(keys) == 0 {
		fmt.Fprintf(w, "  %s\n", bad(i18n.T("no tokens stored")))
	}
	for _, key := range keys {
		info := store[key]
		if info == nil || info.Token == "" {
			continue
		}
		saved := time.Unix(info.Saved, 0).Format("2006-01-02")
		fmt.Fprintf(w, "  %-14s %s (%s %s)\n", key, good(settings.MaskKey(info.Token)), i18n.T("saved"), saved)
	}

	if envToken != "" {
		fmt.Fprintf(w, "%s: %s %s\n", config.EnvAPIToken, good(settings.MaskKey(envToken)), i18n.T("(overrides config and stored tokens)"))
	} else {
		fmt.Fprintf(w, "%s: %s\n", config.EnvAPIToken, bad(i18n.T("not set")))
	}
}

func storeKey(project string) string {
	if project == "" {
		return settings.DefaultKey
	}
	return project
}

// ---------------------------------------------------------------------------
// version
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "poeditor-connector version %s\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "  commit:    %s\n", commit)
			fmt.Fprintf(cmd.OutOrStdout(), "  built:     %s\n", date)
		},
	}
}
