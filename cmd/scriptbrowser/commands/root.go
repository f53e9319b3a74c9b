package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"scriptbrowser/internal/components/telemetry"
	"scriptbrowser/lib/configutil"
	"scriptbrowser/lib/util/serviceutil"
	"scriptbrowser/pkg/backend"
	"scriptbrowser/pkg/browser"
	"scriptbrowser/pkg/fixture"
	"scriptbrowser/pkg/fixturedb"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

type AuthConfig struct {
	// Scheme is "basic" or "digest", it defaults to basic.
	Scheme   string `json:"scheme"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Auth returns nil when no username is configured.
func (c AuthConfig) Auth() (*backend.Auth, error) {
	if c.Username == "" {
		return nil, nil
	}
	switch strings.ToLower(c.Scheme) {
	case "", "basic":
		return backend.BasicAuth(c.Username, c.Password), nil
	case "digest":
		return backend.DigestAuth(c.Username, c.Password), nil
	}
	return nil, fmt.Errorf("unknown auth scheme %q", c.Scheme)
}

type Config struct {
	UserAgent    string `json:"user_agent"`
	Retries      int    `json:"retries"`
	NoFollow     bool   `json:"no_follow"`
	MaxRedirects int    `json:"max_redirects"`
	// Timeout of a single exchange in seconds.
	Timeout           int              `json:"timeout"`
	RequestsPerSecond float64          `json:"requests_per_second"`
	CloudflareBypass  bool             `json:"cloudflare_bypass"`
	DumpDir           string           `json:"dump_dir"`
	Fixtures          fixturedb.Config `json:"fixtures"`
	Record            fixturedb.Config `json:"record"`
	Auth              AuthConfig       `json:"auth"`
}

var (
	configPath   string
	fixturesPath string
	recordPath   string
	dumpDir      string
	debug        bool
	userAgent    string
	retries      int
	noFollow     bool
	authScheme   string
	authUser     string
	authPassword string
)

var config Config

// backend shared by every command, set up before a command runs.
var (
	current backend.Backend
	auth    *backend.Auth
	closers []func() error
)

var rootCmd = &cobra.Command{
	Use:   "scriptbrowser",
	Short: "scriptbrowser is a scriptable, javascript-less web browser that can replay recorded responses.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(debug)

		var err error
		config, err = configutil.ReadOver(configPath, Config{
			UserAgent:    backend.DefaultUserAgent,
			MaxRedirects: backend.DefaultMaxRedirects,
			Timeout:      30,
		})
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}
		applyFlags(cmd)

		auth, err = config.Auth.Auth()
		if err != nil {
			serviceutil.Fatal("invalid auth config", err)
		}
		current, err = setupBackend(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to setup backend", err)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		for _, closeFn := range closers {
			err := closeFn()
			if err != nil {
				telemetry.SlogAPI{}.ReportWarning("cli.close", err)
			}
		}
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "scriptbrowser.json5", "The configuration file to read.")
	flags.StringVar(&fixturesPath, "fixtures", "", "Replay responses from this fixture database instead of the network.")
	flags.StringVar(&recordPath, "record", "", "Record every exchange into this fixture database.")
	flags.StringVar(&dumpDir, "dump-dir", "", "Dump every http exchange into this directory.")
	flags.BoolVar(&debug, "debug", false, "Enable debug logging.")
	flags.StringVar(&userAgent, "user-agent", "", "The user agent to send.")
	flags.IntVar(&retries, "retries", 0, "How many times a failed request is retried.")
	flags.BoolVar(&noFollow, "no-follow", false, "Do not follow redirects.")
	flags.StringVar(&authScheme, "auth-scheme", "basic", "The http auth scheme, basic or digest.")
	flags.StringVar(&authUser, "auth-user", "", "Authenticate requests as this user.")
	flags.StringVar(&authPassword, "auth-password", "", "The password of --auth-user.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(serviceutil.ExitCode(err))
	}
}

// applyFlags overrides config values with the flags that were given.
func applyFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("fixtures") {
		config.Fixtures = fixturedb.Config{File: fixturesPath}
	}
	if flags.Changed("record") {
		config.Record = fixturedb.Config{File: recordPath}
	}
	if flags.Changed("dump-dir") {
		config.DumpDir = dumpDir
	}
	if flags.Changed("user-agent") {
		config.UserAgent = userAgent
	}
	if flags.Changed("retries") {
		config.Retries = retries
	}
	if flags.Changed("no-follow") {
		config.NoFollow = noFollow
	}
	if flags.Changed("auth-user") {
		config.Auth = AuthConfig{
			Scheme:   authScheme,
			Username: authUser,
			Password: authPassword,
		}
	}
}

func enabled(c fixturedb.Config) bool {
	return c.File != "" || c.Url != ""
}

func setupBackend(ctx context.Context) (backend.Backend, error) {
	tel := telemetry.SlogAPI{}

	if enabled(config.Fixtures) {
		store, err := fixturedb.Open(ctx, config.Fixtures)
		if err != nil {
			return nil, err
		}
		closers = append(closers, store.Close)

		reg := fixture.NewRegistry()
		n, err := store.LoadInto(ctx, reg)
		if err != nil {
			return nil, err
		}
		tel.ReportCount("cli.fixtures-loaded", int64(n))
		return backend.NewMockFrom(reg), nil
	}

	opts := backend.RestyOptions{
		Timeout:           time.Duration(config.Timeout) * time.Second,
		RequestsPerSecond: config.RequestsPerSecond,
		CloudflareBypass:  config.CloudflareBypass,
		Telemetry:         tel,
	}
	if config.DumpDir != "" {
		output, err := telemetry.NewFilesystemOutput(config.DumpDir)
		if err != nil {
			return nil, err
		}
		opts.Output = output
	}
	live, err := backend.NewResty(opts)
	if err != nil {
		return nil, err
	}

	if enabled(config.Record) {
		store, err := fixturedb.Open(ctx, config.Record)
		if err != nil {
			return nil, err
		}
		closers = append(closers, store.Close)
		return backend.NewRecorder(live, store, tel), nil
	}
	return live, nil
}

func newBrowser() *browser.Browser {
	return browser.New(
		current,
		browser.WithUserAgent(config.UserAgent),
		browser.WithRetries(config.Retries),
		browser.WithFollow(!config.NoFollow),
		browser.WithMaxRedirects(config.MaxRedirects),
		browser.WithDebug(debug),
		browser.WithAuth(auth),
	)
}

// visit opens a browser on url and exits when it cannot be reached.
func visit(ctx context.Context, url string) *browser.Browser {
	b := newBrowser()
	_, err := b.Go(ctx, url)
	if err != nil {
		serviceutil.Fatal("failed to visit page", err)
	}
	return b
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}
