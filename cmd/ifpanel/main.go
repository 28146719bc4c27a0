package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ifpanel/ifpanel-go/internal/browser"
	"github.com/ifpanel/ifpanel-go/internal/captcha"
	"github.com/ifpanel/ifpanel-go/internal/config"
	"github.com/ifpanel/ifpanel-go/internal/fetcher"
	"github.com/ifpanel/ifpanel-go/internal/panel"
	"github.com/ifpanel/ifpanel-go/internal/server"
	"github.com/ifpanel/ifpanel-go/internal/session"
	"github.com/ifpanel/ifpanel-go/internal/store"
	"github.com/ifpanel/ifpanel-go/internal/utils"
	"github.com/ifpanel/ifpanel-go/pkg/version"
)

var (
	cfgFile string
	verbose bool
	log     *utils.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ifpanel",
	Short: "Automate an InfinityFree hosting panel",
	Long: `ifpanel drives an InfinityFree hosting panel over its web interface:
cookie or credential login, account and domain listings, DNS record
management, and browser-driven subdomain registration.

Configuration comes from ~/.ifpanel/config.yaml and IFPANEL_* environment
variables; flags override both.`,
	Version:       version.Short(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.ifpanel/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().String("base-url", "", "Panel base URL")
	rootCmd.PersistentFlags().StringP("account", "a", "", "Hosting account ID (default from config)")
	rootCmd.PersistentFlags().String("cookies", "", "Pre-captured session cookie string")
	rootCmd.PersistentFlags().String("proxy", "", "Proxy URL for panel requests")
	rootCmd.PersistentFlags().Duration("timeout", 30*time.Second, "HTTP request timeout")

	_ = viper.BindPFlag("panel.base_url", rootCmd.PersistentFlags().Lookup("base-url"))
	_ = viper.BindPFlag("panel.default_account", rootCmd.PersistentFlags().Lookup("account"))
	_ = viper.BindPFlag("auth.cookies", rootCmd.PersistentFlags().Lookup("cookies"))
	_ = viper.BindPFlag("fetch.proxy_url", rootCmd.PersistentFlags().Lookup("proxy"))
	_ = viper.BindPFlag("fetch.timeout", rootCmd.PersistentFlags().Lookup("timeout"))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(accountsCmd)
	rootCmd.AddCommand(domainsCmd)
	rootCmd.AddCommand(dnsCmd)
	rootCmd.AddCommand(extensionsCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(deleteDomainCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

// app bundles the wired components behind every command.
type app struct {
	cfg    *config.Config
	client *fetcher.Client
	svc    *panel.Service
}

func (a *app) Close() {
	if a.client != nil {
		_ = a.client.Close()
	}
}

// buildApp loads configuration and wires the client, session, authenticator,
// browser registrar, and panel service together.
func buildApp() (*app, error) {
	logLevel := "info"
	if verbose {
		logLevel = "debug"
	}
	log = utils.NewLogger(utils.LoggerOptions{
		Level:   logLevel,
		Format:  "pretty",
		Verbose: verbose,
	})

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	client, err := fetcher.NewClient(fetcher.ClientOptions{
		Timeout:    cfg.Fetch.Timeout,
		MaxRetries: cfg.Fetch.MaxRetries,
		UserAgent:  cfg.Fetch.UserAgent,
		ProxyURL:   cfg.Fetch.ProxyURL,
	})
	if err != nil {
		return nil, err
	}

	var browserSolver, tokenSolver captcha.Solver
	if cfg.Captcha.SolverURL != "" {
		browserSolver = captcha.NewBrowserSolver(cfg.Captcha.SolverURL, cfg.Captcha.Timeout)
	}
	if cfg.Captcha.BypassURL != "" {
		tokenSolver = captcha.NewTokenSolver(cfg.Captcha.BypassURL, cfg.Captcha.Timeout)
	}

	auth, err := session.Select(cfg.Auth.Cookies, cfg.Auth.Email, cfg.Auth.Password, browserSolver, tokenSolver)
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	sess := session.New(cfg.Panel.BaseURL, client)
	registrar := browser.NewRegistrar(sess, browser.Options{
		Path:            cfg.Browser.Path,
		RemoteURL:       cfg.Browser.RemoteURL,
		Headless:        cfg.Browser.Headless,
		NoSandbox:       cfg.Browser.NoSandbox,
		NavTimeout:      cfg.Browser.NavTimeout,
		ResponseTimeout: cfg.Browser.ResponseTimeout,
		SettleDelay:     cfg.Browser.SettleDelay,
	}, log)

	svc := panel.NewService(sess, auth, registrar, cfg.Panel.DefaultAccount, log)

	return &app{cfg: cfg, client: client, svc: svc}, nil
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	return ctx, cancel
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long:  "Starts the JSON HTTP API that exposes the panel operations to external consumers.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		st, err := store.New(store.Options{
			Directory: a.cfg.Store.Directory,
			InMemory:  a.cfg.Store.InMemory,
		})
		if err != nil {
			return fmt.Errorf("failed to open ownership store: %w", err)
		}
		defer st.Close()

		srv := server.New(a.cfg.Server, a.svc, st, log)

		ctx, cancel := signalContext()
		defer cancel()

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start()
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
			log.Info().Msg("Shutting down gracefully...")
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			return srv.Shutdown(shutdownCtx)
		}
	},
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check system dependencies",
	Long:  "Verifies that configuration, network, and the browser are usable.",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("Checking system dependencies...")
		allPassed := true

		fmt.Print("  Config: ")
		cfg, err := config.Load()
		if err != nil {
			fmt.Printf("FAILED (%v)\n", err)
			allPassed = false
		} else {
			fmt.Println("OK")
		}

		fmt.Print("  Authentication strategy: ")
		if cfg != nil {
			switch {
			case cfg.Auth.HasCookieAuth():
				fmt.Println("OK (cookie string)")
			case cfg.Auth.HasCredentials():
				fmt.Println("OK (credentials)")
			default:
				fmt.Println("MISSING (set IFPANEL_AUTH_COOKIES or email/password)")
				allPassed = false
			}
		} else {
			fmt.Println("SKIPPED")
		}

		fmt.Print("  Internet connection: ")
		if checkInternet() {
			fmt.Println("OK")
		} else {
			fmt.Println("FAILED")
			allPassed = false
		}

		fmt.Print("  Chrome/Chromium: ")
		configured := ""
		if cfg != nil {
			configured = cfg.Browser.Path
		}
		if bin, err := browser.FindExecutable(configured); err == nil {
			fmt.Printf("OK (%s)\n", bin)
		} else {
			fmt.Println("NOT FOUND (registration workflows will be unavailable)")
		}

		fmt.Println()
		if allPassed {
			fmt.Println("All critical checks passed!")
		} else {
			fmt.Println("Some checks failed. Please resolve the issues above.")
		}
		return nil
	},
}

// checkInternet checks if there's an internet connection
func checkInternet() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, "https://www.google.com", nil)
	if err != nil {
		return false
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 400
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Full())
	},
}
