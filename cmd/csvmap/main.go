package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-csvmap/internal/basemap"
	"github.com/joeblew999/plat-csvmap/internal/logger"
	"github.com/joeblew999/plat-csvmap/internal/server"
)

// Options defines all CLI flags and env vars for the viewer.
// Flags: --host, --port, --basemaps, --session-ttl, --max-sessions, --max-upload
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_BASEMAPS, SERVICE_SESSION_TTL, ...
type Options struct {
	Host        string `doc:"Host to bind to" default:"127.0.0.1"`
	Port        int    `doc:"Port to listen on" short:"p" default:"8086"`
	Basemaps    string `doc:"YAML file replacing the built-in basemap registry"`
	SessionTTL  int    `doc:"Minutes a page session may sit idle before it is dropped" default:"60"`
	MaxSessions int    `doc:"Maximum number of open page sessions" default:"256"`
	MaxUpload   int    `doc:"Largest accepted CSV upload in megabytes" default:"64"`
}

func registry(opts *Options) (*basemap.Registry, error) {
	if opts.Basemaps == "" {
		return basemap.Builtin(), nil
	}
	return basemap.Load(opts.Basemaps)
}

func newServer(opts *Options) (*server.Server, error) {
	reg, err := registry(opts)
	if err != nil {
		return nil, err
	}
	return server.New(server.Config{
		Host:        opts.Host,
		Port:        fmt.Sprintf("%d", opts.Port),
		Registry:    reg,
		SessionTTL:  time.Duration(opts.SessionTTL) * time.Minute,
		MaxSessions: opts.MaxSessions,
		MaxUpload:   int64(opts.MaxUpload) << 20,
		Logger:      logger.L(),
	})
}

func fatal(msg string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	os.Exit(1)
}

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()
	log := logger.Setup()

	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		srv, err := newServer(opts)
		if err != nil {
			fatal("Invalid configuration", err)
		}
		addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
		httpServer := &http.Server{Addr: addr, Handler: srv, ReadHeaderTimeout: 10 * time.Second}

		hooks.OnStart(func() {
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			fmt.Println()
			fmt.Printf("plat-csvmap viewer starting...\n")
			fmt.Printf("  Viewer:  %s/\n", baseURL)
			fmt.Printf("  Docs:    %s/docs\n", baseURL)
			fmt.Printf("  OpenAPI: %s/openapi.json\n", baseURL)
			fmt.Println()

			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("server stopped", "error", err)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(ctx); err != nil {
				log.Warn("shutdown", "error", err)
			}
		})
	})

	cli.Root().Use = "csvmap"
	cli.Root().Short = "Plot a local CSV file as points over a basemap"
	cli.Root().Version = server.Version

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			srv, err := newServer(opts)
			if err != nil {
				fatal("Invalid configuration", err)
			}
			spec := srv.OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			if useYAML {
				output, err = yaml.Marshal(spec)
			} else {
				output, err = json.MarshalIndent(spec, "", "  ")
			}
			if err != nil {
				fatal("Error marshaling spec", err)
			}
			fmt.Println(string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	// basemaps subcommand: print the effective registry in the --basemaps file format
	basemapsCmd := &cobra.Command{
		Use:   "basemaps",
		Short: "Print the basemap registry as YAML",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			reg, err := registry(opts)
			if err != nil {
				fatal("Invalid basemap registry", err)
			}
			out, err := yaml.Marshal(reg)
			if err != nil {
				fatal("Error marshaling registry", err)
			}
			fmt.Print(string(out))
		}),
	}
	cli.Root().AddCommand(basemapsCmd)

	cli.Run()
}
