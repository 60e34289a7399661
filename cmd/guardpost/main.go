package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/andreazorzetto/yh/highlight"
	"github.com/hokaccha/go-prettyjson"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"gopkg.in/yaml.v3"

	sdk "go.opentelemetry.io/otel/sdk/metric"

	"github.com/guardpost/guardpost/conf"
	"github.com/guardpost/guardpost/internal/audit"
	"github.com/guardpost/guardpost/internal/build"
	"github.com/guardpost/guardpost/internal/configstore"
	"github.com/guardpost/guardpost/internal/log"
	"github.com/guardpost/guardpost/internal/metrics"
	"github.com/guardpost/guardpost/internal/policy"
	"github.com/guardpost/guardpost/internal/server"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "config":
			handleConfigCommand()
			return
		case "version", "--version", "-v":
			showVersion()
			return
		case "help", "--help", "-h":
			showHelp()
			return
		case "build-info":
			showBuildInfo()
			return
		}
	}

	startServer()
}

func showBuildInfo() {
	fmt.Println(build.GetBuildInfo())
}

type logger struct{}

func (l *logger) LogEvent(event fxevent.Event) {
	log.Debug(context.Background(), "fx event", log.Any("event", event))
}

func startServer() {
	server.Run(
		fx.WithLogger(func() fxevent.Logger {
			return &logger{}
		}),
		fx.Provide(conf.Load),
		fx.Provide(
			func(config conf.Config) log.Config { return config.Log },
			func(config conf.Config) server.Config { return config.APIServer },
			func(config conf.Config) configstore.Config { return config.ConfigStore },
			func(config conf.Config) audit.Config { return config.Audit },
			func(config conf.Config) metrics.Config { return config.Metrics },
			func(config conf.Config) *policy.Registry { return policy.NewRegistry(config.Services) },
		),
		fx.Provide(metrics.NewProvider),
		fx.Invoke(func(lc fx.Lifecycle, server *server.Server, provider *sdk.MeterProvider) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					if provider != nil {
						return metrics.SetupMetrics(provider, server.Config.Name)
					}

					return nil
				},
				OnStop: func(ctx context.Context) error {
					if provider != nil {
						return provider.Shutdown(ctx)
					}

					return nil
				},
			})
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					go func() {
						err := server.Run()
						if err != nil {
							log.Error(context.Background(), "server run error:", log.Cause(err))
							os.Exit(1)
						}
					}()

					return nil
				},
				OnStop: func(ctx context.Context) error {
					err := server.Shutdown(ctx)
					if err != nil {
						log.Error(context.Background(), "server shutdown error:", log.Cause(err))
					}

					return nil
				},
			})
		}),
	)
}

func handleConfigCommand() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: guardpost config <preview|validate|get>")
		os.Exit(1)
	}

	switch os.Args[2] {
	case "preview":
		configPreview()
	case "validate":
		configValidate()
	case "get":
		configGet()
	default:
		fmt.Println("Usage: guardpost config <preview|validate|get>")
		os.Exit(1)
	}
}

func configPreview() {
	format := "yml"

	for i := 3; i < len(os.Args); i++ {
		if os.Args[i] == "--format" || os.Args[i] == "-f" {
			if i+1 < len(os.Args) {
				format = os.Args[i+1]
			}
		}
	}

	config, err := conf.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	var output string

	switch format {
	case "json":
		b, err := prettyjson.Marshal(config)
		if err != nil {
			fmt.Printf("Failed to preview config: %v\n", err)
			os.Exit(1)
		}

		output = string(b)
	case "yml", "yaml":
		b, err := yaml.Marshal(config)
		if err != nil {
			fmt.Printf("Failed to preview config: %v\n", err)
			os.Exit(1)
		}

		output, err = highlight.Highlight(bytes.NewBuffer(b))
		if err != nil {
			fmt.Printf("Failed to preview config: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Printf("Unsupported format: %s\n", format)
		os.Exit(1)
	}

	fmt.Println(output)
}

func configValidate() {
	_, err := conf.Load()
	if err != nil {
		fmt.Println("Configuration validation failed:")
		fmt.Printf("  - %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Configuration is valid!")
}

func configGet() {
	if len(os.Args) < 4 {
		fmt.Println("Usage: guardpost config get <key>")
		fmt.Println("")
		fmt.Println("Available keys:")
		fmt.Println("  server.port         Server port number")
		fmt.Println("  server.name         Server name")
		fmt.Println("  data_dir            Data directory")
		fmt.Println("  config_store.path   Permission file location")
		fmt.Println("  audit.path          Audit trail location")
		fmt.Println("  services            Guarded service whitelist")
		os.Exit(1)
	}

	key := os.Args[3]

	config, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	var value interface{}

	switch key {
	case "server.port":
		value = config.APIServer.Port
	case "server.name":
		value = config.APIServer.Name
	case "server.host":
		value = config.APIServer.Host
	case "server.debug":
		value = config.APIServer.Debug
	case "data_dir":
		value = config.DataDir
	case "config_store.path":
		value = config.ConfigStore.Path
	case "audit.path":
		value = config.Audit.Path
	case "services":
		value = strings.Join(config.Services, ",")
	default:
		fmt.Fprintf(os.Stderr, "Unknown config key: %s\n", key)
		os.Exit(1)
	}

	fmt.Println(value)
}

func showHelp() {
	fmt.Println("Guardpost Authorization and Audit Core")
	fmt.Println("")
	fmt.Println("Usage:")
	fmt.Println("  guardpost                    Start the server (default)")
	fmt.Println("  guardpost config preview     Preview configuration")
	fmt.Println("  guardpost config validate    Validate configuration")
	fmt.Println("  guardpost config get <key>   Get a specific config value")
	fmt.Println("  guardpost version            Show version")
	fmt.Println("  guardpost help               Show this help message")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -f, --format FORMAT       Output format for config preview (yml, json)")
}

func showVersion() {
	fmt.Println(build.Version)
}
