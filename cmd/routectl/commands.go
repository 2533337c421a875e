package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"github.com/upb/hydra-router/app"
	"github.com/upb/hydra-router/config"
	"github.com/upb/hydra-router/internal/mcptool"
	"github.com/upb/hydra-router/internal/observability"
	"github.com/upb/hydra-router/middleware"
	routingsvc "github.com/upb/hydra-router/services/routing"
	"go.uber.org/zap"
)

type rootOptions struct {
	logLevel string
	rules    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "routectl",
		Short: "Hydra router command line",
		Long: `routectl runs the Hydra prompt classifier locally.

It picks a model tier (FAST, QUALITY or CODE) for a prompt, lists the models
the catalog source reports, and can serve the router to agents over MCP.
Configuration is read from the same environment variables as router-api.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "error", "log level written to stderr")
	rootCmd.PersistentFlags().StringVar(&opts.rules, "rules", "", "routing rules file (overrides ROUTING_RULES_FILE)")

	rootCmd.AddCommand(
		newClassifyCmd(opts),
		newModelsCmd(opts),
		newMCPCmd(opts),
		newTokenCmd(),
	)
	return rootCmd
}

// logger writes to stderr so stdout stays clean for command output
func (o *rootOptions) logger() (*zap.Logger, error) {
	if o.logLevel == "none" {
		return zap.NewNop(), nil
	}
	return observability.NewLogger(observability.LoggerConfig{Level: o.logLevel, Format: "console"})
}

func loadConfig(ctx context.Context) (*config.Config, error) {
	return config.New(ctx)
}

func (o *rootOptions) service(ctx context.Context, logger *zap.Logger) (*routingsvc.Service, error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	if o.rules != "" {
		cfg.Routing.RulesFile = o.rules
	}
	classifier, err := app.BuildClassifier(cfg.Routing)
	if err != nil {
		return nil, err
	}
	return routingsvc.NewService(classifier, nil, nil, nil, nil, logger), nil
}

func newClassifyCmd(opts *rootOptions) *cobra.Command {
	var (
		asJSON        bool
		preferQuality bool
		preferSpeed   bool
		system        string
		available     []string
	)

	cmd := &cobra.Command{
		Use:   "classify [prompt...]",
		Short: "Pick a tier and model for a prompt",
		Long: `Classify a prompt and print the routing decision.

The prompt is the joined arguments, or stdin when no arguments are given.
With --available the decision is checked against that model list and a
substitute is picked when the chosen model is missing.`,
		Example: `  routectl classify "Hello!"
  routectl classify --prefer-quality "Compare REST and gRPC"
  cat prompt.txt | routectl classify --json --available mistral,gpt-3.5-turbo`,
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt, err := readPrompt(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			logger, err := opts.logger()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			svc, err := opts.service(cmd.Context(), logger)
			if err != nil {
				return err
			}

			in := routingsvc.RouteInput{
				Prompt:        prompt,
				SystemPrompt:  system,
				PreferQuality: preferQuality,
				PreferSpeed:   preferSpeed,
			}

			var res *routingsvc.RouteResult
			if cmd.Flags().Changed("available") {
				in.AvailableModels = available
				if in.AvailableModels == nil {
					in.AvailableModels = []string{}
				}
				res, err = svc.RouteWithFallback(cmd.Context(), in)
			} else {
				res, err = svc.Route(cmd.Context(), in)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			printDecision(out, res)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the decision as JSON")
	cmd.Flags().BoolVar(&preferQuality, "prefer-quality", false, "bias borderline prompts toward QUALITY")
	cmd.Flags().BoolVar(&preferSpeed, "prefer-speed", false, "bias borderline prompts toward FAST")
	cmd.Flags().StringVar(&system, "system", "", "system prompt")
	cmd.Flags().StringSliceVar(&available, "available", nil, "comma separated models that can serve the request")
	return cmd
}

func readPrompt(stdin io.Reader, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(io.LimitReader(stdin, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read prompt from stdin: %w", err)
	}
	return string(data), nil
}

func printDecision(w io.Writer, res *routingsvc.RouteResult) {
	fmt.Fprintf(w, "Tier:       %s\n", res.Tier)
	fmt.Fprintf(w, "Model:      %s\n", res.Model)
	fmt.Fprintf(w, "Confidence: %.2f\n", res.Confidence)
	fmt.Fprintf(w, "Complexity: %.2f\n", res.Complexity)
	if res.Substituted {
		fmt.Fprintf(w, "Replaces:   %s (%s)\n", res.OriginalModel, res.OriginalTier)
	}
	fmt.Fprintf(w, "Reason:     %s\n", res.Reason)
}

func newModelsCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the models reported by the catalog source",
		Long: `List the models reported by the configured catalog source.

LITELLM_BASE_URL selects the LiteLLM /models endpoint; otherwise the static
list from CATALOG_STATIC_MODELS or the configured tier models is used.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			if opts.rules != "" {
				cfg.Routing.RulesFile = opts.rules
			}
			classifier, err := app.BuildClassifier(cfg.Routing)
			if err != nil {
				return err
			}
			source, err := app.BuildSource(cfg.Catalog, classifier.Models())
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Catalog.Timeout+time.Second)
			defer cancel()

			models, err := source.ListModels(ctx)
			if err != nil {
				return fmt.Errorf("list models from %s: %w", source.Name(), err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return json.NewEncoder(out).Encode(map[string]interface{}{
					"source": source.Name(),
					"models": models,
				})
			}
			fmt.Fprintf(out, "# source: %s\n", source.Name())
			for _, m := range models {
				fmt.Fprintln(out, m)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func newMCPCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the router as MCP tools over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			// stdout carries the protocol
			logger, err := opts.logger()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			svc, err := opts.service(cmd.Context(), logger)
			if err != nil {
				return err
			}
			return server.ServeStdio(mcptool.NewServer(svc, version))
		},
	}
}

func newTokenCmd() *cobra.Command {
	var (
		subject string
		roles   []string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the router API",
		Long:  "Sign an HS256 token with AUTH_JWT_SECRET, AUTH_JWT_ISSUER and AUTH_JWT_AUDIENCE.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			signer, err := middleware.NewHMACValidator(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.Audience)
			if err != nil {
				return fmt.Errorf("AUTH_JWT_SECRET must be set: %w", err)
			}
			token, err := signer.SignToken(subject, roles, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "routectl", "token subject")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "roles to grant, e.g. admin")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
