package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/pulsecheck/health"
	"github.com/jonwraymond/pulsecheck/internal/config"
)

// errNotHealthy makes the process exit 1 after the response was printed.
var errNotHealthy = errors.New("overall status does not accept traffic")

type checkOptions struct {
	all     bool
	url     string
	output  string
	timeout time.Duration
}

func newCheckCmd(root *rootOptions) *cobra.Command {
	opts := &checkOptions{}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run the checks once and print the response",
		Long: "Runs the readiness checks (or every check with --all) and prints the\n" +
			"aggregated response. With --url the response of a running server is\n" +
			"fetched instead. Exits 1 unless the overall status is HEALTHY or DEGRADED.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.output != "json" && opts.output != "yaml" {
				return fmt.Errorf("unsupported output %q: use json or yaml", opts.output)
			}

			var (
				resp health.OverallResponse
				err  error
			)
			if opts.url != "" {
				resp, err = fetch(cmd.Context(), opts.url, opts.timeout)
			} else {
				resp, err = runLocal(cmd, root.configPath, opts.all)
			}
			if err != nil {
				return err
			}

			if err := render(cmd.OutOrStdout(), resp, opts.output); err != nil {
				return err
			}
			if health.HTTPStatus(resp.Status) != http.StatusOK {
				return fmt.Errorf("%w: %s", errNotHealthy, resp.Status)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.BoolVar(&opts.all, "all", false, "run every check, not only readiness checks")
	f.StringVar(&opts.url, "url", "", "fetch the response from a running endpoint instead")
	f.StringVarP(&opts.output, "output", "o", "json", "output format: json or yaml")
	f.DurationVar(&opts.timeout, "timeout", 10*time.Second, "request timeout for --url")
	return cmd
}

func runLocal(cmd *cobra.Command, configPath string, all bool) (health.OverallResponse, error) {
	cfg, err := config.Load(configPath, cmd.Flags())
	if err != nil {
		return health.OverallResponse{}, err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, appOptions{})
	if err != nil {
		return health.OverallResponse{}, err
	}
	defer func() { _ = a.Close(context.WithoutCancel(ctx)) }()

	return a.registry.Run(ctx, !all), nil
}

func fetch(ctx context.Context, url string, timeout time.Duration) (health.OverallResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return health.OverallResponse{}, err
	}
	req.Header.Set("Accept", "application/json")

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return health.OverallResponse{}, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer res.Body.Close()

	// 503 still carries a response body.
	var resp health.OverallResponse
	if err := json.NewDecoder(io.LimitReader(res.Body, 1<<20)).Decode(&resp); err != nil {
		return health.OverallResponse{}, fmt.Errorf("decode response from %s (HTTP %d): %w", url, res.StatusCode, err)
	}
	return resp, nil
}

func render(w io.Writer, resp health.OverallResponse, output string) error {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return err
	}
	if output == "json" {
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}
