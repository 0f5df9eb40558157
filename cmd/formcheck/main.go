package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/signupform/signup/pkg/api/client"
	"github.com/signupform/signup/pkg/config"
	"github.com/signupform/signup/pkg/harness"
	"github.com/signupform/signup/pkg/logger"
)

var buildVersion = "dev"

const (
	modeHTTP    = "http"
	modeBrowser = "browser"
)

type options struct {
	cfg      config.HarnessConfig
	mode     string
	outDir   string
	logLevel string
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{cfg: config.LoadHarnessConfig()}

	root := &cobra.Command{
		Use:           "formcheck",
		Short:         "Drive the signup form from a spreadsheet of cases",
		Version:       buildVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.outDir, "out-dir", "", "Directory for output workbooks (default: next to the input)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", config.GetString("LOG_LEVEL", "info"), "Log level")

	run := &cobra.Command{
		Use:   "run <cases.xlsx>",
		Short: "Submit every case and write results.xlsx and validator_report.xlsx",
		Long: `Reads the first sheet of the workbook (Full Name, Email, Password,
Confirm Password, Expected Outcome), submits each row to the registration
API or through the form in a browser, and records what came back.

Example:
  formcheck run cases.xlsx --mode browser --form-url http://127.0.0.1:5000/form.html`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCases(cmd, opts, args[0])
		},
	}
	run.Flags().StringVar(&opts.mode, "mode", modeHTTP, "Submission mode: http or browser")
	run.Flags().StringVar(&opts.cfg.APIURL, "api-url", opts.cfg.APIURL, "Registration API base URL (http mode)")
	run.Flags().StringVar(&opts.cfg.FormURL, "form-url", opts.cfg.FormURL, "Form page URL (browser mode)")
	run.Flags().StringVar(&opts.cfg.BrowserBin, "browser-bin", opts.cfg.BrowserBin, "Browser executable (default: auto-detect or download)")
	run.Flags().BoolVar(&opts.cfg.BrowserHeadless, "headless", opts.cfg.BrowserHeadless, "Run the browser headless")
	run.Flags().DurationVar(&opts.cfg.Timeout, "timeout", opts.cfg.Timeout, "Per-case timeout")
	run.Flags().IntVar(&opts.cfg.Parallel, "parallel", opts.cfg.Parallel, "Concurrent submissions (http mode only)")

	report := &cobra.Command{
		Use:   "report <cases.xlsx>",
		Short: "Write validator_report.xlsx without submitting anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := harness.Report(args[0], opts.outDir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "validator report written to %s\n", path)
			return nil
		},
	}

	root.AddCommand(run, report)
	return root
}

func runCases(cmd *cobra.Command, opts *options, input string) error {
	log := logger.NewWithWriter(cmd.ErrOrStderr(), "formcheck", logger.ParseLevel(opts.logLevel))

	sub, closeFn, err := newSubmitter(opts)
	if err != nil {
		return err
	}
	defer closeFn()

	parallel := opts.cfg.Parallel
	if opts.mode == modeBrowser {
		parallel = 1
	}
	runner, err := harness.NewRunner(sub, parallel, log)
	if err != nil {
		return err
	}

	sum, err := harness.Execute(cmd.Context(), runner, input, opts.outDir)
	if err != nil {
		return err
	}
	log.Info("batch complete",
		slog.Int("total", sum.Total),
		slog.Int("passed", sum.Passed),
		slog.Int("failed", sum.Failed),
		slog.Int("unchecked", sum.Unchecked),
	)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d cases: %d pass, %d fail, %d without expectation\n", sum.Total, sum.Passed, sum.Failed, sum.Unchecked)
	fmt.Fprintf(out, "results written to %s\n", sum.ResultsPath)
	fmt.Fprintf(out, "validator report written to %s\n", sum.ReportPath)
	return nil
}

func newSubmitter(opts *options) (harness.Submitter, func(), error) {
	switch strings.ToLower(strings.TrimSpace(opts.mode)) {
	case modeHTTP, "":
		cli, err := client.New(opts.cfg.APIURL, client.WithTimeout(opts.cfg.Timeout))
		if err != nil {
			return nil, nil, err
		}
		sub, err := harness.NewHTTPSubmitter(cli)
		if err != nil {
			return nil, nil, err
		}
		return sub, func() {}, nil
	case modeBrowser:
		opts.mode = modeBrowser
		sub, err := harness.NewBrowserSubmitter(harness.BrowserOptions{
			FormURL:  opts.cfg.FormURL,
			Bin:      opts.cfg.BrowserBin,
			Headless: opts.cfg.BrowserHeadless,
			Timeout:  opts.cfg.Timeout,
		})
		if err != nil {
			return nil, nil, err
		}
		return sub, func() { _ = sub.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown mode %q (want http or browser)", opts.mode)
	}
}
