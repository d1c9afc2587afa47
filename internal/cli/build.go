package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/kiln/internal/build"
	"github.com/roach88/kiln/internal/engine"
)

// BuildOptions holds flags for the build command.
type BuildOptions struct {
	*RootOptions
	Output string

	// Tokens overrides the run token generator (for testing).
	// If nil, build.Run uses UUIDv7 tokens.
	Tokens engine.RunTokenGenerator
}

// NewBuildCommand creates the build command.
func NewBuildCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BuildOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Compile the content tree",
		Long: `Compile the content tree into the output tree.

The project file (kiln.yaml) names the content directory, the CUE rule set,
the output directory and the state store. Resources unchanged since the last
successful build are skipped.

Example:
  kiln build
  kiln build --config site/kiln.yaml -o /tmp/site --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output directory (overrides output_dir)")

	return cmd
}

func runBuild(opts *BuildOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		_ = formatter.Error(ResponseError{Code: "CONFIG", Message: err.Error()})
		return err
	}
	if opts.Output != "" {
		abs, err := filepath.Abs(opts.Output)
		if err != nil {
			return WrapExitError(ExitCommandError, "resolve output directory", err)
		}
		cfg.OutputDir = abs
		if err := cfg.Validate(); err != nil {
			_ = formatter.Error(ResponseError{Code: "CONFIG", Message: err.Error()})
			return WrapExitError(ExitCommandError, "invalid output directory", err)
		}
	}

	logger := newLogger(cfg.LogLevel, cfg.LogFormat, opts.Verbose, cmd.ErrOrStderr())

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, stopping build", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	buildOpts := []build.Option{build.WithLogger(logger)}
	if opts.Tokens != nil {
		buildOpts = append(buildOpts, build.WithTokens(opts.Tokens))
	}

	logger.Debug("build starting", "content_dir", cfg.ContentDir, "rules", cfg.Rules, "output_dir", cfg.OutputDir)
	rep, err := build.Run(ctx, cfg, buildOpts...)
	if err != nil {
		return buildFailure(formatter, err)
	}

	written := len(rep.Written())
	text := fmt.Sprintf("built %d job(s), wrote %d file(s) in %d wave(s) [run %s]",
		len(rep.Steps), written, rep.Waves, rep.RunID)
	if len(rep.Steps) == 0 {
		text = fmt.Sprintf("up to date [run %s]", rep.RunID)
	}
	return formatter.Success(rep, text)
}

// buildFailure reports err and maps it to an exit code: runtime errors are
// build failures, everything else is a command error.
func buildFailure(f *OutputFormatter, err error) error {
	var re *engine.RuntimeError
	if errors.As(err, &re) {
		_ = f.Error(ResponseError{
			Code:       string(re.Code),
			Message:    err.Error(),
			Identifier: string(re.Identifier),
			Path:       re.Path,
		})
		return WrapExitError(ExitFailure, "build failed", err)
	}
	if errors.Is(err, context.Canceled) {
		_ = f.Error(ResponseError{Code: "CANCELLED", Message: err.Error()})
		return WrapExitError(ExitFailure, "build cancelled", err)
	}
	_ = f.Error(ResponseError{Code: "BUILD", Message: err.Error()})
	return WrapExitError(ExitCommandError, "build failed", err)
}
