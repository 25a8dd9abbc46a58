package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/okian/neurolens/internal/analysisstub"
	"github.com/okian/neurolens/internal/config"
	"github.com/okian/neurolens/internal/domain/model"
	"github.com/okian/neurolens/pkg/logger"
)

// Output formats for the run command.
const (
	formatJSON = "json"
	formatYAML = "yaml"
)

type runFlags struct {
	childName string
	ageMonths int
	output    string
	withStub  bool
}

func newRunCmd(f *rootFlags) *cobra.Command {
	rf := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one headless session and print its assessment",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			out, err := runSession(ctx, f.cfg, rf)
			if err != nil {
				return err
			}
			return writeAssessment(cmd.OutOrStdout(), out, rf.output)
		},
	}
	cmd.Flags().StringVar(&rf.childName, "child-name", "", "name called during the response-to-name exercise")
	cmd.Flags().IntVar(&rf.ageMonths, "age", 0, "child age in months (default from config)")
	cmd.Flags().StringVarP(&rf.output, "output", "o", formatJSON, "output format: json or yaml")
	cmd.Flags().BoolVar(&rf.withStub, "stub", false, "run against an in-process analysis stub")
	_ = cmd.MarkFlagRequired("child-name")
	return cmd
}

func runSession(ctx context.Context, cfg *config.Config, rf *runFlags) (model.RiskAssessment, error) {
	if rf.output != formatJSON && rf.output != formatYAML {
		return model.RiskAssessment{}, fmt.Errorf("%w: output %q", config.ErrInvalidConfig, rf.output)
	}
	if rf.withStub {
		stop, base, err := startStub()
		if err != nil {
			return model.RiskAssessment{}, err
		}
		defer stop()
		cfg.AnalysisEndpoint = base
	}

	svc, _, err := newService(cfg)
	if err != nil {
		return model.RiskAssessment{}, err
	}
	if err := svc.Start(ctx); err != nil {
		return model.RiskAssessment{}, err
	}
	defer svc.Stop()

	id, err := svc.CreateSession(ctx, model.SessionRequest{
		ChildName: rf.childName,
		AgeMonths: rf.ageMonths,
		Headless:  true,
	})
	if err != nil {
		return model.RiskAssessment{}, err
	}
	logger.Get().Info(ctx, "headless session queued", logger.String("session", id))
	return svc.Wait(ctx, id)
}

// startStub serves the analysis stub on a loopback port.
func startStub() (func(), string, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, "", fmt.Errorf("listen for stub: %w", err)
	}
	srv := &http.Server{Handler: analysisstub.NewServer().Handler(), ReadHeaderTimeout: readHeaderTimeout}
	go func() {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			logger.Get().Error(context.Background(), "stub server failed", logger.Error(err))
		}
	}()
	stop := func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
	return stop, "http://" + ln.Addr().String(), nil
}

func writeAssessment(w io.Writer, out model.RiskAssessment, format string) error {
	switch format {
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			return err
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
}
