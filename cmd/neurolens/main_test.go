package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/neurolens/internal/config"
	"github.com/okian/neurolens/internal/domain/model"
	"github.com/okian/neurolens/pkg/logger"
)

func TestRootCommand(t *testing.T) {
	convey.Convey("Given the root command", t, func() {
		root := newRootCmd()

		convey.Convey("Then it should expose serve, run and stub", func() {
			names := map[string]bool{}
			for _, c := range root.Commands() {
				names[c.Name()] = true
			}
			convey.So(names["serve"], convey.ShouldBeTrue)
			convey.So(names["run"], convey.ShouldBeTrue)
			convey.So(names["stub"], convey.ShouldBeTrue)
		})

		convey.Convey("When run is invoked without a child name", func() {
			var out bytes.Buffer
			root.SetOut(&out)
			root.SetErr(&out)
			root.SetArgs([]string{"run"})
			err := root.Execute()

			convey.Convey("Then it should fail on the required flag", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "child-name")
			})
		})
	})
}

func TestSetup(t *testing.T) {
	convey.Convey("Given root flags overriding config", t, func() {
		f := &rootFlags{endpoint: "http://localhost:8000", logLevel: "warn"}
		defer func() { _ = logger.SetLevelString("info") }()

		convey.Convey("Then setup should apply them over the loaded config", func() {
			convey.So(f.setup(context.Background()), convey.ShouldBeNil)
			convey.So(f.cfg, convey.ShouldNotBeNil)
			convey.So(f.cfg.AnalysisEndpoint, convey.ShouldEqual, "http://localhost:8000")
			convey.So(f.cfg.LogLevel, convey.ShouldEqual, "warn")
		})
	})
}

func TestNewService(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		_ = logger.Init()
		cfg := config.New()

		convey.Convey("When the endpoint is overridden", func() {
			cfg.AnalysisEndpoint = "http://localhost:8000"
			svc, ep, err := newService(cfg)

			convey.Convey("Then endpoints should be derived from it", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(svc, convey.ShouldNotBeNil)
				convey.So(ep.AnalyzeSocket, convey.ShouldEqual, "ws://localhost:8000/ws/analyze")
				convey.So(ep.AudioSocket, convey.ShouldEqual, "ws://localhost:8000/ws/audio")
				convey.So(ep.Batch, convey.ShouldEqual, "http://localhost:8000/api/analyze")
			})
		})

		convey.Convey("When the endpoint is not http", func() {
			cfg.AnalysisEndpoint = "ftp://example.com"
			_, _, err := newService(cfg)

			convey.Convey("Then it should be rejected", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("Then synthetic devices should be used without a replay dir", func() {
			convey.So(devicesFor(cfg), convey.ShouldNotBeNil)
		})
	})
}

func TestLoopbackURL(t *testing.T) {
	convey.Convey("Given listen addresses", t, func() {
		for addr, want := range map[string]string{
			":9080":          "http://127.0.0.1:9080",
			"0.0.0.0:8000":   "http://127.0.0.1:8000",
			"10.0.0.5:8000":  "http://10.0.0.5:8000",
			"localhost:1234": "http://localhost:1234",
		} {
			got, err := loopbackURL(addr)
			convey.So(err, convey.ShouldBeNil)
			convey.So(got, convey.ShouldEqual, want)
		}

		_, err := loopbackURL("9080")
		convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
	})
}

func TestWriteAssessment(t *testing.T) {
	convey.Convey("Given an assessment", t, func() {
		out := model.RiskAssessment{
			RiskScore: 38,
			RiskBand:  model.BandModerate,
			Flags:     []string{"Limited vocalization"},
		}

		convey.Convey("Then JSON output should use the wire names", func() {
			var buf bytes.Buffer
			convey.So(writeAssessment(&buf, out, formatJSON), convey.ShouldBeNil)
			convey.So(buf.String(), convey.ShouldContainSubstring, `"riskBand": "Moderate"`)
			convey.So(buf.String(), convey.ShouldContainSubstring, `"riskScore": 38`)
		})

		convey.Convey("Then YAML output should use the same names", func() {
			var buf bytes.Buffer
			convey.So(writeAssessment(&buf, out, formatYAML), convey.ShouldBeNil)
			convey.So(buf.String(), convey.ShouldContainSubstring, "riskBand: Moderate")
			convey.So(buf.String(), convey.ShouldContainSubstring, "- Limited vocalization")
		})

		convey.Convey("Then an unknown format should be refused before running", func() {
			_, err := runSession(context.Background(), config.New(), &runFlags{childName: "Ada", output: "xml"})
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}
