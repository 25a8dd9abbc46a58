package analysis_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/neurolens/internal/adapters/analysis"
	"github.com/okian/neurolens/internal/domain/model"
	"github.com/okian/neurolens/pkg/logger"
)

func TestMain(m *testing.M) {
	_ = logger.Init()
	os.Exit(m.Run())
}

func TestClient_Analyze(t *testing.T) {
	convey.Convey("Given a batch analysis endpoint", t, func() {
		var got map[string]float64
		var contentType string
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			contentType = r.Header.Get("Content-Type")
			_ = json.NewDecoder(r.Body).Decode(&got)
			_, _ = w.Write([]byte(`{
				"metrics": {"totalFrames": 120},
				"scores": {"engagementScore": 0.75, "socialPreference": 0.6, "geometricPreference": 0.4, "attentionShifts": 4},
				"classifications": {"dominantFocus": "mixed/no strong preference", "engagementClass": "moderate engagement", "attentionFlexibility": "moderate flexibility"},
				"interpretation": "Engagement level was moderate."
			}`))
		})
		srv := httptest.NewServer(handler)
		defer srv.Close()

		client := analysis.NewClient(srv.URL + "/api/analyze")

		convey.Convey("When the report is well formed", func() {
			report, err := client.Analyze(context.Background(), map[string]float64{"totalFrames": 120, "framesFaceDetected": 90})

			convey.Convey("Then it should post JSON and decode the report", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(contentType, convey.ShouldEqual, "application/json")
				convey.So(got["framesFaceDetected"], convey.ShouldEqual, 90)
				convey.So(report.HasEngagement(), convey.ShouldBeTrue)
				convey.So(*report.Scores.EngagementScore, convey.ShouldEqual, 0.75)
				convey.So(*report.Scores.AttentionShifts, convey.ShouldEqual, 4)
				convey.So(report.Classifications.EngagementClass, convey.ShouldEqual, model.EngagementModerate)
				convey.So(report.Interpretation, convey.ShouldEqual, "Engagement level was moderate.")
			})
		})
	})

	convey.Convey("Given an endpoint reporting insufficient data", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"error":"Insufficient data collected.","scores":{},"interpretation":"Insufficient data."}`))
		}))
		defer srv.Close()

		report, err := analysis.NewClient(srv.URL).Analyze(context.Background(), map[string]float64{})
		convey.So(err, convey.ShouldBeNil)
		convey.So(report.HasEngagement(), convey.ShouldBeFalse)
		convey.So(report.Error, convey.ShouldNotBeEmpty)
	})

	convey.Convey("Given an endpoint returning a server error", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer srv.Close()

		_, err := analysis.NewClient(srv.URL).Analyze(context.Background(), map[string]float64{})
		convey.So(errors.Is(err, analysis.ErrStatus), convey.ShouldBeTrue)
		convey.So(err.Error(), convey.ShouldContainSubstring, "boom")
	})

	convey.Convey("Given an endpoint returning garbage", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`<html>`))
		}))
		defer srv.Close()

		_, err := analysis.NewClient(srv.URL).Analyze(context.Background(), map[string]float64{})
		convey.So(errors.Is(err, analysis.ErrDecode), convey.ShouldBeTrue)
	})

	convey.Convey("Given a slow endpoint and a configured timeout", t, func() {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(release)

		_, err := analysis.NewClient(srv.URL, analysis.WithTimeout(50*time.Millisecond)).Analyze(context.Background(), map[string]float64{})
		convey.So(errors.Is(err, context.DeadlineExceeded), convey.ShouldBeTrue)
	})
}
