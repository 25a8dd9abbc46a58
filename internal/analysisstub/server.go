// Package analysisstub serves a local stand-in for the analysis service: the
// two telemetry sockets and the batch endpoint, with the same wire formats
// and per-connection bookkeeping. It lets a session run end to end without
// the hosted backend.
package analysisstub

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"golang.org/x/net/websocket"

	"github.com/okian/neurolens/internal/domain/model"
	"github.com/okian/neurolens/pkg/logger"
)

const maxBatchBody = 1 << 16

// Server handles /ws/analyze, /ws/audio and /api/analyze.
type Server struct {
	analyzer FrameAnalyzer
	logger   logger.Logger
}

// NewServer creates a stub server.
func NewServer(opts ...Option) *Server {
	s := &Server{
		analyzer: LuminanceAnalyzer{},
		logger:   logger.Get().Named("stub"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds the stub routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.Handle("/ws/analyze", websocket.Handler(s.serveVideo))
	mux.Handle("/ws/audio", websocket.Handler(s.serveAudio))
	mux.HandleFunc("POST /api/analyze", s.handleBatch)
}

// Handler returns a mux serving only the stub routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Register(mux)
	return mux
}

// videoMessage is the inbound frame or command envelope.
type videoMessage struct {
	Task    model.Task `json:"task"`
	Image   string     `json:"image"`
	Command string     `json:"command"`
}

var processedReply = map[string]string{"status": "processed"} //nolint:gochecknoglobals // constant reply

func (s *Server) serveVideo(conn *websocket.Conn) {
	defer func() { _ = conn.Close() }()
	ctx := conn.Request().Context()
	sess := newVideoSession()
	task := model.TaskEyeContact
	defer func() {
		s.logger.Info(context.WithoutCancel(ctx), "video connection closed",
			logger.String("task", string(task)),
			logger.Int("frames", sess.totalFrames),
			logger.Int("faceFrames", sess.faceFrames),
			logger.Int("sideSwitches", sess.sideSwitches),
			logger.Int("handsFrames", sess.handsFrames),
			logger.Float64("maxYawChange", sess.maxYawDelta),
			logger.Float64("movement", sess.movementSum),
		)
	}()

	for {
		var raw string
		if err := websocket.Message.Receive(conn, &raw); err != nil {
			if !errors.Is(err, io.EOF) {
				s.logger.Debug(ctx, "video receive failed", logger.Error(err))
			}
			return
		}
		msg := parseVideoMessage(raw)
		if msg.Task != "" {
			task = msg.Task
		}
		if msg.Command == model.CommandResetYaw {
			sess.resetYaw()
			continue
		}
		var reply any = processedReply
		if img, err := decodeFrame(msg.Image); err != nil {
			s.logger.Debug(ctx, "skipping frame", logger.Error(err))
		} else {
			reply = sess.observe(task, s.analyzer.Analyze(img))
		}
		if err := websocket.JSON.Send(conn, reply); err != nil {
			return
		}
	}
}

// parseVideoMessage accepts the JSON envelope or a bare image string.
func parseVideoMessage(raw string) videoMessage {
	var msg videoMessage
	if strings.HasPrefix(strings.TrimSpace(raw), "{") && json.Unmarshal([]byte(raw), &msg) == nil {
		if msg.Task == "" {
			msg.Task = model.TaskEyeContact
		}
		return msg
	}
	return videoMessage{Task: model.TaskEyeContact, Image: raw}
}

func (s *Server) serveAudio(conn *websocket.Conn) {
	defer func() { _ = conn.Close() }()
	ctx := conn.Request().Context()
	var sess audioSession
	defer func() {
		mean := 0.0
		if sess.total > 0 {
			mean = sess.sumRMS / float64(sess.total)
		}
		s.logger.Info(context.WithoutCancel(ctx), "audio connection closed",
			logger.Int("chunks", sess.total),
			logger.Int("speech", sess.speech),
			logger.Int("silence", sess.silence),
			logger.Float64("meanRMS", mean),
			logger.Float64("maxRMS", sess.maxRMS),
		)
	}()

	for {
		var raw string
		if err := websocket.Message.Receive(conn, &raw); err != nil {
			if !errors.Is(err, io.EOF) {
				s.logger.Debug(ctx, "audio receive failed", logger.Error(err))
			}
			return
		}
		rms, err := blockRMS(audioPayload(raw))
		if err != nil {
			s.logger.Debug(ctx, "skipping audio block", logger.Error(err))
			continue
		}
		if err := websocket.JSON.Send(conn, sess.observe(rms)); err != nil {
			return
		}
	}
}

// audioPayload unwraps {"task","audio"} envelopes; bare strings pass through.
func audioPayload(raw string) string {
	if !strings.HasPrefix(strings.TrimSpace(raw), "{") {
		return raw
	}
	var msg model.Outbound
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		return raw
	}
	return msg.Audio
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var raw map[string]float64
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBatchBody)).Decode(&raw); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid metrics payload"})
		return
	}
	report := AnalyzeBatch(raw)
	s.logger.Info(r.Context(), "batch analyzed",
		logger.Float64("totalFrames", raw[model.MetricTotalFrames]),
		logger.Bool("insufficient", report.Error != ""),
	)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(report)
}
