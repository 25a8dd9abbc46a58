package analysisstub

import (
	"math"

	"github.com/okian/neurolens/internal/domain/feedback"
	"github.com/okian/neurolens/internal/domain/model"
)

// headTurnThreshold is the yaw change, relative to the baseline, counted as a turn.
const headTurnThreshold = 0.05

// videoSession accumulates per-connection metrics for the video tasks.
type videoSession struct {
	totalFrames     int
	faceFrames      int
	socialFrames    int
	geometricFrames int
	sideSwitches    int
	lastSide        string

	initialYaw  *float64
	maxYawDelta float64

	handsFrames int

	lastBodyX   *float64
	movementSum float64
}

func newVideoSession() *videoSession {
	return &videoSession{lastSide: feedback.SideNone}
}

// resetYaw drops the head-turn baseline; the next face sets a new one.
func (s *videoSession) resetYaw() {
	s.initialYaw = nil
	s.maxYawDelta = 0
}

// observe folds one observation into the session and returns the reply for task.
func (s *videoSession) observe(task model.Task, obs Observation) any {
	s.totalFrames++
	switch task {
	case model.TaskNameResponse:
		reply := feedback.NameResponse{FaceDetected: obs.FaceDetected}
		if !obs.FaceDetected {
			return reply
		}
		if s.initialYaw == nil {
			yaw := obs.HeadYaw
			s.initialYaw = &yaw
		}
		delta := math.Abs(obs.HeadYaw - *s.initialYaw)
		s.maxYawDelta = max(s.maxYawDelta, delta)
		reply.YawChange = delta
		reply.HeadTurnDetected = delta > headTurnThreshold
		return reply

	case model.TaskGestures:
		if obs.HandsDetected {
			s.handsFrames++
		}
		return feedback.Gestures{HandsDetected: obs.HandsDetected}

	case model.TaskRepetitive:
		reply := feedback.Repetitive{PoseDetected: obs.PoseDetected}
		if obs.PoseDetected {
			if s.lastBodyX != nil {
				s.movementSum += math.Abs(obs.BodyX - *s.lastBodyX)
			}
			x := obs.BodyX
			s.lastBodyX = &x
		}
		reply.MovementScore = s.movementSum
		return reply

	default:
		reply := feedback.EyeContact{FaceDetected: obs.FaceDetected}
		if !obs.FaceDetected {
			return reply
		}
		s.faceFrames++
		side := feedback.SideGeometric
		if obs.FaceX < 0.5 {
			side = feedback.SideSocial
		}
		if side == feedback.SideSocial {
			s.socialFrames++
		} else {
			s.geometricFrames++
		}
		if s.lastSide != feedback.SideNone && side != s.lastSide {
			s.sideSwitches++
		}
		s.lastSide = side
		gaze := obs.GazeX
		reply.CurrentSide = side
		reply.GazeX = &gaze
		return reply
	}
}
