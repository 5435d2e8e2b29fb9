package render

import (
	"fmt"
	"log/slog"
	"time"
)

// Stats describes what one or more frames did.
type Stats struct {
	Frames    int
	Drawn     int // geometries drawn
	Skipped   int // geometries skipped as stalled or incomplete
	DrawCalls int
	Vertices  int
	Actions   int // GL actions applied while settling
	FrameTime time.Duration
}

func (s Stats) String() string {
	return fmt.Sprintf("%d geometries drawn, %d skipped, %d draw calls, %d vertices, %d actions in %s",
		s.Drawn, s.Skipped, s.DrawCalls, s.Vertices, s.Actions, s.FrameTime)
}

// Merge accumulates the stats of another frame into s.
func (s *Stats) Merge(o Stats) {
	s.Frames += o.Frames
	s.Drawn += o.Drawn
	s.Skipped += o.Skipped
	s.DrawCalls += o.DrawCalls
	s.Vertices += o.Vertices
	s.Actions += o.Actions
	s.FrameTime += o.FrameTime
}

func (s Stats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("frames", s.Frames),
		slog.Int("drawn", s.Drawn),
		slog.Int("skipped", s.Skipped),
		slog.Int("draw_calls", s.DrawCalls),
		slog.Int("vertices", s.Vertices),
		slog.Int("actions", s.Actions),
		slog.Duration("frame_time", s.FrameTime),
	)
}
