package gpu

import (
	"fmt"
	"log/slog"
)

// Stats counts live resources per category and the draws issued since the
// last frame reset.
type Stats struct {
	Buffers, BufferBytes int
	Programs             int
	Textures             int
	Renderbuffers        int
	Framebuffers         int

	DrawCalls int
	Vertices  int
}

func (s *Stats) draw(count int) {
	s.DrawCalls++
	s.Vertices += count
}

func (s *Stats) live() int {
	return s.Buffers + s.Programs + s.Textures + s.Renderbuffers + s.Framebuffers
}

func (s Stats) String() string {
	return fmt.Sprintf("%d buffers (%.2f MB), %d programs, %d textures, %d renderbuffers, %d framebuffers, %d draw calls",
		s.Buffers, float32(s.BufferBytes)/(1024*1024), s.Programs, s.Textures, s.Renderbuffers, s.Framebuffers, s.DrawCalls)
}

func (s Stats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("buffers", s.Buffers),
		slog.Int("buffer_memory", s.BufferBytes),
		slog.Int("programs", s.Programs),
		slog.Int("textures", s.Textures),
		slog.Int("renderbuffers", s.Renderbuffers),
		slog.Int("framebuffers", s.Framebuffers),
		slog.Int("draw_calls", s.DrawCalls),
		slog.Int("vertices", s.Vertices),
	)
}
