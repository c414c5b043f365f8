package debugdraw

import (
	"log/slog"

	"github.com/gogpu/debugdraw/lines"
	"github.com/gogpu/debugdraw/text"
)

// FrameStats summarizes renderer activity.
type FrameStats struct {
	Frames   uint64 // Render calls, including failed ones
	Commands int    // commands in the most recent frame
	Queued   int    // commands waiting in the queue
	Dropped  int    // commands pushed after Close
	Lines    lines.Stats
	Text     text.Stats
}

// LogValue implements slog.LogValuer.
func (s FrameStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("frames", s.Frames),
		slog.Int("commands", s.Commands),
		slog.Int("queued", s.Queued),
		slog.Int("line_vertices", s.Lines.LastVertices),
		slog.Int("glyphs", s.Text.LastGlyphs),
		slog.Int("missing_glyphs", s.Text.MissingGlyphs),
		slog.Int("buffer_grows", s.Lines.BufferGrows+s.Text.BufferGrows),
		slog.Int("pipelines", s.Lines.PipelineBuilds+s.Text.PipelineBuilds),
		slog.Int("pipeline_hits", s.Lines.PipelineHits+s.Text.PipelineHits),
	)
}

// Stats returns activity counters for the renderer and its batches.
func (r *Renderer) Stats() FrameStats {
	q := r.Queue()
	return FrameStats{
		Frames:   r.frames,
		Commands: r.commands,
		Queued:   q.Len(),
		Dropped:  q.Dropped(),
		Lines:    r.lines.Stats(),
		Text:     r.text.Stats(),
	}
}
