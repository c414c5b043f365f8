package debugdraw

import (
	"image"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/debugdraw/capture"
)

// CommandKind identifies the payload of a Command.
type CommandKind uint8

// Command kinds.
const (
	CommandLine CommandKind = iota + 1
	CommandMarker
	CommandScreenText
	CommandWorldText
)

func (k CommandKind) String() string {
	switch k {
	case CommandLine:
		return "line"
	case CommandMarker:
		return "marker"
	case CommandScreenText:
		return "screen_text"
	case CommandWorldText:
		return "world_text"
	default:
		return "unknown"
	}
}

// Command is one queued draw request.
//
// Lines use Start and End. Markers use Start as the center and Size.
// World text is anchored at Start, screen text at Pos.
type Command struct {
	Kind  CommandKind
	Start mgl32.Vec3
	End   mgl32.Vec3
	Size  float32
	Pos   image.Point
	Text  string
	Color mgl32.Vec4
}

func (c Command) record() capture.Command {
	return capture.Command{
		Kind:  capture.Kind(c.Kind),
		Start: c.Start,
		End:   c.End,
		Size:  c.Size,
		X:     int32(c.Pos.X),
		Y:     int32(c.Pos.Y),
		Text:  c.Text,
		Color: c.Color,
	}
}

func commandFromRecord(c capture.Command) Command {
	return Command{
		Kind:  CommandKind(c.Kind),
		Start: c.Start,
		End:   c.End,
		Size:  c.Size,
		Pos:   image.Pt(int(c.X), int(c.Y)),
		Text:  c.Text,
		Color: c.Color,
	}
}

// CommandQueue collects draw commands from any goroutine. The owning
// Renderer drains it, in push order, at the start of every Render.
type CommandQueue struct {
	mu      sync.Mutex
	cmds    []Command
	closed  bool
	dropped int
}

// Push appends c. It returns false, dropping c, once the owning renderer
// has been closed.
func (q *CommandQueue) Push(c Command) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.dropped++
		return false
	}
	q.cmds = append(q.cmds, c)
	return true
}

// Line queues a line segment.
func (q *CommandQueue) Line(start, end mgl32.Vec3, color mgl32.Vec4) bool {
	return q.Push(Command{Kind: CommandLine, Start: start, End: end, Color: color})
}

// Marker queues an axis cross centered at center.
func (q *CommandQueue) Marker(center mgl32.Vec3, size float32, color mgl32.Vec4) bool {
	return q.Push(Command{Kind: CommandMarker, Start: center, Size: size, Color: color})
}

// ScreenText queues a screen-anchored label.
func (q *CommandQueue) ScreenText(s string, pos image.Point, color mgl32.Vec4) bool {
	return q.Push(Command{Kind: CommandScreenText, Pos: pos, Text: s, Color: color})
}

// WorldText queues a label anchored at a world position.
func (q *CommandQueue) WorldText(s string, world mgl32.Vec3, color mgl32.Vec4) bool {
	return q.Push(Command{Kind: CommandWorldText, Start: world, Text: s, Color: color})
}

// Len returns the number of queued commands.
func (q *CommandQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.cmds)
}

// Dropped returns the number of commands pushed after close.
func (q *CommandQueue) Dropped() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// drain appends the queued commands to dst in push order and empties the
// queue.
func (q *CommandQueue) drain(dst []Command) []Command {
	q.mu.Lock()
	defer q.mu.Unlock()
	dst = append(dst, q.cmds...)
	clear(q.cmds)
	q.cmds = q.cmds[:0]
	return dst
}

func (q *CommandQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cmds = nil
}
