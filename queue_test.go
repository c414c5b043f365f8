package debugdraw

import (
	"image"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/sync/errgroup"

	"github.com/gogpu/debugdraw/internal/devicetest"
	"github.com/gogpu/debugdraw/lines"
)

func TestQueueLazyAndIdempotent(t *testing.T) {
	r := newTestRenderer(t, devicetest.New())
	if r.queue != nil {
		t.Fatal("queue created before first use")
	}
	q := r.Queue()
	if q == nil || r.Queue() != q {
		t.Error("Queue is not idempotent")
	}
}

func TestQueueFIFO(t *testing.T) {
	var q CommandQueue
	q.Line(mgl32.Vec3{}, mgl32.Vec3{1, 0, 0}, white)
	q.Marker(mgl32.Vec3{1, 1, 1}, 2, white)
	q.ScreenText("a", image.Pt(1, 2), white)
	q.WorldText("b", mgl32.Vec3{3, 3, 3}, white)

	got := q.drain(nil)
	want := []CommandKind{CommandLine, CommandMarker, CommandScreenText, CommandWorldText}
	if len(got) != len(want) {
		t.Fatalf("drained %d commands, want %d", len(got), len(want))
	}
	for i, k := range want {
		if got[i].Kind != k {
			t.Errorf("command %d = %v, want %v", i, got[i].Kind, k)
		}
	}
	if q.Len() != 0 {
		t.Errorf("Len = %d after drain", q.Len())
	}
}

func TestQueueConcurrentProducers(t *testing.T) {
	dev := devicetest.New()
	r := newTestRenderer(t, dev)
	const perProducer = 500

	var g errgroup.Group
	for p := range 2 {
		g.Go(func() error {
			for i := range perProducer {
				id := float32(p*perProducer + i)
				r.Queue().Line(mgl32.Vec3{id, 0, 0}, mgl32.Vec3{id, 1, 0}, white)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	if err := r.Render(mgl32.Ident4()); err != nil {
		t.Fatal(err)
	}

	draw, _ := dev.LastDraw(lines.DrawLabel)
	if draw.VertexCount != 2*2*perProducer {
		t.Fatalf("vertex count = %d, want %d", draw.VertexCount, 2*2*perProducer)
	}
	seen := make(map[float32]int)
	pos := linePositions(draw)
	for i := 0; i < len(pos); i += 2 {
		seen[pos[i][0]]++
	}
	for id := range 2 * perProducer {
		if seen[float32(id)] != 1 {
			t.Errorf("line %d drawn %d times", id, seen[float32(id)])
		}
	}
}

func TestQueueOrderWithinProducer(t *testing.T) {
	dev := devicetest.New()
	r := newTestRenderer(t, dev)

	for i := range 10 {
		r.Queue().Line(mgl32.Vec3{float32(i), 0, 0}, mgl32.Vec3{}, white)
	}
	if err := r.Render(mgl32.Ident4()); err != nil {
		t.Fatal(err)
	}
	draw, _ := dev.LastDraw(lines.DrawLabel)
	pos := linePositions(draw)
	for i := range 10 {
		if pos[2*i][0] != float32(i) {
			t.Errorf("line %d at position %d", int(pos[2*i][0]), i)
		}
	}
}

func TestDefaultHelpers(t *testing.T) {
	t.Cleanup(func() { SetDefault(nil) })

	SetDefault(nil)
	if Line(mgl32.Vec3{}, mgl32.Vec3{1, 0, 0}, white) {
		t.Error("Line without a default renderer reported success")
	}

	dev := devicetest.New()
	r := newTestRenderer(t, dev)
	SetDefault(r)
	ok := Line(mgl32.Vec3{}, mgl32.Vec3{1, 0, 0}, white) &&
		Marker(mgl32.Vec3{}, 1, white) &&
		ScreenText("s", image.Pt(0, 0), white) &&
		WorldText("w", mgl32.Vec3{}, white)
	if !ok {
		t.Fatal("helper push failed")
	}
	if r.Queue().Len() != 4 {
		t.Errorf("queued %d, want 4", r.Queue().Len())
	}
	if err := r.Render(mgl32.Ident4()); err != nil {
		t.Fatal(err)
	}
	if d, _ := dev.LastDraw(lines.DrawLabel); d.VertexCount != 8 {
		t.Errorf("line vertices = %d, want 8", d.VertexCount)
	}
}
