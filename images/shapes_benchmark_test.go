package images

import (
	"image"
	"math/rand/v2"
	"testing"
)

func BenchmarkIoU(b *testing.B) {
	cases := []struct {
		name string
		r, o Rect
	}{
		{"NoOverlap", Rect{0, 0, 100, 100}, Rect{200, 200, 300, 300}},
		{"TouchingEdge", Rect{0, 0, 100, 100}, Rect{100, 0, 200, 100}},
		{"HalfOverlap", Rect{0, 0, 100, 100}, Rect{50, 50, 150, 150}},
		{"FullOverlap", Rect{50, 50, 150, 150}, Rect{50, 50, 150, 150}},
		{"LargeBoxes", Rect{0, 0, 1920, 1080}, Rect{960, 540, 1920, 1080}},
	}
	for _, c := range cases {
		b.Run(c.name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = CalculateIoU(c.r, c.o)
			}
		})
	}
}

func BenchmarkIoURandomPairs(b *testing.B) {
	rng := rand.New(rand.NewPCG(1, 2))
	rects := make([]Rect, 1000)
	ints := make([]image.Rectangle, len(rects))
	for i := range rects {
		x, y := rng.IntN(1920), rng.IntN(1080)
		w, h := rng.IntN(300)+20, rng.IntN(300)+20
		rects[i] = Rect{float32(x), float32(y), float32(x + w), float32(y + h)}
		ints[i] = image.Rect(x, y, x+w, y+h)
	}

	b.Run("Rect", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			_ = CalculateIoU(rects[i%len(rects)], rects[(i+1)%len(rects)])
		}
	})
	b.Run("image.Rectangle", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			_ = imageRectangleIoU(ints[i%len(ints)], ints[(i+1)%len(ints)])
		}
	})
}

// BenchmarkIoUAllPairs is the comparison count of a suppression pass over 100 boxes.
func BenchmarkIoUAllPairs(b *testing.B) {
	rng := rand.New(rand.NewPCG(3, 4))
	centers := [][2]float32{{500, 300}, {1200, 600}, {300, 800}}
	boxes := make([]Rect, 100)
	for i := range boxes {
		c := centers[i%len(centers)]
		cx := c[0] + float32(rng.IntN(400)-200)
		cy := c[1] + float32(rng.IntN(400)-200)
		boxes[i] = RectFromCenter(cx, cy, float32(rng.IntN(200)+50), float32(rng.IntN(200)+50))
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var total float32
		for j := range boxes {
			for k := j + 1; k < len(boxes); k++ {
				total += CalculateIoU(boxes[j], boxes[k])
			}
		}
		_ = total
	}
}
