package kernels

// axpyChunk computes y = alpha*x + y over one chunk.
type axpyChunk struct {
	x, y []float64
}

func (k axpyChunk) Call(a Args) {
	for i := range k.y {
		k.y[i] += a.Alpha * k.x[i]
	}
}

func (k axpyChunk) CallDevice(a Args) { k.Call(a) }

func (k axpyChunk) Cost() int { return len(k.y) }

// sumChunk writes the sum of one chunk to out.
type sumChunk struct {
	x   []float64
	out *float64
}

func (k sumChunk) Call(Args) {
	var s float64
	for _, v := range k.x {
		s += v
	}
	*k.out = s
}

func (k sumChunk) CallDevice(a Args) { k.Call(a) }

func (k sumChunk) Cost() int { return len(k.x) }
