package main

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/hupe1980/cmxrt"
	"github.com/hupe1980/cmxrt/scheduler"
)

// maxLayers keeps the step count of one pass within the scheduler's slots:
// an input step, two steps per layer and two heads.
const maxLayers = (scheduler.MaxTasks - 3) / 2

// dense is a fully connected layer. Weights stay on the Go heap; only
// activations are drawn from the pools.
type dense struct {
	in, out int
	weights []float32 // out x in, row-major
	bias    []float32
}

func (d *dense) forward(dst, src []float32) {
	for o := 0; o < d.out; o++ {
		row := d.weights[o*d.in : (o+1)*d.in]
		sum := d.bias[o]
		for i, v := range src {
			sum += row[i] * v
		}
		dst[o] = sum
	}
}

// network is a stack of equally wide dense layers with ReLU activations.
type network struct {
	width  int
	input  []float32
	layers []dense
}

func newNetwork(depth, width int, seed uint64) (*network, error) {
	if depth < 1 || depth > maxLayers {
		return nil, fmt.Errorf("layers must be in [1, %d], got %d", maxLayers, depth)
	}
	if width < 1 {
		return nil, fmt.Errorf("width must be positive, got %d", width)
	}

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	scale := float32(1 / math.Sqrt(float64(width)))

	n := &network{
		width:  width,
		input:  make([]float32, width),
		layers: make([]dense, depth),
	}
	for i := range n.input {
		n.input[i] = rng.Float32()
	}
	for l := range n.layers {
		d := dense{
			in:      width,
			out:     width,
			weights: make([]float32, width*width),
			bias:    make([]float32, width),
		}
		for i := range d.weights {
			d.weights[i] = (rng.Float32()*2 - 1) * scale
		}
		for i := range d.bias {
			d.bias[i] = (rng.Float32()*2 - 1) * 0.1
		}
		n.layers[l] = d
	}
	return n, nil
}

// passState carries activations between the steps of one pass.
type passState struct {
	acts     [][]float32
	class    int
	checksum float32
}

// steps decomposes one forward pass: input, dense/relu per layer, then an
// argmax head and a checksum head that both read the last activation.
func (n *network) steps(st *passState) []cmxrt.Step {
	depth := len(n.layers)
	st.acts = make([][]float32, depth+1)

	steps := make([]cmxrt.Step, 0, 3+2*depth)
	steps = append(steps, cmxrt.Step{
		Name:     "input",
		Priority: scheduler.PriorityHigh,
		Fn: func(c *cmxrt.Context) error {
			x, err := c.Float32s(n.width)
			if err != nil {
				return err
			}
			copy(x, n.input)
			st.acts[0] = x
			return nil
		},
	})

	for l := range n.layers {
		layer := &n.layers[l]
		prev := len(steps) - 1

		var pre []float32
		steps = append(steps, cmxrt.Step{
			Name:     fmt.Sprintf("dense%d", l),
			Deps:     []int{prev},
			Priority: scheduler.PriorityNormal,
			Fn: func(c *cmxrt.Context) error {
				acc, err := c.Scratch(layer.out)
				if err != nil {
					return err
				}
				layer.forward(acc, st.acts[l])

				out, err := c.Float32s(layer.out)
				if err != nil {
					return err
				}
				copy(out, acc)
				pre = out
				return nil
			},
		})

		steps = append(steps, cmxrt.Step{
			Name:     fmt.Sprintf("relu%d", l),
			Deps:     []int{len(steps) - 1},
			Priority: scheduler.PriorityNormal,
			Fn: func(c *cmxrt.Context) error {
				y, err := c.Float32s(len(pre))
				if err != nil {
					return err
				}
				for i, v := range pre {
					y[i] = max(v, 0)
				}
				st.acts[l+1] = y
				return nil
			},
		})
	}

	last := len(steps) - 1
	steps = append(steps,
		cmxrt.Step{
			Name:     "argmax",
			Deps:     []int{last},
			Priority: scheduler.PriorityCritical,
			Fn: func(*cmxrt.Context) error {
				st.class = argmax(st.acts[depth])
				return nil
			},
		},
		cmxrt.Step{
			Name:     "checksum",
			Deps:     []int{last},
			Priority: scheduler.PriorityLow,
			Fn: func(*cmxrt.Context) error {
				var sum float32
				for _, v := range st.acts[depth] {
					sum += v
				}
				st.checksum = sum
				return nil
			},
		},
	)

	return steps
}

func argmax(x []float32) int {
	best := 0
	for i, v := range x {
		if v > x[best] {
			best = i
		}
	}
	return best
}
