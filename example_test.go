package cmxrt_test

import (
	"context"
	"fmt"
	"log"

	"github.com/hupe1980/cmxrt"
	"github.com/hupe1980/cmxrt/config"
	"github.com/hupe1980/cmxrt/scheduler"
)

// Example demonstrates running a small graph.
func Example() {
	rt, err := cmxrt.New(cmxrt.WithConfig(config.Default()))
	if err != nil {
		log.Fatal(err)
	}
	defer rt.Close()

	var x, y []float32
	steps := []cmxrt.Step{
		{Name: "input", Fn: func(c *cmxrt.Context) error {
			x, err = c.Float32s(4)
			if err != nil {
				return err
			}
			copy(x, []float32{-2, -1, 1, 2})
			return nil
		}},
		{Name: "relu", Deps: []int{0}, Fn: func(c *cmxrt.Context) error {
			y, err = c.Float32s(len(x))
			if err != nil {
				return err
			}
			for i, v := range x {
				y[i] = max(v, 0)
			}
			return nil
		}},
		{Name: "print", Deps: []int{1}, Priority: scheduler.PriorityHigh, Fn: func(*cmxrt.Context) error {
			fmt.Println(y)
			return nil
		}},
	}

	res, err := rt.Run(context.Background(), steps)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("completed:", res.Completed)
	// Output:
	// [0 0 1 2]
	// completed: 3
}
