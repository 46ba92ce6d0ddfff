package renderer

import "runtime"

type Options struct {
	// Frame dims.
	FrameW uint32
	FrameH uint32

	// Number of workers tracing rows in parallel. Defaults to the number
	// of CPUs.
	Workers int

	// Gray level in [0, 1] for pixels whose rays miss the scene.
	Background float64
}

func (opts *Options) validate() error {
	if opts.FrameW == 0 || opts.FrameH == 0 {
		return ErrInvalidFrame
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	// Every worker needs at least one row.
	if opts.Workers > int(opts.FrameH) {
		opts.Workers = int(opts.FrameH)
	}
	return nil
}
