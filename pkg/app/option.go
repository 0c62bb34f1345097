package app

import (
	"io"
	"os"

	"github.com/code-payments/solana-account-creator/pkg/solana"
)

// Option configures the environment run by Run().
type Option func(o *opts)

type opts struct {
	client solana.Client
	out    io.Writer
	errOut io.Writer
	args   []string
}

func defaultOpts() *opts {
	return &opts{
		out:    os.Stdout,
		errOut: os.Stderr,
		args:   os.Args[1:],
	}
}

// WithClient uses the provided client instead of connecting to the
// configured RPC endpoint.
func WithClient(client solana.Client) Option {
	return func(o *opts) {
		o.client = client
	}
}

// WithOutput configures where user facing output is written.
func WithOutput(out io.Writer) Option {
	return func(o *opts) {
		o.out = out
	}
}

// WithErrorOutput configures where usage and fatal errors are written.
func WithErrorOutput(errOut io.Writer) Option {
	return func(o *opts) {
		o.errOut = errOut
	}
}

// WithArgs overrides the command line arguments, excluding the program name.
func WithArgs(args []string) Option {
	return func(o *opts) {
		o.args = args
	}
}
