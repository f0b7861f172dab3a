// Package main provides the convkit CLI.
//
// Usage:
//
//	convkit [-v=N] plan -input 2,3,16,16 -in 3 -out 8 [-kernel 3] [-stride 1] [-dilation 1]
//	                    [-padding same] [-groups 1] [-mode zeros] [-bias=true] [-save params.safetensors]
//	convkit cpu
//	convkit version
//
// plan declares a deferred convolution, runs it once on a zero input of the
// given shape and reports what it specialized into. With -save it also
// writes the initialized parameters to a SafeTensors file.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/exceptions"
	"github.com/janpfeifer/must"
	"github.com/klauspost/cpuid/v2"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/born-ml/convkit/backend/cpu"
	"github.com/born-ml/convkit/nn"
	"github.com/born-ml/convkit/tensor"
)

const version = "v0.1.0-dev"

func main() {
	klog.InitFlags(nil)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] plan|cpu|version [command flags]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	err := exceptions.TryCatch[error](func() {
		must.M(run(flag.Args(), os.Stdout))
	})
	if err != nil {
		klog.Errorf("Error:\n%+v", err)
		klog.Flush()
		os.Exit(1)
	}
	klog.Flush()
}

// run dispatches one subcommand.
func run(args []string, w io.Writer) error {
	if len(args) == 0 {
		flag.Usage()
		return errors.New("missing command")
	}
	switch args[0] {
	case "plan":
		return runPlan(args[1:], w)
	case "cpu":
		runCPU(w)
		return nil
	case "version":
		fmt.Fprintf(w, "convkit %s\n", version)
		return nil
	default:
		return errors.Errorf("unknown command %q (want plan, cpu or version)", args[0])
	}
}

func runPlan(args []string, w io.Writer) error {
	fs := flag.NewFlagSet("plan", flag.ContinueOnError)
	fs.SetOutput(w)
	var (
		flagInput    = fs.String("input", "", "Input shape, e.g. 2,3,16,16 ([N, C, spatial...]).")
		flagIn       = fs.Int("in", 0, "Input channels; defaults to the channel axis of -input.")
		flagOut      = fs.Int("out", 1, "Output channels.")
		flagKernel   = fs.String("kernel", "3", "Kernel size, one value or one per spatial axis.")
		flagStride   = fs.String("stride", "1", "Stride, one value or one per spatial axis.")
		flagDilation = fs.String("dilation", "1", "Dilation, one value or one per spatial axis.")
		flagPadding  = fs.String("padding", "same", `"same" or explicit padding per spatial axis.`)
		flagGroups   = fs.Int("groups", 1, "Number of channel groups.")
		flagMode     = fs.String("mode", "zeros", "Padding mode: zeros, circular, reflect or replicate.")
		flagBias     = fs.Bool("bias", true, "Add a bias term.")
		flagSave     = fs.String("save", "", "If set, write the initialized parameters to this SafeTensors file.")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	shape, err := parseList(*flagInput)
	if err != nil {
		return errors.WithMessage(err, "-input")
	}
	inChannels := *flagIn
	if inChannels == 0 && len(shape) > 1 {
		inChannels = shape[1]
	}
	kernel, err := parseList(*flagKernel)
	if err != nil {
		return errors.WithMessage(err, "-kernel")
	}
	stride, err := parseList(*flagStride)
	if err != nil {
		return errors.WithMessage(err, "-stride")
	}
	dilation, err := parseList(*flagDilation)
	if err != nil {
		return errors.WithMessage(err, "-dilation")
	}
	padding, err := nn.ParsePadding(*flagPadding)
	if err != nil {
		return err
	}
	mode, err := tensor.ParsePaddingMode(*flagMode)
	if err != nil {
		return errors.WithStack(err)
	}

	cfg := nn.DefaultConvConfig(inChannels, *flagOut,
		nn.WithKernelSizePerAxis(kernel...),
		nn.WithStride(stride...),
		nn.WithDilation(dilation...),
		nn.WithPadding(padding),
		nn.WithGroups(*flagGroups),
		nn.WithBias(*flagBias),
		nn.WithPaddingMode(mode),
	)
	if err := cfg.Validate(); err != nil {
		return err
	}

	backend := cpu.New()
	conv := nn.NewConv(cfg, backend)
	output, err := nn.TryForward[*cpu.Backend](conv, tensor.Zeros[float32](shape, backend))
	if err != nil {
		return err
	}

	rank, _ := conv.Rank()
	delegate := conv.Delegate().(*nn.Convolution[*cpu.Backend])
	fmt.Fprintf(w, "layer:      %s\n", delegate)
	fmt.Fprintf(w, "rank:       %s\n", rank)
	fmt.Fprintf(w, "padding:    %v (declared %s)\n", delegate.Padding(), cfg.Padding)
	fmt.Fprintf(w, "input:      %v\n", shape)
	fmt.Fprintf(w, "output:     %v\n", output.Shape())
	fmt.Fprintf(w, "parameters: %s\n", humanize.Comma(int64(nn.CountParameters[*cpu.Backend](conv))))

	if *flagSave != "" {
		metadata := map[string]string{"layer": delegate.String(), "input": fmt.Sprint(shape)}
		if err := nn.SaveParameters[*cpu.Backend](*flagSave, conv, metadata); err != nil {
			return err
		}
		fmt.Fprintf(w, "saved:      %s\n", *flagSave)
	}
	return nil
}

func runCPU(w io.Writer) {
	cfg := cpu.DefaultConfig()
	fmt.Fprintf(w, "cpu:       %s\n", cpuid.CPU.BrandName)
	fmt.Fprintf(w, "cores:     %d physical, %d logical\n", cpuid.CPU.PhysicalCores, cpuid.CPU.LogicalCores)
	fmt.Fprintf(w, "features:  %s\n", strings.Join(cpuid.CPU.FeatureSet(), " "))
	fmt.Fprintf(w, "parallel:  %s\n", cfg)
}

// parseList parses a comma-separated list of integers such as "2,3,16,16".
func parseList(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("empty list")
	}
	parts := strings.Split(s, ",")
	values := make([]int, len(parts))
	for i, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, errors.Wrapf(err, "invalid value %q in %q", part, s)
		}
		values[i] = v
	}
	return values, nil
}
