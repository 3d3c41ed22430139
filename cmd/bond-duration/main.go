package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"benritz/bonds/internal/config"
	"benritz/bonds/internal/input"
	"benritz/bonds/internal/logging"
	"benritz/bonds/internal/report"
	"benritz/bonds/internal/types"
)

// short flag name -> canonical name
var aliases = map[string]string{
	"p": input.FlagPrice,
	"f": input.FlagFace,
	"c": input.FlagCoupon,
	"m": input.FlagMaturity,
	"q": input.FlagFrequency,
	"a": input.FlagAmount,
}

func usage() {
	name := filepath.Base(os.Args[0])
	fmt.Fprintf(os.Stderr, `Usage: %s [flags]

Computes yield to maturity, duration, convexity and after-tax totals of a
fixed coupon bond. Without flags the values are asked for interactively.

Flags:
  -p, --price <value>      purchase price per 100 of face value (e.g. 96.24 or 96,24)
  -f, --face <value>       face value (default 100)
  -c, --coupon <rate>      annual coupon rate as a decimal (e.g. 0.0315)
  -m, --maturity <years>   years to maturity (1-100)
  -q, --frequency <n>      coupon payments per year (1-12)
  -a, --amount <value>     nominal amount purchased (default 100)
  -i, --interactive        ask for every value
  -config <path>           YAML config file
  -h, --help               show this help

Example:
  %s -p 96.24 -c 0.0315 -m 19 -q 1 -a 10000
`, name, name)
}

func main() {
	flags := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	flags.Usage = usage

	for short, long := range aliases {
		v := new(string)
		flags.StringVar(v, short, "", "")
		flags.StringVar(v, long, "", "")
	}
	interactive := flags.Bool("interactive", false, "")
	flags.BoolVar(interactive, "i", false, "")
	configPath := flags.String("config", "", "")

	flags.Parse(os.Args[1:])

	if flags.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "Error: unexpected argument %q\n", flags.Arg(0))
		usage()
		os.Exit(1)
	}

	values := map[string]string{}
	flags.Visit(func(f *flag.Flag) {
		name := f.Name
		if long, ok := aliases[name]; ok {
			name = long
		}
		switch name {
		case "interactive", "i", "config":
			return
		}
		values[name] = f.Value.String()
	})

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.Log)

	s, err := input.Resolve(values, *interactive, input.NewPrompter(os.Stdin, os.Stdout))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, input.ErrMissingRequired) {
			usage()
		}
		os.Exit(1)
	}

	p := cfg.Params()

	r, err := types.Analyze(s, p)
	if err != nil {
		log.WithFields(logging.SpecFields(s)).WithError(err).Error("analysis failed")
		os.Exit(1)
	}

	logging.WarnIfUnconverged(log, s, r)

	report.Write(os.Stdout, s, r, p.TaxRate)
}
