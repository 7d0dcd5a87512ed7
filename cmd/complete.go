package cmd

import (
	"flag"

	"github.com/etnz/cryptovault"
	"github.com/etnz/cryptovault/docs"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

// argPredictors predict the positional arguments of the commands that take some.
var argPredictors = map[string]complete.Predictor{
	"coin":    predict.Something,
	"watch":   predict.Something,
	"unwatch": predict.Something,
	"remove":  predict.Something,
	"topic":   predict.Set(append(docs.List(), "readme", "*")),
}

// flagPredictors predict flag values by flag name.
var flagPredictors = map[string]complete.Predictor{
	"currency": predict.Set(cryptovault.Currencies),
	"config":   predict.Files("*.yaml"),
	"o":        predict.Files("*.html"),
}

// Completion describes the command line for shell completion: the global flags of fs and
// the registered commands with their flags.
func Completion(fs *flag.FlagSet) *complete.Command {
	root := &complete.Command{
		Sub:   make(map[string]*complete.Command),
		Flags: flagsOf(fs),
	}
	for _, x := range commands {
		sub := flag.NewFlagSet(x.cmd.Name(), flag.ContinueOnError)
		x.cmd.SetFlags(sub)
		root.Sub[x.cmd.Name()] = &complete.Command{
			Flags: flagsOf(sub),
			Args:  argPredictors[x.cmd.Name()],
		}
	}
	for _, name := range []string{"help", "flags", "commands"} {
		root.Sub[name] = &complete.Command{}
	}
	return root
}

func flagsOf(fs *flag.FlagSet) map[string]complete.Predictor {
	flags := make(map[string]complete.Predictor)
	fs.VisitAll(func(f *flag.Flag) {
		if b, ok := f.Value.(interface{ IsBoolFlag() bool }); ok && b.IsBoolFlag() {
			flags[f.Name] = predict.Nothing
			return
		}
		if p, ok := flagPredictors[f.Name]; ok {
			flags[f.Name] = p
			return
		}
		flags[f.Name] = predict.Something
	})
	return flags
}
