package config

import (
	"flag"
	"strings"
)

// Flags are the command-line overrides shared by the export commands.
type Flags struct {
	Config string

	debug         bool
	outputDir     string
	selectedOnly  bool
	colors        bool
	allowEmpty    bool
	atomic        bool
	smoothNormals bool
	grf           stringList

	fs *flag.FlagSet
}

// RegisterFlags defines the config override flags on fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{fs: fs}
	fs.StringVar(&f.Config, "config", "", "Path to config file")
	fs.BoolVar(&f.debug, "debug", false, "Enable debug logging")
	fs.StringVar(&f.outputDir, "o", "", "Output directory")
	fs.BoolVar(&f.selectedOnly, "selected", false, "Only export selected objects")
	fs.BoolVar(&f.colors, "colors", true, "Export vertex colours")
	fs.BoolVar(&f.allowEmpty, "allow-empty", false, "Write a file even when there are no mesh objects")
	fs.BoolVar(&f.atomic, "atomic", true, "Write through a temporary file")
	fs.BoolVar(&f.smoothNormals, "smooth", false, "Smooth normals for RSM models")
	fs.Var(&f.grf, "grf", "GRF archive to search (repeatable)")
	return f
}

// apply copies the flags that were set on the command line into cfg.
func (f *Flags) apply(cfg *Config) {
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "debug":
			if f.debug {
				cfg.Logging.Level = "debug"
			}
		case "o":
			cfg.Export.OutputDir = f.outputDir
		case "selected":
			cfg.Export.SelectedOnly = f.selectedOnly
		case "colors":
			cfg.Export.Colors = f.colors
		case "allow-empty":
			cfg.Export.AllowEmpty = f.allowEmpty
		case "atomic":
			cfg.Export.Atomic = f.atomic
		case "smooth":
			cfg.Source.SmoothNormals = f.smoothNormals
		case "grf":
			cfg.Source.GRFPaths = append([]string(nil), f.grf...)
		}
	})
}

type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}
