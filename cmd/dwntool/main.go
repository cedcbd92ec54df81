// dwntool exports 3D scenes as Dawn scene files (.dwn) and inspects them.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
)

var errUsage = errors.New("usage")

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(1)
	}

	err := run(os.Args[1], os.Args[2:], os.Stdout)
	if errors.Is(err, errUsage) {
		fmt.Fprintf(os.Stderr, "Usage: %v\n", err)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(command string, args []string, stdout io.Writer) error {
	switch command {
	case "export", "x":
		return cmdExport(args, stdout)
	case "watch", "w":
		return cmdWatch(args, stdout)
	case "info":
		return cmdInfo(args, stdout)
	case "dump":
		return cmdDump(args, stdout)
	case "models", "ls":
		return cmdModels(args, stdout)
	case "config":
		return cmdConfig(args, stdout)
	case "help", "-h", "--help":
		printUsage(stdout)
		return nil
	default:
		printUsage(os.Stderr)
		return fmt.Errorf("unknown command: %s", command)
	}
}

func usageError(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{errUsage}, args...)...)
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `dwntool - Dawn scene (.dwn) exporter

Usage:
  dwntool <command> [options]

Commands:
  export [flags] <input>...          Export .rsm/.rsw/.yaml/.toml inputs to .dwn
  watch [flags] <input>              Re-export an input whenever it changes
  info <file>                        Show a .dwn header and hierarchy, or .rsm/.rsw/.gnd stats
  dump <file.dwn>                    Print every table of a scene file
  models [-grf archive]... [pattern] List RSM models in GRF archives
  config init [path | -user]         Write a default config file
  config dir                         Print the user config directory

Export flags:
  -config path   config file (default ./dwntool.yaml, then the user config dir)
  -o dir         output directory
  -selected      only export selected objects
  -colors        export vertex colours (default true)
  -allow-empty   write a file even when there are no mesh objects
  -atomic        write through a temporary file (default true)
  -smooth        smooth normals for RSM models
  -grf archive   GRF archive to search for data\... paths (repeatable)
  -debug         debug logging

Examples:
  dwntool export models/house.rsm
  dwntool export -grf data.grf data\prontera.rsw
  dwntool export -grf data.grf -o out data\model\prontera\fountain.rsm
  dwntool watch -selected scene.yaml
  dwntool info scene.dwn`)
}
