package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/Faultbox/dawn-toolbox/internal/config"
)

func cmdConfig(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return usageError("dwntool config <init [path] | init -user | dir>")
	}

	switch args[0] {
	case "dir":
		fmt.Fprintln(stdout, config.ConfigDir())
		return nil
	case "init":
	default:
		return usageError("dwntool config <init [path] | init -user | dir>")
	}

	cfg := config.Default()
	var (
		path string
		err  error
	)
	switch {
	case len(args) == 1:
		path = config.FileName
		err = cfg.SaveTo(path)
	case len(args) == 2 && args[1] == "-user":
		path, err = cfg.Save()
	case len(args) == 2:
		path = args[1]
		if filepath.Ext(path) == "" {
			path = filepath.Join(path, config.FileName)
		}
		err = cfg.SaveTo(path)
	default:
		return usageError("dwntool config init [path]")
	}
	if err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	fmt.Fprintf(stdout, "Wrote %s\n", path)
	return nil
}
