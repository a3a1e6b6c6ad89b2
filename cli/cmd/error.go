package cmd

import "github.com/ardnew/itom/program"

var (
	ErrArgument    = program.NewError("invalid argument")
	ErrYAMLMarshal = program.NewError("marshal YAML")
	ErrWriteConfig = program.NewError("write configuration file")
	ErrFileExists  = program.NewError("file exists (use --force to overwrite)")
	ErrWriteOutput = program.NewError("write output")
	ErrReadSource  = program.NewError("read program source")
)
