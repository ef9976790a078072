package rules

import (
	"embed"
	"errors"
	"io/fs"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// BuiltinFS exposes the embedded default rule pack.
func BuiltinFS() fs.FS {
	sub, err := fs.Sub(builtinFS, "builtin")
	if err != nil {
		panic(err)
	}
	return sub
}

// Builtin loads the embedded default rule pack. Any malformed rule is an
// error since the pack ships with the binary.
func Builtin() ([]*Rule, error) {
	loaded, errs := LoadFS(BuiltinFS(), "", "")
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return loaded, nil
}
