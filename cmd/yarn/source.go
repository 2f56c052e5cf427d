package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dhamidi/yarn/parser"
)

// readSource reads a script from a file, or from stdin when name is "-".
func readSource(name string) ([]byte, error) {
	if name == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return data, nil
}

func newParser() *parser.Parser {
	return parser.New(cfg.ParserOptions()...)
}

func parseFile(ctx context.Context, name string) ([]byte, *parser.Tree, error) {
	src, err := readSource(name)
	if err != nil {
		return nil, nil, err
	}
	tree, err := newParser().Parse(ctx, parser.Bytes(src))
	if err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", name, err)
	}
	return src, tree, nil
}
