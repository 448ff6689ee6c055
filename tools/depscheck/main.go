// Command depscheck enforces the package layering of the server module.
//
//	go run ./tools/depscheck
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
)

const modulePath = "warchief/server"

type packageInfo struct {
	ImportPath string
	Imports    []string
}

// rule forbids packages under from importing packages under any of deny.
type rule struct {
	from string
	deny []string
}

var rules = []rule{
	// The macro core reads combat state only through snapshots and casts.
	{from: "internal/macro", deny: []string{"internal/world", "internal/abilities", "internal/sim", "internal/storage", "internal/net", "internal/app"}},
	// Sessions stage commands; the loop goroutine owns the engine and world.
	{from: "internal/net", deny: []string{"internal/world", "internal/abilities", "internal/app"}},
	{from: "internal/storage", deny: []string{"internal/sim", "internal/net", "internal/world", "internal/app"}},
	{from: "internal/sim", deny: []string{"internal/net", "internal/storage", "internal/app"}},
	{from: "logging", deny: []string{"internal/"}},
}

func main() {
	cmd := exec.Command("go", "list", "-json", "./...")
	cmd.Env = os.Environ()
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			os.Stderr.Write(exitErr.Stderr)
		}
		fmt.Fprintf(os.Stderr, "depscheck: failed to list packages: %v\n", err)
		os.Exit(1)
	}

	violations, err := check(bytes.NewReader(output))
	if err != nil {
		fmt.Fprintf(os.Stderr, "depscheck: failed to decode package info: %v\n", err)
		os.Exit(1)
	}
	if len(violations) > 0 {
		fmt.Fprintln(os.Stderr, "depscheck: found forbidden imports:")
		for _, violation := range violations {
			fmt.Fprintf(os.Stderr, "  %s\n", violation)
		}
		os.Exit(1)
	}
}

func check(r io.Reader) ([]string, error) {
	decoder := json.NewDecoder(r)
	var violations []string
	for {
		var pkg packageInfo
		if err := decoder.Decode(&pkg); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		for _, imp := range pkg.Imports {
			if forbidden(pkg.ImportPath, imp) {
				violations = append(violations, fmt.Sprintf("%s -> %s", pkg.ImportPath, imp))
			}
		}
	}
	sort.Strings(violations)
	return violations, nil
}

func forbidden(from, imp string) bool {
	src, ok := relative(from)
	if !ok {
		return false
	}
	dst, ok := relative(imp)
	if !ok {
		return false
	}
	for _, r := range rules {
		if !under(src, r.from) {
			continue
		}
		for _, deny := range r.deny {
			if under(dst, deny) {
				return true
			}
		}
	}
	return false
}

func relative(importPath string) (string, bool) {
	if !strings.HasPrefix(importPath, modulePath+"/") {
		return "", false
	}
	return strings.TrimPrefix(importPath, modulePath+"/"), true
}

func under(path, prefix string) bool {
	if strings.HasSuffix(prefix, "/") {
		return strings.HasPrefix(path, prefix)
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
