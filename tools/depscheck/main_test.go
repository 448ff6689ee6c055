package main

import (
	"strings"
	"testing"
)

func TestCheckFlagsForbiddenImports(t *testing.T) {
	input := `{"ImportPath":"warchief/server/internal/macro","Imports":["fmt","warchief/server/logging","warchief/server/internal/world"]}
{"ImportPath":"warchief/server/internal/net/ws","Imports":["warchief/server/internal/sim","warchief/server/internal/macro"]}
{"ImportPath":"warchief/server/internal/app","Imports":["warchief/server/internal/world","warchief/server/internal/net"]}`
	violations, err := check(strings.NewReader(input))
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(violations) != 1 || violations[0] != "warchief/server/internal/macro -> warchief/server/internal/world" {
		t.Fatalf("unexpected violations %v", violations)
	}
}

func TestUnderMatchesWholeSegments(t *testing.T) {
	if under("internal/network", "internal/net") {
		t.Fatalf("expected prefix match to respect path segments")
	}
	if !under("internal/net/ws", "internal/net") {
		t.Fatalf("expected nested package to match")
	}
	if !under("internal/sim", "internal/") {
		t.Fatalf("expected trailing slash to match any subpackage")
	}
}
