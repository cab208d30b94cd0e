package main

import "testing"

func TestParseArgsGlobalFlags(t *testing.T) {
	p, err := parseArgs([]string{"-L", "mysock", "-t", "work:1.0", "kill-pane"})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if p.Socket != "mysock" {
		t.Fatalf("Socket = %q, want %q", p.Socket, "mysock")
	}
	if p.Target != "work:1.0" {
		t.Fatalf("Target = %q, want %q", p.Target, "work:1.0")
	}
	if p.Command != "kill-pane" {
		t.Fatalf("Command = %q, want %q", p.Command, "kill-pane")
	}
	if len(p.Args) != 0 {
		t.Fatalf("Args = %v, want empty", p.Args)
	}
}

func TestParseArgsDefaultSocket(t *testing.T) {
	p, err := parseArgs([]string{"list-sessions"})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if p.Socket != "default" {
		t.Fatalf("Socket = %q, want %q", p.Socket, "default")
	}
}

func TestParseArgsEmbeddedTargetExtractedAndRemoved(t *testing.T) {
	p, err := parseArgs([]string{"kill-session", "-t", "work"})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if p.Target != "work" {
		t.Fatalf("Target = %q, want %q", p.Target, "work")
	}
	for _, a := range p.Args {
		if a == "-t" || a == "work" {
			t.Fatalf("Args still contains the extracted -t pair: %v", p.Args)
		}
	}
}

func TestParseArgsGlueFlagForms(t *testing.T) {
	p, err := parseArgs([]string{"-Lmysock", "-tfoo", "has-session"})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if p.Socket != "mysock" {
		t.Fatalf("Socket = %q, want %q", p.Socket, "mysock")
	}
	if p.Target != "foo" {
		t.Fatalf("Target = %q, want %q", p.Target, "foo")
	}
}

func TestParseArgsMissingValue(t *testing.T) {
	if _, err := parseArgs([]string{"-L"}); err == nil {
		t.Fatal("expected error for -L with no value")
	}
	if _, err := parseArgs([]string{"-t"}); err == nil {
		t.Fatal("expected error for -t with no value")
	}
}

func TestExtractTargetLeavesOtherArgsInOrder(t *testing.T) {
	target, rest := extractTarget([]string{"-v", "-t", "work", "extra"})
	if target != "work" {
		t.Fatalf("target = %q, want %q", target, "work")
	}
	want := []string{"-v", "extra"}
	if len(rest) != len(want) {
		t.Fatalf("rest = %v, want %v", rest, want)
	}
	for i := range want {
		if rest[i] != want[i] {
			t.Fatalf("rest = %v, want %v", rest, want)
		}
	}
}

func TestExtractTargetNoneFound(t *testing.T) {
	target, rest := extractTarget([]string{"arg1", "arg2"})
	if target != "" {
		t.Fatalf("target = %q, want empty", target)
	}
	if len(rest) != 2 {
		t.Fatalf("rest = %v, want unchanged 2-element slice", rest)
	}
}

func TestSessionName(t *testing.T) {
	tests := []struct{ target, want string }{
		{"work:1.0", "work"},
		{"work", "work"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := sessionName(tt.target); got != tt.want {
			t.Errorf("sessionName(%q) = %q, want %q", tt.target, got, tt.want)
		}
	}
}

func TestQuoteArg(t *testing.T) {
	tests := []struct{ in, want string }{
		{"plain", "plain"},
		{"has space", `"has space"`},
		{`quo"te`, `"quo\"te"`},
		{"", `""`},
	}
	for _, tt := range tests {
		if got := quoteArg(tt.in); got != tt.want {
			t.Errorf("quoteArg(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
