package main

import (
	"strings"
	"testing"

	"docterm/internal/conversation"
)

func TestMediaTypeForPath(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"report.pdf", "application/pdf"},
		{"notes.txt", "text/plain"},
		{"data.csv", "text/csv"},
		{"/tmp/Upper.PDF", "application/pdf"},
		{"no-extension", ""},
	}
	for _, tc := range cases {
		if got := mediaTypeForPath(tc.path); got != tc.want {
			t.Errorf("mediaTypeForPath(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}

func TestMediaTypeForPathAcceptedTypes(t *testing.T) {
	// Every extension the accept list covers must resolve to a type
	// the document set will take.
	for _, path := range []string{"a.pdf", "a.txt", "a.csv"} {
		mt := mediaTypeForPath(path)
		if !conversation.AcceptedDocumentTypes[mt] {
			t.Errorf("%s resolves to %q, which the accept list rejects", path, mt)
		}
	}
}

func TestSafeRenderMarkdownWithoutRenderer(t *testing.T) {
	m := chatModel{}
	got := m.safeRenderMarkdown("# plain")
	if got != "# plain" {
		t.Fatalf("expected passthrough without a renderer, got %q", got)
	}
}

func TestHelpTextListsEveryCommand(t *testing.T) {
	for _, cmd := range []string{"/new", "/chats", "/switch", "/delete", "/clear", "/docs", "/upload", "/undoc", "/rmdoc", "/rate", "/web", "/logout", "/quit"} {
		if !strings.Contains(helpText, cmd) {
			t.Errorf("help text missing %s", cmd)
		}
	}
}
