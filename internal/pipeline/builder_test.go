package pipeline

import (
	"errors"
	"testing"

	"github.com/helix-search/helix/internal/domain"
	"github.com/helix-search/helix/internal/domain/document"
)

func TestBuildDocument_AutoResolvesDescriptor(t *testing.T) {
	item := map[string]any{"id": "d1", "text": "hello"}

	d, resolved, err := BuildDocument(item, TypeAuto, false, document.Options{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if resolved != TypeDocument {
		t.Errorf("resolved: got %q, want %q", resolved, TypeDocument)
	}
	if d.ID() != "d1" || d.Text() != "hello" {
		t.Errorf("document: id=%q text=%q", d.ID(), d.Text())
	}
}

func TestBuildDocument_AutoFallsBackToContent(t *testing.T) {
	d, resolved, err := BuildDocument("not a descriptor", TypeAuto, true, document.Options{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if resolved != TypeContent {
		t.Errorf("resolved: got %q, want %q", resolved, TypeContent)
	}
	if d.Kind() != document.KindText || d.Text() != "not a descriptor" {
		t.Errorf("fallback content: kind=%q text=%q", d.Kind(), d.Text())
	}
	if d.ID() == "" {
		t.Error("fallback document has no id")
	}
}

func TestBuildDocument_PrebuiltPassesThroughUntouched(t *testing.T) {
	pre := document.New(document.Options{})
	if err := pre.SetText("x"); err != nil {
		t.Fatalf("set text: %v", err)
	}
	oldID := pre.ID()

	d, resolved, err := BuildDocument(pre, TypeAuto, true, document.Options{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if d != pre {
		t.Error("expected identity pass-through")
	}
	if d.ID() != oldID {
		t.Error("pre-built document id regenerated")
	}
	if resolved != TypeDocument {
		t.Errorf("resolved: got %q, want %q", resolved, TypeDocument)
	}
}

func TestBuildDocument_RegenerateIDOnParsedDocument(t *testing.T) {
	item := map[string]any{"id": "keep-or-not", "text": "hello"}

	d, _, err := BuildDocument(item, TypeDocument, true, document.Options{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if d.ID() == "keep-or-not" {
		t.Error("id not regenerated")
	}

	d2, _, err := BuildDocument(item, TypeDocument, false, document.Options{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if d2.ID() != "keep-or-not" {
		t.Errorf("id: got %q, want keep-or-not", d2.ID())
	}
}

func TestBuildDocument_DocumentTypeStrict(t *testing.T) {
	_, _, err := BuildDocument("raw content", TypeDocument, false, document.Options{})
	if !errors.Is(err, domain.ErrBadDocumentType) {
		t.Errorf("got %v, want ErrBadDocumentType", err)
	}
}

func TestBuildDocument_ContentTypeSkipsParse(t *testing.T) {
	// A valid descriptor string is still wrapped verbatim under CONTENT.
	raw := `{"text": "would parse"}`

	d, resolved, err := BuildDocument(raw, TypeContent, false, document.Options{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if resolved != TypeContent {
		t.Errorf("resolved: got %q, want %q", resolved, TypeContent)
	}
	if d.Text() != raw {
		t.Errorf("content: got %q, want the raw string", d.Text())
	}
}

func TestBuildDocument_ContentOptionsApplied(t *testing.T) {
	d, _, err := BuildDocument([]byte{1, 2, 3}, TypeContent, false, document.Options{
		MimeType: "application/octet-stream",
		Weight:   0.25,
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if d.Kind() != document.KindBuffer {
		t.Errorf("kind: got %q, want buffer", d.Kind())
	}
	if d.MimeType() != "application/octet-stream" || d.Weight() != 0.25 {
		t.Errorf("options not applied: mime=%q weight=%v", d.MimeType(), d.Weight())
	}
}

func TestBuildDocument_UnknownType(t *testing.T) {
	_, _, err := BuildDocument("x", InputType("bogus"), false, document.Options{})
	if !errors.Is(err, domain.ErrBadDocumentType) {
		t.Errorf("got %v, want ErrBadDocumentType", err)
	}
}

func TestBuildDocument_ContentUnsupportedValue(t *testing.T) {
	_, _, err := BuildDocument(3.14, TypeContent, false, document.Options{})
	if !errors.Is(err, domain.ErrBadDocumentType) {
		t.Errorf("got %v, want ErrBadDocumentType", err)
	}
}
