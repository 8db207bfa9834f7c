package document

import (
	"errors"
	"testing"

	"github.com/helix-search/helix/internal/domain"
)

func TestNew_Defaults(t *testing.T) {
	d := New(Options{})

	if d.ID() == "" {
		t.Error("expected a generated id")
	}
	if d.Kind() != KindEmpty {
		t.Errorf("kind: got %q, want empty", d.Kind())
	}
	if d.Weight() != DefaultWeight {
		t.Errorf("weight: got %v, want %v", d.Weight(), DefaultWeight)
	}
}

func TestNew_AppliesOptions(t *testing.T) {
	d := New(Options{MimeType: "text/plain", Weight: 0.5})

	if d.MimeType() != "text/plain" {
		t.Errorf("mime type: got %q, want %q", d.MimeType(), "text/plain")
	}
	if d.Weight() != 0.5 {
		t.Errorf("weight: got %v, want 0.5", d.Weight())
	}
}

func TestSetText_SecondVariantRejected(t *testing.T) {
	d := New(Options{})
	if err := d.SetText("hello"); err != nil {
		t.Fatalf("set text: %v", err)
	}

	if err := d.SetBuffer([]byte{1, 2}); !errors.Is(err, domain.ErrContentAlreadySet) {
		t.Errorf("set buffer after text: got %v, want ErrContentAlreadySet", err)
	}
	if err := d.SetBlob([]float32{1}); !errors.Is(err, domain.ErrContentAlreadySet) {
		t.Errorf("set blob after text: got %v, want ErrContentAlreadySet", err)
	}
	if d.Kind() != KindText || d.Text() != "hello" {
		t.Errorf("document changed after rejected sets: kind=%q text=%q", d.Kind(), d.Text())
	}
}

func TestSetBlob_Overwrite(t *testing.T) {
	d := New(Options{})
	if err := d.SetBlob([]float32{1, 2}); err != nil {
		t.Fatalf("first set blob: %v", err)
	}
	if err := d.SetBlob([]float32{3, 4, 5}); err != nil {
		t.Fatalf("second set blob: %v", err)
	}
	if len(d.Blob()) != 3 {
		t.Errorf("blob length: got %d, want 3", len(d.Blob()))
	}
}

func TestSetContent_DispatchesByType(t *testing.T) {
	cases := []struct {
		name    string
		content any
		kind    Kind
	}{
		{"string", "text body", KindText},
		{"float slice", []float32{0.1, 0.2}, KindBlob},
		{"byte slice", []byte{0xDE, 0xAD}, KindBuffer},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := New(Options{})
			if err := d.SetContent(tc.content); err != nil {
				t.Fatalf("set content: %v", err)
			}
			if d.Kind() != tc.kind {
				t.Errorf("kind: got %q, want %q", d.Kind(), tc.kind)
			}
		})
	}
}

func TestSetContent_UnsupportedType(t *testing.T) {
	d := New(Options{})
	err := d.SetContent(42)
	if !errors.Is(err, domain.ErrBadDocumentType) {
		t.Errorf("set int content: got %v, want ErrBadDocumentType", err)
	}
}

func TestRegenerateID(t *testing.T) {
	d := New(Options{})
	old := d.ID()
	d.RegenerateID()
	if d.ID() == old {
		t.Error("id unchanged after regeneration")
	}
	if d.ID() == "" {
		t.Error("regenerated id is empty")
	}
}

func TestSetEmbedding_IndependentOfContent(t *testing.T) {
	d := New(Options{})
	if err := d.SetText("payload"); err != nil {
		t.Fatalf("set text: %v", err)
	}
	d.SetEmbedding([]float32{0.5, 0.5})

	if d.Kind() != KindText {
		t.Errorf("kind changed by embedding: got %q", d.Kind())
	}
	if len(d.Embedding()) != 2 {
		t.Errorf("embedding length: got %d, want 2", len(d.Embedding()))
	}
}

func TestSetTag(t *testing.T) {
	d := New(Options{})
	d.SetTag("source", "crawler")
	d.SetTag("lang", "en")

	if d.Tags()["source"] != "crawler" || d.Tags()["lang"] != "en" {
		t.Errorf("tags: got %v", d.Tags())
	}
}

func TestReconstruct(t *testing.T) {
	d := Reconstruct("doc-1", KindText, "body", nil, nil,
		map[string]string{"k": "v"}, "text/plain", 2.0)

	if d.ID() != "doc-1" {
		t.Errorf("id: got %q, want doc-1", d.ID())
	}
	if d.Kind() != KindText || d.Text() != "body" {
		t.Errorf("content: kind=%q text=%q", d.Kind(), d.Text())
	}
	if d.Weight() != 2.0 {
		t.Errorf("weight: got %v, want 2.0", d.Weight())
	}
}
