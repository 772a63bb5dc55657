package epub

import (
	"errors"
	"testing"
)

func TestResolveRootfile(t *testing.T) {
	tests := []struct {
		name      string
		container string
		want      string
	}{
		{
			name: "standard descriptor",
			container: `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`,
			want: "OEBPS/content.opf",
		},
		{
			name:      "single quotes",
			container: `<rootfile full-path='book.opf' media-type='application/oebps-package+xml'/>`,
			want:      "book.opf",
		},
		{
			name:      "whitespace around equals",
			container: `<rootfile full-path = "content/pkg.opf"/>`,
			want:      "content/pkg.opf",
		},
		{
			name:      "leading slash stripped",
			container: `<rootfile full-path="/OEBPS/content.opf"/>`,
			want:      "OEBPS/content.opf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := buildArchive(t, map[string]string{ContainerPath: tt.container})
			a, err := OpenArchive(data)
			if err != nil {
				t.Fatalf("OpenArchive() error = %v", err)
			}

			got, err := ResolveRootfile(a)
			if err != nil {
				t.Fatalf("ResolveRootfile() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ResolveRootfile() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveRootfileMissingContainer(t *testing.T) {
	data := buildArchive(t, map[string]string{"OEBPS/ch1.xhtml": "<p>x</p>"})
	a, err := OpenArchive(data)
	if err != nil {
		t.Fatalf("OpenArchive() error = %v", err)
	}

	if _, err := ResolveRootfile(a); !errors.Is(err, ErrInvalidContainer) {
		t.Fatalf("ResolveRootfile() error = %v, want ErrInvalidContainer", err)
	}
}

func TestResolveRootfileMissingAttribute(t *testing.T) {
	data := buildArchive(t, map[string]string{
		ContainerPath: `<container><rootfiles><rootfile media-type="application/oebps-package+xml"/></rootfiles></container>`,
	})
	a, err := OpenArchive(data)
	if err != nil {
		t.Fatalf("OpenArchive() error = %v", err)
	}

	if _, err := ResolveRootfile(a); !errors.Is(err, ErrInvalidContainer) {
		t.Fatalf("ResolveRootfile() error = %v, want ErrInvalidContainer", err)
	}
}

func TestAttrValue(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		attr   string
		want   string
		wantOK bool
	}{
		{"double quotes", `<item id="ch1" href="a.xhtml"/>`, "href", "a.xhtml", true},
		{"single quotes", `<item href='b.xhtml'/>`, "href", "b.xhtml", true},
		{"not part of longer name", `<itemref idref="ch1"/>`, "id", "", false},
		{"prefix of attr value ignored", `<item data-id="x" id="real"/>`, "id", "real", true},
		{"absent", `<item href="a.xhtml"/>`, "id", "", false},
		{"empty value", `<item id=""/>`, "id", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := attrValue(tt.input, tt.attr)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("attrValue(%q, %q) = (%q, %v), want (%q, %v)",
					tt.input, tt.attr, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
