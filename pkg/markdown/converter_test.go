package markdown

import (
	"strings"
	"testing"
)

func TestToTelegramHTML(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    []string
		exclude []string
	}{
		{
			name: "bold and italic",
			in:   "some **bold** and *italic* text",
			want: []string{"<b>bold</b>", "<i>italic</i>"},
		},
		{
			name: "inline code",
			in:   "run `go build` first",
			want: []string{"<code>go build</code>"},
		},
		{
			name:    "list items become bullets",
			in:      "- one\n- two",
			want:    []string{"• one", "• two"},
			exclude: []string{"<ul>", "<li>"},
		},
		{
			name:    "headers stripped to text",
			in:      "# Title",
			want:    []string{"Title"},
			exclude: []string{"<h1>", "</h1>"},
		},
		{
			name:    "nested header levels stripped",
			in:      "## Section\n\n### Detail",
			want:    []string{"Section", "Detail"},
			exclude: []string{"<h2>", "<h3>"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToTelegramHTML(tt.in)
			for _, want := range tt.want {
				if !strings.Contains(got, want) {
					t.Errorf("output %q missing %q", got, want)
				}
			}
			for _, bad := range tt.exclude {
				if strings.Contains(got, bad) {
					t.Errorf("output %q contains unsupported %q", got, bad)
				}
			}
		})
	}
}

func TestToTelegramHTMLEmpty(t *testing.T) {
	if got := ToTelegramHTML(""); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}
