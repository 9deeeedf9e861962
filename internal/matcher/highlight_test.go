package matcher

import "testing"

func TestHighlight(t *testing.T) {
	brackets := Marker{Open: "[", Close: "]"}

	tests := []struct {
		name    string
		context string
		term    string
		want    string
	}{
		{
			name:    "every occurrence, any casing",
			context: "Pizza and more pizza, PIZZA!",
			term:    "pizza",
			want:    "[Pizza] and more [pizza], [PIZZA]!",
		},
		{
			name:    "pattern metacharacters are literal",
			context: "try a+b (c) or a+b",
			term:    "a+b (c)",
			want:    "try [a+b (c)] or a+b",
		},
		{
			name:    "brackets and dots in term",
			context: "see [docs].* and more",
			term:    "[docs].*",
			want:    "see [[docs].*] and more",
		},
		{
			name:    "no occurrence leaves context alone",
			context: "nothing here",
			term:    "seattle",
			want:    "nothing here",
		},
		{
			name:    "empty term",
			context: "nothing here",
			term:    "",
			want:    "nothing here",
		},
		{
			name:    "occurrences do not overlap",
			context: "aaaa",
			term:    "aa",
			want:    "[aa][aa]",
		},
		{
			name:    "ellipsis context",
			context: "...sold at Bob's Shop...",
			term:    "bob's shop",
			want:    "...sold at [Bob's Shop]...",
		},
		{
			name:    "multi-byte characters",
			context: "Grüße aus MÜNCHEN und münchen",
			term:    "München",
			want:    "Grüße aus [MÜNCHEN] und [münchen]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Highlight(tt.context, tt.term, brackets)
			if got != tt.want {
				t.Errorf("Highlight(%q, %q) = %q, want %q", tt.context, tt.term, got, tt.want)
			}
		})
	}
}

func TestHighlightHTML(t *testing.T) {
	tests := []struct {
		name    string
		context string
		term    string
		want    string
	}{
		{
			name:    "surrounding markup is escaped",
			context: "<b>cafe</b> & Cafe",
			term:    "cafe",
			want:    "&lt;b&gt;<mark>cafe</mark>&lt;/b&gt; &amp; <mark>Cafe</mark>",
		},
		{
			name:    "term containing markup",
			context: "the <script> tag",
			term:    "<script>",
			want:    "the <mark>&lt;script&gt;</mark> tag",
		},
		{
			name:    "empty term still escapes",
			context: `"quoted" & done`,
			term:    "",
			want:    "&#34;quoted&#34; &amp; done",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HighlightHTML(tt.context, tt.term)
			if got != tt.want {
				t.Errorf("HighlightHTML(%q, %q) = %q, want %q", tt.context, tt.term, got, tt.want)
			}
		})
	}
}

func TestHighlightIsStable(t *testing.T) {
	context := "Seattle folks love seattle coffee"
	first := HighlightHTML(context, "Seattle")
	if second := HighlightHTML(context, "Seattle"); first != second {
		t.Fatalf("highlight changed between calls: %q vs %q", first, second)
	}
}
