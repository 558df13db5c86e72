package sanitize

import "testing"

func TestText(t *testing.T) {
	cases := map[string]string{
		"  Closed   Won ":                       "Closed Won",
		"<b>Demo</b>":                           "Demo",
		"&lt;script&gt;alert(1)&lt;/script&gt;": "alert(1)",
		"Proposal\nSent":                        "Proposal Sent",
		"Tom &amp; Jerry":                       "Tom & Jerry",
	}
	for in, want := range cases {
		if got := Text(in); got != want {
			t.Errorf("Text(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParagraphKeepsLineBreaks(t *testing.T) {
	in := "First  line<br>\r\n  second line\n\n\n\nnext <i>paragraph</i>  "
	want := "First line\nsecond line\n\nnext paragraph"
	if got := Paragraph(in); got != want {
		t.Fatalf("Paragraph() = %q, want %q", got, want)
	}
}

func TestPtrHelpersKeepNil(t *testing.T) {
	if TextPtr(nil) != nil || ParagraphPtr(nil) != nil {
		t.Fatal("expected nil to stay nil")
	}
	s := " <p>x</p> "
	if got := TextPtr(&s); *got != "x" {
		t.Fatalf("TextPtr = %q", *got)
	}
}
