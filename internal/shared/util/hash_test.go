package util

import "testing"

func TestHashUserKey(t *testing.T) {
	for _, id := range []string{
		"google:12345",
		"guest:11111111-1111-1111-1111-111111111111",
	} {
		got := HashUserKey(id)
		if got != HashUserKey(id) {
			t.Fatalf("expected stable hash for %s, got %s", id, got)
		}
		if len(got) != 64 {
			t.Fatalf("expected 64 hex characters for %s, got %d", id, len(got))
		}
		for _, ch := range got {
			if !((ch >= 'a' && ch <= 'f') || (ch >= '0' && ch <= '9')) {
				t.Fatalf("hash contains non-hex character: %c", ch)
			}
		}
	}
	if HashUserKey("guest:a") == HashUserKey("guest:b") {
		t.Fatalf("expected distinct hashes for distinct ids")
	}
}

func TestSanitizeFileName(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "proposal.pdf", want: "proposal.pdf"},
		{in: " vendor rfp.docx ", want: "vendor rfp.docx"},
		{in: "a/b.pdf", want: "a_b.pdf"},
		{in: `a\b.pdf`, want: "a_b.pdf"},
		{in: "../etc/passwd", wantErr: true},
		{in: "   ", wantErr: true},
	}
	for _, tc := range cases {
		got, err := SanitizeFileName(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("expected error for %q", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("sanitize %q: expected %q, got %q", tc.in, tc.want, got)
		}
	}
}
