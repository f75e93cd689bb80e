package signature

import (
	"testing"
)

func TestParseHeader(t *testing.T) {
	sig := "5f2b" + "0000000000000000000000000000000000000000000000000000000000"

	tests := []struct {
		name    string
		header  string
		want    Header
		wantErr bool
	}{
		{name: "canonical", header: "t=1742780691000,v1=" + sig, want: Header{1742780691000, sig}},
		{name: "reversed order", header: "v1=" + sig + ",t=42", want: Header{42, sig}},
		{name: "unknown keys ignored", header: "t=1,v0=old,v1=abc,scheme=x", want: Header{1, "abc"}},
		{name: "spaces around pairs", header: " t=1 , v1=abc ", want: Header{1, "abc"}},
		{name: "first duplicate wins", header: "t=1,v1=first,v1=second", want: Header{1, "first"}},
		{name: "negative timestamp", header: "t=-5,v1=abc", want: Header{-5, "abc"}},
		{name: "empty", header: "", wantErr: true},
		{name: "whitespace only", header: "   ", wantErr: true},
		{name: "no pairs", header: "invalidformat", wantErr: true},
		{name: "missing v1", header: "t=123", wantErr: true},
		{name: "missing t", header: "v1=abc", wantErr: true},
		{name: "empty v1", header: "t=1,v1=", wantErr: true},
		{name: "non-numeric t", header: "t=abc,v1=abc", wantErr: true},
		{name: "float t", header: "t=1.5,v1=abc", wantErr: true},
		{name: "empty t", header: "t=,v1=abc", wantErr: true},
		{name: "overflowing t", header: "t=99999999999999999999,v1=abc", wantErr: true},
		{name: "uppercase keys", header: "T=1,V1=abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseHeader(tt.header)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseHeader(%q) error = %v, wantErr %v", tt.header, err, tt.wantErr)
			}
			if tt.wantErr {
				if err != ErrMalformedHeader {
					t.Errorf("error = %v, want ErrMalformedHeader", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ParseHeader(%q) = %+v, want %+v", tt.header, got, tt.want)
			}
		})
	}
}

func TestFormatHeader(t *testing.T) {
	got := FormatHeader(1742780691000, "abc")
	if got != "t=1742780691000,v1=abc" {
		t.Errorf("FormatHeader() = %q", got)
	}

	h, err := ParseHeader(got)
	if err != nil {
		t.Fatalf("ParseHeader(FormatHeader()) error = %v", err)
	}
	if h.String() != got {
		t.Errorf("Header.String() = %q, want %q", h.String(), got)
	}
}
