package edc

import "testing"

func TestParseRevision(t *testing.T) {
	cases := []struct {
		in      string
		want    Revision
		wantErr bool
	}{
		{"legacy", RevisionLegacy, false},
		{"v1", RevisionV1, false},
		{"V2 ", RevisionV2, false},
		{"", RevisionV1, false},
		{"v3", "", true},
	}
	for _, tc := range cases {
		got, err := ParseRevision(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseRevision(%q) expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseRevision(%q) error = %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseRevision(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRevisionDefaults(t *testing.T) {
	if got := RevisionLegacy.DefaultVersion(); got != "0.6.0" {
		t.Fatalf("legacy default version = %q", got)
	}
	if got := RevisionV2.DefaultVersion(); got != "0.9.0" {
		t.Fatalf("v2 default version = %q", got)
	}
	if got := RevisionLegacy.DeleteKey(ConnectorRef{ID: 4, Name: "x"}); got != "4" {
		t.Fatalf("legacy delete key = %q", got)
	}
	if got := RevisionV2.DeleteKey(ConnectorRef{ID: 4, Name: "x"}); got != "x" {
		t.Fatalf("v2 delete key = %q", got)
	}
	// A v2 ref without a name still deletes by id.
	if got := RevisionV2.DeleteKey(ConnectorRef{ID: 4}); got != "4" {
		t.Fatalf("v2 delete key without name = %q", got)
	}
}
