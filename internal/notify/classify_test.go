package notify

import (
	"errors"
	"testing"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		err    error
		class  Class
		detail string
	}{
		{errors.New("telegram: Forbidden: bot was blocked by the user (403)"), Permanent, DetailBlocked},
		{errors.New("Bad Request: CHAT NOT FOUND"), Permanent, DetailBlocked},
		{errors.New("dial tcp: i/o timeout"), Transient, "dial tcp: i/o timeout"},
		{errors.New("telegram: Too Many Requests: retry after 5 (429)"), Transient, "telegram: Too Many Requests: retry after 5 (429)"},
	}
	for _, tc := range cases {
		got := Classify(tc.err)
		if got.Class != tc.class || got.Detail != tc.detail {
			t.Fatalf("Classify(%q) = %+v, want %s/%q", tc.err, got, tc.class, tc.detail)
		}
	}
	if got := Classify(nil); got.Class != "" {
		t.Fatalf("nil error classified as %q", got.Class)
	}
}
