package googledrive

import (
	"errors"
	"fmt"
	"testing"

	"google.golang.org/api/googleapi"
)

func TestEscapeQuery(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"France", "France"},
		{"Côte d'Ivoire", `Côte d\'Ivoire`},
		{`back\slash`, `back\\slash`},
		{`both\'`, `both\\\'`},
	}
	for _, tt := range tests {
		if got := escapeQuery(tt.in); got != tt.want {
			t.Errorf("escapeQuery(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsNotFound(t *testing.T) {
	if !isNotFound(&googleapi.Error{Code: 404}) {
		t.Error("direct 404 not recognized")
	}
	if !isNotFound(fmt.Errorf("wrapped: %w", &googleapi.Error{Code: 404})) {
		t.Error("wrapped 404 not recognized")
	}
	if isNotFound(&googleapi.Error{Code: 403}) {
		t.Error("403 misread as not found")
	}
	if isNotFound(errors.New("plain error")) {
		t.Error("plain error misread as not found")
	}
}
