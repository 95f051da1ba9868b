package observability

import "testing"

func TestNormalizedPath(t *testing.T) {
	got := normalizedPath("/api/v1/admin/question-sets/123/questions/9")
	want := "/api/v1/admin/question-sets/{id}/questions/{id}"
	if got != want {
		t.Fatalf("normalizedPath mismatch got=%s want=%s", got, want)
	}
}

func TestExtractSetID(t *testing.T) {
	raw := "/api/v1/admin/question-sets/456/publish"
	if id := extractSetID(normalizedPath(raw), raw); id != 456 {
		t.Fatalf("expected 456, got %d", id)
	}
	raw = "/api/v1/surveys/APTITUDE"
	if id := extractSetID(normalizedPath(raw), raw); id != 0 {
		t.Fatalf("expected 0 for non-set path, got %d", id)
	}
}
