package normalize

import "testing"

func TestExtractJSONFromProse(t *testing.T) {
	raw := "Sure! Here is the data you asked for:\n```json\n{\"gpa\": 3.5}\n```\nLet me know if you need anything else."
	got, err := ExtractJSON(raw)
	if err != nil {
		t.Fatalf("ExtractJSON() error = %v", err)
	}
	if got != `{"gpa": 3.5}` {
		t.Fatalf("ExtractJSON() = %q", got)
	}
}

func TestExtractJSONNestedObject(t *testing.T) {
	raw := `prefix {"course":{"name":"Calc"},"weights":[{"name":"Exams"}]} suffix`
	got, err := ExtractJSON(raw)
	if err != nil {
		t.Fatalf("ExtractJSON() error = %v", err)
	}
	if got != `{"course":{"name":"Calc"},"weights":[{"name":"Exams"}]}` {
		t.Fatalf("ExtractJSON() = %q", got)
	}
}

func TestExtractJSONIgnoresBracesInsideStrings(t *testing.T) {
	raw := `{"note":"uses { and } freely","ok":true}`
	got, err := ExtractJSON(raw)
	if err != nil {
		t.Fatalf("ExtractJSON() error = %v", err)
	}
	if got != raw {
		t.Fatalf("ExtractJSON() = %q", got)
	}
}

func TestExtractJSONArray(t *testing.T) {
	got, err := ExtractJSON(`the list: [1, 2, {"a": 3}] done`)
	if err != nil {
		t.Fatalf("ExtractJSON() error = %v", err)
	}
	if got != `[1, 2, {"a": 3}]` {
		t.Fatalf("ExtractJSON() = %q", got)
	}
}

func TestExtractJSONErrors(t *testing.T) {
	if _, err := ExtractJSON("no structured data here"); err == nil {
		t.Fatalf("expected error when no JSON present")
	}
	if _, err := ExtractJSON(`{"unbalanced": {"oops": 1}`); err == nil {
		t.Fatalf("expected error on unbalanced JSON")
	}
}
