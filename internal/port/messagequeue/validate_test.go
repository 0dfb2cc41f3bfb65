package messagequeue

import "testing"

func TestValidate_InvalidJSON(t *testing.T) {
	if err := Validate(SubjectJobCreated, []byte("{not json")); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestValidate_KnownSubjects(t *testing.T) {
	tests := []struct {
		subject string
		data    string
	}{
		{SubjectJobCreated, `{"job_id":"j1","document_id":"d1","firm_id":"f1","type":"extract_text"}`},
		{SubjectJobProgress, `{"job_id":"j1","progress":40}`},
		{SubjectJobResult, `{"job_id":"j1","status":"completed","page_count":12}`},
		{SubjectJobCancel, `{"job_id":"j1"}`},
		{SubjectJobDispatch + ".extract_text", `{"job_id":"j1","type":"extract_text"}`},
	}
	for _, tt := range tests {
		if err := Validate(tt.subject, []byte(tt.data)); err != nil {
			t.Errorf("Validate(%s) = %v, want nil", tt.subject, err)
		}
	}
}

func TestValidate_SchemaMismatch(t *testing.T) {
	// progress carries an int; a string payload must be rejected.
	if err := Validate(SubjectJobProgress, []byte(`{"job_id":"j1","progress":"forty"}`)); err == nil {
		t.Fatal("expected schema validation error")
	}
}

func TestValidate_UnknownSubjectPasses(t *testing.T) {
	if err := Validate("jobs.someday", []byte(`{"anything":true}`)); err != nil {
		t.Fatalf("unknown subjects must pass, got %v", err)
	}
}
