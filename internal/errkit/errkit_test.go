package errkit

import (
	"errors"
	"testing"
)

func TestParseError(t *testing.T) {
	e := NewParseError(UnbalancedParen, 12, "missing closing paren")
	if e.Kind != UnbalancedParen {
		t.Fatalf("Kind = %v, want UnbalancedParen", e.Kind)
	}
	if !e.Fatal() {
		t.Fatal("ParseError.Fatal() = false, want true")
	}
	want := "parse error (unbalanced_paren) at position 12: missing closing paren"
	if e.Error() != want {
		t.Fatalf("Error() = %q, want %q", e.Error(), want)
	}
}

func TestParseErrorNoPosition(t *testing.T) {
	e := NewParseError(EmptyExpression, -1, "expression is empty")
	want := "parse error (empty_expression): expression is empty"
	if e.Error() != want {
		t.Fatalf("Error() = %q, want %q", e.Error(), want)
	}
}

func TestFileError(t *testing.T) {
	wrapped := errors.New("permission denied")
	e := NewFileError(PermissionDenied, "/var/log/app.log", wrapped)
	if e.Fatal() {
		t.Fatal("FileError.Fatal() = true, want false")
	}
	if !errors.Is(e, wrapped) {
		t.Fatal("errors.Is(e, wrapped) = false, want true")
	}
}

func TestFileErrorWithoutWrapped(t *testing.T) {
	e := NewFileError(OversizeSkipped, "/var/log/huge.log", nil)
	want := "file error (oversize_skipped): /var/log/huge.log"
	if e.Error() != want {
		t.Fatalf("Error() = %q, want %q", e.Error(), want)
	}
}

func TestRecordError(t *testing.T) {
	e := NewRecordError(OrphanContinuation, "/var/log/app.log", 42, "continuation before any header")
	if e.Fatal() {
		t.Fatal("RecordError.Fatal() = true, want false")
	}
	want := "record error (orphan_continuation): /var/log/app.log:42: continuation before any header"
	if e.Error() != want {
		t.Fatalf("Error() = %q, want %q", e.Error(), want)
	}
}

func TestConfigError(t *testing.T) {
	e := NewConfigError("max_workers", "must be between 1 and 64")
	if !e.Fatal() {
		t.Fatal("ConfigError.Fatal() = false, want true")
	}
	want := "config error: max_workers: must be between 1 and 64"
	if e.Error() != want {
		t.Fatalf("Error() = %q, want %q", e.Error(), want)
	}
}

func TestMultiError(t *testing.T) {
	var m MultiError
	if m.HasErrors() {
		t.Fatal("HasErrors() = true on empty MultiError")
	}
	if m.ErrOrNil() != nil {
		t.Fatal("ErrOrNil() != nil on empty MultiError")
	}

	m.Add(NewConfigError("search_root", "does not exist"))
	m.Add(NewConfigError("max_record_size", "must be > 0"))
	m.Add(nil) // nil errors are ignored

	if !m.HasErrors() {
		t.Fatal("HasErrors() = false, want true")
	}
	if len(m.Errors) != 2 {
		t.Fatalf("len(Errors) = %d, want 2", len(m.Errors))
	}
	if m.ErrOrNil() == nil {
		t.Fatal("ErrOrNil() = nil, want non-nil")
	}
}

func TestMultiErrorSingle(t *testing.T) {
	var m MultiError
	m.Add(NewConfigError("expression", "must not be empty"))
	want := "config error: expression: must not be empty"
	if m.Error() != want {
		t.Fatalf("Error() = %q, want %q", m.Error(), want)
	}
}

func TestIsFatal(t *testing.T) {
	if !IsFatal(NewParseError(EmptyExpression, -1, "")) {
		t.Fatal("IsFatal(ParseError) = false, want true")
	}
	if !IsFatal(NewConfigError("field", "detail")) {
		t.Fatal("IsFatal(ConfigError) = false, want true")
	}
	if IsFatal(NewFileError(NotFound, "/x", nil)) {
		t.Fatal("IsFatal(FileError) = true, want false")
	}
	if IsFatal(NewRecordError(OversizeTruncated, "/x", 1, "")) {
		t.Fatal("IsFatal(RecordError) = true, want false")
	}
	if IsFatal(errors.New("plain error")) {
		t.Fatal("IsFatal(plain error) = true, want false")
	}
}

func TestErrorsAsParseError(t *testing.T) {
	var err error = NewParseError(UnexpectedToken, 5, "unexpected AND")
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatal("errors.As failed to extract *ParseError")
	}
	if pe.Kind != UnexpectedToken {
		t.Fatalf("Kind = %v, want UnexpectedToken", pe.Kind)
	}
}
