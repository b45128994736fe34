package services

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/tenantdesk/apiserver/internal/store"
	"github.com/tenantdesk/apiserver/types"
)

func TestValidator_Slug(t *testing.T) {
	v := NewValidator()
	cases := map[string]bool{
		"acme":                  true,
		"acme-corp-2":           true,
		"a":                     false,
		"-acme":                 false,
		"acme-":                 false,
		"Acme":                  false,
		"acme corp":             false,
		strings.Repeat("a", 63): true,
		strings.Repeat("a", 64): false,
	}
	for slug, ok := range cases {
		err := v.Struct(types.Tenant{Name: "Acme", Slug: slug})
		if ok && err != nil {
			t.Errorf("slug %q: unexpected error %v", slug, err)
		}
		if !ok && err == nil {
			t.Errorf("slug %q: expected validation error", slug)
		}
	}
}

func TestValidator_NilUUIDIsMissing(t *testing.T) {
	v := NewValidator()
	project := types.Project{Name: "P", Status: types.ProjectActive, CreatedByID: uuid.New()}

	err := v.Struct(project)
	assertErr(t, err, store.ErrValidation)
	if !strings.Contains(err.Error(), "tenant_id is required") {
		t.Fatalf("expected tenant_id message, got %q", err)
	}

	project.TenantID = uuid.New()
	if err := v.Struct(project); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestValidator_Messages(t *testing.T) {
	v := NewValidator()
	err := v.Struct(types.User{FullName: "A", Email: "nope", PasswordHash: "x", Role: "owner"})
	assertErr(t, err, store.ErrValidation)
	msg := err.Error()
	for _, want := range []string{"email must be a valid email", "role must be one of"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in %q", want, msg)
		}
	}
}

func TestValidPassword(t *testing.T) {
	cases := map[string]bool{
		"password":              true,
		"short":                 false,
		strings.Repeat("a", 72): true,
		strings.Repeat("a", 73): false,
		strings.Repeat("é", 36): true,
		strings.Repeat("é", 40): false,
		strings.Repeat("日", 8):  true,
	}
	for pw, ok := range cases {
		if got := validPassword(pw); got != ok {
			t.Errorf("validPassword(%d bytes) = %v, want %v", len(pw), got, ok)
		}
	}
}

func TestHashPassword_TooLongIsValidation(t *testing.T) {
	_, err := hashPassword(strings.Repeat("é", 40))
	assertErr(t, err, store.ErrValidation)
}
