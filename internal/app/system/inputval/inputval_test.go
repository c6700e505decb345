package inputval

import "testing"

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"user@example.com", true},
		{"user.name@example.com", true},
		{"user+tag@example.com", true},
		{"a@b.co", true},
		{"user@localhost", true},

		{"", false},
		{"   ", false},
		{"user", false},
		{"user@", false},
		{"@example.com", false},
		{"user..name@example.com", false},
		{"user@example..com", false},
		{"User Name <user@example.com>", false},
		{"user @example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			got := IsValidEmail(tt.email)
			if got != tt.want {
				t.Errorf("IsValidEmail(%q) = %v, want %v", tt.email, got, tt.want)
			}
		})
	}
}

func TestIsValidHTTPURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://cdn.example.com/a.png", true},
		{"http://localhost:8080/files/avatars/x.png", true},
		{"  https://example.com  ", true},
		{"", false},
		{"ftp://example.com", false},
		{"example.com", false},
		{"javascript:alert(1)", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got := IsValidHTTPURL(tt.url)
			if got != tt.want {
				t.Errorf("IsValidHTTPURL(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}

func TestIsValidObjectID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"507f1f77bcf86cd799439011", true},
		{"  507f1f77bcf86cd799439011  ", true},
		{"", false},
		{"507f1f77bcf86cd79943901", false},
		{"507f1f77bcf86cd79943901g", false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got := IsValidObjectID(tt.id)
			if got != tt.want {
				t.Errorf("IsValidObjectID(%q) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	type input struct {
		Name  string `validate:"required,max=10" label:"Name"`
		Email string `validate:"required,mailbox" label:"Email"`
	}

	tests := []struct {
		name       string
		input      input
		wantErrors bool
		wantFirst  string
	}{
		{"valid", input{Name: "Launch", Email: "alice@example.com"}, false, ""},
		{"missing name", input{Email: "alice@example.com"}, true, "Name is required."},
		{"name too long", input{Name: "ThisNameIsTooLong", Email: "alice@example.com"}, true, "Name must be at most 10 characters."},
		{"bad email", input{Name: "Launch", Email: "nope"}, true, "A valid email address is required."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Validate(tt.input)
			if res.HasErrors() != tt.wantErrors {
				t.Fatalf("HasErrors = %v, want %v (%+v)", res.HasErrors(), tt.wantErrors, res.Errors)
			}
			if tt.wantErrors && res.First() != tt.wantFirst {
				t.Errorf("First() = %q, want %q", res.First(), tt.wantFirst)
			}
		})
	}
}

