package utils

import "testing"

func TestValidatePhoneNumber(t *testing.T) {
	valid := []string{
		"13812345678",
		"+86 138 1234 5678",
		"86-13812345678",
		"199 0000 0000",
	}
	for _, p := range valid {
		if !ValidatePhoneNumber(p) {
			t.Errorf("expected %q to be valid", p)
		}
	}

	invalid := []string{
		"",
		"12345678",
		"12812345678", // 12 prefix is not assigned
		"138123456789",
		"abc",
	}
	for _, p := range invalid {
		if ValidatePhoneNumber(p) {
			t.Errorf("expected %q to be invalid", p)
		}
	}
}

func TestNormalizePhoneNumber(t *testing.T) {
	cases := map[string]string{
		"+86 138 1234 5678": "13812345678",
		"138-1234-5678":     "13812345678",
		"13812345678":       "13812345678",
	}
	for in, want := range cases {
		if got := NormalizePhoneNumber(in); got != want {
			t.Errorf("NormalizePhoneNumber(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMaskPhoneNumber(t *testing.T) {
	if got := MaskPhoneNumber("13812345678"); got != "138****5678" {
		t.Errorf("unexpected mask: %q", got)
	}
	if got := MaskPhoneNumber("bad"); got != "bad" {
		t.Errorf("short input should pass through, got %q", got)
	}
}
