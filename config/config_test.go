package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ACCOUNT_EMAIL", "student@example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != ":8080" {
		t.Errorf("listen %q, want :8080", cfg.Listen)
	}
	if cfg.MorningTime != "08:00" {
		t.Errorf("morning time %q, want 08:00", cfg.MorningTime)
	}
	if cfg.Timezone.String() != "UTC" {
		t.Errorf("timezone %q, want UTC", cfg.Timezone)
	}
	if cfg.AccountName != "student@example.com" {
		t.Errorf("account name must default to the email, got %q", cfg.AccountName)
	}
	if cfg.APIAuthEnabled() {
		t.Error("auth must be disabled without credentials")
	}
}

func TestLoadRequiresEmail(t *testing.T) {
	t.Setenv("ACCOUNT_EMAIL", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without ACCOUNT_EMAIL")
	}
}

func TestLoadValidatesMorningTime(t *testing.T) {
	t.Setenv("ACCOUNT_EMAIL", "student@example.com")

	for _, bad := range []string{"25:00", "8am", "07:30xyz"} {
		t.Setenv("MORNING_TIME", bad)
		if _, err := Load(); err == nil {
			t.Errorf("MORNING_TIME=%q must be rejected", bad)
		}
	}

	t.Setenv("MORNING_TIME", "07:30")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MorningTime != "07:30" {
		t.Errorf("morning time %q, want 07:30", cfg.MorningTime)
	}
}

func TestLoadValidatesTimezone(t *testing.T) {
	t.Setenv("ACCOUNT_EMAIL", "student@example.com")
	t.Setenv("TIMEZONE", "not/a-zone")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for an unknown timezone")
	}
}
