package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/estate-link/estate_link/internal/apiclient"
)

func TestRegisterSetPasswordAndAuthenticate(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	account, err := svc.Register(ctx, Signup{Name: "Asha", Email: " Asha@Example.com", Phone: "9876543210"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if account.Email != "asha@example.com" || account.HasPassword() {
		t.Fatalf("unexpected account %+v", account)
	}

	if _, err := svc.Authenticate(ctx, "asha@example.com", "Str0ng#Pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("account without password must not authenticate, got %v", err)
	}

	if _, err := svc.SetPassword(ctx, "asha@example.com", "Str0ng#Pass"); err != nil {
		t.Fatalf("set password: %v", err)
	}
	authed, err := svc.Authenticate(ctx, "ASHA@example.com", "Str0ng#Pass")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if authed.ID != account.ID {
		t.Fatalf("expected %s, got %s", account.ID, authed.ID)
	}
	if _, err := svc.Authenticate(ctx, "asha@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
}

func TestRegisterCompletedEmailIsTaken(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	first, err := svc.Register(ctx, Signup{Name: "Asha", Email: "asha@example.com", Phone: "9876543210"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	again, err := svc.Register(ctx, Signup{Name: "Asha R", Email: "asha@example.com", Phone: "9123456780"})
	if err != nil {
		t.Fatalf("re-register unfinished account: %v", err)
	}
	if again.ID != first.ID || again.Name != "Asha R" {
		t.Fatalf("unfinished registration should be refreshed, got %+v", again)
	}

	if _, err := svc.SetPassword(ctx, "asha@example.com", "Str0ng#Pass"); err != nil {
		t.Fatalf("set password: %v", err)
	}
	if _, err := svc.Register(ctx, Signup{Name: "X", Email: "asha@example.com", Phone: "9876543210"}); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected email taken, got %v", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()
	account, _ := svc.Register(ctx, Signup{Name: "Asha", Email: "asha@example.com", Phone: "9876543210"})

	unchanged, err := svc.UpdateProfile(ctx, account.ID, apiclient.ProfilePatch{})
	if err != nil || unchanged.Name != "Asha" {
		t.Fatalf("empty patch: %+v %v", unchanged, err)
	}

	ifsc := "hdfc0001234"
	docs := []apiclient.Document{{Name: "RERA", URL: "https://cdn.example.com/rera.pdf"}}
	updated, err := svc.UpdateProfile(ctx, account.ID, apiclient.ProfilePatch{IFSCCode: &ifsc, Documents: &docs})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.IFSCCode != "HDFC0001234" || len(updated.Documents) != 1 || updated.Documents[0].ID == "" {
		t.Fatalf("unexpected update %+v", updated)
	}

	a, b := "111", "222"
	if _, err := svc.UpdateProfile(ctx, account.ID, apiclient.ProfilePatch{AccountNumber: &a, ConfirmAccountNumber: &b}); !errors.Is(err, ErrInvalidProfile) {
		t.Fatalf("expected invalid profile, got %v", err)
	}
}

func TestRevokeTokensBumpsVersion(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()
	account, _ := svc.Register(ctx, Signup{Name: "Asha", Email: "asha@example.com", Phone: "9876543210"})

	if err := svc.RevokeTokens(ctx, account.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	got, _ := svc.Get(ctx, account.ID)
	if got.TokenVersion != account.TokenVersion+1 {
		t.Fatalf("expected version %d, got %d", account.TokenVersion+1, got.TokenVersion)
	}
}
