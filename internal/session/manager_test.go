package session

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/estate-link/estate_link/internal/apiclient"
	"github.com/estate-link/estate_link/internal/logging"
	"github.com/estate-link/estate_link/internal/store"
)

type harness struct {
	api     *fakeAPI
	tokens  *store.MemoryTokenStore
	pending *store.MemoryPendingStore
	mgr     *Manager
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		api:     newFakeAPI(),
		tokens:  store.NewMemoryTokenStore(),
		pending: store.NewMemoryPendingStore(store.DefaultPendingTTL),
	}
	h.mgr = New(Options{API: h.api, Tokens: h.tokens, Pending: h.pending, Logger: logging.Discard()})
	return h
}

// ready restores with an empty token store so the session starts Anonymous.
func (h *harness) ready(t *testing.T) {
	t.Helper()
	h.mgr.Restore(context.Background())
	if got := h.mgr.Snapshot().Status; got != StatusAnonymous {
		t.Fatalf("expected anonymous after restore, got %s", got)
	}
}

func (h *harness) signIn(t *testing.T) {
	t.Helper()
	h.ready(t)
	res := h.mgr.Login(context.Background(), "agent@example.com", "Secret#123")
	if !res.Success {
		t.Fatalf("login failed: %s (%v)", res.Message, res.Err)
	}
}

func storedToken(t *testing.T, tokens store.TokenStore) string {
	t.Helper()
	token, err := tokens.Load(context.Background())
	if err != nil {
		t.Fatalf("load token: %v", err)
	}
	return token
}

func TestNewManagerIsInitializing(t *testing.T) {
	h := newHarness(t)
	snap := h.mgr.Snapshot()
	if snap.Status != StatusInitializing || !snap.IsLoading {
		t.Fatalf("expected initializing and loading, got %+v", snap)
	}
}

func TestLoginEmptyPasswordMakesNoCall(t *testing.T) {
	h := newHarness(t)
	h.ready(t)

	res := h.mgr.Login(context.Background(), "user@x.com", "")
	if res.Success {
		t.Fatal("expected failure")
	}
	if !errors.Is(res.Err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", res.Err)
	}
	if res.Fields["password"] != "Password is required" {
		t.Fatalf("unexpected fields %v", res.Fields)
	}
	if n := h.api.total(); n != 0 {
		t.Fatalf("expected no api calls, got %d", n)
	}
}

func TestLoginReportsEveryInvalidField(t *testing.T) {
	h := newHarness(t)
	h.ready(t)

	res := h.mgr.Login(context.Background(), "not-an-email", "")
	if len(res.Fields) != 2 {
		t.Fatalf("expected two field errors, got %v", res.Fields)
	}
	if !errors.Is(res.Err, ErrInvalidEmail) {
		t.Fatalf("expected invalid email first, got %v", res.Err)
	}
}

func TestVerifyOtpShortCodeMakesNoCall(t *testing.T) {
	h := newHarness(t)
	h.ready(t)

	res := h.mgr.VerifyOtp(context.Background(), "user@x.com", "123")
	if res.Success || !errors.Is(res.Err, ErrInvalidOtp) || !errors.Is(res.Err, ErrValidation) {
		t.Fatalf("expected local otp rejection, got %+v", res)
	}
	if n := h.api.total(); n != 0 {
		t.Fatalf("expected no api calls, got %d", n)
	}
}

func TestCompleteRegistrationWeakPasswordMakesNoCall(t *testing.T) {
	h := newHarness(t)
	h.ready(t)

	res := h.mgr.CompleteRegistration(context.Background(), "user@x.com", "weak", "weak")
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Message != "Password must be at least 8 characters long" {
		t.Fatalf("unexpected message %q", res.Message)
	}
	if !errors.Is(res.Err, ErrWeakPassword) {
		t.Fatalf("expected weak password, got %v", res.Err)
	}
	if n := h.api.total(); n != 0 {
		t.Fatalf("expected no api calls, got %d", n)
	}
}

func TestOtpLoginStoresTokenAndUser(t *testing.T) {
	h := newHarness(t)
	h.ready(t)
	ctx := context.Background()

	res := h.mgr.RequestOtp(ctx, " Agent@Example.com ")
	if !res.Success {
		t.Fatalf("request otp: %s", res.Message)
	}
	snap := h.mgr.Snapshot()
	if snap.Status != StatusOtpPending || snap.PendingEmail != "agent@example.com" {
		t.Fatalf("expected otp pending for normalized email, got %+v", snap)
	}

	res = h.mgr.VerifyOtp(ctx, snap.PendingEmail, "482913")
	if !res.Success {
		t.Fatalf("verify otp: %s", res.Message)
	}
	snap = h.mgr.Snapshot()
	if snap.Status != StatusAuthenticated || snap.Token != h.api.token {
		t.Fatalf("expected authenticated, got %+v", snap)
	}
	if !reflect.DeepEqual(*snap.User, h.api.user) {
		t.Fatalf("user mismatch: %+v", snap.User)
	}
	if snap.PendingEmail != "" {
		t.Fatalf("pending email should be cleared, got %q", snap.PendingEmail)
	}
	if got := storedToken(t, h.tokens); got != h.api.token {
		t.Fatalf("stored token %q, want %q", got, h.api.token)
	}
}

func TestRejectedLoginLeavesSessionUnchanged(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)
	before := h.mgr.Snapshot()

	h.api.fail("LoginPassword", &apiclient.Error{Status: http.StatusUnauthorized, Message: "Invalid email or password"})
	res := h.mgr.Login(context.Background(), "other@example.com", "Wrong#123")
	if res.Success {
		t.Fatal("expected failure")
	}
	if !errors.Is(res.Err, ErrRemoteRejected) || !errors.Is(res.Err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", res.Err)
	}
	if res.Message != "Invalid email or password" {
		t.Fatalf("server message should pass through, got %q", res.Message)
	}
	if after := h.mgr.Snapshot(); !reflect.DeepEqual(before, after) {
		t.Fatalf("session changed on failure: before %+v after %+v", before, after)
	}
	if got := storedToken(t, h.tokens); got != h.api.token {
		t.Fatalf("stored token changed to %q", got)
	}
}

func TestNetworkFailureUsesConnectivityMessage(t *testing.T) {
	h := newHarness(t)
	h.ready(t)

	h.api.fail("SendOTP", errConnRefused)
	res := h.mgr.RequestOtp(context.Background(), "agent@example.com")
	if !errors.Is(res.Err, ErrNetwork) {
		t.Fatalf("expected network error, got %v", res.Err)
	}
	if res.Message != networkMessage {
		t.Fatalf("unexpected message %q", res.Message)
	}
	if h.mgr.Snapshot().PendingEmail != "" {
		t.Fatal("pending email must not be set on failure")
	}
}

func TestLogoutClearsEvenWhenRemoteFails(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)

	h.api.fail("Logout", errConnRefused)
	res := h.mgr.Logout(context.Background())
	if !res.Success {
		t.Fatalf("logout should always succeed, got %+v", res)
	}
	snap := h.mgr.Snapshot()
	if snap.Status != StatusAnonymous || snap.Token != "" || snap.User != nil {
		t.Fatalf("expected cleared session, got %+v", snap)
	}
	if got := storedToken(t, h.tokens); got != "" {
		t.Fatalf("token should be removed, got %q", got)
	}
	if h.api.count("Logout") != 1 {
		t.Fatalf("expected one remote logout, got %d", h.api.count("Logout"))
	}
}

func TestLogoutWhenAnonymousSkipsRemoteCall(t *testing.T) {
	h := newHarness(t)
	h.ready(t)

	if res := h.mgr.Logout(context.Background()); !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if h.api.count("Logout") != 0 {
		t.Fatal("no token, no remote logout")
	}
}

func TestUpdateProfileEmptyPatchKeepsUser(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)
	before := h.mgr.Snapshot().User

	res := h.mgr.UpdateUserProfile(context.Background(), apiclient.ProfilePatch{})
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if after := h.mgr.Snapshot().User; !reflect.DeepEqual(before, after) {
		t.Fatalf("user changed: %+v -> %+v", before, after)
	}
}

func TestUpdateProfileAppliesServerProfile(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)

	bank := "HDFC Bank"
	ifsc := "HDFC0001234"
	res := h.mgr.UpdateUserProfile(context.Background(), apiclient.ProfilePatch{BankName: &bank, IFSCCode: &ifsc})
	if !res.Success || res.Message != "Profile updated successfully" {
		t.Fatalf("unexpected result %+v", res)
	}
	user := h.mgr.Snapshot().User
	if user.BankName != bank || user.IFSCCode != ifsc || user.Name != "Ravi Kumar" {
		t.Fatalf("profile not merged: %+v", user)
	}
}

func TestUpdateProfileValidatesLocally(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)

	acct, confirm := "123456789", "123456780"
	res := h.mgr.UpdateUserProfile(context.Background(), apiclient.ProfilePatch{AccountNumber: &acct, ConfirmAccountNumber: &confirm})
	if res.Success || res.Fields["confirmAccountNumber"] == "" {
		t.Fatalf("expected account mismatch, got %+v", res)
	}
	if h.api.count("UpdateProfile") != 0 {
		t.Fatal("invalid patch must not be sent")
	}
}

func TestUpdateProfileRequiresSession(t *testing.T) {
	h := newHarness(t)
	h.ready(t)

	name := "New Name"
	res := h.mgr.UpdateUserProfile(context.Background(), apiclient.ProfilePatch{Name: &name})
	if !errors.Is(res.Err, ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %v", res.Err)
	}
}

func TestRestoreWithValidToken(t *testing.T) {
	h := newHarness(t)
	if err := h.tokens.Save(context.Background(), h.api.token); err != nil {
		t.Fatalf("seed token: %v", err)
	}

	res := h.mgr.Restore(context.Background())
	if !res.Success {
		t.Fatalf("restore failed: %+v", res)
	}
	snap := h.mgr.Snapshot()
	if snap.Status != StatusAuthenticated || snap.IsLoading {
		t.Fatalf("expected authenticated and idle, got %+v", snap)
	}
}

func TestRestoreDiscardsRejectedToken(t *testing.T) {
	h := newHarness(t)
	if err := h.tokens.Save(context.Background(), "stale-token"); err != nil {
		t.Fatalf("seed token: %v", err)
	}

	res := h.mgr.Restore(context.Background())
	if res.Success || !errors.Is(res.Err, ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %+v", res)
	}
	snap := h.mgr.Snapshot()
	if snap.Status != StatusAnonymous || snap.Token != "" {
		t.Fatalf("expected anonymous, got %+v", snap)
	}
	if got := storedToken(t, h.tokens); got != "" {
		t.Fatalf("stale token should be removed, got %q", got)
	}
}

func TestRestoreDiscardsTokenWhenServerUnreachable(t *testing.T) {
	h := newHarness(t)
	if err := h.tokens.Save(context.Background(), h.api.token); err != nil {
		t.Fatalf("seed token: %v", err)
	}
	h.api.fail("Profile", errConnRefused)

	res := h.mgr.Restore(context.Background())
	if res.Success || !errors.Is(res.Err, ErrNetwork) {
		t.Fatalf("expected network failure, got %+v", res)
	}
	snap := h.mgr.Snapshot()
	if snap.Status != StatusAnonymous || snap.Token != "" || snap.User != nil || snap.IsLoading {
		t.Fatalf("expected idle anonymous session, got %+v", snap)
	}
	if got := storedToken(t, h.tokens); got != "" {
		t.Fatalf("token should be removed, got %q", got)
	}
}

func TestRestoreIsInitializingUntilProfileArrives(t *testing.T) {
	h := newHarness(t)
	if err := h.tokens.Save(context.Background(), h.api.token); err != nil {
		t.Fatalf("seed token: %v", err)
	}
	h.api.entered = make(chan struct{})
	h.api.gate = make(chan struct{})

	done := make(chan Result)
	go func() { done <- h.mgr.Restore(context.Background()) }()
	<-h.api.entered

	snap := h.mgr.Snapshot()
	if snap.Status != StatusInitializing || !snap.IsLoading {
		t.Fatalf("expected initializing and loading during restore, got %+v", snap)
	}

	close(h.api.gate)
	if res := <-done; !res.Success {
		t.Fatalf("restore failed: %+v", res)
	}
	if snap := h.mgr.Snapshot(); snap.Status != StatusAuthenticated || snap.IsLoading {
		t.Fatalf("expected authenticated and idle, got %+v", snap)
	}
}

func TestRestoreReloadsRegistrationDraft(t *testing.T) {
	h := newHarness(t)
	draft := store.PendingRegistration{Name: "Asha", Email: "asha@example.com", Phone: "9123456780", OtpVerified: true, CreatedAt: time.Now()}
	if err := h.pending.Save(context.Background(), draft); err != nil {
		t.Fatalf("seed draft: %v", err)
	}

	h.mgr.Restore(context.Background())
	snap := h.mgr.Snapshot()
	if snap.Status != StatusRegistrationOtpVerified || snap.Registration == nil || snap.Registration.Email != draft.Email {
		t.Fatalf("expected draft to be restored, got %+v", snap)
	}
}

func TestRegistrationFlow(t *testing.T) {
	h := newHarness(t)
	h.ready(t)
	ctx := context.Background()

	res := h.mgr.RegisterStep1(ctx, "Asha Rao", "asha@example.com", "+91 98765-43210")
	if !res.Success {
		t.Fatalf("step1: %+v", res)
	}
	snap := h.mgr.Snapshot()
	if snap.Status != StatusRegistrationStarted || snap.Registration.Phone != "9876543210" {
		t.Fatalf("expected started draft with normalized phone, got %+v", snap)
	}

	res = h.mgr.VerifyRegistrationOtp(ctx, "asha@example.com", "123456", "/register/password")
	if !res.Success || res.Next != "/register/password" {
		t.Fatalf("verify: %+v", res)
	}
	if res.Registration == nil || res.Registration.Name != "Ravi K" || !res.Registration.OtpVerified {
		t.Fatalf("server details should merge into draft, got %+v", res.Registration)
	}
	if h.mgr.Snapshot().Status != StatusRegistrationOtpVerified {
		t.Fatalf("expected otp verified, got %s", h.mgr.Snapshot().Status)
	}
	stored, err := h.pending.Load(ctx)
	if err != nil || stored == nil || !stored.OtpVerified {
		t.Fatalf("draft not persisted: %+v %v", stored, err)
	}

	res = h.mgr.CompleteRegistration(ctx, "asha@example.com", "Str0ng#Pass", "Str0ng#Pass")
	if !res.Success {
		t.Fatalf("complete: %+v", res)
	}
	snap = h.mgr.Snapshot()
	if snap.Status != StatusAuthenticated || snap.Registration != nil {
		t.Fatalf("expected authenticated without draft, got %+v", snap)
	}
	if stored, _ := h.pending.Load(ctx); stored != nil {
		t.Fatalf("draft should be removed, got %+v", stored)
	}
}

func TestRegisterStep1FailureKeepsDraft(t *testing.T) {
	h := newHarness(t)
	h.ready(t)
	ctx := context.Background()

	if res := h.mgr.RegisterStep1(ctx, "Asha", "asha@example.com", "9876543210"); !res.Success {
		t.Fatalf("step1: %+v", res)
	}
	h.api.fail("RegisterStep1", &apiclient.Error{Status: http.StatusConflict, Message: "Email already registered"})
	res := h.mgr.RegisterStep1(ctx, "Other", "other@example.com", "9876543210")
	if res.Success || res.Message != "Email already registered" {
		t.Fatalf("expected rejection, got %+v", res)
	}
	if got := h.mgr.Snapshot().Registration; got == nil || got.Email != "asha@example.com" {
		t.Fatalf("earlier draft should survive, got %+v", got)
	}
}

func TestVerifyRegistrationOtpRequiresSixDigits(t *testing.T) {
	h := newHarness(t)
	h.ready(t)

	res := h.mgr.VerifyRegistrationOtp(context.Background(), "asha@example.com", "1234", "")
	if res.Success || !errors.Is(res.Err, ErrInvalidOtp) {
		t.Fatalf("expected invalid otp, got %+v", res)
	}
	if h.api.total() != 0 {
		t.Fatal("expected no api calls")
	}
}

func TestCompleteRegistrationRequiresVerifiedDraft(t *testing.T) {
	h := newHarness(t)
	h.ready(t)
	ctx := context.Background()

	h.mgr.RegisterStep1(ctx, "Asha", "asha@example.com", "9876543210")
	res := h.mgr.CompleteRegistration(ctx, "asha@example.com", "Str0ng#Pass", "Str0ng#Pass")
	if res.Success || !errors.Is(res.Err, ErrValidation) {
		t.Fatalf("expected validation failure, got %+v", res)
	}
	if h.api.count("CompleteRegistration") != 0 {
		t.Fatal("unverified draft must not be completed")
	}
}

func TestCompleteRegistrationPasswordMismatch(t *testing.T) {
	h := newHarness(t)
	h.ready(t)

	res := h.mgr.CompleteRegistration(context.Background(), "asha@example.com", "Str0ng#Pass", "Str0ng#Pas")
	if !errors.Is(res.Err, ErrPasswordMismatch) || res.Fields["confirmPassword"] == "" {
		t.Fatalf("expected mismatch on confirmPassword, got %+v", res)
	}
}

func TestAbandonRegistration(t *testing.T) {
	h := newHarness(t)
	h.ready(t)
	ctx := context.Background()

	h.mgr.RegisterStep1(ctx, "Asha", "asha@example.com", "9876543210")
	h.mgr.AbandonRegistration(ctx)
	if snap := h.mgr.Snapshot(); snap.Status != StatusAnonymous || snap.Registration != nil {
		t.Fatalf("expected anonymous, got %+v", snap)
	}
	if stored, _ := h.pending.Load(ctx); stored != nil {
		t.Fatal("stored draft should be removed")
	}
}

func TestRegisterLegacyMovesToOtpPending(t *testing.T) {
	h := newHarness(t)
	h.ready(t)

	res := h.mgr.RegisterLegacy(context.Background(), "Asha", "asha@example.com", "9876543210")
	if !res.Success {
		t.Fatalf("legacy register: %+v", res)
	}
	if snap := h.mgr.Snapshot(); snap.Status != StatusOtpPending || snap.PendingEmail != "asha@example.com" {
		t.Fatalf("expected otp pending, got %+v", snap)
	}
}

func TestResetPasswordClassifiesTokenErrors(t *testing.T) {
	h := newHarness(t)
	h.ready(t)
	ctx := context.Background()

	res := h.mgr.ResetPassword(ctx, "", "Str0ng#Pass", "Str0ng#Pass")
	if !errors.Is(res.Err, ErrInvalidToken) || h.api.total() != 0 {
		t.Fatalf("empty token should fail locally, got %+v", res)
	}

	h.api.fail("ResetPassword", &apiclient.Error{Status: http.StatusGone, Message: "reset token expired"})
	res = h.mgr.ResetPassword(ctx, "abc", "Str0ng#Pass", "Str0ng#Pass")
	if !errors.Is(res.Err, ErrExpiredToken) {
		t.Fatalf("expected expired token, got %v", res.Err)
	}

	h.api.fail("ResetPassword", &apiclient.Error{Status: http.StatusBadRequest, Message: "invalid reset token"})
	res = h.mgr.ResetPassword(ctx, "abc", "Str0ng#Pass", "Str0ng#Pass")
	if !errors.Is(res.Err, ErrInvalidToken) {
		t.Fatalf("expected invalid token, got %v", res.Err)
	}
	if h.mgr.Snapshot().Status != StatusAnonymous {
		t.Fatal("reset must not change session status")
	}
}

func TestForgotPassword(t *testing.T) {
	h := newHarness(t)
	h.ready(t)

	if res := h.mgr.ForgotPassword(context.Background(), "bad"); res.Success || h.api.total() != 0 {
		t.Fatalf("invalid email should fail locally, got %+v", res)
	}
	if res := h.mgr.ForgotPassword(context.Background(), "agent@example.com"); !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
}

func TestConcurrentCallOfSameOpIsBusy(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)
	h.api.entered = make(chan struct{})
	h.api.gate = make(chan struct{})

	done := make(chan Result)
	go func() { done <- h.mgr.RefreshProfile(context.Background()) }()
	<-h.api.entered

	if !h.mgr.Snapshot().IsLoading {
		t.Fatal("expected loading while refresh is in flight")
	}
	second := h.mgr.RefreshProfile(context.Background())
	if !errors.Is(second.Err, ErrBusy) {
		t.Fatalf("expected busy, got %+v", second)
	}

	close(h.api.gate)
	if first := <-done; !first.Success {
		t.Fatalf("first refresh failed: %+v", first)
	}
	if h.api.count("Profile") != 1 {
		t.Fatalf("expected one profile call, got %d", h.api.count("Profile"))
	}
	if h.mgr.Snapshot().IsLoading {
		t.Fatal("loading should be cleared")
	}
}

func TestFailedProfileUpdateKeepsCachedUser(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind error
	}{
		{"rejected", &apiclient.Error{Method: http.MethodPut, Path: "/user/profile", Status: http.StatusUnprocessableEntity, Message: "invalid IFSC code"}, ErrRemoteRejected},
		{"server error", &apiclient.Error{Method: http.MethodPut, Path: "/user/profile", Status: http.StatusInternalServerError, Message: "internal server error"}, ErrRemoteRejected},
		{"network", errConnRefused, ErrNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.signIn(t)
			before := h.mgr.Snapshot()

			h.api.fail("UpdateProfile", tt.err)
			name := "Changed Name"
			res := h.mgr.UpdateUserProfile(context.Background(), apiclient.ProfilePatch{Name: &name})
			if res.Success || !errors.Is(res.Err, tt.kind) {
				t.Fatalf("expected %v, got %+v", tt.kind, res)
			}

			after := h.mgr.Snapshot()
			if !reflect.DeepEqual(after.User, before.User) || after.Token != before.Token {
				t.Fatalf("session changed on failure: before %+v after %+v", before, after)
			}
			if after.Status != StatusAuthenticated {
				t.Fatalf("expected authenticated, got %s", after.Status)
			}
			if got := storedToken(t, h.tokens); got != before.Token {
				t.Fatalf("stored token changed to %q", got)
			}
		})
	}
}

func TestUpdateProfileRacingRefresh(t *testing.T) {
	for _, updateFirst := range []bool{true, false} {
		name := "refresh answers first"
		if updateFirst {
			name = "update answers first"
		}
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			h.signIn(t)
			h.api.entered = make(chan struct{})
			updateGate, profileGate := make(chan struct{}), make(chan struct{})
			h.api.gates = map[string]chan struct{}{"UpdateProfile": updateGate, "Profile": profileGate}
			ctx := context.Background()

			newName := "New Name"
			updated := make(chan Result)
			go func() {
				updated <- h.mgr.UpdateUserProfile(ctx, apiclient.ProfilePatch{Name: &newName})
			}()
			<-h.api.entered

			refreshed := make(chan Result)
			go func() { refreshed <- h.mgr.RefreshProfile(ctx) }()
			<-h.api.entered

			var upd, ref Result
			if updateFirst {
				close(updateGate)
				upd = <-updated
				close(profileGate)
				ref = <-refreshed
			} else {
				close(profileGate)
				ref = <-refreshed
				close(updateGate)
				upd = <-updated
			}

			if !upd.Success {
				t.Fatalf("applied update reported as failed: %+v", upd)
			}
			if updateFirst && !errors.Is(ref.Err, ErrSuperseded) {
				t.Fatalf("older refresh should be superseded, got %+v", ref)
			}
			if !updateFirst && !ref.Success {
				t.Fatalf("refresh failed: %+v", ref)
			}
			if got := h.mgr.Snapshot().User.Name; got != newName {
				t.Fatalf("expected cached name %q, got %q", newName, got)
			}
		})
	}
}

func TestLogoutDuringProfileUpdateIsNotUndone(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)
	h.api.entered = make(chan struct{})
	h.api.gate = make(chan struct{})

	name := "Late Name"
	done := make(chan Result)
	go func() {
		done <- h.mgr.UpdateUserProfile(context.Background(), apiclient.ProfilePatch{Name: &name})
	}()
	<-h.api.entered

	if res := h.mgr.Logout(context.Background()); !res.Success {
		t.Fatalf("logout: %+v", res)
	}
	close(h.api.gate)

	res := <-done
	if !errors.Is(res.Err, ErrSuperseded) {
		t.Fatalf("expected superseded, got %+v", res)
	}
	if snap := h.mgr.Snapshot(); snap.User != nil || snap.Status != StatusAnonymous {
		t.Fatalf("late response must not resurrect the session, got %+v", snap)
	}
}

func TestSubscribersSeeStateChanges(t *testing.T) {
	h := newHarness(t)

	var (
		mu       sync.Mutex
		statuses []Status
	)
	unsubscribe := h.mgr.Subscribe(func(s Snapshot) {
		mu.Lock()
		statuses = append(statuses, s.Status)
		mu.Unlock()
	})

	h.ready(t)
	h.mgr.Login(context.Background(), "agent@example.com", "Secret#123")
	unsubscribe()
	h.mgr.Logout(context.Background())

	mu.Lock()
	defer mu.Unlock()
	if len(statuses) == 0 {
		t.Fatal("expected notifications")
	}
	var sawAuthenticating bool
	for _, s := range statuses {
		if s == StatusAuthenticating {
			sawAuthenticating = true
		}
	}
	if !sawAuthenticating {
		t.Fatalf("expected authenticating during login, got %v", statuses)
	}
	if last := statuses[len(statuses)-1]; last != StatusAuthenticated {
		t.Fatalf("unsubscribed listener saw logout: %v", statuses)
	}
}

func TestLogoutWhileAnotherLogoutRunsClearsSession(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)

	// An earlier logout has started but not yet cleared anything.
	if !h.mgr.begin(OpLogout) {
		t.Fatal("logout already running")
	}
	res := h.mgr.Logout(context.Background())
	h.mgr.end(OpLogout)

	if !res.Success {
		t.Fatalf("logout: %+v", res)
	}
	if snap := h.mgr.Snapshot(); snap.Status != StatusAnonymous || snap.Token != "" || snap.User != nil {
		t.Fatalf("expected cleared session on return, got %+v", snap)
	}
	if got := storedToken(t, h.tokens); got != "" {
		t.Fatalf("token should be removed, got %q", got)
	}
	if n := h.api.count("Logout"); n != 1 {
		t.Fatalf("expected one remote logout, got %d", n)
	}
}

func TestConcurrentLogoutsRevokeOnce(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)
	h.api.entered = make(chan struct{})
	gate := make(chan struct{})
	h.api.gates = map[string]chan struct{}{"Logout": gate}

	done := make(chan Result)
	go func() { done <- h.mgr.Logout(context.Background()) }()
	<-h.api.entered

	if res := h.mgr.Logout(context.Background()); !res.Success {
		t.Fatalf("second logout: %+v", res)
	}
	if snap := h.mgr.Snapshot(); snap.Authenticated() {
		t.Fatalf("expected signed out, got %+v", snap)
	}

	close(gate)
	if res := <-done; !res.Success {
		t.Fatalf("first logout: %+v", res)
	}
	if n := h.api.count("Logout"); n != 1 {
		t.Fatalf("expected one remote logout, got %d", n)
	}
}

func TestVerifyRegistrationOtpRequiresVerifiedFlag(t *testing.T) {
	h := newHarness(t)
	h.ready(t)
	ctx := context.Background()
	if res := h.mgr.RegisterStep1(ctx, "Ravi Kumar", "agent@example.com", "9876543210"); !res.Success {
		t.Fatalf("step1: %+v", res)
	}

	h.api.unverified = true
	res := h.mgr.VerifyRegistrationOtp(ctx, "agent@example.com", "123456", "set-password")
	if res.Success || !errors.Is(res.Err, ErrInvalidOtp) {
		t.Fatalf("expected invalid otp, got %+v", res)
	}
	snap := h.mgr.Snapshot()
	if snap.Status != StatusRegistrationStarted || snap.Registration == nil || snap.Registration.OtpVerified {
		t.Fatalf("draft must stay unverified, got %+v", snap)
	}
}
