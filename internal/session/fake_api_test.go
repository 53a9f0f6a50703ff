package session

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/estate-link/estate_link/internal/apiclient"
)

var errConnRefused = errors.New("dial tcp 127.0.0.1:1: connect: connection refused")

// fakeAPI is an in-memory stand-in for the REST API.
type fakeAPI struct {
	mu    sync.Mutex
	calls map[string]int
	errs  map[string]error

	token string
	user  apiclient.User

	// gate, when set, makes Profile and UpdateProfile wait for a value
	// after signalling entered. gates overrides it per method and is the
	// only way to hold Logout.
	entered chan struct{}
	gate    chan struct{}
	gates   map[string]chan struct{}

	// unverified makes VerifyRegistrationOTP answer success without verified.
	unverified bool
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		calls: make(map[string]int),
		errs:  make(map[string]error),
		token: "tok-abc",
		user: apiclient.User{
			ID:         "u-1",
			Email:      "agent@example.com",
			Name:       "Ravi Kumar",
			Phone:      "9876543210",
			ReraNumber: "PRM/KA/RERA/1251/309/AG/180524/004512",
			Documents:  []apiclient.Document{{ID: "d1", Name: "RERA certificate", URL: "https://cdn.example.com/rera.pdf"}},
		},
	}
}

func (f *fakeAPI) record(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
	return f.errs[name]
}

func (f *fakeAPI) fail(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[name] = err
}

func (f *fakeAPI) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeAPI) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeAPI) wait(name string) {
	gate := f.gate
	if g, ok := f.gates[name]; ok {
		gate = g
	}
	if gate == nil {
		return
	}
	f.entered <- struct{}{}
	<-gate
}

func (f *fakeAPI) auth() apiclient.AuthResponse {
	f.mu.Lock()
	defer f.mu.Unlock()
	return apiclient.AuthResponse{Token: f.token, User: f.user.Clone()}
}

func (f *fakeAPI) SendOTP(_ context.Context, _ string) (apiclient.Ack, error) {
	if err := f.record("SendOTP"); err != nil {
		return apiclient.Ack{}, err
	}
	return apiclient.Ack{Success: true}, nil
}

func (f *fakeAPI) VerifyOTP(_ context.Context, _, _ string) (apiclient.AuthResponse, error) {
	if err := f.record("VerifyOTP"); err != nil {
		return apiclient.AuthResponse{}, err
	}
	return f.auth(), nil
}

func (f *fakeAPI) Register(_ context.Context, _ apiclient.RegisterRequest) (apiclient.Ack, error) {
	if err := f.record("Register"); err != nil {
		return apiclient.Ack{}, err
	}
	return apiclient.Ack{Success: true}, nil
}

func (f *fakeAPI) RegisterStep1(_ context.Context, _ apiclient.RegisterRequest) (apiclient.Ack, error) {
	if err := f.record("RegisterStep1"); err != nil {
		return apiclient.Ack{}, err
	}
	return apiclient.Ack{Success: true, Message: "OTP sent"}, nil
}

func (f *fakeAPI) VerifyRegistrationOTP(_ context.Context, _, _ string) (apiclient.RegistrationVerification, error) {
	if err := f.record("VerifyRegistrationOTP"); err != nil {
		return apiclient.RegistrationVerification{}, err
	}
	if f.unverified {
		return apiclient.RegistrationVerification{Success: true, Message: "OTP accepted"}, nil
	}
	return apiclient.RegistrationVerification{Success: true, Verified: true, Name: "Ravi K", Phone: "9876543210"}, nil
}

func (f *fakeAPI) CompleteRegistration(_ context.Context, _, _ string) (apiclient.AuthResponse, error) {
	if err := f.record("CompleteRegistration"); err != nil {
		return apiclient.AuthResponse{}, err
	}
	return f.auth(), nil
}

func (f *fakeAPI) LoginPassword(_ context.Context, _, _ string) (apiclient.AuthResponse, error) {
	if err := f.record("LoginPassword"); err != nil {
		return apiclient.AuthResponse{}, err
	}
	return f.auth(), nil
}

func (f *fakeAPI) Profile(_ context.Context, token string) (apiclient.User, error) {
	if err := f.record("Profile"); err != nil {
		return apiclient.User{}, err
	}
	f.wait("Profile")
	f.mu.Lock()
	defer f.mu.Unlock()
	if token != f.token {
		return apiclient.User{}, &apiclient.Error{Method: http.MethodGet, Path: "/user/profile", Status: http.StatusUnauthorized, Message: "invalid token"}
	}
	return f.user.Clone(), nil
}

func (f *fakeAPI) UpdateProfile(_ context.Context, token string, patch apiclient.ProfilePatch) (apiclient.User, error) {
	if err := f.record("UpdateProfile"); err != nil {
		return apiclient.User{}, err
	}
	f.wait("UpdateProfile")
	f.mu.Lock()
	defer f.mu.Unlock()
	if token != f.token {
		return apiclient.User{}, &apiclient.Error{Method: http.MethodPut, Path: "/user/profile", Status: http.StatusUnauthorized, Message: "invalid token"}
	}
	f.user = patch.Apply(f.user)
	return f.user.Clone(), nil
}

func (f *fakeAPI) Logout(_ context.Context, _ string) error {
	if err := f.record("Logout"); err != nil {
		return err
	}
	if gate := f.gates["Logout"]; gate != nil {
		f.entered <- struct{}{}
		<-gate
	}
	return nil
}

func (f *fakeAPI) ResendOTP(_ context.Context, _ string, _ apiclient.Purpose) (apiclient.Ack, error) {
	if err := f.record("ResendOTP"); err != nil {
		return apiclient.Ack{}, err
	}
	return apiclient.Ack{Success: true}, nil
}

func (f *fakeAPI) ForgotPassword(_ context.Context, _ string) (apiclient.Ack, error) {
	if err := f.record("ForgotPassword"); err != nil {
		return apiclient.Ack{}, err
	}
	return apiclient.Ack{Success: true}, nil
}

func (f *fakeAPI) ResetPassword(_ context.Context, _, _ string) (apiclient.Ack, error) {
	if err := f.record("ResetPassword"); err != nil {
		return apiclient.Ack{}, err
	}
	return apiclient.Ack{Success: true}, nil
}
