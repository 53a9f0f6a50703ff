package session

import (
	"github.com/estate-link/estate_link/internal/apiclient"
	"github.com/estate-link/estate_link/internal/store"
)

// Status is the externally visible session state.
type Status string

const (
	StatusInitializing            Status = "initializing"
	StatusAnonymous               Status = "anonymous"
	StatusAuthenticating          Status = "authenticating"
	StatusOtpPending              Status = "otp_pending"
	StatusRegistrationStarted     Status = "registration_started"
	StatusRegistrationOtpVerified Status = "registration_otp_verified"
	StatusAuthenticated           Status = "authenticated"
)

// Op names a session operation. At most one call per Op runs at a time.
type Op string

const (
	OpRestore               Op = "restore"
	OpLogin                 Op = "login"
	OpRequestOtp            Op = "request_otp"
	OpResendOtp             Op = "resend_otp"
	OpVerifyOtp             Op = "verify_otp"
	OpRegisterStep1         Op = "register_step1"
	OpRegisterLegacy        Op = "register_legacy"
	OpVerifyRegistrationOtp Op = "verify_registration_otp"
	OpCompleteRegistration  Op = "complete_registration"
	OpAbandonRegistration   Op = "abandon_registration"
	OpRefreshProfile        Op = "refresh_profile"
	OpUpdateProfile         Op = "update_profile"
	OpLogout                Op = "logout"
	OpForgotPassword        Op = "forgot_password"
	OpResetPassword         Op = "reset_password"
)

// authenticatingOps move an anonymous session into StatusAuthenticating while in flight.
var authenticatingOps = []Op{OpLogin, OpRequestOtp, OpVerifyOtp, OpCompleteRegistration}

// Snapshot is an immutable view of the session.
type Snapshot struct {
	Status       Status
	Token        string
	User         *apiclient.User
	IsLoading    bool
	PendingEmail string
	Registration *store.PendingRegistration
}

// Authenticated reports whether a validated user is present.
func (s Snapshot) Authenticated() bool {
	return s.Token != "" && s.User != nil
}

// state is the mutable session owned by Manager.
type state struct {
	restoring    bool
	token        string
	user         *apiclient.User
	pendingEmail string
	registration *store.PendingRegistration
}

func (s *state) clearAuth() {
	s.token = ""
	s.user = nil
}

func (s *state) status(inFlight map[Op]bool) Status {
	switch {
	case s.restoring:
		return StatusInitializing
	case s.token != "" && s.user != nil:
		return StatusAuthenticated
	}
	for _, op := range authenticatingOps {
		if inFlight[op] {
			return StatusAuthenticating
		}
	}
	switch {
	case s.registration != nil && s.registration.OtpVerified:
		return StatusRegistrationOtpVerified
	case s.registration != nil:
		return StatusRegistrationStarted
	case s.pendingEmail != "":
		return StatusOtpPending
	}
	return StatusAnonymous
}
