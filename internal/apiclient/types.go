package apiclient

// Purpose selects which OTP flow a resend applies to.
type Purpose string

const (
	PurposeLogin        Purpose = "login"
	PurposeRegistration Purpose = "registration"
)

// Valid reports whether p is a purpose the API accepts.
func (p Purpose) Valid() bool {
	return p == PurposeLogin || p == PurposeRegistration
}

// Document references a file attached to a broker profile.
type Document struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// User is the broker profile as returned by the API. Only ID and Email are
// guaranteed; the rest fill in as the broker completes their profile.
type User struct {
	ID                   string     `json:"id"`
	Email                string     `json:"email"`
	Name                 string     `json:"name,omitempty"`
	Phone                string     `json:"phone,omitempty"`
	Address              string     `json:"address,omitempty"`
	Image                string     `json:"image,omitempty"`
	ReraNumber           string     `json:"reraNumber,omitempty"`
	Documents            []Document `json:"documents,omitempty"`
	BankName             string     `json:"bankName,omitempty"`
	AccountNumber        string     `json:"accountNumber,omitempty"`
	ConfirmAccountNumber string     `json:"confirmAccountNumber,omitempty"`
	IFSCCode             string     `json:"ifscCode,omitempty"`
	RecipientName        string     `json:"recipientName,omitempty"`
}

// Clone returns a copy that shares no slices with u.
func (u User) Clone() User {
	if u.Documents != nil {
		docs := make([]Document, len(u.Documents))
		copy(docs, u.Documents)
		u.Documents = docs
	}
	return u
}

// ProfileCompletion returns the fraction of optional profile fields that are filled.
func (u User) ProfileCompletion() float64 {
	fields := []string{
		u.Name, u.Phone, u.Address, u.Image, u.ReraNumber,
		u.BankName, u.AccountNumber, u.IFSCCode, u.RecipientName,
	}
	filled := 0
	for _, f := range fields {
		if f != "" {
			filled++
		}
	}
	total := len(fields) + 1
	if len(u.Documents) > 0 {
		filled++
	}
	return float64(filled) / float64(total)
}

// ProfilePatch is a partial profile update. Nil fields are left untouched.
type ProfilePatch struct {
	Name                 *string     `json:"name,omitempty"`
	Phone                *string     `json:"phone,omitempty"`
	Address              *string     `json:"address,omitempty"`
	Image                *string     `json:"image,omitempty"`
	ReraNumber           *string     `json:"reraNumber,omitempty"`
	Documents            *[]Document `json:"documents,omitempty"`
	BankName             *string     `json:"bankName,omitempty"`
	AccountNumber        *string     `json:"accountNumber,omitempty"`
	ConfirmAccountNumber *string     `json:"confirmAccountNumber,omitempty"`
	IFSCCode             *string     `json:"ifscCode,omitempty"`
	RecipientName        *string     `json:"recipientName,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p ProfilePatch) Empty() bool {
	return p == ProfilePatch{}
}

// Apply copies every set field of p onto u.
func (p ProfilePatch) Apply(u User) User {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&u.Name, p.Name)
	set(&u.Phone, p.Phone)
	set(&u.Address, p.Address)
	set(&u.Image, p.Image)
	set(&u.ReraNumber, p.ReraNumber)
	set(&u.BankName, p.BankName)
	set(&u.AccountNumber, p.AccountNumber)
	set(&u.ConfirmAccountNumber, p.ConfirmAccountNumber)
	set(&u.IFSCCode, p.IFSCCode)
	set(&u.RecipientName, p.RecipientName)
	if p.Documents != nil {
		u.Documents = append([]Document(nil), (*p.Documents)...)
	}
	return u
}

// Ack is the generic {success,message} acknowledgement body.
type Ack struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// AuthResponse is returned by every endpoint that signs the caller in.
type AuthResponse struct {
	Token   string `json:"token"`
	User    User   `json:"user"`
	Message string `json:"message,omitempty"`
}

// RegistrationVerification is returned by POST /register/verify-otp.
type RegistrationVerification struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Verified bool   `json:"verified"`
}

// RegisterRequest starts a registration.
type RegisterRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type otpRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type resendRequest struct {
	Email   string  `json:"email"`
	Purpose Purpose `json:"purpose"`
}

type passwordRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type resetRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}
