package authapi

// Endpoints holds the paths of the auth endpoints, relative to the API
// base URL.
type Endpoints struct {
	Login          string `yaml:"login"`
	Refresh        string `yaml:"refresh"`
	ForgotPassword string `yaml:"forgot_password"`
	ResetPassword  string `yaml:"reset_password"`
	ConfirmEmail   string `yaml:"confirm_email"`
	ResendOTP      string `yaml:"resend_otp"`
	VerifyOTP      string `yaml:"verify_otp"`
}

// DefaultEndpoints returns the CRM backend's paths.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Login:          "/auth/login",
		Refresh:        "/auth/refresh-token",
		ForgotPassword: "/auth/forgot-password",
		ResetPassword:  "/auth/reset-password",
		ConfirmEmail:   "/auth/confirm-email",
		ResendOTP:      "/auth/resend-otp",
		VerifyOTP:      "/auth/verify-otp",
	}
}

// Public lists every configured path. None of them carries a bearer token
// and none of them may trigger a refresh.
func (e Endpoints) Public() []string {
	all := []string{
		e.Login,
		e.Refresh,
		e.ForgotPassword,
		e.ResetPassword,
		e.ConfirmEmail,
		e.ResendOTP,
		e.VerifyOTP,
	}
	out := make([]string, 0, len(all))
	for _, p := range all {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// withDefaults fills empty paths from DefaultEndpoints.
func (e Endpoints) withDefaults() Endpoints {
	d := DefaultEndpoints()
	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	fill(&e.Login, d.Login)
	fill(&e.Refresh, d.Refresh)
	fill(&e.ForgotPassword, d.ForgotPassword)
	fill(&e.ResetPassword, d.ResetPassword)
	fill(&e.ConfirmEmail, d.ConfirmEmail)
	fill(&e.ResendOTP, d.ResendOTP)
	fill(&e.VerifyOTP, d.VerifyOTP)
	return e
}
