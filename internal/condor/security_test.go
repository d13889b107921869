package condor

import (
	"testing"

	"github.com/bbockelm/cedar/security"
)

func TestGetSecurityConfigDefaults(t *testing.T) {
	t.Setenv("SEC_CLIENT_AUTHENTICATION", "")
	t.Setenv("SEC_DEFAULT_AUTHENTICATION", "")
	t.Setenv("SEC_CLIENT_AUTHENTICATION_METHODS", "")
	t.Setenv("SEC_DEFAULT_AUTHENTICATION_METHODS", "")

	secConfig := GetSecurityConfig(60000, "CLIENT")

	if secConfig.Authentication != security.SecurityOptional {
		t.Errorf("Authentication = %v, want SecurityOptional", secConfig.Authentication)
	}
	if len(secConfig.AuthMethods) != 3 {
		t.Errorf("AuthMethods = %v, want 3 default methods (FS, IDTOKENS, TOKEN)", secConfig.AuthMethods)
	}
	if len(secConfig.CryptoMethods) != 1 || secConfig.CryptoMethods[0] != security.CryptoAES {
		t.Errorf("CryptoMethods = %v, want [AES]", secConfig.CryptoMethods)
	}
}

func TestGetSecurityConfigClientOverrides(t *testing.T) {
	t.Setenv("SEC_CLIENT_AUTHENTICATION", "REQUIRED")
	t.Setenv("SEC_CLIENT_ENCRYPTION", "PREFERRED")
	t.Setenv("SEC_CLIENT_AUTHENTICATION_METHODS", "SSL,TOKEN")

	secConfig := GetSecurityConfig(60000, "CLIENT")

	if secConfig.Authentication != security.SecurityRequired {
		t.Errorf("Authentication = %v, want SecurityRequired", secConfig.Authentication)
	}
	if secConfig.Encryption != security.SecurityPreferred {
		t.Errorf("Encryption = %v, want SecurityPreferred", secConfig.Encryption)
	}
	if len(secConfig.AuthMethods) != 2 {
		t.Errorf("AuthMethods = %v, want [SSL, TOKEN]", secConfig.AuthMethods)
	}
}

func TestGetSecurityConfigOrDefaultUsesContext(t *testing.T) {
	want := security.SecurityConfig{
		Authentication: security.SecurityRequired,
		AuthMethods:    []security.AuthMethod{security.AuthToken},
	}
	ctx := WithSecurityConfig(t.Context(), want)

	got := GetSecurityConfigOrDefault(ctx, 60000, "CLIENT", "schedd.example.org")

	if got.Authentication != want.Authentication {
		t.Errorf("Authentication = %v, want %v", got.Authentication, want.Authentication)
	}
	if got.PeerName != "schedd.example.org" {
		t.Errorf("PeerName = %q, want it filled in from the call site", got.PeerName)
	}
}
