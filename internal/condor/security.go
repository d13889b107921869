package condor

import (
	"context"
	"os"
	"strings"

	"github.com/bbockelm/cedar/security"
)

// GetSecurityConfig builds a cedar SecurityConfig for talking to the AP's
// schedd. It reads overrides from the environment using the same SEC_*
// naming convention HTCondor itself uses, then falls back to the AP-side
// defaults TMS expects (FS/IDTOKENS/TOKEN, AES, all levels optional).
//
// Parameters:
//   - command: The command to be executed (from cedar/commands package)
//   - secContext: Security context ("CLIENT", "READ", "WRITE", "ADMINISTRATOR", etc.)
func GetSecurityConfig(command int, secContext string) *security.SecurityConfig {
	if secContext == "" {
		secContext = "CLIENT"
	}

	secConfig := &security.SecurityConfig{
		Command:        command,
		Authentication: mapSecurityLevel(getSecurityLevel(secContext, "AUTHENTICATION")),
		Encryption:     mapSecurityLevel(getSecurityLevel(secContext, "ENCRYPTION")),
		Integrity:      mapSecurityLevel(getSecurityLevel(secContext, "INTEGRITY")),
		AuthMethods:    mapAuthMethods(getSecurityMethods(secContext, "AUTHENTICATION_METHODS")),
		CryptoMethods:  mapCryptoMethods(getSecurityMethods(secContext, "CRYPTO_METHODS")),
	}

	for _, method := range secConfig.AuthMethods {
		if method == security.AuthSSL {
			secConfig.CertFile = os.Getenv("AUTH_SSL_CLIENT_CERTFILE")
			secConfig.KeyFile = os.Getenv("AUTH_SSL_CLIENT_KEYFILE")
			secConfig.CAFile = os.Getenv("AUTH_SSL_CLIENT_CAFILE")
			break
		}
	}
	for _, method := range secConfig.AuthMethods {
		if method == security.AuthToken || method == security.AuthIDTokens || method == security.AuthSciTokens {
			secConfig.TokenDir = os.Getenv("SEC_TOKEN_DIRECTORY")
			break
		}
	}

	return secConfig
}

// getSecurityLevel retrieves a security level setting with context and default fallback
// For example: SEC_CLIENT_AUTHENTICATION, falling back to SEC_DEFAULT_AUTHENTICATION
func getSecurityLevel(secContext, feature string) string {
	if v := os.Getenv("SEC_" + secContext + "_" + feature); v != "" {
		return v
	}
	if v := os.Getenv("SEC_DEFAULT_" + feature); v != "" {
		return v
	}
	return "OPTIONAL"
}

// getSecurityMethods retrieves a comma-separated list of security methods
func getSecurityMethods(secContext, feature string) string {
	if v := os.Getenv("SEC_" + secContext + "_" + feature); v != "" {
		return v
	}
	if v := os.Getenv("SEC_DEFAULT_" + feature); v != "" {
		return v
	}
	switch feature {
	case "AUTHENTICATION_METHODS":
		return "FS,IDTOKENS,TOKEN"
	case "CRYPTO_METHODS":
		return "AES"
	}
	return ""
}

// mapSecurityLevel converts an HTCondor security level string to a cedar SecurityLevel.
func mapSecurityLevel(level string) security.SecurityLevel {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "REQUIRED":
		return security.SecurityRequired
	case "PREFERRED":
		return security.SecurityPreferred
	case "NEVER":
		return security.SecurityNever
	default:
		return security.SecurityOptional
	}
}

// mapAuthMethods converts comma-separated HTCondor auth method names to a cedar AuthMethod slice.
func mapAuthMethods(methods string) []security.AuthMethod {
	var result []security.AuthMethod
	for _, method := range strings.Split(methods, ",") {
		method = strings.ToUpper(strings.TrimSpace(method))
		switch method {
		case "SSL":
			result = append(result, security.AuthSSL)
		case "KERBEROS":
			result = append(result, security.AuthKerberos)
		case "PASSWORD":
			result = append(result, security.AuthPassword)
		case "FS", "FS_REMOTE":
			result = append(result, security.AuthFS)
		case "IDTOKENS":
			result = append(result, security.AuthIDTokens)
		case "SCITOKENS":
			result = append(result, security.AuthSciTokens)
		case "TOKEN":
			result = append(result, security.AuthToken)
		case "ANONYMOUS":
			result = append(result, security.AuthNone)
		}
	}
	return result
}

// mapCryptoMethods converts comma-separated HTCondor crypto method names to a cedar CryptoMethod slice.
func mapCryptoMethods(methods string) []security.CryptoMethod {
	var result []security.CryptoMethod
	for _, method := range strings.Split(methods, ",") {
		switch strings.ToUpper(strings.TrimSpace(method)) {
		case "AES":
			result = append(result, security.CryptoAES)
		case "BLOWFISH":
			result = append(result, security.CryptoBlowfish)
		case "3DES":
			result = append(result, security.Crypto3DES)
		}
	}
	return result
}

type securityConfigCtxKey struct{}

// WithSecurityConfig attaches a SecurityConfig to ctx so that nested calls
// (e.g. a Query followed by a Submit against the same schedd) can reuse an
// already-negotiated security posture instead of re-deriving one from the
// environment each time.
func WithSecurityConfig(ctx context.Context, cfg security.SecurityConfig) context.Context {
	return context.WithValue(ctx, securityConfigCtxKey{}, cfg)
}

// GetSecurityConfigFromContext retrieves a SecurityConfig previously attached
// with WithSecurityConfig.
func GetSecurityConfigFromContext(ctx context.Context) (security.SecurityConfig, bool) {
	cfg, ok := ctx.Value(securityConfigCtxKey{}).(security.SecurityConfig)
	return cfg, ok
}

// GetSecurityConfigOrDefault returns the SecurityConfig carried on ctx (if
// any), otherwise builds one from the environment, tagging it with peerName
// for session-cache lookups.
func GetSecurityConfigOrDefault(ctx context.Context, command int, secContext string, peerName string) *security.SecurityConfig {
	if ctxSecConfig, ok := GetSecurityConfigFromContext(ctx); ok {
		secConfig := ctxSecConfig
		secConfig.Command = command
		if secConfig.PeerName == "" {
			secConfig.PeerName = peerName
		}
		return &secConfig
	}

	secConfig := GetSecurityConfig(command, secContext)
	secConfig.PeerName = peerName
	return secConfig
}
