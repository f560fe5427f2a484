// Package jwt signs and validates the bearer tokens that identify Muster
// users.
//
// Tokens are RS256 JWTs built on github.com/golang-jwt/jwt/v5. The server
// only needs the public key to validate; the private key is used by the
// issue-token command and by tests.
//
//	svc, err := jwt.NewService(jwt.Config{
//	    PublicKeyPath: "keys/public.pem",
//	    Issuer:        "muster",
//	})
//	claims, err := svc.Validate(tokenString)
//	if err != nil {
//	    // Invalid or expired token
//	}
//	userID := claims.UserID
package jwt
