// Command issue-token mints bearer tokens for local development and for
// gateways that call the Muster API on behalf of chat users.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/forgo/muster/pkg/jwt"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var (
		privateKeyPath string
		publicKeyPath  string
		userID         string
		name           string
		email          string
		issuer         string
		expiration     time.Duration
		outputJSON     bool
		generateKeys   bool
	)

	flagSet := pflag.NewFlagSet("issue-token", pflag.ContinueOnError)
	flagSet.StringVar(&privateKeyPath, "key", "./keys/private.pem", "path to JWT private key")
	flagSet.StringVar(&publicKeyPath, "public-key", "./keys/public.pem", "path to JWT public key (written by --generate-keys)")
	flagSet.StringVarP(&userID, "user", "u", "dev-user", "user ID for the token")
	flagSet.StringVarP(&name, "name", "n", "", "display name shown on rosters")
	flagSet.StringVarP(&email, "email", "e", "", "e-mail used for promotion notices")
	flagSet.StringVar(&issuer, "issuer", "muster.forgo.software", "JWT issuer")
	flagSet.DurationVar(&expiration, "exp", 7*24*time.Hour, "token lifetime")
	flagSet.BoolVar(&outputJSON, "json", false, "output as JSON")
	flagSet.BoolVar(&generateKeys, "generate-keys", false, "write a new RSA key pair before signing")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if generateKeys {
		if err := jwt.GenerateKeyPair(privateKeyPath, publicKeyPath); err != nil {
			return fmt.Errorf("generating keys: %w", err)
		}
		fmt.Fprintf(os.Stderr, "wrote %s and %s\n", privateKeyPath, publicKeyPath)
	}

	jwtService, err := jwt.NewService(jwt.Config{
		PrivateKeyPath: privateKeyPath,
		Issuer:         issuer,
		Expiration:     expiration,
	})
	if err != nil {
		return fmt.Errorf("creating JWT service (generate keys with --generate-keys): %w", err)
	}

	token, err := jwtService.Sign(jwt.Claims{
		UserID:      userID,
		DisplayName: name,
		Email:       email,
	})
	if err != nil {
		return fmt.Errorf("signing token: %w", err)
	}

	if outputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"access_token": token,
			"token_type":   "Bearer",
			"expires_in":   int(jwtService.GetExpiration().Seconds()),
			"user_id":      userID,
		})
	}

	fmt.Println("Token Generated")
	fmt.Println("===============")
	fmt.Printf("User ID:  %s\n", userID)
	if name != "" {
		fmt.Printf("Name:     %s\n", name)
	}
	fmt.Printf("Expires:  %s\n", time.Now().Add(jwtService.GetExpiration()).Format(time.RFC3339))
	fmt.Println()
	fmt.Println(token)
	return nil
}
