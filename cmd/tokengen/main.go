// Command tokengen issues access tokens for local development and testing.
//
// The signing key is read the same way the server reads it (NEBULA_JWT_SIGNING_KEY,
// falling back to the development key), so issued tokens are accepted by a
// locally running server.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"nebula/internal/auth"
	"nebula/internal/platform/config"
)

type tokenOutput struct {
	Token     string         `json:"token"`
	Type      string         `json:"type"`
	ExpiresIn string         `json:"expires_in"`
	Claims    map[string]any `json:"claims"`
	Usage     map[string]any `json:"usage"`
}

type options struct {
	userID     int64
	login      string
	ttl        time.Duration
	jsonOutput bool
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "tokengen: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("tokengen", flag.ContinueOnError)
	var opts options
	fs.Int64Var(&opts.userID, "user-id", 1, "user id carried in the token")
	fs.StringVar(&opts.login, "login", "admin", "login carried in the token")
	fs.DurationVar(&opts.ttl, "ttl", 0, "token lifetime (defaults to the configured token_ttl)")
	fs.BoolVar(&opts.jsonOutput, "json", false, "print the token as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if opts.userID <= 0 {
		return fmt.Errorf("user-id must be positive, got %d", opts.userID)
	}

	cfg := config.Load()
	if opts.ttl == 0 {
		opts.ttl = cfg.TokenTTL
	}
	return generate(out, cfg, opts, time.Now())
}

func generate(out io.Writer, cfg config.Server, opts options, now time.Time) error {
	keyType := "configured"
	if cfg.UsesDefaultSigningKey() {
		keyType = "dev"
	}

	svc := auth.NewTokenService(cfg.JWTSigningKey, opts.ttl)
	token, claims, err := svc.Issue(opts.userID, opts.login, now)
	if err != nil {
		return err
	}

	if opts.jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(tokenOutput{
			Token:     token,
			Type:      "access_token",
			ExpiresIn: opts.ttl.String(),
			Claims: map[string]any{
				"user_id": claims.UserID,
				"login":   claims.Login,
				"jti":     claims.ID,
				"exp":     claims.ExpiresAt.Unix(),
			},
			Usage: map[string]any{
				"header":      "Authorization: Bearer <token>",
				"signing_key": keyType,
			},
		})
	}

	fmt.Fprintln(out, "Access Token (JWT)")
	fmt.Fprintln(out, "==================")
	fmt.Fprintf(out, "Signing Key: %s\n", keyType)
	fmt.Fprintf(out, "Expires In:  %s\n", opts.ttl)
	fmt.Fprintf(out, "User ID:     %d\n", claims.UserID)
	fmt.Fprintf(out, "Login:       %s\n", claims.Login)
	fmt.Fprintf(out, "JTI:         %s\n", claims.ID)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Token:")
	fmt.Fprintln(out, token)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Usage:")
	fmt.Fprintf(out, "  curl -H \"Authorization: Bearer %s\" http://localhost%s/status\n", token, cfg.Addr)
	return nil
}
