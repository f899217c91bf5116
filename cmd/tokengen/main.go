// Package main provides a CLI tool for crafting test credentials and
// payloads: admin tokens for the operator surface and sealed envelopes for
// webhook calls. It uses dev defaults and is not meant for production keys.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"docket/internal/envelope"
	jwttoken "docket/internal/jwt_token"
)

const (
	// Dev signing key - matches config.go when DOCKET_JWT_SIGNING_KEY is not set
	devSigningKey = "dev-secret-key-change-in-production"

	defaultIssuer   = "docket"
	defaultTokenTTL = 15 * time.Minute
)

func main() {
	adminCmd := flag.NewFlagSet("admin", flag.ExitOnError)
	adminOperator := adminCmd.String("operator", "dev@localhost", "Operator name embedded in the token")
	adminTTL := adminCmd.Duration("ttl", defaultTokenTTL, "Token time-to-live")
	adminKey := adminCmd.String("key", devSigningKey, "JWT signing key")
	adminJSON := adminCmd.Bool("json", false, "Output as JSON")

	sealCmd := flag.NewFlagSet("seal", flag.ExitOnError)
	sealKey := sealCmd.String("key", "", "Base64-encoded 256-bit encryption key (required)")
	sealPayload := sealCmd.String("payload", "", "Plaintext payload to seal (required)")

	openCmd := flag.NewFlagSet("open", flag.ExitOnError)
	openKey := openCmd.String("key", "", "Base64-encoded 256-bit encryption key (required)")
	openPayload := openCmd.String("payload", "", "Sealed payload to open (required)")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "admin":
		adminCmd.Parse(os.Args[2:])
		generateAdminToken(*adminOperator, *adminTTL, *adminKey, *adminJSON)
	case "seal":
		sealCmd.Parse(os.Args[2:])
		sealPayloadCmd(*sealKey, *sealPayload)
	case "open":
		openCmd.Parse(os.Args[2:])
		openPayloadCmd(*openKey, *openPayload)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func generateAdminToken(operator string, ttl time.Duration, key string, asJSON bool) {
	svc := jwttoken.NewService(key, defaultIssuer, ttl)
	token, err := svc.GenerateToken(operator)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to generate token: %v\n", err)
		os.Exit(1)
	}

	if asJSON {
		out := map[string]string{
			"token":      token,
			"operator":   operator,
			"expires_in": ttl.String(),
			"usage":      "Authorization: Bearer <token>",
		}
		_ = json.NewEncoder(os.Stdout).Encode(out)
		return
	}
	fmt.Println(token)
}

func sealPayloadCmd(encodedKey, payload string) {
	key := mustKey(encodedKey)
	if payload == "" {
		fmt.Fprintln(os.Stderr, "-payload is required")
		os.Exit(1)
	}
	sealed, err := envelope.Encrypt(payload, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to seal payload: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(sealed)
}

func openPayloadCmd(encodedKey, payload string) {
	key := mustKey(encodedKey)
	if payload == "" {
		fmt.Fprintln(os.Stderr, "-payload is required")
		os.Exit(1)
	}
	plaintext, err := envelope.Decrypt(payload, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open payload: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(plaintext)
}

func mustKey(encoded string) []byte {
	if encoded == "" {
		fmt.Fprintln(os.Stderr, "-key is required")
		os.Exit(1)
	}
	key, err := envelope.KeyFromBase64(encoded)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid key: %v\n", err)
		os.Exit(1)
	}
	return key
}

func printUsage() {
	fmt.Println(`tokengen - Generate test credentials and payloads for docket

WARNING: Defaults use the dev signing key and will NOT work in production.

Usage:
  tokengen <command> [flags]

Commands:
  admin     Generate an admin token (JWT)
  seal      Encrypt a plaintext payload for a webhook call
  open      Decrypt a sealed payload

Examples:
  # Admin token for local development
  tokengen admin -operator ops@example.com -ttl 1h

  # Seal an order payload for a test webhook
  tokengen seal -key "$DOCKET_ENCRYPTION_KEY" -payload '{"orderData":{"number":"42"}}'`)
}
