// Command sign signs editor login challenges with an Ed25519 private key.
//
// Without flags it reads base64 challenges from stdin until EOF or "quit". With
// -challenge it signs one challenge and prints only the signature. With -server it
// fetches the current challenge from a running site and signs that.
package main

import (
	"bufio"
	"crypto/ed25519"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/debemdeboas/site-editor/internal/routes"
)

var (
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true)
	outputStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func loadPrivateKey(filename string) (ed25519.PrivateKey, error) {
	privKeyBytes, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(privKeyBytes)
	if block == nil {
		return nil, errors.New("failed to decode PEM block")
	}
	privKey, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	edPriv, ok := privKey.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("not an Ed25519 private key")
	}
	return edPriv, nil
}

func signChallenge(key ed25519.PrivateKey, challengeB64 string) (string, error) {
	challenge, err := base64.StdEncoding.DecodeString(strings.TrimSpace(challengeB64))
	if err != nil {
		return "", errors.New("invalid base64")
	}
	return base64.StdEncoding.EncodeToString(ed25519.Sign(key, challenge)), nil
}

func fetchChallenge(client *http.Client, server string) (string, error) {
	resp, err := client.Get(strings.TrimRight(server, "/") + routes.AuthChallenge)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("challenge request returned %s", resp.Status)
	}
	var payload struct {
		Challenge string `json:"challenge"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&payload); err != nil {
		return "", err
	}
	if payload.Challenge == "" {
		return "", errors.New("empty challenge")
	}
	return payload.Challenge, nil
}

func interactive(key ed25519.PrivateKey, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "Enter challenges one by one. Type 'quit' to exit.")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, promptStyle.Render("Enter challenge (base64): "))
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" {
			break
		}

		sig, err := signChallenge(key, line)
		if err != nil {
			fmt.Fprintln(out, errorStyle.Render("Error: "+err.Error()))
			continue
		}
		fmt.Fprintln(out, outputStyle.Render("Signature: "+sig))
	}
	return scanner.Err()
}

func main() {
	keyFile := flag.String("key", "privkey.pem", "PEM encoded PKCS#8 Ed25519 private key")
	challenge := flag.String("challenge", "", "Sign a single base64 challenge and exit")
	server := flag.String("server", "", "Fetch the challenge from this site, e.g. http://localhost:12600")
	flag.Parse()

	privKey, err := loadPrivateKey(*keyFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error loading private key: "+err.Error()))
		os.Exit(1)
	}

	if *server != "" {
		c, err := fetchChallenge(&http.Client{Timeout: 10 * time.Second}, *server)
		if err != nil {
			fmt.Fprintln(os.Stderr, errorStyle.Render("Error fetching challenge: "+err.Error()))
			os.Exit(1)
		}
		*challenge = c
	}

	if *challenge != "" {
		sig, err := signChallenge(privKey, *challenge)
		if err != nil {
			fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
			os.Exit(1)
		}
		fmt.Println(sig)
		return
	}

	if err := interactive(privKey, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "Error reading input:", err)
		os.Exit(1)
	}
}
