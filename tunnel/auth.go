package tunnel

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"

	"bulkq/util"
)

// passwordAttempts bounds how often the password prompt is repeated
// when the server rejects it.
const passwordAttempts = 3

var defaultKeyFiles = []string{"id_ed25519", "id_ecdsa", "id_rsa"}

// authMethods returns the methods offered to the jump host: public keys
// (key file, then agent), then password.  Without explicit settings it
// falls back to the agent and the usual key files under ~/.ssh.
func authMethods(cfg Config) ([]ssh.AuthMethod, error) {
	var signers []ssh.Signer

	if cfg.KeyFile != "" {
		s, err := loadKey(expandHome(cfg.KeyFile))
		if err != nil {
			return nil, fmt.Errorf("key %s: %w", cfg.KeyFile, err)
		}
		signers = append(signers, s)
	}
	if cfg.Agent {
		s, err := agentSigners()
		if err != nil {
			return nil, fmt.Errorf("ssh-agent: %w", err)
		}
		signers = append(signers, s...)
	}
	explicit := cfg.KeyFile != "" || cfg.Agent || cfg.PasswordPrompt
	if !explicit {
		signers = fallbackSigners()
	}

	var methods []ssh.AuthMethod
	if len(signers) > 0 {
		methods = append(methods, ssh.PublicKeys(signers...))
	}
	if cfg.PasswordPrompt {
		prompt := fmt.Sprintf("SSH password for %s: ", cfg)
		methods = append(methods, ssh.RetryableAuthMethod(ssh.PasswordCallback(func() (string, error) {
			pass, err := util.ReadSecret(prompt)
			if err != nil {
				return "", fmt.Errorf("read password: %w", err)
			}
			return string(pass), nil
		}), passwordAttempts))
	}

	if len(methods) == 0 {
		return nil, errors.New("no SSH credentials found - use --ssh-key, --ssh-agent or --ssh-password")
	}
	return methods, nil
}

// loadKey parses a private key file, prompting for the passphrase when
// the key is encrypted.
func loadKey(path string) (ssh.Signer, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	signer, err := ssh.ParsePrivateKey(pem)
	var missing *ssh.PassphraseMissingError
	if !errors.As(err, &missing) {
		return signer, err
	}

	pass, err := util.ReadSecret(fmt.Sprintf("Passphrase for %s: ", path))
	if err != nil {
		return nil, fmt.Errorf("read passphrase: %w", err)
	}
	return ssh.ParsePrivateKeyWithPassphrase(pem, pass)
}

func agentSigners() ([]ssh.Signer, error) {
	sock := os.Getenv("SSH_AUTH_SOCK")
	if sock == "" {
		return nil, errors.New("SSH_AUTH_SOCK is not set")
	}
	conn, err := net.Dial("unix", sock)
	if err != nil {
		return nil, err
	}
	signers, err := agent.NewClient(conn).Signers()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("list agent keys: %w", err)
	}
	return signers, nil
}

// fallbackSigners collects whatever the agent and unencrypted default
// key files provide.  Failures are skipped silently.
func fallbackSigners() []ssh.Signer {
	signers, _ := agentSigners()

	home, err := os.UserHomeDir()
	if err != nil {
		return signers
	}
	for _, name := range defaultKeyFiles {
		pem, err := os.ReadFile(filepath.Join(home, ".ssh", name))
		if err != nil {
			continue
		}
		if s, err := ssh.ParsePrivateKey(pem); err == nil {
			signers = append(signers, s)
		}
	}
	return signers
}

// hostKeyCallback verifies the jump host against known_hosts when
// StrictHostKey is set and accepts any key otherwise.
func hostKeyCallback(cfg Config) (ssh.HostKeyCallback, error) {
	if !cfg.StrictHostKey {
		return ssh.InsecureIgnoreHostKey(), nil //nolint:gosec // opted out with --strict-hostkey=false
	}

	path := expandHome(cfg.KnownHosts)
	if path == "" {
		path = expandHome("~/.ssh/known_hosts")
	}
	cb, err := knownhosts.New(path)
	if err != nil {
		return nil, fmt.Errorf("known_hosts %s: %w", path, err)
	}
	return cb, nil
}

// expandHome replaces a leading "~/" with the user's home directory.
func expandHome(path string) string {
	rest, ok := strings.CutPrefix(path, "~/")
	if !ok {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, rest)
}
