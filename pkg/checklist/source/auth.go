package source

import (
	"fmt"
	"os"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
)

// GitAuth configures access to a private catalog repository.
type GitAuth struct {
	// Type is "token", "ssh" or "none".
	// Default: "none"
	Type string

	// Token is a personal access token for HTTPS remotes.
	Token string

	// SSHKeyPath is a private key file with 0600 permissions or stricter.
	SSHKeyPath string

	// SSHKeyPassphrase unlocks an encrypted key.
	SSHKeyPassphrase string
}

// method returns the go-git transport auth for a, or nil for public
// repositories.
func (a GitAuth) method() (transport.AuthMethod, error) {
	switch a.Type {
	case "", "none":
		return nil, nil

	case "token":
		if a.Token == "" {
			return nil, fmt.Errorf("token auth requires non-empty token")
		}
		return &http.BasicAuth{Username: "git", Password: a.Token}, nil

	case "ssh":
		if a.SSHKeyPath == "" {
			return nil, fmt.Errorf("ssh auth requires ssh_key_path")
		}
		info, err := os.Stat(a.SSHKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to access SSH key file: %w", err)
		}
		if mode := info.Mode().Perm(); mode&0o077 != 0 {
			return nil, fmt.Errorf("SSH key file permissions too open (%o), should be 0600", mode)
		}
		auth, err := ssh.NewPublicKeysFromFile("git", a.SSHKeyPath, a.SSHKeyPassphrase)
		if err != nil {
			return nil, fmt.Errorf("failed to load SSH key: %w", err)
		}
		return auth, nil

	default:
		return nil, fmt.Errorf("unknown auth type: %s", a.Type)
	}
}
