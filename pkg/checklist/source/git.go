package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"formarter/compliance/pkg/checklist"
)

// GitConfig configures a catalog kept in a Git repository.
type GitConfig struct {
	// Repository is the remote URL or a local path.
	Repository string

	// Branch to check out.
	// Default: "main"
	Branch string

	// Path is the catalog file relative to the repository root.
	// Default: "catalog.yaml"
	Path string

	// LocalPath is where the repository is cloned.
	// Default: <tmp>/formarter-catalog
	LocalPath string

	// Depth limits clone history. 0 clones everything.
	Depth int

	// Timeout bounds each clone or pull.
	// Default: 30 seconds
	Timeout time.Duration

	Auth GitAuth
}

// Revision identifies the commit a catalog was loaded from.
type Revision struct {
	SHA       string    `json:"sha"`
	Author    string    `json:"author"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Branch    string    `json:"branch"`
}

// GitSource loads the catalog from a Git repository, cloning on first use
// and pulling on every later Load.
type GitSource struct {
	config *GitConfig
	logger *slog.Logger

	mu       sync.Mutex
	repo     *gogit.Repository
	revision *Revision
}

// NewGitSource validates cfg and applies defaults. No network access
// happens until Load.
func NewGitSource(cfg *GitConfig) (*GitSource, error) {
	if cfg == nil {
		return nil, fmt.Errorf("git catalog config cannot be nil")
	}
	if cfg.Repository == "" {
		return nil, fmt.Errorf("repository URL cannot be empty")
	}
	if _, err := cfg.Auth.method(); err != nil {
		return nil, fmt.Errorf("failed to create auth provider: %w", err)
	}

	c := *cfg
	if c.Branch == "" {
		c.Branch = "main"
	}
	if c.Path == "" {
		c.Path = "catalog.yaml"
	}
	if c.LocalPath == "" {
		c.LocalPath = filepath.Join(os.TempDir(), "formarter-catalog")
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}

	return &GitSource{
		config: &c,
		logger: slog.Default().With("component", "checklist.source.git"),
	}, nil
}

// Describe returns the repository, branch and catalog path.
func (g *GitSource) Describe() string {
	return fmt.Sprintf("git:%s@%s:%s", g.config.Repository, g.config.Branch, g.config.Path)
}

// Load syncs the repository and parses the catalog file.
func (g *GitSource) Load(ctx context.Context) (*checklist.Catalog, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.sync(ctx); err != nil {
		return nil, err
	}

	rev, err := g.head()
	if err != nil {
		return nil, err
	}
	g.revision = rev

	path := filepath.Join(g.config.LocalPath, filepath.FromSlash(g.config.Path))
	cat, err := File{Path: path}.Load(ctx)
	if err != nil {
		return nil, err
	}

	g.logger.Info("catalog loaded from git",
		"repository", g.config.Repository,
		"branch", g.config.Branch,
		"commit", rev.SHA,
		"version", cat.Version(),
		"rules", cat.Len(),
	)
	return cat, nil
}

// Revision returns the commit of the last successful Load, or nil.
func (g *GitSource) Revision() *Revision {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.revision == nil {
		return nil
	}
	r := *g.revision
	return &r
}

func (g *GitSource) sync(ctx context.Context) error {
	auth, err := g.config.Auth.method()
	if err != nil {
		return fmt.Errorf("failed to get auth: %w", err)
	}

	opCtx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	if g.repo == nil {
		if _, err := os.Stat(filepath.Join(g.config.LocalPath, ".git")); err == nil {
			repo, err := gogit.PlainOpen(g.config.LocalPath)
			if err != nil {
				return fmt.Errorf("failed to open existing repo: %w", err)
			}
			g.repo = repo
		} else {
			if err := os.MkdirAll(g.config.LocalPath, 0o755); err != nil {
				return fmt.Errorf("failed to create repository directory: %w", err)
			}
			repo, err := gogit.PlainCloneContext(opCtx, g.config.LocalPath, false, &gogit.CloneOptions{
				URL:           g.config.Repository,
				ReferenceName: plumbing.NewBranchReferenceName(g.config.Branch),
				SingleBranch:  true,
				Depth:         g.config.Depth,
				Auth:          auth,
			})
			if err != nil {
				return fmt.Errorf("failed to clone repository: %w", err)
			}
			g.repo = repo
			return nil
		}
	}

	worktree, err := g.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}
	err = worktree.PullContext(opCtx, &gogit.PullOptions{
		RemoteName:    "origin",
		ReferenceName: plumbing.NewBranchReferenceName(g.config.Branch),
		SingleBranch:  true,
		Auth:          auth,
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to pull: %w", err)
	}
	return nil
}

func (g *GitSource) head() (*Revision, error) {
	ref, err := g.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get HEAD: %w", err)
	}
	commit, err := g.repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to get commit: %w", err)
	}
	return &Revision{
		SHA:       commit.Hash.String(),
		Author:    commit.Author.Name,
		Timestamp: commit.Author.When,
		Message:   commit.Message,
		Branch:    g.config.Branch,
	}, nil
}
