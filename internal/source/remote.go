package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/go-github/v68/github"
	"github.com/xanzy/go-gitlab"

	"github.com/julianshen/docgen/internal/config"
	"github.com/julianshen/docgen/internal/integrations"
)

// Forge identifies the hosting service of a repository URL.
type Forge string

const (
	ForgeGitHub  Forge = "github"
	ForgeGitLab  Forge = "gitlab"
	ForgeGeneric Forge = "generic"
)

// Repo is a parsed remote repository reference.
type Repo struct {
	URL   string // normalised, without trailing slash or .git
	Host  string
	Owner string // namespace; may contain slashes on GitLab
	Name  string
	Forge Forge
}

// Project returns "owner/name".
func (r Repo) Project() string { return r.Owner + "/" + r.Name }

// ErrInvalidRepoURL is returned when a repository URL cannot be parsed.
var ErrInvalidRepoURL = errors.New("invalid repository url")

// Resolver downloads remote repositories and lists their branches.
type Resolver struct {
	Fetcher *integrations.HTTPFetcher
	Git     *integrations.GitRunner
	GitHub  *github.Client
	GitLab  *gitlab.Client

	// GitHubHost and GitLabHost select the API client by URL host.
	GitHubHost string
	GitLabHost string

	Strategy        string // "archive" or "git"
	DefaultBranch   string
	MaxArchiveBytes int64
	Logger          *slog.Logger
}

// NewResolver builds a Resolver from configuration. Forge tokens are
// optional; anonymous API access is used without them.
func NewResolver(cfg *config.Config, logger *slog.Logger) (*Resolver, error) {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Fetch.Timeout.Std()

	gh := github.NewClient(&http.Client{Timeout: timeout})
	if tok := cfg.GitHub.ResolveToken(); tok != "" {
		gh = gh.WithAuthToken(tok)
	}
	ghHost := "github.com"
	if cfg.GitHub.BaseURL != "" {
		var err error
		gh, err = gh.WithEnterpriseURLs(cfg.GitHub.BaseURL, cfg.GitHub.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("github client: %w", err)
		}
		ghHost = hostOf(cfg.GitHub.BaseURL)
	}

	glBase := cfg.GitLab.BaseURL
	if glBase == "" {
		glBase = "https://gitlab.com"
	}
	gl, err := gitlab.NewClient(cfg.GitLab.ResolveToken(),
		gitlab.WithBaseURL(glBase),
		gitlab.WithHTTPClient(&http.Client{Timeout: timeout}),
	)
	if err != nil {
		return nil, fmt.Errorf("gitlab client: %w", err)
	}

	return &Resolver{
		Fetcher:         integrations.NewHTTPFetcher(timeout, cfg.Fetch.MaxArchiveBytes),
		Git:             integrations.NewGitRunner(cfg.Fetch.WorkDir),
		GitHub:          gh,
		GitLab:          gl,
		GitHubHost:      ghHost,
		GitLabHost:      hostOf(glBase),
		Strategy:        cfg.Fetch.Strategy,
		DefaultBranch:   cfg.Fetch.DefaultBranch,
		MaxArchiveBytes: cfg.Fetch.MaxArchiveBytes,
		Logger:          logger,
	}, nil
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// ParseRepo parses an https repository URL such as
// https://github.com/owner/repo or https://gitlab.com/group/sub/repo.git.
func (r *Resolver) ParseRepo(raw string) (Repo, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return Repo{}, fmt.Errorf("%w: %q", ErrInvalidRepoURL, raw)
	}
	p := strings.Trim(strings.TrimSuffix(strings.TrimRight(u.Path, "/"), ".git"), "/")
	parts := strings.Split(p, "/")
	if len(parts) < 2 || parts[0] == "" {
		return Repo{}, fmt.Errorf("%w: %q needs owner and name", ErrInvalidRepoURL, raw)
	}

	host := strings.ToLower(u.Hostname())
	repo := Repo{
		URL:   u.Scheme + "://" + u.Host + "/" + p,
		Host:  host,
		Owner: strings.Join(parts[:len(parts)-1], "/"),
		Name:  parts[len(parts)-1],
		Forge: ForgeGeneric,
	}
	switch {
	case r.GitHub != nil && host == r.GitHubHost:
		if len(parts) != 2 {
			return Repo{}, fmt.Errorf("%w: %q is not owner/repo", ErrInvalidRepoURL, raw)
		}
		repo.Forge = ForgeGitHub
	case r.GitLab != nil && host == r.GitLabHost:
		repo.Forge = ForgeGitLab
	}
	return repo, nil
}

// Download fetches repoURL at branch into dest and returns the project root.
// An empty branch resolves to the forge default branch, falling back to the
// configured default.
func (r *Resolver) Download(ctx context.Context, repoURL, branch, dest string) (string, error) {
	repo, err := r.ParseRepo(repoURL)
	if err != nil {
		return "", err
	}
	if branch == "" {
		branch = r.ResolveDefaultBranch(ctx, repo)
	}
	log := r.logger().With("repo", repo.URL, "branch", branch, "forge", repo.Forge)

	if r.Strategy == "git" {
		log.Info("cloning repository")
		target := filepath.Join(dest, repo.Name)
		if err := r.Git.Clone(ctx, repo.URL+".git", branch, target); err != nil {
			return "", fmt.Errorf("clone %s: %w", repo.URL, err)
		}
		return target, nil
	}

	log.Info("downloading repository archive")
	data, err := r.archive(ctx, repo, branch)
	if err != nil {
		return "", fmt.Errorf("download %s@%s: %w", repo.URL, branch, err)
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return "", err
	}
	return ExtractZip(data, dest, r.MaxArchiveBytes)
}

func (r *Resolver) archive(ctx context.Context, repo Repo, branch string) ([]byte, error) {
	switch repo.Forge {
	case ForgeGitHub:
		link, _, err := r.GitHub.Repositories.GetArchiveLink(ctx, repo.Owner, repo.Name,
			github.Zipball, &github.RepositoryContentGetOptions{Ref: branch}, 3)
		if err != nil {
			return nil, fmt.Errorf("github archive link: %w", err)
		}
		return r.Fetcher.Fetch(ctx, link.String(), nil)
	case ForgeGitLab:
		data, _, err := r.GitLab.Repositories.Archive(repo.Project(), &gitlab.ArchiveOptions{
			Format: gitlab.Ptr("zip"),
			SHA:    gitlab.Ptr(branch),
		}, gitlab.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("gitlab archive: %w", err)
		}
		return data, nil
	default:
		return r.Fetcher.Fetch(ctx, repo.URL+"/archive/refs/heads/"+url.PathEscape(branch)+".zip", nil)
	}
}

// ResolveDefaultBranch asks the forge for the repository's default branch
// and falls back to the configured default on any failure.
func (r *Resolver) ResolveDefaultBranch(ctx context.Context, repo Repo) string {
	fallback := r.DefaultBranch
	if fallback == "" {
		fallback = "main"
	}
	switch repo.Forge {
	case ForgeGitHub:
		gr, _, err := r.GitHub.Repositories.Get(ctx, repo.Owner, repo.Name)
		if err == nil && gr.GetDefaultBranch() != "" {
			return gr.GetDefaultBranch()
		}
	case ForgeGitLab:
		p, _, err := r.GitLab.Projects.GetProject(repo.Project(), nil, gitlab.WithContext(ctx))
		if err == nil && p.DefaultBranch != "" {
			return p.DefaultBranch
		}
	}
	return fallback
}

// Branches lists branch names of repoURL, sorted.
func (r *Resolver) Branches(ctx context.Context, repoURL string) ([]string, error) {
	repo, err := r.ParseRepo(repoURL)
	if err != nil {
		return nil, err
	}

	var names []string
	switch repo.Forge {
	case ForgeGitHub:
		opts := &github.BranchListOptions{ListOptions: github.ListOptions{PerPage: 100}}
		for {
			bs, resp, err := r.GitHub.Repositories.ListBranches(ctx, repo.Owner, repo.Name, opts)
			if err != nil {
				return nil, fmt.Errorf("list github branches: %w", err)
			}
			for _, b := range bs {
				names = append(names, b.GetName())
			}
			if resp == nil || resp.NextPage == 0 {
				break
			}
			opts.Page = resp.NextPage
		}
	case ForgeGitLab:
		opts := &gitlab.ListBranchesOptions{ListOptions: gitlab.ListOptions{PerPage: 100}}
		for {
			bs, resp, err := r.GitLab.Branches.ListBranches(repo.Project(), opts, gitlab.WithContext(ctx))
			if err != nil {
				return nil, fmt.Errorf("list gitlab branches: %w", err)
			}
			for _, b := range bs {
				names = append(names, b.Name)
			}
			if resp == nil || resp.NextPage == 0 {
				break
			}
			opts.Page = resp.NextPage
		}
	default:
		names, err = r.Git.RemoteBranches(ctx, repo.URL)
		if err != nil {
			return nil, fmt.Errorf("list branches: %w", err)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (r *Resolver) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}
