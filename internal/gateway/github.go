// Package gateway provides a gateway to the GitHub API,
// abstracting away the underlying REST and GraphQL clients.
package gateway

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
)

// RepoFacts holds the per-repository metadata and metrics the dataset
// records: everything the sampling criteria can filter on, plus the default
// branch the extractor will resolve.
type RepoFacts struct {
	Name          string
	DefaultBranch string
	Stars         int
	CreatedAt     time.Time
	Commits       int
	Developers    int
	CodeBytes     int
}

// TreeEntry is one tracked file at a repository's head: its path and the
// hash of its content blob.
type TreeEntry struct {
	Path string
	Hash string
}

// Fetcher defines the behavior of a gateway for fetching repository data
// from GitHub.
type Fetcher interface {
	ListRepos(ctx context.Context, org, language string) ([]string, error)
	FetchFacts(ctx context.Context, owner, name string) (RepoFacts, error)
	// FetchHeadTree resolves a branch to its head commit and lists every
	// blob in that commit's tree.
	FetchHeadTree(ctx context.Context, owner, name, branch string) (string, []TreeEntry, error)
}

// GitHubGateway is the concrete implementation of the Fetcher interface.
type GitHubGateway struct {
	restClient    *github.Client
	graphqlClient *githubv4.Client
	logger        *log.Logger
}

// repoFactsQuery fetches all scalar repository metrics in one GraphQL round
// trip. Commit count comes from the default branch's history; developer
// count uses mentionable users as the closest cheap proxy.
type repoFactsQuery struct {
	Repository struct {
		StargazerCount   int
		CreatedAt        githubv4.DateTime
		DefaultBranchRef struct {
			Name   string
			Target struct {
				Commit struct {
					History struct {
						TotalCount int
					}
				} `graphql:"... on Commit"`
			}
		}
		MentionableUsers struct {
			TotalCount int
		} `graphql:"mentionableUsers(first: 1)"`
		Languages struct {
			TotalSize int
		} `graphql:"languages(first: 1)"`
	} `graphql:"repository(owner: $owner, name: $name)"`
}

// NewGitHubGateway is a constructor that creates a new instance of GitHubGateway.
func NewGitHubGateway(token string, logger *log.Logger) (Fetcher, error) {
	rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(nil, github_ratelimit.WithSingleSleepLimit(1*time.Hour, nil))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Base:   rateLimitWaiter,
			Source: ts,
		},
	}
	return &GitHubGateway{
		restClient:    github.NewClient(httpClient),
		graphqlClient: githubv4.NewClient(httpClient),
		logger:        logger,
	}, nil
}

// ListRepos returns the names of the organization's repositories whose
// dominant language matches language.
func (g *GitHubGateway) ListRepos(ctx context.Context, org, language string) ([]string, error) {
	g.logger.Printf("Listing %s repositories of %s...", language, org)
	query := fmt.Sprintf("org:%s language:%s", org, language)
	opts := &github.SearchOptions{ListOptions: github.ListOptions{PerPage: 100}}
	var names []string
	for {
		result, resp, err := g.restClient.Search.Repositories(ctx, query, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to search repositories: %w", err)
		}
		for _, repo := range result.Repositories {
			names = append(names, repo.GetName())
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
		g.logger.Println("  Fetching next page of repositories...")
	}
	g.logger.Printf("Found %d repositories.", len(names))
	return names, nil
}

// FetchFacts fetches one repository's metadata and metrics.
func (g *GitHubGateway) FetchFacts(ctx context.Context, owner, name string) (RepoFacts, error) {
	variables := map[string]interface{}{
		"owner": githubv4.String(owner),
		"name":  githubv4.String(name),
	}
	var q repoFactsQuery
	if err := g.graphqlClient.Query(ctx, &q, variables); err != nil {
		return RepoFacts{}, fmt.Errorf("failed to execute GraphQL query for %s/%s: %w", owner, name, err)
	}
	return RepoFacts{
		Name:          name,
		DefaultBranch: q.Repository.DefaultBranchRef.Name,
		Stars:         q.Repository.StargazerCount,
		CreatedAt:     q.Repository.CreatedAt.Time,
		Commits:       q.Repository.DefaultBranchRef.Target.Commit.History.TotalCount,
		Developers:    q.Repository.MentionableUsers.TotalCount,
		CodeBytes:     q.Repository.Languages.TotalSize,
	}, nil
}

// FetchHeadTree resolves refs/heads/<branch> and lists the blobs of the
// commit's tree recursively.
func (g *GitHubGateway) FetchHeadTree(ctx context.Context, owner, name, branch string) (string, []TreeEntry, error) {
	ref, _, err := g.restClient.Git.GetRef(ctx, owner, name, "heads/"+branch)
	if err != nil {
		return "", nil, fmt.Errorf("failed to resolve heads/%s of %s/%s: %w", branch, owner, name, err)
	}
	sha := ref.GetObject().GetSHA()

	tree, _, err := g.restClient.Git.GetTree(ctx, owner, name, sha, true)
	if err != nil {
		return "", nil, fmt.Errorf("failed to fetch tree %s of %s/%s: %w", sha, owner, name, err)
	}
	if tree.GetTruncated() {
		g.logger.Printf("WARNING: tree of %s/%s at %s is truncated, file listing is incomplete.", owner, name, sha)
	}

	var entries []TreeEntry
	for _, entry := range tree.Entries {
		if entry.GetType() != "blob" {
			continue
		}
		entries = append(entries, TreeEntry{Path: entry.GetPath(), Hash: entry.GetSHA()})
	}
	return sha, entries, nil
}
