// Package github publishes conversation transcripts to GitHub.
package github

import (
	"context"
	"fmt"

	"github.com/google/go-github/v72/github"
	"golang.org/x/oauth2"
)

// GistPublisher uploads transcripts as secret gists owned by the token's user
type GistPublisher struct {
	client *github.Client
}

// NewGistPublisher creates a publisher authenticated with token
func NewGistPublisher(ctx context.Context, token string) *GistPublisher {
	tokenSource := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	httpClient := oauth2.NewClient(ctx, tokenSource)
	return NewGistPublisherWithClient(github.NewClient(httpClient))
}

// NewGistPublisherWithClient creates a publisher using an existing GitHub client
func NewGistPublisherWithClient(client *github.Client) *GistPublisher {
	return &GistPublisher{client: client}
}

// Publish creates a secret gist containing a single file and returns the gist's web URL
func (gp *GistPublisher) Publish(ctx context.Context, filename string, content []byte) (string, error) {
	gist := &github.Gist{
		Description: github.Ptr("parley conversation transcript"),
		Public:      github.Ptr(false),
		Files: map[github.GistFilename]github.GistFile{
			github.GistFilename(filename): {Content: github.Ptr(string(content))},
		},
	}

	created, _, err := gp.client.Gists.Create(ctx, gist)
	if err != nil {
		return "", fmt.Errorf("failed to create gist: %w", err)
	}
	return created.GetHTMLURL(), nil
}
