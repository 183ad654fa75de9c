// package services defines the backend clients used by the vcms packages
package services

import (
	"context"
	"net/url"

	"github.com/desertthunder/vcms/internal/models"
)

// Interfaces the higher-level packages depend on. Each is satisfied by one of the concrete
// services in this package and by small fakes in tests.
var (
	_ Authenticator     = (*AuthService)(nil)
	_ CategoryClient    = (*CategoryService)(nil)
	_ SearchClient      = (*VideoService)(nil)
	_ CredentialIssuer  = (*VideoService)(nil)
	_ MetadataCommitter = (*VideoService)(nil)
	_ TagGenerator      = (*TagService)(nil)
)

// Authenticator logs in and registers accounts.
type Authenticator interface {
	Login(ctx context.Context, creds models.Credentials) (*AuthResult, error)
	Register(ctx context.Context, reg models.Registration) (*models.User, error)
}

// CategoryClient searches, lists and creates categories.
type CategoryClient interface {
	Search(ctx context.Context, name string) ([]models.Category, error)
	Tree(ctx context.Context) ([]models.Category, error)
	Create(ctx context.Context, name, parent string) (*models.Category, error)
}

// SearchClient runs video searches and suggestion lookups.
type SearchClient interface {
	Search(ctx context.Context, q models.SearchQuery) ([]models.VideoMetadata, error)
	Suggestions(ctx context.Context, query string) ([]string, error)
}

// CredentialIssuer issues delegated upload URLs.
type CredentialIssuer interface {
	UploadCredential(ctx context.Context, filename, container string) (*url.URL, error)
}

// MetadataCommitter saves metadata for an uploaded asset.
type MetadataCommitter interface {
	Create(ctx context.Context, req models.VideoMetadataRequest) (*models.VideoMetadata, error)
}

// TagGenerator suggests tags for a title and description.
type TagGenerator interface {
	Generate(ctx context.Context, title, description string) ([]string, error)
}
