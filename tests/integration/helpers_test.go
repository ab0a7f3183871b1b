// Package integration exercises the mapping engine end to end through the
// public contract: open a store on disk, register the blog schemas, and run
// CRUD, lookup, and concurrency scenarios against real SQLite files.
package integration

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/shelf/internal/blog"
	"github.com/mesh-intelligence/shelf/pkg/orm"
)

// openStore opens a store in an isolated temp directory. Each test gets its
// own database file.
func openStore(t *testing.T) *orm.DB {
	t.Helper()
	db, err := orm.Open(orm.Config{Path: filepath.Join(t.TempDir(), "shelf.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// newBlog opens a store and registers all blog schemas.
func newBlog(t *testing.T) (*orm.DB, *blog.Models) {
	t.Helper()
	db := openStore(t)
	models, err := blog.Register(db)
	require.NoError(t, err)
	return db, models
}

// mustCreateUser creates a user with sensible defaults for the remaining
// required fields.
func mustCreateUser(t *testing.T, users *orm.Model, username, email string) *orm.Instance {
	t.Helper()
	in, err := users.Create(map[string]any{
		"username":      username,
		"email":         email,
		"first_name":    "Test",
		"last_name":     "User",
		"password_hash": "unused",
	})
	require.NoError(t, err)
	return in
}

// mustCreatePost creates a post owned by author with the given slug and
// status.
func mustCreatePost(t *testing.T, posts *orm.Model, author *orm.Instance, slug, status string) *orm.Instance {
	t.Helper()
	in, err := posts.Create(map[string]any{
		"title":     "Post " + slug,
		"slug":      slug,
		"author_id": author.PrimaryKey(),
		"status":    status,
	})
	require.NoError(t, err)
	return in
}
