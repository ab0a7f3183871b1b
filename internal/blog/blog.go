// Package blog declares the demo content schemas used by the shelf CLI and
// the integration tests. The package is an ordinary consumer of the mapping
// engine's public contract.
package blog

import (
	"fmt"

	"github.com/mesh-intelligence/shelf/pkg/orm"
)

// Table names for the demo schemas.
const (
	UsersTable      = "users"
	CategoriesTable = "categories"
	PostsTable      = "posts"
	CommentsTable   = "comments"
)

// Models bundles the registered model handles.
type Models struct {
	Users      *orm.Model
	Categories *orm.Model
	Posts      *orm.Model
	Comments   *orm.Model
}

// UserFields declares the users schema.
func UserFields() []orm.Field {
	return []orm.Field{
		{Name: "id", Kind: orm.KindInteger, PrimaryKey: true},
		{Name: "username", Kind: orm.KindText, Unique: true, MaxLength: 50},
		{Name: "email", Kind: orm.KindText, Unique: true, MaxLength: 100},
		{Name: "first_name", Kind: orm.KindText, MaxLength: 30},
		{Name: "last_name", Kind: orm.KindText, MaxLength: 30},
		{Name: "password_hash", Kind: orm.KindText},
		{Name: "is_active", Kind: orm.KindBoolean, Default: true},
		{Name: "is_admin", Kind: orm.KindBoolean, Default: false},
		{Name: "date_joined", Kind: orm.KindDateTime, AutoNowAdd: true},
		{Name: "last_login", Kind: orm.KindDateTime, Nullable: true},
	}
}

// CategoryFields declares the categories schema.
func CategoryFields() []orm.Field {
	return []orm.Field{
		{Name: "id", Kind: orm.KindInteger, PrimaryKey: true},
		{Name: "name", Kind: orm.KindText, Unique: true, MaxLength: 50},
		{Name: "slug", Kind: orm.KindText, Unique: true, MaxLength: 60},
		{Name: "description", Kind: orm.KindText, Nullable: true},
		{Name: "is_active", Kind: orm.KindBoolean, Default: true},
		{Name: "created_at", Kind: orm.KindDateTime, AutoNowAdd: true},
	}
}

// PostFields declares the posts schema.
func PostFields() []orm.Field {
	return []orm.Field{
		{Name: "id", Kind: orm.KindInteger, PrimaryKey: true},
		{Name: "title", Kind: orm.KindText, MaxLength: 200},
		{Name: "slug", Kind: orm.KindText, Unique: true, MaxLength: 220},
		{Name: "content", Kind: orm.KindText, Nullable: true},
		{Name: "excerpt", Kind: orm.KindText, Nullable: true},
		{Name: "author_id", Kind: orm.KindForeignKey, References: UsersTable},
		{Name: "category_id", Kind: orm.KindForeignKey, References: CategoriesTable, Nullable: true},
		{Name: "status", Kind: orm.KindText, Default: "draft", MaxLength: 20},
		{Name: "is_featured", Kind: orm.KindBoolean, Default: false},
		{Name: "view_count", Kind: orm.KindInteger, Default: int64(0)},
		{Name: "created_at", Kind: orm.KindDateTime, AutoNowAdd: true},
		{Name: "updated_at", Kind: orm.KindDateTime, AutoNow: true},
		{Name: "published_at", Kind: orm.KindDateTime, Nullable: true},
	}
}

// CommentFields declares the comments schema. parent_id is self-referential
// and nullable: a root comment has no parent, a reply stores a prior
// comment's primary key.
func CommentFields() []orm.Field {
	return []orm.Field{
		{Name: "id", Kind: orm.KindInteger, PrimaryKey: true},
		{Name: "post_id", Kind: orm.KindForeignKey, References: PostsTable},
		{Name: "author_id", Kind: orm.KindForeignKey, References: UsersTable},
		{Name: "parent_id", Kind: orm.KindForeignKey, References: orm.RefSelf, Nullable: true},
		{Name: "content", Kind: orm.KindText},
		{Name: "is_approved", Kind: orm.KindBoolean, Default: false},
		{Name: "created_at", Kind: orm.KindDateTime, AutoNowAdd: true},
		{Name: "updated_at", Kind: orm.KindDateTime, AutoNow: true},
	}
}

// Register registers all demo schemas against db. Referenced tables register
// before their referencing tables so foreign key columns resolve to the
// right key type.
func Register(db *orm.DB) (*Models, error) {
	users, err := db.Register(UsersTable, UserFields())
	if err != nil {
		return nil, fmt.Errorf("registering users: %w", err)
	}
	categories, err := db.Register(CategoriesTable, CategoryFields())
	if err != nil {
		return nil, fmt.Errorf("registering categories: %w", err)
	}
	posts, err := db.Register(PostsTable, PostFields())
	if err != nil {
		return nil, fmt.Errorf("registering posts: %w", err)
	}
	comments, err := db.Register(CommentsTable, CommentFields())
	if err != nil {
		return nil, fmt.Errorf("registering comments: %w", err)
	}
	return &Models{Users: users, Categories: categories, Posts: posts, Comments: comments}, nil
}
