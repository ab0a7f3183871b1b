package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/shelf/internal/blog"
	"github.com/mesh-intelligence/shelf/pkg/orm"
	"github.com/mesh-intelligence/shelf/pkg/password"
)

func newDemoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Seed demo content and run example queries",
		Long:  "Create a demo author, category, post, and comment thread, then run\na few filtered queries and print the results.",
		RunE:  runDemo,
	}
}

func runDemo(cmd *cobra.Command, args []string) error {
	cfg, err := storeConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	db, err := orm.Open(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	models, err := blog.Register(db)
	if err != nil {
		return fmt.Errorf("register schemas: %w", err)
	}

	out := cmd.OutOrStdout()

	author, err := models.Users.Objects().Filter(orm.Lookups{"username": "demo_author"}).First()
	if err != nil {
		return err
	}
	if author == nil {
		hash, err := password.Hash("demo-password")
		if err != nil {
			return err
		}
		author, err = models.Users.Create(map[string]any{
			"username":      "demo_author",
			"email":         "author@example.com",
			"first_name":    "Demo",
			"last_name":     "Author",
			"password_hash": hash,
			"is_admin":      true,
		})
		if err != nil {
			return fmt.Errorf("create author: %w", err)
		}
		fmt.Fprintf(out, "Created author %s (id %d)\n", author.String("username"), author.Int("id"))
	}

	category, err := models.Categories.Objects().Filter(orm.Lookups{"slug": "technology"}).First()
	if err != nil {
		return err
	}
	if category == nil {
		category, err = models.Categories.Create(map[string]any{
			"name":        "Technology",
			"slug":        "technology",
			"description": "Posts about technology and programming",
		})
		if err != nil {
			return fmt.Errorf("create category: %w", err)
		}
	}

	slug := fmt.Sprintf("getting-started-%d", time.Now().UnixNano())
	post, err := models.Posts.Create(map[string]any{
		"title":        "Getting Started with Shelf",
		"slug":         slug,
		"content":      "Declare fields, register the schema, and query away.",
		"excerpt":      "A quick tour of the mapping engine",
		"author_id":    author.Int("id"),
		"category_id":  category.Int("id"),
		"status":       "published",
		"published_at": time.Now(),
	})
	if err != nil {
		return fmt.Errorf("create post: %w", err)
	}

	root, err := models.Comments.Create(map[string]any{
		"post_id":     post.Int("id"),
		"author_id":   author.Int("id"),
		"content":     "First!",
		"is_approved": true,
	})
	if err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	if _, err := models.Comments.Create(map[string]any{
		"post_id":     post.Int("id"),
		"author_id":   author.Int("id"),
		"parent_id":   root.Int("id"),
		"content":     "Replying to the first comment.",
		"is_approved": true,
	}); err != nil {
		return fmt.Errorf("create reply: %w", err)
	}

	published, err := models.Posts.Objects().
		Filter(orm.Lookups{"status": "published"}).
		OrderBy("published_at", true).
		Limit(5).
		All()
	if err != nil {
		return err
	}

	if flags.jsonMode {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(published)
	}

	fmt.Fprintf(out, "Published posts (newest first, max 5):\n")
	for _, p := range published {
		comments, err := models.Comments.Count(orm.Lookups{"post_id": p.Int("id"), "is_approved": true})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "  %-40s %d approved comments\n", p.String("title"), comments)
	}
	total, err := models.Posts.Count(orm.Lookups{})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Total posts: %d\n", total)
	return nil
}
