// Integration tests for the lookup grammar against a real store: case
// sensitivity, substring semantics with characters SQL patterns treat
// specially, membership, exclusion, ordering, and pagination.
package integration

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/shelf/pkg/orm"
)

func TestLookup_ContainsIsCaseSensitive(t *testing.T) {
	_, models := newBlog(t)
	mustCreateUser(t, models.Users, "McAdams", "mcadams@example.com")
	mustCreateUser(t, models.Users, "macadamia", "macadamia@example.com")

	rows, err := models.Users.Objects().
		Filter(orm.Lookups{"username__contains": "cAdam"}).All()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "McAdams", rows[0].String("username"))

	n, err := models.Users.Count(orm.Lookups{"username__icontains": "CADAM"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n, "icontains folds case on both sides")
}

func TestLookup_AffixMatchesTreatPatternCharsLiterally(t *testing.T) {
	_, models := newBlog(t)
	mustCreateUser(t, models.Users, "100%_sure", "sure@example.com")
	mustCreateUser(t, models.Users, "100x_sure", "decoy@example.com")

	// "%" and "_" are plain characters here, not wildcards.
	rows, err := models.Users.Objects().
		Filter(orm.Lookups{"username__startswith": "100%"}).All()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "100%_sure", rows[0].String("username"))

	n, err := models.Users.Count(orm.Lookups{"username__endswith": "%_sure"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestLookup_ComparisonAndMembership(t *testing.T) {
	_, models := newBlog(t)
	author := mustCreateUser(t, models.Users, "henry", "henry@example.com")
	for i := 1; i <= 5; i++ {
		post := mustCreatePost(t, models.Posts, author, fmt.Sprintf("post-%d", i), "published")
		_, err := models.Posts.Update(
			orm.Lookups{"id": post.PrimaryKey()},
			map[string]any{"view_count": int64(i * 10)},
		)
		require.NoError(t, err)
	}

	n, err := models.Posts.Count(orm.Lookups{"view_count__gte": 30})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = models.Posts.Count(orm.Lookups{"view_count__gt": 30, "view_count__lt": 50})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = models.Posts.Count(orm.Lookups{"slug__in": []string{"post-1", "post-4", "missing"}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = models.Posts.Count(orm.Lookups{"slug__in": []string{}})
	require.NoError(t, err)
	assert.Zero(t, n, "empty membership matches nothing")
}

func TestLookup_NullHandling(t *testing.T) {
	_, models := newBlog(t)
	author := mustCreateUser(t, models.Users, "iris", "iris@example.com")
	published := mustCreatePost(t, models.Posts, author, "with-date", "published")
	require.NoError(t, published.Set("published_at", published.Time("created_at")))
	require.NoError(t, published.Save())
	mustCreatePost(t, models.Posts, author, "no-date", "draft")

	rows, err := models.Posts.Objects().
		Filter(orm.Lookups{"published_at": nil}).All()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "no-date", rows[0].String("slug"))

	rows, err = models.Posts.Objects().
		Exclude(orm.Lookups{"published_at": nil}).All()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "with-date", rows[0].String("slug"))
}

func TestLookup_OrderAndPagination(t *testing.T) {
	_, models := newBlog(t)
	author := mustCreateUser(t, models.Users, "jack", "jack@example.com")
	for i := 0; i < 10; i++ {
		mustCreatePost(t, models.Posts, author, fmt.Sprintf("page-%02d", i), "published")
	}

	page, err := models.Posts.Objects().
		Filter(orm.Lookups{"status": "published"}).
		OrderBy("slug", true).
		Limit(3).
		All()
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, "page-09", page[0].String("slug"))
	assert.Equal(t, "page-08", page[1].String("slug"))
	assert.Equal(t, "page-07", page[2].String("slug"))
}

func TestLookup_DateTimeComparisonsOrderCorrectly(t *testing.T) {
	_, models := newBlog(t)
	author := mustCreateUser(t, models.Users, "kate", "kate@example.com")

	early := mustCreatePost(t, models.Posts, author, "early", "published")
	late := mustCreatePost(t, models.Posts, author, "late", "published")
	cutoff := early.Time("created_at")

	rows, err := models.Posts.Objects().
		Filter(orm.Lookups{"created_at__gt": cutoff}).All()
	require.NoError(t, err)
	for _, row := range rows {
		assert.Equal(t, late.String("slug"), row.String("slug"))
	}

	n, err := models.Posts.Count(orm.Lookups{"created_at__lte": late.Time("created_at")})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
