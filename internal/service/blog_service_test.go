package service

import (
	"emath_backend/internal/model"
	"emath_backend/internal/testutil"
	"emath_backend/internal/util"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlogVisibility(t *testing.T) {
	env := newTestEnv(t)
	setter := testutil.CreateUser(t, env.db, "setter", model.RankSetter)
	other := testutil.CreateUser(t, env.db, "other", model.RankSetter)
	user := testutil.CreateUser(t, env.db, "reader", model.RankUser)

	_, err := env.blog.Create(env.viewer(t, user), &BlogPostRequest{Title: "Hi"})
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	future := testNow.Add(time.Hour)
	scheduled, err := env.blog.Create(env.viewer(t, setter), &BlogPostRequest{Title: "De thi thu", Visible: true, PublishOn: &future})
	require.NoError(t, err)
	assert.Equal(t, "de-thi-thu", scheduled.Slug)

	published, err := env.blog.Create(env.viewer(t, setter), &BlogPostRequest{Title: "Ket qua", Visible: true})
	require.NoError(t, err)

	_, err = env.blog.Get(env.viewer(t, user), scheduled.ID)
	assert.ErrorIs(t, err, util.ErrNotFound)
	_, err = env.blog.Get(env.viewer(t, setter), scheduled.ID)
	assert.NoError(t, err)

	posts, total, err := env.blog.List(1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, posts, 1)
	assert.Equal(t, published.ID, posts[0].ID)

	_, err = env.blog.Update(env.viewer(t, other), published.ID, &BlogPostRequest{Title: "Sua"})
	assert.ErrorIs(t, err, util.ErrPermissionDenied)
	require.NoError(t, env.blog.Delete(env.viewer(t, setter), published.ID))
	_, err = env.blog.Get(env.viewer(t, user), published.ID)
	assert.ErrorIs(t, err, util.ErrNotFound)
}
