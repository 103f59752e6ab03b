package rest_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aokisora/socialnet/server/model"
)

func TestCreateComment(t *testing.T) {
	r, db, _ := newAppRouter(t)
	alex, _ := signupAndLogin(t, r, "alex")
	mina, token := signupAndLogin(t, r, "mina")

	p := &model.Post{AuthorID: alex, Content: "post"}
	require.NoError(t, db.Create(p).Error)

	w := postJSON(r, "/api/comments/new",
		map[string]interface{}{"postID": p.ID, "content": "nice one"}, bearer(token)...)
	require.Equal(t, http.StatusCreated, w.Code)

	var cm model.Comment
	require.NoError(t, db.First(&cm).Error)
	assert.Equal(t, mina, cm.AuthorID)
	assert.Equal(t, p.ID, cm.PostID)
}

func TestCreateComment_MissingPost(t *testing.T) {
	r, _, _ := newAppRouter(t)
	_, token := signupAndLogin(t, r, "mina")

	w := postJSON(r, "/api/comments/new",
		map[string]interface{}{"postID": 9999, "content": "orphan"}, bearer(token)...)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateComment_ContentTooLong(t *testing.T) {
	r, db, _ := newAppRouter(t)
	mina, token := signupAndLogin(t, r, "mina")

	p := &model.Post{AuthorID: mina, Content: "post"}
	require.NoError(t, db.Create(p).Error)

	w := postJSON(r, "/api/comments/new",
		map[string]interface{}{"postID": p.ID, "content": strings.Repeat("a", 1001)}, bearer(token)...)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReadComments_ByPost(t *testing.T) {
	r, db, _ := newAppRouter(t)
	mina, token := signupAndLogin(t, r, "mina")

	p1 := &model.Post{AuthorID: mina, Content: "a"}
	p2 := &model.Post{AuthorID: mina, Content: "b"}
	require.NoError(t, db.Create(p1).Error)
	require.NoError(t, db.Create(p2).Error)
	require.NoError(t, db.Create(&model.Comment{AuthorID: mina, PostID: p1.ID, Content: "on a"}).Error)
	require.NoError(t, db.Create(&model.Comment{AuthorID: mina, PostID: p2.ID, Content: "on b"}).Error)

	w := getJSON(r, fmt.Sprintf("/api/comments/read?postID=%d", p1.ID), bearer(token)...)
	require.Equal(t, http.StatusOK, w.Code)

	var comments []model.Comment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &comments))
	require.Len(t, comments, 1)
	assert.Equal(t, "on a", comments[0].Content)
}

func TestUpdateComment_AuthorOnly(t *testing.T) {
	r, db, _ := newAppRouter(t)
	mina, token := signupAndLogin(t, r, "mina")
	_, otherToken := signupAndLogin(t, r, "alex")

	p := &model.Post{AuthorID: mina, Content: "post"}
	require.NoError(t, db.Create(p).Error)
	cm := &model.Comment{AuthorID: mina, PostID: p.ID, Content: "draft"}
	require.NoError(t, db.Create(cm).Error)
	path := fmt.Sprintf("/api/comments/update/%d", cm.ID)

	w := putJSON(r, path, map[string]string{"content": "hacked"}, bearer(otherToken)...)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = putJSON(r, path, map[string]string{"content": "final"}, bearer(token)...)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestDeleteComment_AuthorOnly(t *testing.T) {
	r, db, _ := newAppRouter(t)
	mina, token := signupAndLogin(t, r, "mina")
	_, otherToken := signupAndLogin(t, r, "alex")

	p := &model.Post{AuthorID: mina, Content: "post"}
	require.NoError(t, db.Create(p).Error)
	cm := &model.Comment{AuthorID: mina, PostID: p.ID, Content: "gone soon"}
	require.NoError(t, db.Create(cm).Error)
	path := fmt.Sprintf("/api/comments/delete/%d", cm.ID)

	w := deleteJSON(r, path, nil, bearer(otherToken)...)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = deleteJSON(r, path, nil, bearer(token)...)
	require.Equal(t, http.StatusOK, w.Code)

	var count int64
	db.Model(&model.Comment{}).Count(&count)
	assert.EqualValues(t, 0, count)
}
