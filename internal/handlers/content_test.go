package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"groupnet-service/internal/blob"
	"groupnet-service/internal/engine"
	"groupnet-service/internal/mocks"
	"groupnet-service/internal/models"
	"groupnet-service/internal/ws"
)

func setupContentRouter(handler *ContentHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", c.GetHeader("X-Test-User"))
		c.Next()
	})
	r.GET("/feed", handler.Feed)
	r.GET("/groups/:group_id/posts", handler.GroupPosts)
	r.POST("/groups/:group_id/posts", handler.PublishPost)
	r.GET("/groups/:group_id/messages", handler.GetGroupMessages)
	r.POST("/groups/:group_id/messages", handler.PostGroupMessage)
	r.GET("/channels", handler.ListChannels)
	r.GET("/channels/:channel_id/messages", handler.GetChannelMessages)
	r.POST("/channels/:channel_id/messages", handler.PostChannelMessage)
	return r
}

func newContentHandler(eng *engine.Engine, postRepo *mocks.PostRepositoryMock, messageRepo *mocks.MessageRepositoryMock) *ContentHandler {
	return NewContentHandler(eng, postRepo, messageRepo, blob.NewResolver(), ws.NewHub(), nil)
}

// connectGroups wires two groups through the full request/approve handshake
// and returns the minted channel.
func connectGroups(t *testing.T, eng *engine.Engine, from, to models.Group) models.InterChannel {
	t.Helper()
	require.NoError(t, eng.RequestConnect(from.ID, to.ID, from.AdminID))
	ch, err := eng.ApproveConnect(to.ID, from.ID, to.AdminID)
	require.NoError(t, err)
	return ch
}

func TestPublishPostSuccess(t *testing.T) {
	eng := engine.New()
	group := eng.CreateGroup("hikers", "", "alice")
	postRepo := new(mocks.PostRepositoryMock)
	handler := newContentHandler(eng, postRepo, new(mocks.MessageRepositoryMock))
	router := setupContentRouter(handler)

	postRepo.On("Append", mock.Anything, mock.Anything).Return(nil).Once()

	body := bytes.NewBufferString(`{"image_src":"https://cdn.example/p.jpg","caption":"summit"}`)
	rec := doRequest(router, http.MethodPost, "/groups/"+group.ID+"/posts", "alice", body)

	require.Equal(t, http.StatusCreated, rec.Code)
	var post models.Post
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&post))
	require.Equal(t, group.ID, post.GroupID)
	require.Equal(t, "alice", post.AuthorID)
	require.Equal(t, "https://cdn.example/p.jpg", post.ImageRef)
	require.Equal(t, "summit", post.Caption)
	postRepo.AssertExpectations(t)
}

func TestPublishPostMissingImage(t *testing.T) {
	eng := engine.New()
	group := eng.CreateGroup("hikers", "", "alice")
	handler := newContentHandler(eng, new(mocks.PostRepositoryMock), new(mocks.MessageRepositoryMock))
	router := setupContentRouter(handler)

	body := bytes.NewBufferString(`{"caption":"no picture"}`)
	rec := doRequest(router, http.MethodPost, "/groups/"+group.ID+"/posts", "alice", body)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPublishPostNonMemberForbidden(t *testing.T) {
	eng := engine.New()
	group := eng.CreateGroup("hikers", "", "alice")
	handler := newContentHandler(eng, new(mocks.PostRepositoryMock), new(mocks.MessageRepositoryMock))
	router := setupContentRouter(handler)

	body := bytes.NewBufferString(`{"image_src":"https://cdn.example/p.jpg"}`)
	rec := doRequest(router, http.MethodPost, "/groups/"+group.ID+"/posts", "bob", body)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPublishPostSurvivesPersistFailure(t *testing.T) {
	eng := engine.New()
	group := eng.CreateGroup("hikers", "", "alice")
	postRepo := new(mocks.PostRepositoryMock)
	handler := newContentHandler(eng, postRepo, new(mocks.MessageRepositoryMock))
	router := setupContentRouter(handler)

	postRepo.On("Append", mock.Anything, mock.Anything).Return(assert.AnError).Once()

	body := bytes.NewBufferString(`{"image_src":"https://cdn.example/p.jpg"}`)
	rec := doRequest(router, http.MethodPost, "/groups/"+group.ID+"/posts", "alice", body)

	require.Equal(t, http.StatusCreated, rec.Code)
	postRepo.AssertExpectations(t)
}

func TestFeedIncludesConnectedGroupsOnly(t *testing.T) {
	eng := engine.New()
	g1 := eng.CreateGroup("hikers", "", "alice")
	g2 := eng.CreateGroup("riders", "", "bob")
	g3 := eng.CreateGroup("sailors", "", "carol")
	connectGroups(t, eng, g1, g2)
	connectGroups(t, eng, g2, g3)

	_, err := eng.PublishPost(g1.ID, "alice", "img-a", "")
	require.NoError(t, err)
	_, err = eng.PublishPost(g2.ID, "bob", "img-b", "")
	require.NoError(t, err)
	_, err = eng.PublishPost(g3.ID, "carol", "img-c", "")
	require.NoError(t, err)

	handler := newContentHandler(eng, new(mocks.PostRepositoryMock), new(mocks.MessageRepositoryMock))
	router := setupContentRouter(handler)

	rec := doRequest(router, http.MethodGet, "/feed", "alice", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Posts []models.Post `json:"posts"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Posts, 2)
	for _, p := range resp.Posts {
		require.NotEqual(t, g3.ID, p.GroupID)
	}
}

func TestFeedEnrichesAuthorNames(t *testing.T) {
	eng := engine.New()
	eng.UpsertProfile(models.Profile{ID: "alice", Name: "Alice A."})
	g1 := eng.CreateGroup("hikers", "", "alice")
	_, err := eng.PublishPost(g1.ID, "alice", "img-a", "")
	require.NoError(t, err)

	handler := newContentHandler(eng, new(mocks.PostRepositoryMock), new(mocks.MessageRepositoryMock))
	router := setupContentRouter(handler)

	rec := doRequest(router, http.MethodGet, "/feed", "alice", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Posts []struct {
			AuthorName string `json:"author_name"`
		} `json:"posts"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Posts, 1)
	require.Equal(t, "Alice A.", resp.Posts[0].AuthorName)
}

func TestGroupPostsVisibleToConnectedMember(t *testing.T) {
	eng := engine.New()
	g1 := eng.CreateGroup("hikers", "", "alice")
	g2 := eng.CreateGroup("riders", "", "bob")
	connectGroups(t, eng, g1, g2)
	_, err := eng.PublishPost(g1.ID, "alice", "img-a", "")
	require.NoError(t, err)

	handler := newContentHandler(eng, new(mocks.PostRepositoryMock), new(mocks.MessageRepositoryMock))
	router := setupContentRouter(handler)

	rec := doRequest(router, http.MethodGet, "/groups/"+g1.ID+"/posts", "bob", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// The connected group's chat stays private.
	rec = doRequest(router, http.MethodGet, "/groups/"+g1.ID+"/messages", "bob", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGroupMessageFlow(t *testing.T) {
	eng := engine.New()
	group := eng.CreateGroup("hikers", "", "alice")
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := newContentHandler(eng, new(mocks.PostRepositoryMock), messageRepo)
	router := setupContentRouter(handler)

	messageRepo.On("Append", mock.Anything, mock.Anything).Return(nil).Once()

	body := bytes.NewBufferString(`{"text":"trailhead at nine"}`)
	rec := doRequest(router, http.MethodPost, "/groups/"+group.ID+"/messages", "alice", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(router, http.MethodGet, "/groups/"+group.ID+"/messages", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Messages []models.Message `json:"messages"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Messages, 1)
	require.Equal(t, "trailhead at nine", resp.Messages[0].Text)
	messageRepo.AssertExpectations(t)
}

func TestGroupMessageBlankText(t *testing.T) {
	eng := engine.New()
	group := eng.CreateGroup("hikers", "", "alice")
	handler := newContentHandler(eng, new(mocks.PostRepositoryMock), new(mocks.MessageRepositoryMock))
	router := setupContentRouter(handler)

	body := bytes.NewBufferString(`{"text":"   "}`)
	rec := doRequest(router, http.MethodPost, "/groups/"+group.ID+"/messages", "alice", body)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChannelMessageFlow(t *testing.T) {
	eng := engine.New()
	g1 := eng.CreateGroup("hikers", "", "alice")
	g2 := eng.CreateGroup("riders", "", "bob")
	ch := connectGroups(t, eng, g1, g2)
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := newContentHandler(eng, new(mocks.PostRepositoryMock), messageRepo)
	router := setupContentRouter(handler)

	messageRepo.On("Append", mock.Anything, mock.Anything).Return(nil).Once()

	body := bytes.NewBufferString(`{"text":"joint ride on sunday?"}`)
	rec := doRequest(router, http.MethodPost, "/channels/"+ch.ID+"/messages", "alice", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	// The other side of the channel reads it back.
	rec = doRequest(router, http.MethodGet, "/channels/"+ch.ID+"/messages", "bob", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Messages []models.Message `json:"messages"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Messages, 1)
	require.Equal(t, ch.ID, resp.Messages[0].ChannelID)
	messageRepo.AssertExpectations(t)
}

func TestChannelMessagesOutsiderForbidden(t *testing.T) {
	eng := engine.New()
	g1 := eng.CreateGroup("hikers", "", "alice")
	g2 := eng.CreateGroup("riders", "", "bob")
	ch := connectGroups(t, eng, g1, g2)
	handler := newContentHandler(eng, new(mocks.PostRepositoryMock), new(mocks.MessageRepositoryMock))
	router := setupContentRouter(handler)

	rec := doRequest(router, http.MethodGet, "/channels/"+ch.ID+"/messages", "carol", nil)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestListChannels(t *testing.T) {
	eng := engine.New()
	g1 := eng.CreateGroup("hikers", "", "alice")
	g2 := eng.CreateGroup("riders", "", "bob")
	g3 := eng.CreateGroup("sailors", "", "carol")
	connectGroups(t, eng, g1, g2)
	connectGroups(t, eng, g2, g3)
	handler := newContentHandler(eng, new(mocks.PostRepositoryMock), new(mocks.MessageRepositoryMock))
	router := setupContentRouter(handler)

	rec := doRequest(router, http.MethodGet, "/channels", "alice", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Channels []models.InterChannel `json:"channels"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Channels, 1)
}
