package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"groupnet-service/internal/blob"
	"groupnet-service/internal/engine"
	"groupnet-service/internal/mocks"
	"groupnet-service/internal/models"
)

// setupGroupRouter wires a GroupHandler behind a middleware that trusts the
// X-Test-User header, so tests can act as several users on one router.
func setupGroupRouter(handler *GroupHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", c.GetHeader("X-Test-User"))
		c.Next()
	})
	r.POST("/groups", handler.CreateGroup)
	r.GET("/groups", handler.ListGroups)
	r.GET("/groups/discover", handler.Discover)
	r.GET("/groups/:group_id", handler.GetGroup)
	r.POST("/groups/:group_id/join", handler.RequestJoin)
	r.GET("/groups/:group_id/join-requests", handler.PendingJoins)
	r.POST("/groups/:group_id/join-requests/:user_id/approve", handler.ApproveJoin)
	r.POST("/groups/:group_id/connections", handler.RequestConnect)
	r.GET("/groups/:group_id/connection-requests", handler.PendingConnections)
	r.POST("/groups/:group_id/connection-requests/:from_group_id/approve", handler.ApproveConnect)
	return r
}

func doRequest(router *gin.Engine, method, path, userID string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("X-Test-User", userID)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateGroupSuccess(t *testing.T) {
	eng := engine.New()
	groupRepo := new(mocks.GroupRepositoryMock)
	handler := NewGroupHandler(eng, groupRepo, blob.NewResolver(), nil)
	router := setupGroupRouter(handler)

	groupRepo.On("UpsertGroup", mock.Anything, mock.Anything).Return(nil).Once()

	rec := doRequest(router, http.MethodPost, "/groups", "alice", bytes.NewBufferString(`{"name":"hikers"}`))

	require.Equal(t, http.StatusCreated, rec.Code)
	var group models.Group
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&group))
	require.Equal(t, "hikers", group.Name)
	require.Equal(t, "alice", group.AdminID)
	require.Contains(t, group.Members, "alice")
	groupRepo.AssertExpectations(t)
}

func TestCreateGroupMissingName(t *testing.T) {
	handler := NewGroupHandler(engine.New(), new(mocks.GroupRepositoryMock), blob.NewResolver(), nil)
	router := setupGroupRouter(handler)

	rec := doRequest(router, http.MethodPost, "/groups", "alice", bytes.NewBufferString(`{}`))

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateGroupSurvivesPersistFailure(t *testing.T) {
	eng := engine.New()
	groupRepo := new(mocks.GroupRepositoryMock)
	handler := NewGroupHandler(eng, groupRepo, blob.NewResolver(), nil)
	router := setupGroupRouter(handler)

	groupRepo.On("UpsertGroup", mock.Anything, mock.Anything).Return(assert.AnError).Once()

	rec := doRequest(router, http.MethodPost, "/groups", "alice", bytes.NewBufferString(`{"name":"hikers"}`))

	require.Equal(t, http.StatusCreated, rec.Code)
	groupRepo.AssertExpectations(t)
}

func TestJoinFlow(t *testing.T) {
	eng := engine.New()
	group := eng.CreateGroup("hikers", "", "admin")
	groupRepo := new(mocks.GroupRepositoryMock)
	handler := NewGroupHandler(eng, groupRepo, blob.NewResolver(), nil)
	router := setupGroupRouter(handler)

	groupRepo.On("UpsertGroup", mock.Anything, mock.Anything).Return(nil).Twice()

	rec := doRequest(router, http.MethodPost, "/groups/"+group.ID+"/join", "bob", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = doRequest(router, http.MethodGet, "/groups/"+group.ID+"/join-requests", "admin", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var pendingResp struct {
		Pending []string `json:"pending"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&pendingResp))
	require.Equal(t, []string{"bob"}, pendingResp.Pending)

	rec = doRequest(router, http.MethodPost, "/groups/"+group.ID+"/join-requests/bob/approve", "admin", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	updated, err := eng.Group(group.ID)
	require.NoError(t, err)
	require.Contains(t, updated.Members, "bob")
	require.Empty(t, updated.PendingJoin)
	groupRepo.AssertExpectations(t)
}

func TestPendingJoinsNonAdminForbidden(t *testing.T) {
	eng := engine.New()
	group := eng.CreateGroup("hikers", "", "admin")
	handler := NewGroupHandler(eng, new(mocks.GroupRepositoryMock), blob.NewResolver(), nil)
	router := setupGroupRouter(handler)

	rec := doRequest(router, http.MethodGet, "/groups/"+group.ID+"/join-requests", "bob", nil)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestApproveJoinNoSuchRequest(t *testing.T) {
	eng := engine.New()
	group := eng.CreateGroup("hikers", "", "admin")
	handler := NewGroupHandler(eng, new(mocks.GroupRepositoryMock), blob.NewResolver(), nil)
	router := setupGroupRouter(handler)

	rec := doRequest(router, http.MethodPost, "/groups/"+group.ID+"/join-requests/bob/approve", "admin", nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequestJoinAlreadyMemberConflict(t *testing.T) {
	eng := engine.New()
	group := eng.CreateGroup("hikers", "", "admin")
	handler := NewGroupHandler(eng, new(mocks.GroupRepositoryMock), blob.NewResolver(), nil)
	router := setupGroupRouter(handler)

	rec := doRequest(router, http.MethodPost, "/groups/"+group.ID+"/join", "admin", nil)

	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetGroupSummaryForOutsider(t *testing.T) {
	eng := engine.New()
	group := eng.CreateGroup("hikers", "", "admin")
	handler := NewGroupHandler(eng, new(mocks.GroupRepositoryMock), blob.NewResolver(), nil)
	router := setupGroupRouter(handler)

	rec := doRequest(router, http.MethodGet, "/groups/"+group.ID, "stranger", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotContains(t, resp, "members")
	require.Equal(t, "hikers", resp["name"])
}

func TestGetGroupFullRecordForMember(t *testing.T) {
	eng := engine.New()
	group := eng.CreateGroup("hikers", "", "admin")
	handler := NewGroupHandler(eng, new(mocks.GroupRepositoryMock), blob.NewResolver(), nil)
	router := setupGroupRouter(handler)

	rec := doRequest(router, http.MethodGet, "/groups/"+group.ID, "admin", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Contains(t, resp, "members")
}

func TestConnectFlow(t *testing.T) {
	eng := engine.New()
	g1 := eng.CreateGroup("hikers", "", "alice")
	g2 := eng.CreateGroup("riders", "", "bob")
	groupRepo := new(mocks.GroupRepositoryMock)
	handler := NewGroupHandler(eng, groupRepo, blob.NewResolver(), nil)
	router := setupGroupRouter(handler)

	// RequestConnect persists the target, ApproveConnect persists both sides.
	groupRepo.On("UpsertGroup", mock.Anything, mock.Anything).Return(nil).Times(3)
	groupRepo.On("InsertChannel", mock.Anything, mock.Anything).Return(nil).Once()

	body := bytes.NewBufferString(`{"target_group_id":"` + g2.ID + `"}`)
	rec := doRequest(router, http.MethodPost, "/groups/"+g1.ID+"/connections", "alice", body)
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = doRequest(router, http.MethodGet, "/groups/"+g2.ID+"/connection-requests", "bob", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var pendingResp struct {
		Pending []string `json:"pending"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&pendingResp))
	require.Equal(t, []string{g1.ID}, pendingResp.Pending)

	rec = doRequest(router, http.MethodPost, "/groups/"+g2.ID+"/connection-requests/"+g1.ID+"/approve", "bob", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var approveResp struct {
		Channel models.InterChannel `json:"channel"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&approveResp))
	require.NotEmpty(t, approveResp.Channel.ID)

	left, err := eng.Group(g1.ID)
	require.NoError(t, err)
	right, err := eng.Group(g2.ID)
	require.NoError(t, err)
	require.Contains(t, left.Connections, g2.ID)
	require.Contains(t, right.Connections, g1.ID)
	groupRepo.AssertExpectations(t)
}

func TestRequestConnectSelf(t *testing.T) {
	eng := engine.New()
	g1 := eng.CreateGroup("hikers", "", "alice")
	handler := NewGroupHandler(eng, new(mocks.GroupRepositoryMock), blob.NewResolver(), nil)
	router := setupGroupRouter(handler)

	body := bytes.NewBufferString(`{"target_group_id":"` + g1.ID + `"}`)
	rec := doRequest(router, http.MethodPost, "/groups/"+g1.ID+"/connections", "alice", body)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRequestConnectNonMemberForbidden(t *testing.T) {
	eng := engine.New()
	g1 := eng.CreateGroup("hikers", "", "alice")
	g2 := eng.CreateGroup("riders", "", "bob")
	handler := NewGroupHandler(eng, new(mocks.GroupRepositoryMock), blob.NewResolver(), nil)
	router := setupGroupRouter(handler)

	body := bytes.NewBufferString(`{"target_group_id":"` + g2.ID + `"}`)
	rec := doRequest(router, http.MethodPost, "/groups/"+g1.ID+"/connections", "carol", body)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestApproveConnectRequiresTargetAdmin(t *testing.T) {
	eng := engine.New()
	g1 := eng.CreateGroup("hikers", "", "alice")
	g2 := eng.CreateGroup("riders", "", "bob")
	groupRepo := new(mocks.GroupRepositoryMock)
	handler := NewGroupHandler(eng, groupRepo, blob.NewResolver(), nil)
	router := setupGroupRouter(handler)

	groupRepo.On("UpsertGroup", mock.Anything, mock.Anything).Return(nil).Once()

	body := bytes.NewBufferString(`{"target_group_id":"` + g2.ID + `"}`)
	rec := doRequest(router, http.MethodPost, "/groups/"+g1.ID+"/connections", "alice", body)
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = doRequest(router, http.MethodPost, "/groups/"+g2.ID+"/connection-requests/"+g1.ID+"/approve", "alice", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	groupRepo.AssertExpectations(t)
}

func TestDiscoverListsAllGroups(t *testing.T) {
	eng := engine.New()
	eng.CreateGroup("hikers", "", "alice")
	eng.CreateGroup("riders", "", "bob")
	handler := NewGroupHandler(eng, new(mocks.GroupRepositoryMock), blob.NewResolver(), nil)
	router := setupGroupRouter(handler)

	rec := doRequest(router, http.MethodGet, "/groups/discover", "stranger", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Groups []models.GroupSummary `json:"groups"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Groups, 2)
}

func TestListGroupsOnlyVisible(t *testing.T) {
	eng := engine.New()
	eng.CreateGroup("hikers", "", "alice")
	eng.CreateGroup("riders", "", "bob")
	handler := NewGroupHandler(eng, new(mocks.GroupRepositoryMock), blob.NewResolver(), nil)
	router := setupGroupRouter(handler)

	rec := doRequest(router, http.MethodGet, "/groups", "alice", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Groups []models.Group `json:"groups"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Groups, 1)
	require.Equal(t, "hikers", resp.Groups[0].Name)
}
