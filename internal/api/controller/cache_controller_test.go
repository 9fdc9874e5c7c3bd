package controller

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/bassista/go_obpdocs/internal/cache"
)

// MockRefresher is a mock implementation of Refresher
type MockRefresher struct {
	mock.Mock
}

func (m *MockRefresher) Trigger(partition string) {
	m.Called(partition)
}

func postRefresh(refresher Refresher, query string) *httptest.ResponseRecorder {
	r := gin.New()
	r.POST("/api/cache/refresh", NewCacheController(refresher).Refresh)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/cache/refresh"+query, nil))
	return w
}

func TestCacheController_RefreshAll(t *testing.T) {
	m := &MockRefresher{}
	m.On("Trigger", cache.ResourceDocsPartition).Return().Once()
	m.On("Trigger", cache.MessageDocsPartition).Return().Once()

	w := postRefresh(m, "")

	assert.Equal(t, http.StatusAccepted, w.Code)
	m.AssertExpectations(t)
}

func TestCacheController_RefreshOne(t *testing.T) {
	m := &MockRefresher{}
	m.On("Trigger", cache.MessageDocsPartition).Return().Once()

	w := postRefresh(m, "?partition="+cache.MessageDocsPartition)

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"refreshing":["message-docs-cache"]}`, w.Body.String())
	m.AssertNotCalled(t, "Trigger", cache.ResourceDocsPartition)
}

func TestCacheController_RefreshUnknownPartition(t *testing.T) {
	m := &MockRefresher{}

	w := postRefresh(m, "?partition=glossary")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	m.AssertNotCalled(t, "Trigger", mock.Anything)
}
