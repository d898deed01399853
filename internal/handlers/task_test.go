package handlers

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/tenant-task-api/internal/dto"
	apierrors "github.com/yukikurage/tenant-task-api/internal/errors"
	"github.com/yukikurage/tenant-task-api/internal/models"
	"github.com/yukikurage/tenant-task-api/internal/testutil"
)

// TaskHandlerTestSuite drives the task routes through the full router
type TaskHandlerTestSuite struct {
	suite.Suite
	ts     *testServer
	member string
}

func TestTaskHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(TaskHandlerTestSuite))
}

func (suite *TaskHandlerTestSuite) SetupTest() {
	suite.ts = newTestServer(suite.T(), nil)
	suite.member = suite.ts.memberToken(suite.T())
}

func (suite *TaskHandlerTestSuite) createTask(body map[string]interface{}) dto.TaskDTO {
	if _, ok := body["projectId"]; !ok {
		body["projectId"] = suite.ts.acme.Project.ID
	}
	rr := suite.ts.do(suite.T(), http.MethodPost, "/api/tasks", body, suite.member)
	suite.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())

	var task dto.TaskDTO
	testutil.ParseJSONResponse(suite.T(), rr, &task)
	return task
}

func taskPath(id uint64) string {
	return fmt.Sprintf("/api/tasks/%d", id)
}

func (suite *TaskHandlerTestSuite) TestCreateTask() {
	task := suite.createTask(map[string]interface{}{
		"title":      "Write handler tests",
		"assignedTo": suite.ts.acme.Admin.ID,
	})

	suite.Equal("Write handler tests", task.Title)
	suite.Equal(models.TaskStatusTodo, task.Status)
	suite.Equal(models.TaskPriorityMedium, task.Priority)
	suite.Equal(uint64(0), task.Version)
	suite.Equal(suite.ts.acme.Org.ID, task.OrganizationID)
	suite.Require().NotNil(task.AssigneeName)
	suite.Equal(suite.ts.acme.Admin.Name, *task.AssigneeName)
	suite.Nil(task.CompletedAt)
}

func (suite *TaskHandlerTestSuite) TestCreateTask_InvalidInput() {
	cases := map[string]map[string]interface{}{
		"missing title":    {"projectId": suite.ts.acme.Project.ID},
		"missing project":  {"title": "No project"},
		"bad priority":     {"title": "x", "projectId": suite.ts.acme.Project.ID, "priority": "URGENT"},
		"foreign project":  {"title": "x", "projectId": suite.ts.rival.Project.ID},
		"foreign assignee": {"title": "x", "projectId": suite.ts.acme.Project.ID, "assignedTo": suite.ts.rival.Member.ID},
	}

	for name, body := range cases {
		suite.Run(name, func() {
			rr := suite.ts.do(suite.T(), http.MethodPost, "/api/tasks", body, suite.member)
			suite.Equal(http.StatusBadRequest, rr.Code, rr.Body.String())

			var resp errorBody
			testutil.ParseJSONResponse(suite.T(), rr, &resp)
			suite.Equal(apierrors.ErrCodeInvalidInput, resp.Code)
		})
	}
}

func (suite *TaskHandlerTestSuite) TestGetTask_CrossTenantIsNotFound() {
	task := suite.createTask(map[string]interface{}{"title": "Secret"})

	rr := suite.ts.do(suite.T(), http.MethodGet, taskPath(task.ID), nil, suite.ts.rivalToken(suite.T()))
	suite.Equal(http.StatusNotFound, rr.Code)

	rr = suite.ts.do(suite.T(), http.MethodPut, taskPath(task.ID), map[string]interface{}{"version": 0, "title": "Mine"}, suite.ts.rivalToken(suite.T()))
	suite.Equal(http.StatusNotFound, rr.Code)

	rr = suite.ts.do(suite.T(), http.MethodGet, taskPath(task.ID), nil, suite.member)
	suite.Equal(http.StatusOK, rr.Code)
}

func (suite *TaskHandlerTestSuite) TestUpdateTask_VersionConflict() {
	task := suite.createTask(map[string]interface{}{"title": "Contended"})

	rr := suite.ts.do(suite.T(), http.MethodPut, taskPath(task.ID), map[string]interface{}{
		"version": 0,
		"title":   "First writer",
	}, suite.member)
	suite.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())

	var updated dto.TaskDTO
	testutil.ParseJSONResponse(suite.T(), rr, &updated)
	suite.Equal(uint64(1), updated.Version)

	rr = suite.ts.do(suite.T(), http.MethodPut, taskPath(task.ID), map[string]interface{}{
		"version": 0,
		"title":   "Second writer",
	}, suite.ts.adminToken(suite.T()))
	suite.Require().Equal(http.StatusConflict, rr.Code)

	var resp struct {
		Code    string                           `json:"code"`
		Details apierrors.VersionConflictDetails `json:"details"`
	}
	testutil.ParseJSONResponse(suite.T(), rr, &resp)
	suite.Equal(apierrors.ErrCodeVersionConflict, resp.Code)
	suite.Equal(apierrors.VersionConflictDetails{
		TaskID:          task.ID,
		ExpectedVersion: 0,
		CurrentVersion:  1,
	}, resp.Details)

	rr = suite.ts.do(suite.T(), http.MethodGet, taskPath(task.ID), nil, suite.member)
	var current dto.TaskDTO
	testutil.ParseJSONResponse(suite.T(), rr, &current)
	suite.Equal("First writer", current.Title)
}

func (suite *TaskHandlerTestSuite) TestUpdateTask_RequiresVersion() {
	task := suite.createTask(map[string]interface{}{"title": "Versioned"})

	rr := suite.ts.do(suite.T(), http.MethodPut, taskPath(task.ID), map[string]interface{}{"title": "No version"}, suite.member)
	suite.Equal(http.StatusBadRequest, rr.Code)

	rr = suite.ts.do(suite.T(), http.MethodPatch, taskPath(task.ID)+"/status", map[string]interface{}{"status": "DONE"}, suite.member)
	suite.Equal(http.StatusBadRequest, rr.Code)
}

func (suite *TaskHandlerTestSuite) TestUpdateTask_NullClearsField() {
	task := suite.createTask(map[string]interface{}{
		"title":       "Described",
		"description": "to be removed",
		"assignedTo":  suite.ts.acme.Member.ID,
	})

	rr := suite.ts.do(suite.T(), http.MethodPut, taskPath(task.ID), map[string]interface{}{
		"version":     task.Version,
		"description": nil,
		"assignedTo":  nil,
	}, suite.member)
	suite.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())

	var updated dto.TaskDTO
	testutil.ParseJSONResponse(suite.T(), rr, &updated)
	suite.Nil(updated.Description)
	suite.Nil(updated.AssignedTo)
	suite.Nil(updated.AssigneeName)
	suite.Equal("Described", updated.Title)
}

func (suite *TaskHandlerTestSuite) TestUpdateStatus() {
	task := suite.createTask(map[string]interface{}{"title": "Flow", "priority": "LOW"})
	statusPath := taskPath(task.ID) + "/status"

	rr := suite.ts.do(suite.T(), http.MethodPatch, statusPath, map[string]interface{}{"status": "DONE", "version": 0}, suite.member)
	suite.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())

	var done dto.TaskDTO
	testutil.ParseJSONResponse(suite.T(), rr, &done)
	suite.Equal(models.TaskStatusDone, done.Status)
	suite.Equal(uint64(1), done.Version)
	suite.NotNil(done.CompletedAt)

	rr = suite.ts.do(suite.T(), http.MethodPatch, statusPath, map[string]interface{}{"status": "DONE", "version": 1}, suite.member)
	suite.Require().Equal(http.StatusOK, rr.Code)
	var same dto.TaskDTO
	testutil.ParseJSONResponse(suite.T(), rr, &same)
	suite.Equal(uint64(1), same.Version)

	rr = suite.ts.do(suite.T(), http.MethodPatch, statusPath, map[string]interface{}{"status": "IN_PROGRESS", "version": 0}, suite.member)
	suite.Equal(http.StatusConflict, rr.Code)

	rr = suite.ts.do(suite.T(), http.MethodPatch, statusPath, map[string]interface{}{"status": "PAUSED", "version": 1}, suite.member)
	suite.Equal(http.StatusBadRequest, rr.Code)
}

func (suite *TaskHandlerTestSuite) TestDeleteTask() {
	task := suite.createTask(map[string]interface{}{"title": "Disposable"})

	rr := suite.ts.do(suite.T(), http.MethodDelete, taskPath(task.ID), nil, suite.member)
	suite.Equal(http.StatusNoContent, rr.Code)

	rr = suite.ts.do(suite.T(), http.MethodGet, taskPath(task.ID), nil, suite.member)
	suite.Equal(http.StatusNotFound, rr.Code)

	rr = suite.ts.do(suite.T(), http.MethodDelete, taskPath(task.ID), nil, suite.member)
	suite.Equal(http.StatusNotFound, rr.Code)
}

func (suite *TaskHandlerTestSuite) TestListTasks() {
	for _, title := range []string{"one", "two", "three"} {
		suite.ts.clock.Advance(time.Minute)
		suite.createTask(map[string]interface{}{"title": title})
	}
	path := fmt.Sprintf("/api/projects/%d/tasks", suite.ts.acme.Project.ID)

	rr := suite.ts.do(suite.T(), http.MethodGet, path+"?limit=2&page=2&order=asc", nil, suite.member)
	suite.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())

	var page dto.TaskListResponse
	testutil.ParseJSONResponse(suite.T(), rr, &page)
	suite.Equal(int64(3), page.Total)
	suite.Equal(2, page.Page)
	suite.Equal(2, page.Limit)
	suite.Require().Len(page.Tasks, 1)
	suite.Equal("three", page.Tasks[0].Title)

	for _, query := range []string{"?page=abc", "?page=0", "?limit=500", "?status=LATE", "?sortBy=title", "?assignedTo=-1"} {
		rr = suite.ts.do(suite.T(), http.MethodGet, path+query, nil, suite.member)
		suite.Equal(http.StatusBadRequest, rr.Code, query)
	}
}

func (suite *TaskHandlerTestSuite) TestInvalidIDParam() {
	for _, id := range []string{"abc", "0", "-4"} {
		rr := suite.ts.do(suite.T(), http.MethodGet, "/api/tasks/"+id, nil, suite.member)
		suite.Equal(http.StatusBadRequest, rr.Code, id)
	}
}

func (suite *TaskHandlerTestSuite) TestRequiresAuthentication() {
	rr := suite.ts.do(suite.T(), http.MethodPost, "/api/tasks", map[string]interface{}{
		"title":     "Anonymous",
		"projectId": suite.ts.acme.Project.ID,
	}, "")
	suite.Equal(http.StatusUnauthorized, rr.Code)

	rr = suite.ts.do(suite.T(), http.MethodGet, taskPath(1), nil, "not-a-token")
	suite.Equal(http.StatusUnauthorized, rr.Code)
}
