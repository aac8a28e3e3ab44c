package handlers

import (
	"fmt"
	"net/http"

	"github.com/yukikurage/kanban-sync/internal/dto"
	apierrors "github.com/yukikurage/kanban-sync/internal/errors"
	"github.com/yukikurage/kanban-sync/internal/models"
	"github.com/yukikurage/kanban-sync/internal/testutil"
)

func (s *HandlerTestSuite) TestCreateTask() {
	w := s.do(http.MethodPost, "/api/tasks", map[string]any{
		"title":            "Design API",
		"description":      "REST surface",
		"assigned_user_id": s.member.ID,
		"priority":         "High",
	}, s.adminToken)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var task dto.TaskDTO
	s.decode(w, &task)
	s.Equal("Design API", task.Title)
	s.Equal(int64(1), task.Version)
	s.Equal(models.TaskStatusTodo, task.Status)
	s.Equal(models.TaskPriorityHigh, task.Priority)
	s.Equal(dto.UserSummaryDTO{ID: s.member.ID, Username: "member"}, task.AssignedUser)
}

func (s *HandlerTestSuite) TestCreateTask_Validation() {
	testutil.CreateTask(s.T(), s.db, "Existing", s.admin.ID, models.TaskStatusTodo)

	cases := []struct {
		title string
		code  string
	}{
		{"Done", apierrors.ErrCodeReservedTitle},
		{"Existing", apierrors.ErrCodeDuplicateTitle},
	}
	for _, tc := range cases {
		w := s.do(http.MethodPost, "/api/tasks", map[string]any{
			"title":            tc.title,
			"assigned_user_id": s.admin.ID,
		}, s.adminToken)
		s.Require().Equal(http.StatusBadRequest, w.Code, tc.title)

		var apiErr apierrors.APIError
		s.decode(w, &apiErr)
		s.Equal(tc.code, apiErr.Code)
	}

	w := s.do(http.MethodPost, "/api/tasks", map[string]any{"description": "no title"}, s.adminToken)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlerTestSuite) TestCreateTask_AdminOnly() {
	w := s.do(http.MethodPost, "/api/tasks", map[string]any{
		"title":            "Sneaky",
		"assigned_user_id": s.member.ID,
	}, s.memberTok)
	s.Equal(http.StatusForbidden, w.Code)

	s.Equal(http.StatusUnauthorized, s.do(http.MethodGet, "/api/tasks", nil, "").Code)
}

func (s *HandlerTestSuite) TestListAndGetTask() {
	task := testutil.CreateTask(s.T(), s.db, "Visible", s.member.ID, models.TaskStatusTodo)

	w := s.do(http.MethodGet, "/api/tasks", nil, s.memberTok)
	s.Require().Equal(http.StatusOK, w.Code)
	var tasks []dto.TaskDTO
	s.decode(w, &tasks)
	s.Require().Len(tasks, 1)
	s.Equal("member", tasks[0].AssignedUser.Username)

	w = s.do(http.MethodGet, fmt.Sprintf("/api/tasks/%d", task.ID), nil, s.memberTok)
	s.Equal(http.StatusOK, w.Code)

	s.Equal(http.StatusNotFound, s.do(http.MethodGet, "/api/tasks/9999", nil, s.memberTok).Code)
	s.Equal(http.StatusBadRequest, s.do(http.MethodGet, "/api/tasks/abc", nil, s.memberTok).Code)
}

func (s *HandlerTestSuite) TestUpdateTask_ConflictReturnsCurrentTask() {
	task := testutil.CreateTask(s.T(), s.db, "Shared", s.member.ID, models.TaskStatusTodo)
	path := fmt.Sprintf("/api/tasks/%d", task.ID)

	w := s.do(http.MethodPut, path, map[string]any{"status": "In Progress", "version": 1}, s.adminToken)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var updated dto.TaskDTO
	s.decode(w, &updated)
	s.Equal(int64(2), updated.Version)
	s.Require().NotNil(updated.LastEditedBy)
	s.Equal("admin", updated.LastEditedBy.Username)

	w = s.do(http.MethodPut, path, map[string]any{"description": "stale edit", "version": 1}, s.memberTok)
	s.Require().Equal(http.StatusConflict, w.Code, w.Body.String())
	var conflict dto.ConflictResponse
	s.decode(w, &conflict)
	s.Equal(apierrors.ErrCodeConflict, conflict.Code)
	s.NotEmpty(conflict.Reason)
	s.Equal(int64(2), conflict.CurrentTask.Version)
	s.Equal(models.TaskStatusInProgress, conflict.CurrentTask.Status)

	w = s.do(http.MethodPut, path, map[string]any{
		"description": "stale edit",
		"version":     conflict.CurrentTask.Version,
		"resolution":  "merge",
	}, s.memberTok)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.decode(w, &updated)
	s.Equal(int64(3), updated.Version)
	s.Equal("stale edit", updated.Description)
}

func (s *HandlerTestSuite) TestUpdateTask_Permissions() {
	other := testutil.CreateUser(s.T(), s.db, "other", false)
	task := testutil.CreateTask(s.T(), s.db, "Mine", s.member.ID, models.TaskStatusTodo)
	path := fmt.Sprintf("/api/tasks/%d", task.ID)

	w := s.do(http.MethodPut, path, map[string]any{"status": "Done"}, s.token(other.ID))
	s.Equal(http.StatusForbidden, w.Code)

	w = s.do(http.MethodPatch, path, map[string]any{"status": "Done"}, s.memberTok)
	s.Equal(http.StatusOK, w.Code)

	w = s.do(http.MethodPut, path, map[string]any{"status": "Blocked"}, s.memberTok)
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPut, path, map[string]any{"resolution": "force"}, s.memberTok)
	s.Equal(http.StatusBadRequest, w.Code)

	s.Equal(http.StatusNotFound, s.do(http.MethodPut, "/api/tasks/9999", map[string]any{}, s.adminToken).Code)
}

func (s *HandlerTestSuite) TestDeleteTask() {
	task := testutil.CreateTask(s.T(), s.db, "Doomed", s.member.ID, models.TaskStatusTodo)
	path := fmt.Sprintf("/api/tasks/%d", task.ID)

	s.Equal(http.StatusForbidden, s.do(http.MethodDelete, path, nil, s.memberTok).Code)
	s.Equal(http.StatusOK, s.do(http.MethodDelete, path, nil, s.adminToken).Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodGet, path, nil, s.adminToken).Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodDelete, path, nil, s.adminToken).Code)
}

func (s *HandlerTestSuite) TestSmartAssign() {
	testutil.CreateTask(s.T(), s.db, "Member busy", s.member.ID, models.TaskStatusInProgress)
	task := testutil.CreateTask(s.T(), s.db, "Unowned", s.member.ID, models.TaskStatusTodo)
	path := fmt.Sprintf("/api/tasks/%d/smart-assign", task.ID)

	s.Equal(http.StatusForbidden, s.do(http.MethodPost, path, nil, s.memberTok).Code)

	w := s.do(http.MethodPost, path, nil, s.adminToken)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var assigned dto.TaskDTO
	s.decode(w, &assigned)
	s.Equal(s.admin.ID, assigned.AssignedUser.ID)
	s.Equal(int64(2), assigned.Version)
}

func (s *HandlerTestSuite) TestRecentActions() {
	for i := 0; i < 3; i++ {
		w := s.do(http.MethodPost, "/api/tasks", map[string]any{
			"title":            fmt.Sprintf("Task %d", i),
			"assigned_user_id": s.admin.ID,
		}, s.adminToken)
		s.Require().Equal(http.StatusCreated, w.Code)
	}

	w := s.do(http.MethodGet, "/api/actions?limit=2", nil, s.memberTok)
	s.Require().Equal(http.StatusOK, w.Code)
	var entries []dto.ActionLogDTO
	s.decode(w, &entries)
	s.Require().Len(entries, 2)
	s.Equal(`Created task "Task 2"`, entries[0].Details)
	s.Equal("admin", entries[0].User.Username)

	s.Equal(http.StatusBadRequest, s.do(http.MethodGet, "/api/actions?limit=x", nil, s.memberTok).Code)
}

func (s *HandlerTestSuite) TestUsers() {
	w := s.do(http.MethodGet, "/api/users", nil, s.memberTok)
	s.Require().Equal(http.StatusOK, w.Code)
	var users []dto.UserDTO
	s.decode(w, &users)
	s.Require().Len(users, 2)
	s.Equal("admin", users[0].Username)

	path := fmt.Sprintf("/api/users/%d/admin", s.member.ID)
	s.Equal(http.StatusForbidden, s.do(http.MethodPut, path, map[string]bool{"is_admin": true}, s.memberTok).Code)
	s.Equal(http.StatusBadRequest, s.do(http.MethodPut, path, map[string]any{}, s.adminToken).Code)

	w = s.do(http.MethodPut, path, map[string]bool{"is_admin": true}, s.adminToken)
	s.Require().Equal(http.StatusOK, w.Code)
	var promoted dto.UserDTO
	s.decode(w, &promoted)
	s.True(promoted.IsAdmin)

	s.Equal(http.StatusNotFound, s.do(http.MethodPut, "/api/users/9999/admin", map[string]bool{"is_admin": true}, s.adminToken).Code)
}

func (s *HandlerTestSuite) TestGenerateTasks_Unconfigured() {
	w := s.do(http.MethodPost, "/api/tasks/generate", map[string]string{"text": "ship it"}, s.adminToken)
	s.Equal(http.StatusServiceUnavailable, w.Code)
}
