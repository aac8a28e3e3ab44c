package services

import (
	"errors"

	"github.com/yukikurage/kanban-sync/internal/dto"
	"github.com/yukikurage/kanban-sync/internal/models"
	"github.com/yukikurage/kanban-sync/internal/realtime"
	"github.com/yukikurage/kanban-sync/internal/testutil"
)

func (s *ServiceTestSuite) TestCreateTask_BroadcastsAndAudits() {
	u1 := testutil.CreateUser(s.T(), s.db, "u1", false)

	task, err := s.tasks.CreateTask(s.ctx, CreateTaskInput{
		Title:          "Design API",
		AssignedUserID: u1.ID,
		Priority:       models.TaskPriorityHigh,
		ActorID:        s.admin.ID,
	})
	s.Require().NoError(err)
	s.Equal(int64(1), task.Version)
	s.Equal(models.TaskPriorityHigh, task.Priority)

	events := s.events()
	s.Equal([]realtime.EventKind{realtime.EventActionLogged, realtime.EventTaskCreated}, kinds(events))

	payload, ok := events[1].Payload.(dto.TaskDTO)
	s.Require().True(ok)
	s.Equal("Design API", payload.Title)
	s.Equal(dto.UserSummaryDTO{ID: u1.ID, Username: "u1"}, payload.AssignedUser)

	entries, err := s.audit.Recent(s.ctx, 20)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(models.ActionCreated, entries[0].Action)
	s.Equal(`Created task "Design API"`, entries[0].Details)
	s.Equal("admin", entries[0].User.Username)
}

func (s *ServiceTestSuite) TestCreateTask_ReservedTitleCommitsNothing() {
	_, err := s.tasks.CreateTask(s.ctx, CreateTaskInput{
		Title:          "Done",
		AssignedUserID: s.admin.ID,
		ActorID:        s.admin.ID,
	})
	s.ErrorIs(err, ErrReservedTitle)

	s.Empty(s.events())
	tasks, err := s.tasks.ListTasks(s.ctx)
	s.Require().NoError(err)
	s.Empty(tasks)
	entries, err := s.audit.Recent(s.ctx, 20)
	s.Require().NoError(err)
	s.Empty(entries)
}

func (s *ServiceTestSuite) TestUpdateTask_ConflictThenResubmit() {
	task := testutil.CreateTask(s.T(), s.db, "Shared", s.admin.ID, models.TaskStatusTodo)

	// B moves the task forward.
	_, err := s.tasks.UpdateTask(s.ctx, UpdateTaskInput{
		TaskID:          task.ID,
		ExpectedVersion: ptr(int64(1)),
		Fields:          TaskFields{Status: ptr(models.TaskStatusInProgress)},
		ActorID:         s.admin.ID,
	})
	s.Require().NoError(err)

	// A edits from its stale copy.
	_, err = s.tasks.UpdateTask(s.ctx, UpdateTaskInput{
		TaskID:          task.ID,
		ExpectedVersion: ptr(int64(1)),
		Fields:          TaskFields{Description: ptr("from A")},
		ActorID:         s.admin.ID,
	})
	var conflict *ConflictError
	s.Require().True(errors.As(err, &conflict))
	s.Equal(int64(2), conflict.Current.Version)

	updated, err := s.tasks.UpdateTask(s.ctx, UpdateTaskInput{
		TaskID:          task.ID,
		ExpectedVersion: ptr(conflict.Current.Version),
		Fields:          TaskFields{Description: ptr("from A")},
		ActorID:         s.admin.ID,
	})
	s.Require().NoError(err)
	s.Equal(int64(3), updated.Version)
	s.Equal(models.TaskStatusInProgress, updated.Status)
	s.Equal("from A", updated.Description)

	// Conflicts are never broadcast.
	s.Equal([]realtime.EventKind{
		realtime.EventActionLogged, realtime.EventTaskUpdated,
		realtime.EventActionLogged, realtime.EventTaskUpdated,
	}, kinds(s.events()))
}

func (s *ServiceTestSuite) TestUpdateTask_AuditDetails() {
	task := testutil.CreateTask(s.T(), s.db, "Old name", s.admin.ID, models.TaskStatusTodo)

	_, err := s.tasks.UpdateTask(s.ctx, UpdateTaskInput{
		TaskID:  task.ID,
		Fields:  TaskFields{Status: ptr(models.TaskStatusDone)},
		ActorID: s.admin.ID,
	})
	s.Require().NoError(err)
	_, err = s.tasks.UpdateTask(s.ctx, UpdateTaskInput{
		TaskID:  task.ID,
		Fields:  TaskFields{Title: ptr("New name")},
		ActorID: s.admin.ID,
	})
	s.Require().NoError(err)
	_, err = s.tasks.UpdateTask(s.ctx, UpdateTaskInput{
		TaskID:     task.ID,
		Fields:     TaskFields{Description: ptr("more")},
		ActorID:    s.admin.ID,
		Resolution: ResolutionMerge,
	})
	s.Require().NoError(err)

	entries, err := s.audit.Recent(s.ctx, 20)
	s.Require().NoError(err)
	s.Require().Len(entries, 3)
	s.Equal(`Updated task "New name" (resolved by merge)`, entries[0].Details)
	s.Equal(`Updated task title to "New name"`, entries[1].Details)
	s.Equal(`Changed status from "Todo" to "Done"`, entries[2].Details)
}

func (s *ServiceTestSuite) TestDeleteTask_BroadcastsIDAndGetFails() {
	task := testutil.CreateTask(s.T(), s.db, "Temporary", s.admin.ID, models.TaskStatusTodo)

	s.Require().NoError(s.tasks.DeleteTask(s.ctx, task.ID, s.admin.ID))

	events := s.events()
	s.Require().Len(events, 2)
	s.Equal(realtime.EventTaskDeleted, events[1].Kind)
	s.Equal(dto.TaskDeletedDTO{ID: task.ID}, events[1].Payload)

	_, err := s.tasks.GetTask(s.ctx, task.ID)
	s.ErrorIs(err, ErrTaskNotFound)

	s.ErrorIs(s.tasks.DeleteTask(s.ctx, task.ID, s.admin.ID), ErrTaskNotFound)

	entries, err := s.audit.Recent(s.ctx, 20)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(`Deleted task "Temporary"`, entries[0].Details)
	s.Require().NotNil(entries[0].TaskID)
	s.Equal(task.ID, *entries[0].TaskID)
}

func (s *ServiceTestSuite) TestListTasks_NewestFirst() {
	first := testutil.CreateTask(s.T(), s.db, "First", s.admin.ID, models.TaskStatusTodo)
	second := testutil.CreateTask(s.T(), s.db, "Second", s.admin.ID, models.TaskStatusDone)

	tasks, err := s.tasks.ListTasks(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(tasks, 2)
	s.Equal(second.ID, tasks[0].ID)
	s.Equal(first.ID, tasks[1].ID)
	s.Equal("admin", tasks[0].AssignedUser.Username)
}

func (s *ServiceTestSuite) TestResolveConflict_MergeAndOverwrite() {
	bob := testutil.CreateUser(s.T(), s.db, "bob", false)
	task := testutil.CreateTask(s.T(), s.db, "Merge me", s.admin.ID, models.TaskStatusTodo)
	local := *task

	_, err := s.tasks.UpdateTask(s.ctx, UpdateTaskInput{
		TaskID:  task.ID,
		Fields:  TaskFields{Status: ptr(models.TaskStatusInProgress), AssignedUserID: &bob.ID},
		ActorID: s.admin.ID,
	})
	s.Require().NoError(err)

	edits := TaskFields{Priority: ptr(models.TaskPriorityHigh)}
	_, err = s.tasks.UpdateTask(s.ctx, UpdateTaskInput{
		TaskID:          task.ID,
		ExpectedVersion: ptr(local.Version),
		Fields:          edits,
		ActorID:         s.admin.ID,
	})
	var conflict *ConflictError
	s.Require().True(errors.As(err, &conflict))

	merged, err := s.tasks.ResolveConflict(s.ctx, conflict, ResolutionMerge, local, edits, s.admin.ID)
	s.Require().NoError(err)
	s.Equal(int64(3), merged.Version)
	s.Equal(models.TaskStatusInProgress, merged.Status)
	s.Equal(bob.ID, merged.AssignedUserID)
	s.Equal(models.TaskPriorityHigh, merged.Priority)

	// The conflict is now stale, so resolving it again must conflict.
	_, err = s.tasks.ResolveConflict(s.ctx, conflict, ResolutionOverwrite, local, edits, s.admin.ID)
	s.Require().ErrorIs(err, ErrConflict)

	var second *ConflictError
	s.Require().True(errors.As(err, &second))
	overwritten, err := s.tasks.ResolveConflict(s.ctx, second, ResolutionOverwrite, local, edits, s.admin.ID)
	s.Require().NoError(err)
	s.Equal(int64(4), overwritten.Version)
	s.Equal(models.TaskStatusTodo, overwritten.Status)
	s.Equal(s.admin.ID, overwritten.AssignedUserID)
	s.Equal(models.TaskPriorityHigh, overwritten.Priority)
}
