package services

import (
	"github.com/yukikurage/kanban-sync/internal/models"
	"github.com/yukikurage/kanban-sync/internal/realtime"
	"github.com/yukikurage/kanban-sync/internal/testutil"
)

func (s *ServiceTestSuite) TestSmartAssign_PicksLeastLoaded() {
	u1 := testutil.CreateUser(s.T(), s.db, "u1", false)
	u2 := testutil.CreateUser(s.T(), s.db, "u2", false)
	testutil.CreateTask(s.T(), s.db, "Admin busy", s.admin.ID, models.TaskStatusInProgress)
	testutil.CreateTask(s.T(), s.db, "U1 busy", u1.ID, models.TaskStatusTodo)
	target := testutil.CreateTask(s.T(), s.db, "Target", s.admin.ID, models.TaskStatusTodo)

	// Done tasks do not count towards load.
	testutil.CreateTask(s.T(), s.db, "U2 finished", u2.ID, models.TaskStatusDone)

	task, err := s.assigner.SmartAssign(s.ctx, target.ID, s.admin.ID)
	s.Require().NoError(err)
	s.Equal(u2.ID, task.AssignedUserID)
	s.Equal("u2", task.AssignedUser.Username)
	s.Equal(int64(2), task.Version)

	s.Equal([]realtime.EventKind{realtime.EventActionLogged, realtime.EventTaskUpdated}, kinds(s.events()))

	entries, err := s.audit.Recent(s.ctx, 1)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(models.ActionSmartAssigned, entries[0].Action)
	s.Equal("Smart assigned to u2", entries[0].Details)
}

func (s *ServiceTestSuite) TestSmartAssign_TiesGoToFirstUser() {
	u1 := testutil.CreateUser(s.T(), s.db, "u1", false)
	testutil.CreateUser(s.T(), s.db, "u2", false)
	testutil.CreateTask(s.T(), s.db, "Admin busy", s.admin.ID, models.TaskStatusTodo)

	picked, err := s.assigner.Pick(s.ctx)
	s.Require().NoError(err)
	s.Equal(u1.ID, picked.ID)

	// Stable across repeated selections on an unchanged board.
	again, err := s.assigner.Pick(s.ctx)
	s.Require().NoError(err)
	s.Equal(picked.ID, again.ID)
}

func (s *ServiceTestSuite) TestSmartAssign_UnknownTask() {
	_, err := s.assigner.SmartAssign(s.ctx, 999, s.admin.ID)
	s.ErrorIs(err, ErrTaskNotFound)
	s.Empty(s.events())
}

func (s *ServiceTestSuite) TestSmartAssign_RespectsConcurrentEdits() {
	u1 := testutil.CreateUser(s.T(), s.db, "u1", false)
	target := testutil.CreateTask(s.T(), s.db, "Target", s.admin.ID, models.TaskStatusTodo)

	_, err := s.tasks.UpdateTask(s.ctx, UpdateTaskInput{
		TaskID:  target.ID,
		Fields:  TaskFields{Title: ptr("Renamed")},
		ActorID: s.admin.ID,
	})
	s.Require().NoError(err)

	task, err := s.assigner.SmartAssign(s.ctx, target.ID, s.admin.ID)
	s.Require().NoError(err)
	s.Equal(u1.ID, task.AssignedUserID)
	s.Equal("Renamed", task.Title)
	s.Equal(int64(3), task.Version)
}
