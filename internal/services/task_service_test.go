package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/tenant-task-api/internal/models"
	"github.com/yukikurage/tenant-task-api/internal/repository"
	"github.com/yukikurage/tenant-task-api/internal/testutil"
	"github.com/yukikurage/tenant-task-api/internal/utils"
	"gorm.io/gorm"
)

type TaskServiceTestSuite struct {
	suite.Suite
	ctx   context.Context
	db    *gorm.DB
	clock *testutil.FixedClock
	repos *repository.Repositories
	svc   *TaskService
	acme  *testutil.Tenant
	rival *testutil.Tenant
}

func TestTaskServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TaskServiceTestSuite))
}

func (s *TaskServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.db = testutil.SetupTestDB(s.T())
	s.clock = testutil.NewFixedClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	s.repos = repository.New(s.db, 5*time.Second)
	s.svc = NewTaskService(s.repos, NewActivityRecorder(s.clock.Now), s.clock.Now)
	s.acme = testutil.SeedTenant(s.T(), s.db, "Acme")
	s.rival = testutil.SeedTenant(s.T(), s.db, "Rival")
}

func (s *TaskServiceTestSuite) createTask(title string) *models.Task {
	task, err := s.svc.CreateTask(s.ctx, s.acme.MemberIdentity(), CreateTaskInput{
		ProjectID: s.acme.Project.ID,
		Title:     title,
	})
	s.Require().NoError(err)
	return task
}

func (s *TaskServiceTestSuite) stored(id uint64) models.Task {
	var task models.Task
	s.Require().NoError(s.db.Unscoped().First(&task, id).Error)
	return task
}

func (s *TaskServiceTestSuite) logs(taskID uint64) []models.ActivityLog {
	var logs []models.ActivityLog
	s.Require().NoError(s.db.Where("task_id = ?", taskID).Order("id ASC").Find(&logs).Error)
	return logs
}

func (s *TaskServiceTestSuite) TestCreateTask_Defaults() {
	task := s.createTask("Write docs")

	s.Equal(uint64(0), task.Version)
	s.Equal(models.TaskStatusTodo, task.Status)
	s.Equal(models.TaskPriorityMedium, task.Priority)
	s.Equal(s.acme.Org.ID, task.OrganizationID)
	s.Nil(task.CompletedAt)
	s.WithinDuration(s.clock.Now(), task.CreatedAt, time.Millisecond)

	logs := s.logs(task.ID)
	s.Require().Len(logs, 1)
	s.Equal(models.ActivityCreated, logs[0].Action)
	s.Equal(s.acme.Member.ID, logs[0].UserID)

	changes, err := models.DecodeChanges(logs[0].Action, logs[0].Changes)
	s.Require().NoError(err)
	created, ok := changes.(models.CreatedChanges)
	s.Require().True(ok)
	s.Equal("Write docs", created.Title)
	s.Equal(s.acme.Project.ID, created.ProjectID)
}

func (s *TaskServiceTestSuite) TestCreateTask_WithAssignee() {
	priority := models.TaskPriorityHigh
	due := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	task, err := s.svc.CreateTask(s.ctx, s.acme.AdminIdentity(), CreateTaskInput{
		ProjectID:  s.acme.Project.ID,
		Title:      "Ship",
		Priority:   &priority,
		DueDate:    &due,
		AssignedTo: &s.acme.Member.ID,
	})
	s.Require().NoError(err)

	s.Equal(models.TaskPriorityHigh, task.Priority)
	s.Require().NotNil(task.AssignedTo)
	s.Equal(s.acme.Member.ID, *task.AssignedTo)
	s.Equal(s.acme.Member.Name, task.AssigneeName())
	s.Require().NotNil(task.DueDate)
	s.True(due.Equal(*task.DueDate))
}

func (s *TaskServiceTestSuite) TestCreateTask_RejectsInvalidInput() {
	actor := s.acme.MemberIdentity()
	bogus := models.TaskPriority("URGENT")

	cases := map[string]struct {
		input CreateTaskInput
		want  error
	}{
		"empty title":      {CreateTaskInput{ProjectID: s.acme.Project.ID, Title: "  "}, ErrTitleRequired},
		"bad priority":     {CreateTaskInput{ProjectID: s.acme.Project.ID, Title: "x", Priority: &bogus}, ErrInvalidPriority},
		"missing project":  {CreateTaskInput{ProjectID: 9999, Title: "x"}, ErrInvalidTaskProject},
		"foreign project":  {CreateTaskInput{ProjectID: s.rival.Project.ID, Title: "x"}, ErrInvalidTaskProject},
		"foreign assignee": {CreateTaskInput{ProjectID: s.acme.Project.ID, Title: "x", AssignedTo: &s.rival.Member.ID}, ErrInvalidAssignee},
	}

	for name, tc := range cases {
		s.Run(name, func() {
			_, err := s.svc.CreateTask(s.ctx, actor, tc.input)
			s.ErrorIs(err, tc.want)
			s.ErrorIs(err, ErrValidation)
		})
	}

	var count int64
	s.Require().NoError(s.db.Model(&models.Task{}).Count(&count).Error)
	s.Zero(count)
}

func (s *TaskServiceTestSuite) TestCreateTask_DeletedProject() {
	s.Require().NoError(s.db.Delete(s.acme.Project).Error)

	_, err := s.svc.CreateTask(s.ctx, s.acme.MemberIdentity(), CreateTaskInput{
		ProjectID: s.acme.Project.ID,
		Title:     "Orphan",
	})
	s.ErrorIs(err, ErrInvalidTaskProject)
}

func (s *TaskServiceTestSuite) TestUpdateTask_AppliesSubmittedFields() {
	task := s.createTask("Draft")

	updated, err := s.svc.UpdateTask(s.ctx, s.acme.AdminIdentity(), task.ID, UpdateTaskInput{
		Version:  task.Version,
		Title:    utils.Some("Final"),
		Priority: utils.Some(models.TaskPriorityHigh),
	})
	s.Require().NoError(err)

	s.Equal("Final", updated.Title)
	s.Equal(models.TaskPriorityHigh, updated.Priority)
	s.Equal(models.TaskStatusTodo, updated.Status)
	s.Equal(uint64(1), updated.Version)

	logs := s.logs(task.ID)
	s.Require().Len(logs, 2)
	s.Equal(models.ActivityUpdated, logs[1].Action)
	s.Equal(s.acme.Admin.ID, logs[1].UserID)

	changes, err := models.DecodeChanges(logs[1].Action, logs[1].Changes)
	s.Require().NoError(err)
	diff := changes.(models.UpdatedChanges)
	s.Len(diff, 2)
	s.JSONEq(`"Draft"`, string(diff["title"].From))
	s.JSONEq(`"Final"`, string(diff["title"].To))
	s.JSONEq(`"MEDIUM"`, string(diff["priority"].From))
	s.JSONEq(`"HIGH"`, string(diff["priority"].To))
}

func (s *TaskServiceTestSuite) TestUpdateTask_StaleVersionConflicts() {
	task := s.createTask("Draft")
	_, err := s.svc.UpdateTask(s.ctx, s.acme.AdminIdentity(), task.ID, UpdateTaskInput{
		Version: 0,
		Title:   utils.Some("First"),
	})
	s.Require().NoError(err)
	before := s.stored(task.ID)

	_, err = s.svc.UpdateTask(s.ctx, s.acme.MemberIdentity(), task.ID, UpdateTaskInput{
		Version: 0,
		Title:   utils.Some("Second"),
		Status:  utils.Some(models.TaskStatusDone),
	})

	var conflict *VersionConflictError
	s.Require().ErrorAs(err, &conflict)
	s.ErrorIs(err, ErrConflict)
	s.Equal(task.ID, conflict.TaskID)
	s.Equal(uint64(0), conflict.ExpectedVersion)
	s.Equal(uint64(1), conflict.CurrentVersion)

	after := s.stored(task.ID)
	s.Equal(before.Title, after.Title)
	s.Equal(before.Status, after.Status)
	s.Equal(before.Version, after.Version)
	s.Nil(after.CompletedAt)
	s.Len(s.logs(task.ID), 2)
}

func (s *TaskServiceTestSuite) TestUpdateTask_NoChangeBumpsVersionWithoutLog() {
	task := s.createTask("Same")

	updated, err := s.svc.UpdateTask(s.ctx, s.acme.MemberIdentity(), task.ID, UpdateTaskInput{
		Version: 0,
		Title:   utils.Some("Same"),
	})
	s.Require().NoError(err)

	s.Equal(uint64(1), updated.Version)
	s.Len(s.logs(task.ID), 1)
}

func (s *TaskServiceTestSuite) TestUpdateTask_NullClearsNullableFields() {
	due := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	task, err := s.svc.CreateTask(s.ctx, s.acme.MemberIdentity(), CreateTaskInput{
		ProjectID:   s.acme.Project.ID,
		Title:       "Nullable",
		Description: ptr("something"),
		DueDate:     &due,
		AssignedTo:  &s.acme.Admin.ID,
	})
	s.Require().NoError(err)

	updated, err := s.svc.UpdateTask(s.ctx, s.acme.MemberIdentity(), task.ID, UpdateTaskInput{
		Version:     task.Version,
		Description: utils.Null[string](),
		DueDate:     utils.Null[time.Time](),
		AssignedTo:  utils.Null[uint64](),
	})
	s.Require().NoError(err)

	s.Nil(updated.Description)
	s.Nil(updated.DueDate)
	s.Nil(updated.AssignedTo)
	s.Equal("Nullable", updated.Title)

	logs := s.logs(task.ID)
	s.Require().Len(logs, 2)
	changes, err := models.DecodeChanges(logs[1].Action, logs[1].Changes)
	s.Require().NoError(err)
	diff := changes.(models.UpdatedChanges)
	s.Contains(diff, "description")
	s.Contains(diff, "dueDate")
	s.Contains(diff, "assignedTo")
	s.JSONEq(`null`, string(diff["assignedTo"].To))
}

func (s *TaskServiceTestSuite) TestUpdateTask_Validation() {
	task := s.createTask("Valid")
	actor := s.acme.MemberIdentity()

	_, err := s.svc.UpdateTask(s.ctx, actor, task.ID, UpdateTaskInput{Title: utils.Null[string]()})
	s.ErrorIs(err, ErrTitleRequired)

	_, err = s.svc.UpdateTask(s.ctx, actor, task.ID, UpdateTaskInput{Status: utils.Some(models.TaskStatus("BLOCKED"))})
	s.ErrorIs(err, ErrInvalidStatus)

	_, err = s.svc.UpdateTask(s.ctx, actor, task.ID, UpdateTaskInput{AssignedTo: utils.Some(s.rival.Admin.ID)})
	s.ErrorIs(err, ErrInvalidAssignee)

	s.Equal(uint64(0), s.stored(task.ID).Version)
}

func (s *TaskServiceTestSuite) TestUpdateTask_StatusDoneStampsCompletedAt() {
	task := s.createTask("Finish")

	updated, err := s.svc.UpdateTask(s.ctx, s.acme.MemberIdentity(), task.ID, UpdateTaskInput{
		Version: 0,
		Status:  utils.Some(models.TaskStatusDone),
	})
	s.Require().NoError(err)

	s.Equal(models.TaskStatusDone, updated.Status)
	s.Require().NotNil(updated.CompletedAt)
	s.WithinDuration(s.clock.Now(), *updated.CompletedAt, time.Millisecond)
}

func (s *TaskServiceTestSuite) TestTransitionStatus_SameStatusIsNoOp() {
	task := s.createTask("Idle")

	result, err := s.svc.TransitionStatus(s.ctx, s.acme.MemberIdentity(), task.ID, models.TaskStatusTodo, task.Version)
	s.Require().NoError(err)

	s.Equal(uint64(0), result.Version)
	s.Equal(uint64(0), s.stored(task.ID).Version)
	s.Len(s.logs(task.ID), 1)
}

func (s *TaskServiceTestSuite) TestTransitionStatus_LogsStatusAndVersion() {
	task := s.createTask("Move")

	result, err := s.svc.TransitionStatus(s.ctx, s.acme.MemberIdentity(), task.ID, models.TaskStatusInProgress, 0)
	s.Require().NoError(err)
	s.Equal(models.TaskStatusInProgress, result.Status)
	s.Equal(uint64(1), result.Version)
	s.Nil(result.CompletedAt)

	logs := s.logs(task.ID)
	s.Require().Len(logs, 2)
	changes, err := models.DecodeChanges(logs[1].Action, logs[1].Changes)
	s.Require().NoError(err)
	s.Equal(models.StatusChangedChanges{
		Status:  models.Transition[models.TaskStatus]{From: models.TaskStatusTodo, To: models.TaskStatusInProgress},
		Version: models.Transition[uint64]{From: 0, To: 1},
	}, changes)
}

func (s *TaskServiceTestSuite) TestTransitionStatus_CompletedAtIsStampedOnce() {
	task := s.createTask("Once")
	actor := s.acme.MemberIdentity()
	firstDone := s.clock.Now()

	done, err := s.svc.TransitionStatus(s.ctx, actor, task.ID, models.TaskStatusDone, 0)
	s.Require().NoError(err)
	s.Require().NotNil(done.CompletedAt)
	s.WithinDuration(firstDone, *done.CompletedAt, time.Millisecond)

	s.clock.Advance(3 * time.Hour)
	reopened, err := s.svc.TransitionStatus(s.ctx, actor, task.ID, models.TaskStatusInProgress, done.Version)
	s.Require().NoError(err)
	s.Require().NotNil(reopened.CompletedAt)
	s.WithinDuration(firstDone, *reopened.CompletedAt, time.Millisecond)

	s.clock.Advance(3 * time.Hour)
	again, err := s.svc.TransitionStatus(s.ctx, actor, task.ID, models.TaskStatusDone, reopened.Version)
	s.Require().NoError(err)
	s.Require().NotNil(again.CompletedAt)
	s.WithinDuration(firstDone, *again.CompletedAt, time.Millisecond)
	s.Equal(uint64(3), again.Version)
}

func (s *TaskServiceTestSuite) TestTransitionStatus_InvalidStatus() {
	task := s.createTask("Bad")

	_, err := s.svc.TransitionStatus(s.ctx, s.acme.MemberIdentity(), task.ID, models.TaskStatus("ARCHIVED"), 0)
	s.ErrorIs(err, ErrInvalidStatus)
}

func (s *TaskServiceTestSuite) TestEndToEndScenario() {
	priority := models.TaskPriorityLow
	actor := s.acme.MemberIdentity()

	task, err := s.svc.CreateTask(s.ctx, actor, CreateTaskInput{
		ProjectID: s.acme.Project.ID,
		Title:     "Write docs",
		Priority:  &priority,
	})
	s.Require().NoError(err)
	s.Equal(uint64(0), task.Version)
	s.Equal(models.TaskStatusTodo, task.Status)

	done, err := s.svc.TransitionStatus(s.ctx, actor, task.ID, models.TaskStatusDone, task.Version)
	s.Require().NoError(err)
	s.Equal(uint64(1), done.Version)
	s.NotNil(done.CompletedAt)

	_, err = s.svc.TransitionStatus(s.ctx, actor, task.ID, models.TaskStatusInProgress, task.Version)
	s.ErrorIs(err, ErrConflict)
	s.Equal(models.TaskStatusDone, s.stored(task.ID).Status)
}

func (s *TaskServiceTestSuite) TestVersionMonotonicity() {
	task := s.createTask("Counter")
	actor := s.acme.MemberIdentity()

	updated, err := s.svc.UpdateTask(s.ctx, actor, task.ID, UpdateTaskInput{Version: 0, Title: utils.Some("Counter 2")})
	s.Require().NoError(err)
	moved, err := s.svc.TransitionStatus(s.ctx, actor, task.ID, models.TaskStatusInProgress, updated.Version)
	s.Require().NoError(err)
	final, err := s.svc.UpdateTask(s.ctx, actor, task.ID, UpdateTaskInput{Version: moved.Version, Priority: utils.Some(models.TaskPriorityLow)})
	s.Require().NoError(err)

	s.Equal(uint64(3), final.Version)
	s.Len(s.logs(task.ID), 4)
}

func (s *TaskServiceTestSuite) TestTenantIsolation() {
	task := s.createTask("Private")
	outsider := s.rival.AdminIdentity()

	_, err := s.svc.GetTask(s.ctx, outsider, task.ID)
	s.ErrorIs(err, ErrNotFound)

	_, err = s.svc.UpdateTask(s.ctx, outsider, task.ID, UpdateTaskInput{Version: 0, Title: utils.Some("Hijacked")})
	s.ErrorIs(err, ErrNotFound)

	_, err = s.svc.TransitionStatus(s.ctx, outsider, task.ID, models.TaskStatusDone, 0)
	s.ErrorIs(err, ErrNotFound)

	err = s.svc.DeleteTask(s.ctx, outsider, task.ID)
	s.ErrorIs(err, ErrNotFound)

	page, err := s.svc.ListTasks(s.ctx, outsider, ListTasksInput{ProjectID: s.acme.Project.ID, Page: 1, Limit: 20})
	s.Require().NoError(err)
	s.Empty(page.Tasks)
	s.Zero(page.Total)

	after := s.stored(task.ID)
	s.Equal("Private", after.Title)
	s.Equal(uint64(0), after.Version)
	s.False(after.DeletedAt.Valid)
	s.Len(s.logs(task.ID), 1)
}

func (s *TaskServiceTestSuite) TestDeleteTask() {
	task := s.createTask("Temporary")
	actor := s.acme.AdminIdentity()

	s.Require().NoError(s.svc.DeleteTask(s.ctx, actor, task.ID))

	stored := s.stored(task.ID)
	s.True(stored.DeletedAt.Valid)
	s.Equal(uint64(0), stored.Version)

	logs := s.logs(task.ID)
	s.Require().Len(logs, 2)
	s.Equal(models.ActivityDeleted, logs[1].Action)
	changes, err := models.DecodeChanges(logs[1].Action, logs[1].Changes)
	s.Require().NoError(err)
	s.Equal(models.DeletedChanges{Title: "Temporary"}, changes)

	_, err = s.svc.GetTask(s.ctx, actor, task.ID)
	s.ErrorIs(err, ErrTaskNotFound)
	s.ErrorIs(s.svc.DeleteTask(s.ctx, actor, task.ID), ErrTaskNotFound)
	_, err = s.svc.TransitionStatus(s.ctx, actor, task.ID, models.TaskStatusDone, 0)
	s.ErrorIs(err, ErrTaskNotFound)
}

func (s *TaskServiceTestSuite) TestDeletedProjectHidesTasks() {
	task := s.createTask("Hidden")
	s.Require().NoError(s.db.Delete(s.acme.Project).Error)

	_, err := s.svc.GetTask(s.ctx, s.acme.AdminIdentity(), task.ID)
	s.ErrorIs(err, ErrNotFound)

	_, err = s.svc.UpdateTask(s.ctx, s.acme.AdminIdentity(), task.ID, UpdateTaskInput{Version: 0, Title: utils.Some("x")})
	s.ErrorIs(err, ErrNotFound)
}

func (s *TaskServiceTestSuite) TestMutationRollsBackWhenActivityWriteFails() {
	task := s.createTask("Atomic")
	before := s.stored(task.ID)

	err := s.db.Callback().Create().Before("gorm:create").Register("test:fail_activity_logs", func(db *gorm.DB) {
		if db.Statement.Table == "activity_logs" {
			db.AddError(errors.New("activity store unavailable"))
		}
	})
	s.Require().NoError(err)

	_, err = s.svc.UpdateTask(s.ctx, s.acme.MemberIdentity(), task.ID, UpdateTaskInput{
		Version: 0,
		Title:   utils.Some("Should not stick"),
		Status:  utils.Some(models.TaskStatusDone),
	})
	s.Require().Error(err)
	s.Nil(Kind(err))

	_, err = s.svc.TransitionStatus(s.ctx, s.acme.MemberIdentity(), task.ID, models.TaskStatusInProgress, 0)
	s.Require().Error(err)

	s.Require().Error(s.svc.DeleteTask(s.ctx, s.acme.MemberIdentity(), task.ID))

	after := s.stored(task.ID)
	s.Equal(before.Title, after.Title)
	s.Equal(before.Status, after.Status)
	s.Equal(before.Version, after.Version)
	s.Equal(before.CompletedAt, after.CompletedAt)
	s.True(before.UpdatedAt.Equal(after.UpdatedAt))
	s.False(after.DeletedAt.Valid)
	s.Len(s.logs(task.ID), 1)
}

func (s *TaskServiceTestSuite) TestListTasks() {
	actor := s.acme.MemberIdentity()
	for i, title := range []string{"alpha", "beta", "gamma"} {
		s.clock.Advance(time.Minute)
		task := s.createTask(title)
		if i == 1 {
			_, err := s.svc.TransitionStatus(s.ctx, actor, task.ID, models.TaskStatusDone, 0)
			s.Require().NoError(err)
		}
	}

	page, err := s.svc.ListTasks(s.ctx, actor, ListTasksInput{ProjectID: s.acme.Project.ID, Page: 1, Limit: 2})
	s.Require().NoError(err)
	s.Equal(int64(3), page.Total)
	s.Require().Len(page.Tasks, 2)
	s.Equal("gamma", page.Tasks[0].Title)
	s.Equal("beta", page.Tasks[1].Title)

	page, err = s.svc.ListTasks(s.ctx, actor, ListTasksInput{ProjectID: s.acme.Project.ID, Page: 1, Limit: 10, Order: "asc"})
	s.Require().NoError(err)
	s.Equal("alpha", page.Tasks[0].Title)

	done := models.TaskStatusDone
	page, err = s.svc.ListTasks(s.ctx, actor, ListTasksInput{ProjectID: s.acme.Project.ID, Page: 1, Limit: 10, Status: &done})
	s.Require().NoError(err)
	s.Require().Len(page.Tasks, 1)
	s.Equal("beta", page.Tasks[0].Title)

	page, err = s.svc.ListTasks(s.ctx, actor, ListTasksInput{ProjectID: s.acme.Project.ID, Page: 1, Limit: 10, Search: "amm"})
	s.Require().NoError(err)
	s.Require().Len(page.Tasks, 1)
	s.Equal("gamma", page.Tasks[0].Title)
}

func (s *TaskServiceTestSuite) TestListTasks_RejectsInvalidQuery() {
	actor := s.acme.MemberIdentity()
	bad := models.TaskStatus("NOPE")

	cases := map[string]ListTasksInput{
		"page zero":   {Page: 0, Limit: 10},
		"limit zero":  {Page: 1, Limit: 0},
		"limit large": {Page: 1, Limit: 101},
		"status":      {Page: 1, Limit: 10, Status: &bad},
		"sort field":  {Page: 1, Limit: 10, SortBy: "title"},
		"sort order":  {Page: 1, Limit: 10, Order: "sideways"},
	}
	for name, input := range cases {
		s.Run(name, func() {
			input.ProjectID = s.acme.Project.ID
			_, err := s.svc.ListTasks(s.ctx, actor, input)
			s.ErrorIs(err, ErrValidation)
		})
	}
}

func ptr[T any](v T) *T {
	return &v
}
