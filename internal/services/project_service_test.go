package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/tenant-task-api/internal/models"
	"github.com/yukikurage/tenant-task-api/internal/repository"
	"github.com/yukikurage/tenant-task-api/internal/testutil"
	"gorm.io/gorm"
)

type ProjectServiceTestSuite struct {
	suite.Suite
	ctx   context.Context
	db    *gorm.DB
	clock *testutil.FixedClock
	svc   *ProjectService
	tasks *TaskService
	acme  *testutil.Tenant
	rival *testutil.Tenant
}

func TestProjectServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ProjectServiceTestSuite))
}

func (s *ProjectServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.db = testutil.SetupTestDB(s.T())
	s.clock = testutil.NewFixedClock(time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC))
	repos := repository.New(s.db, 5*time.Second)
	s.svc = NewProjectService(repos, s.clock.Now)
	s.tasks = NewTaskService(repos, NewActivityRecorder(s.clock.Now), s.clock.Now)
	s.acme = testutil.SeedTenant(s.T(), s.db, "Acme")
	s.rival = testutil.SeedTenant(s.T(), s.db, "Rival")
}

func (s *ProjectServiceTestSuite) members(projectID uint64) []uint64 {
	var ids []uint64
	s.Require().NoError(s.db.Model(&models.ProjectMember{}).
		Where("project_id = ?", projectID).
		Order("user_id ASC").
		Pluck("user_id", &ids).Error)
	return ids
}

func (s *ProjectServiceTestSuite) TestCreateProject() {
	project, err := s.svc.CreateProject(s.ctx, s.acme.AdminIdentity(), CreateProjectInput{
		Name:        "  Launch  ",
		Description: ptr("go live"),
	})
	s.Require().NoError(err)

	s.Equal("Launch", project.Name)
	s.Equal(s.acme.Org.ID, project.OrganizationID)
	s.Require().NotNil(project.Description)
	s.Equal("go live", *project.Description)
}

func (s *ProjectServiceTestSuite) TestMutationsRequireAdmin() {
	member := s.acme.MemberIdentity()

	_, err := s.svc.CreateProject(s.ctx, member, CreateProjectInput{Name: "x"})
	s.ErrorIs(err, ErrForbidden)

	_, err = s.svc.UpdateProject(s.ctx, member, s.acme.Project.ID, UpdateProjectInput{Name: ptr("x")})
	s.ErrorIs(err, ErrForbidden)

	s.ErrorIs(s.svc.DeleteProject(s.ctx, member, s.acme.Project.ID), ErrForbidden)

	_, err = s.svc.AssignMembers(s.ctx, member, s.acme.Project.ID, []uint64{s.acme.Member.ID})
	s.ErrorIs(err, ErrForbidden)
}

func (s *ProjectServiceTestSuite) TestCreateProject_NameRequired() {
	_, err := s.svc.CreateProject(s.ctx, s.acme.AdminIdentity(), CreateProjectInput{Name: "   "})
	s.ErrorIs(err, ErrProjectNameRequired)
}

func (s *ProjectServiceTestSuite) TestUpdateProject() {
	admin := s.acme.AdminIdentity()

	updated, err := s.svc.UpdateProject(s.ctx, admin, s.acme.Project.ID, UpdateProjectInput{
		Name:        ptr("Renamed"),
		Description: ptr("now with text"),
	})
	s.Require().NoError(err)
	s.Equal("Renamed", updated.Name)
	s.Equal("now with text", *updated.Description)

	unchanged, err := s.svc.UpdateProject(s.ctx, admin, s.acme.Project.ID, UpdateProjectInput{})
	s.Require().NoError(err)
	s.Equal("Renamed", unchanged.Name)

	_, err = s.svc.UpdateProject(s.ctx, admin, s.acme.Project.ID, UpdateProjectInput{Name: ptr("")})
	s.ErrorIs(err, ErrProjectNameRequired)
}

func (s *ProjectServiceTestSuite) TestForeignProjectIsNotFound() {
	admin := s.acme.AdminIdentity()

	_, err := s.svc.GetProject(s.ctx, admin, s.rival.Project.ID)
	s.ErrorIs(err, ErrNotFound)

	_, err = s.svc.UpdateProject(s.ctx, admin, s.rival.Project.ID, UpdateProjectInput{Name: ptr("Mine")})
	s.ErrorIs(err, ErrNotFound)

	_, err = s.svc.UpdateProject(s.ctx, admin, s.rival.Project.ID, UpdateProjectInput{})
	s.ErrorIs(err, ErrNotFound)

	s.ErrorIs(s.svc.DeleteProject(s.ctx, admin, s.rival.Project.ID), ErrNotFound)

	_, err = s.svc.AssignMembers(s.ctx, admin, s.rival.Project.ID, []uint64{s.acme.Member.ID})
	s.ErrorIs(err, ErrNotFound)

	var stored models.Project
	s.Require().NoError(s.db.First(&stored, s.rival.Project.ID).Error)
	s.Equal(s.rival.Project.Name, stored.Name)
}

func (s *ProjectServiceTestSuite) TestDeleteProject() {
	admin := s.acme.AdminIdentity()

	s.Require().NoError(s.svc.DeleteProject(s.ctx, admin, s.acme.Project.ID))

	_, err := s.svc.GetProject(s.ctx, admin, s.acme.Project.ID)
	s.ErrorIs(err, ErrProjectNotFound)
	s.ErrorIs(s.svc.DeleteProject(s.ctx, admin, s.acme.Project.ID), ErrProjectNotFound)

	projects, err := s.svc.ListProjects(s.ctx, admin)
	s.Require().NoError(err)
	s.Empty(projects)
}

func (s *ProjectServiceTestSuite) TestListProjects_Counters() {
	past := s.clock.Now().Add(-time.Hour)
	future := s.clock.Now().Add(time.Hour)
	actor := s.acme.AdminIdentity()

	for _, input := range []CreateTaskInput{
		{ProjectID: s.acme.Project.ID, Title: "late", DueDate: &past},
		{ProjectID: s.acme.Project.ID, Title: "on time", DueDate: &future},
		{ProjectID: s.acme.Project.ID, Title: "undated"},
	} {
		_, err := s.tasks.CreateTask(s.ctx, actor, input)
		s.Require().NoError(err)
	}
	done, err := s.tasks.CreateTask(s.ctx, actor, CreateTaskInput{ProjectID: s.acme.Project.ID, Title: "late but done", DueDate: &past})
	s.Require().NoError(err)
	_, err = s.tasks.TransitionStatus(s.ctx, actor, done.ID, models.TaskStatusDone, 0)
	s.Require().NoError(err)
	gone, err := s.tasks.CreateTask(s.ctx, actor, CreateTaskInput{ProjectID: s.acme.Project.ID, Title: "gone", DueDate: &past})
	s.Require().NoError(err)
	s.Require().NoError(s.tasks.DeleteTask(s.ctx, actor, gone.ID))

	projects, err := s.svc.ListProjects(s.ctx, actor)
	s.Require().NoError(err)
	s.Require().Len(projects, 1)
	s.Equal(s.acme.Project.ID, projects[0].ID)
	s.Equal(int64(4), projects[0].TaskCount)
	s.Equal(int64(1), projects[0].OverdueCount)
}

func (s *ProjectServiceTestSuite) TestAssignMembers() {
	admin := s.acme.AdminIdentity()

	assigned, err := s.svc.AssignMembers(s.ctx, admin, s.acme.Project.ID, []uint64{s.acme.Member.ID, s.rival.Member.ID, 9999})
	s.Require().NoError(err)
	s.Equal([]uint64{s.acme.Member.ID}, assigned)
	s.Equal([]uint64{s.acme.Member.ID}, s.members(s.acme.Project.ID))

	assigned, err = s.svc.AssignMembers(s.ctx, admin, s.acme.Project.ID, []uint64{s.acme.Admin.ID})
	s.Require().NoError(err)
	s.Equal([]uint64{s.acme.Admin.ID}, assigned)
	s.Equal([]uint64{s.acme.Admin.ID}, s.members(s.acme.Project.ID))
}

func (s *ProjectServiceTestSuite) TestAssignMembers_EdgeCases() {
	admin := s.acme.AdminIdentity()
	_, err := s.svc.AssignMembers(s.ctx, admin, s.acme.Project.ID, []uint64{s.acme.Member.ID})
	s.Require().NoError(err)

	assigned, err := s.svc.AssignMembers(s.ctx, admin, s.acme.Project.ID, nil)
	s.Require().NoError(err)
	s.Empty(assigned)
	s.Equal([]uint64{s.acme.Member.ID}, s.members(s.acme.Project.ID))

	_, err = s.svc.AssignMembers(s.ctx, admin, s.acme.Project.ID, []uint64{s.rival.Admin.ID})
	s.ErrorIs(err, ErrNoValidMembers)
	s.Equal([]uint64{s.acme.Member.ID}, s.members(s.acme.Project.ID))
}
