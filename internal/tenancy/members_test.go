package tenancy

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/safeoutput/backoffice/internal/models"
)

func (suite *TenancyTestSuite) TestCreateProjectRequiresOrganization() {
	_, err := suite.projects.Create(context.Background(), suite.actorID, models.AddProject{
		Name:           "widgets",
		OrganizationID: uuid.New(),
	})
	var notFound NotFoundError
	suite.Require().True(errors.As(err, &notFound))
	suite.Equal("organization", notFound.Resource)
}

func (suite *TenancyTestSuite) TestProjectNameUniquePerOrganization() {
	org := suite.createOrganization("acme")
	suite.createProject(org.ID, "widgets")

	_, err := suite.projects.Create(context.Background(), suite.actorID, models.AddProject{
		Name:           "widgets",
		OrganizationID: org.ID,
	})
	var conflict ConflictError
	suite.True(errors.As(err, &conflict))

	// Same name under a different organization is fine.
	other := suite.createOrganization("other")
	suite.createProject(other.ID, "widgets")
}

func (suite *TenancyTestSuite) TestAddAndRemoveOrganizationMember() {
	org := suite.createOrganization("acme")
	userID := uuid.New()

	_, err := suite.members.AddOrganizationMember(context.Background(), suite.actorID, org.ID, models.AddOrganizationMember{UserID: userID})
	suite.Require().NoError(err)

	isMember, err := suite.members.IsOrganizationMember(context.Background(), org.ID, userID)
	suite.Require().NoError(err)
	suite.True(isMember)

	// Adding the same user twice conflicts.
	_, err = suite.members.AddOrganizationMember(context.Background(), suite.actorID, org.ID, models.AddOrganizationMember{UserID: userID})
	var conflict ConflictError
	suite.True(errors.As(err, &conflict))

	found, err := suite.members.RemoveOrganizationMember(context.Background(), suite.actorID, org.ID, userID)
	suite.Require().NoError(err)
	suite.True(found)

	// Removal is idempotent and the second pass writes no audit record.
	found, err = suite.members.RemoveOrganizationMember(context.Background(), suite.actorID, org.ID, userID)
	suite.Require().NoError(err)
	suite.False(found)

	events := suite.auditEvents("organization", org.ID)
	suite.Equal([]string{
		models.EventOrganizationMemberRemoved,
		models.EventOrganizationMemberAdded,
		models.EventOrganizationCreated,
	}, events)
}

func (suite *TenancyTestSuite) TestAddProjectMemberChecksParentOrganization() {
	org := suite.createOrganization("acme")
	proj := suite.createProject(org.ID, "widgets")
	userID := uuid.New()

	_, err := suite.members.AddProjectMember(context.Background(), suite.actorID, proj.ID, models.AddProjectMember{
		UserID:         userID,
		OrganizationID: uuid.New(),
	})
	var validation ValidationError
	suite.Require().True(errors.As(err, &validation))
	suite.Equal("organization_id", validation.Field)

	_, err = suite.members.AddProjectMember(context.Background(), suite.actorID, proj.ID, models.AddProjectMember{
		UserID:         userID,
		OrganizationID: org.ID,
	})
	suite.Require().NoError(err)

	isMember, err := suite.members.IsProjectMember(context.Background(), proj.ID, userID)
	suite.Require().NoError(err)
	suite.True(isMember)
}

func (suite *TenancyTestSuite) TestListMembershipsForUser() {
	org := suite.createOrganization("acme")
	proj := suite.createProject(org.ID, "widgets")
	userID := uuid.New()

	_, err := suite.members.AddOrganizationMember(context.Background(), suite.actorID, org.ID, models.AddOrganizationMember{UserID: userID})
	suite.Require().NoError(err)
	_, err = suite.members.AddProjectMember(context.Background(), suite.actorID, proj.ID, models.AddProjectMember{
		UserID:         userID,
		OrganizationID: org.ID,
	})
	suite.Require().NoError(err)

	orgs, err := suite.members.ListOrganizationsForUser(context.Background(), userID)
	suite.Require().NoError(err)
	suite.Require().Len(orgs, 1)
	suite.Equal(org.ID, orgs[0].ID)

	projects, err := suite.members.ListProjectsForUser(context.Background(), userID)
	suite.Require().NoError(err)
	suite.Require().Len(projects, 1)
	suite.Equal(proj.ID, projects[0].ID)
}

func (suite *TenancyTestSuite) TestDeleteProjectCascadesMemberships() {
	org := suite.createOrganization("acme")
	proj := suite.createProject(org.ID, "widgets")
	userID := uuid.New()

	_, err := suite.members.AddProjectMember(context.Background(), suite.actorID, proj.ID, models.AddProjectMember{
		UserID:         userID,
		OrganizationID: org.ID,
	})
	suite.Require().NoError(err)

	found, err := suite.projects.Delete(context.Background(), suite.actorID, proj.ID)
	suite.Require().NoError(err)
	suite.True(found)

	isMember, err := suite.members.IsProjectMember(context.Background(), proj.ID, userID)
	suite.Require().NoError(err)
	suite.False(isMember)
}
