package tenancy

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/safeoutput/backoffice/internal/models"
)

func (suite *TenancyTestSuite) TestCreateOrganizationGeneratesSlug() {
	org := suite.createOrganization("acme")
	suite.Len(org.Slug, slugLength)
	suite.True(models.ValidSlug(org.Slug))

	got, err := suite.orgs.GetBySlug(context.Background(), org.Slug)
	suite.Require().NoError(err)
	suite.Equal(org.ID, got.ID)
}

func (suite *TenancyTestSuite) TestCreateOrganizationAddsOwnerMembership() {
	org := suite.createOrganization("acme")

	isMember, err := suite.members.IsOrganizationMember(context.Background(), org.ID, suite.actorID)
	suite.Require().NoError(err)
	suite.True(isMember)

	events := suite.auditEvents("organization", org.ID)
	suite.Equal([]string{models.EventOrganizationCreated}, events)
}

func (suite *TenancyTestSuite) TestCreateOrganizationRejectsBadSlug() {
	_, err := suite.orgs.Create(context.Background(), suite.actorID, models.AddOrganization{
		Name: "acme",
		Slug: "Not A Slug",
		Type: models.OrganizationTypeStartup,
	})
	var validation ValidationError
	suite.Require().True(errors.As(err, &validation))
	suite.Equal("slug", validation.Field)
}

func (suite *TenancyTestSuite) TestCreateOrganizationRejectsUnknownType() {
	_, err := suite.orgs.Create(context.Background(), suite.actorID, models.AddOrganization{
		Name: "acme",
		Type: models.OrganizationType("Collective"),
	})
	var validation ValidationError
	suite.Require().True(errors.As(err, &validation))
	suite.Equal("type", validation.Field)
}

func (suite *TenancyTestSuite) TestCreateOrganizationDuplicateSlugConflicts() {
	_, err := suite.orgs.Create(context.Background(), suite.actorID, models.AddOrganization{
		Name: "acme",
		Slug: "acme",
		Type: models.OrganizationTypeStartup,
	})
	suite.Require().NoError(err)

	_, err = suite.orgs.Create(context.Background(), suite.actorID, models.AddOrganization{
		Name: "acme again",
		Slug: "acme",
		Type: models.OrganizationTypeStartup,
	})
	var conflict ConflictError
	suite.True(errors.As(err, &conflict))
}

func (suite *TenancyTestSuite) TestUpdateOrganizationAuditsDiff() {
	org := suite.createOrganization("acme")

	newName := "acme international"
	status := models.SubscriptionActive
	updated, err := suite.orgs.Update(context.Background(), suite.actorID, org.ID, models.UpdateOrganization{
		Name:               &newName,
		SubscriptionStatus: &status,
	})
	suite.Require().NoError(err)
	suite.Equal(newName, updated.Name)

	entries, err := suite.recorder.ListByEntity(context.Background(), "organization", org.ID, 0, 0)
	suite.Require().NoError(err)
	suite.Require().Len(entries, 2)
	suite.Equal(models.EventOrganizationUpdated, entries[0].EventType)
	suite.Equal(newName, entries[0].Diff["name"])
}

func (suite *TenancyTestSuite) TestUpdateOrganizationEmptyPatchRejected() {
	org := suite.createOrganization("acme")
	_, err := suite.orgs.Update(context.Background(), suite.actorID, org.ID, models.UpdateOrganization{})
	var validation ValidationError
	suite.True(errors.As(err, &validation))
}

func (suite *TenancyTestSuite) TestUpdateOrganizationNotFound() {
	name := "ghost"
	_, err := suite.orgs.Update(context.Background(), suite.actorID, uuid.New(), models.UpdateOrganization{Name: &name})
	var notFound NotFoundError
	suite.True(errors.As(err, &notFound))
}

func (suite *TenancyTestSuite) TestDeleteOrganizationCascades() {
	org := suite.createOrganization("acme")
	proj := suite.createProject(org.ID, "widgets")

	found, err := suite.orgs.Delete(context.Background(), suite.actorID, org.ID)
	suite.Require().NoError(err)
	suite.True(found)

	_, err = suite.projects.Get(context.Background(), proj.ID)
	var notFound NotFoundError
	suite.True(errors.As(err, &notFound))

	isMember, err := suite.members.IsOrganizationMember(context.Background(), org.ID, suite.actorID)
	suite.Require().NoError(err)
	suite.False(isMember)
}

func (suite *TenancyTestSuite) TestDeleteOrganizationAbsentIsNotFound() {
	found, err := suite.orgs.Delete(context.Background(), suite.actorID, uuid.New())
	suite.Require().NoError(err)
	suite.False(found)
}

func (suite *TenancyTestSuite) TestListOrganizationsByType() {
	suite.createOrganization("one")
	_, err := suite.orgs.Create(context.Background(), suite.actorID, models.AddOrganization{
		Name: "school",
		Type: models.OrganizationTypeEducational,
	})
	suite.Require().NoError(err)

	orgs, err := suite.orgs.ListByType(context.Background(), models.OrganizationTypeEducational, 0, 0)
	suite.Require().NoError(err)
	suite.Require().Len(orgs, 1)
	suite.Equal("school", orgs[0].Name)
}
